package handler

import (
	"github.com/a3zone/server/internal/net"
	"github.com/a3zone/server/internal/net/packet"
	"github.com/a3zone/server/internal/system"
	"go.uber.org/zap"
)

// HandleAttackMob processes ATTACK_MOB{mob_id, skill_id}.
func HandleAttackMob(sess *net.Session, r *packet.Reader, deps *Deps) {
	res, err := deps.Systems.Combat.AttackMob(sess.Character, r.String("mob_id"), r.String("skill_id"))
	if err != nil {
		sendRejection(sess, "MOB_ATTACK_REJECTED", err, deps)
		return
	}
	sess.Send("MOB_ATTACK_RESULT", res)
	if res.Status == system.StatusPlayerDied {
		sess.Log().Info("玩家陣亡", zap.String("name", sess.Character.Name), zap.String("mob", res.MobID))
	}
}

// HandleAttack processes ATTACK{target, target_level}: an exchange against
// an unnamed opponent of the given level.
func HandleAttack(sess *net.Session, r *packet.Reader, deps *Deps) {
	res, err := deps.Systems.Combat.Attack(sess.Character, r.String("target"), r.Int("target_level"))
	if err != nil {
		sendRejection(sess, "COMBAT_REJECTED", err, deps)
		return
	}
	sess.Send("COMBAT_RESULT", res)
}

// HandleRecoverCorpse processes RECOVER_CORPSE.
func HandleRecoverCorpse(sess *net.Session, _ *packet.Reader, deps *Deps) {
	sess.Send("CORPSE_RECOVERY", deps.Systems.Combat.RecoverCorpse(sess.Character))
}
