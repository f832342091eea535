package handler

import (
	"github.com/a3zone/server/internal/net"
	"github.com/a3zone/server/internal/net/packet"
)

// HandleAttackPvP processes ATTACK_PVP{target, skill_id}. The hit itself is
// applied by the victim's own worker (see Router.OnEvent), which pushes
// PVP_HIT to the victim.
func HandleAttackPvP(sess *net.Session, r *packet.Reader, deps *Deps) {
	res, err := deps.Systems.PvP.Attack(sess.Character, r.String("target"), r.String("skill_id"))
	if err != nil {
		sendRejection(sess, "PVP_REJECTED", err, deps)
		return
	}
	sess.Send("PVP_RESULT", res)
}
