package system

import (
	"strings"

	"github.com/a3zone/server/internal/data"
	"github.com/a3zone/server/internal/scripting"
	"github.com/a3zone/server/internal/world"
	"go.uber.org/zap"
)

// AttackerState is the attacker's standing after a PvP exchange.
type AttackerState struct {
	HP      int  `json:"hp"`
	XPDebt  int  `json:"xp_debt"`
	PKScore int  `json:"pk_score"`
	Honor   int  `json:"honor"`
	Downed  bool `json:"downed"`
}

// PvPResult is the PVP_RESULT payload sent to the attacker.
type PvPResult struct {
	Target        string               `json:"target"`
	TargetLevel   int                  `json:"target_level"`
	Damage        int                  `json:"damage"`
	SkillID       string               `json:"skill_id"`
	AttackerDied  bool                 `json:"attacker_died"`
	Penalty       scripting.PvPPenalty `json:"penalty"`
	AttackerState AttackerState        `json:"attacker_state"`
}

// PvPHitResult is the PVP_HIT payload pushed to the victim.
type PvPHitResult struct {
	From    string          `json:"from"`
	Damage  int             `json:"damage"`
	SkillID string          `json:"skill_id"`
	HP      int             `json:"hp"`
	Died    bool            `json:"died"`
	XPDebt  int             `json:"xp_debt"`
	Corpse  *world.Position `json:"corpse,omitempty"`
}

// PvPSystem 負責玩家對戰：資格檢查、傷害、攻擊者懲罰。
// 受害者的角色只由其自身的 worker 修改（ApplyHit）。
type PvPSystem struct {
	env  *Env
	prog *Progression
}

func NewPvPSystem(env *Env, prog *Progression) *PvPSystem {
	return &PvPSystem{env: env, prog: prog}
}

// Attack checks eligibility against the target's published snapshot, then
// posts the hit to the target's worker. Nothing is mutated when the target's
// inbox is full.
func (s *PvPSystem) Attack(c *world.Character, target, skillID string) (*PvPResult, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, reject(ReasonTargetRequired)
	}
	entry := s.env.World.Player(target)
	if entry == nil {
		return nil, reject(ReasonTargetOffline)
	}
	if strings.EqualFold(target, c.Name) {
		return nil, reject(ReasonInvalidTarget)
	}
	victim := entry.Snapshot()
	if victim.WorldID == 0 {
		return nil, reject(ReasonTargetOffline)
	}
	if victim.WorldID != c.WorldID {
		return nil, reject(ReasonTargetOtherWorld)
	}
	if c.Downed {
		return nil, reject(ReasonPlayerDowned)
	}
	if victim.Downed {
		return nil, reject(ReasonTargetDowned)
	}
	if !s.env.World.Visible(c.Position, victim.Position) {
		return nil, reject(ReasonTargetOutOfRange)
	}
	minLevel := s.env.Gameplay.PvPMinLevel
	if c.Level < minLevel || victim.Level < minLevel {
		return nil, reject(ReasonLevelTooLow)
	}
	if gap := c.Level - victim.Level; gap > s.env.Gameplay.PvPMaxLevelGap || -gap > s.env.Gameplay.PvPMaxLevelGap {
		return nil, reject(ReasonLevelGap)
	}
	bonus, err := skillBonus(s.env, c, skillID)
	if err != nil {
		return nil, err
	}

	out := rollAttack(s.env, c, bonus, victim.Level, data.ElementNone)
	if !entry.Peer().Post(world.PvPHit{From: c.Name, Damage: out.Damage, SkillID: skillID}) {
		return nil, reject(ReasonTargetBusy)
	}

	penalty := s.env.Scripting.CalcPvPPenalty(c.Level, victim.Level)
	c.XPDebt += penalty.XPDebt
	c.PKScore += penalty.PKGain
	c.Honor += penalty.HonorGain - penalty.HonorLoss
	if out.Died {
		s.prog.ApplyDeath(c)
	}

	s.env.Log.Info("PvP 攻擊",
		zap.String("attacker", c.Name),
		zap.String("target", victim.Name),
		zap.Int("damage", out.Damage),
		zap.Bool("attacker_died", out.Died))

	return &PvPResult{
		Target:       victim.Name,
		TargetLevel:  victim.Level,
		Damage:       out.Damage,
		SkillID:      skillID,
		AttackerDied: out.Died,
		Penalty:      penalty,
		AttackerState: AttackerState{
			HP:      c.HP,
			XPDebt:  c.XPDebt,
			PKScore: c.PKScore,
			Honor:   c.Honor,
			Downed:  c.Downed,
		},
	}, nil
}

// ApplyHit lands a posted hit on the victim's own character. A victim that
// went down before the hit arrived takes no further damage.
func (s *PvPSystem) ApplyHit(c *world.Character, hit world.PvPHit) PvPHitResult {
	res := PvPHitResult{From: hit.From, SkillID: hit.SkillID}
	if !c.Downed {
		res.Damage = hit.Damage
		c.HP -= hit.Damage
		if c.HP <= 0 {
			s.prog.ApplyDeath(c)
			res.Died = true
			res.Corpse = c.Corpse
		}
	}
	res.HP = c.HP
	res.XPDebt = c.XPDebt
	return res
}
