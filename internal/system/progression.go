package system

import (
	"math"

	"github.com/a3zone/server/internal/world"
	"go.uber.org/zap"
)

// Per-level gains.
const (
	levelUpMaxHP       = 12
	levelUpSkillPoints = 1
)

// Progression 處理經驗值、升級、死亡懲罰與屍體回收。
type Progression struct {
	env *Env
}

func NewProgression(env *Env) *Progression {
	return &Progression{env: env}
}

// GainXP adds experience. While the character carries xp debt, half of the
// gain repays it first. Returns true if at least one level was gained.
func (p *Progression) GainXP(c *world.Character, amount int) (leveled bool) {
	if amount <= 0 {
		return false
	}
	if c.XPDebt > 0 {
		pay := min(amount/2, c.XPDebt)
		c.XPDebt -= pay
		amount -= pay
	}

	c.XP += amount
	for {
		need := p.env.Scripting.XPForLevel(c.Level)
		if c.XP < need {
			break
		}
		c.XP -= need
		c.Level++
		c.MaxHP += levelUpMaxHP
		c.HP = c.MaxHP
		c.SkillPoints += levelUpSkillPoints
		leveled = true
	}
	if leveled {
		p.env.Log.Debug("角色升級", zap.String("name", c.Name), zap.Int("level", c.Level))
	}
	return leveled
}

// ApplyDeath downs the character where it stands: hp 0, a corpse at the
// current position and the level's death debt added. Returns the debt added.
func (p *Progression) ApplyDeath(c *world.Character) int {
	corpse := c.Position
	c.Corpse = &corpse
	c.HP = 0
	c.Downed = true
	debt := p.env.Scripting.CalcDeathDebt(c.Level)
	c.XPDebt += debt
	return debt
}

// CorpseRecovery is the CORPSE_RECOVERY payload.
type CorpseRecovery struct {
	Status string `json:"status"`
	HP     int    `json:"hp,omitempty"`
	XPDebt int    `json:"xp_debt"`
}

// RecoverCorpse clears the corpse, halves the xp debt and restores hp to
// the configured floor of max hp.
func (p *Progression) RecoverCorpse(c *world.Character) CorpseRecovery {
	if c.Corpse == nil {
		return CorpseRecovery{Status: "NO_CORPSE", XPDebt: c.XPDebt}
	}
	c.Corpse = nil
	c.XPDebt /= 2
	c.Downed = false
	c.HP = max(int(math.Floor(p.env.Gameplay.RecoverHPFloor*float64(c.MaxHP))), 1)
	return CorpseRecovery{Status: "OK", HP: c.HP, XPDebt: c.XPDebt}
}
