package system

import (
	"github.com/a3zone/server/internal/data"
	"github.com/a3zone/server/internal/scripting"
	"github.com/a3zone/server/internal/world"
	"github.com/google/uuid"
)

// evasionSkill lowers the chance of dying to a stronger target.
const evasionSkill = "evasion_step"

const damageRollSides = 8 // 0..7

// skillBonus resolves the flat damage bonus of skillID for c. An empty id
// means a plain attack. A skill outside the character's class is rejected;
// a class skill still at rank 0 is allowed with no bonus.
func skillBonus(env *Env, c *world.Character, skillID string) (int, error) {
	if skillID == "" {
		return 0, nil
	}
	info := env.Content.Skills.Get(skillID)
	if info == nil || info.Class != c.Class {
		return 0, reject(ReasonSkillNotKnown)
	}
	return c.Skills[skillID] * info.BaseBonus, nil
}

// rollAttack runs one exchange through calc_attack with fresh rolls.
func rollAttack(env *Env, c *world.Character, bonus, targetLevel int, targetElement data.Element) scripting.AttackResult {
	return env.Scripting.CalcAttack(scripting.AttackContext{
		AttackerLevel: c.Level,
		GearAtk:       c.GearAttack(),
		BonusPct:      c.CompanionBonusPct(),
		SkillBonus:    bonus,
		WeaponElement: string(c.WeaponElement()),
		EvasionRank:   c.Skills[evasionSkill],
		TargetLevel:   targetLevel,
		TargetElement: string(targetElement),
		DamageRoll:    env.Rand.Intn(damageRollSides),
		RiskRoll:      env.Rand.Float64(),
	})
}

// instanceID gives a crafted or dropped item its own id.
func instanceID(templateID string) string {
	return templateID + "-" + uuid.NewString()
}

// grantItem instantiates a gear template into the character's inventory.
func grantItem(c *world.Character, t *data.GearTemplate) world.Item {
	it := world.NewItem(t, instanceID(t.ID))
	c.Inventory = append(c.Inventory, it)
	return it
}

// rollLegendary gives the character a legendary relic with 1-in-odds chance.
func rollLegendary(env *Env, c *world.Character) *world.Item {
	odds := env.Gameplay.LegendaryOdds
	if odds <= 0 || env.Rand.Intn(odds) != 0 {
		return nil
	}
	pool := env.Content.Items.Legendaries()
	if len(pool) == 0 {
		return nil
	}
	it := grantItem(c, pool[env.Rand.Intn(len(pool))])
	return &it
}
