package system

import (
	"errors"

	"github.com/a3zone/server/internal/data"
	"github.com/a3zone/server/internal/world"
	"go.uber.org/zap"
)

// Exchange outcomes reported to the attacker.
const (
	StatusOK         = "OK"
	StatusPlayerDied = "PLAYER_DIED"
)

// Drop is one loot entry granted by a kill.
type Drop struct {
	Kind   string      `json:"kind"`
	ItemID string      `json:"item_id"`
	Qty    int         `json:"qty"`
	Item   *world.Item `json:"item,omitempty"`
}

// MobAttackResult is the MOB_ATTACK_RESULT payload.
type MobAttackResult struct {
	MobID     string          `json:"mob_id"`
	Mob       string          `json:"mob"`
	MobHP     int             `json:"mob_hp"`
	Damage    int             `json:"damage"`
	SkillID   string          `json:"skill_id"`
	Defeated  bool            `json:"defeated"`
	Status    string          `json:"status"`
	XPGain    int             `json:"xp_gain"`
	LeveledUp bool            `json:"leveled_up"`
	Drops     []Drop          `json:"drops"`
	Legendary *world.Item     `json:"legendary"`
	HP        int             `json:"hp"`
	XPDebt    int             `json:"xp_debt"`
	Corpse    *world.Position `json:"corpse,omitempty"`
}

// CombatResult is the COMBAT_RESULT payload of an abstract ATTACK.
type CombatResult struct {
	Target      string          `json:"target"`
	TargetLevel int             `json:"target_level"`
	Damage      int             `json:"damage"`
	Status      string          `json:"status"`
	XPGain      int             `json:"xp_gain"`
	LeveledUp   bool            `json:"leveled_up"`
	Legendary   *world.Item     `json:"legendary"`
	HP          int             `json:"hp"`
	XPDebt      int             `json:"xp_debt"`
	Corpse      *world.Position `json:"corpse,omitempty"`
}

// CombatSystem 處理 PvE 戰鬥：攻擊怪物、抽象攻擊與屍體回收。
type CombatSystem struct {
	env  *Env
	prog *Progression
}

func NewCombatSystem(env *Env, prog *Progression) *CombatSystem {
	return &CombatSystem{env: env, prog: prog}
}

// ==================== 攻擊怪物 ====================

// AttackMob resolves one exchange against a live mob in the character's
// world. The mob's hp changes under its own lock, so two players hitting the
// same mob are serialised and exactly one of them lands the killing blow.
func (s *CombatSystem) AttackMob(c *world.Character, mobID, skillID string) (*MobAttackResult, error) {
	if c.Downed {
		return nil, reject(ReasonPlayerDowned)
	}
	bonus, err := skillBonus(s.env, c, skillID)
	if err != nil {
		return nil, err
	}

	res := &MobAttackResult{MobID: mobID, SkillID: skillID, Status: StatusOK, Drops: []Drop{}}
	var mobLevel int
	var died bool
	err = s.env.World.EngageMob(c.WorldID, mobID, func(m *world.Mob) error {
		if !s.env.World.Visible(c.Position, m.Position()) {
			return reject(ReasonMobOutOfRange)
		}
		if !m.Alive() {
			return reject(ReasonMobDefeated)
		}
		res.Mob = m.Name
		mobLevel = m.Level

		out := rollAttack(s.env, c, bonus, m.Level, m.Element)
		if out.Died {
			// 玩家陣亡，本回合不造成傷害
			died = true
			res.MobHP = m.HP()
			return nil
		}
		res.Damage = out.Damage
		res.Defeated = m.Damage(out.Damage)
		res.MobHP = m.HP()
		return nil
	})
	if errors.Is(err, world.ErrMobNotFound) {
		return nil, reject(ReasonMobNotFound)
	}
	if err != nil {
		return nil, err
	}

	if died {
		s.prog.ApplyDeath(c)
		res.Status = StatusPlayerDied
		res.Corpse = c.Corpse
		s.env.Log.Info("玩家被怪物擊倒",
			zap.String("name", c.Name), zap.String("mob", mobID), zap.Int("xp_debt", c.XPDebt))
	} else if res.Defeated {
		res.XPGain = 35 + mobLevel*4
		res.LeveledUp = s.prog.GainXP(c, res.XPGain)
		res.Drops = append(res.Drops, s.rollLoot(c, mobID)...)
		if it := rollLegendary(s.env, c); it != nil {
			res.Legendary = it
			res.Drops = append(res.Drops, Drop{Kind: data.LootGear, ItemID: it.TemplateID, Qty: 1, Item: it})
		}
	}
	res.HP = c.HP
	res.XPDebt = c.XPDebt
	return res, nil
}

// rollLoot rolls every entry of the mob's loot table into the character.
func (s *CombatSystem) rollLoot(c *world.Character, mobID string) []Drop {
	var drops []Drop
	for _, entry := range s.env.Content.Loot.Get(mobID) {
		if !s.rollDrop(entry.DropRateBPS) {
			continue
		}
		qty := s.rollQty(entry.MinQty, entry.MaxQty)
		switch entry.Kind {
		case data.LootMaterial:
			c.Materials[entry.ItemID] += qty
			drops = append(drops, Drop{Kind: data.LootMaterial, ItemID: entry.ItemID, Qty: qty})
		case data.LootGear:
			t := s.env.Content.Items.Gear(entry.ItemID)
			if t == nil {
				continue
			}
			for i := 0; i < qty; i++ {
				it := grantItem(c, t)
				drops = append(drops, Drop{Kind: data.LootGear, ItemID: entry.ItemID, Qty: 1, Item: &it})
			}
		}
	}
	return drops
}

// rollDrop rolls a drop rate in basis points (out of 10000).
func (s *CombatSystem) rollDrop(bps int) bool {
	if bps <= 0 {
		return false
	}
	if bps >= 10000 {
		return true
	}
	return s.env.Rand.Intn(10000) < bps
}

func (s *CombatSystem) rollQty(minQty, maxQty int) int {
	if minQty < 1 {
		minQty = 1
	}
	if maxQty < minQty {
		maxQty = minQty
	}
	return minQty + s.env.Rand.Intn(maxQty-minQty+1)
}

// ==================== 抽象攻擊 ====================

// Attack resolves an exchange against an unnamed target of targetLevel.
// targetLevel <= 0 fights an equal.
func (s *CombatSystem) Attack(c *world.Character, target string, targetLevel int) (*CombatResult, error) {
	if c.Downed {
		return nil, reject(ReasonPlayerDowned)
	}
	if targetLevel <= 0 {
		targetLevel = c.Level
	}

	res := &CombatResult{Target: target, TargetLevel: targetLevel, Status: StatusOK}
	out := rollAttack(s.env, c, 0, targetLevel, data.ElementNone)
	if out.Died {
		s.prog.ApplyDeath(c)
		res.Status = StatusPlayerDied
		res.Corpse = c.Corpse
	} else {
		res.Damage = out.Damage
		res.XPGain = 25 + targetLevel*3
		res.LeveledUp = s.prog.GainXP(c, res.XPGain)
		res.Legendary = rollLegendary(s.env, c)
	}
	res.HP = c.HP
	res.XPDebt = c.XPDebt
	return res, nil
}

// ==================== 屍體回收 ====================

// RecoverCorpse returns a downed character to a combat-capable state.
func (s *CombatSystem) RecoverCorpse(c *world.Character) CorpseRecovery {
	return s.prog.RecoverCorpse(c)
}
