package system

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/a3zone/server/internal/data"
	"github.com/a3zone/server/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttackMobFinishesOverSeveralExchanges(t *testing.T) {
	s := newSystems(t, maxRolls)
	hero := newHero(t, "Hero", "Archer")

	// level 45, no gear: 45*2 + 12 + roll 7
	res, err := s.Combat.AttackMob(hero, "mob_wolf_01", "")
	require.NoError(t, err)
	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, "Rift Wolf", res.Mob)
	assert.Equal(t, 109, res.Damage)
	assert.Equal(t, 101, res.MobHP)
	assert.False(t, res.Defeated)
	assert.Zero(t, res.XPGain)

	res, err = s.Combat.AttackMob(hero, "mob_wolf_01", "")
	require.NoError(t, err)
	assert.True(t, res.Defeated)
	assert.Zero(t, res.MobHP)
	assert.Equal(t, 35+42*4, res.XPGain)
	assert.Equal(t, 35+42*4, hero.XP)
	assert.False(t, res.LeveledUp)
	assert.Equal(t, []Drop{{Kind: data.LootMaterial, ItemID: "wolf_pelt", Qty: 2}}, res.Drops)
	assert.Equal(t, 2, hero.Materials["wolf_pelt"])
	assert.Nil(t, res.Legendary)

	_, err = s.Combat.AttackMob(hero, "mob_wolf_01", "")
	assert.Equal(t, ReasonMobDefeated, reasonOf(t, err))
}

func TestAttackMobSkillAndElement(t *testing.T) {
	s := newSystems(t, maxRolls)
	hero := newHero(t, "Hero", "Archer")
	hero.Elemental[world.AttachWeapon] = data.ElementFire

	// (109 + precise_shot 7) + 25% fire against ice
	res, err := s.Combat.AttackMob(hero, "mob_wolf_01", "precise_shot")
	require.NoError(t, err)
	assert.Equal(t, 145, res.Damage)
	assert.Equal(t, "precise_shot", res.SkillID)

	// rank 0 class skill is allowed without bonus
	res, err = s.Combat.AttackMob(hero, "mob_bandit_01", "burst_arrow")
	require.NoError(t, err)
	assert.Equal(t, 109+10, res.Damage) // fire is not strong against earth: +10%
}

func TestAttackMobRejections(t *testing.T) {
	tests := map[string]struct {
		setup  func(c *world.Character)
		mob    string
		skill  string
		reason string
	}{
		"unknown mob":        {mob: "mob_nope", reason: ReasonMobNotFound},
		"mob in other world": {mob: "mob_shard_01", reason: ReasonMobNotFound},
		"out of range": {
			setup:  func(c *world.Character) { c.Position = world.Position{X: 250, Z: 250} },
			mob:    "mob_wolf_01",
			reason: ReasonMobOutOfRange,
		},
		"foreign skill": {mob: "mob_wolf_01", skill: "cleave", reason: ReasonSkillNotKnown},
		"unknown skill": {mob: "mob_wolf_01", skill: "moonfall", reason: ReasonSkillNotKnown},
		"downed": {
			setup:  func(c *world.Character) { c.Downed = true },
			mob:    "mob_wolf_01",
			reason: ReasonPlayerDowned,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			s := newSystems(t, maxRolls)
			hero := newHero(t, "Hero", "Archer")
			if tc.setup != nil {
				tc.setup(hero)
			}
			_, err := s.Combat.AttackMob(hero, tc.mob, tc.skill)
			assert.Equal(t, tc.reason, reasonOf(t, err))
		})
	}
}

func TestAttackMobPlayerDiesAndRecovers(t *testing.T) {
	s := newSystems(t, doomRolls)
	hero := newHero(t, "Hero", "Archer")
	hero.Level = 30

	res, err := s.Combat.AttackMob(hero, "mob_bandit_01", "")
	require.NoError(t, err)
	assert.Equal(t, StatusPlayerDied, res.Status)
	assert.Zero(t, res.Damage)
	assert.Equal(t, 245, res.MobHP)
	assert.True(t, hero.Downed)
	assert.Zero(t, hero.HP)
	assert.Equal(t, 25+30*3, hero.XPDebt)
	require.NotNil(t, hero.Corpse)
	assert.Equal(t, hero.Position, *hero.Corpse)

	v, _ := s.Combat.env.World.Mob("mob_bandit_01")
	assert.Equal(t, 245, v.HP)

	_, err = s.Combat.AttackMob(hero, "mob_bandit_01", "")
	assert.Equal(t, ReasonPlayerDowned, reasonOf(t, err))
	_, err = s.Combat.Attack(hero, "dummy", 0)
	assert.Equal(t, ReasonPlayerDowned, reasonOf(t, err))

	rec := s.Combat.RecoverCorpse(hero)
	assert.Equal(t, CorpseRecovery{Status: "OK", HP: 60, XPDebt: 57}, rec)
	assert.False(t, hero.Downed)
	assert.Nil(t, hero.Corpse)

	assert.Equal(t, "NO_CORPSE", s.Combat.RecoverCorpse(hero).Status)
}

func TestEvasionLowersDeathChance(t *testing.T) {
	s := newSystems(t, stubRoller{intn: func(n int) int { return n - 1 }, float: 0.75})
	hero := newHero(t, "Hero", "Archer")

	// 15 levels above: chance capped at 0.8
	res, err := s.Combat.Attack(hero, "dummy", 60)
	require.NoError(t, err)
	assert.Equal(t, StatusPlayerDied, res.Status)

	s.Combat.RecoverCorpse(hero)
	hero.Skills["evasion_step"] = 3 // 0.8 - 0.09
	res, err = s.Combat.Attack(hero, "dummy", 60)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, res.Status)
}

func TestAttackMobLuckyDrops(t *testing.T) {
	s := newSystems(t, luckyRolls)
	hero := newHero(t, "Hero", "Archer")

	var res *MobAttackResult
	var err error
	for i := 0; i < 3; i++ {
		res, err = s.Combat.AttackMob(hero, "mob_wolf_01", "")
		require.NoError(t, err)
	}
	require.True(t, res.Defeated)
	require.NotNil(t, res.Legendary)
	assert.Equal(t, "grace_relic", res.Legendary.TemplateID)
	assert.True(t, strings.HasPrefix(res.Legendary.ID, "grace_relic-"))
	require.Len(t, res.Drops, 2)
	assert.Equal(t, Drop{Kind: data.LootMaterial, ItemID: "wolf_pelt", Qty: 1}, res.Drops[0])
	assert.Equal(t, data.LootGear, res.Drops[1].Kind)

	_, ok := hero.FindItem(res.Legendary.ID)
	assert.True(t, ok)
}

func TestAbstractAttack(t *testing.T) {
	s := newSystems(t, maxRolls)
	hero := newHero(t, "Hero", "Archer")

	res, err := s.Combat.Attack(hero, "training dummy", 0)
	require.NoError(t, err)
	assert.Equal(t, 45, res.TargetLevel)
	assert.Equal(t, 109, res.Damage)
	assert.Equal(t, 25+45*3, res.XPGain)
	assert.Equal(t, StatusOK, res.Status)

	// a high-level target is still a resolvable exchange
	res, err = s.Combat.Attack(hero, "warlord", 120)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, 25+120*3, res.XPGain)
}

func TestGainXPRepaysDebtAndLevels(t *testing.T) {
	s := newSystems(t, maxRolls)
	hero := newHero(t, "Hero", "Archer")
	hero.XPDebt = 100

	// half of 1000 may repay debt; only 100 is owed
	assert.True(t, s.Progression.GainXP(hero, 1000))
	assert.Zero(t, hero.XPDebt)
	assert.Equal(t, 46, hero.Level)
	assert.Equal(t, 900-(100+45*15), hero.XP)
	assert.Equal(t, 132, hero.MaxHP)
	assert.Equal(t, 132, hero.HP)
	assert.Equal(t, 4, hero.SkillPoints)

	hero.XPDebt = 1000
	assert.False(t, s.Progression.GainXP(hero, 10))
	assert.Equal(t, 995, hero.XPDebt)
	assert.False(t, s.Progression.GainXP(hero, 0))
}

func TestConcurrentAttackersDefeatMobOnce(t *testing.T) {
	s := newSystems(t, maxRolls)

	var defeats atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		hero := newHero(t, "Hero"+string(rune('A'+i)), "Archer")
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				res, err := s.Combat.AttackMob(hero, "mob_wolf_01", "")
				if err != nil {
					return
				}
				if res.Defeated {
					defeats.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), defeats.Load())
}
