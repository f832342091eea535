package system

import (
	"testing"

	"github.com/a3zone/server/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcceptQuestRejections(t *testing.T) {
	tests := map[string]struct {
		quest  string
		level  int
		reason string
	}{
		"unknown":            {quest: "slay_dragon", level: 45, reason: ReasonQuestNotFound},
		"hidden":             {quest: "npc_oath_hidden", level: 45, reason: ReasonQuestHidden},
		"level too low":      {quest: "unlock_world3_legend", level: 45, reason: ReasonLevelTooLow},
		"prerequisite":       {quest: "unlock_world3_legend", level: 101, reason: ReasonPrereqMissing},
		"legacy under level": {quest: "grace_legacy", level: 45, reason: ReasonLevelTooLow},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			s := newSystems(t, maxRolls)
			hero := newHero(t, "Hero", "Archer")
			hero.Level = tc.level
			_, err := s.Quests.Accept(hero, tc.quest)
			assert.Equal(t, tc.reason, reasonOf(t, err))
			assert.Empty(t, hero.Quests)
		})
	}
}

func TestWorldUnlockFirstAndAlternate(t *testing.T) {
	s := newSystems(t, maxRolls)
	first := newHero(t, "First", "Archer")
	second := newHero(t, "Second", "Mage")

	_, err := s.Quests.Complete(first, "unlock_world2_race")
	assert.Equal(t, ReasonQuestNotAccepted, reasonOf(t, err))

	acc, err := s.Quests.Accept(first, "unlock_world2_race")
	require.NoError(t, err)
	assert.Equal(t, "unlock_world2_race", acc.QuestID)

	reward, err := s.Quests.Complete(first, "unlock_world2_race")
	require.NoError(t, err)
	assert.Equal(t, 2, reward.World)
	require.NotNil(t, reward.FirstUnlock)
	assert.True(t, *reward.FirstUnlock)
	assert.Nil(t, reward.AlternateReward)
	assert.Equal(t, 120, reward.XPGain)
	assert.True(t, first.HasWorld(2))
	assert.Equal(t, 120, first.XP)

	_, err = s.Quests.Accept(second, "unlock_world2_race")
	require.NoError(t, err)
	reward, err = s.Quests.Complete(second, "unlock_world2_race")
	require.NoError(t, err)
	assert.False(t, *reward.FirstUnlock)
	require.NotNil(t, reward.AlternateReward)
	assert.Equal(t, "shattered_medal", reward.AlternateReward.TemplateID)
	assert.True(t, second.HasWorld(2))

	// repeatable: the first player may run it again
	_, err = s.Quests.Accept(first, "unlock_world2_race")
	require.NoError(t, err)
	_, err = s.Quests.Complete(first, "unlock_world2_race")
	require.NoError(t, err)
	assert.Equal(t, 2, first.Quests["unlock_world2_race"].Completions)

	assert.Equal(t, map[string]string{
		"world_2_first_unlock": "First",
		"world_3_first_unlock": "",
	}, s.Quests.History())
}

func TestHiddenQuestNeedsTrust(t *testing.T) {
	s := newSystems(t, maxRolls)
	hero := newHero(t, "Hero", "Archer")
	hero.Trust["Elder Rowan"] = 60

	_, err := s.Quests.Accept(hero, "npc_oath_hidden")
	require.NoError(t, err)

	hero.Trust["Elder Rowan"] = 50
	_, err = s.Quests.Complete(hero, "npc_oath_hidden")
	assert.Equal(t, ReasonTrustTooLow, reasonOf(t, err))

	hero.Trust["Elder Rowan"] = 60
	reward, err := s.Quests.Complete(hero, "npc_oath_hidden")
	require.NoError(t, err)
	assert.Equal(t, "SECRET_ARCHIVE_UNLOCKED", reward.Storyline)
	assert.Nil(t, reward.FirstUnlock)

	_, err = s.Quests.Complete(hero, "npc_oath_hidden")
	assert.Equal(t, ReasonQuestNonRepeat, reasonOf(t, err))
	_, err = s.Quests.Accept(hero, "npc_oath_hidden")
	assert.Equal(t, ReasonQuestDone, reasonOf(t, err))
}

func TestLegacyQuestRewardsItem(t *testing.T) {
	s := newSystems(t, maxRolls)
	hero := newHero(t, "Hero", "Archer")
	hero.Level = 90

	_, err := s.Quests.Accept(hero, "soul_legacy")
	require.NoError(t, err)
	reward, err := s.Quests.Complete(hero, "soul_legacy")
	require.NoError(t, err)
	require.NotNil(t, reward.Item)
	assert.Equal(t, "soul_relic", reward.Item.TemplateID)
	assert.True(t, reward.Item.Legendary)
	_, ok := hero.FindItem(reward.Item.ID)
	assert.True(t, ok)
}

func TestEnterWorld(t *testing.T) {
	tests := map[string]struct {
		world  int
		level  int
		aura   int
		unlock []int
		reason string
	}{
		"unknown world":     {world: 9, level: 45, reason: ReasonWorldNotFound},
		"locked":            {world: 2, level: 60, reason: ReasonWorldLocked},
		"unlocked too low":  {world: 2, level: 45, unlock: []int{2}, reason: ReasonLevelNotInRange},
		"too high for home": {world: 1, level: 60, reason: ReasonLevelNotInRange},
		"aura missing":      {world: 3, level: 110, unlock: []int{3}, reason: ReasonAuraRequired},
		"world 2":           {world: 2, level: 60, unlock: []int{2}},
		"world 3":           {world: 3, level: 110, aura: 1, unlock: []int{3}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			s := newSystems(t, maxRolls)
			hero := newHero(t, "Hero", "Archer")
			hero.Level = tc.level
			hero.AuraLevel = tc.aura
			for _, w := range tc.unlock {
				hero.UnlockedWorlds[w] = true
			}
			home := hero.Position

			entry, err := s.Quests.EnterWorld(hero, tc.world)
			if tc.reason != "" {
				assert.Equal(t, tc.reason, reasonOf(t, err))
				assert.Equal(t, 1, hero.WorldID)
				assert.Equal(t, home, hero.Position)
				assert.False(t, s.Quests.CanEnter(hero, tc.world))
				return
			}
			require.NoError(t, err)
			spawn := world.Position(s.Quests.env.World.World(tc.world).Spawn)
			assert.Equal(t, tc.world, entry.World)
			assert.Equal(t, spawn, entry.Spawn)
			assert.Equal(t, spawn, hero.Position)
			assert.Equal(t, tc.world, hero.WorldID)
		})
	}
}
