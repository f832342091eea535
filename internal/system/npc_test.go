package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTalkNpcTrust(t *testing.T) {
	s := newSystems(t, maxRolls)
	hero := newHero(t, "Hero", "Archer")

	st, err := s.Npcs.Talk(hero, "", "help")
	require.NoError(t, err)
	assert.Equal(t, &NpcState{Npc: "Elder Rowan", Trust: 15}, st)

	st, err = s.Npcs.Talk(hero, "elder rowan", "ignore")
	require.NoError(t, err)
	assert.Equal(t, 10, st.Trust)

	st, err = s.Npcs.Talk(hero, "Elder Rowan", "chat")
	require.NoError(t, err)
	assert.Equal(t, 15, st.Trust)
	assert.False(t, st.HiddenQuestUnlocked)

	for i := 0; i < 3; i++ {
		st, err = s.Npcs.Talk(hero, "Elder Rowan", "Protect")
		require.NoError(t, err)
	}
	assert.Equal(t, 60, st.Trust)
	assert.True(t, st.HiddenQuestUnlocked)

	_, err = s.Npcs.Talk(hero, "Nobody Here", "help")
	assert.Equal(t, ReasonNpcNotFound, reasonOf(t, err))
}

func TestListEntities(t *testing.T) {
	s := newSystems(t, maxRolls)
	hero := newHero(t, "Hero", "Archer")

	list := s.Npcs.Entities(hero)
	assert.Equal(t, 1, list.World)
	var mobs, npcs []string
	for _, m := range list.Mobs {
		mobs = append(mobs, m.ID)
	}
	for _, n := range list.NPCs {
		npcs = append(npcs, n.Name)
	}
	assert.ElementsMatch(t, []string{"mob_wolf_01", "mob_bandit_01"}, mobs)
	assert.ElementsMatch(t, []string{"Elder Rowan", "Gear Smith Halan"}, npcs)
	assert.Empty(t, list.Players)
}
