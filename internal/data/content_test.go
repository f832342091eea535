package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contentDir = "../../data/yaml"

func TestLoadContentShippedTables(t *testing.T) {
	c, err := LoadContent(contentDir)
	require.NoError(t, err)

	assert.Equal(t, 3, c.Worlds.Count())
	assert.Equal(t, []int{1}, c.Worlds.OpenWorlds())
	w3 := c.Worlds.Get(3)
	require.NotNil(t, w3)
	assert.True(t, w3.RequiresAura)
	assert.True(t, w3.LevelInRange(101))
	assert.False(t, w3.LevelInRange(100))

	assert.Len(t, c.Skills.ForClass("Archer"), 3)
	assert.Empty(t, c.Skills.ForClass("Rogue"))
	assert.Equal(t, []string{"precise_shot"}, c.Skills.Get("burst_arrow").Prerequisites)

	assert.Equal(t, []string{"bandit_mail", "shard_blade", "wolfhide_bow"}, recipeIDs(c.Recipes.All()))
	assert.Len(t, c.Items.StarterItems(), 2)
	assert.Len(t, c.Items.Legendaries(), 2)
	assert.Equal(t, ElementLightning, c.Items.Gear("crafted_shard_blade").Element)

	assert.Equal(t, "Critical Focus", c.Items.DefaultPet().Passive)
	assert.Equal(t, "Loyal Companion", c.Items.Pet("Phoenix").Passive)

	hidden := c.Quests.HiddenFor("Elder Rowan")
	require.Len(t, hidden, 1)
	assert.Equal(t, "npc_oath_hidden", hidden[0].ID)

	require.NotNil(t, c.NPC("Gear Smith Halan"))
	assert.Nil(t, c.NPC("Nobody"))
	assert.Len(t, c.Loot.Get("mob_shard_01"), 2)
	assert.Equal(t, ElementIce, c.Spawns.Mobs[0].Element)
}

func recipeIDs(rs []*Recipe) []string {
	ids := make([]string, len(rs))
	for i, r := range rs {
		ids[i] = r.ID
	}
	return ids
}

func TestCanonicalElement(t *testing.T) {
	tests := map[string]Element{
		"fire":       ElementFire,
		" LIGHTNING": ElementLightning,
		"Dark":       ElementDark,
		"water":      ElementNone,
		"":           ElementNone,
	}
	for in, want := range tests {
		assert.Equal(t, want, CanonicalElement(in), in)
	}
}

func TestCanonicalName(t *testing.T) {
	assert.Equal(t, "Falcon", CanonicalName("  falcon "))
	assert.Equal(t, "Storm Hawk", CanonicalName("STORM hawk"))
}

func TestBoundsContains(t *testing.T) {
	b := Bounds{Min: Point{0, -50, 0}, Max: Point{300, 50, 300}}
	assert.True(t, b.Contains(Point{0, 0, 300}))
	assert.False(t, b.Contains(Point{301, 0, 10}))
	assert.False(t, b.Contains(Point{10, 51, 10}))
}

// copyContent copies the shipped tables into a temp dir and lets the test
// overwrite one of them.
func copyContent(t *testing.T, file, body string) string {
	t.Helper()
	dir := t.TempDir()
	entries, err := os.ReadDir(contentDir)
	require.NoError(t, err)
	for _, e := range entries {
		raw, err := os.ReadFile(filepath.Join(contentDir, e.Name()))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, e.Name()), raw, 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(body), 0o644))
	return dir
}

func TestLoadContentRejectsBrokenReferences(t *testing.T) {
	tests := map[string]struct {
		file string
		body string
	}{
		"recipe uses unknown material": {
			file: "recipes.yaml",
			body: "recipes:\n  - {id: r, name: R, min_level: 1, inputs: {stardust: 1}, output: {template_id: starter_bow}}\n",
		},
		"quest unlocks unknown world": {
			file: "quests.yaml",
			body: "quests:\n  - {id: q, name: Q, effects: {unlock_world: 9}}\n",
		},
		"skill prerequisite missing": {
			file: "skills.yaml",
			body: "classes: [Warrior]\nskills:\n  - {id: a, name: A, class: Warrior, max_rank: 1, prerequisites: [ghost]}\n",
		},
		"mob outside its world": {
			file: "spawns.yaml",
			body: "mobs:\n  - {id: m, name: M, world: 1, level: 1, hp: 1, position: {x: 999, y: 0, z: 0}}\n",
		},
		"loot references unknown gear": {
			file: "loot.yaml",
			body: "loot:\n  - mob_id: mob_wolf_01\n    items:\n      - {kind: gear, item_id: nothing, drop_rate_bps: 1}\n",
		},
		"spawn outside bounds": {
			file: "worlds.yaml",
			body: "worlds:\n  - {id: 1, name: W, min_level: 1, max_level: 2, open: true, spawn: {x: 5, y: 0, z: 5}, bounds: {min: {x: 10, y: 0, z: 10}, max: {x: 20, y: 0, z: 20}}}\n",
		},
		"starting skill without starting prerequisite": {
			file: "skills.yaml",
			body: "classes: [Warrior]\nskills:\n  - {id: a, name: A, class: Warrior, max_rank: 2}\n  - {id: b, name: B, class: Warrior, max_rank: 2, starting_rank: 1, prerequisites: [a]}\n",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadContent(copyContent(t, tc.file, tc.body))
			assert.Error(t, err)
		})
	}
}
