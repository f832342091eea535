package data

import (
	"fmt"
	"path/filepath"
)

// Content bundles every static table the zone server reads. All tables are
// immutable after loading and safe to share between sessions.
type Content struct {
	Worlds  *WorldTable
	Skills  *SkillTable
	Items   *ItemTable
	Recipes *RecipeTable
	Quests  *QuestTable
	Spawns  *SpawnTable
	Loot    *LootTable
}

// LoadContent loads the YAML tables in dir and checks cross references.
func LoadContent(dir string) (*Content, error) {
	var (
		c   Content
		err error
	)
	if c.Worlds, err = LoadWorldTable(filepath.Join(dir, "worlds.yaml")); err != nil {
		return nil, err
	}
	if c.Skills, err = LoadSkillTable(filepath.Join(dir, "skills.yaml")); err != nil {
		return nil, err
	}
	if c.Items, err = LoadItemTable(filepath.Join(dir, "items.yaml")); err != nil {
		return nil, err
	}
	if c.Recipes, err = LoadRecipeTable(filepath.Join(dir, "recipes.yaml")); err != nil {
		return nil, err
	}
	if c.Quests, err = LoadQuestTable(filepath.Join(dir, "quests.yaml")); err != nil {
		return nil, err
	}
	if c.Spawns, err = LoadSpawnTable(filepath.Join(dir, "spawns.yaml")); err != nil {
		return nil, err
	}
	if c.Loot, err = LoadLootTable(filepath.Join(dir, "loot.yaml")); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// NPC returns the NPC with the given display name, or nil.
func (c *Content) NPC(name string) *NpcSpawn {
	for i := range c.Spawns.Npcs {
		if c.Spawns.Npcs[i].Name == name {
			return &c.Spawns.Npcs[i]
		}
	}
	return nil
}

func (c *Content) validate() error {
	if len(c.Worlds.OpenWorlds()) == 0 {
		return fmt.Errorf("content: no open world")
	}
	for _, r := range c.Recipes.All() {
		for mat := range r.Inputs {
			if c.Items.Material(mat) == nil {
				return fmt.Errorf("content: recipe %q input %q is not a material", r.ID, mat)
			}
		}
		if r.RequiredSkill != "" && c.Skills.Get(r.RequiredSkill) == nil {
			return fmt.Errorf("content: recipe %q requires unknown skill %q", r.ID, r.RequiredSkill)
		}
		// output templates are checked at craft time (RECIPE_OUTPUT_INVALID)
	}
	for _, s := range c.Skills.skills {
		if s.StartingRank == 0 {
			continue
		}
		for _, pre := range s.Prerequisites {
			if c.Skills.Get(pre).StartingRank == 0 {
				return fmt.Errorf("content: skill %q starts learned but prerequisite %q does not", s.ID, pre)
			}
		}
	}
	for _, q := range c.Quests.All() {
		e := q.Effects
		if e.UnlockWorld != 0 && c.Worlds.Get(e.UnlockWorld) == nil {
			return fmt.Errorf("content: quest %q unlocks unknown world %d", q.ID, e.UnlockWorld)
		}
		for _, id := range []string{e.RewardItem, e.AlternateReward} {
			if id != "" && c.Items.Gear(id) == nil {
				return fmt.Errorf("content: quest %q rewards unknown gear %q", q.ID, id)
			}
		}
		if q.RequiredNPC != "" && c.NPC(q.RequiredNPC) == nil {
			return fmt.Errorf("content: quest %q names unknown npc %q", q.ID, q.RequiredNPC)
		}
	}
	for _, m := range c.Spawns.Mobs {
		w := c.Worlds.Get(m.WorldID)
		if w == nil {
			return fmt.Errorf("content: mob %q in unknown world %d", m.ID, m.WorldID)
		}
		if !w.Bounds.Contains(m.Position) {
			return fmt.Errorf("content: mob %q outside world %d", m.ID, m.WorldID)
		}
		for _, l := range c.Loot.Get(m.ID) {
			switch l.Kind {
			case LootMaterial:
				if c.Items.Material(l.ItemID) == nil {
					return fmt.Errorf("content: loot for %q names unknown material %q", m.ID, l.ItemID)
				}
			case LootGear:
				if c.Items.Gear(l.ItemID) == nil {
					return fmt.Errorf("content: loot for %q names unknown gear %q", m.ID, l.ItemID)
				}
			}
		}
	}
	for _, n := range c.Spawns.Npcs {
		if c.Worlds.Get(n.WorldID) == nil {
			return fmt.Errorf("content: npc %q in unknown world %d", n.ID, n.WorldID)
		}
	}
	if !c.Skills.HasClass("Warrior") {
		return fmt.Errorf("content: Warrior class missing (default mercenary)")
	}
	return nil
}
