package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// QuestEffects is what completing a quest does to the character and world.
type QuestEffects struct {
	UnlockWorld     int    `yaml:"unlock_world"`
	AuraLevel       int    `yaml:"aura_level"`
	RewardItem      string `yaml:"reward_item"`
	AlternateReward string `yaml:"alternate_reward"` // given instead of the first-unlock record
	Storyline       string `yaml:"storyline"`
}

// QuestInfo holds one quest definition.
type QuestInfo struct {
	ID            string       `yaml:"id"`
	Name          string       `yaml:"name"`
	MinLevel      int          `yaml:"min_level"`
	Hidden        bool         `yaml:"hidden"`
	RequiredNPC   string       `yaml:"required_npc"`
	MinTrust      int          `yaml:"min_trust"`
	Repeatable    bool         `yaml:"repeatable"`
	Prerequisites []string     `yaml:"prerequisites"`
	XPReward      int          `yaml:"xp_reward"`
	Effects       QuestEffects `yaml:"effects"`
}

type questFile struct {
	Quests []QuestInfo `yaml:"quests"`
}

// QuestTable holds all quests indexed by ID.
type QuestTable struct {
	quests map[string]*QuestInfo
}

func (t *QuestTable) Get(id string) *QuestInfo {
	return t.quests[id]
}

func (t *QuestTable) Count() int {
	return len(t.quests)
}

// All returns every quest ordered by ID.
func (t *QuestTable) All() []*QuestInfo {
	out := make([]*QuestInfo, 0, len(t.quests))
	for _, q := range t.quests {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// HiddenFor returns hidden quests gated on the named NPC.
func (t *QuestTable) HiddenFor(npc string) []*QuestInfo {
	var out []*QuestInfo
	for _, q := range t.All() {
		if q.Hidden && q.RequiredNPC == npc {
			out = append(out, q)
		}
	}
	return out
}

// LoadQuestTable loads quest definitions from a YAML file.
func LoadQuestTable(path string) (*QuestTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read quests: %w", err)
	}
	var f questFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse quests: %w", err)
	}
	t := &QuestTable{quests: make(map[string]*QuestInfo, len(f.Quests))}
	for i := range f.Quests {
		q := &f.Quests[i]
		if _, dup := t.quests[q.ID]; dup {
			return nil, fmt.Errorf("quests: duplicate id %q", q.ID)
		}
		if q.Hidden && q.RequiredNPC == "" {
			return nil, fmt.Errorf("quests: hidden quest %q names no npc", q.ID)
		}
		t.quests[q.ID] = q
	}
	for _, q := range t.quests {
		for _, pre := range q.Prerequisites {
			if t.quests[pre] == nil {
				return nil, fmt.Errorf("quests: %q prerequisite %q not found", q.ID, pre)
			}
		}
	}
	return t, nil
}
