package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// SkillInfo holds a single class skill template.
type SkillInfo struct {
	ID            string   `yaml:"id" json:"id"`
	Name          string   `yaml:"name" json:"name"`
	Class         string   `yaml:"class" json:"class"`
	MaxRank       int      `yaml:"max_rank" json:"max_rank"`
	BaseBonus     int      `yaml:"base_bonus" json:"base_bonus"` // damage per rank
	StartingRank  int      `yaml:"starting_rank" json:"-"`
	Prerequisites []string `yaml:"prerequisites" json:"prerequisites,omitempty"`
	Description   string   `yaml:"description" json:"description"`
}

type skillFile struct {
	Classes []string    `yaml:"classes"`
	Skills  []SkillInfo `yaml:"skills"`
}

// SkillTable holds skills indexed by ID and grouped by class.
type SkillTable struct {
	classes []string
	skills  map[string]*SkillInfo
	byClass map[string][]*SkillInfo
}

// Get returns a skill by ID, or nil if not found.
func (t *SkillTable) Get(id string) *SkillInfo {
	return t.skills[id]
}

func (t *SkillTable) Count() int {
	return len(t.skills)
}

// ForClass returns the class's skills ordered by ID.
func (t *SkillTable) ForClass(class string) []*SkillInfo {
	return t.byClass[class]
}

// Classes returns the playable class names in file order.
func (t *SkillTable) Classes() []string {
	return t.classes
}

// HasClass reports whether class is a playable class name (canonical form).
func (t *SkillTable) HasClass(class string) bool {
	for _, c := range t.classes {
		if c == class {
			return true
		}
	}
	return false
}

// LoadSkillTable loads class skills from a YAML file.
func LoadSkillTable(path string) (*SkillTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read skills: %w", err)
	}
	var f skillFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse skills: %w", err)
	}
	t := &SkillTable{
		classes: f.Classes,
		skills:  make(map[string]*SkillInfo, len(f.Skills)),
		byClass: make(map[string][]*SkillInfo),
	}
	for i := range f.Skills {
		s := &f.Skills[i]
		if _, dup := t.skills[s.ID]; dup {
			return nil, fmt.Errorf("skills: duplicate id %q", s.ID)
		}
		if !t.HasClass(s.Class) {
			return nil, fmt.Errorf("skills: %q has unknown class %q", s.ID, s.Class)
		}
		if s.MaxRank <= 0 || s.StartingRank < 0 || s.StartingRank > s.MaxRank {
			return nil, fmt.Errorf("skills: %q rank bounds", s.ID)
		}
		t.skills[s.ID] = s
		t.byClass[s.Class] = append(t.byClass[s.Class], s)
	}
	for _, list := range t.byClass {
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	}
	for _, s := range t.skills {
		for _, pre := range s.Prerequisites {
			p := t.skills[pre]
			if p == nil {
				return nil, fmt.Errorf("skills: %q prerequisite %q not found", s.ID, pre)
			}
			if p.Class != s.Class {
				return nil, fmt.Errorf("skills: %q prerequisite %q belongs to %s", s.ID, pre, p.Class)
			}
		}
	}
	return t, nil
}
