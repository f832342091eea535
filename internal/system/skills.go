package system

import (
	"github.com/a3zone/server/internal/data"
	"github.com/a3zone/server/internal/world"
)

// SkillTree is the SKILL_TREE payload.
type SkillTree struct {
	Class       string            `json:"class"`
	SkillPoints int               `json:"skill_points"`
	KnownSkills map[string]int    `json:"known_skills"`
	Catalog     []*data.SkillInfo `json:"catalog"`
}

// SkillLearned is the SKILL_LEARNED payload.
type SkillLearned struct {
	SkillID     string `json:"skill_id"`
	NewRank     int    `json:"new_rank"`
	SkillPoints int    `json:"skill_points"`
}

// SkillSystem 負責職業技能樹與技能點分配。
type SkillSystem struct {
	env *Env
}

func NewSkillSystem(env *Env) *SkillSystem {
	return &SkillSystem{env: env}
}

// Tree returns the character's class tree.
func (s *SkillSystem) Tree(c *world.Character) SkillTree {
	known := make(map[string]int, len(c.Skills))
	for id, rank := range c.Skills {
		known[id] = rank
	}
	catalog := s.env.Content.Skills.ForClass(c.Class)
	if catalog == nil {
		catalog = []*data.SkillInfo{}
	}
	return SkillTree{
		Class:       c.Class,
		SkillPoints: c.SkillPoints,
		KnownSkills: known,
		Catalog:     catalog,
	}
}

// Learn spends one skill point to raise skillID by one rank.
func (s *SkillSystem) Learn(c *world.Character, skillID string) (*SkillLearned, error) {
	info := s.env.Content.Skills.Get(skillID)
	if info == nil {
		return nil, reject(ReasonSkillNotFound)
	}
	if info.Class != c.Class {
		return nil, reject(ReasonClassRestricted)
	}
	for _, pre := range info.Prerequisites {
		if c.Skills[pre] <= 0 {
			return nil, reject(ReasonPrereqMissing)
		}
	}
	if c.SkillPoints <= 0 {
		return nil, reject(ReasonNoSkillPoints)
	}
	if c.Skills[skillID] >= info.MaxRank {
		return nil, reject(ReasonMaxRank)
	}

	c.Skills[skillID]++
	c.SkillPoints--
	return &SkillLearned{SkillID: skillID, NewRank: c.Skills[skillID], SkillPoints: c.SkillPoints}, nil
}
