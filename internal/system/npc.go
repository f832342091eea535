package system

import (
	"strings"

	"github.com/a3zone/server/internal/data"
	"github.com/a3zone/server/internal/world"
)

const defaultNpc = "Elder Rowan"

// NpcState is the NPC_STATE payload.
type NpcState struct {
	Npc                 string `json:"npc"`
	Trust               int    `json:"trust"`
	HiddenQuestUnlocked bool   `json:"hidden_quest_unlocked"`
}

// EntityList is the ENTITIES payload.
type EntityList struct {
	World int `json:"world"`
	world.Entities
}

// NpcSystem 負責 NPC 對話好感度與周遭實體列表。
type NpcSystem struct {
	env *Env
}

func NewNpcSystem(env *Env) *NpcSystem {
	return &NpcSystem{env: env}
}

// trustDelta maps a dialogue choice to its trust change.
func trustDelta(choice string) int {
	switch strings.ToLower(strings.TrimSpace(choice)) {
	case "honor", "help", "protect":
		return 15
	case "ignore":
		return -5
	default:
		return 5
	}
}

// Talk applies a dialogue choice to the character's trust with npc.
func (s *NpcSystem) Talk(c *world.Character, npc, choice string) (*NpcState, error) {
	npc = data.CanonicalName(npc)
	if npc == "" {
		npc = defaultNpc
	}
	n, ok := s.env.World.NPCByName(npc)
	if !ok {
		return nil, reject(ReasonNpcNotFound)
	}
	c.Trust[n.Name] += trustDelta(choice)

	unlocked := false
	for _, q := range s.env.Content.Quests.HiddenFor(n.Name) {
		if c.Trust[n.Name] >= q.MinTrust {
			unlocked = true
			break
		}
	}
	return &NpcState{Npc: n.Name, Trust: c.Trust[n.Name], HiddenQuestUnlocked: unlocked}, nil
}

// Entities lists what the character can see in its world.
func (s *NpcSystem) Entities(c *world.Character) EntityList {
	return EntityList{World: c.WorldID, Entities: s.env.World.Entities(c.WorldID, c.Position, c.Name)}
}
