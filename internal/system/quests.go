package system

import (
	"fmt"

	"github.com/a3zone/server/internal/world"
	"go.uber.org/zap"
)

// QuestAccepted is the QUEST_ACCEPTED payload.
type QuestAccepted struct {
	QuestID   string `json:"quest_id"`
	QuestName string `json:"quest_name"`
}

// QuestReward is the QUEST_COMPLETED payload. Optional fields appear only
// when the quest's effects produced them.
type QuestReward struct {
	QuestID         string      `json:"quest_id"`
	Quest           string      `json:"quest"`
	World           int         `json:"world,omitempty"`
	FirstUnlock     *bool       `json:"first_unlock,omitempty"`
	AlternateReward *world.Item `json:"alternate_reward,omitempty"`
	Item            *world.Item `json:"item,omitempty"`
	Storyline       string      `json:"storyline,omitempty"`
	AuraLevel       int         `json:"aura_level,omitempty"`
	XPGain          int         `json:"xp_gain"`
	LeveledUp       bool        `json:"leveled_up"`
}

// WorldEntry is the ENTER_OK payload.
type WorldEntry struct {
	World int            `json:"world"`
	Name  string         `json:"name"`
	Spawn world.Position `json:"spawn"`
}

// QuestSystem 負責任務接取、完成效果與世界進入限制。
type QuestSystem struct {
	env  *Env
	prog *Progression
}

func NewQuestSystem(env *Env, prog *Progression) *QuestSystem {
	return &QuestSystem{env: env, prog: prog}
}

// ==================== 任務 ====================

// Accept puts a quest into the character's log.
func (s *QuestSystem) Accept(c *world.Character, questID string) (*QuestAccepted, error) {
	q := s.env.Content.Quests.Get(questID)
	if q == nil {
		return nil, reject(ReasonQuestNotFound)
	}
	if q.Hidden && c.Trust[q.RequiredNPC] < q.MinTrust {
		return nil, reject(ReasonQuestHidden)
	}
	if c.Level < q.MinLevel {
		return nil, reject(ReasonLevelTooLow)
	}
	for _, pre := range q.Prerequisites {
		if p := c.Quests[pre]; p == nil || !p.Complete {
			return nil, reject(ReasonPrereqMissing)
		}
	}
	cur := c.Quests[questID]
	if cur != nil && cur.Complete && !q.Repeatable {
		return nil, reject(ReasonQuestDone)
	}
	if cur == nil {
		cur = &world.QuestProgress{}
		c.Quests[questID] = cur
	}
	cur.Accepted = true
	return &QuestAccepted{QuestID: q.ID, QuestName: q.Name}, nil
}

// Complete applies an accepted quest's effects and grants its xp.
func (s *QuestSystem) Complete(c *world.Character, questID string) (*QuestReward, error) {
	q := s.env.Content.Quests.Get(questID)
	if q == nil {
		return nil, reject(ReasonQuestNotFound)
	}
	state := c.Quests[questID]
	if state == nil || !state.Accepted {
		return nil, reject(ReasonQuestNotAccepted)
	}
	if state.Complete && !q.Repeatable {
		return nil, reject(ReasonQuestNonRepeat)
	}
	if c.Level < q.MinLevel {
		return nil, reject(ReasonLevelTooLow)
	}
	if q.RequiredNPC != "" && c.Trust[q.RequiredNPC] < q.MinTrust {
		return nil, reject(ReasonTrustTooLow)
	}

	reward := &QuestReward{QuestID: q.ID, Quest: q.Name}
	fx := q.Effects
	if fx.UnlockWorld != 0 {
		// 全服首位解鎖者記入歷史，其後完成者改領替代獎勵
		first := s.env.World.RecordUnlock(fx.UnlockWorld, c.Name)
		c.UnlockedWorlds[fx.UnlockWorld] = true
		reward.World = fx.UnlockWorld
		reward.FirstUnlock = &first
		if first {
			s.env.Log.Info("世界首次解鎖", zap.Int("world", fx.UnlockWorld), zap.String("player", c.Name))
		} else if t := s.env.Content.Items.Gear(fx.AlternateReward); t != nil {
			it := grantItem(c, t)
			reward.AlternateReward = &it
		}
	}
	if fx.AuraLevel > c.AuraLevel {
		c.AuraLevel = fx.AuraLevel
		reward.AuraLevel = fx.AuraLevel
	}
	if t := s.env.Content.Items.Gear(fx.RewardItem); t != nil {
		it := grantItem(c, t)
		reward.Item = &it
	}
	reward.Storyline = fx.Storyline

	state.Complete = true
	state.Completions++
	reward.XPGain = q.XPReward
	reward.LeveledUp = s.prog.GainXP(c, q.XPReward)
	return reward, nil
}

// ==================== 世界 ====================

// EnterWorld moves the character to worldID's spawn point.
func (s *QuestSystem) EnterWorld(c *world.Character, worldID int) (*WorldEntry, error) {
	w := s.env.World.World(worldID)
	if w == nil {
		return nil, reject(ReasonWorldNotFound)
	}
	if !c.HasWorld(worldID) {
		return nil, reject(ReasonWorldLocked)
	}
	if !w.LevelInRange(c.Level) {
		return nil, reject(ReasonLevelNotInRange)
	}
	if w.RequiresAura && c.AuraLevel < 1 {
		return nil, reject(ReasonAuraRequired)
	}
	c.WorldID = w.ID
	c.Position = world.Position(w.Spawn)
	return &WorldEntry{World: w.ID, Name: w.Name, Spawn: c.Position}, nil
}

// CanEnter reports whether the character could enter worldID now.
func (s *QuestSystem) CanEnter(c *world.Character, worldID int) bool {
	w := s.env.World.World(worldID)
	return w != nil && c.HasWorld(worldID) && w.LevelInRange(c.Level) &&
		(!w.RequiresAura || c.AuraLevel >= 1)
}

// History is the HISTORY payload: one world_<id>_first_unlock key per
// gated world, empty until someone unlocks it.
func (s *QuestSystem) History() map[string]string {
	recorded := s.env.World.UnlockHistory()
	out := make(map[string]string)
	for _, w := range s.env.Content.Worlds.All() {
		if w.Open {
			continue
		}
		out[fmt.Sprintf("world_%d_first_unlock", w.ID)] = recorded[w.ID]
	}
	return out
}
