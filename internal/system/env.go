package system

import (
	"github.com/a3zone/server/internal/config"
	"github.com/a3zone/server/internal/data"
	"github.com/a3zone/server/internal/scripting"
	"github.com/a3zone/server/internal/world"
	"go.uber.org/zap"
)

// Env 是所有遊戲系統共用的依賴。
type Env struct {
	Gameplay  config.GameplayConfig
	Content   *data.Content
	World     *world.State
	Scripting *scripting.Engine
	Rand      Roller
	Log       *zap.Logger
}

// Systems groups the rule systems the command handlers call into.
type Systems struct {
	Progression *Progression
	Combat      *CombatSystem
	PvP         *PvPSystem
	Craft       *CraftSystem
	Skills      *SkillSystem
	Quests      *QuestSystem
	Companions  *CompanionSystem
	Movement    *MovementSystem
	Npcs        *NpcSystem
	Social      *SocialSystem
}

// New builds every system over env. A nil env.Rand gets a clock-seeded roller.
func New(env *Env) *Systems {
	if env.Rand == nil {
		env.Rand = NewRoller(0)
	}
	if env.Log == nil {
		env.Log = zap.NewNop()
	}
	prog := NewProgression(env)
	return &Systems{
		Progression: prog,
		Combat:      NewCombatSystem(env, prog),
		PvP:         NewPvPSystem(env, prog),
		Craft:       NewCraftSystem(env),
		Skills:      NewSkillSystem(env),
		Quests:      NewQuestSystem(env, prog),
		Companions:  NewCompanionSystem(env),
		Movement:    NewMovementSystem(env),
		Npcs:        NewNpcSystem(env),
		Social:      NewSocialSystem(env),
	}
}
