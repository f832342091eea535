package system

import (
	"math"

	"github.com/a3zone/server/internal/data"
	"github.com/a3zone/server/internal/world"
)

// Move is an accepted step.
type Move struct {
	From world.Position
	To   world.Position
}

// MovementSystem 驗證並套用玩家移動。
type MovementSystem struct {
	env *Env
}

func NewMovementSystem(env *Env) *MovementSystem {
	return &MovementSystem{env: env}
}

// Move steps the character to to. The step must stay inside the current
// world's bounds and cover at most gameplay.max_move_step.
func (s *MovementSystem) Move(c *world.Character, to world.Position) (*Move, error) {
	for _, v := range []float64{to.X, to.Y, to.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, reject(ReasonInvalidMove)
		}
	}
	if c.Downed {
		return nil, reject(ReasonPlayerDowned)
	}
	w := s.env.World.World(c.WorldID)
	if w == nil || !c.HasWorld(c.WorldID) {
		return nil, reject(ReasonWorldLocked)
	}
	if !w.Bounds.Contains(data.Point(to)) {
		return nil, reject(ReasonOutOfBounds)
	}
	if c.Position.DistanceTo(to) > s.env.Gameplay.MaxMoveStep {
		return nil, reject(ReasonTooFar)
	}
	m := &Move{From: c.Position, To: to}
	c.Position = to
	return m, nil
}
