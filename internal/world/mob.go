package world

import (
	"sync"

	"github.com/a3zone/server/internal/data"
)

// Mob is a live hostile. Mutable fields are guarded by mu; use State.EngageMob.
type Mob struct {
	ID         string
	Name       string
	WorldID    int
	Level      int
	MaxHP      int
	Element    data.Element
	RespawnSec int
	home       Position

	mu       sync.Mutex
	hp       int
	position Position
}

func newMob(s data.MobSpawn) *Mob {
	p := Position(s.Position)
	return &Mob{
		ID:         s.ID,
		Name:       s.Name,
		WorldID:    s.WorldID,
		Level:      s.Level,
		MaxHP:      s.HP,
		Element:    s.Element,
		RespawnSec: s.RespawnSec,
		home:       p,
		hp:         s.HP,
		position:   p,
	}
}

// HP returns current hit points. Caller must hold the mob via EngageMob.
func (m *Mob) HP() int { return m.hp }

// Position returns the mob's location. Caller must hold the mob via EngageMob.
func (m *Mob) Position() Position { return m.position }

// Alive reports hp > 0. Caller must hold the mob via EngageMob.
func (m *Mob) Alive() bool { return m.hp > 0 }

// Damage lowers hp by n (floored at 0) and reports whether this blow
// defeated the mob. Caller must hold the mob via EngageMob.
func (m *Mob) Damage(n int) (defeated bool) {
	if m.hp <= 0 {
		return false
	}
	m.hp -= n
	if m.hp <= 0 {
		m.hp = 0
		return true
	}
	return false
}

// MobView is an immutable copy of a mob's state.
type MobView struct {
	ID       string
	Name     string
	WorldID  int
	Level    int
	HP       int
	MaxHP    int
	Element  data.Element
	Position Position
}

func (m *Mob) view() MobView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

func (m *Mob) viewLocked() MobView {
	return MobView{
		ID:       m.ID,
		Name:     m.Name,
		WorldID:  m.WorldID,
		Level:    m.Level,
		HP:       m.hp,
		MaxHP:    m.MaxHP,
		Element:  m.Element,
		Position: m.position,
	}
}
