package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Point is a position in world space.
type Point struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

// Bounds is an axis-aligned box, inclusive on both ends.
type Bounds struct {
	Min Point `yaml:"min"`
	Max Point `yaml:"max"`
}

// Contains reports whether p lies inside the box.
func (b Bounds) Contains(p Point) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// WorldInfo describes one world (zone): who may enter and where they land.
type WorldInfo struct {
	ID           int    `yaml:"id"`
	Name         string `yaml:"name"`
	MinLevel     int    `yaml:"min_level"`
	MaxLevel     int    `yaml:"max_level"`
	Open         bool   `yaml:"open"` // unlocked for every character from creation
	RequiresAura bool   `yaml:"requires_aura"`
	Spawn        Point  `yaml:"spawn"`
	Bounds       Bounds `yaml:"bounds"`
}

// LevelInRange reports whether level may enter this world.
func (w *WorldInfo) LevelInRange(level int) bool {
	return level >= w.MinLevel && level <= w.MaxLevel
}

type worldFile struct {
	Worlds []WorldInfo `yaml:"worlds"`
}

// WorldTable holds all worlds indexed by ID.
type WorldTable struct {
	worlds map[int]*WorldInfo
}

// Get returns a world by ID, or nil if not found.
func (t *WorldTable) Get(id int) *WorldInfo {
	return t.worlds[id]
}

func (t *WorldTable) Count() int {
	return len(t.worlds)
}

// All returns every world ordered by ID.
func (t *WorldTable) All() []*WorldInfo {
	out := make([]*WorldInfo, 0, len(t.worlds))
	for _, w := range t.worlds {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OpenWorlds returns the IDs of worlds every new character starts with.
func (t *WorldTable) OpenWorlds() []int {
	var ids []int
	for _, w := range t.All() {
		if w.Open {
			ids = append(ids, w.ID)
		}
	}
	return ids
}

// LoadWorldTable loads world definitions from a YAML file.
func LoadWorldTable(path string) (*WorldTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read worlds: %w", err)
	}
	var f worldFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse worlds: %w", err)
	}
	t := &WorldTable{worlds: make(map[int]*WorldInfo, len(f.Worlds))}
	for i := range f.Worlds {
		w := &f.Worlds[i]
		if _, dup := t.worlds[w.ID]; dup {
			return nil, fmt.Errorf("worlds: duplicate id %d", w.ID)
		}
		if w.MinLevel > w.MaxLevel {
			return nil, fmt.Errorf("worlds: world %d level range %d-%d", w.ID, w.MinLevel, w.MaxLevel)
		}
		if !w.Bounds.Contains(w.Spawn) {
			return nil, fmt.Errorf("worlds: world %d spawn outside bounds", w.ID)
		}
		t.worlds[w.ID] = w
	}
	return t, nil
}
