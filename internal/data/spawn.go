package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MobSpawn is the template and spawn point of a hostile mob.
type MobSpawn struct {
	ID         string  `yaml:"id"`
	Name       string  `yaml:"name"`
	WorldID    int     `yaml:"world"`
	Level      int     `yaml:"level"`
	HP         int     `yaml:"hp"`
	Element    Element `yaml:"element"`
	Position   Point   `yaml:"position"`
	RespawnSec int     `yaml:"respawn_sec"`
}

// NpcSpawn is a friendly, immutable NPC.
type NpcSpawn struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	WorldID  int    `yaml:"world"`
	Role     string `yaml:"role"`
	Position Point  `yaml:"position"`
}

type spawnFile struct {
	Mobs []MobSpawn `yaml:"mobs"`
	Npcs []NpcSpawn `yaml:"npcs"`
}

// SpawnTable holds the mob and NPC spawn lists in file order.
type SpawnTable struct {
	Mobs []MobSpawn
	Npcs []NpcSpawn
}

func (t *SpawnTable) Count() int {
	return len(t.Mobs) + len(t.Npcs)
}

// LoadSpawnTable loads mob and NPC spawns from a YAML file.
func LoadSpawnTable(path string) (*SpawnTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spawns: %w", err)
	}
	var f spawnFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse spawns: %w", err)
	}
	seen := make(map[string]bool, len(f.Mobs)+len(f.Npcs))
	for i := range f.Mobs {
		m := &f.Mobs[i]
		if seen[m.ID] {
			return nil, fmt.Errorf("spawns: duplicate id %q", m.ID)
		}
		seen[m.ID] = true
		if m.HP <= 0 || m.Level <= 0 {
			return nil, fmt.Errorf("spawns: mob %q needs positive hp and level", m.ID)
		}
		if m.Element == "" {
			m.Element = ElementNone
		} else {
			m.Element = CanonicalElement(string(m.Element))
		}
	}
	for i := range f.Npcs {
		n := &f.Npcs[i]
		if seen[n.ID] {
			return nil, fmt.Errorf("spawns: duplicate id %q", n.ID)
		}
		seen[n.ID] = true
	}
	return &SpawnTable{Mobs: f.Mobs, Npcs: f.Npcs}, nil
}
