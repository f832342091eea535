package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	LootMaterial = "material"
	LootGear     = "gear"
)

// LootEntry is one possible drop. DropRateBPS is out of 10000.
type LootEntry struct {
	Kind        string `yaml:"kind"`
	ItemID      string `yaml:"item_id"`
	DropRateBPS int    `yaml:"drop_rate_bps"`
	MinQty      int    `yaml:"min_qty"`
	MaxQty      int    `yaml:"max_qty"`
}

type mobLoot struct {
	MobID string      `yaml:"mob_id"`
	Items []LootEntry `yaml:"items"`
}

type lootFile struct {
	Loot []mobLoot `yaml:"loot"`
}

// LootTable holds drop lists indexed by mob ID.
type LootTable struct {
	loot map[string][]LootEntry
}

// Get returns the drop list for a mob, or nil if none defined.
func (t *LootTable) Get(mobID string) []LootEntry {
	return t.loot[mobID]
}

func (t *LootTable) Count() int {
	return len(t.loot)
}

// LoadLootTable loads mob loot tables from a YAML file.
func LoadLootTable(path string) (*LootTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read loot: %w", err)
	}
	var f lootFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse loot: %w", err)
	}
	t := &LootTable{loot: make(map[string][]LootEntry, len(f.Loot))}
	for _, entry := range f.Loot {
		for i := range entry.Items {
			it := &entry.Items[i]
			if it.Kind != LootMaterial && it.Kind != LootGear {
				return nil, fmt.Errorf("loot: %s/%s kind %q", entry.MobID, it.ItemID, it.Kind)
			}
			if it.MinQty <= 0 {
				it.MinQty = 1
			}
			if it.MaxQty < it.MinQty {
				it.MaxQty = it.MinQty
			}
		}
		t.loot[entry.MobID] = entry.Items
	}
	return t, nil
}
