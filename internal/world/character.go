package world

import (
	"math"
	"strings"

	"github.com/a3zone/server/internal/data"
)

// NameKey folds a player name so "Hero" and "hero" are the same player.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Position is a point in the current world.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// DistanceTo returns the euclidean distance between p and o.
func (p Position) DistanceTo(o Position) float64 {
	dx := p.X - o.X
	dy := p.Y - o.Y
	dz := p.Z - o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Item is one owned piece of gear.
type Item struct {
	ID         string       `json:"id"` // instance id, unique per character
	TemplateID string       `json:"template_id"`
	Name       string       `json:"name"`
	Grade      int          `json:"grade"`
	Rarity     string       `json:"rarity"`
	Slot       string       `json:"slot"`
	Element    data.Element `json:"element"`
	Legendary  bool         `json:"legendary,omitempty"`
}

// NewItem instantiates a gear template.
func NewItem(t *data.GearTemplate, instanceID string) Item {
	return Item{
		ID:         instanceID,
		TemplateID: t.ID,
		Name:       t.Name,
		Grade:      t.Grade,
		Rarity:     t.Rarity,
		Slot:       t.Slot,
		Element:    t.Element,
		Legendary:  t.Legendary,
	}
}

// AttackValue is the item's contribution to gear attack when equipped.
func (it Item) AttackValue() int {
	v := it.Grade * 2
	switch it.Rarity {
	case data.RarityEpic:
		v += 2
	case data.RarityUnique:
		v += 4
	}
	return v
}

type QuestProgress struct {
	Accepted    bool `json:"accepted"`
	Complete    bool `json:"complete"`
	Completions int  `json:"completions"`
}

type PetState struct {
	Name     string `json:"name"`
	Passive  string `json:"passive"`
	Summoned bool   `json:"summoned"`
}

type MercenaryState struct {
	Class     string `json:"class"`
	Level     int    `json:"level"`
	Recruited bool   `json:"recruited"`
}

// Element attachment targets.
const (
	AttachWeapon = "weapon"
	AttachArmor  = "armor"
	AttachPet    = "pet"
)

// Character is the full persistent player record. A live Character is owned
// by its session's worker goroutine; other sessions only ever see the
// PlayerSnapshot published to the registry.
type Character struct {
	Name           string                    `json:"name"`
	Class          string                    `json:"class"`
	Level          int                       `json:"level"`
	XP             int                       `json:"xp"`
	XPDebt         int                       `json:"xp_debt"`
	HP             int                       `json:"hp"`
	MaxHP          int                       `json:"max_hp"`
	Downed         bool                      `json:"downed"`
	Corpse         *Position                 `json:"corpse"`
	AuraLevel      int                       `json:"aura_level"`
	WorldID        int                       `json:"world_id"`
	Position       Position                  `json:"position"`
	UnlockedWorlds map[int]bool              `json:"unlocked_worlds"`
	Trust          map[string]int            `json:"trust"`
	Quests         map[string]*QuestProgress `json:"quests"`
	Inventory      []Item                    `json:"inventory"`
	Materials      map[string]int            `json:"materials"`
	Equipped       map[string]string         `json:"equipped"` // slot -> item id
	Pet            PetState                  `json:"pet"`
	Mercenary      MercenaryState            `json:"mercenary"`
	Elemental      map[string]data.Element   `json:"elemental"`
	SkillPoints    int                       `json:"skill_points"`
	Skills         map[string]int            `json:"skills"`
	PKScore        int                       `json:"pk_score"`
	Honor          int                       `json:"honor"`
	Guild          string                    `json:"guild,omitempty"`
}

// StartStats are the configurable attributes of a brand-new character.
type StartStats struct {
	Level       int
	MaxHP       int
	SkillPoints int
}

// NewCharacter builds a fresh character in the first open world.
func NewCharacter(name, class string, c *data.Content, start StartStats) *Character {
	ch := &Character{
		Name:        name,
		Class:       class,
		Level:       start.Level,
		HP:          start.MaxHP,
		MaxHP:       start.MaxHP,
		SkillPoints: start.SkillPoints,
		Pet:         PetState{Name: c.Items.DefaultPet().Name, Passive: c.Items.DefaultPet().Passive},
	}
	ch.Normalize()
	for _, id := range c.Worlds.OpenWorlds() {
		ch.UnlockedWorlds[id] = true
	}
	home := c.Worlds.Get(c.Worlds.OpenWorlds()[0])
	ch.WorldID = home.ID
	ch.Position = Position(home.Spawn)
	for _, s := range c.Skills.ForClass(class) {
		ch.Skills[s.ID] = s.StartingRank
	}
	for _, t := range c.Items.StarterItems() {
		ch.Inventory = append(ch.Inventory, NewItem(t, t.ID))
	}
	return ch
}

// Normalize fills nil maps, e.g. after decoding an older saved document.
func (c *Character) Normalize() {
	if c.UnlockedWorlds == nil {
		c.UnlockedWorlds = make(map[int]bool)
	}
	if c.Trust == nil {
		c.Trust = make(map[string]int)
	}
	if c.Quests == nil {
		c.Quests = make(map[string]*QuestProgress)
	}
	if c.Materials == nil {
		c.Materials = make(map[string]int)
	}
	if c.Equipped == nil {
		c.Equipped = make(map[string]string)
	}
	if c.Elemental == nil {
		c.Elemental = make(map[string]data.Element)
	}
	if c.Skills == nil {
		c.Skills = make(map[string]int)
	}
	if c.Inventory == nil {
		c.Inventory = []Item{}
	}
}

// HasWorld reports whether the character has unlocked worldID.
func (c *Character) HasWorld(worldID int) bool {
	return c.UnlockedWorlds[worldID]
}

// FindItem returns the inventory item with the given instance id.
func (c *Character) FindItem(id string) (Item, bool) {
	for _, it := range c.Inventory {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// GearAttack sums the attack value of equipped items.
func (c *Character) GearAttack() int {
	total := 0
	for _, it := range c.Inventory {
		if c.Equipped[it.Slot] == it.ID {
			total += it.AttackValue()
		}
	}
	return total
}

// CompanionBonusPct is the damage bonus from an active pet and mercenary.
func (c *Character) CompanionBonusPct() int {
	pct := 0
	if c.Pet.Summoned {
		pct += 5
	}
	if c.Mercenary.Recruited {
		pct += 8
	}
	return pct
}

// WeaponElement is the element attached to the weapon slot.
func (c *Character) WeaponElement() data.Element {
	if e, ok := c.Elemental[AttachWeapon]; ok {
		return e
	}
	return data.ElementNone
}

// Snapshot returns the read-only view other sessions may observe.
func (c *Character) Snapshot() PlayerSnapshot {
	return PlayerSnapshot{
		Name:     c.Name,
		Class:    c.Class,
		Level:    c.Level,
		WorldID:  c.WorldID,
		Position: c.Position,
		HP:       c.HP,
		MaxHP:    c.MaxHP,
		Downed:   c.Downed,
		Guild:    c.Guild,
	}
}
