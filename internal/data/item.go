package data

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Element is an elemental attunement. Stored and sent in canonical form.
type Element string

const (
	ElementNone      Element = "None"
	ElementFire      Element = "Fire"
	ElementIce       Element = "Ice"
	ElementLightning Element = "Lightning"
	ElementEarth     Element = "Earth"
	ElementLight     Element = "Light"
	ElementDark      Element = "Dark"
)

var elements = []Element{ElementFire, ElementIce, ElementLightning, ElementEarth, ElementLight, ElementDark}

// CanonicalElement maps any spelling of an element name onto its canonical
// form. Unknown names become ElementNone.
func CanonicalElement(raw string) Element {
	raw = strings.TrimSpace(raw)
	for _, e := range elements {
		if strings.EqualFold(raw, string(e)) {
			return e
		}
	}
	return ElementNone
}

// CanonicalName trims and title-cases a free-form name ("falcon" -> "Falcon").
// Casers are stateful, so each call builds its own.
func CanonicalName(raw string) string {
	return cases.Title(language.English).String(strings.TrimSpace(raw))
}

const (
	RarityCommon = "Common"
	RarityRare   = "Rare"
	RarityEpic   = "Epic"
	RarityUnique = "Unique"
)

const (
	SlotWeapon = "weapon"
	SlotArmor  = "armor"
)

// Material is a stackable crafting input.
type Material struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// GearTemplate describes equipment that can be crafted, dropped or rewarded.
type GearTemplate struct {
	ID        string  `yaml:"id"`
	Name      string  `yaml:"name"`
	Grade     int     `yaml:"grade"`
	Rarity    string  `yaml:"rarity"`
	Slot      string  `yaml:"slot"`
	Element   Element `yaml:"element"`
	Legendary bool    `yaml:"legendary"` // eligible for the rare kill drop
}

// PetInfo is a summonable companion and its passive.
type PetInfo struct {
	Name    string `yaml:"name"`
	Passive string `yaml:"passive"`
}

type itemFile struct {
	Materials      []Material     `yaml:"materials"`
	Gear           []GearTemplate `yaml:"gear"`
	StarterItems   []string       `yaml:"starter_items"`
	Pets           []PetInfo      `yaml:"pets"`
	DefaultPet     string         `yaml:"default_pet"`
	DefaultPassive string         `yaml:"default_passive"` // for pets not listed
}

// ItemTable holds materials, gear templates and companion definitions.
type ItemTable struct {
	materials      map[string]*Material
	gear           map[string]*GearTemplate
	starter        []*GearTemplate
	legendary      []*GearTemplate
	pets           map[string]*PetInfo
	defaultPet     string
	defaultPassive string
}

func (t *ItemTable) Material(id string) *Material {
	return t.materials[id]
}

func (t *ItemTable) Gear(id string) *GearTemplate {
	return t.gear[id]
}

// Materials returns all materials ordered by ID.
func (t *ItemTable) Materials() []*Material {
	out := make([]*Material, 0, len(t.materials))
	for _, m := range t.materials {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// StarterItems returns the gear every new character receives.
func (t *ItemTable) StarterItems() []*GearTemplate {
	return t.starter
}

// Legendaries returns the templates eligible for the legendary kill drop,
// ordered by ID.
func (t *ItemTable) Legendaries() []*GearTemplate {
	return t.legendary
}

// Pet resolves a pet by canonical name. Unlisted names get the default
// passive.
func (t *ItemTable) Pet(name string) PetInfo {
	if p, ok := t.pets[name]; ok {
		return *p
	}
	return PetInfo{Name: name, Passive: t.defaultPassive}
}

// DefaultPet is the companion a new character owns (not summoned).
func (t *ItemTable) DefaultPet() PetInfo {
	return t.Pet(t.defaultPet)
}

func (t *ItemTable) Count() int {
	return len(t.materials) + len(t.gear)
}

// LoadItemTable loads materials, gear templates and pets from a YAML file.
func LoadItemTable(path string) (*ItemTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read items: %w", err)
	}
	var f itemFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse items: %w", err)
	}
	t := &ItemTable{
		materials:      make(map[string]*Material, len(f.Materials)),
		gear:           make(map[string]*GearTemplate, len(f.Gear)),
		pets:           make(map[string]*PetInfo, len(f.Pets)),
		defaultPet:     f.DefaultPet,
		defaultPassive: f.DefaultPassive,
	}
	for i := range f.Materials {
		m := &f.Materials[i]
		if _, dup := t.materials[m.ID]; dup {
			return nil, fmt.Errorf("items: duplicate material %q", m.ID)
		}
		t.materials[m.ID] = m
	}
	for i := range f.Gear {
		g := &f.Gear[i]
		if _, dup := t.gear[g.ID]; dup {
			return nil, fmt.Errorf("items: duplicate gear %q", g.ID)
		}
		if g.Slot != SlotWeapon && g.Slot != SlotArmor {
			return nil, fmt.Errorf("items: gear %q has slot %q", g.ID, g.Slot)
		}
		if g.Element == "" {
			g.Element = ElementNone
		} else {
			g.Element = CanonicalElement(string(g.Element))
		}
		t.gear[g.ID] = g
		if g.Legendary {
			t.legendary = append(t.legendary, g)
		}
	}
	sort.Slice(t.legendary, func(i, j int) bool { return t.legendary[i].ID < t.legendary[j].ID })
	for _, id := range f.StarterItems {
		g := t.gear[id]
		if g == nil {
			return nil, fmt.Errorf("items: starter item %q not found", id)
		}
		t.starter = append(t.starter, g)
	}
	for i := range f.Pets {
		p := &f.Pets[i]
		p.Name = CanonicalName(p.Name)
		t.pets[p.Name] = p
	}
	if t.defaultPet != "" {
		t.defaultPet = CanonicalName(t.defaultPet)
	}
	return t, nil
}
