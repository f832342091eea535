package system

import (
	"strings"

	"github.com/a3zone/server/internal/data"
	"github.com/a3zone/server/internal/world"
)

const defaultMercClass = "Warrior"

// ElementSet is the ELEMENT_SET payload.
type ElementSet struct {
	Target  string       `json:"target"`
	Element data.Element `json:"element"`
}

// Equipped is the EQUIP_OK payload.
type Equipped struct {
	Slot string     `json:"slot"`
	Item world.Item `json:"item"`
}

// CompanionSystem 負責寵物、傭兵、屬性附魔與裝備。
// 寵物與傭兵欄位皆可直接替換。
type CompanionSystem struct {
	env *Env
}

func NewCompanionSystem(env *Env) *CompanionSystem {
	return &CompanionSystem{env: env}
}

// SummonPet summons name, or the current pet when name is empty.
func (s *CompanionSystem) SummonPet(c *world.Character, name string) world.PetState {
	name = data.CanonicalName(name)
	if name == "" {
		name = c.Pet.Name
	}
	if name == "" {
		name = s.env.Content.Items.DefaultPet().Name
	}
	c.Pet = world.PetState{
		Name:     name,
		Passive:  s.env.Content.Items.Pet(name).Passive,
		Summoned: true,
	}
	return c.Pet
}

// RecruitMerc hires a mercenary of class at the character's level.
// Unknown classes hire a Warrior.
func (s *CompanionSystem) RecruitMerc(c *world.Character, class string) world.MercenaryState {
	class = data.CanonicalName(class)
	if !s.env.Content.Skills.HasClass(class) {
		class = defaultMercClass
	}
	c.Mercenary = world.MercenaryState{Class: class, Level: c.Level, Recruited: true}
	return c.Mercenary
}

// SetElement attaches an element to the weapon, armor or pet.
func (s *CompanionSystem) SetElement(c *world.Character, target, element string) (*ElementSet, error) {
	target = strings.ToLower(strings.TrimSpace(target))
	switch target {
	case world.AttachWeapon, world.AttachArmor, world.AttachPet:
	default:
		return nil, reject(ReasonInvalidTarget)
	}
	e := data.CanonicalElement(element)
	c.Elemental[target] = e
	return &ElementSet{Target: target, Element: e}, nil
}

// Equip puts an inventory item into its slot, replacing what was there.
func (s *CompanionSystem) Equip(c *world.Character, itemID string) (*Equipped, error) {
	it, ok := c.FindItem(itemID)
	if !ok {
		return nil, reject(ReasonItemNotFound)
	}
	c.Equipped[it.Slot] = it.ID
	return &Equipped{Slot: it.Slot, Item: it}, nil
}
