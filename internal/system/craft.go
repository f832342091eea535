package system

import (
	"github.com/a3zone/server/internal/data"
	"github.com/a3zone/server/internal/world"
	"go.uber.org/zap"
)

// MaterialView is one material with the amount the character holds.
type MaterialView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Owned int    `json:"owned"`
}

// RecipeList is the RECIPES payload.
type RecipeList struct {
	Recipes   []*data.Recipe `json:"recipes"`
	Materials []MaterialView `json:"materials"`
}

// CraftResult is the CRAFT_OK payload.
type CraftResult struct {
	RecipeID  string         `json:"recipe_id"`
	Recipe    string         `json:"recipe"`
	Qty       int            `json:"qty"`
	Consumed  map[string]int `json:"consumed"`
	Crafted   []world.Item   `json:"crafted"`
	Materials map[string]int `json:"materials"`
}

// CraftSystem 負責製作：配方查詢、材料驗證、消耗與產出。
type CraftSystem struct {
	env *Env
}

func NewCraftSystem(env *Env) *CraftSystem {
	return &CraftSystem{env: env}
}

// Recipes lists every recipe and the material catalog.
func (s *CraftSystem) Recipes(c *world.Character) RecipeList {
	out := RecipeList{Recipes: s.env.Content.Recipes.All()}
	for _, m := range s.env.Content.Items.Materials() {
		out.Materials = append(out.Materials, MaterialView{ID: m.ID, Name: m.Name, Owned: c.Materials[m.ID]})
	}
	return out
}

// Craft runs qty crafts of recipeID. Every check and every output item is
// prepared before the character is touched; a rejected craft changes nothing.
func (s *CraftSystem) Craft(c *world.Character, recipeID string, qty int) (*CraftResult, error) {
	// 1. 數量
	if qty < 1 || qty > s.env.Gameplay.MaxCraftQty {
		return nil, reject(ReasonInvalidQty)
	}
	// 2. 配方與等級、技能
	r := s.env.Content.Recipes.Get(recipeID)
	if r == nil {
		return nil, reject(ReasonUnknownRecipe)
	}
	if c.Level < r.MinLevel {
		return nil, reject(ReasonLevelTooLow)
	}
	if r.RequiredSkill != "" && c.Skills[r.RequiredSkill] <= 0 {
		return nil, reject(ReasonSkillRequired)
	}
	// 3. 材料
	consumed := make(map[string]int, len(r.Inputs))
	for id, per := range r.Inputs {
		need := per * qty
		if c.Materials[id] < need {
			return nil, reject(ReasonNoMaterials)
		}
		consumed[id] = need
	}
	// 4. 產出先全部建好
	t := s.env.Content.Items.Gear(r.Output.TemplateID)
	if t == nil {
		return nil, reject(ReasonRecipeOutput)
	}
	crafted := make([]world.Item, 0, qty*r.Output.Qty)
	for i := 0; i < qty*r.Output.Qty; i++ {
		crafted = append(crafted, world.NewItem(t, instanceID(t.ID)))
	}

	// 5. 一次提交
	for id, n := range consumed {
		c.Materials[id] -= n
		if c.Materials[id] == 0 {
			delete(c.Materials, id)
		}
	}
	c.Inventory = append(c.Inventory, crafted...)

	s.env.Log.Debug("製作完成",
		zap.String("name", c.Name), zap.String("recipe", r.ID), zap.Int("qty", qty))

	materials := make(map[string]int, len(c.Materials))
	for id, n := range c.Materials {
		materials[id] = n
	}
	return &CraftResult{
		RecipeID:  r.ID,
		Recipe:    r.Name,
		Qty:       qty,
		Consumed:  consumed,
		Crafted:   crafted,
		Materials: materials,
	}, nil
}
