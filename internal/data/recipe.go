package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// RecipeOutput names the gear template produced per craft.
type RecipeOutput struct {
	TemplateID string `yaml:"template_id" json:"template_id"`
	Qty        int    `yaml:"qty" json:"qty"`
}

// Recipe converts materials into gear.
type Recipe struct {
	ID            string         `yaml:"id" json:"id"`
	Name          string         `yaml:"name" json:"name"`
	MinLevel      int            `yaml:"min_level" json:"min_level"`
	RequiredSkill string         `yaml:"required_skill" json:"required_skill,omitempty"`
	Inputs        map[string]int `yaml:"inputs" json:"inputs"`
	Output        RecipeOutput   `yaml:"output" json:"output"`
}

type recipeFile struct {
	Recipes []Recipe `yaml:"recipes"`
}

// RecipeTable holds all crafting recipes indexed by ID.
type RecipeTable struct {
	recipes map[string]*Recipe
}

func (t *RecipeTable) Get(id string) *Recipe {
	return t.recipes[id]
}

func (t *RecipeTable) Count() int {
	return len(t.recipes)
}

// All returns every recipe ordered by ID.
func (t *RecipeTable) All() []*Recipe {
	out := make([]*Recipe, 0, len(t.recipes))
	for _, r := range t.recipes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadRecipeTable loads crafting recipes from a YAML file.
func LoadRecipeTable(path string) (*RecipeTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipes: %w", err)
	}
	var f recipeFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse recipes: %w", err)
	}
	t := &RecipeTable{recipes: make(map[string]*Recipe, len(f.Recipes))}
	for i := range f.Recipes {
		r := &f.Recipes[i]
		if _, dup := t.recipes[r.ID]; dup {
			return nil, fmt.Errorf("recipes: duplicate id %q", r.ID)
		}
		if len(r.Inputs) == 0 {
			return nil, fmt.Errorf("recipes: %q has no inputs", r.ID)
		}
		for mat, qty := range r.Inputs {
			if qty <= 0 {
				return nil, fmt.Errorf("recipes: %q input %q qty %d", r.ID, mat, qty)
			}
		}
		if r.Output.Qty <= 0 {
			r.Output.Qty = 1
		}
		t.recipes[r.ID] = r
	}
	return t, nil
}
