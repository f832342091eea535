package handler

import (
	"github.com/a3zone/server/internal/net"
	"github.com/a3zone/server/internal/net/packet"
)

// ==================== 技能 ====================

// HandleSkillTree processes SKILL_TREE.
func HandleSkillTree(sess *net.Session, _ *packet.Reader, deps *Deps) {
	sess.Send("SKILL_TREE", deps.Systems.Skills.Tree(sess.Character))
}

// HandleLearnSkill processes LEARN_SKILL{skill_id}.
func HandleLearnSkill(sess *net.Session, r *packet.Reader, deps *Deps) {
	res, err := deps.Systems.Skills.Learn(sess.Character, r.String("skill_id"))
	if err != nil {
		sendRejection(sess, "SKILL_REJECTED", err, deps)
		return
	}
	sess.Send("SKILL_LEARNED", res)
}

// ==================== 製作 ====================

// HandleGetRecipes processes GET_RECIPES.
func HandleGetRecipes(sess *net.Session, _ *packet.Reader, deps *Deps) {
	sess.Send("RECIPES", deps.Systems.Craft.Recipes(sess.Character))
}

// HandleCraftItem processes CRAFT_ITEM{recipe_id, qty}. A missing qty
// crafts one.
func HandleCraftItem(sess *net.Session, r *packet.Reader, deps *Deps) {
	qty := 1
	if r.Has("qty") {
		qty = r.Int("qty")
	}
	res, err := deps.Systems.Craft.Craft(sess.Character, r.String("recipe_id"), qty)
	if err != nil {
		sendRejection(sess, "CRAFT_REJECTED", err, deps)
		return
	}
	sess.Send("CRAFT_OK", res)
}
