package handler

import (
	"github.com/a3zone/server/internal/net"
	"github.com/a3zone/server/internal/net/packet"
)

// HandleSummonPet processes SUMMON_PET{pet}.
func HandleSummonPet(sess *net.Session, r *packet.Reader, deps *Deps) {
	sess.Send("PET_SUMMONED", deps.Systems.Companions.SummonPet(sess.Character, r.String("pet")))
}

// HandleRecruitMerc processes RECRUIT_MERC{class}.
func HandleRecruitMerc(sess *net.Session, r *packet.Reader, deps *Deps) {
	sess.Send("MERC_RECRUITED", deps.Systems.Companions.RecruitMerc(sess.Character, r.String("class")))
}

// HandleSetElement processes SET_ELEMENT{target, element}.
func HandleSetElement(sess *net.Session, r *packet.Reader, deps *Deps) {
	res, err := deps.Systems.Companions.SetElement(sess.Character, r.String("target"), r.String("element"))
	if err != nil {
		sendRejection(sess, "ELEMENT_REJECTED", err, deps)
		return
	}
	sess.Send("ELEMENT_SET", res)
}

// HandleEquipItem processes EQUIP_ITEM{item_id}.
func HandleEquipItem(sess *net.Session, r *packet.Reader, deps *Deps) {
	res, err := deps.Systems.Companions.Equip(sess.Character, r.String("item_id"))
	if err != nil {
		sendRejection(sess, "EQUIP_REJECTED", err, deps)
		return
	}
	sess.Send("EQUIP_OK", res)
}
