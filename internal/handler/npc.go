package handler

import (
	"github.com/a3zone/server/internal/net"
	"github.com/a3zone/server/internal/net/packet"
)

// HandleListEntities processes LIST_ENTITIES. The listing is rebuilt from
// the registry on every call.
func HandleListEntities(sess *net.Session, _ *packet.Reader, deps *Deps) {
	sess.Send("ENTITIES", deps.Systems.Npcs.Entities(sess.Character))
}

// HandleTalkNpc processes TALK_NPC{npc, choice}.
func HandleTalkNpc(sess *net.Session, r *packet.Reader, deps *Deps) {
	res, err := deps.Systems.Npcs.Talk(sess.Character, r.String("npc"), r.String("choice"))
	if err != nil {
		sendRejection(sess, "NPC_REJECTED", err, deps)
		return
	}
	sess.Send("NPC_STATE", res)
}
