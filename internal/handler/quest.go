package handler

import (
	"github.com/a3zone/server/internal/net"
	"github.com/a3zone/server/internal/net/packet"
	"go.uber.org/zap"
)

// HandleAcceptQuest processes ACCEPT_QUEST{quest_id}.
func HandleAcceptQuest(sess *net.Session, r *packet.Reader, deps *Deps) {
	res, err := deps.Systems.Quests.Accept(sess.Character, r.String("quest_id"))
	if err != nil {
		sendRejection(sess, "QUEST_REJECTED", err, deps)
		return
	}
	sess.Send("QUEST_ACCEPTED", res)
}

// HandleCompleteQuest processes COMPLETE_QUEST{quest_id}.
func HandleCompleteQuest(sess *net.Session, r *packet.Reader, deps *Deps) {
	res, err := deps.Systems.Quests.Complete(sess.Character, r.String("quest_id"))
	if err != nil {
		sendRejection(sess, "QUEST_REJECTED", err, deps)
		return
	}
	sess.Send("QUEST_COMPLETED", res)
}

// HandleEnterWorld processes ENTER_WORLD{world_id}. Players left behind see
// PLAYER_LEFT; players at the new spawn see PLAYER_JOINED.
func HandleEnterWorld(sess *net.Session, r *packet.Reader, deps *Deps) {
	c := sess.Character
	fromWorld, fromPos := c.WorldID, c.Position

	entry, err := deps.Systems.Quests.EnterWorld(c, r.Int("world_id"))
	if err != nil {
		sendRejection(sess, "ENTER_DENIED", err, deps)
		return
	}
	announceLeave(sess, deps, c.Name, fromWorld, fromPos)
	publish(sess, deps)
	sess.Send("ENTER_OK", entry)
	announceEnter(sess, deps)
	deps.Log.Info("切換世界", zap.String("name", c.Name), zap.Int("from", fromWorld), zap.Int("to", entry.World))
}

// HandleGetHistory processes GET_HISTORY.
func HandleGetHistory(sess *net.Session, _ *packet.Reader, deps *Deps) {
	sess.Send("HISTORY", deps.Systems.Quests.History())
}
