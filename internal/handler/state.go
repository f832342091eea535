package handler

import (
	"time"

	"github.com/a3zone/server/internal/net"
	"github.com/a3zone/server/internal/net/packet"
	"github.com/a3zone/server/internal/world"
)

// stateView is the STATE payload: the whole character plus the world name
// and the shared first-unlock history.
type stateView struct {
	*world.Character
	WorldName string            `json:"world_name"`
	History   map[string]string `json:"history"`
}

func newStateView(c *world.Character, deps *Deps) stateView {
	v := stateView{Character: c, History: deps.Systems.Quests.History()}
	if w := deps.World.World(c.WorldID); w != nil {
		v.WorldName = w.Name
	}
	return v
}

// HandleGetState processes GET_STATE. It never mutates the character.
func HandleGetState(sess *net.Session, _ *packet.Reader, deps *Deps) {
	sess.Send("STATE", newStateView(sess.Character, deps))
}

// HandlePing processes PING in any state.
func HandlePing(sess *net.Session, _ *packet.Reader, _ *Deps) {
	sess.Send("PONG", map[string]int64{"ts": time.Now().Unix()})
}
