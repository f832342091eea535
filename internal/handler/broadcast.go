package handler

import (
	"github.com/a3zone/server/internal/net"
	"github.com/a3zone/server/internal/world"
)

// playerSighting is the PLAYER_JOINED / PLAYER_MOVED payload.
type playerSighting struct {
	Name     string         `json:"name"`
	Position world.Position `json:"pos"`
}

// playerGone is the PLAYER_LEFT payload.
type playerGone struct {
	Name string `json:"name"`
}

// ==================== 可見範圍推播 ====================
// 不保存「誰看得到誰」的狀態，每次都由新舊座標重新計算。

// announceEnter introduces a player who just appeared at their current
// position: both sides of every newly visible pair get PLAYER_JOINED.
func announceEnter(sess *net.Session, deps *Deps) {
	c := sess.Character
	for _, e := range deps.World.PlayersNear(c.WorldID, c.Name, c.Position) {
		other := e.Snapshot()
		if !deps.World.Visible(c.Position, other.Position) {
			continue
		}
		e.Peer().Push("PLAYER_JOINED", playerSighting{Name: c.Name, Position: c.Position})
		sess.Send("PLAYER_JOINED", playerSighting{Name: other.Name, Position: other.Position})
	}
}

// announceMove diffs visibility between from and the player's new position.
func announceMove(sess *net.Session, deps *Deps, from world.Position) {
	c := sess.Character
	for _, e := range deps.World.PlayersNear(c.WorldID, c.Name, from, c.Position) {
		other := e.Snapshot()
		was := deps.World.Visible(from, other.Position)
		now := deps.World.Visible(c.Position, other.Position)
		switch {
		case now && !was:
			e.Peer().Push("PLAYER_JOINED", playerSighting{Name: c.Name, Position: c.Position})
			sess.Send("PLAYER_JOINED", playerSighting{Name: other.Name, Position: other.Position})
		case !now && was:
			e.Peer().Push("PLAYER_LEFT", playerGone{Name: c.Name})
			sess.Send("PLAYER_LEFT", playerGone{Name: other.Name})
		case now && was:
			e.Peer().Push("PLAYER_MOVED", playerSighting{Name: c.Name, Position: c.Position})
		}
	}
}

// announceLeave tells everyone who could see name at pos in worldID that
// it is gone. The leaving session is told about the players it loses sight
// of unless it is already closed.
func announceLeave(sess *net.Session, deps *Deps, name string, worldID int, pos world.Position) {
	for _, e := range deps.World.PlayersNear(worldID, name, pos) {
		other := e.Snapshot()
		if !deps.World.Visible(pos, other.Position) {
			continue
		}
		e.Peer().Push("PLAYER_LEFT", playerGone{Name: name})
		if !sess.IsClosed() {
			sess.Send("PLAYER_LEFT", playerGone{Name: other.Name})
		}
	}
}
