package handler

import (
	"math"

	"github.com/a3zone/server/internal/net"
	"github.com/a3zone/server/internal/net/packet"
	"github.com/a3zone/server/internal/world"
)

// HandleMove processes MOVE{x,y,z}. The server keeps the authoritative
// position; a rejected move leaves it unchanged.
func HandleMove(sess *net.Session, r *packet.Reader, deps *Deps) {
	to := world.Position{X: coord(r, "x"), Y: coord(r, "y"), Z: coord(r, "z")}

	mv, err := deps.Systems.Movement.Move(sess.Character, to)
	if err != nil {
		sendRejection(sess, "MOVE_REJECTED", err, deps)
		return
	}
	publish(sess, deps)
	sess.Send("MOVE_OK", mv.To)
	announceMove(sess, deps, mv.From)
}

// coord reads one coordinate. Missing or non-numeric values become NaN so
// the movement rules reject them.
func coord(r *packet.Reader, key string) float64 {
	v, ok := r.Float(key)
	if !ok {
		return math.NaN()
	}
	return v
}
