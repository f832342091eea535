package handler

import (
	"context"
	"errors"
	"time"

	"github.com/a3zone/server/internal/net"
	"github.com/a3zone/server/internal/net/packet"
	"github.com/a3zone/server/internal/world"
	"go.uber.org/zap"
)

const saveTimeout = 5 * time.Second

// authRequired is the AUTH_REQUIRED payload.
type authRequired struct {
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

// sessionPeer is the registry's handle on a session.
type sessionPeer struct {
	*net.Session
}

func (p sessionPeer) ID() uint64 {
	return p.Session.ID
}

func peerOf(sess *net.Session) world.Peer {
	return sessionPeer{sess}
}

// Router is the zone server's net.Handler: it decodes lines, applies the
// per-session limits and dispatches through the command registry.
type Router struct {
	deps *Deps
	reg  *packet.Registry
}

func NewRouter(deps *Deps) *Router {
	reg := packet.NewRegistry(deps.Log)
	RegisterAll(reg, deps)
	return &Router{deps: deps, reg: reg}
}

func (rt *Router) OnOpen(sess *net.Session) {
	sess.SetState(packet.StateAuthRequired)
	sess.Send("AUTH_REQUIRED", authRequired{Message: "Send AUTH_TOKEN with a login token"})
}

func (rt *Router) OnLine(sess *net.Session, line []byte) {
	if !sess.AllowCommand() {
		sess.Log().Warn("指令頻率超過限制")
		sess.Send("RATE_LIMITED", nil)
		return
	}

	req, err := packet.Decode(line)
	if err != nil {
		sess.Malformed++
		if limit := rt.deps.Config.Network.MaxMalformed; limit > 0 && sess.Malformed >= limit {
			sess.Log().Warn("格式錯誤過多，斷開連線", zap.Int("count", sess.Malformed))
			sess.Send("ERROR", packet.Reason{Reason: "TOO_MANY_MALFORMED"})
			sess.CloseAfterFlush()
			return
		}
		sess.Send("ERROR", packet.Reason{Reason: "MALFORMED", Detail: err.Error()})
		return
	}
	sess.Malformed = 0

	state := sess.State()
	err = rt.reg.Dispatch(sess, state, req)
	var stateErr *packet.StateError
	switch {
	case err == nil:
		if sess.State() == packet.StateInWorld {
			publish(sess, rt.deps)
		}
	case errors.Is(err, packet.ErrUnknownCommand):
		sess.Send("ERROR", packet.Reason{Reason: "UNKNOWN_COMMAND", Detail: req.Command})
	case errors.As(err, &stateErr):
		switch {
		case state < packet.StateAuthenticated:
			sess.Send("AUTH_REQUIRED", authRequired{Message: "Authenticate first", Reason: "NOT_AUTHENTICATED"})
		case req.Command == "AUTH_TOKEN":
			sess.Send("ERROR", packet.Reason{Reason: "PROTOCOL", Detail: "ALREADY_AUTHENTICATED"})
		default:
			sess.Send("ERROR", packet.Reason{Reason: "PROTOCOL", Detail: state.String()})
		}
	case errors.Is(err, packet.ErrHandlerPanic):
		sess.Send("ERROR", packet.Reason{Reason: "INTERNAL"})
		sess.CloseAfterFlush()
	default:
		sess.Log().Error("未預期的分派錯誤", zap.Error(err))
		sess.Send("ERROR", packet.Reason{Reason: "INTERNAL"})
	}
}

// OnEvent applies events posted by other goroutines to this session's
// character.
func (rt *Router) OnEvent(sess *net.Session, ev any) {
	if sess.Character == nil {
		return
	}
	switch e := ev.(type) {
	case world.PvPHit:
		res := rt.deps.Systems.PvP.ApplyHit(sess.Character, e)
		sess.Send("PVP_HIT", res)
		publish(sess, rt.deps)
	case world.AutosaveTick:
		rt.save(sess)
	default:
		sess.Log().Debug("忽略未知事件", zap.Any("event", ev))
	}
}

// OnClose leaves the world and saves the character.
func (rt *Router) OnClose(sess *net.Session) {
	c := sess.Character
	if c == nil {
		return
	}
	if rt.deps.World.RemovePlayer(c.Name, peerOf(sess)) {
		announceLeave(sess, rt.deps, c.Name, c.WorldID, c.Position)
		leaveSocial(rt.deps, c)
	}
	rt.save(sess)
	rt.deps.Log.Info("玩家離開世界", zap.String("name", c.Name), zap.String("account", sess.AccountName))
}

func (rt *Router) save(sess *net.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := rt.deps.Store.Save(ctx, sess.Character); err != nil {
		sess.Log().Error("角色存檔失敗", zap.String("name", sess.Character.Name), zap.Error(err))
		return
	}
	sess.Log().Debug("角色已存檔", zap.String("name", sess.Character.Name))
}
