package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/a3zone/server/internal/auth"
	"github.com/a3zone/server/internal/data"
	"github.com/a3zone/server/internal/net"
	"github.com/a3zone/server/internal/net/packet"
	"github.com/a3zone/server/internal/persist"
	"github.com/a3zone/server/internal/system"
	"github.com/a3zone/server/internal/world"
	"go.uber.org/zap"
)

const loadTimeout = 5 * time.Second

// authLocked is the AUTH_LOCKED payload.
type authLocked struct {
	Reason        string `json:"reason"`
	RetryAfterSec int    `json:"retry_after_sec,omitempty"`
}

// authOK is the AUTH_OK payload.
type authOK struct {
	Name      string `json:"name"`
	Class     string `json:"class"`
	World     int    `json:"world"`
	WorldName string `json:"world_name"`
}

// enterOK is ENTER_OK as sent on login, naming the character.
type enterOK struct {
	Character string `json:"character"`
	system.WorldEntry
}

// HandleAuthToken processes AUTH_TOKEN{token, class}.
func HandleAuthToken(sess *net.Session, r *packet.Reader, deps *Deps) {
	peer := auth.PeerKey(sess.IP)
	if ok, wait := deps.Limiter.Allow(peer); !ok {
		sess.Log().Warn("驗證嘗試過於頻繁", zap.String("peer", peer), zap.Duration("retry_after", wait))
		sess.Send("AUTH_LOCKED", authLocked{Reason: "TOO_MANY_ATTEMPTS", RetryAfterSec: int(wait.Seconds() + 0.5)})
		sess.CloseAfterFlush()
		return
	}

	token := r.String("token")
	if token == "" {
		authFailed(sess, deps, "TOKEN_REQUIRED")
		return
	}
	claims, err := deps.Verifier.Verify(token)
	if err != nil {
		sess.Log().Info("權杖驗證失敗", zap.Error(err))
		authFailed(sess, deps, "TOKEN_INVALID")
		return
	}

	sess.SetState(packet.StateAuthPending)
	c, err := loadCharacter(claims.Username, r.String("class"), deps)
	if err != nil {
		deps.Log.Error("載入角色失敗", zap.String("name", claims.Username), zap.Error(err))
		sess.SetState(packet.StateAuthRequired)
		sess.Send("AUTH_REJECTED", packet.Reason{Reason: "LOAD_FAILED"})
		return
	}

	// 存檔的世界已無法進入時回到第一個開放世界
	if !deps.Systems.Quests.CanEnter(c, c.WorldID) {
		home := deps.Content.Worlds.Get(deps.Content.Worlds.OpenWorlds()[0])
		c.WorldID = home.ID
		c.Position = world.Position(home.Spawn)
	}
	deps.Systems.Social.Rejoin(c)

	if err := deps.World.AddPlayer(c.Snapshot(), peerOf(sess)); err != nil {
		sess.SetState(packet.StateAuthRequired)
		if errors.Is(err, world.ErrAlreadyOnline) {
			sess.Send("AUTH_REJECTED", packet.Reason{Reason: "ALREADY_ONLINE"})
			return
		}
		sendRejection(sess, "AUTH_REJECTED", err, deps)
		return
	}

	deps.Limiter.Reset(peer)
	sess.AccountName = claims.Username
	sess.Character = c
	sess.AuthFailures = 0
	if deps.Config.RateLimit.Enabled {
		sess.SetRateLimit(deps.Config.RateLimit.CommandsPerSecond)
	} else {
		sess.SetRateLimit(0)
	}

	w := deps.World.World(c.WorldID)
	sess.SetState(packet.StateAuthenticated)
	sess.Send("AUTH_OK", authOK{Name: c.Name, Class: c.Class, World: w.ID, WorldName: w.Name})
	sess.Send("ENTER_OK", enterOK{
		Character:  c.Name,
		WorldEntry: system.WorldEntry{World: w.ID, Name: w.Name, Spawn: c.Position},
	})
	announceEnter(sess, deps)
	sess.Send("STATE", newStateView(c, deps))
	sess.SetState(packet.StateInWorld)

	deps.Log.Info(fmt.Sprintf("進入世界  角色=%s  職業=%s  世界=%d", c.Name, c.Class, w.ID),
		zap.Uint64("session", sess.ID), zap.String("ip", sess.IP))
}

// authFailed counts a failed attempt, slows the client down and locks the
// session once the failure limit is reached.
func authFailed(sess *net.Session, deps *Deps, reason string) {
	sess.AuthFailures++
	if d := deps.Config.Auth.FailureDelay; d > 0 {
		time.Sleep(time.Duration(sess.AuthFailures) * d)
	}
	sess.Send("AUTH_REJECTED", packet.Reason{Reason: reason})
	if sess.AuthFailures >= deps.Config.Auth.MaxFailures {
		sess.Log().Warn("驗證失敗次數過多", zap.Int("failures", sess.AuthFailures))
		sess.Send("AUTH_LOCKED", authLocked{Reason: "TOO_MANY_AUTH_FAILURES"})
		sess.CloseAfterFlush()
	}
}

// loadCharacter returns the saved character for name, or a new one of the
// requested class.
func loadCharacter(name, class string, deps *Deps) (*world.Character, error) {
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	c, err := deps.Store.Load(ctx, name)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, persist.ErrNotFound) {
		return nil, err
	}

	class = data.CanonicalName(class)
	if !deps.Content.Skills.HasClass(class) {
		class = deps.Config.Gameplay.DefaultClass
	}
	g := deps.Config.Gameplay
	c = world.NewCharacter(name, class, deps.Content, world.StartStats{
		Level:       g.StartLevel,
		MaxHP:       g.StartMaxHP,
		SkillPoints: g.StartSkillPoints,
	})
	deps.Log.Info(fmt.Sprintf("建立新角色  角色=%s  職業=%s", name, class))
	return c, nil
}
