// Package login is the account front door: it checks credentials and hands
// out the signed tokens the zone server accepts with AUTH_TOKEN.
package login

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/a3zone/server/internal/auth"
	"github.com/a3zone/server/internal/config"
	"github.com/a3zone/server/internal/net"
	"github.com/a3zone/server/internal/net/packet"
	"github.com/a3zone/server/internal/persist"
	"github.com/a3zone/server/internal/world"
	"go.uber.org/zap"
)

const (
	maxNameLen     = 32
	accountTimeout = 5 * time.Second
)

// AccountStore is implemented by persist.AccountRepo and persist.MemoryAccounts.
type AccountStore interface {
	Load(ctx context.Context, name string) (*persist.AccountRow, error)
	Create(ctx context.Context, name, rawPassword, ip string) (*persist.AccountRow, error)
	RecordLogin(ctx context.Context, name, ip string) error
}

// loginOK is the LOGIN_OK payload.
type loginOK struct {
	Username string `json:"username"`
	Token    string `json:"token"`
	Expires  string `json:"expires"`
}

type loginRejected struct {
	Reason        string `json:"reason"`
	RetryAfterSec int    `json:"retry_after_sec,omitempty"`
}

// Service is the login server's net.Handler.
type Service struct {
	cfg      config.LoginConfig
	issuer   *auth.Issuer
	limiter  *auth.Limiter
	accounts AccountStore
	reg      *packet.Registry
	log      *zap.Logger
}

func NewService(cfg config.LoginConfig, issuer *auth.Issuer, limiter *auth.Limiter, accounts AccountStore, log *zap.Logger) *Service {
	s := &Service{
		cfg:      cfg,
		issuer:   issuer,
		limiter:  limiter,
		accounts: accounts,
		reg:      packet.NewRegistry(log),
		log:      log,
	}
	states := []packet.SessionState{packet.StateUnauthenticated, packet.StateAuthRequired}
	s.reg.Register("PING", states, func(sess any, _ *packet.Reader) {
		sess.(*net.Session).Send("PONG", map[string]int64{"ts": time.Now().Unix()})
	})
	s.reg.Register("LOGIN", states, func(sess any, r *packet.Reader) {
		s.handleLogin(sess.(*net.Session), r)
	})
	return s
}

func (s *Service) OnOpen(sess *net.Session) {
	sess.SetState(packet.StateAuthRequired)
}

func (s *Service) OnLine(sess *net.Session, line []byte) {
	if !sess.AllowCommand() {
		sess.Send("RATE_LIMITED", nil)
		return
	}
	req, err := packet.Decode(line)
	if err != nil {
		sess.Send("ERROR", packet.Reason{Reason: "MALFORMED", Detail: err.Error()})
		return
	}
	switch err := s.reg.Dispatch(sess, sess.State(), req); {
	case err == nil:
	case errors.Is(err, packet.ErrUnknownCommand):
		sess.Send("ERROR", packet.Reason{Reason: "UNKNOWN_COMMAND", Detail: req.Command})
	default:
		sess.Send("ERROR", packet.Reason{Reason: "INTERNAL"})
		sess.CloseAfterFlush()
	}
}

func (s *Service) OnEvent(*net.Session, any) {}

func (s *Service) OnClose(sess *net.Session) {
	s.log.Debug("登入連線結束", zap.Uint64("session", sess.ID), zap.String("account", sess.AccountName))
}

// handleLogin processes LOGIN{username, password}.
func (s *Service) handleLogin(sess *net.Session, r *packet.Reader) {
	peer := auth.PeerKey(sess.IP)
	if ok, wait := s.limiter.Allow(peer); !ok {
		s.log.Warn("登入嘗試過於頻繁", zap.String("peer", peer))
		sess.Send("LOGIN_REJECTED", loginRejected{Reason: "TOO_MANY_ATTEMPTS", RetryAfterSec: int(wait.Seconds() + 0.5)})
		return
	}

	username := r.String("username")
	password := r.String("password")
	if username == "" || password == "" || len(username) > maxNameLen || strings.ContainsAny(username, " \t") {
		sess.Send("LOGIN_REJECTED", loginRejected{Reason: "BAD_REQUEST"})
		return
	}
	key := world.NameKey(username)

	ctx, cancel := context.WithTimeout(context.Background(), accountTimeout)
	defer cancel()

	account, err := s.accounts.Load(ctx, username)
	switch {
	case errors.Is(err, persist.ErrNotFound):
		if !s.cfg.AutoCreateAccounts {
			sess.Send("LOGIN_REJECTED", loginRejected{Reason: "INVALID_CREDENTIALS"})
			return
		}
		if account, err = s.accounts.Create(ctx, username, password, peer); err != nil {
			s.log.Error("建立帳號失敗", zap.String("account", key), zap.Error(err))
			sess.Send("LOGIN_REJECTED", loginRejected{Reason: "INTERNAL"})
			return
		}
		s.log.Info(fmt.Sprintf("自動建立帳號  帳號=%s", key))
	case err != nil:
		s.log.Error("載入帳號失敗", zap.String("account", key), zap.Error(err))
		sess.Send("LOGIN_REJECTED", loginRejected{Reason: "INTERNAL"})
		return
	case account.Banned:
		s.log.Info(fmt.Sprintf("被封鎖帳號嘗試登入  帳號=%s", key))
		sess.Send("LOGIN_REJECTED", loginRejected{Reason: "ACCOUNT_BANNED"})
		return
	case !account.ValidatePassword(password):
		sess.Send("LOGIN_REJECTED", loginRejected{Reason: "INVALID_CREDENTIALS"})
		return
	default:
		if err := s.accounts.RecordLogin(ctx, username, peer); err != nil {
			s.log.Error("更新登入時間失敗", zap.String("account", key), zap.Error(err))
		}
	}

	// The token always carries the account's own spelling, so every case
	// variant of a name reaches the zone as the same player.
	name := account.DisplayName
	if name == "" {
		name = account.Name
	}
	token, expires, err := s.issuer.Issue(name)
	if err != nil {
		s.log.Error("簽發權杖失敗", zap.Error(err))
		sess.Send("LOGIN_REJECTED", loginRejected{Reason: "INTERNAL"})
		return
	}
	s.limiter.Reset(peer)
	sess.AccountName = key
	sess.Send("LOGIN_OK", loginOK{Username: name, Token: token, Expires: expires.UTC().Format(time.RFC3339)})
	s.log.Info(fmt.Sprintf("登入成功  帳號=%s  ip=%s", key, peer))
}
