package handler

import (
	"bufio"
	"context"
	"encoding/json"
	stdnet "net"
	"testing"
	"time"

	"github.com/a3zone/server/internal/auth"
	"github.com/a3zone/server/internal/config"
	"github.com/a3zone/server/internal/data"
	"github.com/a3zone/server/internal/net"
	"github.com/a3zone/server/internal/persist"
	"github.com/a3zone/server/internal/scripting"
	"github.com/a3zone/server/internal/system"
	"github.com/a3zone/server/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// zone is a running zone server on a loopback port.
type zone struct {
	srv    *net.Server
	issuer *auth.Issuer
	store  *persist.MemoryStore
	deps   *Deps
}

func newZone(t *testing.T, opts ...func(*config.Config)) *zone {
	t.Helper()
	log := zaptest.NewLogger(t)

	cfg := config.Defaults()
	cfg.Network.BindAddress = "127.0.0.1:0"
	cfg.Auth.FailureDelay = time.Millisecond
	cfg.Gameplay.MobRespawn = "persist"
	for _, opt := range opts {
		opt(cfg)
	}

	content, err := data.LoadContent("../../data/yaml")
	require.NoError(t, err)
	eng, err := scripting.NewEngine("../../scripts", log)
	require.NoError(t, err)
	t.Cleanup(eng.Close)
	st := world.NewState(content, cfg.Gameplay.VisibilityRadius, world.RespawnPersist, log)
	t.Cleanup(st.Close)

	store := persist.NewMemoryStore()
	deps := &Deps{
		Config:  cfg,
		Log:     log,
		Content: content,
		World:   st,
		Systems: system.New(&system.Env{
			Gameplay:  cfg.Gameplay,
			Content:   content,
			World:     st,
			Scripting: eng,
			Rand:      system.NewRoller(7),
			Log:       log,
		}),
		Verifier: auth.NewVerifier(cfg.Auth.Secret),
		Limiter:  auth.NewLimiter(cfg.RateLimit.AuthAttemptsPerWindow, cfg.RateLimit.AuthWindow, cfg.RateLimit.AuthBlock),
		Store:    store,
	}

	srv, err := net.NewServer(cfg.Network.BindAddress, net.NewSessionConfig(cfg.Network, cfg.RateLimit), NewRouter(deps), log)
	require.NoError(t, err)
	go srv.AcceptLoop()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	return &zone{
		srv:    srv,
		issuer: auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL),
		store:  store,
		deps:   deps,
	}
}

func (z *zone) token(t *testing.T, name string) string {
	t.Helper()
	tok, _, err := z.issuer.Issue(name)
	require.NoError(t, err)
	return tok
}

// pushes may arrive between a request and its reply at any time.
var pushCommands = map[string]bool{
	"PLAYER_JOINED": true,
	"PLAYER_MOVED":  true,
	"PLAYER_LEFT":   true,
	"CHAT_MESSAGE":  true,
	"PVP_HIT":       true,

	"PARTY_INVITE":    true,
	"PARTY_UPDATE":    true,
	"PARTY_DISSOLVED": true,
}

type reply struct {
	Command string          `json:"command"`
	Payload json.RawMessage `json:"payload"`
}

func (r reply) fields(t *testing.T) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(r.Payload, &m), "payload of %s", r.Command)
	return m
}

type client struct {
	conn stdnet.Conn
	r    *bufio.Reader
}

func (z *zone) dial(t *testing.T) *client {
	t.Helper()
	conn, err := stdnet.Dial("tcp", z.srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	c := &client{conn: conn, r: bufio.NewReader(conn)}
	c.expect(t, "AUTH_REQUIRED")
	return c
}

// login authenticates name and consumes AUTH_OK, ENTER_OK and STATE.
func (z *zone) login(t *testing.T, name, class string) *client {
	t.Helper()
	c := z.dial(t)
	c.send(t, "AUTH_TOKEN", map[string]any{"token": z.token(t, name), "class": class})
	c.expect(t, "AUTH_OK")
	c.expect(t, "ENTER_OK")
	c.expect(t, "STATE")
	return c
}

func (c *client) sendRaw(t *testing.T, line string) {
	t.Helper()
	_, err := c.conn.Write([]byte(line + "\n"))
	require.NoError(t, err)
}

func (c *client) send(t *testing.T, command string, payload any) {
	t.Helper()
	b, err := json.Marshal(map[string]any{"command": command, "payload": payload})
	require.NoError(t, err)
	c.sendRaw(t, string(b))
}

func (c *client) read(t *testing.T) reply {
	t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	line, err := c.r.ReadBytes('\n')
	require.NoError(t, err)
	var r reply
	require.NoError(t, json.Unmarshal(line, &r))
	return r
}

// expect reads until command arrives, skipping unrelated pushes.
func (c *client) expect(t *testing.T, command string) reply {
	t.Helper()
	for {
		r := c.read(t)
		if r.Command == command {
			return r
		}
		require.True(t, pushCommands[r.Command], "want %s, got %s %s", command, r.Command, r.Payload)
	}
}

func (c *client) expectReason(t *testing.T, command, reason string) {
	t.Helper()
	assert.Equal(t, reason, c.expect(t, command).fields(t)["reason"])
}

// expectEOF waits for the server to close the connection.
func (c *client) expectEOF(t *testing.T) {
	t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, err := c.r.ReadBytes('\n')
		if err != nil {
			return
		}
	}
}
