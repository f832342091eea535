package login

import (
	"bufio"
	"context"
	"encoding/json"
	stdnet "net"
	"testing"
	"time"

	"github.com/a3zone/server/internal/auth"
	"github.com/a3zone/server/internal/config"
	"github.com/a3zone/server/internal/net"
	"github.com/a3zone/server/internal/persist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const secret = "login-test-secret"

type loginClient struct {
	conn stdnet.Conn
	r    *bufio.Reader
}

func startLogin(t *testing.T, autoCreate bool, attempts int) (*loginClient, *persist.MemoryAccounts) {
	t.Helper()
	log := zaptest.NewLogger(t)
	cfg := config.Defaults()
	cfg.Login.AutoCreateAccounts = autoCreate

	accounts := persist.NewMemoryAccounts()
	svc := NewService(cfg.Login, auth.NewIssuer(secret, time.Minute),
		auth.NewLimiter(attempts, time.Minute, time.Minute), accounts, log)

	srv, err := net.NewServer("127.0.0.1:0", net.NewSessionConfig(cfg.Network, cfg.RateLimit), svc, log)
	require.NoError(t, err)
	go srv.AcceptLoop()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	conn, err := stdnet.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &loginClient{conn: conn, r: bufio.NewReader(conn)}, accounts
}

func (c *loginClient) roundTrip(t *testing.T, command string, payload any) (string, map[string]any) {
	t.Helper()
	b, err := json.Marshal(map[string]any{"command": command, "payload": payload})
	require.NoError(t, err)
	_, err = c.conn.Write(append(b, '\n'))
	require.NoError(t, err)

	c.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	line, err := c.r.ReadBytes('\n')
	require.NoError(t, err)
	var resp struct {
		Command string         `json:"command"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(line, &resp))
	return resp.Command, resp.Payload
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	c, accounts := startLogin(t, true, 10)

	cmd, _ := c.roundTrip(t, "PING", nil)
	assert.Equal(t, "PONG", cmd)

	cmd, p := c.roundTrip(t, "LOGIN", map[string]any{"username": "SmokeHero", "password": "demo"})
	require.Equal(t, "LOGIN_OK", cmd)
	assert.Equal(t, "SmokeHero", p["username"])

	claims, err := auth.NewVerifier(secret).Verify(p["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "SmokeHero", claims.Username)

	_, err = accounts.Load(context.Background(), "smokehero")
	assert.NoError(t, err)

	// second login checks the stored password
	cmd, p = c.roundTrip(t, "LOGIN", map[string]any{"username": "smokehero", "password": "wrong"})
	assert.Equal(t, "LOGIN_REJECTED", cmd)
	assert.Equal(t, "INVALID_CREDENTIALS", p["reason"])
	cmd, _ = c.roundTrip(t, "LOGIN", map[string]any{"username": "SmokeHero", "password": "demo"})
	assert.Equal(t, "LOGIN_OK", cmd)
}

func TestLoginTokenKeepsAccountSpelling(t *testing.T) {
	c, _ := startLogin(t, true, 10)

	cmd, _ := c.roundTrip(t, "LOGIN", map[string]any{"username": "SmokeHero", "password": "demo"})
	require.Equal(t, "LOGIN_OK", cmd)

	cmd, p := c.roundTrip(t, "LOGIN", map[string]any{"username": "smokehero", "password": "demo"})
	require.Equal(t, "LOGIN_OK", cmd)
	assert.Equal(t, "SmokeHero", p["username"])
	claims, err := auth.NewVerifier(secret).Verify(p["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "SmokeHero", claims.Username)
}

func TestLoginRejections(t *testing.T) {
	tests := map[string]struct {
		payload map[string]any
		reason  string
	}{
		"missing password": {payload: map[string]any{"username": "a"}, reason: "BAD_REQUEST"},
		"missing username": {payload: map[string]any{"password": "x"}, reason: "BAD_REQUEST"},
		"spaces in name":   {payload: map[string]any{"username": "a b", "password": "x"}, reason: "BAD_REQUEST"},
		"unknown account":  {payload: map[string]any{"username": "nobody", "password": "x"}, reason: "INVALID_CREDENTIALS"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			c, _ := startLogin(t, false, 10)
			cmd, p := c.roundTrip(t, "LOGIN", tc.payload)
			assert.Equal(t, "LOGIN_REJECTED", cmd)
			assert.Equal(t, tc.reason, p["reason"])
		})
	}
}

func TestLoginAttemptLimit(t *testing.T) {
	c, accounts := startLogin(t, false, 2)
	_, err := accounts.Create(context.Background(), "alice", "right", "")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, p := c.roundTrip(t, "LOGIN", map[string]any{"username": "alice", "password": "wrong"})
		assert.Equal(t, "INVALID_CREDENTIALS", p["reason"])
	}
	cmd, p := c.roundTrip(t, "LOGIN", map[string]any{"username": "alice", "password": "right"})
	assert.Equal(t, "LOGIN_REJECTED", cmd)
	assert.Equal(t, "TOO_MANY_ATTEMPTS", p["reason"])
	assert.Positive(t, p["retry_after_sec"])
}
