package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterBlocksAfterAllowance(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewLimiter(3, time.Minute, 2*time.Minute)
	l.now = fixedClock(now)

	for i := 0; i < 3; i++ {
		ok, _ := l.Allow("10.0.0.1")
		assert.True(t, ok, "attempt %d", i+1)
	}
	ok, wait := l.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, 2*time.Minute, wait)

	// other peers are unaffected
	ok, _ = l.Allow("10.0.0.2")
	assert.True(t, ok)

	// still blocked a minute later, free after the block expires
	l.now = fixedClock(now.Add(time.Minute))
	ok, wait = l.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, time.Minute, wait)

	l.now = fixedClock(now.Add(2*time.Minute + time.Second))
	ok, _ = l.Allow("10.0.0.1")
	assert.True(t, ok)
}

func TestLimiterReset(t *testing.T) {
	l := NewLimiter(1, time.Minute, time.Minute)
	ok, _ := l.Allow("peer")
	assert.True(t, ok)
	ok, _ = l.Allow("peer")
	assert.False(t, ok)

	l.Reset("peer")
	ok, _ = l.Allow("peer")
	assert.True(t, ok)
}

func TestPeerKey(t *testing.T) {
	tests := map[string]string{
		"127.0.0.1:5555": "127.0.0.1",
		"[::1]:7777":     "::1",
		" pipe ":         "pipe",
	}
	for in, want := range tests {
		assert.Equal(t, want, PeerKey(in), in)
	}
}
