package auth

import (
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const prunePeersAbove = 4096

type peerWindow struct {
	lim          *rate.Limiter
	blockedUntil time.Time
	lastSeen     time.Time
}

// Limiter throttles authentication attempts per remote peer. A peer that
// exhausts its allowance is blocked for a fixed period.
type Limiter struct {
	mu    sync.Mutex
	peers map[string]*peerWindow
	every rate.Limit
	burst int
	ttl   time.Duration
	block time.Duration
	now   func() time.Time
}

// NewLimiter allows attempts per window, refilling evenly, and blocks a peer
// for block once the allowance is exceeded.
func NewLimiter(attempts int, window, block time.Duration) *Limiter {
	if attempts <= 0 {
		attempts = 1
	}
	return &Limiter{
		peers: make(map[string]*peerWindow),
		every: rate.Every(window / time.Duration(attempts)),
		burst: attempts,
		ttl:   window + block,
		block: block,
		now:   time.Now,
	}
}

// Allow records one attempt for peer. When denied it returns how long the
// peer has to wait.
func (l *Limiter) Allow(peer string) (bool, time.Duration) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.peers) > prunePeersAbove {
		l.pruneLocked(now)
	}
	w := l.peers[peer]
	if w == nil {
		w = &peerWindow{lim: rate.NewLimiter(l.every, l.burst)}
		l.peers[peer] = w
	}
	w.lastSeen = now

	if now.Before(w.blockedUntil) {
		return false, w.blockedUntil.Sub(now)
	}
	if !w.lim.AllowN(now, 1) {
		w.blockedUntil = now.Add(l.block)
		return false, l.block
	}
	return true, 0
}

// Reset forgets a peer, e.g. after a successful authentication.
func (l *Limiter) Reset(peer string) {
	l.mu.Lock()
	delete(l.peers, peer)
	l.mu.Unlock()
}

func (l *Limiter) pruneLocked(now time.Time) {
	for k, w := range l.peers {
		if now.Sub(w.lastSeen) > l.ttl && now.After(w.blockedUntil) {
			delete(l.peers, k)
		}
	}
}

// PeerKey reduces a remote address to the host part.
func PeerKey(remoteAddr string) string {
	remoteAddr = strings.TrimSpace(remoteAddr)
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil || host == "" {
		return remoteAddr
	}
	return host
}
