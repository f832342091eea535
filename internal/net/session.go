package net

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/a3zone/server/internal/config"
	"github.com/a3zone/server/internal/net/packet"
	"github.com/a3zone/server/internal/world"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// OverflowPolicy decides what happens when a session's OutQueue is full.
type OverflowPolicy int

const (
	// OverflowDisconnect closes a session that cannot keep up.
	OverflowDisconnect OverflowPolicy = iota
	// OverflowDropOldest evicts the oldest queued line and tells the client
	// how many it missed with PUSH_DROPPED before the next delivered line.
	OverflowDropOldest
)

// ParseOverflowPolicy maps the config string onto a policy.
func ParseOverflowPolicy(s string) OverflowPolicy {
	if s == "drop_oldest" {
		return OverflowDropOldest
	}
	return OverflowDisconnect
}

// SessionConfig holds per-session queue sizes, limits and timeouts.
type SessionConfig struct {
	InQueueSize    int
	OutQueueSize   int
	EventQueueSize int
	MaxLineBytes   int
	AuthTimeout    time.Duration
	IdleTimeout    time.Duration
	WriteTimeout   time.Duration
	Policy         OverflowPolicy
	CommandsPerSec int // before authentication; 0 = unlimited
}

// NewSessionConfig builds a SessionConfig from the server configuration.
func NewSessionConfig(n config.NetworkConfig, rl config.RateLimitConfig) SessionConfig {
	perSec := 0
	if rl.Enabled {
		perSec = rl.CommandsPerSecondUnauth
	}
	return SessionConfig{
		InQueueSize:    n.InQueueSize,
		OutQueueSize:   n.OutQueueSize,
		EventQueueSize: n.EventQueueSize,
		MaxLineBytes:   n.MaxLineBytes,
		AuthTimeout:    n.AuthTimeout,
		IdleTimeout:    n.IdleTimeout,
		WriteTimeout:   n.WriteTimeout,
		Policy:         ParseOverflowPolicy(n.OverflowPolicy),
		CommandsPerSec: perSec,
	}
}

// Handler receives a session's traffic on the session's own worker
// goroutine, one call at a time, in arrival order.
type Handler interface {
	OnOpen(s *Session)
	OnLine(s *Session, line []byte)
	OnEvent(s *Session, ev any)
	OnClose(s *Session)
}

// Session represents a single client connection. The reader and writer run
// in their own goroutines; everything else (including the Character) is
// touched only by the worker goroutine.
type Session struct {
	ID uint64
	tr Transport

	cfg   SessionConfig
	state atomic.Int32 // packet.SessionState stored as int32

	// deadlineMu orders the reader's deadline arming against state changes,
	// so the deadline always matches the state that was current last.
	deadlineMu sync.Mutex

	InQueue  chan []byte // worker reads lines from here
	Events   chan any    // cross-session events, e.g. world.PvPHit
	OutQueue chan []byte // writer goroutine reads from here
	outMu    sync.Mutex  // serialises evict+enqueue under drop_oldest

	dropped atomic.Int64 // lines evicted over the session's life
	missed  atomic.Int64 // evicted since the last PUSH_DROPPED

	limiter *rate.Limiter

	IP          string
	AccountName string
	Character   *world.Character

	// Worker-owned counters.
	AuthFailures int
	Malformed    int

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	drainCh   chan struct{}
	drainOnce sync.Once
	doneCh    chan struct{}

	log *zap.Logger
}

func NewSession(tr Transport, id uint64, cfg SessionConfig, log *zap.Logger) *Session {
	s := &Session{
		ID:       id,
		tr:       tr,
		cfg:      cfg,
		InQueue:  make(chan []byte, cfg.InQueueSize),
		Events:   make(chan any, cfg.EventQueueSize),
		OutQueue: make(chan []byte, cfg.OutQueueSize),
		IP:       tr.RemoteAddr(),
		closeCh:  make(chan struct{}),
		drainCh:  make(chan struct{}),
		doneCh:   make(chan struct{}),
		log:      log.With(zap.Uint64("session", id)),
	}
	s.SetRateLimit(cfg.CommandsPerSec)
	s.state.Store(int32(packet.StateUnauthenticated))
	return s
}

func (s *Session) State() packet.SessionState {
	return packet.SessionState(s.state.Load())
}

// SetState moves the session to st. Crossing into Authenticated re-arms the
// pending read with the idle timeout; the reader armed it with the auth
// timeout before the worker got here.
func (s *Session) SetState(st packet.SessionState) {
	prev := packet.SessionState(s.state.Swap(int32(st)))
	if prev >= packet.StateAuthenticated || st < packet.StateAuthenticated || st == packet.StateDisconnecting {
		return
	}
	s.armReadDeadline()
}

// Log returns the session's child logger.
func (s *Session) Log() *zap.Logger {
	return s.log
}

// SetRateLimit changes the per-second command allowance. 0 is unlimited.
func (s *Session) SetRateLimit(perSec int) {
	if perSec <= 0 {
		s.limiter = rate.NewLimiter(rate.Inf, 0)
		return
	}
	s.limiter = rate.NewLimiter(rate.Limit(perSec), perSec)
}

// AllowCommand consumes one token of the command allowance.
func (s *Session) AllowCommand() bool {
	return s.limiter.Allow()
}

// Start launches the reader, worker and writer goroutines. done runs once
// after the handler's OnClose has returned.
func (s *Session) Start(h Handler, done func()) {
	go s.readLoop()
	go s.writeLoop()
	go func() {
		defer close(s.doneCh)
		if done != nil {
			defer done()
		}
		s.workLoop(h)
	}()
}

// Done is closed once the worker has finished, OnClose included.
func (s *Session) Done() <-chan struct{} {
	return s.doneCh
}

// ==================== 輸出 ====================

// Send encodes one server message and queues it for the writer. It never
// blocks; a full queue is handled by the overflow policy.
func (s *Session) Send(command string, payload any) {
	line, err := packet.Encode(command, payload)
	if err != nil {
		s.log.Error("訊息編碼失敗", zap.String("command", command), zap.Error(err))
		return
	}
	s.enqueue(line)
}

// Push implements world.Peer.
func (s *Session) Push(command string, payload any) {
	s.Send(command, payload)
}

// Post implements world.Peer: hand ev to this session's worker. Returns
// false when the inbox is full or the session is gone.
func (s *Session) Post(ev any) bool {
	if s.closed.Load() {
		return false
	}
	select {
	case s.Events <- ev:
		return true
	default:
		return false
	}
}

func (s *Session) enqueue(line []byte) {
	if s.closed.Load() {
		return
	}
	s.outMu.Lock()
	defer s.outMu.Unlock()

	select {
	case s.OutQueue <- line:
		return
	default:
	}

	if s.cfg.Policy != OverflowDropOldest {
		s.log.Warn("輸出佇列已滿，斷開慢速連線")
		s.Close()
		return
	}
	select {
	case <-s.OutQueue:
		s.dropped.Add(1)
		s.missed.Add(1)
	default:
	}
	select {
	case s.OutQueue <- line:
	default:
		s.dropped.Add(1)
		s.missed.Add(1)
	}
}

// Dropped returns how many lines the drop_oldest policy has evicted.
func (s *Session) Dropped() int64 {
	return s.dropped.Load()
}

// ==================== 關閉 ====================

// Close tears the session down immediately.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.SetState(packet.StateDisconnecting)
		close(s.closeCh)
		s.tr.Close()
	})
}

// CloseAfterFlush stops handling input and closes once the writer has sent
// everything already queued.
func (s *Session) CloseAfterFlush() {
	s.SetState(packet.StateDisconnecting)
	s.drainOnce.Do(func() { close(s.drainCh) })
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// ==================== goroutines ====================

// readLoop reads lines and hands them to the worker. The read deadline is
// the auth timeout until the session authenticates and the idle timeout
// afterwards.
func (s *Session) readLoop() {
	for {
		s.armReadDeadline()
		line, err := s.tr.ReadLine()
		if err != nil {
			switch {
			case s.closed.Load():
			case isTimeout(err):
				s.log.Info("連線逾時", zap.String("state", s.State().String()))
				s.Send("ERROR", packet.Reason{Reason: "TIMEOUT"})
				s.CloseAfterFlush()
			case errors.Is(err, ErrLineTooLong):
				s.log.Warn("單行過長，斷開連線", zap.Int("max", s.cfg.MaxLineBytes))
				s.Send("ERROR", packet.Reason{Reason: "LINE_TOO_LONG"})
				s.CloseAfterFlush()
			case errors.Is(err, io.EOF):
				s.log.Debug("客戶端關閉連線")
				s.Close()
			default:
				s.log.Debug("讀取錯誤", zap.Error(err))
				s.Close()
			}
			return
		}

		// Block until the worker has room or the session closes. Blocking
		// only stalls this client's reader.
		select {
		case s.InQueue <- line:
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) armReadDeadline() {
	s.deadlineMu.Lock()
	defer s.deadlineMu.Unlock()
	s.tr.SetReadDeadline(s.readDeadline())
}

func (s *Session) readDeadline() time.Time {
	d := s.cfg.IdleTimeout
	if s.State() < packet.StateAuthenticated {
		d = s.cfg.AuthTimeout
	}
	if d <= 0 {
		return time.Time{}
	}
	return time.Now().Add(d)
}

// workLoop is the only goroutine that runs handler code for this session.
func (s *Session) workLoop(h Handler) {
	h.OnOpen(s)
	defer h.OnClose(s)
	for {
		select {
		case line := <-s.InQueue:
			if s.State() == packet.StateDisconnecting {
				continue
			}
			h.OnLine(s, line)
		case ev := <-s.Events:
			if s.State() == packet.StateDisconnecting {
				continue
			}
			h.OnEvent(s, ev)
		case <-s.closeCh:
			return
		}
	}
}

// writeLoop drains OutQueue to the transport.
func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case line := <-s.OutQueue:
			if !s.writeOne(line) {
				return
			}
		case <-s.drainCh:
			for {
				select {
				case line := <-s.OutQueue:
					if !s.writeOne(line) {
						return
					}
				default:
					return
				}
			}
		case <-s.closeCh:
			return
		}
	}
}

// writeOne writes one line, preceded by a PUSH_DROPPED notice if lines were
// evicted since the last write.
func (s *Session) writeOne(line []byte) bool {
	if n := s.missed.Swap(0); n > 0 {
		notice, _ := packet.Encode("PUSH_DROPPED", map[string]int64{"missed": n})
		if !s.write(notice) {
			return false
		}
	}
	return s.write(line)
}

func (s *Session) write(line []byte) bool {
	if s.cfg.WriteTimeout > 0 {
		s.tr.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	if err := s.tr.WriteLine(line); err != nil {
		if !s.closed.Load() {
			s.log.Debug("寫入錯誤", zap.Error(err))
		}
		return false
	}
	return true
}

func (s *Session) String() string {
	return fmt.Sprintf("session=%d ip=%s", s.ID, s.IP)
}
