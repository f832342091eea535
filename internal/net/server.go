package net

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Server accepts TCP connections and runs one Session per connection.
// Other transports (the WebSocket gateway) hand their connections to Attach.
type Server struct {
	listener net.Listener
	nextID   atomic.Uint64
	cfg      SessionConfig
	handler  Handler
	log      *zap.Logger

	mu       sync.Mutex
	sessions map[uint64]*Session
	wg       sync.WaitGroup

	closeCh   chan struct{}
	closeOnce sync.Once
}

func NewServer(bindAddr string, cfg SessionConfig, h Handler, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	return newServer(ln, cfg, h, log), nil
}

func newServer(ln net.Listener, cfg SessionConfig, h Handler, log *zap.Logger) *Server {
	return &Server{
		listener: ln,
		cfg:      cfg,
		handler:  h,
		log:      log,
		sessions: make(map[uint64]*Session),
		closeCh:  make(chan struct{}),
	}
}

const (
	acceptBackoffMin = 5 * time.Millisecond
	acceptBackoffMax = time.Second
)

// AcceptLoop runs in its own goroutine until Shutdown. Failed accepts
// (EMFILE and the like) are retried with a doubling delay capped at 1s.
func (s *Server) AcceptLoop() {
	var backoff time.Duration
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return // server shutting down
			default:
			}
			if backoff == 0 {
				backoff = acceptBackoffMin
			} else {
				backoff = min(backoff*2, acceptBackoffMax)
			}
			s.log.Error("連線接受失敗", zap.Error(err), zap.Duration("retry_in", backoff))
			t := time.NewTimer(backoff)
			select {
			case <-s.closeCh:
				t.Stop()
				return
			case <-t.C:
			}
			continue
		}
		backoff = 0
		s.Attach(NewTCPTransport(conn, s.cfg.MaxLineBytes))
	}
}

// Attach starts a session on tr. Returns nil if the server is shutting down.
func (s *Server) Attach(tr Transport) *Session {
	s.mu.Lock()
	select {
	case <-s.closeCh:
		s.mu.Unlock()
		tr.Close()
		return nil
	default:
	}
	id := s.nextID.Add(1)
	sess := NewSession(tr, id, s.cfg, s.log)
	s.sessions[id] = sess
	s.wg.Add(1)
	s.mu.Unlock()

	s.log.Info("玩家連線", zap.Uint64("session", id), zap.String("ip", sess.IP))
	sess.Start(s.handler, func() {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		s.wg.Done()
		s.log.Info("玩家離線", zap.Uint64("session", id))
	})
	return sess
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown stops accepting, closes every session and waits for their
// workers (and so their OnClose saves) to finish, or for ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		close(s.closeCh)
		s.mu.Unlock()
		s.listener.Close()
	})

	s.mu.Lock()
	live := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		live = append(live, sess)
	}
	s.mu.Unlock()
	for _, sess := range live {
		sess.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
