package packet

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// SessionState represents the session's current protocol phase.
type SessionState int

const (
	StateUnauthenticated SessionState = iota // connected, greeting not yet sent
	StateAuthRequired                        // AUTH_REQUIRED sent, awaiting AUTH_TOKEN
	StateAuthPending                         // token being verified, character loading
	StateAuthenticated                       // AUTH_OK sent
	StateInWorld                             // playing
	StateDisconnecting
)

func (s SessionState) String() string {
	switch s {
	case StateUnauthenticated:
		return "Unauthenticated"
	case StateAuthRequired:
		return "AuthRequired"
	case StateAuthPending:
		return "AuthPending"
	case StateAuthenticated:
		return "Authenticated"
	case StateInWorld:
		return "InWorld"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// HandlerFunc is the callback signature for command handlers.
// The session pointer is passed as an opaque interface to avoid import cycles.
type HandlerFunc func(sess any, r *Reader)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrHandlerPanic   = errors.New("handler panic")
)

// StateError reports a known command sent in a state that does not allow it.
type StateError struct {
	Command string
	State   SessionState
}

func (e *StateError) Error() string {
	return fmt.Sprintf("command %s not allowed in state %s", e.Command, e.State)
}

type handlerEntry struct {
	fn            HandlerFunc
	allowedStates map[SessionState]bool
}

// Registry maps command names to handlers with state-based access control.
type Registry struct {
	handlers map[string]*handlerEntry
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[string]*handlerEntry),
		log:      log,
	}
}

// Register maps a command to a handler, restricted to the given session states.
func (reg *Registry) Register(command string, states []SessionState, fn HandlerFunc) {
	allowed := make(map[SessionState]bool, len(states))
	for _, s := range states {
		allowed[s] = true
	}
	reg.handlers[command] = &handlerEntry{
		fn:            fn,
		allowedStates: allowed,
	}
}

// Has reports whether command is registered.
func (reg *Registry) Has(command string) bool {
	_, ok := reg.handlers[command]
	return ok
}

// Dispatch finds the handler for req, validates the session state and calls
// the handler. Unknown commands return ErrUnknownCommand, disallowed states
// a *StateError, and a recovered panic wraps ErrHandlerPanic.
func (reg *Registry) Dispatch(sess any, state SessionState, req *Request) error {
	reg.log.Debug("收到指令",
		zap.String("command", req.Command),
		zap.String("state", state.String()),
	)

	entry, ok := reg.handlers[req.Command]
	if !ok {
		reg.log.Debug("未知指令", zap.String("command", req.Command), zap.String("state", state.String()))
		return ErrUnknownCommand
	}

	if !entry.allowedStates[state] {
		reg.log.Debug("指令在此狀態下不允許",
			zap.String("command", req.Command),
			zap.String("state", state.String()),
		)
		return &StateError{Command: req.Command, State: state}
	}

	return reg.safeCall(entry.fn, sess, NewReader(req), req.Command)
}

// safeCall executes a handler with panic recovery so a single bad command
// cannot take down the session's worker.
func (reg *Registry) safeCall(fn HandlerFunc, sess any, r *Reader, command string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("處理器 panic 已恢復",
				zap.String("command", command),
				zap.Any("panic", rec),
				zap.Stack("stack"),
			)
			err = fmt.Errorf("%w for %s: %v", ErrHandlerPanic, command, rec)
		}
	}()
	fn(sess, r)
	return nil
}
