package world

// Peer is the registry's handle on a live session. Push enqueues a server
// message for the session's client; Post hands an event to the session's
// worker and reports false when the worker's inbox is full. Both are safe to
// call from any goroutine and never block.
type Peer interface {
	ID() uint64
	Push(command string, payload any)
	Post(ev any) bool
}

// PvPHit is posted to a victim's worker, which applies the damage to its own
// Character.
type PvPHit struct {
	From    string
	Damage  int
	SkillID string
}

// AutosaveTick asks a worker to persist its Character.
type AutosaveTick struct{}
