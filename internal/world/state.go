package world

import (
	"errors"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/a3zone/server/internal/data"
	"go.uber.org/zap"
)

var (
	ErrAlreadyOnline = errors.New("player already online")
	ErrMobNotFound   = errors.New("mob not found")
)

// RespawnPolicy decides what happens to a defeated mob.
type RespawnPolicy int

const (
	RespawnTimer   RespawnPolicy = iota // restore after the mob's respawn delay
	RespawnPersist                      // stay defeated until restart
)

// ParseRespawnPolicy maps the config value onto a policy; unknown values
// fall back to RespawnTimer.
func ParseRespawnPolicy(s string) RespawnPolicy {
	if s == "persist" {
		return RespawnPersist
	}
	return RespawnTimer
}

// respawnJitter is the max offset applied to x and z on respawn.
const respawnJitter = 2

// PlayerSnapshot is the published, read-only view of an in-world player.
type PlayerSnapshot struct {
	Name     string   `json:"name"`
	Class    string   `json:"class"`
	Level    int      `json:"level"`
	WorldID  int      `json:"world"`
	Position Position `json:"position"`
	HP       int      `json:"hp"`
	MaxHP    int      `json:"max_hp"`
	Downed   bool     `json:"downed"`
	Guild    string   `json:"guild,omitempty"`
}

// PlayerEntry is one registry slot: the latest snapshot plus the peer handle.
type PlayerEntry struct {
	peer Peer

	mu   sync.RWMutex
	snap PlayerSnapshot
}

func (e *PlayerEntry) Peer() Peer {
	return e.peer
}

func (e *PlayerEntry) Snapshot() PlayerSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap
}

// EntityView is one row of an entity listing.
type EntityView struct {
	ID       string   `json:"id"`
	Kind     string   `json:"kind"` // "player", "npc" or "mob"
	Name     string   `json:"name"`
	Position Position `json:"position"`
	Level    int      `json:"level,omitempty"`
	HP       int      `json:"hp,omitempty"`
	MaxHP    int      `json:"max_hp,omitempty"`
	Alive    bool     `json:"alive"`
}

// Entities is a visibility-filtered listing for one observer.
type Entities struct {
	Players []EntityView `json:"players"`
	NPCs    []EntityView `json:"npcs"`
	Mobs    []EntityView `json:"mobs"`
}

// State is the shared world registry. Players, mobs and the unlock history
// each have their own lock; world and NPC data are immutable.
type State struct {
	Parties *PartyManager
	Guilds  *GuildManager

	content *data.Content
	radius  float64
	policy  RespawnPolicy
	log     *zap.Logger

	mu      sync.RWMutex
	players map[string]*PlayerEntry // keyed by NameKey
	grid    *aoiGrid

	mobs        map[string]*Mob
	mobsByWorld map[int][]*Mob
	npcsByWorld map[int][]data.NpcSpawn

	histMu  sync.RWMutex
	history map[int]string // world id -> first player to unlock it

	timerMu      sync.Mutex
	timers       map[string]*time.Timer
	closed       bool
	rng          *rand.Rand
	respawnDelay func(m *Mob) time.Duration
}

// NewState spawns every mob and NPC from content.
func NewState(c *data.Content, radius float64, policy RespawnPolicy, log *zap.Logger) *State {
	s := &State{
		Parties:     NewPartyManager(),
		Guilds:      NewGuildManager(),
		content:     c,
		radius:      radius,
		policy:      policy,
		log:         log,
		players:     make(map[string]*PlayerEntry),
		grid:        newAOIGrid(radius),
		mobs:        make(map[string]*Mob, len(c.Spawns.Mobs)),
		mobsByWorld: make(map[int][]*Mob),
		npcsByWorld: make(map[int][]data.NpcSpawn),
		history:     make(map[int]string),
		timers:      make(map[string]*time.Timer),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		respawnDelay: func(m *Mob) time.Duration {
			return time.Duration(m.RespawnSec) * time.Second
		},
	}
	for _, spawn := range c.Spawns.Mobs {
		m := newMob(spawn)
		s.mobs[m.ID] = m
		s.mobsByWorld[m.WorldID] = append(s.mobsByWorld[m.WorldID], m)
	}
	for _, npc := range c.Spawns.Npcs {
		s.npcsByWorld[npc.WorldID] = append(s.npcsByWorld[npc.WorldID], npc)
	}
	return s
}

// World returns the world definition, or nil.
func (s *State) World(id int) *data.WorldInfo {
	return s.content.Worlds.Get(id)
}

// Radius is the visibility radius.
func (s *State) Radius() float64 {
	return s.radius
}

// Visible reports whether two positions in the same world see each other.
func (s *State) Visible(a, b Position) bool {
	return a.DistanceTo(b) <= s.radius
}

// --- players ---

// AddPlayer registers an in-world player. A name can be online only once,
// whatever its case.
func (s *State) AddPlayer(snap PlayerSnapshot, peer Peer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := NameKey(snap.Name)
	if _, ok := s.players[key]; ok {
		return ErrAlreadyOnline
	}
	e := &PlayerEntry{peer: peer, snap: snap}
	s.players[key] = e
	s.grid.add(e, snap)
	return nil
}

// RemovePlayer drops name if it is still registered to peer.
func (s *State) RemovePlayer(name string, peer Peer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := NameKey(name)
	e, ok := s.players[key]
	if !ok || e.peer.ID() != peer.ID() {
		return false
	}
	delete(s.players, key)
	s.grid.remove(e.Snapshot())
	return true
}

// Player returns the registry entry for name (any case), or nil when offline.
func (s *State) Player(name string) *PlayerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.players[NameKey(name)]
}

// PublishPlayer replaces the snapshot other sessions observe. The registry
// write lock is only taken when the player changes grid cell.
func (s *State) PublishPlayer(snap PlayerSnapshot) {
	key := NameKey(snap.Name)
	s.mu.RLock()
	e := s.players[key]
	if e == nil {
		s.mu.RUnlock()
		return
	}
	e.mu.Lock()
	sameCell := s.grid.key(e.snap.WorldID, e.snap.Position) == s.grid.key(snap.WorldID, snap.Position)
	if sameCell {
		e.snap = snap
	}
	e.mu.Unlock()
	s.mu.RUnlock()
	if sameCell {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.players[key] != e {
		return
	}
	e.mu.Lock()
	old := e.snap
	e.snap = snap
	e.mu.Unlock()
	s.grid.move(e, old, snap)
}

func (s *State) PlayerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players)
}

// ForEachPlayer calls fn for every registered player. fn runs outside the
// registry lock.
func (s *State) ForEachPlayer(fn func(*PlayerEntry)) {
	s.mu.RLock()
	entries := make([]*PlayerEntry, 0, len(s.players))
	for _, e := range s.players {
		entries = append(entries, e)
	}
	s.mu.RUnlock()
	for _, e := range entries {
		fn(e)
	}
}

// OnlinePlayers returns every player's snapshot ordered by name.
func (s *State) OnlinePlayers() []PlayerSnapshot {
	var out []PlayerSnapshot
	s.ForEachPlayer(func(e *PlayerEntry) {
		out = append(out, e.Snapshot())
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// PlayersNear returns the players in worldID, other than exclude, that sit in
// the grid cells around any of the given positions. Candidates may still be
// out of range; check Visible on their snapshots.
func (s *State) PlayersNear(worldID int, exclude string, around ...Position) []*PlayerEntry {
	found := make(map[string]*PlayerEntry)
	s.mu.RLock()
	for _, pos := range around {
		s.grid.nearby(worldID, pos, found)
	}
	s.mu.RUnlock()
	delete(found, exclude)

	out := make([]*PlayerEntry, 0, len(found))
	for _, e := range found {
		out = append(out, e)
	}
	return out
}

// --- mobs ---

// EngageMob runs fn while holding the mob's lock. The mob must live in
// worldID. A mob brought from alive to zero hp inside fn is handed to the
// respawn policy.
func (s *State) EngageMob(worldID int, id string, fn func(m *Mob) error) error {
	m, ok := s.mobs[id]
	if !ok || m.WorldID != worldID {
		return ErrMobNotFound
	}
	m.mu.Lock()
	wasAlive := m.Alive()
	err := fn(m)
	defeated := wasAlive && !m.Alive()
	m.mu.Unlock()

	if defeated {
		s.scheduleRespawn(m)
	}
	return err
}

// Mob returns a copy of the mob's current state.
func (s *State) Mob(id string) (MobView, bool) {
	m, ok := s.mobs[id]
	if !ok {
		return MobView{}, false
	}
	return m.view(), true
}

func (s *State) scheduleRespawn(m *Mob) {
	if s.policy == RespawnPersist {
		s.log.Debug("mob defeated, respawn disabled", zap.String("mob", m.ID))
		return
	}
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.closed {
		return
	}
	if t, ok := s.timers[m.ID]; ok {
		t.Stop()
	}
	s.timers[m.ID] = time.AfterFunc(s.respawnDelay(m), func() { s.respawn(m) })
}

func (s *State) respawn(m *Mob) {
	s.timerMu.Lock()
	if s.closed {
		s.timerMu.Unlock()
		return
	}
	delete(s.timers, m.ID)
	dx := float64(s.rng.Intn(2*respawnJitter+1) - respawnJitter)
	dz := float64(s.rng.Intn(2*respawnJitter+1) - respawnJitter)
	s.timerMu.Unlock()

	pos := Position{X: m.home.X + dx, Y: m.home.Y, Z: m.home.Z + dz}
	if w := s.World(m.WorldID); w != nil && !w.Bounds.Contains(data.Point(pos)) {
		pos = m.home
	}

	m.mu.Lock()
	m.hp = m.MaxHP
	m.position = pos
	m.mu.Unlock()
	s.log.Debug("mob respawned", zap.String("mob", m.ID))
}

// --- listings ---

// Entities lists what an observer at pos in worldID can see. self is left
// out of the player list. The result is built fresh on every call.
func (s *State) Entities(worldID int, pos Position, self string) Entities {
	out := Entities{Players: []EntityView{}, NPCs: []EntityView{}, Mobs: []EntityView{}}

	for _, e := range s.PlayersNear(worldID, self, pos) {
		p := e.Snapshot()
		if !s.Visible(pos, p.Position) {
			continue
		}
		out.Players = append(out.Players, EntityView{
			ID: p.Name, Kind: "player", Name: p.Name, Position: p.Position,
			Level: p.Level, HP: p.HP, MaxHP: p.MaxHP, Alive: !p.Downed,
		})
	}
	sort.Slice(out.Players, func(i, j int) bool { return out.Players[i].Name < out.Players[j].Name })

	for _, n := range s.npcsByWorld[worldID] {
		np := Position(n.Position)
		if !s.Visible(pos, np) {
			continue
		}
		out.NPCs = append(out.NPCs, EntityView{ID: n.ID, Kind: "npc", Name: n.Name, Position: np, Alive: true})
	}

	for _, m := range s.mobsByWorld[worldID] {
		v := m.view()
		if v.HP <= 0 || !s.Visible(pos, v.Position) {
			continue
		}
		out.Mobs = append(out.Mobs, EntityView{
			ID: v.ID, Kind: "mob", Name: v.Name, Position: v.Position,
			Level: v.Level, HP: v.HP, MaxHP: v.MaxHP, Alive: true,
		})
	}
	return out
}

// NPCByName finds an NPC by display name.
func (s *State) NPCByName(name string) (data.NpcSpawn, bool) {
	if n := s.content.NPC(name); n != nil {
		return *n, true
	}
	return data.NpcSpawn{}, false
}

// --- unlock history ---

// RecordUnlock records player as the first to unlock worldID. It returns
// false when someone got there first.
func (s *State) RecordUnlock(worldID int, player string) bool {
	s.histMu.Lock()
	defer s.histMu.Unlock()
	if _, ok := s.history[worldID]; ok {
		return false
	}
	s.history[worldID] = player
	return true
}

// UnlockHistory returns a copy of the first-unlock records.
func (s *State) UnlockHistory() map[int]string {
	s.histMu.RLock()
	defer s.histMu.RUnlock()
	out := make(map[int]string, len(s.history))
	for k, v := range s.history {
		out[k] = v
	}
	return out
}

// Close cancels pending respawns.
func (s *State) Close() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}
