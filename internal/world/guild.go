package world

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"
)

const MaxGuildNameLen = 24

var (
	ErrGuildNameRequired = errors.New("guild name required")
	ErrGuildNameInvalid  = errors.New("guild name too long")
	ErrGuildExists       = errors.New("guild already exists")
	ErrGuildNotFound     = errors.New("guild not found")
)

// GuildSummary is one GUILD_LIST row.
type GuildSummary struct {
	Name        string `json:"name"`
	MemberCount int    `json:"member_count"`
}

type guild struct {
	name    string
	members map[string]string // NameKey -> name
}

// GuildManager is the in-memory guild roster. Guild names are unique
// regardless of case; a guild with no members is removed. Membership itself
// is saved on the character, and Register rebuilds the roster as members
// log back in. Safe for concurrent use.
type GuildManager struct {
	mu     sync.RWMutex
	guilds map[string]*guild // lowercase name -> guild
}

func NewGuildManager() *GuildManager {
	return &GuildManager{guilds: make(map[string]*guild)}
}

func guildKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func checkGuildName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrGuildNameRequired
	}
	if utf8.RuneCountInString(name) > MaxGuildNameLen {
		return "", ErrGuildNameInvalid
	}
	return name, nil
}

// Create founds a guild with member as its only member and returns the
// guild's name as stored.
func (m *GuildManager) Create(name, member string) (string, error) {
	name, err := checkGuildName(name)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.guilds[guildKey(name)]; ok {
		return "", ErrGuildExists
	}
	m.guilds[guildKey(name)] = &guild{name: name, members: map[string]string{NameKey(member): member}}
	return name, nil
}

// Join adds member to an existing guild and returns its stored name.
func (m *GuildManager) Join(name, member string) (string, error) {
	if _, err := checkGuildName(name); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.guilds[guildKey(name)]
	if !ok {
		return "", ErrGuildNotFound
	}
	g.members[NameKey(member)] = member
	return g.name, nil
}

// Leave removes member from the guild, dropping the guild once empty.
func (m *GuildManager) Leave(name, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := guildKey(name)
	g, ok := m.guilds[k]
	if !ok {
		return ErrGuildNotFound
	}
	delete(g.members, NameKey(member))
	if len(g.members) == 0 {
		delete(m.guilds, k)
	}
	return nil
}

// Register puts a returning member back on the roster, recreating the guild
// if this is the first of its members seen since startup.
func (m *GuildManager) Register(name, member string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.TrimSpace(member) == "" {
		return ""
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.guilds[guildKey(name)]
	if !ok {
		g = &guild{name: name, members: make(map[string]string)}
		m.guilds[guildKey(name)] = g
	}
	g.members[NameKey(member)] = member
	return g.name
}

// Members returns the guild's member names, sorted.
func (m *GuildManager) Members(name string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.guilds[guildKey(name)]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(g.members))
	for _, n := range g.members {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// List returns every guild sorted by name.
func (m *GuildManager) List() []GuildSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]GuildSummary, 0, len(m.guilds))
	for _, g := range m.guilds {
		out = append(out, GuildSummary{Name: g.name, MemberCount: len(g.members)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
