package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/a3zone/server/internal/world"
)

// MemoryStore keeps characters in process memory. Documents are stored
// encoded so a saved character never aliases a live one.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, name string) (*world.Character, error) {
	s.mu.RLock()
	doc, ok := s.docs[characterKey(name)]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	c := &world.Character{}
	if err := json.Unmarshal(doc, c); err != nil {
		return nil, fmt.Errorf("decode character %s: %w", name, err)
	}
	c.Normalize()
	return c, nil
}

func (s *MemoryStore) Save(_ context.Context, c *world.Character) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode character %s: %w", c.Name, err)
	}
	s.mu.Lock()
	s.docs[characterKey(c.Name)] = doc
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// MemoryAccounts is the in-memory account store used without a database.
type MemoryAccounts struct {
	mu       sync.Mutex
	accounts map[string]*AccountRow
}

func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{accounts: make(map[string]*AccountRow)}
}

func (m *MemoryAccounts) Load(_ context.Context, name string) (*AccountRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountKey(name)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryAccounts) Create(_ context.Context, name, rawPassword, ip string) (*AccountRow, error) {
	hash, err := hashPassword(rawPassword)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := accountKey(name)
	if _, ok := m.accounts[key]; ok {
		return nil, fmt.Errorf("account %s already exists", name)
	}
	now := time.Now()
	a := &AccountRow{
		Name:         key,
		DisplayName:  strings.TrimSpace(name),
		PasswordHash: hash,
		CreatedAt:    now,
		LastLogin:    &now,
		LastIP:       ip,
	}
	m.accounts[key] = a
	cp := *a
	return &cp, nil
}

func (m *MemoryAccounts) RecordLogin(_ context.Context, name, ip string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[accountKey(name)]; ok {
		now := time.Now()
		a.LastLogin = &now
		a.LastIP = ip
	}
	return nil
}
