package world

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

const MaxPartySize = 8

var (
	ErrPartyInvalidTarget = errors.New("cannot invite self")
	ErrPartyTargetInParty = errors.New("target already in a party")
	ErrNotPartyLeader     = errors.New("only the party leader can invite")
	ErrPartyFull          = errors.New("party is full")
	ErrNoPartyInvite      = errors.New("no pending party invite")
	ErrPartyInviteFrom    = errors.New("pending invite is from someone else")
	ErrAlreadyInParty     = errors.New("already in a party")
	ErrNotInParty         = errors.New("not in a party")
)

// PartyView is the member-facing snapshot of one party.
type PartyView struct {
	ID      string   `json:"id"`
	Leader  string   `json:"leader"`
	Members []string `json:"members"` // sorted
	Size    int      `json:"size"`
}

// PartyLeave describes the party after a member left it.
type PartyLeave struct {
	PartyID   string
	Dissolved bool
	Party     PartyView // zero when Dissolved
	Notify    []string  // members still to be told, including the last one of a dissolved party
}

type party struct {
	id      string
	leader  string
	members map[string]string // NameKey -> name
}

func (p *party) view() PartyView {
	names := make([]string, 0, len(p.members))
	for _, name := range p.members {
		names = append(names, name)
	}
	sort.Strings(names)
	return PartyView{ID: p.id, Leader: p.leader, Members: names, Size: len(names)}
}

// PartyManager tracks parties and pending invites by player name, any case.
// Safe for concurrent use.
type PartyManager struct {
	mu          sync.Mutex
	seq         int
	parties     map[string]*party // party id -> party
	playerParty map[string]string // NameKey -> party id
	invites     map[string]string // invitee NameKey -> inviter name
}

func NewPartyManager() *PartyManager {
	return &PartyManager{
		parties:     make(map[string]*party),
		playerParty: make(map[string]string),
		invites:     make(map[string]string),
	}
}

// Invite records an invite from inviter to target. An inviter already in a
// party must lead it. A newer invite replaces an older one.
func (m *PartyManager) Invite(inviter, target string) error {
	if NameKey(inviter) == NameKey(target) {
		return ErrPartyInvalidTarget
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.playerParty[NameKey(target)]; ok {
		return ErrPartyTargetInParty
	}
	if p := m.partyOfLocked(inviter); p != nil {
		if NameKey(p.leader) != NameKey(inviter) {
			return ErrNotPartyLeader
		}
		if len(p.members) >= MaxPartySize {
			return ErrPartyFull
		}
	}
	m.invites[NameKey(target)] = inviter
	return nil
}

// Accept joins target to the party of whoever invited it, forming a new
// party led by the inviter if there is none. from, when set, must name the
// inviter.
func (m *PartyManager) Accept(target, from string) (PartyView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tk := NameKey(target)
	inviter, ok := m.invites[tk]
	if !ok {
		return PartyView{}, ErrNoPartyInvite
	}
	if from != "" && NameKey(from) != NameKey(inviter) {
		return PartyView{}, ErrPartyInviteFrom
	}
	if _, in := m.playerParty[tk]; in {
		delete(m.invites, tk)
		return PartyView{}, ErrAlreadyInParty
	}

	p := m.partyOfLocked(inviter)
	if p == nil {
		m.seq++
		p = &party{
			id:      fmt.Sprintf("party_%d", m.seq),
			leader:  inviter,
			members: map[string]string{NameKey(inviter): inviter},
		}
		m.parties[p.id] = p
		m.playerParty[NameKey(inviter)] = p.id
	} else if len(p.members) >= MaxPartySize {
		return PartyView{}, ErrPartyFull
	}
	p.members[tk] = target
	m.playerParty[tk] = p.id
	delete(m.invites, tk)
	return p.view(), nil
}

// Leave removes member from its party. Leadership passes to the first
// remaining member by name; a party left with one member is dissolved.
func (m *PartyManager) Leave(member string) (PartyLeave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mk := NameKey(member)
	p := m.partyOfLocked(member)
	if p == nil {
		return PartyLeave{}, ErrNotInParty
	}
	delete(p.members, mk)
	delete(m.playerParty, mk)

	res := PartyLeave{PartyID: p.id}
	if len(p.members) < 2 {
		for k, name := range p.members {
			delete(m.playerParty, k)
			res.Notify = append(res.Notify, name)
		}
		delete(m.parties, p.id)
		res.Dissolved = true
		return res, nil
	}
	v := p.view()
	if NameKey(p.leader) == mk {
		p.leader = v.Members[0]
		v.Leader = p.leader
	}
	res.Party = v
	res.Notify = v.Members
	return res, nil
}

// PartyOf returns the party name belongs to.
func (m *PartyManager) PartyOf(name string) (PartyView, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.partyOfLocked(name)
	if p == nil {
		return PartyView{}, false
	}
	return p.view(), true
}

// ClearInvites drops invites sent to or by name.
func (m *PartyManager) ClearInvites(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := NameKey(name)
	delete(m.invites, k)
	for invitee, inviter := range m.invites {
		if NameKey(inviter) == k {
			delete(m.invites, invitee)
		}
	}
}

func (m *PartyManager) partyOfLocked(name string) *party {
	pid, ok := m.playerParty[NameKey(name)]
	if !ok {
		return nil
	}
	return m.parties[pid]
}
