package system

import (
	"errors"

	"github.com/a3zone/server/internal/world"
	"go.uber.org/zap"
)

var socialReasons = map[error]string{
	world.ErrPartyInvalidTarget: ReasonInvalidTarget,
	world.ErrPartyTargetInParty: ReasonTargetInParty,
	world.ErrNotPartyLeader:     ReasonNotPartyLeader,
	world.ErrPartyFull:          ReasonPartyFull,
	world.ErrNoPartyInvite:      ReasonNoInvite,
	world.ErrPartyInviteFrom:    ReasonInviteMismatch,
	world.ErrAlreadyInParty:     ReasonAlreadyInParty,
	world.ErrNotInParty:         ReasonNotInParty,
	world.ErrGuildNameRequired:  ReasonGuildNameNeeded,
	world.ErrGuildNameInvalid:   ReasonGuildNameInvalid,
	world.ErrGuildExists:        ReasonGuildExists,
	world.ErrGuildNotFound:      ReasonGuildNotFound,
}

// socialRejection turns a party or guild registry error into a Rejection.
func socialRejection(err error) error {
	for target, reason := range socialReasons {
		if errors.Is(err, target) {
			return reject(reason)
		}
	}
	return err
}

// PartyInvite is the PARTY_INVITE_SENT payload.
type PartyInvite struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// GuildChange is the GUILD_OK payload.
type GuildChange struct {
	Action  string `json:"action"` // "create", "join" or "leave"
	Guild   string `json:"guild"`
	Member  string `json:"member"`
	Members int    `json:"members"`
}

// GuildList is the GUILD_LIST payload.
type GuildList struct {
	Guilds []world.GuildSummary `json:"guilds"`
	Count  int                  `json:"count"`
}

// SocialSystem 負責隊伍與公會規則。隊伍只存在於記憶體；公會成員身分存在角色上。
type SocialSystem struct {
	env *Env
}

func NewSocialSystem(env *Env) *SocialSystem {
	return &SocialSystem{env: env}
}

// Invite asks target, who must be online, to join c's party.
func (s *SocialSystem) Invite(c *world.Character, target string) (*PartyInvite, *world.PlayerEntry, error) {
	if target == "" {
		return nil, nil, reject(ReasonTargetRequired)
	}
	e := s.env.World.Player(target)
	if e == nil {
		return nil, nil, reject(ReasonTargetOffline)
	}
	to := e.Snapshot().Name
	if err := s.env.World.Parties.Invite(c.Name, to); err != nil {
		return nil, nil, socialRejection(err)
	}
	s.env.Log.Debug("隊伍邀請", zap.String("from", c.Name), zap.String("to", to))
	return &PartyInvite{From: c.Name, To: to}, e, nil
}

// Accept takes up the pending invite; from may be empty.
func (s *SocialSystem) Accept(c *world.Character, from string) (world.PartyView, error) {
	v, err := s.env.World.Parties.Accept(c.Name, from)
	if err != nil {
		return world.PartyView{}, socialRejection(err)
	}
	s.env.Log.Info("加入隊伍", zap.String("name", c.Name), zap.String("party", v.ID))
	return v, nil
}

// Leave takes c out of its party.
func (s *SocialSystem) Leave(c *world.Character) (world.PartyLeave, error) {
	res, err := s.env.World.Parties.Leave(c.Name)
	if err != nil {
		return world.PartyLeave{}, socialRejection(err)
	}
	s.env.Log.Info("離開隊伍", zap.String("name", c.Name), zap.String("party", res.PartyID), zap.Bool("dissolved", res.Dissolved))
	return res, nil
}

// Disconnect drops c's invites and party membership. ok is false when c was
// not in a party.
func (s *SocialSystem) Disconnect(c *world.Character) (res world.PartyLeave, ok bool) {
	s.env.World.Parties.ClearInvites(c.Name)
	res, err := s.env.World.Parties.Leave(c.Name)
	return res, err == nil
}

// Rejoin puts a character that saved a guild back on the roster.
func (s *SocialSystem) Rejoin(c *world.Character) {
	if c.Guild != "" {
		c.Guild = s.env.World.Guilds.Register(c.Guild, c.Name)
	}
}

func (s *SocialSystem) CreateGuild(c *world.Character, name string) (*GuildChange, error) {
	if c.Guild != "" {
		return nil, reject(ReasonAlreadyInGuild)
	}
	stored, err := s.env.World.Guilds.Create(name, c.Name)
	if err != nil {
		return nil, socialRejection(err)
	}
	c.Guild = stored
	s.env.Log.Info("建立公會", zap.String("guild", stored), zap.String("founder", c.Name))
	return s.change("create", c.Name, stored), nil
}

func (s *SocialSystem) JoinGuild(c *world.Character, name string) (*GuildChange, error) {
	if c.Guild != "" {
		return nil, reject(ReasonAlreadyInGuild)
	}
	stored, err := s.env.World.Guilds.Join(name, c.Name)
	if err != nil {
		return nil, socialRejection(err)
	}
	c.Guild = stored
	return s.change("join", c.Name, stored), nil
}

func (s *SocialSystem) LeaveGuild(c *world.Character) (*GuildChange, error) {
	if c.Guild == "" {
		return nil, reject(ReasonNotInGuild)
	}
	name := c.Guild
	// a guild missing from the roster is still left
	if err := s.env.World.Guilds.Leave(name, c.Name); err != nil && !errors.Is(err, world.ErrGuildNotFound) {
		return nil, socialRejection(err)
	}
	c.Guild = ""
	return s.change("leave", c.Name, name), nil
}

func (s *SocialSystem) Guilds() GuildList {
	list := s.env.World.Guilds.List()
	return GuildList{Guilds: list, Count: len(list)}
}

func (s *SocialSystem) change(action, member, guild string) *GuildChange {
	return &GuildChange{Action: action, Guild: guild, Member: member, Members: len(s.env.World.Guilds.Members(guild))}
}
