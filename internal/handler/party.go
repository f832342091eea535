package handler

import (
	"github.com/a3zone/server/internal/net"
	"github.com/a3zone/server/internal/net/packet"
	"github.com/a3zone/server/internal/world"
)

// partyUpdate is pushed to the other members when the roster changes.
type partyUpdate struct {
	Event  string          `json:"event"` // MEMBER_JOINED, MEMBER_LEFT or MEMBER_DISCONNECTED
	Member string          `json:"member"`
	Party  world.PartyView `json:"party"`
}

type partyLeft struct {
	PartyID   string `json:"party_id"`
	Dissolved bool   `json:"dissolved"`
}

type partyDissolved struct {
	PartyID string `json:"party_id"`
}

type partyInfo struct {
	Party *world.PartyView `json:"party"`
}

// pushToNames pushes to every online player in names except skip.
func pushToNames(deps *Deps, names []string, skip, command string, payload any) {
	for _, e := range onlineExcept(deps, names, skip) {
		e.Peer().Push(command, payload)
	}
}

// announcePartyLeave tells the rest of the party that member is gone.
func announcePartyLeave(deps *Deps, member, event string, res world.PartyLeave) {
	if res.Dissolved {
		pushToNames(deps, res.Notify, member, "PARTY_DISSOLVED", partyDissolved{PartyID: res.PartyID})
		return
	}
	pushToNames(deps, res.Notify, member, "PARTY_UPDATE", partyUpdate{Event: event, Member: member, Party: res.Party})
}

// ==================== 隊伍 ====================

// HandlePartyInvite processes PARTY_INVITE{target}. The target gets a
// PARTY_INVITE push naming the inviter.
func HandlePartyInvite(sess *net.Session, r *packet.Reader, deps *Deps) {
	inv, target, err := deps.Systems.Social.Invite(sess.Character, r.String("target"))
	if err != nil {
		sendRejection(sess, "PARTY_REJECTED", err, deps)
		return
	}
	target.Peer().Push("PARTY_INVITE", inv)
	sess.Send("PARTY_INVITE_SENT", inv)
}

// HandlePartyAccept processes PARTY_ACCEPT{from?}.
func HandlePartyAccept(sess *net.Session, r *packet.Reader, deps *Deps) {
	c := sess.Character
	v, err := deps.Systems.Social.Accept(c, r.String("from"))
	if err != nil {
		sendRejection(sess, "PARTY_REJECTED", err, deps)
		return
	}
	sess.Send("PARTY_JOINED", partyInfo{Party: &v})
	pushToNames(deps, v.Members, c.Name, "PARTY_UPDATE", partyUpdate{Event: "MEMBER_JOINED", Member: c.Name, Party: v})
}

// HandlePartyLeave processes PARTY_LEAVE.
func HandlePartyLeave(sess *net.Session, _ *packet.Reader, deps *Deps) {
	c := sess.Character
	res, err := deps.Systems.Social.Leave(c)
	if err != nil {
		sendRejection(sess, "PARTY_REJECTED", err, deps)
		return
	}
	sess.Send("PARTY_LEFT", partyLeft{PartyID: res.PartyID, Dissolved: res.Dissolved})
	announcePartyLeave(deps, c.Name, "MEMBER_LEFT", res)
}

// HandlePartyInfo processes PARTY_INFO. party is null outside a party.
func HandlePartyInfo(sess *net.Session, _ *packet.Reader, deps *Deps) {
	var out partyInfo
	if v, ok := deps.World.Parties.PartyOf(sess.Character.Name); ok {
		out.Party = &v
	}
	sess.Send("PARTY_INFO", out)
}

// leaveSocial runs when a character leaves the world for good.
func leaveSocial(deps *Deps, c *world.Character) {
	if res, ok := deps.Systems.Social.Disconnect(c); ok {
		announcePartyLeave(deps, c.Name, "MEMBER_DISCONNECTED", res)
	}
}

// ==================== 公會 ====================

// HandleGuildCreate processes GUILD_CREATE{guild}.
func HandleGuildCreate(sess *net.Session, r *packet.Reader, deps *Deps) {
	res, err := deps.Systems.Social.CreateGuild(sess.Character, r.String("guild"))
	if err != nil {
		sendRejection(sess, "GUILD_REJECTED", err, deps)
		return
	}
	publish(sess, deps)
	sess.Send("GUILD_OK", res)
}

// HandleGuildJoin processes GUILD_JOIN{guild}.
func HandleGuildJoin(sess *net.Session, r *packet.Reader, deps *Deps) {
	res, err := deps.Systems.Social.JoinGuild(sess.Character, r.String("guild"))
	if err != nil {
		sendRejection(sess, "GUILD_REJECTED", err, deps)
		return
	}
	publish(sess, deps)
	sess.Send("GUILD_OK", res)
}

// HandleGuildLeave processes GUILD_LEAVE.
func HandleGuildLeave(sess *net.Session, _ *packet.Reader, deps *Deps) {
	res, err := deps.Systems.Social.LeaveGuild(sess.Character)
	if err != nil {
		sendRejection(sess, "GUILD_REJECTED", err, deps)
		return
	}
	publish(sess, deps)
	sess.Send("GUILD_OK", res)
}

// HandleGuildList processes GUILD_LIST.
func HandleGuildList(sess *net.Session, _ *packet.Reader, deps *Deps) {
	sess.Send("GUILD_LIST", deps.Systems.Social.Guilds())
}
