package handler

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/a3zone/server/internal/net"
	"github.com/a3zone/server/internal/net/packet"
	"github.com/a3zone/server/internal/world"
	"go.uber.org/zap"
)

const maxChatBytes = 180

// chatMessage is the CHAT_MESSAGE payload.
type chatMessage struct {
	Channel string `json:"channel"`
	From    string `json:"from"`
	World   int    `json:"world"`
	Message string `json:"message"`
	TS      string `json:"ts"`
}

type whoEntry struct {
	Name  string `json:"name"`
	Class string `json:"class"`
	Level int    `json:"level"`
	World int    `json:"world"`
	Guild string `json:"guild,omitempty"`
}

type whoList struct {
	Online []whoEntry `json:"online"`
	Count  int        `json:"count"`
}

// sanitizeChat trims msg and cuts it to maxChatBytes on a rune boundary.
func sanitizeChat(msg string) string {
	msg = strings.TrimSpace(msg)
	if len(msg) <= maxChatBytes {
		return msg
	}
	cut := maxChatBytes
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}

// HandleSay processes SAY{message, channel?}. The speaker always gets its
// own CHAT_MESSAGE. Listeners by channel:
//
//	say    players in the same world who can see the speaker (default)
//	world  every player in the speaker's world
//	party  online party members
//	guild  online guild members
func HandleSay(sess *net.Session, r *packet.Reader, deps *Deps) {
	msg := sanitizeChat(r.String("message"))
	if msg == "" {
		sess.Send("CHAT_REJECTED", packet.Reason{Reason: "EMPTY_MESSAGE"})
		return
	}
	c := sess.Character
	channel := strings.ToLower(strings.TrimSpace(r.String("channel")))
	if channel == "" {
		channel = "say"
	}

	var listeners []*world.PlayerEntry
	switch channel {
	case "say":
		for _, e := range deps.World.PlayersNear(c.WorldID, c.Name, c.Position) {
			if deps.World.Visible(c.Position, e.Snapshot().Position) {
				listeners = append(listeners, e)
			}
		}
	case "world":
		deps.World.ForEachPlayer(func(e *world.PlayerEntry) {
			if snap := e.Snapshot(); snap.WorldID == c.WorldID && world.NameKey(snap.Name) != world.NameKey(c.Name) {
				listeners = append(listeners, e)
			}
		})
	case "party":
		p, ok := deps.World.Parties.PartyOf(c.Name)
		if !ok {
			sess.Send("CHAT_REJECTED", packet.Reason{Reason: "NOT_IN_PARTY"})
			return
		}
		listeners = onlineExcept(deps, p.Members, c.Name)
	case "guild":
		if c.Guild == "" {
			sess.Send("CHAT_REJECTED", packet.Reason{Reason: "NOT_IN_GUILD"})
			return
		}
		listeners = onlineExcept(deps, deps.World.Guilds.Members(c.Guild), c.Name)
	default:
		sess.Send("CHAT_REJECTED", packet.Reason{Reason: "UNKNOWN_CHANNEL", Detail: channel})
		return
	}

	out := chatMessage{
		Channel: channel,
		From:    c.Name,
		World:   c.WorldID,
		Message: msg,
		TS:      time.Now().UTC().Format(time.RFC3339),
	}
	deps.Log.Debug("SAY", zap.String("channel", channel), zap.String("from", c.Name), zap.String("message", msg))

	sess.Send("CHAT_MESSAGE", out)
	for _, e := range listeners {
		e.Peer().Push("CHAT_MESSAGE", out)
	}
}

func onlineExcept(deps *Deps, names []string, skip string) []*world.PlayerEntry {
	var out []*world.PlayerEntry
	for _, name := range names {
		if world.NameKey(name) == world.NameKey(skip) {
			continue
		}
		if e := deps.World.Player(name); e != nil {
			out = append(out, e)
		}
	}
	return out
}

// HandleWho processes WHO.
func HandleWho(sess *net.Session, _ *packet.Reader, deps *Deps) {
	online := deps.World.OnlinePlayers()
	list := whoList{Online: make([]whoEntry, 0, len(online)), Count: len(online)}
	for _, p := range online {
		list.Online = append(list.Online, whoEntry{Name: p.Name, Class: p.Class, Level: p.Level, World: p.WorldID, Guild: p.Guild})
	}
	sess.Send("WHO", list)
}
