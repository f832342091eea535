package handler

import (
	"context"

	"github.com/a3zone/server/internal/auth"
	"github.com/a3zone/server/internal/config"
	"github.com/a3zone/server/internal/data"
	"github.com/a3zone/server/internal/net"
	"github.com/a3zone/server/internal/net/packet"
	"github.com/a3zone/server/internal/system"
	"github.com/a3zone/server/internal/world"
	"go.uber.org/zap"
)

// CharacterStore loads and saves characters. Load returns persist.ErrNotFound
// for a name that was never saved.
type CharacterStore interface {
	Load(ctx context.Context, name string) (*world.Character, error)
	Save(ctx context.Context, c *world.Character) error
}

// Deps holds shared dependencies injected into all command handlers.
type Deps struct {
	Config   *config.Config
	Log      *zap.Logger
	Content  *data.Content
	World    *world.State
	Systems  *system.Systems
	Verifier *auth.Verifier
	Limiter  *auth.Limiter
	Store    CharacterStore
}

// handlerFunc is the typed form every command handler in this package has.
type handlerFunc func(sess *net.Session, r *packet.Reader, deps *Deps)

// RegisterAll registers all command handlers into the registry.
func RegisterAll(reg *packet.Registry, deps *Deps) {
	on := func(command string, states []packet.SessionState, fn handlerFunc) {
		reg.Register(command, states, func(sess any, r *packet.Reader) {
			fn(sess.(*net.Session), r, deps)
		})
	}

	// 連線階段
	anyState := []packet.SessionState{
		packet.StateUnauthenticated, packet.StateAuthRequired,
		packet.StateAuthenticated, packet.StateInWorld,
	}
	on("PING", anyState, HandlePing)
	on("QUIT", anyState, HandleQuit)
	on("AUTH_TOKEN", []packet.SessionState{packet.StateUnauthenticated, packet.StateAuthRequired}, HandleAuthToken)

	// 遊戲中
	inWorld := []packet.SessionState{packet.StateInWorld}

	on("GET_STATE", inWorld, HandleGetState)
	on("MOVE", inWorld, HandleMove)
	on("LIST_ENTITIES", inWorld, HandleListEntities)
	on("TALK_NPC", inWorld, HandleTalkNpc)

	// 戰鬥
	on("ATTACK_MOB", inWorld, HandleAttackMob)
	on("ATTACK", inWorld, HandleAttack)
	on("RECOVER_CORPSE", inWorld, HandleRecoverCorpse)
	on("ATTACK_PVP", inWorld, HandleAttackPvP)

	// 成長
	on("SKILL_TREE", inWorld, HandleSkillTree)
	on("LEARN_SKILL", inWorld, HandleLearnSkill)
	on("GET_RECIPES", inWorld, HandleGetRecipes)
	on("CRAFT_ITEM", inWorld, HandleCraftItem)

	// 任務與世界
	on("ACCEPT_QUEST", inWorld, HandleAcceptQuest)
	on("COMPLETE_QUEST", inWorld, HandleCompleteQuest)
	on("ENTER_WORLD", inWorld, HandleEnterWorld)
	on("GET_HISTORY", inWorld, HandleGetHistory)

	// 夥伴與裝備
	on("SUMMON_PET", inWorld, HandleSummonPet)
	on("RECRUIT_MERC", inWorld, HandleRecruitMerc)
	on("SET_ELEMENT", inWorld, HandleSetElement)
	on("EQUIP_ITEM", inWorld, HandleEquipItem)

	// 社交
	on("SAY", inWorld, HandleSay)
	on("WHO", inWorld, HandleWho)

	// 隊伍與公會
	on("PARTY_INVITE", inWorld, HandlePartyInvite)
	on("PARTY_ACCEPT", inWorld, HandlePartyAccept)
	on("PARTY_LEAVE", inWorld, HandlePartyLeave)
	on("PARTY_INFO", inWorld, HandlePartyInfo)
	on("GUILD_CREATE", inWorld, HandleGuildCreate)
	on("GUILD_JOIN", inWorld, HandleGuildJoin)
	on("GUILD_LEAVE", inWorld, HandleGuildLeave)
	on("GUILD_LIST", inWorld, HandleGuildList)
}

// sendRejection answers a refused command with {reason}. Anything that is
// not a rule rejection is logged and reported as INTERNAL.
func sendRejection(sess *net.Session, command string, err error, deps *Deps) {
	reason := system.ReasonOf(err)
	if reason == system.ReasonInternal {
		deps.Log.Error("指令處理失敗", zap.String("command", command), zap.Error(err))
	}
	sess.Send(command, packet.Reason{Reason: reason})
}

// publish makes the session's current character visible to other sessions.
func publish(sess *net.Session, deps *Deps) {
	if sess.Character != nil {
		deps.World.PublishPlayer(sess.Character.Snapshot())
	}
}
