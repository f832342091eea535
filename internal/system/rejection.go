package system

import "errors"

// Rejection reasons sent back to the client.
const (
	ReasonPlayerDowned     = "PLAYER_DOWNED"
	ReasonSkillNotKnown    = "SKILL_NOT_KNOWN"
	ReasonMobNotFound      = "MOB_NOT_FOUND"
	ReasonMobOutOfRange    = "MOB_OUT_OF_RANGE"
	ReasonMobDefeated      = "MOB_ALREADY_DEFEATED"
	ReasonTargetRequired   = "TARGET_REQUIRED"
	ReasonTargetOffline    = "TARGET_OFFLINE"
	ReasonInvalidTarget    = "INVALID_TARGET"
	ReasonTargetOtherWorld = "TARGET_OTHER_WORLD"
	ReasonTargetDowned     = "TARGET_DOWNED"
	ReasonTargetOutOfRange = "TARGET_OUT_OF_RANGE"
	ReasonLevelTooLow      = "LEVEL_TOO_LOW"
	ReasonLevelGap         = "LEVEL_GAP"
	ReasonTargetBusy       = "TARGET_BUSY"
	ReasonInvalidQty       = "INVALID_QTY"
	ReasonUnknownRecipe    = "unknown_recipe" // the one lower-case code; clients match it literally
	ReasonSkillRequired    = "SKILL_REQUIRED"
	ReasonNoMaterials      = "INSUFFICIENT_MATERIALS"
	ReasonRecipeOutput     = "RECIPE_OUTPUT_INVALID"
	ReasonSkillNotFound    = "SKILL_NOT_FOUND"
	ReasonClassRestricted  = "CLASS_RESTRICTED"
	ReasonPrereqMissing    = "PREREQUISITE_MISSING"
	ReasonNoSkillPoints    = "NO_SKILL_POINTS"
	ReasonMaxRank          = "MAX_RANK_REACHED"
	ReasonQuestNotFound    = "QUEST_NOT_FOUND"
	ReasonQuestHidden      = "QUEST_HIDDEN"
	ReasonQuestDone        = "QUEST_ALREADY_COMPLETED"
	ReasonQuestNotAccepted = "QUEST_NOT_ACCEPTED"
	ReasonQuestNonRepeat   = "QUEST_NON_REPEATABLE"
	ReasonTrustTooLow      = "NPC_TRUST_TOO_LOW"
	ReasonWorldNotFound    = "WORLD_NOT_FOUND"
	ReasonWorldLocked      = "WORLD_LOCKED"
	ReasonLevelNotInRange  = "LEVEL_NOT_IN_RANGE"
	ReasonAuraRequired     = "AURA_REQUIRED"
	ReasonItemNotFound     = "ITEM_NOT_FOUND"
	ReasonOutOfBounds      = "OUT_OF_BOUNDS"
	ReasonTooFar           = "TOO_FAR"
	ReasonInvalidMove      = "INVALID_MOVE"
	ReasonNpcNotFound      = "NPC_NOT_FOUND"
	ReasonTargetInParty    = "TARGET_ALREADY_IN_PARTY"
	ReasonNotPartyLeader   = "NOT_PARTY_LEADER"
	ReasonPartyFull        = "PARTY_FULL"
	ReasonNoInvite         = "NO_INVITE"
	ReasonInviteMismatch   = "INVITE_MISMATCH"
	ReasonAlreadyInParty   = "ALREADY_IN_PARTY"
	ReasonNotInParty       = "NOT_IN_PARTY"
	ReasonGuildNameNeeded  = "GUILD_NAME_REQUIRED"
	ReasonGuildNameInvalid = "GUILD_NAME_INVALID"
	ReasonGuildExists      = "GUILD_EXISTS"
	ReasonGuildNotFound    = "GUILD_NOT_FOUND"
	ReasonAlreadyInGuild   = "ALREADY_IN_GUILD"
	ReasonNotInGuild       = "NOT_IN_GUILD"
	ReasonInternal         = "INTERNAL"
)

// Rejection is a rule refusal. Nothing was mutated when one is returned.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string {
	return "rejected: " + r.Reason
}

func reject(reason string) error {
	return &Rejection{Reason: reason}
}

// ReasonOf returns the client-facing reason for err. Errors that are not
// a Rejection map to INTERNAL.
func ReasonOf(err error) string {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Reason
	}
	return ReasonInternal
}
