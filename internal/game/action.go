package game

import (
	"github.com/samdwyer/storybattle/internal/combat"
)

// ActionKind is a player action.
type ActionKind string

const (
	ActionAttack  ActionKind = "attack"
	ActionSkill   ActionKind = "skill"
	ActionDefend  ActionKind = "defend"
	ActionDodge   ActionKind = "dodge"
	ActionItem    ActionKind = "item"
	ActionSummon  ActionKind = "summon"
	ActionSpecial ActionKind = "special"
	ActionFlee    ActionKind = "flee"
)

// ActionKinds lists every action in menu order.
var ActionKinds = []ActionKind{
	ActionAttack, ActionSkill, ActionDefend, ActionDodge,
	ActionItem, ActionSummon, ActionSpecial, ActionFlee,
}

// ActionParams carries the target id and timing modifiers of an action.
type ActionParams struct {
	SkillID  string
	ItemID   string
	SummonID string
	Mods     combat.ActionModifiers
}

// ActionResult is delivered to the action callback. A failed action left
// the battle state untouched.
type ActionResult struct {
	Kind     ActionKind
	Success  bool
	Reason   string
	Messages []string
	Attack   *combat.AttackResult
}

// Failure reasons.
const (
	ReasonUnknownAction   = "unknown_action"
	ReasonUnknownSkill    = "unknown_skill"
	ReasonUnknownItem     = "unknown_item"
	ReasonUnknownSummon   = "unknown_summon"
	ReasonNoMana          = "insufficient_mana"
	ReasonNoItem          = "item_not_held"
	ReasonSummonActive    = "summon_active"
	ReasonChargeNotReady  = "charge_not_ready"
	ReasonNoSpecial       = "no_special"
	ReasonFeatureDisabled = "feature_disabled"
)

func fail(kind ActionKind, reason, msg string) ActionResult {
	return ActionResult{Kind: kind, Reason: reason, Messages: []string{msg}}
}
