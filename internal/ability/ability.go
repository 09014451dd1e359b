package ability

// Type distinguishes abilities the holder actively uses from abilities that
// are always in force.
type Type string

const (
	// TypeActive abilities fire when their trigger window opens and the
	// holder is able to act. A blocked holder cannot use them.
	TypeActive Type = "active"
	// TypePassive abilities fire regardless of blocks on the holder
	// (e.g. a standing kill immunity).
	TypePassive Type = "passive"
)

// Trigger names the occasion an ability fires on.
type Trigger string

const (
	TriggerNightAction Trigger = "night_action"
	TriggerDeath       Trigger = "on_death"
	TriggerVote        Trigger = "on_vote"
	TriggerPhaseStart  Trigger = "phase_start"
	TriggerPhaseEnd    Trigger = "phase_end"
)

// Triggers lists every recognized trigger, in no particular order.
var Triggers = []Trigger{
	TriggerNightAction,
	TriggerDeath,
	TriggerVote,
	TriggerPhaseStart,
	TriggerPhaseEnd,
}

// KnownTrigger reports whether t is a recognized trigger name.
func KnownTrigger(t Trigger) bool {
	for _, k := range Triggers {
		if t == k {
			return true
		}
	}
	return false
}

// Effect is the closed set of behaviors an ability can have. The engine
// selects a handler function by this tag; there is no other dispatch
// mechanism and no way to register new effects at runtime.
type Effect string

const (
	EffectProtect          Effect = "protect"
	EffectKill             Effect = "kill"
	EffectInspectRole      Effect = "inspect_role"
	EffectInspectAlignment Effect = "inspect_alignment"
	EffectRevealRole       Effect = "reveal_role"
	EffectRevealAlignment  Effect = "reveal_alignment"
	EffectDoubleVote       Effect = "double_vote"
	EffectModifyVoteWeight Effect = "modify_vote_weight"
	EffectSilence          Effect = "silence"
	EffectBlock            Effect = "block"
	EffectRedirect         Effect = "redirect"
	EffectSwapRoles        Effect = "swap_roles"
	EffectImmuneToKill     Effect = "immune_to_kill"
	EffectWinOverride      Effect = "win_override"
)

// Effects lists every whitelisted effect kind.
var Effects = []Effect{
	EffectProtect,
	EffectKill,
	EffectInspectRole,
	EffectInspectAlignment,
	EffectRevealRole,
	EffectRevealAlignment,
	EffectDoubleVote,
	EffectModifyVoteWeight,
	EffectSilence,
	EffectBlock,
	EffectRedirect,
	EffectSwapRoles,
	EffectImmuneToKill,
	EffectWinOverride,
}

// KnownEffect reports whether e is a whitelisted effect kind.
func KnownEffect(e Effect) bool {
	for _, k := range Effects {
		if e == k {
			return true
		}
	}
	return false
}

// TargetFilter restricts which players an ability may target.
type TargetFilter string

const (
	TargetAny    TargetFilter = "any"
	TargetOthers TargetFilter = "others"
	TargetSelf   TargetFilter = "self"
	TargetAlive  TargetFilter = "alive"
	TargetDead   TargetFilter = "dead"
)

// Unlimited is the Charges value for abilities without a charge budget.
const Unlimited = 0

// NoCooldown is the Cooldown value for abilities without a cooldown.
const NoCooldown = 0

// PriorityDefault marks an ability whose priority was not set explicitly;
// EffectivePriority substitutes the per-effect default.
const PriorityDefault = -1

// Ability is an immutable, declarative description of one role power.
// It arrives from the authoring package already validated and normalized;
// the engine treats it as opaque read-only data and applies only the
// eligibility and ordering guards.
type Ability struct {
	// ID uniquely identifies the ability within its role library.
	ID string

	// Type is active or passive; see the Type constants.
	Type Type

	// Trigger names the dispatch occasion this ability answers to.
	Trigger Trigger

	// Phase restricts firing to "NIGHT" or "DAY". Empty or "any" matches
	// every phase.
	Phase string

	// Target restricts legal targets; informational to the engine, which
	// receives already-resolved targets from the command layer.
	Target TargetFilter

	// Effect selects the handler function.
	Effect Effect

	// Charges is the total number of dispatch cycles this ability may fire
	// in, or Unlimited.
	Charges int

	// Cooldown is the minimum number of day-counter increments between
	// uses, or NoCooldown.
	Cooldown int

	// Priority orders execution within a dispatch batch, ascending.
	// PriorityDefault defers to the per-effect default.
	Priority int

	// Params carries the effect-specific parameter set, whitelisted per
	// effect by the authoring package (e.g. "bypass_protection" for kill,
	// "weight" for modify_vote_weight, "team" for win_override).
	Params map[string]any
}

// Default priorities per effect. Blocks resolve before redirects, redirects
// before shields, shields before kills, so the resolver sees a stable
// layering no matter what order abilities were authored in.
var defaultPriority = map[Effect]int{
	EffectBlock:            10,
	EffectRedirect:         20,
	EffectProtect:          30,
	EffectImmuneToKill:     30,
	EffectSwapRoles:        40,
	EffectKill:             50,
	EffectSilence:          60,
	EffectInspectRole:      70,
	EffectInspectAlignment: 70,
	EffectRevealRole:       70,
	EffectRevealAlignment:  70,
	EffectDoubleVote:       80,
	EffectModifyVoteWeight: 80,
	EffectWinOverride:      90,
}

// EffectivePriority returns the explicit priority, or the per-effect
// default when the ability was authored without one.
func (a Ability) EffectivePriority() int {
	if a.Priority != PriorityDefault {
		return a.Priority
	}
	return defaultPriority[a.Effect]
}

// BoolParam returns the named parameter as a bool, false if absent or of
// another type.
func (a Ability) BoolParam(name string) bool {
	v, ok := a.Params[name].(bool)
	return ok && v
}

// IntParam returns the named parameter as an int, or def if absent.
// YAML decodes integers as int, but values that crossed a JSON round trip
// arrive as float64, so both are accepted.
func (a Ability) IntParam(name string, def int) int {
	switch v := a.Params[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// StringParam returns the named parameter as a string, or def if absent.
func (a Ability) StringParam(name, def string) string {
	if v, ok := a.Params[name].(string); ok {
		return v
	}
	return def
}
