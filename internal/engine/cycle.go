package engine

import (
	"github.com/rfontaine/lycaon/internal/ability"
	"github.com/rfontaine/lycaon/internal/game"
)

// Protection shields a target from non-bypassing kills this cycle.
type Protection struct {
	SourceID string
	TargetID string
}

// PendingKill is a queued kill awaiting conflict resolution. The alive
// flag is never flipped while a kill sits here - resolution can still veto
// it.
type PendingKill struct {
	SourceID   string
	TargetID   string
	AbilityID  string
	Bypass     bool // bypass_protection parameter
	Redirected bool
	resolved   bool // consumed by an earlier Resolve pass in this cycle
}

// Immunity makes kills against the target drop outright.
type Immunity struct {
	SourceID string
	TargetID string
}

// Redirect moves kills aimed at FromID onto ToID, if ToID is still alive
// at resolution time.
type Redirect struct {
	SourceID string
	FromID   string
	ToID     string
}

// Block suppresses the target's active abilities for the night.
type Block struct {
	SourceID string
	TargetID string
}

// Silence suppresses the target's speech/vote for the day.
type Silence struct {
	SourceID string
	TargetID string
}

// Reveal publishes a player's role or alignment to the table.
type Reveal struct {
	SourceID string
	TargetID string
	Kind     string // "role" or "alignment"
	Value    string
}

// VoteModifier changes a player's vote weight. Last write wins per player.
type VoteModifier struct {
	SourceID string
	TargetID string
	Weight   int
}

// WinOverride forces the named team to win regardless of survival
// arithmetic.
type WinOverride struct {
	SourceID string
	Team     string
}

// CycleState is the transient bucket set shared across one full dispatch
// tree, recursive children included. It is rebuilt from nothing at the
// start of every cycle and is never persisted: a crash mid-cycle leaves no
// in-flight resolution to reconcile.
type CycleState struct {
	Protections   []Protection
	PendingKills  []*PendingKill
	SurvivedKills []*PendingKill // kills vetoed by protection, kept for reporting
	Immunities    []Immunity
	Redirects     []Redirect
	Blocks        []Block
	Silences      []Silence
	Reveals       []Reveal
	VoteModifiers []VoteModifier
	WinOverrides  []WinOverride

	// revealsMark is the resolver's high-water mark into Reveals, so a
	// recursive child batch reports only reveals recorded since the parent
	// batch resolved.
	revealsMark int
}

// NewCycleState returns an empty cycle buffer.
func NewCycleState() *CycleState {
	return &CycleState{}
}

// IsProtected reports whether any protection covers the target.
func (c *CycleState) IsProtected(targetID string) bool {
	for _, p := range c.Protections {
		if p.TargetID == targetID {
			return true
		}
	}
	return false
}

// IsImmune reports whether any immunity covers the target.
func (c *CycleState) IsImmune(targetID string) bool {
	for _, im := range c.Immunities {
		if im.TargetID == targetID {
			return true
		}
	}
	return false
}

// RedirectFor returns the first redirect whose original target matches, or
// nil. First-recorded wins; later redirects on the same target are inert.
func (c *CycleState) RedirectFor(targetID string) *Redirect {
	for i := range c.Redirects {
		if c.Redirects[i].FromID == targetID {
			return &c.Redirects[i]
		}
	}
	return nil
}

// MutationContext binds everything one effect handler invocation may touch:
// the game, the acting player, the resolved target (which may be nil for
// self-scoped effects), the ability being executed and the shared cycle
// buffer.
type MutationContext struct {
	Game    *game.State
	Actor   *game.Player
	Target  *game.Player
	Ability ability.Ability
	Cycle   *CycleState
}

// TargetOrActor returns the resolved target, falling back to the actor for
// self-scoped effects.
func (mc *MutationContext) TargetOrActor() *game.Player {
	if mc.Target != nil {
		return mc.Target
	}
	return mc.Actor
}
