package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/rfontaine/lycaon/internal/ability"
	"github.com/rfontaine/lycaon/internal/game"
	"github.com/rfontaine/lycaon/internal/metrics"
)

// DefaultMaxDepth bounds kill->death->kill recursion. A cascade longer than
// this is truncated, not an error: the cap is an explicit depth counter,
// not cycle detection.
const DefaultMaxDepth = 3

// Dispatcher runs dispatch cycles against a game. It holds no per-game
// state - the only process-wide shared data is the immutable effect handler
// table - so one Dispatcher serves any number of parallel games.
type Dispatcher struct {
	maxDepth int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMaxDepth overrides the recursion depth cap. Useful in tests; the
// production default is DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxDepth = n
		}
	}
}

// New creates a Dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// EventContext carries per-dispatch inputs from the command layer and the
// recursion bookkeeping for death cascades.
type EventContext struct {
	// Targets maps acting player ID to their chosen target ID, already
	// validated by the command layer. Actors without an entry act
	// self-scoped.
	Targets map[string]string

	// Dead names the player whose death triggered this dispatch. Only set
	// on recursive on_death dispatches; it becomes the default target for
	// reacting abilities without an explicit Targets entry.
	Dead string

	// Cycle is the shared cycle buffer. Leave nil at the root; recursive
	// children inherit the parent's.
	Cycle *CycleState

	// Depth is the recursion depth, 0 at the root.
	Depth int
}

// match pairs an eligible ability with its holder.
type match struct {
	actor *game.Player
	ab    ability.Ability
}

// CollectMatching returns the abilities eligible for a trigger, in player
// join order. An ability is included when the trigger matches, the phase
// filter passes (unset and "any" always pass), the charge budget is not
// exhausted, the cooldown has elapsed, the holder is not blocked (passive
// abilities are exempt) and the (holder, ability) pair has not already
// executed this cycle.
func (d *Dispatcher) CollectMatching(state *game.State, trigger ability.Trigger, ectx *EventContext) []match {
	var matches []match
	for _, p := range state.Players {
		if !p.Alive {
			continue
		}
		for _, ab := range p.Abilities {
			if ab.Trigger != trigger {
				continue
			}
			if ab.Phase != "" && ab.Phase != "any" && ab.Phase != string(state.Phase) {
				continue
			}
			if ab.Charges != ability.Unlimited &&
				state.Runtime.ChargesUsed(p.ID, ab.ID) >= ab.Charges {
				continue
			}
			if ab.Cooldown != ability.NoCooldown {
				last := state.Runtime.LastUsedDay(p.ID, ab.ID)
				if last >= 0 && state.Day-last < ab.Cooldown {
					continue
				}
			}
			if state.IsBlocked(p.ID) && ab.Type != ability.TypePassive {
				continue
			}
			if state.Runtime.Executed(p.ID, ab.ID) {
				continue
			}
			matches = append(matches, match{actor: p, ab: ab})
		}
	}
	return matches
}

// sortByPriority orders matches ascending by effective priority. The sort
// is stable over join order, so ties resolve by seat - never by
// call-arrival timing - keeping resolution reproducible.
func sortByPriority(matches []match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].ab.EffectivePriority() < matches[j].ab.EffectivePriority()
	})
}

// Dispatch runs one dispatch cycle for a trigger and returns the resolved
// result list. It must only be called from inside a transaction closure;
// it mutates state (runtime counters, confirmed outcomes, deaths).
//
// At the depth cap it returns immediately with no results and no error -
// the truncation is logged, per the bounded-cascade contract.
func (d *Dispatcher) Dispatch(state *game.State, trigger ability.Trigger, ectx *EventContext) ([]Result, error) {
	if !ability.KnownTrigger(trigger) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTrigger, trigger)
	}
	if ectx == nil {
		ectx = &EventContext{}
	}
	if ectx.Depth >= d.maxDepth {
		slog.Warn("dispatch truncated at depth cap",
			"game", state.ID, "trigger", trigger, "depth", ectx.Depth, "cap", d.maxDepth)
		metrics.DepthTruncations.Inc()
		return []Result{}, nil
	}
	if ectx.Cycle == nil {
		ectx.Cycle = NewCycleState()
	}
	if ectx.Depth == 0 {
		// A fresh cycle: earlier transactions' execution markers must not
		// leak in. Recursive children skip this so a pair fires at most
		// once per dispatch tree.
		state.Runtime.ResetCycle()
	}
	metrics.Dispatches.WithLabelValues(string(trigger)).Inc()

	matches := d.CollectMatching(state, trigger, ectx)
	sortByPriority(matches)

	slog.Debug("dispatching",
		"game", state.ID, "trigger", trigger, "depth", ectx.Depth, "matches", len(matches))

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		results = append(results, d.execute(state, m, ectx))
	}

	resolution := Resolve(ectx.Cycle, state)
	d.applyResolution(state, resolution)

	deaths := ApplyKills(resolution.ConfirmedKills, state, state.Kill)
	for _, deadID := range deaths {
		childCtx := &EventContext{
			Targets: ectx.Targets,
			Dead:    deadID,
			Cycle:   ectx.Cycle,
			Depth:   ectx.Depth + 1,
		}
		childResults, err := d.Dispatch(state, ability.TriggerDeath, childCtx)
		if err != nil {
			return nil, fmt.Errorf("death dispatch for %s: %w", deadID, err)
		}
		results = append(results, childResults...)
	}

	return results, nil
}

// execute runs one effect handler with per-ability fault isolation and
// charge accounting.
func (d *Dispatcher) execute(state *game.State, m match, ectx *EventContext) (result Result) {
	result = Result{
		PlayerID:  m.actor.ID,
		AbilityID: m.ab.ID,
		Effect:    string(m.ab.Effect),
	}

	// A panicking handler is a data-level failure of one ability, never a
	// reason to abort its siblings.
	defer func() {
		if r := recover(); r != nil {
			err := &HandlerExecutionError{
				PlayerID:  m.actor.ID,
				AbilityID: m.ab.ID,
				Effect:    m.ab.Effect,
				Err:       fmt.Errorf("panic: %v", r),
			}
			slog.Error("effect handler panicked", "error", err)
			metrics.HandlerFailures.WithLabelValues(string(m.ab.Effect)).Inc()
			result.Applied = false
			result.Description = err.Error()
		}
	}()

	handler, ok := effectHandlers[m.ab.Effect]
	if !ok {
		// Authoring validates effects, so this is defect territory.
		result.Description = fmt.Sprintf("no handler for effect %s", m.ab.Effect)
		return result
	}

	var target *game.Player
	if targetID, ok := ectx.Targets[m.actor.ID]; ok {
		target = state.PlayerByID(targetID)
	} else if ectx.Dead != "" {
		// On-death reactions without an explicit choice act on the corpse.
		target = state.PlayerByID(ectx.Dead)
	}

	mc := &MutationContext{
		Game:    state,
		Actor:   m.actor,
		Target:  target,
		Ability: m.ab,
		Cycle:   ectx.Cycle,
	}

	outcome, err := handler(mc)
	if err != nil {
		hErr := &HandlerExecutionError{
			PlayerID:  m.actor.ID,
			AbilityID: m.ab.ID,
			Effect:    m.ab.Effect,
			Err:       err,
		}
		slog.Warn("effect handler failed", "error", hErr)
		metrics.HandlerFailures.WithLabelValues(string(m.ab.Effect)).Inc()
		result.Applied = false
		result.Description = hErr.Error()
		return result
	}

	state.Runtime.MarkExecuted(m.actor.ID, m.ab.ID)
	state.Runtime.RecordUse(m.actor.ID, m.ab.ID, state.Day)

	result.Applied = outcome.Applied
	result.Description = outcome.Description
	result.Data = outcome.Data
	return result
}

// applyResolution folds confirmed secondary outcomes into game state.
// Everything here is idempotent, so re-resolution by a recursive child
// batch cannot double-apply.
func (d *Dispatcher) applyResolution(state *game.State, res Resolution) {
	for _, b := range res.Blocks {
		state.Blocked[b.TargetID] = true
	}
	for _, s := range res.Silences {
		state.Silenced[s.TargetID] = true
	}
	for _, rv := range res.Reveals {
		state.Revealed[rv.TargetID+"/"+rv.Kind] = rv.Value
	}
	for _, vm := range res.VoteModifiers {
		state.VoteWeights[vm.TargetID] = vm.Weight
	}
	if res.WinOverride != "" {
		state.WinOverride = res.WinOverride
	}
}
