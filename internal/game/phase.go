package game

import (
	"errors"
	"fmt"
	"log/slog"
)

// Phase is the top-level game phase.
type Phase string

const (
	PhaseNight Phase = "NIGHT"
	PhaseDay   Phase = "DAY"
	// PhaseEnded is terminal: there are no outgoing edges, and transition
	// calls on an ended game degrade to idempotent no-ops.
	PhaseEnded Phase = "ENDED"
)

// SubPhase is a window within a phase: a role's night action slot or one of
// the day vote stages.
type SubPhase string

const (
	// NIGHT sub-phases, in canonical wake order.
	SubCupid     SubPhase = "cupid"
	SubGuardian  SubPhase = "guardian"
	SubWolves    SubPhase = "wolves"
	SubWhiteWolf SubPhase = "white_wolf"
	SubSeer      SubPhase = "seer"
	SubWitch     SubPhase = "witch"
	SubWakeUp    SubPhase = "wake_up"

	// DAY sub-phases.
	SubCaptainVote  SubPhase = "captain_vote"
	SubDeliberation SubPhase = "deliberation"
	SubVote         SubPhase = "vote"
)

// FSM misuse errors. Unknown values and undeclared edges are structural
// errors that reject the calling transaction outright.
var (
	ErrUnknownState      = errors.New("unknown phase or sub-phase")
	ErrIllegalTransition = errors.New("illegal phase transition")
)

// phaseEdges is the static phase adjacency table. ENDED has no entry on
// purpose: nothing leaves it.
var phaseEdges = map[Phase][]Phase{
	PhaseNight: {PhaseDay, PhaseEnded},
	PhaseDay:   {PhaseNight, PhaseEnded},
}

// subPhaseOrder fixes the canonical sub-phase order per phase. A sub-phase
// edge is declared iff it moves strictly forward in this order: games with
// absent roles skip windows, but never revisit one.
var subPhaseOrder = map[Phase][]SubPhase{
	PhaseNight: {SubCupid, SubGuardian, SubWolves, SubWhiteWolf, SubSeer, SubWitch, SubWakeUp},
	PhaseDay:   {SubCaptainVote, SubDeliberation, SubVote},
}

// subPhaseIndex returns the position of sub within phase p, or -1 if sub
// does not belong to p.
func subPhaseIndex(p Phase, sub SubPhase) int {
	for i, s := range subPhaseOrder[p] {
		if s == sub {
			return i
		}
	}
	return -1
}

// KnownPhase reports whether p is a recognized phase value.
func KnownPhase(p Phase) bool {
	return p == PhaseNight || p == PhaseDay || p == PhaseEnded
}

// KnownSubPhase reports whether sub is a recognized sub-phase of any phase.
func KnownSubPhase(sub SubPhase) bool {
	return subPhaseIndex(PhaseNight, sub) >= 0 || subPhaseIndex(PhaseDay, sub) >= 0
}

// SetPhase transitions to the target phase along a declared edge and runs
// the boundary bookkeeping for that edge. The new phase enters at its first
// sub-phase.
//
// Once the game is ENDED the call is an idempotent no-op that returns
// ENDED with no error, whatever the target - repeated shutdown attempts
// must stay safe.
func (s *State) SetPhase(target Phase) (Phase, error) {
	if s.Phase == PhaseEnded {
		return PhaseEnded, nil
	}
	if !KnownPhase(target) {
		return s.Phase, fmt.Errorf("%w: phase %q", ErrUnknownState, target)
	}
	if !edgeDeclared(s.Phase, target) {
		return s.Phase, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.Phase, target)
	}

	switch {
	case s.Phase == PhaseNight && target == PhaseDay:
		// Dawn: a new day begins with a clean vote slate.
		s.Day++
		clear(s.Votes)
		clear(s.Voters)
	case s.Phase == PhaseDay && target == PhaseNight:
		// Dusk: night-scoped markers do not carry over.
		s.NightVictim = ""
		clear(s.Blocked)
		clear(s.Silenced)
	}

	s.Phase = target
	if target == PhaseEnded {
		s.SubPhase = ""
	} else {
		s.SubPhase = subPhaseOrder[target][0]
	}
	return s.Phase, nil
}

// SetSubPhase transitions to a sub-phase of the current phase. Edges are
// declared only forward in the canonical order, with skips permitted.
// On an ended game the call is an idempotent no-op.
func (s *State) SetSubPhase(target SubPhase) (SubPhase, error) {
	if s.Phase == PhaseEnded {
		return s.SubPhase, nil
	}
	if !KnownSubPhase(target) {
		return s.SubPhase, fmt.Errorf("%w: sub-phase %q", ErrUnknownState, target)
	}
	to := subPhaseIndex(s.Phase, target)
	if to < 0 {
		return s.SubPhase, fmt.Errorf("%w: sub-phase %s does not belong to phase %s",
			ErrIllegalTransition, target, s.Phase)
	}
	from := subPhaseIndex(s.Phase, s.SubPhase)
	if from >= 0 && to <= from {
		return s.SubPhase, fmt.Errorf("%w: sub-phase %s -> %s", ErrIllegalTransition, s.SubPhase, target)
	}
	s.SubPhase = target
	return s.SubPhase, nil
}

// AdvancePhase flips NIGHT to DAY or DAY to NIGHT with the same boundary
// bookkeeping as SetPhase. On an ended game it is an idempotent no-op
// returning ENDED.
func (s *State) AdvancePhase() (Phase, error) {
	switch s.Phase {
	case PhaseEnded:
		return PhaseEnded, nil
	case PhaseNight:
		return s.SetPhase(PhaseDay)
	case PhaseDay:
		return s.SetPhase(PhaseNight)
	default:
		return s.Phase, fmt.Errorf("%w: phase %q", ErrUnknownState, s.Phase)
	}
}

// End moves the game to ENDED from any live phase. Idempotent.
func (s *State) End() Phase {
	if s.Phase == PhaseEnded {
		return PhaseEnded
	}
	slog.Info("game ended", "game", s.ID, "day", s.Day, "win_override", s.WinOverride)
	p, _ := s.SetPhase(PhaseEnded)
	return p
}

// edgeDeclared reports whether from -> to appears in the phase adjacency
// table.
func edgeDeclared(from, to Phase) bool {
	for _, t := range phaseEdges[from] {
		if t == to {
			return true
		}
	}
	return false
}
