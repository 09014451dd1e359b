package engine

import (
	"log/slog"

	"github.com/rfontaine/lycaon/internal/game"
	"github.com/rfontaine/lycaon/internal/metrics"
)

// ConfirmedKill is a pending kill that survived conflict resolution and is
// ready to be applied to game state.
type ConfirmedKill struct {
	SourceID   string
	TargetID   string
	AbilityID  string
	Redirected bool
}

// Resolution is the reconciled outcome of one dispatch batch: confirmed
// kills plus the deduplicated secondary effects to fold into game state.
type Resolution struct {
	ConfirmedKills []ConfirmedKill
	SurvivedKills  []*PendingKill
	Blocks         []Block
	Silences       []Silence
	Reveals        []Reveal
	VoteModifiers  []VoteModifier
	WinOverride    string
}

// Resolve reconciles the cycle buffer into confirmed outcomes, in fixed
// order:
//
//  1. Discard any protection, immunity, redirect or block whose source was
//     itself blocked this cycle - a blocked actor shields, deflects and
//     blocks nobody. The blocked set is computed once from the raw block
//     bucket; there is no fixpoint iteration, so two blockers blocking each
//     other cancel both.
//  2. Walk pending kills: immune targets drop the kill outright; protected
//     targets (no bypass) survive and the kill is recorded as such; a live
//     redirect retargets the kill and marks it; anything left confirms.
//  3. Deduplicate: one confirmed kill per target, one silence/block entry
//     per target, last-write-wins for vote modifiers and win overrides.
//
// Kills already consumed by an earlier Resolve pass in the same cycle are
// skipped, so recursive death dispatches sharing the CycleState never
// re-confirm them.
func Resolve(cycle *CycleState, state *game.State) Resolution {
	rawBlocked := make(map[string]bool, len(cycle.Blocks))
	for _, b := range cycle.Blocks {
		rawBlocked[b.TargetID] = true
	}

	protections := make([]Protection, 0, len(cycle.Protections))
	for _, p := range cycle.Protections {
		if !rawBlocked[p.SourceID] {
			protections = append(protections, p)
		}
	}
	immunities := make([]Immunity, 0, len(cycle.Immunities))
	for _, im := range cycle.Immunities {
		if !rawBlocked[im.SourceID] {
			immunities = append(immunities, im)
		}
	}
	redirects := make([]Redirect, 0, len(cycle.Redirects))
	for _, r := range cycle.Redirects {
		if !rawBlocked[r.SourceID] {
			redirects = append(redirects, r)
		}
	}
	blocks := make([]Block, 0, len(cycle.Blocks))
	for _, b := range cycle.Blocks {
		if !rawBlocked[b.SourceID] {
			blocks = append(blocks, b)
		}
	}

	protected := make(map[string]bool, len(protections))
	for _, p := range protections {
		protected[p.TargetID] = true
	}
	immune := make(map[string]bool, len(immunities))
	for _, im := range immunities {
		immune[im.TargetID] = true
	}

	res := Resolution{}
	confirmedTargets := make(map[string]bool)
	for _, kill := range cycle.PendingKills {
		if kill.resolved {
			continue
		}
		kill.resolved = true

		if immune[kill.TargetID] {
			slog.Debug("kill dropped: target immune",
				"target", kill.TargetID, "source", kill.SourceID)
			continue
		}
		if protected[kill.TargetID] && !kill.Bypass {
			res.SurvivedKills = append(res.SurvivedKills, kill)
			slog.Debug("kill dropped: target protected",
				"target", kill.TargetID, "source", kill.SourceID)
			continue
		}
		targetID := kill.TargetID
		redirected := kill.Redirected
		if r := redirectFor(redirects, targetID); r != nil {
			if dest := state.PlayerByID(r.ToID); dest != nil && dest.Alive {
				targetID = r.ToID
				redirected = true
			}
		}
		if confirmedTargets[targetID] {
			continue // one confirmed kill per target, whatever the source count
		}
		confirmedTargets[targetID] = true
		res.ConfirmedKills = append(res.ConfirmedKills, ConfirmedKill{
			SourceID:   kill.SourceID,
			TargetID:   targetID,
			AbilityID:  kill.AbilityID,
			Redirected: redirected,
		})
	}
	metrics.ConfirmedKills.Add(float64(len(res.ConfirmedKills)))

	res.Blocks = dedupeBlocks(blocks)
	res.Silences = dedupeSilences(cycle.Silences)
	res.Reveals = cycle.Reveals[cycle.revealsMark:]
	cycle.revealsMark = len(cycle.Reveals)

	lastWeight := make(map[string]int)
	order := []string{}
	for _, vm := range cycle.VoteModifiers {
		if _, seen := lastWeight[vm.TargetID]; !seen {
			order = append(order, vm.TargetID)
		}
		lastWeight[vm.TargetID] = vm.Weight
	}
	for _, target := range order {
		res.VoteModifiers = append(res.VoteModifiers, VoteModifier{
			TargetID: target,
			Weight:   lastWeight[target],
		})
	}

	if n := len(cycle.WinOverrides); n > 0 {
		res.WinOverride = cycle.WinOverrides[n-1].Team
	}

	return res
}

// ApplyKills invokes the kill primitive for each still-alive confirmed
// target and returns every resulting death, lover cascades included, for
// the caller to re-dispatch. killFn owns the cascade and its logging.
func ApplyKills(kills []ConfirmedKill, state *game.State, killFn func(playerID string) []string) []string {
	var deaths []string
	for _, k := range kills {
		target := state.PlayerByID(k.TargetID)
		if target == nil || !target.Alive {
			continue
		}
		deaths = append(deaths, killFn(k.TargetID)...)
	}
	return deaths
}

func redirectFor(redirects []Redirect, targetID string) *Redirect {
	for i := range redirects {
		if redirects[i].FromID == targetID {
			return &redirects[i]
		}
	}
	return nil
}

func dedupeBlocks(blocks []Block) []Block {
	seen := make(map[string]bool, len(blocks))
	out := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		if seen[b.TargetID] {
			continue
		}
		seen[b.TargetID] = true
		out = append(out, b)
	}
	return out
}

func dedupeSilences(silences []Silence) []Silence {
	seen := make(map[string]bool, len(silences))
	out := make([]Silence, 0, len(silences))
	for _, s := range silences {
		if seen[s.TargetID] {
			continue
		}
		seen[s.TargetID] = true
		out = append(out, s)
	}
	return out
}
