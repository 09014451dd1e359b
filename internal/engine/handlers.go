package engine

import (
	"fmt"

	"github.com/rfontaine/lycaon/internal/ability"
)

// HandlerFunc is one whitelisted effect behavior. Handlers are pure: they
// read the MutationContext and write to the shared cycle buffer. The single
// sanctioned exception is swap_roles, which mutates player role fields
// immediately because a swap cannot be partially vetoed later.
type HandlerFunc func(mc *MutationContext) (Outcome, error)

// effectHandlers is the strategy table keyed by effect tag. It is immutable
// after init; roles select behavior purely through declarative data.
var effectHandlers = map[ability.Effect]HandlerFunc{
	ability.EffectProtect:          handleProtect,
	ability.EffectKill:             handleKill,
	ability.EffectInspectRole:      handleInspectRole,
	ability.EffectInspectAlignment: handleInspectAlignment,
	ability.EffectRevealRole:       handleRevealRole,
	ability.EffectRevealAlignment:  handleRevealAlignment,
	ability.EffectDoubleVote:       handleDoubleVote,
	ability.EffectModifyVoteWeight: handleModifyVoteWeight,
	ability.EffectSilence:          handleSilence,
	ability.EffectBlock:            handleBlock,
	ability.EffectRedirect:         handleRedirect,
	ability.EffectSwapRoles:        handleSwapRoles,
	ability.EffectImmuneToKill:     handleImmuneToKill,
	ability.EffectWinOverride:      handleWinOverride,
}

func handleProtect(mc *MutationContext) (Outcome, error) {
	target := mc.TargetOrActor()
	if !target.Alive {
		return Outcome{Description: "target already dead"}, nil
	}
	mc.Cycle.Protections = append(mc.Cycle.Protections, Protection{
		SourceID: mc.Actor.ID,
		TargetID: target.ID,
	})
	return Outcome{
		Applied:     true,
		Description: fmt.Sprintf("%s is protected tonight", target.Name),
		Data:        map[string]any{"target": target.ID},
	}, nil
}

// handleKill queues a kill for conflict resolution. The alive flag is never
// flipped here: immunity recorded later in the same batch, or a protection
// the resolver sees first, can still veto it.
func handleKill(mc *MutationContext) (Outcome, error) {
	target := mc.Target
	if target == nil || !target.Alive {
		return Outcome{Description: "target missing or already dead"}, nil
	}

	bypass := mc.Ability.BoolParam("bypass_protection")

	if mc.Cycle.IsImmune(target.ID) {
		return Outcome{
			Description: "blocked: target is immune",
			Data:        map[string]any{"target": target.ID, "reason": "immune"},
		}, nil
	}
	if !bypass && mc.Cycle.IsProtected(target.ID) {
		return Outcome{
			Description: "blocked: target is protected",
			Data:        map[string]any{"target": target.ID, "reason": "protected"},
		}, nil
	}

	kill := &PendingKill{
		SourceID:  mc.Actor.ID,
		TargetID:  target.ID,
		AbilityID: mc.Ability.ID,
		Bypass:    bypass,
	}
	if r := mc.Cycle.RedirectFor(target.ID); r != nil {
		if dest := mc.Game.PlayerByID(r.ToID); dest != nil && dest.Alive {
			kill.TargetID = dest.ID
			kill.Redirected = true
		}
	}
	mc.Cycle.PendingKills = append(mc.Cycle.PendingKills, kill)

	return Outcome{
		Applied:     true,
		Description: fmt.Sprintf("kill queued against %s", kill.TargetID),
		Data: map[string]any{
			"target":     kill.TargetID,
			"redirected": kill.Redirected,
		},
	}, nil
}

func handleInspectRole(mc *MutationContext) (Outcome, error) {
	target := mc.Target
	if target == nil {
		return Outcome{Description: "no target to inspect"}, nil
	}
	return Outcome{
		Applied:     true,
		Description: fmt.Sprintf("%s inspected %s", mc.Actor.Name, target.Name),
		Data:        map[string]any{"target": target.ID, "role": target.Role},
	}, nil
}

func handleInspectAlignment(mc *MutationContext) (Outcome, error) {
	target := mc.Target
	if target == nil {
		return Outcome{Description: "no target to inspect"}, nil
	}
	return Outcome{
		Applied:     true,
		Description: fmt.Sprintf("%s inspected %s", mc.Actor.Name, target.Name),
		Data:        map[string]any{"target": target.ID, "alignment": string(target.Alignment)},
	}, nil
}

func handleRevealRole(mc *MutationContext) (Outcome, error) {
	target := mc.TargetOrActor()
	mc.Cycle.Reveals = append(mc.Cycle.Reveals, Reveal{
		SourceID: mc.Actor.ID,
		TargetID: target.ID,
		Kind:     "role",
		Value:    target.Role,
	})
	return Outcome{
		Applied:     true,
		Description: fmt.Sprintf("role of %s will be revealed", target.Name),
		Data:        map[string]any{"target": target.ID, "role": target.Role},
	}, nil
}

func handleRevealAlignment(mc *MutationContext) (Outcome, error) {
	target := mc.TargetOrActor()
	mc.Cycle.Reveals = append(mc.Cycle.Reveals, Reveal{
		SourceID: mc.Actor.ID,
		TargetID: target.ID,
		Kind:     "alignment",
		Value:    string(target.Alignment),
	})
	return Outcome{
		Applied:     true,
		Description: fmt.Sprintf("alignment of %s will be revealed", target.Name),
		Data:        map[string]any{"target": target.ID, "alignment": string(target.Alignment)},
	}, nil
}

func handleDoubleVote(mc *MutationContext) (Outcome, error) {
	target := mc.TargetOrActor()
	mc.Cycle.VoteModifiers = append(mc.Cycle.VoteModifiers, VoteModifier{
		SourceID: mc.Actor.ID,
		TargetID: target.ID,
		Weight:   2,
	})
	return Outcome{
		Applied:     true,
		Description: fmt.Sprintf("%s votes with double weight", target.Name),
		Data:        map[string]any{"target": target.ID, "weight": 2},
	}, nil
}

func handleModifyVoteWeight(mc *MutationContext) (Outcome, error) {
	target := mc.TargetOrActor()
	weight := mc.Ability.IntParam("weight", 1)
	if weight < 0 {
		return Outcome{}, fmt.Errorf("negative vote weight %d", weight)
	}
	mc.Cycle.VoteModifiers = append(mc.Cycle.VoteModifiers, VoteModifier{
		SourceID: mc.Actor.ID,
		TargetID: target.ID,
		Weight:   weight,
	})
	return Outcome{
		Applied:     true,
		Description: fmt.Sprintf("vote weight of %s set to %d", target.Name, weight),
		Data:        map[string]any{"target": target.ID, "weight": weight},
	}, nil
}

func handleSilence(mc *MutationContext) (Outcome, error) {
	target := mc.Target
	if target == nil || !target.Alive {
		return Outcome{Description: "target missing or already dead"}, nil
	}
	mc.Cycle.Silences = append(mc.Cycle.Silences, Silence{
		SourceID: mc.Actor.ID,
		TargetID: target.ID,
	})
	return Outcome{
		Applied:     true,
		Description: fmt.Sprintf("%s is silenced", target.Name),
		Data:        map[string]any{"target": target.ID},
	}, nil
}

func handleBlock(mc *MutationContext) (Outcome, error) {
	target := mc.Target
	if target == nil || !target.Alive {
		return Outcome{Description: "target missing or already dead"}, nil
	}
	mc.Cycle.Blocks = append(mc.Cycle.Blocks, Block{
		SourceID: mc.Actor.ID,
		TargetID: target.ID,
	})
	return Outcome{
		Applied:     true,
		Description: fmt.Sprintf("%s is blocked tonight", target.Name),
		Data:        map[string]any{"target": target.ID},
	}, nil
}

// handleRedirect deflects attacks aimed at the chosen target. The new
// destination is the actor unless the secondary target says otherwise; the
// command layer resolves both before dispatch.
func handleRedirect(mc *MutationContext) (Outcome, error) {
	target := mc.Target
	if target == nil {
		return Outcome{Description: "no target to redirect from"}, nil
	}
	dest := mc.Actor.ID
	if to := mc.Ability.StringParam("redirect_to", ""); to != "" {
		dest = to
	}
	mc.Cycle.Redirects = append(mc.Cycle.Redirects, Redirect{
		SourceID: mc.Actor.ID,
		FromID:   target.ID,
		ToID:     dest,
	})
	return Outcome{
		Applied:     true,
		Description: fmt.Sprintf("attacks on %s are redirected", target.Name),
		Data:        map[string]any{"from": target.ID, "to": dest},
	}, nil
}

// handleSwapRoles is the one handler that mutates player fields directly: a
// swap cannot be partially vetoed later, so deferring it to resolution
// would buy nothing.
func handleSwapRoles(mc *MutationContext) (Outcome, error) {
	target := mc.Target
	if target == nil || !target.Alive {
		return Outcome{Description: "target missing or already dead"}, nil
	}
	actor := mc.Actor
	actor.Role, target.Role = target.Role, actor.Role
	actor.Alignment, target.Alignment = target.Alignment, actor.Alignment
	actor.Abilities, target.Abilities = target.Abilities, actor.Abilities
	return Outcome{
		Applied:     true,
		Description: fmt.Sprintf("%s and %s swapped roles", actor.Name, target.Name),
		Data:        map[string]any{"target": target.ID},
	}, nil
}

func handleImmuneToKill(mc *MutationContext) (Outcome, error) {
	target := mc.TargetOrActor()
	mc.Cycle.Immunities = append(mc.Cycle.Immunities, Immunity{
		SourceID: mc.Actor.ID,
		TargetID: target.ID,
	})
	return Outcome{
		Applied:     true,
		Description: fmt.Sprintf("%s cannot be killed this cycle", target.Name),
		Data:        map[string]any{"target": target.ID},
	}, nil
}

func handleWinOverride(mc *MutationContext) (Outcome, error) {
	team := mc.Ability.StringParam("team", "")
	if team == "" {
		return Outcome{}, fmt.Errorf("win_override without a team parameter")
	}
	mc.Cycle.WinOverrides = append(mc.Cycle.WinOverrides, WinOverride{
		SourceID: mc.Actor.ID,
		Team:     team,
	})
	return Outcome{
		Applied:     true,
		Description: fmt.Sprintf("win condition overridden for team %s", team),
		Data:        map[string]any{"team": team},
	}, nil
}
