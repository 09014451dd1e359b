// Package harness runs scripted scenarios end to end: seat players, deal
// roles, dispatch the scripted triggers through real transactions, then
// check the outcome against the scenario's expectations or a golden trace.
package harness

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rfontaine/lycaon/internal/ability"
	"github.com/rfontaine/lycaon/internal/authoring"
	"github.com/rfontaine/lycaon/internal/engine"
	"github.com/rfontaine/lycaon/internal/game"
	"github.com/rfontaine/lycaon/internal/keyedmutex"
	"github.com/rfontaine/lycaon/internal/txn"
)

// TurnTrace records one scripted turn's dispatch results.
type TurnTrace struct {
	Trigger string
	Results []engine.Result
}

// Result is the full outcome of a scenario run.
type Result struct {
	Scenario string
	Turns    []TurnTrace
	Final    *game.State
}

// Options tunes the runner. Zero values fall back to the defaults.
type Options struct {
	// LockTimeout bounds how long a scripted turn may hold the game lock.
	LockTimeout time.Duration

	// MaxDepth caps the engine's death-cascade recursion.
	MaxDepth int

	// Persister, when set, saves the game on every committed turn. Nil
	// commits in memory only.
	Persister txn.Persister

	// Traces, when set, receives each committed turn's dispatch payload.
	Traces TraceSink
}

// TraceSink appends one committed dispatch batch. The store implements it.
type TraceSink interface {
	AppendTrace(ctx context.Context, gameID string, day int, trigger string, payload map[string]any) (string, error)
}

const defaultLockTimeout = 30 * time.Second

// Run executes the scenario through the real transaction runner and
// dispatch engine. Returns the per-turn traces and the final state. A nil
// opts runs with defaults, committing in memory only.
func Run(ctx context.Context, scenario *Scenario, opts *Options) (*Result, error) {
	roles := make(map[string]authoring.Role)
	for _, path := range scenario.Roles {
		role, verrs, err := authoring.LoadRole(path)
		if err != nil {
			return nil, fmt.Errorf("run scenario %s: %w", scenario.Name, err)
		}
		if len(verrs) > 0 {
			return nil, fmt.Errorf("run scenario %s: role %s: %w", scenario.Name, path, authoring.ValidationErrors(verrs))
		}
		roles[role.ID] = role
	}

	state := game.New("scenario-" + scenario.Name)
	for _, p := range scenario.Players {
		seat, err := state.AddPlayer(p.ID, p.Name)
		if err != nil {
			return nil, fmt.Errorf("run scenario %s: %w", scenario.Name, err)
		}
		if p.Role == "" {
			continue
		}
		role, ok := roles[p.Role]
		if !ok {
			return nil, fmt.Errorf("run scenario %s: player %s references unloaded role %q", scenario.Name, p.ID, p.Role)
		}
		seat.Role = role.ID
		seat.Alignment = role.Alignment
		seat.Abilities = append([]ability.Ability(nil), role.Abilities...)
	}

	lockTimeout := defaultLockTimeout
	var engineOpts []engine.Option
	var persist txn.Persister
	var traces TraceSink
	if opts != nil {
		if opts.LockTimeout > 0 {
			lockTimeout = opts.LockTimeout
		}
		if opts.MaxDepth > 0 {
			engineOpts = append(engineOpts, engine.WithMaxDepth(opts.MaxDepth))
		}
		persist = opts.Persister
		traces = opts.Traces
	}

	runner := txn.New(keyedmutex.New(lockTimeout), persist)
	dispatcher := engine.New(engineOpts...)

	result := &Result{Scenario: scenario.Name, Final: state}
	for i, turn := range scenario.Turns {
		var results []engine.Result
		err := runner.RunAtomic(ctx, state, func(_ context.Context, tx *txn.Tx) error {
			s, err := tx.State()
			if err != nil {
				return err
			}
			results, err = dispatcher.Dispatch(s, ability.Trigger(turn.Trigger), &engine.EventContext{
				Targets: turn.Targets,
			})
			if err != nil {
				return err
			}
			if traces != nil {
				day := s.Day
				if err := tx.AfterCommit(func() {
					if _, terr := traces.AppendTrace(ctx, s.ID, day, turn.Trigger, engine.ToTracePayload(results)); terr != nil {
						slog.Warn("trace append failed", "game_id", s.ID, "error", terr)
					}
				}); err != nil {
					return err
				}
			}
			if turn.Advance != "" {
				if _, err := s.SetPhase(game.Phase(turn.Advance)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("run scenario %s: turn %d: %w", scenario.Name, i, err)
		}
		result.Turns = append(result.Turns, TurnTrace{Trigger: turn.Trigger, Results: results})
	}

	return result, nil
}

// CheckExpectations compares the final state against the scenario's expect
// clause. Returns one error per mismatch; nil means all clauses held.
func CheckExpectations(scenario *Scenario, result *Result) []error {
	if scenario.Expect == nil {
		return nil
	}
	exp := scenario.Expect
	final := result.Final

	var errs []error
	for _, id := range exp.Dead {
		p := final.PlayerByID(id)
		if p == nil || p.Alive {
			errs = append(errs, fmt.Errorf("expected %s dead, but alive", id))
		}
	}
	for _, id := range exp.Alive {
		p := final.PlayerByID(id)
		if p == nil || !p.Alive {
			errs = append(errs, fmt.Errorf("expected %s alive, but dead", id))
		}
	}
	if exp.Phase != "" && string(final.Phase) != exp.Phase {
		errs = append(errs, fmt.Errorf("expected phase %s, got %s", exp.Phase, final.Phase))
	}
	if exp.Day != nil && final.Day != *exp.Day {
		errs = append(errs, fmt.Errorf("expected day %d, got %d", *exp.Day, final.Day))
	}
	if exp.WinOverride != "" && final.WinOverride != exp.WinOverride {
		errs = append(errs, fmt.Errorf("expected win override %q, got %q", exp.WinOverride, final.WinOverride))
	}
	return errs
}
