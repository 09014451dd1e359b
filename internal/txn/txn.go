// Package txn serializes game mutations. Every state change flows through
// RunAtomic: acquire the per-game lock, snapshot, run the closure, persist,
// and either commit or restore the snapshot. Handlers and phase code never
// touch locking or persistence themselves.
package txn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rfontaine/lycaon/internal/game"
	"github.com/rfontaine/lycaon/internal/keyedmutex"
	"github.com/rfontaine/lycaon/internal/metrics"
)

var (
	// ErrRecursionForbidden is returned when a closure already holding a
	// game's transaction calls RunAtomic for the same game again. Nested
	// transactions on one game would deadlock on the keyed lock, so they
	// are rejected up front.
	ErrRecursionForbidden = errors.New("txn: transaction already active for this game")

	// ErrAsyncMutation is returned by Tx methods invoked after the closure
	// has returned. The handle is only valid inside the closure; anything
	// that escaped it is operating outside the lock.
	ErrAsyncMutation = errors.New("txn: transaction handle used after commit")
)

// PersistenceError wraps a failed save. The in-memory state has already
// been rolled back to the pre-transaction snapshot when this is returned.
type PersistenceError struct {
	GameID string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("txn: persisting game %s: %v", e.GameID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsPersistenceError reports whether err wraps a PersistenceError.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// Persister saves a committed game state. The store package implements it;
// tests substitute fakes.
type Persister interface {
	SaveGame(ctx context.Context, state *game.State) error
}

// heldKey marks a game whose transaction is active on this call path.
// Stored in the context so re-entrancy is detected per call chain, not per
// process: concurrent goroutines queue on the lock as usual.
type heldKey struct {
	id     string
	parent *heldKey
}

type ctxKey struct{}

func holding(ctx context.Context, id string) bool {
	for h, _ := ctx.Value(ctxKey{}).(*heldKey); h != nil; h = h.parent {
		if h.id == id {
			return true
		}
	}
	return false
}

// Tx is the handle a closure mutates game state through. It is valid only
// for the closure's duration; once RunAtomic resumes, every method fails
// with ErrAsyncMutation.
type Tx struct {
	state   *game.State
	done    bool
	pending []func()
}

// State returns the locked game state for mutation.
func (tx *Tx) State() (*game.State, error) {
	if tx.done {
		return nil, ErrAsyncMutation
	}
	return tx.state, nil
}

// AfterCommit queues fn to run after a successful commit, outside the
// lock. Callbacks are dropped if the transaction rolls back.
func (tx *Tx) AfterCommit(fn func()) error {
	if tx.done {
		return ErrAsyncMutation
	}
	tx.pending = append(tx.pending, fn)
	return nil
}

// Runner coordinates atomic game transactions over a keyed lock and an
// optional persister. A nil persister commits in memory only, which the
// simulation harness uses.
type Runner struct {
	locks   *keyedmutex.KeyedMutex
	persist Persister
}

// New returns a Runner using the given lock table and persister.
func New(locks *keyedmutex.KeyedMutex, persist Persister) *Runner {
	return &Runner{locks: locks, persist: persist}
}

// RunAtomic executes fn as one atomic transaction over state, keyed by the
// game ID. The closure receives a context carrying the transaction marker
// and a Tx handle; it must do all mutation through the handle and must not
// let the handle escape.
//
// On closure error or persistence failure the snapshot is restored and the
// error returned; committed transactions run their AfterCommit callbacks
// after the lock is released.
func (r *Runner) RunAtomic(ctx context.Context, state *game.State, fn func(ctx context.Context, tx *Tx) error) error {
	id := state.ID
	if holding(ctx, id) {
		return ErrRecursionForbidden
	}

	release, err := r.locks.Acquire(ctx, id)
	if err != nil {
		return fmt.Errorf("txn: acquiring lock for game %s: %w", id, err)
	}

	snap := state.Snapshot()
	tx := &Tx{state: state}
	parent, _ := ctx.Value(ctxKey{}).(*heldKey)
	txCtx := context.WithValue(ctx, ctxKey{}, &heldKey{id: id, parent: parent})

	err = fn(txCtx, tx)
	tx.done = true
	if err != nil {
		state.Restore(snap)
		metrics.Rollbacks.Inc()
		release()
		slog.Debug("transaction rolled back", "game", id, "error", err)
		return err
	}

	if r.persist != nil {
		if perr := r.persist.SaveGame(ctx, state); perr != nil {
			state.Restore(snap)
			metrics.Rollbacks.Inc()
			release()
			slog.Error("persistence failed, state rolled back", "game", id, "error", perr)
			return &PersistenceError{GameID: id, Err: perr}
		}
	}

	release()
	for _, cb := range tx.pending {
		cb()
	}
	return nil
}
