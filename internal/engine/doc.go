// Package engine implements deterministic ability dispatch and conflict
// resolution for a running game.
//
// One dispatch cycle proceeds in fixed stages:
//
//  1. Collect: every living player's abilities are filtered against the
//     trigger, phase, charge budget, cooldown, block status and the
//     executed-this-cycle marker.
//  2. Order: matches are sorted ascending by priority (explicit or
//     per-effect default), ties broken by stable player join order -
//     never by call-arrival timing, so resolution is reproducible.
//  3. Execute: each match runs its effect handler. Handlers are pure
//     functions selected by the ability's effect tag; all but swap_roles
//     write only to the transient CycleState buckets. A handler failure is
//     caught per ability and surfaced as a failed outcome without aborting
//     siblings.
//  4. Resolve: the conflict resolver reconciles the buckets into confirmed
//     outcomes (kills, blocks, silences, vote modifiers, win overrides)
//     with deterministic precedence and per-target deduplication.
//  5. Cascade: each newly confirmed death re-dispatches the death trigger
//     at depth+1, sharing the same CycleState. The recursion is bounded by
//     a fixed depth cap; hitting the cap truncates the cascade with a log
//     line, not an error.
//
// The engine never suspends: dispatch is synchronous and CPU-bound, so the
// moment a transaction commits, its effects are atomically observable.
// Handlers must not perform I/O; anything slow belongs in the transaction
// runner's post-commit callbacks.
package engine
