// Package game holds the mutable state of a single running game and the
// phase state machine that governs its lifecycle.
//
// A game moves between two live phases, NIGHT and DAY, each subdivided into
// an ordered set of sub-phases (night role windows, day vote windows), and
// one terminal phase, ENDED. Transitions are validated against a static
// adjacency table; there is no path out of ENDED.
//
// OWNERSHIP:
// State is owned exclusively by the orchestration core. All mutation happens
// inside a transaction closure run by the txn package - command handlers
// never touch State directly. There is no package-level "current game";
// every function takes the State it operates on, so independent games run
// in parallel without sharing anything.
//
// SNAPSHOTS:
// Snapshot() deep-copies every mutable field so a failed persistence attempt
// can restore the exact pre-mutation state. Restore() copies the snapshot
// back into the live State in place, preserving the pointer identity that
// callers hold.
package game
