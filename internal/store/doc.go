// Package store persists games to SQLite.
//
// Three tables: games (one row per game, holding a zstd-compressed JSON
// snapshot and the hot columns listings need), ability_usage (a queryable
// projection of the snapshot's durable counters) and dispatch_traces
// (append-only, content-addressed records of committed dispatch batches).
//
// The snapshot blob is authoritative. A game restored from it is
// byte-for-byte the state that was committed, with the transient
// executed-this-cycle marker always empty.
package store
