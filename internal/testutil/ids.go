// Package testutil holds deterministic stand-ins for the randomized parts
// of the engine, so tests and golden snapshots stay byte-stable.
package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator returns predetermined IDs in order. Satisfies
// game.IDGenerator.
//
// Safe for concurrent use via internal mutex.
type FixedIDGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDGenerator creates a generator that returns ids in order.
// Generating past the last ID panics: a test asking for more IDs than it
// declared is a test bug.
func NewFixedIDGenerator(ids ...string) *FixedIDGenerator {
	return &FixedIDGenerator{ids: ids}
}

// NewID returns the next predetermined ID.
func (g *FixedIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.ids) {
		panic(fmt.Sprintf("FixedIDGenerator exhausted after %d ID(s)", len(g.ids)))
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
