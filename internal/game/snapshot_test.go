package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSnapshotRestore_RoundTrip verifies a mutated state restored from its
// snapshot is deep-equal to the original.
func TestSnapshotRestore_RoundTrip(t *testing.T) {
	s := New("g1")
	seatPlayers(t, s, "a", "b", "c")
	s.VoteWeights["a"] = 2
	require.NoError(t, s.CastVote("a", "b"))
	s.Runtime.RecordUse("a", "seer_peek", 1)

	snap := s.Snapshot()

	// Mutate everything the snapshot covers.
	_, err := s.SetPhase(PhaseDay)
	require.NoError(t, err)
	s.Kill("b")
	s.CaptainID = "c"
	s.Blocked["c"] = true
	s.WinOverride = "lovers"
	s.Runtime.RecordUse("a", "seer_peek", 2)
	s.PlayerByID("a").Role = "usurper"

	s.Restore(snap)

	assert.Equal(t, PhaseNight, s.Phase)
	assert.Equal(t, 0, s.Day)
	assert.True(t, s.PlayerByID("b").Alive)
	assert.Empty(t, s.Dead)
	assert.Empty(t, s.CaptainID)
	assert.Empty(t, s.Blocked)
	assert.Empty(t, s.WinOverride)
	assert.Equal(t, 2, s.Votes["b"], "weighted vote restored")
	assert.Equal(t, 1, s.Runtime.ChargesUsed("a", "seer_peek"))
	assert.Empty(t, s.PlayerByID("a").Role)
}

// TestSnapshot_Isolation verifies mutating the live state never leaks into
// an already-taken snapshot.
func TestSnapshot_Isolation(t *testing.T) {
	s := New("g1")
	seatPlayers(t, s, "a", "b")

	snap := s.Snapshot()
	s.Kill("a")
	s.Votes["b"] = 5
	s.PlayerByID("b").InLove = true

	assert.True(t, snap.Players[0].Alive)
	assert.Empty(t, snap.Votes)
	assert.False(t, snap.Players[1].InLove)
}

// TestRestore_KeepsPointerIdentity verifies Restore mutates the receiver in
// place rather than swapping it, since transaction callers hold the pointer.
func TestRestore_KeepsPointerIdentity(t *testing.T) {
	s := New("g1")
	seatPlayers(t, s, "a")
	held := s

	snap := s.Snapshot()
	s.Kill("a")
	s.Restore(snap)

	assert.Same(t, held, s)
	assert.True(t, held.PlayerByID("a").Alive)
}
