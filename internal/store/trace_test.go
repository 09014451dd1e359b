package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendTrace_SequencedPerGame(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveGame(ctx, testGame(t, "g-trace")))

	id1, err := s.AppendTrace(ctx, "g-trace", 1, "night_action", map[string]any{
		"results": []any{map[string]any{"player": "p-a", "effect": "kill", "applied": true}},
	})
	require.NoError(t, err)
	id2, err := s.AppendTrace(ctx, "g-trace", 1, "on_death", map[string]any{
		"results": []any{},
	})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	traces, err := s.TracesForGame(ctx, "g-trace")
	require.NoError(t, err)
	require.Len(t, traces, 2)
	assert.Equal(t, 1, traces[0].Seq)
	assert.Equal(t, 2, traces[1].Seq)
	assert.Equal(t, "night_action", traces[0].Trigger)
	assert.JSONEq(t,
		`{"day":1,"game_id":"g-trace","payload":{"results":[]},"trigger":"on_death"}`,
		string(traces[1].Payload))
}

func TestAppendTrace_DuplicateIsNoop(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveGame(ctx, testGame(t, "g-dup")))

	payload := map[string]any{"results": []any{}}
	id1, err := s.AppendTrace(ctx, "g-dup", 2, "night_action", payload)
	require.NoError(t, err)
	id2, err := s.AppendTrace(ctx, "g-dup", 2, "night_action", payload)
	require.NoError(t, err)
	assert.Equal(t, id1, id2, "content-addressed IDs match")

	traces, err := s.TracesForGame(ctx, "g-dup")
	require.NoError(t, err)
	assert.Len(t, traces, 1)
}

func TestTracesForGame_Empty(t *testing.T) {
	s := openTestStore(t)
	traces, err := s.TracesForGame(context.Background(), "g-none")
	require.NoError(t, err)
	assert.Empty(t, traces)
}
