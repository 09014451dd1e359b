package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfontaine/lycaon/internal/ability"
	"github.com/rfontaine/lycaon/internal/engine"
	"github.com/rfontaine/lycaon/internal/game"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testGame(t *testing.T, id string) *game.State {
	t.Helper()
	g := game.New(id)
	for _, pid := range []string{"p-a", "p-b", "p-c", "p-d"} {
		_, err := g.AddPlayer(pid, "Player "+pid)
		require.NoError(t, err)
	}
	return g
}

func TestOpen_AppliesPragmas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lycaon.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("synchronous", "1")) // NORMAL

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lycaon.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.SaveGame(context.Background(), testGame(t, "g-1")))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	loaded, err := s2.LoadGame(context.Background(), "g-1")
	require.NoError(t, err)
	assert.Equal(t, "g-1", loaded.ID)
}

func TestLoadGame_RestoredGameIsMutable(t *testing.T) {
	s := openTestStore(t)

	g := testGame(t, "g-restore")
	g.Players[0].Abilities = []ability.Ability{{
		ID:       "hush",
		Type:     ability.TypeActive,
		Trigger:  ability.TriggerNightAction,
		Effect:   ability.EffectSilence,
		Priority: ability.PriorityDefault,
	}}
	require.NoError(t, s.SaveGame(context.Background(), g))

	// A fresh game has no votes or status marks, so the snapshot omits
	// those maps entirely. The restored state must still take mutations.
	loaded, err := s.LoadGame(context.Background(), "g-restore")
	require.NoError(t, err)

	require.NoError(t, loaded.CastVote("p-a", "p-b"))
	assert.Equal(t, 1, loaded.Votes["p-b"])

	results, err := engine.New().Dispatch(loaded, ability.TriggerNightAction, &engine.EventContext{
		Targets: map[string]string{"p-a": "p-b"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Applied)
	assert.True(t, loaded.Silenced["p-b"])
}

func TestSaveLoadGame_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	g := testGame(t, "g-roundtrip")
	g.Kill("p-c")
	g.CaptainID = "p-a"
	g.Runtime.RecordUse("p-b", "bite", 2)
	g.Runtime.RecordUse("p-b", "bite", 3)
	g.Runtime.MarkExecuted("p-b", "bite") // transient, must not survive

	require.NoError(t, s.SaveGame(ctx, g))

	loaded, err := s.LoadGame(ctx, "g-roundtrip")
	require.NoError(t, err)

	assert.Equal(t, g.ID, loaded.ID)
	assert.Equal(t, g.Phase, loaded.Phase)
	assert.Equal(t, g.Day, loaded.Day)
	assert.Equal(t, "p-a", loaded.CaptainID)
	assert.Equal(t, []string{"p-c"}, loaded.Dead)
	require.NotNil(t, loaded.PlayerByID("p-c"))
	assert.False(t, loaded.PlayerByID("p-c").Alive)

	assert.Equal(t, 2, loaded.Runtime.ChargesUsed("p-b", "bite"))
	assert.Equal(t, 3, loaded.Runtime.LastUsedDay("p-b", "bite"))
	assert.False(t, loaded.Runtime.Executed("p-b", "bite"), "cycle marker never persists")
}

func TestSaveGame_UpsertOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	g := testGame(t, "g-upsert")
	require.NoError(t, s.SaveGame(ctx, g))

	g.Kill("p-a")
	g.Day = 4
	require.NoError(t, s.SaveGame(ctx, g))

	loaded, err := s.LoadGame(ctx, "g-upsert")
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Day)
	assert.False(t, loaded.PlayerByID("p-a").Alive)

	games, err := s.ListGames(ctx)
	require.NoError(t, err)
	assert.Len(t, games, 1, "upsert must not duplicate rows")
}

func TestLoadGame_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.LoadGame(context.Background(), "g-missing")
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestListGames_Summaries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	g1 := testGame(t, "g-list-1")
	g1.Kill("p-a")
	require.NoError(t, s.SaveGame(ctx, g1))
	require.NoError(t, s.SaveGame(ctx, testGame(t, "g-list-2")))

	games, err := s.ListGames(ctx)
	require.NoError(t, err)
	require.Len(t, games, 2)

	byID := map[string]GameSummary{}
	for _, gs := range games {
		byID[gs.ID] = gs
	}
	assert.Equal(t, 4, byID["g-list-1"].Total)
	assert.Equal(t, 3, byID["g-list-1"].Alive)
	assert.Equal(t, 4, byID["g-list-2"].Alive)
}

func TestUsageRows_Projection(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	g := testGame(t, "g-usage")
	g.Runtime.RecordUse("p-a", "heal", 1)
	g.Runtime.RecordUse("p-b", "bite", 1)
	g.Runtime.RecordUse("p-b", "bite", 2)
	require.NoError(t, s.SaveGame(ctx, g))

	rows, err := s.UsageRows(ctx, "g-usage")
	require.NoError(t, err)
	assert.Equal(t, [2]int{1, 1}, rows["p-a/heal"])
	assert.Equal(t, [2]int{2, 2}, rows["p-b/bite"])
}
