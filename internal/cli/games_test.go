package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfontaine/lycaon/internal/game"
	"github.com/rfontaine/lycaon/internal/store"
)

func seedStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli-test.db")

	db, err := store.Open(path)
	require.NoError(t, err)
	defer db.Close()

	state := game.New("g-cli")
	for _, p := range []struct{ id, name string }{
		{"p-a", "Ana"}, {"p-b", "Bruno"}, {"p-c", "Carla"},
	} {
		_, err := state.AddPlayer(p.id, p.name)
		require.NoError(t, err)
	}
	require.NoError(t, db.SaveGame(context.Background(), state))

	_, err = db.AppendTrace(context.Background(), "g-cli", 0, "night_action",
		map[string]any{"results": []any{}})
	require.NoError(t, err)

	return path
}

func TestGamesListsStoredGames(t *testing.T) {
	path := seedStore(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewGamesCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", path})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "g-cli")
	assert.Contains(t, output, "alive=3/3")
}

func TestGamesJSON(t *testing.T) {
	path := seedStore(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewGamesCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", path})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestGamesEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	db, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewGamesCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", path})

	err = cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "no games stored")
}
