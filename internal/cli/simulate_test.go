package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wolfNightScenario(t *testing.T) string {
	t.Helper()
	path := filepath.Join("..", "harness", "testdata", "scenarios", "wolf-night.yaml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("harness testdata not found")
	}
	return path
}

func TestSimulatePassingScenario(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewSimulateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{wolfNightScenario(t)})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "scenario wolf-night")
	assert.Contains(t, output, "PASS")
	assert.Contains(t, output, "blocked: target is protected")
}

func TestSimulatePassingScenarioJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewSimulateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{wolfNightScenario(t)})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result SimulateResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.True(t, result.Passed)
	assert.Equal(t, "wolf-night", result.Scenario)
	assert.Equal(t, "DAY", result.Final.Phase)
	assert.Empty(t, result.Final.Dead)
}

func TestSimulateFailedExpectation(t *testing.T) {
	src := wolfNightScenario(t)
	raw, err := os.ReadFile(src)
	require.NoError(t, err)

	// Flip the expectation so the run mismatches: the guarded target is
	// expected dead even though the guardian saves them.
	broken := bytes.Replace(raw,
		[]byte("expect:"),
		[]byte("expect:\n  dead: [p-carla]"), 1)
	require.NotEqual(t, raw, broken)

	dir := t.TempDir()
	rolesDir := filepath.Join("..", "harness", "testdata", "roles")
	absRoles, err := filepath.Abs(rolesDir)
	require.NoError(t, err)
	broken = bytes.ReplaceAll(broken, []byte("../roles/"), []byte(absRoles+"/"))
	path := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(path, broken, 0o644))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewSimulateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	execErr := cmd.Execute()
	require.Error(t, execErr)
	assert.Equal(t, ExitFailure, GetExitCode(execErr))
	assert.Contains(t, buf.String(), "FAIL:")
}

func TestSimulatePersistsRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sim.db")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewSimulateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, wolfNightScenario(t)})
	require.NoError(t, cmd.Execute())

	traceBuf := &bytes.Buffer{}
	traceCmd := NewTraceCommand(rootOpts)
	traceCmd.SetOut(traceBuf)
	traceCmd.SetArgs([]string{"--db", dbPath, "--game", "scenario-wolf-night"})
	require.NoError(t, traceCmd.Execute())

	output := traceBuf.String()
	assert.Contains(t, output, "scenario-wolf-night: 1 trace(s)")
	assert.Contains(t, output, "trigger=night_action")
}

func TestSimulateMissingScenario(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewSimulateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/scenario.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
