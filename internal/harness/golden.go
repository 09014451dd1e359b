package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/rfontaine/lycaon/internal/codec"
	"github.com/rfontaine/lycaon/internal/engine"
)

// Snapshot flattens a scenario result into the plain map shape the codec
// package serializes canonically. Byte-stable, so golden comparisons never
// flake on map order.
func Snapshot(result *Result) map[string]any {
	turns := make([]any, len(result.Turns))
	for i, turn := range result.Turns {
		payload := engine.ToTracePayload(turn.Results)
		turns[i] = map[string]any{
			"trigger": turn.Trigger,
			"results": payload["results"],
		}
	}

	alive := []any{}
	for _, p := range result.Final.Players {
		if p.Alive {
			alive = append(alive, p.ID)
		}
	}
	final := map[string]any{
		"day":       result.Final.Day,
		"phase":     string(result.Final.Phase),
		"sub_phase": string(result.Final.SubPhase),
		"dead":      result.Final.Dead,
		"alive":     alive,
	}
	if result.Final.WinOverride != "" {
		final["win_override"] = result.Final.WinOverride
	}

	return map[string]any{
		"scenario": result.Scenario,
		"turns":    turns,
		"final":    final,
	}
}

// AssertGolden compares a scenario result's canonical trace against the
// golden file testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, result *Result) {
	t.Helper()

	traceJSON, err := codec.MarshalCanonical(Snapshot(result))
	if err != nil {
		t.Fatalf("marshal trace snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, result.Scenario, traceJSON)
}
