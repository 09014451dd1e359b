package engine

// Result is one entry of the dispatch result list handed to collaborators
// for rendering and logging. It is always a plain, already-resolved value -
// dispatch never returns anything pending.
type Result struct {
	PlayerID    string         `json:"player_id"`
	AbilityID   string         `json:"ability_id"`
	Effect      string         `json:"effect"`
	Applied     bool           `json:"applied"`
	Description string         `json:"description"`
	Data        map[string]any `json:"data,omitempty"`
}

// Outcome is what an effect handler reports back to the engine. The engine
// wraps it into a Result together with the actor and ability identity.
type Outcome struct {
	Applied     bool
	Description string
	Data        map[string]any
}

// ToTracePayload flattens results into the plain map shape the codec
// package can canonically serialize for trace records and golden files.
func ToTracePayload(results []Result) map[string]any {
	list := make([]any, len(results))
	for i, r := range results {
		entry := map[string]any{
			"player_id":   r.PlayerID,
			"ability_id":  r.AbilityID,
			"effect":      r.Effect,
			"applied":     r.Applied,
			"description": r.Description,
		}
		if len(r.Data) > 0 {
			entry["data"] = r.Data
		}
		list[i] = entry
	}
	return map[string]any{"results": list}
}
