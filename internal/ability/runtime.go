package ability

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Usage is the durable per-(player, ability) counter pair. It is the whole
// of the crash-recovery record for abilities: everything else about a cycle
// is rebuilt from nothing on the next transaction.
type Usage struct {
	ChargesUsed int `json:"charges_used"`
	LastUsedDay int `json:"last_used_day"`
}

// RuntimeState tracks ability usage for one game.
//
// The usage map is durable and round-trips through JSON exactly. The
// executed set is the per-cycle "already fired" marker: it is reset at the
// start of every dispatch cycle (recursion depth 0) and is NEVER
// serialized, so a restored game always begins with it empty.
type RuntimeState struct {
	usage    map[string]*Usage
	executed map[string]struct{}
}

// NewRuntimeState returns an empty runtime state.
func NewRuntimeState() *RuntimeState {
	return &RuntimeState{
		usage:    make(map[string]*Usage),
		executed: make(map[string]struct{}),
	}
}

// usageKey builds the composite map key for a (player, ability) pair.
// Neither ID may contain '/', which the authoring package enforces.
func usageKey(playerID, abilityID string) string {
	return playerID + "/" + abilityID
}

// ChargesUsed returns how many dispatch cycles the pair has fired in.
func (r *RuntimeState) ChargesUsed(playerID, abilityID string) int {
	if u, ok := r.usage[usageKey(playerID, abilityID)]; ok {
		return u.ChargesUsed
	}
	return 0
}

// LastUsedDay returns the day counter value at the pair's last use, or -1
// if it has never fired.
func (r *RuntimeState) LastUsedDay(playerID, abilityID string) int {
	if u, ok := r.usage[usageKey(playerID, abilityID)]; ok {
		return u.LastUsedDay
	}
	return -1
}

// RecordUse increments the charge counter and stamps the last-used day.
func (r *RuntimeState) RecordUse(playerID, abilityID string, day int) {
	key := usageKey(playerID, abilityID)
	u, ok := r.usage[key]
	if !ok {
		u = &Usage{}
		r.usage[key] = u
	}
	u.ChargesUsed++
	u.LastUsedDay = day
}

// MarkExecuted records that the pair has fired in the current cycle.
func (r *RuntimeState) MarkExecuted(playerID, abilityID string) {
	r.executed[usageKey(playerID, abilityID)] = struct{}{}
}

// Executed reports whether the pair has already fired this cycle.
func (r *RuntimeState) Executed(playerID, abilityID string) bool {
	_, ok := r.executed[usageKey(playerID, abilityID)]
	return ok
}

// ResetCycle clears the executed-this-cycle marker set. Called by the
// dispatch engine at recursion depth 0 only, so recursive death dispatches
// within the same cycle still see earlier executions.
func (r *RuntimeState) ResetCycle() {
	clear(r.executed)
}

// ExecutedCount returns the number of marked pairs. Testing hook.
func (r *RuntimeState) ExecutedCount() int {
	return len(r.executed)
}

// Clone returns a deep copy of the durable usage counters. The executed
// set is not copied: a clone is only ever taken for rollback snapshots,
// and the marker is transaction-scoped.
func (r *RuntimeState) Clone() *RuntimeState {
	c := NewRuntimeState()
	for k, u := range r.usage {
		cp := *u
		c.usage[k] = &cp
	}
	return c
}

// Usages returns a copy of the durable usage counters keyed by
// "playerID/abilityID". The store projects these into queryable rows.
func (r *RuntimeState) Usages() map[string]Usage {
	out := make(map[string]Usage, len(r.usage))
	for k, u := range r.usage {
		out[k] = *u
	}
	return out
}

// MarshalJSON serializes the durable usage counters only. The executed set
// is deliberately dropped regardless of its contents.
func (r *RuntimeState) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.usage)
}

// UnmarshalJSON restores usage counters and yields a fresh, empty executed
// set regardless of what the marker held before serialization.
func (r *RuntimeState) UnmarshalJSON(data []byte) error {
	usage := make(map[string]*Usage)
	if err := json.Unmarshal(data, &usage); err != nil {
		return fmt.Errorf("unmarshal runtime state: %w", err)
	}
	for key := range usage {
		if !strings.Contains(key, "/") {
			return fmt.Errorf("unmarshal runtime state: malformed usage key %q", key)
		}
	}
	r.usage = usage
	r.executed = make(map[string]struct{})
	return nil
}
