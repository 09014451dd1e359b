package ability

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRuntimeState_UsageCounters verifies charge and last-used tracking.
func TestRuntimeState_UsageCounters(t *testing.T) {
	r := NewRuntimeState()

	assert.Equal(t, 0, r.ChargesUsed("p1", "heal"))
	assert.Equal(t, -1, r.LastUsedDay("p1", "heal"))

	r.RecordUse("p1", "heal", 2)
	r.RecordUse("p1", "heal", 5)
	r.RecordUse("p2", "heal", 3)

	assert.Equal(t, 2, r.ChargesUsed("p1", "heal"))
	assert.Equal(t, 5, r.LastUsedDay("p1", "heal"))
	assert.Equal(t, 1, r.ChargesUsed("p2", "heal"))
}

// TestRuntimeState_CycleMarker verifies the executed marker is scoped to a
// cycle and never bleeds across ResetCycle.
func TestRuntimeState_CycleMarker(t *testing.T) {
	r := NewRuntimeState()

	assert.False(t, r.Executed("p1", "bite"))
	r.MarkExecuted("p1", "bite")
	assert.True(t, r.Executed("p1", "bite"))
	assert.False(t, r.Executed("p2", "bite"))

	r.ResetCycle()
	assert.False(t, r.Executed("p1", "bite"))
	assert.Zero(t, r.ExecutedCount())
}

// TestRuntimeState_SerializationRoundTrip verifies the durable counters
// survive JSON exactly while the cycle marker is always dropped.
func TestRuntimeState_SerializationRoundTrip(t *testing.T) {
	r := NewRuntimeState()
	r.RecordUse("p1", "heal", 3)
	r.RecordUse("p2", "poison", 4)
	r.MarkExecuted("p1", "heal") // must NOT survive serialization

	data, err := json.Marshal(r)
	require.NoError(t, err)

	restored := NewRuntimeState()
	require.NoError(t, json.Unmarshal(data, restored))

	assert.Equal(t, 1, restored.ChargesUsed("p1", "heal"))
	assert.Equal(t, 3, restored.LastUsedDay("p1", "heal"))
	assert.Equal(t, 1, restored.ChargesUsed("p2", "poison"))
	assert.Equal(t, 4, restored.LastUsedDay("p2", "poison"))
	assert.False(t, restored.Executed("p1", "heal"),
		"cycle marker must come back empty regardless of pre-serialization value")
	assert.Zero(t, restored.ExecutedCount())
}

// TestRuntimeState_UnmarshalRejectsMalformedKeys verifies corrupted records
// are refused instead of silently loaded.
func TestRuntimeState_UnmarshalRejectsMalformedKeys(t *testing.T) {
	restored := NewRuntimeState()
	err := json.Unmarshal([]byte(`{"no-separator":{"charges_used":1,"last_used_day":0}}`), restored)
	require.Error(t, err)
}

// TestRuntimeState_Clone verifies clones are independent of the original.
func TestRuntimeState_Clone(t *testing.T) {
	r := NewRuntimeState()
	r.RecordUse("p1", "heal", 1)

	c := r.Clone()
	r.RecordUse("p1", "heal", 2)

	assert.Equal(t, 2, r.ChargesUsed("p1", "heal"))
	assert.Equal(t, 1, c.ChargesUsed("p1", "heal"))
}
