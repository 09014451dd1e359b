package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedIDGenerator_ReturnsInOrder(t *testing.T) {
	gen := NewFixedIDGenerator("g-1", "g-2")
	assert.Equal(t, "g-1", gen.NewID())
	assert.Equal(t, "g-2", gen.NewID())
}

func TestFixedIDGenerator_PanicsWhenExhausted(t *testing.T) {
	gen := NewFixedIDGenerator("g-1")
	require.Equal(t, "g-1", gen.NewID())
	assert.Panics(t, func() { gen.NewID() })
}
