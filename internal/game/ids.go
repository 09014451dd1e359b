package game

import "github.com/google/uuid"

// IDGenerator mints game IDs. Swappable so tests can pin IDs and golden
// outputs stay byte-stable.
type IDGenerator interface {
	NewID() string
}

// UUIDv7Generator mints time-sortable UUIDv7 IDs. The embedded timestamp
// makes stored games sort by creation time.
//
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// NewID returns a new UUIDv7 as a hyphenated string.
func (UUIDv7Generator) NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// DefaultIDs mints IDs for games created without an explicit one.
var DefaultIDs IDGenerator = UUIDv7Generator{}
