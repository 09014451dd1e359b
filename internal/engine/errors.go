package engine

import (
	"errors"
	"fmt"

	"github.com/rfontaine/lycaon/internal/ability"
)

// ErrUnknownTrigger rejects dispatch calls with an unrecognized trigger
// name. This is API misuse, fatal to the calling transaction.
var ErrUnknownTrigger = errors.New("unknown trigger")

// HandlerExecutionError wraps a failure inside one effect handler. It is
// caught per ability and surfaced as a failed outcome entry so one broken
// custom role can never abort or corrupt the rest of the resolution cycle.
type HandlerExecutionError struct {
	PlayerID  string
	AbilityID string
	Effect    ability.Effect
	Err       error
}

// Error implements the error interface.
func (e *HandlerExecutionError) Error() string {
	return fmt.Sprintf("handler %s failed for player %s ability %s: %v",
		e.Effect, e.PlayerID, e.AbilityID, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *HandlerExecutionError) Unwrap() error {
	return e.Err
}

// IsHandlerError reports whether err is a HandlerExecutionError, unwrapping
// as needed.
func IsHandlerError(err error) bool {
	var he *HandlerExecutionError
	return errors.As(err, &he)
}
