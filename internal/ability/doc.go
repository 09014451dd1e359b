// Package ability defines the immutable ability value consumed by the
// dispatch engine, and the small piece of per-game runtime state that has
// to survive a process restart.
//
// An Ability is pure data: a trigger, an effect tag, eligibility filters and
// a whitelisted parameter set. There is no behavior attached to it - the
// engine package selects an effect handler by the Effect tag. Both built-in
// roles and user-authored custom roles produce the same value through the
// authoring package, so one pipeline serves both.
//
// RuntimeState is the only durable ability-related state: charges used and
// the day an ability last fired, keyed by (player, ability). The
// executed-this-cycle marker lives in the same struct for convenience but is
// deliberately excluded from serialization - a restored game always starts
// with an empty marker set, so a crash mid-cycle can never leave a phantom
// "already fired" entry behind.
package ability
