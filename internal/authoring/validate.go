package authoring

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/rfontaine/lycaon/internal/ability"
)

//go:embed schema.cue
var schemaCUE string

// Validation error codes (E200-E299)
const (
	ErrRoleUnreadable     = "E200" // file is not a valid YAML document
	ErrSchemaViolation    = "E201" // CUE schema rejected the document
	ErrIDContainsSlash    = "E202" // IDs are composite-key components, '/' is reserved
	ErrUnknownEffect      = "E203" // effect outside the whitelist
	ErrUnknownTriggerName = "E204" // trigger outside the recognized set
	ErrTooManyAbilities   = "E205" // more than maxAbilitiesPerRole
	ErrDuplicateAbilityID = "E206" // two abilities share an ID within a role
	ErrForbiddenParam     = "E207" // param not whitelisted for the effect
	ErrMissingParam       = "E208" // required param absent
	ErrForbiddenCombo     = "E209" // effect pair not allowed on one role
	ErrDuplicateRoleID    = "E210" // two files declare the same role ID
)

// maxAbilitiesPerRole caps a role's ability list.
const maxAbilitiesPerRole = 5

// ValidationError represents one role validation failure.
type ValidationError struct {
	File    string `json:"file,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("[%s] %s: %s: %s", e.Code, e.File, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// allowedParams whitelists the parameter names each effect accepts.
// Effects absent from the map accept no parameters at all.
var allowedParams = map[ability.Effect]map[string]bool{
	ability.EffectKill:             {"bypass_protection": true},
	ability.EffectModifyVoteWeight: {"weight": true},
	ability.EffectRedirect:         {"redirect_to": true},
	ability.EffectWinOverride:      {"team": true},
}

// requiredParams lists parameters an effect cannot function without.
var requiredParams = map[ability.Effect][]string{
	ability.EffectWinOverride: {"team"},
}

// forbiddenCombos lists effect pairs that must not coexist on one role.
// A role that both kills and is kill-immune would trivially dominate, and
// stacking the two vote-weight effects makes the weight ambiguous.
var forbiddenCombos = [][2]ability.Effect{
	{ability.EffectKill, ability.EffectImmuneToKill},
	{ability.EffectDoubleVote, ability.EffectModifyVoteWeight},
}

// validateSchema unifies the raw document with the embedded #Role schema.
// Uses CUE SDK's Go API directly (not CLI subprocess).
func validateSchema(doc map[string]any) []ValidationError {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return []ValidationError{{
			Field:   "schema",
			Message: fmt.Sprintf("embedded schema does not compile: %v", err),
			Code:    ErrSchemaViolation,
		}}
	}
	def := schema.LookupPath(cue.ParsePath("#Role"))
	unified := def.Unify(ctx.Encode(doc))
	err := unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var errs []ValidationError
	for _, e := range cueerrors.Errors(err) {
		errs = append(errs, ValidationError{
			Field:   strings.Join(e.Path(), "."),
			Message: e.Error(),
			Code:    ErrSchemaViolation,
		})
	}
	return errs
}

// validateRole applies the Go-side rules the schema cannot express.
// Returns all errors found (does not fail-fast).
func validateRole(r Role) []ValidationError {
	var errs []ValidationError

	if strings.Contains(r.ID, "/") {
		errs = append(errs, ValidationError{
			Field:   "id",
			Message: fmt.Sprintf("role ID %q must not contain '/'", r.ID),
			Code:    ErrIDContainsSlash,
		})
	}

	if len(r.Abilities) > maxAbilitiesPerRole {
		errs = append(errs, ValidationError{
			Field:   "abilities",
			Message: fmt.Sprintf("role %q declares %d abilities, maximum is %d", r.ID, len(r.Abilities), maxAbilitiesPerRole),
			Code:    ErrTooManyAbilities,
		})
	}

	seen := make(map[string]bool)
	effects := make(map[ability.Effect]bool)
	for i, ab := range r.Abilities {
		field := fmt.Sprintf("abilities[%d]", i)

		if strings.Contains(ab.ID, "/") {
			errs = append(errs, ValidationError{
				Field:   field + ".id",
				Message: fmt.Sprintf("ability ID %q must not contain '/'", ab.ID),
				Code:    ErrIDContainsSlash,
			})
		}
		if seen[ab.ID] {
			errs = append(errs, ValidationError{
				Field:   field + ".id",
				Message: fmt.Sprintf("duplicate ability ID %q", ab.ID),
				Code:    ErrDuplicateAbilityID,
			})
		}
		seen[ab.ID] = true

		if !ability.KnownTrigger(ab.Trigger) {
			errs = append(errs, ValidationError{
				Field:   field + ".trigger",
				Message: fmt.Sprintf("unknown trigger %q", ab.Trigger),
				Code:    ErrUnknownTriggerName,
			})
		}
		if !ability.KnownEffect(ab.Effect) {
			errs = append(errs, ValidationError{
				Field:   field + ".effect",
				Message: fmt.Sprintf("unknown effect %q", ab.Effect),
				Code:    ErrUnknownEffect,
			})
			continue // param rules need a known effect
		}
		effects[ab.Effect] = true

		allowed := allowedParams[ab.Effect]
		for name := range ab.Params {
			if !allowed[name] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.params.%s", field, name),
					Message: fmt.Sprintf("effect %q does not accept parameter %q", ab.Effect, name),
					Code:    ErrForbiddenParam,
				})
			}
		}
		for _, name := range requiredParams[ab.Effect] {
			if _, ok := ab.Params[name]; !ok {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.params.%s", field, name),
					Message: fmt.Sprintf("effect %q requires parameter %q", ab.Effect, name),
					Code:    ErrMissingParam,
				})
			}
		}
	}

	for _, combo := range forbiddenCombos {
		if effects[combo[0]] && effects[combo[1]] {
			errs = append(errs, ValidationError{
				Field:   "abilities",
				Message: fmt.Sprintf("role %q combines %q with %q", r.ID, combo[0], combo[1]),
				Code:    ErrForbiddenCombo,
			})
		}
	}

	return errs
}
