// Package authoring is the boundary between role definition files and the
// engine. YAML role files are validated twice: structurally against the
// embedded CUE schema, then against the Go-side rules the schema cannot
// express (param whitelists, effect combinations, ID constraints). Only a
// role that passes both ever reaches a game.
package authoring

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rfontaine/lycaon/internal/ability"
	"github.com/rfontaine/lycaon/internal/game"
)

// Role is a validated, immutable role definition.
type Role struct {
	ID        string
	Name      string
	Alignment game.Alignment
	Abilities []ability.Ability
}

// roleFile is the YAML decode target. Priority is a pointer because 0 is a
// legal explicit priority and absence must map to the per-effect default.
type roleFile struct {
	ID        string        `yaml:"id"`
	Name      string        `yaml:"name"`
	Alignment string        `yaml:"alignment"`
	Abilities []abilityFile `yaml:"abilities"`
}

type abilityFile struct {
	ID       string         `yaml:"id"`
	Type     string         `yaml:"type"`
	Trigger  string         `yaml:"trigger"`
	Phase    string         `yaml:"phase"`
	Target   string         `yaml:"target"`
	Effect   string         `yaml:"effect"`
	Charges  int            `yaml:"charges"`
	Cooldown int            `yaml:"cooldown"`
	Priority *int           `yaml:"priority"`
	Params   map[string]any `yaml:"params"`
}

// normalizePhase maps the authoring-file phase names onto the state
// machine's phase identifiers.
func normalizePhase(p string) string {
	switch p {
	case "night":
		return string(game.PhaseNight)
	case "day":
		return string(game.PhaseDay)
	default:
		return p // "", "any"
	}
}

func (f roleFile) toRole() Role {
	r := Role{
		ID:        f.ID,
		Name:      f.Name,
		Alignment: game.Alignment(f.Alignment),
	}
	for _, af := range f.Abilities {
		ab := ability.Ability{
			ID:       af.ID,
			Type:     ability.Type(af.Type),
			Trigger:  ability.Trigger(af.Trigger),
			Phase:    normalizePhase(af.Phase),
			Target:   ability.TargetFilter(af.Target),
			Effect:   ability.Effect(af.Effect),
			Charges:  af.Charges,
			Cooldown: af.Cooldown,
			Priority: ability.PriorityDefault,
			Params:   af.Params,
		}
		if af.Priority != nil {
			ab.Priority = *af.Priority
		}
		r.Abilities = append(r.Abilities, ab)
	}
	return r
}

// ParseRole validates and converts one YAML role document.
// Returns all validation errors found (does not fail-fast).
func ParseRole(data []byte) (Role, []ValidationError) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Role{}, []ValidationError{{
			Field:   "document",
			Message: fmt.Sprintf("not valid YAML: %v", err),
			Code:    ErrRoleUnreadable,
		}}
	}

	if errs := validateSchema(doc); len(errs) > 0 {
		return Role{}, errs
	}

	var f roleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Role{}, []ValidationError{{
			Field:   "document",
			Message: fmt.Sprintf("decode: %v", err),
			Code:    ErrRoleUnreadable,
		}}
	}
	role := f.toRole()
	if errs := validateRole(role); len(errs) > 0 {
		return Role{}, errs
	}
	return role, nil
}

// LoadRole reads and validates one role file.
func LoadRole(path string) (Role, []ValidationError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Role{}, nil, fmt.Errorf("load role: %w", err)
	}
	role, errs := ParseRole(data)
	return role, errs, nil
}

// Library is an immutable set of validated roles, loaded once at startup
// and shared read-only afterwards.
type Library struct {
	roles map[string]Role
}

// LoadLibrary loads every .yaml/.yml file in dir. Any validation error in
// any file fails the whole load: a partially valid library is worse than a
// missing one.
func LoadLibrary(dir string) (*Library, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("load library: %w", err)
	}

	lib := &Library{roles: make(map[string]Role)}
	var all ValidationErrors
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		role, errs, err := LoadRole(path)
		if err != nil {
			return nil, err
		}
		for i := range errs {
			errs[i].File = e.Name()
		}
		all = append(all, errs...)
		if len(errs) > 0 {
			continue
		}
		if _, dup := lib.roles[role.ID]; dup {
			all = append(all, ValidationError{
				File:    e.Name(),
				Field:   "id",
				Message: fmt.Sprintf("duplicate role ID %q", role.ID),
				Code:    ErrDuplicateRoleID,
			})
			continue
		}
		lib.roles[role.ID] = role
	}
	if len(all) > 0 {
		return nil, all
	}
	return lib, nil
}

// Role returns the role with the given ID.
func (l *Library) Role(id string) (Role, bool) {
	r, ok := l.roles[id]
	return r, ok
}

// IDs returns all role IDs in sorted order.
func (l *Library) IDs() []string {
	ids := make([]string, 0, len(l.roles))
	for id := range l.roles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Assign deals a role to a seated player: role name, alignment and a fresh
// copy of the ability set.
func (l *Library) Assign(state *game.State, playerID, roleID string) error {
	role, ok := l.roles[roleID]
	if !ok {
		return fmt.Errorf("assign role: unknown role %q", roleID)
	}
	p := state.PlayerByID(playerID)
	if p == nil {
		return fmt.Errorf("assign role: unknown player %q", playerID)
	}
	p.Role = role.ID
	p.Alignment = role.Alignment
	p.Abilities = append([]ability.Ability(nil), role.Abilities...)
	return nil
}

// ValidationErrors aggregates per-file validation errors into one error.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d validation error(s): %s", len(v), strings.Join(msgs, "; "))
}
