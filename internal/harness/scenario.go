package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rfontaine/lycaon/internal/ability"
	"github.com/rfontaine/lycaon/internal/game"
)

// Scenario is one scripted game: seats, roles, a turn sequence and the
// expected end state. Scenarios drive both golden-trace tests and the
// simulate CLI command.
type Scenario struct {
	// Name uniquely identifies this scenario; golden files are keyed by it.
	Name string `yaml:"name"`

	// Description explains what this scenario demonstrates.
	Description string `yaml:"description"`

	// Roles lists role definition files, relative to the scenario file.
	Roles []string `yaml:"roles"`

	// Players seats the table in join order.
	Players []PlayerSetup `yaml:"players"`

	// Turns is the scripted trigger sequence.
	Turns []Turn `yaml:"turns"`

	// Expect validates the final state after all turns ran.
	Expect *Expectation `yaml:"expect,omitempty"`
}

// PlayerSetup seats one player and deals them a role.
type PlayerSetup struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Role string `yaml:"role"`
}

// Turn dispatches one trigger with explicit actor-to-target choices, then
// optionally advances the phase.
type Turn struct {
	// Trigger is the dispatch trigger name, e.g. "night_action".
	Trigger string `yaml:"trigger"`

	// Targets maps actor ID to target ID for this turn.
	Targets map[string]string `yaml:"targets,omitempty"`

	// Advance, if set, transitions the phase after dispatch: "DAY",
	// "NIGHT" or "ENDED".
	Advance string `yaml:"advance,omitempty"`
}

// Expectation is a subset match on the final game state.
type Expectation struct {
	Dead        []string `yaml:"dead,omitempty"`
	Alive       []string `yaml:"alive,omitempty"`
	Phase       string   `yaml:"phase,omitempty"`
	Day         *int     `yaml:"day,omitempty"`
	WinOverride string   `yaml:"win_override,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Role paths are
// resolved relative to the scenario file. Unknown fields are rejected so
// typos fail loudly instead of silently skipping a clause.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	for i, rolePath := range scenario.Roles {
		if !filepath.IsAbs(rolePath) {
			scenario.Roles[i] = filepath.Join(base, rolePath)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Players) == 0 {
		return fmt.Errorf("players list is required and must be non-empty")
	}
	if len(s.Turns) == 0 {
		return fmt.Errorf("turns list is required and must be non-empty")
	}

	for _, rolePath := range s.Roles {
		if _, err := os.Stat(rolePath); os.IsNotExist(err) {
			return fmt.Errorf("role file not found: %s", rolePath)
		}
	}

	seen := make(map[string]bool)
	for i, p := range s.Players {
		if p.ID == "" {
			return fmt.Errorf("players[%d]: id is required", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("players[%d]: duplicate player ID %q", i, p.ID)
		}
		seen[p.ID] = true
	}

	for i, turn := range s.Turns {
		if !ability.KnownTrigger(ability.Trigger(turn.Trigger)) {
			return fmt.Errorf("turns[%d]: unknown trigger %q", i, turn.Trigger)
		}
		if turn.Advance != "" && !game.KnownPhase(game.Phase(turn.Advance)) {
			return fmt.Errorf("turns[%d]: unknown phase %q", i, turn.Advance)
		}
		for actor, target := range turn.Targets {
			if !seen[actor] {
				return fmt.Errorf("turns[%d]: unknown actor %q", i, actor)
			}
			if !seen[target] {
				return fmt.Errorf("turns[%d]: unknown target %q", i, target)
			}
		}
	}

	return nil
}
