package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rfontaine/lycaon/internal/config"
	"github.com/rfontaine/lycaon/internal/harness"
	"github.com/rfontaine/lycaon/internal/store"
)

// SimulateResult is the structured output of one scenario run.
type SimulateResult struct {
	Scenario string         `json:"scenario"`
	Passed   bool           `json:"passed"`
	Failures []string       `json:"failures,omitempty"`
	Turns    []SimulateTurn `json:"turns"`
	Final    SimulateFinal  `json:"final"`
}

// SimulateTurn is one dispatched turn in the output.
type SimulateTurn struct {
	Trigger string        `json:"trigger"`
	Results []TurnOutcome `json:"results"`
}

// TurnOutcome is one ability outcome in a turn.
type TurnOutcome struct {
	PlayerID    string `json:"player_id"`
	AbilityID   string `json:"ability_id"`
	Effect      string `json:"effect"`
	Applied     bool   `json:"applied"`
	Description string `json:"description"`
}

// SimulateFinal summarizes the end state.
type SimulateFinal struct {
	Phase       string   `json:"phase"`
	Day         int      `json:"day"`
	Dead        []string `json:"dead"`
	WinOverride string   `json:"win_override,omitempty"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "simulate <scenario.yaml>",
		Short: "Run a scripted scenario",
		Long: `Run a scenario file through the real transaction runner and dispatch
engine and print the per-turn outcomes and final state.

With --db, every committed turn persists the game and appends a dispatch
trace, so the run can be inspected afterwards with games and trace.
Without it the run commits in memory only.

If the scenario declares an expect clause, mismatches fail the command
with exit code 1.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(rootOpts, args[0], dbPath, cmd)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "persist the run to this database")
	return cmd
}

func runSimulate(opts *RootOptions, path, dbPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading scenario", err)
	}
	formatter.VerboseLog("running scenario %s (%d turn(s))", scenario.Name, len(scenario.Turns))

	cfg, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "loading config", err)
	}
	runOpts := &harness.Options{
		LockTimeout: cfg.LockTimeout,
		MaxDepth:    cfg.MaxDepth,
	}
	if dbPath != "" {
		db, err := store.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "opening store", err)
		}
		defer db.Close()
		runOpts.Persister = db
		runOpts.Traces = db
	}
	result, err := harness.Run(cmd.Context(), scenario, runOpts)
	if err != nil {
		return WrapExitError(ExitCommandError, "running scenario", err)
	}

	out := SimulateResult{Scenario: result.Scenario, Passed: true}
	for _, turn := range result.Turns {
		st := SimulateTurn{Trigger: turn.Trigger, Results: []TurnOutcome{}}
		for _, r := range turn.Results {
			st.Results = append(st.Results, TurnOutcome{
				PlayerID:    r.PlayerID,
				AbilityID:   r.AbilityID,
				Effect:      r.Effect,
				Applied:     r.Applied,
				Description: r.Description,
			})
		}
		out.Turns = append(out.Turns, st)
	}
	out.Final = SimulateFinal{
		Phase:       string(result.Final.Phase),
		Day:         result.Final.Day,
		Dead:        result.Final.Dead,
		WinOverride: result.Final.WinOverride,
	}
	for _, mismatch := range harness.CheckExpectations(scenario, result) {
		out.Passed = false
		out.Failures = append(out.Failures, mismatch.Error())
	}

	if err := formatter.JSON(out, func(w io.Writer) {
		fmt.Fprintf(w, "scenario %s\n", out.Scenario)
		for i, turn := range out.Turns {
			fmt.Fprintf(w, "turn %d (%s):\n", i+1, turn.Trigger)
			for _, r := range turn.Results {
				status := "applied"
				if !r.Applied {
					status = "no effect"
				}
				fmt.Fprintf(w, "  %s/%s %s [%s]: %s\n", r.PlayerID, r.AbilityID, r.Effect, status, r.Description)
			}
		}
		fmt.Fprintf(w, "final: phase=%s day=%d dead=%v\n", out.Final.Phase, out.Final.Day, out.Final.Dead)
		for _, f := range out.Failures {
			fmt.Fprintf(w, "FAIL: %s\n", f)
		}
		if out.Passed {
			fmt.Fprintln(w, "PASS")
		}
	}); err != nil {
		return err
	}

	if !out.Passed {
		return NewExitError(ExitFailure, fmt.Sprintf("%d expectation(s) failed", len(out.Failures)))
	}
	return nil
}
