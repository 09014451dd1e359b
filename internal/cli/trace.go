package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rfontaine/lycaon/internal/store"
)

// TraceRow is one dispatch trace entry in the output.
type TraceRow struct {
	ID      string          `json:"id"`
	Seq     int             `json:"seq"`
	Day     int             `json:"day"`
	Trigger string          `json:"trigger"`
	Payload json.RawMessage `json:"payload"`
}

// NewTraceCommand creates the trace inspection command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string
	var gameID string

	cmd := &cobra.Command{
		Use:           "trace",
		Short:         "Show a game's dispatch traces",
		Long:          "Print every committed dispatch batch of one game in sequence order.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(rootOpts, dbPath, gameID, cmd)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "database path (defaults to LYCAON_DB)")
	cmd.Flags().StringVar(&gameID, "game", "", "game ID (required)")
	_ = cmd.MarkFlagRequired("game")
	return cmd
}

func runTrace(opts *RootOptions, dbPath, gameID string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	path, err := resolveDBPath(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading config", err)
	}

	db, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening store", err)
	}
	defer db.Close()

	records, err := db.TracesForGame(cmd.Context(), gameID)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading traces", err)
	}
	if len(records) == 0 {
		if err := formatter.Error("NOT_FOUND", fmt.Sprintf("no traces for game %s", gameID), nil); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "no traces found")
	}

	rows := make([]TraceRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, TraceRow{
			ID:      rec.ID,
			Seq:     rec.Seq,
			Day:     rec.Day,
			Trigger: rec.Trigger,
			Payload: json.RawMessage(rec.Payload),
		})
	}

	return formatter.JSON(map[string]any{"game_id": gameID, "traces": rows}, func(w io.Writer) {
		fmt.Fprintf(w, "game %s: %d trace(s)\n", gameID, len(rows))
		for _, r := range rows {
			fmt.Fprintf(w, "#%d day=%d trigger=%s id=%s\n", r.Seq, r.Day, r.Trigger, r.ID)
			fmt.Fprintf(w, "  %s\n", r.Payload)
		}
	})
}
