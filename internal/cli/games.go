package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rfontaine/lycaon/internal/config"
	"github.com/rfontaine/lycaon/internal/store"
)

// GameRow is one game in the listing output.
type GameRow struct {
	ID        string `json:"id"`
	Phase     string `json:"phase"`
	SubPhase  string `json:"sub_phase"`
	Day       int    `json:"day"`
	Alive     int    `json:"alive"`
	Total     int    `json:"total"`
	UpdatedAt string `json:"updated_at"`
}

// NewGamesCommand creates the games listing command.
func NewGamesCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:           "games",
		Short:         "List stored games",
		Long:          "List every game in the store with its phase, day and living player count.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGames(rootOpts, dbPath, cmd)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "database path (defaults to LYCAON_DB)")
	return cmd
}

func runGames(opts *RootOptions, dbPath string, cmd *cobra.Command) error {
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

	summaries, err := db.ListGames(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "listing games", err)
	}

	rows := make([]GameRow, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, GameRow{
			ID:        s.ID,
			Phase:     s.Phase,
			SubPhase:  s.SubPhase,
			Day:       s.Day,
			Alive:     s.Alive,
			Total:     s.Total,
			UpdatedAt: s.UpdatedAt,
		})
	}

	return formatter.JSON(map[string]any{"games": rows}, func(w io.Writer) {
		if len(rows) == 0 {
			fmt.Fprintln(w, "no games stored")
			return
		}
		for _, r := range rows {
			fmt.Fprintf(w, "%s  phase=%s/%s day=%d alive=%d/%d updated=%s\n",
				r.ID, r.Phase, r.SubPhase, r.Day, r.Alive, r.Total, r.UpdatedAt)
		}
	})
}

// resolveDBPath prefers the flag, falling back to the environment config.
func resolveDBPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return cfg.DBPath, nil
}
