package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rfontaine/lycaon/internal/authoring"
	"github.com/rfontaine/lycaon/internal/config"
)

// ValidationResult holds validation results for the roles directory.
type ValidationResult struct {
	Valid  bool                        `json:"valid"`
	Roles  []string                    `json:"roles,omitempty"`
	Errors []authoring.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [roles-dir]",
		Short: "Validate role definition files",
		Long: `Validate every YAML role file in a directory against the role schema
and the authoring rules: param whitelists, charge/cooldown/priority ranges,
ability limits and forbidden effect combinations.

With no argument, validates the directory from LYCAON_ROLES_DIR.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rolesDir := ""
			if len(args) == 1 {
				rolesDir = args[0]
			} else {
				cfg, err := config.Load()
				if err != nil {
					return WrapExitError(ExitCommandError, "loading config", err)
				}
				rolesDir = cfg.RolesDir
			}
			return runValidate(rootOpts, rolesDir, cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, rolesDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	lib, err := authoring.LoadLibrary(rolesDir)
	if err != nil {
		var verrs authoring.ValidationErrors
		if errors.As(err, &verrs) {
			result := ValidationResult{Valid: false, Errors: verrs}
			if ferr := formatter.JSON(result, func(w io.Writer) {
				fmt.Fprintf(w, "invalid: %d error(s)\n", len(verrs))
				for _, ve := range verrs {
					fmt.Fprintf(w, "  %s\n", ve.Error())
				}
			}); ferr != nil {
				return ferr
			}
			return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(verrs)))
		}
		return WrapExitError(ExitCommandError, "loading roles", err)
	}

	ids := lib.IDs()
	formatter.VerboseLog("validated %d role(s) in %s", len(ids), rolesDir)
	return formatter.JSON(ValidationResult{Valid: true, Roles: ids}, func(w io.Writer) {
		fmt.Fprintf(w, "ok: %d role(s)\n", len(ids))
		for _, id := range ids {
			fmt.Fprintf(w, "  %s\n", id)
		}
	})
}
