// Package commands implements the CLI Adapter of spec.md §4.12/§6: a cobra
// command tree mirroring the HTTP routes 1:1, translating flags/args/stdin
// into core calls and serialising results through internal/output.
// Grounded on the teacher's root.go persistent-flag/command-registration
// pattern, re-targeted from SQLite (*sql.DB) to the Graph Store Gateway.
package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Shakes-tzd/ijoka/internal/app"
)

// Execute runs the CLI application, mapping core errors to spec.md §6's
// exit codes: 0 success, 1 user error, 2 store error.
func Execute(version string) error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	root := &cobra.Command{
		Use:           "ijoka",
		Short:         "Graph-backed observability and orchestration for AI coding agents",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			showVersion, _ := cmd.Flags().GetBool("version")
			if showVersion {
				type resp struct {
					Version string `json:"version"`
				}
				return printResult(cmd, resp{Version: version})
			}
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.EnsureConfigDir(); err != nil {
				return err
			}
			if uri, err := cmd.Flags().GetString("graph-uri"); err == nil && uri != "" {
				app.SetGraphURIOverride(uri)
			}
			if cmd.Context() == nil {
				cmd.SetContext(context.Background())
			}
			return nil
		},
	}

	root.PersistentFlags().String("graph-uri", "", "Override graph store URI (default: $IJOKA_GRAPH_URI)")
	root.PersistentFlags().Bool("json", false, "Emit machine-readable JSON output")
	root.Flags().BoolP("version", "v", false, "version for ijoka")

	root.AddCommand(NewStatusCmd())
	root.AddCommand(NewFeatureCmd())
	root.AddCommand(NewPlanCmd())
	root.AddCommand(NewCheckpointCmd())
	root.AddCommand(NewInsightCmd())
	root.AddCommand(NewAnalyticsCmd())
	root.AddCommand(NewDoctorCmd())
	root.AddCommand(NewServeCmd())
	root.AddCommand(NewHookCmd())

	err := root.Execute()
	if err != nil {
		var pe printedError
		if !errors.As(err, &pe) {
			slog.Default().Error("command failed", "error", err.Error())
		}
	}
	return err
}

// ExitCode maps a returned command error to spec.md §6's CLI exit codes.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var pe printedError
	if errors.As(err, &pe) {
		return pe.exitCode()
	}
	return 1
}
