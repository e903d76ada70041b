package commands

import (
	"github.com/spf13/cobra"

	"github.com/Shakes-tzd/ijoka/internal/analytics"
	"github.com/Shakes-tzd/ijoka/internal/app"
	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
)

// NewDoctorCmd wires `ijoka doctor`: a read-only diagnostic dump of the
// resolved Graph Store Gateway configuration (and how it was resolved) plus
// a status-reconciliation scan (invariant I3), with no core HTTP route
// counterpart since it exists purely to help a human/agent debug a
// misconfigured or drifted installation.
func NewDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose graph store configuration and feature status drift",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, source, err := app.ResolveGraphConfigDetailed()
			if err != nil {
				return err
			}

			var mismatches []analytics.StatusMismatch
			if gatewayErr := withProject(ctx, func(g graph.Gateway, project *models.Project) error {
				m, err := analytics.ReconcileStatuses(ctx, g, project.ID)
				if err != nil {
					return err
				}
				mismatches = m
				return nil
			}); gatewayErr != nil {
				return printResult(cmd, map[string]any{
					"graph_uri":         cfg.URI,
					"graph_database":    cfg.Database,
					"graph_uri_source":  source,
					"store_reachable":   false,
					"store_error":       gatewayErr.Error(),
					"status_mismatches": []analytics.StatusMismatch{},
				})
			}

			return printResult(cmd, map[string]any{
				"graph_uri":         cfg.URI,
				"graph_database":    cfg.Database,
				"graph_uri_source":  source,
				"store_reachable":   true,
				"status_mismatches": mismatches,
			})
		},
	}
}
