package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
	"github.com/Shakes-tzd/ijoka/internal/store"
)

// NewStatusCmd wires `ijoka status`, the CLI counterpart of GET /status:
// the current Project, a status-bucketed Feature count, and whichever
// non-Session-Work Feature is currently in_progress.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current project, feature stats, and active feature",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var result map[string]any
			err := withProject(ctx, func(g graph.Gateway, project *models.Project) error {
				features, err := store.ListFeatures(ctx, g, project.ID, "", "")
				if err != nil {
					return err
				}
				f, err := currentFeature(ctx, g, project.ID)
				if err != nil {
					return err
				}
				result = map[string]any{
					"project":         project,
					"stats":           featureStats(features),
					"current_feature": f,
				}
				return nil
			})
			if err != nil {
				return err
			}
			return printResult(cmd, result)
		},
	}
}

// featureStats buckets Features by status, mirroring httpapi's helper of the
// same name for the HTTP Adapter.
func featureStats(features []*models.Feature) map[string]int {
	stats := map[string]int{}
	for _, f := range features {
		stats[string(f.Status)]++
	}
	return stats
}

// currentFeature returns the in_progress, non-Session-Work Feature (if any)
// driving `ijoka status` and `ijoka plan`; the Session Primer makes the same
// selection in its own code.
func currentFeature(ctx context.Context, g graph.Gateway, projectID string) (*models.Feature, error) {
	features, err := store.ListInProgressFeatures(ctx, g, projectID)
	if err != nil {
		return nil, err
	}
	for _, f := range features {
		if !f.IsSessionWork {
			return f, nil
		}
	}
	return nil, nil
}
