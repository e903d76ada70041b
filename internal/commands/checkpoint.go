package commands

import (
	"github.com/spf13/cobra"

	"github.com/Shakes-tzd/ijoka/internal/errs"
	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
	"github.com/Shakes-tzd/ijoka/internal/planengine"
)

// NewCheckpointCmd wires `ijoka checkpoint`, the CLI counterpart of POST
// /checkpoint, scoped to whichever Feature is currently in progress
// (spec.md §4.7 Checkpoint).
func NewCheckpointCmd() *cobra.Command {
	var stepCompleted, currentActivity string
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Record progress against the active Feature's plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var result map[string]any
			err := withProject(ctx, func(g graph.Gateway, project *models.Project) error {
				f, err := currentFeature(ctx, g, project.ID)
				if err != nil {
					return err
				}
				if f == nil {
					return &errs.NotFoundError{Entity: "Feature", ID: "active"}
				}
				res, err := planengine.Checkpoint(ctx, g, f.ID, stepCompleted, currentActivity)
				if err != nil {
					return err
				}
				result = map[string]any{
					"feature":     f,
					"active_step": res.ActiveStep,
					"progress":    res.Progress,
					"warnings":    res.Warnings,
				}
				return nil
			})
			if err != nil {
				return err
			}
			return printResult(cmd, result)
		},
	}
	cmd.Flags().StringVar(&stepCompleted, "step-completed", "", "description of the plan step just completed")
	cmd.Flags().StringVar(&currentActivity, "current-activity", "", "free-text description of what is happening now")
	return cmd
}
