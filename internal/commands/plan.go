package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Shakes-tzd/ijoka/internal/errs"
	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
	"github.com/Shakes-tzd/ijoka/internal/planengine"
	"github.com/Shakes-tzd/ijoka/internal/store"
)

// NewPlanCmd wires `ijoka plan ...`, the CLI counterpart of GET|POST
// /plan and /features/{id}/plan (spec.md §4.7 Plan/Step Engine).
func NewPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "View or set a Feature's ordered plan Steps",
	}
	cmd.AddCommand(newPlanGetCmd(), newPlanSetCmd())
	return cmd
}

func newPlanGetCmd() *cobra.Command {
	var featureID string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show plan steps, active step, and progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var result map[string]any
			err := withProject(ctx, func(g graph.Gateway, project *models.Project) error {
				id, err := resolvePlanFeatureID(ctx, g, project.ID, featureID)
				if err != nil {
					return err
				}
				steps, err := store.ListSteps(ctx, g, id)
				if err != nil {
					return err
				}
				result = map[string]any{
					"feature_id":  id,
					"steps":       steps,
					"active_step": planengine.ActiveStep(steps),
					"progress":    planengine.ComputeProgress(steps),
				}
				return nil
			})
			if err != nil {
				return err
			}
			return printResult(cmd, result)
		},
	}
	cmd.Flags().StringVar(&featureID, "feature-id", "", "feature id (defaults to the currently active feature)")
	return cmd
}

func newPlanSetCmd() *cobra.Command {
	var featureID string
	var steps []string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Replace a Feature's plan steps",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(steps) == 0 {
				return printError(&errs.ValidationError{Field: "steps", Reason: "at least one step is required"})
			}
			ctx := cmd.Context()
			var result map[string]any
			err := withProject(ctx, func(g graph.Gateway, project *models.Project) error {
				id, err := resolvePlanFeatureID(ctx, g, project.ID, featureID)
				if err != nil {
					return err
				}
				updated, err := store.SetPlan(ctx, g, id, steps)
				if err != nil {
					return err
				}
				result = map[string]any{
					"feature_id":  id,
					"steps":       updated,
					"active_step": planengine.ActiveStep(updated),
					"progress":    planengine.ComputeProgress(updated),
				}
				return nil
			})
			if err != nil {
				return err
			}
			return printResult(cmd, result)
		},
	}
	cmd.Flags().StringVar(&featureID, "feature-id", "", "feature id (defaults to the currently active feature)")
	cmd.Flags().StringSliceVar(&steps, "step", nil, "plan step description (repeatable, ordered)")
	return cmd
}

// resolvePlanFeatureID defaults to the Project's currently in_progress,
// non-Session-Work Feature when no --feature-id is given, mirroring the
// HTTP Adapter's GET|POST /plan active-feature shorthand.
func resolvePlanFeatureID(ctx context.Context, g graph.Gateway, projectID, featureID string) (string, error) {
	if featureID != "" {
		return featureID, nil
	}
	f, err := currentFeature(ctx, g, projectID)
	if err != nil {
		return "", err
	}
	if f == nil {
		return "", &errs.NotFoundError{Entity: "Feature", ID: "active"}
	}
	return f.ID, nil
}
