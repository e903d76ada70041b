package commands

import (
	"github.com/spf13/cobra"

	"github.com/Shakes-tzd/ijoka/internal/attribution"
	"github.com/Shakes-tzd/ijoka/internal/claim"
	"github.com/Shakes-tzd/ijoka/internal/errs"
	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
	"github.com/Shakes-tzd/ijoka/internal/store"
)

// NewFeatureCmd wires `ijoka feature ...`, the CLI counterpart of the
// /features route family (spec.md §6).
func NewFeatureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feature",
		Short: "Manage Features: the unit of attributable agent work",
	}
	cmd.AddCommand(
		newFeatureListCmd(),
		newFeatureCreateCmd(),
		newFeatureDiscoverCmd(),
		newFeatureNextStartCmd(),
		newFeatureGetCmd(),
		newFeatureUpdateCmd(),
		newFeatureDeleteCmd(),
		newFeatureStartCmd(),
		newFeatureCompleteCmd(),
		newFeatureBlockCmd(),
	)
	return cmd
}

func newFeatureListCmd() *cobra.Command {
	var status, category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List Features, optionally filtered by status/category",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var result map[string]any
			err := withProject(ctx, func(g graph.Gateway, project *models.Project) error {
				features, err := store.ListFeatures(ctx, g, project.ID, status, category)
				if err != nil {
					return err
				}
				result = map[string]any{
					"features": features,
					"count":    len(features),
					"stats":    featureStats(features),
				}
				return nil
			})
			if err != nil {
				return err
			}
			return printResult(cmd, result)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	return cmd
}

func featureCreateFlags(cmd *cobra.Command) (description, category *string, typ *string, priority *int, steps *[]string, branchHint *string, filePatterns *[]string) {
	description = cmd.Flags().String("description", "", "feature description (required)")
	category = cmd.Flags().String("category", "", "feature category (required)")
	typ = cmd.Flags().String("type", string(models.FeatureTypeFeature), "feature type")
	priority = cmd.Flags().Int("priority", 0, "priority (higher wins ties)")
	steps = cmd.Flags().StringSlice("steps", nil, "initial plan steps")
	branchHint = cmd.Flags().String("branch-hint", "", "branch name hint")
	filePatterns = cmd.Flags().StringSlice("file-pattern", nil, "glob pattern attributing files to this feature")
	return
}

func newFeatureCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new Feature",
	}
	description, category, typ, priority, steps, branchHint, filePatterns := featureCreateFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if *description == "" || *category == "" {
			return printError(&errs.ValidationError{Field: "description/category", Reason: "both are required"})
		}
		ctx := cmd.Context()
		var result map[string]any
		err := withProject(ctx, func(g graph.Gateway, project *models.Project) error {
			f, err := store.CreateFeature(ctx, g, &models.Feature{
				ProjectID:    project.ID,
				Description:  *description,
				Category:     *category,
				Type:         models.FeatureType(*typ),
				Status:       models.FeatureStatusPending,
				Priority:     *priority,
				Steps:        *steps,
				BranchHint:   *branchHint,
				FilePatterns: *filePatterns,
			})
			if err != nil {
				return err
			}
			result = map[string]any{"feature": f}
			return nil
		})
		if err != nil {
			return err
		}
		return printResult(cmd, result)
	}
	return cmd
}

func newFeatureDiscoverCmd() *cobra.Command {
	var lookbackMinutes int
	var markComplete bool
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Create a Feature and retroactively re-attribute recent matching Events to it",
	}
	description, category, typ, priority, steps, _, _ := featureCreateFlags(cmd)
	cmd.Flags().IntVar(&lookbackMinutes, "lookback-minutes", 30, "how far back to search for re-attributable events")
	cmd.Flags().BoolVar(&markComplete, "mark-complete", false, "mark the discovered feature complete immediately")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if *description == "" || *category == "" {
			return printError(&errs.ValidationError{Field: "description/category", Reason: "both are required"})
		}
		ctx := cmd.Context()
		var result map[string]any
		err := withProject(ctx, func(g graph.Gateway, project *models.Project) error {
			out, err := attribution.Discover(ctx, g, attribution.DiscoverInput{
				ProjectID:       project.ID,
				Description:     *description,
				Category:        *category,
				Type:            models.FeatureType(*typ),
				Priority:        *priority,
				Steps:           *steps,
				LookbackMinutes: lookbackMinutes,
				MarkComplete:    markComplete,
			})
			if err != nil {
				return err
			}
			result = map[string]any{
				"feature":            out.Feature,
				"reattributed_count": out.ReattributedCount,
			}
			return nil
		})
		if err != nil {
			return err
		}
		return printResult(cmd, result)
	}
	return cmd
}

func newFeatureNextStartCmd() *cobra.Command {
	var agent string
	cmd := &cobra.Command{
		Use:   "next-start",
		Short: "Claim and start the highest-priority pending Feature",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sessionID := sessionIDFromEnv()
			var result map[string]any
			err := withProject(ctx, func(g graph.Gateway, project *models.Project) error {
				f, err := claim.StartNextFeature(ctx, g, project.ID, agent, sessionID, staleThreshold())
				if err != nil {
					return err
				}
				result = map[string]any{"feature": f}
				return nil
			})
			if err != nil {
				return err
			}
			return printResult(cmd, result)
		},
	}
	cmd.Flags().StringVar(&agent, "agent", "", "agent name claiming the feature")
	return cmd
}

func newFeatureGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a Feature by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var result map[string]any
			err := withGateway(ctx, func(g graph.Gateway) error {
				f, err := store.GetFeature(ctx, g, args[0])
				if err != nil {
					return err
				}
				result = map[string]any{"feature": f}
				return nil
			})
			if err != nil {
				return err
			}
			return printResult(cmd, result)
		},
	}
}

func newFeatureUpdateCmd() *cobra.Command {
	var description, category, branchHint string
	var priority int
	var filePatterns []string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update description/category/priority/file_patterns/branch_hint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := map[string]any{}
			if cmd.Flags().Changed("description") {
				fields["description"] = description
			}
			if cmd.Flags().Changed("category") {
				fields["category"] = category
			}
			if cmd.Flags().Changed("priority") {
				fields["priority"] = priority
			}
			if cmd.Flags().Changed("branch-hint") {
				fields["branch_hint"] = branchHint
			}
			if cmd.Flags().Changed("file-pattern") {
				fields["file_patterns"] = filePatterns
			}
			if len(fields) == 0 {
				return printError(&errs.ValidationError{Field: "flags", Reason: "no updatable fields present"})
			}
			ctx := cmd.Context()
			var result map[string]any
			err := withGateway(ctx, func(g graph.Gateway) error {
				f, err := store.UpdateFeatureFields(ctx, g, args[0], fields)
				if err != nil {
					return err
				}
				result = map[string]any{"feature": f}
				return nil
			})
			if err != nil {
				return err
			}
			return printResult(cmd, result)
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&category, "category", "", "new category")
	cmd.Flags().IntVar(&priority, "priority", 0, "new priority")
	cmd.Flags().StringVar(&branchHint, "branch-hint", "", "new branch hint")
	cmd.Flags().StringSliceVar(&filePatterns, "file-pattern", nil, "replacement file_patterns (repeatable)")
	return cmd
}

func newFeatureDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a Feature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			err := withGateway(ctx, func(g graph.Gateway) error {
				return store.DeleteFeature(ctx, g, args[0])
			})
			if err != nil {
				return err
			}
			return printResult(cmd, map[string]any{"deleted": args[0]})
		},
	}
}

func newFeatureStartCmd() *cobra.Command {
	var agent string
	var forceOverride bool
	cmd := &cobra.Command{
		Use:   "start <id>",
		Short: "Claim and start a Feature (spec.md §4.5 Claim Arbiter)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sessionID := sessionIDFromEnv()
			var result map[string]any
			err := withGateway(ctx, func(g graph.Gateway) error {
				f, err := claim.StartFeature(ctx, g, args[0], agent, sessionID, forceOverride, staleThreshold())
				if err != nil {
					return err
				}
				result = map[string]any{"feature": f}
				return nil
			})
			if err != nil {
				return err
			}
			return printResult(cmd, result)
		},
	}
	cmd.Flags().StringVar(&agent, "agent", "", "agent name claiming the feature")
	cmd.Flags().BoolVar(&forceOverride, "force-override", false, "override a stale claim")
	return cmd
}

func newFeatureCompleteCmd() *cobra.Command {
	var summary string
	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark a Feature complete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sessionID := sessionIDFromEnv()
			var result map[string]any
			err := withGateway(ctx, func(g graph.Gateway) error {
				f, err := claim.CompleteFeature(ctx, g, args[0], sessionID, summary)
				if err != nil {
					return err
				}
				result = map[string]any{"feature": f}
				return nil
			})
			if err != nil {
				return err
			}
			return printResult(cmd, result)
		},
	}
	cmd.Flags().StringVar(&summary, "summary", "", "completion summary")
	return cmd
}

func newFeatureBlockCmd() *cobra.Command {
	var reason, blockingFeatureID string
	cmd := &cobra.Command{
		Use:   "block <id>",
		Short: "Mark a Feature blocked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if reason == "" {
				return printError(&errs.ValidationError{Field: "reason", Reason: "required"})
			}
			ctx := cmd.Context()
			sessionID := sessionIDFromEnv()
			var result map[string]any
			err := withGateway(ctx, func(g graph.Gateway) error {
				f, err := claim.BlockFeature(ctx, g, args[0], sessionID, reason, blockingFeatureID)
				if err != nil {
					return err
				}
				result = map[string]any{"feature": f}
				return nil
			})
			if err != nil {
				return err
			}
			return printResult(cmd, result)
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "why the feature is blocked (required)")
	cmd.Flags().StringVar(&blockingFeatureID, "blocking-feature-id", "", "the feature id blocking this one, if any")
	return cmd
}

// sessionIDFromEnv resolves the Session a CLI invocation belongs to. Unlike
// the hook adapter (which gets session_id from Claude Code's hook payload),
// a bare CLI invocation has no Session concept of its own; IJOKA_SESSION_ID
// lets a wrapping script thread one through when it has one.
func sessionIDFromEnv() string {
	return envOrEmpty("IJOKA_SESSION_ID")
}
