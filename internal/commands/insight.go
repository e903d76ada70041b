package commands

import (
	"github.com/spf13/cobra"

	"github.com/Shakes-tzd/ijoka/internal/errs"
	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
	"github.com/Shakes-tzd/ijoka/internal/store"
)

// NewInsightCmd wires `ijoka insight ...`, the CLI counterpart of the
// /insights route family (spec.md §4.9 Analytics Read-Views).
func NewInsightCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insight",
		Short: "Search and record Insights (learned patterns/best practices)",
	}
	cmd.AddCommand(newInsightListCmd(), newInsightCreateCmd(), newInsightFeedbackCmd())
	return cmd
}

func newInsightListCmd() *cobra.Command {
	var query string
	var tags []string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Search Insights by free-text query and/or tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var result map[string]any
			err := withGateway(ctx, func(g graph.Gateway) error {
				insights, err := store.SearchInsights(ctx, g, query, tags, limit)
				if err != nil {
					return err
				}
				result = map[string]any{"insights": insights, "count": len(insights)}
				return nil
			})
			if err != nil {
				return err
			}
			return printResult(cmd, result)
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "free-text search")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "filter by tag (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 20, "max results")
	return cmd
}

func newInsightCreateCmd() *cobra.Command {
	var description, patternType, learnedFromFeatureID string
	var tags []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a new Insight",
		RunE: func(cmd *cobra.Command, args []string) error {
			if description == "" {
				return printError(&errs.ValidationError{Field: "description", Reason: "required"})
			}
			pt := models.InsightPatternType(patternType)
			if pt == "" {
				pt = models.InsightPatternBestPractice
			}
			ctx := cmd.Context()
			var result map[string]any
			err := withGateway(ctx, func(g graph.Gateway) error {
				in, err := store.CreateInsight(ctx, g, &models.Insight{
					Description:          description,
					PatternType:          pt,
					Tags:                 tags,
					LearnedFromFeatureID: learnedFromFeatureID,
				})
				if err != nil {
					return err
				}
				result = map[string]any{"insight": in}
				return nil
			})
			if err != nil {
				return err
			}
			return printResult(cmd, result)
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "insight description (required)")
	cmd.Flags().StringVar(&patternType, "pattern-type", string(models.InsightPatternBestPractice), "pattern type")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag (repeatable)")
	cmd.Flags().StringVar(&learnedFromFeatureID, "learned-from-feature-id", "", "the feature this was learned from, if any")
	return cmd
}

func newInsightFeedbackCmd() *cobra.Command {
	var helpful bool
	var comment string
	cmd := &cobra.Command{
		Use:   "feedback <insight-id>",
		Short: "Record whether a surfaced Insight was helpful",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			err := withGateway(ctx, func(g graph.Gateway) error {
				return store.RecordInsightFeedback(ctx, g, args[0], helpful, comment)
			})
			if err != nil {
				return err
			}
			return printResult(cmd, map[string]any{"insight_id": args[0], "recorded": true})
		},
	}
	cmd.Flags().BoolVar(&helpful, "helpful", true, "whether the insight was helpful")
	cmd.Flags().StringVar(&comment, "comment", "", "optional free-text comment")
	return cmd
}
