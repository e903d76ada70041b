package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Shakes-tzd/ijoka/internal/analytics"
	"github.com/Shakes-tzd/ijoka/internal/errs"
	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
)

// velocityDriftThreshold mirrors the HTTP Adapter's fixed 30% drift
// sensitivity (spec.md §4.9 Velocity & Drift).
const velocityDriftThreshold = 0.3

// NewAnalyticsCmd wires `ijoka analytics ...`, the CLI counterpart of the
// /analytics route family (spec.md §4.9 Analytics Read-Views).
func NewAnalyticsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Patterns, velocity, agent profiles, and ad-hoc queries over project history",
	}
	cmd.AddCommand(
		newAnalyticsPatternsCmd(),
		newAnalyticsVelocityCmd(),
		newAnalyticsProfileCmd(),
		newAnalyticsQueryCmd(),
		newAnalyticsDigestCmd(),
	)
	return cmd
}

func newAnalyticsPatternsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "Detect feature clusters, common workflows, and bottlenecks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var result map[string]any
			err := withProject(ctx, func(g graph.Gateway, project *models.Project) error {
				clusters, err := analytics.DetectFeatureClusters(ctx, g, project.ID)
				if err != nil {
					return err
				}
				workflows, err := analytics.FindCommonWorkflows(ctx, g, project.ID, 2)
				if err != nil {
					return err
				}
				bottlenecks, err := analytics.DetectBottlenecks(ctx, g, project.ID)
				if err != nil {
					return err
				}
				result = map[string]any{
					"clusters":    clusters,
					"workflows":   workflows,
					"bottlenecks": bottlenecks,
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

func newAnalyticsVelocityCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "velocity",
		Short: "Compute feature completion velocity and drift warnings",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var result map[string]any
			err := withProject(ctx, func(g graph.Gateway, project *models.Project) error {
				current, err := analytics.ComputeVelocity(ctx, g, project.ID, days)
				if err != nil {
					return err
				}
				drift, err := analytics.DetectVelocityDrift(ctx, g, project.ID, velocityDriftThreshold)
				if err != nil {
					return err
				}
				result = map[string]any{
					"current":        current,
					"drift_warnings": drift,
				}
				return nil
			})
			if err != nil {
				return err
			}
			return printResult(cmd, result)
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "velocity window in days")
	return cmd
}

func newAnalyticsProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile <agent>",
		Short: "Build an agent's category/success-rate profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "" {
				return printError(&errs.ValidationError{Field: "agent", Reason: "required"})
			}
			ctx := cmd.Context()
			var result map[string]any
			err := withProject(ctx, func(g graph.Gateway, project *models.Project) error {
				profile, err := analytics.BuildAgentProfile(ctx, g, project.ID, args[0])
				if err != nil {
					return err
				}
				result = map[string]any{"profile": profile}
				return nil
			})
			if err != nil {
				return err
			}
			return printResult(cmd, result)
		},
	}
}

func newAnalyticsQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <question>",
		Short: "Run an ad-hoc natural-language analytics question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "" {
				return printError(&errs.ValidationError{Field: "question", Reason: "required"})
			}
			ctx := cmd.Context()
			var result map[string]any
			err := withProject(ctx, func(g graph.Gateway, project *models.Project) error {
				resp, err := analytics.RunQuery(ctx, g, project.ID, args[0])
				if err != nil {
					return err
				}
				result = map[string]any{
					"query_type": resp.QueryType,
					"data":       resp.Data,
					"insights":   resp.Insights,
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

func newAnalyticsDigestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "digest",
		Short: "Generate today's digest: top insights, velocity, active bottlenecks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			now := time.Now()
			var result map[string]any
			err := withProject(ctx, func(g graph.Gateway, project *models.Project) error {
				bottlenecks, err := analytics.DetectBottlenecks(ctx, g, project.ID)
				if err != nil {
					return err
				}
				drift, err := analytics.DetectVelocityDrift(ctx, g, project.ID, velocityDriftThreshold)
				if err != nil {
					return err
				}
				workflows, err := analytics.FindCommonWorkflows(ctx, g, project.ID, 2)
				if err != nil {
					return err
				}
				velocity, err := analytics.ComputeVelocity(ctx, g, project.ID, 7)
				if err != nil {
					return err
				}
				insights := analytics.GenerateDailyDigest(bottlenecks, drift, workflows, velocity, now, 10)
				result = map[string]any{
					"date":               now.Format("2006-01-02"),
					"top_insights":       insights,
					"velocity":           velocity,
					"active_bottlenecks": bottlenecks,
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
