package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/Shakes-tzd/ijoka/internal/models"
)

// GenerateDailyDigest implements spec.md §4.11's daily digest: top N
// insights drawn from bottlenecks (scored by severity), velocity
// anomalies, common workflows, and velocity trend, ranked by
// impact_score x confidence.
func GenerateDailyDigest(bottlenecks []Bottleneck, driftWarnings []string, workflows []WorkflowPattern, velocity *VelocityMetrics, now time.Time, maxInsights int) []Insight {
	var insights []Insight

	limit := len(bottlenecks)
	if limit > 3 {
		limit = 3
	}
	for _, b := range bottlenecks[:limit] {
		desc := fmt.Sprintf("feature %s is blocked", shortID(b.FeatureID))
		if b.Description != "" {
			desc = "feature blocked: " + truncate(b.Description, 50)
		}
		if b.BlockReason != "" {
			desc += " reason: " + b.BlockReason
		}
		insights = append(insights, Insight{
			ID:              models.NewID("insight"),
			Type:            InsightBottleneck,
			Description:     desc,
			ImpactScore:     severityScore(b.Severity),
			Confidence:      0.9,
			Actionable:      true,
			RelatedFeatures: []string{b.FeatureID},
			CreatedAt:       now,
		})
	}

	for _, w := range driftWarnings {
		insights = append(insights, Insight{
			ID:          models.NewID("insight"),
			Type:        InsightAnomaly,
			Description: w,
			ImpactScore: 0.7,
			Confidence:  0.75,
			Actionable:  true,
			CreatedAt:   now,
		})
	}

	if len(workflows) > 0 {
		top := workflows[0]
		steps := top.Sequence
		summary := ""
		shown := steps
		if len(shown) > 3 {
			shown = shown[:3]
		}
		for i, s := range shown {
			if i > 0 {
				summary += " -> "
			}
			summary += s
		}
		if len(steps) > 3 {
			summary += "..."
		}
		insights = append(insights, Insight{
			ID:          models.NewID("insight"),
			Type:        InsightPattern,
			Description: fmt.Sprintf("common successful workflow (%dx): %s", top.Frequency, summary),
			ImpactScore: 0.5,
			Confidence:  0.85,
			Actionable:  false,
			CreatedAt:   now,
		})
	}

	if velocity != nil && velocity.FeaturesCompleted > 0 {
		desc := fmt.Sprintf("completed %d features in the past week", velocity.FeaturesCompleted)
		if velocity.AvgCycleTimeHours != nil {
			desc += fmt.Sprintf(" (avg %.1fh cycle time)", *velocity.AvgCycleTimeHours)
		}
		insights = append(insights, Insight{
			ID:          models.NewID("insight"),
			Type:        InsightTrend,
			Description: desc,
			ImpactScore: 0.4,
			Confidence:  0.95,
			Actionable:  false,
			CreatedAt:   now,
		})
	}

	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].RankScore() > insights[j].RankScore()
	})
	if maxInsights > 0 && len(insights) > maxInsights {
		insights = insights[:maxInsights]
	}
	return insights
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
