// Package analytics implements the Analytics Read-Views (spec.md §4.11):
// lazily-computed aggregations over the graph store safe to call during
// concurrent ingestion. Grounded on the original implementation's
// analytics.py (PatternDetector/TemporalAnalyzer/AgentProfiler/
// InsightSynthesizer) and query_engine.py's natural-language router,
// re-expressed as Cypher aggregation queries run directly through the
// graph.Gateway rather than pandas DataFrame post-processing.
package analytics

import "time"

// BottleneckSeverity classifies how long a Feature has been blocked.
type BottleneckSeverity string

// Severity thresholds (spec.md §4.11): >72h critical, >24h high, >8h
// medium, else low.
const (
	SeverityCritical BottleneckSeverity = "critical"
	SeverityHigh     BottleneckSeverity = "high"
	SeverityMedium   BottleneckSeverity = "medium"
	SeverityLow      BottleneckSeverity = "low"
)

// VelocityTrend describes how current velocity compares to the prior
// window.
type VelocityTrend string

const (
	TrendUp     VelocityTrend = "up"
	TrendDown   VelocityTrend = "down"
	TrendStable VelocityTrend = "stable"
)

// InsightType classifies a synthesized AnalyticsInsight.
type InsightType string

const (
	InsightBottleneck     InsightType = "bottleneck"
	InsightAnomaly        InsightType = "anomaly"
	InsightPattern        InsightType = "pattern"
	InsightTrend          InsightType = "trend"
	InsightRecommendation InsightType = "recommendation"
)

// FeatureCluster groups Features sharing a category.
type FeatureCluster struct {
	Name       string   `json:"name"`
	Category   string   `json:"category"`
	FeatureIDs []string `json:"feature_ids"`
	Size       int      `json:"size"`
}

// WorkflowPattern is a recurring ordered Step-description sequence across
// complete Features.
type WorkflowPattern struct {
	Sequence    []string `json:"sequence"`
	Frequency   int      `json:"frequency"`
	SuccessRate float64  `json:"success_rate"`
}

// Bottleneck is a blocked (or block_reason-set) Feature.
type Bottleneck struct {
	FeatureID    string             `json:"feature_id"`
	Description  string             `json:"description"`
	Severity     BottleneckSeverity `json:"severity"`
	HoursBlocked *float64           `json:"hours_blocked,omitempty"`
	BlockReason  string             `json:"block_reason,omitempty"`
}

// VelocityMetrics summarises throughput over a time window.
type VelocityMetrics struct {
	PeriodStart       time.Time     `json:"period_start"`
	PeriodEnd         time.Time     `json:"period_end"`
	FeaturesStarted   int           `json:"features_started"`
	FeaturesCompleted int           `json:"features_completed"`
	AvgCycleTimeHours *float64      `json:"avg_cycle_time_hours,omitempty"`
	FeaturesPerDay    float64       `json:"features_per_day"`
	Trend             VelocityTrend `json:"trend"`
}

// AgentProfile summarises one agent's work history.
type AgentProfile struct {
	AgentID             string   `json:"agent_id"`
	TotalFeatures       int      `json:"total_features"`
	CompletedFeatures   int      `json:"completed_features"`
	AvgCompletionHours  *float64 `json:"avg_completion_hours,omitempty"`
	SuccessRate         *float64 `json:"success_rate,omitempty"`
	PreferredCategories []string `json:"preferred_categories,omitempty"`
}

// Insight is a ranked, synthesized analytics finding (spec.md §4.11
// daily digest).
type Insight struct {
	ID              string      `json:"id"`
	Type            InsightType `json:"insight_type"`
	Description     string      `json:"description"`
	ImpactScore     float64     `json:"impact_score"`
	Confidence      float64     `json:"confidence"`
	Actionable      bool        `json:"actionable"`
	RelatedFeatures []string    `json:"related_features,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

// RankScore is the impact x confidence ranking key (spec.md §4.11).
func (i Insight) RankScore() float64 {
	return i.ImpactScore * i.Confidence
}

func severityForHours(hours *float64) BottleneckSeverity {
	if hours == nil {
		return SeverityMedium
	}
	switch {
	case *hours > 72:
		return SeverityCritical
	case *hours > 24:
		return SeverityHigh
	case *hours > 8:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func severityScore(s BottleneckSeverity) float64 {
	switch s {
	case SeverityCritical:
		return 0.95
	case SeverityHigh:
		return 0.8
	case SeverityMedium:
		return 0.6
	case SeverityLow:
		return 0.4
	default:
		return 0.5
	}
}
