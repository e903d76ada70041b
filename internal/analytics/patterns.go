package analytics

import (
	"context"
	"time"

	"github.com/Shakes-tzd/ijoka/internal/graph"
)

const timeLayout = time.RFC3339Nano

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func asString(rec graph.Record, key string) string {
	v, _ := rec[key].(string)
	return v
}

func asStringSlice(rec graph.Record, key string) []string {
	raw, ok := rec[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func asInt(rec graph.Record, key string) int {
	switch v := rec[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

// DetectFeatureClusters groups Features by category (spec.md §4.11),
// excluding single-item groups.
func DetectFeatureClusters(ctx context.Context, g graph.Gateway, projectID string) ([]FeatureCluster, error) {
	recs, err := g.ReadQuery(ctx, `
		MATCH (f:Feature)-[:BELONGS_TO]->(p:Project {id: $projectID})
		WITH f.category AS category, collect(f.id) AS featureIDs
		WHERE size(featureIDs) > 1
		RETURN category, featureIDs, size(featureIDs) AS count
		ORDER BY count DESC
	`, map[string]any{"projectID": projectID})
	if err != nil {
		return nil, err
	}
	out := make([]FeatureCluster, 0, len(recs))
	for _, rec := range recs {
		category := asString(rec, "category")
		out = append(out, FeatureCluster{
			Name:       category + " features",
			Category:   category,
			FeatureIDs: asStringSlice(rec, "featureIDs"),
			Size:       asInt(rec, "count"),
		})
	}
	return out, nil
}

// FindCommonWorkflows returns recurring ordered Step-description sequences
// across complete Features with frequency >= minFrequency (default 2).
func FindCommonWorkflows(ctx context.Context, g graph.Gateway, projectID string, minFrequency int) ([]WorkflowPattern, error) {
	if minFrequency <= 0 {
		minFrequency = 2
	}
	recs, err := g.ReadQuery(ctx, `
		MATCH (st:Step)-[:BELONGS_TO]->(f:Feature)-[:BELONGS_TO]->(p:Project {id: $projectID})
		WHERE f.status = 'complete'
		WITH f, st ORDER BY st.step_order ASC
		WITH f, collect(st.description) AS steps
		WHERE size(steps) > 0
		WITH steps, count(*) AS freq
		WHERE freq >= $minFreq
		RETURN steps, freq
		ORDER BY freq DESC
		LIMIT 20
	`, map[string]any{"projectID": projectID, "minFreq": minFrequency})
	if err != nil {
		return nil, err
	}
	out := make([]WorkflowPattern, 0, len(recs))
	for _, rec := range recs {
		out = append(out, WorkflowPattern{
			Sequence:    asStringSlice(rec, "steps"),
			Frequency:   asInt(rec, "freq"),
			SuccessRate: 1.0,
		})
	}
	return out, nil
}

// DetectBottlenecks finds Features that are blocked or have a block_reason
// set, with severity derived from hours-blocked (spec.md §4.11).
func DetectBottlenecks(ctx context.Context, g graph.Gateway, projectID string) ([]Bottleneck, error) {
	recs, err := g.ReadQuery(ctx, `
		MATCH (f:Feature)-[:BELONGS_TO]->(p:Project {id: $projectID})
		WHERE f.status = 'blocked' OR f.block_reason IS NOT NULL
		RETURN f.id AS feature_id, f.description AS description,
		       f.block_reason AS block_reason, f.updated_at AS updated_at
		ORDER BY f.updated_at DESC
	`, map[string]any{"projectID": projectID})
	if err != nil {
		return nil, err
	}
	now := time.Now()
	out := make([]Bottleneck, 0, len(recs))
	for _, rec := range recs {
		var hours *float64
		if updatedAt, ok := parseTime(asString(rec, "updated_at")); ok {
			h := now.Sub(updatedAt).Hours()
			hours = &h
		}
		out = append(out, Bottleneck{
			FeatureID:    asString(rec, "feature_id"),
			Description:  asString(rec, "description"),
			BlockReason:  asString(rec, "block_reason"),
			HoursBlocked: hours,
			Severity:     severityForHours(hours),
		})
	}
	return out, nil
}
