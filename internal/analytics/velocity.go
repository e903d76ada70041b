package analytics

import (
	"context"
	"time"

	"github.com/Shakes-tzd/ijoka/internal/graph"
)

// ComputeVelocity implements spec.md §4.11 velocity(window_days): count of
// Features started/completed within the window, average cycle time,
// features_per_day, and a trend from comparing the completed count against
// the equally long window just before it (more than 10% higher is up, more
// than 10% lower is down, otherwise stable).
func ComputeVelocity(ctx context.Context, g graph.Gateway, projectID string, windowDays int) (*VelocityMetrics, error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	now := time.Now()
	periodStart := now.AddDate(0, 0, -windowDays)

	recs, err := g.ReadQuery(ctx, `
		MATCH (f:Feature)-[:BELONGS_TO]->(p:Project {id: $projectID})
		WHERE f.created_at IS NOT NULL
		RETURN f.created_at AS created_at, f.completed_at AS completed_at
	`, map[string]any{"projectID": projectID})
	if err != nil {
		return nil, err
	}

	m := &VelocityMetrics{PeriodStart: periodStart, PeriodEnd: now, Trend: TrendStable}
	var cycleHours []float64
	prevCompleted := 0

	for _, rec := range recs {
		created, ok := parseTime(asString(rec, "created_at"))
		if !ok {
			continue
		}
		if !created.Before(periodStart) {
			m.FeaturesStarted++
		}
		if completed, ok := parseTime(asString(rec, "completed_at")); ok && !completed.Before(periodStart) {
			m.FeaturesCompleted++
			cycleHours = append(cycleHours, completed.Sub(created).Hours())
		}
		if completed, ok := parseTime(asString(rec, "completed_at")); ok && completed.Before(periodStart) && !completed.Before(periodStart.AddDate(0, 0, -windowDays)) {
			prevCompleted++
		}
	}

	if len(cycleHours) > 0 {
		sum := 0.0
		for _, h := range cycleHours {
			sum += h
		}
		avg := sum / float64(len(cycleHours))
		m.AvgCycleTimeHours = &avg
	}
	m.FeaturesPerDay = float64(m.FeaturesCompleted) / float64(windowDays)
	switch prev := float64(prevCompleted); {
	case float64(m.FeaturesCompleted) > prev*1.1:
		m.Trend = TrendUp
	case float64(m.FeaturesCompleted) < prev*0.9:
		m.Trend = TrendDown
	}

	return m, nil
}

// DetectVelocityDrift compares the current 7-day completion count against
// the weekly average of a 14-day window ending now (the 14-day count halved,
// so the current week is part of the baseline) and emits human-readable
// warnings when the change exceeds threshold (spec.md §4.11).
func DetectVelocityDrift(ctx context.Context, g graph.Gateway, projectID string, threshold float64) ([]string, error) {
	if threshold <= 0 {
		threshold = 0.3
	}
	current, err := ComputeVelocity(ctx, g, projectID, 7)
	if err != nil {
		return nil, err
	}
	previous, err := ComputeVelocity(ctx, g, projectID, 14)
	if err != nil {
		return nil, err
	}

	var warnings []string

	if previous.FeaturesCompleted > 0 {
		prevNormalized := float64(previous.FeaturesCompleted) / 2
		if prevNormalized > 0 {
			change := (float64(current.FeaturesCompleted) - prevNormalized) / prevNormalized
			switch {
			case change < -threshold:
				warnings = append(warnings, "velocity decreased compared to the previous period")
				current.Trend = TrendDown
			case change > threshold:
				warnings = append(warnings, "velocity improved compared to the previous period")
				current.Trend = TrendUp
			}
		}
	}

	if current.FeaturesStarted > 0 && current.FeaturesCompleted == 0 {
		warnings = append(warnings, "features started but none completed in the past week")
	}

	return warnings, nil
}
