package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/Shakes-tzd/ijoka/internal/graph"
)

func featureTimesRecord(created, completed time.Time) graph.Record {
	rec := graph.Record{"created_at": created.UTC().Format(timeLayout)}
	if !completed.IsZero() {
		rec["completed_at"] = completed.UTC().Format(timeLayout)
	} else {
		rec["completed_at"] = ""
	}
	return rec
}

func TestComputeVelocityCountsStartedAndCompleted(t *testing.T) {
	gw := graph.NewFakeGateway()
	now := time.Now()
	gw.Stub("MATCH (f:Feature)-[:BELONGS_TO]->(p:Project {id: $projectID})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{
			featureTimesRecord(now.Add(-2*24*time.Hour), now.Add(-1*24*time.Hour)),
			featureTimesRecord(now.Add(-10*24*time.Hour), time.Time{}),
		}, nil
	})

	m, err := ComputeVelocity(context.Background(), gw, "proj_1", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.FeaturesStarted != 1 {
		t.Fatalf("expected 1 feature started within the window, got %d", m.FeaturesStarted)
	}
	if m.FeaturesCompleted != 1 {
		t.Fatalf("expected 1 feature completed within the window, got %d", m.FeaturesCompleted)
	}
	if m.AvgCycleTimeHours == nil || *m.AvgCycleTimeHours <= 0 {
		t.Fatalf("expected a positive avg cycle time, got %+v", m.AvgCycleTimeHours)
	}
}

func TestComputeVelocityDefaultsWindow(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("MATCH (f:Feature)-[:BELONGS_TO]->(p:Project {id: $projectID})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{}, nil
	})
	m, err := ComputeVelocity(context.Background(), gw, "proj_1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.PeriodEnd.Sub(m.PeriodStart) < 6*24*time.Hour {
		t.Fatalf("expected a ~7 day default window, got %v", m.PeriodEnd.Sub(m.PeriodStart))
	}
}

func TestDetectVelocityDriftWarnsOnStartedWithNoneCompleted(t *testing.T) {
	gw := graph.NewFakeGateway()
	now := time.Now()
	gw.Stub("MATCH (f:Feature)-[:BELONGS_TO]->(p:Project {id: $projectID})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{featureTimesRecord(now.Add(-1*24*time.Hour), time.Time{})}, nil
	})

	warnings, err := DetectVelocityDrift(context.Background(), gw, "proj_1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, w := range warnings {
		if w == "features started but none completed in the past week" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a no-completions warning, got %v", warnings)
	}
}

func TestDetectVelocityDriftNoWarningsWhenStable(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("MATCH (f:Feature)-[:BELONGS_TO]->(p:Project {id: $projectID})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{}, nil
	})
	warnings, err := DetectVelocityDrift(context.Background(), gw, "proj_1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings for an empty project, got %v", warnings)
	}
}
