package analytics

import (
	"context"
	"testing"

	"github.com/Shakes-tzd/ijoka/internal/graph"
)

func agentFeatureRecord(status, category, createdAt, completedAt string) graph.Record {
	return graph.Record{
		"status":       status,
		"category":     category,
		"created_at":   createdAt,
		"completed_at": completedAt,
	}
}

func TestBuildAgentProfileRanksCategoriesByCount(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("MATCH (f:Feature)-[:BELONGS_TO]->(p:Project {id: $projectID})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{
			agentFeatureRecord("complete", "bug", "2026-07-01T00:00:00Z", "2026-07-02T00:00:00Z"),
			agentFeatureRecord("complete", "bug", "2026-07-03T00:00:00Z", "2026-07-04T00:00:00Z"),
			agentFeatureRecord("complete", "feature", "2026-07-05T00:00:00Z", "2026-07-06T00:00:00Z"),
		}, nil
	})

	profile, err := BuildAgentProfile(context.Background(), gw, "proj_1", "agent_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(profile.PreferredCategories) != 2 || profile.PreferredCategories[0] != "bug" {
		t.Fatalf("expected bug ranked first by count, got %+v", profile.PreferredCategories)
	}
	if profile.TotalFeatures != 3 || profile.CompletedFeatures != 3 {
		t.Fatalf("unexpected totals: %+v", profile)
	}
}

func TestBuildAgentProfileBreaksTiesByMostRecentCompletion(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("MATCH (f:Feature)-[:BELONGS_TO]->(p:Project {id: $projectID})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{
			agentFeatureRecord("complete", "bug", "2026-07-01T00:00:00Z", "2026-07-02T00:00:00Z"),
			agentFeatureRecord("complete", "feature", "2026-07-05T00:00:00Z", "2026-07-10T00:00:00Z"),
		}, nil
	})

	profile, err := BuildAgentProfile(context.Background(), gw, "proj_1", "agent_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(profile.PreferredCategories) != 2 || profile.PreferredCategories[0] != "feature" {
		t.Fatalf("expected feature (more recent completion) ranked first on tied count, got %+v", profile.PreferredCategories)
	}
	if profile.PreferredCategories[1] != "bug" {
		t.Fatalf("expected bug ranked second, got %+v", profile.PreferredCategories)
	}
}

func TestBuildAgentProfileTruncatesToTopFive(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("MATCH (f:Feature)-[:BELONGS_TO]->(p:Project {id: $projectID})", func(params map[string]any) ([]graph.Record, error) {
		recs := make([]graph.Record, 0, 6)
		categories := []string{"a", "b", "c", "d", "e", "f"}
		for _, cat := range categories {
			recs = append(recs, agentFeatureRecord("pending", cat, "2026-07-01T00:00:00Z", ""))
		}
		return recs, nil
	})

	profile, err := BuildAgentProfile(context.Background(), gw, "proj_1", "agent_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(profile.PreferredCategories) != 5 {
		t.Fatalf("expected top-5 truncation, got %d categories: %+v", len(profile.PreferredCategories), profile.PreferredCategories)
	}
}

func TestBuildAgentProfileEmptyWhenNoFeatures(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("MATCH (f:Feature)-[:BELONGS_TO]->(p:Project {id: $projectID})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{}, nil
	})

	profile, err := BuildAgentProfile(context.Background(), gw, "proj_1", "agent_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.TotalFeatures != 0 || profile.PreferredCategories != nil {
		t.Fatalf("expected empty profile, got %+v", profile)
	}
	if profile.SuccessRate != nil || profile.AvgCompletionHours != nil {
		t.Fatalf("expected nil success rate and avg completion hours, got %+v", profile)
	}
}
