package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/Shakes-tzd/ijoka/internal/graph"
)

func TestDetectFeatureClustersMapsRecords(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("MATCH (f:Feature)-[:BELONGS_TO]->(p:Project {id: $projectID})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{
			{"category": "auth", "featureIDs": []any{"f1", "f2"}, "count": int64(2)},
		}, nil
	})

	clusters, err := DetectFeatureClusters(context.Background(), gw, "proj_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	c := clusters[0]
	if c.Category != "auth" || c.Name != "auth features" || c.Size != 2 {
		t.Fatalf("unexpected cluster: %+v", c)
	}
	if len(c.FeatureIDs) != 2 || c.FeatureIDs[0] != "f1" {
		t.Fatalf("unexpected feature ids: %+v", c.FeatureIDs)
	}
}

func TestFindCommonWorkflowsDefaultsMinFrequency(t *testing.T) {
	gw := graph.NewFakeGateway()
	var capturedMinFreq any
	gw.Stub("MATCH (st:Step)-[:BELONGS_TO]->(f:Feature)-[:BELONGS_TO]->(p:Project {id: $projectID})", func(params map[string]any) ([]graph.Record, error) {
		capturedMinFreq = params["minFreq"]
		return []graph.Record{
			{"steps": []any{"write test", "implement", "commit"}, "freq": int64(3)},
		}, nil
	})

	patterns, err := FindCommonWorkflows(context.Background(), gw, "proj_1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if capturedMinFreq != 2 {
		t.Fatalf("expected default minFrequency of 2, got %v", capturedMinFreq)
	}
	if len(patterns) != 1 || patterns[0].Frequency != 3 {
		t.Fatalf("unexpected patterns: %+v", patterns)
	}
	if len(patterns[0].Sequence) != 3 || patterns[0].Sequence[1] != "implement" {
		t.Fatalf("unexpected sequence: %+v", patterns[0].Sequence)
	}
}

func TestDetectBottlenecksDerivesSeverityFromHoursBlocked(t *testing.T) {
	gw := graph.NewFakeGateway()
	staleTime := time.Now().Add(-96 * time.Hour).Format(timeLayout)
	gw.Stub("MATCH (f:Feature)-[:BELONGS_TO]->(p:Project {id: $projectID})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{
			{"feature_id": "f1", "description": "stuck thing", "block_reason": "waiting on review", "updated_at": staleTime},
		}, nil
	})

	bottlenecks, err := DetectBottlenecks(context.Background(), gw, "proj_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bottlenecks) != 1 {
		t.Fatalf("expected 1 bottleneck, got %d", len(bottlenecks))
	}
	b := bottlenecks[0]
	if b.Severity != SeverityCritical {
		t.Fatalf("expected critical severity for a 96h-old block, got %s", b.Severity)
	}
	if b.HoursBlocked == nil || *b.HoursBlocked < 90 {
		t.Fatalf("expected hours blocked around 96, got %+v", b.HoursBlocked)
	}
	if b.BlockReason != "waiting on review" {
		t.Fatalf("unexpected block reason: %q", b.BlockReason)
	}
}

func TestDetectBottlenecksNilHoursWhenUpdatedAtUnparseable(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("MATCH (f:Feature)-[:BELONGS_TO]->(p:Project {id: $projectID})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{
			{"feature_id": "f1", "description": "stuck thing", "updated_at": ""},
		}, nil
	})

	bottlenecks, err := DetectBottlenecks(context.Background(), gw, "proj_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bottlenecks[0].HoursBlocked != nil {
		t.Fatalf("expected nil hours blocked, got %+v", bottlenecks[0].HoursBlocked)
	}
	if bottlenecks[0].Severity != SeverityMedium {
		t.Fatalf("expected medium severity fallback when hours are unknown, got %s", bottlenecks[0].Severity)
	}
}
