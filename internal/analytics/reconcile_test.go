package analytics

import (
	"context"
	"testing"

	"github.com/Shakes-tzd/ijoka/internal/graph"
)

func reconcileFeatureRecord(id, status string) graph.Record {
	return graph.Record{
		"id": id, "description": "desc", "category": "cat", "type": "feature",
		"status": status, "priority": 0, "steps": []any{}, "file_patterns": []any{},
		"branch_hint": "", "work_count": int64(0), "assigned_agent": "",
		"claiming_session_id": "", "claiming_agent": "",
		"claimed_at": "", "block_reason": "", "is_primary": false,
		"is_session_work": false, "completion_criteria": "",
		"created_at": "2026-07-01T00:00:00Z", "updated_at": "2026-07-01T00:00:00Z", "completed_at": "",
		"parent_id": "", "project_id": "proj_1",
	}
}

func statusEventRecord(id, fromStatus, toStatus, at string) graph.Record {
	return graph.Record{
		"id": id, "from_status": fromStatus, "to_status": toStatus,
		"at": at, "by": "agent", "session_id": "sess_1", "reason": "",
	}
}

func TestReconcileStatusesFindsMismatch(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("MATCH (f:Feature)-[:BELONGS_TO]->(p:Project {id: $projectID})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{reconcileFeatureRecord("f1", "in_progress")}, nil
	})
	gw.Stub("MATCH (se:StatusEvent)-[:CHANGED_STATUS]->(f:Feature {id: $featureID})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{
			statusEventRecord("se1", "pending", "in_progress", "2026-07-01T00:00:00Z"),
			statusEventRecord("se2", "in_progress", "complete", "2026-07-02T00:00:00Z"),
		}, nil
	})

	mismatches, err := ReconcileStatuses(context.Background(), gw, "proj_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mismatches) != 1 {
		t.Fatalf("expected 1 mismatch, got %d", len(mismatches))
	}
	m := mismatches[0]
	if m.FeatureID != "f1" || m.MaterialStatus != "in_progress" || m.LatestEvent != "complete" {
		t.Fatalf("unexpected mismatch: %+v", m)
	}
}

func TestReconcileStatusesNoMismatchWhenAligned(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("MATCH (f:Feature)-[:BELONGS_TO]->(p:Project {id: $projectID})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{reconcileFeatureRecord("f1", "complete")}, nil
	})
	gw.Stub("MATCH (se:StatusEvent)-[:CHANGED_STATUS]->(f:Feature {id: $featureID})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{
			statusEventRecord("se1", "in_progress", "complete", "2026-07-02T00:00:00Z"),
		}, nil
	})

	mismatches, err := ReconcileStatuses(context.Background(), gw, "proj_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mismatches) != 0 {
		t.Fatalf("expected no mismatches, got %+v", mismatches)
	}
}

func TestReconcileStatusesSkipsFeaturesWithNoEvents(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("MATCH (f:Feature)-[:BELONGS_TO]->(p:Project {id: $projectID})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{reconcileFeatureRecord("f1", "pending")}, nil
	})
	gw.Stub("MATCH (se:StatusEvent)-[:CHANGED_STATUS]->(f:Feature {id: $featureID})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{}, nil
	})

	mismatches, err := ReconcileStatuses(context.Background(), gw, "proj_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mismatches) != 0 {
		t.Fatalf("expected no mismatches for a feature with no status events, got %+v", mismatches)
	}
}
