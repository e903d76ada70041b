package claim

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Shakes-tzd/ijoka/internal/errs"
	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
)

const now = "2026-07-31T10:00:00Z"

func featureRecord(id, status, claimingSessionID string) graph.Record {
	return graph.Record{
		"id": id, "description": "desc", "category": "cat", "type": "feature",
		"status": status, "priority": 0, "steps": []any{}, "file_patterns": []any{},
		"branch_hint": "", "work_count": int64(0), "assigned_agent": "",
		"claiming_session_id": claimingSessionID, "claiming_agent": "",
		"claimed_at": "", "block_reason": "", "is_primary": false,
		"is_session_work": false, "completion_criteria": "",
		"created_at": now, "updated_at": now, "completed_at": "",
		"parent_id": "", "project_id": "proj_1",
	}
}

func sessionRecord(id string, lastActivity time.Time) graph.Record {
	return graph.Record{
		"id": id, "agent": "claude", "status": "active", "started_at": now,
		"last_activity": lastActivity.UTC().Format(time.RFC3339Nano),
		"ended_at":      "", "event_count": int64(0), "is_subagent": false,
		"start_commit": "", "active_feature_id": "", "classified_at": "",
		"classification_source": "", "last_prompt": "", "nudges_shown": []any{},
		"project_id": "proj_1", "continued_from_id": "",
	}
}

func stubStatusEvent(gw *graph.FakeGateway) {
	gw.Stub("CREATE (se:StatusEvent", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{{
			"id": int64(1), "from_status": params["fromStatus"], "to_status": params["toStatus"],
			"at": now, "by": params["by"], "session_id": params["sessionID"], "reason": params["reason"],
		}}, nil
	})
}

func stubUpdateFeature(gw *graph.FakeGateway, id, newStatus string) {
	gw.Stub("SET f += $fields", func(params map[string]any) ([]graph.Record, error) {
		fields, _ := params["fields"].(map[string]any)
		claimingSessionID, _ := fields["claiming_session_id"].(string)
		status, ok := fields["status"].(string)
		if !ok {
			status = newStatus
		}
		return []graph.Record{featureRecord(id, status, claimingSessionID)}, nil
	})
}

func TestStartFeatureClaimsPending(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("MATCH (f:Feature {id: $id})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{featureRecord("feat_1", "pending", "")}, nil
	})
	stubUpdateFeature(gw, "feat_1", "in_progress")
	stubStatusEvent(gw)

	f, err := StartFeature(context.Background(), gw, "feat_1", "claude", "sess_1", false, StaleThreshold)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Status != models.FeatureStatusInProgress {
		t.Fatalf("expected in_progress, got %s", f.Status)
	}
}

func TestStartFeatureRejectsActiveNonSelfClaim(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("MATCH (f:Feature {id: $id})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{featureRecord("feat_1", "in_progress", "sess_other")}, nil
	})
	gw.Stub("MATCH (s:Session {id: $id})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{sessionRecord("sess_other", time.Now())}, nil
	})

	_, err := StartFeature(context.Background(), gw, "feat_1", "claude", "sess_1", false, StaleThreshold)
	var conflict *errs.ClaimConflictError
	if !errs.As(err, &conflict) {
		t.Fatalf("expected ClaimConflictError, got %v", err)
	}
}

func TestStartFeatureOverridesStaleClaim(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("MATCH (f:Feature {id: $id})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{featureRecord("feat_1", "in_progress", "sess_stale")}, nil
	})
	gw.Stub("MATCH (s:Session {id: $id})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{sessionRecord("sess_stale", time.Now().Add(-2*time.Hour))}, nil
	})
	gw.Stub("MATCH (e:Event {session_id: $id})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{}, nil
	})
	stubUpdateFeature(gw, "feat_1", "in_progress")
	stubStatusEvent(gw)

	f, err := StartFeature(context.Background(), gw, "feat_1", "claude", "sess_1", false, StaleThreshold)
	if err != nil {
		t.Fatalf("unexpected error claiming stale feature: %v", err)
	}
	if f.Status != models.FeatureStatusInProgress {
		t.Fatalf("expected in_progress, got %s", f.Status)
	}
}

// TestStartFeatureSerializesConcurrentClaims exercises two StartFeature
// calls racing on the same pending Feature. Each call's read, staleness
// check, and write run inside one g.WriteTx, so the graph store's
// serializable write isolation (modeled here by FakeGateway.WriteTx) ensures
// exactly one claims the Feature and the other observes the first's write
// and gets ClaimConflictError, never both succeeding (spec.md §5).
func TestStartFeatureSerializesConcurrentClaims(t *testing.T) {
	gw := graph.NewFakeGateway()

	var mu sync.Mutex
	status := "pending"
	claimingSessionID := ""

	gw.Stub("MATCH (f:Feature {id: $id})", func(params map[string]any) ([]graph.Record, error) {
		mu.Lock()
		defer mu.Unlock()
		return []graph.Record{featureRecord("feat_1", status, claimingSessionID)}, nil
	})
	gw.Stub("SET f += $fields", func(params map[string]any) ([]graph.Record, error) {
		mu.Lock()
		defer mu.Unlock()
		fields, _ := params["fields"].(map[string]any)
		if s, ok := fields["status"].(string); ok {
			status = s
		}
		if sid, ok := fields["claiming_session_id"].(string); ok {
			claimingSessionID = sid
		}
		return []graph.Record{featureRecord("feat_1", status, claimingSessionID)}, nil
	})
	gw.Stub("MATCH (s:Session {id: $id})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{sessionRecord(params["id"].(string), time.Now())}, nil
	})
	stubStatusEvent(gw)

	sessions := []string{"sess_a", "sess_b"}
	results := make([]error, len(sessions))
	var wg sync.WaitGroup
	wg.Add(len(sessions))
	for i, sessionID := range sessions {
		i, sessionID := i, sessionID
		go func() {
			defer wg.Done()
			_, err := StartFeature(context.Background(), gw, "feat_1", "claude", sessionID, false, StaleThreshold)
			results[i] = err
		}()
	}
	wg.Wait()

	succeeded, conflicted := 0, 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var conflict *errs.ClaimConflictError
		if errs.As(err, &conflict) {
			conflicted++
		}
	}
	if succeeded != 1 || conflicted != 1 {
		t.Fatalf("expected exactly one claim to succeed and one to conflict, got %d succeeded, %d conflicted (errs: %v)", succeeded, conflicted, results)
	}
}

func TestStartFeatureForceOverrideBypassesActiveClaim(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("MATCH (f:Feature {id: $id})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{featureRecord("feat_1", "in_progress", "sess_other")}, nil
	})
	gw.Stub("MATCH (s:Session {id: $id})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{sessionRecord("sess_other", time.Now())}, nil
	})
	stubUpdateFeature(gw, "feat_1", "in_progress")
	stubStatusEvent(gw)

	f, err := StartFeature(context.Background(), gw, "feat_1", "claude", "sess_1", true, StaleThreshold)
	if err != nil {
		t.Fatalf("unexpected error with force override: %v", err)
	}
	if f.Status != models.FeatureStatusInProgress {
		t.Fatalf("expected in_progress, got %s", f.Status)
	}
}

func TestCompleteFeatureClearsClaim(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("MATCH (f:Feature {id: $id})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{featureRecord("feat_1", "in_progress", "sess_1")}, nil
	})
	gw.Stub("SET f += $fields", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{featureRecord("feat_1", "complete", "")}, nil
	})
	stubStatusEvent(gw)

	f, err := CompleteFeature(context.Background(), gw, "feat_1", "sess_1", "done")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Status != models.FeatureStatusComplete {
		t.Fatalf("expected complete, got %s", f.Status)
	}
}

func TestBlockFeatureSetsReason(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("MATCH (f:Feature {id: $id})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{featureRecord("feat_1", "in_progress", "sess_1")}, nil
	})
	gw.Stub("SET f += $fields", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{featureRecord("feat_1", "blocked", "sess_1")}, nil
	})
	stubStatusEvent(gw)

	f, err := BlockFeature(context.Background(), gw, "feat_1", "sess_1", "waiting on API", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Status != models.FeatureStatusBlocked {
		t.Fatalf("expected blocked, got %s", f.Status)
	}
}

func TestMaybeAutoStartSkipsSessionWork(t *testing.T) {
	gw := graph.NewFakeGateway()
	f := &models.Feature{ID: "feat_1", IsSessionWork: true, Status: models.FeatureStatusPending}
	if err := MaybeAutoStart(context.Background(), gw, f, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gw.Calls) != 0 {
		t.Fatalf("expected no queries for session-work feature, got %d calls", len(gw.Calls))
	}
}

func TestMaybeAutoStartFiresForPendingFeature(t *testing.T) {
	gw := graph.NewFakeGateway()
	stubStatusEvent(gw)
	f := &models.Feature{ID: "feat_1", Status: models.FeatureStatusPending}
	if err := MaybeAutoStart(context.Background(), gw, f, 42); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gw.Calls) != 1 {
		t.Fatalf("expected exactly one status-event write, got %d", len(gw.Calls))
	}
}

func TestSweepStaleReleasesAbandonedClaims(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("MATCH (f:Feature)", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{featureRecord("feat_1", "in_progress", "sess_stale")}, nil
	})
	gw.Stub("MATCH (s:Session {id: $id})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{sessionRecord("sess_stale", time.Now().Add(-2*time.Hour))}, nil
	})
	gw.Stub("MATCH (e:Event {session_id: $id})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{}, nil
	})
	stubStatusEvent(gw)
	stubUpdateFeature(gw, "feat_1", "pending")

	released, err := SweepStale(context.Background(), gw, "proj_1", StaleThreshold)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if released != 1 {
		t.Fatalf("expected 1 feature released, got %d", released)
	}
}

func TestSweepStaleSkipsFreshClaims(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("MATCH (f:Feature)", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{featureRecord("feat_1", "in_progress", "sess_fresh")}, nil
	})
	gw.Stub("MATCH (s:Session {id: $id})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{sessionRecord("sess_fresh", time.Now())}, nil
	})

	released, err := SweepStale(context.Background(), gw, "proj_1", StaleThreshold)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if released != 0 {
		t.Fatalf("expected 0 features released, got %d", released)
	}
}
