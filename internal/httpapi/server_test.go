package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
)

func newTestServer(gw *graph.FakeGateway) http.Handler {
	project := &models.Project{ID: "proj_1", Path: "/repo", Name: "repo"}
	return NewServer(gw, project, 30*time.Minute, zerolog.Nop())
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestHandleStatusReturnsProjectAndStats(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("MATCH (f:Feature)-[:BELONGS_TO]->(p:Project {id: $projectID})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{}, nil
	})
	srv := newTestServer(gw)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeResponse(t, rec)
	if body["success"] != true {
		t.Fatalf("expected success=true, got %+v", body)
	}
	data, _ := body["data"].(map[string]any)
	if data["project"] == nil {
		t.Fatalf("expected project in response data, got %+v", body)
	}
}

func TestHandleCreateFeatureRequiresDescriptionAndCategory(t *testing.T) {
	gw := graph.NewFakeGateway()
	srv := newTestServer(gw)

	req := httptest.NewRequest(http.MethodPost, "/features/", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing fields, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeResponse(t, rec)
	if body["success"] != false {
		t.Fatalf("expected success=false, got %+v", body)
	}
}

func TestHandleCreateFeatureSucceeds(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("CREATE (f:Feature {", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{featureRecordForHTTP("feat_1", "pending")}, nil
	})
	srv := newTestServer(gw)

	payload := `{"description":"add login","category":"auth"}`
	req := httptest.NewRequest(http.MethodPost, "/features/", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeResponse(t, rec)
	data, _ := body["data"].(map[string]any)
	feature, _ := data["feature"].(map[string]any)
	if feature["id"] != "feat_1" {
		t.Fatalf("expected created feature in response, got %+v", body)
	}
}

func TestHandleGetFeatureNotFound(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("MATCH (f:Feature {id: $id})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{}, nil
	})
	srv := newTestServer(gw)

	req := httptest.NewRequest(http.MethodGet, "/features/missing", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func featureRecordForHTTP(id, status string) graph.Record {
	const now = "2026-07-31T10:00:00Z"
	return graph.Record{
		"id": id, "description": "add login", "category": "auth", "type": "feature",
		"status": status, "priority": 0, "steps": []any{}, "file_patterns": []any{},
		"branch_hint": "", "work_count": int64(0), "assigned_agent": "",
		"claiming_session_id": "", "claiming_agent": "",
		"claimed_at": "", "block_reason": "", "is_primary": false,
		"is_session_work": false, "completion_criteria": "",
		"created_at": now, "updated_at": now, "completed_at": "",
		"parent_id": "", "project_id": "proj_1",
	}
}
