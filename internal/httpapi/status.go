package httpapi

import (
	"net/http"

	"github.com/Shakes-tzd/ijoka/internal/errs"
	"github.com/Shakes-tzd/ijoka/internal/store"
)

// handleStatus serves GET /status: the Project, a status-bucketed count of
// its Features, and whichever non-Session-Work Feature is currently
// in_progress (spec.md §6).
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)
	features, err := store.ListFeatures(ctx, s.Gateway, s.Project.ID, "", "")
	if err != nil {
		respondError(w, err)
		return
	}
	f, err := currentFeature(ctx, s.Gateway, s.Project.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, map[string]any{
		"project":         s.Project,
		"stats":           featureStats(features),
		"current_feature": f,
	})
}

type analyticsFeedbackRequest struct {
	InsightID string `json:"insight_id"`
	Helpful   bool   `json:"helpful"`
	Comment   string `json:"comment"`
}

// handleAnalyticsFeedback serves POST /analytics/feedback: record whether
// a surfaced Insight was useful, updating its feedback/helpful counters and
// recomputing its effectiveness_score as helpful_count / feedback_count.
func (s *Server) handleAnalyticsFeedback(w http.ResponseWriter, r *http.Request) {
	var req analyticsFeedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.InsightID == "" {
		respondError(w, &errs.ValidationError{Field: "insight_id", Reason: "required"})
		return
	}

	ctx := requestContext(r)
	if err := store.RecordInsightFeedback(ctx, s.Gateway, req.InsightID, req.Helpful, req.Comment); err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, map[string]any{"insight_id": req.InsightID, "recorded": true})
}
