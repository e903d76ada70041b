package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Shakes-tzd/ijoka/internal/attribution"
	"github.com/Shakes-tzd/ijoka/internal/claim"
	"github.com/Shakes-tzd/ijoka/internal/errs"
	"github.com/Shakes-tzd/ijoka/internal/models"
	"github.com/Shakes-tzd/ijoka/internal/store"
)

func (s *Server) handleListFeatures(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)
	status := r.URL.Query().Get("status")
	category := r.URL.Query().Get("category")

	features, err := store.ListFeatures(ctx, s.Gateway, s.Project.ID, status, category)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, map[string]any{
		"features": features,
		"count":    len(features),
		"stats":    featureStats(features),
	})
}

func featureStats(features []*models.Feature) map[string]int {
	stats := map[string]int{}
	for _, f := range features {
		stats[string(f.Status)]++
	}
	return stats
}

type createFeatureRequest struct {
	Description  string             `json:"description"`
	Category     string             `json:"category"`
	Type         models.FeatureType `json:"type"`
	Priority     int                `json:"priority"`
	Steps        []string           `json:"steps"`
	BranchHint   string             `json:"branch_hint"`
	FilePatterns []string           `json:"file_patterns"`
}

func (s *Server) handleCreateFeature(w http.ResponseWriter, r *http.Request) {
	var req createFeatureRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Description == "" || req.Category == "" {
		respondError(w, &errs.ValidationError{Field: "description/category", Reason: "both are required"})
		return
	}
	if req.Type == "" {
		req.Type = models.FeatureTypeFeature
	}

	ctx := requestContext(r)
	f, err := store.CreateFeature(ctx, s.Gateway, &models.Feature{
		ProjectID:    s.Project.ID,
		Description:  req.Description,
		Category:     req.Category,
		Type:         req.Type,
		Status:       models.FeatureStatusPending,
		Priority:     req.Priority,
		Steps:        req.Steps,
		BranchHint:   req.BranchHint,
		FilePatterns: req.FilePatterns,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, map[string]any{"feature": f})
}

func (s *Server) handleDiscoverFeature(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description     string             `json:"description"`
		Category        string             `json:"category"`
		Type            models.FeatureType `json:"type"`
		Priority        int                `json:"priority"`
		Steps           []string           `json:"steps"`
		LookbackMinutes int                `json:"lookback_minutes"`
		MarkComplete    bool               `json:"mark_complete"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Description == "" || req.Category == "" {
		respondError(w, &errs.ValidationError{Field: "description/category", Reason: "both are required"})
		return
	}
	if req.Type == "" {
		req.Type = models.FeatureTypeFeature
	}

	ctx := requestContext(r)
	result, err := attribution.Discover(ctx, s.Gateway, attribution.DiscoverInput{
		ProjectID:       s.Project.ID,
		Description:     req.Description,
		Category:        req.Category,
		Type:            req.Type,
		Priority:        req.Priority,
		Steps:           req.Steps,
		LookbackMinutes: req.LookbackMinutes,
		MarkComplete:    req.MarkComplete,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, map[string]any{
		"feature":            result.Feature,
		"reattributed_count": result.ReattributedCount,
	})
}

func (s *Server) handleStartNextFeature(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)
	agent := r.URL.Query().Get("agent")
	sessionID := sessionIDFromRequest(r)

	f, err := claim.StartNextFeature(ctx, s.Gateway, s.Project.ID, agent, sessionID, s.StaleThreshold)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, map[string]any{"feature": f})
}

func (s *Server) handleGetFeature(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)
	id := chi.URLParam(r, "id")
	f, err := store.GetFeature(ctx, s.Gateway, id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, map[string]any{"feature": f})
}

// updatableFeatureFields are PATCH /features/{id}'s allowed keys; anything
// else (status, work_count, claim triple) only changes through the
// dedicated start/complete/block/plan endpoints.
var updatableFeatureFields = map[string]bool{
	"description":   true,
	"category":      true,
	"priority":      true,
	"file_patterns": true,
	"branch_hint":   true,
}

func (s *Server) handleUpdateFeature(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := decodeJSON(r, &raw); err != nil {
		respondError(w, err)
		return
	}
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		if updatableFeatureFields[k] {
			fields[k] = v
		}
	}
	if len(fields) == 0 {
		respondError(w, &errs.ValidationError{Field: "body", Reason: "no updatable fields present"})
		return
	}

	ctx := requestContext(r)
	id := chi.URLParam(r, "id")
	f, err := store.UpdateFeatureFields(ctx, s.Gateway, id, fields)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, map[string]any{"feature": f})
}

func (s *Server) handleDeleteFeature(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)
	id := chi.URLParam(r, "id")
	if err := store.DeleteFeature(ctx, s.Gateway, id); err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, map[string]any{"deleted": id})
}

func (s *Server) handleStartFeature(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)
	id := chi.URLParam(r, "id")
	agent := r.URL.Query().Get("agent")
	forceOverride, _ := strconv.ParseBool(r.URL.Query().Get("force_override"))
	sessionID := sessionIDFromRequest(r)

	f, err := claim.StartFeature(ctx, s.Gateway, id, agent, sessionID, forceOverride, s.StaleThreshold)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, map[string]any{"feature": f})
}

func (s *Server) handleCompleteFeature(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)
	id := chi.URLParam(r, "id")
	summary := r.URL.Query().Get("summary")
	sessionID := sessionIDFromRequest(r)

	f, err := claim.CompleteFeature(ctx, s.Gateway, id, sessionID, summary)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, map[string]any{"feature": f})
}

func (s *Server) handleBlockFeature(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason            string `json:"reason"`
		BlockingFeatureID string `json:"blocking_feature_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Reason == "" {
		respondError(w, &errs.ValidationError{Field: "reason", Reason: "required"})
		return
	}

	ctx := requestContext(r)
	id := chi.URLParam(r, "id")
	sessionID := sessionIDFromRequest(r)

	f, err := claim.BlockFeature(ctx, s.Gateway, id, sessionID, req.Reason, req.BlockingFeatureID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, map[string]any{"feature": f})
}
