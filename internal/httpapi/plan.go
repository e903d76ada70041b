package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shakes-tzd/ijoka/internal/errs"
	"github.com/Shakes-tzd/ijoka/internal/planengine"
	"github.com/Shakes-tzd/ijoka/internal/store"
)

type planRequest struct {
	Steps []string `json:"steps"`
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request, featureID string) {
	ctx := requestContext(r)
	steps, err := store.ListSteps(ctx, s.Gateway, featureID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, map[string]any{
		"feature_id":  featureID,
		"steps":       steps,
		"active_step": planengine.ActiveStep(steps),
		"progress":    planengine.ComputeProgress(steps),
	})
}

func (s *Server) setPlan(w http.ResponseWriter, r *http.Request, featureID string) {
	var req planRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if len(req.Steps) == 0 {
		respondError(w, &errs.ValidationError{Field: "steps", Reason: "at least one step is required"})
		return
	}

	ctx := requestContext(r)
	steps, err := store.SetPlan(ctx, s.Gateway, featureID, req.Steps)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, map[string]any{
		"feature_id":  featureID,
		"steps":       steps,
		"active_step": planengine.ActiveStep(steps),
		"progress":    planengine.ComputeProgress(steps),
	})
}

// handleGetActivePlan / handleSetActivePlan serve GET|POST /plan, the
// active-Feature-scoped shorthand that resolves to the Project's in_progress,
// non-Session-Work Feature (via currentFeature); with none, they respond 404.
func (s *Server) handleGetActivePlan(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)
	f, err := currentFeature(ctx, s.Gateway, s.Project.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	if f == nil {
		respondError(w, &errs.NotFoundError{Entity: "Feature", ID: "active"})
		return
	}
	s.getPlan(w, r, f.ID)
}

func (s *Server) handleSetActivePlan(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)
	f, err := currentFeature(ctx, s.Gateway, s.Project.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	if f == nil {
		respondError(w, &errs.NotFoundError{Entity: "Feature", ID: "active"})
		return
	}
	s.setPlan(w, r, f.ID)
}

func (s *Server) handleGetFeaturePlan(w http.ResponseWriter, r *http.Request) {
	s.getPlan(w, r, chi.URLParam(r, "id"))
}

func (s *Server) handleSetFeaturePlan(w http.ResponseWriter, r *http.Request) {
	s.setPlan(w, r, chi.URLParam(r, "id"))
}
