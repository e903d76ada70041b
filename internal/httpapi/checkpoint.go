package httpapi

import (
	"net/http"

	"github.com/Shakes-tzd/ijoka/internal/errs"
	"github.com/Shakes-tzd/ijoka/internal/planengine"
)

type checkpointRequest struct {
	StepCompleted   string `json:"step_completed"`
	CurrentActivity string `json:"current_activity"`
}

// handleCheckpoint serves POST /checkpoint, scoped to the Project's
// in_progress, non-Session-Work Feature (spec.md §4.7 Checkpoint).
func (s *Server) handleCheckpoint(w http.ResponseWriter, r *http.Request) {
	var req checkpointRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err)
			return
		}
	}

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

	result, err := planengine.Checkpoint(ctx, s.Gateway, f.ID, req.StepCompleted, req.CurrentActivity)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, map[string]any{
		"feature":     f,
		"active_step": result.ActiveStep,
		"progress":    result.Progress,
		"warnings":    result.Warnings,
	})
}
