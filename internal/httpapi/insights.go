package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Shakes-tzd/ijoka/internal/errs"
	"github.com/Shakes-tzd/ijoka/internal/models"
	"github.com/Shakes-tzd/ijoka/internal/store"
)

func (s *Server) handleListInsights(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	var tags []string
	if raw := r.URL.Query().Get("tags"); raw != "" {
		tags = strings.Split(raw, ",")
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	ctx := requestContext(r)
	insights, err := store.SearchInsights(ctx, s.Gateway, query, tags, limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, map[string]any{"insights": insights, "count": len(insights)})
}

type createInsightRequest struct {
	Description          string                    `json:"description"`
	PatternType          models.InsightPatternType `json:"pattern_type"`
	Tags                 []string                  `json:"tags"`
	LearnedFromFeatureID string                    `json:"learned_from_feature_id"`
}

func (s *Server) handleCreateInsight(w http.ResponseWriter, r *http.Request) {
	var req createInsightRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Description == "" {
		respondError(w, &errs.ValidationError{Field: "description", Reason: "required"})
		return
	}
	if req.PatternType == "" {
		req.PatternType = models.InsightPatternBestPractice
	}

	ctx := requestContext(r)
	in, err := store.CreateInsight(ctx, s.Gateway, &models.Insight{
		Description:          req.Description,
		PatternType:          req.PatternType,
		Tags:                 req.Tags,
		LearnedFromFeatureID: req.LearnedFromFeatureID,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, map[string]any{"insight": in})
}
