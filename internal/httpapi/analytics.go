package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Shakes-tzd/ijoka/internal/analytics"
	"github.com/Shakes-tzd/ijoka/internal/errs"
)

func (s *Server) handleAnalyticsPatterns(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)
	clusters, err := analytics.DetectFeatureClusters(ctx, s.Gateway, s.Project.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	workflows, err := analytics.FindCommonWorkflows(ctx, s.Gateway, s.Project.ID, 2)
	if err != nil {
		respondError(w, err)
		return
	}
	bottlenecks, err := analytics.DetectBottlenecks(ctx, s.Gateway, s.Project.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, map[string]any{
		"clusters":    clusters,
		"workflows":   workflows,
		"bottlenecks": bottlenecks,
	})
}

func (s *Server) handleAnalyticsVelocity(w http.ResponseWriter, r *http.Request) {
	windowDays := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			windowDays = n
		}
	}

	ctx := requestContext(r)
	current, err := analytics.ComputeVelocity(ctx, s.Gateway, s.Project.ID, windowDays)
	if err != nil {
		respondError(w, err)
		return
	}
	drift, err := analytics.DetectVelocityDrift(ctx, s.Gateway, s.Project.ID, 0.3)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, map[string]any{
		"current":        current,
		"drift_warnings": drift,
	})
}

func (s *Server) handleAnalyticsProfile(w http.ResponseWriter, r *http.Request) {
	agent := chi.URLParam(r, "agent")
	if agent == "" {
		respondError(w, &errs.ValidationError{Field: "agent", Reason: "required"})
		return
	}

	ctx := requestContext(r)
	profile, err := analytics.BuildAgentProfile(ctx, s.Gateway, s.Project.ID, agent)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, map[string]any{"profile": profile})
}

func (s *Server) handleAnalyticsQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Question == "" {
		respondError(w, &errs.ValidationError{Field: "question", Reason: "required"})
		return
	}

	ctx := requestContext(r)
	resp, err := analytics.RunQuery(ctx, s.Gateway, s.Project.ID, req.Question)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, map[string]any{
		"query_type": resp.QueryType,
		"data":       resp.Data,
		"insights":   resp.Insights,
	})
}

func (s *Server) handleAnalyticsDigest(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)
	now := time.Now()

	bottlenecks, err := analytics.DetectBottlenecks(ctx, s.Gateway, s.Project.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	drift, err := analytics.DetectVelocityDrift(ctx, s.Gateway, s.Project.ID, 0.3)
	if err != nil {
		respondError(w, err)
		return
	}
	workflows, err := analytics.FindCommonWorkflows(ctx, s.Gateway, s.Project.ID, 2)
	if err != nil {
		respondError(w, err)
		return
	}
	velocity, err := analytics.ComputeVelocity(ctx, s.Gateway, s.Project.ID, 7)
	if err != nil {
		respondError(w, err)
		return
	}

	insights := analytics.GenerateDailyDigest(bottlenecks, drift, workflows, velocity, now, 10)
	respondSuccess(w, map[string]any{
		"date":               now.Format("2006-01-02"),
		"top_insights":       insights,
		"velocity":           velocity,
		"active_bottlenecks": bottlenecks,
	})
}
