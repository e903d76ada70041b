// Package httpapi implements the HTTP Adapter of spec.md §4.12/§6: thin
// translation from HTTP requests to the core packages (store, claim,
// attribution, planengine, nudges, analytics) and back to the bit-exact
// JSON shapes §6 specifies. Grounded on the teacher's command-layer
// translation style (validate -> call core -> output.Success/Error),
// routed with `github.com/go-chi/chi/v5` and access-logged with
// `github.com/rs/zerolog` — both named in the pack as real ecosystem
// choices for an HTTP surface the teacher itself never needed (vybe ships
// no HTTP server).
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
	"github.com/Shakes-tzd/ijoka/internal/store"
)

// Server holds the dependencies every handler needs: the Graph Store
// Gateway and the resolved Project this process serves (spec.md §4.3:
// path is canonicalised to the git-root by the adapter before ensure_project
// is called).
type Server struct {
	Gateway        graph.Gateway
	Project        *models.Project
	StaleThreshold time.Duration
	Log            zerolog.Logger
}

// NewServer builds the chi router for every endpoint in spec.md §6.
func NewServer(g graph.Gateway, project *models.Project, staleThreshold time.Duration, log zerolog.Logger) http.Handler {
	s := &Server{Gateway: g, Project: project, StaleThreshold: staleThreshold, Log: log}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/status", s.handleStatus)

	r.Route("/features", func(r chi.Router) {
		r.Get("/", s.handleListFeatures)
		r.Post("/", s.handleCreateFeature)
		r.Post("/discover", s.handleDiscoverFeature)
		r.Post("/next/start", s.handleStartNextFeature)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetFeature)
			r.Patch("/", s.handleUpdateFeature)
			r.Delete("/", s.handleDeleteFeature)
			r.Post("/start", s.handleStartFeature)
			r.Post("/complete", s.handleCompleteFeature)
			r.Post("/block", s.handleBlockFeature)
			r.Get("/plan", s.handleGetFeaturePlan)
			r.Post("/plan", s.handleSetFeaturePlan)
		})
	})

	r.Get("/plan", s.handleGetActivePlan)
	r.Post("/plan", s.handleSetActivePlan)
	r.Post("/checkpoint", s.handleCheckpoint)

	r.Route("/insights", func(r chi.Router) {
		r.Get("/", s.handleListInsights)
		r.Post("/", s.handleCreateInsight)
	})

	r.Route("/analytics", func(r chi.Router) {
		r.Get("/patterns", s.handleAnalyticsPatterns)
		r.Get("/velocity", s.handleAnalyticsVelocity)
		r.Get("/profile/{agent}", s.handleAnalyticsProfile)
		r.Post("/query", s.handleAnalyticsQuery)
		r.Get("/digest", s.handleAnalyticsDigest)
		r.Post("/feedback", s.handleAnalyticsFeedback)
	})

	return r
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.Log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http_request")
	})
}

// sessionIDFromRequest extracts the acting session from the X-Ijoka-Session
// header; most endpoints attribute writes to a Session for StatusEvent.by
// and nudge idempotence.
func sessionIDFromRequest(r *http.Request) string {
	return r.Header.Get("X-Ijoka-Session")
}

func requestContext(r *http.Request) context.Context {
	return r.Context()
}

// currentFeature returns the first in_progress, non-Session-Work Feature of
// the Project (nil if there is none), used by GET /status'
// `current_feature` field, the GET|POST /plan shorthand, and POST /checkpoint.
func currentFeature(ctx context.Context, g graph.Gateway, projectID string) (*models.Feature, error) {
	features, err := store.ListInProgressFeatures(ctx, g, projectID)
	if err != nil {
		return nil, err
	}
	for _, f := range features {
		if !f.IsSessionWork {
			return f, nil
		}
	}
	return nil, nil
}
