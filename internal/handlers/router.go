package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/otakuparshva/ai-recruitment/internal/middleware"
)

// RouterConfig collects everything the router mounts.
type RouterConfig struct {
	Admin       *AdminHandler
	Recruiters  *RecruiterHandler
	Candidates  *CandidateHandler
	Health      *HealthHandler
	Gatherer    prometheus.Gatherer
	HTTPMetrics *middleware.HTTPMetrics
	RateLimiter *middleware.RateLimiter
	// MaxInFlight caps concurrently served API requests; 0 means unlimited.
	MaxInFlight int
	Timeout     time.Duration
	Logger      *zap.Logger
}

// NewRouter builds the HTTP routes. /health and /metrics sit outside the rate limit and timeout.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.RecoveryMiddleware(cfg.Logger))
	if cfg.HTTPMetrics != nil {
		r.Use(cfg.HTTPMetrics.Middleware)
	}

	r.Get("/health", cfg.Health.Health)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.LoggingMiddleware(cfg.Logger))
		if cfg.RateLimiter != nil {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimiter, cfg.Logger))
		}
		if cfg.MaxInFlight > 0 {
			r.Use(chimw.Throttle(cfg.MaxInFlight))
		}
		r.Use(middleware.TimeoutMiddleware(cfg.Timeout))

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", cfg.Admin.ListJobs)
			r.Post("/", cfg.Recruiters.PostJob)
			r.Get("/pending", cfg.Admin.PendingJobs)
			r.Post("/approve", cfg.Admin.BulkApprove)
			r.Post("/{id}/approve", cfg.Admin.ApproveJob)
			r.Post("/{id}/reject", cfg.Admin.RejectJob)
			r.Get("/{id}/applications", cfg.Recruiters.JobCandidates)
			r.Post("/{id}/applications", cfg.Candidates.Apply)
			r.Post("/{id}/candidates/{candidateID}/accept", cfg.Recruiters.AcceptCandidate)
			r.Post("/{id}/candidates/{candidateID}/reject", cfg.Recruiters.RejectCandidate)
			r.Post("/{id}/interview", cfg.Candidates.StartInterview)
			r.Post("/{id}/interview/submit", cfg.Candidates.SubmitInterview)
		})

		r.Get("/users", cfg.Admin.ListUsers)
		r.Post("/users/{id}/toggle-active", cfg.Admin.ToggleUserActive)
		r.Get("/activity", cfg.Admin.ActivityFeed)
		r.Get("/stats", cfg.Admin.SystemStats)
		r.Get("/recruiters/{id}/jobs", cfg.Recruiters.MyJobs)
		r.Get("/candidates/{id}/applications", cfg.Candidates.MyApplications)
	})

	return r
}
