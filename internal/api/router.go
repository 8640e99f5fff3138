package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/quillpad/quillpad/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Gateway handlers
	Generate        http.HandlerFunc
	GetQuota        http.HandlerFunc
	AuthorizeExport http.HandlerFunc

	// Admin handlers
	GetSubscription      http.HandlerFunc
	ActivateSubscription http.HandlerFunc
	BlockSubscription    http.HandlerFunc
	ListAuditLogs        http.HandlerFunc

	// Auth middleware
	AuthMiddleware func(http.Handler) http.Handler
}

// ReadinessCheck reports whether one dependency is usable.
type ReadinessCheck func(ctx context.Context) error

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	// TrustProxyHeaders rewrites RemoteAddr from X-Real-IP/X-Forwarded-For.
	// Enable it only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool
	// GenerationRateLimiter guards the AI endpoints; nil disables it.
	GenerationRateLimiter func(http.Handler) http.Handler
	// ReadinessChecks are keyed by dependency name, e.g. "database".
	ReadinessChecks map[string]ReadinessCheck
	RequestTimeout  time.Duration
}

func NewRouter(cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(chimw.Recoverer)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness: always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		health := map[string]string{"status": "healthy"}
		status := http.StatusOK
		for name, check := range cfg.ReadinessChecks {
			if err := check(ctx); err != nil {
				health[name] = "unhealthy"
				health["status"] = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			health[name] = "healthy"
		}
		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(chimw.Timeout(cfg.RequestTimeout))
		}

		// AI routes are rate-limited per caller and globally before anything
		// else touches the request.
		r.Route("/ai", func(r chi.Router) {
			if cfg.GenerationRateLimiter != nil {
				r.Use(cfg.GenerationRateLimiter)
			}
			r.Use(h.AuthMiddleware)
			r.Post("/generate", h.Generate)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Get("/quota", h.GetQuota)
			r.Post("/exports/authorize", h.AuthorizeExport)

			// Admin routes; the admin role is checked against the store per call
			r.Route("/admin", func(r chi.Router) {
				r.Route("/subscriptions/{id}", func(r chi.Router) {
					r.Get("/", h.GetSubscription)
					r.Post("/activate", h.ActivateSubscription)
					r.Post("/block", h.BlockSubscription)
				})
				r.Get("/audit", h.ListAuditLogs)
			})
		})
	})

	return r
}
