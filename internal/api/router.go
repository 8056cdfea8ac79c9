package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/krishimitra/krishimitra/internal/database"
	mw "github.com/krishimitra/krishimitra/internal/middleware"
	knats "github.com/krishimitra/krishimitra/internal/nats"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Agent turn entry point
	AgentQuery http.HandlerFunc

	// Profile handlers
	GetProfile    http.HandlerFunc
	UpsertProfile http.HandlerFunc
	DeleteProfile http.HandlerFunc

	// Crop handlers
	CreateCrop http.HandlerFunc
	ListCrops  http.HandlerFunc
	GetCrop    http.HandlerFunc
	UpdateCrop http.HandlerFunc
	DeleteCrop http.HandlerFunc

	// Task handlers
	CreateTask http.HandlerFunc
	ListTasks  http.HandlerFunc
	UpdateTask http.HandlerFunc
	DeleteTask http.HandlerFunc

	// Notification handlers
	ListNotifications    http.HandlerFunc
	MarkNotificationRead http.HandlerFunc
	DeleteNotification   http.HandlerFunc

	// Health log handlers
	ListHealthLogs http.HandlerFunc

	// Audit history
	ListAuditEvents http.HandlerFunc
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	AgentRateLimiter   func(http.Handler) http.Handler
}

func NewRouter(pool *pgxpool.Pool, natsClient *knats.Client, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe — always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Readiness probe — checks DB and NATS
	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":   "healthy",
			"database": "healthy",
			"nats":     "healthy",
		}

		status := http.StatusOK

		if err := database.HealthCheck(r.Context(), pool); err != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		if natsClient != nil && !natsClient.Healthy() {
			health["nats"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		} else if natsClient == nil {
			health["nats"] = "not configured"
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Agent turns — optionally rate-limited per user
		r.Route("/agent", func(r chi.Router) {
			if cfg.AgentRateLimiter != nil {
				r.Use(cfg.AgentRateLimiter)
			}
			r.Post("/query", h.AgentQuery)
		})

		// Farm data CRUD
		r.Route("/farm", func(r chi.Router) {
			r.Route("/profile", func(r chi.Router) {
				r.Get("/", h.GetProfile)
				r.Put("/", h.UpsertProfile)
				r.Delete("/", h.DeleteProfile)
			})

			r.Route("/crops", func(r chi.Router) {
				r.Post("/", h.CreateCrop)
				r.Get("/", h.ListCrops)

				r.Route("/{cropID}", func(r chi.Router) {
					r.Get("/", h.GetCrop)
					r.Put("/", h.UpdateCrop)
					r.Delete("/", h.DeleteCrop)
				})
			})

			r.Route("/tasks", func(r chi.Router) {
				r.Post("/", h.CreateTask)
				r.Get("/", h.ListTasks)

				r.Route("/{taskID}", func(r chi.Router) {
					r.Put("/", h.UpdateTask)
					r.Delete("/", h.DeleteTask)
				})
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.ListNotifications)

				r.Route("/{notificationID}", func(r chi.Router) {
					r.Post("/read", h.MarkNotificationRead)
					r.Delete("/", h.DeleteNotification)
				})
			})

			r.Get("/health-logs", h.ListHealthLogs)
		})

		// Audit history
		r.Get("/audit", h.ListAuditEvents)
	})

	return r
}
