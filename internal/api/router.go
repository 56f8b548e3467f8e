package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/chatline-im/chatline/internal/api/middleware"
	"github.com/chatline-im/chatline/internal/config"
	"github.com/chatline-im/chatline/internal/handlers"
	"github.com/chatline-im/chatline/internal/hub"
	"github.com/chatline-im/chatline/internal/store"
	"github.com/chatline-im/chatline/internal/ws"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, cfg *config.Config, db store.DataStore, cache *store.RedisStore, h *hub.Hub) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)
	r.Use(middleware.SecurityHeaders)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// CORS for browser clients
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	hh := handlers.NewHandler(db, cache)
	wsHandler := ws.NewHandler(h, logger, cfg.AllowedOrigins)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Read-only HTTP surface
	r.Get("/", hh.Root)
	r.Get("/health", hh.Health)
	r.Get("/api/users", hh.ListUsers)
	r.Get("/api/stats", hh.Stats)

	// Real-time transport
	r.Handle("/ws", wsHandler)

	return r
}
