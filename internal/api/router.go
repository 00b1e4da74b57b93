package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pasacoin/pasanaku-server/internal/api/handler"
	"github.com/pasacoin/pasanaku-server/internal/api/middleware"
	"github.com/pasacoin/pasanaku-server/internal/auth"
	"github.com/pasacoin/pasanaku-server/internal/rates"
	"github.com/pasacoin/pasanaku-server/internal/service"
	"github.com/pasacoin/pasanaku-server/internal/storage"
)

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(
	engine *service.Engine,
	store storage.Storage,
	jwtManager *auth.JWTManager,
	feed rates.Feed,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics)

	// Health check and metrics (no auth required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	// API routes (auth required, JSON Content-Type)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentType)
		r.Use(middleware.Auth(jwtManager))

		// Groups
		groupHandler := handler.NewGroupHandler(engine)
		r.Post("/groups", groupHandler.Create)
		r.Get("/groups", groupHandler.Explore)
		r.Get("/groups/mine", groupHandler.Mine)
		r.Route("/groups/{id}", func(r chi.Router) {
			r.Get("/", groupHandler.Get)
			r.Post("/join", groupHandler.Join)
			r.Post("/contribute", groupHandler.Contribute)
			r.Post("/claim", groupHandler.Claim)
		})

		// Notifications
		notificationHandler := handler.NewNotificationHandler(store)
		r.Get("/notifications", notificationHandler.List)
		r.Post("/notifications/read-all", notificationHandler.MarkAllRead)
		r.Post("/notifications/{id}/read", notificationHandler.MarkRead)

		// Exchange rates (display only)
		ratesHandler := handler.NewRatesHandler(feed)
		r.Get("/rates", ratesHandler.Get)
	})

	return r
}
