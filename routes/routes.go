package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/inboxmarket/datagate/app"
	"github.com/inboxmarket/datagate/handlers"
	"github.com/inboxmarket/datagate/middleware"
	"github.com/inboxmarket/datagate/models"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	negotiations := handlers.NewNegotiationHandler(deps.NegotiationService, deps.PolicyService, deps.Logger)
	policies := handlers.NewPolicyHandler(deps.PolicyService, deps.Logger)
	history := handlers.NewHistoryHandler(deps.NegotiationService, deps.Archive, deps.Config.Engine.HistoryLimit, deps.Logger)

	// Health check endpoints
	r.Get("/healthz", handlers.HealthCheck(deps))
	r.Get("/readyz", handlers.ReadinessCheck(deps))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/status", handlers.StatusHandler(deps))

		// Everything below acts on a specific owner's mailbox
		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Use(deps.AuthMiddleware.ExtractIdentity)

			// Negotiation endpoints
			r.Post("/negotiations", negotiations.HandleNegotiate)
			r.Post("/disclosures", negotiations.HandleDisclose)

			// Owner policy management; only the owner's own client may write
			r.Get("/policy", policies.HandleGetPolicy)
			r.With(deps.AuthMiddleware.RequireRequesterClass(models.RequesterHuman)).
				Put("/policy", policies.HandleUpdatePolicy)

			// Ledger views
			r.Get("/history", history.HandleGetHistory)
			r.Get("/stats", history.HandleGetStats)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
