// Package server assembles the HTTP router.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"dailymint/internal/handlers"
	"dailymint/internal/metrics"
	mw "dailymint/internal/middleware"
)

// Handlers groups everything the router serves.
type Handlers struct {
	Creations *handlers.CreationHandler
	Prompts   *handlers.PromptHandler
	Tokens    *handlers.TokenHandler
	Dashboard *handlers.DashboardHandler
	Users     *handlers.UserHandler
	Meta      *handlers.MetaHandler
}

type Options struct {
	Auth        *mw.AuthMiddleware
	RateLimiter *mw.RateLimiter
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
}

func NewRouter(h Handlers, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.ZapRequestLogger(opts.Logger))
	r.Use(chimw.Recoverer)
	if opts.Metrics != nil {
		r.Use(mw.Metrics(opts.Metrics))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Meta.Health)
	r.Get("/.well-known/farcaster.json", h.Meta.Manifest)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		// public
		api.Get("/prompts", h.Prompts.Active)
		api.Get("/leaderboard", h.Dashboard.Leaderboard)
		api.Get("/creations/{id}/metadata", h.Creations.Metadata)

		api.Group(func(pr chi.Router) {
			pr.Use(opts.Auth.RequireAuth)

			pr.Get("/me", h.Users.GetMe)
			pr.Put("/me", h.Users.UpdateMe)
			pr.Delete("/me", h.Users.DeactivateMe)

			pr.Get("/streak", h.Dashboard.Streak)

			pr.Get("/creations", h.Creations.List)
			pr.Get("/creations/{id}", h.Creations.Get)

			pr.Get("/tokens/balance", h.Tokens.Balance)
			pr.Get("/tokens/transactions", h.Tokens.Transactions)
			pr.Get("/tokens/{address}/balance", h.Tokens.OnChainBalance)

			pr.With(opts.Auth.RequireAdmin).Post("/prompts/{id}/deactivate", h.Prompts.Deactivate)

			pr.Group(func(limited chi.Router) {
				if opts.RateLimiter != nil {
					limited.Use(opts.RateLimiter.Handler)
				}
				limited.Post("/creations", h.Creations.Submit)
				limited.Post("/creations/{id}/mint", h.Creations.Mint)
				limited.Post("/prompts", h.Prompts.Create)
				limited.With(opts.Auth.RequireAdmin).Post("/prompts/generate", h.Prompts.Generate)
			})
		})
	})

	return r
}
