package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/messenger/internal/api/middleware"
	"github.com/eldtechnologies/messenger/internal/handlers"
	"github.com/eldtechnologies/messenger/internal/program"
	"github.com/eldtechnologies/messenger/internal/store"
)

// Options configures the router.
type Options struct {
	// Redis enables the shared nonce store and rate limiting. Optional.
	Redis *store.RedisStore

	// Nonces is used when Redis is nil. Defaults to an in-process store.
	Nonces store.NonceStore

	RateLimit      middleware.RateLimiterConfig
	AirdropEnabled bool
}

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, prog *program.Program, opts Options) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(8 * 1024)) // 8KB max body
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Slow(logger, 500*time.Millisecond))
	r.Use(chimw.Recoverer)

	// Signer buckets read the verified credential, so the limiter is applied
	// per group after RequireAuth.
	limit := func(next http.Handler) http.Handler { return next }
	nonces := opts.Nonces
	if opts.Redis != nil {
		limit = middleware.NewRateLimiter(opts.Redis.Client(), logger, opts.RateLimit).Middleware
		nonces = opts.Redis
	}
	if nonces == nil {
		nonces = store.NewMemoryNonceStore()
	}

	// CORS - allow all origins (clients call from anywhere)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept", "Content-Type",
			middleware.HeaderSigner, middleware.HeaderNonce, middleware.HeaderTimestamp, middleware.HeaderSignature,
		},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(prog, opts.Redis, logger)
	auth := middleware.NewAuthMiddleware(nonces, logger)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes (no auth required)
	r.Group(func(r chi.Router) {
		r.Use(limit)

		r.Get("/api", h.Root)
		r.Get("/health", h.Health)
		r.Get("/config", h.GetConfig)
		r.Get("/registry/{identity}", h.GetRegistry)
		r.Get("/accounts/{address}", h.GetAccount)
		if opts.AirdropEnabled {
			r.Post("/airdrop", h.Airdrop)
		}
	})

	// Authenticated routes (require signature)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Use(limit)

		r.Post("/config", h.InitializeConfig)
		r.Patch("/config", h.UpdateConfig)
		r.Post("/registry", h.Register)
		r.Put("/registry/{identity}/key", h.UpdateEncryptionKey)
		r.Put("/registry/{identity}/min-fee", h.SetMinFee)
		r.Delete("/registry/{identity}", h.Deregister)
		r.Post("/messages", h.SendMessage)
	})

	return r
}
