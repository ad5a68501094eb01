package api

import (
	"net/http"
	"time"

	"fleet-combat/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// EngineInterface defines the combat engine methods used by the API.
// This interface enables mocking for tests without spinning up the full game loop.
// Keep this minimal - only include methods the API layer actually calls.
type EngineInterface interface {
	// GetSnapshot returns the latest lock-free immutable snapshot
	GetSnapshot() *game.CombatSnapshot
	// Stats returns engine counters (tick, entity count, journal, grid)
	Stats() game.EngineStats
	// Leaderboard returns the top n ships by score
	Leaderboard(n int) []game.LedgerEntry
	// Catalog returns the immutable template catalog
	Catalog() *game.Catalog
	// SpawnBatch places ships from catalog templates
	SpawnBatch(orders []game.ShipOrder) ([]uint64, error)
	// SetSpeed changes the game speed step
	SetSpeed(speed int) error
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
// This struct is designed for dependency injection and testability.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Engine: mockEngine,
//	    RateLimits: &api.RateLimits{
//	        Read:   api.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
//	        Render: api.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
//	        Order:  api.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the combat engine (required)
	Engine EngineInterface

	// RateLimiter is an optional pre-configured per-class limiter.
	// If nil, a new one will be created using RateLimits.
	RateLimiter *ClientLimiter

	// RateLimits is optional configuration for the limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimits.
	RateLimits *RateLimits

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, uses the local development origins.
	CORSOrigins []string

	// MaxSpawnBatch caps POST /api/spawn. Zero uses 50.
	MaxSpawnBatch int

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler functions for the router.
type routerHandlers struct {
	engine        EngineInterface
	maxSpawnBatch int
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE apart from the limiter it may create:
//   - No network listeners are opened
//   - No engine goroutines are launched
//
// This makes it safe to use in tests with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(requestMetrics)

	limiter := cfg.RateLimiter
	if limiter == nil {
		limits := DefaultRateLimits
		if cfg.RateLimits != nil {
			limits = *cfg.RateLimits
		}
		limiter = NewClientLimiter(limits)
	}

	// CORS configuration
	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	maxBatch := cfg.MaxSpawnBatch
	if maxBatch <= 0 {
		maxBatch = 50
	}
	h := &routerHandlers{
		engine:        cfg.Engine,
		maxSpawnBatch: maxBatch,
	}

	// Each route class spends its own per-IP budget, so polling the state
	// never blocks an order and a burst of orders never blinds a viewer.
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limiter.Limit(ClassRead))
			r.Get("/state", h.handleGetState)
			r.Get("/stats", h.handleGetStats)
			r.Get("/leaderboard", h.handleGetLeaderboard)
			r.Get("/templates", h.handleGetTemplates)
		})

		r.With(limiter.Limit(ClassRender)).Get("/tactical.png", h.handleTacticalMap)

		r.Group(func(r chi.Router) {
			r.Use(limiter.Limit(ClassOrder))
			r.Post("/spawn", h.handleSpawn)
			r.Post("/speed", h.handleSetSpeed)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/state", http.StatusFound)
	})

	return r
}

// requestMetrics records latency per route pattern (bounded cardinality).
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				endpoint = p
			}
		}
		RecordRequest(r.Method, endpoint, ww.Status(), time.Since(start))
	})
}
