package api

import (
	"net/http"
	"time"

	"blade-arena/internal/game"
	"blade-arena/internal/lobby"
	"blade-arena/internal/observability"
	"blade-arena/internal/render"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RoomManager is the part of the room registry the API calls. It is an
// interface so handlers can be tested without running tick loops.
type RoomManager interface {
	CreateRoom(opts lobby.CreateOptions) (string, error)
	JoinRoom(roomID string, userID int, name string) error
	SetDestination(roomID string, userID int, x, y float64) error
	GetLatestState(roomID string) (game.BroadcastState, error)
	Rooms() []lobby.RoomInfo
	TerminateRoom(roomID string) error
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	router := api.NewRouter(api.RouterConfig{
//	    Rooms:          mockRooms,
//	    DisableLogging: true,
//	})
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Rooms is the room registry (required)
	Rooms RoomManager

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one is created from RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is only used when RateLimiter is nil. If both are nil,
	// DefaultRateLimitConfig applies.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins lists allowed origins. If nil, only localhost is allowed.
	CORSOrigins []string

	// Preview renders room thumbnails. If nil, a 512px preview of a
	// 2000-unit arena is used.
	Preview *render.Preview

	// DisableLogging disables the request logger middleware.
	DisableLogging bool
}

type routerHandlers struct {
	rooms   RoomManager
	preview *render.Preview
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// NewRouter is pure: it starts no goroutines and opens no listeners, so it
// is safe to wrap in httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	// Rate limiting before CORS to reject early
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	preview := cfg.Preview
	if preview == nil {
		preview = render.NewPreview(512, 2000)
	}
	h := &routerHandlers{rooms: cfg.Rooms, preview: preview}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	r.Route("/api/rooms", func(r chi.Router) {
		r.Get("/", h.handleListRooms)
		r.Post("/", h.handleCreateRoom)

		r.Route("/{roomID}", func(r chi.Router) {
			r.Delete("/", h.handleTerminateRoom)
			r.Get("/state", h.handleGetState)
			r.Get("/leaderboard", h.handleGetLeaderboard)
			r.Get("/preview.png", h.handleGetPreview)
			r.Post("/join", h.handleJoin)
			r.Post("/destination", h.handleSetDestination)
		})
	})

	return r
}

// metricsMiddleware records latency and status per route pattern. Raw paths
// are never used as labels.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		pattern := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.RecordRequest(r.Method, pattern, status, time.Since(start))
	})
}
