// internal/httpserver/server.go
//
// HTTP server wiring for the squares board.
// Responsibilities:
//   - Router + middleware (request IDs, real IP, panic recovery, timeouts,
//     access logging, metrics, JSON, CORS).
//   - Public endpoints: "/", "/health", "/metrics".
//   - Board endpoints: GET /api/state, POST /api/claim (rate limited).
//   - Admin endpoints: POST /api/generate, POST|DELETE /api/admin/session.
//
// Notes:
//   - All board semantics live in internal/board; handlers only normalize
//     input, call the service and map outcomes onto status codes.
//   - Admin access is a shared secret (plain or bcrypt) or a short-lived
//     session token minted from it; there are no user accounts.

package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/squares/internal/board"
)

// Options carries the boundary configuration read from the environment.
type Options struct {
	AdminKey        string        // shared admin secret (plain)
	AdminKeyHash    string        // bcrypt hash of the admin secret; wins over AdminKey
	JWTSecret       string        // signs admin session tokens; empty disables sessions
	SessionTTL      time.Duration // admin session lifetime
	ClientOrigin    string        // CORS origin
	ClaimRatePerMin int           // per-client claim limit; 0 disables
	ClaimBurst      int
	SecureCookies   bool
}

// Server bundles router, board service and boundary helpers.
type Server struct {
	r       *chi.Mux
	svc     *board.Service
	admin   *adminAuth
	metrics *metrics
	limiter *clientLimiter
	opts    Options
}

// New constructs a Server, installs middleware, and registers routes.
func New(svc *board.Service, opts Options) *Server {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 12 * time.Hour
	}
	if opts.ClientOrigin == "" {
		opts.ClientOrigin = "http://localhost:5173"
	}
	s := &Server{
		r:       chi.NewRouter(),
		svc:     svc,
		admin:   newAdminAuth(opts),
		metrics: newMetrics(),
		limiter: newClientLimiter(opts.ClaimRatePerMin, opts.ClaimBurst),
		opts:    opts,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(requestLogger)                   // one zerolog line per request
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(s.metrics.instrument)            // latency histogram
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(cors(opts.ClientOrigin))         // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service":   "squares",
			"endpoints": []string{"/health", "/metrics", "GET /api/state", "POST /api/claim", "POST /api/generate", "POST /api/admin/session"},
		})
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	s.r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	s.r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.With(s.limiter.middleware).Post("/claim", s.handleClaim)
		r.Post("/generate", s.handleGenerate)
		r.Post("/admin/session", s.handleAdminLogin)
		r.Delete("/admin/session", s.handleAdminLogout)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error {
	log.Info().Str("addr", addr).Msg("listening")
	return http.ListenAndServe(addr, s.r)
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

// writeError writes {"error": msg}.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
