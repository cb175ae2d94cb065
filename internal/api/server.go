package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/wavechat/wavechat/internal/log"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger        log.Logger
	Store         Store       // Required
	Chat          ChatService // Required
	Pinger        Pinger      // Optional: nil skips the DB check in /ready
	HMACSecret    []byte      // Required: 32+ bytes, signs session cookies
	SessionTTL    time.Duration
	MessagesLimit int      // Quota granted to new accounts
	CORSOrigins   []string // Allowed origins for CORS
	IsDev         bool     // Enables HTTP cookies (no Secure flag)
	TrustProxy    bool     // Trust X-Real-IP/X-Forwarded-For headers
	RateBurst     int      // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Chat == nil {
		return nil, errors.New("chat service is required")
	}
	if len(cfg.HMACSecret) < 32 {
		return nil, errors.New("HMAC secret must be at least 32 bytes")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sessionTTL := cfg.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = 30 * 24 * time.Hour
	}

	sm := &sessionManager{
		store:         cfg.Store,
		hmacSecret:    cfg.HMACSecret,
		sessionTTL:    sessionTTL,
		messagesLimit: cfg.MessagesLimit,
		isDev:         cfg.IsDev,
		logger:        logger,
	}
	ch := &chatHandler{service: cfg.Chat, logger: logger}
	cv := &conversationHandler{store: cfg.Store, logger: logger}
	ad := &adminHandler{store: cfg.Store, logger: logger}
	md := &modelsHandler{logger: logger}

	mux := http.NewServeMux()

	// Auth
	mux.HandleFunc("POST /api/v1/auth/register", sm.register)
	mux.HandleFunc("POST /api/v1/auth/login", sm.login)
	mux.HandleFunc("POST /api/v1/auth/logout", sm.logout)
	mux.HandleFunc("GET /api/v1/auth/me", requireUser(logger, sm.me))

	// Model catalog
	mux.HandleFunc("GET /api/v1/models", md.list)

	// Chat
	mux.HandleFunc("POST /api/v1/chat", requireUser(logger, ch.send))

	// Conversations
	mux.HandleFunc("GET /api/v1/conversations", requireUser(logger, cv.list))
	mux.HandleFunc("GET /api/v1/conversations/{id}", requireUser(logger, cv.get))
	mux.HandleFunc("DELETE /api/v1/conversations/{id}", requireUser(logger, cv.delete))

	// Admin panel
	mux.HandleFunc("GET /api/v1/admin/stats", requireAdmin(logger, ad.stats))
	mux.HandleFunc("GET /api/v1/admin/users", requireAdmin(logger, ad.listUsers))
	mux.HandleFunc("PATCH /api/v1/admin/users/{id}", requireAdmin(logger, ad.updateUser))
	mux.HandleFunc("DELETE /api/v1/admin/users/{id}", requireAdmin(logger, ad.deleteUser))
	mux.HandleFunc("GET /api/v1/admin/settings", requireAdmin(logger, ad.settings))
	mux.HandleFunc("POST /api/v1/admin/settings", requireAdmin(logger, ad.updateSetting))

	// Rate limiter: per-IP token bucket (1 token/sec refill)
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Auth → Routes
	// RequestID must be before Logging so request_id is available in
	// log attributes. CORS must be before RateLimit so preflight
	// OPTIONS gets proper CORS headers.
	var handler http.Handler = mux
	handler = authMiddleware(sm)(handler)
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	isDev := cfg.IsDev
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	// Health probes live on a top-level mux outside the middleware
	// stack so they are never rate limited.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.Pinger, logger))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
