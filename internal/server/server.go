// Package server provides the HTTP REST API for the webform converter.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/webform-converter/internal/config"
	"github.com/jonathan/webform-converter/internal/conversion"
	"github.com/jonathan/webform-converter/internal/db"
	"github.com/jonathan/webform-converter/internal/forms"
	"github.com/jonathan/webform-converter/internal/replay"
	"github.com/jonathan/webform-converter/internal/server/middleware"
	"github.com/jonathan/webform-converter/internal/server/ratelimit"
	"github.com/jonathan/webform-converter/internal/types"
)

// Replayer delivers a submission to the legacy endpoint of its form.
type Replayer interface {
	Replay(ctx context.Context, schema *types.FormSchema, submission *types.Submission) (*replay.Result, error)
}

// ReplayLog records and lists replay outcomes.
type ReplayLog interface {
	RecordReplay(ctx context.Context, entry *db.ReplayLogEntry) (uuid.UUID, error)
	ListReplays(ctx context.Context, formID uuid.UUID, limit int) ([]db.ReplayLogEntry, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	db          *db.DB
	store       forms.Store
	importer    *forms.Service
	replayer    Replayer
	replayLog   ReplayLog
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	authHandler *AuthHandler
}

// Deps are the collaborators of a Server. Store, Replayer, JWT and Passwords
// are required. A nil Importer converts with the default options, a nil
// ReplayLog disables replay logging and a nil RateLimit uses the limiter defaults.
type Deps struct {
	Store     forms.Store
	Importer  *forms.Service
	Replayer  Replayer
	ReplayLog ReplayLog
	JWT       *JWTService
	Passwords *config.PasswordConfig
	RateLimit *ratelimit.Config
}

// New creates a server backed by PostgreSQL, with conversion and replay
// settings taken from cfg.
func New(cfg config.Config) (*Server, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	database, err := db.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create password config: %w", err)
	}

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}

	converter := conversion.NewConverter(&conversion.Options{
		MaxFileSizeMB:     cfg.MaxFileSizeMB,
		AllowedExtensions: cfg.AllowedExtensions,
	}, nil)

	replayer := replay.New(&replay.Options{
		Timeout:            cfg.ReplayTimeout(),
		Boundary:           cfg.ReplayBoundary,
		Headers:            cfg.ReplayHeaders,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	})

	s := NewWithDeps(cfg.Port, Deps{
		Store:     database,
		Importer:  forms.NewService(converter, database),
		Replayer:  replayer,
		ReplayLog: database,
		JWT:       NewJWTService(jwtConfig),
		Passwords: passwordConfig,
		RateLimit: ratelimit.LoadConfig(),
	})
	s.db = database

	return s, nil
}

// NewWithDeps creates a server from explicit collaborators.
func NewWithDeps(port int, deps Deps) *Server {
	importer := deps.Importer
	if importer == nil {
		importer = forms.NewService(conversion.NewConverter(nil, nil), deps.Store)
	}

	s := &Server{
		store:       deps.Store,
		importer:    importer,
		replayer:    deps.Replayer,
		replayLog:   deps.ReplayLog,
		rateLimiter: ratelimit.NewLimiter(deps.RateLimit),
		jwtService:  deps.JWT,
		authHandler: NewAuthHandler(deps.Passwords, deps.JWT),
	}

	requireAdmin := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())
	admin := func(h http.HandlerFunc) http.Handler {
		return requireAdmin(h)
	}

	// Setup router
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /auth/token", s.authHandler.IssueToken)

	// Form endpoints
	mux.Handle("POST /forms/convert", admin(s.handleConvert))
	mux.Handle("GET /forms", admin(s.handleListForms))
	mux.Handle("GET /forms/{id}", admin(s.handleGetForm))
	mux.Handle("DELETE /forms/{id}", admin(s.handleDeleteForm))

	// Submission replay endpoints
	mux.Handle("POST /forms/{id}/submissions", admin(s.handleReplaySubmission))
	mux.Handle("GET /forms/{id}/replays", admin(s.handleListReplays))

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(mux)))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // Replays wait on the legacy endpoint and uploads
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.Close()
	log.Println("Server stopped")
	return nil
}

// Close releases the rate limiter and the database pool.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.db != nil {
		s.db.Close()
	}
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// writeError writes an error JSON response with the status mapped from err.
func writeError(w http.ResponseWriter, err error) {
	body := map[string]string{"error": err.Error()}
	if kind := errorKind(err); kind != "" {
		body["kind"] = kind
	}
	writeJSON(w, HTTPStatus(err), body)
}

// extractClientID uses the IP address from RemoteAddr.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Remaining=%d Reset=%s",
		info.Limit, info.Remaining, info.ResetTime.Format(time.RFC3339))

	writeJSON(w, http.StatusTooManyRequests, response)
}
