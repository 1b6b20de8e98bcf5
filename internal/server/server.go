// Package server provides the HTTP API for the review pipeline.
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

	"github.com/jonathan/code-reviewer/internal/artifact"
	"github.com/jonathan/code-reviewer/internal/db"
	"github.com/jonathan/code-reviewer/internal/pipeline"
	"github.com/jonathan/code-reviewer/internal/server/middleware"
	"github.com/jonathan/code-reviewer/internal/server/ratelimit"
)

// Ledger is the part of the run ledger the API uses. *db.DB implements it.
type Ledger interface {
	pipeline.Recorder
	GetRun(ctx context.Context, runID uuid.UUID) (*db.Run, error)
	ListRuns(ctx context.Context, filters db.RunFilters) ([]db.Run, error)
	Close()
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	stages      []pipeline.Stage
	persisted   *int
	postProcess func(string) string
	store       *artifact.FileStore
	ledger      Ledger
	rateLimiter *ratelimit.Limiter
}

// Config holds server configuration
type Config struct {
	Port           int
	Stages         []pipeline.Stage
	PersistedStage *int                // nil keeps the controller default
	PostProcess    func(string) string // applied to the persisted text
	Store          *artifact.FileStore // nil disables persist requests
	Ledger         Ledger              // nil disables the /runs endpoints
	APIToken       string              // when set, review and ledger routes require it
	RateLimit      *ratelimit.Config   // nil loads from the environment
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	s := &Server{
		stages:      cfg.Stages,
		persisted:   cfg.PersistedStage,
		postProcess: cfg.PostProcess,
		store:       cfg.Store,
		ledger:      cfg.Ledger,
	}

	// Fail at startup on a bad stage configuration rather than per request
	if _, err := s.newController(nil); err != nil {
		return nil, fmt.Errorf("invalid pipeline configuration: %w", err)
	}

	rl := cfg.RateLimit
	if rl == nil {
		rl = ratelimit.LoadConfig()
	}
	s.rateLimiter = ratelimit.NewLimiter(rl)

	protected := middleware.BearerToken(cfg.APIToken)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("POST /review", protected(http.HandlerFunc(s.handleReview)))
	mux.Handle("POST /review/stream", protected(http.HandlerFunc(s.handleReviewStream)))
	mux.Handle("GET /runs", protected(http.HandlerFunc(s.handleListRuns)))
	mux.Handle("GET /runs/{id}", protected(http.HandlerFunc(s.handleGetRun)))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      middleware.RequestID(s.withRateLimit(s.withLogging(s.withCORS(mux)))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 45 * time.Minute, // four sequential model calls
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// newController builds a controller for one request. Controllers are cheap and
// hold the per-request observer.
func (s *Server) newController(obs pipeline.Observer) (*pipeline.Controller, error) {
	opts := []pipeline.Option{pipeline.WithObserver(obs)}
	if s.persisted != nil {
		opts = append(opts, pipeline.WithPersistedStage(*s.persisted))
	}
	if s.postProcess != nil {
		opts = append(opts, pipeline.WithPostProcess(s.postProcess))
	}
	if s.ledger != nil {
		opts = append(opts, pipeline.WithRecorder(s.ledger))
	}
	return pipeline.NewController(s.stages, opts...)
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

// Close releases the rate limiter and the ledger
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.ledger != nil {
		s.ledger.Close()
	}
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
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
		reqID, _ := middleware.GetRequestID(r)
		log.Printf("[%s] %s %s (%s)", r.Method, r.URL.Path, r.RemoteAddr, reqID)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v (%s)", r.Method, r.URL.Path, time.Since(start), reqID)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	roles := make([]string, 0, len(s.stages))
	for _, st := range s.stages {
		roles = append(roles, string(st.Role))
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status": "ok",
		"stages": roles,
		"ledger": s.ledger != nil,
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
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
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}

	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds())
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
	}

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Remaining=%d", info.Limit, info.Remaining)

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
