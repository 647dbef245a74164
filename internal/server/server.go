// Package server provides the HTTP API over form sessions and the knowledge
// file.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultEventInterval is how often the SSE stream re-queries a session.
const DefaultEventInterval = 2 * time.Second

// Options configures optional server features.
type Options struct {
	// KnowledgePath is read on every knowledge request; the server never
	// writes it.
	KnowledgePath string
	Classifier    Classifier
	// Gatherer, when set, is served at /metrics.
	Gatherer      prometheus.Gatherer
	EventInterval time.Duration
	// SlackChannel is used for sessions started without one.
	SlackChannel string
}

// Server is the HTTP API server.
type Server struct {
	router chi.Router
	client SessionClient
	opts   Options
}

// New creates a new Server. client may be nil, in which case session routes
// answer 503.
func New(client SessionClient, opts Options) *Server {
	if opts.EventInterval <= 0 {
		opts.EventInterval = DefaultEventInterval
	}
	s := &Server{client: client, opts: opts}
	s.router = s.buildRouter()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/api/v1/health", s.handleHealth)

	// Session routes
	r.Group(func(r chi.Router) {
		r.Use(s.requireClient)
		r.Get("/api/v1/sessions", s.handleListSessions)
		r.Post("/api/v1/sessions", s.handleStartSession)
		r.Get("/api/v1/sessions/inbox", s.handleGetInbox)
		r.Route("/api/v1/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Get("/events", s.handleSessionEvents)
			r.Post("/answer", s.handleAnswer)
			r.Post("/cancel", s.handleCancel)
		})
	})

	// Knowledge routes
	r.Post("/api/v1/classify", s.handleClassify)
	r.Get("/api/v1/knowledge/insights", s.handleInsights)
	r.Get("/api/v1/knowledge/thresholds", s.handleThresholds)
	r.Get("/api/v1/knowledge/patterns", s.handlePatterns)

	if s.opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) requireClient(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.client == nil {
			writeError(w, http.StatusServiceUnavailable, "session backend not configured")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
