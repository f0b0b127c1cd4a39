// Package api exposes the question-answering pipeline over a JSON HTTP API.
//
// Routes:
//
//	POST /api/v1/ask    — run the pipeline for one question
//	GET  /api/v1/stats  — knowledge base document counts
//	GET  /healthz       — liveness probe
//
// Handlers depend on narrow interfaces so tests can substitute fakes without
// a database or a model behind them.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/techmentor-ai/techmentor/internal/knowledge"
	"github.com/techmentor-ai/techmentor/internal/rag"
)

// Answerer runs the question-answering pipeline.
type Answerer interface {
	Answer(ctx context.Context, question string) *rag.Response
}

// StatsProvider reports knowledge base document counts.
type StatsProvider interface {
	Stats(ctx context.Context) (*knowledge.Stats, error)
}

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger    *slog.Logger
	Generator Answerer      // Required
	Knowledge StatsProvider // Optional: nil disables /api/v1/stats
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Generator == nil {
		return nil, errors.New("generator is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	ah := &askHandler{generator: cfg.Generator, logger: logger}
	mux.HandleFunc("POST /api/v1/ask", ah.ask)

	if cfg.Knowledge != nil {
		sh := &statsHandler{knowledge: cfg.Knowledge, logger: logger}
		mux.HandleFunc("GET /api/v1/stats", sh.getStats)
	}

	// Middleware stack (outermost first): Recovery → RequestID → Logging.
	// RequestID must be before Logging so request_id is available in log attributes.
	var handler http.Handler = mux
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probe bypasses the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /healthz", health)
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// health is a simple liveness endpoint for container probes.
func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
