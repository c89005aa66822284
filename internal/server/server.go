// Package server provides the HTTP API for the assist service.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/notely/assist/internal/broadcast"
	"github.com/notely/assist/internal/chat"
	"github.com/notely/assist/internal/config"
	"github.com/notely/assist/internal/export"
	"github.com/notely/assist/internal/knowledge"
	"github.com/notely/assist/internal/querylog"
)

// Server is the HTTP server for the assist API.
type Server struct {
	knowledge   *knowledge.Store
	chat        *chat.Orchestrator
	log         *querylog.Log
	broadcaster *broadcast.Broadcaster
	exporter    *export.Streamer
	config      *config.ServerConfig
	logger      *zap.Logger
	server      *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	ks *knowledge.Store,
	orchestrator *chat.Orchestrator,
	log *querylog.Log,
	broadcaster *broadcast.Broadcaster,
	exporter *export.Streamer,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		knowledge:   ks,
		chat:        orchestrator,
		log:         log,
		broadcaster: broadcaster,
		exporter:    exporter,
		config:      cfg,
		logger:      logger,
	}
}

// Router builds the HTTP routes. Streaming endpoints (SSE, CSV export) sit
// outside the timeout middleware so long-lived responses are not cut off.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(middleware.Compress(5))

		r.Post("/chat", s.handleChat)
		r.Post("/rag/upload", s.handleUpload)
		r.Get("/rag/docs", s.handleListDocs)
		r.Get("/rag/docs/{id}", s.handleGetDoc)
		r.Get("/analytics/query", s.handleAnalyticsQuery)
		r.Get("/analytics/top-queries", s.handleTopQueries)
		r.Get("/analytics/intents", s.handleIntents)
		r.Get("/analytics/hourly", s.handleHourly)
		r.Get("/health", s.handleHealth)
	})

	r.Get("/analytics/stream", s.handleStream)
	r.Get("/analytics/export", s.handleExport)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
