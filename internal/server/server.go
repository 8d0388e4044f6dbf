// Package server exposes the control API and the live event stream.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"FeedWatcher/internal/events"
	"FeedWatcher/internal/infrastructure/stats"
	"FeedWatcher/internal/infrastructure/storage"
	"FeedWatcher/internal/pattern"
	"FeedWatcher/internal/pipeline"
	"FeedWatcher/internal/ports"
)

// Server wires the HTTP handlers to the pipeline and its registries.
type Server struct {
	pipeline   *pipeline.Pipeline
	patterns   *pattern.Registry
	sources    *pipeline.SourceRegistry
	store      *storage.SQLiteStore
	stats      *stats.Sink
	bus        *events.Bus
	notifier   ports.Notifier
	webhookURL string
	logger     *slog.Logger

	httpServer *http.Server
}

// Deps lists the collaborators a Server needs. store may be nil when
// persistence is disabled.
type Deps struct {
	Pipeline   *pipeline.Pipeline
	Patterns   *pattern.Registry
	Sources    *pipeline.SourceRegistry
	Store      *storage.SQLiteStore
	Stats      *stats.Sink
	Bus        *events.Bus
	Notifier   ports.Notifier
	WebhookURL string
	Logger     *slog.Logger
}

// New builds the server and its route table.
func New(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		pipeline:   deps.Pipeline,
		patterns:   deps.Patterns,
		sources:    deps.Sources,
		store:      deps.Store,
		stats:      deps.Stats,
		bus:        deps.Bus,
		notifier:   deps.Notifier,
		webhookURL: deps.WebhookURL,
		logger:     logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /scan-source", s.handleScanSource)
	mux.HandleFunc("POST /scan-all-sources", s.handleScanAllSources)
	mux.HandleFunc("POST /pause-scan", s.handlePauseScan)
	mux.HandleFunc("POST /resume-scan", s.handleResumeScan)
	mux.HandleFunc("POST /cancel-scan", s.handleCancelScan)
	mux.HandleFunc("POST /resume-operations", s.handleResumeOperations)
	mux.HandleFunc("GET /patterns", s.handleGetPatterns)
	mux.HandleFunc("POST /patterns", s.handleSetPatterns)
	mux.HandleFunc("POST /validate-regex", s.handleValidateRegex)
	mux.HandleFunc("GET /api-sources", s.handleGetSources)
	mux.HandleFunc("POST /api-sources", s.handleSetSources)
	mux.HandleFunc("GET /api-source-templates", s.handleSourceTemplates)
	mux.HandleFunc("GET /stream", s.handleStream)
	mux.HandleFunc("GET /matches", s.handleMatches)
	mux.HandleFunc("POST /send-to-slack", s.handleSendToSlack)
	mux.HandleFunc("GET /analytics/daily-stats", s.handleDailyStats)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
