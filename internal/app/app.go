// Package app assembles the process: storage, pipeline, control API,
// scheduler, and config hot reload.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/robfig/cron/v3"

	"FeedWatcher/internal/config"
	"FeedWatcher/internal/events"
	"FeedWatcher/internal/infrastructure/feedapi"
	"FeedWatcher/internal/infrastructure/llm"
	"FeedWatcher/internal/infrastructure/stats"
	"FeedWatcher/internal/infrastructure/storage"
	"FeedWatcher/internal/infrastructure/webhook"
	"FeedWatcher/internal/logging"
	"FeedWatcher/internal/pattern"
	"FeedWatcher/internal/pipeline"
	"FeedWatcher/internal/ports"
	"FeedWatcher/internal/server"
	"FeedWatcher/internal/watch"
)

// App owns every long-lived component for one process run.
type App struct {
	cfg        config.Config
	configPath string
	logger     *slog.Logger
}

// New prepares an application from resolved configuration. configPath may
// be empty; hot reload is then disabled.
func New(cfg config.Config, configPath string) *App {
	return &App{
		cfg:        cfg,
		configPath: configPath,
		logger:     logging.New(cfg.Logging.Level),
	}
}

// Run wires the components and serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	cfg := a.cfg
	logger := a.logger
	slog.SetDefault(logger)

	bus := events.NewBus(cfg.Scan.EventBuffer)
	defer func() {
		bus.Close()
		totals := bus.Stats()
		logger.Info("event bus closed", "sent", totals.Sent, "dropped", totals.Dropped)
	}()

	var store *storage.SQLiteStore
	if cfg.Store.Path != "" {
		var err error
		store, err = storage.Open(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("open content store: %w", err)
		}
		defer store.Close()
		logger.Info("content store opened", "path", cfg.Store.Path)
	} else {
		logger.Warn("persistence disabled, cache replay and match listing unavailable")
	}

	var statsDB *sql.DB
	if store != nil {
		statsDB = store.DB()
	}
	sink, err := stats.NewSink(statsDB, bus, logger.With("component", "stats"))
	if err != nil {
		return fmt.Errorf("init stats sink: %w", err)
	}

	patterns := pattern.NewRegistry(logger.With("component", "patterns"))
	patterns.Replace(cfg.Patterns)

	sources := pipeline.NewSourceRegistry()
	sources.Replace(cfg.Sources)
	logger.Info("registries loaded", "sources", len(sources.List()), "patterns", len(patterns.Configs()))

	fetcher := feedapi.NewClient(&http.Client{Timeout: cfg.Scan.FetchTimeout()}, cfg.Scan.GitHubToken)

	var summarizer ports.Summarizer
	if cfg.Chat.APIKey != "" {
		summarizer = llm.NewSummaryClient(cfg.Chat)
	} else {
		logger.Warn("chat api key missing, summaries will report a configuration error")
	}
	var embedder ports.Embedder
	if cfg.Embedding.APIKey != "" {
		embedder = llm.NewEmbeddingClient(cfg.Embedding)
	}

	var contentStore ports.ContentStore
	if store != nil {
		contentStore = store
	}

	pipe := pipeline.New(pipeline.Deps{
		Fetcher:      fetcher,
		Patterns:     patterns,
		Sources:      sources,
		Store:        contentStore,
		Summarizer:   summarizer,
		Embedder:     embedder,
		Events:       bus,
		Stats:        sink,
		Logger:       logger,
		PagesPerScan: cfg.Scan.PagesPerScan,
		FastWorkers:  cfg.Scan.FastWorkers,
		AIWorkers:    cfg.Scan.AIWorkers,
		QueueSize:    cfg.Scan.QueueSize,
	})
	defer pipe.Close()

	if cfg.Scheduler.CronExpression != "" {
		scheduler := cron.New()
		_, err := scheduler.AddFunc(cfg.Scheduler.CronExpression, func() {
			var names []string
			for _, src := range sources.List() {
				names = append(names, src.Name)
			}
			if count, err := pipe.ScanAll(names); err != nil {
				logger.Warn("scheduled scan skipped", "error", err)
			} else {
				logger.Info("scheduled scan started", "sources", count)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression %q: %w", cfg.Scheduler.CronExpression, err)
		}
		scheduler.Start()
		defer scheduler.Stop()
		logger.Info("scheduler enabled", "cron", cfg.Scheduler.CronExpression)
	}

	if a.configPath != "" {
		watcher, err := watch.New(a.configPath, func(next config.Config) {
			accepted := patterns.Replace(next.Patterns)
			loaded := sources.Replace(next.Sources)
			logger.Info("hot reload applied", "patterns", accepted, "sources", loaded)
		}, logger.With("component", "watch"))
		if err != nil {
			logger.Error("config watcher unavailable", "error", err)
		} else {
			go func() {
				if err := watcher.Run(ctx); err != nil {
					logger.Error("config watcher stopped", "error", err)
				}
			}()
		}
	}

	srv := server.New(cfg.Server.Addr, server.Deps{
		Pipeline:   pipe,
		Patterns:   patterns,
		Sources:    sources,
		Store:      store,
		Stats:      sink,
		Bus:        bus,
		Notifier:   webhook.NewSlackNotifier(),
		WebhookURL: cfg.Webhook.SlackURL,
		Logger:     logger.With("component", "server"),
	})
	return srv.Run(ctx)
}
