// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/muninn/internal/api"
	"github.com/starford/muninn/internal/cache"
	"github.com/starford/muninn/internal/mcpserver"
	"github.com/starford/muninn/internal/remote"
	"github.com/starford/muninn/internal/sse"
	"github.com/starford/muninn/internal/stats"
	"github.com/starford/muninn/internal/syncer"
	pkgconfig "github.com/starford/muninn/pkg/config"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logging on stderr: stdout carries the
	// MCP stdio transport. The level lives in a LevelVar so the config
	// watcher can adjust it at runtime.
	level := new(slog.LevelVar)
	level.Set(cfg.App.LogLevel)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.Bool("offline", cfg.Remote.Offline),
		slog.Bool("http_enabled", cfg.HTTP.Enabled),
		slog.String("http_listen", cfg.HTTP.Listen),
		slog.Duration("sync_interval", cfg.Sync.Interval()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Select the remote note store client.
	client := app.client
	if client == nil {
		if cfg.Remote.Offline {
			logger.Info("Running offline against the in-memory note store")
			client = remote.NewMemStore()
		} else {
			var err error
			client, err = remote.NewHTTPClient(cfg.Remote.BaseURL, cfg.Remote.Token, cfg.Remote.Timeout(), logger)
			if err != nil {
				return fmt.Errorf("init remote client: %w", err)
			}
		}
	}

	collector := stats.NewCollector()

	// Build the note cache and load the replica. A failed initial load is
	// not fatal: the synchronizer keeps retrying, and reads report the
	// not-ready state until it heals.
	noteCache := cache.New(client, logger, cache.Options{
		DefaultPageSize:  cfg.Cache.DefaultPageSize,
		MaxResults:       cfg.Cache.MaxResults,
		InitTimeout:      cfg.Cache.InitTimeout(),
		RebuildThreshold: cfg.Sync.RebuildThreshold,
	})
	if err := noteCache.Initialize(ctx); err != nil {
		logger.Warn("initial cache load failed", slog.String("error", err.Error()))
	}

	// SSE broker: streams cache activity to monitoring clients.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	sync := syncer.New(noteCache, logger, syncer.Options{
		Interval:    cfg.Sync.Interval(),
		MinInterval: cfg.Sync.MinimumInterval(),
		OnResult: func(notes int, err error) {
			collector.SyncResult(notes, err)
			broker.PublishSyncResult(notes, err)
		},
	})

	mcpSrv := mcpserver.New(client, noteCache, collector, mcpserver.Options{
		TitleMaxLength:   cfg.Notes.TitleMaxLength,
		SnippetMaxLength: cfg.Notes.SnippetMaxLength,
		OnNoteEvent:      broker.PublishNoteEvent,
	})

	// A shutdown signal, a closed MCP transport, or a failed worker each
	// stop the whole group.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// MCP server on stdio. The daemon follows the transport's lifetime:
	// when the client closes stdin, everything else winds down.
	g.Go(func() error {
		defer cancel()
		logger.Info("MCP server listening on stdio")
		if err := mcpSrv.Listen(gCtx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP server error: %w", err)
		}
		logger.Info("MCP server stopped")
		return nil
	})

	// Background synchronizer.
	g.Go(func() error {
		return sync.Run(gCtx)
	})

	// Config watcher: applies log level and sync interval changes without
	// a restart.
	if app.configFile != "" {
		configFile := app.configFile
		g.Go(func() error {
			return pkgconfig.Watch(gCtx, configFile, logger, func(next *Config) {
				level.Set(next.App.LogLevel)
				sync.SetInterval(next.Sync.Interval())
			})
		})
	}

	// Read-only HTTP API.
	var httpServer *http.Server
	if cfg.HTTP.Enabled {
		handler := api.NewHandler(noteCache, collector, api.Options{
			TitleMaxLength:   cfg.Notes.TitleMaxLength,
			SnippetMaxLength: cfg.Notes.SnippetMaxLength,
		})
		router := api.NewRouter(handler, cfg.HTTP.Auth.Enabled, cfg.HTTP.Auth.Token, broker)

		httpServer = &http.Server{
			Addr:    cfg.HTTP.Listen,
			Handler: router,
		}
		g.Go(func() error {
			logger.Info("Starting HTTP server", slog.String("address", cfg.HTTP.Listen))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
	}

	// Handle shutdown.
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down server...")

		if httpServer != nil {
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelShutdown()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
