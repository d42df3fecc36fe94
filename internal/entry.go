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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/awick/atompress/internal/api"
	"github.com/awick/atompress/internal/index"
	"github.com/awick/atompress/internal/service"
	"github.com/awick/atompress/internal/store"
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

	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
		slog.SetDefault(logger)
	}
	now := app.now
	if now == nil {
		now = time.Now
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_dir", cfg.Store.DataDir),
		slog.String("index_variant", cfg.Index.Variant),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize storage.
	st, err := store.New(cfg.Store.DataDir, cfg.Store.MediaDir, cfg.Store.EtagHashLimit)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	// Initialize the configured index variant.
	var idx index.Index
	switch cfg.Index.Variant {
	case IndexVariantSQLite:
		idx, err = index.OpenSQLite(cfg.Index.SQLitePath)
		if err != nil {
			return fmt.Errorf("init index: %w", err)
		}
	default:
		idx = index.NewLinear(st)
	}
	defer idx.Close()

	svc := service.NewWithClock(st, idx, logger, now)

	// Rebuild the projection so a crash between store write and index
	// notification cannot leave them out of step.
	if err := svc.Reindex(ctx); err != nil {
		logger.Warn("initial reindex failed", slog.String("error", err.Error()))
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Mount("/", api.NewRouter(svc, idx, cfg.Store.PageSize, cfg.App.Title))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: router,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Keep the index honest against out-of-band edits to the data dir.
	dataDir, err := filepath.Abs(cfg.Store.DataDir)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	g.Go(func() error {
		if err := index.Watch(gCtx, idx, st, dataDir, logger); err != nil {
			logger.Warn("watcher exited", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
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
