package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/icco/kodflex/handlers"
	"github.com/icco/kodflex/lib/catalog"
	"github.com/icco/kodflex/lib/config"
	"github.com/icco/kodflex/lib/db"
	"github.com/icco/kodflex/lib/health"
	"github.com/icco/kodflex/lib/metrics"
	"github.com/icco/kodflex/lib/session"
	"github.com/icco/kodflex/lib/tmdb"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})))
	logger := slog.Default()

	metrics.Init()

	logger.Info("Opening user directory", slog.String("path", cfg.DBPath))
	gormDB, err := db.Open(cfg.DBPath, logger)
	if err != nil {
		logger.Error("Failed to open database", slog.Any("error", err))
		os.Exit(1)
	}

	tmdbClient := tmdb.NewClient(cfg.TMDBAPIKey, logger,
		tmdb.WithBaseURL(cfg.TMDBBaseURL),
		tmdb.WithImageHost(cfg.TMDBImageHost),
	)

	policy := catalog.PolicyAllOrNothing
	if cfg.CatalogPartial {
		policy = catalog.PolicyPerCategory
	}
	sessions := session.NewManager(gormDB, logger, func() *catalog.Aggregator {
		return catalog.NewAggregator(tmdbClient, catalog.NewStore(), logger, policy)
	})

	router, err := handlers.NewRouter(handlers.Deps{
		Catalog:       tmdbClient,
		Sessions:      sessions,
		SearchLimiter: rate.NewLimiter(rate.Limit(cfg.SearchRateLimit), cfg.SearchRateBurst),
		Extra: map[string]http.Handler{
			"/health":  health.Check(gormDB, cfg.TMDBAPIKey != ""),
			"/metrics": promhttp.Handler(),
		},
	})
	if err != nil {
		logger.Error("Failed to build router", slog.Any("error", err))
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Starting server", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down cleanly", slog.Any("error", err))
	}

	if sqlDB, err := gormDB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("Failed to close database", slog.Any("error", err))
		}
	}
}
