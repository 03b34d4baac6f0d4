// Package main provides the entry point for the metadata aggregation
// service HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scholarmeta/metadata-service/internal/aggregator"
	"github.com/scholarmeta/metadata-service/internal/cache"
	"github.com/scholarmeta/metadata-service/internal/config"
	"github.com/scholarmeta/metadata-service/internal/observability"
	"github.com/scholarmeta/metadata-service/internal/papersources"
	"github.com/scholarmeta/metadata-service/internal/papersources/crossref"
	"github.com/scholarmeta/metadata-service/internal/papersources/openalex"
	httpserver "github.com/scholarmeta/metadata-service/internal/server/http"
	"github.com/scholarmeta/metadata-service/internal/service"
)

const metricsNamespace = "metasvc"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	logger.Info().Msg("metadata-service starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics(metricsNamespace)

	// Connect to Redis if caching is enabled. An unreachable server is
	// non-fatal; the gate degrades every operation to a miss.
	var store cache.Store
	if cfg.Cache.Enabled {
		redisStore := cache.NewRedisStore(cache.RedisConfig{
			Address:  cfg.Cache.Address,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		defer redisStore.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisStore.Ping(pingCtx); err != nil {
			logger.Warn().Err(err).Str("address", cfg.Cache.Address).
				Msg("redis unreachable, cache will degrade to misses")
		} else {
			logger.Info().Str("address", cfg.Cache.Address).Msg("redis connection established")
		}
		cancel()

		store = redisStore
	} else {
		logger.Info().Msg("cache disabled")
	}
	gate := cache.NewGate(store, logger, metrics)

	// Construct the registry clients in merge order.
	sources := []papersources.PaperSource{
		openalex.New(openalex.Config{
			BaseURL:    cfg.Sources.OpenAlex.BaseURL,
			Email:      cfg.Sources.OpenAlex.Mailto,
			Timeout:    cfg.Sources.OpenAlex.Timeout,
			RateLimit:  cfg.Sources.OpenAlex.RateLimit,
			BurstSize:  cfg.Sources.OpenAlex.BurstSize,
			MaxResults: cfg.Sources.OpenAlex.MaxResults,
			Enabled:    cfg.Sources.OpenAlex.Enabled,
		}),
		crossref.New(crossref.Config{
			BaseURL:    cfg.Sources.CrossRef.BaseURL,
			Email:      cfg.Sources.CrossRef.Mailto,
			Timeout:    cfg.Sources.CrossRef.Timeout,
			RateLimit:  cfg.Sources.CrossRef.RateLimit,
			BurstSize:  cfg.Sources.CrossRef.BurstSize,
			MaxResults: cfg.Sources.CrossRef.MaxResults,
			Enabled:    cfg.Sources.CrossRef.Enabled,
		}),
	}

	agg := aggregator.New(sources, logger, metrics)
	svc := service.New(agg, gate, service.TTLConfig{
		Search: cfg.Cache.SearchTTL,
		Trends: cfg.Cache.TrendsTTL,
		Lookup: cfg.Cache.LookupTTL,
	}, logger, metrics)

	httpSrv := httpserver.NewServer(httpserver.Config{
		Address:         cfg.Server.Address(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsPath:     cfg.Metrics.Path,
	}, svc, gate, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	logger.Info().Str("address", cfg.Server.Address()).Msg("metadata-service is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logger.Info().Msg("metadata-service stopped")
	return nil
}
