package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"taxdash/internal/backend"
	"taxdash/internal/cache"
	"taxdash/internal/cli"
	apphttp "taxdash/internal/http"
	applog "taxdash/internal/log"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), cfg.Backend())
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	caches := cache.NewManager(logger)
	if res.Cache != nil {
		caches.Register(res.Cache)
	}
	caches.StartCleanup(cfg.CacheTTL)

	opts := apphttp.Options{
		Addr:               ":" + cfg.Port,
		Forms:              res.Store,
		CacheStats:         res.CacheStats,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CookieSecure:       cfg.CookieSecure,
	}
	// typed nils would make the optional collaborators look configured
	if res.Publisher != nil {
		opts.Publisher = res.Publisher
	}
	if res.Pinger != nil {
		opts.Pinger = res.Pinger
	}
	srv := apphttp.NewServer(opts)

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		caches.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	var g errgroup.Group
	g.Go(func() error {
		logger.Info("Starting taxdash server", "port", cfg.Port, "backend", cfg.DataBackend,
			"export_events", res.Publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
