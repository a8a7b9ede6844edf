package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"taxdash/internal/backend"
	"taxdash/internal/cli"
	applog "taxdash/internal/log"
	"taxdash/internal/sheets"
	gsheet "taxdash/internal/sheets/google"
	memsheet "taxdash/internal/sheets/memory"
	"taxdash/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting taxdash-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.DataBackend == string(backend.MemoryBackend) {
		logger.Warn("Memory backend is private to this process; only seeded forms will be exported")
	}

	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), cfg.Backend())
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	var writer sheets.ReportWriter
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(context.Background(), gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			res.Cleanup()
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = memsheet.New()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, keeping rows in memory")
	}

	// the cache belongs to the web process; read through to the backend
	exporter := worker.NewExportWorker(res.Base, res.Tracker, writer, cfg.ExportBatchSize, logger)

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(context.Context) {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	if res.Publisher != nil {
		g.Go(func() error {
			return res.Publisher.ConsumeReportExports(gctx, exporter.HandleExportMessage)
		})
	} else {
		logger.Info("Skipping AMQP message consumption - no broker configured")
	}
	g.Go(func() error {
		return exporter.Run(gctx, cfg.ExportInterval)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker failed", applog.FieldError, err)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
