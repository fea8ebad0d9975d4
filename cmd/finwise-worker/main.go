package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"finwise/internal/amqp"
	"finwise/internal/cli"
	"finwise/internal/config"
	applog "finwise/internal/log"
	gsheet "finwise/internal/sheets/google"
	"finwise/internal/worker"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code. Everything it opens is closed before it
// returns.
func run() int {
	_ = cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)
	logger.Info("Starting finwise-worker")
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		return 1
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	exporter, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
		RowCacheTTL:     5 * time.Minute,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		return 1
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	w := worker.NewExportWorker(repo, exporter, cfg.ExportBatchSize)

	// Rows written while the worker was down are picked up here.
	if err := w.StartupCheck(ctx); err != nil {
		logger.Error("Startup export check failed", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			return 1
		}
		defer client.Close()

		g.Go(func() error {
			err := client.ConsumeWithRetry(gctx, w.HandleEvent)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled, relying on periodic reconcile only")
	}

	g.Go(func() error {
		return reconcileLoop(gctx, logger, w, cfg.ReconcileInterval)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		return 1
	}
	logger.Info("Worker stopped gracefully")
	return 0
}

func reconcileLoop(ctx context.Context, logger *applog.Logger, w *worker.ExportWorker, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := w.ProcessPending(ctx)
			if err != nil {
				logger.Error("Periodic reconcile failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("Reconciled pending transactions", "exported", n)
			}
		}
	}
}
