// Command spender-worker consumes transaction events, refreshes the
// affected month summaries and optionally mirrors transactions to a
// Google Sheets ledger.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"spender/internal/backend"
	"spender/internal/cli"
	"spender/internal/config"
	"spender/internal/log"
	"spender/internal/sheets"
	sheetsgoogle "spender/internal/sheets/google"
	"spender/internal/worker"
)

const statsInterval = 5 * time.Minute

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg, log.ComponentAMQP)

	ctx, stop := cli.SignalContext()
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker exited with error", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	if backendCfg.Type == backend.MemoryBackend {
		return errors.New("the worker needs a shared database; memory backend is not supported")
	}
	if backendCfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required for the worker")
	}

	result, err := backend.NewFactory(logger.With(log.FieldComponent, log.ComponentBackend).Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Failed to close backend", log.FieldError, err.Error())
			}
		}
	}()
	if result.Events == nil {
		return errors.New("AMQP broker unreachable")
	}

	ledger, err := newLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	summaries := worker.NewSummaryWorker(result.Backend, ledger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting spender-worker", "queue", backendCfg.AMQPQueue)
		return result.Events.ConsumeTransactionEvents(gctx, summaries.HandleTransactionEvent)
	})
	g.Go(func() error {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				pruned := summaries.Prune()
				processed, dropped, exported := summaries.Stats()
				logger.Info("Worker stats",
					"processed", processed,
					"dropped", dropped,
					"exported", exported,
					"pruned", pruned)
			}
		}
	})
	return g.Wait()
}

// newLedger returns nil when no spreadsheet is configured.
func newLedger(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.LedgerWriter, error) {
	if cfg.SheetsSpreadsheetID == "" {
		logger.Info("Spreadsheet ledger disabled")
		return nil, nil
	}
	client, err := sheetsgoogle.New(ctx, sheetsgoogle.Options{
		SpreadsheetID:   cfg.SheetsSpreadsheetID,
		LedgerName:      cfg.SheetsLedgerName,
		CredentialsJSON: []byte(cfg.GoogleServiceAccountJSON),
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Spreadsheet ledger enabled", "sheet", cfg.SheetsLedgerName)
	return client, nil
}
