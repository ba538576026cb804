package main

import (
	"context"
	"errors"
	"os"
	"time"

	"impegni/internal/amqp"
	"impegni/internal/cli"
	"impegni/internal/log"
)

// impegni-worker consumes commitment events and mirrors the affected
// months into the configured spreadsheet.
func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)

	logger.Info("Starting impegni-worker")

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required to run the worker")
		os.Exit(1)
	}
	if !cfg.SheetsEnabled() {
		logger.Warn("Google Sheets disabled - exported rows are kept in memory only")
	}

	res, err := cli.InitBackend(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	b := res.Backend
	if b.Events == nil {
		res.Cleanup()
		logger.Error("AMQP client unavailable, cannot consume events")
		os.Exit(1)
	}

	cleanup := func() {
		if err := res.Cleanup(); err != nil {
			logger.Warn("Cleanup failed", log.FieldError, err)
		}
	}
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, cleanup)

	err = b.Events.Consume(ctx, func(e *amqp.CommitmentEvent) error {
		if err := b.Export.HandleEvent(ctx, e); err != nil {
			logger.WithFields(log.NewFields().
				WithOperation(log.OpExport).
				WithOwner(e.Owner).
				WithError(err)).
				Warn("Export failed, event will be requeued", "type", e.Type, "period", e.Period)
			return err
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event consumption failed", log.FieldError, err)
		cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
