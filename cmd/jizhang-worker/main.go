package main

import (
	"context"
	"errors"
	"os"
	"time"

	"jizhang/internal/amqp"
	"jizhang/internal/cli"
	"jizhang/internal/config"
	"jizhang/internal/log"
	"jizhang/internal/sheets"
	gsheet "jizhang/internal/sheets/google"
	sheetsmem "jizhang/internal/sheets/memory"
	"jizhang/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	logger.Info("Starting jizhang-worker")

	mirror, err := newMirror(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	mirrorWorker := worker.NewMirrorWorker(mirror, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Error("AMQP close error", log.FieldError, err)
		}
		st := mirrorWorker.Stats()
		logger.Info("Worker totals", "appended", st.Appended, "removed", st.Removed, "failed", st.Failed)
	})

	go func() {
		err := amqpClient.ConsumeExpenseEvents(ctx, mirrorWorker.HandleEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}

// newMirror returns the Google Sheets mirror, or an in-memory one when no
// spreadsheet is configured.
func newMirror(cfg *config.Config, logger *log.Logger) (sheets.Mirror, error) {
	if cfg.GoogleSpreadsheetID == "" {
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, mirroring to memory only")
		return sheetsmem.New(), nil
	}

	client, err := gsheet.New(context.Background(), gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}
