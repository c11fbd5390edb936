package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"feetax/internal/cli"
	"feetax/internal/config"
	"feetax/internal/log"
	"feetax/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap("feetax-worker")

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	if cfg.DataBackend != "sqlite" {
		logger.Warn("The worker only sees records persisted by another process with DATA_BACKEND=sqlite",
			"backend", cfg.DataBackend)
	}

	repo, err := cli.OpenRepository(cfg, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	sheetsClient, err := cli.OpenSheets(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if sheetsClient == nil {
		return errors.New("GOOGLE_SPREADSHEET_ID is required by the worker")
	}

	w := worker.NewSyncWorker(repo, sheetsClient, repo, logger)

	logger.Info("Performing startup sync check...")
	if err := w.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	amqpClient, err := cli.OpenAMQP(cfg, logger)
	if err != nil {
		return err
	}
	if amqpClient != nil {
		defer amqpClient.Close()
		g.Go(func() error {
			err := amqpClient.ConsumeStateChanged(gctx, w.HandleStateChanged)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("Relying on periodic sync only", "interval", cfg.SyncInterval)
	}

	g.Go(func() error { return w.Run(gctx, cfg.SyncInterval) })
	return g.Wait()
}
