package main

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"feetax/internal/amqp"
	"feetax/internal/cache"
	"feetax/internal/cli"
	"feetax/internal/config"
	apphttp "feetax/internal/http"
	"feetax/internal/log"
	"feetax/internal/metrics"
	"feetax/internal/middleware/ratelimit"
	"feetax/internal/services"
	"feetax/internal/sheets"
	"feetax/internal/store"
	"feetax/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap("feetax")

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	repo, err := cli.OpenRepository(cfg, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	m := metrics.New()
	summaries := cache.NewSummaries(32, 10*time.Minute)

	st := store.New(
		store.WithPersister(repo),
		store.WithBucketing(cfg.Bucketing()),
		store.WithLogger(logger),
	)
	if err := st.Load(ctx); err != nil {
		return err
	}
	st.Subscribe(summaries)
	st.Subscribe(m)

	g, gctx := errgroup.WithContext(ctx)

	sheetsClient, err := cli.OpenSheets(ctx, cfg, logger)
	if err != nil {
		return err
	}
	var source sheets.RowReader
	if sheetsClient != nil {
		source = sheetsClient
	}

	amqpClient, err := cli.OpenAMQP(cfg, logger)
	if err != nil {
		// the store works without events; the worker's periodic pass catches up
		logger.Warn("Continuing without state-change events", log.FieldError, err)
	}
	switch {
	case amqpClient != nil:
		defer amqpClient.Close()
		st.Subscribe(amqp.NewNotifier(amqpClient, logger))
	case sheetsClient != nil:
		w := worker.NewSyncWorker(repo, sheetsClient, repo, logger)
		w.SetObserver(m)
		st.Subscribe(w)
		g.Go(func() error { return w.Run(gctx, cfg.SyncInterval) })
		logger.Info("Exporting to Google Sheets in-process")
	}

	limiter := ratelimit.NewLimiter(ratelimit.DefaultConfig())
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Service:        services.NewFeeService(st, source, summaries, logger),
		Logger:         logger,
		Metrics:        m,
		Limiter:        limiter,
		Ready:          repo.Ping,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return limiter.Run(gctx) })
	g.Go(func() error { return cache.NewJanitor(logger, summaries).Run(gctx, 10*time.Minute) })
	return g.Wait()
}
