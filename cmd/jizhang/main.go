package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"jizhang/internal/backend"
	"jizhang/internal/cache"
	"jizhang/internal/cli"
	"jizhang/internal/config"
	"jizhang/internal/core"
	"jizhang/internal/extraction"
	apphttp "jizhang/internal/http"
	"jizhang/internal/inference"
	"jizhang/internal/log"
	"jizhang/internal/services"
	"jizhang/internal/stats"
)

const (
	recordCacheSize      = 64
	cacheCleanupInterval = time.Minute
	shutdownTimeout      = 30 * time.Second
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(startCtx, backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", log.FieldError, err, "backend", backendCfg.Type)
		os.Exit(1)
	}

	provider, err := inference.New(startCtx, cfg.Inference())
	if err != nil {
		logger.Error("Failed to create inference provider", log.FieldError, err, "provider", cfg.InferenceProvider)
		_ = res.Cleanup()
		os.Exit(1)
	}
	pipeline := extraction.New(provider)

	cacheManager := cache.NewManager(func(removed int) {
		logger.WithComponent(log.ComponentCache).Debug("Cache cleanup completed", "entries_removed", removed)
	})
	chatOpts := []services.ChatOption{
		services.WithHistoryLimit(cfg.ChatHistoryLimit),
		services.WithLogger(logger),
	}

	// A zero TTL disables the statistics cache.
	var summaries stats.SummaryReader = stats.NewAggregator(res.Store)
	if cfg.StatsCacheTTL > 0 {
		records := cache.NewLRUCache[[]core.ExpenseRecord](recordCacheSize, cfg.StatsCacheTTL)
		cacheManager.Register(records)
		cacheManager.StartCleanup(cacheCleanupInterval)
		cached := stats.NewCachedAggregator(res.Store, records)
		chatOpts = append(chatOpts, services.WithInvalidator(cached))
		summaries = cached
	}
	if res.Publisher != nil {
		chatOpts = append(chatOpts, services.WithPublisher(res.Publisher))
	}
	chat := services.NewChatService(res.Store, pipeline, chatOpts...)
	statistics := services.NewStatisticsService(summaries, res.Store, cfg.ChartOptions(), time.Now, logger)

	srv := apphttp.NewServer(":"+cfg.Port, chat, statistics, res.Store, logger, apphttp.Options{})

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cacheManager.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	go func() {
		logger.Info("Starting jizhang server",
			"port", cfg.Port,
			"backend", backendCfg.Type,
			"provider", cfg.InferenceProvider,
			"model", cfg.InferenceModel,
			"events", res.Publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
