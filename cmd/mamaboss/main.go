package main

import (
	"context"
	"errors"
	"os"
	"time"

	"mamaboss/internal/amqp"
	"mamaboss/internal/auth"
	"mamaboss/internal/cache"
	"mamaboss/internal/cli"
	apphttp "mamaboss/internal/http"
	"mamaboss/internal/log"
	"mamaboss/internal/metrics"
	"mamaboss/internal/services"
	"mamaboss/internal/storage"
	"mamaboss/internal/storage/file"
	"mamaboss/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger("info", false)
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg.LogLevel, cfg.IsProduction())
	logger.Info("Starting mamaboss", "environment", cfg.Environment, log.FieldOperation, log.OpStartup)

	ctx := context.Background()
	res := cli.OpenStore(ctx, logger, cfg)
	m := metrics.New()
	deps := cli.NewDeps(cfg, logger, res.Store, m)
	gateway := cli.NewPaymentGateway(cfg, logger)

	// With a broker, finance exports and payment notifications are queued for
	// mamaboss-worker. Without one they run in this process.
	var (
		amqpClient  *amqp.Client
		financeSync services.FinanceSyncPublisher
		syncProc    *services.SyncProcessor
	)
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		financeSync = amqpClient
		logger.Info("AMQP enabled, background jobs go to mamaboss-worker", "queue", cfg.AMQPQueue)
	} else {
		writer, err := cli.NewFinanceWriter(ctx, cfg, logger)
		if err != nil {
			logger.Error("Failed to initialize finance export", log.FieldError, err)
			os.Exit(1)
		}
		syncProc = services.NewSyncProcessor(deps, services.NewFinanceExporter(deps, writer), services.DefaultSyncProcessorConfig())
		financeSync = syncProc
		logger.Info("AMQP disabled, background jobs run in-process")
	}

	modules, err := cli.NewModules(cfg, deps, gateway, financeSync)
	if err != nil {
		logger.Error("Failed to initialize services", log.FieldError, err)
		os.Exit(1)
	}

	authSvc, err := cli.NewAuth(ctx, cfg, logger, res.Store)
	if err != nil {
		logger.Error("Failed to initialize auth", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.SeedDemoAccount {
		if err := authSvc.SeedDemo(ctx); err != nil {
			logger.Error("Failed to seed demo account", log.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Demo account available", "email", auth.DemoEmail)
	}

	var notifier apphttp.PaymentNotifier
	if amqpClient != nil {
		notifier = amqpClient
	} else {
		jobs := worker.NewJobWorker(nil, modules.Subscriptions, logger, m)
		notifier = apphttp.PaymentNotifierFunc(jobs.HandlePaymentNotification)
	}

	caches := cache.NewManager(logger)
	caches.Register("dashboard", modules.Dashboard.Cache())
	caches.StartCleanup(time.Minute)

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		LogLevel:           cfg.LogLevel,
		Logger:             logger,
		Metrics:            m,
		Location:           cfg.Location(),
		Ready: func(ctx context.Context) error {
			_, err := res.Store.Keys(ctx, storage.GlobalScope)
			return err
		},
	}, authSvc, modules, notifier)

	bgCtx, stopBackground := context.WithCancel(ctx)
	if syncProc != nil {
		if err := syncProc.Start(bgCtx); err != nil {
			logger.Error("Failed to start finance export", log.FieldError, err)
			os.Exit(1)
		}
	}
	if cfg.WatchDataDir {
		watchDataDir(bgCtx, cfg.DataDir, logger, deps.Changes)
	}

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()

		if err := srv.Shutdown(drainCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if syncProc != nil {
			if err := syncProc.Stop(drainCtx); err != nil {
				logger.Warn("Finance export did not stop cleanly", log.FieldError, err)
			}
		}
		stopBackground()
		caches.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Warn("Storage close error", log.FieldError, err)
			}
		}
	})

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}

// watchDataDir invalidates cached views when another process edits the
// file store.
func watchDataDir(ctx context.Context, dir string, logger *log.Logger, changes *services.Notifier) {
	w, err := file.NewWatcher(dir, 0, logger.Logger)
	if err != nil {
		logger.Warn("Data directory watcher unavailable", log.FieldError, err)
		return
	}
	go func() {
		err := w.Run(ctx, func(ch file.Change) {
			logger.Debug("Document changed on disk", "scope", ch.Scope, "key", ch.Key)
			if ch.Scope != storage.GlobalScope {
				changes.Notify(ch.Scope)
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("Data directory watcher stopped", log.FieldError, err)
		}
	}()
	logger.Info("Watching data directory for changes", "dir", dir)
}
