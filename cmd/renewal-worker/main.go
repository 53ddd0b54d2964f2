package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mamaboss/internal/cli"
	"mamaboss/internal/log"
	"mamaboss/internal/metrics"
)

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger("info", false)
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg.LogLevel, cfg.IsProduction()).WithComponent(log.ComponentWorker)
	logger.Info("Starting renewal-worker", "interval", cfg.RenewalInterval, log.FieldOperation, log.OpStartup)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res := cli.OpenStore(ctx, logger, cfg)
	defer func() {
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Warn("Storage close error", log.FieldError, err)
			}
		}
	}()

	deps := cli.NewDeps(cfg, logger, res.Store, metrics.New())
	modules, err := cli.NewModules(cfg, deps, cli.NewPaymentGateway(cfg, logger), nil)
	if err != nil {
		logger.Error("Failed to initialize services", log.FieldError, err)
		os.Exit(1)
	}

	loc := cfg.Location()
	run := func() {
		runCtx, cancel := context.WithTimeout(ctx, cfg.RenewalInterval)
		defer cancel()
		report, err := modules.Renewals.ProcessDue(runCtx, time.Now().In(loc))
		if err != nil {
			logger.Error("Renewal run failed", log.FieldError, err)
			return
		}
		if report.Failed > 0 {
			logger.Warn("Renewal run finished with failures", "failed", report.Failed)
		}
	}

	// Catch up on anything that fell due while the worker was down.
	run()

	ticker := time.NewTicker(cfg.RenewalInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
			return
		case <-ticker.C:
			run()
		}
	}
}
