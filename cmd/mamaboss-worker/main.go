package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"mamaboss/internal/amqp"
	"mamaboss/internal/cli"
	"mamaboss/internal/log"
	"mamaboss/internal/metrics"
	"mamaboss/internal/services"
	"mamaboss/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger("info", false)
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg.LogLevel, cfg.IsProduction()).WithComponent(log.ComponentWorker)
	logger.Info("Starting mamaboss-worker", log.FieldOperation, log.OpStartup)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for mamaboss-worker")
		os.Exit(1)
	}

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

	m := metrics.New()
	deps := cli.NewDeps(cfg, logger, res.Store, m)
	modules, err := cli.NewModules(cfg, deps, cli.NewPaymentGateway(cfg, logger), nil)
	if err != nil {
		logger.Error("Failed to initialize services", log.FieldError, err)
		os.Exit(1)
	}

	writer, err := cli.NewFinanceWriter(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize finance export", log.FieldError, err)
		os.Exit(1)
	}
	jobs := worker.NewJobWorker(services.NewFinanceExporter(deps, writer), modules.Subscriptions, logger, m)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.Consume(gctx, jobs.Handle)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
