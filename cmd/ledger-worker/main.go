// ledger-worker consumes ledger events from the queue and verifies the
// balance invariant of every touched account.
package main

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"budgetplanner/internal/amqp"
	"budgetplanner/internal/audit"
	"budgetplanner/internal/cache"
	"budgetplanner/internal/cli"
	"budgetplanner/internal/log"
	"budgetplanner/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)

	logger.Info("Starting ledger-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	store := cli.InitStore(logger, cfg)
	defer func() {
		if closer, ok := store.(io.Closer); ok {
			closer.Close()
		}
	}()

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for ledger-worker")
		os.Exit(1)
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	auditor := audit.NewAuditor(store, cfg.AuditConcurrency)
	auditWorker := worker.NewAuditWorker(auditor, cfg.AuditDebounce)

	cacheManager := cache.NewManager()
	cacheManager.Register(auditWorker.DebounceCache())
	cacheManager.StartCleanup(time.Minute)
	defer cacheManager.Stop()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		client.Close()
	})

	logger.Info("Consuming ledger events",
		"queue", cfg.AMQPQueue,
		"debounce", cfg.AuditDebounce)

	err = client.ConsumeLedgerEvents(ctx, func(msg *amqp.LedgerEventMessage) error {
		return auditWorker.HandleLedgerEvent(ctx, msg)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer stopped", log.FieldError, err)
	}

	cli.WaitForShutdown(ctx, done)
}
