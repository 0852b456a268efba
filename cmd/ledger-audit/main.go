// ledger-audit periodically sweeps every account and reports balances that
// drifted from the ledger projection.
package main

import (
	"context"
	"io"
	"time"

	"budgetplanner/internal/audit"
	"budgetplanner/internal/cli"
	"budgetplanner/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentAudit)

	logger.Info("Starting ledger-audit")

	cfg := cli.LoadAndValidateConfig(logger)

	store := cli.InitStore(logger, cfg)
	defer func() {
		if closer, ok := store.(io.Closer); ok {
			closer.Close()
		}
	}()

	auditor := audit.NewAuditor(store, cfg.AuditConcurrency)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Audit sweep configured",
		"interval", cfg.AuditInterval,
		"concurrency", cfg.AuditConcurrency)

	ticker := time.NewTicker(cfg.AuditInterval)
	defer ticker.Stop()

	// Run an initial sweep on startup
	runSweep(ctx, logger, auditor)

	for {
		select {
		case <-ctx.Done():
			cli.WaitForShutdown(ctx, done)
			return
		case <-ticker.C:
			runSweep(ctx, logger, auditor)
		}
	}
}

func runSweep(ctx context.Context, logger *log.Logger, auditor *audit.Auditor) {
	start := time.Now()
	drifts, err := auditor.Sweep(ctx)
	if err != nil {
		logger.Error("Sweep failed", log.FieldError, err)
		return
	}

	for _, drift := range drifts {
		logger.Warn("Balance drift detected",
			log.FieldAccountID, drift.AccountID,
			log.FieldBalance, drift.Balance.Cents,
			"derived_cents", drift.Derived.Cents,
			"delta_cents", drift.Delta.Cents)
	}

	logger.Info("Sweep complete",
		"drifting_accounts", len(drifts),
		log.FieldDuration, time.Since(start).Milliseconds())
}
