// Package worker reacts to ledger events from the queue.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"budgetplanner/internal/amqp"
	"budgetplanner/internal/audit"
	"budgetplanner/internal/cache"
)

// AuditWorker verifies the balance invariant of every account touched by a
// ledger event. A burst of events for one account triggers a single check:
// accounts verified recently are skipped until the debounce TTL expires.
type AuditWorker struct {
	auditor *audit.Auditor
	recent  *cache.LRUCache[struct{}]
}

func NewAuditWorker(auditor *audit.Auditor, debounce time.Duration) *AuditWorker {
	return &AuditWorker{
		auditor: auditor,
		recent:  cache.NewLRUCache[struct{}](1024, debounce),
	}
}

// DebounceCache exposes the recently-verified cache for periodic cleanup.
func (w *AuditWorker) DebounceCache() cache.Cleaner {
	return w.recent
}

// HandleLedgerEvent checks the event's account. Returning an error requeues
// the message, so storage failures are retried by the broker.
func (w *AuditWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	key := strconv.FormatInt(msg.AccountID, 10)
	if _, seen := w.recent.Get(key); seen {
		slog.DebugContext(ctx, "Account audited recently, skipping",
			"account_id", msg.AccountID, "kind", msg.Kind)
		return nil
	}

	drift, err := w.auditor.CheckAccount(ctx, msg.AccountID)
	if err != nil {
		return fmt.Errorf("check account %d: %w", msg.AccountID, err)
	}
	w.recent.Set(key, struct{}{})

	if drift.Delta.Cents != 0 {
		slog.WarnContext(ctx, "Balance drift detected",
			"account_id", drift.AccountID,
			"balance_cents", drift.Balance.Cents,
			"derived_cents", drift.Derived.Cents,
			"delta_cents", drift.Delta.Cents,
			"trigger", msg.Kind)
		return nil
	}

	slog.DebugContext(ctx, "Account balance verified",
		"account_id", msg.AccountID, "trigger", msg.Kind)
	return nil
}
