// Package audit re-derives account balances from the record store and
// reports drift between the cached balance and the ledger projection.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"budgetplanner/internal/core"
	"budgetplanner/internal/storage"
)

// Drift describes one account whose cached balance disagrees with the
// projection deposited − Σ outcomes. Delta is cached minus derived.
type Drift struct {
	AccountID int64
	Balance   core.Money
	Derived   core.Money
	Delta     core.Money
}

// Auditor checks the ledger invariant without taking engine locks: it is a
// read-only observer, so a check racing a mutation can report transient
// drift. Persistent drift across checks is the signal that matters.
type Auditor struct {
	store       storage.Store
	concurrency int
}

func NewAuditor(store storage.Store, concurrency int) *Auditor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Auditor{store: store, concurrency: concurrency}
}

// CheckAccount re-derives one account's balance. A zero Delta means the
// invariant holds.
func (a *Auditor) CheckAccount(ctx context.Context, accountID int64) (Drift, error) {
	account, err := a.store.GetAccount(ctx, accountID)
	if err != nil {
		return Drift{}, err
	}

	outcomes, err := a.store.QueryOutcomes(ctx, accountID, storage.OutcomeFilter{})
	if err != nil {
		return Drift{}, fmt.Errorf("query outcomes: %w", err)
	}

	var spent core.Money
	for _, o := range outcomes {
		spent = spent.Add(o.Amount)
	}

	derived := account.Deposited.Sub(spent)
	return Drift{
		AccountID: accountID,
		Balance:   account.Balance,
		Derived:   derived,
		Delta:     account.Balance.Sub(derived),
	}, nil
}

// Sweep checks every account and returns the ones with non-zero drift.
// Accounts are checked concurrently up to the auditor's limit.
func (a *Auditor) Sweep(ctx context.Context) ([]Drift, error) {
	ids, err := a.store.ListAccountIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	var (
		mu     sync.Mutex
		drifts []Drift
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for _, id := range ids {
		g.Go(func() error {
			drift, err := a.CheckAccount(ctx, id)
			if err != nil {
				return fmt.Errorf("check account %d: %w", id, err)
			}
			if drift.Delta.Cents != 0 {
				mu.Lock()
				drifts = append(drifts, drift)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Ledger sweep finished",
		"accounts", len(ids),
		"drifting", len(drifts))
	return drifts, nil
}
