package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"budgetplanner/internal/core"
	"budgetplanner/internal/storage"
)

func newTestEngine(t *testing.T) (*Engine, *storage.MemoryStore, core.Account, core.Category) {
	t.Helper()
	store := storage.NewMemoryStore()
	engine := NewEngine(store, nil)

	account, err := engine.CreateAccount(context.Background(), "alice", "")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	category, err := store.CreateCategory(context.Background(), core.Category{
		AccountID: account.ID,
		Name:      "Groceries",
	})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	return engine, store, account, category
}

func mustBalance(t *testing.T, engine *Engine, accountID int64) core.Money {
	t.Helper()
	balance, err := engine.Balance(context.Background(), accountID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return balance
}

func TestDeposit(t *testing.T) {
	engine, _, account, _ := newTestEngine(t)
	ctx := context.Background()

	updated, err := engine.Deposit(ctx, account.ID, core.Money{Cents: 10000})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if updated.Balance.Cents != 10000 {
		t.Fatalf("expected balance 10000, got %d", updated.Balance.Cents)
	}
	if updated.Deposited.Cents != 10000 {
		t.Fatalf("expected deposited 10000, got %d", updated.Deposited.Cents)
	}

	// Zero deposit is legal and a no-op on the balance
	updated, err = engine.Deposit(ctx, account.ID, core.Money{Cents: 0})
	if err != nil {
		t.Fatalf("zero deposit: %v", err)
	}
	if updated.Balance.Cents != 10000 {
		t.Fatalf("expected balance 10000 after zero deposit, got %d", updated.Balance.Cents)
	}
}

func TestDepositNegative(t *testing.T) {
	engine, _, account, _ := newTestEngine(t)

	_, err := engine.Deposit(context.Background(), account.ID, core.Money{Cents: -100})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if got := mustBalance(t, engine, account.ID); got.Cents != 0 {
		t.Fatalf("balance changed on rejected deposit: %d", got.Cents)
	}
}

// Scenario from the ledger contract: record 30.00 off a 100.00 balance,
// revise to 50.00, then delete; the balance returns to 100.00.
func TestOutcomeLifecycle(t *testing.T) {
	engine, _, account, category := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.Deposit(ctx, account.ID, core.Money{Cents: 10000}); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	outcome, balance, err := engine.RecordOutcome(ctx, account.ID, category.ID, core.Money{Cents: 3000})
	if err != nil {
		t.Fatalf("record outcome: %v", err)
	}
	if outcome.Amount.Cents != 3000 {
		t.Fatalf("expected amount 3000, got %d", outcome.Amount.Cents)
	}
	if balance.Cents != 7000 {
		t.Fatalf("expected balance 7000, got %d", balance.Cents)
	}
	if outcome.CreatedAt.IsZero() {
		t.Fatal("expected server-assigned creation timestamp")
	}

	_, balance, err = engine.ReviseOutcome(ctx, account.ID, outcome.ID, core.Money{Cents: 5000})
	if err != nil {
		t.Fatalf("revise outcome: %v", err)
	}
	if balance.Cents != 5000 {
		t.Fatalf("expected balance 5000 after revision, got %d", balance.Cents)
	}

	balance, err = engine.RemoveOutcome(ctx, account.ID, outcome.ID)
	if err != nil {
		t.Fatalf("remove outcome: %v", err)
	}
	if balance.Cents != 10000 {
		t.Fatalf("expected balance 10000 after removal, got %d", balance.Cents)
	}
}

func TestRecordOutcomeInvalidAmount(t *testing.T) {
	engine, _, account, category := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.Deposit(ctx, account.ID, core.Money{Cents: 10000}); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	for _, cents := range []int64{0, -500} {
		_, _, err := engine.RecordOutcome(ctx, account.ID, category.ID, core.Money{Cents: cents})
		if !errors.Is(err, core.ErrInvalidAmount) {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", cents, err)
		}
	}
	if got := mustBalance(t, engine, account.ID); got.Cents != 10000 {
		t.Fatalf("balance changed on rejected outcome: %d", got.Cents)
	}
}

func TestRecordOutcomeCategoryMismatch(t *testing.T) {
	engine, store, account, _ := newTestEngine(t)
	ctx := context.Background()

	other, err := engine.CreateAccount(ctx, "bob", "")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	foreign, err := store.CreateCategory(ctx, core.Category{AccountID: other.ID, Name: "Rent"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	if _, err := engine.Deposit(ctx, account.ID, core.Money{Cents: 10000}); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	_, _, err = engine.RecordOutcome(ctx, account.ID, foreign.ID, core.Money{Cents: 100})
	if !errors.Is(err, core.ErrCategoryMismatch) {
		t.Fatalf("expected ErrCategoryMismatch, got %v", err)
	}

	if got := mustBalance(t, engine, account.ID); got.Cents != 10000 {
		t.Fatalf("balance changed on rejected outcome: %d", got.Cents)
	}
	outcomes, err := engine.ListOutcomes(ctx, account.ID, storage.OutcomeFilter{})
	if err != nil {
		t.Fatalf("list outcomes: %v", err)
	}
	if len(outcomes) != 0 {
		t.Fatalf("expected no outcomes, got %d", len(outcomes))
	}
}

func TestOutcomeOwnershipScoping(t *testing.T) {
	engine, _, account, category := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.Deposit(ctx, account.ID, core.Money{Cents: 10000}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	outcome, _, err := engine.RecordOutcome(ctx, account.ID, category.ID, core.Money{Cents: 500})
	if err != nil {
		t.Fatalf("record outcome: %v", err)
	}

	intruder, err := engine.CreateAccount(ctx, "mallory", "")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	if _, err := engine.GetOutcome(ctx, intruder.ID, outcome.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get: expected ErrNotFound for foreign outcome, got %v", err)
	}
	if _, _, err := engine.ReviseOutcome(ctx, intruder.ID, outcome.ID, core.Money{Cents: 1}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("revise: expected ErrNotFound for foreign outcome, got %v", err)
	}
	if _, err := engine.RemoveOutcome(ctx, intruder.ID, outcome.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("remove: expected ErrNotFound for foreign outcome, got %v", err)
	}
}

func TestRemoveOutcomeNotFound(t *testing.T) {
	engine, _, account, _ := newTestEngine(t)

	_, err := engine.RemoveOutcome(context.Background(), account.ID, 9999)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// N concurrent one-cent outcomes must leave the balance exactly N cents
// lower: the per-account lock forbids lost updates.
func TestConcurrentRecordOutcome(t *testing.T) {
	engine, _, account, category := newTestEngine(t)
	ctx := context.Background()

	const n = 50
	start := core.Money{Cents: 10000}
	if _, err := engine.Deposit(ctx, account.ID, start); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := engine.RecordOutcome(ctx, account.ID, category.ID, core.Money{Cents: 1})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent record outcome: %v", err)
		}
	}

	if got := mustBalance(t, engine, account.ID); got.Cents != start.Cents-n {
		t.Fatalf("expected balance %d, got %d", start.Cents-n, got.Cents)
	}
}

func TestListOutcomesFilters(t *testing.T) {
	engine, store, account, category := newTestEngine(t)
	ctx := context.Background()

	other, err := store.CreateCategory(ctx, core.Category{AccountID: account.ID, Name: "Transport"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	if _, err := engine.Deposit(ctx, account.ID, core.Money{Cents: 100000}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	amounts := map[int64]int64{category.ID: 1000, other.ID: 2500}
	for catID, cents := range amounts {
		if _, _, err := engine.RecordOutcome(ctx, account.ID, catID, core.Money{Cents: cents}); err != nil {
			t.Fatalf("record outcome: %v", err)
		}
	}

	byCategory, err := engine.ListOutcomes(ctx, account.ID, storage.OutcomeFilter{CategoryID: category.ID})
	if err != nil {
		t.Fatalf("list by category: %v", err)
	}
	if len(byCategory) != 1 || byCategory[0].Amount.Cents != 1000 {
		t.Fatalf("category filter: expected the 1000-cent outcome, got %+v", byCategory)
	}

	bounded, err := engine.ListOutcomes(ctx, account.ID, storage.OutcomeFilter{MinCents: 2000, MaxCents: 3000})
	if err != nil {
		t.Fatalf("list bounded: %v", err)
	}
	if len(bounded) != 1 || bounded[0].Amount.Cents != 2500 {
		t.Fatalf("amount bounds: expected the 2500-cent outcome, got %+v", bounded)
	}

	// Bounds are inclusive
	inclusive, err := engine.ListOutcomes(ctx, account.ID, storage.OutcomeFilter{MinCents: 1000, MaxCents: 2500})
	if err != nil {
		t.Fatalf("list inclusive: %v", err)
	}
	if len(inclusive) != 2 {
		t.Fatalf("inclusive bounds: expected 2 outcomes, got %d", len(inclusive))
	}
}
