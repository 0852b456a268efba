package audit

import (
	"context"
	"errors"
	"testing"

	"budgetplanner/internal/core"
	"budgetplanner/internal/ledger"
	"budgetplanner/internal/storage"
)

func seedLedger(t *testing.T) (*storage.MemoryStore, core.Account, core.Category) {
	t.Helper()
	store := storage.NewMemoryStore()
	engine := ledger.NewEngine(store, nil)
	ctx := context.Background()

	account, err := engine.CreateAccount(ctx, "alice", "")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	category, err := store.CreateCategory(ctx, core.Category{AccountID: account.ID, Name: "Groceries"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if _, err := engine.Deposit(ctx, account.ID, core.Money{Cents: 10000}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, _, err := engine.RecordOutcome(ctx, account.ID, category.ID, core.Money{Cents: 3000}); err != nil {
		t.Fatalf("record outcome: %v", err)
	}
	return store, account, category
}

func TestCheckAccountInvariantHolds(t *testing.T) {
	store, account, _ := seedLedger(t)

	auditor := NewAuditor(store, 1)
	drift, err := auditor.CheckAccount(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("check account: %v", err)
	}
	if drift.Delta.Cents != 0 {
		t.Fatalf("expected zero delta, got %+v", drift)
	}
	if drift.Balance.Cents != 7000 || drift.Derived.Cents != 7000 {
		t.Fatalf("expected balance and derived 7000, got %+v", drift)
	}
}

func TestCheckAccountDetectsDrift(t *testing.T) {
	store, account, _ := seedLedger(t)
	ctx := context.Background()

	// Corrupt the cached balance behind the ledger's back.
	corrupted, err := store.GetAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	corrupted.Balance = corrupted.Balance.Add(core.Money{Cents: 123})
	if err := store.SaveAccount(ctx, corrupted); err != nil {
		t.Fatalf("save account: %v", err)
	}

	auditor := NewAuditor(store, 1)
	drift, err := auditor.CheckAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("check account: %v", err)
	}
	if drift.Delta.Cents != 123 {
		t.Fatalf("expected delta 123, got %+v", drift)
	}
}

func TestCheckAccountNotFound(t *testing.T) {
	auditor := NewAuditor(storage.NewMemoryStore(), 1)
	_, err := auditor.CheckAccount(context.Background(), 42)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSweep(t *testing.T) {
	store := storage.NewMemoryStore()
	engine := ledger.NewEngine(store, nil)
	ctx := context.Background()

	var drifting int64
	for i, name := range []string{"alice", "bob", "carol"} {
		account, err := engine.CreateAccount(ctx, name, "")
		if err != nil {
			t.Fatalf("create account %s: %v", name, err)
		}
		if _, err := engine.Deposit(ctx, account.ID, core.Money{Cents: 1000}); err != nil {
			t.Fatalf("deposit: %v", err)
		}
		if i == 1 {
			corrupted, err := store.GetAccount(ctx, account.ID)
			if err != nil {
				t.Fatalf("get account: %v", err)
			}
			corrupted.Balance = core.Money{Cents: 999}
			if err := store.SaveAccount(ctx, corrupted); err != nil {
				t.Fatalf("save account: %v", err)
			}
			drifting = account.ID
		}
	}

	auditor := NewAuditor(store, 4)
	drifts, err := auditor.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(drifts) != 1 {
		t.Fatalf("expected 1 drifting account, got %d", len(drifts))
	}
	if drifts[0].AccountID != drifting {
		t.Fatalf("expected account %d, got %d", drifting, drifts[0].AccountID)
	}
	if drifts[0].Delta.Cents != -1 {
		t.Fatalf("expected delta -1, got %d", drifts[0].Delta.Cents)
	}
}

func TestSweepEmptyStore(t *testing.T) {
	auditor := NewAuditor(storage.NewMemoryStore(), 2)
	drifts, err := auditor.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(drifts) != 0 {
		t.Fatalf("expected no drifts, got %d", len(drifts))
	}
}
