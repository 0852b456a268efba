package stats

import (
	"context"
	"testing"

	"budgetplanner/internal/core"
	"budgetplanner/internal/storage"
)

func seedAccount(t *testing.T, store *storage.MemoryStore) core.Account {
	t.Helper()
	account, err := store.CreateAccount(context.Background(), core.Account{Username: "alice"})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return account
}

func seedCategory(t *testing.T, store *storage.MemoryStore, accountID int64, name string) core.Category {
	t.Helper()
	category, err := store.CreateCategory(context.Background(), core.Category{AccountID: accountID, Name: name})
	if err != nil {
		t.Fatalf("create category %q: %v", name, err)
	}
	return category
}

func seedOutcome(t *testing.T, store *storage.MemoryStore, accountID, categoryID, cents int64) {
	t.Helper()
	_, err := store.CreateOutcome(context.Background(), core.Outcome{
		AccountID:  accountID,
		CategoryID: categoryID,
		Amount:     core.Money{Cents: cents},
	})
	if err != nil {
		t.Fatalf("create outcome: %v", err)
	}
}

func statByID(stats []core.CategoryStat, id int64) (core.CategoryStat, bool) {
	for _, s := range stats {
		if s.CategoryID == id {
			return s, true
		}
	}
	return core.CategoryStat{}, false
}

func TestComputeStatistics(t *testing.T) {
	store := storage.NewMemoryStore()
	account := seedAccount(t, store)
	groceries := seedCategory(t, store, account.ID, "Groceries")
	transport := seedCategory(t, store, account.ID, "Transport")

	seedOutcome(t, store, account.ID, groceries.ID, 3000)
	seedOutcome(t, store, account.ID, transport.ID, 7000)

	aggregator := NewAggregator(store)
	stats, err := aggregator.ComputeStatistics(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("compute statistics: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(stats))
	}

	row, ok := statByID(stats, groceries.ID)
	if !ok {
		t.Fatal("missing groceries row")
	}
	if row.Total.Cents != 3000 {
		t.Fatalf("groceries total: expected 3000, got %d", row.Total.Cents)
	}
	if got := row.Percentage.StringFixed(2); got != "30.00" {
		t.Fatalf("groceries percentage: expected 30.00, got %s", got)
	}

	row, ok = statByID(stats, transport.ID)
	if !ok {
		t.Fatal("missing transport row")
	}
	if got := row.Percentage.StringFixed(2); got != "70.00" {
		t.Fatalf("transport percentage: expected 70.00, got %s", got)
	}
}

func TestComputeStatisticsUnevenSplit(t *testing.T) {
	store := storage.NewMemoryStore()
	account := seedAccount(t, store)
	a := seedCategory(t, store, account.ID, "A")
	b := seedCategory(t, store, account.ID, "B")
	c := seedCategory(t, store, account.ID, "C")

	// Each a third: rounded shares do not have to sum to exactly 100.
	for _, cat := range []core.Category{a, b, c} {
		seedOutcome(t, store, account.ID, cat.ID, 100)
	}

	aggregator := NewAggregator(store)
	stats, err := aggregator.ComputeStatistics(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("compute statistics: %v", err)
	}
	for _, row := range stats {
		if got := row.Percentage.StringFixed(2); got != "33.33" {
			t.Fatalf("category %d: expected 33.33, got %s", row.CategoryID, got)
		}
	}
}

func TestComputeStatisticsZeroOutcomeCategory(t *testing.T) {
	store := storage.NewMemoryStore()
	account := seedAccount(t, store)
	active := seedCategory(t, store, account.ID, "Active")
	idle := seedCategory(t, store, account.ID, "Idle")

	seedOutcome(t, store, account.ID, active.ID, 1234)

	aggregator := NewAggregator(store)
	stats, err := aggregator.ComputeStatistics(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("compute statistics: %v", err)
	}

	row, ok := statByID(stats, idle.ID)
	if !ok {
		t.Fatal("expected a row for the category without outcomes")
	}
	if row.Total.Cents != 0 || !row.Percentage.IsZero() {
		t.Fatalf("idle category: expected zero total and percentage, got %+v", row)
	}
	row, _ = statByID(stats, active.ID)
	if got := row.Percentage.StringFixed(2); got != "100.00" {
		t.Fatalf("active category: expected 100.00, got %s", got)
	}
}

func TestComputeStatisticsNoOutcomes(t *testing.T) {
	store := storage.NewMemoryStore()
	account := seedAccount(t, store)
	seedCategory(t, store, account.ID, "Empty")

	aggregator := NewAggregator(store)
	stats, err := aggregator.ComputeStatistics(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("compute statistics: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected 1 row, got %d", len(stats))
	}
	if stats[0].Total.Cents != 0 || !stats[0].Percentage.IsZero() {
		t.Fatalf("expected all-zero row, got %+v", stats[0])
	}
}

// Statistics reads never mutate the store; two consecutive computations
// agree.
func TestComputeStatisticsIdempotent(t *testing.T) {
	store := storage.NewMemoryStore()
	account := seedAccount(t, store)
	category := seedCategory(t, store, account.ID, "Groceries")
	seedOutcome(t, store, account.ID, category.ID, 5500)

	aggregator := NewAggregator(store)
	first, err := aggregator.ComputeStatistics(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("first compute: %v", err)
	}
	second, err := aggregator.ComputeStatistics(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("second compute: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("row count changed between reads: %d vs %d", len(first), len(second))
	}
	if first[0].Total != second[0].Total || !first[0].Percentage.Equal(second[0].Percentage) {
		t.Fatalf("rows changed between reads: %+v vs %+v", first[0], second[0])
	}
}

func TestTotalSpend(t *testing.T) {
	store := storage.NewMemoryStore()
	account := seedAccount(t, store)
	category := seedCategory(t, store, account.ID, "Groceries")
	seedOutcome(t, store, account.ID, category.ID, 1000)
	seedOutcome(t, store, account.ID, category.ID, 250)

	aggregator := NewAggregator(store)
	total, err := aggregator.TotalSpend(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("total spend: %v", err)
	}
	if total.Cents != 1250 {
		t.Fatalf("expected 1250, got %d", total.Cents)
	}
}
