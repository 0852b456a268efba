// Package stats computes per-category spend statistics for an account.
package stats

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"budgetplanner/internal/core"
	"budgetplanner/internal/storage"
)

// Aggregator derives category totals and percentage shares from the record
// store. It never writes; it may run concurrently with ledger mutations.
type Aggregator struct {
	store storage.Store
}

func NewAggregator(store storage.Store) *Aggregator {
	return &Aggregator{store: store}
}

var oneHundred = decimal.NewFromInt(100)

// ComputeStatistics returns one row per category the account owns, including
// categories without outcomes (total 0, percentage 0). Percentages are shares
// of the account's total spend, rounded half-up to two places and not
// clamped; row order is unspecified.
//
// All outcomes are read in a single query so the total and the per-category
// sums come from one consistent snapshot.
func (a *Aggregator) ComputeStatistics(ctx context.Context, accountID int64) ([]core.CategoryStat, error) {
	outcomes, err := a.store.QueryOutcomes(ctx, accountID, storage.OutcomeFilter{})
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}

	var totalCents int64
	perCategory := make(map[int64]int64)
	for _, o := range outcomes {
		totalCents += o.Amount.Cents
		perCategory[o.CategoryID] += o.Amount.Cents
	}

	categories, err := a.store.QueryCategories(ctx, accountID, storage.CategoryFilter{})
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}

	total := decimal.New(totalCents, -2)
	stats := make([]core.CategoryStat, 0, len(categories))
	for _, c := range categories {
		catCents := perCategory[c.ID]
		percentage := decimal.Zero
		if totalCents > 0 {
			percentage = decimal.New(catCents, -2).Div(total).Mul(oneHundred).Round(2)
		}
		stats = append(stats, core.CategoryStat{
			CategoryID:   c.ID,
			CategoryName: c.Name,
			Total:        core.Money{Cents: catCents},
			Percentage:   percentage,
		})
	}

	return stats, nil
}

// TotalSpend returns the sum of all outcome amounts for the account.
func (a *Aggregator) TotalSpend(ctx context.Context, accountID int64) (core.Money, error) {
	outcomes, err := a.store.QueryOutcomes(ctx, accountID, storage.OutcomeFilter{})
	if err != nil {
		return core.Money{}, fmt.Errorf("query outcomes: %w", err)
	}

	var total core.Money
	for _, o := range outcomes {
		total = total.Add(o.Amount)
	}
	return total, nil
}
