// Package storage provides the durable record store for accounts, categories
// and outcomes, with SQLite and in-memory implementations.
package storage

import (
	"context"

	"budgetplanner/internal/core"
)

// OutcomeFilter narrows an outcome query. Fields are independently optional
// and combined with AND. Amount bounds are inclusive; a value <= 0 means
// unset (outcome amounts are strictly positive, so no bound is lost).
// CreatedAtContains matches as a substring of the canonical timestamp
// rendering (core.TimeFormat).
type OutcomeFilter struct {
	CategoryID        int64
	MinCents          int64
	MaxCents          int64
	CreatedAtContains string
}

// CategoryFilter narrows a category query. CreatedAtContains matches as a
// substring of the canonical timestamp rendering.
type CategoryFilter struct {
	CreatedAtContains string
}

// Store is the record store contract the ledger core operates against.
// Reads for missing or foreign rows return core.ErrNotFound (wrapped);
// any other failure is an underlying storage error propagated as-is.
//
// Store implementations do not enforce ledger rules: balance adjustments,
// ownership checks and cascade semantics live in the engine and directory.
type Store interface {
	CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
	GetAccount(ctx context.Context, id int64) (core.Account, error)
	SaveAccount(ctx context.Context, a core.Account) error
	ListAccountIDs(ctx context.Context) ([]int64, error)

	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	GetCategory(ctx context.Context, id int64) (core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) error
	DeleteCategory(ctx context.Context, id int64) error
	QueryCategories(ctx context.Context, accountID int64, f CategoryFilter) ([]core.Category, error)

	CreateOutcome(ctx context.Context, o core.Outcome) (core.Outcome, error)
	GetOutcome(ctx context.Context, id int64) (core.Outcome, error)
	UpdateOutcome(ctx context.Context, o core.Outcome) error
	DeleteOutcome(ctx context.Context, id int64) error
	QueryOutcomes(ctx context.Context, accountID int64, f OutcomeFilter) ([]core.Outcome, error)
}
