// Package categories manages category lifecycle and ownership scoping.
package categories

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"budgetplanner/internal/core"
	"budgetplanner/internal/ledger"
	"budgetplanner/internal/storage"
)

// Directory owns category create/rename/delete/list. Deleting a category
// cascades to its outcomes through the ledger engine, which re-credits the
// account for every removed amount; the directory itself never touches
// balances.
type Directory struct {
	store  storage.Store
	engine *ledger.Engine
}

func NewDirectory(store storage.Store, engine *ledger.Engine) *Directory {
	return &Directory{store: store, engine: engine}
}

// Create adds a category owned by the account.
func (d *Directory) Create(ctx context.Context, accountID int64, name string) (core.Category, error) {
	c := core.Category{
		AccountID: accountID,
		Name:      strings.TrimSpace(name),
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	// The account must exist; a typo'd id must not create orphan categories.
	if _, err := d.store.GetAccount(ctx, accountID); err != nil {
		return core.Category{}, err
	}

	created, err := d.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return created, nil
}

// Get returns a category scoped to its owner.
func (d *Directory) Get(ctx context.Context, accountID, categoryID int64) (core.Category, error) {
	return d.ownedCategory(ctx, accountID, categoryID)
}

// Rename changes a category's name. Ownership mismatches answer
// core.ErrNotFound, same as a missing category.
func (d *Directory) Rename(ctx context.Context, accountID, categoryID int64, newName string) (core.Category, error) {
	category, err := d.ownedCategory(ctx, accountID, categoryID)
	if err != nil {
		return core.Category{}, err
	}

	category.Name = strings.TrimSpace(newName)
	if err := category.Validate(); err != nil {
		return core.Category{}, err
	}

	if err := d.store.UpdateCategory(ctx, category); err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	return category, nil
}

// Delete removes a category. Its outcomes are deleted first and their
// amounts credited back to the account, so the balance projection holds
// across the cascade.
func (d *Directory) Delete(ctx context.Context, accountID, categoryID int64) error {
	if _, err := d.ownedCategory(ctx, accountID, categoryID); err != nil {
		return err
	}

	credited, removed, err := d.engine.ReleaseCategory(ctx, accountID, categoryID)
	if err != nil {
		return fmt.Errorf("release category outcomes: %w", err)
	}
	if removed > 0 {
		slog.InfoContext(ctx, "Cascaded category outcomes",
			"category_id", categoryID,
			"account_id", accountID,
			"outcomes_removed", removed,
			"credited_cents", credited.Cents)
	}

	if err := d.store.DeleteCategory(ctx, categoryID); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// List returns the account's categories, optionally filtered by a substring
// of the canonical created-at rendering.
func (d *Directory) List(ctx context.Context, accountID int64, createdAtContains string) ([]core.Category, error) {
	categories, err := d.store.QueryCategories(ctx, accountID, storage.CategoryFilter{
		CreatedAtContains: createdAtContains,
	})
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	return categories, nil
}

func (d *Directory) ownedCategory(ctx context.Context, accountID, categoryID int64) (core.Category, error) {
	category, err := d.store.GetCategory(ctx, categoryID)
	if err != nil {
		return core.Category{}, err
	}
	if category.AccountID != accountID {
		return core.Category{}, fmt.Errorf("category %d: %w", categoryID, core.ErrNotFound)
	}
	return category, nil
}
