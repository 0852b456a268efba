// Package ledger owns the balance invariant: an account's balance always
// equals its total deposits minus the sum of its recorded outcome amounts.
// Every balance write in the system goes through the Engine.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"budgetplanner/internal/amqp"
	"budgetplanner/internal/core"
	"budgetplanner/internal/storage"
)

// Engine executes the compound ledger operations. Operations touching one
// account are serialized through a per-account mutex so that the
// read-compute-write of the balance never interleaves; operations on
// different accounts proceed in parallel.
type Engine struct {
	store  storage.Store
	events *amqp.Client // nil disables event publishing
	muMap  map[int64]*sync.Mutex
	mapMu  sync.Mutex // protects muMap itself
}

func NewEngine(store storage.Store, events *amqp.Client) *Engine {
	return &Engine{
		store:  store,
		events: events,
		muMap:  make(map[int64]*sync.Mutex),
	}
}

func (e *Engine) accountLock(accountID int64) *sync.Mutex {
	e.mapMu.Lock()
	defer e.mapMu.Unlock()

	if _, exists := e.muMap[accountID]; !exists {
		e.muMap[accountID] = &sync.Mutex{}
	}
	return e.muMap[accountID]
}

// CreateAccount registers a new account with a zero balance. Credential and
// contact-field validation is the caller's concern; the ledger only requires
// a usable username.
func (e *Engine) CreateAccount(ctx context.Context, username, phoneNumber string) (core.Account, error) {
	a := core.Account{
		Username:    strings.TrimSpace(username),
		PhoneNumber: phoneNumber,
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}

	created, err := e.store.CreateAccount(ctx, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	return created, nil
}

// Account returns the account record.
func (e *Engine) Account(ctx context.Context, accountID int64) (core.Account, error) {
	return e.store.GetAccount(ctx, accountID)
}

// Balance reads the account's balance. It takes the account lock so the read
// never lands between the two writes of a compound operation.
func (e *Engine) Balance(ctx context.Context, accountID int64) (core.Money, error) {
	mu := e.accountLock(accountID)
	mu.Lock()
	defer mu.Unlock()

	account, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return core.Money{}, err
	}
	return account.Balance, nil
}

// Deposit credits the account balance. A zero amount is legal; a negative
// one is rejected with core.ErrInvalidAmount.
func (e *Engine) Deposit(ctx context.Context, accountID int64, amount core.Money) (core.Account, error) {
	if amount.Cents < 0 {
		return core.Account{}, core.ErrInvalidAmount
	}

	mu := e.accountLock(accountID)
	mu.Lock()
	defer mu.Unlock()

	account, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return core.Account{}, err
	}

	account.Balance = account.Balance.Add(amount)
	account.Deposited = account.Deposited.Add(amount)
	if err := e.store.SaveAccount(ctx, account); err != nil {
		return core.Account{}, fmt.Errorf("save account: %w", err)
	}

	e.publish(ctx, amqp.EventDeposit, accountID, 0)
	return account, nil
}

// RecordOutcome creates an outcome in the given category and debits the
// account balance by its amount in the same serialized step. The category
// must belong to the same account.
func (e *Engine) RecordOutcome(ctx context.Context, accountID, categoryID int64, amount core.Money) (core.Outcome, core.Money, error) {
	if err := amount.Validate(); err != nil {
		return core.Outcome{}, core.Money{}, err
	}

	category, err := e.store.GetCategory(ctx, categoryID)
	if err != nil {
		return core.Outcome{}, core.Money{}, err
	}
	if category.AccountID != accountID {
		return core.Outcome{}, core.Money{}, core.ErrCategoryMismatch
	}

	mu := e.accountLock(accountID)
	mu.Lock()
	defer mu.Unlock()

	account, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return core.Outcome{}, core.Money{}, err
	}

	outcome, err := e.store.CreateOutcome(ctx, core.Outcome{
		AccountID:  accountID,
		CategoryID: categoryID,
		Amount:     amount,
	})
	if err != nil {
		return core.Outcome{}, core.Money{}, fmt.Errorf("create outcome: %w", err)
	}

	account.Balance = account.Balance.Sub(amount)
	if err := e.store.SaveAccount(ctx, account); err != nil {
		// Undo the insert so the projection stays intact.
		if delErr := e.store.DeleteOutcome(ctx, outcome.ID); delErr != nil {
			slog.ErrorContext(ctx, "Failed to roll back outcome after balance write failure",
				"outcome_id", outcome.ID, "error", delErr)
		}
		return core.Outcome{}, core.Money{}, fmt.Errorf("save account: %w", err)
	}

	e.publish(ctx, amqp.EventOutcomeRecorded, accountID, outcome.ID)
	return outcome, account.Balance, nil
}

// ReviseOutcome changes an outcome's amount and adjusts the balance by the
// delta between the old and new amounts. An outcome owned by a different
// account answers core.ErrNotFound.
func (e *Engine) ReviseOutcome(ctx context.Context, accountID, outcomeID int64, newAmount core.Money) (core.Outcome, core.Money, error) {
	if err := newAmount.Validate(); err != nil {
		return core.Outcome{}, core.Money{}, err
	}

	mu := e.accountLock(accountID)
	mu.Lock()
	defer mu.Unlock()

	outcome, err := e.ownedOutcome(ctx, accountID, outcomeID)
	if err != nil {
		return core.Outcome{}, core.Money{}, err
	}

	account, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return core.Outcome{}, core.Money{}, err
	}

	delta := outcome.Amount.Sub(newAmount) // re-credit old, re-debit new
	outcome.Amount = newAmount
	if err := e.store.UpdateOutcome(ctx, outcome); err != nil {
		return core.Outcome{}, core.Money{}, fmt.Errorf("update outcome: %w", err)
	}

	account.Balance = account.Balance.Add(delta)
	if err := e.store.SaveAccount(ctx, account); err != nil {
		return core.Outcome{}, core.Money{}, fmt.Errorf("save account: %w", err)
	}

	e.publish(ctx, amqp.EventOutcomeRevised, accountID, outcome.ID)
	return outcome, account.Balance, nil
}

// RemoveOutcome deletes an outcome and credits the account by its amount.
func (e *Engine) RemoveOutcome(ctx context.Context, accountID, outcomeID int64) (core.Money, error) {
	mu := e.accountLock(accountID)
	mu.Lock()
	defer mu.Unlock()

	outcome, err := e.ownedOutcome(ctx, accountID, outcomeID)
	if err != nil {
		return core.Money{}, err
	}

	account, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return core.Money{}, err
	}

	if err := e.store.DeleteOutcome(ctx, outcomeID); err != nil {
		return core.Money{}, fmt.Errorf("delete outcome: %w", err)
	}

	account.Balance = account.Balance.Add(outcome.Amount)
	if err := e.store.SaveAccount(ctx, account); err != nil {
		return core.Money{}, fmt.Errorf("save account: %w", err)
	}

	e.publish(ctx, amqp.EventOutcomeRemoved, accountID, outcomeID)
	return account.Balance, nil
}

// GetOutcome returns a single outcome scoped to its owner.
func (e *Engine) GetOutcome(ctx context.Context, accountID, outcomeID int64) (core.Outcome, error) {
	return e.ownedOutcome(ctx, accountID, outcomeID)
}

// ListOutcomes returns the account's outcomes matching the filter. Filters
// are conjunctive; an empty filter returns every outcome of the account.
func (e *Engine) ListOutcomes(ctx context.Context, accountID int64, f storage.OutcomeFilter) ([]core.Outcome, error) {
	outcomes, err := e.store.QueryOutcomes(ctx, accountID, f)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	return outcomes, nil
}

// ReleaseCategory deletes every outcome of the category and credits the
// account for their summed amounts in one serialized step. The category
// directory calls this before removing a category row; the balance write
// never happens anywhere else.
func (e *Engine) ReleaseCategory(ctx context.Context, accountID, categoryID int64) (core.Money, int, error) {
	mu := e.accountLock(accountID)
	mu.Lock()
	defer mu.Unlock()

	outcomes, err := e.store.QueryOutcomes(ctx, accountID, storage.OutcomeFilter{CategoryID: categoryID})
	if err != nil {
		return core.Money{}, 0, fmt.Errorf("query category outcomes: %w", err)
	}
	if len(outcomes) == 0 {
		return core.Money{}, 0, nil
	}

	account, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return core.Money{}, 0, err
	}

	var credited core.Money
	removed := 0
	for _, o := range outcomes {
		if err := e.store.DeleteOutcome(ctx, o.ID); err != nil {
			// Credit what was actually removed before giving up.
			break
		}
		credited = credited.Add(o.Amount)
		removed++
	}

	account.Balance = account.Balance.Add(credited)
	if saveErr := e.store.SaveAccount(ctx, account); saveErr != nil {
		return core.Money{}, removed, fmt.Errorf("save account: %w", saveErr)
	}
	if removed != len(outcomes) {
		return credited, removed, fmt.Errorf("released %d of %d outcomes in category %d", removed, len(outcomes), categoryID)
	}

	e.publish(ctx, amqp.EventCategoryReleased, accountID, categoryID)
	return credited, removed, nil
}

func (e *Engine) ownedOutcome(ctx context.Context, accountID, outcomeID int64) (core.Outcome, error) {
	outcome, err := e.store.GetOutcome(ctx, outcomeID)
	if err != nil {
		return core.Outcome{}, err
	}
	if outcome.AccountID != accountID {
		// Another account's record looks exactly like a missing one.
		return core.Outcome{}, fmt.Errorf("outcome %d: %w", outcomeID, core.ErrNotFound)
	}
	return outcome, nil
}

// publish sends a ledger event when a client is configured. Publish failures
// are logged and never fail the operation; the store is the source of truth.
func (e *Engine) publish(ctx context.Context, kind string, accountID, recordID int64) {
	if e.events == nil {
		return
	}
	if err := e.events.PublishLedgerEvent(ctx, kind, accountID, recordID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", kind,
			"account_id", accountID,
			"record_id", recordID,
			"error", err)
	}
}
