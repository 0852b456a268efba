package core

import (
	"errors"
	"strings"
	"time"
)

// TimeFormat is the canonical textual rendering of record timestamps.
// The created-at substring filters match against this exact layout.
const TimeFormat = "2006-01-02 15:04:05"

type (
	// Money is a fixed-point amount with two fractional digits, stored in cents.
	Money struct {
		Cents int64
	}

	// Account is the balance-holding principal. Balance is a cached projection:
	// it always equals Deposited minus the sum of the account's outcome amounts,
	// and is only ever written by the ledger engine.
	Account struct {
		ID          int64
		Username    string
		PhoneNumber string
		Balance     Money
		Deposited   Money
		CreatedAt   time.Time
		ModifiedAt  time.Time
	}

	// Category is a user-defined grouping label for outcomes, owned by one account.
	Category struct {
		ID         int64
		AccountID  int64
		Name       string
		CreatedAt  time.Time
		ModifiedAt time.Time
	}

	// Outcome is a single categorized debit record. Its category must belong to
	// the same account. CreatedAt is assigned at creation and never changes.
	Outcome struct {
		ID         int64
		AccountID  int64
		CategoryID int64
		Amount     Money
		CreatedAt  time.Time
		ModifiedAt time.Time
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrNotFound         = errors.New("not found")
	ErrCategoryMismatch = errors.New("category belongs to a different account")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyUsername    = errors.New("empty username")
)

// Validate reports whether the amount is usable as an outcome amount.
// Outcome amounts are strictly positive; deposits are checked separately
// because a zero deposit is legal.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns m plus other.
func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

// Sub returns m minus other.
func (m Money) Sub(other Money) Money {
	return Money{Cents: m.Cents - other.Cents}
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 255 {
		return errors.New("name too long (max 255 characters)")
	}
	if c.AccountID <= 0 {
		return errors.New("category has no owning account")
	}
	return nil
}

func (o Outcome) Validate() error {
	if err := o.Amount.Validate(); err != nil {
		return err
	}
	if o.AccountID <= 0 {
		return errors.New("outcome has no owning account")
	}
	if o.CategoryID <= 0 {
		return errors.New("outcome has no category")
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Username) == "" {
		return ErrEmptyUsername
	}
	if len(a.Username) > 255 {
		return errors.New("username too long (max 255 characters)")
	}
	return nil
}
