package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"budgetplanner/internal/core"
)

// MemoryStore is an in-memory Store used by tests and as a lightweight
// backend when no database path is configured. Safe for concurrent use.
type MemoryStore struct {
	mu         sync.RWMutex
	accounts   map[int64]core.Account
	categories map[int64]core.Category
	outcomes   map[int64]core.Outcome
	nextID     int64
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:   make(map[int64]core.Account),
		categories: make(map[int64]core.Category),
		outcomes:   make(map[int64]core.Outcome),
	}
}

func (s *MemoryStore) allocID() int64 {
	s.nextID++
	return s.nextID
}

func (s *MemoryStore) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Truncate(time.Second)
	a.ID = s.allocID()
	a.CreatedAt = now
	a.ModifiedAt = now
	s.accounts[a.ID] = a
	return a, nil
}

func (s *MemoryStore) GetAccount(_ context.Context, id int64) (core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return core.Account{}, fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	return a, nil
}

func (s *MemoryStore) SaveAccount(_ context.Context, a core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.accounts[a.ID]
	if !ok {
		return fmt.Errorf("account %d: %w", a.ID, core.ErrNotFound)
	}
	a.CreatedAt = existing.CreatedAt
	a.ModifiedAt = time.Now().UTC().Truncate(time.Second)
	s.accounts[a.ID] = a
	return nil
}

func (s *MemoryStore) ListAccountIDs(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *MemoryStore) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Truncate(time.Second)
	c.ID = s.allocID()
	c.CreatedAt = now
	c.ModifiedAt = now
	s.categories[c.ID] = c
	return c, nil
}

func (s *MemoryStore) GetCategory(_ context.Context, id int64) (core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	return c, nil
}

func (s *MemoryStore) UpdateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.categories[c.ID]
	if !ok {
		return fmt.Errorf("category %d: %w", c.ID, core.ErrNotFound)
	}
	existing.Name = c.Name
	existing.ModifiedAt = time.Now().UTC().Truncate(time.Second)
	s.categories[c.ID] = existing
	return nil
}

func (s *MemoryStore) DeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	delete(s.categories, id)
	return nil
}

func (s *MemoryStore) QueryCategories(_ context.Context, accountID int64, f CategoryFilter) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var categories []core.Category
	for _, c := range s.categories {
		if c.AccountID != accountID {
			continue
		}
		if f.CreatedAtContains != "" &&
			!strings.Contains(c.CreatedAt.UTC().Format(core.TimeFormat), f.CreatedAtContains) {
			continue
		}
		categories = append(categories, c)
	}
	return categories, nil
}

func (s *MemoryStore) CreateOutcome(_ context.Context, o core.Outcome) (core.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Truncate(time.Second)
	o.ID = s.allocID()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.ModifiedAt = now
	s.outcomes[o.ID] = o
	return o, nil
}

func (s *MemoryStore) GetOutcome(_ context.Context, id int64) (core.Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.outcomes[id]
	if !ok {
		return core.Outcome{}, fmt.Errorf("outcome %d: %w", id, core.ErrNotFound)
	}
	return o, nil
}

func (s *MemoryStore) UpdateOutcome(_ context.Context, o core.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.outcomes[o.ID]
	if !ok {
		return fmt.Errorf("outcome %d: %w", o.ID, core.ErrNotFound)
	}
	// Amount is the only mutable field; ownership and creation time stay put.
	existing.Amount = o.Amount
	existing.ModifiedAt = time.Now().UTC().Truncate(time.Second)
	s.outcomes[o.ID] = existing
	return nil
}

func (s *MemoryStore) DeleteOutcome(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.outcomes[id]; !ok {
		return fmt.Errorf("outcome %d: %w", id, core.ErrNotFound)
	}
	delete(s.outcomes, id)
	return nil
}

func (s *MemoryStore) QueryOutcomes(_ context.Context, accountID int64, f OutcomeFilter) ([]core.Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var outcomes []core.Outcome
	for _, o := range s.outcomes {
		if o.AccountID != accountID {
			continue
		}
		if f.CategoryID > 0 && o.CategoryID != f.CategoryID {
			continue
		}
		if f.MinCents > 0 && o.Amount.Cents < f.MinCents {
			continue
		}
		if f.MaxCents > 0 && o.Amount.Cents > f.MaxCents {
			continue
		}
		if f.CreatedAtContains != "" &&
			!strings.Contains(o.CreatedAt.UTC().Format(core.TimeFormat), f.CreatedAtContains) {
			continue
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, nil
}
