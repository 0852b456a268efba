package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"budgetplanner/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the durable Store implementation backed by SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Timestamps are stored as text in the canonical rendering so that the
// created-at substring filters can run directly in SQL with LIKE.
func formatTime(t time.Time) string {
	return t.UTC().Format(core.TimeFormat)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(core.TimeFormat, s)
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	now := time.Now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (username, phone_number, balance_cents, deposited_cents, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.Username, a.PhoneNumber, a.Balance.Cents, a.Deposited.Cents, formatTime(now), formatTime(now))
	if err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Account{}, fmt.Errorf("account insert id: %w", err)
	}
	a.ID = id
	a.CreatedAt = now
	a.ModifiedAt = now

	slog.InfoContext(ctx, "Account created", "id", a.ID, "username", a.Username)
	return a, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	var (
		a                     core.Account
		createdAt, modifiedAt string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, phone_number, balance_cents, deposited_cents, created_at, modified_at
		FROM accounts WHERE id = ?`, id).Scan(
		&a.ID, &a.Username, &a.PhoneNumber, &a.Balance.Cents, &a.Deposited.Cents, &createdAt, &modifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("query account: %w", err)
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Account{}, fmt.Errorf("parse account created_at: %w", err)
	}
	if a.ModifiedAt, err = parseTime(modifiedAt); err != nil {
		return core.Account{}, fmt.Errorf("parse account modified_at: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) SaveAccount(ctx context.Context, a core.Account) error {
	now := time.Now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET username = ?, phone_number = ?, balance_cents = ?, deposited_cents = ?, modified_at = ?
		WHERE id = ?`,
		a.Username, a.PhoneNumber, a.Balance.Cents, a.Deposited.Cents, formatTime(now), a.ID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("account rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("account %d: %w", a.ID, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Account saved", "id", a.ID, "balance_cents", a.Balance.Cents)
	return nil
}

func (r *SQLiteRepository) ListAccountIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query account ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan account id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate account ids: %w", err)
	}
	return ids, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	now := time.Now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (account_id, name, created_at, modified_at)
		VALUES (?, ?, ?, ?)`,
		c.AccountID, c.Name, formatTime(now), formatTime(now))
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("category insert id: %w", err)
	}
	c.ID = id
	c.CreatedAt = now
	c.ModifiedAt = now

	slog.InfoContext(ctx, "Category created", "id", c.ID, "account_id", c.AccountID, "name", c.Name)
	return c, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	var (
		c                     core.Category
		createdAt, modifiedAt string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, name, created_at, modified_at
		FROM categories WHERE id = ?`, id).Scan(
		&c.ID, &c.AccountID, &c.Name, &createdAt, &modifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("query category: %w", err)
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Category{}, fmt.Errorf("parse category created_at: %w", err)
	}
	if c.ModifiedAt, err = parseTime(modifiedAt); err != nil {
		return core.Category{}, fmt.Errorf("parse category modified_at: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	now := time.Now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx, `
		UPDATE categories SET name = ?, modified_at = ? WHERE id = ?`,
		c.Name, formatTime(now), c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("category rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("category %d: %w", c.ID, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Category updated", "id", c.ID, "name", c.Name)
	return nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("category rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Category deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) QueryCategories(ctx context.Context, accountID int64, f CategoryFilter) ([]core.Category, error) {
	query := `
		SELECT id, account_id, name, created_at, modified_at
		FROM categories
		WHERE account_id = ?`
	args := []any{accountID}

	if f.CreatedAtContains != "" {
		query += ` AND created_at LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(f.CreatedAtContains)+"%")
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var (
			c                     core.Category
			createdAt, modifiedAt string
		)
		if err := rows.Scan(&c.ID, &c.AccountID, &c.Name, &createdAt, &modifiedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse category created_at: %w", err)
		}
		if c.ModifiedAt, err = parseTime(modifiedAt); err != nil {
			return nil, fmt.Errorf("parse category modified_at: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	slog.DebugContext(ctx, "Queried categories", "account_id", accountID, "count", len(categories))
	return categories, nil
}

func (r *SQLiteRepository) CreateOutcome(ctx context.Context, o core.Outcome) (core.Outcome, error) {
	now := time.Now().UTC().Truncate(time.Second)
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO outcomes (account_id, category_id, amount_cents, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?)`,
		o.AccountID, o.CategoryID, o.Amount.Cents, formatTime(o.CreatedAt), formatTime(now))
	if err != nil {
		return core.Outcome{}, fmt.Errorf("insert outcome: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Outcome{}, fmt.Errorf("outcome insert id: %w", err)
	}
	o.ID = id
	o.ModifiedAt = now

	slog.InfoContext(ctx, "Outcome created",
		"id", o.ID,
		"account_id", o.AccountID,
		"category_id", o.CategoryID,
		"amount_cents", o.Amount.Cents)
	return o, nil
}

func (r *SQLiteRepository) GetOutcome(ctx context.Context, id int64) (core.Outcome, error) {
	var (
		o                     core.Outcome
		createdAt, modifiedAt string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, category_id, amount_cents, created_at, modified_at
		FROM outcomes WHERE id = ?`, id).Scan(
		&o.ID, &o.AccountID, &o.CategoryID, &o.Amount.Cents, &createdAt, &modifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Outcome{}, fmt.Errorf("outcome %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Outcome{}, fmt.Errorf("query outcome: %w", err)
	}
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Outcome{}, fmt.Errorf("parse outcome created_at: %w", err)
	}
	if o.ModifiedAt, err = parseTime(modifiedAt); err != nil {
		return core.Outcome{}, fmt.Errorf("parse outcome modified_at: %w", err)
	}
	return o, nil
}

// UpdateOutcome rewrites the amount only. Owning account, category and the
// creation timestamp are immutable once set.
func (r *SQLiteRepository) UpdateOutcome(ctx context.Context, o core.Outcome) error {
	now := time.Now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx, `
		UPDATE outcomes SET amount_cents = ?, modified_at = ? WHERE id = ?`,
		o.Amount.Cents, formatTime(now), o.ID)
	if err != nil {
		return fmt.Errorf("update outcome: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("outcome rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("outcome %d: %w", o.ID, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Outcome updated", "id", o.ID, "amount_cents", o.Amount.Cents)
	return nil
}

func (r *SQLiteRepository) DeleteOutcome(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM outcomes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete outcome: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("outcome rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("outcome %d: %w", id, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Outcome deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) QueryOutcomes(ctx context.Context, accountID int64, f OutcomeFilter) ([]core.Outcome, error) {
	query := `
		SELECT id, account_id, category_id, amount_cents, created_at, modified_at
		FROM outcomes
		WHERE account_id = ?`
	args := []any{accountID}

	if f.CategoryID > 0 {
		query += ` AND category_id = ?`
		args = append(args, f.CategoryID)
	}
	if f.MinCents > 0 {
		query += ` AND amount_cents >= ?`
		args = append(args, f.MinCents)
	}
	if f.MaxCents > 0 {
		query += ` AND amount_cents <= ?`
		args = append(args, f.MaxCents)
	}
	if f.CreatedAtContains != "" {
		query += ` AND created_at LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(f.CreatedAtContains)+"%")
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []core.Outcome
	for rows.Next() {
		var (
			o                     core.Outcome
			createdAt, modifiedAt string
		)
		if err := rows.Scan(&o.ID, &o.AccountID, &o.CategoryID, &o.Amount.Cents, &createdAt, &modifiedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		if o.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse outcome created_at: %w", err)
		}
		if o.ModifiedAt, err = parseTime(modifiedAt); err != nil {
			return nil, fmt.Errorf("parse outcome modified_at: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}

	slog.DebugContext(ctx, "Queried outcomes", "account_id", accountID, "count", len(outcomes))
	return outcomes, nil
}

// escapeLike escapes LIKE wildcards in user-supplied substrings. The
// created-at filter is a literal substring match, never a pattern.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}
