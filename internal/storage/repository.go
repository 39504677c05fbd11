// Package storage is the sqlite persistence layer. Every expense statement
// carries an owner predicate, so cross-user reads and writes are impossible
// by construction.
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

	"github.com/google/uuid"

	"outgo/internal/core"

	_ "modernc.org/sqlite"
)

// timeLayout is a fixed-width UTC format so stored timestamps compare
// lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
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

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable, for readiness checks.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ---- users ----

func (r *Repository) CreateUser(ctx context.Context, email string, passwordHash []byte) (core.User, error) {
	u := core.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now(),
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, formatTime(u.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, core.ErrEmailTaken
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}

	slog.InfoContext(ctx, "User created", "user_id", u.ID)
	return u, nil
}

func (r *Repository) UserByEmail(ctx context.Context, email string) (core.User, error) {
	var (
		u         core.User
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("select user by email: %w", err)
	}
	u.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return core.User{}, fmt.Errorf("parse user created_at: %w", err)
	}
	return u, nil
}

func (r *Repository) UserByID(ctx context.Context, id string) (core.User, error) {
	var (
		u         core.User
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("select user by id: %w", err)
	}
	u.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return core.User{}, fmt.Errorf("parse user created_at: %w", err)
	}
	return u, nil
}

func (r *Repository) UpdateUserPassword(ctx context.Context, userID string, passwordHash []byte) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user password: rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ---- expenses ----

const expenseColumns = `id, user_id, name, amount_cents, date, description, created_at`

func (r *Repository) CreateExpense(ctx context.Context, owner string, e core.Expense) (core.Expense, error) {
	e.ID = uuid.NewString()
	e.UserID = owner
	e.Date = e.Date.UTC().Truncate(time.Microsecond)
	e.CreatedAt = now()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Name, e.Amount.Cents, formatTime(e.Date), e.Description, formatTime(e.CreatedAt))
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"expense_id", e.ID,
		"expense_name", e.Name,
		"amount_cents", e.Amount.Cents)

	return e, nil
}

func (r *Repository) GetExpense(ctx context.Context, owner, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ? AND user_id = ?`, id, owner)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("select expense: %w", err)
	}
	return e, nil
}

func (r *Repository) UpdateExpense(ctx context.Context, owner, id string, patch core.ExpensePatch) (core.Expense, error) {
	var (
		sets []string
		args []any
	)
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Amount != nil {
		sets = append(sets, "amount_cents = ?")
		args = append(args, patch.Amount.Cents)
	}
	if patch.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, formatTime(patch.Date.UTC().Truncate(time.Microsecond)))
	}
	if patch.DescriptionSet {
		sets = append(sets, "description = ?")
		args = append(args, patch.Description)
	}
	if len(sets) == 0 {
		return core.Expense{}, fmt.Errorf("update expense: empty patch")
	}

	args = append(args, id, owner)
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET `+strings.Join(sets, ", ")+` WHERE id = ? AND user_id = ?`, args...)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: rows affected: %w", err)
	}
	if affected == 0 {
		return core.Expense{}, core.ErrNotFound
	}

	return r.GetExpense(ctx, owner, id)
}

func (r *Repository) DeleteExpense(ctx context.Context, owner, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense: rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}

	slog.InfoContext(ctx, "Expense deleted", "expense_id", id)
	return nil
}

// ListExpenses returns one page of rows plus the exact total for the same
// filter. The end bound is made inclusive by filtering before the following
// midnight. The id column breaks sort ties so pages never overlap.
func (r *Repository) ListExpenses(ctx context.Context, owner string, q core.ListQuery) ([]core.Expense, int, error) {
	where := []string{"user_id = ?"}
	args := []any{owner}
	if q.StartDate != nil {
		where = append(where, "date >= ?")
		args = append(args, formatTime(*q.StartDate))
	}
	if q.EndDate != nil {
		where = append(where, "date < ?")
		args = append(args, formatTime(q.EndDate.Add(24*time.Hour)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expenses WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count expenses: %w", err)
	}

	sortCol := "date"
	if q.SortBy == core.SortByAmount {
		sortCol = "amount_cents"
	}
	dir := "DESC"
	if q.Order == core.OrderAsc {
		dir = "ASC"
	}

	query := fmt.Sprintf(
		`SELECT %s FROM expenses WHERE %s ORDER BY %s %s, id ASC LIMIT ? OFFSET ?`,
		expenseColumns, cond, sortCol, dir)
	args = append(args, q.Limit, (q.Page-1)*q.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("select expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate expenses: %w", err)
	}

	return expenses, total, nil
}

// ---- dashboard queries ----

func (r *Repository) SumExpenses(ctx context.Context, owner string) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM expenses WHERE user_id = ?`, owner).
		Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum expenses: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// SumExpensesBetween totals amounts with date in [from, to).
func (r *Repository) SumExpensesBetween(ctx context.Context, owner string, from, to time.Time) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM expenses
		 WHERE user_id = ? AND date >= ? AND date < ?`,
		owner, formatTime(from), formatTime(to)).
		Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum expenses between: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

func (r *Repository) TopExpenses(ctx context.Context, owner string, n int) ([]core.TopExpense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, amount_cents, date FROM expenses
		 WHERE user_id = ? ORDER BY amount_cents DESC, id ASC LIMIT ?`, owner, n)
	if err != nil {
		return nil, fmt.Errorf("select top expenses: %w", err)
	}
	defer rows.Close()

	var top []core.TopExpense
	for rows.Next() {
		var (
			t    core.TopExpense
			date string
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Amount.Cents, &date); err != nil {
			return nil, fmt.Errorf("scan top expense: %w", err)
		}
		if t.Date, err = parseTime(date); err != nil {
			return nil, fmt.Errorf("parse top expense date: %w", err)
		}
		top = append(top, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top expenses: %w", err)
	}
	return top, nil
}

// DatedAmount is the minimal projection the monthly bucketing needs.
type DatedAmount struct {
	Date   time.Time
	Amount core.Money
}

func (r *Repository) AmountsByDateSince(ctx context.Context, owner string, from time.Time) ([]DatedAmount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT amount_cents, date FROM expenses
		 WHERE user_id = ? AND date >= ? ORDER BY date ASC`, owner, formatTime(from))
	if err != nil {
		return nil, fmt.Errorf("select amounts by date: %w", err)
	}
	defer rows.Close()

	var amounts []DatedAmount
	for rows.Next() {
		var (
			a    DatedAmount
			date string
		)
		if err := rows.Scan(&a.Amount.Cents, &date); err != nil {
			return nil, fmt.Errorf("scan amount: %w", err)
		}
		if a.Date, err = parseTime(date); err != nil {
			return nil, fmt.Errorf("parse amount date: %w", err)
		}
		amounts = append(amounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate amounts: %w", err)
	}
	return amounts, nil
}

// ---- helpers ----

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e               core.Expense
		date, createdAt string
	)
	if err := s.Scan(&e.ID, &e.UserID, &e.Name, &e.Amount.Cents, &date, &e.Description, &createdAt); err != nil {
		return core.Expense{}, err
	}
	var err error
	if e.Date, err = parseTime(date); err != nil {
		return core.Expense{}, fmt.Errorf("parse date: %w", err)
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Expense{}, fmt.Errorf("parse created_at: %w", err)
	}
	return e, nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
