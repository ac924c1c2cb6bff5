package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"budget/internal/core"
	"budget/internal/ports"

	_ "modernc.org/sqlite"
)

var _ ports.Store = (*SQLiteRepository)(nil)

// SQLiteRepository implements every store contract on one SQLite database.
type SQLiteRepository struct {
	db    *sql.DB
	retry retryConfig
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, retry: defaultRetryConfig}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// inTx runs fn in a transaction, retried as a whole while the database is busy.
func (r *SQLiteRepository) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	_, err := withRetry(ctx, r.retry, op, func(ctx context.Context) (struct{}, error) {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return struct{}{}, fmt.Errorf("begin transaction: %w", err)
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return struct{}{}, err
		}
		if err := tx.Commit(); err != nil {
			return struct{}{}, fmt.Errorf("commit transaction: %w", err)
		}
		return struct{}{}, nil
	})
	return err
}

// LoadBounds implements ports.PeriodStore
func (r *SQLiteRepository) LoadBounds(ctx context.Context) (core.Date, core.Date, error) {
	var start, end string
	err := r.db.QueryRowContext(ctx, `SELECT start_date, end_date FROM budget_period WHERE id = 1`).Scan(&start, &end)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Date{}, core.Date{}, core.ErrNotFound
	}
	if err != nil {
		return core.Date{}, core.Date{}, fmt.Errorf("load budget period: %w", err)
	}
	s, err := core.ParseDate(start)
	if err != nil {
		return core.Date{}, core.Date{}, fmt.Errorf("parse start date: %w", err)
	}
	e, err := core.ParseDate(end)
	if err != nil {
		return core.Date{}, core.Date{}, fmt.Errorf("parse end date: %w", err)
	}
	return s, e, nil
}

// InitBounds implements ports.PeriodStore
func (r *SQLiteRepository) InitBounds(ctx context.Context, start, end core.Date) error {
	_, err := withRetry(ctx, r.retry, "init budget period", func(ctx context.Context) (sql.Result, error) {
		return r.db.ExecContext(ctx,
			`INSERT INTO budget_period (id, start_date, end_date) VALUES (1, ?, ?)
			 ON CONFLICT(id) DO NOTHING`,
			start.String(), end.String())
	})
	if err != nil {
		return fmt.Errorf("init budget period: %w", err)
	}
	slog.InfoContext(ctx, "Budget period stored", "start", start.String(), "end", end.String())
	return nil
}

// PersistEndDate implements ports.PeriodStore. The stored end never moves back.
func (r *SQLiteRepository) PersistEndDate(ctx context.Context, end core.Date) error {
	res, err := withRetry(ctx, r.retry, "persist budget period end", func(ctx context.Context) (sql.Result, error) {
		return r.db.ExecContext(ctx,
			`UPDATE budget_period SET end_date = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = 1 AND end_date < ?`,
			end.String(), end.String())
	})
	if err != nil {
		return fmt.Errorf("persist budget period end: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		slog.DebugContext(ctx, "Budget period end already covers date", "end", end.String())
	}
	return nil
}

func scanDate(s string) (core.Date, error) {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, fmt.Errorf("stored date %q: %w", s, err)
	}
	return d, nil
}
