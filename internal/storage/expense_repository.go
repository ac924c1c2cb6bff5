package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"budget/internal/core"
)

// SaveExpense implements ports.ExpenseStore
func (r *SQLiteRepository) SaveExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := withRetry(ctx, r.retry, "save expense", func(ctx context.Context) (sql.Result, error) {
		return r.db.ExecContext(ctx,
			`INSERT INTO expenses (value, date, category, regular, note) VALUES (?, ?, ?, ?, ?)`,
			e.Value, e.Date.String(), e.Category, e.Regular, e.Note)
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return core.Expense{}, fmt.Errorf("expense id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"value", e.Value.String(),
		"date", e.Date.String(),
		"category", e.Category,
		"regular", e.Regular)

	return e, nil
}

// FindExpenseByID implements ports.ExpenseStore
func (r *SQLiteRepository) FindExpenseByID(ctx context.Context, id int64) (core.Expense, error) {
	var e core.Expense
	var date string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, value, date, category, regular, note FROM expenses WHERE id = ?`, id).
		Scan(&e.ID, &e.Value, &date, &e.Category, &e.Regular, &e.Note)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("%w: expense with id %d", core.ErrNotFound, id)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	if e.Date, err = scanDate(date); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

// UpdateExpense implements ports.ExpenseStore
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := withRetry(ctx, r.retry, "update expense", func(ctx context.Context) (sql.Result, error) {
		return r.db.ExecContext(ctx,
			`UPDATE expenses SET value = ?, date = ?, category = ?, regular = ?, note = ? WHERE id = ?`,
			e.Value, e.Date.String(), e.Category, e.Regular, e.Note, e.ID)
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.Expense{}, fmt.Errorf("%w: expense with id %d", core.ErrNotFound, e.ID)
	}
	slog.InfoContext(ctx, "Expense updated in SQLite", "id", e.ID, "date", e.Date.String())
	return e, nil
}

// DeleteExpense implements ports.ExpenseStore
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := withRetry(ctx, r.retry, "delete expense", func(ctx context.Context) (sql.Result, error) {
		return r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	})
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: expense with id %d", core.ErrNotFound, id)
	}
	slog.InfoContext(ctx, "Expense deleted from SQLite", "id", id)
	return nil
}

// ListExpensesBetween implements ports.ExpenseStore
func (r *SQLiteRepository) ListExpensesBetween(ctx context.Context, from, to core.Date) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, value, date, category, regular, note FROM expenses
		 WHERE date BETWEEN ? AND ? ORDER BY date, id`,
		from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var e core.Expense
		var date string
		if err := rows.Scan(&e.ID, &e.Value, &date, &e.Category, &e.Regular, &e.Note); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.Date, err = scanDate(date); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}
