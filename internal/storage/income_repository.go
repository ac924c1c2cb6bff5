package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"budget/internal/core"
)

// ListIncomeSources implements ports.IncomeSourceStore
func (r *SQLiteRepository) ListIncomeSources(ctx context.Context) ([]core.IncomeSource, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, value, currency, accrual_day FROM income_sources ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list income sources: %w", err)
	}
	defer rows.Close()

	var sources []core.IncomeSource
	for rows.Next() {
		var s core.IncomeSource
		var currency string
		if err := rows.Scan(&s.ID, &s.Name, &s.Value, &currency, &s.AccrualDay); err != nil {
			return nil, fmt.Errorf("scan income source: %w", err)
		}
		s.Currency = core.Currency(currency)
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate income sources: %w", err)
	}
	return sources, nil
}

// SaveIncomeSource implements ports.IncomeSourceStore. A zero ID inserts,
// any other ID updates the existing row.
func (r *SQLiteRepository) SaveIncomeSource(ctx context.Context, s core.IncomeSource) (core.IncomeSource, error) {
	saved, err := withRetry(ctx, r.retry, "save income source", func(ctx context.Context) (core.IncomeSource, error) {
		if s.ID == 0 {
			res, err := r.db.ExecContext(ctx,
				`INSERT INTO income_sources (name, value, currency, accrual_day) VALUES (?, ?, ?, ?)`,
				s.Name, s.Value, string(s.Currency), s.AccrualDay)
			if err != nil {
				return s, err
			}
			out := s
			out.ID, err = res.LastInsertId()
			return out, err
		}
		res, err := r.db.ExecContext(ctx,
			`UPDATE income_sources SET name = ?, value = ?, currency = ?, accrual_day = ? WHERE id = ?`,
			s.Name, s.Value, string(s.Currency), s.AccrualDay, s.ID)
		if err != nil {
			return s, err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return s, fmt.Errorf("%w: income source with id %d", core.ErrNotFound, s.ID)
		}
		return s, nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return core.IncomeSource{}, fmt.Errorf("%w: %q", core.ErrDuplicateName, s.Name)
		}
		return core.IncomeSource{}, fmt.Errorf("save income source: %w", err)
	}

	slog.InfoContext(ctx, "Income source saved to SQLite",
		"id", saved.ID,
		"name", saved.Name,
		"value", saved.Value.String(),
		"accrual_day", saved.AccrualDay)
	return saved, nil
}

// DeleteIncomeSource implements ports.IncomeSourceStore
func (r *SQLiteRepository) DeleteIncomeSource(ctx context.Context, id int64) error {
	res, err := withRetry(ctx, r.retry, "delete income source", func(ctx context.Context) (sql.Result, error) {
		return r.db.ExecContext(ctx, `DELETE FROM income_sources WHERE id = ?`, id)
	})
	if err != nil {
		return fmt.Errorf("delete income source: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: income source with id %d", core.ErrNotFound, id)
	}
	slog.InfoContext(ctx, "Income source deleted from SQLite", "id", id)
	return nil
}
