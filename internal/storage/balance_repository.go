package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"budget/internal/core"
)

// FindBalanceRecordByDate implements ports.SnapshotStore
func (r *SQLiteRepository) FindBalanceRecordByDate(ctx context.Context, date core.Date) (core.BalanceRecord, error) {
	return r.findOneBalanceRecord(ctx, `SELECT id, date FROM balance_records WHERE date = ?`, date.String())
}

// FindBalanceRecordByID implements ports.SnapshotStore
func (r *SQLiteRepository) FindBalanceRecordByID(ctx context.Context, id int64) (core.BalanceRecord, error) {
	return r.findOneBalanceRecord(ctx, `SELECT id, date FROM balance_records WHERE id = ?`, id)
}

// FindLatestBalanceRecord implements ports.SnapshotStore
func (r *SQLiteRepository) FindLatestBalanceRecord(ctx context.Context) (core.BalanceRecord, error) {
	return r.findOneBalanceRecord(ctx, `SELECT id, date FROM balance_records ORDER BY date DESC LIMIT 1`)
}

// FindBalanceRecordBefore implements ports.SnapshotStore
func (r *SQLiteRepository) FindBalanceRecordBefore(ctx context.Context, date core.Date) (core.BalanceRecord, error) {
	return r.findOneBalanceRecord(ctx,
		`SELECT id, date FROM balance_records WHERE date < ? ORDER BY date DESC LIMIT 1`, date.String())
}

// FindBalanceRecordsBetween implements ports.SnapshotStore
func (r *SQLiteRepository) FindBalanceRecordsBetween(ctx context.Context, from, to core.Date) ([]core.BalanceRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date FROM balance_records WHERE date BETWEEN ? AND ? ORDER BY date`,
		from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list balance records: %w", err)
	}
	var records []core.BalanceRecord
	for rows.Next() {
		rec, err := scanBalanceHeader(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate balance records: %w", err)
	}
	rows.Close()

	for i := range records {
		if err := r.loadChildren(ctx, r.db, &records[i]); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// SaveBalanceRecord implements ports.SnapshotStore
func (r *SQLiteRepository) SaveBalanceRecord(ctx context.Context, record core.BalanceRecord) (core.BalanceRecord, error) {
	var saved core.BalanceRecord
	err := r.inTx(ctx, "save balance record", func(tx *sql.Tx) error {
		saved = record
		res, err := tx.ExecContext(ctx, `INSERT INTO balance_records (date) VALUES (?)`, record.Date.String())
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", core.ErrDuplicateDate, record.Date)
			}
			return fmt.Errorf("insert balance record: %w", err)
		}
		if saved.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("balance record id: %w", err)
		}

		saved.Items = make([]core.BalanceItem, len(record.Items))
		for i, item := range record.Items {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO balance_items (balance_record_id, name, cash, card) VALUES (?, ?, ?, ?)`,
				saved.ID, item.Name, item.Cash, item.Card)
			if err != nil {
				return fmt.Errorf("insert balance item %q: %w", item.Name, err)
			}
			item.ID, _ = res.LastInsertId()
			saved.Items[i] = item
		}

		saved.IncomeSources = make([]core.IncomeSourceRecord, len(record.IncomeSources))
		for i, src := range record.IncomeSources {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO income_source_records (balance_record_id, income_source_id, name, value, currency, accrual_day)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				saved.ID, nullableID(src.IncomeSourceID), src.Name, src.Value, string(src.Currency), src.AccrualDay)
			if err != nil {
				return fmt.Errorf("insert income source record %q: %w", src.Name, err)
			}
			src.ID, _ = res.LastInsertId()
			saved.IncomeSources[i] = src
		}

		if record.ExpectedExpense != nil {
			expected, err := upsertExpectedExpense(ctx, tx, saved.ID, *record.ExpectedExpense)
			if err != nil {
				return err
			}
			saved.ExpectedExpense = &expected
		}
		return nil
	})
	if err != nil {
		return core.BalanceRecord{}, err
	}

	slog.InfoContext(ctx, "Balance record saved to SQLite",
		"id", saved.ID,
		"date", saved.Date.String(),
		"items", len(saved.Items),
		"income_sources", len(saved.IncomeSources))

	return saved, nil
}

// UpdateExpectedExpense implements ports.SnapshotStore
func (r *SQLiteRepository) UpdateExpectedExpense(ctx context.Context, recordID int64, expected core.ExpectedExpenseRecord) (core.ExpectedExpenseRecord, error) {
	var saved core.ExpectedExpenseRecord
	err := r.inTx(ctx, "update expected expense", func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM balance_records WHERE id = ?`, recordID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: balance with id %d", core.ErrNotFound, recordID)
		}
		if err != nil {
			return fmt.Errorf("check balance record: %w", err)
		}
		saved, err = upsertExpectedExpense(ctx, tx, recordID, expected)
		return err
	})
	if err != nil {
		return core.ExpectedExpenseRecord{}, err
	}
	slog.InfoContext(ctx, "Expected expense updated", "balance_id", recordID, "total", saved.Total().String())
	return saved, nil
}

// DeleteBalanceRecord implements ports.SnapshotStore
func (r *SQLiteRepository) DeleteBalanceRecord(ctx context.Context, id int64) error {
	err := r.inTx(ctx, "delete balance record", func(tx *sql.Tx) error {
		for _, q := range []string{
			`DELETE FROM balance_items WHERE balance_record_id = ?`,
			`DELETE FROM income_source_records WHERE balance_record_id = ?`,
			`DELETE FROM expected_expense_records WHERE balance_record_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return fmt.Errorf("delete balance children: %w", err)
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM balance_records WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete balance record: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete balance record: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: balance with id %d", core.ErrNotFound, id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Balance record deleted from SQLite", "id", id)
	return nil
}

func (r *SQLiteRepository) findOneBalanceRecord(ctx context.Context, query string, args ...any) (core.BalanceRecord, error) {
	rec, err := scanBalanceHeader(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return core.BalanceRecord{}, core.ErrNotFound
	}
	if err != nil {
		return core.BalanceRecord{}, err
	}
	if err := r.loadChildren(ctx, r.db, &rec); err != nil {
		return core.BalanceRecord{}, err
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBalanceHeader(row rowScanner) (core.BalanceRecord, error) {
	var rec core.BalanceRecord
	var date string
	if err := row.Scan(&rec.ID, &date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan balance record: %w", err)
	}
	d, err := scanDate(date)
	if err != nil {
		return rec, err
	}
	rec.Date = d
	return rec, nil
}

func (r *SQLiteRepository) loadChildren(ctx context.Context, q queryer, rec *core.BalanceRecord) error {
	rows, err := q.QueryContext(ctx,
		`SELECT id, name, cash, card FROM balance_items WHERE balance_record_id = ? ORDER BY id`, rec.ID)
	if err != nil {
		return fmt.Errorf("list balance items: %w", err)
	}
	for rows.Next() {
		var item core.BalanceItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Cash, &item.Card); err != nil {
			rows.Close()
			return fmt.Errorf("scan balance item: %w", err)
		}
		rec.Items = append(rec.Items, item)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate balance items: %w", err)
	}
	rows.Close()

	rows, err = q.QueryContext(ctx,
		`SELECT id, COALESCE(income_source_id, 0), name, value, currency, accrual_day
		 FROM income_source_records WHERE balance_record_id = ? ORDER BY id`, rec.ID)
	if err != nil {
		return fmt.Errorf("list income source records: %w", err)
	}
	for rows.Next() {
		var src core.IncomeSourceRecord
		var currency string
		if err := rows.Scan(&src.ID, &src.IncomeSourceID, &src.Name, &src.Value, &currency, &src.AccrualDay); err != nil {
			rows.Close()
			return fmt.Errorf("scan income source record: %w", err)
		}
		src.Currency = core.Currency(currency)
		rec.IncomeSources = append(rec.IncomeSources, src)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate income source records: %w", err)
	}
	rows.Close()

	var e core.ExpectedExpenseRecord
	err = q.QueryRowContext(ctx,
		`SELECT id, total_1_to_7, total_8_to_14, total_15_to_21, total_22_to_31
		 FROM expected_expense_records WHERE balance_record_id = ?`, rec.ID).
		Scan(&e.ID, &e.Total1to7, &e.Total8to14, &e.Total15to21, &e.Total22to31)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("load expected expense: %w", err)
	default:
		rec.ExpectedExpense = &e
	}
	return nil
}

func upsertExpectedExpense(ctx context.Context, q queryer, recordID int64, e core.ExpectedExpenseRecord) (core.ExpectedExpenseRecord, error) {
	err := q.QueryRowContext(ctx,
		`INSERT INTO expected_expense_records (balance_record_id, total_1_to_7, total_8_to_14, total_15_to_21, total_22_to_31)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(balance_record_id) DO UPDATE SET
		   total_1_to_7 = excluded.total_1_to_7,
		   total_8_to_14 = excluded.total_8_to_14,
		   total_15_to_21 = excluded.total_15_to_21,
		   total_22_to_31 = excluded.total_22_to_31
		 RETURNING id`,
		recordID, e.Total1to7, e.Total8to14, e.Total15to21, e.Total22to31).Scan(&e.ID)
	if err != nil {
		return core.ExpectedExpenseRecord{}, fmt.Errorf("save expected expense: %w", err)
	}
	return e, nil
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
