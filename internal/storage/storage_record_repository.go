package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"budget/internal/core"
)

// FindStorageRecordByDate implements ports.StorageRecordStore
func (r *SQLiteRepository) FindStorageRecordByDate(ctx context.Context, date core.Date) (core.StorageRecord, error) {
	return r.findOneStorageRecord(ctx, `SELECT id, date FROM storage_records WHERE date = ?`, date.String())
}

// FindLatestStorageRecord implements ports.StorageRecordStore
func (r *SQLiteRepository) FindLatestStorageRecord(ctx context.Context) (core.StorageRecord, error) {
	return r.findOneStorageRecord(ctx, `SELECT id, date FROM storage_records ORDER BY date DESC LIMIT 1`)
}

// FindStorageRecordsBetween implements ports.StorageRecordStore
func (r *SQLiteRepository) FindStorageRecordsBetween(ctx context.Context, from, to core.Date) ([]core.StorageRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date FROM storage_records WHERE date BETWEEN ? AND ? ORDER BY date`,
		from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list storage records: %w", err)
	}
	var records []core.StorageRecord
	for rows.Next() {
		rec, err := scanStorageHeader(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate storage records: %w", err)
	}
	rows.Close()

	for i := range records {
		if err := r.loadStorageItems(ctx, &records[i]); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// SaveStorageRecord implements ports.StorageRecordStore
func (r *SQLiteRepository) SaveStorageRecord(ctx context.Context, record core.StorageRecord) (core.StorageRecord, error) {
	var saved core.StorageRecord
	err := r.inTx(ctx, "save storage record", func(tx *sql.Tx) error {
		saved = record
		res, err := tx.ExecContext(ctx, `INSERT INTO storage_records (date) VALUES (?)`, record.Date.String())
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", core.ErrDuplicateDate, record.Date)
			}
			return fmt.Errorf("insert storage record: %w", err)
		}
		if saved.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("storage record id: %w", err)
		}

		saved.Items = make([]core.StorageItem, len(record.Items))
		for i, item := range record.Items {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO storage_items (storage_record_id, name, value, currency) VALUES (?, ?, ?, ?)`,
				saved.ID, item.Name, item.Value, string(item.Currency))
			if err != nil {
				return fmt.Errorf("insert storage item %q: %w", item.Name, err)
			}
			item.ID, _ = res.LastInsertId()
			saved.Items[i] = item
		}
		return nil
	})
	if err != nil {
		return core.StorageRecord{}, err
	}

	slog.InfoContext(ctx, "Storage record saved to SQLite",
		"id", saved.ID,
		"date", saved.Date.String(),
		"items", len(saved.Items))
	return saved, nil
}

// DeleteStorageRecord implements ports.StorageRecordStore
func (r *SQLiteRepository) DeleteStorageRecord(ctx context.Context, id int64) error {
	err := r.inTx(ctx, "delete storage record", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM storage_items WHERE storage_record_id = ?`, id); err != nil {
			return fmt.Errorf("delete storage items: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM storage_records WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete storage record: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: storage record with id %d", core.ErrNotFound, id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Storage record deleted from SQLite", "id", id)
	return nil
}

func (r *SQLiteRepository) findOneStorageRecord(ctx context.Context, query string, args ...any) (core.StorageRecord, error) {
	rec, err := scanStorageHeader(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return core.StorageRecord{}, core.ErrNotFound
	}
	if err != nil {
		return core.StorageRecord{}, err
	}
	if err := r.loadStorageItems(ctx, &rec); err != nil {
		return core.StorageRecord{}, err
	}
	return rec, nil
}

func scanStorageHeader(row rowScanner) (core.StorageRecord, error) {
	var rec core.StorageRecord
	var date string
	if err := row.Scan(&rec.ID, &date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan storage record: %w", err)
	}
	d, err := scanDate(date)
	if err != nil {
		return rec, err
	}
	rec.Date = d
	return rec, nil
}

func (r *SQLiteRepository) loadStorageItems(ctx context.Context, rec *core.StorageRecord) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, value, currency FROM storage_items WHERE storage_record_id = ? ORDER BY id`, rec.ID)
	if err != nil {
		return fmt.Errorf("list storage items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item core.StorageItem
		var currency string
		if err := rows.Scan(&item.ID, &item.Name, &item.Value, &currency); err != nil {
			return fmt.Errorf("scan storage item: %w", err)
		}
		item.Currency = core.Currency(currency)
		rec.Items = append(rec.Items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate storage items: %w", err)
	}
	return nil
}
