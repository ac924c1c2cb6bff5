// Package ports defines the storage contracts the budget services depend on.
// Implementations report missing rows with core.ErrNotFound.
package ports

import (
	"context"

	"budget/internal/core"
)

// SnapshotStore persists balance records together with the children they own.
type SnapshotStore interface {
	FindBalanceRecordByDate(ctx context.Context, date core.Date) (core.BalanceRecord, error)
	FindBalanceRecordByID(ctx context.Context, id int64) (core.BalanceRecord, error)
	FindLatestBalanceRecord(ctx context.Context) (core.BalanceRecord, error)
	// FindBalanceRecordBefore returns the most recent record strictly before date.
	FindBalanceRecordBefore(ctx context.Context, date core.Date) (core.BalanceRecord, error)
	// FindBalanceRecordsBetween returns records in [from, to] ordered by date.
	FindBalanceRecordsBetween(ctx context.Context, from, to core.Date) ([]core.BalanceRecord, error)
	// SaveBalanceRecord stores the record and its children atomically and
	// returns it with identifiers assigned. A taken date yields core.ErrDuplicateDate.
	SaveBalanceRecord(ctx context.Context, record core.BalanceRecord) (core.BalanceRecord, error)
	UpdateExpectedExpense(ctx context.Context, recordID int64, expected core.ExpectedExpenseRecord) (core.ExpectedExpenseRecord, error)
	// DeleteBalanceRecord removes the record and all of its children atomically.
	DeleteBalanceRecord(ctx context.Context, id int64) error
}

type IncomeSourceStore interface {
	ListIncomeSources(ctx context.Context) ([]core.IncomeSource, error)
	SaveIncomeSource(ctx context.Context, source core.IncomeSource) (core.IncomeSource, error)
	DeleteIncomeSource(ctx context.Context, id int64) error
}

type ExpenseStore interface {
	SaveExpense(ctx context.Context, expense core.Expense) (core.Expense, error)
	FindExpenseByID(ctx context.Context, id int64) (core.Expense, error)
	// UpdateExpense overwrites the expense with expense.ID.
	UpdateExpense(ctx context.Context, expense core.Expense) (core.Expense, error)
	DeleteExpense(ctx context.Context, id int64) error
	// ListExpensesBetween returns expenses in [from, to] ordered by date.
	ListExpensesBetween(ctx context.Context, from, to core.Date) ([]core.Expense, error)
}

// StorageRecordStore persists storage records with their items.
type StorageRecordStore interface {
	FindStorageRecordByDate(ctx context.Context, date core.Date) (core.StorageRecord, error)
	FindLatestStorageRecord(ctx context.Context) (core.StorageRecord, error)
	// FindStorageRecordsBetween returns records in [from, to] ordered by date.
	FindStorageRecordsBetween(ctx context.Context, from, to core.Date) ([]core.StorageRecord, error)
	// SaveStorageRecord yields core.ErrDuplicateDate for a taken date.
	SaveStorageRecord(ctx context.Context, record core.StorageRecord) (core.StorageRecord, error)
	DeleteStorageRecord(ctx context.Context, id int64) error
}

// PeriodStore persists the bounds of the budget period.
type PeriodStore interface {
	// LoadBounds returns core.ErrNotFound when no bounds were ever stored.
	LoadBounds(ctx context.Context) (start, end core.Date, err error)
	InitBounds(ctx context.Context, start, end core.Date) error
	PersistEndDate(ctx context.Context, end core.Date) error
}

// Store bundles every contract; both backends implement it.
type Store interface {
	SnapshotStore
	IncomeSourceStore
	ExpenseStore
	StorageRecordStore
	PeriodStore
	Close() error
}
