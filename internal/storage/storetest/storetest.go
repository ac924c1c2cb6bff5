// Package storetest holds behaviour checks shared by every ports.Store
// implementation.
package storetest

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/core"
	"budget/internal/ports"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func record(date core.Date, cash string) core.BalanceRecord {
	return core.BalanceRecord{
		Date:  date,
		Items: []core.BalanceItem{{Name: "Bank", Cash: dec(cash), Card: dec("10.50")}},
		IncomeSources: []core.IncomeSourceRecord{
			{Name: "Salary", Value: dec("500"), Currency: core.UAH, AccrualDay: 10},
		},
		ExpectedExpense: &core.ExpectedExpenseRecord{
			Total1to7: dec("1"), Total8to14: dec("2"), Total15to21: dec("3"), Total22to31: dec("4"),
		},
	}
}

// Run exercises the store returned by newStore. Each subtest gets a fresh store.
func Run(t *testing.T, newStore func(t *testing.T) ports.Store) {
	t.Run("SnapshotRoundTrip", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		saved, err := s.SaveBalanceRecord(ctx, record(core.NewDate(2023, 1, 10), "100"))
		require.NoError(t, err)
		require.NotZero(t, saved.ID)

		got, err := s.FindBalanceRecordByID(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, "2023-01-10", got.Date.String())
		require.Len(t, got.Items, 1)
		assert.True(t, got.Items[0].Cash.Equal(dec("100")))
		assert.True(t, got.Items[0].Card.Equal(dec("10.50")))
		require.Len(t, got.IncomeSources, 1)
		assert.Equal(t, core.UAH, got.IncomeSources[0].Currency)
		assert.Equal(t, 10, got.IncomeSources[0].AccrualDay)
		require.NotNil(t, got.ExpectedExpense)
		assert.True(t, got.ExpectedExpense.Total().Equal(dec("10")))

		byDate, err := s.FindBalanceRecordByDate(ctx, core.NewDate(2023, 1, 10))
		require.NoError(t, err)
		assert.Equal(t, saved.ID, byDate.ID)
	})

	t.Run("DuplicateDate", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		_, err := s.SaveBalanceRecord(ctx, record(core.NewDate(2023, 1, 10), "1"))
		require.NoError(t, err)
		_, err = s.SaveBalanceRecord(ctx, record(core.NewDate(2023, 1, 10), "2"))
		assert.ErrorIs(t, err, core.ErrDuplicateDate)
	})

	t.Run("OrderingQueries", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		_, err := s.FindLatestBalanceRecord(ctx)
		assert.ErrorIs(t, err, core.ErrNotFound)

		for _, d := range []core.Date{core.NewDate(2023, 3, 1), core.NewDate(2023, 1, 1), core.NewDate(2023, 2, 1)} {
			_, err := s.SaveBalanceRecord(ctx, record(d, "1"))
			require.NoError(t, err)
		}

		latest, err := s.FindLatestBalanceRecord(ctx)
		require.NoError(t, err)
		assert.Equal(t, "2023-03-01", latest.Date.String())

		before, err := s.FindBalanceRecordBefore(ctx, core.NewDate(2023, 2, 1))
		require.NoError(t, err)
		assert.Equal(t, "2023-01-01", before.Date.String())

		_, err = s.FindBalanceRecordBefore(ctx, core.NewDate(2023, 1, 1))
		assert.ErrorIs(t, err, core.ErrNotFound)

		between, err := s.FindBalanceRecordsBetween(ctx, core.NewDate(2023, 1, 1), core.NewDate(2023, 2, 1))
		require.NoError(t, err)
		require.Len(t, between, 2)
		assert.Equal(t, "2023-01-01", between[0].Date.String())
		assert.Equal(t, "2023-02-01", between[1].Date.String())
	})

	t.Run("DeleteCascades", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		saved, err := s.SaveBalanceRecord(ctx, record(core.NewDate(2023, 1, 10), "1"))
		require.NoError(t, err)

		require.NoError(t, s.DeleteBalanceRecord(ctx, saved.ID))
		_, err = s.FindBalanceRecordByID(ctx, saved.ID)
		assert.ErrorIs(t, err, core.ErrNotFound)
		assert.ErrorIs(t, s.DeleteBalanceRecord(ctx, saved.ID), core.ErrNotFound)

		// the date is free again
		_, err = s.SaveBalanceRecord(ctx, record(core.NewDate(2023, 1, 10), "1"))
		assert.NoError(t, err)
	})

	t.Run("UpdateExpectedExpense", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		rec := record(core.NewDate(2023, 1, 10), "1")
		rec.ExpectedExpense = nil
		saved, err := s.SaveBalanceRecord(ctx, rec)
		require.NoError(t, err)

		_, err = s.UpdateExpectedExpense(ctx, saved.ID, core.ExpectedExpenseRecord{
			Total1to7: dec("7"), Total8to14: decimal.Zero, Total15to21: decimal.Zero, Total22to31: dec("3"),
		})
		require.NoError(t, err)
		_, err = s.UpdateExpectedExpense(ctx, saved.ID, core.ExpectedExpenseRecord{
			Total1to7: dec("8"), Total8to14: decimal.Zero, Total15to21: decimal.Zero, Total22to31: dec("3"),
		})
		require.NoError(t, err)

		got, err := s.FindBalanceRecordByID(ctx, saved.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ExpectedExpense)
		assert.True(t, got.ExpectedExpense.Total().Equal(dec("11")))

		_, err = s.UpdateExpectedExpense(ctx, saved.ID+1000, core.ExpectedExpenseRecord{})
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("IncomeSources", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		salary, err := s.SaveIncomeSource(ctx, core.IncomeSource{Name: "Salary", Value: dec("1000"), Currency: core.USD, AccrualDay: 5})
		require.NoError(t, err)
		_, err = s.SaveIncomeSource(ctx, core.IncomeSource{Name: "Bonus", Value: dec("50"), Currency: core.EUR, AccrualDay: 20})
		require.NoError(t, err)
		_, err = s.SaveIncomeSource(ctx, core.IncomeSource{Name: "Salary", Value: dec("1"), Currency: core.USD, AccrualDay: 1})
		assert.ErrorIs(t, err, core.ErrDuplicateName)

		salary.Value = dec("1200")
		_, err = s.SaveIncomeSource(ctx, salary)
		require.NoError(t, err)

		list, err := s.ListIncomeSources(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Bonus", list[0].Name)
		assert.True(t, list[1].Value.Equal(dec("1200")))

		require.NoError(t, s.DeleteIncomeSource(ctx, salary.ID))
		assert.ErrorIs(t, s.DeleteIncomeSource(ctx, salary.ID), core.ErrNotFound)
	})

	t.Run("Expenses", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		for _, e := range []core.Expense{
			{Value: dec("10"), Date: core.NewDate(2023, 1, 2), Category: "rent", Regular: true},
			{Value: dec("5.25"), Date: core.NewDate(2023, 1, 20), Category: "food", Note: "lunch"},
			{Value: dec("99"), Date: core.NewDate(2023, 2, 2), Category: "rent", Regular: true},
		} {
			_, err := s.SaveExpense(ctx, e)
			require.NoError(t, err)
		}

		jan, err := s.ListExpensesBetween(ctx, core.NewDate(2023, 1, 1), core.NewDate(2023, 1, 31))
		require.NoError(t, err)
		require.Len(t, jan, 2)
		assert.True(t, jan[0].Regular)
		assert.Equal(t, "lunch", jan[1].Note)
		assert.True(t, jan[1].Value.Equal(dec("5.25")))

		require.NoError(t, s.DeleteExpense(ctx, jan[0].ID))
		assert.ErrorIs(t, s.DeleteExpense(ctx, jan[0].ID), core.ErrNotFound)
	})

	t.Run("PeriodBounds", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		_, _, err := s.LoadBounds(ctx)
		assert.ErrorIs(t, err, core.ErrNotFound)

		require.NoError(t, s.InitBounds(ctx, core.NewDate(2023, 1, 1), core.NewDate(2023, 1, 1)))
		require.NoError(t, s.PersistEndDate(ctx, core.NewDate(2023, 5, 1)))
		require.NoError(t, s.PersistEndDate(ctx, core.NewDate(2023, 3, 1)))

		start, end, err := s.LoadBounds(ctx)
		require.NoError(t, err)
		assert.Equal(t, "2023-01-01", start.String())
		assert.Equal(t, "2023-05-01", end.String())
	})

	t.Run("ExpenseUpdateAndGet", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		saved, err := s.SaveExpense(ctx, core.Expense{Value: dec("10"), Date: core.NewDate(2023, 1, 2), Category: "rent"})
		require.NoError(t, err)

		saved.Value = dec("12.50")
		saved.Date = core.NewDate(2023, 1, 3)
		saved.Regular = true
		saved.Note = "raised"
		_, err = s.UpdateExpense(ctx, saved)
		require.NoError(t, err)

		got, err := s.FindExpenseByID(ctx, saved.ID)
		require.NoError(t, err)
		assert.True(t, got.Value.Equal(dec("12.50")))
		assert.Equal(t, "2023-01-03", got.Date.String())
		assert.True(t, got.Regular)
		assert.Equal(t, "raised", got.Note)

		_, err = s.FindExpenseByID(ctx, saved.ID+100)
		assert.ErrorIs(t, err, core.ErrNotFound)
		missing := saved
		missing.ID += 100
		_, err = s.UpdateExpense(ctx, missing)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("StorageRecords", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		_, err := s.FindLatestStorageRecord(ctx)
		assert.ErrorIs(t, err, core.ErrNotFound)

		for _, d := range []core.Date{core.NewDate(2022, 7, 7), core.NewDate(2022, 6, 6)} {
			_, err := s.SaveStorageRecord(ctx, core.StorageRecord{
				Date: d,
				Items: []core.StorageItem{
					{Name: "Deposit", Value: dec("1000.10"), Currency: core.USD},
					{Name: "Cash", Value: dec("50"), Currency: core.UAH},
				},
			})
			require.NoError(t, err)
		}
		_, err = s.SaveStorageRecord(ctx, core.StorageRecord{
			Date:  core.NewDate(2022, 6, 6),
			Items: []core.StorageItem{{Name: "Cash", Value: dec("1"), Currency: core.UAH}},
		})
		assert.ErrorIs(t, err, core.ErrDuplicateDate)

		latest, err := s.FindLatestStorageRecord(ctx)
		require.NoError(t, err)
		assert.Equal(t, "2022-07-07", latest.Date.String())
		require.Len(t, latest.Items, 2)
		assert.Equal(t, "Deposit", latest.Items[0].Name)
		assert.True(t, latest.Items[0].Value.Equal(dec("1000.10")))
		assert.Equal(t, core.USD, latest.Items[0].Currency)

		byDate, err := s.FindStorageRecordByDate(ctx, core.NewDate(2022, 6, 6))
		require.NoError(t, err)

		between, err := s.FindStorageRecordsBetween(ctx, core.NewDate(2022, 6, 1), core.NewDate(2022, 6, 30))
		require.NoError(t, err)
		require.Len(t, between, 1)
		assert.Equal(t, byDate.ID, between[0].ID)

		require.NoError(t, s.DeleteStorageRecord(ctx, byDate.ID))
		assert.ErrorIs(t, s.DeleteStorageRecord(ctx, byDate.ID), core.ErrNotFound)
		_, err = s.FindStorageRecordByDate(ctx, core.NewDate(2022, 6, 6))
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}
