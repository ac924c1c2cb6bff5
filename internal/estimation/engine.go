package estimation

import "budget/internal/core"

// Estimate computes the end-of-month estimate as of the snapshot's own date,
// so a historical snapshot always reproduces the estimate it had when taken.
func Estimate(record core.BalanceRecord) core.BalanceEstimate {
	return EstimateAt(record, record.Date)
}

// EstimateAt computes the estimate using ref as the reference day.
//
// The snapshot's expected expense record was derived from the preceding
// snapshot when it was saved, so it already is the forecast history for the
// current month.
func EstimateAt(record core.BalanceRecord, ref core.Date) core.BalanceEstimate {
	previous := record.TotalBalance()
	income := ProjectedByEndOfMonth(record.IncomeSources)
	expected := CurrentMonthExpected(record.ExpectedExpense, ref)

	return core.BalanceEstimate{
		PreviousTotal:       previous,
		IncomeByEndOfMonth:  income,
		IncomeReceived:      AccruedByReference(record.IncomeSources, ref),
		ExpenseByEndOfMonth: expected.Total,
		ExpenseRemaining:    expected.Remaining(ref),
		ProfitByEndOfMonth:  income.Add(previous).Sub(expected.Total),
		EndOfMonthDate:      LastDayOfMonth(record.Date),
	}
}

// WithEstimate attaches the estimate to a snapshot.
func WithEstimate(record core.BalanceRecord) core.EstimatedBalanceRecord {
	return core.EstimatedBalanceRecord{BalanceRecord: record, Estimate: Estimate(record)}
}
