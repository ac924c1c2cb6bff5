package estimation

import (
	"github.com/shopspring/decimal"

	"budget/internal/core"
)

// AccruedByReference sums the sources whose accrual day has been reached on
// today. Accrual days beyond the end of the month count as the last day.
func AccruedByReference(sources []core.IncomeSourceRecord, today core.Date) decimal.Decimal {
	last := DaysInMonth(today)
	total := decimal.Zero
	for _, s := range sources {
		day := s.AccrualDay
		if day > last {
			day = last
		}
		if day <= today.Day() {
			total = total.Add(s.Value)
		}
	}
	return total
}

// ProjectedByEndOfMonth is the full monthly income: every source accrues by
// the last day of the month.
func ProjectedByEndOfMonth(sources []core.IncomeSourceRecord) decimal.Decimal {
	total := decimal.Zero
	for _, s := range sources {
		total = total.Add(s.Value)
	}
	return total
}
