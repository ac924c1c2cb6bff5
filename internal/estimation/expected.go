package estimation

import (
	"github.com/shopspring/decimal"

	"budget/internal/core"
)

// ExpectedExpense is the bucketed recurring spend expected in a month.
type ExpectedExpense struct {
	Buckets [4]decimal.Decimal
	Total   decimal.Decimal
}

// CurrentMonthExpected projects the previous snapshot's bucket totals onto
// the month of today. A nil record means no history and yields zero.
// Buckets before today are kept: the total covers the whole month.
func CurrentMonthExpected(previous *core.ExpectedExpenseRecord, today core.Date) ExpectedExpense {
	var e ExpectedExpense
	for i := range e.Buckets {
		e.Buckets[i] = decimal.Zero
	}
	e.Total = decimal.Zero
	if previous == nil {
		return e
	}
	e.Buckets = [4]decimal.Decimal{
		previous.Total1to7,
		previous.Total8to14,
		previous.Total15to21,
		previous.Total22to31,
	}
	for _, v := range e.Buckets {
		e.Total = e.Total.Add(v)
	}
	return e
}

// Bucket returns the amount expected in b.
func (e ExpectedExpense) Bucket(b Bucket) decimal.Decimal {
	return e.Buckets[b]
}

// Remaining sums the buckets that start after the bucket containing today.
func (e ExpectedExpense) Remaining(today core.Date) decimal.Decimal {
	current := BucketOfDate(today)
	total := decimal.Zero
	for _, b := range Buckets {
		if b > current {
			total = total.Add(e.Buckets[b])
		}
	}
	return total
}

// Record converts the projection into a persistable record.
func (e ExpectedExpense) Record() core.ExpectedExpenseRecord {
	return core.ExpectedExpenseRecord{
		Total1to7:   e.Buckets[Bucket1to7],
		Total8to14:  e.Buckets[Bucket8to14],
		Total15to21: e.Buckets[Bucket15to21],
		Total22to31: e.Buckets[Bucket22toEnd],
	}
}

// BucketTotals groups regular expenses by the bucket of their date.
// Non-regular expenses are ignored.
func BucketTotals(expenses []core.Expense) core.ExpectedExpenseRecord {
	var sums [4]decimal.Decimal
	for i := range sums {
		sums[i] = decimal.Zero
	}
	for _, e := range expenses {
		if !e.Regular {
			continue
		}
		b := BucketOfDate(e.Date)
		sums[b] = sums[b].Add(e.Value)
	}
	return core.ExpectedExpenseRecord{
		Total1to7:   sums[Bucket1to7],
		Total8to14:  sums[Bucket8to14],
		Total15to21: sums[Bucket15to21],
		Total22to31: sums[Bucket22toEnd],
	}
}
