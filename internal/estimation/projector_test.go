package estimation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"budget/internal/core"
)

func TestAccruedByReference(t *testing.T) {
	sources := []core.IncomeSourceRecord{
		{Value: dec("100"), AccrualDay: 1},
		{Value: dec("200"), AccrualDay: 15},
		{Value: dec("400"), AccrualDay: 28},
	}
	cases := []struct {
		today core.Date
		want  string
	}{
		{core.NewDate(2023, 3, 1), "100"},
		{core.NewDate(2023, 3, 14), "100"},
		{core.NewDate(2023, 3, 15), "300"},
		{core.NewDate(2023, 3, 31), "700"},
		{core.NewDate(2023, 2, 28), "700"},
	}
	for _, tc := range cases {
		got := AccruedByReference(sources, tc.today)
		assert.True(t, got.Equal(dec(tc.want)), "%s: expected %s, got %s", tc.today, tc.want, got)
	}
	assert.True(t, ProjectedByEndOfMonth(sources).Equal(dec("700")))
	assert.True(t, ProjectedByEndOfMonth(nil).IsZero())
}

func TestAccruedClampsToMonthEnd(t *testing.T) {
	sources := []core.IncomeSourceRecord{{Value: dec("50"), AccrualDay: 31}}
	assert.True(t, AccruedByReference(sources, core.NewDate(2023, 2, 28)).Equal(dec("50")))
	assert.True(t, AccruedByReference(sources, core.NewDate(2023, 2, 27)).IsZero())
}

func TestCurrentMonthExpected(t *testing.T) {
	empty := CurrentMonthExpected(nil, core.NewDate(2023, 1, 1))
	assert.True(t, empty.Total.IsZero())
	for _, b := range Buckets {
		assert.True(t, empty.Bucket(b).IsZero())
	}

	prev := &core.ExpectedExpenseRecord{
		Total1to7: dec("10"), Total8to14: dec("20"), Total15to21: dec("30"), Total22to31: dec("40"),
	}
	early := CurrentMonthExpected(prev, core.NewDate(2023, 2, 2))
	late := CurrentMonthExpected(prev, core.NewDate(2023, 2, 28))

	assert.Equal(t, early, late)
	assert.True(t, early.Total.Equal(dec("100")))
	assert.True(t, early.Bucket(Bucket22toEnd).Equal(dec("40")))
	assert.True(t, early.Remaining(core.NewDate(2023, 2, 2)).Equal(dec("90")))
	assert.True(t, early.Remaining(core.NewDate(2023, 2, 16)).Equal(dec("40")))
	assert.True(t, early.Remaining(core.NewDate(2023, 2, 28)).IsZero())
	assert.Equal(t, *prev, early.Record())
}

func TestBucketTotals(t *testing.T) {
	expenses := []core.Expense{
		{Value: dec("5"), Date: core.NewDate(2023, 1, 3), Regular: true},
		{Value: dec("7"), Date: core.NewDate(2023, 1, 7), Regular: true},
		{Value: dec("100"), Date: core.NewDate(2023, 1, 9), Regular: false},
		{Value: dec("9.99"), Date: core.NewDate(2023, 1, 21), Regular: true},
		{Value: dec("1"), Date: core.NewDate(2023, 1, 31), Regular: true},
	}

	got := BucketTotals(expenses)

	assert.True(t, got.Total1to7.Equal(dec("12")))
	assert.True(t, got.Total8to14.IsZero())
	assert.True(t, got.Total15to21.Equal(dec("9.99")))
	assert.True(t, got.Total22to31.Equal(dec("1")))
}
