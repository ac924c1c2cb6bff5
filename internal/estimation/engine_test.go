package estimation

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"budget/internal/core"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func incomes(values ...string) []core.IncomeSourceRecord {
	out := make([]core.IncomeSourceRecord, 0, len(values))
	for i, v := range values {
		out = append(out, core.IncomeSourceRecord{Name: "src", Value: dec(v), Currency: core.UAH, AccrualDay: 5 + i*10})
	}
	return out
}

func TestEstimateEndOfJanuary(t *testing.T) {
	record := core.BalanceRecord{
		Date: core.NewDate(2023, 1, 31),
		Items: []core.BalanceItem{
			{Name: "Wallet", Cash: dec("250.00"), Card: dec("0")},
			{Name: "Bank", Cash: dec("0"), Card: dec("750.00")},
		},
		IncomeSources: incomes("300.00", "200.00"),
		ExpectedExpense: &core.ExpectedExpenseRecord{
			Total1to7:   dec("100"),
			Total8to14:  dec("100"),
			Total15to21: dec("100"),
			Total22to31: dec("100"),
		},
	}

	got := Estimate(record)

	assert.Equal(t, "2023-01-31", got.EndOfMonthDate.String())
	assert.True(t, got.PreviousTotal.Equal(dec("1000.00")), "previous total %s", got.PreviousTotal)
	assert.True(t, got.ExpenseByEndOfMonth.Equal(dec("400.00")), "expense %s", got.ExpenseByEndOfMonth)
	assert.True(t, got.IncomeByEndOfMonth.Equal(dec("500.00")), "income %s", got.IncomeByEndOfMonth)
	assert.True(t, got.ProfitByEndOfMonth.Equal(dec("1100.00")), "profit %s", got.ProfitByEndOfMonth)
	assert.True(t, got.IncomeReceived.Equal(dec("500.00")))
	assert.True(t, got.ExpenseRemaining.IsZero())
}

func TestEstimateWithoutHistory(t *testing.T) {
	record := core.BalanceRecord{
		Date:          core.NewDate(2023, 3, 10),
		Items:         []core.BalanceItem{{Name: "Bank", Cash: dec("10"), Card: dec("20")}},
		IncomeSources: incomes("100"),
	}

	got := Estimate(record)

	assert.True(t, got.ExpenseByEndOfMonth.IsZero())
	assert.True(t, got.ProfitByEndOfMonth.Equal(dec("130")))
	assert.Equal(t, "2023-03-31", got.EndOfMonthDate.String())
}

func TestEstimateUsesSnapshotDate(t *testing.T) {
	record := core.BalanceRecord{
		Date:          core.NewDate(2023, 5, 9),
		Items:         []core.BalanceItem{{Name: "Bank", Card: dec("1")}},
		IncomeSources: incomes("10", "20", "40"), // accrual days 5, 15, 25
		ExpectedExpense: &core.ExpectedExpenseRecord{
			Total1to7: dec("1"), Total8to14: dec("2"), Total15to21: dec("3"), Total22to31: dec("4"),
		},
	}

	first := Estimate(record)
	second := Estimate(record)

	assert.Equal(t, first, second)
	assert.True(t, first.IncomeReceived.Equal(dec("10")))
	assert.True(t, first.ExpenseRemaining.Equal(dec("7")))
	assert.True(t, first.ExpenseByEndOfMonth.Equal(dec("10")))
}

func randomAmount(r *rand.Rand) decimal.Decimal {
	return decimal.New(r.Int63n(10_000_000), -2)
}

func TestEstimateProfitIdentity(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		record := core.BalanceRecord{Date: core.NewDate(2020+r.Intn(6), 1+r.Intn(12), 1+r.Intn(28))}
		for j := 0; j < r.Intn(5); j++ {
			record.Items = append(record.Items, core.BalanceItem{Name: "i", Cash: randomAmount(r), Card: randomAmount(r)})
		}
		for j := 0; j < r.Intn(4); j++ {
			record.IncomeSources = append(record.IncomeSources, core.IncomeSourceRecord{
				Value: randomAmount(r), AccrualDay: 1 + r.Intn(core.MaxAccrualDay),
			})
		}
		if r.Intn(2) == 0 {
			record.ExpectedExpense = &core.ExpectedExpenseRecord{
				Total1to7: randomAmount(r), Total8to14: randomAmount(r),
				Total15to21: randomAmount(r), Total22to31: randomAmount(r),
			}
		}

		got := Estimate(record)

		want := got.IncomeByEndOfMonth.Add(got.PreviousTotal).Sub(got.ExpenseByEndOfMonth)
		if !got.ProfitByEndOfMonth.Equal(want) {
			t.Fatalf("case %d: profit %s != %s", i, got.ProfitByEndOfMonth, want)
		}
		if got.IncomeReceived.GreaterThan(got.IncomeByEndOfMonth) {
			t.Fatalf("case %d: received %s exceeds monthly %s", i, got.IncomeReceived, got.IncomeByEndOfMonth)
		}
		if got.ExpenseRemaining.GreaterThan(got.ExpenseByEndOfMonth) {
			t.Fatalf("case %d: remaining %s exceeds monthly %s", i, got.ExpenseRemaining, got.ExpenseByEndOfMonth)
		}
	}
}
