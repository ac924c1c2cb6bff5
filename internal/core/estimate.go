package core

import "github.com/shopspring/decimal"

// BalanceEstimate is the end-of-month projection derived from a snapshot.
// It is computed on read and never persisted.
type BalanceEstimate struct {
	PreviousTotal       decimal.Decimal
	IncomeByEndOfMonth  decimal.Decimal
	IncomeReceived      decimal.Decimal // part of IncomeByEndOfMonth accrued by the snapshot date
	ExpenseByEndOfMonth decimal.Decimal
	ExpenseRemaining    decimal.Decimal // expected spend in buckets after the snapshot date
	ProfitByEndOfMonth  decimal.Decimal
	EndOfMonthDate      Date
}

// EstimatedBalanceRecord is a snapshot together with its estimate.
type EstimatedBalanceRecord struct {
	BalanceRecord
	Estimate BalanceEstimate
}
