package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"budget/internal/core"
	"budget/internal/estimation"
	"budget/internal/period"
	"budget/internal/ports"
)

// ExpenseService records expenses and keeps the budget period covering them
type ExpenseService struct {
	store  ports.ExpenseStore
	period *period.BudgetPeriod
}

func NewExpenseService(store ports.ExpenseStore, p *period.BudgetPeriod) *ExpenseService {
	return &ExpenseService{
		store:  store,
		period: p,
	}
}

// Save stores the expense and extends the budget period to its date
func (s *ExpenseService) Save(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.Category = strings.TrimSpace(e.Category)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if err := s.period.ValidateNotBeforeStart(e.Date); err != nil {
		return core.Expense{}, err
	}

	saved, err := s.store.SaveExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	if _, err := s.period.ExtendIfNecessary(ctx, saved.Date); err != nil {
		return core.Expense{}, err
	}

	slog.InfoContext(ctx, "Expense created",
		"id", saved.ID,
		"date", saved.Date.String(),
		"value", saved.Value.String(),
		"regular", saved.Regular)
	return saved, nil
}

// Get returns one expense.
func (s *ExpenseService) Get(ctx context.Context, id int64) (core.Expense, error) {
	e, err := s.store.FindExpenseByID(ctx, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// Update overwrites the expense with id and extends the budget period to
// its new date.
func (s *ExpenseService) Update(ctx context.Context, id int64, e core.Expense) (core.Expense, error) {
	e.ID = id
	e.Category = strings.TrimSpace(e.Category)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if err := s.period.ValidateNotBeforeStart(e.Date); err != nil {
		return core.Expense{}, err
	}

	updated, err := s.store.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	if _, err := s.period.ExtendIfNecessary(ctx, updated.Date); err != nil {
		return core.Expense{}, err
	}

	slog.InfoContext(ctx, "Expense updated",
		"id", updated.ID,
		"date", updated.Date.String(),
		"value", updated.Value.String())
	return updated, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteExpense(ctx, id)
}

// FindAllInInterval lists expenses in [from, to] after validating the dates
func (s *ExpenseService) FindAllInInterval(ctx context.Context, from, to core.Date) ([]core.Expense, error) {
	if err := period.ValidateSequential(from, to); err != nil {
		return nil, err
	}
	if err := s.period.ValidateIntervalWithinPeriod(from, to); err != nil {
		return nil, err
	}
	expenses, err := s.store.ListExpensesBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// RegularBucketsForMonth sums the regular expenses of month's calendar month
// per day-of-month bucket.
func (s *ExpenseService) RegularBucketsForMonth(ctx context.Context, month core.Date) (core.ExpectedExpenseRecord, error) {
	return regularBucketsForMonth(ctx, s.store, month)
}

func regularBucketsForMonth(ctx context.Context, store ports.ExpenseStore, month core.Date) (core.ExpectedExpenseRecord, error) {
	from := core.NewDate(month.Year(), month.Month(), 1)
	expenses, err := store.ListExpensesBetween(ctx, from, estimation.LastDayOfMonth(month))
	if err != nil {
		return core.ExpectedExpenseRecord{}, fmt.Errorf("list expenses: %w", err)
	}
	return estimation.BucketTotals(expenses), nil
}
