// Package period tracks the budget period: the inclusive range of dates for
// which records are accepted. The start is fixed, the end only ever grows.
package period

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"budget/internal/core"
	"budget/internal/ports"
)

// BudgetPeriod is safe for concurrent use. Create it with New or Load.
type BudgetPeriod struct {
	mu    sync.RWMutex
	store ports.PeriodStore // nil for a purely in-memory period
	start core.Date
	end   core.Date
}

// New creates an unpersisted period.
func New(start, end core.Date) (*BudgetPeriod, error) {
	if err := ValidateSequential(start, end); err != nil {
		return nil, err
	}
	return &BudgetPeriod{start: start, end: end}, nil
}

// Load reads the bounds from store. When nothing has been stored yet the
// period is initialized to [defaultStart, defaultStart] and persisted.
func Load(ctx context.Context, store ports.PeriodStore, defaultStart core.Date) (*BudgetPeriod, error) {
	start, end, err := store.LoadBounds(ctx)
	if errors.Is(err, core.ErrNotFound) {
		if err := store.InitBounds(ctx, defaultStart, defaultStart); err != nil {
			return nil, fmt.Errorf("init budget period: %w", err)
		}
		slog.InfoContext(ctx, "Budget period initialized", "start", defaultStart.String())
		return &BudgetPeriod{store: store, start: defaultStart, end: defaultStart}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load budget period: %w", err)
	}
	if err := ValidateSequential(start, end); err != nil {
		return nil, fmt.Errorf("stored budget period: %w", err)
	}
	return &BudgetPeriod{store: store, start: start, end: end}, nil
}

func (p *BudgetPeriod) Start() core.Date {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.start
}

func (p *BudgetPeriod) End() core.Date {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.end
}

// Bounds returns start and end read together.
func (p *BudgetPeriod) Bounds() (core.Date, core.Date) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.start, p.end
}

// ValidateWithinPeriod fails when d is outside [start, end].
func (p *BudgetPeriod) ValidateWithinPeriod(d core.Date) error {
	start, end := p.Bounds()
	if d.Before(start) || d.After(end) {
		return outOfPeriod(start, end, d)
	}
	return nil
}

// ValidateIntervalWithinPeriod checks both ends of an interval.
func (p *BudgetPeriod) ValidateIntervalWithinPeriod(from, to core.Date) error {
	if err := p.ValidateWithinPeriod(from); err != nil {
		return err
	}
	return p.ValidateWithinPeriod(to)
}

// ValidateNotBeforeStart accepts any date from the start on, including dates
// past the current end that a write is about to extend to.
func (p *BudgetPeriod) ValidateNotBeforeStart(d core.Date) error {
	start, end := p.Bounds()
	if d.Before(start) {
		return outOfPeriod(start, end, d)
	}
	return nil
}

// ExtendIfNecessary moves the end to d when d is later. It reports whether
// the period changed. The new end is persisted before it becomes visible.
func (p *BudgetPeriod) ExtendIfNecessary(ctx context.Context, d core.Date) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !d.After(p.end) {
		return false, nil
	}
	if p.store != nil {
		if err := p.store.PersistEndDate(ctx, d); err != nil {
			return false, fmt.Errorf("persist budget period end: %w", err)
		}
	}
	slog.InfoContext(ctx, "Budget period extended", "from", p.end.String(), "to", d.String())
	p.end = d
	return true, nil
}

// ValidateSequential fails when first is after second.
func ValidateSequential(first, second core.Date) error {
	if first.After(second) {
		return fmt.Errorf("%w: %s and %s", core.ErrReversedDateOrder, first, second)
	}
	return nil
}

func outOfPeriod(start, end, d core.Date) error {
	return fmt.Errorf("%w: start date is %s, end date is %s, provided date is %s",
		core.ErrOutOfBudgetPeriod, start, end, d)
}
