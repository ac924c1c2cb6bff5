package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"budget/internal/amqp"
	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/estimation"
	"budget/internal/period"
	"budget/internal/ports"
)

// EventPublisher announces balance changes. *amqp.Client implements it.
type EventPublisher interface {
	PublishBalanceEvent(ctx context.Context, msg *amqp.BalanceEventMessage) error
}

// BalanceService records balance snapshots and attaches estimates on read
type BalanceService struct {
	snapshots ports.SnapshotStore
	incomes   ports.IncomeSourceStore
	period    *period.BudgetPeriod
	publisher EventPublisher
	records   cache.Cache[int64, core.EstimatedBalanceRecord] // nil disables caching
	history   ports.ExpenseStore                              // nil disables the regular expense fallback

	// generations is bumped by every invalidation of an id, so a read that
	// overlapped a write does not populate the cache.
	genMu       sync.Mutex
	generations map[int64]uint64
}

// NewBalanceService wires the service. publisher may be nil.
func NewBalanceService(snapshots ports.SnapshotStore, incomes ports.IncomeSourceStore, p *period.BudgetPeriod, publisher EventPublisher) *BalanceService {
	return &BalanceService{
		snapshots: snapshots,
		incomes:   incomes,
		period:    p,
		publisher: publisher,
	}
}

// WithRecordCache makes Get serve snapshots from c. A snapshot's estimate
// depends only on the snapshot, so entries are dropped on delete and on
// expected expense updates only.
func (s *BalanceService) WithRecordCache(c cache.Cache[int64, core.EstimatedBalanceRecord]) *BalanceService {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.records = c
	s.generations = make(map[int64]uint64)
	return s
}

// WithRegularExpenseHistory makes Save fall back to the regular expenses of
// the month before the snapshot when the preceding snapshot has no expected
// spend (none exists, or all its buckets are zero).
func (s *BalanceService) WithRegularExpenseHistory(expenses ports.ExpenseStore) *BalanceService {
	s.history = expenses
	return s
}

// Save records a new snapshot. Income sources are copied as they are now and
// the expected expense is projected from the preceding snapshot. The returned
// record carries no estimate.
func (s *BalanceService) Save(ctx context.Context, in core.NewBalanceRecord) (core.BalanceRecord, error) {
	if err := in.Validate(); err != nil {
		return core.BalanceRecord{}, err
	}
	if err := s.period.ValidateNotBeforeStart(in.Date); err != nil {
		return core.BalanceRecord{}, err
	}

	_, err := s.snapshots.FindBalanceRecordByDate(ctx, in.Date)
	switch {
	case err == nil:
		return core.BalanceRecord{}, fmt.Errorf("%w: %s", core.ErrDuplicateDate, in.Date)
	case !errors.Is(err, core.ErrNotFound):
		return core.BalanceRecord{}, fmt.Errorf("check balance date: %w", err)
	}

	var (
		sources  []core.IncomeSource
		previous *core.ExpectedExpenseRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sources, err = s.incomes.ListIncomeSources(gctx)
		if err != nil {
			return fmt.Errorf("list income sources: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		prev, err := s.snapshots.FindBalanceRecordBefore(gctx, in.Date)
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("find previous balance: %w", err)
		}
		previous = prev.ExpectedExpense
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.BalanceRecord{}, err
	}

	fromRegular := false
	if s.history != nil && (previous == nil || previous.Total().IsZero()) {
		buckets, err := regularBucketsForMonth(ctx, s.history, in.Date.AddMonths(-1))
		if err != nil {
			return core.BalanceRecord{}, err
		}
		if !buckets.Total().IsZero() {
			previous = &buckets
			fromRegular = true
		}
	}

	record := core.BalanceRecord{
		Date:          in.Date,
		Items:         in.Items,
		IncomeSources: make([]core.IncomeSourceRecord, 0, len(sources)),
	}
	for _, src := range sources {
		record.IncomeSources = append(record.IncomeSources, src.Record())
	}
	expected := estimation.CurrentMonthExpected(previous, in.Date).Record()
	record.ExpectedExpense = &expected

	saved, err := s.snapshots.SaveBalanceRecord(ctx, record)
	if err != nil {
		return core.BalanceRecord{}, fmt.Errorf("save balance record: %w", err)
	}

	if _, err := s.period.ExtendIfNecessary(ctx, saved.Date); err != nil {
		return core.BalanceRecord{}, err
	}

	slog.InfoContext(ctx, "Balance record created",
		"id", saved.ID,
		"date", saved.Date.String(),
		"total", saved.TotalBalance().String(),
		"has_history", previous != nil,
		"from_regular_expenses", fromRegular)

	s.publish(ctx, amqp.EventBalanceCreated, saved)
	return saved, nil
}

// GetLatest returns the most recent snapshot with its estimate. The bool is
// false when no snapshot exists.
func (s *BalanceService) GetLatest(ctx context.Context) (core.EstimatedBalanceRecord, bool, error) {
	rec, err := s.snapshots.FindLatestBalanceRecord(ctx)
	if errors.Is(err, core.ErrNotFound) {
		return core.EstimatedBalanceRecord{}, false, nil
	}
	if err != nil {
		return core.EstimatedBalanceRecord{}, false, fmt.Errorf("find latest balance: %w", err)
	}
	return estimation.WithEstimate(rec), true, nil
}

// Get returns one snapshot with its estimate.
func (s *BalanceService) Get(ctx context.Context, id int64) (core.EstimatedBalanceRecord, error) {
	var gen uint64
	if s.records != nil {
		if cached, ok := s.records.Get(id); ok {
			return cached, nil
		}
		gen = s.generation(id)
	}
	rec, err := s.snapshots.FindBalanceRecordByID(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.EstimatedBalanceRecord{}, balanceNotFound(id)
	}
	if err != nil {
		return core.EstimatedBalanceRecord{}, fmt.Errorf("find balance: %w", err)
	}
	estimated := estimation.WithEstimate(rec)
	s.remember(id, gen, estimated)
	return estimated, nil
}

// FindAllInInterval returns the snapshots dated in [from, to], each with the
// estimate it had on its own date. Dates are validated before storage is read.
func (s *BalanceService) FindAllInInterval(ctx context.Context, from, to core.Date) ([]core.EstimatedBalanceRecord, error) {
	if err := period.ValidateSequential(from, to); err != nil {
		return nil, err
	}
	if err := s.period.ValidateIntervalWithinPeriod(from, to); err != nil {
		return nil, err
	}

	records, err := s.snapshots.FindBalanceRecordsBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}

	out := make([]core.EstimatedBalanceRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, estimation.WithEstimate(rec))
	}
	return out, nil
}

// Delete removes a snapshot and everything it owns.
func (s *BalanceService) Delete(ctx context.Context, id int64) error {
	rec, err := s.snapshots.FindBalanceRecordByID(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return balanceNotFound(id)
	}
	if err != nil {
		return fmt.Errorf("find balance: %w", err)
	}

	if err := s.snapshots.DeleteBalanceRecord(ctx, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return balanceNotFound(id)
		}
		return fmt.Errorf("delete balance: %w", err)
	}
	s.forget(id)

	slog.InfoContext(ctx, "Balance record deleted", "id", id, "date", rec.Date.String())
	s.publish(ctx, amqp.EventBalanceDeleted, rec)
	return nil
}

// UpdateExpectedExpense replaces the bucket totals of a snapshot.
func (s *BalanceService) UpdateExpectedExpense(ctx context.Context, id int64, expected core.ExpectedExpenseRecord) (core.ExpectedExpenseRecord, error) {
	if err := expected.Validate(); err != nil {
		return core.ExpectedExpenseRecord{}, err
	}
	saved, err := s.snapshots.UpdateExpectedExpense(ctx, id, expected)
	if errors.Is(err, core.ErrNotFound) {
		return core.ExpectedExpenseRecord{}, balanceNotFound(id)
	}
	if err != nil {
		return core.ExpectedExpenseRecord{}, fmt.Errorf("update expected expense: %w", err)
	}
	s.forget(id)
	return saved, nil
}

// publish is best effort: the record is already stored.
func (s *BalanceService) publish(ctx context.Context, eventType string, rec core.BalanceRecord) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not available, skipping balance event", "type", eventType)
		return
	}
	msg := amqp.NewBalanceEventMessage(eventType, rec.ID, rec.Date.String())
	if err := s.publisher.PublishBalanceEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish balance event",
			"type", eventType,
			"id", rec.ID,
			"error", err)
	}
}

func (s *BalanceService) generation(id int64) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[id]
}

// remember caches rec unless id was invalidated since gen was read.
func (s *BalanceService) remember(id int64, gen uint64, rec core.EstimatedBalanceRecord) {
	if s.records == nil {
		return
	}
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.generations[id] != gen {
		return
	}
	s.records.Set(id, rec)
}

func (s *BalanceService) forget(id int64) {
	if s.records == nil {
		return
	}
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.generations[id]++
	s.records.Delete(id)
}

func balanceNotFound(id int64) error {
	return fmt.Errorf("%w: balance with id %d not found", core.ErrNotFound, id)
}

// SeedExpectedExpense replaces a snapshot's expected expense with the regular
// expenses recorded in the month before the snapshot.
func SeedExpectedExpense(ctx context.Context, balances *BalanceService, expenses *ExpenseService, id int64) (core.ExpectedExpenseRecord, error) {
	rec, err := balances.Get(ctx, id)
	if err != nil {
		return core.ExpectedExpenseRecord{}, err
	}
	buckets, err := expenses.RegularBucketsForMonth(ctx, rec.Date.AddMonths(-1))
	if err != nil {
		return core.ExpectedExpenseRecord{}, err
	}
	saved, err := balances.UpdateExpectedExpense(ctx, id, buckets)
	if err != nil {
		return core.ExpectedExpenseRecord{}, err
	}
	slog.InfoContext(ctx, "Expected expense seeded from regular expenses",
		"id", id,
		"month", rec.Date.AddMonths(-1).Format("2006-01"),
		"total", saved.Total().String())
	return saved, nil
}
