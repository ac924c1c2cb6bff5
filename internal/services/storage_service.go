package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budget/internal/core"
	"budget/internal/period"
	"budget/internal/ports"
)

// StorageService records dated snapshots of money kept aside. It follows the
// balance rules: one record per date, dates from the period start on, and
// every save extends the budget period.
type StorageService struct {
	store  ports.StorageRecordStore
	period *period.BudgetPeriod
}

func NewStorageService(store ports.StorageRecordStore, p *period.BudgetPeriod) *StorageService {
	return &StorageService{store: store, period: p}
}

func (s *StorageService) Save(ctx context.Context, rec core.StorageRecord) (core.StorageRecord, error) {
	if err := rec.Validate(); err != nil {
		return core.StorageRecord{}, err
	}
	if err := s.period.ValidateNotBeforeStart(rec.Date); err != nil {
		return core.StorageRecord{}, err
	}

	_, err := s.store.FindStorageRecordByDate(ctx, rec.Date)
	switch {
	case err == nil:
		return core.StorageRecord{}, fmt.Errorf("%w: %s", core.ErrDuplicateDate, rec.Date)
	case !errors.Is(err, core.ErrNotFound):
		return core.StorageRecord{}, fmt.Errorf("check storage date: %w", err)
	}

	saved, err := s.store.SaveStorageRecord(ctx, rec)
	if err != nil {
		return core.StorageRecord{}, fmt.Errorf("save storage record: %w", err)
	}
	if _, err := s.period.ExtendIfNecessary(ctx, saved.Date); err != nil {
		return core.StorageRecord{}, err
	}

	slog.InfoContext(ctx, "Storage record created", "id", saved.ID, "date", saved.Date.String(), "items", len(saved.Items))
	return saved, nil
}

// GetLatest returns the most recent record. The bool is false when there is none.
func (s *StorageService) GetLatest(ctx context.Context) (core.StorageRecord, bool, error) {
	rec, err := s.store.FindLatestStorageRecord(ctx)
	if errors.Is(err, core.ErrNotFound) {
		return core.StorageRecord{}, false, nil
	}
	if err != nil {
		return core.StorageRecord{}, false, fmt.Errorf("find latest storage record: %w", err)
	}
	return rec, true, nil
}

// FindAllInInterval validates the dates before reading storage.
func (s *StorageService) FindAllInInterval(ctx context.Context, from, to core.Date) ([]core.StorageRecord, error) {
	if err := period.ValidateSequential(from, to); err != nil {
		return nil, err
	}
	if err := s.period.ValidateIntervalWithinPeriod(from, to); err != nil {
		return nil, err
	}
	records, err := s.store.FindStorageRecordsBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list storage records: %w", err)
	}
	return records, nil
}

func (s *StorageService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteStorageRecord(ctx, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete storage record: %w", err)
	}
	slog.InfoContext(ctx, "Storage record deleted", "id", id)
	return nil
}
