package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/estimation"
	"budget/internal/ports"
	"budget/internal/sheets"
)

const defaultConcurrency = 4

// ExportWorker mirrors balance records with their estimates to a sheet
type ExportWorker struct {
	snapshots   ports.SnapshotStore
	bounds      ports.PeriodStore
	exporter    sheets.BalanceExporter
	concurrency int
}

func NewExportWorker(snapshots ports.SnapshotStore, bounds ports.PeriodStore, exporter sheets.BalanceExporter, concurrency int) *ExportWorker {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &ExportWorker{
		snapshots:   snapshots,
		bounds:      bounds,
		exporter:    exporter,
		concurrency: concurrency,
	}
}

// HandleBalanceEvent processes a single balance event from AMQP
func (w *ExportWorker) HandleBalanceEvent(ctx context.Context, msg *amqp.BalanceEventMessage) error {
	switch msg.Type {
	case amqp.EventBalanceCreated:
		return w.exportRecord(ctx, msg.BalanceID)
	case amqp.EventBalanceDeleted:
		date, err := core.ParseDate(msg.Date)
		if err != nil {
			// Unparseable dates will never succeed; drop the message.
			slog.ErrorContext(ctx, "Dropping delete event with invalid date",
				"balance_id", msg.BalanceID, "date", msg.Date, "error", err)
			return nil
		}
		if err := w.exporter.DeleteBalance(ctx, date); err != nil {
			return fmt.Errorf("delete exported balance: %w", err)
		}
		slog.InfoContext(ctx, "Exported balance removed", "balance_id", msg.BalanceID, "date", msg.Date)
		return nil
	default:
		slog.WarnContext(ctx, "Ignoring unknown balance event", "type", msg.Type)
		return nil
	}
}

func (w *ExportWorker) exportRecord(ctx context.Context, id int64) error {
	rec, err := w.snapshots.FindBalanceRecordByID(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		// deleted before we got to it; the delete event clears the row
		slog.WarnContext(ctx, "Balance record no longer exists, skipping export", "balance_id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get balance from storage: %w", err)
	}

	ref, err := w.exporter.AppendBalance(ctx, estimation.WithEstimate(rec))
	if err != nil {
		return fmt.Errorf("export balance: %w", err)
	}
	slog.InfoContext(ctx, "Balance exported", "balance_id", id, "date", rec.Date.String(), "ref", ref)
	return nil
}

// ResyncAll exports every record of the stored budget period and clears
// exported rows whose record no longer exists. It is the fallback for events
// lost while the worker was down or never published.
func (w *ExportWorker) ResyncAll(ctx context.Context) (int, error) {
	start, end, err := w.bounds.LoadBounds(ctx)
	if errors.Is(err, core.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load budget period: %w", err)
	}

	records, err := w.snapshots.FindBalanceRecordsBetween(ctx, start, end)
	if err != nil {
		return 0, fmt.Errorf("list balances: %w", err)
	}

	slog.InfoContext(ctx, "Resyncing balances", "count", len(records), "from", start.String(), "to", end.String())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, rec := range records {
		g.Go(func() error {
			if _, err := w.exporter.AppendBalance(gctx, estimation.WithEstimate(rec)); err != nil {
				return fmt.Errorf("export balance %s: %w", rec.Date, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	if err := w.pruneOrphans(ctx, start, end, records); err != nil {
		return len(records), err
	}
	return len(records), nil
}

// pruneOrphans clears exported rows of every year in [start, end] whose date
// has no stored record. A year that cannot be read is skipped.
func (w *ExportWorker) pruneOrphans(ctx context.Context, start, end core.Date, records []core.BalanceRecord) error {
	stored := make(map[string]struct{}, len(records))
	for _, rec := range records {
		stored[rec.Date.String()] = struct{}{}
	}

	removed := 0
	for year := start.Year(); year <= end.Year(); year++ {
		dates, err := w.exporter.ExportedDates(ctx, year)
		if err != nil {
			slog.WarnContext(ctx, "Cannot list exported balances, skipping prune", "year", year, "error", err)
			continue
		}
		for _, d := range dates {
			if _, ok := stored[d.String()]; ok {
				continue
			}
			if err := w.exporter.DeleteBalance(ctx, d); err != nil {
				return fmt.Errorf("clear orphaned balance %s: %w", d, err)
			}
			removed++
		}
	}
	if removed > 0 {
		slog.InfoContext(ctx, "Orphaned exported balances cleared", "count", removed)
	}
	return nil
}
