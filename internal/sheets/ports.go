package sheets

import (
	"context"

	"budget/internal/core"
)

// Ports for outbound adapters.
type (
	// BalanceExporter mirrors estimated balance records to an external sheet.
	// Both operations are idempotent per record date.
	BalanceExporter interface {
		AppendBalance(ctx context.Context, rec core.EstimatedBalanceRecord) (rowRef string, err error)
		DeleteBalance(ctx context.Context, date core.Date) error
		// ExportedDates lists the record dates currently present for year.
		ExportedDates(ctx context.Context, year int) ([]core.Date, error)
	}
)
