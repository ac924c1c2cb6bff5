// Package memory is an in-process BalanceExporter. It keeps one row per
// record date and is used when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"budget/internal/core"
	ports "budget/internal/sheets"
)

var _ ports.BalanceExporter = (*Store)(nil)

type Store struct {
	mu   sync.Mutex
	rows map[string]core.EstimatedBalanceRecord
}

func New() *Store {
	return &Store{rows: make(map[string]core.EstimatedBalanceRecord)}
}

// AppendBalance stores the record and returns a synthetic row reference.
func (s *Store) AppendBalance(_ context.Context, rec core.EstimatedBalanceRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[rec.Date.String()] = rec
	return fmt.Sprintf("mem:%s", rec.Date), nil
}

func (s *Store) DeleteBalance(_ context.Context, date core.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, date.String())
	return nil
}

func (s *Store) ExportedDates(_ context.Context, year int) ([]core.Date, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Date
	for _, r := range s.rows {
		if r.Date.Year() == year {
			out = append(out, r.Date)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// Rows returns the exported records ordered by date.
func (s *Store) Rows() []core.EstimatedBalanceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.EstimatedBalanceRecord, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
