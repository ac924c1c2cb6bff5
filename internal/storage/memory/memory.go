// Package memory is an in-process implementation of the store contracts.
// It is used by the memory backend and as a fake in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"budget/internal/core"
	"budget/internal/ports"
)

var _ ports.Store = (*Store)(nil)

// Store keeps all data in maps guarded by one mutex. Returned values are
// copies; callers may modify them freely.
type Store struct {
	mu sync.RWMutex

	nextID   int64
	balances map[int64]core.BalanceRecord
	incomes  map[int64]core.IncomeSource
	expenses map[int64]core.Expense
	storage  map[int64]core.StorageRecord

	periodSet  bool
	start, end core.Date
}

func New() *Store {
	return &Store{
		balances: make(map[int64]core.BalanceRecord),
		incomes:  make(map[int64]core.IncomeSource),
		expenses: make(map[int64]core.Expense),
		storage:  make(map[int64]core.StorageRecord),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func cloneRecord(r core.BalanceRecord) core.BalanceRecord {
	out := r
	out.Items = append([]core.BalanceItem(nil), r.Items...)
	out.IncomeSources = append([]core.IncomeSourceRecord(nil), r.IncomeSources...)
	if r.ExpectedExpense != nil {
		e := *r.ExpectedExpense
		out.ExpectedExpense = &e
	}
	return out
}

func (s *Store) sortedBalances() []core.BalanceRecord {
	out := make([]core.BalanceRecord, 0, len(s.balances))
	for _, r := range s.balances {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (s *Store) FindBalanceRecordByDate(_ context.Context, date core.Date) (core.BalanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.balances {
		if r.Date.Equal(date) {
			return cloneRecord(r), nil
		}
	}
	return core.BalanceRecord{}, core.ErrNotFound
}

func (s *Store) FindBalanceRecordByID(_ context.Context, id int64) (core.BalanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.balances[id]
	if !ok {
		return core.BalanceRecord{}, core.ErrNotFound
	}
	return cloneRecord(r), nil
}

func (s *Store) FindLatestBalanceRecord(_ context.Context) (core.BalanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.sortedBalances()
	if len(all) == 0 {
		return core.BalanceRecord{}, core.ErrNotFound
	}
	return cloneRecord(all[len(all)-1]), nil
}

func (s *Store) FindBalanceRecordBefore(_ context.Context, date core.Date) (core.BalanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.sortedBalances()
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Date.Before(date) {
			return cloneRecord(all[i]), nil
		}
	}
	return core.BalanceRecord{}, core.ErrNotFound
}

func (s *Store) FindBalanceRecordsBetween(_ context.Context, from, to core.Date) ([]core.BalanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.BalanceRecord
	for _, r := range s.sortedBalances() {
		if !r.Date.Before(from) && !r.Date.After(to) {
			out = append(out, cloneRecord(r))
		}
	}
	return out, nil
}

func (s *Store) SaveBalanceRecord(_ context.Context, record core.BalanceRecord) (core.BalanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.balances {
		if r.Date.Equal(record.Date) {
			return core.BalanceRecord{}, fmt.Errorf("%w: %s", core.ErrDuplicateDate, record.Date)
		}
	}
	saved := cloneRecord(record)
	saved.ID = s.id()
	for i := range saved.Items {
		saved.Items[i].ID = s.id()
	}
	for i := range saved.IncomeSources {
		saved.IncomeSources[i].ID = s.id()
	}
	if saved.ExpectedExpense != nil {
		saved.ExpectedExpense.ID = s.id()
	}
	s.balances[saved.ID] = saved
	return cloneRecord(saved), nil
}

func (s *Store) UpdateExpectedExpense(_ context.Context, recordID int64, expected core.ExpectedExpenseRecord) (core.ExpectedExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.balances[recordID]
	if !ok {
		return core.ExpectedExpenseRecord{}, fmt.Errorf("%w: balance with id %d", core.ErrNotFound, recordID)
	}
	if r.ExpectedExpense != nil {
		expected.ID = r.ExpectedExpense.ID
	} else {
		expected.ID = s.id()
	}
	r.ExpectedExpense = &expected
	s.balances[recordID] = r
	return expected, nil
}

func (s *Store) DeleteBalanceRecord(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.balances[id]; !ok {
		return fmt.Errorf("%w: balance with id %d", core.ErrNotFound, id)
	}
	delete(s.balances, id)
	return nil
}

func (s *Store) ListIncomeSources(_ context.Context) ([]core.IncomeSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.IncomeSource, 0, len(s.incomes))
	for _, src := range s.incomes {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) SaveIncomeSource(_ context.Context, src core.IncomeSource) (core.IncomeSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.incomes {
		if id != src.ID && strings.EqualFold(existing.Name, src.Name) {
			return core.IncomeSource{}, fmt.Errorf("%w: %q", core.ErrDuplicateName, src.Name)
		}
	}
	if src.ID == 0 {
		src.ID = s.id()
	} else if _, ok := s.incomes[src.ID]; !ok {
		return core.IncomeSource{}, fmt.Errorf("%w: income source with id %d", core.ErrNotFound, src.ID)
	}
	s.incomes[src.ID] = src
	return src, nil
}

func (s *Store) DeleteIncomeSource(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.incomes[id]; !ok {
		return fmt.Errorf("%w: income source with id %d", core.ErrNotFound, id)
	}
	delete(s.incomes, id)
	return nil
}

func (s *Store) SaveExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.id()
	s.expenses[e.ID] = e
	return e, nil
}

func (s *Store) FindExpenseByID(_ context.Context, id int64) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, fmt.Errorf("%w: expense with id %d", core.ErrNotFound, id)
	}
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[e.ID]; !ok {
		return core.Expense{}, fmt.Errorf("%w: expense with id %d", core.ErrNotFound, e.ID)
	}
	s.expenses[e.ID] = e
	return e, nil
}

func (s *Store) DeleteExpense(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return fmt.Errorf("%w: expense with id %d", core.ErrNotFound, id)
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) ListExpensesBetween(_ context.Context, from, to core.Date) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Expense
	for _, e := range s.expenses {
		if !e.Date.Before(from) && !e.Date.After(to) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func cloneStorageRecord(r core.StorageRecord) core.StorageRecord {
	out := r
	out.Items = append([]core.StorageItem(nil), r.Items...)
	return out
}

func (s *Store) sortedStorage() []core.StorageRecord {
	out := make([]core.StorageRecord, 0, len(s.storage))
	for _, r := range s.storage {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (s *Store) FindStorageRecordByDate(_ context.Context, date core.Date) (core.StorageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.storage {
		if r.Date.Equal(date) {
			return cloneStorageRecord(r), nil
		}
	}
	return core.StorageRecord{}, core.ErrNotFound
}

func (s *Store) FindLatestStorageRecord(_ context.Context) (core.StorageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.sortedStorage()
	if len(all) == 0 {
		return core.StorageRecord{}, core.ErrNotFound
	}
	return cloneStorageRecord(all[len(all)-1]), nil
}

func (s *Store) FindStorageRecordsBetween(_ context.Context, from, to core.Date) ([]core.StorageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.StorageRecord
	for _, r := range s.sortedStorage() {
		if !r.Date.Before(from) && !r.Date.After(to) {
			out = append(out, cloneStorageRecord(r))
		}
	}
	return out, nil
}

func (s *Store) SaveStorageRecord(_ context.Context, record core.StorageRecord) (core.StorageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.storage {
		if r.Date.Equal(record.Date) {
			return core.StorageRecord{}, fmt.Errorf("%w: %s", core.ErrDuplicateDate, record.Date)
		}
	}
	saved := cloneStorageRecord(record)
	saved.ID = s.id()
	for i := range saved.Items {
		saved.Items[i].ID = s.id()
	}
	s.storage[saved.ID] = saved
	return cloneStorageRecord(saved), nil
}

func (s *Store) DeleteStorageRecord(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.storage[id]; !ok {
		return fmt.Errorf("%w: storage record with id %d", core.ErrNotFound, id)
	}
	delete(s.storage, id)
	return nil
}

func (s *Store) LoadBounds(_ context.Context) (core.Date, core.Date, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.periodSet {
		return core.Date{}, core.Date{}, core.ErrNotFound
	}
	return s.start, s.end, nil
}

func (s *Store) InitBounds(_ context.Context, start, end core.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.periodSet {
		return nil
	}
	s.start, s.end, s.periodSet = start, end, true
	return nil
}

func (s *Store) PersistEndDate(_ context.Context, end core.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.periodSet {
		return fmt.Errorf("%w: budget period", core.ErrNotFound)
	}
	if end.After(s.end) {
		s.end = end
	}
	return nil
}
