package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/amqp"
	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/period"
	"budget/internal/ports"
	"budget/internal/storage/memory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// countingStore counts every call that reaches storage.
type countingStore struct {
	ports.Store
	n atomic.Int64
}

func (c *countingStore) reads() int64 { return c.n.Load() }

func (c *countingStore) FindBalanceRecordsBetween(ctx context.Context, from, to core.Date) ([]core.BalanceRecord, error) {
	c.n.Add(1)
	return c.Store.FindBalanceRecordsBetween(ctx, from, to)
}

func (c *countingStore) ListExpensesBetween(ctx context.Context, from, to core.Date) ([]core.Expense, error) {
	c.n.Add(1)
	return c.Store.ListExpensesBetween(ctx, from, to)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.BalanceEventMessage
	err    error
}

func (p *recordingPublisher) PublishBalanceEvent(_ context.Context, msg *amqp.BalanceEventMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, msg)
	return p.err
}

type testEnv struct {
	counting  *countingStore
	period    *period.BudgetPeriod
	publisher *recordingPublisher
	balances  *BalanceService
	incomes   *IncomeService
	expenses  *ExpenseService
	storage   *StorageService
}

func newTestEnv(t *testing.T, start core.Date) *testEnv {
	t.Helper()
	store := &countingStore{Store: memory.New()}
	p, err := period.Load(context.Background(), store, start)
	require.NoError(t, err)
	pub := &recordingPublisher{}
	return &testEnv{
		counting:  store,
		period:    p,
		publisher: pub,
		balances:  NewBalanceService(store, store, p, pub),
		incomes:   NewIncomeService(store),
		expenses:  NewExpenseService(store, p),
		storage:   NewStorageService(store, p),
	}
}

func snapshot(date core.Date, cash, card string) core.NewBalanceRecord {
	return core.NewBalanceRecord{
		Date:  date,
		Items: []core.BalanceItem{{Name: "Bank", Cash: dec(cash), Card: dec(card)}},
	}
}

func TestBalanceService_SaveRejectsDuplicateDate(t *testing.T) {
	env := newTestEnv(t, core.NewDate(2023, 1, 1))
	ctx := context.Background()

	_, err := env.balances.Save(ctx, snapshot(core.NewDate(2023, 1, 10), "1", "2"))
	require.NoError(t, err)

	_, err = env.balances.Save(ctx, snapshot(core.NewDate(2023, 1, 10), "3", "4"))
	assert.ErrorIs(t, err, core.ErrDuplicateDate)
	assert.Contains(t, err.Error(), "2023-01-10")
	assert.Len(t, env.publisher.events, 1)
}

func TestBalanceService_SaveExtendsPeriodToLaterDate(t *testing.T) {
	env := newTestEnv(t, core.NewDate(2023, 1, 1))
	ctx := context.Background()

	_, err := env.balances.Save(ctx, snapshot(core.NewDate(2023, 3, 5), "1", "0"))
	require.NoError(t, err)
	_, err = env.balances.Save(ctx, snapshot(core.NewDate(2023, 2, 5), "1", "0"))
	require.NoError(t, err)

	assert.Equal(t, "2023-03-05", env.period.End().String())
}

func TestBalanceService_SaveRejectsDateBeforeStart(t *testing.T) {
	env := newTestEnv(t, core.NewDate(2023, 1, 1))

	_, err := env.balances.Save(context.Background(), snapshot(core.NewDate(2022, 12, 31), "1", "0"))

	assert.ErrorIs(t, err, core.ErrOutOfBudgetPeriod)
}

func TestBalanceService_SaveCopiesIncomeAndProjectsFromPrevious(t *testing.T) {
	env := newTestEnv(t, core.NewDate(2023, 1, 1))
	ctx := context.Background()

	_, err := env.incomes.Save(ctx, core.IncomeSource{Name: "Salary", Value: dec("500"), Currency: core.UAH, AccrualDay: 10})
	require.NoError(t, err)

	first, err := env.balances.Save(ctx, snapshot(core.NewDate(2023, 1, 1), "500", "0"))
	require.NoError(t, err)
	require.NotNil(t, first.ExpectedExpense)
	assert.True(t, first.ExpectedExpense.Total().IsZero(), "first snapshot has no history")
	require.Len(t, first.IncomeSources, 1)
	assert.Equal(t, "Salary", first.IncomeSources[0].Name)

	_, err = env.balances.UpdateExpectedExpense(ctx, first.ID, core.ExpectedExpenseRecord{
		Total1to7: dec("100"), Total8to14: dec("100"), Total15to21: dec("100"), Total22to31: dec("100"),
	})
	require.NoError(t, err)

	// later changes to the source must not touch stored copies
	sources, err := env.incomes.List(ctx)
	require.NoError(t, err)
	sources[0].Value = dec("900")
	_, err = env.incomes.Save(ctx, sources[0])
	require.NoError(t, err)

	_, err = env.balances.Save(ctx, core.NewBalanceRecord{
		Date: core.NewDate(2023, 1, 31),
		Items: []core.BalanceItem{
			{Name: "Wallet", Cash: dec("400"), Card: dec("0")},
			{Name: "Bank", Cash: dec("0"), Card: dec("600")},
		},
	})
	require.NoError(t, err)

	reloaded, err := env.balances.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IncomeSources[0].Value.Equal(dec("500")))

	latest, ok, err := env.balances.GetLatest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2023-01-31", latest.Date.String())
	assert.Equal(t, "2023-01-31", latest.Estimate.EndOfMonthDate.String())
	assert.True(t, latest.Estimate.PreviousTotal.Equal(dec("1000")))
	assert.True(t, latest.Estimate.IncomeByEndOfMonth.Equal(dec("900")))
	assert.True(t, latest.Estimate.ExpenseByEndOfMonth.Equal(dec("400")))
	assert.True(t, latest.Estimate.ProfitByEndOfMonth.Equal(dec("1500")))
}

func TestBalanceService_GetLatestEmpty(t *testing.T) {
	env := newTestEnv(t, core.NewDate(2023, 1, 1))

	_, ok, err := env.balances.GetLatest(context.Background())

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBalanceService_FindAllInIntervalValidatesBeforeStorage(t *testing.T) {
	env := newTestEnv(t, core.NewDate(2023, 1, 1))
	ctx := context.Background()
	_, err := env.balances.Save(ctx, snapshot(core.NewDate(2023, 1, 20), "1", "0"))
	require.NoError(t, err)

	_, err = env.balances.FindAllInInterval(ctx, core.NewDate(2023, 1, 20), core.NewDate(2023, 1, 1))
	assert.ErrorIs(t, err, core.ErrReversedDateOrder)

	_, err = env.balances.FindAllInInterval(ctx, core.NewDate(2022, 1, 1), core.NewDate(2023, 1, 1))
	assert.ErrorIs(t, err, core.ErrOutOfBudgetPeriod)

	_, err = env.balances.FindAllInInterval(ctx, core.NewDate(2023, 1, 1), core.NewDate(2023, 2, 1))
	assert.ErrorIs(t, err, core.ErrOutOfBudgetPeriod)

	assert.Zero(t, env.counting.reads())

	got, err := env.balances.FindAllInInterval(ctx, core.NewDate(2023, 1, 1), core.NewDate(2023, 1, 20))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Estimate.PreviousTotal.Equal(dec("1")))
	assert.Equal(t, int64(1), env.counting.reads())
}

func TestBalanceService_FindAllInIntervalEstimatesEachRecord(t *testing.T) {
	env := newTestEnv(t, core.NewDate(2023, 1, 1))
	ctx := context.Background()
	for _, d := range []core.Date{core.NewDate(2023, 1, 5), core.NewDate(2023, 2, 5)} {
		_, err := env.balances.Save(ctx, snapshot(d, "10", "0"))
		require.NoError(t, err)
	}

	got, err := env.balances.FindAllInInterval(ctx, core.NewDate(2023, 1, 1), core.NewDate(2023, 2, 5))
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "2023-01-31", got[0].Estimate.EndOfMonthDate.String())
	assert.Equal(t, "2023-02-28", got[1].Estimate.EndOfMonthDate.String())
}

func TestBalanceService_Delete(t *testing.T) {
	env := newTestEnv(t, core.NewDate(2023, 1, 1))
	ctx := context.Background()
	saved, err := env.balances.Save(ctx, snapshot(core.NewDate(2023, 1, 5), "10", "0"))
	require.NoError(t, err)

	require.NoError(t, env.balances.Delete(ctx, saved.ID))

	err = env.balances.Delete(ctx, saved.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Contains(t, err.Error(), "balance with id")

	require.Len(t, env.publisher.events, 2)
	assert.Equal(t, amqp.EventBalanceDeleted, env.publisher.events[1].Type)
	assert.Equal(t, "2023-01-05", env.publisher.events[1].Date)
}

func TestBalanceService_PublishFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t, core.NewDate(2023, 1, 1))
	env.publisher.err = errors.New("broker down")

	_, err := env.balances.Save(context.Background(), snapshot(core.NewDate(2023, 1, 5), "10", "0"))

	assert.NoError(t, err)
}

func TestBalanceService_NilPublisher(t *testing.T) {
	store := memory.New()
	p, err := period.New(core.NewDate(2023, 1, 1), core.NewDate(2023, 1, 1))
	require.NoError(t, err)
	svc := NewBalanceService(store, store, p, nil)

	_, err = svc.Save(context.Background(), snapshot(core.NewDate(2023, 1, 2), "1", "0"))

	assert.NoError(t, err)
}

func TestBalanceService_ConcurrentSavesKeepLatestEnd(t *testing.T) {
	env := newTestEnv(t, core.NewDate(2023, 1, 1))
	ctx := context.Background()

	var wg sync.WaitGroup
	for day := 1; day <= 28; day++ {
		wg.Add(1)
		go func(day int) {
			defer wg.Done()
			_, err := env.balances.Save(ctx, snapshot(core.NewDate(2023, 2, day), "1", "0"))
			assert.NoError(t, err)
		}(day)
	}
	wg.Wait()

	assert.Equal(t, "2023-02-28", env.period.End().String())
}

func TestSeedExpectedExpense(t *testing.T) {
	env := newTestEnv(t, core.NewDate(2023, 1, 1))
	ctx := context.Background()

	for _, e := range []core.Expense{
		{Value: dec("300"), Date: core.NewDate(2023, 1, 1), Category: "rent", Regular: true},
		{Value: dec("20"), Date: core.NewDate(2023, 1, 25), Category: "phone", Regular: true},
		{Value: dec("70"), Date: core.NewDate(2023, 1, 26), Category: "food"},
	} {
		_, err := env.expenses.Save(ctx, e)
		require.NoError(t, err)
	}
	saved, err := env.balances.Save(ctx, snapshot(core.NewDate(2023, 2, 3), "100", "0"))
	require.NoError(t, err)

	seeded, err := SeedExpectedExpense(ctx, env.balances, env.expenses, saved.ID)
	require.NoError(t, err)
	assert.True(t, seeded.Total().Equal(dec("320")))

	got, err := env.balances.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, got.Estimate.ExpenseByEndOfMonth.Equal(dec("320")))
	assert.True(t, got.Estimate.ProfitByEndOfMonth.Equal(dec("-220")))

	_, err = SeedExpectedExpense(ctx, env.balances, env.expenses, saved.ID+100)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

// byIDCounter counts lookups by id on top of the counting store.
type byIDCounter struct {
	*countingStore
	byID atomic.Int64
}

func (c *byIDCounter) FindBalanceRecordByID(ctx context.Context, id int64) (core.BalanceRecord, error) {
	c.byID.Add(1)
	return c.countingStore.FindBalanceRecordByID(ctx, id)
}

func TestBalanceService_RecordCache(t *testing.T) {
	env := newTestEnv(t, core.NewDate(2023, 1, 1))
	ctx := context.Background()
	store := &byIDCounter{countingStore: env.counting}
	svc := NewBalanceService(store, store, env.period, nil).
		WithRecordCache(cache.NewLRUCache[int64, core.EstimatedBalanceRecord](8, time.Hour))

	saved, err := svc.Save(ctx, snapshot(core.NewDate(2023, 1, 10), "100", "50"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := svc.Get(ctx, saved.ID)
		require.NoError(t, err)
		assert.True(t, got.TotalBalance().Equal(dec("150")))
	}
	assert.Equal(t, int64(1), store.byID.Load())

	_, err = svc.UpdateExpectedExpense(ctx, saved.ID, core.ExpectedExpenseRecord{Total22to31: dec("30")})
	require.NoError(t, err)
	got, err := svc.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), store.byID.Load())
	assert.True(t, got.Estimate.ExpenseByEndOfMonth.Equal(dec("30")))

	require.NoError(t, svc.Delete(ctx, saved.ID))
	_, err = svc.Get(ctx, saved.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

// pausingStore holds the first by-id lookup after it has read storage.
type pausingStore struct {
	*countingStore
	pause   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (p *pausingStore) FindBalanceRecordByID(ctx context.Context, id int64) (core.BalanceRecord, error) {
	rec, err := p.countingStore.FindBalanceRecordByID(ctx, id)
	if p.pause.CompareAndSwap(true, false) {
		p.entered <- struct{}{}
		<-p.release
	}
	return rec, err
}

func TestBalanceService_RecordCacheSkipsReadsOverlappingWrites(t *testing.T) {
	for _, write := range []string{"update", "delete"} {
		t.Run(write, func(t *testing.T) {
			env := newTestEnv(t, core.NewDate(2023, 1, 1))
			ctx := context.Background()
			store := &pausingStore{
				countingStore: env.counting,
				entered:       make(chan struct{}),
				release:       make(chan struct{}),
			}
			svc := NewBalanceService(store, store, env.period, nil).
				WithRecordCache(cache.NewLRUCache[int64, core.EstimatedBalanceRecord](8, time.Hour))
			saved, err := svc.Save(ctx, snapshot(core.NewDate(2023, 1, 10), "100", "0"))
			require.NoError(t, err)

			store.pause.Store(true)
			done := make(chan error, 1)
			go func() {
				_, err := svc.Get(ctx, saved.ID)
				done <- err
			}()
			<-store.entered

			switch write {
			case "update":
				_, err = svc.UpdateExpectedExpense(ctx, saved.ID, core.ExpectedExpenseRecord{Total22to31: dec("30")})
			case "delete":
				err = svc.Delete(ctx, saved.ID)
			}
			require.NoError(t, err)
			close(store.release)
			require.NoError(t, <-done)

			got, err := svc.Get(ctx, saved.ID)
			if write == "delete" {
				assert.ErrorIs(t, err, core.ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Estimate.ExpenseByEndOfMonth.Equal(dec("30")))
		})
	}
}

func TestBalanceService_SeedsEstimateFromRegularExpenses(t *testing.T) {
	env := newTestEnv(t, core.NewDate(2023, 1, 1))
	ctx := context.Background()
	svc := NewBalanceService(env.counting, env.counting, env.period, nil).WithRegularExpenseHistory(env.counting)

	for _, e := range []core.Expense{
		{Value: dec("700"), Date: core.NewDate(2023, 1, 3), Category: "rent", Regular: true},
		{Value: dec("40"), Date: core.NewDate(2023, 1, 25), Category: "phone", Regular: true},
		{Value: dec("90"), Date: core.NewDate(2023, 1, 12), Category: "food"},
	} {
		_, err := env.expenses.Save(ctx, e)
		require.NoError(t, err)
	}

	t.Run("no previous snapshot", func(t *testing.T) {
		first, err := svc.Save(ctx, snapshot(core.NewDate(2023, 2, 2), "100", "0"))
		require.NoError(t, err)
		require.NotNil(t, first.ExpectedExpense)
		assert.True(t, first.ExpectedExpense.Total1to7.Equal(dec("700")))
		assert.True(t, first.ExpectedExpense.Total22to31.Equal(dec("40")))
		assert.True(t, first.ExpectedExpense.Total8to14.IsZero())
	})

	t.Run("zero previous estimate", func(t *testing.T) {
		prev, err := svc.Save(ctx, snapshot(core.NewDate(2023, 2, 10), "100", "0"))
		require.NoError(t, err)
		_, err = svc.UpdateExpectedExpense(ctx, prev.ID, core.ExpectedExpenseRecord{})
		require.NoError(t, err)

		next, err := svc.Save(ctx, snapshot(core.NewDate(2023, 2, 20), "100", "0"))
		require.NoError(t, err)
		assert.True(t, next.ExpectedExpense.Total1to7.Equal(dec("700")))
		assert.True(t, next.ExpectedExpense.Total().Equal(dec("740")))
	})

	t.Run("non-zero previous estimate wins", func(t *testing.T) {
		prev, err := svc.Save(ctx, snapshot(core.NewDate(2023, 3, 1), "100", "0"))
		require.NoError(t, err)
		_, err = svc.UpdateExpectedExpense(ctx, prev.ID, core.ExpectedExpenseRecord{Total15to21: dec("55")})
		require.NoError(t, err)

		next, err := svc.Save(ctx, snapshot(core.NewDate(2023, 3, 5), "100", "0"))
		require.NoError(t, err)
		assert.True(t, next.ExpectedExpense.Total15to21.Equal(dec("55")))
		assert.True(t, next.ExpectedExpense.Total1to7.IsZero())
	})
}
