package backend

import (
	"context"
	"fmt"
	"log/slog"

	"budget/internal/core"
	"budget/internal/period"
	"budget/internal/services"
	"budget/internal/storage"
	"budget/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   repo,
		Pinger:  repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context) (*BackendResult, error) {
	store := memory.New()
	f.logger.InfoContext(ctx, "Initialized memory backend, data is lost on exit")
	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}

// Services bundles the budget services sharing one store and budget period.
type Services struct {
	Period   *period.BudgetPeriod
	Balances *services.BalanceService
	Incomes  *services.IncomeService
	Expenses *services.ExpenseService
	Storage  *services.StorageService
}

// NewServices loads the budget period from the backend store, initializing it
// at defaultStart on first use, and wires the services. publisher may be nil.
func NewServices(ctx context.Context, result *BackendResult, defaultStart core.Date, publisher services.EventPublisher) (*Services, error) {
	p, err := period.Load(ctx, result.Store, defaultStart)
	if err != nil {
		return nil, err
	}
	balances := services.NewBalanceService(result.Store, result.Store, p, publisher).
		WithRegularExpenseHistory(result.Store)
	return &Services{
		Period:   p,
		Balances: balances,
		Incomes:  services.NewIncomeService(result.Store),
		Expenses: services.NewExpenseService(result.Store, p),
		Storage:  services.NewStorageService(result.Store, p),
	}, nil
}
