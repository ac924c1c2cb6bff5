package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"budget/internal/core"
	"budget/internal/ports"
)

// IncomeService manages the income sources copied into every new snapshot.
type IncomeService struct {
	store ports.IncomeSourceStore
}

func NewIncomeService(store ports.IncomeSourceStore) *IncomeService {
	return &IncomeService{store: store}
}

func (s *IncomeService) List(ctx context.Context) ([]core.IncomeSource, error) {
	sources, err := s.store.ListIncomeSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list income sources: %w", err)
	}
	return sources, nil
}

// Save creates the source when ID is zero and updates it otherwise.
func (s *IncomeService) Save(ctx context.Context, src core.IncomeSource) (core.IncomeSource, error) {
	src.Name = strings.TrimSpace(src.Name)
	src.Currency = core.Currency(strings.ToUpper(string(src.Currency)))
	if err := src.Validate(); err != nil {
		return core.IncomeSource{}, err
	}
	saved, err := s.store.SaveIncomeSource(ctx, src)
	if err != nil {
		return core.IncomeSource{}, err
	}
	slog.InfoContext(ctx, "Income source saved", "id", saved.ID, "name", saved.Name)
	return saved, nil
}

func (s *IncomeService) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteIncomeSource(ctx, id)
}
