package commands

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/backend"
	"budget/internal/core"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func seed(t *testing.T, db string) int64 {
	t.Helper()
	ctx := context.Background()
	res, err := backend.NewFactory(nil).CreateBackend(ctx, backend.Config{Type: backend.SQLiteBackend, SQLiteDBPath: db})
	require.NoError(t, err)
	defer res.Cleanup()

	s, err := backend.NewServices(ctx, res, core.NewDate(2024, 1, 1), nil)
	require.NoError(t, err)

	_, err = s.Expenses.Save(ctx, core.Expense{
		Value:    decimal.RequireFromString("40"),
		Date:     core.NewDate(2024, 1, 9),
		Category: "Rent",
		Regular:  true,
	})
	require.NoError(t, err)

	saved, err := s.Balances.Save(ctx, core.NewBalanceRecord{
		Date:  core.NewDate(2024, 2, 10),
		Items: []core.BalanceItem{{Name: "Bank", Cash: decimal.RequireFromString("250.5")}},
	})
	require.NoError(t, err)
	return saved.ID
}

func TestMigrateCreatesSchema(t *testing.T) {
	db := filepath.Join(t.TempDir(), "data", "budget.db")
	output, err := run(t, "migrate", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, output, "schema version 2 (dirty=false)")
}

func TestBalanceCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "budget.db")
	id := seed(t, db)

	output, err := run(t, "balance", "latest", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, output, "Bank")
	assert.Contains(t, output, "250.50")
	assert.Contains(t, output, "2024-02-29")

	output, err = run(t, "balance", "list", "--db", db, "--from", "2024-01-01", "--to", "2024-02-10")
	require.NoError(t, err)
	assert.Contains(t, output, "2024-02-10")

	output, err = run(t, "balance", "seed-expected", "--db", db, "--id", fmt.Sprint(id))
	require.NoError(t, err)
	assert.Contains(t, output, "40.00")

	output, err = run(t, "period", "show", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, output, "start: 2024-01-01")
	assert.Contains(t, output, "end:   2024-02-10")

	_, err = run(t, "balance", "delete", "--db", db, "--id", fmt.Sprint(id))
	require.NoError(t, err)

	output, err = run(t, "balance", "latest", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, output, "No balance records yet")

	_, err = run(t, "balance", "delete", "--db", db, "--id", fmt.Sprint(id))
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestBalanceListRejectsReversedDates(t *testing.T) {
	db := filepath.Join(t.TempDir(), "budget.db")
	seed(t, db)

	_, err := run(t, "balance", "list", "--db", db, "--from", "2024-02-10", "--to", "2024-01-01")
	assert.ErrorIs(t, err, core.ErrReversedDateOrder)
}

func TestDeleteRequiresID(t *testing.T) {
	_, err := run(t, "balance", "delete", "--db", filepath.Join(t.TempDir(), "budget.db"))
	assert.Error(t, err)
}
