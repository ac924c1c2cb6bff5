package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/config"
	"budget/internal/core"
)

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db"})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.Equal(t, "x.db", cfg.SQLiteDBPath)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)

	_, err = FromAppConfig(nil)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{Type: MemoryBackend}.Validate())
	assert.Error(t, Config{Type: SQLiteBackend}.Validate())
	assert.Error(t, Config{Type: "redis"}.Validate())
}

func TestCreateBackend_Memory(t *testing.T) {
	ctx := context.Background()
	res, err := NewFactory(nil).CreateBackend(ctx, Config{Type: MemoryBackend})
	require.NoError(t, err)
	assert.Nil(t, res.Pinger)
	defer res.Cleanup()

	svc, err := NewServices(ctx, res, core.NewDate(2024, 1, 1), nil)
	require.NoError(t, err)
	assert.True(t, svc.Period.Start().Equal(core.NewDate(2024, 1, 1)))
}

func TestCreateBackend_SQLitePersistsPeriod(t *testing.T) {
	ctx := context.Background()
	cfg := Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "nested", "budget.db")}

	res, err := NewFactory(nil).CreateBackend(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, res.Pinger)
	require.NoError(t, res.Pinger.Ping(ctx))

	svc, err := NewServices(ctx, res, core.NewDate(2024, 1, 1), nil)
	require.NoError(t, err)
	_, err = svc.Balances.Save(ctx, core.NewBalanceRecord{
		Date:  core.NewDate(2024, 2, 10),
		Items: []core.BalanceItem{{Name: "Bank"}},
	})
	require.NoError(t, err)
	require.NoError(t, res.Cleanup())

	res, err = NewFactory(nil).CreateBackend(ctx, cfg)
	require.NoError(t, err)
	defer res.Cleanup()

	// A different default must not override the persisted period.
	svc, err = NewServices(ctx, res, core.NewDate(2030, 1, 1), nil)
	require.NoError(t, err)
	start, end := svc.Period.Bounds()
	assert.Equal(t, "2024-01-01", start.String())
	assert.Equal(t, "2024-02-10", end.String())
}
