package cli

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"budget/internal/config"
	applog "budget/internal/log"
)

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Output: io.Discard})
}

func TestGracefulShutdown_ParentCancelRunsCleanup(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	cleaned := make(chan struct{})

	ctx, done := GracefulShutdown(parent, quietLogger(), time.Second, func(context.Context) { close(cleaned) })
	cancel()
	WaitForShutdown(ctx, done)

	select {
	case <-cleaned:
	default:
		t.Fatal("cleanup did not run")
	}
}

func TestGracefulShutdown_Timeout(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, done := GracefulShutdown(parent, quietLogger(), 20*time.Millisecond, func(ctx context.Context) {
		<-time.After(time.Second)
	})
	cancel()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("shutdown did not honor timeout")
	}
	assert.Error(t, ctx.Err())
}

func TestConnectAMQPDisabled(t *testing.T) {
	assert.Nil(t, ConnectAMQP(quietLogger(), &config.Config{}))
}

func TestSetupLoggerFallsBackOnBadLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")
	t.Setenv("LOG_FORMAT", "json")
	logger := SetupLogger(applog.ComponentCLI)
	assert.Equal(t, applog.ComponentCLI, logger.Component())
}
