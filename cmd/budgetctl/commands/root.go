package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"budget/internal/amqp"
	"budget/internal/backend"
	"budget/internal/cli"
	"budget/internal/config"
	applog "budget/internal/log"
	"budget/internal/services"
)

var (
	dbPath   string
	startArg string
	verbose  bool

	appCfg     *config.Config
	result     *backend.BackendResult
	svc        *backend.Services
	amqpClient *amqp.Client
)

// Execute runs budgetctl against the SQLite database shared with the server.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cli.LoadEnvFile()
	cfg := config.Load()
	appCfg = cfg

	root := &cobra.Command{
		Use:           "budgetctl",
		Short:         "Inspect and maintain the budget database",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			applog.SetDefault(applog.New(applog.Config{
				Level:     level,
				Component: applog.ComponentCLI,
				Output:    cmd.ErrOrStderr(),
			}))
		},
	}

	root.PersistentFlags().StringVar(&dbPath, "db", cfg.SQLiteDBPath, "path to the SQLite database")
	root.PersistentFlags().StringVar(&startArg, "start", cfg.BudgetStartDate, "budget period start used when the database has none (YYYY-MM-DD, default today)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(balanceCmd(), periodCmd(), migrateCmd())
	return root
}

// openServices opens the database and wires the services. Commands that need
// them call it from RunE so that `migrate` and `--help` never touch the
// database through the services.
func openServices(ctx context.Context) error {
	start, err := (&config.Config{BudgetStartDate: startArg}).BudgetStart()
	if err != nil {
		return fmt.Errorf("--start: %w", err)
	}

	result, err = backend.NewFactory(slog.Default()).CreateBackend(ctx, backend.Config{
		Type:         backend.SQLiteBackend,
		SQLiteDBPath: dbPath,
	})
	if err != nil {
		return err
	}

	// Deletes made here reach the export worker when AMQP is configured.
	var publisher services.EventPublisher
	if appCfg != nil {
		amqpClient = cli.ConnectAMQP(applog.New(applog.Config{Component: applog.ComponentCLI, Handler: slog.Default().Handler()}), appCfg)
		if amqpClient != nil {
			publisher = amqpClient
		}
	}

	svc, err = backend.NewServices(ctx, result, start, publisher)
	if err != nil {
		closeServices()
		return err
	}
	return nil
}

func closeServices() {
	if amqpClient != nil {
		_ = amqpClient.Close()
	}
	if result != nil && result.Cleanup != nil {
		_ = result.Cleanup()
	}
	result, svc, amqpClient = nil, nil, nil
}

// withServices wraps a RunE body with openServices and closeServices.
func withServices(run func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := openServices(cmd.Context()); err != nil {
			return err
		}
		defer closeServices()
		return run(cmd, args)
	}
}

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
