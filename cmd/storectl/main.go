// Command storectl runs database chores against the store without
// starting the HTTP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"vapestore/internal/config"
	"vapestore/internal/database"
	"vapestore/internal/events"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := newRootCmd()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "storectl",
		Short:         "Maintenance commands for the vapestore database",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(productsCmd())
	rootCmd.AddCommand(ordersCmd())
	return rootCmd
}

// env is what every command needs: settings, a logger and a pool.
type env struct {
	cfg    *config.Config
	logger zerolog.Logger
	pool   *pgxpool.Pool
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.LoadStore()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := config.NewLoggerTo(os.Stderr, cfg.Logger).With().Str("component", "storectl").Logger()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return &env{cfg: cfg, logger: logger, pool: pool}, nil
}

func (e *env) Close() {
	e.pool.Close()
}

// publisher mirrors the server's choice so status changes made here still
// reach downstream consumers.
func (e *env) publisher() events.Publisher {
	if e.cfg.Kafka.Enabled && len(e.cfg.Kafka.Brokers) > 0 {
		return events.NewKafkaPublisher(e.cfg.Kafka.Brokers, e.cfg.Kafka.Topic, e.logger)
	}
	return events.NewLogPublisher(e.logger)
}

// withEnv opens an env for the duration of fn.
func withEnv(cmd *cobra.Command, fn func(ctx context.Context, e *env) error) error {
	ctx := cmd.Context()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	return fn(ctx, e)
}
