package main

import (
	"context"
	"fmt"

	"vapestore/internal/migrate"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(migrateUpCmd())
	cmd.AddCommand(migrateDownCmd())
	cmd.AddCommand(migrateStatusCmd())
	return cmd
}

func migrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				if err := migrate.Apply(ctx, e.pool); err != nil {
					return err
				}
				return printStatus(ctx, cmd, e)
			})
		},
	}
}

func migrateDownCmd() *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				if err := migrate.Rollback(ctx, e.pool, steps); err != nil {
					return err
				}
				return printStatus(ctx, cmd, e)
			})
		},
	}
	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "number of migrations to roll back")
	return cmd
}

func migrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				return printStatus(ctx, cmd, e)
			})
		},
	}
}

func printStatus(ctx context.Context, cmd *cobra.Command, e *env) error {
	status, err := migrate.Current(ctx, e.pool)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if status.Version == 0 {
		fmt.Fprintln(out, "schema: empty")
		return nil
	}
	if status.Dirty {
		fmt.Fprintf(out, "schema: version %d (dirty)\n", status.Version)
		return nil
	}
	fmt.Fprintf(out, "schema: version %d\n", status.Version)
	return nil
}
