package main

import (
	"context"
	"fmt"

	"vapestore/internal/catalog"
	"vapestore/internal/repository"
	"vapestore/internal/service"

	"github.com/spf13/cobra"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed [files...]",
		Short: "Load the seed catalog into an empty database",
		Long: `Load catalog files (YAML, JSON, optionally gzipped) into the products table.

The seed runs once per database. When no files are given the SEED_FILES
setting is used.

Examples:
  storectl seed
  storectl seed data/catalog.yaml extra.yaml.gz`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				files := args
				if len(files) == 0 {
					files = e.cfg.Seed.Files
				}

				products, err := catalog.LoadAll(ctx, catalog.NewFileLoader(e.logger), files, e.logger)
				if err != nil {
					return err
				}

				svc := service.NewProductService(repository.NewProductRepository(e.pool, e.logger), nil, e.logger)
				seeded, err := svc.SeedIfEmpty(ctx, products)
				if err != nil {
					return err
				}

				if seeded {
					fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products\n", len(products))
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "catalog already seeded, nothing to do")
				}
				return nil
			})
		},
	}
}
