package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"vapestore/internal/model"
	"vapestore/internal/repository"
	"vapestore/internal/service"

	"github.com/spf13/cobra"
)

func productsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Inspect the catalog",
	}
	cmd.AddCommand(productsListCmd())
	return cmd
}

func productsListCmd() *cobra.Command {
	var (
		category string
		brand    string
		maxPrice string
		sortBy   string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := service.Filter{Category: category, Brand: brand, Sort: sortBy}
			if maxPrice != "" {
				p, err := model.ParsePrice(maxPrice)
				if err != nil {
					return fmt.Errorf("invalid --max-price: %w", err)
				}
				f.MaxPrice = p
			}

			return withEnv(cmd, func(ctx context.Context, e *env) error {
				svc := service.NewProductService(repository.NewProductRepository(e.pool, e.logger), nil, e.logger)
				products, err := svc.List(ctx, f)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPRICE\tSTOCK\tRATING")
				for _, p := range products {
					r := p.Rating()
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%.1f (%d)\n",
						p.ID, p.Name, p.Category, p.Price.Display(), p.Stock, r.Average, r.Count)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only this category")
	cmd.Flags().StringVar(&brand, "brand", "", "only names containing this brand")
	cmd.Flags().StringVar(&maxPrice, "max-price", "", "upper price bound, e.g. 1500 or \"$U 1.500\"")
	cmd.Flags().StringVar(&sortBy, "sort", service.SortByID, "id, price_asc, price_desc or name")
	return cmd
}
