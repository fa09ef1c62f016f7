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

func ordersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect and manage orders",
	}
	cmd.AddCommand(ordersListCmd())
	cmd.AddCommand(ordersSetStatusCmd())
	return cmd
}

func orderService(e *env) (service.OrderService, func()) {
	pub := e.publisher()
	svc := service.NewOrderService(repository.NewOrderRepository(e.pool, e.logger), pub, e.logger)
	return svc, func() { _ = pub.Close() }
}

func ordersListCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				svc, done := orderService(e)
				defer done()

				var (
					orders []model.Order
					err    error
				)
				if email != "" {
					orders, err = svc.ListByCustomer(ctx, email)
				} else {
					orders, err = svc.ListAll(ctx)
				}
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tDATE\tCUSTOMER\tITEMS\tTOTAL\tSTATUS\tPAYMENT")
				for _, o := range orders {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
						o.ID,
						o.CreatedAt.Local().Format("2006-01-02 15:04"),
						o.CustomerEmail,
						len(o.Items),
						o.Total.Display(),
						o.Status,
						o.PaymentID,
					)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "only orders placed with this email")
	return cmd
}

func ordersSetStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <order-id> <status>",
		Short: "Move an order to Pending, Processing, Shipped, Delivered or Cancelled",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := model.ParseOrderStatus(args[1])
			if err != nil {
				return err
			}

			return withEnv(cmd, func(ctx context.Context, e *env) error {
				svc, done := orderService(e)
				defer done()

				order, err := svc.SetStatus(ctx, args[0], status)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "order %s is now %s\n", order.ID, order.Status)
				return nil
			})
		},
	}
}
