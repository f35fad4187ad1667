package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"watchstore/internal/models"
	"watchstore/internal/services"
)

func ordersCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "List orders",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			list, err := a.orders.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				a.printf("no orders\n")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCART\tCREATED")
			for _, o := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", o.ID, o.CartID, o.CreatedAt)
			}
			return tw.Flush()
		},
	}
}

func dashboardCmd(get func() *app) *cobra.Command {
	var (
		month  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Monthly sales, best seller and low stock (admin)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			if u, ok := a.auth.CurrentUser(cmd.Context()); !ok || !u.IsAdmin() {
				return errors.New("dashboard: admin only")
			}
			at := time.Now()
			if month != "" {
				t, err := time.Parse("2006-01", month)
				if err != nil {
					return fmt.Errorf("bad --month %q, want YYYY-MM", month)
				}
				at = t
			}
			from, to := services.MonthRange(at)
			d, err := services.LoadDashboard(cmd.Context(), a.orders, a.products, from, to)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(d)
			}
			a.printf("sales %s..%s: %s\n", d.Sales.Period.Initial, d.Sales.Period.Final, models.FormatMoney(d.Sales.TotalSales))
			if d.BestSeller != nil {
				a.printf("best seller: %s (%d sold)\n", d.BestSeller.ProductName, d.BestSeller.TotalSold)
			} else {
				a.printf("best seller: none yet\n")
			}
			if len(d.LowStock) == 0 {
				a.printf("low stock: none\n")
				return nil
			}
			a.printf("low stock:\n")
			for _, p := range d.LowStock {
				a.printf("  %s  %s  %d left\n", p.ID, p.Name, p.StockQtd)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month to report, YYYY-MM (default: current)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
