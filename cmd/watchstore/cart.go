package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"watchstore/internal/apperr"
	"watchstore/internal/config"
	"watchstore/internal/models"
	"watchstore/internal/receipt"
)

func cartCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show and edit the active cart",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			c, err := a.cart.GetActiveCartWithItems(cmd.Context())
			if err != nil {
				return err
			}
			return printCart(cmd.Context(), a, c)
		},
	}

	var qty int
	add := &cobra.Command{
		Use:   "add PRODUCT_ID",
		Short: "Add a product, merging with an existing line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			p, err := a.products.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if _, err := a.cart.GetActiveCartWithItems(cmd.Context()); err != nil {
				return err
			}
			c, err := a.cart.AddProduct(cmd.Context(), p.ID, qty, p.Price)
			if err != nil {
				return err
			}
			return printCart(cmd.Context(), a, c)
		},
	}
	add.Flags().IntVar(&qty, "qty", 1, "quantity to add")

	remove := &cobra.Command{
		Use:   "remove ITEM_ID",
		Short: "Drop a line from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if _, err := a.cart.GetActiveCartWithItems(cmd.Context()); err != nil {
				return err
			}
			c, err := a.cart.RemoveProduct(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printCart(cmd.Context(), a, c)
		},
	}

	update := &cobra.Command{
		Use:   "update ITEM_ID QTY",
		Short: "Set the quantity of a line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("bad quantity %q: %w", args[1], apperr.ErrInvalidQuantity)
			}
			c, err := a.cart.GetActiveCartWithItems(cmd.Context())
			if err != nil {
				return err
			}
			if c == nil {
				return apperr.ErrCartUnavailable
			}
			i, ok := c.FindItem(args[0])
			if !ok {
				return fmt.Errorf("item %s: %w", args[0], apperr.ErrItemNotFound)
			}
			p, err := a.products.Get(cmd.Context(), c.Items[i].ProductID.ID)
			if err != nil {
				return err
			}
			c, err = a.cart.UpdateQuantity(cmd.Context(), args[0], n, p.Price)
			if err != nil {
				return err
			}
			return printCart(cmd.Context(), a, c)
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every line",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			if _, err := a.cart.GetActiveCartWithItems(cmd.Context()); err != nil {
				return err
			}
			c, err := a.cart.ClearCart(cmd.Context())
			if err != nil {
				return err
			}
			return printCart(cmd.Context(), a, c)
		},
	}

	cmd.AddCommand(add, remove, update, clearCmd)
	return cmd
}

// productNames maps product ids to names for display. A failed lookup
// leaves ids in place of names.
func productNames(ctx context.Context, a *app) map[string]string {
	list, err := a.products.List(ctx)
	if err != nil {
		a.log.Warn("product names unavailable", "error", err)
		return nil
	}
	names := make(map[string]string, len(list))
	for _, p := range list {
		names[p.ID] = p.Name
	}
	return names
}

func printCart(ctx context.Context, a *app, c *models.CartWithItems) error {
	if c == nil || len(c.ActiveItems()) == 0 {
		a.printf("cart is empty\n")
		return nil
	}
	names := productNames(ctx, a)
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "cart %s\n", c.ID)
	fmt.Fprintln(tw, "ITEM\tPRODUCT\tQTY\tSUBTOTAL")
	for _, it := range c.ActiveItems() {
		name := it.ProductID.ID
		if n, ok := names[name]; ok {
			name = n
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", it.ID, name, it.ProductQtd, models.FormatMoney(it.TotalAmount))
	}
	fmt.Fprintf(tw, "\t%d items\t\t%s\n", c.ItemCount(), models.FormatMoney(c.TotalOrder))
	return tw.Flush()
}

func checkoutCmd(get func() *app) *cobra.Command {
	var qrPath string
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place the order and close the cart",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			ctx := cmd.Context()
			c, err := a.cart.GetActiveCartWithItems(ctx)
			if err != nil {
				return err
			}
			if c == nil || len(c.ActiveItems()) == 0 {
				return fmt.Errorf("checkout: %w", apperr.ErrCartUnavailable)
			}

			// The local cart has no server record to order against.
			var orderID string
			if a.cfg.CartStrategy != config.CartStrategyLocal {
				if orderID, err = a.orders.Create(ctx, c.ID); err != nil {
					return err
				}
			}

			snapshot, err := a.cart.FinalizePurchase(ctx)
			if err != nil {
				return err
			}
			r := receipt.Receipt{
				OrderID: orderID,
				At:      time.Now(),
				Cart:    snapshot,
				Names:   productNames(ctx, a),
			}
			if u, ok := a.auth.CurrentUser(ctx); ok {
				r.Customer = u.Name
			}
			if err := receipt.Render(a.out, r); err != nil {
				return err
			}
			if qrPath != "" {
				if err := receipt.WriteQR(qrPath, r); err != nil {
					return err
				}
				a.printf("receipt QR written to %s\n", qrPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&qrPath, "qr", "", "write a receipt QR code PNG here")
	return cmd
}
