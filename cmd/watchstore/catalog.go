package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"watchstore/internal/models"
)

func productsCmd(get func() *app) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"p"},
		Short:   "Browse and manage the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			var (
				list []models.Product
				err  error
			)
			if search != "" {
				list, err = a.products.Search(cmd.Context(), search)
			} else {
				list, err = a.products.List(cmd.Context())
			}
			if err != nil {
				return err
			}
			printProducts(a, list)
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "filter by name, description or color")

	var imagePath string
	show := &cobra.Command{
		Use:   "show PRODUCT_ID",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			p, err := a.products.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.printf("%s  %s\n", p.ID, p.Name)
			a.printf("price: %s  stock: %d  year: %d\n", models.FormatMoney(p.Price), p.StockQtd, p.Year)
			if len(p.Color) > 0 {
				a.printf("colors: %s\n", strings.Join(p.Color, ", "))
			}
			if p.Description != "" {
				a.printf("%s\n", p.Description)
			}
			if imagePath != "" {
				if p.ImageURL == "" {
					return fmt.Errorf("product %s has no image", p.ID)
				}
				if err := download(cmd.Context(), a, p.ImageURL, imagePath); err != nil {
					return err
				}
				a.printf("image saved to %s\n", imagePath)
			}
			return nil
		},
	}
	show.Flags().StringVar(&imagePath, "image", "", "save the product image to this file")

	var (
		p     models.Product
		price string
		color []string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Add a product (admin)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			d, err := decimal.NewFromString(price)
			if err != nil {
				return fmt.Errorf("bad --price %q: %w", price, err)
			}
			p.Price, p.Color, p.Status = d, color, true
			id, err := a.products.Create(cmd.Context(), p)
			if err != nil {
				return err
			}
			a.printf("created product %s\n", id)
			return nil
		},
	}
	cf := create.Flags()
	cf.StringVar(&p.Name, "name", "", "product name")
	cf.StringVar(&price, "price", "", "unit price, e.g. 199.90")
	cf.StringSliceVar(&color, "color", nil, "colors (repeatable)")
	cf.StringVar(&p.Description, "description", "", "description")
	cf.IntVar(&p.Year, "year", 0, "model year")
	cf.IntVar(&p.StockQtd, "stock", 0, "units in stock")
	cf.StringVar(&p.ImageURL, "image", "", "image URL")
	create.MarkFlagRequired("name")
	create.MarkFlagRequired("price")

	del := &cobra.Command{
		Use:   "delete PRODUCT_ID",
		Short: "Remove a product (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if err := a.products.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.printf("deleted product %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(show, create, del)
	return cmd
}

// download fetches url with the session's bearer token into path.
func download(ctx context.Context, a *app, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	client := a.auth.HTTPClient(ctx)
	client.Timeout = a.cfg.Timeout
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: status %d", url, resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printProducts(a *app, list []models.Product) {
	if len(list) == 0 {
		a.printf("no products\n")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tSTOCK")
	for _, p := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", p.ID, p.Name, models.FormatMoney(p.Price), p.StockQtd)
	}
	tw.Flush()
}

func suppliersCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suppliers",
		Short: "Manage suppliers (admin)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			list, err := a.suppliers.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				a.printf("no suppliers\n")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tPHONE\tCNPJ")
			for _, s := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Name, s.Email, s.Phone, s.CNPJ)
			}
			return tw.Flush()
		},
	}

	var sup models.Supplier
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a supplier",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			id, err := a.suppliers.Create(cmd.Context(), sup)
			if err != nil {
				return err
			}
			a.printf("created supplier %s\n", id)
			return nil
		},
	}
	f := create.Flags()
	f.StringVar(&sup.Name, "name", "", "company name")
	f.StringVar(&sup.Email, "email", "", "contact email")
	f.StringVar(&sup.Phone, "phone", "", "contact phone")
	f.StringVar(&sup.CNPJ, "cnpj", "", "CNPJ")
	f.StringVar(&sup.AddressID, "address-id", "", "address id")
	create.MarkFlagRequired("name")

	del := &cobra.Command{
		Use:   "delete SUPPLIER_ID",
		Short: "Remove a supplier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if err := a.suppliers.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.printf("deleted supplier %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(create, del)
	return cmd
}
