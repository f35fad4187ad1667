// Package services wraps the storefront screens' REST calls: catalog,
// suppliers, the logged-in client's profile, orders and the admin
// dashboard. None of them keep state beyond the REST client.
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"watchstore/internal/apiclient"
	"watchstore/internal/config"
	"watchstore/internal/models"
)

func byID(id string) map[string]string { return map[string]string{"id": id} }

type Products struct {
	api *apiclient.Client
}

func NewProducts(api *apiclient.Client) *Products { return &Products{api: api} }

func (s *Products) List(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	if err := s.api.Call(ctx, config.RouteProductList, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("services: list products: %w", err)
	}
	return out, nil
}

func (s *Products) Get(ctx context.Context, id string) (models.Product, error) {
	var out models.Product
	if err := s.api.Call(ctx, config.RouteProductGet, byID(id), nil, &out); err != nil {
		return models.Product{}, fmt.Errorf("services: get product %s: %w", id, err)
	}
	return out, nil
}

// Search filters the listing by a case-insensitive match on name,
// description or color, keeping only products on sale.
func (s *Products) Search(ctx context.Context, term string) ([]models.Product, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]models.Product, 0, len(all))
	for _, p := range all {
		if !p.Status {
			continue
		}
		if term == "" || matches(p, term) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	return out, nil
}

func matches(p models.Product, term string) bool {
	if strings.Contains(strings.ToLower(p.Name), term) || strings.Contains(strings.ToLower(p.Description), term) {
		return true
	}
	for _, c := range p.Color {
		if strings.EqualFold(c, term) {
			return true
		}
	}
	return false
}

func (s *Products) Create(ctx context.Context, p models.Product) (string, error) {
	var out struct {
		models.Message
		ID string `json:"id"`
	}
	if err := s.api.Call(ctx, config.RouteProductCreate, nil, p, &out); err != nil {
		return "", fmt.Errorf("services: create product: %w", err)
	}
	return out.ID, nil
}

func (s *Products) Update(ctx context.Context, id string, p models.Product) error {
	if err := s.api.Call(ctx, config.RouteProductUpdate, byID(id), p, nil); err != nil {
		return fmt.Errorf("services: update product %s: %w", id, err)
	}
	return nil
}

func (s *Products) Delete(ctx context.Context, id string) error {
	if err := s.api.Call(ctx, config.RouteProductDelete, byID(id), nil, nil); err != nil {
		return fmt.Errorf("services: delete product %s: %w", id, err)
	}
	return nil
}

// LowStock lists products the backend flags as running out.
func (s *Products) LowStock(ctx context.Context) ([]models.LowStockProduct, error) {
	var out []models.LowStockProduct
	if err := s.api.Call(ctx, config.RouteProductLowStock, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("services: low stock: %w", err)
	}
	return out, nil
}

type Suppliers struct {
	api *apiclient.Client
}

func NewSuppliers(api *apiclient.Client) *Suppliers { return &Suppliers{api: api} }

func (s *Suppliers) List(ctx context.Context) ([]models.Supplier, error) {
	var out []models.Supplier
	if err := s.api.Call(ctx, config.RouteSupplierList, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("services: list suppliers: %w", err)
	}
	return out, nil
}

func (s *Suppliers) Get(ctx context.Context, id string) (models.Supplier, error) {
	var out models.Supplier
	if err := s.api.Call(ctx, config.RouteSupplierGet, byID(id), nil, &out); err != nil {
		return models.Supplier{}, fmt.Errorf("services: get supplier %s: %w", id, err)
	}
	return out, nil
}

func (s *Suppliers) Create(ctx context.Context, sup models.Supplier) (string, error) {
	var out struct {
		models.Message
		ID string `json:"id"`
	}
	if err := s.api.Call(ctx, config.RouteSupplierCreate, nil, sup, &out); err != nil {
		return "", fmt.Errorf("services: create supplier: %w", err)
	}
	return out.ID, nil
}

// Update sends only the non-empty fields of sup.
func (s *Suppliers) Update(ctx context.Context, id string, sup models.Supplier) error {
	patch := map[string]string{}
	for k, v := range map[string]string{
		"name":     sup.Name,
		"email":    sup.Email,
		"phone":    sup.Phone,
		"cnpj":     sup.CNPJ,
		"adressId": sup.AddressID,
	} {
		if v != "" {
			patch[k] = v
		}
	}
	if err := s.api.Call(ctx, config.RouteSupplierUpdate, byID(id), patch, nil); err != nil {
		return fmt.Errorf("services: update supplier %s: %w", id, err)
	}
	return nil
}

func (s *Suppliers) Delete(ctx context.Context, id string) error {
	if err := s.api.Call(ctx, config.RouteSupplierDelete, byID(id), nil, nil); err != nil {
		return fmt.Errorf("services: delete supplier %s: %w", id, err)
	}
	return nil
}
