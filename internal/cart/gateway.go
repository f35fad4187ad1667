// Package cart keeps one coherent "active cart with items" view over a
// backend whose cart model varies between integrations.
package cart

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"watchstore/internal/apiclient"
	"watchstore/internal/config"
	"watchstore/internal/models"
)

// Backend is the cart and cart-item REST surface.
type Backend interface {
	ListCarts(ctx context.Context) ([]models.Cart, error)
	// GetCart reports ok=false on 404.
	GetCart(ctx context.Context, id string) (cart models.Cart, ok bool, err error)
	CreateCart(ctx context.Context, c models.Cart) (models.Cart, error)
	UpdateCart(ctx context.Context, id string, p CartPatch) error

	// GetItem reports ok=false on 404.
	GetItem(ctx context.Context, id string) (item models.CartItem, ok bool, err error)
	CreateItem(ctx context.Context, it models.CartItem) (models.CartItem, error)
	UpdateItem(ctx context.Context, id string, p ItemPatch) (models.CartItem, error)
	// DeleteItem treats 404 as already deleted.
	DeleteItem(ctx context.Context, id string) error
}

// CartPatch is the cart-level state the aggregator persists.
type CartPatch struct {
	TotalOrder   decimal.Decimal `json:"totalOrder"`
	ActiveStatus bool            `json:"activeStatus"`
	CartItemIDs  models.ItemRefs `json:"cartItemId"`
}

// ItemPatch changes quantity and line total together; they are never sent apart.
type ItemPatch struct {
	ProductQtd  int             `json:"productQtd"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// Gateway is the Backend over the REST client and the configured route table.
type Gateway struct {
	api *apiclient.Client
}

func NewGateway(api *apiclient.Client) *Gateway {
	return &Gateway{api: api}
}

func byID(id string) map[string]string { return map[string]string{"id": id} }

func (g *Gateway) ListCarts(ctx context.Context) ([]models.Cart, error) {
	var out []models.Cart
	if err := g.api.Call(ctx, config.RouteCartList, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("cart: list carts: %w", err)
	}
	return out, nil
}

func (g *Gateway) GetCart(ctx context.Context, id string) (models.Cart, bool, error) {
	var out models.Cart
	err := g.api.Call(ctx, config.RouteCartGet, byID(id), nil, &out)
	if apiclient.IsNotFound(err) {
		return models.Cart{}, false, nil
	}
	if err != nil {
		return models.Cart{}, false, fmt.Errorf("cart: get cart %s: %w", id, err)
	}
	return out, true, nil
}

func (g *Gateway) CreateCart(ctx context.Context, c models.Cart) (models.Cart, error) {
	var out models.Cart
	if err := g.api.Call(ctx, config.RouteCartCreate, nil, c, &out); err != nil {
		return models.Cart{}, fmt.Errorf("cart: create cart: %w", err)
	}
	return out, nil
}

func (g *Gateway) UpdateCart(ctx context.Context, id string, p CartPatch) error {
	if p.CartItemIDs == nil {
		p.CartItemIDs = models.ItemRefs{}
	}
	if err := g.api.Call(ctx, config.RouteCartUpdate, byID(id), p, nil); err != nil {
		return fmt.Errorf("cart: update cart %s: %w", id, err)
	}
	return nil
}

func (g *Gateway) GetItem(ctx context.Context, id string) (models.CartItem, bool, error) {
	var out models.CartItem
	err := g.api.Call(ctx, config.RouteCartItemGet, byID(id), nil, &out)
	if apiclient.IsNotFound(err) {
		return models.CartItem{}, false, nil
	}
	if err != nil {
		return models.CartItem{}, false, fmt.Errorf("cart: get item %s: %w", id, err)
	}
	return out, true, nil
}

func (g *Gateway) CreateItem(ctx context.Context, it models.CartItem) (models.CartItem, error) {
	var out models.CartItem
	if err := g.api.Call(ctx, config.RouteCartItemCreate, nil, it, &out); err != nil {
		return models.CartItem{}, fmt.Errorf("cart: create item: %w", err)
	}
	// The cart references items by id, so an answer without one is useless.
	if out.ID == "" {
		return models.CartItem{}, fmt.Errorf("cart: create item: response carries no id")
	}
	return out, nil
}

func (g *Gateway) UpdateItem(ctx context.Context, id string, p ItemPatch) (models.CartItem, error) {
	var out models.CartItem
	if err := g.api.Call(ctx, config.RouteCartItemUpdate, byID(id), p, &out); err != nil {
		return models.CartItem{}, fmt.Errorf("cart: update item %s: %w", id, err)
	}
	return out, nil
}

func (g *Gateway) DeleteItem(ctx context.Context, id string) error {
	err := g.api.Call(ctx, config.RouteCartItemDelete, byID(id), nil, nil)
	if err != nil && !apiclient.IsNotFound(err) {
		return fmt.Errorf("cart: delete item %s: %w", id, err)
	}
	return nil
}
