package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"watchstore/internal/apperr"
	"watchstore/internal/models"
)

// Aggregator owns the in-memory view of the active cart. Every mutation
// starts from a fresh Resolve, recomputes the cart total from the items,
// and only replaces the view once everything it depends on succeeded.
// Operations are serialized; there is no version check against other
// clients writing the same cart.
type Aggregator struct {
	backend  Backend
	resolver Resolver
	log      *slog.Logger

	mu      sync.Mutex
	current *models.CartWithItems
}

func NewAggregator(backend Backend, resolver Resolver, log *slog.Logger) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{
		backend:  backend,
		resolver: resolver,
		log:      log.With("component", "cart", "strategy", resolver.Name()),
	}
}

// Summary is the header badge: how many units and how much.
type Summary struct {
	ItemCount   int             `json:"itemCount"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// Current returns a copy of the last loaded view, nil when there is none.
func (a *Aggregator) Current() *models.CartWithItems {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current.Clone()
}

func (a *Aggregator) Summary() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return Summary{TotalAmount: decimal.Zero}
	}
	return Summary{ItemCount: a.current.ItemCount(), TotalAmount: a.current.TotalAmount()}
}

// GetActiveCartWithItems reloads the view. No session or no active cart is
// (nil, nil).
func (a *Aggregator) GetActiveCartWithItems(ctx context.Context) (*models.CartWithItems, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cur, err := a.resolver.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("cart: load: %w", err)
	}
	a.current = cur
	return cur.Clone(), nil
}

// AddProduct adds qty units. An existing active line for the product is
// merged: its quantity grows and its total is recomputed from the new
// quantity, not accumulated.
func (a *Aggregator) AddProduct(ctx context.Context, productID string, qty int, unitPrice decimal.Decimal) (*models.CartWithItems, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("cart: add %s: %w: %d", productID, apperr.ErrInvalidQuantity, qty)
	}
	if productID == "" || unitPrice.IsNegative() {
		return nil, fmt.Errorf("cart: add: invalid product %q at %s", productID, unitPrice)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	cur, err := a.resolver.Ensure(ctx)
	if err != nil {
		return nil, fmt.Errorf("cart: add %s: %w", productID, err)
	}
	if cur == nil {
		return nil, fmt.Errorf("cart: add %s: %w", productID, apperr.ErrCartUnavailable)
	}
	next := cur.Clone()

	var created string
	if i, ok := next.FindProduct(productID); ok {
		line := next.Items[i]
		newQty := line.ProductQtd + qty
		patch := ItemPatch{ProductQtd: newQty, TotalAmount: models.LineTotal(newQty, unitPrice)}
		if _, err := a.backend.UpdateItem(ctx, line.ID, patch); err != nil {
			return nil, fmt.Errorf("cart: add %s: %w", productID, err)
		}
		line.ProductQtd, line.TotalAmount = patch.ProductQtd, patch.TotalAmount
		next.Items[i] = line
	} else {
		it, err := a.backend.CreateItem(ctx, models.CartItem{
			ProductQtd:   qty,
			TotalAmount:  models.LineTotal(qty, unitPrice),
			ActiveStatus: true,
			ProductID:    models.RefTo(productID),
		})
		if err != nil {
			return nil, fmt.Errorf("cart: add %s: %w", productID, err)
		}
		created = it.ID
		next.Items = append(next.Items, it)
	}

	next.Recompute()
	if err := a.resolver.Save(ctx, next); err != nil {
		if created != "" {
			a.dropOrphan(ctx, created)
		}
		return nil, fmt.Errorf("cart: add %s: %w", productID, err)
	}
	a.current = next
	a.log.Info("product added", "product_id", productID, "qty", qty, "total", models.FormatMoney(next.TotalOrder))
	return next.Clone(), nil
}

// dropOrphan removes an item the cart never came to reference.
func (a *Aggregator) dropOrphan(ctx context.Context, itemID string) {
	if err := a.backend.DeleteItem(ctx, itemID); err != nil {
		a.log.Warn("orphan item left on backend", "item_id", itemID, "error", err)
	}
}

// RemoveProduct deletes a line item. Unknown ids and a missing cart are
// no-ops.
func (a *Aggregator) RemoveProduct(ctx context.Context, itemID string) (*models.CartWithItems, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cur, err := a.resolver.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("cart: remove %s: %w", itemID, err)
	}
	if cur == nil {
		a.current = nil
		return nil, nil
	}
	i, ok := cur.FindItem(itemID)
	if !ok {
		a.current = cur
		return cur.Clone(), nil
	}

	if err := a.backend.DeleteItem(ctx, itemID); err != nil {
		return nil, fmt.Errorf("cart: remove %s: %w", itemID, err)
	}
	next := cur.Clone()
	next.Items = append(next.Items[:i], next.Items[i+1:]...)
	next.Recompute()
	if err := a.resolver.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("cart: remove %s: %w", itemID, err)
	}
	a.current = next
	a.log.Info("item removed", "item_id", itemID, "total", models.FormatMoney(next.TotalOrder))
	return next.Clone(), nil
}

// UpdateQuantity sets a line's quantity and recomputes its total from
// unitPrice. Quantities below 1 are rejected; use RemoveProduct.
func (a *Aggregator) UpdateQuantity(ctx context.Context, itemID string, qty int, unitPrice decimal.Decimal) (*models.CartWithItems, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("cart: update %s: %w: %d", itemID, apperr.ErrInvalidQuantity, qty)
	}
	if unitPrice.IsNegative() {
		return nil, fmt.Errorf("cart: update %s: negative unit price %s", itemID, unitPrice)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	cur, err := a.resolver.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("cart: update %s: %w", itemID, err)
	}
	if cur == nil {
		return nil, fmt.Errorf("cart: update %s: %w", itemID, apperr.ErrCartUnavailable)
	}
	i, ok := cur.FindItem(itemID)
	if !ok {
		return nil, fmt.Errorf("cart: update %s: %w", itemID, apperr.ErrItemNotFound)
	}

	patch := ItemPatch{ProductQtd: qty, TotalAmount: models.LineTotal(qty, unitPrice)}
	if _, err := a.backend.UpdateItem(ctx, itemID, patch); err != nil {
		return nil, fmt.Errorf("cart: update %s: %w", itemID, err)
	}
	next := cur.Clone()
	next.Items[i].ProductQtd, next.Items[i].TotalAmount = patch.ProductQtd, patch.TotalAmount
	next.Recompute()
	if err := a.resolver.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("cart: update %s: %w", itemID, err)
	}
	a.current = next
	return next.Clone(), nil
}

// ClearCart deletes every active item, one by one. A failed delete is
// logged and the item stays in the view; the rest still go.
func (a *Aggregator) ClearCart(ctx context.Context) (*models.CartWithItems, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cur, err := a.resolver.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("cart: clear: %w", err)
	}
	if cur == nil {
		a.current = nil
		return nil, nil
	}
	next := cur.Clone()
	next.Items = a.deleteAll(ctx, next.Items)
	next.Recompute()
	if err := a.resolver.Save(ctx, next); err != nil {
		a.log.Warn("persist cleared cart", "cart_id", next.ID, "error", err)
	}
	a.current = next
	return next.Clone(), nil
}

// deleteAll returns the items whose delete failed.
func (a *Aggregator) deleteAll(ctx context.Context, items []models.CartItem) []models.CartItem {
	var kept []models.CartItem
	for _, it := range items {
		if err := a.backend.DeleteItem(ctx, it.ID); err != nil {
			a.log.Warn("delete cart item", "item_id", it.ID, "error", err)
			kept = append(kept, it)
		}
	}
	return kept
}

// FinalizePurchase snapshots the cart, then empties and deactivates it.
// The snapshot is what the receipt shows; it is taken before anything is
// deleted.
func (a *Aggregator) FinalizePurchase(ctx context.Context) (*models.CartWithItems, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cur, err := a.resolver.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("cart: finalize: %w", err)
	}
	if cur == nil || len(cur.Items) == 0 {
		return nil, fmt.Errorf("cart: finalize: %w", apperr.ErrCartUnavailable)
	}
	snapshot := cur.Clone()

	next := cur.Clone()
	if left := a.deleteAll(ctx, next.Items); len(left) > 0 {
		a.log.Warn("items left behind by finalize", "cart_id", next.ID, "count", len(left))
	}
	next.Items = nil
	next.ActiveStatus = false
	next.Recompute()
	if err := a.resolver.Save(ctx, next); err != nil {
		// Items are gone but the cart is still active on the backend.
		a.current = nil
		return nil, fmt.Errorf("cart: finalize: deactivate %s: %w", next.ID, err)
	}
	a.current = nil
	a.log.Info("purchase finalized",
		"cart_id", snapshot.ID,
		"items", snapshot.ItemCount(),
		"total", models.FormatMoney(snapshot.TotalOrder),
	)
	return snapshot, nil
}

// IsUnavailable reports whether err means there is no cart to act on.
func IsUnavailable(err error) bool {
	return errors.Is(err, apperr.ErrCartUnavailable)
}
