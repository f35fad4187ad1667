package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"watchstore/internal/config"
	"watchstore/internal/models"
	"watchstore/internal/tokenstore"
)

const (
	// LocalItemsKey is where LocalVirtual keeps its item records.
	LocalItemsKey = "localCartItems"
	// LocalCartID identifies the virtual cart; the backend never sees it.
	LocalCartID = "local-cart"
)

type localCart struct {
	Owner string            `json:"owner"`
	Items []models.CartItem `json:"items"`
}

// LocalVirtual has no backend cart at all: line items are backend records,
// and the list of them lives in the local medium next to the session.
type LocalVirtual struct {
	kv    tokenstore.KV
	ident Identity
	log   *slog.Logger
}

func (r *LocalVirtual) Name() string { return config.CartStrategyLocal }

// read never fails: an unreadable record reads as an empty cart.
func (r *LocalVirtual) read(ctx context.Context, owner string) []models.CartItem {
	raw, ok, err := r.kv.Get(ctx, LocalItemsKey)
	if err != nil {
		r.log.Warn("read local cart", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var lc localCart
	if err := json.Unmarshal([]byte(raw), &lc); err != nil {
		r.log.Warn("decode local cart", "error", err)
		return nil
	}
	if lc.Owner != owner {
		return nil
	}
	return lc.Items
}

func (r *LocalVirtual) virtual(items []models.CartItem) *models.CartWithItems {
	out := &models.CartWithItems{Cart: models.Cart{ID: LocalCartID, ActiveStatus: true}}
	for _, it := range items {
		if it.ActiveStatus {
			out.Items = append(out.Items, it)
		}
	}
	out.Recompute()
	return out
}

func (r *LocalVirtual) Resolve(ctx context.Context) (*models.CartWithItems, error) {
	user, ok := r.ident.User(ctx)
	if !ok {
		return nil, nil
	}
	items := r.read(ctx, user.ID)
	if len(items) == 0 {
		return nil, nil
	}
	return r.virtual(items), nil
}

func (r *LocalVirtual) Ensure(ctx context.Context) (*models.CartWithItems, error) {
	user, ok := r.ident.User(ctx)
	if !ok {
		return nil, nil
	}
	return r.virtual(r.read(ctx, user.ID)), nil
}

// Save writes the item records; an inactive or empty cart removes the key.
func (r *LocalVirtual) Save(ctx context.Context, c *models.CartWithItems) error {
	user, ok := r.ident.User(ctx)
	if !ok {
		return fmt.Errorf("cart: save local cart: no session")
	}
	if !c.ActiveStatus || len(c.Items) == 0 {
		if err := r.kv.Del(ctx, LocalItemsKey); err != nil {
			return fmt.Errorf("cart: save local cart: %w", err)
		}
		return nil
	}
	raw, err := json.Marshal(localCart{Owner: user.ID, Items: c.Items})
	if err != nil {
		return fmt.Errorf("cart: encode local cart: %w", err)
	}
	if err := r.kv.Set(ctx, LocalItemsKey, string(raw)); err != nil {
		return fmt.Errorf("cart: save local cart: %w", err)
	}
	return nil
}
