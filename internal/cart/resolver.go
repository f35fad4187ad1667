package cart

import (
	"context"
	"fmt"
	"log/slog"

	"watchstore/internal/config"
	"watchstore/internal/models"
	"watchstore/internal/tokenstore"
)

// Identity is who the cart belongs to; the token store satisfies it.
type Identity interface {
	User(ctx context.Context) (*models.User, bool)
}

// Resolver locates the active cart for the logged-in client. Each backend
// integration answers "which cart is active" differently.
type Resolver interface {
	Name() string
	// Resolve returns the active cart with its active items, or nil when
	// there is no session or no active cart.
	Resolve(ctx context.Context) (*models.CartWithItems, error)
	// Ensure is Resolve, creating an empty active cart when none exists.
	Ensure(ctx context.Context) (*models.CartWithItems, error)
	// Save persists the cart-level fields of c: total, item references and
	// the active flag.
	Save(ctx context.Context, c *models.CartWithItems) error
}

// NewResolver builds the resolver for a configured strategy.
func NewResolver(strategy string, backend Backend, ident Identity, kv tokenstore.KV, log *slog.Logger) (Resolver, error) {
	if log == nil {
		log = slog.Default()
	}
	switch strategy {
	case config.CartStrategyScan:
		return &ScanActiveFlag{backend: backend, ident: ident}, nil
	case config.CartStrategyClientID:
		return &ClientIDAsCartID{backend: backend, ident: ident}, nil
	case config.CartStrategyLocal:
		return &LocalVirtual{kv: kv, ident: ident, log: log.With("component", "cart.local")}, nil
	default:
		return nil, fmt.Errorf("cart: unknown strategy %q", strategy)
	}
}

// loadItems joins a cart with its referenced items, keeping active ones.
// References to items the backend no longer has are dropped, and the total
// is recomputed from what was found.
func loadItems(ctx context.Context, b Backend, c models.Cart) (*models.CartWithItems, error) {
	out := &models.CartWithItems{Cart: c}
	seen := make(map[string]bool, len(c.CartItemIDs))
	for _, id := range c.CartItemIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		it, ok, err := b.GetItem(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok && it.ActiveStatus {
			out.Items = append(out.Items, it)
		}
	}
	out.Recompute()
	return out, nil
}

func patchOf(c *models.CartWithItems) CartPatch {
	return CartPatch{
		TotalOrder:   c.TotalOrder,
		ActiveStatus: c.ActiveStatus,
		CartItemIDs:  c.CartItemIDs,
	}
}

// ScanActiveFlag lists the client's carts and takes the newest one whose
// activeStatus is set.
type ScanActiveFlag struct {
	backend Backend
	ident   Identity
}

func (r *ScanActiveFlag) Name() string { return config.CartStrategyScan }

func (r *ScanActiveFlag) Resolve(ctx context.Context) (*models.CartWithItems, error) {
	if _, ok := r.ident.User(ctx); !ok {
		return nil, nil
	}
	carts, err := r.backend.ListCarts(ctx)
	if err != nil {
		return nil, err
	}
	var active *models.Cart
	for i := range carts {
		if carts[i].ActiveStatus && (active == nil || carts[i].CreatedAt >= active.CreatedAt) {
			active = &carts[i]
		}
	}
	if active == nil {
		return nil, nil
	}
	return loadItems(ctx, r.backend, *active)
}

func (r *ScanActiveFlag) Ensure(ctx context.Context) (*models.CartWithItems, error) {
	cur, err := r.Resolve(ctx)
	if err != nil || cur != nil {
		return cur, err
	}
	if _, ok := r.ident.User(ctx); !ok {
		return nil, nil
	}
	created, err := r.backend.CreateCart(ctx, models.Cart{ActiveStatus: true, CartItemIDs: models.ItemRefs{}})
	if err != nil {
		return nil, err
	}
	out := &models.CartWithItems{Cart: created}
	out.ActiveStatus = true
	out.Recompute()
	return out, nil
}

func (r *ScanActiveFlag) Save(ctx context.Context, c *models.CartWithItems) error {
	return r.backend.UpdateCart(ctx, c.ID, patchOf(c))
}

// ClientIDAsCartID keeps one cart per client whose id is the client id. A
// finalized cart is reactivated on the next add.
type ClientIDAsCartID struct {
	backend Backend
	ident   Identity
}

func (r *ClientIDAsCartID) Name() string { return config.CartStrategyClientID }

func (r *ClientIDAsCartID) lookup(ctx context.Context) (*models.User, *models.Cart, error) {
	user, ok := r.ident.User(ctx)
	if !ok || user.ID == "" {
		return nil, nil, nil
	}
	c, found, err := r.backend.GetCart(ctx, user.ID)
	if err != nil || !found {
		return user, nil, err
	}
	return user, &c, nil
}

func (r *ClientIDAsCartID) Resolve(ctx context.Context) (*models.CartWithItems, error) {
	_, c, err := r.lookup(ctx)
	if err != nil || c == nil || !c.ActiveStatus {
		return nil, err
	}
	return loadItems(ctx, r.backend, *c)
}

func (r *ClientIDAsCartID) Ensure(ctx context.Context) (*models.CartWithItems, error) {
	user, c, err := r.lookup(ctx)
	if err != nil || user == nil {
		return nil, err
	}
	switch {
	case c == nil:
		created, err := r.backend.CreateCart(ctx, models.Cart{ID: user.ID, ActiveStatus: true, CartItemIDs: models.ItemRefs{}})
		if err != nil {
			return nil, err
		}
		out := &models.CartWithItems{Cart: created}
		out.ActiveStatus = true
		out.Recompute()
		return out, nil
	case !c.ActiveStatus:
		out := &models.CartWithItems{Cart: *c}
		out.ActiveStatus = true
		out.Recompute()
		if err := r.Save(ctx, out); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return loadItems(ctx, r.backend, *c)
	}
}

func (r *ClientIDAsCartID) Save(ctx context.Context, c *models.CartWithItems) error {
	return r.backend.UpdateCart(ctx, c.ID, patchOf(c))
}
