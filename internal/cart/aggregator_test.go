package cart_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"watchstore/internal/apiclient"
	"watchstore/internal/apperr"
	"watchstore/internal/auth"
	"watchstore/internal/cart"
	"watchstore/internal/config"
	"watchstore/internal/fakeapi"
	"watchstore/internal/logger"
	"watchstore/internal/models"
	"watchstore/internal/tokenstore"
)

type harness struct {
	srv      *fakeapi.Server
	store    *tokenstore.Store
	mgr      *auth.Manager
	gateway  *cart.Gateway
	agg      *cart.Aggregator
	user     models.User
	strategy string
}

func newHarness(t *testing.T, strategy, preset string) *harness {
	t.Helper()
	ctx := context.Background()
	routes, err := config.Preset(preset)
	if err != nil {
		t.Fatalf("preset: %v", err)
	}
	srv := fakeapi.New(fakeapi.Options{Routes: routes})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	log := logger.Discard()
	store := tokenstore.New(tokenstore.NewMemoryKV(), log)
	api := apiclient.New(apiclient.Options{BaseURL: ts.URL, Routes: routes}, store, log)
	mgr := auth.NewManager(ctx, api, store, log)

	srv.SeedClient("jane@shop.com", "secret", "Jane Doe", "")
	sess, err := mgr.Login(ctx, "jane@shop.com", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	gw := cart.NewGateway(api)
	res, err := cart.NewResolver(strategy, gw, store, store.KV(), log)
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	return &harness{
		srv:      srv,
		store:    store,
		mgr:      mgr,
		gateway:  gw,
		agg:      cart.NewAggregator(gw, res, log),
		user:     sess.User,
		strategy: strategy,
	}
}

var strategies = []string{config.CartStrategyScan, config.CartStrategyClientID, config.CartStrategyLocal}

// eachStrategy runs fn for every resolver against both route presets.
func eachStrategy(t *testing.T, fn func(t *testing.T, h *harness)) {
	for _, preset := range []string{config.PresetV1, config.PresetV2} {
		for _, s := range strategies {
			t.Run(preset+"/"+s, func(t *testing.T) {
				fn(t, newHarness(t, s, preset))
			})
		}
	}
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertConsistent(t *testing.T, c *models.CartWithItems) {
	t.Helper()
	if c == nil {
		return
	}
	if !c.Consistent() {
		t.Fatalf("totalOrder %s != sum of active items %s", c.TotalOrder, c.SumActive())
	}
	for _, it := range c.Items {
		if it.ProductQtd < 1 {
			t.Fatalf("item %s has quantity %d", it.ID, it.ProductQtd)
		}
	}
}

func TestAddSameProductMerges(t *testing.T) {
	eachStrategy(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		if _, err := h.agg.AddProduct(ctx, "watch-a", 2, money("10.00")); err != nil {
			t.Fatalf("first add: %v", err)
		}
		got, err := h.agg.AddProduct(ctx, "watch-a", 3, money("10.00"))
		if err != nil {
			t.Fatalf("second add: %v", err)
		}

		if len(got.Items) != 1 {
			t.Fatalf("items = %d, want 1", len(got.Items))
		}
		line := got.Items[0]
		if line.ProductQtd != 5 || !line.TotalAmount.Equal(money("50.00")) {
			t.Fatalf("line = qty %d total %s", line.ProductQtd, line.TotalAmount)
		}
		if !got.TotalOrder.Equal(money("50.00")) {
			t.Fatalf("totalOrder = %s", got.TotalOrder)
		}

		stored, ok := h.srv.Item(line.ID)
		if !ok || stored.ProductQtd != 5 || !stored.TotalAmount.Equal(money("50")) {
			t.Fatalf("backend item = %+v, %v", stored, ok)
		}
		if h.strategy != config.CartStrategyLocal {
			c, ok := h.srv.Cart(got.ID)
			if !ok || !c.TotalOrder.Equal(money("50")) || !c.ActiveStatus {
				t.Fatalf("backend cart = %+v, %v", c, ok)
			}
		}
	})
}

func TestTotalsFollowItemsThroughMutations(t *testing.T) {
	eachStrategy(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		step := func(name string, c *models.CartWithItems, err error) *models.CartWithItems {
			t.Helper()
			if err != nil {
				t.Fatalf("%s: %v", name, err)
			}
			assertConsistent(t, c)
			reloaded, err := h.agg.GetActiveCartWithItems(ctx)
			if err != nil {
				t.Fatalf("%s reload: %v", name, err)
			}
			assertConsistent(t, reloaded)
			if c != nil && !reloaded.TotalOrder.Equal(c.TotalOrder) {
				t.Fatalf("%s: reloaded total %s != %s", name, reloaded.TotalOrder, c.TotalOrder)
			}
			return c
		}

		c, err := h.agg.AddProduct(ctx, "a", 1, money("19.99"))
		c = step("add a", c, err)
		c, err = h.agg.AddProduct(ctx, "b", 2, money("0.10"))
		c = step("add b", c, err)
		ia, _ := c.FindProduct("a")
		ib, _ := c.FindProduct("b")
		idA, idB := c.Items[ia].ID, c.Items[ib].ID

		c, err = h.agg.UpdateQuantity(ctx, idA, 3, money("19.99"))
		c = step("update a", c, err)
		if i, _ := c.FindItem(idA); !c.Items[i].TotalAmount.Equal(money("59.97")) {
			t.Fatalf("line a total = %s", c.Items[i].TotalAmount)
		}
		c, err = h.agg.RemoveProduct(ctx, idB)
		c = step("remove b", c, err)
		c, err = h.agg.AddProduct(ctx, "c", 4, money("2.50"))
		c = step("add c", c, err)

		if !c.TotalOrder.Equal(money("69.97")) {
			t.Fatalf("final total = %s, want 69.97", c.TotalOrder)
		}
		if s := h.agg.Summary(); s.ItemCount != 7 || !s.TotalAmount.Equal(money("69.97")) {
			t.Fatalf("summary = %+v", s)
		}
	})
}

func TestUpdateQuantityRejectsNonPositive(t *testing.T) {
	eachStrategy(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		c, err := h.agg.AddProduct(ctx, "a", 2, money("10"))
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		id := c.Items[0].ID
		before := h.agg.Current()
		updates := h.srv.CallsRoute(config.RouteCartItemUpdate)

		for _, qty := range []int{0, -1} {
			if _, err := h.agg.UpdateQuantity(ctx, id, qty, money("10")); !errors.Is(err, apperr.ErrInvalidQuantity) {
				t.Fatalf("qty %d: err = %v, want ErrInvalidQuantity", qty, err)
			}
		}
		if !reflect.DeepEqual(before, h.agg.Current()) {
			t.Fatal("view changed after rejected update")
		}
		if n := h.srv.CallsRoute(config.RouteCartItemUpdate); n != updates {
			t.Fatalf("backend touched by rejected update: %d calls", n-updates)
		}
		if it, _ := h.srv.Item(id); it.ProductQtd != 2 {
			t.Fatalf("backend qty = %d", it.ProductQtd)
		}
	})
}

func TestUpdateUnknownItem(t *testing.T) {
	h := newHarness(t, config.CartStrategyScan, config.PresetV1)
	ctx := context.Background()
	if _, err := h.agg.UpdateQuantity(ctx, "nope", 1, money("1")); !errors.Is(err, apperr.ErrCartUnavailable) {
		t.Fatalf("no cart: err = %v", err)
	}
	if _, err := h.agg.AddProduct(ctx, "a", 1, money("1")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := h.agg.UpdateQuantity(ctx, "nope", 1, money("1")); !errors.Is(err, apperr.ErrItemNotFound) {
		t.Fatalf("unknown item: err = %v", err)
	}
}

func TestRemoveUnknownItemIsNoop(t *testing.T) {
	eachStrategy(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		if c, err := h.agg.RemoveProduct(ctx, "missing"); err != nil || c != nil {
			t.Fatalf("remove without cart = %v, %v", c, err)
		}
		if _, err := h.agg.AddProduct(ctx, "a", 2, money("7.50")); err != nil {
			t.Fatalf("add: %v", err)
		}
		c, err := h.agg.RemoveProduct(ctx, "missing")
		if err != nil {
			t.Fatalf("remove: %v", err)
		}
		if !c.TotalOrder.Equal(money("15")) || len(c.Items) != 1 {
			t.Fatalf("cart changed: total %s items %d", c.TotalOrder, len(c.Items))
		}

		// Removing twice is fine.
		id := c.Items[0].ID
		for i := 0; i < 2; i++ {
			if _, err := h.agg.RemoveProduct(ctx, id); err != nil {
				t.Fatalf("remove #%d: %v", i+1, err)
			}
		}
	})
}

func TestFinalizeReturnsSnapshotAndDeactivates(t *testing.T) {
	eachStrategy(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		if _, err := h.agg.AddProduct(ctx, "a", 2, money("100")); err != nil {
			t.Fatalf("add: %v", err)
		}
		c, err := h.agg.AddProduct(ctx, "b", 1, money("49.90"))
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		cartID := c.ID

		snap, err := h.agg.FinalizePurchase(ctx)
		if err != nil {
			t.Fatalf("finalize: %v", err)
		}
		if len(snap.Items) != 2 || snap.ItemCount() != 3 || !snap.TotalOrder.Equal(money("249.90")) {
			t.Fatalf("snapshot = %d items, count %d, total %s", len(snap.Items), snap.ItemCount(), snap.TotalOrder)
		}

		after, err := h.agg.GetActiveCartWithItems(ctx)
		if err != nil || after != nil {
			t.Fatalf("active cart after finalize = %+v, %v", after, err)
		}
		if n := h.srv.ItemCount(h.user.ID); n != 0 {
			t.Fatalf("backend still holds %d items", n)
		}
		if h.strategy != config.CartStrategyLocal {
			bc, ok := h.srv.Cart(cartID)
			if !ok || bc.ActiveStatus || len(bc.CartItemIDs) != 0 || !bc.TotalOrder.IsZero() {
				t.Fatalf("backend cart after finalize = %+v, %v", bc, ok)
			}
		}
		if s := h.agg.Summary(); s.ItemCount != 0 || !s.TotalAmount.IsZero() {
			t.Fatalf("summary after finalize = %+v", s)
		}
	})
}

func TestFinalizeWithoutItems(t *testing.T) {
	h := newHarness(t, config.CartStrategyScan, config.PresetV1)
	if _, err := h.agg.FinalizePurchase(context.Background()); !cart.IsUnavailable(err) {
		t.Fatalf("err = %v, want ErrCartUnavailable", err)
	}
}

func TestCartAfterFinalizeStartsFresh(t *testing.T) {
	eachStrategy(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		first, err := h.agg.AddProduct(ctx, "a", 1, money("5"))
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		if _, err := h.agg.FinalizePurchase(ctx); err != nil {
			t.Fatalf("finalize: %v", err)
		}
		second, err := h.agg.AddProduct(ctx, "b", 1, money("8"))
		if err != nil {
			t.Fatalf("add after finalize: %v", err)
		}
		if len(second.Items) != 1 || !second.TotalOrder.Equal(money("8")) || !second.ActiveStatus {
			t.Fatalf("new cart = %+v", second)
		}
		switch h.strategy {
		case config.CartStrategyClientID:
			if second.ID != h.user.ID || first.ID != h.user.ID {
				t.Fatalf("cart ids %q, %q, want client id %q", first.ID, second.ID, h.user.ID)
			}
		case config.CartStrategyScan:
			if second.ID == first.ID {
				t.Fatal("finalized cart was reused")
			}
		case config.CartStrategyLocal:
			if second.ID != cart.LocalCartID {
				t.Fatalf("local cart id = %q", second.ID)
			}
		}
	})
}

func TestClearCartIsBestEffort(t *testing.T) {
	eachStrategy(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		for _, p := range []string{"a", "b", "c"} {
			if _, err := h.agg.AddProduct(ctx, p, 1, money("3")); err != nil {
				t.Fatalf("add %s: %v", p, err)
			}
		}
		h.srv.FailRoute(config.RouteCartItemDelete, http.StatusInternalServerError, 1)

		c, err := h.agg.ClearCart(ctx)
		if err != nil {
			t.Fatalf("clear: %v", err)
		}
		if len(c.Items) != 1 || !c.TotalOrder.Equal(money("3")) {
			t.Fatalf("after clear: %d items, total %s", len(c.Items), c.TotalOrder)
		}
		if n := h.srv.CallsRoute(config.RouteCartItemDelete); n != 3 {
			t.Fatalf("delete calls = %d, want 3", n)
		}

		c, err = h.agg.ClearCart(ctx)
		if err != nil {
			t.Fatalf("second clear: %v", err)
		}
		if c != nil && len(c.Items) != 0 {
			t.Fatalf("items left after second clear: %d", len(c.Items))
		}
	})
}

func TestFailedAddLeavesViewUnchanged(t *testing.T) {
	eachStrategy(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		if _, err := h.agg.AddProduct(ctx, "a", 1, money("12.34")); err != nil {
			t.Fatalf("add: %v", err)
		}
		before := h.agg.Current()

		h.srv.FailRoute(config.RouteCartItemCreate, http.StatusInternalServerError, 1)
		if _, err := h.agg.AddProduct(ctx, "b", 1, money("1")); apiclient.StatusOf(err) != http.StatusInternalServerError {
			t.Fatalf("err = %v, want 500", err)
		}
		h.srv.FailRoute(config.RouteCartItemUpdate, 0, 1)
		if _, err := h.agg.AddProduct(ctx, "a", 1, money("12.34")); !errors.Is(err, apperr.ErrNetworkFailure) {
			t.Fatalf("err = %v, want ErrNetworkFailure", err)
		}
		if !reflect.DeepEqual(before, h.agg.Current()) {
			t.Fatal("view changed after failed add")
		}
	})
}

func TestOrphanItemRemovedWhenCartSaveFails(t *testing.T) {
	h := newHarness(t, config.CartStrategyScan, config.PresetV1)
	ctx := context.Background()
	if _, err := h.agg.AddProduct(ctx, "a", 1, money("1")); err != nil {
		t.Fatalf("add: %v", err)
	}
	h.srv.FailRoute(config.RouteCartUpdate, http.StatusInternalServerError, 1)
	if _, err := h.agg.AddProduct(ctx, "b", 1, money("1")); err == nil {
		t.Fatal("expected error when the cart cannot be saved")
	}
	if n := h.srv.ItemCount(h.user.ID); n != 1 {
		t.Fatalf("backend items = %d, want 1", n)
	}
}

func TestNoSessionMeansNoCart(t *testing.T) {
	for _, s := range strategies {
		t.Run(s, func(t *testing.T) {
			h := newHarness(t, s, config.PresetV1)
			ctx := context.Background()
			if err := h.mgr.Logout(ctx); err != nil {
				t.Fatalf("logout: %v", err)
			}
			c, err := h.agg.GetActiveCartWithItems(ctx)
			if err != nil || c != nil {
				t.Fatalf("cart = %v, err = %v", c, err)
			}
			if _, err := h.agg.AddProduct(ctx, "a", 1, money("1")); !errors.Is(err, apperr.ErrCartUnavailable) {
				t.Fatalf("add err = %v, want ErrCartUnavailable", err)
			}
		})
	}
}

func TestAddRejectsBadInput(t *testing.T) {
	h := newHarness(t, config.CartStrategyLocal, config.PresetV1)
	ctx := context.Background()
	if _, err := h.agg.AddProduct(ctx, "a", 0, money("1")); !errors.Is(err, apperr.ErrInvalidQuantity) {
		t.Fatalf("qty 0: err = %v", err)
	}
	if _, err := h.agg.AddProduct(ctx, "a", 1, money("-1")); err == nil {
		t.Fatal("negative price accepted")
	}
	if n := h.srv.CallsRoute(config.RouteCartItemCreate); n != 0 {
		t.Fatalf("create called %d times", n)
	}
}
