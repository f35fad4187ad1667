package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"watchstore/internal/apperr"
	"watchstore/internal/fakeapi"
	"watchstore/internal/models"
)

func newCLIBackend(t *testing.T, strategy string) *fakeapi.Server {
	t.Helper()
	srv := fakeapi.New(fakeapi.Options{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	t.Setenv("API_BASE_URL", ts.URL)
	t.Setenv("API_ROUTES", "v1")
	t.Setenv("CART_STRATEGY", strategy)
	t.Setenv("TOKEN_STORE", "file")
	t.Setenv("TOKEN_FILE", filepath.Join(t.TempDir(), "session.json"))
	t.Setenv("LOG_LEVEL", "error")
	return srv
}

// run executes one CLI invocation, each with a fresh process-like state.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&out, io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("%s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestLoginCartCheckout(t *testing.T) {
	for _, strategy := range []string{"scan", "client-id", "local"} {
		t.Run(strategy, func(t *testing.T) {
			srv := newCLIBackend(t, strategy)
			srv.SeedClient("jane@shop.com", "secret", "Jane Doe", models.RoleClient)
			p := srv.SeedProduct(models.Product{Name: "Chrono", Price: decimal.RequireFromString("100.00"), StockQtd: 9})

			if out := mustRun(t, "login", "--email", "jane@shop.com", "--password", "secret"); !strings.Contains(out, "logged in as Jane Doe (client)") {
				t.Fatalf("login output: %q", out)
			}
			if out := mustRun(t, "whoami"); !strings.Contains(out, "jane@shop.com") {
				t.Fatalf("whoami output: %q", out)
			}

			mustRun(t, "cart", "add", p.ID, "--qty", "1")
			out := mustRun(t, "cart", "add", p.ID, "--qty", "1")
			if !strings.Contains(out, "Chrono") || !strings.Contains(out, "200.00") {
				t.Fatalf("cart output: %q", out)
			}

			qr := filepath.Join(t.TempDir(), "receipt.png")
			out = mustRun(t, "checkout", "--qr", qr)
			if !strings.Contains(out, "Customer: Jane Doe") || !strings.Contains(out, "TOTAL") || !strings.Contains(out, "200.00") {
				t.Fatalf("receipt: %q", out)
			}
			if _, err := os.Stat(qr); err != nil {
				t.Fatalf("qr not written: %v", err)
			}

			wantOrders := 1
			if strategy == "local" {
				wantOrders = 0
			}
			if n := len(srv.Orders()); n != wantOrders {
				t.Fatalf("orders = %d, want %d", n, wantOrders)
			}

			if out := mustRun(t, "cart"); !strings.Contains(out, "cart is empty") {
				t.Fatalf("cart after checkout: %q", out)
			}
			if _, err := run(t, "checkout"); !errors.Is(err, apperr.ErrCartUnavailable) {
				t.Fatalf("second checkout err = %v", err)
			}
		})
	}
}

func TestLogoutEndsSession(t *testing.T) {
	srv := newCLIBackend(t, "scan")
	srv.SeedClient("jane@shop.com", "secret", "Jane Doe", models.RoleClient)

	mustRun(t, "login", "--email", "jane@shop.com", "--password", "secret")
	mustRun(t, "logout")
	if out := mustRun(t, "whoami"); !strings.Contains(out, "not logged in") {
		t.Fatalf("whoami after logout: %q", out)
	}
}

func TestWrongPassword(t *testing.T) {
	srv := newCLIBackend(t, "scan")
	srv.SeedClient("jane@shop.com", "secret", "Jane Doe", models.RoleClient)

	_, err := run(t, "login", "--email", "jane@shop.com", "--password", "nope")
	if !errors.Is(err, apperr.ErrInvalidCredentials) {
		t.Fatalf("err = %v", err)
	}
	if userMessage(err) != "wrong email or password" {
		t.Fatalf("message = %q", userMessage(err))
	}
}

func TestCartUpdateErrors(t *testing.T) {
	srv := newCLIBackend(t, "scan")
	srv.SeedClient("jane@shop.com", "secret", "Jane Doe", models.RoleClient)
	p := srv.SeedProduct(models.Product{Name: "Diver", Price: decimal.RequireFromString("50.00"), StockQtd: 3})

	mustRun(t, "login", "--email", "jane@shop.com", "--password", "secret")
	mustRun(t, "cart", "add", p.ID)

	_, err := run(t, "cart", "update", "no-such-item", "2")
	if !errors.Is(err, apperr.ErrItemNotFound) {
		t.Fatalf("unknown item err = %v", err)
	}
	if _, err := run(t, "cart", "update", "x", "two"); !errors.Is(err, apperr.ErrInvalidQuantity) {
		t.Fatalf("non-numeric qty err = %v", err)
	}
}

func TestAdminDashboard(t *testing.T) {
	srv := newCLIBackend(t, "scan")
	srv.SeedClient("admin@shop.com", "secret", "Store Admin", models.RoleAdmin)
	srv.SeedProduct(models.Product{Name: "Pilot", Price: decimal.RequireFromString("80.00"), StockQtd: 1})

	mustRun(t, "login", "--email", "admin@shop.com", "--password", "secret")
	out := mustRun(t, "dashboard")
	if !strings.Contains(out, "best seller: none yet") || !strings.Contains(out, "Pilot") {
		t.Fatalf("dashboard: %q", out)
	}
	out = mustRun(t, "products", "--search", "pil")
	if !strings.Contains(out, "Pilot") || !strings.Contains(out, "80.00") {
		t.Fatalf("search: %q", out)
	}
}

func TestDashboardIsAdminOnly(t *testing.T) {
	srv := newCLIBackend(t, "scan")
	srv.SeedClient("jane@shop.com", "secret", "Jane Doe", models.RoleClient)

	mustRun(t, "login", "--email", "jane@shop.com", "--password", "secret")
	if _, err := run(t, "dashboard"); err == nil || !strings.Contains(err.Error(), "admin only") {
		t.Fatalf("err = %v", err)
	}
	if srv.CallsRoute("report_monthly") != 0 {
		t.Fatal("report requested for a client")
	}
}

func TestUserMessage(t *testing.T) {
	wrapped := fmt.Errorf("cart: update: %w", apperr.ErrInvalidQuantity)
	if !strings.Contains(userMessage(wrapped), "at least 1") {
		t.Fatalf("message = %q", userMessage(wrapped))
	}
	if userMessage(errors.New("boom")) != "boom" {
		t.Fatal("plain errors pass through")
	}
}
