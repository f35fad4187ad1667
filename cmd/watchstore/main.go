// Command watchstore is the storefront client: account, catalog, cart and
// checkout from the terminal, against the configured REST backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"watchstore/internal/apperr"
	"watchstore/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", userMessage(err))
		os.Exit(1)
	}
}

func newRootCmd(out, logOut io.Writer) *cobra.Command {
	var a *app
	root := &cobra.Command{
		Use:           "watchstore",
		Short:         "Watch storefront client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err = newApp(cmd.Context(), cfg, out, logOut)
			return err
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a != nil {
				a.Close()
			}
		},
	}
	root.SetOut(out)

	get := func() *app { return a }
	root.AddCommand(
		loginCmd(get),
		registerCmd(get),
		logoutCmd(get),
		whoamiCmd(get),
		productsCmd(get),
		suppliersCmd(get),
		cartCmd(get),
		checkoutCmd(get),
		ordersCmd(get),
		profileCmd(get),
		clientsCmd(get),
		dashboardCmd(get),
	)
	return root
}

// userMessage turns the error taxonomy into something a person can act on.
func userMessage(err error) string {
	switch {
	case errors.Is(err, apperr.ErrInvalidCredentials):
		return "wrong email or password"
	case errors.Is(err, apperr.ErrSessionExpired):
		return "your session has ended, log in again"
	case errors.Is(err, apperr.ErrForbidden):
		return "not allowed; you have been logged out"
	case errors.Is(err, apperr.ErrInvalidQuantity):
		return "quantity must be at least 1 (use `cart remove` to drop an item)"
	case errors.Is(err, apperr.ErrCartUnavailable):
		return "no active cart"
	case errors.Is(err, apperr.ErrItemNotFound):
		return "that item is not in your cart"
	case errors.Is(err, apperr.ErrNetworkFailure):
		return "cannot reach the store: " + err.Error()
	default:
		return err.Error()
	}
}
