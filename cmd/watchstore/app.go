package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"watchstore/internal/apiclient"
	"watchstore/internal/auth"
	"watchstore/internal/cart"
	"watchstore/internal/config"
	"watchstore/internal/logger"
	"watchstore/internal/services"
	"watchstore/internal/tokenstore"
)

// app is the composition root: it owns the session store and hands it to
// everything that needs it.
type app struct {
	cfg config.Config
	log *slog.Logger
	out io.Writer

	store     *tokenstore.Store
	api       *apiclient.Client
	auth      *auth.Manager
	cart      *cart.Aggregator
	products  *services.Products
	suppliers *services.Suppliers
	profile   *services.Profile
	clients   *services.Clients
	orders    *services.Orders

	closers []func() error
}

func newApp(ctx context.Context, cfg config.Config, out, logOut io.Writer) (*app, error) {
	log := logger.New(logger.Options{
		Service: "watchstore",
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
		Text:    cfg.AppEnv != "prod",
		Output:  logOut,
	})
	a := &app{cfg: cfg, log: log, out: out}

	kv, err := a.openMedium(ctx)
	if err != nil {
		return nil, err
	}
	a.store = tokenstore.New(kv, log)
	a.api = apiclient.New(apiclient.Options{
		BaseURL:     cfg.BaseURL,
		Timeout:     cfg.Timeout,
		Routes:      cfg.Routes,
		TokenHeader: cfg.TokenHeader,
	}, a.store, log)
	a.auth = auth.NewManager(ctx, a.api, a.store, log)

	gw := cart.NewGateway(a.api)
	resolver, err := cart.NewResolver(cfg.CartStrategy, gw, a.store, kv, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.cart = cart.NewAggregator(gw, resolver, log)

	a.products = services.NewProducts(a.api)
	a.suppliers = services.NewSuppliers(a.api)
	a.profile = services.NewProfile(a.api, a.store)
	a.clients = services.NewClients(a.api)
	a.orders = services.NewOrders(a.api)

	log.Debug("app ready",
		"base_url", cfg.BaseURL,
		"routes", cfg.RoutePreset,
		"cart_strategy", cfg.CartStrategy,
		"token_store", cfg.TokenStore,
	)
	return a, nil
}

func (a *app) openMedium(ctx context.Context) (tokenstore.KV, error) {
	switch a.cfg.TokenStore {
	case config.TokenStoreMemory:
		a.log.Warn("memory token store: the session ends with this process")
		return tokenstore.NewMemoryKV(), nil
	case config.TokenStoreFile:
		kv, err := tokenstore.NewFileKV(a.cfg.TokenFile)
		if err != nil {
			return nil, err
		}
		return kv, nil
	case config.TokenStoreRedis:
		kv, err := tokenstore.DialRedis(ctx, tokenstore.RedisOptions{
			Addr:     a.cfg.RedisHost,
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
			Prefix:   a.cfg.RedisPrefix,
			TTL:      a.cfg.RedisTTL,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, kv.Close)
		return kv, nil
	default:
		return nil, fmt.Errorf("unknown token store %q", a.cfg.TokenStore)
	}
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.Warn("close", "error", err)
		}
	}
	a.closers = nil
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
