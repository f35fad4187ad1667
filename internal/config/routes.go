package config

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Route presets for the known backend integrations.
const (
	PresetV1 = "v1"
	PresetV2 = "v2"
)

// Named backend operations.
const (
	RouteLogin   = "login"
	RouteLogout  = "logout"
	RouteRefresh = "refresh"

	RouteClientCreate = "client_create"
	RouteClientList   = "client_list"
	RouteClientGet    = "client_get"
	RouteClientUpdate = "client_update"

	RouteProductList     = "product_list"
	RouteProductGet      = "product_get"
	RouteProductCreate   = "product_create"
	RouteProductUpdate   = "product_update"
	RouteProductDelete   = "product_delete"
	RouteProductLowStock = "report_low_stock"

	RouteSupplierList   = "supplier_list"
	RouteSupplierGet    = "supplier_get"
	RouteSupplierCreate = "supplier_create"
	RouteSupplierUpdate = "supplier_update"
	RouteSupplierDelete = "supplier_delete"

	RouteCartList   = "cart_list"
	RouteCartGet    = "cart_get"
	RouteCartCreate = "cart_create"
	RouteCartUpdate = "cart_update"
	RouteCartDelete = "cart_delete"

	RouteCartItemList   = "cart_item_list"
	RouteCartItemGet    = "cart_item_get"
	RouteCartItemCreate = "cart_item_create"
	RouteCartItemUpdate = "cart_item_update"
	RouteCartItemDelete = "cart_item_delete"

	RouteOrderList        = "order_list"
	RouteOrderCreate      = "order_create"
	RouteReportMonthly    = "report_monthly"
	RouteReportBestSeller = "report_best_seller"
)

// Route is one backend operation: an HTTP method and a path template with
// ":name" placeholders.
type Route struct {
	Method string
	Path   string
}

// Routes maps operation names to route templates.
type Routes map[string]Route

func baseRoutes() Routes {
	return Routes{
		RouteLogin:   {http.MethodPost, "/login"},
		RouteLogout:  {http.MethodGet, "/logout"},
		RouteRefresh: {http.MethodPost, "/refresh-token"},

		RouteClientCreate: {http.MethodPost, "/cliente"},
		RouteClientList:   {http.MethodGet, "/cliente"},
		RouteClientGet:    {http.MethodGet, "/cliente/:id"},
		RouteClientUpdate: {http.MethodPut, "/cliente/:id"},

		RouteProductList:     {http.MethodGet, "/produto"},
		RouteProductGet:      {http.MethodGet, "/produto/:id"},
		RouteProductCreate:   {http.MethodPost, "/produto"},
		RouteProductUpdate:   {http.MethodPut, "/produto/:id"},
		RouteProductDelete:   {http.MethodDelete, "/produto/:id"},
		RouteProductLowStock: {http.MethodGet, "/produto/estoque"},

		RouteSupplierList:   {http.MethodGet, "/fornecedor"},
		RouteSupplierGet:    {http.MethodGet, "/fornecedor/:id"},
		RouteSupplierCreate: {http.MethodPost, "/fornecedor"},
		RouteSupplierUpdate: {http.MethodPut, "/fornecedor/:id"},
		RouteSupplierDelete: {http.MethodDelete, "/fornecedor/:id"},

		RouteOrderList:        {http.MethodGet, "/pedido"},
		RouteOrderCreate:      {http.MethodPost, "/pedido"},
		RouteReportMonthly:    {http.MethodGet, "/pedido/mensal"},
		RouteReportBestSeller: {http.MethodGet, "/pedido/venda"},
	}
}

func cartRoutes(cart, item string) Routes {
	return Routes{
		RouteCartList:   {http.MethodGet, cart},
		RouteCartGet:    {http.MethodGet, cart + "/:id"},
		RouteCartCreate: {http.MethodPost, cart},
		RouteCartUpdate: {http.MethodPut, cart + "/:id"},
		RouteCartDelete: {http.MethodDelete, cart + "/:id"},

		RouteCartItemList:   {http.MethodGet, item},
		RouteCartItemGet:    {http.MethodGet, item + "/:id"},
		RouteCartItemCreate: {http.MethodPost, item},
		RouteCartItemUpdate: {http.MethodPut, item + "/:id"},
		RouteCartItemDelete: {http.MethodDelete, item + "/:id"},
	}
}

// Preset returns a fresh copy of a named route table.
func Preset(name string) (Routes, error) {
	r := baseRoutes()
	switch name {
	case PresetV1:
		r.merge(cartRoutes("/cart", "/cart-item"))
	case PresetV2:
		r.merge(cartRoutes("/carrinho", "/item-carrinho"))
	default:
		return nil, fmt.Errorf("config: unknown route preset %q", name)
	}
	return r, nil
}

func (r Routes) merge(other Routes) {
	for k, v := range other {
		r[k] = v
	}
}

// ApplyEnv applies ROUTE_<NAME> overrides from environ ("KEY=VALUE" pairs).
// A value is either "/path" (method kept) or "METHOD /path".
func (r Routes) ApplyEnv(environ []string) error {
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, "ROUTE_") {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(key, "ROUTE_"))
		cur, known := r[name]
		if !known {
			return fmt.Errorf("config: %s overrides unknown route %q", key, name)
		}
		value = strings.TrimSpace(value)
		if method, path, hasMethod := strings.Cut(value, " "); hasMethod {
			cur.Method = strings.ToUpper(method)
			value = strings.TrimSpace(path)
		}
		if !strings.HasPrefix(value, "/") {
			return fmt.Errorf("config: %s must be an absolute path, got %q", key, value)
		}
		cur.Path = value
		r[name] = cur
	}
	return nil
}

// Resolve looks up a named route and fills its placeholders.
func (r Routes) Resolve(name string, params map[string]string) (method, path string, err error) {
	route, ok := r[name]
	if !ok {
		return "", "", fmt.Errorf("config: unknown route %q", name)
	}
	segments := strings.Split(route.Path, "/")
	for i, seg := range segments {
		if !strings.HasPrefix(seg, ":") {
			continue
		}
		v, ok := params[seg[1:]]
		if !ok || v == "" {
			return "", "", fmt.Errorf("config: route %q missing parameter %q", name, seg[1:])
		}
		segments[i] = url.PathEscape(v)
	}
	return route.Method, strings.Join(segments, "/"), nil
}
