// Package fakeapi is an in-memory storefront backend built on gin. Tests
// run the real client stack against it through httptest.
package fakeapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"watchstore/internal/config"
	"watchstore/internal/models"
)

type Options struct {
	// Routes is the table the server registers; defaults to the v1 preset.
	Routes config.Routes
	// TokensInHeaders hands login/refresh tokens back as response headers
	// instead of the JSON body.
	TokensInHeaders bool
	// OpaqueTokens issues random strings instead of JWTs.
	OpaqueTokens bool
	// RequireHeader makes authenticated routes also demand the raw token
	// under this header.
	RequireHeader string
	Secret        string
	AccessTTL     time.Duration
}

type clientRecord struct {
	models.Client
	hash []byte
	role models.Role
}

type cartRecord struct {
	models.Cart
	owner string
}

type itemRecord struct {
	models.CartItem
	owner string
}

type orderRecord struct {
	models.Order
	owner string
	total models.CartWithItems
	at    time.Time
}

type fault struct {
	status int // 0 drops the connection
	times  int // <0 forever
}

type Server struct {
	opts   Options
	engine *gin.Engine

	mu        sync.Mutex
	clients   map[string]*clientRecord
	byEmail   map[string]string
	access    map[string]string // access token -> client id
	refresh   map[string]string // refresh token -> client id
	products  map[string]*models.Product
	suppliers map[string]*models.Supplier
	carts     map[string]*cartRecord
	items     map[string]*itemRecord
	orders    []orderRecord
	calls     map[string]int
	faults    map[string]*fault
	now       func() time.Time
}

func New(opts Options) *Server {
	if opts.Routes == nil {
		opts.Routes, _ = config.Preset(config.PresetV1)
	}
	if opts.Secret == "" {
		opts.Secret = "fakeapi-secret"
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 15 * time.Minute
	}

	s := &Server{
		opts:      opts,
		clients:   map[string]*clientRecord{},
		byEmail:   map[string]string{},
		access:    map[string]string{},
		refresh:   map[string]string{},
		products:  map[string]*models.Product{},
		suppliers: map[string]*models.Supplier{},
		carts:     map[string]*cartRecord{},
		items:     map[string]*itemRecord{},
		calls:     map[string]int{},
		faults:    map[string]*fault{},
		now:       time.Now,
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", HeaderToken},
		ExposeHeaders:    []string{HeaderToken, HeaderRefreshToken},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(s.countAndInject)
	s.engine = r
	s.registerRoutes()
	return s
}

// Handler returns the gin engine for httptest.NewServer.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) registerRoutes() {
	auth := s.authRequired

	s.handle(config.RouteLogin, s.login)
	s.handle(config.RouteLogout, s.logout)
	s.handle(config.RouteRefresh, s.refreshToken)

	s.handle(config.RouteClientCreate, s.createClient)
	s.handle(config.RouteClientList, auth, requireAdmin, s.listClients)
	s.handle(config.RouteClientGet, auth, s.getClient)
	s.handle(config.RouteClientUpdate, auth, s.updateClient)

	s.handle(config.RouteProductList, s.listProducts)
	s.handle(config.RouteProductLowStock, auth, requireAdmin, s.lowStock)
	s.handle(config.RouteProductGet, s.getProduct)
	s.handle(config.RouteProductCreate, auth, requireAdmin, s.createProduct)
	s.handle(config.RouteProductUpdate, auth, requireAdmin, s.updateProduct)
	s.handle(config.RouteProductDelete, auth, requireAdmin, s.deleteProduct)

	s.handle(config.RouteSupplierList, auth, s.listSuppliers)
	s.handle(config.RouteSupplierGet, auth, s.getSupplier)
	s.handle(config.RouteSupplierCreate, auth, requireAdmin, s.createSupplier)
	s.handle(config.RouteSupplierUpdate, auth, requireAdmin, s.updateSupplier)
	s.handle(config.RouteSupplierDelete, auth, requireAdmin, s.deleteSupplier)

	s.handle(config.RouteCartList, auth, s.listCarts)
	s.handle(config.RouteCartGet, auth, s.getCart)
	s.handle(config.RouteCartCreate, auth, s.createCart)
	s.handle(config.RouteCartUpdate, auth, s.updateCart)
	s.handle(config.RouteCartDelete, auth, s.deleteCart)

	s.handle(config.RouteCartItemList, auth, s.listItems)
	s.handle(config.RouteCartItemGet, auth, s.getItem)
	s.handle(config.RouteCartItemCreate, auth, s.createItem)
	s.handle(config.RouteCartItemUpdate, auth, s.updateItem)
	s.handle(config.RouteCartItemDelete, auth, s.deleteItem)

	s.handle(config.RouteOrderList, auth, s.listOrders)
	s.handle(config.RouteOrderCreate, auth, s.createOrder)
	s.handle(config.RouteReportMonthly, auth, requireAdmin, s.monthlyReport)
	s.handle(config.RouteReportBestSeller, auth, requireAdmin, s.bestSeller)
}

func (s *Server) handle(name string, handlers ...gin.HandlerFunc) {
	route, ok := s.opts.Routes[name]
	if !ok {
		panic("fakeapi: route table has no " + name)
	}
	s.engine.Handle(route.Method, route.Path, handlers...)
}

// countAndInject records the call and applies any injected fault.
func (s *Server) countAndInject(c *gin.Context) {
	key := c.Request.Method + " " + c.FullPath()

	s.mu.Lock()
	s.calls[key]++
	f, ok := s.faults[key]
	var inject *fault
	if ok && f.times != 0 {
		copied := *f
		inject = &copied
		if f.times > 0 {
			f.times--
		}
	}
	s.mu.Unlock()

	if inject == nil {
		c.Next()
		return
	}
	if inject.status == 0 {
		if hj, ok := c.Writer.(http.Hijacker); ok {
			if conn, _, err := hj.Hijack(); err == nil {
				conn.Close()
				c.Abort()
				return
			}
		}
		inject.status = http.StatusBadGateway
	}
	c.AbortWithStatusJSON(inject.status, gin.H{"error": "injected fault"})
}

// Fail makes the next `times` calls to method+route template answer status
// (times < 0 means every call). Status 0 drops the connection instead.
func (s *Server) Fail(method, path string, status, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[method+" "+path] = &fault{status: status, times: times}
}

// FailRoute is Fail addressed by route name.
func (s *Server) FailRoute(name string, status, times int) {
	r := s.opts.Routes[name]
	s.Fail(r.Method, r.Path, status, times)
}

// Calls counts requests that matched method+route template.
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

// CallsRoute is Calls addressed by route name.
func (s *Server) CallsRoute(name string) int {
	r := s.opts.Routes[name]
	return s.Calls(r.Method, r.Path)
}

// ExpireAccessTokens invalidates every issued access token.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = map[string]string{}
}

// RevokeRefreshTokens invalidates every issued refresh token.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh = map[string]string{}
}

// SeedProduct stores p, assigning an id when empty.
func (s *Server) SeedProduct(p models.Product) models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Status = true
	cp := p
	s.products[p.ID] = &cp
	return p
}

// SeedSupplier stores sup, assigning an id when empty.
func (s *Server) SeedSupplier(sup models.Supplier) models.Supplier {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sup.ID == "" {
		sup.ID = uuid.NewString()
	}
	cp := sup
	s.suppliers[sup.ID] = &cp
	return sup
}

// SeedClient registers an account directly, bypassing POST /cliente.
func (s *Server) SeedClient(email, password, name string, role models.Role) models.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.newClientLocked(models.Client{Email: email, Name: name, ActiveStatus: true}, password, role)
	return rec.Client
}

// Cart returns a stored cart.
func (s *Server) Cart(id string) (models.Cart, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[id]
	if !ok {
		return models.Cart{}, false
	}
	return c.Cart, true
}

// Item returns a stored cart item.
func (s *Server) Item(id string) (models.CartItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return models.CartItem{}, false
	}
	return it.CartItem, true
}

// ItemCount counts stored items of one owner.
func (s *Server) ItemCount(owner string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.items {
		if it.owner == owner {
			n++
		}
	}
	return n
}

// Orders returns the orders placed so far.
func (s *Server) Orders() []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Order, len(s.orders))
	for i, o := range s.orders {
		out[i] = o.Order
	}
	return out
}
