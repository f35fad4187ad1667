package fakeapi

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"watchstore/internal/models"
)

const lowStockThreshold = 5

// --- clients ---

func (s *Server) createClient(c *gin.Context) {
	var input models.Client
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Email == "" || input.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[strings.ToLower(input.Email)]; exists {
		c.JSON(http.StatusConflict, gin.H{"error": "an account with this email already exists"})
		return
	}
	password := input.Password
	input.ID = ""
	rec := s.newClientLocked(input, password, models.RoleClient)
	c.JSON(http.StatusCreated, rec.Client)
}

func (s *Server) listClients(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Client, 0, len(s.clients))
	for _, rec := range s.clients {
		out = append(out, rec.Client)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	c.JSON(http.StatusOK, out)
}

func (s *Server) getClient(c *gin.Context) {
	id := c.Param("id")
	if !isAdmin(c) && c.GetString(ctxClientID) != id {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your account"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.clients[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
		return
	}
	c.JSON(http.StatusOK, rec.Client)
}

func (s *Server) updateClient(c *gin.Context) {
	id := c.Param("id")
	if !isAdmin(c) && c.GetString(ctxClientID) != id {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your account"})
		return
	}
	var input struct {
		Name        *string         `json:"name"`
		FirstName   *string         `json:"firstName"`
		LastName    *string         `json:"lastName"`
		PhoneNumber *string         `json:"phoneNumber"`
		Address     *models.Address `json:"adress"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.clients[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
		return
	}
	if input.Name != nil {
		rec.Name = *input.Name
	}
	if input.FirstName != nil {
		rec.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		rec.LastName = *input.LastName
	}
	if input.PhoneNumber != nil {
		rec.PhoneNumber = *input.PhoneNumber
	}
	if input.Address != nil {
		addr := *input.Address
		rec.Address = &addr
	}
	c.JSON(http.StatusOK, rec.Client)
}

// --- products ---

func (s *Server) listProducts(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	c.JSON(http.StatusOK, out)
}

func (s *Server) getProduct(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) createProduct(c *gin.Context) {
	var p models.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = uuid.NewString()
	p.UserID = c.GetString(ctxClientID)
	p.CreatedAt = s.now().UTC().Format(timeLayout)
	s.products[p.ID] = &p
	c.JSON(http.StatusCreated, gin.H{"message": "product created", "id": p.ID})
}

func (s *Server) updateProduct(c *gin.Context) {
	var p models.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.products[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	p.ID = cur.ID
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = s.now().UTC().Format(timeLayout)
	s.products[p.ID] = &p
	c.JSON(http.StatusOK, gin.H{"message": "product updated"})
}

func (s *Server) deleteProduct(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Param("id")
	if _, ok := s.products[id]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	delete(s.products, id)
	c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
}

func (s *Server) lowStock(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.LowStockProduct{}
	for _, p := range s.products {
		if p.StockQtd < lowStockThreshold {
			out = append(out, models.LowStockProduct{ID: p.ID, Name: p.Name, StockQtd: p.StockQtd, Price: p.Price})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StockQtd < out[j].StockQtd })
	c.JSON(http.StatusOK, out)
}

// --- suppliers ---

func (s *Server) listSuppliers(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Supplier, 0, len(s.suppliers))
	for _, sup := range s.suppliers {
		out = append(out, *sup)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	c.JSON(http.StatusOK, out)
}

func (s *Server) getSupplier(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sup, ok := s.suppliers[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "supplier not found"})
		return
	}
	c.JSON(http.StatusOK, sup)
}

func (s *Server) createSupplier(c *gin.Context) {
	var sup models.Supplier
	if err := c.ShouldBindJSON(&sup); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if sup.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sup.ID = uuid.NewString()
	sup.CreatedAt = s.now().UTC().Format(timeLayout)
	s.suppliers[sup.ID] = &sup
	c.JSON(http.StatusCreated, gin.H{"message": "supplier created", "id": sup.ID})
}

func (s *Server) updateSupplier(c *gin.Context) {
	var input map[string]string
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sup, ok := s.suppliers[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "supplier not found"})
		return
	}
	for k, v := range input {
		switch k {
		case "name":
			sup.Name = v
		case "email":
			sup.Email = v
		case "phone":
			sup.Phone = v
		case "cnpj":
			sup.CNPJ = v
		case "adressId":
			sup.AddressID = v
		}
	}
	sup.UpdatedAt = s.now().UTC().Format(timeLayout)
	c.JSON(http.StatusOK, gin.H{"message": "supplier updated"})
}

func (s *Server) deleteSupplier(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Param("id")
	if _, ok := s.suppliers[id]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "supplier not found"})
		return
	}
	delete(s.suppliers, id)
	c.JSON(http.StatusOK, gin.H{"message": "supplier deleted"})
}
