package fakeapi

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"watchstore/internal/models"
)

// Fixed-width so timestamps sort as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// --- carts ---

func (s *Server) listCarts(c *gin.Context) {
	owner := c.GetString(ctxClientID)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Cart{}
	for _, cr := range s.carts {
		if cr.owner == owner {
			out = append(out, cr.Cart)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	c.JSON(http.StatusOK, out)
}

func (s *Server) getCart(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cr, ok := s.carts[c.Param("id")]
	if !ok || cr.owner != c.GetString(ctxClientID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "cart not found"})
		return
	}
	c.JSON(http.StatusOK, cr.Cart)
}

func (s *Server) createCart(c *gin.Context) {
	var input models.Cart
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if input.ID == "" {
		input.ID = uuid.NewString()
	} else if _, exists := s.carts[input.ID]; exists {
		c.JSON(http.StatusConflict, gin.H{"error": "cart already exists"})
		return
	}
	if input.CartItemIDs == nil {
		input.CartItemIDs = models.ItemRefs{}
	}
	now := s.now().UTC().Format(timeLayout)
	input.CreatedAt, input.UpdatedAt = now, now
	s.carts[input.ID] = &cartRecord{Cart: input, owner: c.GetString(ctxClientID)}
	c.JSON(http.StatusCreated, input)
}

func (s *Server) updateCart(c *gin.Context) {
	var input struct {
		TotalOrder   *decimal.Decimal `json:"totalOrder"`
		ActiveStatus *bool            `json:"activeStatus"`
		CartItemIDs  *models.ItemRefs `json:"cartItemId"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cr, ok := s.carts[c.Param("id")]
	if !ok || cr.owner != c.GetString(ctxClientID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "cart not found"})
		return
	}
	if input.TotalOrder != nil {
		cr.TotalOrder = *input.TotalOrder
	}
	if input.ActiveStatus != nil {
		cr.ActiveStatus = *input.ActiveStatus
	}
	if input.CartItemIDs != nil {
		cr.CartItemIDs = append(models.ItemRefs{}, (*input.CartItemIDs)...)
	}
	cr.UpdatedAt = s.now().UTC().Format(timeLayout)
	c.JSON(http.StatusOK, cr.Cart)
}

func (s *Server) deleteCart(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Param("id")
	cr, ok := s.carts[id]
	if !ok || cr.owner != c.GetString(ctxClientID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "cart not found"})
		return
	}
	delete(s.carts, id)
	c.Status(http.StatusNoContent)
}

// --- cart items ---

func (s *Server) listItems(c *gin.Context) {
	owner := c.GetString(ctxClientID)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.CartItem{}
	for _, it := range s.items {
		if it.owner == owner {
			out = append(out, it.CartItem)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	c.JSON(http.StatusOK, out)
}

func (s *Server) getItem(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[c.Param("id")]
	if !ok || it.owner != c.GetString(ctxClientID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "cart item not found"})
		return
	}
	c.JSON(http.StatusOK, it.CartItem)
}

func (s *Server) createItem(c *gin.Context) {
	var input models.CartItem
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.ProductQtd <= 0 || input.ProductID.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productQtd and productId are required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	input.ID = uuid.NewString()
	now := s.now().UTC().Format(timeLayout)
	input.CreatedAt, input.UpdatedAt = now, now
	s.items[input.ID] = &itemRecord{CartItem: input, owner: c.GetString(ctxClientID)}
	c.JSON(http.StatusCreated, input)
}

func (s *Server) updateItem(c *gin.Context) {
	var input struct {
		ProductQtd   *int               `json:"productQtd"`
		TotalAmount  *decimal.Decimal   `json:"totalAmount"`
		ActiveStatus *bool              `json:"activeStatus"`
		ProductID    *models.ProductRef `json:"productId"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[c.Param("id")]
	if !ok || it.owner != c.GetString(ctxClientID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "cart item not found"})
		return
	}
	if input.ProductQtd != nil {
		it.ProductQtd = *input.ProductQtd
	}
	if input.TotalAmount != nil {
		it.TotalAmount = *input.TotalAmount
	}
	if input.ActiveStatus != nil {
		it.ActiveStatus = *input.ActiveStatus
	}
	if input.ProductID != nil {
		it.ProductID = *input.ProductID
	}
	it.UpdatedAt = s.now().UTC().Format(timeLayout)
	c.JSON(http.StatusOK, it.CartItem)
}

func (s *Server) deleteItem(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Param("id")
	it, ok := s.items[id]
	if !ok || it.owner != c.GetString(ctxClientID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "cart item not found"})
		return
	}
	delete(s.items, id)
	c.Status(http.StatusNoContent)
}
