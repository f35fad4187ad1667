package fakeapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"watchstore/internal/models"
)

const dateLayout = "2006-01-02"

func (s *Server) listOrders(c *gin.Context) {
	owner := c.GetString(ctxClientID)
	admin := isAdmin(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Order{}
	for _, o := range s.orders {
		if admin || o.owner == owner {
			out = append(out, o.Order)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createOrder(c *gin.Context) {
	var input struct {
		CartID string `json:"cartId"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.CartID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cartId required"})
		return
	}
	owner := c.GetString(ctxClientID)

	s.mu.Lock()
	defer s.mu.Unlock()
	cr, ok := s.carts[input.CartID]
	if !ok || cr.owner != owner {
		c.JSON(http.StatusNotFound, gin.H{"error": "cart not found"})
		return
	}

	snap := models.CartWithItems{Cart: cr.Cart}
	for _, id := range cr.CartItemIDs {
		if it, ok := s.items[id]; ok && it.ActiveStatus {
			snap.Items = append(snap.Items, it.CartItem)
		}
	}
	if len(snap.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cart is empty"})
		return
	}
	snap.TotalOrder = snap.SumActive()

	now := s.now()
	order := models.Order{
		ID:        uuid.NewString(),
		CartID:    cr.ID,
		CreatedAt: now.UTC().Format(timeLayout),
	}
	s.orders = append(s.orders, orderRecord{Order: order, owner: owner, total: snap, at: now})
	c.JSON(http.StatusCreated, gin.H{"message": "order created", "id": order.ID})
}

func (s *Server) monthlyReport(c *gin.Context) {
	initial, err1 := time.Parse(dateLayout, c.Query("initial"))
	final, err2 := time.Parse(dateLayout, c.Query("final"))
	if err1 != nil || err2 != nil || final.Before(initial) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "initial and final must be YYYY-MM-DD, initial <= final"})
		return
	}
	end := final.AddDate(0, 0, 1)

	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, o := range s.orders {
		at := o.at.UTC()
		if !at.Before(initial) && at.Before(end) {
			total = total.Add(o.total.TotalOrder)
		}
	}
	c.JSON(http.StatusOK, models.MonthlyReport{
		TotalSales: total,
		Period:     models.ReportPeriod{Initial: c.Query("initial"), Final: c.Query("final")},
	})
}

func (s *Server) bestSeller(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sold := map[string]int{}
	for _, o := range s.orders {
		for _, it := range o.total.Items {
			sold[it.ProductID.ID] += it.ProductQtd
		}
	}
	var best models.MostSoldProduct
	for id, n := range sold {
		if n > best.TotalSold || (n == best.TotalSold && id < best.ProductID) {
			best = models.MostSoldProduct{ProductID: id, TotalSold: n}
		}
	}
	if best.ProductID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no sales yet"})
		return
	}
	if p, ok := s.products[best.ProductID]; ok {
		best.ProductName = p.Name
	}
	c.JSON(http.StatusOK, best)
}
