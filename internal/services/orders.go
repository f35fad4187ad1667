package services

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"watchstore/internal/apiclient"
	"watchstore/internal/config"
	"watchstore/internal/models"
)

const dateLayout = "2006-01-02"

type Orders struct {
	api *apiclient.Client
}

func NewOrders(api *apiclient.Client) *Orders { return &Orders{api: api} }

func (s *Orders) List(ctx context.Context) ([]models.Order, error) {
	var out []models.Order
	if err := s.api.Call(ctx, config.RouteOrderList, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("services: list orders: %w", err)
	}
	return out, nil
}

// Create places an order for cartID and returns the order id when the
// backend reports one.
func (s *Orders) Create(ctx context.Context, cartID string) (string, error) {
	if cartID == "" {
		return "", fmt.Errorf("services: create order: empty cart id")
	}
	var out struct {
		models.Message
		ID string `json:"id"`
	}
	body := map[string]string{"cartId": cartID}
	if err := s.api.Call(ctx, config.RouteOrderCreate, nil, body, &out); err != nil {
		return "", fmt.Errorf("services: create order for cart %s: %w", cartID, err)
	}
	return out.ID, nil
}

// MonthlyReport sums sales over [from, to], both days inclusive.
func (s *Orders) MonthlyReport(ctx context.Context, from, to time.Time) (models.MonthlyReport, error) {
	if to.Before(from) {
		return models.MonthlyReport{}, fmt.Errorf("services: monthly report: %s is before %s", to.Format(dateLayout), from.Format(dateLayout))
	}
	q := url.Values{}
	q.Set("initial", from.Format(dateLayout))
	q.Set("final", to.Format(dateLayout))

	resp, err := s.api.Do(ctx, apiclient.Request{Route: config.RouteReportMonthly, Query: q})
	if err != nil {
		return models.MonthlyReport{}, fmt.Errorf("services: monthly report: %w", err)
	}
	var out models.MonthlyReport
	if err := resp.Decode(&out); err != nil {
		return models.MonthlyReport{}, fmt.Errorf("services: monthly report: %w", err)
	}
	return out, nil
}

// BestSeller returns the most sold product; ok is false when nothing sold yet.
func (s *Orders) BestSeller(ctx context.Context) (models.MostSoldProduct, bool, error) {
	var out models.MostSoldProduct
	err := s.api.Call(ctx, config.RouteReportBestSeller, nil, nil, &out)
	if apiclient.IsNotFound(err) {
		return models.MostSoldProduct{}, false, nil
	}
	if err != nil {
		return models.MostSoldProduct{}, false, fmt.Errorf("services: best seller: %w", err)
	}
	return out, true, nil
}

// Dashboard is the admin overview: sales for a period, the best seller and
// the low-stock list.
type Dashboard struct {
	Sales      models.MonthlyReport     `json:"sales"`
	BestSeller *models.MostSoldProduct  `json:"bestSeller,omitempty"`
	LowStock   []models.LowStockProduct `json:"lowStock"`
}

// LoadDashboard fetches the three reports concurrently. They are
// independent reads; the first failure cancels the others.
func LoadDashboard(ctx context.Context, orders *Orders, products *Products, from, to time.Time) (*Dashboard, error) {
	var d Dashboard
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r, err := orders.MonthlyReport(ctx, from, to)
		if err != nil {
			return err
		}
		d.Sales = r
		return nil
	})
	g.Go(func() error {
		best, ok, err := orders.BestSeller(ctx)
		if err != nil {
			return err
		}
		if ok {
			d.BestSeller = &best
		}
		return nil
	})
	g.Go(func() error {
		low, err := products.LowStock(ctx)
		if err != nil {
			return err
		}
		d.LowStock = low
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}

// MonthRange is the first and last day of the month containing t.
func MonthRange(t time.Time) (from, to time.Time) {
	from = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	to = from.AddDate(0, 1, -1)
	return from, to
}
