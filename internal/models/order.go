package models

import "github.com/shopspring/decimal"

type Order struct {
	ID        string `json:"id"`
	CartID    string `json:"cartId"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

type ReportPeriod struct {
	Initial string `json:"initial"`
	Final   string `json:"final"`
}

type MonthlyReport struct {
	TotalSales decimal.Decimal `json:"totalSales"`
	Period     ReportPeriod    `json:"period"`
}

type MostSoldProduct struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	TotalSold   int    `json:"totalSold"`
}

type LowStockProduct struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	StockQtd int             `json:"stockQtd"`
	Price    decimal.Decimal `json:"price"`
}
