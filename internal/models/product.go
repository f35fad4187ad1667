package models

import (
	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Height      float64         `json:"height,omitempty"`
	Width       float64         `json:"width,omitempty"`
	Length      float64         `json:"length,omitempty"`
	Color       []string        `json:"color,omitempty"`
	Description string          `json:"description,omitempty"`
	Year        int             `json:"year,omitempty"`
	Status      bool            `json:"status"`
	StockQtd    int             `json:"stockQtd,omitempty"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	UserID      string          `json:"userId,omitempty"`
	CreatedAt   string          `json:"createdAt,omitempty"`
	UpdatedAt   string          `json:"updatedAt,omitempty"`
}

type Supplier struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	CNPJ      string `json:"cnpj"`
	AddressID string `json:"adressId"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// Message is the {"message": "..."} envelope most write endpoints answer with.
type Message struct {
	Message string `json:"message"`
}
