package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog view the checkout core consumes: current price and stock.
type Product struct {
	ID        string          `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Stock     int             `json:"stock" db:"stock"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`
}

// StockLevel is the response for stock queries.
type StockLevel struct {
	ProductID string `json:"productId"`
	Stock     int    `json:"stock"`
}

// RestockRequest represents the request payload for adding stock.
type RestockRequest struct {
	Quantity int `json:"quantity" validate:"gt=0"`
}
