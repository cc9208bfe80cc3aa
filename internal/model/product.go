package model

import (
	"time"
)

type Product struct {
	ID            int64
	Sku           string
	Name          string
	Category      *string
	Quantity      int
	Price         *float64
	MinStockLevel *int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
