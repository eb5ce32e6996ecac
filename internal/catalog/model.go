package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Gender string

const (
	GenderMen    Gender = "M"
	GenderWomen  Gender = "F"
	GenderUnisex Gender = "U"
)

type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CategoryID  string          `json:"categoryId"`
	Brand       string          `json:"brand,omitempty"`
	Gender      Gender          `json:"gender"`
	IsFeatured  bool            `json:"isFeatured"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// PriceQuote is the slice of a product an order needs at placement time.
type PriceQuote struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
}
