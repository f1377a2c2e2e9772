package model

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrProductNotFound = errors.New("product not found")

type Product struct {
	ID                 int64     `db:"id"`
	Name               string    `db:"name"`
	Description        string    `db:"description"`
	Price              float64   `db:"price"`
	StockQuantity      int       `db:"stock_quantity"`
	Category           string    `db:"category"`
	ImageURL           *string   `db:"image_url"`
	DiscountPercentage float64   `db:"discount_percentage"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

// DiscountedPrice derives the effective price from the discount percentage,
// rounded to 2 decimal places. With no discount it equals the list price.
func (p *Product) DiscountedPrice() float64 {
	if p.DiscountPercentage <= 0 {
		return p.Price
	}
	price := decimal.NewFromFloat(p.Price)
	factor := decimal.NewFromInt(100).Sub(decimal.NewFromFloat(p.DiscountPercentage)).Div(decimal.NewFromInt(100))
	return price.Mul(factor).Round(2).InexactFloat64()
}

type ListFilter struct {
	Category  string
	Search    string
	SortBy    string
	SortOrder string
}

type ProductRepository interface {
	Create(ctx context.Context, product *Product) error
	Update(ctx context.Context, product *Product) error
	Find(ctx context.Context, id int64) (*Product, error)
	List(ctx context.Context, filter ListFilter) ([]Product, error)
}
