package model

import "context"

// ProductSnapshot is a point-in-time copy of external product data, valid
// only for the duration of one orchestration attempt.
type ProductSnapshot struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	DiscountedPrice float64 `json:"discounted_price"`
	StockQuantity   int     `json:"stock_quantity"`
}

// EffectivePrice is the discounted price when present and positive,
// otherwise the list price.
func (s *ProductSnapshot) EffectivePrice() float64 {
	if s.DiscountedPrice > 0 {
		return s.DiscountedPrice
	}
	return s.Price
}

// ProductGateway is the orchestration-facing slice of the inventory oracle.
// SetStock writes an absolute value: the caller computes the new level from
// its own snapshot.
type ProductGateway interface {
	Product(ctx context.Context, id int64) (*ProductSnapshot, error)
	SetStock(ctx context.Context, id int64, quantity int) error
}
