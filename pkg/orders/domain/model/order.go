package model

import (
	"context"
	"errors"
	"time"
)

var ErrOrderNotFound = errors.New("order not found")

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

type Order struct {
	ID              int64         `db:"id" json:"id"`
	UserID          int64         `db:"user_id" json:"user_id"`
	OrderDate       time.Time     `db:"order_date" json:"order_date"`
	Status          OrderStatus   `db:"status" json:"status"`
	TotalAmount     float64       `db:"total_amount" json:"total_amount"`
	ShippingAddress string        `db:"shipping_address" json:"shipping_address"`
	PaymentStatus   PaymentStatus `db:"payment_status" json:"payment_status"`
	TrackingNumber  *string       `db:"tracking_number" json:"tracking_number"`
	Notes           string        `db:"notes" json:"notes"`
	Items           []OrderItem   `db:"-" json:"items"`
}

// OrderItem freezes the product name and unit price at creation time; both
// are point-in-time copies, never re-read from the catalog.
type OrderItem struct {
	ID          int64   `db:"id" json:"id"`
	OrderID     int64   `db:"order_id" json:"order_id"`
	ProductID   int64   `db:"product_id" json:"product_id"`
	ProductName string  `db:"product_name" json:"product_name"`
	Quantity    int     `db:"quantity" json:"quantity"`
	Price       float64 `db:"price" json:"price"`
}

type OrderRepository interface {
	// CreateWithItems persists the order and all of its lines as one atomic
	// local write and fills in the generated ids.
	CreateWithItems(ctx context.Context, order *Order) error
	Delete(ctx context.Context, id int64) error
	Find(ctx context.Context, id int64) (*Order, error)
	FindByUser(ctx context.Context, userID int64, status string) ([]Order, error)
	FindAll(ctx context.Context, status string) ([]Order, error)
	Update(ctx context.Context, order *Order) error
}
