package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shop/pkg/orders/domain/model"
)

var (
	ErrEmptyOrder           = errors.New("order must contain at least one item")
	ErrMissingProductID     = errors.New("product_id is required for each item")
	ErrInvalidQuantity      = errors.New("quantity must be greater than 0")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrInvalidPaymentStatus = errors.New("invalid payment status")
)

// ProductNotFoundError covers both an absent product and an unreachable
// catalog: the orchestrator cannot distinguish the two and must not guess.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("Product %d not found", e.ProductID)
}

type InsufficientStockError struct {
	ProductID int64
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for product %d. Available: %d, Requested: %d",
		e.ProductID, e.Available, e.Requested)
}

// StockUpdateError means a decrement failed after the local order write; the
// order row has been rolled back by the time this is returned.
type StockUpdateError struct {
	ProductID int64
}

func (e *StockUpdateError) Error() string {
	return fmt.Sprintf("Failed to update stock for product %d", e.ProductID)
}

type ItemInput struct {
	ProductID int64
	Quantity  int
}

type CreateOrderInput struct {
	Items           []ItemInput
	ShippingAddress string
	Notes           string
	PaymentStatus   string
}

type OrderService interface {
	CreateOrder(ctx context.Context, buyerID int64, in CreateOrderInput) (*model.Order, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	ListUserOrders(ctx context.Context, userID int64, status string) ([]model.Order, error)
	ListOrders(ctx context.Context, status string) ([]model.Order, error)
	UpdateStatus(ctx context.Context, id int64, status model.OrderStatus) (*model.Order, error)
	UpdatePaymentStatus(ctx context.Context, id int64, status model.PaymentStatus) (*model.Order, error)
}

func NewOrderService(repo model.OrderRepository, products model.ProductGateway) OrderService {
	return &orderService{repo: repo, products: products, now: time.Now}
}

type orderService struct {
	repo     model.OrderRepository
	products model.ProductGateway
	now      func() time.Time
}
