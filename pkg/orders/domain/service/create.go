package service

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"shop/pkg/orders/domain/model"
)

// orchestration tracks the reversible steps of one createOrder attempt as an
// explicit compensation stack. Only the local order write ever lands on it:
// remote stock decrements are irreversible once issued, so a failure midway
// through step 5 leaves earlier decrements applied.
type orchestration struct {
	compensations []func(ctx context.Context)
}

func (o *orchestration) onFailure(fn func(ctx context.Context)) {
	o.compensations = append(o.compensations, fn)
}

func (o *orchestration) rollback(ctx context.Context) {
	for i := len(o.compensations) - 1; i >= 0; i-- {
		o.compensations[i](ctx)
	}
}

// pricedLine pairs an order line with the snapshot it was priced from; the
// snapshot's stock level is reused in step 5 to compute the absolute stock
// write, it is never re-read.
type pricedLine struct {
	snapshot model.ProductSnapshot
	item     model.OrderItem
}

// CreateOrder runs the order-creation orchestration:
//
//	1. snapshot every requested product from the catalog
//	2. check requested quantity against snapshot stock
//	3. freeze the effective unit price into the line
//	4. persist the order and all lines atomically
//	5. push absolute stock decrements back to the catalog
//
// Steps 1-3 read stock and step 5 writes it with nothing locking the product
// in between, so two concurrent orchestrations for the same product can both
// pass step 2 against the same availability and oversell it.
func (s *orderService) CreateOrder(ctx context.Context, buyerID int64, in CreateOrderInput) (*model.Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	lines := make([]pricedLine, 0, len(in.Items))
	total := decimal.Zero
	for _, item := range in.Items {
		if item.ProductID == 0 {
			return nil, ErrMissingProductID
		}
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}

		snapshot, err := s.products.Product(ctx, item.ProductID)
		if err != nil {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		if snapshot.StockQuantity < item.Quantity {
			return nil, &InsufficientStockError{
				ProductID: item.ProductID,
				Available: snapshot.StockQuantity,
				Requested: item.Quantity,
			}
		}

		price := snapshot.EffectivePrice()
		total = total.Add(decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(item.Quantity))))
		lines = append(lines, pricedLine{
			snapshot: *snapshot,
			item: model.OrderItem{
				ProductID:   item.ProductID,
				ProductName: snapshot.Name,
				Quantity:    item.Quantity,
				Price:       price,
			},
		})
	}

	paymentStatus := model.PaymentStatus(in.PaymentStatus)
	if paymentStatus == "" {
		paymentStatus = model.PaymentPending
	}

	order := &model.Order{
		UserID:          buyerID,
		OrderDate:       s.now().UTC(),
		Status:          model.StatusPending,
		TotalAmount:     total.Round(2).InexactFloat64(),
		ShippingAddress: in.ShippingAddress,
		PaymentStatus:   paymentStatus,
		Notes:           in.Notes,
	}
	for _, line := range lines {
		order.Items = append(order.Items, line.item)
	}

	run := &orchestration{}
	if err := s.repo.CreateWithItems(ctx, order); err != nil {
		return nil, errors.Wrap(err, "persist order")
	}
	run.onFailure(func(ctx context.Context) {
		_ = s.repo.Delete(ctx, order.ID)
	})

	for _, line := range lines {
		newStock := line.snapshot.StockQuantity - line.item.Quantity
		if err := s.products.SetStock(ctx, line.item.ProductID, newStock); err != nil {
			run.rollback(ctx)
			return nil, &StockUpdateError{ProductID: line.item.ProductID}
		}
	}

	return order, nil
}
