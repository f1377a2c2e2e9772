package service

import (
	"context"
	"fmt"

	"shop/pkg/orders/domain/model"
)

func (s *orderService) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	return s.repo.Find(ctx, id)
}

func (s *orderService) ListUserOrders(ctx context.Context, userID int64, status string) ([]model.Order, error) {
	return s.repo.FindByUser(ctx, userID, status)
}

func (s *orderService) ListOrders(ctx context.Context, status string) ([]model.Order, error) {
	return s.repo.FindAll(ctx, status)
}

func (s *orderService) UpdateStatus(ctx context.Context, id int64, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	order, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	order.Status = status
	if status == model.StatusShipped && order.TrackingNumber == nil {
		tracking := s.trackingNumber(order.ID)
		order.TrackingNumber = &tracking
	}

	if err := s.repo.Update(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) UpdatePaymentStatus(ctx context.Context, id int64, status model.PaymentStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidPaymentStatus
	}

	order, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	order.PaymentStatus = status
	if err := s.repo.Update(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// trackingNumber is deterministic in the order id and the current date, so a
// repeated transition on the same day cannot produce a different number.
func (s *orderService) trackingNumber(orderID int64) string {
	return fmt.Sprintf("TRACK-%06d-%s", orderID, s.now().UTC().Format("20060102"))
}
