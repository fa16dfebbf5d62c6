package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vastramart/cartengine/internal/domain"
	"github.com/vastramart/cartengine/internal/port"
	"go.uber.org/zap"
)

// AdminService applies administrator status updates. Every update carries
// the full {orderStatus, paymentStatus} pair so a write cannot clobber a
// concurrently-changed field it did not intend to touch.
type AdminService struct {
	orders port.Orders
	logger *zap.Logger
}

func NewAdminService(orders port.Orders, logger *zap.Logger) (*AdminService, error) {
	if orders == nil {
		return nil, fmt.Errorf("orders is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AdminService{orders: orders, logger: logger}, nil
}

func (s *AdminService) UpdateStatus(ctx context.Context, orderID uuid.UUID, pair domain.StatusPair) (domain.Order, error) {
	current, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("orders.Get: %w", err)
	}

	currentPair := domain.StatusPair{Order: current.OrderStatus, Payment: current.PaymentStatus}
	if err := Transition(currentPair, pair); err != nil {
		return domain.Order{}, err
	}

	updated, err := s.orders.UpdateStatus(ctx, orderID, pair)
	if err != nil {
		return domain.Order{}, fmt.Errorf("orders.UpdateStatus: %w", err)
	}

	s.logger.Info("order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("order_status", pair.Order.String()),
		zap.String("payment_status", pair.Payment.String()))

	return updated, nil
}
