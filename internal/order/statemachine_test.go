package order_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vastramart/cartengine/internal/domain"
	"github.com/vastramart/cartengine/internal/order"
	"go.uber.org/zap"
)

func pair(o domain.OrderStatus, p domain.PaymentStatus) domain.StatusPair {
	return domain.StatusPair{Order: o, Payment: p}
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name      string
		current   domain.StatusPair
		next      domain.StatusPair
		wantError error
	}{
		{
			name:    "pending to confirmed",
			current: pair(domain.OrderPending, domain.PaymentPending),
			next:    pair(domain.OrderConfirmed, domain.PaymentPending),
		},
		{
			name:    "processing to shipped with payment update",
			current: pair(domain.OrderProcessing, domain.PaymentPending),
			next:    pair(domain.OrderShipped, domain.PaymentPaid),
		},
		{
			name:    "pending straight to cancelled",
			current: pair(domain.OrderPending, domain.PaymentPending),
			next:    pair(domain.OrderCancelled, domain.PaymentRefunded),
		},
		{
			name:      "delivered is terminal",
			current:   pair(domain.OrderDelivered, domain.PaymentPaid),
			next:      pair(domain.OrderShipped, domain.PaymentPaid),
			wantError: order.ErrTerminalStatus,
		},
		{
			name:      "cancelled is terminal",
			current:   pair(domain.OrderCancelled, domain.PaymentRefunded),
			next:      pair(domain.OrderPending, domain.PaymentRefunded),
			wantError: order.ErrTerminalStatus,
		},
		{
			name:    "payment axis still moves on a delivered order",
			current: pair(domain.OrderDelivered, domain.PaymentPending),
			next:    pair(domain.OrderDelivered, domain.PaymentPaid),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := order.Transition(tt.current, tt.next)
			if tt.wantError != nil {
				require.ErrorIs(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTransitionRejectsUnknownStatuses(t *testing.T) {
	current := pair(domain.OrderPending, domain.PaymentPending)

	err := order.Transition(current, pair("dispatched", domain.PaymentPending))
	require.EqualError(t, err, "order status[dispatched] is not valid")

	err = order.Transition(current, pair(domain.OrderPending, "chargeback"))
	require.EqualError(t, err, "payment status[chargeback] is not valid")
}

type stubOrders struct {
	order   domain.Order
	updated *domain.StatusPair
}

func (s *stubOrders) Create(_ context.Context, o domain.Order) (domain.Order, error) {
	return o, nil
}

func (s *stubOrders) Get(context.Context, uuid.UUID) (domain.Order, error) {
	return s.order, nil
}

func (s *stubOrders) UpdateStatus(_ context.Context, _ uuid.UUID, pair domain.StatusPair) (domain.Order, error) {
	s.updated = &pair
	o := s.order
	o.OrderStatus = pair.Order
	o.PaymentStatus = pair.Payment
	return o, nil
}

func TestAdminServiceUpdateStatus(t *testing.T) {
	ctx := t.Context()
	stub := &stubOrders{order: domain.Order{
		ID:            uuid.New(),
		OrderStatus:   domain.OrderConfirmed,
		PaymentStatus: domain.PaymentPending,
	}}

	svc, err := order.NewAdminService(stub, zap.NewNop())
	require.NoError(t, err)

	next := pair(domain.OrderProcessing, domain.PaymentPaid)
	updated, err := svc.UpdateStatus(ctx, stub.order.ID, next)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderProcessing, updated.OrderStatus)
	assert.Equal(t, domain.PaymentPaid, updated.PaymentStatus)
	require.NotNil(t, stub.updated)
	assert.Equal(t, next, *stub.updated, "both fields must travel together")
}

func TestAdminServiceRejectsTerminalChange(t *testing.T) {
	ctx := t.Context()
	stub := &stubOrders{order: domain.Order{
		ID:            uuid.New(),
		OrderStatus:   domain.OrderDelivered,
		PaymentStatus: domain.PaymentPaid,
	}}

	svc, err := order.NewAdminService(stub, zap.NewNop())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, stub.order.ID, pair(domain.OrderProcessing, domain.PaymentPaid))
	require.ErrorIs(t, err, order.ErrTerminalStatus)
	assert.Nil(t, stub.updated, "no write may follow a rejected transition")
}
