// Package checkout assembles a submitted order out of a cart snapshot, an
// address and a payment choice, covering both the synchronous
// cash-on-delivery path and the two-phase gateway-payment path.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/vastramart/cartengine/internal/domain"
	"github.com/vastramart/cartengine/internal/port"
	"github.com/vastramart/cartengine/internal/pricing"
	"go.uber.org/zap"
)

// ErrSubmitInFlight rejects a second submission while the first request is
// still outstanding; submission is at-most-once per checkout attempt.
var ErrSubmitInFlight = errors.New("order submission already in flight")

// ErrEmptyCart rejects checkout over an empty snapshot.
var ErrEmptyCart = errors.New("cart is empty")

// ErrGatewayUnavailable aborts gateway checkout before any charge is
// attempted when the gateway collaborator is not configured.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// PaymentCapturedError is the highest-severity failure class: the gateway
// captured the charge but order submission failed. It keeps the transaction
// proof so the order can later be reconciled or retried idempotently.
type PaymentCapturedError struct {
	Proof domain.TransactionProof
	Err   error
}

func (e *PaymentCapturedError) Error() string {
	return fmt.Sprintf("payment captured but order not recorded (payment_id=%s): %v", e.Proof.PaymentID, e.Err)
}

func (e *PaymentCapturedError) Unwrap() error {
	return e.Err
}

// Cart is the slice of the cart store the assembler needs: the snapshot to
// copy into the order, and a clear on successful submission.
type Cart interface {
	Snapshot(ctx context.Context) (domain.CartSnapshot, error)
	Clear(ctx context.Context) error
}

// Attempt is one priced, addressed checkout in progress. For gateway
// payments it carries the intent the paying UI hands to the gateway.
type Attempt struct {
	Intent  port.PaymentIntent
	OwnerID string
	Lines   []domain.LineItem
	Totals  domain.TaxBreakdown
	Address domain.Address
}

type Assembler struct {
	cart    Cart
	orders  port.Orders
	gateway port.PaymentGateway
	rates   domain.TaxRates
	logger  *zap.Logger

	inFlight  atomic.Bool
	completed *resultCache
}

type Option func(*Assembler)

func WithLogger(logger *zap.Logger) Option {
	return func(a *Assembler) { a.logger = logger }
}

func WithTaxRates(rates domain.TaxRates) Option {
	return func(a *Assembler) { a.rates = rates }
}

// New builds an assembler. The gateway may be nil for a cash-on-delivery
// only deployment; gateway checkout then aborts up front.
func New(cart Cart, orders port.Orders, gateway port.PaymentGateway, opts ...Option) (*Assembler, error) {
	if cart == nil {
		return nil, fmt.Errorf("cart is nil")
	}
	if orders == nil {
		return nil, fmt.Errorf("orders is nil")
	}

	a := &Assembler{
		cart:      cart,
		orders:    orders,
		gateway:   gateway,
		rates:     domain.DefaultTaxRates(),
		logger:    zap.NewNop(),
		completed: newResultCache(30 * time.Minute),
	}
	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

func (a *Assembler) begin() error {
	if !a.inFlight.CompareAndSwap(false, true) {
		return ErrSubmitInFlight
	}
	return nil
}

func (a *Assembler) end() {
	a.inFlight.Store(false)
}

// prepare validates the address and prices the current snapshot. Validation
// failures surface per-field before any network call.
func (a *Assembler) prepare(ctx context.Context, address domain.Address) (domain.CartSnapshot, domain.TaxBreakdown, error) {
	if err := address.Validate(); err != nil {
		return domain.CartSnapshot{}, domain.TaxBreakdown{}, err
	}

	snapshot, err := a.cart.Snapshot(ctx)
	if err != nil {
		return domain.CartSnapshot{}, domain.TaxBreakdown{}, fmt.Errorf("cart.Snapshot: %w", err)
	}
	if snapshot.IsEmpty() {
		return domain.CartSnapshot{}, domain.TaxBreakdown{}, ErrEmptyCart
	}

	return snapshot, pricing.Compute(snapshot.Lines, a.rates), nil
}

// PlaceCashOnDelivery assembles and submits synchronously, then clears the
// cart and returns the created order.
func (a *Assembler) PlaceCashOnDelivery(ctx context.Context, address domain.Address) (domain.Order, error) {
	if err := a.begin(); err != nil {
		return domain.Order{}, err
	}
	defer a.end()

	snapshot, totals, err := a.prepare(ctx, address)
	if err != nil {
		return domain.Order{}, err
	}

	order := domain.Order{
		OwnerID:       snapshot.OwnerID,
		Lines:         snapshot.Clone().Lines,
		Totals:        totals,
		Address:       address,
		PaymentMethod: domain.CashOnDelivery,
		OrderStatus:   domain.OrderPending,
		PaymentStatus: domain.PaymentPending,
	}

	created, err := a.orders.Create(ctx, order)
	if err != nil {
		return domain.Order{}, fmt.Errorf("orders.Create: %w", err)
	}

	a.clearCart(ctx, created)
	return created, nil
}

// BeginGatewayCheckout is phase one: request a payment intent sized to the
// grand total. If the gateway is unavailable it aborts before any charge is
// attempted.
func (a *Assembler) BeginGatewayCheckout(ctx context.Context, address domain.Address) (Attempt, error) {
	snapshot, totals, err := a.prepare(ctx, address)
	if err != nil {
		return Attempt{}, err
	}

	if a.gateway == nil {
		return Attempt{}, ErrGatewayUnavailable
	}

	intent, err := a.gateway.CreateIntent(ctx, totals.GrandTotal)
	if err != nil {
		return Attempt{}, fmt.Errorf("gateway.CreateIntent: %w", err)
	}

	return Attempt{
		Intent:  intent,
		OwnerID: snapshot.OwnerID,
		Lines:   snapshot.Clone().Lines,
		Totals:  totals,
		Address: address,
	}, nil
}

// CompleteGatewayCheckout is phase two, invoked with the gateway's success
// callback fields. The transaction proof is forwarded unmodified; this
// module never recomputes or validates it. A duplicate callback for the
// same intent returns the order created by the first one.
func (a *Assembler) CompleteGatewayCheckout(ctx context.Context, attempt Attempt, proof domain.TransactionProof) (domain.Order, error) {
	if proof.Empty() {
		return domain.Order{}, fmt.Errorf("transaction proof is empty")
	}

	if order, ok := a.completed.get(attempt.Intent.ID); ok {
		return order, nil
	}

	if err := a.begin(); err != nil {
		return domain.Order{}, err
	}
	defer a.end()

	// the cache may have been filled while we waited for the guard
	if order, ok := a.completed.get(attempt.Intent.ID); ok {
		return order, nil
	}

	order := domain.Order{
		OwnerID:       attempt.OwnerID,
		Lines:         attempt.Lines,
		Totals:        attempt.Totals,
		Address:       attempt.Address,
		PaymentMethod: domain.GatewayPayment,
		OrderStatus:   domain.OrderPending,
		PaymentStatus: domain.PaymentPaid,
		Proof:         proof,
	}

	created, err := a.orders.Create(ctx, order)
	if err != nil {
		captured := &PaymentCapturedError{Proof: proof, Err: err}
		a.logger.Error("payment captured but order submission failed",
			zap.String("intent_id", attempt.Intent.ID),
			zap.String("payment_id", proof.PaymentID),
			zap.Error(err))
		return domain.Order{}, captured
	}

	a.completed.set(attempt.Intent.ID, created)
	a.clearCart(ctx, created)
	return created, nil
}

// CancelGatewayCheckout handles the user dismissing the payment UI: no order
// is created and no error is surfaced beyond returning to checkout.
func (a *Assembler) CancelGatewayCheckout(attempt Attempt) {
	a.logger.Info("gateway checkout dismissed",
		zap.String("intent_id", attempt.Intent.ID))
}

func (a *Assembler) clearCart(ctx context.Context, created domain.Order) {
	// the order is already recorded; a cart that fails to clear is an
	// inconvenience, not a lost sale
	if err := a.cart.Clear(ctx); err != nil {
		a.logger.Warn("cart clear after order submission failed",
			zap.String("order_id", created.ID.String()),
			zap.Error(err))
	}
}
