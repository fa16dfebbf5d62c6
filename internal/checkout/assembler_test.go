package checkout_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vastramart/cartengine/internal/checkout"
	"github.com/vastramart/cartengine/internal/domain"
	"github.com/vastramart/cartengine/internal/port"
)

type fakeCart struct {
	mu      sync.Mutex
	ownerID string
	lines   []domain.LineItem
	cleared bool
}

func (f *fakeCart) Snapshot(context.Context) (domain.CartSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]domain.LineItem, len(f.lines))
	copy(lines, f.lines)
	return domain.CartSnapshot{OwnerID: f.ownerID, Lines: lines}, nil
}

func (f *fakeCart) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = true
	f.lines = nil
	return nil
}

type fakeOrders struct {
	mu      sync.Mutex
	created []domain.Order

	createErr error

	// when set, Create signals started and blocks until release is closed
	started chan struct{}
	release chan struct{}
}

func (f *fakeOrders) Create(_ context.Context, order domain.Order) (domain.Order, error) {
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return domain.Order{}, f.createErr
	}

	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	f.created = append(f.created, order)
	return order, nil
}

func (f *fakeOrders) Get(_ context.Context, orderID uuid.UUID) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.created {
		if o.ID == orderID {
			return o, nil
		}
	}
	return domain.Order{}, assert.AnError
}

func (f *fakeOrders) UpdateStatus(_ context.Context, orderID uuid.UUID, pair domain.StatusPair) (domain.Order, error) {
	return domain.Order{}, assert.AnError
}

func (f *fakeOrders) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type fakeGateway struct {
	createErr error
	intents   int
}

func (f *fakeGateway) CreateIntent(_ context.Context, amount domain.Money) (port.PaymentIntent, error) {
	if f.createErr != nil {
		return port.PaymentIntent{}, f.createErr
	}
	f.intents++
	return port.PaymentIntent{
		ID:       "intent_" + gofakeit.LetterN(10),
		Amount:   amount,
		Currency: amount.Currency.String(),
	}, nil
}

func validAddress() domain.Address {
	return domain.Address{
		Name:    gofakeit.Name(),
		Phone:   gofakeit.Phone(),
		Line1:   gofakeit.Street(),
		City:    gofakeit.City(),
		State:   "Maharashtra",
		Pincode: "400001",
	}
}

func cartWithLines(prices ...float64) *fakeCart {
	c := &fakeCart{ownerID: gofakeit.UUID()}
	for _, p := range prices {
		c.lines = append(c.lines, domain.LineItem{
			ID:        uuid.NewString(),
			ProductID: uuid.New(),
			GradeID:   uuid.New(),
			ColorID:   uuid.New(),
			UnitPrice: domain.NewMoney(decimal.NewFromFloat(p)),
			Quantity:  1,
		})
	}
	return c
}

func proof() domain.TransactionProof {
	return domain.TransactionProof{
		OrderRef:  "order_" + gofakeit.LetterN(8),
		PaymentID: "pay_" + gofakeit.LetterN(8),
		Signature: gofakeit.LetterN(32),
	}
}

func TestPlaceCashOnDelivery(t *testing.T) {
	ctx := t.Context()
	cart := cartWithLines(1000)
	orders := &fakeOrders{}

	a, err := checkout.New(cart, orders, nil)
	require.NoError(t, err)

	created, err := a.PlaceCashOnDelivery(ctx, validAddress())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, cart.ownerID, created.OwnerID, "order must keep the snapshot's owner")
	assert.Equal(t, domain.CashOnDelivery, created.PaymentMethod)
	assert.Equal(t, domain.OrderPending, created.OrderStatus)
	assert.Equal(t, domain.PaymentPending, created.PaymentStatus)
	assert.True(t, created.Totals.GrandTotal.Amount.Equal(decimal.NewFromInt(1180)))
	assert.True(t, cart.cleared, "cart must be cleared on successful submission")
}

func TestPlaceCashOnDeliveryInvalidAddress(t *testing.T) {
	ctx := t.Context()
	orders := &fakeOrders{}

	a, err := checkout.New(cartWithLines(100), orders, nil)
	require.NoError(t, err)

	_, err = a.PlaceCashOnDelivery(ctx, domain.Address{})

	var fe domain.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "name")
	assert.Contains(t, fe, "pincode")
	assert.Zero(t, orders.count(), "validation failure must precede any network call")
}

func TestPlaceCashOnDeliveryEmptyCart(t *testing.T) {
	a, err := checkout.New(&fakeCart{}, &fakeOrders{}, nil)
	require.NoError(t, err)

	_, err = a.PlaceCashOnDelivery(t.Context(), validAddress())
	require.ErrorIs(t, err, checkout.ErrEmptyCart)
}

func TestDoubleSubmitCreatesExactlyOneOrder(t *testing.T) {
	ctx := t.Context()
	orders := &fakeOrders{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}

	a, err := checkout.New(cartWithLines(500), orders, nil)
	require.NoError(t, err)

	firstErr := make(chan error, 1)
	go func() {
		_, err := a.PlaceCashOnDelivery(ctx, validAddress())
		firstErr <- err
	}()

	<-orders.started

	// second click while the first request is outstanding
	_, err = a.PlaceCashOnDelivery(ctx, validAddress())
	require.ErrorIs(t, err, checkout.ErrSubmitInFlight)

	close(orders.release)
	require.NoError(t, <-firstErr)
	assert.Equal(t, 1, orders.count())
}

func TestBeginGatewayCheckout(t *testing.T) {
	ctx := t.Context()
	gateway := &fakeGateway{}

	a, err := checkout.New(cartWithLines(500, 300), &fakeOrders{}, gateway)
	require.NoError(t, err)

	attempt, err := a.BeginGatewayCheckout(ctx, validAddress())
	require.NoError(t, err)

	// intent is sized to the grand total: 800 * 1.18
	assert.True(t, attempt.Intent.Amount.Amount.Equal(decimal.NewFromInt(944)),
		"intent amount = %s", attempt.Intent.Amount.Amount)
	assert.Len(t, attempt.Lines, 2)
	assert.Equal(t, 1, gateway.intents)
}

func TestBeginGatewayCheckoutUnavailable(t *testing.T) {
	a, err := checkout.New(cartWithLines(500), &fakeOrders{}, nil)
	require.NoError(t, err)

	_, err = a.BeginGatewayCheckout(t.Context(), validAddress())
	require.ErrorIs(t, err, checkout.ErrGatewayUnavailable)
}

func TestCompleteGatewayCheckout(t *testing.T) {
	ctx := t.Context()
	cart := cartWithLines(1000)
	orders := &fakeOrders{}

	a, err := checkout.New(cart, orders, &fakeGateway{})
	require.NoError(t, err)

	attempt, err := a.BeginGatewayCheckout(ctx, validAddress())
	require.NoError(t, err)

	p := proof()
	created, err := a.CompleteGatewayCheckout(ctx, attempt, p)
	require.NoError(t, err)

	// proof is forwarded verbatim, never touched
	assert.Equal(t, p, created.Proof)
	assert.Equal(t, cart.ownerID, created.OwnerID, "the gateway path must not drop the cart owner")
	assert.Equal(t, domain.GatewayPayment, created.PaymentMethod)
	assert.Equal(t, domain.PaymentPaid, created.PaymentStatus)
	assert.True(t, cart.cleared)
}

// Both payment paths assemble from the same snapshot, so both must persist
// the same owner.
func TestOwnerPropagatesOnBothPaths(t *testing.T) {
	ctx := t.Context()

	codCart := cartWithLines(1000)
	codOrders := &fakeOrders{}
	cod, err := checkout.New(codCart, codOrders, nil)
	require.NoError(t, err)

	codOrder, err := cod.PlaceCashOnDelivery(ctx, validAddress())
	require.NoError(t, err)

	gwCart := cartWithLines(1000)
	gwCart.ownerID = codCart.ownerID
	gw, err := checkout.New(gwCart, &fakeOrders{}, &fakeGateway{})
	require.NoError(t, err)

	attempt, err := gw.BeginGatewayCheckout(ctx, validAddress())
	require.NoError(t, err)
	assert.Equal(t, gwCart.ownerID, attempt.OwnerID)

	gwOrder, err := gw.CompleteGatewayCheckout(ctx, attempt, proof())
	require.NoError(t, err)

	assert.NotEmpty(t, codOrder.OwnerID)
	assert.Equal(t, codOrder.OwnerID, gwOrder.OwnerID)
}

func TestCompleteGatewayCheckoutDuplicateCallback(t *testing.T) {
	ctx := t.Context()
	orders := &fakeOrders{}

	a, err := checkout.New(cartWithLines(1000), orders, &fakeGateway{})
	require.NoError(t, err)

	attempt, err := a.BeginGatewayCheckout(ctx, validAddress())
	require.NoError(t, err)

	p := proof()
	first, err := a.CompleteGatewayCheckout(ctx, attempt, p)
	require.NoError(t, err)

	// gateways retry callbacks; the second invocation must not submit again
	second, err := a.CompleteGatewayCheckout(ctx, attempt, p)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, orders.count())
}

func TestCompleteGatewayCheckoutRejectsEmptyProof(t *testing.T) {
	a, err := checkout.New(cartWithLines(1000), &fakeOrders{}, &fakeGateway{})
	require.NoError(t, err)

	_, err = a.CompleteGatewayCheckout(t.Context(), checkout.Attempt{}, domain.TransactionProof{})
	require.ErrorContains(t, err, "transaction proof is empty")
}

func TestPaymentCapturedButOrderNotRecorded(t *testing.T) {
	ctx := t.Context()
	cart := cartWithLines(1000)
	orders := &fakeOrders{createErr: assert.AnError}

	a, err := checkout.New(cart, orders, &fakeGateway{})
	require.NoError(t, err)

	attempt, err := a.BeginGatewayCheckout(ctx, validAddress())
	require.NoError(t, err)

	p := proof()
	_, err = a.CompleteGatewayCheckout(ctx, attempt, p)

	var captured *checkout.PaymentCapturedError
	require.ErrorAs(t, err, &captured, "must be the distinct captured-payment error class")
	assert.Equal(t, p, captured.Proof, "transaction proof must be preserved for reconciliation")
	require.ErrorIs(t, err, assert.AnError)
	assert.False(t, cart.cleared, "cart must survive a failed submission")

	// the attempt stays retryable once the backend recovers
	orders.createErr = nil
	retried, err := a.CompleteGatewayCheckout(ctx, attempt, p)
	require.NoError(t, err)
	assert.Equal(t, p, retried.Proof)
}

func TestCancelGatewayCheckout(t *testing.T) {
	ctx := t.Context()
	orders := &fakeOrders{}

	a, err := checkout.New(cartWithLines(1000), orders, &fakeGateway{})
	require.NoError(t, err)

	attempt, err := a.BeginGatewayCheckout(ctx, validAddress())
	require.NoError(t, err)

	// dismissal: no order, no error
	a.CancelGatewayCheckout(attempt)
	assert.Zero(t, orders.count())
}
