package port

import (
	"context"

	"github.com/vastramart/cartengine/internal/domain"
)

// PaymentIntent is the gateway's handle for a charge sized to a grand total.
type PaymentIntent struct {
	ID       string
	Amount   domain.Money
	Currency string
}

// PaymentGateway covers phase one of gateway checkout. The success callback
// arrives out of band; its transaction proof reaches this module already
// assembled and is consumed verbatim.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount domain.Money) (PaymentIntent, error)
}
