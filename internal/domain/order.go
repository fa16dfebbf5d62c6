package domain

import (
	"time"

	"github.com/google/uuid"
)

type PaymentMethod string

const (
	CashOnDelivery PaymentMethod = "cod"
	GatewayPayment PaymentMethod = "gateway"
)

func (m PaymentMethod) Valid() bool {
	return m == CashOnDelivery || m == GatewayPayment
}

// TransactionProof carries the gateway's opaque identifiers attesting to a
// completed charge. It is forwarded verbatim; this module never recomputes or
// verifies any of its fields.
type TransactionProof struct {
	OrderRef  string
	PaymentID string
	Signature string
}

func (p TransactionProof) Empty() bool {
	return p == TransactionProof{}
}

// Order is an immutable copy of a cart snapshot taken at submission time.
type Order struct {
	ID      uuid.UUID
	OwnerID string
	Lines   []LineItem

	Totals  TaxBreakdown
	Address Address

	PaymentMethod PaymentMethod
	OrderStatus   OrderStatus
	PaymentStatus PaymentStatus

	Proof TransactionProof

	CreatedAt time.Time
	UpdatedAt time.Time
}
