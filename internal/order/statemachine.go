// Package order governs the admin-side order lifecycle: which status pairs
// an existing order may move to, and the paired update that applies them.
package order

import (
	"errors"
	"fmt"

	"github.com/vastramart/cartengine/internal/domain"
)

// ErrTerminalStatus rejects any order-status change away from a terminal
// status.
var ErrTerminalStatus = errors.New("order status is terminal")

// Transition checks whether an order currently at `current` may move to
// `next`. Both axes always travel together; delivered and cancelled are
// terminal on the order axis. The payment axis is unconstrained beyond
// status validity.
func Transition(current, next domain.StatusPair) error {
	if !next.Order.Valid() {
		return fmt.Errorf("order status[%s] is not valid", next.Order)
	}
	if !next.Payment.Valid() {
		return fmt.Errorf("payment status[%s] is not valid", next.Payment)
	}

	if current.Order.Terminal() && next.Order != current.Order {
		return fmt.Errorf("cannot move order status from %s to %s: %w",
			current.Order, next.Order, ErrTerminalStatus)
	}

	return nil
}
