package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/vastramart/cartengine/internal/domain"
)

// Orders is the order submission and admin-update collaborator. Create
// accepts the assembled order and returns it with server-assigned id and
// timestamps.
type Orders interface {
	Create(ctx context.Context, order domain.Order) (domain.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (domain.Order, error)

	// UpdateStatus writes both status axes together, never a partial patch.
	UpdateStatus(ctx context.Context, orderID uuid.UUID, pair domain.StatusPair) (domain.Order, error)
}
