package port

import (
	"context"

	"github.com/vastramart/cartengine/internal/domain"
)

// RemoteCart is the authoritative cart store for authenticated owners. Every
// write returns the canonical server-side line; the server decides id and
// price, and an optimistic local mutation must be reconciled against what
// comes back.
type RemoteCart interface {
	GetCart(ctx context.Context, ownerID string) (domain.CartSnapshot, error)

	// UpsertLine merges by (productID, gradeID, colorID): an existing line
	// with the same key has the quantities summed instead of a duplicate row
	// being appended.
	UpsertLine(ctx context.Context, ownerID string, line domain.LineItem) (domain.LineItem, error)

	UpdateQuantity(ctx context.Context, ownerID string, lineID string, quantity int) (domain.LineItem, error)
	RemoveLine(ctx context.Context, ownerID string, lineID string) (bool, error)
	Clear(ctx context.Context, ownerID string) error
}

// GuestStore holds the anonymous cart snapshot under a single session-scoped
// key, as a JSON-serializable sequence of lines.
type GuestStore interface {
	Load(ctx context.Context) ([]domain.LineItem, error)
	Save(ctx context.Context, lines []domain.LineItem) error
	Clear(ctx context.Context) error
}
