package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClientIDPrefix marks line ids minted on the guest side, before the server
// has assigned a canonical id.
const ClientIDPrefix = "local-"

func NewClientLineID() string {
	return ClientIDPrefix + uuid.NewString()
}

func IsClientLineID(id string) bool {
	return strings.HasPrefix(id, ClientIDPrefix)
}

// LineItem is one (grade, color, quantity) combination in a cart or order.
// GradeName, ColorName, Swatch and UnitPrice are snapshots taken at selection
// time; a later catalog change must not alter an existing line.
type LineItem struct {
	ID        string
	ProductID uuid.UUID

	GradeID   uuid.UUID
	GradeName string
	UnitPrice Money

	ColorID   uuid.UUID
	ColorName string
	Swatch    string

	Quantity int

	CreatedAt time.Time
}

func (li LineItem) LineTotal() Money {
	return li.UnitPrice.MulInt(li.Quantity)
}

// MergeKey identifies a line uniquely within a cart; two lines sharing a key
// must be merged by summing quantities, never stored side by side.
type MergeKey struct {
	ProductID uuid.UUID
	GradeID   uuid.UUID
	ColorID   uuid.UUID
}

func (li LineItem) MergeKey() MergeKey {
	return MergeKey{ProductID: li.ProductID, GradeID: li.GradeID, ColorID: li.ColorID}
}

// CartSnapshot is an ordered sequence of lines owned by exactly one guest
// session or one authenticated user.
type CartSnapshot struct {
	OwnerID string
	Lines   []LineItem
}

// Subtotal is always derived from the lines, never maintained as a running
// total.
func (cs CartSnapshot) Subtotal() Money {
	total := NewMoney(decimal.Zero)
	for _, li := range cs.Lines {
		total = total.Add(li.LineTotal())
	}
	return total
}

func (cs CartSnapshot) ItemCount() int {
	count := 0
	for _, li := range cs.Lines {
		count += li.Quantity
	}
	return count
}

func (cs CartSnapshot) IsEmpty() bool {
	return len(cs.Lines) == 0
}

// FindLine returns the index of the line with the given id, or -1.
func (cs CartSnapshot) FindLine(lineID string) int {
	for i, li := range cs.Lines {
		if li.ID == lineID {
			return i
		}
	}
	return -1
}

// FindByKey returns the index of the line with the given merge key, or -1.
func (cs CartSnapshot) FindByKey(key MergeKey) int {
	for i, li := range cs.Lines {
		if li.MergeKey() == key {
			return i
		}
	}
	return -1
}

// Clone copies the snapshot so callers can mutate it without aliasing the
// store's state.
func (cs CartSnapshot) Clone() CartSnapshot {
	lines := make([]LineItem, len(cs.Lines))
	copy(lines, cs.Lines)
	return CartSnapshot{OwnerID: cs.OwnerID, Lines: lines}
}
