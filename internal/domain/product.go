package domain

import "github.com/google/uuid"

// Grade is a quality/price tier of a product. Its UnitPrice is copied into a
// line item at selection time; it is never referenced live from a cart.
type Grade struct {
	ID        uuid.UUID
	Name      string
	UnitPrice Money
}

type Color struct {
	ID     uuid.UUID
	Name   string
	Swatch string
}

type Product struct {
	ID     uuid.UUID
	Name   string
	MOQ    int
	Grades []Grade
	Colors []Color
}

func (p Product) Grade(id uuid.UUID) (Grade, bool) {
	for _, g := range p.Grades {
		if g.ID == id {
			return g, true
		}
	}
	return Grade{}, false
}

func (p Product) Color(id uuid.UUID) (Color, bool) {
	for _, c := range p.Colors {
		if c.ID == id {
			return c, true
		}
	}
	return Color{}, false
}
