// Package configurator builds the per-product grade×color×quantity selection
// that feeds the cart, enforcing the product's minimum order quantity.
package configurator

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/vastramart/cartengine/internal/domain"
)

// Configurator holds one product's selection, keyed first by grade then by
// color. A user may build lines across multiple grades at once; selecting a
// grade only changes where subsequent color toggles land.
type Configurator struct {
	product     domain.Product
	activeGrade uuid.UUID
	hasActive   bool

	// gradeID -> colorID -> quantity; empty grade maps are removed so the
	// selection can never hold a stale entry.
	selection map[uuid.UUID]map[uuid.UUID]int
}

func New(product domain.Product) (*Configurator, error) {
	if product.MOQ < 1 {
		return nil, fmt.Errorf("product MOQ[%d] must be at least 1", product.MOQ)
	}

	return &Configurator{
		product:   product,
		selection: make(map[uuid.UUID]map[uuid.UUID]int),
	}, nil
}

// SelectGrade sets the active grade for subsequent toggles. Colors already
// selected under other grades are untouched.
func (c *Configurator) SelectGrade(gradeID uuid.UUID) error {
	if _, ok := c.product.Grade(gradeID); !ok {
		return fmt.Errorf("grade[%s] not in product", gradeID)
	}

	c.activeGrade = gradeID
	c.hasActive = true
	return nil
}

// ActiveGrade reports the grade subsequent toggles apply to, if one has been
// selected.
func (c *Configurator) ActiveGrade() (uuid.UUID, bool) {
	return c.activeGrade, c.hasActive
}

// ToggleColor adds the color under the grade at the product MOQ, or removes
// it entirely if already selected.
func (c *Configurator) ToggleColor(gradeID, colorID uuid.UUID) error {
	if _, ok := c.product.Grade(gradeID); !ok {
		return fmt.Errorf("grade[%s] not in product", gradeID)
	}
	if _, ok := c.product.Color(colorID); !ok {
		return fmt.Errorf("color[%s] not in product", colorID)
	}

	colors, ok := c.selection[gradeID]
	if !ok {
		colors = make(map[uuid.UUID]int)
		c.selection[gradeID] = colors
	}

	if _, selected := colors[colorID]; selected {
		delete(colors, colorID)
		if len(colors) == 0 {
			delete(c.selection, gradeID)
		}
		return nil
	}

	colors[colorID] = c.product.MOQ
	return nil
}

// SetQuantity overwrites the quantity for a selected color. Anything below
// the MOQ, or a color that is not selected, is silently ignored; the caller
// observes the rejection by the quantity not changing.
func (c *Configurator) SetQuantity(gradeID, colorID uuid.UUID, q int) {
	if q < c.product.MOQ {
		return
	}

	colors, ok := c.selection[gradeID]
	if !ok {
		return
	}
	if _, selected := colors[colorID]; !selected {
		return
	}

	colors[colorID] = q
}

func (c *Configurator) Increment(gradeID, colorID uuid.UUID) {
	if q, ok := c.quantity(gradeID, colorID); ok {
		c.selection[gradeID][colorID] = q + 1
	}
}

// Decrement steps down by one and is a no-op at the MOQ floor.
func (c *Configurator) Decrement(gradeID, colorID uuid.UUID) {
	if q, ok := c.quantity(gradeID, colorID); ok && q > c.product.MOQ {
		c.selection[gradeID][colorID] = q - 1
	}
}

// Quantity reports the selected quantity for a grade/color pair.
func (c *Configurator) Quantity(gradeID, colorID uuid.UUID) (int, bool) {
	return c.quantity(gradeID, colorID)
}

func (c *Configurator) quantity(gradeID, colorID uuid.UUID) (int, bool) {
	colors, ok := c.selection[gradeID]
	if !ok {
		return 0, false
	}
	q, ok := colors[colorID]
	return q, ok
}

// Lines flattens the selection into candidate cart lines, freezing each
// grade's unit price and minting client-origin line ids. Iteration follows
// the product's grade and color declaration order so output is stable.
func (c *Configurator) Lines() []domain.LineItem {
	var lines []domain.LineItem

	for _, grade := range c.product.Grades {
		colors, ok := c.selection[grade.ID]
		if !ok {
			continue
		}

		for _, color := range c.product.Colors {
			q, selected := colors[color.ID]
			if !selected {
				continue
			}

			lines = append(lines, domain.LineItem{
				ID:        domain.NewClientLineID(),
				ProductID: c.product.ID,
				GradeID:   grade.ID,
				GradeName: grade.Name,
				UnitPrice: grade.UnitPrice,
				ColorID:   color.ID,
				ColorName: color.Name,
				Swatch:    color.Swatch,
				Quantity:  q,
			})
		}
	}

	return lines
}
