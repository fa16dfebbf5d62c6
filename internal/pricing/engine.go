// Package pricing computes split-tax totals over cart lines. The same
// function serves client-side preview and server-side authoritative
// recomputation, so the two can be compared for drift.
package pricing

import (
	"github.com/shopspring/decimal"
	"github.com/vastramart/cartengine/internal/domain"
)

// Compute derives a TaxBreakdown from the lines and rates. It is pure: no
// mutation, no I/O, and it returns unrounded amounts — rounding is a
// presentation concern.
func Compute(lines []domain.LineItem, rates domain.TaxRates) domain.TaxBreakdown {
	subtotal := decimal.Zero
	for _, li := range lines {
		subtotal = subtotal.Add(li.LineTotal().Amount)
	}

	sgst := subtotal.Mul(rates.SGST)
	cgst := subtotal.Mul(rates.CGST)
	grand := subtotal.Add(sgst).Add(cgst)

	return domain.TaxBreakdown{
		Subtotal:   domain.NewMoney(subtotal),
		SGSTRate:   rates.SGST,
		CGSTRate:   rates.CGST,
		SGSTAmount: domain.NewMoney(sgst),
		CGSTAmount: domain.NewMoney(cgst),
		GrandTotal: domain.NewMoney(grand),
	}
}

// ComputeDefault applies the standard 9% + 9% split.
func ComputeDefault(lines []domain.LineItem) domain.TaxBreakdown {
	return Compute(lines, domain.DefaultTaxRates())
}
