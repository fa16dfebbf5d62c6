package domain

import "github.com/shopspring/decimal"

// TaxRates holds the two components of the split tax applied to a subtotal.
type TaxRates struct {
	SGST decimal.Decimal
	CGST decimal.Decimal
}

// DefaultTaxRates is the standard 9% + 9% split.
func DefaultTaxRates() TaxRates {
	rate := decimal.NewFromFloat(0.09)
	return TaxRates{SGST: rate, CGST: rate}
}

// TaxBreakdown is derived from {lines, rates} and never stored independently
// of its inputs; GrandTotal must recompute identically every time.
type TaxBreakdown struct {
	Subtotal   Money
	SGSTRate   decimal.Decimal
	CGSTRate   decimal.Decimal
	SGSTAmount Money
	CGSTAmount Money
	GrandTotal Money
}
