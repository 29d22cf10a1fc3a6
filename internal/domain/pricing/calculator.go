// Package pricing computes order and cart totals.
//
// All amounts handled here are decimal major units (rupees) rounded to two
// places. Conversion to integer minor units (paise) happens only at the
// payment gateway boundary through ToMinorUnits.
package pricing

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Line is a priced quantity of one item
type Line struct {
	Quantity  int
	UnitPrice decimal.Decimal
}

// Total returns quantity x unit price
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
}

// Breakdown is the result of a pricing run
type Breakdown struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// Calculator applies a tax rate and a flat shipping policy. The zero value
// charges neither tax nor shipping.
type Calculator struct {
	TaxRate               decimal.Decimal
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
}

// NewCalculator creates a calculator for the given policy
func NewCalculator(taxRate, shippingFee, freeShippingThreshold decimal.Decimal) Calculator {
	return Calculator{
		TaxRate:               taxRate,
		ShippingFee:           shippingFee,
		FreeShippingThreshold: freeShippingThreshold,
	}
}

// Calculate prices lines with an optional discount. Discount is clamped to
// [0, subtotal]. Tax applies to the discounted subtotal. An empty line set
// prices to zero everywhere, shipping included.
func (c Calculator) Calculate(lines []Line, discount decimal.Decimal) Breakdown {
	if len(lines) == 0 {
		return Breakdown{
			Subtotal: decimal.Zero,
			Tax:      decimal.Zero,
			Shipping: decimal.Zero,
			Discount: decimal.Zero,
			Total:    decimal.Zero,
		}
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Total())
	}

	discount = discount.Round(2)
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	tax := subtotal.Sub(discount).Mul(c.TaxRate).Round(2)

	shipping := c.ShippingFee.Round(2)
	if subtotal.GreaterThan(c.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	return Breakdown{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Discount: discount,
		Total:    subtotal.Add(tax).Add(shipping).Sub(discount),
	}
}

// ToMinorUnits converts a major-unit amount to paise, rounding half away from zero
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits converts paise back to major units
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
