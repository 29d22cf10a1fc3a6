package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testCalculator() Calculator {
	return NewCalculator(d("0.03"), d("99"), d("5000"))
}

func assertReconciles(t *testing.T, b Breakdown) {
	t.Helper()
	want := b.Subtotal.Add(b.Tax).Add(b.Shipping).Sub(b.Discount)
	assert.True(t, b.Total.Equal(want), "total %s != %s", b.Total, want)
}

func TestCalculateEmptyIsZero(t *testing.T) {
	b := testCalculator().Calculate(nil, d("50"))

	assert.True(t, b.Subtotal.IsZero())
	assert.True(t, b.Tax.IsZero())
	assert.True(t, b.Shipping.IsZero())
	assert.True(t, b.Discount.IsZero())
	assert.True(t, b.Total.IsZero())
}

func TestCalculateBelowThresholdChargesShipping(t *testing.T) {
	b := testCalculator().Calculate([]Line{{Quantity: 2, UnitPrice: d("500")}}, decimal.Zero)

	assert.Equal(t, "1000", b.Subtotal.String())
	assert.Equal(t, "30", b.Tax.String())
	assert.Equal(t, "99", b.Shipping.String())
	assert.Equal(t, "1129", b.Total.String())
	assertReconciles(t, b)
}

func TestCalculateAboveThresholdShipsFree(t *testing.T) {
	b := testCalculator().Calculate([]Line{
		{Quantity: 1, UnitPrice: d("4000")},
		{Quantity: 2, UnitPrice: d("1000")},
	}, decimal.Zero)

	assert.Equal(t, "6000", b.Subtotal.String())
	assert.True(t, b.Shipping.IsZero())
	assert.True(t, b.Total.Equal(d("6000").Add(b.Tax)))
	assertReconciles(t, b)
}

func TestCalculateAtThresholdStillCharges(t *testing.T) {
	b := testCalculator().Calculate([]Line{{Quantity: 1, UnitPrice: d("5000")}}, decimal.Zero)
	assert.Equal(t, "99", b.Shipping.String())
}

func TestCalculateClampsDiscount(t *testing.T) {
	calc := testCalculator()

	b := calc.Calculate([]Line{{Quantity: 1, UnitPrice: d("100")}}, d("250"))
	assert.Equal(t, "100", b.Discount.String())
	assert.True(t, b.Tax.IsZero())
	assertReconciles(t, b)

	b = calc.Calculate([]Line{{Quantity: 1, UnitPrice: d("100")}}, d("-10"))
	assert.True(t, b.Discount.IsZero())
	assertReconciles(t, b)
}

func TestCalculateRoundsTaxToPaise(t *testing.T) {
	b := testCalculator().Calculate([]Line{{Quantity: 3, UnitPrice: d("333.33")}}, decimal.Zero)

	assert.Equal(t, "999.99", b.Subtotal.String())
	assert.Equal(t, "30", b.Tax.String())
	assertReconciles(t, b)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(112900), ToMinorUnits(d("1129")))
	assert.Equal(t, int64(99999), ToMinorUnits(d("999.99")))
	assert.Equal(t, int64(1), ToMinorUnits(d("0.005")))
	assert.True(t, FromMinorUnits(12345).Equal(d("123.45")))
}
