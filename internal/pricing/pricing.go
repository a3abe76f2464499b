// Package pricing holds the one place totals math lives. Both the open-cart
// display totals and the checkout engine go through Compute so the numbers a
// cashier sees match the numbers on the committed sale.
package pricing

import "math"

// Result is the full money breakdown for a basket.
type Result struct {
	SubtotalCents int64
	TaxCents      int64
	DiscountCents int64
	TotalCents    int64
}

// Tax rounds half away from zero on the subtotal, matching the register
// display. The discount is subtracted after tax and clamped so it can neither
// go negative nor push the total below zero.
func Compute(subtotalCents int64, taxRatePercent float64, discountCents int64) Result {
	taxCents := TaxCents(subtotalCents, taxRatePercent)
	if discountCents < 0 {
		discountCents = 0
	}
	if discountCents > subtotalCents+taxCents {
		discountCents = subtotalCents + taxCents
	}
	totalCents := subtotalCents + taxCents - discountCents
	if totalCents < 0 {
		totalCents = 0
	}
	return Result{
		SubtotalCents: subtotalCents,
		TaxCents:      taxCents,
		DiscountCents: discountCents,
		TotalCents:    totalCents,
	}
}

func TaxCents(subtotalCents int64, taxRatePercent float64) int64 {
	if subtotalCents <= 0 || taxRatePercent <= 0 {
		return 0
	}
	return int64(math.Round(float64(subtotalCents) * taxRatePercent / 100))
}

// LineTotal multiplies a frozen unit price by quantity.
func LineTotal(unitPriceCents int64, qty int) int64 {
	return unitPriceCents * int64(qty)
}
