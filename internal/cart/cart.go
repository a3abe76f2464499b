// Package cart holds the open basket for one register session. A cart is a
// working document: it references catalog products by SKU, keeps lines in the
// order they were first added, and reserves nothing. Stock is only claimed at
// checkout.
package cart

import (
	"context"
	"errors"
	"sync"

	"clicknsell/pos/internal/domain"
	"clicknsell/pos/internal/pricing"
	"clicknsell/pos/internal/store"
)

// Cart is safe for use from one register session. The mutex guards against
// the session's own overlapping requests, not against other terminals; each
// terminal has its own cart.
type Cart struct {
	mu            sync.Mutex
	catalog       store.Catalog
	taxRate       float64
	lines         []domain.CartLine
	discountCents int64
}

func New(catalog store.Catalog, taxRatePercent float64) *Cart {
	return &Cart{
		catalog: catalog,
		taxRate: taxRatePercent,
		lines:   make([]domain.CartLine, 0, 8),
	}
}

// AddItem bumps an existing line by one or appends a new line with qty 1.
// Unknown, inactive, or out-of-stock products are a silent no-op so a scanner
// misread never interrupts the cashier. Quantities are clamped at the stock
// level on hand.
func (c *Cart) AddItem(ctx context.Context, sku string) {
	product, err := c.catalog.GetProduct(ctx, sku)
	if err != nil || !product.Active || product.Stock <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].SKU == product.SKU {
			if c.lines[i].Qty < product.Stock {
				c.lines[i].Qty++
			}
			return
		}
	}
	c.lines = append(c.lines, domain.CartLine{SKU: product.SKU, Qty: 1})
}

// SetQuantity sets a line to an exact count. Zero or negative removes the
// line; a count above the stock on hand clamps to it. Checkout re-validates
// strictly, so a clamp here can still fail there if stock moved.
func (c *Cart) SetQuantity(ctx context.Context, sku string, qty int) {
	if qty <= 0 {
		c.RemoveItem(sku)
		return
	}

	product, err := c.catalog.GetProduct(ctx, sku)
	if err != nil || !product.Active {
		return
	}
	if qty > product.Stock {
		qty = product.Stock
	}
	if qty <= 0 {
		c.RemoveItem(sku)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].SKU == product.SKU {
			c.lines[i].Qty = qty
			return
		}
	}
	c.lines = append(c.lines, domain.CartLine{SKU: product.SKU, Qty: qty})
}

// RemoveItem drops the line entirely. Absent SKU is a no-op.
func (c *Cart) RemoveItem(sku string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].SKU == sku {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// Clear empties the cart and resets the discount. Safe to call repeatedly.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = c.lines[:0]
	c.discountCents = 0
}

// SetDiscount records a flat discount for checkout. Negative values clamp
// to zero; the upper clamp happens at commit against the actual total.
func (c *Cart) SetDiscount(cents int64) {
	if cents < 0 {
		cents = 0
	}
	c.mu.Lock()
	c.discountCents = cents
	c.mu.Unlock()
}

func (c *Cart) DiscountCents() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.discountCents
}

// Lines returns a copy in insertion order.
func (c *Cart) Lines() []domain.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}

// Totals prices the cart at live catalog prices for display. Lines whose
// product has vanished since being added are skipped rather than failing the
// whole readout; checkout will reject them properly. The discount is not
// applied here, only at commit.
func (c *Cart) Totals(ctx context.Context) (domain.Totals, error) {
	var subtotal int64
	for _, line := range c.Lines() {
		product, err := c.catalog.GetProduct(ctx, line.SKU)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return domain.Totals{}, err
		}
		subtotal += pricing.LineTotal(product.PriceCents, line.Qty)
	}

	r := pricing.Compute(subtotal, c.taxRate, 0)
	return domain.Totals{
		SubtotalCents: r.SubtotalCents,
		TaxCents:      r.TaxCents,
		TotalCents:    r.TotalCents,
	}, nil
}

// View builds the display payload for the register UI.
func (c *Cart) View(ctx context.Context, terminalID string) (domain.CartView, error) {
	lines := c.Lines()
	viewLines := make([]domain.CartViewLine, 0, len(lines))
	var subtotal int64
	for _, line := range lines {
		product, err := c.catalog.GetProduct(ctx, line.SKU)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return domain.CartView{}, err
		}
		lineTotal := pricing.LineTotal(product.PriceCents, line.Qty)
		subtotal += lineTotal
		viewLines = append(viewLines, domain.CartViewLine{
			SKU:            product.SKU,
			Name:           product.Name,
			Qty:            line.Qty,
			UnitPriceCents: product.PriceCents,
			LineTotalCents: lineTotal,
		})
	}

	r := pricing.Compute(subtotal, c.taxRate, 0)
	return domain.CartView{
		TerminalID:    terminalID,
		Lines:         viewLines,
		DiscountCents: c.DiscountCents(),
		Totals: domain.Totals{
			SubtotalCents: r.SubtotalCents,
			TaxCents:      r.TaxCents,
			TotalCents:    r.TotalCents,
		},
	}, nil
}
