// Package receipt renders a plain-text ticket for a committed sale. The
// output is fixed 32-column text suitable for thermal printers.
package receipt

import (
	"fmt"
	"strings"

	"clicknsell/pos/internal/domain"
)

const lineWidth = 32

type Renderer struct {
	storeName string
}

func NewRenderer(storeName string) *Renderer {
	if storeName == "" {
		storeName = "CLICK-N-SELL"
	}
	return &Renderer{storeName: storeName}
}

func (r *Renderer) Render(sale domain.Sale, names map[string]string) domain.ReceiptResponse {
	var b strings.Builder

	writeCentered(&b, r.storeName)
	writeCentered(&b, sale.CreatedAt.Format("2006-01-02 15:04:05"))
	b.WriteString(strings.Repeat("-", lineWidth) + "\n")

	for _, line := range sale.Lines {
		name := names[line.SKU]
		if name == "" {
			name = line.SKU
		}
		b.WriteString(truncate(name, lineWidth) + "\n")
		qtyPart := fmt.Sprintf("  %d x %s", line.Qty, money(line.UnitPriceCents))
		totalPart := money(line.UnitPriceCents * int64(line.Qty))
		b.WriteString(padBetween(qtyPart, totalPart) + "\n")
	}

	b.WriteString(strings.Repeat("-", lineWidth) + "\n")
	b.WriteString(padBetween("SUBTOTAL", money(sale.SubtotalCents)) + "\n")
	b.WriteString(padBetween("TAX", money(sale.TaxCents)) + "\n")
	if sale.DiscountCents > 0 {
		b.WriteString(padBetween("DISCOUNT", "-"+money(sale.DiscountCents)) + "\n")
	}
	b.WriteString(padBetween("TOTAL", money(sale.TotalCents)) + "\n")
	b.WriteString(padBetween("PAID BY", strings.ToUpper(string(sale.PaymentMethod))) + "\n")
	b.WriteString(strings.Repeat("-", lineWidth) + "\n")
	writeCentered(&b, "SALE "+sale.ID)
	writeCentered(&b, "THANK YOU")

	return domain.ReceiptResponse{
		SaleID:   sale.ID,
		Text:     b.String(),
		FileName: fmt.Sprintf("receipt-%s.txt", sale.ID),
	}
}

func money(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func writeCentered(b *strings.Builder, s string) {
	s = truncate(s, lineWidth)
	pad := (lineWidth - len(s)) / 2
	if pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	b.WriteString(s + "\n")
}

func padBetween(left, right string) string {
	gap := lineWidth - len(left) - len(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
