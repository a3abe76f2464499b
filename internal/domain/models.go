package domain

import "time"

// PaymentMethod is the tender recorded on a committed sale.
type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "cash"
	PaymentCard    PaymentMethod = "card"
	PaymentDigital PaymentMethod = "digital"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentDigital:
		return true
	}
	return false
}

type Product struct {
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	PriceCents int64  `json:"price_cents"`
	Stock      int    `json:"stock"`
	Active     bool   `json:"active"`
}

type ProductCreateRequest struct {
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	PriceCents   int64  `json:"price_cents"`
	InitialStock int    `json:"initial_stock"`
}

type ProductUpdateRequest struct {
	Name       *string `json:"name,omitempty"`
	Category   *string `json:"category,omitempty"`
	PriceCents *int64  `json:"price_cents,omitempty"`
	Active     *bool   `json:"active,omitempty"`
}

type StockAdjustmentRequest struct {
	Qty int `json:"qty"`
}

// CartLine references a catalog product by SKU. The cart owns the line,
// never the product.
type CartLine struct {
	SKU string `json:"sku"`
	Qty int    `json:"qty"`
}

// Totals is the display-time money summary for an open cart. Discounts are
// applied at commit, not here.
type Totals struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	TaxCents      int64 `json:"tax_cents"`
	TotalCents    int64 `json:"total_cents"`
}

type CartViewLine struct {
	SKU            string `json:"sku"`
	Name           string `json:"name"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	LineTotalCents int64  `json:"line_total_cents"`
}

type CartView struct {
	TerminalID    string         `json:"terminal_id"`
	Lines         []CartViewLine `json:"lines"`
	DiscountCents int64          `json:"discount_cents"`
	Totals        Totals         `json:"totals"`
}

// SaleLine captures the unit price at the moment of commit. Later catalog
// price changes never touch historical sales.
type SaleLine struct {
	SKU            string `json:"sku"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// Sale is immutable once written to the ledger.
type Sale struct {
	ID            string        `json:"id"`
	TerminalID    string        `json:"terminal_id"`
	CashierName   string        `json:"cashier_name,omitempty"`
	Lines         []SaleLine    `json:"lines"`
	SubtotalCents int64         `json:"subtotal_cents"`
	TaxCents      int64         `json:"tax_cents"`
	DiscountCents int64         `json:"discount_cents"`
	TotalCents    int64         `json:"total_cents"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	CustomerRef   string        `json:"customer_ref,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

type CheckoutRequest struct {
	PaymentMethod PaymentMethod `json:"payment_method"`
	CustomerRef   string        `json:"customer_ref,omitempty"`

	// CashierName is set by the server from the authenticated actor,
	// never from the request body.
	CashierName string `json:"-"`
}

type CheckoutResponse struct {
	Sale Sale `json:"sale"`
}

type SaleListResponse struct {
	Sales []Sale `json:"sales"`
}

type ReceiptResponse struct {
	SaleID   string `json:"sale_id"`
	Text     string `json:"text"`
	FileName string `json:"file_name"`
}

type DailyReportPayment struct {
	PaymentMethod PaymentMethod `json:"payment_method"`
	Sales         int64         `json:"sales"`
	TotalCents    int64         `json:"total_cents"`
}

type DailyReport struct {
	Date          string               `json:"date"`
	Sales         int64                `json:"sales"`
	GrossCents    int64                `json:"gross_cents"`
	TaxCents      int64                `json:"tax_cents"`
	DiscountCents int64                `json:"discount_cents"`
	NetCents      int64                `json:"net_cents"`
	ByPayment     []DailyReportPayment `json:"by_payment"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}
