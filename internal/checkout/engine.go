// Package checkout turns an open cart into a committed sale. The engine is
// the only writer of the ledger and the only code that decrements stock, so
// the oversell and atomicity guarantees live in one place.
package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"clicknsell/pos/internal/cart"
	"clicknsell/pos/internal/domain"
	"clicknsell/pos/internal/pricing"
	"clicknsell/pos/internal/store"
	"clicknsell/pos/internal/xid"
)

type Engine struct {
	mu      sync.Mutex
	catalog store.Catalog
	ledger  store.Ledger
	taxRate float64
	logger  *zap.Logger
	now     func() time.Time
}

func NewEngine(catalog store.Catalog, ledger store.Ledger, taxRatePercent float64, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		catalog: catalog,
		ledger:  ledger,
		taxRate: taxRatePercent,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Commit validates the whole cart against fresh catalog reads, freezes unit
// prices, then performs decrement + append + clear as one critical section.
// Any validation failure returns before anything is mutated; the cart and the
// catalog come out exactly as they went in.
func (e *Engine) Commit(ctx context.Context, c *cart.Cart, terminalID string, req domain.CheckoutRequest) (*domain.Sale, error) {
	if !req.PaymentMethod.Valid() {
		return nil, ErrMissingPaymentMethod
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	lines := c.Lines()
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	// Fresh read of every product: prices may have moved since the lines
	// were added, and stock must cover every requested quantity in full.
	saleLines := make([]domain.SaleLine, 0, len(lines))
	var subtotal int64
	for _, line := range lines {
		product, err := e.catalog.GetProduct(ctx, line.SKU)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, productNotFound(line.SKU)
			}
			return nil, err
		}
		if !product.Active {
			return nil, productNotFound(line.SKU)
		}
		if line.Qty > product.Stock {
			return nil, &InsufficientStockError{SKU: line.SKU, Requested: line.Qty, Available: product.Stock}
		}
		saleLines = append(saleLines, domain.SaleLine{
			SKU:            line.SKU,
			Qty:            line.Qty,
			UnitPriceCents: product.PriceCents,
		})
		subtotal += pricing.LineTotal(product.PriceCents, line.Qty)
	}

	totals := pricing.Compute(subtotal, e.taxRate, c.DiscountCents())

	sale := domain.Sale{
		ID:            xid.New("sale"),
		TerminalID:    terminalID,
		CashierName:   req.CashierName,
		Lines:         saleLines,
		SubtotalCents: totals.SubtotalCents,
		TaxCents:      totals.TaxCents,
		DiscountCents: totals.DiscountCents,
		TotalCents:    totals.TotalCents,
		PaymentMethod: req.PaymentMethod,
		CustomerRef:   req.CustomerRef,
		CreatedAt:     e.now(),
	}

	if err := e.decrementAll(ctx, saleLines); err != nil {
		return nil, err
	}

	created, err := e.ledger.Append(ctx, sale)
	if err != nil {
		// The decrements already landed; give the stock back before
		// reporting failure so no partial commit is observable.
		e.restock(ctx, saleLines)
		return nil, err
	}

	c.Clear()
	e.logger.Info("sale committed",
		zap.String("sale_id", created.ID),
		zap.String("terminal_id", terminalID),
		zap.String("payment_method", string(created.PaymentMethod)),
		zap.Int64("total_cents", created.TotalCents),
		zap.Int("lines", len(created.Lines)))
	return created, nil
}

// decrementAll claims stock line by line. Validation already passed, so a
// failure here means another writer got in between; undo what was taken and
// surface the conflict.
func (e *Engine) decrementAll(ctx context.Context, lines []domain.SaleLine) error {
	for i, line := range lines {
		err := e.catalog.DecrementStock(ctx, line.SKU, line.Qty)
		if err == nil {
			continue
		}
		e.restock(ctx, lines[:i])
		if errors.Is(err, store.ErrInsufficientStock) {
			available, stockErr := e.catalog.GetStock(ctx, line.SKU)
			if stockErr != nil {
				available = 0
			}
			return &InsufficientStockError{SKU: line.SKU, Requested: line.Qty, Available: available}
		}
		if errors.Is(err, store.ErrNotFound) {
			return productNotFound(line.SKU)
		}
		return err
	}
	return nil
}

func (e *Engine) restock(ctx context.Context, lines []domain.SaleLine) {
	for _, line := range lines {
		if err := e.catalog.IncreaseStock(ctx, line.SKU, line.Qty); err != nil {
			e.logger.Error("failed to restore stock after aborted commit",
				zap.String("sku", line.SKU), zap.Int("qty", line.Qty), zap.Error(err))
		}
	}
}
