package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"clicknsell/pos/internal/domain"
	"clicknsell/pos/internal/store"
)

func TestDecrementStockAndAppendSale(t *testing.T) {
	databaseURL := os.Getenv("POS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set POS_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	sku := fmt.Sprintf("SKU-IT-%d", stamp)
	saleID := fmt.Sprintf("sale-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sale_lines WHERE sale_id = $1`, saleID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, saleID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE sku = $1`, sku)
	})

	if _, err := s.CreateProduct(ctx, domain.Product{
		SKU: sku, Name: "Integration Widget", Category: "test", PriceCents: 1200, Stock: 10, Active: true,
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}

	if err := s.DecrementStock(ctx, sku, 4); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if err := s.DecrementStock(ctx, sku, 7); !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("over-decrement err = %v, want ErrInsufficientStock", err)
	}
	if stock, _ := s.GetStock(ctx, sku); stock != 6 {
		t.Fatalf("stock = %d, want 6", stock)
	}

	sale := domain.Sale{
		ID:            saleID,
		TerminalID:    "it-till",
		Lines:         []domain.SaleLine{{SKU: sku, Qty: 4, UnitPriceCents: 1200}},
		SubtotalCents: 4800,
		TaxCents:      384,
		TotalCents:    5184,
		PaymentMethod: domain.PaymentCard,
		CreatedAt:     time.Now().UTC(),
	}
	if _, err := s.Append(ctx, sale); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := s.Append(ctx, sale); !errors.Is(err, store.ErrDuplicateSale) {
		t.Fatalf("duplicate append err = %v, want ErrDuplicateSale", err)
	}

	got, err := s.GetSale(ctx, saleID)
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	if got.TotalCents != 5184 || len(got.Lines) != 1 || got.Lines[0].Qty != 4 {
		t.Fatalf("sale = %+v", got)
	}
}
