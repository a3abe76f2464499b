package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"clicknsell/pos/internal/cache"
	"clicknsell/pos/internal/checkout"
	"clicknsell/pos/internal/domain"
	"clicknsell/pos/internal/receipt"
	"clicknsell/pos/internal/register"
	"clicknsell/pos/internal/store"
	"clicknsell/pos/internal/store/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	repo := memory.New()
	engine := checkout.NewEngine(repo, repo, 8, nil)
	registers := register.NewManager(repo, 8)
	renderer := receipt.NewRenderer("TEST STORE")
	svc := New(repo, engine, registers, cache.NoopReceiptCache{}, renderer, nil)
	return svc, repo
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
}

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "jo", Role: "cashier"})
}

func TestCreateProductRequiresAdmin(t *testing.T) {
	svc, _ := newTestService(t)

	req := domain.ProductCreateRequest{SKU: "SKU-A", Name: "A", Category: "x", PriceCents: 100, InitialStock: 5}

	if _, err := svc.CreateProduct(cashierCtx(), req); !errors.Is(err, ErrForbidden) {
		t.Fatalf("cashier create err = %v, want ErrForbidden", err)
	}
	if _, err := svc.CreateProduct(context.Background(), req); !errors.Is(err, ErrForbidden) {
		t.Fatalf("anonymous create err = %v, want ErrForbidden", err)
	}

	created, err := svc.CreateProduct(adminCtx(), req)
	if err != nil {
		t.Fatalf("admin create: %v", err)
	}
	if created.SKU != "SKU-A" || created.Stock != 5 || !created.Active {
		t.Fatalf("created = %+v", created)
	}
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := newTestService(t)

	cases := []domain.ProductCreateRequest{
		{SKU: "", Name: "A", Category: "x", PriceCents: 100},
		{SKU: "SKU-A", Name: "", Category: "x", PriceCents: 100},
		{SKU: "SKU-A", Name: "A", Category: "", PriceCents: 100},
		{SKU: "SKU-A", Name: "A", Category: "x", PriceCents: 0},
		{SKU: "SKU-A", Name: "A", Category: "x", PriceCents: 100, InitialStock: -1},
	}
	for i, req := range cases {
		if _, err := svc.CreateProduct(adminCtx(), req); !errors.Is(err, store.ErrInvalidProduct) {
			t.Errorf("case %d: err = %v, want ErrInvalidProduct", i, err)
		}
	}
}

func TestUpdateAndDeactivateProduct(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{SKU: "SKU-A", Name: "A", Category: "x", PriceCents: 100, InitialStock: 3})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newPrice := int64(250)
	updated, err := svc.UpdateProduct(adminCtx(), "sku-a", domain.ProductUpdateRequest{PriceCents: &newPrice})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.PriceCents != 250 || updated.Stock != 3 {
		t.Fatalf("updated = %+v, price should change and stock should not", updated)
	}

	deactivated, err := svc.DeactivateProduct(adminCtx(), "SKU-A")
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if deactivated.Active {
		t.Fatalf("product should be inactive")
	}
}

func TestAdjustStock(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{SKU: "SKU-A", Name: "A", Category: "x", PriceCents: 100, InitialStock: 5}); err != nil {
		t.Fatalf("create: %v", err)
	}

	p, err := svc.AdjustStock(adminCtx(), "SKU-A", domain.StockAdjustmentRequest{Qty: 7})
	if err != nil || p.Stock != 12 {
		t.Fatalf("increase: %v stock=%d, want 12", err, p.Stock)
	}

	p, err = svc.AdjustStock(adminCtx(), "SKU-A", domain.StockAdjustmentRequest{Qty: -2})
	if err != nil || p.Stock != 10 {
		t.Fatalf("decrease: %v stock=%d, want 10", err, p.Stock)
	}

	if _, err := svc.AdjustStock(adminCtx(), "SKU-A", domain.StockAdjustmentRequest{Qty: -99}); !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("over-decrement err = %v, want ErrInsufficientStock", err)
	}
	if _, err := svc.AdjustStock(adminCtx(), "SKU-A", domain.StockAdjustmentRequest{Qty: 0}); !errors.Is(err, store.ErrInvalidProduct) {
		t.Fatalf("zero adjust err = %v, want ErrInvalidProduct", err)
	}

	if stock, _ := repo.GetStock(ctx, "SKU-A"); stock != 10 {
		t.Fatalf("stock = %d, want 10 untouched by rejected adjustments", stock)
	}
}

func TestCartFlowAndCheckout(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := cashierCtx()

	if _, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{SKU: "SKU-A", Name: "Coffee", Category: "x", PriceCents: 350, InitialStock: 10}); err != nil {
		t.Fatalf("create: %v", err)
	}

	view, err := svc.CartAddItem(ctx, "till-1", "sku-a")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(view.Lines) != 1 || view.Lines[0].Qty != 1 {
		t.Fatalf("view = %+v", view)
	}

	view, err = svc.CartSetQuantity(ctx, "till-1", "SKU-A", 3)
	if err != nil {
		t.Fatalf("set qty: %v", err)
	}
	if view.Totals.SubtotalCents != 1050 || view.Totals.TaxCents != 84 {
		t.Fatalf("totals = %+v", view.Totals)
	}

	if _, err := svc.CartSetDiscount(ctx, "till-1", 84); err != nil {
		t.Fatalf("discount: %v", err)
	}

	sale, err := svc.Checkout(ctx, "till-1", domain.CheckoutRequest{PaymentMethod: domain.PaymentCash})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if sale.TotalCents != 1050 {
		t.Fatalf("total = %d, want 1050 (1050 subtotal + 84 tax - 84 discount)", sale.TotalCents)
	}
	if sale.CashierName != "jo" {
		t.Fatalf("cashier = %q, want actor username", sale.CashierName)
	}

	// Cart is empty afterwards; a second checkout fails.
	if view, _ := svc.CartView(ctx, "till-1"); len(view.Lines) != 0 {
		t.Fatalf("cart should be empty after checkout")
	}
	if _, err := svc.Checkout(ctx, "till-1", domain.CheckoutRequest{PaymentMethod: domain.PaymentCash}); !errors.Is(err, checkout.ErrEmptyCart) {
		t.Fatalf("err = %v, want ErrEmptyCart", err)
	}
}

func TestReceiptRendersCommittedSale(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := cashierCtx()

	if _, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{SKU: "SKU-A", Name: "Coffee", Category: "x", PriceCents: 350, InitialStock: 10}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CartAddItem(ctx, "till-1", "SKU-A"); err != nil {
		t.Fatalf("add: %v", err)
	}

	sale, err := svc.Checkout(ctx, "till-1", domain.CheckoutRequest{PaymentMethod: domain.PaymentCard})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	resp, err := svc.Receipt(ctx, sale.ID)
	if err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if resp.SaleID != sale.ID || resp.Text == "" {
		t.Fatalf("receipt = %+v", resp)
	}

	if _, err := svc.Receipt(ctx, "no-such-sale"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDailyReport(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	day := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	sales := []domain.Sale{
		{ID: "s1", SubtotalCents: 1000, TaxCents: 80, TotalCents: 1080, PaymentMethod: domain.PaymentCash, CreatedAt: day},
		{ID: "s2", SubtotalCents: 2000, TaxCents: 160, DiscountCents: 60, TotalCents: 2100, PaymentMethod: domain.PaymentCard, CreatedAt: day.Add(time.Hour)},
		{ID: "s3", SubtotalCents: 500, TaxCents: 40, TotalCents: 540, PaymentMethod: domain.PaymentCash, CreatedAt: day.Add(2 * time.Hour)},
		// Next day, must not count.
		{ID: "s4", SubtotalCents: 9999, TotalCents: 9999, PaymentMethod: domain.PaymentCash, CreatedAt: day.Add(26 * time.Hour)},
	}
	for _, s := range sales {
		if _, err := repo.Append(ctx, s); err != nil {
			t.Fatalf("append %s: %v", s.ID, err)
		}
	}

	report, err := svc.DailyReport(ctx, "2026-08-29")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Sales != 3 {
		t.Fatalf("sales = %d, want 3", report.Sales)
	}
	if report.GrossCents != 3500 || report.TaxCents != 280 || report.DiscountCents != 60 || report.NetCents != 3720 {
		t.Fatalf("report = %+v", report)
	}
	if len(report.ByPayment) != 2 {
		t.Fatalf("byPayment = %+v, want card and cash", report.ByPayment)
	}
	// Sorted by method name, card before cash.
	if report.ByPayment[0].PaymentMethod != domain.PaymentCard || report.ByPayment[0].Sales != 1 {
		t.Fatalf("byPayment[0] = %+v", report.ByPayment[0])
	}
	if report.ByPayment[1].PaymentMethod != domain.PaymentCash || report.ByPayment[1].TotalCents != 1620 {
		t.Fatalf("byPayment[1] = %+v", report.ByPayment[1])
	}

	if _, err := svc.DailyReport(ctx, "not-a-date"); err == nil {
		t.Fatalf("invalid date should fail")
	}
}

func TestCreateCashier(t *testing.T) {
	svc, repo := newTestService(t)

	if _, err := svc.CreateCashier(cashierCtx(), domain.CashierCreateRequest{Username: "x", Password: "longenough"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	if _, err := svc.CreateCashier(adminCtx(), domain.CashierCreateRequest{Username: "x", Password: "short"}); err == nil {
		t.Fatalf("weak password should be rejected")
	}

	created, err := svc.CreateCashier(adminCtx(), domain.CashierCreateRequest{Username: " Pat ", Password: "hunter2hunter2"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Username != "pat" || created.Role != "cashier" || !created.Active {
		t.Fatalf("created = %+v", created)
	}

	// Password lands hashed in the store.
	users, _ := repo.ListUsers(context.Background())
	for _, u := range users {
		if u.Username == "pat" && u.Password == "hunter2hunter2" {
			t.Fatalf("password stored in plain text")
		}
	}

	if _, err := svc.CreateCashier(adminCtx(), domain.CashierCreateRequest{Username: "pat", Password: "hunter2hunter2"}); !errors.Is(err, store.ErrDuplicateUser) {
		t.Fatalf("duplicate err = %v, want ErrDuplicateUser", err)
	}
}
