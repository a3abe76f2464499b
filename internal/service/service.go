// Package service is the business layer: it owns validation, authorization
// and orchestration, and is the only code the HTTP layer talks to.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"clicknsell/pos/internal/cache"
	"clicknsell/pos/internal/checkout"
	"clicknsell/pos/internal/domain"
	"clicknsell/pos/internal/receipt"
	"clicknsell/pos/internal/register"
	"clicknsell/pos/internal/store"
)

var ErrForbidden = errors.New("admin role required")

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo      store.Repository
	engine    *checkout.Engine
	registers *register.Manager
	receipts  cache.ReceiptCache
	renderer  *receipt.Renderer
	logger    *zap.Logger
}

func New(repo store.Repository, engine *checkout.Engine, registers *register.Manager, receipts cache.ReceiptCache, renderer *receipt.Renderer, logger *zap.Logger) *Service {
	if receipts == nil {
		receipts = cache.NoopReceiptCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		repo:      repo,
		engine:    engine,
		registers: registers,
		receipts:  receipts,
		renderer:  renderer,
		logger:    logger,
	}
}

func requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return ErrForbidden
	}
	return nil
}

// --- catalog administration ---

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, sku string) (domain.Product, error) {
	p, err := s.repo.GetProduct(ctx, strings.ToUpper(strings.TrimSpace(sku)))
	if err != nil {
		return domain.Product{}, err
	}
	return *p, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)

	if req.SKU == "" || req.Name == "" || req.Category == "" {
		return domain.Product{}, store.ErrInvalidProduct
	}
	if req.PriceCents < 1 || req.InitialStock < 0 {
		return domain.Product{}, store.ErrInvalidProduct
	}

	product := domain.Product{
		SKU:        req.SKU,
		Name:       req.Name,
		Category:   req.Category,
		PriceCents: req.PriceCents,
		Stock:      req.InitialStock,
		Active:     true,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logger.Info("product created",
		zap.String("sku", created.SKU),
		zap.Int64("price_cents", created.PriceCents),
		zap.Int("stock", created.Stock))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, sku string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	sku = strings.ToUpper(strings.TrimSpace(sku))
	if sku == "" {
		return domain.Product{}, store.ErrInvalidProduct
	}

	existing, err := s.repo.GetProduct(ctx, sku)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidProduct
		}
		updated.Name = name
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return domain.Product{}, store.ErrInvalidProduct
		}
		updated.Category = category
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 1 {
			return domain.Product{}, store.ErrInvalidProduct
		}
		updated.PriceCents = *req.PriceCents
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}
	return *saved, nil
}

// DeactivateProduct is the only removal offered. Open cart lines may still
// reference the SKU; they fail cleanly at checkout instead of dangling.
func (s *Service) DeactivateProduct(ctx context.Context, sku string) (domain.Product, error) {
	inactive := false
	return s.UpdateProduct(ctx, sku, domain.ProductUpdateRequest{Active: &inactive})
}

func (s *Service) AdjustStock(ctx context.Context, sku string, req domain.StockAdjustmentRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	sku = strings.ToUpper(strings.TrimSpace(sku))
	switch {
	case req.Qty > 0:
		if err := s.repo.IncreaseStock(ctx, sku, req.Qty); err != nil {
			return domain.Product{}, err
		}
	case req.Qty < 0:
		if err := s.repo.DecrementStock(ctx, sku, -req.Qty); err != nil {
			return domain.Product{}, err
		}
	default:
		return domain.Product{}, store.ErrInvalidProduct
	}

	return s.GetProduct(ctx, sku)
}

// --- register carts ---

func (s *Service) CartView(ctx context.Context, terminalID string) (domain.CartView, error) {
	return s.registers.Cart(terminalID).View(ctx, terminalID)
}

func (s *Service) CartAddItem(ctx context.Context, terminalID, sku string) (domain.CartView, error) {
	c := s.registers.Cart(terminalID)
	c.AddItem(ctx, strings.ToUpper(strings.TrimSpace(sku)))
	return c.View(ctx, terminalID)
}

func (s *Service) CartSetQuantity(ctx context.Context, terminalID, sku string, qty int) (domain.CartView, error) {
	c := s.registers.Cart(terminalID)
	c.SetQuantity(ctx, strings.ToUpper(strings.TrimSpace(sku)), qty)
	return c.View(ctx, terminalID)
}

func (s *Service) CartRemoveItem(ctx context.Context, terminalID, sku string) (domain.CartView, error) {
	c := s.registers.Cart(terminalID)
	c.RemoveItem(strings.ToUpper(strings.TrimSpace(sku)))
	return c.View(ctx, terminalID)
}

func (s *Service) CartSetDiscount(ctx context.Context, terminalID string, cents int64) (domain.CartView, error) {
	c := s.registers.Cart(terminalID)
	c.SetDiscount(cents)
	return c.View(ctx, terminalID)
}

func (s *Service) CartClear(ctx context.Context, terminalID string) (domain.CartView, error) {
	c := s.registers.Cart(terminalID)
	c.Clear()
	return c.View(ctx, terminalID)
}

// --- checkout and sales ---

func (s *Service) Checkout(ctx context.Context, terminalID string, req domain.CheckoutRequest) (domain.Sale, error) {
	if actor, ok := ActorFromContext(ctx); ok {
		req.CashierName = actor.Username
	}

	c := s.registers.Cart(terminalID)
	sale, err := s.engine.Commit(ctx, c, terminalID, req)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) ListSales(ctx context.Context, from, to time.Time, limit int) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx, from, to, limit)
}

// --- receipts ---

func (s *Service) Receipt(ctx context.Context, saleID string) (domain.ReceiptResponse, error) {
	key := "receipt:" + saleID
	if cached, ok, err := s.receipts.Get(ctx, key); err == nil && ok {
		return *cached, nil
	} else if err != nil {
		s.logger.Warn("receipt cache read failed", zap.String("sale_id", saleID), zap.Error(err))
	}

	sale, err := s.repo.GetSale(ctx, saleID)
	if err != nil {
		return domain.ReceiptResponse{}, err
	}

	names := make(map[string]string, len(sale.Lines))
	for _, line := range sale.Lines {
		if p, err := s.repo.GetProduct(ctx, line.SKU); err == nil {
			names[line.SKU] = p.Name
		}
	}

	resp := s.renderer.Render(*sale, names)
	if err := s.receipts.Set(ctx, key, &resp, 24*time.Hour); err != nil {
		s.logger.Warn("receipt cache write failed", zap.String("sale_id", saleID), zap.Error(err))
	}
	return resp, nil
}

// --- reporting ---

// DailyReport folds the ledger for one calendar day (UTC).
func (s *Service) DailyReport(ctx context.Context, date string) (domain.DailyReport, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return domain.DailyReport{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	from := day.UTC()
	to := from.Add(24 * time.Hour)

	sales, err := s.repo.ListSales(ctx, from, to, 10000)
	if err != nil {
		return domain.DailyReport{}, err
	}

	report := domain.DailyReport{Date: date}
	byPayment := make(map[domain.PaymentMethod]*domain.DailyReportPayment)
	for _, sale := range sales {
		report.Sales++
		report.GrossCents += sale.SubtotalCents
		report.TaxCents += sale.TaxCents
		report.DiscountCents += sale.DiscountCents
		report.NetCents += sale.TotalCents

		entry, ok := byPayment[sale.PaymentMethod]
		if !ok {
			entry = &domain.DailyReportPayment{PaymentMethod: sale.PaymentMethod}
			byPayment[sale.PaymentMethod] = entry
		}
		entry.Sales++
		entry.TotalCents += sale.TotalCents
	}

	for _, entry := range byPayment {
		report.ByPayment = append(report.ByPayment, *entry)
	}
	slices.SortFunc(report.ByPayment, func(a, b domain.DailyReportPayment) int {
		return strings.Compare(string(a.PaymentMethod), string(b.PaymentMethod))
	})
	return report, nil
}

// --- users ---

func (s *Service) CreateCashier(ctx context.Context, req domain.CashierCreateRequest) (domain.CashierUser, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.CashierUser{}, err
	}

	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if req.Username == "" || len(req.Password) < 8 {
		return domain.CashierUser{}, fmt.Errorf("username required and password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.CashierUser{}, err
	}

	user := domain.UserAccount{
		Username:  req.Username,
		Password:  string(hash),
		Role:      "cashier",
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return domain.CashierUser{}, err
	}

	s.logger.Info("cashier created", zap.String("username", user.Username))
	return domain.CashierUser{
		Username:  user.Username,
		Role:      user.Role,
		Active:    user.Active,
		CreatedAt: user.CreatedAt,
	}, nil
}

func (s *Service) ListCashiers(ctx context.Context) ([]domain.CashierUser, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.CashierUser, 0, len(users))
	for _, u := range users {
		out = append(out, domain.CashierUser{
			Username:  u.Username,
			Role:      u.Role,
			Active:    u.Active,
			CreatedAt: u.CreatedAt,
		})
	}
	return out, nil
}
