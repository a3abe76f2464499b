// Package memory is the in-process store used for dev/demo mode and for unit
// tests. All state lives behind one RWMutex; reads hand out copies so callers
// can never reach back into the maps.
package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"clicknsell/pos/internal/domain"
	"clicknsell/pos/internal/store"
)

type Store struct {
	mu              sync.RWMutex
	products        map[string]domain.Product
	salesByID       map[string]domain.Sale
	saleOrder       []string
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD; unset
// variables fall back to hardcoded dev defaults with a warning. Production
// runs on PostgreSQL (DATABASE_URL set) and never touches these.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func New() *Store {
	return &Store{
		products:        make(map[string]domain.Product),
		salesByID:       make(map[string]domain.Sale),
		saleOrder:       make([]string, 0, 128),
		usersByUsername: seedUsers(),
	}
}

func NewSeeded() *Store {
	products := []domain.Product{
		{SKU: "SKU-ESPRESSO-01", Name: "Espresso Doppio", Category: "beverage", PriceCents: 350, Stock: 120, Active: true},
		{SKU: "SKU-LATTE-01", Name: "Caffe Latte", Category: "beverage", PriceCents: 475, Stock: 120, Active: true},
		{SKU: "SKU-COLDBREW-01", Name: "Cold Brew 12oz", Category: "beverage", PriceCents: 525, Stock: 80, Active: true},
		{SKU: "SKU-CROISSANT-01", Name: "Butter Croissant", Category: "bakery", PriceCents: 395, Stock: 40, Active: true},
		{SKU: "SKU-MUFFIN-01", Name: "Blueberry Muffin", Category: "bakery", PriceCents: 345, Stock: 36, Active: true},
		{SKU: "SKU-BAGEL-01", Name: "Sesame Bagel", Category: "bakery", PriceCents: 295, Stock: 48, Active: true},
		{SKU: "SKU-SANDWICH-01", Name: "Turkey Club Sandwich", Category: "food", PriceCents: 895, Stock: 24, Active: true},
		{SKU: "SKU-SALAD-01", Name: "Garden Salad", Category: "food", PriceCents: 750, Stock: 18, Active: true},
		{SKU: "SKU-CHIPS-01", Name: "Kettle Chips", Category: "snack", PriceCents: 250, Stock: 96, Active: true},
		{SKU: "SKU-COOKIE-01", Name: "Chocolate Chip Cookie", Category: "snack", PriceCents: 225, Stock: 60, Active: true},
		{SKU: "SKU-WATER-01", Name: "Sparkling Water 500ml", Category: "beverage", PriceCents: 195, Stock: 144, Active: true},
		{SKU: "SKU-MUG-01", Name: "Ceramic Mug 12oz", Category: "merch", PriceCents: 1450, Stock: 20, Active: true},
	}

	s := New()
	for _, p := range products {
		s.products[p.SKU] = p
	}
	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return strings.Compare(a.Name, b.Name)
		}
		return strings.Compare(a.Category, b.Category)
	})
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, sku string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[strings.ToUpper(strings.TrimSpace(sku))]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := p
	return &clone, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product.SKU = strings.ToUpper(strings.TrimSpace(product.SKU))
	if product.SKU == "" || product.PriceCents < 0 {
		return nil, store.ErrInvalidProduct
	}
	if _, exists := s.products[product.SKU]; exists {
		return nil, store.ErrInvalidProduct
	}
	if product.Stock < 0 {
		product.Stock = 0
	}
	s.products[product.SKU] = product
	clone := product
	return &clone, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products[product.SKU]
	if !ok {
		return nil, store.ErrNotFound
	}
	if product.PriceCents < 0 {
		return nil, store.ErrInvalidProduct
	}
	// Stock is adjusted through the stock operations, never via update.
	product.Stock = current.Stock
	s.products[product.SKU] = product
	clone := product
	return &clone, nil
}

func (s *Store) GetStock(_ context.Context, sku string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[sku]
	if !ok {
		return 0, store.ErrNotFound
	}
	return p.Stock, nil
}

func (s *Store) SetStock(_ context.Context, sku string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[sku]
	if !ok {
		return store.ErrNotFound
	}
	if qty < 0 {
		qty = 0
	}
	p.Stock = qty
	s.products[sku] = p
	return nil
}

// DecrementStock is the compare-and-decrement the checkout path relies on.
// The check and the write happen under the same lock, so concurrent commits
// cannot both take the last unit.
func (s *Store) DecrementStock(_ context.Context, sku string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[sku]
	if !ok {
		return store.ErrNotFound
	}
	if qty <= 0 {
		return store.ErrInvalidProduct
	}
	if p.Stock < qty {
		return store.ErrInsufficientStock
	}
	p.Stock -= qty
	s.products[sku] = p
	return nil
}

func (s *Store) IncreaseStock(_ context.Context, sku string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[sku]
	if !ok {
		return store.ErrNotFound
	}
	if qty <= 0 {
		return store.ErrInvalidProduct
	}
	p.Stock += qty
	s.products[sku] = p
	return nil
}

func (s *Store) Append(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.ID == "" {
		return nil, store.ErrDuplicateSale
	}
	if _, exists := s.salesByID[sale.ID]; exists {
		return nil, store.ErrDuplicateSale
	}
	s.salesByID[sale.ID] = cloneSale(sale)
	s.saleOrder = append(s.saleOrder, sale.ID)
	clone := cloneSale(sale)
	return &clone, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.salesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := cloneSale(sale)
	return &clone, nil
}

func (s *Store) ListSales(_ context.Context, from, to time.Time, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	sales := make([]domain.Sale, 0, limit)
	// Newest first, walking the append order backwards.
	for i := len(s.saleOrder) - 1; i >= 0 && len(sales) < limit; i-- {
		sale := s.salesByID[s.saleOrder[i]]
		if !from.IsZero() && sale.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !sale.CreatedAt.Before(to) {
			continue
		}
		sales = append(sales, cloneSale(sale))
	}
	return sales, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrDuplicateUser
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	u.Password = password
	s.usersByUsername[username] = u
	return nil
}

func cloneSale(sale domain.Sale) domain.Sale {
	clone := sale
	clone.Lines = slices.Clone(sale.Lines)
	return clone
}
