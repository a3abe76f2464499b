// Package store defines the persistence contracts for the catalog and the
// sales ledger, plus the sentinel errors implementations report through.
package store

import (
	"context"
	"errors"
	"time"

	"clicknsell/pos/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicateSale     = errors.New("duplicate sale")
	ErrInvalidProduct    = errors.New("invalid product")
	ErrDuplicateUser     = errors.New("duplicate user")
)

// Catalog is the product and stock store. DecrementStock must be an atomic
// compare-and-decrement: it fails with ErrInsufficientStock rather than
// letting stock go negative.
type Catalog interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, sku string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetStock(ctx context.Context, sku string) (int, error)
	SetStock(ctx context.Context, sku string, qty int) error
	DecrementStock(ctx context.Context, sku string, qty int) error
	IncreaseStock(ctx context.Context, sku string, qty int) error
}

// Ledger is the append-only sale log. Appended sales are never updated or
// deleted; reads return defensive copies.
type Ledger interface {
	Append(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	ListSales(ctx context.Context, from, to time.Time, limit int) ([]domain.Sale, error)
}

type Users interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

// Repository bundles the three stores backing the service layer.
type Repository interface {
	Catalog
	Ledger
	Users
}
