// Package register tracks the one open cart per terminal. The register UI
// addresses carts by terminal ID; the manager lazily creates a cart the first
// time a terminal shows up.
package register

import (
	"strings"
	"sync"

	"clicknsell/pos/internal/cart"
	"clicknsell/pos/internal/store"
)

type Manager struct {
	mu      sync.Mutex
	catalog store.Catalog
	taxRate float64
	carts   map[string]*cart.Cart
}

func NewManager(catalog store.Catalog, taxRatePercent float64) *Manager {
	return &Manager{
		catalog: catalog,
		taxRate: taxRatePercent,
		carts:   make(map[string]*cart.Cart),
	}
}

// Cart returns the open cart for a terminal, creating it on first use.
// Terminal IDs are case-insensitive.
func (m *Manager) Cart(terminalID string) *cart.Cart {
	key := strings.ToLower(strings.TrimSpace(terminalID))
	if key == "" {
		key = "default"
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.carts[key]
	if !ok {
		c = cart.New(m.catalog, m.taxRate)
		m.carts[key] = c
	}
	return c
}

// Terminals lists terminals that currently hold a cart, open or empty.
func (m *Manager) Terminals() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.carts))
	for id := range m.carts {
		out = append(out, id)
	}
	return out
}
