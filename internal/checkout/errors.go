package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrMissingPaymentMethod = errors.New("payment method is missing or invalid")
	ErrProductNotFound      = errors.New("product not found")
)

// InsufficientStockError reports exactly which line failed and by how much,
// so the register can tell the cashier what to remove.
type InsufficientStockError struct {
	SKU       string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.SKU, e.Requested, e.Available)
}

func productNotFound(sku string) error {
	return fmt.Errorf("%w: %s", ErrProductNotFound, sku)
}
