package cache

import (
	"context"
	"time"

	"clicknsell/pos/internal/domain"
)

// ReceiptCache stores rendered receipts. Sales never change after commit, so
// cached receipts never go stale; the TTL only bounds memory.
type ReceiptCache interface {
	Get(ctx context.Context, key string) (*domain.ReceiptResponse, bool, error)
	Set(ctx context.Context, key string, value *domain.ReceiptResponse, ttl time.Duration) error
}

type NoopReceiptCache struct{}

func (NoopReceiptCache) Get(_ context.Context, _ string) (*domain.ReceiptResponse, bool, error) {
	return nil, false, nil
}

func (NoopReceiptCache) Set(_ context.Context, _ string, _ *domain.ReceiptResponse, _ time.Duration) error {
	return nil
}
