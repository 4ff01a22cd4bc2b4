package cache

import (
	"context"
	"time"
)

const deliveryKeyPrefix = "webhook:delivery:"

// DeliveryStoreInterface remembers webhook deliveries that were already applied.
type DeliveryStoreInterface interface {
	Seen(ctx context.Context, key string) bool
	Remember(ctx context.Context, key string, ttl time.Duration)
}

// DeliveryStore keeps processed webhook delivery keys in Redis.
// When redis is unavailable every delivery looks new, which is safe because
// role transitions are idempotent.
type DeliveryStore struct {
	cache *Client
}

// Ensure DeliveryStore implements DeliveryStoreInterface
var _ DeliveryStoreInterface = (*DeliveryStore)(nil)

// NewDeliveryStore creates a new delivery store.
func NewDeliveryStore(cache *Client) *DeliveryStore {
	return &DeliveryStore{cache: cache}
}

// Seen reports whether key was remembered and has not expired.
func (s *DeliveryStore) Seen(ctx context.Context, key string) bool {
	data, _ := s.cache.Get(ctx, deliveryKeyPrefix+key)
	return data != nil
}

// Remember marks key as processed for ttl.
func (s *DeliveryStore) Remember(ctx context.Context, key string, ttl time.Duration) {
	_ = s.cache.Set(ctx, deliveryKeyPrefix+key, []byte("1"), ttl)
}
