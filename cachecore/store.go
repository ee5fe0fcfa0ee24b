package cachecore

import (
	"context"
	"time"
)

// Store is the byte-level contract implemented by simple backends. Providers
// layer serialization, key checks and expiration jitter on top of it.
type Store interface {
	Type() ProviderType
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	DeleteMany(ctx context.Context, keys ...string) error
	Flush(ctx context.Context) error
}

// Closer is implemented by stores that own network or file resources.
type Closer interface {
	Close() error
}
