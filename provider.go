package cachekit

import (
	"context"
	"time"

	"github.com/goforj/cachekit/cachecore"
)

// Provider is a named, independently configured cache instance.
//
// Keys must be non-blank. Values are serialized by the provider's
// serializer; out arguments must be non-nil pointers. A missing key is not an
// error: Get returns (false, nil). Providers never retry failed operations.
type Provider interface {
	Name() string
	Type() cachecore.ProviderType
	Order() int
	MaxRdSecond() int

	Get(ctx context.Context, key string, out any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// TrySet stores value only when key is absent and reports whether it did.
	TrySet(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	Remove(ctx context.Context, key string) error
	RemoveAll(ctx context.Context, keys ...string) error
	Flush(ctx context.Context) error

	Stats() Stats
}

// CacheValue is a typed lookup result. HasValue is false on a miss.
type CacheValue[T any] struct {
	Value    T
	HasValue bool
}

// IsNull reports whether the lookup missed.
func (v CacheValue[T]) IsNull() bool { return !v.HasValue }

// Get reads key from p into a CacheValue[T].
// @group Provider
//
// Example: typed get
//
//	ctx := context.Background()
//	_ = p.Set(ctx, "user:42", "Ada", time.Minute)
//	v, _ := cachekit.Get[string](ctx, p, "user:42")
//	fmt.Println(v.HasValue, v.Value) // true Ada
func Get[T any](ctx context.Context, p Provider, key string) (CacheValue[T], error) {
	var out T
	ok, err := p.Get(ctx, key, &out)
	if err != nil || !ok {
		return CacheValue[T]{}, err
	}
	return CacheValue[T]{Value: out, HasValue: true}, nil
}

// GetOrLoad returns the cached value for key or, on a miss, calls load and
// stores its result for ttl.
// @group Provider
//
// Example: read-through
//
//	ctx := context.Background()
//	v, err := cachekit.GetOrLoad(ctx, p, "user:42", time.Minute, func(context.Context) (User, error) {
//		return repo.FindUser(ctx, 42)
//	})
func GetOrLoad[T any](ctx context.Context, p Provider, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var zero T
	if load == nil {
		return zero, NewArgumentError("dataRetriever", "must not be nil")
	}
	cached, err := Get[T](ctx, p, key)
	if err != nil {
		return zero, err
	}
	if cached.HasValue {
		return cached.Value, nil
	}
	value, err := load(ctx)
	if err != nil {
		return zero, err
	}
	if err := p.Set(ctx, key, value, ttl); err != nil {
		return zero, err
	}
	return value, nil
}
