package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/goforj/cachekit/cachecore"
)

// ErrSizeLimit is returned when a new key would exceed StoreOptions.SizeLimit.
var ErrSizeLimit = errors.New("memory: size limit reached")

// Store is a cachecore.Store over go-cache. Values are copied on the way in
// and out so callers cannot mutate cached bytes.
type Store struct {
	cache *gocache.Cache
	limit int
	mu    sync.Mutex
}

var _ cachecore.Store = (*Store)(nil)

// NewStore returns a Store purging expired entries every cleanup interval.
func NewStore(opts StoreOptions) *Store {
	cleanup := opts.ExpirationScanFrequency.Std()
	if cleanup <= 0 {
		cleanup = DefaultExpirationScanFrequency
	}
	return &Store{
		cache: gocache.New(gocache.NoExpiration, cleanup),
		limit: opts.SizeLimit,
	}
}

func (s *Store) Type() cachecore.ProviderType { return cachecore.ProviderInMemory }

// Len reports the number of entries, including expired ones not yet purged.
func (s *Store) Len() int { return s.cache.ItemCount() }

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	item, ok := s.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	body, ok := item.([]byte)
	if !ok {
		return nil, false, fmt.Errorf("memory: key %q holds %T", key, item)
	}
	return clone(body), true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.cache.Get(key); !exists && s.full() {
		return fmt.Errorf("%w: %d entries", ErrSizeLimit, s.limit)
	}
	s.cache.Set(key, clone(value), ttl)
	return nil
}

func (s *Store) Add(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.cache.Get(key); exists {
		return false, nil
	}
	if s.full() {
		return false, fmt.Errorf("%w: %d entries", ErrSizeLimit, s.limit)
	}
	if err := s.cache.Add(key, clone(value), ttl); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

func (s *Store) DeleteMany(_ context.Context, keys ...string) error {
	for _, key := range keys {
		s.cache.Delete(key)
	}
	return nil
}

func (s *Store) Flush(_ context.Context) error {
	s.cache.Flush()
	return nil
}

func (s *Store) full() bool {
	if s.limit <= 0 {
		return false
	}
	if s.cache.ItemCount() < s.limit {
		return false
	}
	s.cache.DeleteExpired()
	return s.cache.ItemCount() >= s.limit
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
