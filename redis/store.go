package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/goforj/cachekit/cachecore"
)

// Client captures the subset of go-redis used by the store. Every
// goredis.UniversalClient satisfies it.
type Client interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.BoolCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *goredis.ScanCmd
	Close() error
}

// ErrNoClient is returned by a Store built without a client.
var ErrNoClient = errors.New("redis: client unavailable")

// Store is a cachecore.Store over a redis client. Keys are stored as
// "<prefix>:<key>".
type Store struct {
	client Client
	prefix string
}

var _ cachecore.Store = (*Store)(nil)

// NewStore returns a Store over client using prefix.
func NewStore(client Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Type() cachecore.ProviderType { return cachecore.ProviderRedis }

// Prefix returns the key namespace.
func (s *Store) Prefix() string { return s.prefix }

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.client == nil {
		return nil, false, ErrNoClient
	}
	value, err := s.client.Get(ctx, s.cacheKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.client == nil {
		return ErrNoClient
	}
	return s.client.Set(ctx, s.cacheKey(key), value, ttl).Err()
}

func (s *Store) Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if s.client == nil {
		return false, ErrNoClient
	}
	return s.client.SetNX(ctx, s.cacheKey(key), value, ttl).Result()
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if s.client == nil {
		return ErrNoClient
	}
	return s.client.Del(ctx, s.cacheKey(key)).Err()
}

func (s *Store) DeleteMany(ctx context.Context, keys ...string) error {
	if s.client == nil {
		return ErrNoClient
	}
	if len(keys) == 0 {
		return nil
	}
	cacheKeys := make([]string, 0, len(keys))
	for _, key := range keys {
		cacheKeys = append(cacheKeys, s.cacheKey(key))
	}
	return s.client.Del(ctx, cacheKeys...).Err()
}

// Flush removes every key under the prefix.
func (s *Store) Flush(ctx context.Context) error {
	if s.client == nil {
		return ErrNoClient
	}
	pattern := "*"
	if s.prefix != "" {
		pattern = globEscaper.Replace(s.prefix) + ":*"
	}
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Close closes the client.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// globEscaper escapes the metacharacters of redis MATCH patterns.
var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

func (s *Store) cacheKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}
