package cachekit

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/goforj/cachekit/cachecore"
)

// Stats holds lookup counters for a provider.
type Stats struct {
	Hits   uint64
	Misses uint64
}

// ProviderBase carries the backend-agnostic parts of a Provider: identity,
// expiration jitter, key checks, stats and observer dispatch. Backends embed
// a *ProviderBase.
type ProviderBase struct {
	name    string
	typ     cachecore.ProviderType
	opts    cachecore.BaseOptions
	logger  *zap.Logger
	observe Observer

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewProviderBase returns a ProviderBase. A nil logger is replaced by a no-op
// logger; a nil observer disables observation.
func NewProviderBase(name string, typ cachecore.ProviderType, opts cachecore.BaseOptions, logger *zap.Logger, observer Observer) *ProviderBase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProviderBase{
		name:    name,
		typ:     typ,
		opts:    opts,
		logger:  logger,
		observe: observer,
	}
}

func (b *ProviderBase) Name() string                 { return b.name }
func (b *ProviderBase) Type() cachecore.ProviderType { return b.typ }
func (b *ProviderBase) Order() int                   { return b.opts.Order }
func (b *ProviderBase) MaxRdSecond() int             { return b.opts.MaxRdSecond }

// Logger returns the provider's logger.
func (b *ProviderBase) Logger() *zap.Logger { return b.logger }

// Stats returns a snapshot of the hit and miss counters.
func (b *ProviderBase) Stats() Stats {
	return Stats{Hits: b.hits.Load(), Misses: b.misses.Load()}
}

// CheckKey rejects blank keys.
func (b *ProviderBase) CheckKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return NewArgumentError("cacheKey", "must not be blank")
	}
	return nil
}

// CheckKeys rejects an empty key list or any blank key in it.
func (b *ProviderBase) CheckKeys(keys []string) error {
	if len(keys) == 0 {
		return NewArgumentError("cacheKeys", "must not be empty")
	}
	for _, k := range keys {
		if err := b.CheckKey(k); err != nil {
			return err
		}
	}
	return nil
}

// Expiration validates ttl and adds 1..MaxRdSecond seconds of jitter when
// MaxRdSecond is positive.
func (b *ProviderBase) Expiration(ttl time.Duration) (time.Duration, error) {
	if ttl <= 0 {
		return 0, NewArgumentError("expiration", "must be positive")
	}
	if b.opts.MaxRdSecond > 0 {
		ttl += time.Duration(rand.IntN(b.opts.MaxRdSecond)+1) * time.Second
	}
	return ttl, nil
}

// Observe records the outcome of op. Get and Exists feed the hit and miss
// counters.
func (b *ProviderBase) Observe(ctx context.Context, op, key string, hit bool, err error, start time.Time) {
	if err == nil && (op == OpGet || op == OpExists) {
		if hit {
			b.hits.Add(1)
		} else {
			b.misses.Add(1)
		}
	}
	dur := time.Since(start)
	if b.opts.EnableLogging {
		b.logger.Debug("cache op",
			zap.String("op", op),
			zap.String("key", key),
			zap.Bool("hit", hit),
			zap.Duration("took", dur),
			zap.Error(err),
		)
	}
	if b.observe != nil {
		b.observe.OnCacheOp(ctx, op, b.name, key, hit, err, dur)
	}
}
