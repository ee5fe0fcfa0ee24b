package cachekit

import (
	"context"
	"fmt"
	"time"

	"github.com/goforj/cachekit/cachecore"
	"github.com/goforj/cachekit/serializer"
)

// StoreProvider implements Provider on top of a byte-level cachecore.Store.
// The in-memory, redis and sqlite backends are built this way.
type StoreProvider struct {
	*ProviderBase
	store      cachecore.Store
	serializer serializer.Serializer
}

var _ Provider = (*StoreProvider)(nil)

// NewStoreProvider binds base, store and s into a Provider.
func NewStoreProvider(base *ProviderBase, store cachecore.Store, s serializer.Serializer) *StoreProvider {
	if s == nil {
		s = serializer.Default()
	}
	return &StoreProvider{ProviderBase: base, store: store, serializer: s}
}

// Store returns the underlying store.
func (p *StoreProvider) Store() cachecore.Store { return p.store }

// Serializer returns the serializer values pass through.
func (p *StoreProvider) Serializer() serializer.Serializer { return p.serializer }

func (p *StoreProvider) Get(ctx context.Context, key string, out any) (bool, error) {
	if err := p.CheckKey(key); err != nil {
		return false, err
	}
	start := time.Now()
	body, ok, err := p.store.Get(ctx, key)
	if err != nil {
		err = WrapBackend(p.Name(), OpGet, "", err)
		p.Observe(ctx, OpGet, key, false, err, start)
		return false, err
	}
	if !ok {
		p.Observe(ctx, OpGet, key, false, nil, start)
		return false, nil
	}
	if err := p.serializer.Deserialize(body, out); err != nil {
		err = fmt.Errorf("cachekit: decode %q: %w", key, err)
		p.Observe(ctx, OpGet, key, false, err, start)
		return false, err
	}
	p.Observe(ctx, OpGet, key, true, nil, start)
	return true, nil
}

func (p *StoreProvider) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := p.CheckKey(key); err != nil {
		return err
	}
	exp, err := p.Expiration(ttl)
	if err != nil {
		return err
	}
	start := time.Now()
	body, err := p.serializer.Serialize(value)
	if err != nil {
		err = fmt.Errorf("cachekit: encode %q: %w", key, err)
		p.Observe(ctx, OpSet, key, false, err, start)
		return err
	}
	err = WrapBackend(p.Name(), OpSet, "", p.store.Set(ctx, key, body, exp))
	p.Observe(ctx, OpSet, key, false, err, start)
	return err
}

func (p *StoreProvider) TrySet(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if err := p.CheckKey(key); err != nil {
		return false, err
	}
	exp, err := p.Expiration(ttl)
	if err != nil {
		return false, err
	}
	start := time.Now()
	body, err := p.serializer.Serialize(value)
	if err != nil {
		err = fmt.Errorf("cachekit: encode %q: %w", key, err)
		p.Observe(ctx, OpTrySet, key, false, err, start)
		return false, err
	}
	added, err := p.store.Add(ctx, key, body, exp)
	err = WrapBackend(p.Name(), OpTrySet, "", err)
	p.Observe(ctx, OpTrySet, key, added, err, start)
	return added, err
}

func (p *StoreProvider) Exists(ctx context.Context, key string) (bool, error) {
	if err := p.CheckKey(key); err != nil {
		return false, err
	}
	start := time.Now()
	_, ok, err := p.store.Get(ctx, key)
	err = WrapBackend(p.Name(), OpExists, "", err)
	p.Observe(ctx, OpExists, key, ok, err, start)
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (p *StoreProvider) Remove(ctx context.Context, key string) error {
	if err := p.CheckKey(key); err != nil {
		return err
	}
	start := time.Now()
	err := WrapBackend(p.Name(), OpRemove, "", p.store.Delete(ctx, key))
	p.Observe(ctx, OpRemove, key, false, err, start)
	return err
}

func (p *StoreProvider) RemoveAll(ctx context.Context, keys ...string) error {
	if err := p.CheckKeys(keys); err != nil {
		return err
	}
	start := time.Now()
	err := WrapBackend(p.Name(), OpRemoveAll, "", p.store.DeleteMany(ctx, keys...))
	p.Observe(ctx, OpRemoveAll, "", false, err, start)
	return err
}

func (p *StoreProvider) Flush(ctx context.Context) error {
	start := time.Now()
	err := WrapBackend(p.Name(), OpFlush, "", p.store.Flush(ctx))
	p.Observe(ctx, OpFlush, "", false, err, start)
	return err
}

// Close closes the store when it owns resources.
func (p *StoreProvider) Close() error {
	if c, ok := p.store.(cachecore.Closer); ok {
		return c.Close()
	}
	return nil
}
