package memcached

import (
	"context"
	"errors"
	"time"

	"github.com/goforj/cachekit"
)

// Provider is the memcached implementation of cachekit.Provider. It shares
// its Client with every other lookup of the same name and does not close it;
// the registry does on Close.
type Provider struct {
	*cachekit.ProviderBase
	client *Client
}

var _ cachekit.Provider = (*Provider)(nil)

// NewProvider binds base to client.
func NewProvider(base *cachekit.ProviderBase, client *Client) *Provider {
	return &Provider{ProviderBase: base, client: client}
}

// Client returns the backend client.
func (p *Provider) Client() *Client { return p.client }

func (p *Provider) Get(ctx context.Context, key string, out any) (bool, error) {
	if err := p.CheckKey(key); err != nil {
		return false, err
	}
	start := time.Now()
	ok, err := p.client.Get(ctx, key, out)
	p.Observe(ctx, cachekit.OpGet, key, ok, err, start)
	return ok, err
}

func (p *Provider) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := p.CheckKey(key); err != nil {
		return err
	}
	exp, err := p.Expiration(ttl)
	if err != nil {
		return err
	}
	start := time.Now()
	stored, err := p.client.Store(ctx, StoreSet, key, value, exp)
	if err == nil && !stored {
		err = &cachekit.BackendError{Provider: p.Name(), Op: "set", Err: errors.New("server did not store the item")}
	}
	p.Observe(ctx, cachekit.OpSet, key, false, err, start)
	return err
}

func (p *Provider) TrySet(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if err := p.CheckKey(key); err != nil {
		return false, err
	}
	exp, err := p.Expiration(ttl)
	if err != nil {
		return false, err
	}
	start := time.Now()
	stored, err := p.client.Store(ctx, StoreAdd, key, value, exp)
	p.Observe(ctx, cachekit.OpTrySet, key, stored, err, start)
	return stored, err
}

func (p *Provider) Exists(ctx context.Context, key string) (bool, error) {
	if err := p.CheckKey(key); err != nil {
		return false, err
	}
	start := time.Now()
	_, ok, err := p.client.GetItem(ctx, key)
	p.Observe(ctx, cachekit.OpExists, key, ok, err, start)
	return ok, err
}

func (p *Provider) Remove(ctx context.Context, key string) error {
	if err := p.CheckKey(key); err != nil {
		return err
	}
	start := time.Now()
	_, err := p.client.Remove(ctx, key)
	p.Observe(ctx, cachekit.OpRemove, key, false, err, start)
	return err
}

func (p *Provider) RemoveAll(ctx context.Context, keys ...string) error {
	if err := p.CheckKeys(keys); err != nil {
		return err
	}
	start := time.Now()
	var errs []error
	for _, k := range keys {
		if _, err := p.client.Remove(ctx, k); err != nil {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)
	p.Observe(ctx, cachekit.OpRemoveAll, "", false, err, start)
	return err
}

func (p *Provider) Flush(ctx context.Context) error {
	start := time.Now()
	err := p.client.FlushAll(ctx)
	p.Observe(ctx, cachekit.OpFlush, "", false, err, start)
	return err
}
