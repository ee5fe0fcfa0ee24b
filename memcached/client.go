package memcached

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/goforj/cachekit"
)

// Client talks to a memcached cluster. It owns one socket pool per server
// and picks a server per key. Connections are opened lazily.
type Client struct {
	cfg     *ClientConfiguration
	pools   []*socketPool
	locator *locator
	logger  *zap.Logger
	closed  atomic.Bool
	now     func() time.Time
}

// NewClient builds the pools described by cfg without dialing any server.
// @group Memcached
//
// Example: standalone client
//
//	opts := memcached.DefaultOptions().DBConfig
//	opts.AddServer("127.0.0.1", 11211)
//	cfg, _ := memcached.NewClientConfiguration("sessions", opts, logger,
//		memcached.NewTranscoder(nil), memcached.DefaultKeyTransformer{})
//	client, err := memcached.NewClient(cfg)
func NewClient(cfg *ClientConfiguration) (*Client, error) {
	if cfg == nil {
		return nil, cachekit.NewArgumentError("configuration", "must not be nil")
	}
	if cfg.Transcoder == nil || cfg.KeyTransformer == nil {
		return nil, cachekit.NewArgumentError("configuration", "has no transcoder or key transformer")
	}
	if err := validateServers(cfg.Name, cfg.Servers); err != nil {
		return nil, err
	}
	if err := validatePool(cfg.Name, cfg.SocketPool); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pools := make([]*socketPool, 0, len(cfg.Servers))
	seen := make(map[string]bool, len(cfg.Servers))
	for i, s := range cfg.Servers {
		addr := s.Addr()
		if err := checkAddr(addr); err != nil {
			return nil, &cachekit.ConfigurationError{Provider: cfg.Name, Field: fmt.Sprintf("Servers[%d]", i), Err: err}
		}
		if seen[addr] {
			continue
		}
		seen[addr] = true
		pools = append(pools, newSocketPool(addr, cfg.SocketPool, cfg.Dial, logger))
	}
	if len(pools) == 0 {
		return nil, &cachekit.ConfigurationError{Provider: cfg.Name, Field: "Servers", Err: errors.New("at least one server is required")}
	}
	return &Client{
		cfg:     cfg,
		pools:   pools,
		locator: newLocator(pools),
		logger:  logger,
		now:     time.Now,
	}, nil
}

func checkAddr(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if host == "" {
		return errors.New("empty host")
	}
	if strings.Contains(host, ":") && net.ParseIP(host) == nil {
		return fmt.Errorf("invalid host %q", host)
	}
	return nil
}

// Name returns the name of the client's configuration.
func (c *Client) Name() string { return c.cfg.Name }

// Configuration returns the configuration the client was built from.
func (c *Client) Configuration() *ClientConfiguration { return c.cfg }

// Servers returns the server addresses in configuration order.
func (c *Client) Servers() []string {
	out := make([]string, len(c.pools))
	for i, p := range c.pools {
		out[i] = p.addr
	}
	return out
}

// Warm opens MinPoolSize connections to every live server.
func (c *Client) Warm(ctx context.Context) error {
	var errs []error
	for _, p := range c.pools {
		if !p.alive() {
			continue
		}
		if err := p.warm(ctx, c.cfg.SocketPool.MinPoolSize); err != nil {
			errs = append(errs, c.backendErr("warm", p.addr, err))
		}
	}
	return errors.Join(errs...)
}

// GetItem returns the raw item stored under key.
func (c *Client) GetItem(ctx context.Context, key string) (Item, bool, error) {
	k, err := c.cfg.KeyTransformer.Transform(key)
	if err != nil {
		return Item{}, false, err
	}
	var (
		it    Item
		found bool
	)
	err = c.with(ctx, "get", k, func(cn *conn) (bool, error) {
		var healthy bool
		var err error
		it, found, healthy, err = cn.get(ctx, k)
		return healthy, err
	})
	return it, found, err
}

// Get decodes the value stored under key into out and reports whether key
// was present.
func (c *Client) Get(ctx context.Context, key string, out any) (bool, error) {
	it, found, err := c.GetItem(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := c.cfg.Transcoder.Decode(it, out); err != nil {
		return false, err
	}
	return true, nil
}

// Store encodes value and writes it with mode. It reports false when the
// server declined the write, e.g. StoreAdd on an existing key.
func (c *Client) Store(ctx context.Context, mode StoreMode, key string, value any, ttl time.Duration) (bool, error) {
	k, err := c.cfg.KeyTransformer.Transform(key)
	if err != nil {
		return false, err
	}
	it, err := c.cfg.Transcoder.Encode(value)
	if err != nil {
		return false, err
	}
	exp := expiration(ttl, c.now())
	var stored bool
	err = c.with(ctx, mode.verb(), k, func(cn *conn) (bool, error) {
		var healthy bool
		var err error
		stored, healthy, err = cn.store(ctx, mode, k, it, exp)
		return healthy, err
	})
	return stored, err
}

// Remove deletes key and reports whether it existed.
func (c *Client) Remove(ctx context.Context, key string) (bool, error) {
	k, err := c.cfg.KeyTransformer.Transform(key)
	if err != nil {
		return false, err
	}
	var deleted bool
	err = c.with(ctx, "delete", k, func(cn *conn) (bool, error) {
		var healthy bool
		var err error
		deleted, healthy, err = cn.delete(ctx, k)
		return healthy, err
	})
	return deleted, err
}

// FlushAll invalidates every item on every server. Live servers are flushed
// even when others fail; a server skipped as dead is reported with
// ErrServerDead because its items survive the flush.
func (c *Client) FlushAll(ctx context.Context) error {
	var errs []error
	for _, p := range c.pools {
		err := c.on(ctx, p, "flush_all", func(cn *conn) (bool, error) {
			return cn.flushAll(ctx)
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stats returns per-server statistics keyed by server address. Dead servers
// are omitted.
func (c *Client) Stats(ctx context.Context) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string, len(c.pools))
	var errs []error
	for _, p := range c.pools {
		var stats map[string]string
		err := c.on(ctx, p, "stats", func(cn *conn) (bool, error) {
			var healthy bool
			var err error
			stats, healthy, err = cn.stats(ctx)
			return healthy, err
		})
		switch {
		case errors.Is(err, ErrServerDead):
		case err != nil:
			errs = append(errs, err)
		default:
			out[p.addr] = stats
		}
	}
	return out, errors.Join(errs...)
}

// Close closes every idle connection and fails later operations. Connections
// in use are closed when they are released.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	for _, p := range c.pools {
		p.close()
	}
	c.logger.Debug("memcached client closed")
	return nil
}

// with runs fn on a connection to the server owning key.
func (c *Client) with(ctx context.Context, op, key string, fn func(*conn) (bool, error)) error {
	return c.on(ctx, c.locator.locate(key), op, fn)
}

func (c *Client) on(ctx context.Context, p *socketPool, op string, fn func(*conn) (bool, error)) error {
	if c.closed.Load() {
		return c.backendErr(op, p.addr, ErrClientClosed)
	}
	cn, err := p.acquire(ctx)
	if err != nil {
		return c.backendErr(op, p.addr, err)
	}
	healthy, err := fn(cn)
	p.release(cn, healthy)
	if err != nil {
		return c.backendErr(op, p.addr, err)
	}
	return nil
}

func (c *Client) backendErr(op, addr string, err error) error {
	return &cachekit.BackendError{Provider: c.cfg.Name, Op: op, Server: addr, Err: err}
}
