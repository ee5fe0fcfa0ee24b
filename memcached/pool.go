package memcached

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrPoolExhausted is returned when no connection frees up within
	// QueueTimeout.
	ErrPoolExhausted = errors.New("memcached: connection pool exhausted")
	// ErrServerDead is returned while a server is skipped after a failed
	// connection attempt.
	ErrServerDead = errors.New("memcached: server marked dead")
	// ErrClientClosed is returned by operations on a closed client.
	ErrClientClosed = errors.New("memcached: client closed")
)

// socketPool holds the connections to one server. At most MaxPoolSize
// connections are in use at once; idle ones are kept for reuse.
type socketPool struct {
	addr   string
	opts   SocketPoolOptions
	dial   DialFunc
	logger *zap.Logger

	sem  *semaphore.Weighted
	idle chan *conn

	mu        sync.Mutex
	deadUntil time.Time

	closed atomic.Bool
	open   atomic.Int64
}

func newSocketPool(addr string, opts SocketPoolOptions, dial DialFunc, logger *zap.Logger) *socketPool {
	if dial == nil {
		d := &net.Dialer{Timeout: opts.ConnectionTimeout}
		dial = d.DialContext
	}
	return &socketPool{
		addr:   addr,
		opts:   opts,
		dial:   dial,
		logger: logger.With(zap.String("server", addr)),
		sem:    semaphore.NewWeighted(int64(opts.MaxPoolSize)),
		idle:   make(chan *conn, opts.MaxPoolSize),
	}
}

// alive reports whether the server may be used. A dead server becomes usable
// again once DeadTimeout has elapsed.
func (p *socketPool) alive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deadUntil.IsZero() {
		return true
	}
	if time.Now().Before(p.deadUntil) {
		return false
	}
	p.deadUntil = time.Time{}
	p.logger.Debug("memcached server revived")
	return true
}

func (p *socketPool) markDead(err error) {
	p.mu.Lock()
	p.deadUntil = time.Now().Add(p.opts.DeadTimeout)
	p.mu.Unlock()
	p.logger.Warn("memcached server marked dead", zap.Duration("for", p.opts.DeadTimeout), zap.Error(err))
	p.drain()
}

// acquire returns a connection, waiting at most QueueTimeout for a free slot.
func (p *socketPool) acquire(ctx context.Context) (*conn, error) {
	if p.closed.Load() {
		return nil, ErrClientClosed
	}
	if !p.alive() {
		return nil, ErrServerDead
	}

	qctx, cancel := context.WithTimeout(ctx, p.opts.QueueTimeout)
	err := p.sem.Acquire(qctx, 1)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logger.Warn("memcached pool exhausted", zap.Int("max", p.opts.MaxPoolSize), zap.Duration("waited", p.opts.QueueTimeout))
		return nil, ErrPoolExhausted
	}

	select {
	case c := <-p.idle:
		return c, nil
	default:
	}

	c, err := p.connect(ctx)
	if err != nil {
		p.sem.Release(1)
		return nil, err
	}
	return c, nil
}

// release returns c to the pool, or closes it when it is no longer healthy.
func (p *socketPool) release(c *conn, healthy bool) {
	defer p.sem.Release(1)
	if !healthy || p.closed.Load() {
		p.discard(c)
		return
	}
	select {
	case p.idle <- c:
	default:
		p.discard(c)
	}
}

func (p *socketPool) connect(ctx context.Context) (*conn, error) {
	dctx, cancel := context.WithTimeout(ctx, p.opts.ConnectionTimeout)
	defer cancel()
	nc, err := p.dial(dctx, "tcp", p.addr)
	if err != nil {
		if ctx.Err() == nil {
			p.markDead(err)
		}
		return nil, err
	}
	p.open.Add(1)
	return newConn(p.addr, nc, p.opts.ReceiveTimeout), nil
}

func (p *socketPool) discard(c *conn) {
	_ = c.close()
	p.open.Add(-1)
}

// warm opens connections until n are idle or the pool is full.
func (p *socketPool) warm(ctx context.Context, n int) error {
	if n > p.opts.MaxPoolSize {
		n = p.opts.MaxPoolSize
	}
	for len(p.idle) < n {
		if !p.sem.TryAcquire(1) {
			return nil
		}
		c, err := p.connect(ctx)
		if err != nil {
			p.sem.Release(1)
			return err
		}
		p.release(c, true)
	}
	return nil
}

func (p *socketPool) drain() {
	for {
		select {
		case c := <-p.idle:
			p.discard(c)
		default:
			return
		}
	}
}

func (p *socketPool) close() {
	if p.closed.Swap(true) {
		return
	}
	p.drain()
}
