package cachekit

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/goforj/cachekit/cachecore"
)

// Factory constructs the provider registered under name. It runs at most once
// per name, on first lookup or during Build.
type Factory func(r *Registry, name string) (Provider, error)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger handed to providers. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithObserver attaches an observer to every provider built by the registry.
func WithObserver(o Observer) Option {
	return func(r *Registry) { r.observer = o }
}

// Registry maps provider names to lazily constructed providers.
//
// Registration is expected to happen from a single goroutine at startup.
// Lookups are safe for concurrent use and return the same Provider instance
// for a name every time.
type Registry struct {
	mu       sync.RWMutex
	logger   *zap.Logger
	observer Observer
	entries  map[string]*entry
	order    []string
	sources  map[string][]func(any) error
	services map[reflect.Type][]any
	closers  []func(context.Context) error
	built    bool
}

type entry struct {
	typ      cachecore.ProviderType
	factory  Factory
	once     sync.Once
	provider Provider
	err      error
}

// NewRegistry returns an empty registry.
// @group Registry
//
// Example: registry with logging
//
//	logger, _ := zap.NewProduction()
//	r := cachekit.NewRegistry(cachekit.WithLogger(logger))
//	_, err := memcached.AddDefault(r, func(o *memcached.Options) {
//		o.DBConfig.AddServer("127.0.0.1", 11211)
//	})
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		logger:   zap.NewNop(),
		entries:  make(map[string]*entry),
		sources:  make(map[string][]func(any) error),
		services: make(map[reflect.Type][]any),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Logger returns the registry logger.
func (r *Registry) Logger() *zap.Logger { return r.logger }

// Observer returns the registry observer, or nil.
func (r *Registry) Observer() Observer { return r.observer }

// Register binds name to factory. Registering an existing name with the same
// provider type keeps the original entry; a different type is a
// ConfigurationError. New names are rejected once the registry is built.
func (r *Registry) Register(name string, typ cachecore.ProviderType, factory Factory) error {
	if name == "" {
		return NewArgumentError("name", "must not be blank")
	}
	if factory == nil {
		return NewArgumentError("factory", "must not be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[name]; ok {
		if e.typ != typ {
			return &ConfigurationError{
				Provider: name,
				Field:    "CachingProviderType",
				Err:      fmt.Errorf("name already registered as %s, cannot register as %s", e.typ, typ),
			}
		}
		if r.built {
			r.logger.Warn("provider re-registered after build; new options are ignored", zap.String("provider", name))
		}
		return nil
	}
	if r.built {
		return fmt.Errorf("%w: cannot register %q", ErrRegistryBuilt, name)
	}

	r.entries[name] = &entry{typ: typ, factory: factory}
	r.order = append(r.order, name)
	r.logger.Debug("provider registered", zap.String("provider", name), zap.Stringer("type", typ))
	return nil
}

// Provider returns the provider registered under name, constructing it on
// first use. A construction failure is returned on every later lookup too.
// @group Registry
//
// Example: lookup
//
//	p, err := r.Provider(cachekit.DefaultMemcachedName)
//	if err != nil {
//		return err
//	}
//	ok, err := p.Exists(ctx, "user:42")
func (r *Registry) Provider(name string) (Provider, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotFound, name)
	}
	e.once.Do(func() {
		e.provider, e.err = e.factory(r, name)
		if e.err == nil && e.provider == nil {
			e.err = &ConfigurationError{Provider: name, Err: errors.New("factory returned no provider")}
		}
		if e.err != nil {
			r.logger.Error("provider construction failed", zap.String("provider", name), zap.Error(e.err))
		}
	})
	return e.provider, e.err
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Providers builds and returns every provider, sorted by Order (ties keep
// registration order).
func (r *Registry) Providers() ([]Provider, error) {
	var (
		out  []Provider
		errs []error
	)
	for _, name := range r.Names() {
		p, err := r.Provider(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order() < out[j].Order() })
	return out, errors.Join(errs...)
}

// Build freezes the registry and constructs every provider, so configuration
// mistakes surface at startup instead of on first lookup.
func (r *Registry) Build(ctx context.Context) error {
	r.mu.Lock()
	r.built = true
	r.mu.Unlock()

	var errs []error
	for _, name := range r.Names() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := r.Provider(name); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	r.logger.Info("cache registry built", zap.Strings("providers", r.Names()))
	return nil
}

// Built reports whether Build has been called.
func (r *Registry) Built() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.built
}

// OnClose registers fn to run on Close. Hooks run in reverse order.
func (r *Registry) OnClose(fn func(context.Context) error) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closers = append(r.closers, fn)
}

// Close releases resources owned by constructed providers, such as backend
// clients and connection pools.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	closers := r.closers
	r.closers = nil
	r.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) addSource(name string, src func(any) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[name] = append(r.sources[name], src)
}

func (r *Registry) sourcesFor(name string) []func(any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.sources[name])
}
