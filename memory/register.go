// Package memory registers an in-process cache provider backed by go-cache.
package memory

import (
	"go.uber.org/zap"

	"github.com/goforj/cachekit"
	"github.com/goforj/cachekit/cachecore"
	"github.com/goforj/cachekit/config"
)

var backend = cachekit.Backend[Options]{
	Type:        cachecore.ProviderInMemory,
	DefaultName: cachekit.DefaultInMemoryName,
	Section:     cachekit.InMemorySection,
	Defaults:    DefaultOptions,
	Setup:       func(r *cachekit.Registry, _ string) { cachekit.AddDefaultSerializer(r) },
	Build:       build,
}

// AddDefault registers the DefaultInMemory provider configured by fn.
// @group InMemory
//
// Example: in-memory provider with a size cap
//
//	r := cachekit.NewRegistry()
//	_, err := memory.AddDefault(r, func(o *memory.Options) {
//		o.DBConfig.SizeLimit = 10_000
//	})
func AddDefault(r *cachekit.Registry, fn func(*Options)) (*cachekit.Registry, error) {
	return backend.AddDefault(r, fn)
}

// AddDefaultFromConfig registers the DefaultInMemory provider from the
// "cachekit:inmemory" section of cfg.
// @group InMemory
func AddDefaultFromConfig(r *cachekit.Registry, cfg *config.Config) (*cachekit.Registry, error) {
	return backend.AddDefaultFromConfig(r, cfg)
}

// AddNamed registers an in-memory provider under name.
// @group InMemory
func AddNamed(r *cachekit.Registry, name string, fn func(*Options)) (*cachekit.Registry, error) {
	return backend.AddNamed(r, name, fn)
}

// AddNamedFromConfig registers an in-memory provider under name from the
// "cachekit:inmemory" section of cfg.
// @group InMemory
func AddNamedFromConfig(r *cachekit.Registry, name string, cfg *config.Config) (*cachekit.Registry, error) {
	return backend.AddNamedFromConfig(r, name, cfg)
}

// New returns a standalone in-memory provider outside any registry.
func New(name string, opts Options) *cachekit.StoreProvider {
	base := cachekit.NewProviderBase(name, cachecore.ProviderInMemory, opts.BaseOptions, nil, nil)
	return cachekit.NewStoreProvider(base, NewStore(opts.DBConfig), nil)
}

func build(r *cachekit.Registry, name string, opts Options) (cachekit.Provider, error) {
	s, err := cachekit.ResolveSerializer(r, name, opts.SerializerName)
	if err != nil {
		return nil, err
	}
	logger := r.Logger().Named("inmemory").With(zap.String("provider", name))
	base := cachekit.NewProviderBase(name, cachecore.ProviderInMemory, opts.BaseOptions, logger, r.Observer())
	logger.Debug("in-memory provider built",
		zap.Int("size_limit", opts.DBConfig.SizeLimit),
		zap.Duration("scan_frequency", opts.DBConfig.ExpirationScanFrequency.Std()),
		zap.String("serializer", s.Name()),
	)
	return cachekit.NewStoreProvider(base, NewStore(opts.DBConfig), s), nil
}
