// Package sqlite registers a cache provider persisted in a sqlite database
// through modernc.org/sqlite.
package sqlite

import (
	"context"

	"go.uber.org/zap"

	"github.com/goforj/cachekit"
	"github.com/goforj/cachekit/cachecore"
	"github.com/goforj/cachekit/config"
)

var backend = cachekit.Backend[Options]{
	Type:        cachecore.ProviderSQLite,
	DefaultName: cachekit.DefaultSQLiteName,
	Section:     cachekit.SQLiteSection,
	Defaults:    DefaultOptions,
	Setup:       func(r *cachekit.Registry, _ string) { cachekit.AddDefaultSerializer(r) },
	Build:       build,
}

// AddDefault registers the DefaultSQLite provider configured by fn.
// @group SQLite
//
// Example: sqlite provider in a data directory
//
//	r := cachekit.NewRegistry()
//	_, err := sqlite.AddDefault(r, func(o *sqlite.Options) {
//		o.DBConfig.Path = "/var/lib/app/cache.db"
//		o.DBConfig.WAL = true
//	})
func AddDefault(r *cachekit.Registry, fn func(*Options)) (*cachekit.Registry, error) {
	return backend.AddDefault(r, fn)
}

// AddDefaultFromConfig registers the DefaultSQLite provider from the
// "cachekit:sqlite" section of cfg.
// @group SQLite
func AddDefaultFromConfig(r *cachekit.Registry, cfg *config.Config) (*cachekit.Registry, error) {
	return backend.AddDefaultFromConfig(r, cfg)
}

// AddNamed registers a sqlite provider under name.
// @group SQLite
func AddNamed(r *cachekit.Registry, name string, fn func(*Options)) (*cachekit.Registry, error) {
	return backend.AddNamed(r, name, fn)
}

// AddNamedFromConfig registers a sqlite provider under name from the
// "cachekit:sqlite" section of cfg.
// @group SQLite
func AddNamedFromConfig(r *cachekit.Registry, name string, cfg *config.Config) (*cachekit.Registry, error) {
	return backend.AddNamedFromConfig(r, name, cfg)
}

func build(r *cachekit.Registry, name string, opts Options) (cachekit.Provider, error) {
	if opts.DBConfig.Table == "" {
		opts.DBConfig.Table = DefaultTable
	}
	if err := ValidateTable(opts.DBConfig.Table); err != nil {
		return nil, &cachekit.ConfigurationError{Provider: name, Field: "Table", Err: err}
	}
	s, err := cachekit.ResolveSerializer(r, name, opts.SerializerName)
	if err != nil {
		return nil, err
	}
	store, err := Open(context.Background(), opts.DBConfig)
	if err != nil {
		return nil, cachekit.WrapBackend(name, "open", opts.DBConfig.Path, err)
	}
	r.OnClose(func(context.Context) error { return store.Close() })

	logger := r.Logger().Named("sqlite").With(zap.String("provider", name))
	base := cachekit.NewProviderBase(name, cachecore.ProviderSQLite, opts.BaseOptions, logger, r.Observer())
	logger.Debug("sqlite provider built",
		zap.String("path", opts.DBConfig.Path),
		zap.String("table", store.Table()),
		zap.String("serializer", s.Name()),
	)
	return cachekit.NewStoreProvider(base, store, s), nil
}
