package sqlite

import (
	"time"

	"github.com/goforj/cachekit/cachecore"
	"github.com/goforj/cachekit/config"
)

// Defaults applied when a setting is left empty.
const (
	DefaultPath        = "cachekit.db"
	DefaultTable       = "cache_entries"
	DefaultBusyTimeout = 5 * time.Second
	MemoryPath         = ":memory:"
)

// Options configures a sqlite provider. Bound from:
//
//	cachekit:
//	  sqlite:
//	    dbconfig:
//	      Path: /var/lib/app/cache.db
//	      Table: http_cache
//	      BusyTimeout: "00:00:02"
type Options struct {
	cachecore.BaseOptions `yaml:",inline"`

	DBConfig StoreOptions `yaml:"dbconfig"`
}

// StoreOptions holds the database settings.
type StoreOptions struct {
	// Path is the database file, or MemoryPath for a private in-memory database.
	Path string `yaml:"path"`
	// Table holds the entries. It may be schema qualified ("main.cache").
	Table string `yaml:"table"`
	// BusyTimeout bounds waiting on a locked database.
	BusyTimeout config.Duration `yaml:"busytimeout"`
	// WAL enables write-ahead logging for file databases.
	WAL bool `yaml:"wal"`
}

// DefaultOptions returns Options populated with defaults.
func DefaultOptions() Options {
	return Options{
		BaseOptions: cachecore.DefaultBaseOptions(),
		DBConfig: StoreOptions{
			Path:        DefaultPath,
			Table:       DefaultTable,
			BusyTimeout: config.Duration(DefaultBusyTimeout),
		},
	}
}
