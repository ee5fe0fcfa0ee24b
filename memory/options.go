package memory

import (
	"time"

	"github.com/goforj/cachekit/cachecore"
	"github.com/goforj/cachekit/config"
)

// Defaults applied when a setting is left zero.
const (
	DefaultExpirationScanFrequency = time.Minute
	DefaultSizeLimit               = 0
)

// Options configures an in-memory provider. Bound from:
//
//	cachekit:
//	  inmemory:
//	    MaxRdSecond: 30
//	    dbconfig:
//	      SizeLimit: 10000
//	      ExpirationScanFrequency: "00:01:00"
type Options struct {
	cachecore.BaseOptions `yaml:",inline"`

	DBConfig StoreOptions `yaml:"dbconfig"`
}

// StoreOptions holds go-cache settings.
type StoreOptions struct {
	// SizeLimit caps the number of live entries. New keys are rejected with
	// ErrSizeLimit once it is reached. Zero means unbounded.
	SizeLimit int `yaml:"sizelimit"`
	// ExpirationScanFrequency is how often expired entries are purged.
	ExpirationScanFrequency config.Duration `yaml:"expirationscanfrequency"`
}

// DefaultOptions returns Options populated with defaults.
func DefaultOptions() Options {
	return Options{
		BaseOptions: cachecore.DefaultBaseOptions(),
		DBConfig: StoreOptions{
			SizeLimit:               DefaultSizeLimit,
			ExpirationScanFrequency: config.Duration(DefaultExpirationScanFrequency),
		},
	}
}
