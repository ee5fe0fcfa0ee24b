package redis

import (
	"time"

	"github.com/goforj/cachekit/cachecore"
	"github.com/goforj/cachekit/config"
)

// DefaultAddr is used when no endpoint is configured.
const DefaultAddr = "127.0.0.1:6379"

// Options configures a redis provider. Bound from:
//
//	cachekit:
//	  redis:
//	    MaxRdSecond: 60
//	    dbconfig:
//	      Endpoints: ["redis:6379"]
//	      Database: 2
//	      KeyPrefix: sessions
//	      DialTimeout: "00:00:05"
type Options struct {
	cachecore.BaseOptions `yaml:",inline"`

	DBConfig ClientOptions `yaml:"dbconfig"`
}

// ClientOptions holds the go-redis connection settings.
type ClientOptions struct {
	// Endpoints are host:port pairs. More than one selects a cluster client,
	// and MasterName selects a sentinel failover client.
	Endpoints  []string `yaml:"endpoints"`
	MasterName string   `yaml:"mastername"`
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	Database   int      `yaml:"database"`

	// KeyPrefix namespaces every key. Empty uses the provider name.
	KeyPrefix string `yaml:"keyprefix"`

	PoolSize     int             `yaml:"poolsize"`
	DialTimeout  config.Duration `yaml:"dialtimeout"`
	ReadTimeout  config.Duration `yaml:"readtimeout"`
	WriteTimeout config.Duration `yaml:"writetimeout"`
}

// DefaultOptions returns Options populated with defaults.
func DefaultOptions() Options {
	return Options{
		BaseOptions: cachecore.DefaultBaseOptions(),
		DBConfig: ClientOptions{
			DialTimeout:  config.Duration(5 * time.Second),
			ReadTimeout:  config.Duration(3 * time.Second),
			WriteTimeout: config.Duration(3 * time.Second),
		},
	}
}
