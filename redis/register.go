// Package redis registers a cache provider backed by go-redis.
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/goforj/cachekit"
	"github.com/goforj/cachekit/cachecore"
	"github.com/goforj/cachekit/config"
)

// ClientFactory creates the client for a provider. Register one with
// cachekit.AddSingleton to replace NewClient.
type ClientFactory func(name string, opts ClientOptions) (Client, error)

var backend = cachekit.Backend[Options]{
	Type:        cachecore.ProviderRedis,
	DefaultName: cachekit.DefaultRedisName,
	Section:     cachekit.RedisSection,
	Defaults:    DefaultOptions,
	Setup:       func(r *cachekit.Registry, _ string) { cachekit.AddDefaultSerializer(r) },
	Build:       build,
}

// AddDefault registers the DefaultRedis provider configured by fn.
// @group Redis
//
// Example: redis provider
//
//	r := cachekit.NewRegistry()
//	_, err := redis.AddDefault(r, func(o *redis.Options) {
//		o.DBConfig.Endpoints = []string{"redis:6379"}
//		o.DBConfig.KeyPrefix = "app"
//	})
func AddDefault(r *cachekit.Registry, fn func(*Options)) (*cachekit.Registry, error) {
	return backend.AddDefault(r, fn)
}

// AddDefaultFromConfig registers the DefaultRedis provider from the
// "cachekit:redis" section of cfg.
// @group Redis
func AddDefaultFromConfig(r *cachekit.Registry, cfg *config.Config) (*cachekit.Registry, error) {
	return backend.AddDefaultFromConfig(r, cfg)
}

// AddNamed registers a redis provider under name.
// @group Redis
func AddNamed(r *cachekit.Registry, name string, fn func(*Options)) (*cachekit.Registry, error) {
	return backend.AddNamed(r, name, fn)
}

// AddNamedFromConfig registers a redis provider under name from the
// "cachekit:redis" section of cfg.
// @group Redis
func AddNamedFromConfig(r *cachekit.Registry, name string, cfg *config.Config) (*cachekit.Registry, error) {
	return backend.AddNamedFromConfig(r, name, cfg)
}

// NewClient builds a go-redis universal client from opts.
func NewClient(_ string, opts ClientOptions) (Client, error) {
	addrs := opts.Endpoints
	if len(addrs) == 0 {
		addrs = []string{DefaultAddr}
	}
	return goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:        addrs,
		MasterName:   opts.MasterName,
		Username:     opts.Username,
		Password:     opts.Password,
		DB:           opts.Database,
		PoolSize:     opts.PoolSize,
		DialTimeout:  opts.DialTimeout.Std(),
		ReadTimeout:  opts.ReadTimeout.Std(),
		WriteTimeout: opts.WriteTimeout.Std(),
	}), nil
}

func validate(name string, opts ClientOptions) error {
	if opts.Database < 0 {
		return &cachekit.ConfigurationError{Provider: name, Field: "Database", Err: fmt.Errorf("must not be negative, got %d", opts.Database)}
	}
	if opts.PoolSize < 0 {
		return &cachekit.ConfigurationError{Provider: name, Field: "PoolSize", Err: fmt.Errorf("must not be negative, got %d", opts.PoolSize)}
	}
	for i, ep := range opts.Endpoints {
		if ep == "" {
			return &cachekit.ConfigurationError{Provider: name, Field: fmt.Sprintf("Endpoints[%d]", i), Err: fmt.Errorf("must not be empty")}
		}
	}
	if len(opts.Endpoints) > 1 && opts.Database != 0 && opts.MasterName == "" {
		return &cachekit.ConfigurationError{Provider: name, Field: "Database", Err: fmt.Errorf("cluster clients only support database 0")}
	}
	return nil
}

func build(r *cachekit.Registry, name string, opts Options) (cachekit.Provider, error) {
	if err := validate(name, opts.DBConfig); err != nil {
		return nil, err
	}
	s, err := cachekit.ResolveSerializer(r, name, opts.SerializerName)
	if err != nil {
		return nil, err
	}
	mk, ok := cachekit.Service[ClientFactory](r)
	if !ok {
		mk = NewClient
	}
	client, err := mk(name, opts.DBConfig)
	if err != nil {
		return nil, &cachekit.ConfigurationError{Provider: name, Err: err}
	}
	prefix := opts.DBConfig.KeyPrefix
	if prefix == "" {
		prefix = name
	}
	store := NewStore(client, prefix)
	r.OnClose(func(context.Context) error { return store.Close() })

	logger := r.Logger().Named("redis").With(zap.String("provider", name))
	base := cachekit.NewProviderBase(name, cachecore.ProviderRedis, opts.BaseOptions, logger, r.Observer())
	logger.Debug("redis provider built",
		zap.Strings("endpoints", opts.DBConfig.Endpoints),
		zap.Int("database", opts.DBConfig.Database),
		zap.String("prefix", prefix),
		zap.String("serializer", s.Name()),
	)
	return cachekit.NewStoreProvider(base, store, s), nil
}
