// Package cachekit is a named, multi-instance cache-provider registry.
//
// Backends (memcached, memory, redis, sqlite) register providers into a
// Registry under a name, either from a configure callback or from a section
// of a config.Config tree. Providers are constructed once, on first lookup or
// on Build, and every lookup of a name returns the same instance.
//
//	r := cachekit.NewRegistry(cachekit.WithLogger(logger))
//	if _, err := memcached.AddDefaultFromConfig(r, cfg); err != nil {
//		return err
//	}
//	if err := r.Build(ctx); err != nil {
//		return err
//	}
//	defer r.Close(ctx)
//
//	p, _ := r.Provider(cachekit.DefaultMemcachedName)
//	v, err := cachekit.Get[User](ctx, p, "user:42")
package cachekit
