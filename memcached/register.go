package memcached

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/goforj/cachekit"
	"github.com/goforj/cachekit/cachecore"
	"github.com/goforj/cachekit/config"
)

var backend = cachekit.Backend[Options]{
	Type:        cachecore.ProviderMemcached,
	DefaultName: cachekit.DefaultMemcachedName,
	Section:     cachekit.MemcachedSection,
	Defaults:    DefaultOptions,
	Setup:       setup,
	Build:       build,
}

// AddDefault registers the DefaultMemcached provider configured by fn.
// Calling it again adds fn on top of the earlier configuration.
// @group Memcached
//
// Example: register with a callback
//
//	r := cachekit.NewRegistry()
//	_, err := memcached.AddDefault(r, func(o *memcached.Options) {
//		o.DBConfig.AddServer("memcached", 11211)
//		o.DBConfig.SocketPool.MinPoolSize = 5
//		o.DBConfig.SocketPool.MaxPoolSize = 25
//	})
func AddDefault(r *cachekit.Registry, fn func(*Options)) (*cachekit.Registry, error) {
	return backend.AddDefault(r, fn)
}

// AddDefaultFromConfig registers the DefaultMemcached provider from the
// "cachekit:memcached" section of cfg.
// @group Memcached
//
// Example: register from configuration
//
//	cfg, _ := config.Load("appsettings.yaml")
//	_, err := memcached.AddDefaultFromConfig(cachekit.NewRegistry(), cfg)
func AddDefaultFromConfig(r *cachekit.Registry, cfg *config.Config) (*cachekit.Registry, error) {
	return backend.AddDefaultFromConfig(r, cfg)
}

// AddNamed registers a memcached provider under name.
// @group Memcached
func AddNamed(r *cachekit.Registry, name string, fn func(*Options)) (*cachekit.Registry, error) {
	return backend.AddNamed(r, name, fn)
}

// AddNamedFromConfig registers a memcached provider under name from the
// "cachekit:memcached" section of cfg.
// @group Memcached
func AddNamedFromConfig(r *cachekit.Registry, name string, cfg *config.Config) (*cachekit.Registry, error) {
	return backend.AddNamedFromConfig(r, name, cfg)
}

// ClientFor returns the client backing the memcached provider name,
// constructing the provider if needed.
func ClientFor(r *cachekit.Registry, name string) (*Client, error) {
	p, err := r.Provider(name)
	if err != nil {
		return nil, err
	}
	mp, ok := p.(*Provider)
	if !ok {
		return nil, &cachekit.ConfigurationError{Provider: name, Field: "CachingProviderType", Err: fmt.Errorf("provider is %s, not memcached", p.Type())}
	}
	return mp.client, nil
}

// clientSet is the per-registry store of client configurations and clients.
type clientSet struct {
	mu          sync.Mutex
	descriptors []*descriptor
	clients     map[string]*Client
}

// descriptor is a registered client configuration, built on first use.
type descriptor struct {
	name string
	once sync.Once
	cfg  *ClientConfiguration
	err  error
}

func clients(r *cachekit.Registry) *clientSet {
	return cachekit.GetOrAddSingleton(r, func() *clientSet {
		return &clientSet{clients: make(map[string]*Client)}
	})
}

// declare adds a descriptor for name unless one exists.
func (s *clientSet) declare(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.descriptors {
		if d.name == name {
			return
		}
	}
	s.descriptors = append(s.descriptors, &descriptor{name: name})
}

// configuration returns the client configuration of the first descriptor
// named name, building it with mk on first use.
func (s *clientSet) configuration(name string, mk func() (*ClientConfiguration, error)) (*ClientConfiguration, error) {
	s.mu.Lock()
	var d *descriptor
	for _, c := range s.descriptors {
		if c.name == name {
			d = c
			break
		}
	}
	s.mu.Unlock()
	if d == nil {
		return nil, &cachekit.ConfigurationError{Provider: name, Err: fmt.Errorf("no client configuration registered for %q", name)}
	}
	d.once.Do(func() { d.cfg, d.err = mk() })
	return d.cfg, d.err
}

// client returns the client for cfg.Name, creating it on first use.
func (s *clientSet) client(cfg *ClientConfiguration) (client *Client, created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[cfg.Name]; ok {
		return c, false, nil
	}
	c, err := NewClient(cfg)
	if err != nil {
		return nil, false, err
	}
	s.clients[cfg.Name] = c
	return c, true, nil
}

func setup(r *cachekit.Registry, name string) {
	cachekit.AddDefaultSerializer(r)
	cachekit.TryAddSingleton[KeyTransformer](r, DefaultKeyTransformer{})
	clients(r).declare(name)
}

func build(r *cachekit.Registry, name string, opts Options) (cachekit.Provider, error) {
	logger := r.Logger().Named("memcached").With(zap.String("provider", name))

	s, err := cachekit.ResolveSerializer(r, name, opts.SerializerName)
	if err != nil {
		return nil, err
	}
	transcoder, ok := cachekit.Service[Transcoder](r)
	if !ok {
		transcoder = NewTranscoder(s)
	}
	transformer, ok := cachekit.Service[KeyTransformer](r)
	if !ok {
		transformer = DefaultKeyTransformer{}
	}

	dial, _ := cachekit.Service[DialFunc](r)

	set := clients(r)
	cfg, err := set.configuration(name, func() (*ClientConfiguration, error) {
		cfg, err := NewClientConfiguration(name, opts.DBConfig, logger, transcoder, transformer)
		if err != nil {
			return nil, err
		}
		cfg.Dial = dial
		return cfg, nil
	})
	if err != nil {
		return nil, err
	}
	client, created, err := set.client(cfg)
	if err != nil {
		return nil, err
	}
	if created {
		r.OnClose(func(context.Context) error { return client.Close() })
	}

	base := cachekit.NewProviderBase(name, cachecore.ProviderMemcached, opts.BaseOptions, logger, r.Observer())
	logger.Debug("memcached provider built",
		zap.Strings("servers", client.Servers()),
		zap.Int("max_pool", cfg.SocketPool.MaxPoolSize),
		zap.String("serializer", s.Name()),
	)
	return NewProvider(base, client), nil
}
