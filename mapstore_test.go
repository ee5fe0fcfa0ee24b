package cachekit

import (
	"context"
	"sync"
	"time"

	"github.com/goforj/cachekit/cachecore"
)

type mapEntry struct {
	value []byte
	ttl   time.Duration
}

// mapStore is a cachecore.Store over a map that records TTLs and can be told
// to fail.
type mapStore struct {
	mu     sync.Mutex
	data   map[string]mapEntry
	err    error
	closed bool
}

func newMapStore() *mapStore { return &mapStore{data: make(map[string]mapEntry)} }

func (s *mapStore) Type() cachecore.ProviderType { return cachecore.ProviderInMemory }

func (s *mapStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, false, s.err
	}
	e, ok := s.data[key]
	return e.value, ok, nil
}

func (s *mapStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.data[key] = mapEntry{value: value, ttl: ttl}
	return nil
}

func (s *mapStore) Add(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = mapEntry{value: value, ttl: ttl}
	return true, nil
}

func (s *mapStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	delete(s.data, key)
	return nil
}

func (s *mapStore) DeleteMany(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		if err := s.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

func (s *mapStore) Flush(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.data = make(map[string]mapEntry)
	return nil
}

func (s *mapStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *mapStore) entry(key string) (mapEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	return e, ok
}

func (s *mapStore) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// toyOptions and toyBackend exercise Backend without a real backend package.
type toyOptions struct {
	cachecore.BaseOptions `yaml:",inline"`

	DBConfig struct {
		Label string `yaml:"label"`
		Size  int    `yaml:"size"`
	} `yaml:"dbconfig"`
}

func toyBackend(stores map[string]*mapStore) Backend[toyOptions] {
	var mu sync.Mutex
	return Backend[toyOptions]{
		Type:        cachecore.ProviderInMemory,
		DefaultName: DefaultInMemoryName,
		Section:     InMemorySection,
		Defaults: func() toyOptions {
			o := toyOptions{BaseOptions: cachecore.DefaultBaseOptions()}
			o.DBConfig.Size = 8
			return o
		},
		Setup: func(r *Registry, _ string) { AddDefaultSerializer(r) },
		Build: func(r *Registry, name string, opts toyOptions) (Provider, error) {
			s, err := ResolveSerializer(r, name, opts.SerializerName)
			if err != nil {
				return nil, err
			}
			store := newMapStore()
			if stores != nil {
				mu.Lock()
				stores[name] = store
				mu.Unlock()
			}
			base := NewProviderBase(name, cachecore.ProviderInMemory, opts.BaseOptions, r.Logger(), r.Observer())
			return NewStoreProvider(base, store, s), nil
		},
	}
}
