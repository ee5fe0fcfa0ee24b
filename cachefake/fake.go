// Package cachefake provides an in-memory cachekit.Provider that records
// every operation, for tests of code that depends on a provider.
package cachefake

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goforj/cachekit"
	"github.com/goforj/cachekit/cachecore"
	"github.com/goforj/cachekit/memory"
)

// Op identifies a cache operation for assertions.
type Op string

const (
	OpGet       Op = cachekit.OpGet
	OpSet       Op = cachekit.OpSet
	OpTrySet    Op = cachekit.OpTrySet
	OpExists    Op = cachekit.OpExists
	OpRemove    Op = cachekit.OpRemove
	OpRemoveAll Op = cachekit.OpRemoveAll
	OpFlush     Op = cachekit.OpFlush
)

// Fake exposes a deterministic in-memory provider plus assertion helpers.
// Jitter is disabled so expirations are exact.
type Fake struct {
	provider *cachekit.StoreProvider
	counts   map[Op]map[string]int
	mu       sync.Mutex
}

// New creates a Fake named name.
//
// Example: assert a loader hit the cache
//
//	f := cachefake.New("users")
//	svc := NewUserService(f.Provider())
//	svc.Lookup(ctx, 42)
//	f.AssertCalled(t, cachefake.OpGet, "user:42", 1)
func New(name string) *Fake {
	f := &Fake{counts: make(map[Op]map[string]int)}
	opts := memory.DefaultOptions()
	opts.MaxRdSecond = 0
	base := cachekit.NewProviderBase(name, cachecore.ProviderInMemory, opts.BaseOptions, nil, cachekit.ObserverFunc(f.observe))
	f.provider = cachekit.NewStoreProvider(base, memory.NewStore(opts.DBConfig), nil)
	return f
}

// Provider returns the provider to inject into code under test.
func (f *Fake) Provider() cachekit.Provider { return f.provider }

// Register binds the fake into r under its name.
func (f *Fake) Register(r *cachekit.Registry) error {
	return r.Register(f.provider.Name(), cachecore.ProviderInMemory, func(*cachekit.Registry, string) (cachekit.Provider, error) {
		return f.provider, nil
	})
}

// Reset clears recorded counts.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts = make(map[Op]map[string]int)
}

// AssertCalled verifies key was touched by op the expected number of times.
func (f *Fake) AssertCalled(t testing.TB, op Op, key string, times int) {
	t.Helper()
	if got := f.Count(op, key); got != times {
		t.Fatalf("expected %s %q called %d times, got %d", op, key, times, got)
	}
}

// AssertNotCalled ensures key was never touched by op.
func (f *Fake) AssertNotCalled(t testing.TB, op Op, key string) {
	t.Helper()
	if got := f.Count(op, key); got != 0 {
		t.Fatalf("expected %s %q not called, got %d", op, key, got)
	}
}

// AssertTotal ensures the total call count for an op matches times.
func (f *Fake) AssertTotal(t testing.TB, op Op, times int) {
	t.Helper()
	if got := f.Total(op); got != times {
		t.Fatalf("expected %s total=%d, got %d", op, times, got)
	}
}

// Count returns calls for op+key. RemoveAll and Flush are recorded under "".
func (f *Fake) Count(op Op, key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[op][key]
}

// Total returns total calls for an op across keys.
func (f *Fake) Total(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int
	for _, v := range f.counts[op] {
		sum += v
	}
	return sum
}

func (f *Fake) observe(_ context.Context, op, _, key string, _ bool, _ error, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts[Op(op)] == nil {
		f.counts[Op(op)] = make(map[string]int)
	}
	f.counts[Op(op)][key]++
}
