package cachekit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goforj/cachekit/cachecore"
)

type observerSpy struct {
	mu   sync.Mutex
	ops  []string
	hits []bool
}

func (o *observerSpy) OnCacheOp(_ context.Context, op, provider, key string, hit bool, _ error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, provider+"/"+op+":"+key)
	o.hits = append(o.hits, hit)
}

func TestObserverSeesProviderOps(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	spy := &observerSpy{}
	p, _ := newStoreProvider(t, cachecore.BaseOptions{}, spy)

	require.NoError(t, p.Set(ctx, "k", "v", time.Minute))
	_, err := p.Get(ctx, "k", new(string))
	require.NoError(t, err)
	_, err = p.TrySet(ctx, "k", "w", time.Minute)
	require.NoError(t, err)
	_, err = p.Exists(ctx, "gone")
	require.NoError(t, err)
	require.NoError(t, p.Remove(ctx, "k"))
	require.NoError(t, p.RemoveAll(ctx, "k"))
	require.NoError(t, p.Flush(ctx))

	assert.Equal(t, []string{
		"sp/set:k",
		"sp/get:k",
		"sp/try_set:k",
		"sp/exists:gone",
		"sp/remove:k",
		"sp/remove_all:",
		"sp/flush:",
	}, spy.ops)
	assert.Equal(t, []bool{false, true, false, false, false, false, false}, spy.hits)
}

func TestObserverSkipsRejectedArguments(t *testing.T) {
	t.Parallel()
	spy := &observerSpy{}
	p, _ := newStoreProvider(t, cachecore.BaseOptions{}, spy)
	require.ErrorIs(t, p.Set(context.Background(), "", 1, time.Minute), ErrArgument)
	assert.Empty(t, spy.ops)
}

func TestRegistryObserverReachesProviders(t *testing.T) {
	t.Parallel()
	spy := &observerSpy{}
	r := NewRegistry(WithObserver(spy))
	_, err := toyBackend(nil).AddDefault(r, func(*toyOptions) {})
	require.NoError(t, err)

	p, err := r.Provider(DefaultInMemoryName)
	require.NoError(t, err)
	_, err = p.Exists(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultInMemoryName + "/exists:x"}, spy.ops)
}

func TestObserverFuncNil(t *testing.T) {
	t.Parallel()
	var f ObserverFunc
	assert.NotPanics(t, func() { f.OnCacheOp(context.Background(), OpGet, "p", "k", false, nil, 0) })
}
