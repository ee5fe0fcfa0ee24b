package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goforj/cachekit/cachecore"
	"github.com/goforj/cachekit/cachetest"
)

func TestStoreContract(t *testing.T) {
	t.Parallel()
	store := NewStore(newStubClient(), "contract")
	assert.Equal(t, cachecore.ProviderRedis, store.Type())
	cachetest.RunStoreContract(t, store, cachetest.Options{SkipCloneCheck: true})
}

func TestStorePrefixesKeys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client := newStubClient()
	store := NewStore(client, "pfx")

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	assert.Equal(t, []string{"pfx:k"}, client.keys())

	other := NewStore(client, "other")
	require.NoError(t, other.Set(ctx, "k", []byte("w"), time.Minute))
	require.NoError(t, store.Flush(ctx))
	assert.Equal(t, []string{"other:k"}, client.keys())

	bare := NewStore(client, "")
	_, ok, err := bare.Get(ctx, "other:k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStoreFlushEscapesPrefixPattern(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client := newStubClient()

	for _, prefix := range []string{"ab", "a*", "a?", "[ab]", `a\b`} {
		require.NoError(t, NewStore(client, prefix).Set(ctx, "k", []byte("v"), time.Minute))
	}

	for _, prefix := range []string{"a*", "a?", "[ab]", `a\b`} {
		require.NoError(t, NewStore(client, prefix).Flush(ctx), prefix)
		assert.Contains(t, client.keys(), "ab:k", "flush of %q reached another namespace", prefix)
	}
	assert.Equal(t, []string{"ab:k"}, client.keys())
}

func TestStoreNilClient(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewStore(nil, "x")

	_, _, err := store.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNoClient)
	require.ErrorIs(t, store.Set(ctx, "k", nil, time.Second), ErrNoClient)
	_, err = store.Add(ctx, "k", nil, time.Second)
	require.ErrorIs(t, err, ErrNoClient)
	require.ErrorIs(t, store.Delete(ctx, "k"), ErrNoClient)
	require.ErrorIs(t, store.DeleteMany(ctx, "k"), ErrNoClient)
	require.ErrorIs(t, store.Flush(ctx), ErrNoClient)
	require.NoError(t, store.Close())
}

func TestStoreClientErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	boom := errors.New("boom")
	client := newStubClient()
	client.getErr, client.setErr, client.setNXErr, client.delErr, client.scanErr = boom, boom, boom, boom, boom
	store := NewStore(client, "e")

	_, _, err := store.Get(ctx, "k")
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, store.Set(ctx, "k", []byte("v"), time.Second), boom)
	_, err = store.Add(ctx, "k", []byte("v"), time.Second)
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, store.Delete(ctx, "k"), boom)
	require.ErrorIs(t, store.Flush(ctx), boom)
}
