package cachekit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goforj/cachekit/cachecore"
	"github.com/goforj/cachekit/config"
	"github.com/goforj/cachekit/serializer"
)

const toySettings = `
cachekit:
  inmemory:
    MaxRdSecond: 7
    Order: 3
    dbconfig:
      Label: from-config
`

func TestBackendArgumentErrorsLeaveRegistryUntouched(t *testing.T) {
	t.Parallel()
	b := toyBackend(nil)
	cfg, err := config.Parse([]byte(toySettings))
	require.NoError(t, err)

	_, err = b.AddDefault(nil, func(*toyOptions) {})
	requireArgument(t, err, "services")
	_, err = b.AddDefaultFromConfig(nil, cfg)
	requireArgument(t, err, "services")
	_, err = b.AddNamed(nil, "x", func(*toyOptions) {})
	requireArgument(t, err, "services")
	_, err = b.AddNamedFromConfig(nil, "x", cfg)
	requireArgument(t, err, "services")

	r := NewRegistry()
	_, err = b.AddDefault(r, nil)
	requireArgument(t, err, "providerAction")
	_, err = b.AddDefaultFromConfig(r, nil)
	requireArgument(t, err, "configuration")
	_, err = b.AddNamed(r, "  ", func(*toyOptions) {})
	requireArgument(t, err, "name")
	_, err = b.AddNamed(r, "x", nil)
	requireArgument(t, err, "providerAction")
	_, err = b.AddNamedFromConfig(r, "", cfg)
	requireArgument(t, err, "name")
	_, err = b.AddNamedFromConfig(r, "x", nil)
	requireArgument(t, err, "configuration")
	_, err = b.Register(r, "x", nil)
	requireArgument(t, err, "providerAction")

	assert.Empty(t, r.Names())
	assert.Empty(t, Services[serializer.Serializer](r))
}

func requireArgument(t *testing.T, err error, param string) {
	t.Helper()
	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, param, argErr.Param)
}

func TestBackendSourcesLayerOverDefaults(t *testing.T) {
	t.Parallel()
	b := toyBackend(nil)
	cfg, err := config.Parse([]byte(toySettings))
	require.NoError(t, err)

	r := NewRegistry()
	got, err := b.AddDefaultFromConfig(r, cfg)
	require.NoError(t, err)
	assert.Same(t, r, got)
	_, err = b.AddDefault(r, func(o *toyOptions) { o.DBConfig.Size = 99 })
	require.NoError(t, err)

	opts, err := b.Options(r, DefaultInMemoryName)
	require.NoError(t, err)
	assert.Equal(t, "from-config", opts.DBConfig.Label)
	assert.Equal(t, 99, opts.DBConfig.Size)
	assert.Equal(t, 7, opts.MaxRdSecond)
	assert.Equal(t, 3, opts.Order)
	assert.Equal(t, []string{DefaultInMemoryName}, r.Names())
}

func TestBackendMissingSectionKeepsDefaults(t *testing.T) {
	t.Parallel()
	b := toyBackend(nil)
	cfg, err := config.Parse([]byte("other: {}\n"))
	require.NoError(t, err)

	r := NewRegistry()
	_, err = b.AddNamedFromConfig(r, "n", cfg)
	require.NoError(t, err)
	opts, err := b.Options(r, "n")
	require.NoError(t, err)
	assert.Equal(t, 8, opts.DBConfig.Size)
	assert.Equal(t, cachecore.DefaultMaxRdSecond, opts.MaxRdSecond)
}

func TestBackendBindErrorIsConfigurationError(t *testing.T) {
	t.Parallel()
	b := toyBackend(nil)
	cfg, err := config.Parse([]byte("cachekit:\n  inmemory:\n    dbconfig:\n      size: lots\n"))
	require.NoError(t, err)

	r := NewRegistry()
	_, err = b.AddDefaultFromConfig(r, cfg)
	require.NoError(t, err)
	_, err = r.Provider(DefaultInMemoryName)
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestBackendChecksBaseOptions(t *testing.T) {
	t.Parallel()
	b := toyBackend(nil)
	r := NewRegistry()
	_, err := b.AddNamed(r, "neg", func(o *toyOptions) { o.MaxRdSecond = -1 })
	require.NoError(t, err)
	_, err = b.AddNamed(r, "typ", func(o *toyOptions) { o.CachingProviderType = cachecore.ProviderMemcached })
	require.NoError(t, err)

	var cfgErr *ConfigurationError
	_, err = r.Provider("neg")
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "MaxRdSecond", cfgErr.Field)

	_, err = r.Provider("typ")
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "CachingProviderType", cfgErr.Field)
}

func TestBackendNamedProvidersAreIndependent(t *testing.T) {
	t.Parallel()
	stores := map[string]*mapStore{}
	b := toyBackend(stores)
	r := NewRegistry()
	_, err := b.AddNamed(r, "a", func(o *toyOptions) { o.MaxRdSecond = 0 })
	require.NoError(t, err)
	_, err = b.AddNamed(r, "b", func(o *toyOptions) { o.MaxRdSecond = 0 })
	require.NoError(t, err)

	a, err := r.Provider("a")
	require.NoError(t, err)
	bp, err := r.Provider("b")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, a.Set(ctx, "k", "v", time.Minute))
	ok, err := bp.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotSame(t, stores["a"], stores["b"])
}

func TestBackendWithoutBuilder(t *testing.T) {
	t.Parallel()
	b := Backend[toyOptions]{Type: cachecore.ProviderInMemory}
	r := NewRegistry()
	_, err := b.AddNamed(r, "x", func(*toyOptions) {})
	require.NoError(t, err)
	_, err = r.Provider("x")
	require.ErrorIs(t, err, ErrConfiguration)
}
