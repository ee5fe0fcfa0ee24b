package cachekit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goforj/cachekit/serializer"
)

type greeter interface{ Greet() string }

type greeting string

func (g greeting) Greet() string { return string(g) }

func TestTryAddSingletonKeepsFirst(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	assert.True(t, TryAddSingleton[greeter](r, greeting("first")))
	assert.False(t, TryAddSingleton[greeter](r, greeting("second")))

	g, ok := Service[greeter](r)
	require.True(t, ok)
	assert.Equal(t, "first", g.Greet())
}

func TestAddSingletonAppendsAndServiceReturnsLast(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	AddSingleton[greeter](r, greeting("a"))
	AddSingleton[greeter](r, greeting("b"))

	g, ok := Service[greeter](r)
	require.True(t, ok)
	assert.Equal(t, "b", g.Greet())
	assert.Len(t, Services[greeter](r), 2)

	_, ok = Service[*Registry](r)
	assert.False(t, ok)
	assert.Empty(t, Services[*Registry](r))
}

func TestGetOrAddSingleton(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	calls := 0
	mk := func() *[]string {
		calls++
		return &[]string{}
	}
	a := GetOrAddSingleton(r, mk)
	b := GetOrAddSingleton(r, mk)
	assert.Same(t, a, b)
	assert.Equal(t, 1, calls)
}

func TestResolveSerializer(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	s, err := ResolveSerializer(r, "p", "")
	require.NoError(t, err)
	assert.Equal(t, serializer.MsgpackName, s.Name())

	AddSingleton[serializer.Serializer](r, serializer.JSON{})
	AddDefaultSerializer(r)
	assert.Len(t, Services[serializer.Serializer](r), 1)

	s, err = ResolveSerializer(r, "p", "")
	require.NoError(t, err)
	assert.Equal(t, serializer.JSONName, s.Name())

	AddSingleton[serializer.Serializer](r, serializer.MustCBOR(true))
	s, err = ResolveSerializer(r, "p", serializer.CBORName)
	require.NoError(t, err)
	assert.Equal(t, serializer.CBORName, s.Name())

	s, err = ResolveSerializer(r, "p", serializer.MsgpackName)
	require.NoError(t, err)
	assert.Equal(t, serializer.MsgpackName, s.Name())

	_, err = ResolveSerializer(r, "p", "gob")
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "SerializerName", cfgErr.Field)
	assert.Equal(t, "p", cfgErr.Provider)
}
