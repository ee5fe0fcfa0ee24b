package cachecore

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProviderType identifies a cache backend. The numeric values are stable and
// are the ordinals accepted by the CachingProviderType configuration key.
type ProviderType int

const (
	ProviderUnknown   ProviderType = 0
	ProviderInMemory  ProviderType = 1
	ProviderRedis     ProviderType = 2
	ProviderMemcached ProviderType = 3
	ProviderSQLite    ProviderType = 4
)

func (t ProviderType) String() string {
	switch t {
	case ProviderInMemory:
		return "inmemory"
	case ProviderRedis:
		return "redis"
	case ProviderMemcached:
		return "memcached"
	case ProviderSQLite:
		return "sqlite"
	default:
		return "unknown(" + strconv.Itoa(int(t)) + ")"
	}
}

// ParseProviderType accepts either the ordinal ("3") or the name ("memcached").
func ParseProviderType(s string) (ProviderType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		return ProviderType(n), nil
	}
	for t := ProviderInMemory; t <= ProviderSQLite; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return ProviderUnknown, fmt.Errorf("cachecore: unknown provider type %q", s)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *ProviderType) UnmarshalYAML(n *yaml.Node) error {
	v, err := ParseProviderType(n.Value)
	if err != nil {
		return err
	}
	*t = v
	return nil
}
