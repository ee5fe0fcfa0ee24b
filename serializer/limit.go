package serializer

import (
	"errors"
	"fmt"
)

// ErrPayloadTooLarge is returned by Limit when a payload exceeds its bound.
var ErrPayloadTooLarge = errors.New("serializer: payload too large")

// Limit wraps another serializer to enforce a maximum payload size in both
// directions. If Max <= 0, size limiting is disabled.
//
// Memcached rejects items over its slab size (1MB by default), so a Limit in
// front of the real serializer turns a server-side SERVER_ERROR into a local
// error before any I/O.
type Limit struct {
	// Inner is the wrapped serializer. It must be set.
	Inner Serializer
	// Max is the maximum permitted payload length in bytes.
	Max int
}

var _ Serializer = Limit{}

func (l Limit) Name() string { return l.Inner.Name() }

func (l Limit) Serialize(v any) ([]byte, error) {
	b, err := l.Inner.Serialize(v)
	if err != nil {
		return nil, err
	}
	if l.Max > 0 && len(b) > l.Max {
		return nil, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(b), l.Max)
	}
	return b, nil
}

func (l Limit) Deserialize(data []byte, out any) error {
	if l.Max > 0 && len(data) > l.Max {
		return fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(data), l.Max)
	}
	return l.Inner.Deserialize(data, out)
}
