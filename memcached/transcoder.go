package memcached

import (
	"errors"
	"fmt"

	"github.com/goforj/cachekit/serializer"
)

// Item flags. Raw bytes and strings are stored as-is; everything else goes
// through the serializer.
const (
	FlagSerialized uint32 = 0
	FlagBytes      uint32 = 1
	FlagString     uint32 = 2
)

// ErrUnknownFlags is returned when an item was written with flags the
// transcoder does not understand.
var ErrUnknownFlags = errors.New("memcached: unknown item flags")

// Item is a value in wire form.
type Item struct {
	Flags uint32
	Data  []byte
}

// Transcoder converts values to and from Items.
type Transcoder interface {
	Encode(v any) (Item, error)
	Decode(it Item, out any) error
}

// DefaultTranscoder stores []byte and string values raw and serializes
// everything else.
type DefaultTranscoder struct {
	Serializer serializer.Serializer
}

// NewTranscoder returns a DefaultTranscoder using s, or the default
// serializer when s is nil.
func NewTranscoder(s serializer.Serializer) *DefaultTranscoder {
	if s == nil {
		s = serializer.Default()
	}
	return &DefaultTranscoder{Serializer: s}
}

func (t *DefaultTranscoder) Encode(v any) (Item, error) {
	switch x := v.(type) {
	case []byte:
		return Item{Flags: FlagBytes, Data: append([]byte(nil), x...)}, nil
	case string:
		return Item{Flags: FlagString, Data: []byte(x)}, nil
	}
	b, err := t.Serializer.Serialize(v)
	if err != nil {
		return Item{}, fmt.Errorf("memcached: encode with %s: %w", t.Serializer.Name(), err)
	}
	return Item{Flags: FlagSerialized, Data: b}, nil
}

func (t *DefaultTranscoder) Decode(it Item, out any) error {
	switch it.Flags {
	case FlagBytes, FlagString:
		switch dst := out.(type) {
		case *[]byte:
			*dst = append([]byte(nil), it.Data...)
		case *string:
			*dst = string(it.Data)
		case *any:
			if it.Flags == FlagString {
				*dst = string(it.Data)
			} else {
				*dst = append([]byte(nil), it.Data...)
			}
		default:
			return fmt.Errorf("memcached: cannot decode raw item into %T", out)
		}
		return nil
	case FlagSerialized:
		if err := t.Serializer.Deserialize(it.Data, out); err != nil {
			return fmt.Errorf("memcached: decode with %s: %w", t.Serializer.Name(), err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownFlags, it.Flags)
	}
}
