// Package serializer converts cache values to and from bytes.
//
// Providers look serializers up by Name, so every implementation reports a
// stable name that can be used in configuration (SerializerName).
package serializer

// Serializer encodes values for storage and decodes them into out, which must
// be a non-nil pointer.
type Serializer interface {
	Name() string
	Serialize(v any) ([]byte, error)
	Deserialize(data []byte, out any) error
}

// Default returns the serializer used when none is configured.
func Default() Serializer { return Msgpack{} }
