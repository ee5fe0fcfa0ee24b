package serializer

import "github.com/vmihailenco/msgpack/v5"

// MsgpackName is the configuration name of Msgpack.
const MsgpackName = "msgpack"

// Msgpack serializes values using vmihailenco/msgpack/v5.
// The zero value is ready to use.
//
// Be mindful of struct tag differences vs JSON. Use `msgpack:"fieldName"` tags
// if you need explicit control.
type Msgpack struct{}

var _ Serializer = Msgpack{}

func (Msgpack) Name() string { return MsgpackName }

func (Msgpack) Serialize(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (Msgpack) Deserialize(data []byte, out any) error {
	return msgpack.Unmarshal(data, out)
}
