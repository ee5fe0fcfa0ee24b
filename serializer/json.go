package serializer

import "encoding/json"

// JSONName is the configuration name of JSON.
const JSONName = "json"

// JSON serializes values with encoding/json.
type JSON struct{}

var _ Serializer = JSON{}

func (JSON) Name() string { return JSONName }

func (JSON) Serialize(v any) ([]byte, error) { return json.Marshal(v) }

func (JSON) Deserialize(data []byte, out any) error { return json.Unmarshal(data, out) }
