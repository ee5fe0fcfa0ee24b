package cachecore

// DefaultMaxRdSecond is the default upper bound, in seconds, of the random
// jitter added to expirations.
const DefaultMaxRdSecond = 120

// BaseOptions contains shared, backend-agnostic provider configuration.
type BaseOptions struct {
	// CachingProviderType, when non-zero, must match the backend being registered.
	CachingProviderType ProviderType `yaml:"cachingprovidertype"`

	// MaxRdSecond bounds the random seconds added to each expiration.
	// Zero disables jitter.
	MaxRdSecond int `yaml:"maxrdsecond"`

	// Order ranks providers when a registry lists them.
	Order int `yaml:"order"`

	// EnableLogging turns on per-operation debug logs.
	EnableLogging bool `yaml:"enablelogging"`

	// SerializerName selects a registered serializer by name.
	// Empty uses the default serializer.
	SerializerName string `yaml:"serializername"`
}

// DefaultBaseOptions returns BaseOptions populated with defaults.
func DefaultBaseOptions() BaseOptions {
	return BaseOptions{MaxRdSecond: DefaultMaxRdSecond}
}

// Base returns o. Backend option structs embed BaseOptions and expose it
// through this promoted method.
func (o *BaseOptions) Base() *BaseOptions { return o }
