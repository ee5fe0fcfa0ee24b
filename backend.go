package cachekit

import (
	"fmt"
	"strings"

	"github.com/goforj/cachekit/cachecore"
	"github.com/goforj/cachekit/config"
	"github.com/goforj/cachekit/serializer"
)

// OptionsSource writes configuration onto a backend's options value.
type OptionsSource[O any] func(*O) error

// Callback adapts a configure function to an OptionsSource.
func Callback[O any](fn func(*O)) OptionsSource[O] {
	return func(o *O) error {
		fn(o)
		return nil
	}
}

// FromSection binds the section at path of cfg onto the options value.
// A missing section leaves the options untouched.
func FromSection[O any](cfg *config.Config, path string) OptionsSource[O] {
	return func(o *O) error {
		return cfg.Section(path).Bind(o)
	}
}

// Backend describes how one backend kind is registered and constructed. The
// four registration forms (default or named, callback or configuration tree)
// all funnel into Register.
type Backend[O any] struct {
	// Type is the provider type the backend builds.
	Type cachecore.ProviderType
	// DefaultName is used by the AddDefault forms.
	DefaultName string
	// Section is the configuration path read by the FromConfig forms.
	Section string
	// Defaults returns a fresh options value before any source is applied.
	Defaults func() O
	// Setup runs on every registration of name, before the options source is
	// stored. Backends use it to try-add shared services.
	Setup func(r *Registry, name string)
	// Build constructs the provider from the fully merged options.
	Build func(r *Registry, name string, opts O) (Provider, error)
}

// AddDefault registers the default-named provider configured by fn.
func (b Backend[O]) AddDefault(r *Registry, fn func(*O)) (*Registry, error) {
	if r == nil {
		return nil, NewArgumentError("services", "must not be nil")
	}
	if fn == nil {
		return r, NewArgumentError("providerAction", "must not be nil")
	}
	return b.Register(r, b.DefaultName, Callback(fn))
}

// AddDefaultFromConfig registers the default-named provider from the
// backend's section of cfg.
func (b Backend[O]) AddDefaultFromConfig(r *Registry, cfg *config.Config) (*Registry, error) {
	if r == nil {
		return nil, NewArgumentError("services", "must not be nil")
	}
	if cfg == nil {
		return r, NewArgumentError("configuration", "must not be nil")
	}
	return b.Register(r, b.DefaultName, FromSection[O](cfg, b.Section))
}

// AddNamed registers the provider name configured by fn.
func (b Backend[O]) AddNamed(r *Registry, name string, fn func(*O)) (*Registry, error) {
	if r == nil {
		return nil, NewArgumentError("services", "must not be nil")
	}
	if strings.TrimSpace(name) == "" {
		return r, NewArgumentError("name", "must not be blank")
	}
	if fn == nil {
		return r, NewArgumentError("providerAction", "must not be nil")
	}
	return b.Register(r, name, Callback(fn))
}

// AddNamedFromConfig registers the provider name from the backend's section
// of cfg.
func (b Backend[O]) AddNamedFromConfig(r *Registry, name string, cfg *config.Config) (*Registry, error) {
	if r == nil {
		return nil, NewArgumentError("services", "must not be nil")
	}
	if strings.TrimSpace(name) == "" {
		return r, NewArgumentError("name", "must not be blank")
	}
	if cfg == nil {
		return r, NewArgumentError("configuration", "must not be nil")
	}
	return b.Register(r, name, FromSection[O](cfg, b.Section))
}

// Register records src for name and binds name to this backend. Sources for a
// name accumulate; at construction they are applied in registration order on
// top of Defaults, so the last write to a field wins.
func (b Backend[O]) Register(r *Registry, name string, src OptionsSource[O]) (*Registry, error) {
	if r == nil {
		return nil, NewArgumentError("services", "must not be nil")
	}
	if strings.TrimSpace(name) == "" {
		return r, NewArgumentError("name", "must not be blank")
	}
	if src == nil {
		return r, NewArgumentError("providerAction", "must not be nil")
	}
	if err := r.Register(name, b.Type, b.factory); err != nil {
		return r, err
	}
	if b.Setup != nil {
		b.Setup(r, name)
	}
	r.addSource(name, func(dst any) error { return src(dst.(*O)) })
	return r, nil
}

// Options merges every source registered for name on top of Defaults.
func (b Backend[O]) Options(r *Registry, name string) (O, error) {
	var opts O
	if b.Defaults != nil {
		opts = b.Defaults()
	}
	for _, src := range r.sourcesFor(name) {
		if err := src(&opts); err != nil {
			return opts, &ConfigurationError{Provider: name, Err: err}
		}
	}
	if base, ok := any(&opts).(interface{ Base() *cachecore.BaseOptions }); ok {
		if err := b.checkBase(name, base.Base()); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

func (b Backend[O]) factory(r *Registry, name string) (Provider, error) {
	opts, err := b.Options(r, name)
	if err != nil {
		return nil, err
	}
	if b.Build == nil {
		return nil, &ConfigurationError{Provider: name, Err: fmt.Errorf("backend %s has no builder", b.Type)}
	}
	return b.Build(r, name, opts)
}

func (b Backend[O]) checkBase(name string, o *cachecore.BaseOptions) error {
	if o.CachingProviderType != cachecore.ProviderUnknown && o.CachingProviderType != b.Type {
		return &ConfigurationError{
			Provider: name,
			Field:    "CachingProviderType",
			Err:      fmt.Errorf("configured %s for a %s provider", o.CachingProviderType, b.Type),
		}
	}
	if o.MaxRdSecond < 0 {
		return &ConfigurationError{Provider: name, Field: "MaxRdSecond", Err: fmt.Errorf("must not be negative, got %d", o.MaxRdSecond)}
	}
	return nil
}

// AddDefaultSerializer registers the default serializer unless a serializer
// is already registered.
func AddDefaultSerializer(r *Registry) {
	TryAddSingleton[serializer.Serializer](r, serializer.Default())
}

// ResolveSerializer returns the first registered serializer whose name
// matches. An empty name selects the first registered serializer.
func ResolveSerializer(r *Registry, provider, name string) (serializer.Serializer, error) {
	list := Services[serializer.Serializer](r)
	if name == "" {
		if len(list) == 0 {
			return serializer.Default(), nil
		}
		return list[0], nil
	}
	for _, s := range list {
		if s.Name() == name {
			return s, nil
		}
	}
	if name == serializer.MsgpackName {
		return serializer.Default(), nil
	}
	return nil, &ConfigurationError{
		Provider: provider,
		Field:    "SerializerName",
		Err:      fmt.Errorf("no serializer registered as %q", name),
	}
}
