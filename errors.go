package cachekit

import (
	"errors"
	"fmt"
)

var (
	// ErrArgument matches every *ArgumentError.
	ErrArgument = errors.New("cachekit: invalid argument")
	// ErrConfiguration matches every *ConfigurationError.
	ErrConfiguration = errors.New("cachekit: invalid configuration")
	// ErrBackend matches every *BackendError.
	ErrBackend = errors.New("cachekit: backend failure")
	// ErrRegistryBuilt is returned when a new provider name is registered after Build.
	ErrRegistryBuilt = errors.New("cachekit: registry already built")
	// ErrProviderNotFound is returned when no provider is registered under a name.
	ErrProviderNotFound = errors.New("cachekit: provider not found")
)

// ArgumentError reports a nil or blank required parameter. It is raised
// synchronously, before any registry state changes.
type ArgumentError struct {
	Param  string
	Reason string
}

// NewArgumentError returns an ArgumentError for param.
func NewArgumentError(param, reason string) *ArgumentError {
	return &ArgumentError{Param: param, Reason: reason}
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("cachekit: argument %q %s", e.Param, e.Reason)
}

func (e *ArgumentError) Is(target error) bool { return target == ErrArgument }

// ConfigurationError reports a missing or invalid setting, detected when a
// provider's configuration is constructed.
type ConfigurationError struct {
	Provider string
	Field    string
	Err      error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("cachekit: provider %q: invalid configuration: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("cachekit: provider %q: invalid %s: %v", e.Provider, e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// BackendError reports a transport failure (refused connection, timeout,
// exhausted pool) raised while an operation runs.
type BackendError struct {
	Provider string
	Op       string
	Server   string
	Err      error
}

func (e *BackendError) Error() string {
	if e.Server == "" {
		return fmt.Sprintf("cachekit: provider %q: %s: %v", e.Provider, e.Op, e.Err)
	}
	return fmt.Sprintf("cachekit: provider %q: %s on %s: %v", e.Provider, e.Op, e.Server, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func (e *BackendError) Is(target error) bool { return target == ErrBackend }

// WrapBackend returns err as a *BackendError unless it is nil or already
// classified as an argument, configuration or backend error.
func WrapBackend(provider, op, server string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrArgument) || errors.Is(err, ErrConfiguration) || errors.Is(err, ErrBackend) {
		return err
	}
	return &BackendError{Provider: provider, Op: op, Server: server, Err: err}
}
