package cachekit

import "reflect"

// TryAddSingleton registers v as the service for T unless one is already
// registered. It reports whether v was added.
func TryAddSingleton[T any](r *Registry, v T) bool {
	key := reflect.TypeFor[T]()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.services[key]) > 0 {
		return false
	}
	r.services[key] = append(r.services[key], v)
	return true
}

// AddSingleton appends v to the services registered for T.
func AddSingleton[T any](r *Registry, v T) {
	key := reflect.TypeFor[T]()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[key] = append(r.services[key], v)
}

// Service returns the most recently registered service for T.
func Service[T any](r *Registry) (T, bool) {
	key := reflect.TypeFor[T]()
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.services[key]
	if len(list) == 0 {
		var zero T
		return zero, false
	}
	return list[len(list)-1].(T), true
}

// Services returns every service registered for T in registration order.
func Services[T any](r *Registry) []T {
	key := reflect.TypeFor[T]()
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.services[key]
	out := make([]T, 0, len(list))
	for _, v := range list {
		out = append(out, v.(T))
	}
	return out
}

// GetOrAddSingleton returns the service for T, registering the result of mk
// first if none exists.
func GetOrAddSingleton[T any](r *Registry, mk func() T) T {
	key := reflect.TypeFor[T]()
	r.mu.Lock()
	defer r.mu.Unlock()
	if list := r.services[key]; len(list) > 0 {
		return list[len(list)-1].(T)
	}
	v := mk()
	r.services[key] = append(r.services[key], v)
	return v
}
