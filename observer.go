package cachekit

import (
	"context"
	"time"
)

// Observer receives events for provider operations.
// It is called after each operation completes, hit or miss, success or failure.
type Observer interface {
	OnCacheOp(ctx context.Context, op string, provider string, key string, hit bool, err error, dur time.Duration)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, op string, provider string, key string, hit bool, err error, dur time.Duration)

// OnCacheOp implements Observer.
func (f ObserverFunc) OnCacheOp(ctx context.Context, op string, provider string, key string, hit bool, err error, dur time.Duration) {
	if f == nil {
		return
	}
	f(ctx, op, provider, key, hit, err, dur)
}

// Operation names passed to observers.
const (
	OpGet       = "get"
	OpSet       = "set"
	OpTrySet    = "try_set"
	OpExists    = "exists"
	OpRemove    = "remove"
	OpRemoveAll = "remove_all"
	OpFlush     = "flush"
)
