package cachetest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/goforj/cachekit"
	"github.com/goforj/cachekit/cachecore"
)

// Options configures shared contract checks.
type Options struct {
	// CaseName is used to namespace keys. Defaults to t.Name().
	CaseName string
	// SkipCloneCheck disables the "get returns a cloned value" assertion.
	SkipCloneCheck bool
	// TTL controls the expiry duration used in TTL tests.
	TTL time.Duration
	// TTLWait is how long the harness waits for expiry to occur.
	TTLWait time.Duration
	// SkipTTL disables expiry checks for backends whose clock cannot be
	// observed within a test (second-granularity servers, fakes).
	SkipTTL bool
	// SkipFlush disables the flush assertion for backends where it is expensive or unavailable.
	SkipFlush bool
}

func (o Options) normalized(t *testing.T) Options {
	if o.CaseName == "" {
		o.CaseName = t.Name()
	}
	if o.TTL <= 0 {
		o.TTL = 50 * time.Millisecond
	}
	if o.TTLWait <= 0 {
		o.TTLWait = 120 * time.Millisecond
	}
	return o
}

func (o Options) key(s string) string {
	return sanitize(o.CaseName) + ":" + s
}

// Store is the minimal contract required by RunStoreContract.
type Store = cachecore.Store

// RunStoreContract runs a backend-agnostic store contract suite.
func RunStoreContract(t *testing.T, store Store, opts Options) {
	t.Helper()
	opts = opts.normalized(t)
	ctx := context.Background()
	key := opts.key

	// Set/Get round-trip.
	if err := store.Set(ctx, key("alpha"), []byte("value"), time.Second); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	body, ok, err := store.Get(ctx, key("alpha"))
	if err != nil || !ok || string(body) != "value" {
		t.Fatalf("unexpected get result: ok=%v body=%q err=%v", ok, string(body), err)
	}
	if !opts.SkipCloneCheck {
		body[0] = 'X'
		body2, ok2, err2 := store.Get(ctx, key("alpha"))
		if err2 != nil || !ok2 || string(body2) != "value" {
			t.Fatalf("expected stored value unchanged, got ok=%v body=%q err=%v", ok2, string(body2), err2)
		}
	}

	// Missing key.
	if _, ok, err := store.Get(ctx, key("missing")); err != nil || ok {
		t.Fatalf("expected miss for absent key; ok=%v err=%v", ok, err)
	}

	// TTL expiry.
	if !opts.SkipTTL {
		if err := store.Set(ctx, key("ttl"), []byte("v"), opts.TTL); err != nil {
			t.Fatalf("set ttl failed: %v", err)
		}
		if err := waitForMiss(opts.TTLWait, func() (bool, error) {
			_, ok, err := store.Get(ctx, key("ttl"))
			return ok, err
		}); err != nil {
			t.Fatalf("expected ttl expiry: %v", err)
		}
	}

	// Add only when missing.
	created, err := store.Add(ctx, key("once"), []byte("first"), time.Second)
	if err != nil || !created {
		t.Fatalf("add first failed: created=%v err=%v", created, err)
	}
	created, err = store.Add(ctx, key("once"), []byte("second"), time.Second)
	if err != nil {
		t.Fatalf("add duplicate failed: %v", err)
	}
	if created {
		t.Fatalf("expected duplicate add to return created=false")
	}
	if body, _, _ := store.Get(ctx, key("once")); string(body) != "first" {
		t.Fatalf("expected duplicate add to keep first value, got %q", string(body))
	}

	// Delete and DeleteMany.
	for _, k := range []string{"a", "b", "c"} {
		if err := store.Set(ctx, key(k), []byte(k), time.Second); err != nil {
			t.Fatalf("set %s failed: %v", k, err)
		}
	}
	if err := store.Delete(ctx, key("a")); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := store.Delete(ctx, key("never-set")); err != nil {
		t.Fatalf("delete of absent key failed: %v", err)
	}
	if err := store.DeleteMany(ctx, key("b"), key("c")); err != nil {
		t.Fatalf("delete many failed: %v", err)
	}
	if err := store.DeleteMany(ctx); err != nil {
		t.Fatalf("delete many with no keys failed: %v", err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if _, ok, err := store.Get(ctx, key(k)); err != nil || ok {
			t.Fatalf("expected key %s deleted; ok=%v err=%v", k, ok, err)
		}
	}

	// Flush.
	if !opts.SkipFlush {
		if err := store.Set(ctx, key("flush"), []byte("x"), time.Second); err != nil {
			t.Fatalf("set flush failed: %v", err)
		}
		if err := store.Flush(ctx); err != nil {
			t.Fatalf("flush failed: %v", err)
		}
		if _, ok, err := store.Get(ctx, key("flush")); err != nil || ok {
			t.Fatalf("expected flush to clear key; ok=%v err=%v", ok, err)
		}
	}
}

type record struct {
	ID   int
	Name string
	Tags []string
}

// RunProviderContract runs the typed provider contract suite against p.
// Expiry checks run only when p has jitter disabled (MaxRdSecond 0).
func RunProviderContract(t *testing.T, p cachekit.Provider, opts Options) {
	t.Helper()
	opts = opts.normalized(t)
	ctx := context.Background()
	key := opts.key

	before := p.Stats()

	// Typed round-trip.
	in := record{ID: 7, Name: "seven", Tags: []string{"a", "b"}}
	if err := p.Set(ctx, key("rec"), in, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := cachekit.Get[record](ctx, p, key("rec"))
	if err != nil || !got.HasValue {
		t.Fatalf("get failed: has=%v err=%v", got.HasValue, err)
	}
	if got.Value.ID != in.ID || got.Value.Name != in.Name || strings.Join(got.Value.Tags, ",") != "a,b" {
		t.Fatalf("unexpected value: %+v", got.Value)
	}

	// Miss.
	miss, err := cachekit.Get[record](ctx, p, key("missing"))
	if err != nil || miss.HasValue || !miss.IsNull() {
		t.Fatalf("expected miss; has=%v err=%v", miss.HasValue, err)
	}

	after := p.Stats()
	if after.Hits-before.Hits != 1 || after.Misses-before.Misses != 1 {
		t.Fatalf("expected one hit and one miss, stats moved from %+v to %+v", before, after)
	}

	// Exists.
	if ok, err := p.Exists(ctx, key("rec")); err != nil || !ok {
		t.Fatalf("expected exists; ok=%v err=%v", ok, err)
	}
	if ok, err := p.Exists(ctx, key("missing")); err != nil || ok {
		t.Fatalf("expected not exists; ok=%v err=%v", ok, err)
	}

	// TrySet.
	added, err := p.TrySet(ctx, key("once"), "first", time.Minute)
	if err != nil || !added {
		t.Fatalf("trySet first failed: added=%v err=%v", added, err)
	}
	added, err = p.TrySet(ctx, key("once"), "second", time.Minute)
	if err != nil || added {
		t.Fatalf("expected duplicate trySet to report false: added=%v err=%v", added, err)
	}
	once, err := cachekit.Get[string](ctx, p, key("once"))
	if err != nil || once.Value != "first" {
		t.Fatalf("expected first value kept, got %q err=%v", once.Value, err)
	}

	// GetOrLoad loads once.
	loads := 0
	load := func(context.Context) (int, error) {
		loads++
		return 42, nil
	}
	for i := 0; i < 2; i++ {
		v, err := cachekit.GetOrLoad(ctx, p, key("loaded"), time.Minute, load)
		if err != nil || v != 42 {
			t.Fatalf("getOrLoad failed: v=%d err=%v", v, err)
		}
	}
	if loads != 1 {
		t.Fatalf("expected loader to run once, ran %d times", loads)
	}

	// Remove and RemoveAll.
	if err := p.Remove(ctx, key("rec")); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := p.Remove(ctx, key("never-set")); err != nil {
		t.Fatalf("remove of absent key failed: %v", err)
	}
	if ok, _ := p.Exists(ctx, key("rec")); ok {
		t.Fatalf("expected rec removed")
	}
	if err := p.RemoveAll(ctx, key("once"), key("loaded")); err != nil {
		t.Fatalf("removeAll failed: %v", err)
	}
	for _, k := range []string{"once", "loaded"} {
		if ok, _ := p.Exists(ctx, key(k)); ok {
			t.Fatalf("expected %s removed", k)
		}
	}

	// Argument checks.
	argumentErrors := map[string]error{
		"get blank key":     func() error { _, err := p.Get(ctx, " ", new(string)); return err }(),
		"set blank key":     p.Set(ctx, "", "v", time.Minute),
		"set zero ttl":      p.Set(ctx, key("zero"), "v", 0),
		"trySet negative":   func() error { _, err := p.TrySet(ctx, key("neg"), "v", -time.Second); return err }(),
		"exists blank key":  func() error { _, err := p.Exists(ctx, ""); return err }(),
		"remove blank key":  p.Remove(ctx, "\t"),
		"removeAll no keys": p.RemoveAll(ctx),
	}
	for name, err := range argumentErrors {
		if !errors.Is(err, cachekit.ErrArgument) {
			t.Fatalf("%s: expected argument error, got %v", name, err)
		}
	}

	// TTL expiry.
	if !opts.SkipTTL && p.MaxRdSecond() == 0 {
		if err := p.Set(ctx, key("ttl"), "v", opts.TTL); err != nil {
			t.Fatalf("set ttl failed: %v", err)
		}
		if err := waitForMiss(opts.TTLWait, func() (bool, error) { return p.Exists(ctx, key("ttl")) }); err != nil {
			t.Fatalf("expected ttl expiry: %v", err)
		}
	}

	// Flush.
	if !opts.SkipFlush {
		if err := p.Set(ctx, key("flush"), 1, time.Minute); err != nil {
			t.Fatalf("set flush failed: %v", err)
		}
		if err := p.Flush(ctx); err != nil {
			t.Fatalf("flush failed: %v", err)
		}
		if ok, err := p.Exists(ctx, key("flush")); err != nil || ok {
			t.Fatalf("expected flush to clear key; ok=%v err=%v", ok, err)
		}
	}
}

func waitForMiss(wait time.Duration, present func() (bool, error)) error {
	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		ok, err := present()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	ok, err := present()
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("key still present after %s", wait)
	}
	return nil
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
