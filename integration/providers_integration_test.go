//go:build integration

package integration

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	testcontainers "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/goforj/cachekit"
	"github.com/goforj/cachekit/cachetest"
	"github.com/goforj/cachekit/memcached"
	"github.com/goforj/cachekit/memory"
	"github.com/goforj/cachekit/redis"
	"github.com/goforj/cachekit/sqlite"
)

type providerFixture struct {
	name string
	// register adds the provider to r and returns its name.
	register func(t *testing.T, r *cachekit.Registry) string
	opts     cachetest.Options
}

func TestProviderContract_AllBackends(t *testing.T) {
	var fixtures []providerFixture

	if integrationBackendEnabled("memory") {
		fixtures = append(fixtures, providerFixture{
			name: "memory",
			register: func(t *testing.T, r *cachekit.Registry) string {
				mustRegister(t)(memory.AddDefault(r, func(o *memory.Options) { o.MaxRdSecond = 0 }))
				return cachekit.DefaultInMemoryName
			},
		})
	}

	if integrationBackendEnabled("sqlite") {
		fixtures = append(fixtures, providerFixture{
			name: "sqlite",
			register: func(t *testing.T, r *cachekit.Registry) string {
				path := filepath.Join(t.TempDir(), "itest.db")
				mustRegister(t)(sqlite.AddDefault(r, func(o *sqlite.Options) {
					o.MaxRdSecond = 0
					o.DBConfig.Path = path
					o.DBConfig.WAL = true
				}))
				return cachekit.DefaultSQLiteName
			},
		})
	}

	if integrationBackendEnabled("redis") {
		fixtures = append(fixtures, providerFixture{
			name: "redis",
			register: func(t *testing.T, r *cachekit.Registry) string {
				addr := startContainer(t, "redis:7-bookworm", "6379/tcp")
				mustRegister(t)(redis.AddDefault(r, func(o *redis.Options) {
					o.MaxRdSecond = 0
					o.DBConfig.Endpoints = []string{addr}
					o.DBConfig.KeyPrefix = "itest"
				}))
				return cachekit.DefaultRedisName
			},
			opts: cachetest.Options{TTL: time.Second, TTLWait: 3 * time.Second},
		})
	}

	if integrationBackendEnabled("memcached") {
		fixtures = append(fixtures, providerFixture{
			name: "memcached",
			register: func(t *testing.T, r *cachekit.Registry) string {
				addr := startContainer(t, "memcached:1.6-bookworm", "11211/tcp")
				host, port := splitHostPort(t, addr)
				mustRegister(t)(memcached.AddDefault(r, func(o *memcached.Options) {
					o.MaxRdSecond = 0
					o.DBConfig.AddServer(host, port)
					o.DBConfig.SocketPool.MinPoolSize = 2
				}))
				return cachekit.DefaultMemcachedName
			},
			// Memcached expiry has one-second resolution.
			opts: cachetest.Options{TTL: time.Second, TTLWait: 3 * time.Second},
		})
	}

	for _, fx := range fixtures {
		t.Run(fx.name, func(t *testing.T) {
			r := cachekit.NewRegistry()
			t.Cleanup(func() { _ = r.Close(context.Background()) })
			name := fx.register(t, r)
			if err := r.Build(context.Background()); err != nil {
				t.Fatalf("build registry: %v", err)
			}
			p, err := r.Provider(name)
			if err != nil {
				t.Fatalf("provider %q: %v", name, err)
			}
			cachetest.RunProviderContract(t, p, fx.opts)
		})
	}
}

func TestMemcachedClientAgainstServer(t *testing.T) {
	if !integrationBackendEnabled("memcached") {
		t.Skip("memcached not selected")
	}
	addr := startContainer(t, "memcached:1.6-bookworm", "11211/tcp")
	host, port := splitHostPort(t, addr)

	r := cachekit.NewRegistry()
	t.Cleanup(func() { _ = r.Close(context.Background()) })
	mustRegister(t)(memcached.AddDefault(r, func(o *memcached.Options) { o.DBConfig.AddServer(host, port) }))

	client, err := memcached.ClientFor(r, cachekit.DefaultMemcachedName)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	ctx := context.Background()
	if err := client.Warm(ctx); err != nil {
		t.Fatalf("warm: %v", err)
	}

	long := strings.Repeat("k", 400)
	if ok, err := client.Store(ctx, memcached.StoreSet, long, "hashed", time.Minute); err != nil || !ok {
		t.Fatalf("store long key: ok=%v err=%v", ok, err)
	}
	var got string
	if ok, err := client.Get(ctx, long, &got); err != nil || !ok || got != "hashed" {
		t.Fatalf("get long key: ok=%v got=%q err=%v", ok, got, err)
	}

	// Expirations beyond 30 days are sent as absolute times.
	if ok, err := client.Store(ctx, memcached.StoreSet, "month", 1, 45*24*time.Hour); err != nil || !ok {
		t.Fatalf("store long ttl: ok=%v err=%v", ok, err)
	}
	var n int
	if ok, err := client.Get(ctx, "month", &n); err != nil || !ok || n != 1 {
		t.Fatalf("get long ttl: ok=%v n=%d err=%v", ok, n, err)
	}

	stats, err := client.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if _, ok := stats[addr]["version"]; !ok {
		t.Fatalf("expected version stat for %s, got %v", addr, stats)
	}
}

func mustRegister(t *testing.T) func(*cachekit.Registry, error) {
	t.Helper()
	return func(_ *cachekit.Registry, err error) {
		if err != nil {
			t.Fatalf("register: %v", err)
		}
	}
}

func splitHostPort(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, p, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split %q: %v", addr, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		t.Fatalf("port %q: %v", p, err)
	}
	return host, port
}

func startContainer(t *testing.T, image string, port nat.Port) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        image,
		ExposedPorts: []string{string(port)},
		WaitingFor:   wait.ForListeningPort(port).WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start %s container: %v", image, err)
	}
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = container.Terminate(shutdownCtx)
	})
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("%s container host: %v", image, err)
	}
	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		t.Fatalf("%s container port: %v", image, err)
	}
	return net.JoinHostPort(host, mapped.Port())
}

func integrationBackendEnabled(name string) bool {
	return selectedIntegrationBackends()[strings.ToLower(name)]
}

// selectedIntegrationBackends reads INTEGRATION_BACKEND, a comma separated
// list; empty or "all" selects every backend.
func selectedIntegrationBackends() map[string]bool {
	selected := map[string]bool{
		"memory":    true,
		"sqlite":    true,
		"redis":     true,
		"memcached": true,
	}
	value := strings.TrimSpace(strings.ToLower(os.Getenv("INTEGRATION_BACKEND")))
	if value == "" || value == "all" {
		return selected
	}
	for key := range selected {
		selected[key] = false
	}
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		selected[part] = true
	}
	return selected
}
