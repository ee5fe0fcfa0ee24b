// Package cachetest provides reusable contract tests for cachecore.Store and
// cachekit.Provider implementations.
//
// Example pattern (backend test):
//
//	func TestRedisProviderContract(t *testing.T) {
//		r := cachekit.NewRegistry()
//		_, err := redis.AddDefault(r, func(o *redis.Options) {
//			o.MaxRdSecond = 0
//			o.DBConfig.Addrs = []string{addr}
//		})
//		if err != nil {
//			t.Fatalf("register: %v", err)
//		}
//		p, err := r.Provider(cachekit.DefaultRedisName)
//		if err != nil {
//			t.Fatalf("provider: %v", err)
//		}
//
//		// Namespace keys per test and tune TTL waits for backend semantics as needed.
//		cachetest.RunProviderContract(t, p, cachetest.Options{
//			TTL:     time.Second,
//			TTLWait: 1500 * time.Millisecond,
//		})
//	}
package cachetest
