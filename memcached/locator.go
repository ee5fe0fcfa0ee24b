package memcached

import (
	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"
)

// locator maps keys to servers with rendezvous hashing, so a key keeps its
// server as long as that server is alive. Keys of a dead server are spread
// over the live ones.
type locator struct {
	pools  []*socketPool
	byAddr map[string]*socketPool
	ring   *rendezvous.Rendezvous
}

func newLocator(pools []*socketPool) *locator {
	addrs := make([]string, len(pools))
	byAddr := make(map[string]*socketPool, len(pools))
	for i, p := range pools {
		addrs[i] = p.addr
		byAddr[p.addr] = p
	}
	return &locator{
		pools:  pools,
		byAddr: byAddr,
		ring:   rendezvous.New(addrs, xxhash.Sum64String),
	}
}

// locate returns the pool for key, or the primary pool when every server is
// dead so the caller surfaces ErrServerDead for it.
func (l *locator) locate(key string) *socketPool {
	if len(l.pools) == 1 {
		return l.pools[0]
	}
	primary := l.byAddr[l.ring.Lookup(key)]
	if primary.alive() {
		return primary
	}
	live := make([]string, 0, len(l.pools))
	for _, p := range l.pools {
		if p != primary && p.alive() {
			live = append(live, p.addr)
		}
	}
	if len(live) == 0 {
		return primary
	}
	return l.byAddr[rendezvous.New(live, xxhash.Sum64String).Lookup(key)]
}
