package feed

import (
	"sync"
	"time"

	"ReliefAuction/internal/events"
)

const (
	// defaultDedupTTL is how long a seen event id is remembered.
	defaultDedupTTL = time.Minute
)

// dedup drops frames already delivered. Backfill and live pushes overlap on
// reconnect, so the same encoded event may arrive twice.
type dedup struct {
	mu   sync.Mutex
	seen map[[32]byte]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func newDedup(ttl time.Duration) *dedup {
	return &dedup{
		seen: make(map[[32]byte]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

// first reports whether data has not been seen within the TTL and records it.
func (d *dedup) first(data []byte) bool {
	id := events.ID(data)
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if at, ok := d.seen[id]; ok && now.Sub(at) < d.ttl {
		return false
	}

	d.seen[id] = now

	// Expired entries are swept lazily once the map grows.
	if len(d.seen) > 4096 {
		for k, at := range d.seen {
			if now.Sub(at) >= d.ttl {
				delete(d.seen, k)
			}
		}
	}

	return true
}
