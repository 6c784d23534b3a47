// Package dedup drops messages already seen within a TTL window.
package dedup

import (
	"sync"
	"time"
)

type Deduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	max  int
	seen map[string]time.Time
	now  func() time.Time
}

func New(ttl time.Duration, max int) *Deduper {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if max <= 0 {
		max = 10000
	}
	return &Deduper{ttl: ttl, max: max, seen: make(map[string]time.Time, max), now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (d *Deduper) WithClock(now func() time.Time) *Deduper {
	d.mu.Lock()
	d.now = now
	d.mu.Unlock()
	return d
}

// ShouldProcess reports whether id is new within the TTL and remembers it.
// Empty ids are always processed.
func (d *Deduper) ShouldProcess(id string) bool {
	if id == "" {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if exp, ok := d.seen[id]; ok && now.Before(exp) {
		return false
	}
	d.seen[id] = now.Add(d.ttl)
	if len(d.seen) > d.max {
		d.evict(now)
	}
	return true
}

// evict drops expired entries first, then arbitrary ones until the cap holds.
func (d *Deduper) evict(now time.Time) {
	for k, v := range d.seen {
		if now.After(v) {
			delete(d.seen, k)
		}
	}
	for k := range d.seen {
		if len(d.seen) <= d.max {
			break
		}
		delete(d.seen, k)
	}
}

func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
