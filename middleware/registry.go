package middleware

import (
	"sync"
	"time"
)

// ReplayRegistry records which payment references have been admitted. Reserve
// must be atomic: for concurrent calls with the same reference exactly one
// caller sees true. Release returns a reference to the unconsumed pool after
// a failed verification so the payer can retry.
type ReplayRegistry interface {
	Reserve(reference string) bool
	Release(reference string)
}

// MemoryRegistry is a mutex-guarded in-process ReplayRegistry. Entries older
// than the TTL are swept out so long-running servers do not grow without
// bound; a swept reference can no longer be replayed anyway because its
// requirement has long expired.
type MemoryRegistry struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	done    chan struct{}
	once    sync.Once
}

// DefaultRegistryTTL keeps references well past any sane challenge expiry.
const DefaultRegistryTTL = 24 * time.Hour

// NewMemoryRegistry creates a registry whose entries expire after ttl. A
// non-positive ttl applies DefaultRegistryTTL.
func NewMemoryRegistry(ttl time.Duration) *MemoryRegistry {
	if ttl <= 0 {
		ttl = DefaultRegistryTTL
	}
	r := &MemoryRegistry{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	go r.sweep()
	return r
}

// Reserve marks the reference as consumed. It returns false when the
// reference was already reserved.
func (r *MemoryRegistry) Reserve(reference string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[reference]; ok {
		return false
	}
	r.entries[reference] = time.Now()
	return true
}

// Release returns the reference to the unconsumed pool.
func (r *MemoryRegistry) Release(reference string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, reference)
}

// Len reports the number of reserved references.
func (r *MemoryRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close stops the background sweep.
func (r *MemoryRegistry) Close() {
	r.once.Do(func() { close(r.done) })
}

func (r *MemoryRegistry) sweep() {
	interval := r.ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case now := <-ticker.C:
			r.mu.Lock()
			for ref, reserved := range r.entries {
				if now.Sub(reserved) > r.ttl {
					delete(r.entries, ref)
				}
			}
			r.mu.Unlock()
		}
	}
}
