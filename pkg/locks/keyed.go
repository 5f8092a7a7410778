// Package locks provides a keyed table of exclusive, non-blocking locks.
package locks

import (
	"sync"
	"time"
)

// Table maps keys to lock holders. A hold not renewed within the table TTL
// is treated as abandoned and may be taken over, so a lost release never
// blocks a key forever. Holders of long work call Hold.Refresh between
// steps to keep the key.
type Table[K comparable] struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	held  map[K]hold
	token uint64
}

type hold struct {
	token   uint64
	renewed time.Time
}

// Hold is one successful acquisition of a key.
type Hold[K comparable] struct {
	table *Table[K]
	key   K
	token uint64
	once  sync.Once
}

// New creates a table. A non-positive ttl disables takeover.
func New[K comparable](ttl time.Duration) *Table[K] {
	return &Table[K]{
		ttl:  ttl,
		now:  time.Now,
		held: make(map[K]hold),
	}
}

// TryAcquire takes the lock for key without waiting. It returns the hold
// and true on success, or nil and false while another live hold exists.
func (t *Table[K]) TryAcquire(key K) (*Hold[K], bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if h, ok := t.held[key]; ok && !t.expired(h, now) {
		return nil, false
	}

	t.token++
	t.held[key] = hold{token: t.token, renewed: now}
	return &Hold[K]{table: t, key: key, token: t.token}, true
}

// Held reports whether key is currently locked.
func (t *Table[K]) Held(key K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.held[key]
	return ok && !t.expired(h, t.now())
}

// Len returns the number of live holds.
func (t *Table[K]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	n := 0
	for _, h := range t.held {
		if !t.expired(h, now) {
			n++
		}
	}
	return n
}

// Refresh renews the hold and reports whether it is still current. It
// returns false once the hold has been released, or has expired and been
// taken over; the holder must then stop writing under the key. An expired
// hold that nobody took over is renewed.
func (h *Hold[K]) Refresh() bool {
	t := h.table
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, ok := t.held[h.key]
	if !ok || cur.token != h.token {
		return false
	}
	cur.renewed = t.now()
	t.held[h.key] = cur
	return true
}

// Release frees the key if this hold is still current. It is idempotent.
func (h *Hold[K]) Release() {
	h.once.Do(func() {
		t := h.table
		t.mu.Lock()
		defer t.mu.Unlock()
		if cur, ok := t.held[h.key]; ok && cur.token == h.token {
			delete(t.held, h.key)
		}
	})
}

func (t *Table[K]) expired(h hold, now time.Time) bool {
	return t.ttl > 0 && now.Sub(h.renewed) >= t.ttl
}
