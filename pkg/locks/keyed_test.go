package locks

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTryAcquireIsExclusivePerKey(t *testing.T) {
	tbl := New[string](time.Minute)

	a, ok := tbl.TryAcquire("a")
	if !ok {
		t.Fatal("first acquire failed")
	}
	if _, ok := tbl.TryAcquire("a"); ok {
		t.Error("second acquire of held key succeeded")
	}

	b, ok := tbl.TryAcquire("b")
	if !ok {
		t.Error("other keys should not be blocked")
	}
	b.Release()

	a.Release()
	if tbl.Held("a") {
		t.Error("key still held after release")
	}
	if _, ok := tbl.TryAcquire("a"); !ok {
		t.Error("acquire after release failed")
	}
}

func TestExpiredHoldIsTakenOver(t *testing.T) {
	now := time.Unix(0, 0)
	tbl := New[string](time.Second)
	tbl.now = func() time.Time { return now }

	stale, ok := tbl.TryAcquire("a")
	if !ok {
		t.Fatal("acquire failed")
	}

	now = now.Add(2 * time.Second)
	fresh, ok := tbl.TryAcquire("a")
	if !ok {
		t.Fatal("expired hold was not taken over")
	}

	if stale.Refresh() {
		t.Error("a taken-over hold must not refresh")
	}
	stale.Release()
	if !tbl.Held("a") {
		t.Error("stale release freed the new hold")
	}

	fresh.Release()
	fresh.Release()
	if tbl.Len() != 0 {
		t.Errorf("Len = %d after release", tbl.Len())
	}
}

func TestRefreshKeepsLiveHold(t *testing.T) {
	now := time.Unix(0, 0)
	tbl := New[string](time.Second)
	tbl.now = func() time.Time { return now }

	h, ok := tbl.TryAcquire("a")
	if !ok {
		t.Fatal("acquire failed")
	}

	// a run far longer than the ttl that renews between steps
	for range 5 {
		now = now.Add(800 * time.Millisecond)
		if !h.Refresh() {
			t.Fatal("refresh of a live hold failed")
		}
		if _, ok := tbl.TryAcquire("a"); ok {
			t.Fatal("a refreshed hold was taken over")
		}
	}

	h.Release()
	if h.Refresh() {
		t.Error("a released hold must not refresh")
	}
	if _, ok := tbl.TryAcquire("a"); !ok {
		t.Error("acquire after release failed")
	}
}

func TestConcurrentAcquireAdmitsOne(t *testing.T) {
	tbl := New[int](0)

	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, ok := tbl.TryAcquire(7); ok {
				wins.Add(1)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Errorf("winners = %d, want 1", got)
	}
}
