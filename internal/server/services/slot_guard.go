package services

import (
	"log"
	"sync"
	"time"
)

// SlotGuard rejects a second submission for a slot while the first one is
// still being processed. Entries expire so that a stuck request cannot lock
// a slot forever.
type SlotGuard struct {
	data sync.Map // map[string]time.Time - slotID -> expiry timestamp
	ttl  time.Duration

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewSlotGuard creates a guard and starts the cleanup goroutine. Call Stop
// to end it.
func NewSlotGuard(ttl time.Duration) *SlotGuard {
	guard := &SlotGuard{
		ttl:  ttl,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go guard.startCleanup(30 * time.Second)
	return guard
}

// Stop ends the cleanup goroutine and waits for it to exit. Safe to call
// more than once.
func (g *SlotGuard) Stop() {
	g.stopOnce.Do(func() { close(g.stop) })
	<-g.done
}

// TryAcquire marks slotID as in flight. It returns false if another request
// holds it. The returned func releases the slot.
func (g *SlotGuard) TryAcquire(slotID string) (func(), bool) {
	now := time.Now()
	expiry := now.Add(g.ttl)

	for {
		val, loaded := g.data.LoadOrStore(slotID, expiry)
		if !loaded {
			break
		}
		held, ok := val.(time.Time)
		if ok && now.Before(held) {
			return nil, false
		}
		// Expired holder: take over only if nobody else did meanwhile.
		if g.data.CompareAndSwap(slotID, val, expiry) {
			break
		}
	}

	return func() { g.data.CompareAndDelete(slotID, expiry) }, true
}

// InFlight reports whether slotID is currently held.
func (g *SlotGuard) InFlight(slotID string) bool {
	val, ok := g.data.Load(slotID)
	if !ok {
		return false
	}
	expiry, ok := val.(time.Time)
	return ok && time.Now().Before(expiry)
}

// startCleanup removes expired entries every interval until Stop.
func (g *SlotGuard) startCleanup(interval time.Duration) {
	defer close(g.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-g.stop:
			return
		case now := <-ticker.C:
			if removed := g.cleanup(now); removed > 0 {
				log.Printf("Slot guard: cleaned up %d expired entries", removed)
			}
		}
	}
}

func (g *SlotGuard) cleanup(now time.Time) int {
	removed := 0
	g.data.Range(func(key, val interface{}) bool {
		expiry, ok := val.(time.Time)
		if ok && now.After(expiry) && g.data.CompareAndDelete(key, val) {
			removed++
		}
		return true
	})
	return removed
}
