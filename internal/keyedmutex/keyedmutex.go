// Package keyedmutex provides per-key mutual exclusion with a liveness
// timeout.
//
// Each key gets an independent FIFO lock: concurrent Acquire calls on the
// same key are granted strictly in arrival order, and distinct keys never
// block each other. A hold timeout force-releases the lock if the holder
// never calls release - strict exclusivity is traded for liveness, because
// a wedged game channel must never freeze permanently.
package keyedmutex

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rfontaine/lycaon/internal/metrics"
)

var (
	// ErrDestroyed is returned by Acquire after Destroy.
	ErrDestroyed = errors.New("keyed mutex destroyed")
)

// DefaultHoldTimeout bounds how long a holder may sit on a lock before it
// is forcibly released.
const DefaultHoldTimeout = 30 * time.Second

// ticket represents one Acquire call waiting for or holding a key.
type ticket struct {
	ready chan struct{} // closed when the ticket becomes the holder
	err   error         // set before ready closes when the grant failed
	timer *time.Timer   // forced-release timer, armed while holding
}

// entry is the per-key lock record: the current holder plus FIFO waiters.
type entry struct {
	holder  *ticket
	waiters []*ticket
}

// KeyedMutex multiplexes independent FIFO locks over string keys.
// All methods are safe for concurrent use.
type KeyedMutex struct {
	mu        sync.Mutex
	entries   map[string]*entry
	holdMax   time.Duration
	destroyed bool
}

// New creates a KeyedMutex with the given hold timeout. A non-positive
// timeout falls back to DefaultHoldTimeout.
func New(holdTimeout time.Duration) *KeyedMutex {
	if holdTimeout <= 0 {
		holdTimeout = DefaultHoldTimeout
	}
	return &KeyedMutex{
		entries: make(map[string]*entry),
		holdMax: holdTimeout,
	}
}

// Acquire blocks until the key's lock is granted, the context is cancelled,
// or the mutex is destroyed. Grants are strictly FIFO per key.
//
// The returned release function is idempotent, and safe to call after a
// forced release (it becomes a no-op - the lock has already moved on).
func (m *KeyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	start := time.Now()

	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return nil, ErrDestroyed
	}
	e, ok := m.entries[key]
	if !ok {
		e = &entry{}
		m.entries[key] = e
	}
	t := &ticket{ready: make(chan struct{})}
	if e.holder == nil {
		m.grantLocked(key, e, t)
	} else {
		e.waiters = append(e.waiters, t)
	}
	m.mu.Unlock()

	select {
	case <-t.ready:
		if t.err != nil {
			return nil, t.err
		}
		metrics.LockWait.Observe(time.Since(start).Seconds())
		return func() { m.release(key, t) }, nil

	case <-ctx.Done():
		m.abandon(key, t)
		// The grant may have raced the cancellation; if we hold the lock
		// now, pass it on before reporting the context error.
		select {
		case <-t.ready:
			if t.err == nil {
				m.release(key, t)
			}
		default:
		}
		return nil, ctx.Err()
	}
}

// grantLocked makes t the holder of key and arms its forced-release timer.
// Caller must hold m.mu.
func (m *KeyedMutex) grantLocked(key string, e *entry, t *ticket) {
	e.holder = t
	t.timer = time.AfterFunc(m.holdMax, func() {
		slog.Warn("lock hold timeout, forcing release", "key", key, "timeout", m.holdMax)
		metrics.ForcedReleases.Inc()
		m.release(key, t)
	})
	close(t.ready)
}

// release hands the key to the next waiter, if any. No-op unless t is the
// current holder, which makes both double release and release-after-forced
// safe.
func (m *KeyedMutex) release(key string, t *ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || e.holder != t {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	e.holder = nil
	if len(e.waiters) > 0 {
		next := e.waiters[0]
		e.waiters[0] = nil
		e.waiters = e.waiters[1:]
		m.grantLocked(key, e, next)
	}
}

// abandon removes a still-waiting ticket from the key's queue.
func (m *KeyedMutex) abandon(key string, t *ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return
	}
	for i, w := range e.waiters {
		if w == t {
			e.waiters = append(e.waiters[:i], e.waiters[i+1:]...)
			return
		}
	}
}

// IsLocked reports whether the key is currently held.
func (m *KeyedMutex) IsLocked(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	return ok && e.holder != nil
}

// Delete drops the bookkeeping entry for an idle key. Returns false if the
// key is held or has waiters.
func (m *KeyedMutex) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return true
	}
	if e.holder != nil || len(e.waiters) > 0 {
		return false
	}
	delete(m.entries, key)
	return true
}

// Destroy fails all pending waiters and marks the mutex unusable. Current
// holders keep their (now meaningless) release functions; further Acquire
// calls return ErrDestroyed. Intended for process shutdown.
func (m *KeyedMutex) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destroyed {
		return
	}
	m.destroyed = true
	for key, e := range m.entries {
		for _, w := range e.waiters {
			w.err = ErrDestroyed
			close(w.ready)
		}
		if e.holder != nil && e.holder.timer != nil {
			e.holder.timer.Stop()
		}
		delete(m.entries, key)
	}
}

// Len returns the number of tracked keys. Testing hook.
func (m *KeyedMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Waiters returns the number of tickets queued behind the holder of key.
// Testing hook.
func (m *KeyedMutex) Waiters(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok {
		return len(e.waiters)
	}
	return 0
}
