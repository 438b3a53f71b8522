// Package klock is the external lock primitive the buddy allocator core
// consumes: a single mutual-exclusion lock with the xv6-style
// Init(name)/Acquire/Release contract (spec.md §6), generalized from the
// teacher's reader/writer RWMutex (refactor_code/internal/concurrency)
// down to the single exclusive lock the allocator actually needs — the
// core has no notion of readers, every operation mutates the tree.
package klock

import (
	"sync"
	"sync/atomic"
	"time"
)

// Lock is a named, statistics-tracking mutual-exclusion lock. It holds no
// more than one owner at a time and never times out: spec.md §5 requires
// unconditional acquisition with no suspension guarantees beyond "bounded
// by O(DEPTH) pointer operations" once held.
type Lock struct {
	name string
	mu   sync.Mutex

	held    atomic.Bool
	holder  atomic.Int64 // UnixNano time of the most recent Acquire
	acquire atomic.Int64 // total Acquire calls
	contend atomic.Int64 // Acquire calls that had to wait
	holdNs  atomic.Int64 // cumulative nanoseconds held
}

// New constructs a Lock with the given diagnostic name. Mirrors the
// collaborator contract's Init(name) from spec.md §6; Go idiom makes this a
// constructor rather than an in-place initializer.
func New(name string) *Lock {
	return &Lock{name: name}
}

// Name returns the lock's diagnostic name.
func (l *Lock) Name() string { return l.name }

// Acquire blocks until the lock is held by the caller.
func (l *Lock) Acquire() {
	contended := !l.mu.TryLock()
	if contended {
		l.contend.Add(1)
		l.mu.Lock()
	}
	l.acquire.Add(1)
	l.held.Store(true)
	l.holder.Store(time.Now().UnixNano())
}

// Release releases a previously acquired lock. Calling it without a
// matching Acquire is a caller bug (the core never does this: every
// Release is deferred right after its Acquire).
func (l *Lock) Release() {
	start := l.holder.Load()
	if start != 0 {
		l.holdNs.Add(time.Now().UnixNano() - start)
	}
	l.held.Store(false)
	l.mu.Unlock()
}

// Holding reports whether the lock is currently held by anyone, in the
// spirit of xv6's holding(). The core never calls it.
func (l *Lock) Holding() bool {
	return l.held.Load()
}

// Stats is a point-in-time snapshot of lock activity, surfaced through
// Allocator.Stats() and the Prometheus collector.
type Stats struct {
	Acquisitions int64
	Contended    int64
	HoldTime     time.Duration
}

// Stats returns a snapshot of the lock's counters.
func (l *Lock) Stats() Stats {
	return Stats{
		Acquisitions: l.acquire.Load(),
		Contended:    l.contend.Load(),
		HoldTime:     time.Duration(l.holdNs.Load()),
	}
}
