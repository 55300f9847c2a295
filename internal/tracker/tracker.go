// Package tracker provides modification counters and memoization cells whose
// validity is the conjunction of tracker snapshots taken at compute time.
package tracker

import (
	"sync"
	"sync/atomic"
)

// Tracker is a monotonically increasing modification counter for one
// invalidation domain.
type Tracker struct {
	name  string
	count atomic.Int64
}

// New creates a tracker with the given diagnostic name.
func New(name string) *Tracker {
	return &Tracker{name: name}
}

// Name returns the diagnostic name.
func (t *Tracker) Name() string {
	return t.name
}

// Inc bumps the counter, invalidating every value that depends on t.
func (t *Tracker) Inc() {
	t.count.Add(1)
}

// Count returns the current modification count.
func (t *Tracker) Count() int64 {
	return t.count.Load()
}

// Snapshot records the count of a tracker at a point in time.
type Snapshot struct {
	tracker *Tracker
	count   int64
}

// Stale reports whether the tracker moved since the snapshot was taken.
func (s Snapshot) Stale() bool {
	return s.tracker.Count() != s.count
}

// Deps collects the dependencies of one computation.
// Snapshots are taken when a tracker is added.
type Deps struct {
	mu    sync.Mutex
	snaps []Snapshot
	seen  map[*Tracker]struct{}
}

// Add records the current count of each non-nil tracker.
func (d *Deps) Add(trackers ...*Tracker) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen == nil {
		d.seen = make(map[*Tracker]struct{})
	}
	for _, t := range trackers {
		if t == nil {
			continue
		}
		if _, ok := d.seen[t]; ok {
			continue
		}
		d.seen[t] = struct{}{}
		d.snaps = append(d.snaps, Snapshot{tracker: t, count: t.Count()})
	}
}

// Snapshots returns a copy of the collected snapshots.
func (d *Deps) Snapshots() []Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Snapshot(nil), d.snaps...)
}

// AnyStale reports whether any snapshot is stale. An empty set is never stale.
func AnyStale(snaps []Snapshot) bool {
	for _, s := range snaps {
		if s.Stale() {
			return true
		}
	}
	return false
}
