package tracker

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// ComputeFunc produces a value and records what it depends on in d.
// A non-nil error (typically a context cancellation) discards the result.
type ComputeFunc[T any] func(d *Deps) (T, error)

type entry[T any] struct {
	value T
	snaps []Snapshot
}

// Value is a memoization cell. A computed value stays valid until one of the
// trackers recorded during its computation moves. Results are published
// whole, never partially. A compute function must not read its own cell.
type Value[T any] struct {
	mu      sync.RWMutex
	current *entry[T]
	group   singleflight.Group
	compute ComputeFunc[T]
}

// NewValue creates a cell backed by compute.
func NewValue[T any](compute ComputeFunc[T]) *Value[T] {
	return &Value[T]{compute: compute}
}

// Get returns the cached value, recomputing it if any dependency is stale.
// Concurrent callers share one recomputation.
func (v *Value[T]) Get() (T, error) {
	if e := v.load(); e != nil {
		return e.value, nil
	}

	res, err, _ := v.group.Do("value", func() (any, error) {
		if e := v.load(); e != nil {
			return e, nil
		}
		d := &Deps{}
		val, err := v.compute(d)
		if err != nil {
			return nil, err
		}
		e := &entry[T]{value: val, snaps: d.Snapshots()}
		v.mu.Lock()
		v.current = e
		v.mu.Unlock()
		return e, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(*entry[T]).value, nil
}

// MustGet is Get for compute functions that never fail.
func (v *Value[T]) MustGet() T {
	val, _ := v.Get()
	return val
}

// Invalidate drops the cached value.
func (v *Value[T]) Invalidate() {
	v.mu.Lock()
	v.current = nil
	v.mu.Unlock()
}

// Cached reports whether a valid value is present without computing one.
func (v *Value[T]) Cached() bool {
	return v.load() != nil
}

func (v *Value[T]) load() *entry[T] {
	v.mu.RLock()
	e := v.current
	v.mu.RUnlock()
	if e == nil || AnyStale(e.snaps) {
		return nil
	}
	return e
}

// Map memoizes one Value per key. Cells are created on first access and
// live as long as the map.
type Map[K comparable, V any] struct {
	cells sync.Map
}

// Get returns the memoized value for key, computing it with compute when the
// key is new or its dependencies are stale.
func (m *Map[K, V]) Get(key K, compute ComputeFunc[V]) (V, error) {
	if c, ok := m.cells.Load(key); ok {
		return c.(*Value[V]).Get()
	}
	c, _ := m.cells.LoadOrStore(key, NewValue(compute))
	return c.(*Value[V]).Get()
}

// Len returns the number of keys ever requested.
func (m *Map[K, V]) Len() int {
	n := 0
	m.cells.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
