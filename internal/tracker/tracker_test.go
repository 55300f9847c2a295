package tracker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueRecomputesWhenTrackerMoves(t *testing.T) {
	t.Parallel()

	src := New("src")
	calls := 0
	v := NewValue(func(d *Deps) (int, error) {
		d.Add(src)
		calls++
		return calls, nil
	})

	assert.Equal(t, 1, v.MustGet())
	assert.Equal(t, 1, v.MustGet())
	assert.True(t, v.Cached())

	src.Inc()
	assert.False(t, v.Cached())
	assert.Equal(t, 2, v.MustGet())
	assert.Equal(t, 2, calls)
}

func TestValueWithoutDepsNeverGoesStale(t *testing.T) {
	t.Parallel()

	calls := 0
	v := NewValue(func(d *Deps) (string, error) {
		calls++
		return "x", nil
	})
	v.MustGet()
	v.MustGet()
	assert.Equal(t, 1, calls)

	v.Invalidate()
	v.MustGet()
	assert.Equal(t, 2, calls)
}

func TestValueDoesNotPublishFailedCompute(t *testing.T) {
	t.Parallel()

	fail := true
	v := NewValue(func(d *Deps) (int, error) {
		if fail {
			return 7, context.Canceled
		}
		return 42, nil
	})

	_, err := v.Get()
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, v.Cached())

	fail = false
	got, err := v.Get()
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestValueConcurrentReaders(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	v := NewValue(func(d *Deps) (int, error) {
		calls.Add(1)
		return 1, nil
	})

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, 1, v.MustGet())
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(16))
	assert.True(t, v.Cached())
}

func TestDepsDeduplicatesTrackers(t *testing.T) {
	t.Parallel()

	a := New("a")
	d := &Deps{}
	d.Add(a, a, nil)
	d.Add(a)
	assert.Len(t, d.Snapshots(), 1)
	assert.False(t, AnyStale(d.Snapshots()))
	a.Inc()
	assert.True(t, AnyStale(d.Snapshots()))
}

func TestMapPerKey(t *testing.T) {
	t.Parallel()

	var m Map[string, int]
	src := New("src")
	calls := map[string]int{}
	compute := func(key string) ComputeFunc[int] {
		return func(d *Deps) (int, error) {
			d.Add(src)
			calls[key]++
			return len(key), nil
		}
	}

	got, err := m.Get("abc", compute("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, got)
	got, _ = m.Get("abc", compute("abc"))
	assert.Equal(t, 3, got)
	_, _ = m.Get("z", compute("z"))

	assert.Equal(t, 1, calls["abc"])
	assert.Equal(t, 2, m.Len())

	src.Inc()
	_, _ = m.Get("abc", compute("abc"))
	assert.Equal(t, 2, calls["abc"])
}
