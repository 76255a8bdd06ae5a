package memo

import (
	"slices"
	"sync"
	"sync/atomic"
	"testing"
)

func TestCache_RecomputesOnlyOnKeyChange(t *testing.T) {
	c := New[[]int, int](func(a, b []int) bool { return slices.Equal(a, b) })
	calls := 0
	sum := func(xs []int) int {
		calls++
		total := 0
		for _, x := range xs {
			total += x
		}
		return total
	}

	if got := c.Get([]int{1, 2}, sum); got != 3 {
		t.Errorf("Get() = %d, want 3", got)
	}
	if got := c.Get([]int{1, 2}, sum); got != 3 {
		t.Errorf("Get() = %d, want 3", got)
	}
	if calls != 1 {
		t.Errorf("compute called %d times, want 1", calls)
	}

	if got := c.Get([]int{4}, sum); got != 4 {
		t.Errorf("Get() = %d, want 4", got)
	}
	if calls != 2 {
		t.Errorf("compute called %d times, want 2", calls)
	}

	// Only the latest key is remembered.
	c.Get([]int{1, 2}, sum)
	if calls != 3 {
		t.Errorf("compute called %d times, want 3", calls)
	}
}

func TestCache_Invalidate(t *testing.T) {
	c := New[string, int](func(a, b string) bool { return a == b })
	calls := 0
	length := func(s string) int {
		calls++
		return len(s)
	}

	c.Get("abc", length)
	c.Invalidate()
	c.Get("abc", length)
	if calls != 2 {
		t.Errorf("compute called %d times, want 2", calls)
	}
}

func TestCache_ConcurrentReaders(t *testing.T) {
	c := New[int, int](func(a, b int) bool { return a == b })
	var calls atomic.Int32
	square := func(x int) int {
		calls.Add(1)
		return x * x
	}
	c.Get(9, square)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := c.Get(9, square); got != 81 {
				t.Errorf("Get() = %d, want 81", got)
			}
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("compute called %d times, want 1", calls.Load())
	}
}
