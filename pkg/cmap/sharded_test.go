package cmap

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestNewWithShards(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{0, DefaultShardCount},
		{-1, DefaultShardCount},
		{3, DefaultShardCount},
		{1, 1},
		{4, 4},
		{32, 32},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("shards=%d", tt.input), func(t *testing.T) {
			m := NewWithShards[string, int](tt.input)
			if len(m.shards) != tt.expected {
				t.Errorf("NewWithShards(%d) shard count = %d, want %d", tt.input, len(m.shards), tt.expected)
			}
		})
	}
}

func TestSetGetDelete(t *testing.T) {
	m := New[string, int]()

	m.Set("10.0.0.1", 1)
	m.Set("10.0.0.2", 2)

	if v, ok := m.Get("10.0.0.1"); !ok || v != 1 {
		t.Errorf("Get() = (%d, %v), want (1, true)", v, ok)
	}
	if _, ok := m.Get("10.0.0.3"); ok {
		t.Error("Get() found a missing key")
	}

	m.Delete("10.0.0.1")
	if _, ok := m.Get("10.0.0.1"); ok {
		t.Error("key still present after Delete")
	}
	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}
}

func TestGetOrCreate(t *testing.T) {
	m := New[string, *int]()

	calls := 0
	create := func() *int {
		calls++
		v := calls
		return &v
	}

	a := m.GetOrCreate("k", create)
	b := m.GetOrCreate("k", create)
	if a != b {
		t.Error("GetOrCreate returned different values for the same key")
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}
}

func TestGetOrCreate_Concurrent(t *testing.T) {
	m := New[int, *int64]()
	var created atomic.Int64

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				m.GetOrCreate(i, func() *int64 {
					created.Add(1)
					return new(int64)
				})
			}
		}()
	}
	wg.Wait()

	if created.Load() != 100 {
		t.Errorf("created %d values, want 100", created.Load())
	}
	if m.Count() != 100 {
		t.Errorf("Count() = %d, want 100", m.Count())
	}
}

func TestDeleteIf(t *testing.T) {
	m := New[int, int]()
	for i := 0; i < 10; i++ {
		m.Set(i, i)
	}

	removed := m.DeleteIf(func(_ int, v int) bool { return v%2 == 0 })
	if removed != 5 {
		t.Errorf("DeleteIf removed %d, want 5", removed)
	}
	if m.Count() != 5 {
		t.Errorf("Count() = %d, want 5", m.Count())
	}
}

func TestRange(t *testing.T) {
	m := New[int, int]()
	for i := 0; i < 10; i++ {
		m.Set(i, i*i)
	}

	sum := 0
	m.Range(func(k, v int) bool {
		if v != k*k {
			t.Errorf("Range saw %d -> %d", k, v)
		}
		sum += k
		return true
	})
	if sum != 45 {
		t.Errorf("key sum = %d, want 45", sum)
	}

	seen := 0
	m.Range(func(int, int) bool {
		seen++
		return false
	})
	if seen != 1 {
		t.Errorf("Range continued after false: %d calls", seen)
	}
}
