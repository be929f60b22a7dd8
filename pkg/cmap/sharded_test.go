package cmap

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestNew(t *testing.T) {
	m := New[string, int]()
	if m == nil {
		t.Fatal("New() returned nil")
	}
	if len(m.shards) != DefaultShardCount {
		t.Errorf("shard count = %d, want %d", len(m.shards), DefaultShardCount)
	}
}

func TestNewWithShards(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{0, DefaultShardCount},  // invalid → default
		{-1, DefaultShardCount}, // invalid → default
		{3, DefaultShardCount},  // not power of 2 → default
		{1, 1},
		{4, 4},
		{32, 32},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("shards=%d", tt.input), func(t *testing.T) {
			m := NewWithShards[string, int](tt.input)
			if len(m.shards) != tt.expected {
				t.Errorf("NewWithShards(%d) shard count = %d, want %d",
					tt.input, len(m.shards), tt.expected)
			}
		})
	}
}

func TestSetAndGet(t *testing.T) {
	m := New[string, int]()

	m.Set("key1", 100)
	m.Set("key2", 200)

	val, ok := m.Get("key1")
	if !ok || val != 100 {
		t.Errorf("Get(key1) = (%d, %v), want (100, true)", val, ok)
	}

	val, ok = m.Get("nonexistent")
	if ok {
		t.Errorf("Get(nonexistent) = (%d, %v), want (0, false)", val, ok)
	}
}

func TestPop(t *testing.T) {
	m := New[string, int]()
	m.Set("key", 42)

	val, ok := m.Pop("key")
	if !ok || val != 42 {
		t.Errorf("Pop(key) = (%d, %v), want (42, true)", val, ok)
	}

	if _, ok := m.Pop("key"); ok {
		t.Error("second Pop(key) succeeded, want miss")
	}
	if m.Has("key") {
		t.Error("key still present after Pop")
	}
}

func TestPop_ExactlyOnceUnderConcurrency(t *testing.T) {
	m := New[string, int]()

	const iterations = 200
	for i := 0; i < iterations; i++ {
		key := fmt.Sprintf("conn-%d", i)
		m.Set(key, i)

		var winners atomic.Int32
		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok := m.Pop(key); ok {
					winners.Add(1)
				}
			}()
		}
		wg.Wait()

		if got := winners.Load(); got != 1 {
			t.Fatalf("Pop(%s) winners = %d, want 1", key, got)
		}
	}
}

func TestSetIfAbsent(t *testing.T) {
	m := New[string, int]()

	if !m.SetIfAbsent("key", 1) {
		t.Error("first SetIfAbsent returned false")
	}
	if m.SetIfAbsent("key", 2) {
		t.Error("second SetIfAbsent returned true")
	}

	val, _ := m.Get("key")
	if val != 1 {
		t.Errorf("value = %d, want 1", val)
	}
}

func TestUpsert(t *testing.T) {
	m := New[string, int]()

	got := m.Upsert("counter", func(existing int, exists bool) int {
		if exists {
			t.Error("exists = true on first Upsert")
		}
		return 1
	})
	if got != 1 {
		t.Errorf("first Upsert = %d, want 1", got)
	}

	got = m.Upsert("counter", func(existing int, exists bool) int {
		if !exists || existing != 1 {
			t.Errorf("second Upsert saw (%d, %v), want (1, true)", existing, exists)
		}
		return existing + 1
	})
	if got != 2 {
		t.Errorf("second Upsert = %d, want 2", got)
	}
}

func TestUpdateIfPresent(t *testing.T) {
	m := New[string, int]()

	if m.UpdateIfPresent("missing", func(v int) int { return v + 1 }) {
		t.Error("UpdateIfPresent returned true for a missing key")
	}
	if m.Has("missing") {
		t.Error("UpdateIfPresent inserted a missing key")
	}

	m.Set("key", 10)
	if !m.UpdateIfPresent("key", func(v int) int { return v + 1 }) {
		t.Error("UpdateIfPresent returned false for an existing key")
	}
	if val, _ := m.Get("key"); val != 11 {
		t.Errorf("value = %d, want 11", val)
	}
}

func TestCountAndClear(t *testing.T) {
	m := New[string, int]()
	for i := 0; i < 50; i++ {
		m.Set(fmt.Sprintf("key-%d", i), i)
	}

	if got := m.Count(); got != 50 {
		t.Errorf("Count() = %d, want 50", got)
	}

	m.Clear()
	if got := m.Count(); got != 0 {
		t.Errorf("Count() after Clear = %d, want 0", got)
	}
}

func TestRange(t *testing.T) {
	m := New[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)

	sum := 0
	m.Range(func(_ string, v int) bool {
		sum += v
		return true
	})
	if sum != 6 {
		t.Errorf("sum over Range = %d, want 6", sum)
	}

	visits := 0
	m.Range(func(_ string, _ int) bool {
		visits++
		return false
	})
	if visits != 1 {
		t.Errorf("Range with early stop visited %d, want 1", visits)
	}
}

func TestConcurrentAccess(t *testing.T) {
	m := New[string, int]()

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("key-%d-%d", g, i)
				m.Set(key, i)
				if _, ok := m.Get(key); !ok {
					t.Errorf("Get(%s) missed own write", key)
				}
			}
		}(g)
	}
	wg.Wait()

	if got := m.Count(); got != 1600 {
		t.Errorf("Count() = %d, want 1600", got)
	}
}

func TestDeleteIf(t *testing.T) {
	m := New[string, string]()
	m.Set("tok", "owner-a")

	if removed := m.DeleteIf("tok", func(v string) bool { return v == "owner-b" }); removed {
		t.Error("DeleteIf removed entry despite the guard rejecting it")
	}
	if !m.Has("tok") {
		t.Fatal("entry gone after rejected DeleteIf")
	}

	if removed := m.DeleteIf("tok", func(v string) bool { return v == "owner-a" }); !removed {
		t.Error("DeleteIf did not remove a matching entry")
	}
	if m.Has("tok") {
		t.Error("entry present after DeleteIf")
	}

	if removed := m.DeleteIf("missing", func(string) bool { return true }); removed {
		t.Error("DeleteIf reported removal of a missing key")
	}
}

func TestNonStringKeys(t *testing.T) {
	m := New[int, string]()
	for i := 0; i < 100; i++ {
		m.Set(i, fmt.Sprintf("v%d", i))
	}
	for i := 0; i < 100; i++ {
		got, ok := m.Get(i)
		if !ok || got != fmt.Sprintf("v%d", i) {
			t.Fatalf("Get(%d) = (%q, %v)", i, got, ok)
		}
	}
	if m.Count() != 100 {
		t.Errorf("Count() = %d, want 100", m.Count())
	}
}
