package cmap

import (
	"sort"
	"sync"
	"testing"
)

func TestRange(t *testing.T) {
	m := New[string, int]()
	m.Set("tses-a", 1)
	m.Set("tses-b", 2)
	m.Set("tses-c", 3)

	collected := make(map[string]int)
	m.Range(func(key string, value int) bool {
		collected[key] = value
		return true
	})

	if len(collected) != 3 {
		t.Errorf("Range collected %d items, want 3", len(collected))
	}
	for k, v := range map[string]int{"tses-a": 1, "tses-b": 2, "tses-c": 3} {
		if collected[k] != v {
			t.Errorf("collected[%s] = %d, want %d", k, collected[k], v)
		}
	}
}

func TestRange_EarlyStop(t *testing.T) {
	m := New[int, int]()
	for i := 0; i < 100; i++ {
		m.Set(i, i)
	}

	count := 0
	m.Range(func(key, value int) bool {
		count++
		return count < 10
	})

	if count != 10 {
		t.Errorf("Range stopped at %d, want 10", count)
	}
}

func TestKeys(t *testing.T) {
	m := New[string, int]()
	m.Set("x", 1)
	m.Set("y", 2)
	m.Set("z", 3)

	keys := m.Keys()
	if len(keys) != 3 {
		t.Fatalf("Keys() length = %d, want 3", len(keys))
	}

	sort.Strings(keys)
	want := []string{"x", "y", "z"}
	for i, k := range keys {
		if k != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, k, want[i])
		}
	}
}

func TestValues(t *testing.T) {
	m := New[string, int]()
	m.Set("x", 10)
	m.Set("y", 20)
	m.Set("z", 30)

	values := m.Values()
	if len(values) != 3 {
		t.Fatalf("Values() length = %d, want 3", len(values))
	}

	sort.Ints(values)
	want := []int{10, 20, 30}
	for i, v := range values {
		if v != want[i] {
			t.Errorf("values[%d] = %d, want %d", i, v, want[i])
		}
	}
}

func TestGetOrSet(t *testing.T) {
	m := New[string, int]()

	val, existed := m.GetOrSet("owner-1", 100)
	if existed || val != 100 {
		t.Errorf("GetOrSet(new) = (%d, %v), want (100, false)", val, existed)
	}

	val, existed = m.GetOrSet("owner-1", 200)
	if !existed || val != 100 {
		t.Errorf("GetOrSet(existing) = (%d, %v), want (100, true)", val, existed)
	}
}

func TestSetIfAbsent(t *testing.T) {
	m := New[string, int]()

	if !m.SetIfAbsent("owner-1", 100) {
		t.Error("SetIfAbsent(absent) should return true")
	}
	if val, _ := m.Get("owner-1"); val != 100 {
		t.Errorf("Get(owner-1) = %d, want 100", val)
	}

	if m.SetIfAbsent("owner-1", 200) {
		t.Error("SetIfAbsent(present) should return false")
	}
	if val, _ := m.Get("owner-1"); val != 100 {
		t.Errorf("value changed unexpectedly: %d, want 100", val)
	}
}

func TestUpdate(t *testing.T) {
	m := New[string, int]()

	result := m.Update("hits", func(value int, exists bool) int {
		if exists {
			return value + 1
		}
		return 1
	})
	if result != 1 {
		t.Errorf("Update(new) = %d, want 1", result)
	}

	result = m.Update("hits", func(value int, exists bool) int {
		return value + 1
	})
	if result != 2 {
		t.Errorf("Update(existing) = %d, want 2", result)
	}
}

func TestUpdate_Concurrent(t *testing.T) {
	m := New[string, int]()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Update("hits", func(value int, exists bool) int {
				return value + 1
			})
		}()
	}
	wg.Wait()

	if val, _ := m.Get("hits"); val != 100 {
		t.Errorf("Get(hits) = %d, want 100", val)
	}
}

func TestPop(t *testing.T) {
	m := New[string, int]()
	m.Set("tses-a", 100)

	val, ok := m.Pop("tses-a")
	if !ok || val != 100 {
		t.Errorf("Pop(existing) = (%d, %v), want (100, true)", val, ok)
	}
	if m.Has("tses-a") {
		t.Error("key should not exist after Pop")
	}

	if val, ok = m.Pop("tses-a"); ok {
		t.Errorf("Pop(nonexistent) = (%d, %v), want (0, false)", val, ok)
	}
}

func TestRange_ConcurrentWithWrites(t *testing.T) {
	m := New[int, int]()
	for i := 0; i < 1000; i++ {
		m.Set(i, i)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Range(func(k, v int) bool {
					return true
				})
			}
		}()

		go func(base int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Set(base*100+j, j)
			}
		}(i + 100)
	}
	wg.Wait()
}
