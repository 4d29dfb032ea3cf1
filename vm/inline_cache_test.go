package vm

import (
	"fmt"
	"testing"
)

func TestInlineCacheEmpty(t *testing.T) {
	ic := &InlineCache{State: CacheEmpty}
	if m := ic.Lookup(newClass("Test", nil, false), 0); m != nil {
		t.Error("expected nil from empty cache")
	}
	if ic.Misses != 1 {
		t.Errorf("Misses = %d, want 1", ic.Misses)
	}
}

func TestInlineCacheMonomorphic(t *testing.T) {
	ic := &InlineCache{State: CacheEmpty}
	class := newClass("Test", nil, false)
	m := &Method{Name: "test", Owner: class}

	ic.Update(class, m, 1)
	if ic.State != CacheMonomorphic || ic.Count != 1 {
		t.Fatalf("State = %v, Count = %d, want monomorphic with 1 entry", ic.State, ic.Count)
	}
	if got := ic.Lookup(class, 1); got != m {
		t.Error("expected a hit for the cached class")
	}
	if got := ic.Lookup(newClass("Other", nil, false), 1); got != nil {
		t.Error("expected a miss for a different class")
	}
	if ic.Hits != 1 || ic.Misses != 1 {
		t.Errorf("Hits = %d, Misses = %d, want 1 and 1", ic.Hits, ic.Misses)
	}
}

func TestInlineCacheSerialInvalidates(t *testing.T) {
	ic := &InlineCache{State: CacheEmpty}
	class := newClass("Test", nil, false)
	ic.Update(class, &Method{Name: "test", Owner: class}, 3)

	if got := ic.Lookup(class, 4); got != nil {
		t.Error("a stale entry should not survive a serial change")
	}
	if ic.State != CacheEmpty {
		t.Errorf("State = %v, want empty after invalidation", ic.State)
	}
}

func TestInlineCacheGrowsToMegamorphic(t *testing.T) {
	ic := &InlineCache{State: CacheEmpty}
	classes := make([]*Class, MaxPICEntries+1)
	for i := range classes {
		classes[i] = newClass(fmt.Sprintf("C%d", i), nil, false)
	}

	ic.Update(classes[0], &Method{Name: "m"}, 0)
	ic.Update(classes[1], &Method{Name: "m"}, 0)
	if ic.State != CachePolymorphic || ic.Count != 2 {
		t.Fatalf("State = %v, Count = %d, want polymorphic with 2 entries", ic.State, ic.Count)
	}
	ic.Update(classes[1], &Method{Name: "m"}, 0)
	if ic.Count != 2 {
		t.Errorf("re-adding a cached class changed Count to %d", ic.Count)
	}

	for _, c := range classes[2:] {
		ic.Update(c, &Method{Name: "m"}, 0)
	}
	if ic.State != CacheMegamorphic {
		t.Fatalf("State = %v after %d classes, want megamorphic", ic.State, len(classes))
	}
	if m := ic.Lookup(classes[0], 0); m != nil {
		t.Error("a megamorphic cache should always miss")
	}
	ic.Update(classes[0], &Method{Name: "m"}, 1)
	if ic.State != CacheMegamorphic {
		t.Error("a megamorphic site should stay megamorphic")
	}
}

func TestInlineCacheIgnoresFailedLookups(t *testing.T) {
	ic := &InlineCache{State: CacheEmpty}
	ic.Update(newClass("Test", nil, false), nil, 0)
	if ic.State != CacheEmpty {
		t.Errorf("State = %v, want empty", ic.State)
	}
}

func TestInlineCacheTableStats(t *testing.T) {
	table := NewInlineCacheTable()
	a, b := newClass("A", nil, false), newClass("B", nil, false)

	ic := table.GetOrCreate(4)
	if table.GetOrCreate(4) != ic {
		t.Fatal("GetOrCreate should return the same cache for an offset")
	}
	ic.Update(a, &Method{Name: "x"}, 0)
	ic.Lookup(a, 0)

	poly := table.GetOrCreate(9)
	poly.Update(a, &Method{Name: "x"}, 0)
	poly.Update(b, &Method{Name: "x"}, 0)
	table.GetOrCreate(12)

	if table.Get(20) != nil {
		t.Error("Get should not create caches")
	}
	mono, polyN, mega, empty, hits, misses := table.Stats()
	if mono != 1 || polyN != 1 || mega != 0 || empty != 1 {
		t.Errorf("Stats = %d mono, %d poly, %d mega, %d empty", mono, polyN, mega, empty)
	}
	if hits != 1 || misses != 0 {
		t.Errorf("hits = %d, misses = %d, want 1 and 0", hits, misses)
	}
}
