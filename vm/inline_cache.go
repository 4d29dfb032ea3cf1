package vm

// Inline Caching for Method Dispatch
//
// Most send sites see a single receiver class, a few see a handful and
// very few see many. Each SEND instruction gets its own cache, indexed by
// its bytecode offset in the body. Entries are tagged with the runtime's
// method serial; any def, undef, alias, include or visibility change bumps
// the serial and so invalidates every entry at once.

// CacheState represents the current state of an inline cache.
type CacheState uint8

const (
	CacheEmpty       CacheState = iota // No cached lookup yet
	CacheMonomorphic                   // Single (class, method) cached
	CachePolymorphic                   // 2-6 entries in PIC
	CacheMegamorphic                   // Too many classes, use full lookup
)

// MaxPICEntries is the maximum number of entries in a polymorphic inline cache.
const MaxPICEntries = 6

// InlineCacheEntry holds a single cached method lookup result.
type InlineCacheEntry struct {
	Class  *Class
	Method *Method
}

// InlineCache represents the cache state for a single send site.
// It progresses through states: Empty -> Monomorphic -> Polymorphic -> Megamorphic
type InlineCache struct {
	State   CacheState
	Serial  uint64
	Entries [MaxPICEntries]InlineCacheEntry
	Count   int

	Hits   uint64
	Misses uint64
}

// Lookup checks the cache for a method matching the given class under the
// current serial. Returns nil on miss.
func (ic *InlineCache) Lookup(class *Class, serial uint64) *Method {
	if ic.Serial != serial && ic.State != CacheMegamorphic {
		ic.clear()
	}
	switch ic.State {
	case CacheMonomorphic:
		if ic.Entries[0].Class == class {
			ic.Hits++
			return ic.Entries[0].Method
		}

	case CachePolymorphic:
		for i := 0; i < ic.Count; i++ {
			if ic.Entries[i].Class == class {
				ic.Hits++
				return ic.Entries[i].Method
			}
		}
	}

	ic.Misses++
	return nil
}

// Update records a new (class, method) pair, potentially upgrading the cache state.
func (ic *InlineCache) Update(class *Class, method *Method, serial uint64) {
	if method == nil {
		return // failed lookups go to method_missing every time
	}
	if ic.Serial != serial && ic.State != CacheMegamorphic {
		ic.clear()
	}
	ic.Serial = serial

	switch ic.State {
	case CacheEmpty:
		ic.State = CacheMonomorphic
		ic.Entries[0] = InlineCacheEntry{Class: class, Method: method}
		ic.Count = 1

	case CacheMonomorphic:
		if ic.Entries[0].Class == class {
			return
		}
		ic.State = CachePolymorphic
		ic.Entries[1] = InlineCacheEntry{Class: class, Method: method}
		ic.Count = 2

	case CachePolymorphic:
		for i := 0; i < ic.Count; i++ {
			if ic.Entries[i].Class == class {
				return
			}
		}
		if ic.Count < MaxPICEntries {
			ic.Entries[ic.Count] = InlineCacheEntry{Class: class, Method: method}
			ic.Count++
		} else {
			ic.clear()
			ic.State = CacheMegamorphic
		}
	}
}

func (ic *InlineCache) clear() {
	ic.State = CacheEmpty
	ic.Count = 0
	for i := range ic.Entries {
		ic.Entries[i] = InlineCacheEntry{}
	}
}

// HitRate returns the cache hit rate as a percentage (0-100).
func (ic *InlineCache) HitRate() float64 {
	total := ic.Hits + ic.Misses
	if total == 0 {
		return 0
	}
	return float64(ic.Hits) * 100 / float64(total)
}

// Reset clears the cache back to empty state.
func (ic *InlineCache) Reset() {
	ic.clear()
	ic.Hits = 0
	ic.Misses = 0
}

// InlineCacheTable manages inline caches for all send sites in a body.
// It maps bytecode offset to cache entry. Access is serialized by the
// runtime's interpreter lock.
type InlineCacheTable struct {
	caches map[int]*InlineCache
}

// NewInlineCacheTable creates a new inline cache table.
func NewInlineCacheTable() *InlineCacheTable {
	return &InlineCacheTable{
		caches: make(map[int]*InlineCache),
	}
}

// GetOrCreate returns the cache for a given offset, creating one if needed.
func (t *InlineCacheTable) GetOrCreate(pc int) *InlineCache {
	if ic := t.caches[pc]; ic != nil {
		return ic
	}
	ic := &InlineCache{State: CacheEmpty}
	t.caches[pc] = ic
	return ic
}

// Get returns the cache for a given offset, or nil if none exists.
func (t *InlineCacheTable) Get(pc int) *InlineCache {
	return t.caches[pc]
}

// Stats returns aggregate statistics for all caches in the table.
func (t *InlineCacheTable) Stats() (mono, poly, mega, empty int, totalHits, totalMisses uint64) {
	for _, ic := range t.caches {
		switch ic.State {
		case CacheMonomorphic:
			mono++
		case CachePolymorphic:
			poly++
		case CacheMegamorphic:
			mega++
		case CacheEmpty:
			empty++
		}
		totalHits += ic.Hits
		totalMisses += ic.Misses
	}
	return
}

// ICStats holds aggregate inline cache statistics.
type ICStats struct {
	TotalCallSites int
	Monomorphic    int
	Polymorphic    int
	Megamorphic    int
	Empty          int
	TotalHits      uint64
	TotalMisses    uint64
	HitRate        float64
}

// CollectICStats gathers inline cache statistics from body and its
// children.
func CollectICStats(body *CompiledBody) ICStats {
	var stats ICStats
	body.Walk(func(b *CompiledBody) {
		if b.caches == nil {
			return
		}
		mono, poly, mega, empty, hits, misses := b.caches.Stats()
		stats.Monomorphic += mono
		stats.Polymorphic += poly
		stats.Megamorphic += mega
		stats.Empty += empty
		stats.TotalHits += hits
		stats.TotalMisses += misses
		stats.TotalCallSites += mono + poly + mega + empty
	})
	if total := stats.TotalHits + stats.TotalMisses; total > 0 {
		stats.HitRate = float64(stats.TotalHits) * 100 / float64(total)
	}
	return stats
}
