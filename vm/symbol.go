package vm

import "sync"

// ---------------------------------------------------------------------------
// SymbolTable: Symbol numbering
// ---------------------------------------------------------------------------

// SymbolTable assigns each symbol a stable number on first use, for
// Symbol#to_i and Symbol.all_symbols. Symbol values themselves are plain
// strings and never need the table.
type SymbolTable struct {
	mu     sync.RWMutex
	byName map[Symbol]int64
	byID   []Symbol
}

// NewSymbolTable creates an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		byName: make(map[Symbol]int64),
		byID:   make([]Symbol, 0, 256),
	}
}

// Intern returns the number of s, assigning the next one if needed.
// Numbers start at 1.
func (st *SymbolTable) Intern(s Symbol) int64 {
	st.mu.RLock()
	if id, ok := st.byName[s]; ok {
		st.mu.RUnlock()
		return id
	}
	st.mu.RUnlock()

	st.mu.Lock()
	defer st.mu.Unlock()
	if id, ok := st.byName[s]; ok {
		return id
	}
	st.byID = append(st.byID, s)
	id := int64(len(st.byID))
	st.byName[s] = id
	return id
}

// Lookup returns the symbol numbered id.
func (st *SymbolTable) Lookup(id int64) (Symbol, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if id < 1 || id > int64(len(st.byID)) {
		return "", false
	}
	return st.byID[id-1], true
}

// Len returns the number of numbered symbols.
func (st *SymbolTable) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.byID)
}

// All returns the numbered symbols in order.
func (st *SymbolTable) All() []Symbol {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]Symbol, len(st.byID))
	copy(out, st.byID)
	return out
}
