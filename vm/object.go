package vm

import (
	"fmt"
	"math/big"
	"strings"
)

// ---------------------------------------------------------------------------
// Equality and ordering
// ---------------------------------------------------------------------------

// Equal implements ==, with fast paths for immediates and strings.
func (tc *ThreadContext) Equal(a, b Value) bool {
	switch x := a.(type) {
	case nil, bool, Symbol:
		return a == b
	case int64:
		switch y := b.(type) {
		case int64:
			return x == y
		case float64:
			return float64(x) == y
		case *big.Int:
			return false
		}
	case float64:
		switch y := b.(type) {
		case float64:
			return x == y
		case int64:
			return x == float64(y)
		}
	case *String:
		if y, ok := b.(*String); ok {
			return x.S == y.S
		}
	}
	return Truthy(tc.Send(a, "==", b))
}

// Eql implements eql?, the equality hash keys use.
func (tc *ThreadContext) Eql(a, b Value) bool {
	return hashKey(a) == hashKey(b)
}

// Compare implements <=>, raising ArgumentError when the values are not
// comparable.
func (tc *ThreadContext) Compare(a, b Value) int {
	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return cmpInt(x, y)
		case float64:
			return cmpFloat(float64(x), y)
		}
	case float64:
		switch y := b.(type) {
		case float64:
			return cmpFloat(x, y)
		case int64:
			return cmpFloat(x, float64(y))
		}
	case *String:
		if y, ok := b.(*String); ok {
			return strings.Compare(x.S, y.S)
		}
	}
	r := tc.Send(a, "<=>", b)
	n, ok := r.(int64)
	if !ok {
		tc.Raise(tc.rt.ArgumentError, "comparison of %s with %s failed", tc.rt.RealClassOf(a).Name(), tc.describeForCompare(b))
	}
	return cmpInt(n, 0)
}

func (tc *ThreadContext) describeForCompare(v Value) string {
	switch v.(type) {
	case nil, bool, int64, float64:
		return tc.Inspect(v)
	}
	return tc.rt.RealClassOf(v).Name()
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// ---------------------------------------------------------------------------
// Hash keys
// ---------------------------------------------------------------------------

type strKey string
type bigKey string
type compositeKey string

// hashKey maps a value to a comparable Go key. Strings, bignums, arrays
// and ranges hash by content; other heap objects by identity.
func hashKey(v Value) any {
	switch x := v.(type) {
	case *String:
		return strKey(x.S)
	case *big.Int:
		return bigKey(x.String())
	case float64:
		if x == 0 {
			return float64(0) // -0.0
		}
		return x
	case *Array:
		var sb strings.Builder
		sb.WriteByte('[')
		for _, e := range x.Elems {
			writeKey(&sb, e)
		}
		return compositeKey(sb.String())
	case *Range:
		var sb strings.Builder
		sb.WriteByte('(')
		writeKey(&sb, x.Begin)
		writeKey(&sb, x.End)
		if x.Exclusive {
			sb.WriteByte('x')
		}
		return compositeKey(sb.String())
	}
	return v
}

func writeKey(sb *strings.Builder, v Value) {
	switch k := hashKey(v).(type) {
	case compositeKey:
		sb.WriteString(string(k))
		sb.WriteByte(']')
	case strKey, bigKey, int64, float64, Symbol, bool, nil:
		fmt.Fprintf(sb, "%T:%v;", k, k)
	default:
		fmt.Fprintf(sb, "%T:%p;", k, k)
	}
}

// hashCode returns the value Object#hash reports.
func (rt *Runtime) hashCode(v Value) int64 {
	var s string
	switch k := hashKey(v).(type) {
	case compositeKey, strKey, bigKey, int64, float64, Symbol, bool, nil:
		s = fmt.Sprintf("%T:%v", k, k)
	default:
		return rt.objectID(v)
	}
	var h int64 = 5381
	for i := 0; i < len(s); i++ {
		h = h*33 + int64(s[i])
	}
	return h
}

// objectID returns the value Object#object_id reports.
func (rt *Runtime) objectID(v Value) int64 {
	switch x := v.(type) {
	case nil:
		return 4
	case bool:
		if x {
			return 2
		}
		return 0
	case int64:
		return 2*x + 1
	case HeapValue:
		b := x.basic()
		if b.id == 0 {
			b.id = rt.nextID.Add(1) * 8
		}
		return b.id
	}
	return rt.hashCode(v)&^7 | 6
}

// ---------------------------------------------------------------------------
// Hash: Insertion-ordered map
// ---------------------------------------------------------------------------

type hashEntry struct {
	key, value Value
	deleted    bool
}

// Hash is a Ruby Hash. Iteration follows insertion order.
type Hash struct {
	Basic
	index   map[any]int
	entries []hashEntry
	live    int

	Default     Value
	DefaultProc *Proc
}

// NewHash creates an empty hash.
func NewHash() *Hash {
	return &Hash{index: make(map[any]int)}
}

// Len returns the number of pairs.
func (h *Hash) Len() int { return h.live }

// Lookup returns the value stored for k.
func (h *Hash) Lookup(k Value) (Value, bool) {
	i, ok := h.index[hashKey(k)]
	if !ok {
		return nil, false
	}
	return h.entries[i].value, true
}

// Set stores v under k. String keys are copied and frozen.
func (h *Hash) Set(tc *ThreadContext, k, v Value) {
	if h.frozen {
		tc.Raise(tc.rt.TypeError, "can't modify frozen hash")
	}
	key := hashKey(k)
	if i, ok := h.index[key]; ok {
		h.entries[i].value = v
		return
	}
	if s, ok := k.(*String); ok && !s.frozen {
		c := NewString(s.S)
		c.class = s.class
		c.frozen = true
		k = c
	}
	h.index[key] = len(h.entries)
	h.entries = append(h.entries, hashEntry{key: k, value: v})
	h.live++
}

// Delete removes k and returns its value.
func (h *Hash) Delete(k Value) (Value, bool) {
	key := hashKey(k)
	i, ok := h.index[key]
	if !ok {
		return nil, false
	}
	v := h.entries[i].value
	delete(h.index, key)
	h.entries[i] = hashEntry{deleted: true}
	h.live--
	if len(h.entries) > 16 && h.live < len(h.entries)/2 {
		h.compact()
	}
	return v, true
}

func (h *Hash) compact() {
	entries := make([]hashEntry, 0, h.live)
	for _, e := range h.entries {
		if !e.deleted {
			h.index[hashKey(e.key)] = len(entries)
			entries = append(entries, e)
		}
	}
	h.entries = entries
}

// Clear removes every pair.
func (h *Hash) Clear() {
	h.index = make(map[any]int)
	h.entries = nil
	h.live = 0
}

// Each calls fn for every pair in insertion order. Pairs added during
// iteration are visited; deleted ones are skipped.
func (h *Hash) Each(fn func(k, v Value)) {
	for i := 0; i < len(h.entries); i++ {
		e := h.entries[i]
		if !e.deleted {
			fn(e.key, e.value)
		}
	}
}

// Keys returns the keys in insertion order.
func (h *Hash) Keys() []Value {
	out := make([]Value, 0, h.live)
	h.Each(func(k, _ Value) { out = append(out, k) })
	return out
}

// Values returns the values in insertion order.
func (h *Hash) Values() []Value {
	out := make([]Value, 0, h.live)
	h.Each(func(_, v Value) { out = append(out, v) })
	return out
}

// hashFetch returns the value for k, falling back to the default.
func (tc *ThreadContext) hashFetch(h *Hash, k Value) Value {
	if v, ok := h.Lookup(k); ok {
		return v
	}
	if h.DefaultProc != nil {
		return tc.CallBlock(h.DefaultProc.Block, []Value{h, k}, NullBlock)
	}
	return h.Default
}

// NewHashFrom builds a hash from alternating keys and values.
func (tc *ThreadContext) NewHashFrom(kv ...Value) *Hash {
	h := NewHash()
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(tc, kv[i], kv[i+1])
	}
	return h
}
