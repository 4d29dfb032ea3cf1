package vm

import (
	"strings"
)

// hashArg converts v with to_hash, raising TypeError otherwise.
func (tc *ThreadContext) hashArg(v Value) *Hash {
	if h, ok := v.(*Hash); ok {
		return h
	}
	if tc.RespondTo(v, "to_hash") {
		if h, ok := tc.Send(v, "to_hash").(*Hash); ok {
			return h
		}
	}
	tc.Raise(tc.rt.TypeError, "can't convert %s into Hash", tc.rt.RealClassOf(v).Name())
	return nil
}

// eachPair calls fn for every pair of h. Pairs are snapshotted so the
// block may modify the hash.
func eachPair(h *Hash, fn func(k, v Value)) {
	keys, vals := h.Keys(), h.Values()
	for i := range keys {
		fn(keys[i], vals[i])
	}
}

// ---------------------------------------------------------------------------
// Hash primitives
// ---------------------------------------------------------------------------

func (rt *Runtime) registerHashPrimitives() {
	c := rt.Hash
	hash := func(v Value) *Hash { return v.(*Hash) }
	modify := func(tc *ThreadContext, v Value) *Hash {
		tc.checkFrozen(v)
		return hash(v)
	}

	// Hash[] - from a hash or alternating keys and values
	rt.metaclass(c).AddMethod("[]", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		h := NewHash()
		if k := self.(*Class); k != rt.Hash {
			h.class = k
		}
		if len(args) == 1 {
			if src, ok := args[0].(*Hash); ok {
				src.Each(func(k, v Value) { h.Set(tc, k, v) })
				return h
			}
		}
		if len(args)%2 != 0 {
			tc.Raise(rt.ArgumentError, "odd number of arguments for Hash")
		}
		for i := 0; i < len(args); i += 2 {
			h.Set(tc, args[i], args[i+1])
		}
		return h
	})

	// initialize(default = nil) - with a default value or block
	c.AddPrivateMethod("initialize", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 0, 1)
		h := modify(tc, self)
		if blk.IsGiven() {
			if len(args) > 0 {
				tc.argumentCountError(len(args), 0)
			}
			h.DefaultProc = blk.ToProc(ProcBlock)
			return self
		}
		if len(args) == 1 {
			h.Default = args[0]
		}
		return self
	})

	replace := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		h := modify(tc, self)
		src := tc.hashArg(args[0])
		if src == h {
			return self
		}
		h.Clear()
		src.Each(func(k, v Value) { h.Set(tc, k, v) })
		h.Default, h.DefaultProc = src.Default, src.DefaultProc
		return self
	}
	// initialize_copy, replace - take the pairs of another hash
	c.AddPrivateMethod("initialize_copy", 1, replace)
	c.AddMethod("replace", 1, replace)

	// [] - value for a key, or the default
	c.AddMethod("[]", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		h := hash(self)
		if v, ok := h.Lookup(args[0]); ok {
			return v
		}
		if h.DefaultProc == nil && h.Default == nil {
			return nil
		}
		return tc.Send(self, "default", args[0])
	})

	store := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		modify(tc, self).Set(tc, args[0], args[1])
		return args[1]
	}
	// []=, store - set a pair
	c.AddMethod("[]=", 2, store)
	c.AddMethod("store", 2, store)

	// fetch - value for a key, with a default or IndexError
	c.AddMethod("fetch", -2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 1, 2)
		if v, ok := hash(self).Lookup(args[0]); ok {
			return v
		}
		switch {
		case blk.IsGiven():
			return tc.Yield(blk, args[0])
		case len(args) == 2:
			return args[1]
		}
		tc.Raise(rt.IndexError, "key not found")
		return nil
	})

	// default - the default value, computed for a key when there is a
	// default proc
	c.AddMethod("default", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 0, 1)
		h := hash(self)
		if h.DefaultProc != nil {
			if len(args) == 0 {
				return nil
			}
			return tc.CallBlock(h.DefaultProc.Block, []Value{self, args[0]}, NullBlock)
		}
		return h.Default
	})

	// default= - set the default value, dropping any default proc
	c.AddMethod("default=", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		h := modify(tc, self)
		h.Default, h.DefaultProc = args[0], nil
		return args[0]
	})

	// default_proc - the block given to new
	c.AddMethod("default_proc", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if p := hash(self).DefaultProc; p != nil {
			return p
		}
		return nil
	})

	hasKey := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		_, ok := hash(self).Lookup(args[0])
		return ok
	}
	// key?, has_key?, include?, member? - whether a key is present
	for _, name := range []string{"key?", "has_key?", "include?", "member?"} {
		c.AddMethod(name, 1, hasKey)
	}

	hasValue := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		for _, v := range hash(self).Values() {
			if tc.Equal(v, args[0]) {
				return true
			}
		}
		return false
	}
	// value?, has_value? - whether some value is ==
	c.AddMethod("value?", 1, hasValue)
	c.AddMethod("has_value?", 1, hasValue)

	keyFor := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		var found Value
		hit := false
		hash(self).Each(func(k, v Value) {
			if !hit && tc.Equal(v, args[0]) {
				found, hit = k, true
			}
		})
		return found
	}
	// index, key - the key of the first == value
	c.AddMethod("index", 1, keyFor)
	c.AddMethod("key", 1, keyFor)

	// keys - keys in insertion order
	c.AddMethod("keys", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return NewArray(hash(self).Keys()...)
	})

	// values - values in insertion order
	c.AddMethod("values", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return NewArray(hash(self).Values()...)
	})

	valuesAt := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		out := NewArray()
		for _, k := range args {
			out.Elems = append(out.Elems, tc.hashFetch(hash(self), k))
		}
		return out
	}
	// values_at, indexes, indices - the values for several keys
	for _, name := range []string{"values_at", "indexes", "indices"} {
		c.AddMethod(name, -1, valuesAt)
	}

	length := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return int64(hash(self).Len())
	}
	// length, size - pair count
	c.AddMethod("length", 0, length)
	c.AddMethod("size", 0, length)

	// empty? - no pairs
	c.AddMethod("empty?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return hash(self).Len() == 0
	})

	// delete - remove a key, returning its value
	c.AddMethod("delete", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if v, ok := modify(tc, self).Delete(args[0]); ok {
			return v
		}
		if blk.IsGiven() {
			return tc.Yield(blk, args[0])
		}
		return nil
	})

	deleteIf := func(tc *ThreadContext, h *Hash, blk *Block) bool {
		changed := false
		eachPair(h, func(k, v Value) {
			if Truthy(tc.YieldValues(blk, k, v)) {
				h.Delete(k)
				changed = true
			}
		})
		return changed
	}
	// delete_if - remove pairs the block accepts
	c.AddMethod("delete_if", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		deleteIf(tc, modify(tc, self), blk)
		return self
	})

	// reject! - delete_if, nil when nothing was removed
	c.AddMethod("reject!", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if !deleteIf(tc, modify(tc, self), blk) {
			return nil
		}
		return self
	})

	// reject - a copy without the pairs the block accepts
	c.AddMethod("reject", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		out := NewHash()
		hash(self).Each(func(k, v Value) {
			if !Truthy(tc.YieldValues(blk, k, v)) {
				out.Set(tc, k, v)
			}
		})
		return out
	})

	// select - [key, value] pairs the block accepts
	c.AddMethod("select", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		out := NewArray()
		eachPair(hash(self), func(k, v Value) {
			if Truthy(tc.YieldValues(blk, k, v)) {
				out.Elems = append(out.Elems, NewArray(k, v))
			}
		})
		return out
	})

	// each - yield each pair as one [key, value] array
	c.AddMethod("each", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if !blk.IsGiven() {
			return rt.newEnumerator(self, "each", nil)
		}
		eachPair(hash(self), func(k, v Value) { tc.Yield(blk, NewArray(k, v)) })
		return self
	})

	// each_pair - yield key and value as two values
	c.AddMethod("each_pair", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		eachPair(hash(self), func(k, v Value) { tc.YieldValues(blk, k, v) })
		return self
	})

	// each_key - yield every key
	c.AddMethod("each_key", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		for _, k := range hash(self).Keys() {
			tc.Yield(blk, k)
		}
		return self
	})

	// each_value - yield every value
	c.AddMethod("each_value", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		for _, v := range hash(self).Values() {
			tc.Yield(blk, v)
		}
		return self
	})

	// to_a - [key, value] pairs
	c.AddMethod("to_a", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		out := NewArray()
		hash(self).Each(func(k, v Value) { out.Elems = append(out.Elems, NewArray(k, v)) })
		return out
	})

	// to_hash - self
	c.AddMethod("to_hash", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return self
	})

	// to_s - the pairs flattened and joined
	c.AddMethod("to_s", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		h := hash(self)
		if !tc.enterInspect(h) {
			return NewString("{...}")
		}
		defer tc.leaveInspect(h)
		var sb strings.Builder
		h.Each(func(k, v Value) {
			sb.WriteString(tc.AsString(k).S)
			sb.WriteString(tc.AsString(v).S)
		})
		return NewString(sb.String())
	})

	// inspect - {k=>v, ...}
	c.AddMethod("inspect", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		h := hash(self)
		if !tc.enterInspect(h) {
			return NewString("{...}")
		}
		defer tc.leaveInspect(h)
		parts := make([]string, 0, h.Len())
		h.Each(func(k, v Value) { parts = append(parts, tc.Inspect(k)+"=>"+tc.Inspect(v)) })
		return NewString("{" + strings.Join(parts, ", ") + "}")
	})

	// == - same pairs by ==
	c.AddMethod("==", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		o, ok := args[0].(*Hash)
		if !ok {
			return false
		}
		h := hash(self)
		if h == o {
			return true
		}
		if h.Len() != o.Len() {
			return false
		}
		equal := true
		h.Each(func(k, v Value) {
			if !equal {
				return
			}
			ov, ok := o.Lookup(k)
			equal = ok && tc.Equal(v, ov)
		})
		return equal
	})

	merge := func(tc *ThreadContext, dst, src *Hash, blk *Block) {
		eachPair(src, func(k, v Value) {
			if blk.IsGiven() {
				if old, ok := dst.Lookup(k); ok {
					v = tc.YieldValues(blk, k, old, v)
				}
			}
			dst.Set(tc, k, v)
		})
	}
	// merge - a copy updated with another hash
	c.AddMethod("merge", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		h := hash(self)
		out := NewHash()
		h.Each(func(k, v Value) { out.Set(tc, k, v) })
		out.Default, out.DefaultProc = h.Default, h.DefaultProc
		merge(tc, out, tc.hashArg(args[0]), blk)
		return out
	})

	update := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		merge(tc, modify(tc, self), tc.hashArg(args[0]), blk)
		return self
	}
	// merge!, update - add the pairs of another hash
	c.AddMethod("merge!", 1, update)
	c.AddMethod("update", 1, update)

	// clear - remove every pair
	c.AddMethod("clear", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		modify(tc, self).Clear()
		return self
	})

	// invert - values become keys
	c.AddMethod("invert", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		out := NewHash()
		hash(self).Each(func(k, v Value) { out.Set(tc, v, k) })
		return out
	})

	// shift - remove the first pair, or the default when empty
	c.AddMethod("shift", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		h := modify(tc, self)
		keys := h.Keys()
		if len(keys) == 0 {
			return tc.Send(self, "default")
		}
		v, _ := h.Delete(keys[0])
		return NewArray(keys[0], v)
	})

	// rehash - rebuild the index after keys changed
	c.AddMethod("rehash", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		h := modify(tc, self)
		keys, vals := h.Keys(), h.Values()
		h.Clear()
		for i := range keys {
			h.Set(tc, keys[i], vals[i])
		}
		return self
	})

	// sort - sorted [key, value] pairs
	c.AddMethod("sort", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		var pairs []Value
		hash(self).Each(func(k, v Value) { pairs = append(pairs, NewArray(k, v)) })
		tc.sortValues(pairs, blk)
		return NewArray(pairs...)
	})
}
