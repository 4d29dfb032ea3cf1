package vm

import (
	"strings"
)

// arrayArg converts v with to_ary, raising TypeError otherwise.
func (tc *ThreadContext) arrayArg(v Value) *Array {
	if a, ok := v.(*Array); ok {
		return a
	}
	if tc.RespondTo(v, "to_ary") {
		if a, ok := tc.Send(v, "to_ary").(*Array); ok {
			return a
		}
	}
	tc.Raise(tc.rt.TypeError, "can't convert %s into Array", tc.rt.RealClassOf(v).Name())
	return nil
}

// joinArray renders a with sep, recursing into nested arrays.
func (tc *ThreadContext) joinArray(a *Array, sep string) string {
	if !tc.enterInspect(a) {
		tc.Raise(tc.rt.ArgumentError, "recursive array join")
	}
	defer tc.leaveInspect(a)
	var sb strings.Builder
	for i, e := range a.Elems {
		if i > 0 {
			sb.WriteString(sep)
		}
		if inner, ok := e.(*Array); ok {
			sb.WriteString(tc.joinArray(inner, sep))
			continue
		}
		sb.WriteString(tc.AsString(e).S)
	}
	return sb.String()
}

// flatten appends the elements of src to dst, expanding nested arrays up
// to depth levels (negative for all). It reports whether anything was
// expanded.
func (tc *ThreadContext) flatten(dst []Value, src []Value, depth int, seen []*Array) ([]Value, bool) {
	changed := false
	for _, e := range src {
		inner, ok := e.(*Array)
		if !ok || depth == 0 {
			dst = append(dst, e)
			continue
		}
		for _, s := range seen {
			if s == inner {
				tc.Raise(tc.rt.ArgumentError, "tried to flatten recursive array")
			}
		}
		changed = true
		dst, _ = tc.flatten(dst, inner.Elems, depth-1, append(seen, inner))
	}
	return dst, changed
}

// uniqValues drops later duplicates by hash key.
func uniqValues(vs []Value) []Value {
	seen := make(map[any]bool, len(vs))
	out := make([]Value, 0, len(vs))
	for _, v := range vs {
		k := hashKey(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}

// spliceArray replaces n elements at start with repl, padding with nil
// when start is past the end.
func spliceArray(a *Array, start, n int, repl []Value) {
	for len(a.Elems) < start {
		a.Elems = append(a.Elems, nil)
	}
	if start+n > len(a.Elems) {
		n = len(a.Elems) - start
	}
	tail := append([]Value(nil), a.Elems[start+n:]...)
	a.Elems = append(append(a.Elems[:start], repl...), tail...)
}

// ---------------------------------------------------------------------------
// Array primitives
// ---------------------------------------------------------------------------

func (rt *Runtime) registerArrayPrimitives() {
	c := rt.Array
	arr := func(v Value) *Array { return v.(*Array) }
	modify := func(tc *ThreadContext, v Value) *Array {
		tc.checkFrozen(v)
		return arr(v)
	}

	// Array[] - an array of the arguments
	rt.metaclass(c).AddMethod("[]", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		a := NewArray(append([]Value(nil), args...)...)
		if k := self.(*Class); k != rt.Array {
			a.class = k
		}
		return a
	})

	// initialize(size = 0, obj = nil) - filled with obj or block results
	c.AddPrivateMethod("initialize", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 0, 2)
		a := modify(tc, self)
		if len(args) == 0 {
			a.Elems = a.Elems[:0]
			return self
		}
		if len(args) == 1 {
			if src, ok := args[0].(*Array); ok {
				a.Elems = append([]Value(nil), src.Elems...)
				return self
			}
		}
		n := tc.intArg(args[0])
		if n < 0 {
			tc.Raise(rt.ArgumentError, "negative array size")
		}
		var fill Value
		if len(args) == 2 {
			fill = args[1]
		}
		a.Elems = make([]Value, 0, n)
		for i := int64(0); i < n; i++ {
			if blk.IsGiven() {
				a.Elems = append(a.Elems, tc.Yield(blk, i))
			} else {
				a.Elems = append(a.Elems, fill)
			}
		}
		return self
	})

	replace := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		a := modify(tc, self)
		a.Elems = append([]Value(nil), tc.arrayArg(args[0]).Elems...)
		return self
	}
	// initialize_copy, replace - take the elements of another array
	c.AddPrivateMethod("initialize_copy", 1, replace)
	c.AddMethod("replace", 1, replace)

	index := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 1, 2)
		a := arr(self)
		if len(args) == 2 {
			start, n, ok := substrBounds(int(tc.intArg(args[0])), int(tc.intArg(args[1])), len(a.Elems))
			if !ok {
				return nil
			}
			return NewArray(append([]Value(nil), a.Elems[start:start+n]...)...)
		}
		switch x := args[0].(type) {
		case int64:
			return a.At(int(x))
		case *Range:
			start, n, ok := tc.rangeBounds(x, len(a.Elems))
			if !ok {
				return nil
			}
			return NewArray(append([]Value(nil), a.Elems[start:start+n]...)...)
		}
		return a.At(int(tc.intArg(args[0])))
	}
	// [], slice - element, start and length, or range
	c.AddMethod("[]", -1, index)
	c.AddMethod("slice", -1, index)

	// at - element by index
	c.AddMethod("at", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return arr(self).At(int(tc.intArg(args[0])))
	})

	// []= - store an element or replace a slice
	c.AddMethod("[]=", -3, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 2, 3)
		a := modify(tc, self)
		val := args[len(args)-1]
		var start, n int
		switch {
		case len(args) == 3:
			start, n = int(tc.intArg(args[0])), int(tc.intArg(args[1]))
			if n < 0 {
				tc.Raise(rt.IndexError, "negative length (%d)", n)
			}
		default:
			r, isRange := args[0].(*Range)
			if !isRange {
				i := int(tc.intArg(args[0]))
				if i < 0 {
					i += len(a.Elems)
					if i < 0 {
						tc.Raise(rt.IndexError, "index %d out of array", i-len(a.Elems))
					}
				}
				for len(a.Elems) <= i {
					a.Elems = append(a.Elems, nil)
				}
				a.Elems[i] = val
				return val
			}
			start = int(tc.intArg(r.Begin))
			end := int(tc.intArg(r.End))
			if start < 0 {
				start += len(a.Elems)
				if start < 0 {
					tc.Raise(rt.RangeError, "%s out of range", tc.Inspect(r))
				}
			}
			if end < 0 {
				end += len(a.Elems)
			}
			if !r.Exclusive {
				end++
			}
			n = max(end-start, 0)
		}
		if start < 0 {
			start += len(a.Elems)
			if start < 0 {
				tc.Raise(rt.IndexError, "index %d out of array", start-len(a.Elems))
			}
		}
		var repl []Value
		switch x := val.(type) {
		case *Array:
			repl = append([]Value(nil), x.Elems...)
		case nil:
			// a[1, 2] = nil deletes in 1.8
		default:
			repl = []Value{val}
		}
		spliceArray(a, start, n, repl)
		return val
	})

	// fetch - element by index, with a default or IndexError
	c.AddMethod("fetch", -2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 1, 2)
		a := arr(self)
		i := int(tc.intArg(args[0]))
		j := i
		if j < 0 {
			j += len(a.Elems)
		}
		if j >= 0 && j < len(a.Elems) {
			return a.Elems[j]
		}
		switch {
		case blk.IsGiven():
			return tc.Yield(blk, args[0])
		case len(args) == 2:
			return args[1]
		}
		tc.Raise(rt.IndexError, "index %d out of array", i)
		return nil
	})

	edge := func(front bool) NativeFunc {
		return func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
			tc.checkArity(args, 0, 1)
			a := arr(self)
			if len(args) == 0 {
				if front {
					return a.At(0)
				}
				return a.At(-1)
			}
			n := int(tc.intArg(args[0]))
			if n < 0 {
				tc.Raise(rt.ArgumentError, "negative array size")
			}
			n = min(n, len(a.Elems))
			if front {
				return NewArray(append([]Value(nil), a.Elems[:n]...)...)
			}
			return NewArray(append([]Value(nil), a.Elems[len(a.Elems)-n:]...)...)
		}
	}
	// first, last - an end element, or the first or last n
	c.AddMethod("first", -1, edge(true))
	c.AddMethod("last", -1, edge(false))

	push := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		a := modify(tc, self)
		a.Elems = append(a.Elems, args...)
		return self
	}
	// push - append the arguments
	c.AddMethod("push", -1, push)
	// << - append one element
	c.AddMethod("<<", 1, push)

	// pop - remove the last element
	c.AddMethod("pop", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		a := modify(tc, self)
		if len(a.Elems) == 0 {
			return nil
		}
		v := a.Elems[len(a.Elems)-1]
		a.Elems = a.Elems[:len(a.Elems)-1]
		return v
	})

	// shift - remove the first element
	c.AddMethod("shift", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		a := modify(tc, self)
		if len(a.Elems) == 0 {
			return nil
		}
		v := a.Elems[0]
		a.Elems = append([]Value(nil), a.Elems[1:]...)
		return v
	})

	// unshift - prepend the arguments
	c.AddMethod("unshift", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		a := modify(tc, self)
		a.Elems = append(append([]Value(nil), args...), a.Elems...)
		return self
	})

	// insert - insert the arguments before index
	c.AddMethod("insert", -2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		a := modify(tc, self)
		if len(args) == 1 {
			return self
		}
		i := int(tc.intArg(args[0]))
		if i < 0 {
			i += len(a.Elems) + 1
			if i < 0 {
				tc.Raise(rt.IndexError, "index %d out of array", i-len(a.Elems)-1)
			}
		}
		spliceArray(a, i, 0, args[1:])
		return self
	})

	// concat - append the elements of another array
	c.AddMethod("concat", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		a := modify(tc, self)
		a.Elems = append(a.Elems, tc.arrayArg(args[0]).Elems...)
		return self
	})

	// + - concatenation
	c.AddMethod("+", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		o := tc.arrayArg(args[0])
		out := make([]Value, 0, len(arr(self).Elems)+len(o.Elems))
		return NewArray(append(append(out, arr(self).Elems...), o.Elems...)...)
	})

	// - - elements not in the argument
	c.AddMethod("-", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		drop := make(map[any]bool)
		for _, v := range tc.arrayArg(args[0]).Elems {
			drop[hashKey(v)] = true
		}
		out := NewArray()
		for _, v := range arr(self).Elems {
			if !drop[hashKey(v)] {
				out.Elems = append(out.Elems, v)
			}
		}
		return out
	})

	// * - repetition, or join with a string
	c.AddMethod("*", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if s, ok := args[0].(*String); ok {
			return NewString(tc.joinArray(arr(self), s.S))
		}
		n := tc.intArg(args[0])
		if n < 0 {
			tc.Raise(rt.ArgumentError, "negative argument")
		}
		src := arr(self).Elems
		out := make([]Value, 0, int(n)*len(src))
		for i := int64(0); i < n; i++ {
			out = append(out, src...)
		}
		return NewArray(out...)
	})

	// & - intersection without duplicates
	c.AddMethod("&", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		keep := make(map[any]bool)
		for _, v := range tc.arrayArg(args[0]).Elems {
			keep[hashKey(v)] = true
		}
		out := NewArray()
		for _, v := range uniqValues(arr(self).Elems) {
			if keep[hashKey(v)] {
				out.Elems = append(out.Elems, v)
			}
		}
		return out
	})

	// | - union without duplicates
	c.AddMethod("|", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		all := append(append([]Value(nil), arr(self).Elems...), tc.arrayArg(args[0]).Elems...)
		return NewArray(uniqValues(all)...)
	})

	// <=> - element-wise comparison, then length
	c.AddMethod("<=>", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		o, ok := args[0].(*Array)
		if !ok {
			return nil
		}
		a := arr(self)
		for i := 0; i < len(a.Elems) && i < len(o.Elems); i++ {
			r := tc.Send(a.Elems[i], "<=>", o.Elems[i])
			if r == nil {
				return nil
			}
			if tc.intSign(r) != 0 {
				return r
			}
		}
		return int64(cmpInt(int64(len(a.Elems)), int64(len(o.Elems))))
	})

	// == - same length and == elements
	c.AddMethod("==", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		o, ok := args[0].(*Array)
		if !ok {
			if args[0] != nil && tc.RespondTo(args[0], "to_ary") {
				return Truthy(tc.Send(args[0], "==", self))
			}
			return false
		}
		a := arr(self)
		if a == o {
			return true
		}
		if len(a.Elems) != len(o.Elems) {
			return false
		}
		for i := range a.Elems {
			if !tc.Equal(a.Elems[i], o.Elems[i]) {
				return false
			}
		}
		return true
	})

	// eql? - same length and eql? elements
	c.AddMethod("eql?", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		_, ok := args[0].(*Array)
		return ok && tc.Eql(self, args[0])
	})

	// hash - combines the element hashes
	c.AddMethod("hash", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return rt.hashCode(self)
	})

	length := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return int64(len(arr(self).Elems))
	}
	// length, size - element count
	c.AddMethod("length", 0, length)
	c.AddMethod("size", 0, length)

	// empty? - no elements
	c.AddMethod("empty?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return len(arr(self).Elems) == 0
	})

	// nitems - count of non-nil elements
	c.AddMethod("nitems", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		n := int64(0)
		for _, v := range arr(self).Elems {
			if v != nil {
				n++
			}
		}
		return n
	})

	// include? - some element is ==
	c.AddMethod("include?", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		for _, v := range arr(self).Elems {
			if tc.Equal(v, args[0]) {
				return true
			}
		}
		return false
	})

	// index - position of the first == element
	c.AddMethod("index", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 0, 1)
		for i, v := range arr(self).Elems {
			if len(args) == 1 && tc.Equal(v, args[0]) || len(args) == 0 && Truthy(tc.Yield(blk, v)) {
				return int64(i)
			}
		}
		return nil
	})

	// rindex - position of the last == element
	c.AddMethod("rindex", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 0, 1)
		a := arr(self)
		for i := len(a.Elems) - 1; i >= 0; i-- {
			if i >= len(a.Elems) {
				continue
			}
			v := a.Elems[i]
			if len(args) == 1 && tc.Equal(v, args[0]) || len(args) == 0 && Truthy(tc.Yield(blk, v)) {
				return int64(i)
			}
		}
		return nil
	})

	join := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 0, 1)
		sep := ""
		if len(args) == 1 && args[0] != nil {
			sep = tc.stringArg(args[0])
		} else if s, ok := tc.GetGlobal("$,").(*String); ok {
			sep = s.S
		}
		return NewString(tc.joinArray(arr(self), sep))
	}
	// join - elements rendered with to_s and separated
	c.AddMethod("join", -1, join)
	// to_s - join without a separator
	c.AddMethod("to_s", 0, join)

	// inspect - [a, b, c]
	c.AddMethod("inspect", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		a := arr(self)
		if !tc.enterInspect(a) {
			return NewString("[...]")
		}
		defer tc.leaveInspect(a)
		parts := make([]string, len(a.Elems))
		for i, v := range a.Elems {
			parts[i] = tc.Inspect(v)
		}
		return NewString("[" + strings.Join(parts, ", ") + "]")
	})

	toA := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if rt.ClassOf(self) == rt.Array {
			return self
		}
		return NewArray(append([]Value(nil), arr(self).Elems...)...)
	}
	// to_a, entries - self, or a plain copy for subclasses
	c.AddMethod("to_a", 0, toA)
	c.AddMethod("entries", 0, toA)
	// to_ary - self
	c.AddMethod("to_ary", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return self
	})

	// each - yield every element; the array may change meanwhile
	c.AddMethod("each", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if !blk.IsGiven() {
			return rt.newEnumerator(self, "each", nil)
		}
		a := arr(self)
		for i := 0; i < len(a.Elems); i++ {
			tc.Yield(blk, a.Elems[i])
		}
		return self
	})

	// each_index - yield every index
	c.AddMethod("each_index", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		a := arr(self)
		for i := 0; i < len(a.Elems); i++ {
			tc.Yield(blk, int64(i))
		}
		return self
	})

	// reverse_each - yield from the end
	c.AddMethod("reverse_each", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		a := arr(self)
		for i := len(a.Elems) - 1; i >= 0; i-- {
			if i < len(a.Elems) {
				tc.Yield(blk, a.Elems[i])
			}
		}
		return self
	})

	mapInPlace := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		a := modify(tc, self)
		for i := 0; i < len(a.Elems); i++ {
			a.Elems[i] = tc.Yield(blk, a.Elems[i])
		}
		return self
	}
	// map!, collect! - replace each element with the block's result
	c.AddMethod("map!", 0, mapInPlace)
	c.AddMethod("collect!", 0, mapInPlace)

	// select - elements the block accepts
	c.AddMethod("select", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		out := NewArray()
		a := arr(self)
		for i := 0; i < len(a.Elems); i++ {
			if Truthy(tc.Yield(blk, a.Elems[i])) {
				out.Elems = append(out.Elems, a.Elems[i])
			}
		}
		return out
	})

	deleteIf := func(bang bool) NativeFunc {
		return func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
			a := modify(tc, self)
			kept := make([]Value, 0, len(a.Elems))
			for i := 0; i < len(a.Elems); i++ {
				if !Truthy(tc.Yield(blk, a.Elems[i])) {
					kept = append(kept, a.Elems[i])
				}
			}
			changed := len(kept) != len(a.Elems)
			a.Elems = kept
			if bang && !changed {
				return nil
			}
			return self
		}
	}
	// delete_if - remove elements the block accepts
	c.AddMethod("delete_if", 0, deleteIf(false))
	// reject! - delete_if, nil when nothing was removed
	c.AddMethod("reject!", 0, deleteIf(true))

	// delete - remove every == element
	c.AddMethod("delete", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		a := modify(tc, self)
		var found Value
		hit := false
		kept := a.Elems[:0:0]
		for _, v := range a.Elems {
			if tc.Equal(v, args[0]) {
				found, hit = v, true
				continue
			}
			kept = append(kept, v)
		}
		a.Elems = kept
		if !hit {
			if blk.IsGiven() {
				return tc.Yield(blk, args[0])
			}
			return nil
		}
		return found
	})

	// delete_at - remove by index
	c.AddMethod("delete_at", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		a := modify(tc, self)
		i := int(tc.intArg(args[0]))
		if i < 0 {
			i += len(a.Elems)
		}
		if i < 0 || i >= len(a.Elems) {
			return nil
		}
		v := a.Elems[i]
		a.Elems = append(a.Elems[:i], a.Elems[i+1:]...)
		return v
	})

	// slice! - remove and return an element or slice
	c.AddMethod("slice!", -2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		a := modify(tc, self)
		v := index(tc, self, args, blk)
		if v == nil {
			return nil
		}
		var start, n int
		switch {
		case len(args) == 2:
			start, n, _ = substrBounds(int(tc.intArg(args[0])), int(tc.intArg(args[1])), len(a.Elems))
		default:
			if r, ok := args[0].(*Range); ok {
				start, n, _ = tc.rangeBounds(r, len(a.Elems))
			} else {
				start, n = int(tc.intArg(args[0])), 1
				if start < 0 {
					start += len(a.Elems)
				}
			}
		}
		spliceArray(a, start, n, nil)
		return v
	})

	// compact - without nils
	c.AddMethod("compact", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		out := NewArray()
		for _, v := range arr(self).Elems {
			if v != nil {
				out.Elems = append(out.Elems, v)
			}
		}
		return out
	})

	// compact! - remove nils, nil when there were none
	c.AddMethod("compact!", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		a := modify(tc, self)
		kept := make([]Value, 0, len(a.Elems))
		for _, v := range a.Elems {
			if v != nil {
				kept = append(kept, v)
			}
		}
		if len(kept) == len(a.Elems) {
			return nil
		}
		a.Elems = kept
		return self
	})

	depthArg := func(tc *ThreadContext, args []Value) int {
		tc.checkArity(args, 0, 1)
		if len(args) == 1 && args[0] != nil {
			return int(tc.intArg(args[0]))
		}
		return -1
	}
	// flatten - nested arrays expanded
	c.AddMethod("flatten", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		out, _ := tc.flatten(nil, arr(self).Elems, depthArg(tc, args), []*Array{arr(self)})
		return NewArray(out...)
	})

	// flatten! - expand in place, nil when nothing was nested
	c.AddMethod("flatten!", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		a := modify(tc, self)
		out, changed := tc.flatten(nil, a.Elems, depthArg(tc, args), []*Array{a})
		if !changed {
			return nil
		}
		a.Elems = out
		return self
	})

	// uniq - without duplicates
	c.AddMethod("uniq", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return NewArray(uniqValues(arr(self).Elems)...)
	})

	// uniq! - drop duplicates, nil when there were none
	c.AddMethod("uniq!", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		a := modify(tc, self)
		out := uniqValues(a.Elems)
		if len(out) == len(a.Elems) {
			return nil
		}
		a.Elems = out
		return self
	})

	// reverse - elements in reverse order
	c.AddMethod("reverse", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		src := arr(self).Elems
		out := make([]Value, len(src))
		for i, v := range src {
			out[len(src)-1-i] = v
		}
		return NewArray(out...)
	})

	// reverse! - reverse in place
	c.AddMethod("reverse!", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		a := modify(tc, self)
		for i, j := 0, len(a.Elems)-1; i < j; i, j = i+1, j-1 {
			a.Elems[i], a.Elems[j] = a.Elems[j], a.Elems[i]
		}
		return self
	})

	// sort - sorted copy
	c.AddMethod("sort", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		vs := append([]Value(nil), arr(self).Elems...)
		tc.sortValues(vs, blk)
		return NewArray(vs...)
	})

	// sort! - sort in place
	c.AddMethod("sort!", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		a := modify(tc, self)
		vs := append([]Value(nil), a.Elems...)
		tc.sortValues(vs, blk)
		a.Elems = vs
		return self
	})

	// clear - remove every element
	c.AddMethod("clear", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		modify(tc, self).Elems = []Value{}
		return self
	})

	// fill - set elements to a value or the block's result
	c.AddMethod("fill", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		a := modify(tc, self)
		var val Value
		if !blk.IsGiven() {
			tc.checkArity(args, 1, 3)
			val, args = args[0], args[1:]
		} else {
			tc.checkArity(args, 0, 2)
		}
		start, n := 0, len(a.Elems)
		switch {
		case len(args) >= 1 && args[0] != nil:
			if r, ok := args[0].(*Range); ok {
				start = int(tc.intArg(r.Begin))
				end := int(tc.intArg(r.End))
				if start < 0 {
					start += len(a.Elems)
					if start < 0 {
						tc.Raise(rt.RangeError, "%s out of range", tc.Inspect(r))
					}
				}
				if end < 0 {
					end += len(a.Elems)
				}
				if !r.Exclusive {
					end++
				}
				n = max(end-start, 0)
				break
			}
			start = int(tc.intArg(args[0]))
			if start < 0 {
				start = max(start+len(a.Elems), 0)
			}
			n = max(len(a.Elems)-start, 0)
			if len(args) == 2 && args[1] != nil {
				n = int(tc.intArg(args[1]))
			}
		case len(args) == 2 && args[1] != nil:
			n = int(tc.intArg(args[1]))
		}
		for len(a.Elems) < start+n {
			a.Elems = append(a.Elems, nil)
		}
		for i := start; i < start+n; i++ {
			if blk.IsGiven() {
				a.Elems[i] = tc.Yield(blk, int64(i))
			} else {
				a.Elems[i] = val
			}
		}
		return self
	})

	// values_at - elements at the given indexes and ranges
	c.AddMethod("values_at", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		a := arr(self)
		out := NewArray()
		for _, x := range args {
			if r, ok := x.(*Range); ok {
				start, n, in := tc.rangeBounds(r, len(a.Elems))
				if in {
					out.Elems = append(out.Elems, a.Elems[start:start+n]...)
				}
				continue
			}
			out.Elems = append(out.Elems, a.At(int(tc.intArg(x))))
		}
		return out
	})

	assoc := func(pos int) NativeFunc {
		return func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
			for _, v := range arr(self).Elems {
				if pair, ok := v.(*Array); ok && len(pair.Elems) > pos && tc.Equal(pair.Elems[pos], args[0]) {
					return pair
				}
			}
			return nil
		}
	}
	// assoc - first inner array whose first element matches
	c.AddMethod("assoc", 1, assoc(0))
	// rassoc - first inner array whose second element matches
	c.AddMethod("rassoc", 1, assoc(1))

	// transpose - swap rows and columns
	c.AddMethod("transpose", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		rows := arr(self).Elems
		if len(rows) == 0 {
			return NewArray()
		}
		width := -1
		var grid [][]Value
		for _, r := range rows {
			row := tc.arrayArg(r).Elems
			if width >= 0 && len(row) != width {
				tc.Raise(rt.IndexError, "element size differs (%d should be %d)", len(row), width)
			}
			width = len(row)
			grid = append(grid, row)
		}
		out := NewArray()
		for j := 0; j < width; j++ {
			col := NewArray()
			for i := range grid {
				col.Elems = append(col.Elems, grid[i][j])
			}
			out.Elems = append(out.Elems, col)
		}
		return out
	})
}
