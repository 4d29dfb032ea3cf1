package vm

import (
	"sort"

	"github.com/chazu/garnet/scope"
)

// ---------------------------------------------------------------------------
// Iterating any each-capable receiver from Go
// ---------------------------------------------------------------------------

// packArgs turns the values of one yield into the single element
// Enumerable methods work with.
func packArgs(args []Value) Value {
	switch len(args) {
	case 0:
		return nil
	case 1:
		return args[0]
	}
	return NewArray(append([]Value(nil), args...)...)
}

// iterate sends meth to obj with a native block calling fn for every
// element. Returning false from fn stops the iteration early.
func (tc *ThreadContext) iterate(obj Value, meth string, args []Value, fn func(v Value) bool) {
	var blk *Block
	blk = NewNativeBlock(func(tc *ThreadContext, self Value, args []Value, _ *Block) Value {
		if !fn(packArgs(args)) {
			panic(&JumpError{Kind: BlockBreak, Tag: blk.escape})
		}
		return nil
	}, scope.OptionalArity(), NormalBlock)
	catchJump(func() Value {
		return tc.callMethod(obj, meth, args, blk, SendFunctional, nil)
	}, func(j *JumpError) bool {
		return j.Kind == BlockBreak && j.Tag == blk.escape
	})
}

// each iterates obj with its each method.
func (tc *ThreadContext) each(obj Value, fn func(v Value) bool) {
	if a, ok := obj.(*Array); ok && tc.rt.ClassOf(a) == tc.rt.Array {
		for i := 0; i < len(a.Elems); i++ {
			if !fn(a.Elems[i]) {
				return
			}
		}
		return
	}
	tc.iterate(obj, "each", nil, fn)
}

// collect gathers the elements of obj into a Go slice.
func (tc *ThreadContext) collect(obj Value) []Value {
	var out []Value
	tc.each(obj, func(v Value) bool {
		out = append(out, v)
		return true
	})
	return out
}

// sortValues sorts vs with <=>, or with the block's result when given.
func (tc *ThreadContext) sortValues(vs []Value, blk *Block) {
	cmp := func(a, b Value) int { return tc.Compare(a, b) }
	if blk.IsGiven() {
		cmp = func(a, b Value) int {
			r := tc.YieldValues(blk, a, b)
			if r == nil {
				tc.Raise(tc.rt.ArgumentError, "comparison of %s with %s failed", tc.rt.RealClassOf(a).Name(), tc.describeForCompare(b))
			}
			return tc.intSign(r)
		}
	}
	sort.SliceStable(vs, func(i, j int) bool { return cmp(vs[i], vs[j]) < 0 })
}

// eachSlice yields consecutive groups of size elements; the last group
// may be shorter.
func (tc *ThreadContext) eachSlice(obj Value, size int64, blk *Block) {
	if size <= 0 {
		tc.Raise(tc.rt.ArgumentError, "invalid slice size")
	}
	cur := NewArray()
	tc.each(obj, func(v Value) bool {
		cur.Elems = append(cur.Elems, v)
		if int64(len(cur.Elems)) == size {
			full := cur
			cur = NewArray()
			tc.Yield(blk, full)
		}
		return true
	})
	if len(cur.Elems) > 0 {
		tc.Yield(blk, cur)
	}
}

// eachCons yields every window of size consecutive elements.
func (tc *ThreadContext) eachCons(obj Value, size int64, blk *Block) {
	if size <= 0 {
		tc.Raise(tc.rt.ArgumentError, "invalid size")
	}
	var window []Value
	tc.each(obj, func(v Value) bool {
		if int64(len(window)) == size {
			window = window[1:]
		}
		window = append(window, v)
		if int64(len(window)) == size {
			tc.Yield(blk, NewArray(append([]Value(nil), window...)...))
		}
		return true
	})
}

// ---------------------------------------------------------------------------
// Enumerable primitives
// ---------------------------------------------------------------------------

func (rt *Runtime) registerEnumerablePrimitives() {
	e := rt.Enumerable

	toA := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return NewArray(tc.collect(self)...)
	}
	// to_a, entries - the elements as an array
	e.AddMethod("to_a", 0, toA)
	e.AddMethod("entries", 0, toA)

	mapFn := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		out := NewArray()
		tc.each(self, func(v Value) bool {
			if blk.IsGiven() {
				v = tc.Yield(blk, v)
			}
			out.Elems = append(out.Elems, v)
			return true
		})
		return out
	}
	// map, collect - the block's results
	e.AddMethod("map", 0, mapFn)
	e.AddMethod("collect", 0, mapFn)

	filter := func(keep bool) NativeFunc {
		return func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
			out := NewArray()
			tc.each(self, func(v Value) bool {
				if Truthy(tc.Yield(blk, v)) == keep {
					out.Elems = append(out.Elems, v)
				}
				return true
			})
			return out
		}
	}
	// select, find_all - elements the block accepts
	e.AddMethod("select", 0, filter(true))
	e.AddMethod("find_all", 0, filter(true))
	// reject - elements the block refuses
	e.AddMethod("reject", 0, filter(false))

	// partition - [accepted, refused]
	e.AddMethod("partition", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		yes, no := NewArray(), NewArray()
		tc.each(self, func(v Value) bool {
			if Truthy(tc.Yield(blk, v)) {
				yes.Elems = append(yes.Elems, v)
			} else {
				no.Elems = append(no.Elems, v)
			}
			return true
		})
		return NewArray(yes, no)
	})

	inject := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 0, 2)
		var acc Value
		started := false
		op := ""
		switch {
		case len(args) == 2:
			acc, started, op = args[0], true, tc.symbolArg(args[1])
		case len(args) == 1 && !blk.IsGiven():
			op = tc.symbolArg(args[0])
		case len(args) == 1:
			acc, started = args[0], true
		}
		tc.each(self, func(v Value) bool {
			switch {
			case !started:
				acc, started = v, true
			case op != "":
				acc = tc.Send(acc, op, v)
			default:
				acc = tc.YieldValues(blk, acc, v)
			}
			return true
		})
		return acc
	}
	// inject, reduce - fold with the block or an operator
	e.AddMethod("inject", -1, inject)
	e.AddMethod("reduce", -1, inject)

	// each_with_index - yield each element and its position
	e.AddMethod("each_with_index", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if !blk.IsGiven() {
			return rt.newEnumerator(self, "each_with_index", nil)
		}
		i := int64(0)
		tc.each(self, func(v Value) bool {
			tc.YieldValues(blk, v, i)
			i++
			return true
		})
		return self
	})

	find := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 0, 1)
		var found Value
		ok := false
		tc.each(self, func(v Value) bool {
			if Truthy(tc.Yield(blk, v)) {
				found, ok = v, true
				return false
			}
			return true
		})
		if !ok && len(args) == 1 && args[0] != nil {
			return tc.Send(args[0], "call")
		}
		return found
	}
	// find, detect - first element the block accepts
	e.AddMethod("find", -1, find)
	e.AddMethod("detect", -1, find)

	// find_index - position of the first match
	e.AddMethod("find_index", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 0, 1)
		var found Value
		i := int64(0)
		tc.each(self, func(v Value) bool {
			var hit bool
			if len(args) == 1 {
				hit = tc.Equal(v, args[0])
			} else {
				hit = Truthy(tc.Yield(blk, v))
			}
			if hit {
				found = i
				return false
			}
			i++
			return true
		})
		return found
	})

	extreme := func(want int) NativeFunc {
		return func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
			var best Value
			first := true
			tc.each(self, func(v Value) bool {
				if first {
					best, first = v, false
					return true
				}
				var c int
				if blk.IsGiven() {
					c = tc.intSign(tc.YieldValues(blk, v, best))
				} else {
					c = tc.Compare(v, best)
				}
				if c == want {
					best = v
				}
				return true
			})
			return best
		}
	}
	// min, max - smallest or largest by <=> or the block
	e.AddMethod("min", 0, extreme(-1))
	e.AddMethod("max", 0, extreme(1))

	extremeBy := func(want int) NativeFunc {
		return func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
			var best, bestKey Value
			first := true
			tc.each(self, func(v Value) bool {
				k := tc.Yield(blk, v)
				if first || tc.Compare(k, bestKey) == want {
					best, bestKey, first = v, k, false
				}
				return true
			})
			return best
		}
	}
	// min_by, max_by - extreme by the block's key
	e.AddMethod("min_by", 0, extremeBy(-1))
	e.AddMethod("max_by", 0, extremeBy(1))

	// sort - sorted by <=> or the block
	e.AddMethod("sort", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		vs := tc.collect(self)
		tc.sortValues(vs, blk)
		return NewArray(vs...)
	})

	// sort_by - sorted by the block's key
	e.AddMethod("sort_by", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		vs := tc.collect(self)
		keys := make([]Value, len(vs))
		for i, v := range vs {
			keys[i] = tc.Yield(blk, v)
		}
		idx := make([]int, len(vs))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(i, j int) bool { return tc.Compare(keys[idx[i]], keys[idx[j]]) < 0 })
		out := make([]Value, len(vs))
		for i, k := range idx {
			out[i] = vs[k]
		}
		return NewArray(out...)
	})

	// any? - some element, or block result, is true
	e.AddMethod("any?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		result := false
		tc.each(self, func(v Value) bool {
			if blk.IsGiven() {
				v = tc.Yield(blk, v)
			}
			if Truthy(v) {
				result = true
				return false
			}
			return true
		})
		return result
	})

	// all? - every element, or block result, is true
	e.AddMethod("all?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		result := true
		tc.each(self, func(v Value) bool {
			if blk.IsGiven() {
				v = tc.Yield(blk, v)
			}
			if !Truthy(v) {
				result = false
				return false
			}
			return true
		})
		return result
	})

	// none? - no element, or block result, is true
	e.AddMethod("none?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		result := true
		tc.each(self, func(v Value) bool {
			if blk.IsGiven() {
				v = tc.Yield(blk, v)
			}
			if Truthy(v) {
				result = false
				return false
			}
			return true
		})
		return result
	})

	// count - number of elements, matches or accepted elements
	e.AddMethod("count", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 0, 1)
		n := int64(0)
		tc.each(self, func(v Value) bool {
			switch {
			case len(args) == 1:
				if tc.Equal(v, args[0]) {
					n++
				}
			case blk.IsGiven():
				if Truthy(tc.Yield(blk, v)) {
					n++
				}
			default:
				n++
			}
			return true
		})
		return n
	})

	include := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		found := false
		tc.each(self, func(v Value) bool {
			if tc.Equal(v, args[0]) {
				found = true
				return false
			}
			return true
		})
		return found
	}
	// include?, member? - some element is ==
	e.AddMethod("include?", 1, include)
	e.AddMethod("member?", 1, include)

	// grep - elements matching with ===, mapped by the block
	e.AddMethod("grep", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		out := NewArray()
		tc.each(self, func(v Value) bool {
			if Truthy(tc.Send(args[0], "===", v)) {
				if blk.IsGiven() {
					v = tc.Yield(blk, v)
				}
				out.Elems = append(out.Elems, v)
			}
			return true
		})
		return out
	})

	// first - the first element, or the first n
	e.AddMethod("first", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 0, 1)
		if len(args) == 0 {
			var first Value
			tc.each(self, func(v Value) bool {
				first = v
				return false
			})
			return first
		}
		n := tc.intArg(args[0])
		if n < 0 {
			tc.Raise(rt.ArgumentError, "negative array size (or size too big)")
		}
		out := NewArray()
		if n == 0 {
			return out
		}
		tc.each(self, func(v Value) bool {
			out.Elems = append(out.Elems, v)
			return int64(len(out.Elems)) < n
		})
		return out
	})

	// zip - merge with the elements of the arguments
	e.AddMethod("zip", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		others := make([][]Value, len(args))
		for i, a := range args {
			others[i] = tc.collect(a)
		}
		out := NewArray()
		i := 0
		tc.each(self, func(v Value) bool {
			row := NewArray(v)
			for _, o := range others {
				if i < len(o) {
					row.Elems = append(row.Elems, o[i])
				} else {
					row.Elems = append(row.Elems, nil)
				}
			}
			i++
			if blk.IsGiven() {
				tc.Yield(blk, row)
			} else {
				out.Elems = append(out.Elems, row)
			}
			return true
		})
		if blk.IsGiven() {
			return nil
		}
		return out
	})

	// group_by - hash from block result to elements
	e.AddMethod("group_by", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		h := NewHash()
		tc.each(self, func(v Value) bool {
			k := tc.Yield(blk, v)
			if g, ok := h.Lookup(k); ok {
				g.(*Array).Elems = append(g.(*Array).Elems, v)
			} else {
				h.Set(tc, k, NewArray(v))
			}
			return true
		})
		return h
	})

	// each_slice - yield groups of n
	e.AddMethod("each_slice", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.eachSlice(self, tc.intArg(args[0]), blk)
		return nil
	})

	// each_cons - yield every window of n
	e.AddMethod("each_cons", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.eachCons(self, tc.intArg(args[0]), blk)
		return nil
	})

	// enum_slice, enum_cons, enum_with_index - enumerators over the
	// iterators above
	e.AddMethod("enum_slice", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return rt.newEnumerator(self, "each_slice", args)
	})
	e.AddMethod("enum_cons", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return rt.newEnumerator(self, "each_cons", args)
	})
	e.AddMethod("enum_with_index", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return rt.newEnumerator(self, "each_with_index", nil)
	})
}

// ---------------------------------------------------------------------------
// Enumerator
// ---------------------------------------------------------------------------

// Enumerator adapts any iterator method to Enumerable.
type Enumerator struct {
	Basic
	Receiver Value
	Method   string
	Args     []Value
}

func (rt *Runtime) newEnumerator(recv Value, meth string, args []Value) *Enumerator {
	return &Enumerator{Receiver: recv, Method: meth, Args: append([]Value(nil), args...)}
}

func (rt *Runtime) registerEnumeratorPrimitives() {
	c := rt.Enumerator
	c.alloc = func(k *Class) Value {
		en := &Enumerator{Method: "each"}
		en.class = k
		return en
	}

	// initialize(obj, method = :each, *args)
	c.AddPrivateMethod("initialize", -2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		en := self.(*Enumerator)
		en.Receiver = args[0]
		en.Method = "each"
		if len(args) > 1 {
			en.Method = tc.symbolArg(args[1])
		}
		if len(args) > 2 {
			en.Args = append([]Value(nil), args[2:]...)
		}
		return self
	})

	// each - run the underlying method with the block
	c.AddMethod("each", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		en := self.(*Enumerator)
		return tc.callMethod(en.Receiver, en.Method, en.Args, blk, SendFunctional, nil)
	})

	// with_index, each_with_index - yield each element and a counter
	withIndex := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		en := self.(*Enumerator)
		i := int64(0)
		tc.iterate(en.Receiver, en.Method, en.Args, func(v Value) bool {
			tc.YieldValues(blk, v, i)
			i++
			return true
		})
		return en.Receiver
	}
	c.AddMethod("with_index", 0, withIndex)
	c.AddMethod("each_with_index", 0, withIndex)

	// inspect - #<Enumerable::Enumerator ...>
	c.AddMethod("inspect", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		en := self.(*Enumerator)
		return NewString("#<" + rt.RealClassOf(self).Name() + ": " + tc.Inspect(en.Receiver) + ":" + en.Method + ">")
	})
}
