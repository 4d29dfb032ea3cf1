package vm

import (
	"math"
	"math/big"
)

// newRange builds a range, checking that the endpoints are comparable.
func (tc *ThreadContext) newRange(begin, end Value, excl bool) *Range {
	_, bi := begin.(int64)
	_, ei := end.(int64)
	if !bi || !ei {
		v, re := catchRaise(func() Value { return tc.Send(begin, "<=>", end) })
		if re != nil || v == nil {
			tc.Raise(tc.rt.ArgumentError, "bad value for range")
		}
	}
	return &Range{Begin: begin, End: end, Exclusive: excl}
}

// rangeBounds converts r into a start and length within a sequence of
// the given length. Out-of-range starts report false.
func (tc *ThreadContext) rangeBounds(r *Range, length int) (int, int, bool) {
	beg := int(tc.intArg(r.Begin))
	end := int(tc.intArg(r.End))
	if beg < 0 {
		beg += length
		if beg < 0 {
			return 0, 0, false
		}
	}
	if beg > length {
		return 0, 0, false
	}
	if end > length {
		end = length
	}
	if end < 0 {
		end += length
	}
	if !r.Exclusive {
		end++
	}
	n := max(end-beg, 0)
	if beg+n > length {
		n = length - beg
	}
	return beg, n, true
}

// rangeCompare sends <=> and reports the sign, or false when the values
// are not comparable.
func (tc *ThreadContext) rangeCompare(a, b Value) (int, bool) {
	if x, ok := a.(int64); ok {
		if y, ok := b.(int64); ok {
			return cmpInt(x, y), true
		}
	}
	r := tc.Send(a, "<=>", b)
	switch x := r.(type) {
	case nil:
		return 0, false
	case int64:
		return cmpInt(x, 0), true
	case float64:
		return cmpFloat(x, 0), true
	case *big.Int:
		return x.Sign(), true
	}
	return tc.intSign(r), true
}

// rangeEach walks r with succ, calling fn until it returns false.
func (tc *ThreadContext) rangeEach(r *Range, fn func(Value) bool) {
	if b, ok := r.Begin.(int64); ok {
		if e, ok := r.End.(int64); ok && (r.Exclusive || e < math.MaxInt64) {
			lim := e
			if !r.Exclusive {
				lim++
			}
			for i := b; i < lim; i++ {
				if !fn(i) {
					return
				}
				tc.poll()
			}
			return
		}
	}
	if s, ok := r.Begin.(*String); ok {
		tc.eachString(s.S, tc.stringArg(r.End), r.Exclusive, func(str string) bool { return fn(NewString(str)) })
		return
	}
	if !tc.RespondTo(r.Begin, "succ") {
		tc.Raise(tc.rt.TypeError, "can't iterate from %s", tc.rt.RealClassOf(r.Begin).Name())
	}
	v := r.Begin
	for {
		c, ok := tc.rangeCompare(v, r.End)
		if !ok || c > 0 || c == 0 && r.Exclusive {
			return
		}
		if !fn(v) || c == 0 {
			return
		}
		v = tc.Send(v, "succ")
		tc.poll()
	}
}

// rangeStep yields every unit-th element of r. Integer ranges count
// directly; other numerics add the step; anything else walks with succ.
func (tc *ThreadContext) rangeStep(r *Range, step Value, blk *Block) {
	rt := tc.rt
	unit := tc.intArg(step)
	if unit < 0 {
		tc.Raise(rt.ArgumentError, "step can't be negative")
	}
	b, bInt := r.Begin.(int64)
	e, eInt := r.End.(int64)
	if bInt && eInt {
		if unit == 0 {
			tc.Raise(rt.ArgumentError, "step can't be 0")
		}
		for i := b; e > i || !r.Exclusive && i == e; {
			tc.Yield(blk, i)
			tc.poll()
			if i > math.MaxInt64-unit {
				return
			}
			i += unit
		}
		return
	}
	if _, isStr := r.Begin.(*String); !isStr && rt.IsKindOf(r.Begin, rt.Numeric) {
		if tc.Equal(step, int64(0)) {
			tc.Raise(rt.ArgumentError, "step can't be 0")
		}
		if Truthy(tc.Send(step, "<", int64(0))) {
			tc.Raise(rt.ArgumentError, "step can't be negative")
		}
		if bf, ok := toFloat(r.Begin); ok {
			if ef, ok := toFloat(r.End); ok {
				if sf, ok := step.(float64); ok {
					floatStep(tc, bf, ef, sf, r.Exclusive, blk)
					return
				}
			}
		}
		op := "<="
		if r.Exclusive {
			op = "<"
		}
		for v := r.Begin; Truthy(tc.Send(v, op, r.End)); v = tc.Send(v, "+", step) {
			tc.Yield(blk, v)
			tc.poll()
		}
		return
	}
	if unit == 0 {
		tc.Raise(rt.ArgumentError, "step can't be 0")
	}
	countdown := int64(1)
	tc.rangeEach(r, func(v Value) bool {
		countdown--
		if countdown == 0 {
			tc.Yield(blk, v)
			countdown = unit
		}
		return true
	})
}

// rangeIncludes compares x against the endpoints.
func (tc *ThreadContext) rangeIncludes(r *Range, x Value) bool {
	c, ok := tc.rangeCompare(r.Begin, x)
	if !ok || c > 0 {
		return false
	}
	c, ok = tc.rangeCompare(x, r.End)
	if !ok {
		return false
	}
	if r.Exclusive {
		return c < 0
	}
	return c <= 0
}

// ---------------------------------------------------------------------------
// Range primitives
// ---------------------------------------------------------------------------

func (rt *Runtime) registerRangePrimitives() {
	c := rt.Range
	rng := func(v Value) *Range { return v.(*Range) }

	// initialize(begin, end, exclusive = false)
	c.AddPrivateMethod("initialize", -3, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 2, 3)
		tc.checkFrozen(self)
		r := tc.newRange(args[0], args[1], len(args) == 3 && Truthy(args[2]))
		s := rng(self)
		s.Begin, s.End, s.Exclusive = r.Begin, r.End, r.Exclusive
		return nil
	})

	first := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return rng(self).Begin
	}
	// first, begin - the start
	c.AddMethod("first", 0, first)
	c.AddMethod("begin", 0, first)

	last := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return rng(self).End
	}
	// last, end - the limit, whether or not it is excluded
	c.AddMethod("last", 0, last)
	c.AddMethod("end", 0, last)

	// exclude_end? - built with ...
	c.AddMethod("exclude_end?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return rng(self).Exclusive
	})

	// == - same endpoints by == and same exclusivity
	c.AddMethod("==", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		o, ok := args[0].(*Range)
		if !ok {
			return false
		}
		r := rng(self)
		return r.Exclusive == o.Exclusive && tc.Equal(r.Begin, o.Begin) && tc.Equal(r.End, o.End)
	})

	// eql? - same endpoints by eql? and same exclusivity
	c.AddMethod("eql?", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		o, ok := args[0].(*Range)
		if !ok {
			return false
		}
		r := rng(self)
		return r.Exclusive == o.Exclusive && tc.Eql(r.Begin, o.Begin) && tc.Eql(r.End, o.End)
	})

	// hash - combines the endpoints and exclusivity
	c.AddMethod("hash", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return rt.hashCode(self)
	})

	render := func(method string) NativeFunc {
		return func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
			r := rng(self)
			dots := ".."
			if r.Exclusive {
				dots = "..."
			}
			if method == "inspect" {
				return NewString(tc.Inspect(r.Begin) + dots + tc.Inspect(r.End))
			}
			return NewString(tc.AsString(r.Begin).S + dots + tc.AsString(r.End).S)
		}
	}
	// inspect, to_s - begin..end with the endpoints rendered
	c.AddMethod("inspect", 0, render("inspect"))
	c.AddMethod("to_s", 0, render("to_s"))

	// each - yield every element
	c.AddMethod("each", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if !blk.IsGiven() {
			return rt.newEnumerator(self, "each", nil)
		}
		tc.rangeEach(rng(self), func(v Value) bool {
			tc.Yield(blk, v)
			return true
		})
		return self
	})

	// step - yield every n-th element
	c.AddMethod("step", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 0, 1)
		step := Value(int64(1))
		if len(args) == 1 {
			step = args[0]
		}
		if !blk.IsGiven() {
			tc.intArg(step)
			return rt.newEnumerator(self, "step", []Value{step})
		}
		tc.rangeStep(rng(self), step, blk)
		return self
	})

	toA := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		r := rng(self)
		b, bInt := r.Begin.(int64)
		e, eInt := r.End.(int64)
		if bInt && eInt {
			lim := e
			if !r.Exclusive {
				lim++
			}
			if lim-b > math.MaxInt32 {
				tc.Raise(rt.RangeError, "Range size too large for to_a")
			}
			out := make([]Value, 0, max(lim-b, 0))
			for i := b; i < lim; i++ {
				out = append(out, i)
			}
			return NewArray(out...)
		}
		out := NewArray()
		tc.rangeEach(r, func(v Value) bool {
			out.Elems = append(out.Elems, v)
			return true
		})
		return out
	}
	// to_a, entries - the elements as an array
	c.AddMethod("to_a", 0, toA)
	c.AddMethod("entries", 0, toA)

	include := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.rangeIncludes(rng(self), args[0])
	}
	// include?, member?, === - begin <= x and x is before the end
	c.AddMethod("include?", 1, include)
	c.AddMethod("member?", 1, include)
	c.AddMethod("===", 1, include)
}
