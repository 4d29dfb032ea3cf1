package vm

// ---------------------------------------------------------------------------
// NilClass, TrueClass and FalseClass primitives
// ---------------------------------------------------------------------------

func (rt *Runtime) registerBooleanPrimitives() {
	n := rt.NilClass

	// to_s - ""
	n.AddMethod("to_s", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return NewString("")
	})

	// inspect - "nil"
	n.AddMethod("inspect", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return NewString("nil")
	})

	// to_a - []
	n.AddMethod("to_a", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return NewArray()
	})

	// to_i - 0
	n.AddMethod("to_i", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return int64(0)
	})

	// to_f - 0.0
	n.AddMethod("to_f", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return float64(0)
	})

	// nil? - true
	n.AddMethod("nil?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return true
	})

	and := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return Truthy(self) && Truthy(args[0])
	}
	or := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return Truthy(self) || Truthy(args[0])
	}
	xor := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return Truthy(self) != Truthy(args[0])
	}
	for _, c := range []*Class{rt.NilClass, rt.TrueClass, rt.FalseClass} {
		// &, |, ^ - logical operators evaluating both sides
		c.AddMethod("&", 1, and)
		c.AddMethod("|", 1, or)
		c.AddMethod("^", 1, xor)
	}

	boolToS := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if self.(bool) {
			return NewString("true")
		}
		return NewString("false")
	}
	// to_s, inspect - "true" or "false"
	for _, c := range []*Class{rt.TrueClass, rt.FalseClass} {
		c.AddMethod("to_s", 0, boolToS)
		c.AddMethod("inspect", 0, boolToS)
	}

	for _, c := range []*Class{rt.NilClass, rt.TrueClass, rt.FalseClass} {
		for _, name := range []string{"new", "allocate"} {
			rt.metaclass(c).undefName(name)
		}
	}
}

// undefName marks name undefined while classes are being set up.
func (c *Class) undefName(name string) {
	c.methods[name] = &Method{Name: name, Owner: c, Undefined: true}
}

// ---------------------------------------------------------------------------
// Comparable primitives
// ---------------------------------------------------------------------------

func (rt *Runtime) registerComparablePrimitives() {
	c := rt.Comparable

	cmp := func(tc *ThreadContext, a, b Value) (int, bool) {
		r := tc.Send(a, "<=>", b)
		if r == nil {
			return 0, false
		}
		n, ok := r.(int64)
		if !ok {
			if f, isFloat := r.(float64); isFloat {
				return cmpFloat(f, 0), true
			}
			return 0, false
		}
		return cmpInt(n, 0), true
	}
	mustCmp := func(tc *ThreadContext, a, b Value) int {
		n, ok := cmp(tc, a, b)
		if !ok {
			tc.Raise(rt.ArgumentError, "comparison of %s with %s failed", rt.RealClassOf(a).Name(), tc.describeForCompare(b))
		}
		return n
	}

	// == - <=> returned 0
	c.AddMethod("==", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if Identical(self, args[0]) {
			return true
		}
		v, re := catchRaise(func() Value {
			n, ok := cmp(tc, self, args[0])
			return ok && n == 0
		})
		if re != nil {
			if rt.IsKindOf(re.Exception, rt.StandardError) {
				return false
			}
			panic(re)
		}
		return v
	})

	// < - <=> returned negative
	c.AddMethod("<", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return mustCmp(tc, self, args[0]) < 0
	})

	// <= - <=> returned zero or negative
	c.AddMethod("<=", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return mustCmp(tc, self, args[0]) <= 0
	})

	// > - <=> returned positive
	c.AddMethod(">", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return mustCmp(tc, self, args[0]) > 0
	})

	// >= - <=> returned zero or positive
	c.AddMethod(">=", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return mustCmp(tc, self, args[0]) >= 0
	})

	// between? - min <= self <= max
	c.AddMethod("between?", 2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return mustCmp(tc, self, args[0]) >= 0 && mustCmp(tc, self, args[1]) <= 0
	})
}
