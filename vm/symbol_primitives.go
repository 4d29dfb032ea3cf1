package vm

import "github.com/chazu/garnet/scope"

// ---------------------------------------------------------------------------
// Symbol Primitives
// ---------------------------------------------------------------------------

func (rt *Runtime) registerSymbolPrimitives() {
	c := rt.Symbol
	sym := func(v Value) Symbol { return v.(Symbol) }
	rt.metaclass(c).undefName("new")

	// all_symbols - every symbol numbered so far
	rt.metaclass(c).AddMethod("all_symbols", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		all := rt.symbols.All()
		out := make([]Value, len(all))
		for i, s := range all {
			out[i] = s
		}
		return NewArray(out...)
	})

	toS := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return NewString(string(sym(self)))
	}
	// to_s, id2name - the name as a new string
	c.AddMethod("to_s", 0, toS)
	c.AddMethod("id2name", 0, toS)

	// inspect - :name, quoted when needed
	c.AddMethod("inspect", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return NewString(InspectSymbol(sym(self)))
	})

	// to_sym - self
	c.AddMethod("to_sym", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return self
	})

	// to_i - the symbol's number
	c.AddMethod("to_i", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return rt.symbols.Intern(sym(self))
	})

	// == - identity
	c.AddMethod("==", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		o, ok := args[0].(Symbol)
		return ok && o == sym(self)
	})

	// hash - stable per name
	c.AddMethod("hash", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return rt.hashCode(self)
	})

	// <=> - compares names
	c.AddMethod("<=>", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		o, ok := args[0].(Symbol)
		if !ok {
			return nil
		}
		switch a := sym(self); {
		case a < o:
			return int64(-1)
		case a > o:
			return int64(1)
		}
		return int64(0)
	})

	// to_proc - a proc sending the symbol to its first argument
	c.AddMethod("to_proc", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		name := string(sym(self))
		b := NewNativeBlock(func(tc *ThreadContext, _ Value, args []Value, blk *Block) Value {
			if len(args) == 0 {
				tc.Raise(rt.ArgumentError, "no receiver given")
			}
			return tc.callMethod(args[0], name, args[1:], blk, 0, nil)
		}, scope.OptionalArity(), ProcBlock)
		return b.ToProc(ProcBlock)
	})
}
