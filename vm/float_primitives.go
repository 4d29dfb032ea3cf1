package vm

import "math"

// floatArith applies a binary operator to two floats. Modulo takes the
// sign of the divisor.
func floatArith(op string, x, y float64) Value {
	switch op {
	case "+":
		return x + y
	case "-":
		return x - y
	case "*":
		return x * y
	case "/":
		return x / y
	case "%":
		m := math.Mod(x, y)
		if m != 0 && (m < 0) != (y < 0) {
			m += y
		}
		return m
	case "**":
		return math.Pow(x, y)
	}
	return nil
}

func floatDivmod(tc *ThreadContext, x, y float64) Value {
	if y == 0 {
		tc.Raise(tc.rt.ZeroDivisionError, "divided by 0")
	}
	q := math.Floor(x / y)
	return NewArray(floatToInteger(tc, q), floatArith("%", x, y))
}

// ---------------------------------------------------------------------------
// Float primitives
// ---------------------------------------------------------------------------

func (rt *Runtime) registerFloatPrimitives() {
	c := rt.Float

	binary := func(op string) NativeFunc {
		return func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
			y, ok := toFloat(args[0])
			if !ok {
				return tc.coerceBin(self, args[0], op)
			}
			return floatArith(op, self.(float64), y)
		}
	}
	// +, -, *, /, %, ** - float arithmetic
	for _, op := range []string{"+", "-", "*", "/", "%", "**"} {
		c.AddMethod(op, 1, binary(op))
	}
	c.AddMethod("modulo", 1, binary("%"))
	c.AddMethod("quo", 1, binary("/"))
	c.AddMethod("fdiv", 1, binary("/"))

	// divmod - [floored quotient, modulus]
	c.AddMethod("divmod", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		y, ok := toFloat(args[0])
		if !ok {
			return tc.coerceBin(self, args[0], "divmod")
		}
		return floatDivmod(tc, self.(float64), y)
	})

	// div - floored quotient as an Integer
	c.AddMethod("div", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		y, ok := toFloat(args[0])
		if !ok {
			return tc.coerceBin(self, args[0], "div")
		}
		return floatToInteger(tc, math.Floor(self.(float64)/y))
	})

	// -@ - negation
	c.AddMethod("-@", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return -self.(float64)
	})

	// <=> - -1, 0, 1, or nil for NaN and non-numbers
	c.AddMethod("<=>", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		x := self.(float64)
		y, ok := toFloat(args[0])
		if !ok || math.IsNaN(x) || math.IsNaN(y) {
			return nil
		}
		return int64(cmpFloat(x, y))
	})

	// == - numeric equality
	c.AddMethod("==", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		y, ok := toFloat(args[0])
		if !ok {
			switch args[0].(type) {
			case nil, bool, Symbol, *String:
				return false
			}
			return Truthy(tc.Send(args[0], "==", self))
		}
		return self.(float64) == y
	})

	compare := func(op string, test func(x, y float64) bool) NativeFunc {
		return func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
			y, ok := toFloat(args[0])
			if !ok {
				return tc.coerceCmp(self, args[0], op)
			}
			return test(self.(float64), y)
		}
	}
	// <, <=, >, >= - ordering, false when NaN is involved
	c.AddMethod("<", 1, compare("<", func(x, y float64) bool { return x < y }))
	c.AddMethod("<=", 1, compare("<=", func(x, y float64) bool { return x <= y }))
	c.AddMethod(">", 1, compare(">", func(x, y float64) bool { return x > y }))
	c.AddMethod(">=", 1, compare(">=", func(x, y float64) bool { return x >= y }))

	// eql? - equal and both floats
	c.AddMethod("eql?", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		y, ok := args[0].(float64)
		return ok && self.(float64) == y
	})

	toS := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return NewString(FormatFloat(self.(float64)))
	}
	// to_s, inspect - shortest representation that reads back
	c.AddMethod("to_s", 0, toS)
	c.AddMethod("inspect", 0, toS)

	// to_f - the receiver
	c.AddMethod("to_f", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return self
	})

	truncate := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return floatToInteger(tc, self.(float64))
	}
	// to_i, to_int, truncate - drop the fraction
	c.AddMethod("to_i", 0, truncate)
	c.AddMethod("to_int", 0, truncate)
	c.AddMethod("truncate", 0, truncate)

	// floor - largest integer not above
	c.AddMethod("floor", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return floatToInteger(tc, math.Floor(self.(float64)))
	})

	// ceil - smallest integer not below
	c.AddMethod("ceil", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return floatToInteger(tc, math.Ceil(self.(float64)))
	})

	// round - nearest integer, halves away from zero
	c.AddMethod("round", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return floatToInteger(tc, math.Round(self.(float64)))
	})

	// abs - absolute value
	c.AddMethod("abs", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return math.Abs(self.(float64))
	})

	// zero? - whether the receiver is 0.0
	c.AddMethod("zero?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return self.(float64) == 0
	})

	// nan? - whether the receiver is not a number
	c.AddMethod("nan?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return math.IsNaN(self.(float64))
	})

	// infinite? - 1 or -1 for infinities, else nil
	c.AddMethod("infinite?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		f := self.(float64)
		switch {
		case math.IsInf(f, 1):
			return int64(1)
		case math.IsInf(f, -1):
			return int64(-1)
		}
		return nil
	})

	// finite? - neither infinite nor NaN
	c.AddMethod("finite?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		f := self.(float64)
		return !math.IsInf(f, 0) && !math.IsNaN(f)
	})

	// coerce - [Float(other), self]
	c.AddMethod("coerce", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		y, ok := toFloat(args[0])
		if !ok {
			tc.Raise(rt.TypeError, "%s can't be coerced into Float", describeCoerced(tc, args[0]))
		}
		return NewArray(y, self)
	})

	// hash - hash of the value
	c.AddMethod("hash", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return rt.hashCode(self)
	})

	rt.metaclass(c).undefName("new")
	rt.metaclass(c).undefName("allocate")
	for name, v := range map[string]float64{
		"INFINITY": math.Inf(1),
		"NAN":      math.NaN(),
		"EPSILON":  math.Nextafter(1, 2) - 1,
		"MAX":      math.MaxFloat64,
		"MIN":      2.2250738585072014e-308,
	} {
		c.SetConstant(name, v)
	}
	c.SetConstant("DIG", int64(15))

	rt.registerMathPrimitives()
}

// ---------------------------------------------------------------------------
// Math module functions
// ---------------------------------------------------------------------------

func (rt *Runtime) registerMathPrimitives() {
	m := rt.Math
	meta := rt.metaclass(m)

	arg := func(tc *ThreadContext, v Value) float64 {
		f, ok := toFloat(v)
		if !ok {
			if v == nil || Identical(v, true) || Identical(v, false) {
				tc.Raise(rt.TypeError, "can't convert %s into Float", tc.Inspect(v))
			}
			if _, isStr := v.(*String); isStr {
				tc.Raise(rt.TypeError, "can't convert String into Float")
			}
			f, ok = tc.Send(v, "to_f").(float64)
			if !ok {
				tc.Raise(rt.TypeError, "can't convert %s into Float", rt.RealClassOf(v).Name())
			}
		}
		return f
	}
	unary := func(name string, fn func(float64) float64, domain func(float64) bool) {
		f := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
			x := arg(tc, args[0])
			if domain != nil && !domain(x) {
				tc.Raise(rt.ArgumentError, "Numerical argument out of domain - \"%s\"", name)
			}
			return fn(x)
		}
		// Math.sqrt, Math.sin, ... - module functions over floats
		m.AddPrivateMethod(name, 1, f)
		meta.AddMethod(name, 1, f)
	}
	nonNegative := func(x float64) bool { return x >= 0 || math.IsNaN(x) }
	unary("sqrt", math.Sqrt, nonNegative)
	unary("sin", math.Sin, nil)
	unary("cos", math.Cos, nil)
	unary("tan", math.Tan, nil)
	unary("asin", math.Asin, nil)
	unary("acos", math.Acos, nil)
	unary("atan", math.Atan, nil)
	unary("sinh", math.Sinh, nil)
	unary("cosh", math.Cosh, nil)
	unary("tanh", math.Tanh, nil)
	unary("exp", math.Exp, nil)
	unary("log", math.Log, nonNegative)
	unary("log10", math.Log10, nonNegative)
	unary("log2", math.Log2, nonNegative)
	unary("cbrt", math.Cbrt, nil)

	binary := func(name string, fn func(x, y float64) float64) {
		f := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
			return fn(arg(tc, args[0]), arg(tc, args[1]))
		}
		m.AddPrivateMethod(name, 2, f)
		meta.AddMethod(name, 2, f)
	}
	binary("atan2", math.Atan2)
	binary("hypot", math.Hypot)

	m.SetConstant("PI", math.Pi)
	m.SetConstant("E", math.E)
}
