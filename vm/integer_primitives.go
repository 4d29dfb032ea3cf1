package vm

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Integer arithmetic
// ---------------------------------------------------------------------------

func addInt(a, b int64) Value {
	s := a + b
	if (s > a) == (b > 0) {
		return s
	}
	return NormalizeBig(new(big.Int).Add(big.NewInt(a), big.NewInt(b)))
}

func subInt(a, b int64) Value {
	s := a - b
	if (s < a) == (b > 0) {
		return s
	}
	return NormalizeBig(new(big.Int).Sub(big.NewInt(a), big.NewInt(b)))
}

func mulInt(a, b int64) Value {
	if a == 0 || b == 0 {
		return int64(0)
	}
	p := a * b
	if p/b == a && !(a == -1 && b == math.MinInt64) && !(b == -1 && a == math.MinInt64) {
		return p
	}
	return NormalizeBig(new(big.Int).Mul(big.NewInt(a), big.NewInt(b)))
}

// intArith applies a binary operator to two integers, promoting to
// Bignum on overflow. Division and modulo round toward negative infinity.
func (tc *ThreadContext) intArith(op string, a, b Value) Value {
	if x, ok := a.(int64); ok {
		if y, ok := b.(int64); ok {
			switch op {
			case "+":
				return addInt(x, y)
			case "-":
				return subInt(x, y)
			case "*":
				return mulInt(x, y)
			case "/":
				if y == 0 {
					tc.Raise(tc.rt.ZeroDivisionError, "divided by 0")
				}
				if x == math.MinInt64 && y == -1 {
					break
				}
				q := x / y
				if x%y != 0 && (x < 0) != (y < 0) {
					q--
				}
				return q
			case "%":
				if y == 0 {
					tc.Raise(tc.rt.ZeroDivisionError, "divided by 0")
				}
				if y == -1 {
					return int64(0)
				}
				m := x % y
				if m != 0 && (m < 0) != (y < 0) {
					m += y
				}
				return m
			case "&":
				return x & y
			case "|":
				return x | y
			case "^":
				return x ^ y
			}
		}
	}
	x, _ := toBig(a)
	y, _ := toBig(b)
	r := new(big.Int)
	switch op {
	case "+":
		r.Add(x, y)
	case "-":
		r.Sub(x, y)
	case "*":
		r.Mul(x, y)
	case "/", "%":
		if y.Sign() == 0 {
			tc.Raise(tc.rt.ZeroDivisionError, "divided by 0")
		}
		q, m := new(big.Int).QuoRem(x, y, new(big.Int))
		if m.Sign() != 0 && m.Sign() != y.Sign() {
			q.Sub(q, big.NewInt(1))
			m.Add(m, y)
		}
		if op == "/" {
			r = q
		} else {
			r = m
		}
	case "&":
		r.And(x, y)
	case "|":
		r.Or(x, y)
	case "^":
		r.Xor(x, y)
	}
	return NormalizeBig(r)
}

// intPow computes a ** b for integers; negative exponents give a Float.
func (tc *ThreadContext) intPow(a, b Value) Value {
	x, _ := toBig(a)
	y, _ := toBig(b)
	if y.Sign() < 0 {
		fx, _ := new(big.Float).SetInt(x).Float64()
		fy, _ := new(big.Float).SetInt(y).Float64()
		return math.Pow(fx, fy)
	}
	if !y.IsInt64() || y.Int64() > 1<<20 && x.CmpAbs(big.NewInt(1)) > 0 {
		tc.rt.warn("in a**b, b may be too big")
		fx, _ := new(big.Float).SetInt(x).Float64()
		fy, _ := new(big.Float).SetInt(y).Float64()
		return math.Pow(fx, fy)
	}
	return NormalizeBig(new(big.Int).Exp(x, y, nil))
}

func (tc *ThreadContext) intShift(a Value, n int64) Value {
	x, _ := toBig(a)
	r := new(big.Int)
	if n >= 0 {
		if n > 1<<24 {
			tc.Raise(tc.rt.RangeError, "shift width too big")
		}
		r.Lsh(x, uint(n))
	} else {
		if -n > int64(x.BitLen())+1 {
			if x.Sign() < 0 {
				return int64(-1)
			}
			return int64(0)
		}
		r.Rsh(x, uint(-n))
	}
	return NormalizeBig(r)
}

func intCompare(a, b Value) int {
	if x, ok := a.(int64); ok {
		if y, ok := b.(int64); ok {
			return cmpInt(x, y)
		}
	}
	x, _ := toBig(a)
	y, _ := toBig(b)
	return x.Cmp(y)
}

// toFloat converts any numeric value to a Go float.
func toFloat(v Value) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case *big.Int:
		f, _ := new(big.Float).SetInt(x).Float64()
		return f, true
	}
	return 0, false
}

// floatToInteger truncates f, raising FloatDomainError for NaN and
// infinities.
func floatToInteger(tc *ThreadContext, f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		tc.Raise(tc.rt.FloatDomainError, "%s", FormatFloat(f))
	}
	f = math.Trunc(f)
	if f >= -9.2e18 && f <= 9.2e18 {
		return int64(f)
	}
	b, _ := new(big.Float).SetFloat64(f).Int(nil)
	return NormalizeBig(b)
}

// coerceBin retries a binary operator through other.coerce(self).
func (tc *ThreadContext) coerceBin(self, other Value, op string) Value {
	rt := tc.rt
	if other != nil && tc.RespondTo(other, "coerce") {
		pair, ok := tc.Send(other, "coerce", self).(*Array)
		if !ok || len(pair.Elems) != 2 {
			tc.Raise(rt.TypeError, "coerce must return [x, y]")
		}
		return tc.Send(pair.Elems[0], op, pair.Elems[1])
	}
	tc.Raise(rt.TypeError, "%s can't be coerced into %s", describeCoerced(tc, other), rt.RealClassOf(self).Name())
	return nil
}

// coerceCmp is coerceBin for comparison operators, whose failure is an
// ArgumentError.
func (tc *ThreadContext) coerceCmp(self, other Value, op string) Value {
	rt := tc.rt
	if other != nil && tc.RespondTo(other, "coerce") {
		v, re := catchRaise(func() Value { return tc.coerceBin(self, other, op) })
		if re == nil {
			return v
		}
	}
	tc.Raise(rt.ArgumentError, "comparison of %s with %s failed", rt.RealClassOf(self).Name(), tc.describeForCompare(other))
	return nil
}

func describeCoerced(tc *ThreadContext, v Value) string {
	switch v.(type) {
	case nil, bool:
		return tc.Inspect(v)
	}
	return tc.rt.RealClassOf(v).Name()
}

// parseInteger reads an integer literal. Strict parsing rejects trailing
// garbage and honors radix prefixes; lenient parsing stops at the first
// invalid character, as String#to_i does.
func parseInteger(s string, base int, strict bool) (Value, bool) {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	if len(s) > 1 && s[0] == '0' {
		prefix := strings.ToLower(s[:2])
		switch {
		case prefix == "0x" && (base == 16 || strict && base == 10):
			base, s = 16, s[2:]
		case prefix == "0b" && (base == 2 || strict && base == 10):
			base, s = 2, s[2:]
		case prefix == "0o" && (base == 8 || strict && base == 10):
			base, s = 8, s[2:]
		case strict && base == 10:
			base, s = 8, s[1:]
		}
	}
	var digits strings.Builder
	lastUnderscore := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			if lastUnderscore {
				if strict {
					return nil, false
				}
				break
			}
			lastUnderscore = true
			continue
		}
		d := digitValue(c)
		if d < 0 || d >= base {
			if strict {
				return nil, false
			}
			break
		}
		digits.WriteByte(c)
		lastUnderscore = false
	}
	if digits.Len() == 0 {
		if strict {
			return nil, false
		}
		return int64(0), true
	}
	if strict && lastUnderscore {
		return nil, false
	}
	b, ok := new(big.Int).SetString(digits.String(), base)
	if !ok {
		return nil, false
	}
	if neg {
		b.Neg(b)
	}
	return NormalizeBig(b), true
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return -1
}

func formatInteger(v Value, base int) string {
	switch x := v.(type) {
	case int64:
		return strconv.FormatInt(x, base)
	case *big.Int:
		return x.Text(base)
	}
	return ""
}

// ---------------------------------------------------------------------------
// Integer primitives
// ---------------------------------------------------------------------------

func (rt *Runtime) registerIntegerPrimitives() {
	c := rt.Integer

	binary := func(op string) NativeFunc {
		return func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
			switch y := args[0].(type) {
			case int64, *big.Int:
				return tc.intArith(op, self, y)
			case float64:
				x, _ := toFloat(self)
				return floatArith(op, x, y)
			}
			return tc.coerceBin(self, args[0], op)
		}
	}
	// +, -, *, /, % - arithmetic, promoting to Bignum on overflow
	for _, op := range []string{"+", "-", "*", "/", "%"} {
		c.AddMethod(op, 1, binary(op))
	}
	c.AddMethod("modulo", 1, binary("%"))

	// div - integer division, flooring float quotients
	c.AddMethod("div", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if y, ok := args[0].(float64); ok {
			x, _ := toFloat(self)
			if y == 0 {
				tc.Raise(rt.ZeroDivisionError, "divided by 0")
			}
			return floatToInteger(tc, math.Floor(x/y))
		}
		return binary("/")(tc, self, args, blk)
	})

	// quo, fdiv - float division
	quo := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		x, _ := toFloat(self)
		y, ok := toFloat(args[0])
		if !ok {
			return tc.coerceBin(self, args[0], "quo")
		}
		return x / y
	}
	c.AddMethod("quo", 1, quo)
	c.AddMethod("fdiv", 1, quo)

	// divmod - [quotient, modulus]
	c.AddMethod("divmod", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		switch y := args[0].(type) {
		case int64, *big.Int:
			return NewArray(tc.intArith("/", self, y), tc.intArith("%", self, y))
		case float64:
			x, _ := toFloat(self)
			return floatDivmod(tc, x, y)
		}
		return tc.coerceBin(self, args[0], "divmod")
	})

	// remainder - modulus with the sign of the receiver
	c.AddMethod("remainder", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		m := binary("%")(tc, self, args, blk)
		if IsInteger(m) && IsInteger(args[0]) {
			if tc.intSign(m) != 0 && tc.intSign(m) != tc.intSign(self) {
				return tc.intArith("-", m, args[0])
			}
		}
		return m
	})

	// ** - exponentiation, Float for negative exponents
	c.AddMethod("**", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		switch y := args[0].(type) {
		case int64, *big.Int:
			return tc.intPow(self, y)
		case float64:
			x, _ := toFloat(self)
			return math.Pow(x, y)
		}
		return tc.coerceBin(self, args[0], "**")
	})

	bitwise := func(op string) NativeFunc {
		return func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
			y := args[0]
			if f, ok := y.(float64); ok {
				y = floatToInteger(tc, f)
			}
			if !IsInteger(y) {
				return tc.coerceBin(self, y, op)
			}
			return tc.intArith(op, self, y)
		}
	}
	// &, |, ^ - bitwise operators
	for _, op := range []string{"&", "|", "^"} {
		c.AddMethod(op, 1, bitwise(op))
	}

	// ~ - bitwise complement
	c.AddMethod("~", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if x, ok := self.(int64); ok {
			return ^x
		}
		x, _ := toBig(self)
		return NormalizeBig(new(big.Int).Not(x))
	})

	// << - left shift
	c.AddMethod("<<", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.intShift(self, tc.intArg(args[0]))
	})

	// >> - right shift
	c.AddMethod(">>", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.intShift(self, -tc.intArg(args[0]))
	})

	// [] - the nth bit
	c.AddMethod("[]", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		n := tc.intArg(args[0])
		if n < 0 {
			return int64(0)
		}
		x, _ := toBig(self)
		if x.Sign() < 0 {
			return int64(1 - new(big.Int).Not(x).Bit(int(n)))
		}
		return int64(x.Bit(int(n)))
	})

	// -@ - negation
	c.AddMethod("-@", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.intArith("-", int64(0), self)
	})

	// <=> - -1, 0, 1, or nil when not comparable
	c.AddMethod("<=>", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		switch y := args[0].(type) {
		case int64, *big.Int:
			return int64(intCompare(self, y))
		case float64:
			if math.IsNaN(y) {
				return nil
			}
			x, _ := toFloat(self)
			return int64(cmpFloat(x, y))
		}
		return nil
	})

	// == - numeric equality
	c.AddMethod("==", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		switch y := args[0].(type) {
		case int64, *big.Int:
			return intCompare(self, y) == 0
		case float64:
			x, _ := toFloat(self)
			return x == y
		case nil, bool, Symbol:
			return false
		}
		return Truthy(tc.Send(args[0], "==", self))
	})

	compare := func(op string, test func(int) bool) NativeFunc {
		return func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
			switch y := args[0].(type) {
			case int64, *big.Int:
				return test(intCompare(self, y))
			case float64:
				if math.IsNaN(y) {
					return false
				}
				x, _ := toFloat(self)
				return test(cmpFloat(x, y))
			}
			return tc.coerceCmp(self, args[0], op)
		}
	}
	// <, <=, >, >= - numeric ordering
	c.AddMethod("<", 1, compare("<", func(n int) bool { return n < 0 }))
	c.AddMethod("<=", 1, compare("<=", func(n int) bool { return n <= 0 }))
	c.AddMethod(">", 1, compare(">", func(n int) bool { return n > 0 }))
	c.AddMethod(">=", 1, compare(">=", func(n int) bool { return n >= 0 }))

	// eql? - equal and both integers
	c.AddMethod("eql?", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return IsInteger(args[0]) && intCompare(self, args[0]) == 0
	})

	toS := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 0, 1)
		base := 10
		if len(args) == 1 {
			base = int(tc.intArg(args[0]))
			if base < 2 || base > 36 {
				tc.Raise(rt.ArgumentError, "illegal radix %d", base)
			}
		}
		return NewString(formatInteger(self, base))
	}
	// to_s - decimal, or the given radix
	c.AddMethod("to_s", -1, toS)
	c.AddMethod("inspect", 0, toS)

	identity := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value { return self }
	// to_i, to_int, floor, ceil, round, truncate - the receiver
	for _, name := range []string{"to_i", "to_int", "floor", "ceil", "round", "truncate", "ord"} {
		c.AddMethod(name, 0, identity)
	}

	// to_f - convert to Float
	c.AddMethod("to_f", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		f, _ := toFloat(self)
		return f
	})

	// chr - the one-character string for a byte
	c.AddMethod("chr", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		n, ok := self.(int64)
		if !ok || n < 0 || n > 255 {
			tc.Raise(rt.RangeError, "%s out of char range", formatInteger(self, 10))
		}
		return NewString(string([]byte{byte(n)}))
	})

	succ := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.intArith("+", self, int64(1))
	}
	// succ, next - the receiver plus one
	c.AddMethod("succ", 0, succ)
	c.AddMethod("next", 0, succ)

	// pred - the receiver minus one
	c.AddMethod("pred", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.intArith("-", self, int64(1))
	})

	// abs - absolute value
	c.AddMethod("abs", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if tc.intSign(self) < 0 {
			return tc.intArith("-", int64(0), self)
		}
		return self
	})

	// zero? - whether the receiver is 0
	c.AddMethod("zero?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.intSign(self) == 0
	})

	// even?, odd? - parity
	c.AddMethod("even?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		x, _ := toBig(self)
		return x.Bit(0) == 0
	})
	c.AddMethod("odd?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		x, _ := toBig(self)
		return x.Bit(0) == 1
	})

	// integer? - true
	c.AddMethod("integer?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return true
	})

	// size - bytes in the machine representation
	c.AddMethod("size", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if b, ok := self.(*big.Int); ok {
			return int64((b.BitLen() + 63) / 64 * 8)
		}
		return int64(8)
	})

	// hash - the value itself for Fixnums
	c.AddMethod("hash", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return rt.hashCode(self)
	})

	// coerce - [Float(other), Float(self)], or integers when both are
	c.AddMethod("coerce", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if IsInteger(args[0]) {
			return NewArray(args[0], self)
		}
		x, _ := toFloat(self)
		y, ok := toFloat(args[0])
		if !ok {
			tc.Raise(rt.TypeError, "%s can't be coerced into %s", describeCoerced(tc, args[0]), rt.RealClassOf(self).Name())
		}
		return NewArray(y, x)
	})

	// times - yield 0 through self-1
	c.AddMethod("times", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if !blk.IsGiven() {
			return rt.newEnumerator(self, "times", nil)
		}
		if n, ok := self.(int64); ok {
			for i := int64(0); i < n; i++ {
				tc.Yield(blk, i)
				tc.poll()
			}
			return self
		}
		for i := Value(int64(0)); intCompare(i, self) < 0; i = tc.intArith("+", i, int64(1)) {
			tc.Yield(blk, i)
			tc.poll()
		}
		return self
	})

	// upto - yield self through limit
	c.AddMethod("upto", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if !blk.IsGiven() {
			return rt.newEnumerator(self, "upto", args)
		}
		tc.countBy(self, args[0], int64(1), blk)
		return self
	})

	// downto - yield self down to limit
	c.AddMethod("downto", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if !blk.IsGiven() {
			return rt.newEnumerator(self, "downto", args)
		}
		tc.countBy(self, args[0], int64(-1), blk)
		return self
	})

	// Integer.induced_from - convert a numeric
	rt.metaclass(c).AddMethod("induced_from", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		switch x := args[0].(type) {
		case int64, *big.Int:
			return x
		case float64:
			return floatToInteger(tc, x)
		}
		tc.Raise(rt.TypeError, "failed to convert %s into Integer", rt.RealClassOf(args[0]).Name())
		return nil
	})

	for _, k := range []*Class{rt.Integer, rt.Fixnum, rt.Bignum} {
		rt.metaclass(k).undefName("new")
		rt.metaclass(k).undefName("allocate")
	}

	rt.registerNumericPrimitives()
}

func (tc *ThreadContext) intSign(v Value) int {
	switch x := v.(type) {
	case int64:
		return cmpInt(x, 0)
	case *big.Int:
		return x.Sign()
	}
	return 0
}

// countBy yields from start toward limit in steps of +1 or -1. Float
// limits are compared numerically.
func (tc *ThreadContext) countBy(start, limit Value, step int64, blk *Block) {
	past := ">"
	if step < 0 {
		past = "<"
	}
	done := func(i Value) bool {
		if IsInteger(limit) {
			c := intCompare(i, limit)
			return step > 0 && c > 0 || step < 0 && c < 0
		}
		return Truthy(tc.Send(i, past, limit))
	}
	for i := start; !done(i); i = tc.intArith("+", i, step) {
		tc.Yield(blk, i)
		tc.poll()
	}
}

// ---------------------------------------------------------------------------
// Numeric primitives
// ---------------------------------------------------------------------------

func (rt *Runtime) registerNumericPrimitives() {
	n := rt.Numeric

	// +@ - the receiver
	n.AddMethod("+@", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return self
	})

	// -@ - zero minus the receiver
	n.AddMethod("-@", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		pair := tc.Send(self, "coerce", int64(0)).(*Array)
		return tc.Send(pair.Elems[0], "-", pair.Elems[1])
	})

	// integer? - false unless overridden
	n.AddMethod("integer?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return false
	})

	// nonzero? - self, or nil for zero
	n.AddMethod("nonzero?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if Truthy(tc.Send(self, "zero?")) {
			return nil
		}
		return self
	})

	// step - yield from self to limit by step
	n.AddMethod("step", -2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 1, 2)
		if !blk.IsGiven() {
			return rt.newEnumerator(self, "step", args)
		}
		limit := args[0]
		var step Value = int64(1)
		if len(args) == 2 {
			step = args[1]
		}
		if Truthy(tc.Send(step, "==", int64(0))) {
			tc.Raise(rt.ArgumentError, "step can't be 0")
		}
		_, fs := step.(float64)
		_, fl := limit.(float64)
		_, fb := self.(float64)
		if fs || fl || fb {
			b, _ := toFloat(self)
			e, _ := toFloat(limit)
			s, _ := toFloat(step)
			floatStep(tc, b, e, s, false, blk)
			return self
		}
		up := Truthy(tc.Send(step, ">", int64(0)))
		cmp := ">"
		if !up {
			cmp = "<"
		}
		for i := self; !Truthy(tc.Send(i, cmp, limit)); i = tc.Send(i, "+", step) {
			tc.Yield(blk, i)
			tc.poll()
		}
		return self
	})
}

// floatStep yields beg, beg+unit, ... up to end. The count is computed up
// front so rounding error does not add or drop an element.
func floatStep(tc *ThreadContext, beg, end, unit float64, excl bool, blk *Block) {
	eps := math.Nextafter(1, 2) - 1
	n := (end - beg) / unit
	err := (math.Abs(beg) + math.Abs(end) + math.Abs(end-beg)) / math.Abs(unit) * eps
	if math.IsInf(unit, 0) {
		if unit > 0 && beg <= end || unit < 0 && beg >= end {
			tc.Yield(blk, beg)
		}
		return
	}
	if err > 0.5 {
		err = 0.5
	}
	n = math.Floor(n + err)
	if excl && beg+n*unit == end {
		n--
	}
	for i := float64(0); i <= n; i++ {
		tc.Yield(blk, i*unit+beg)
		tc.poll()
	}
}
