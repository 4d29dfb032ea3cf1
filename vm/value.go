package vm

import (
	"fmt"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// Value is any runtime value.
//
// Immediate values use plain Go representations:
//   - nil: nil
//   - true, false: bool
//   - Fixnum: int64
//   - Bignum: *big.Int (never in int64 range)
//   - Float: float64
//   - Symbol: Symbol
//
// Everything else is a pointer to a type embedding Basic.
type Value = any

// Symbol is an interned name. Go string interning makes equal symbols
// compare equal.
type Symbol string

// ---------------------------------------------------------------------------
// Basic: State shared by every heap value
// ---------------------------------------------------------------------------

// Basic holds the class pointer, instance variables and frozen flag. A nil
// class means the default class for the Go type.
type Basic struct {
	class  *Class
	ivars  map[string]Value
	frozen bool
	id     int64 // object_id, assigned on first request
}

func (b *Basic) basic() *Basic { return b }

// HeapValue is implemented by every non-immediate value.
type HeapValue interface {
	basic() *Basic
}

// Ivar returns an instance variable and whether it is set.
func (b *Basic) Ivar(name string) (Value, bool) {
	v, ok := b.ivars[name]
	return v, ok
}

// SetIvar sets an instance variable.
func (b *Basic) SetIvar(name string, v Value) {
	if b.ivars == nil {
		b.ivars = make(map[string]Value)
	}
	b.ivars[name] = v
}

// IvarNames returns the names of the set instance variables.
func (b *Basic) IvarNames() []string {
	names := make([]string, 0, len(b.ivars))
	for n := range b.ivars {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ---------------------------------------------------------------------------
// Heap types
// ---------------------------------------------------------------------------

// Object is an instance of a user-defined class.
type Object struct {
	Basic
}

// String is a mutable byte string.
type String struct {
	Basic
	S string
}

// NewString creates a string value.
func NewString(s string) *String { return &String{S: s} }

// Array is a mutable sequence.
type Array struct {
	Basic
	Elems []Value
}

// NewArray creates an array holding elems.
func NewArray(elems ...Value) *Array {
	if elems == nil {
		elems = []Value{}
	}
	return &Array{Elems: elems}
}

// Len returns the element count.
func (a *Array) Len() int { return len(a.Elems) }

// At returns element i, or nil past the end. Negative indices count from
// the end.
func (a *Array) At(i int) Value {
	if i < 0 {
		i += len(a.Elems)
	}
	if i < 0 || i >= len(a.Elems) {
		return nil
	}
	return a.Elems[i]
}

// Range is a Range value.
type Range struct {
	Basic
	Begin     Value
	End       Value
	Exclusive bool
}

// ---------------------------------------------------------------------------
// Truthiness and identity
// ---------------------------------------------------------------------------

// Truthy reports whether v counts as true: everything but nil and false.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	}
	return true
}

// Bool converts a Go boolean.
func Bool(b bool) Value { return b }

// Identical implements equal?: immediates by value, heap values by pointer.
func Identical(a, b Value) bool {
	switch x := a.(type) {
	case *big.Int:
		y, ok := b.(*big.Int)
		return ok && x == y
	case float64:
		y, ok := b.(float64)
		return ok && (x == y || (math.IsNaN(x) && math.IsNaN(y)))
	}
	return a == b
}

// ---------------------------------------------------------------------------
// Integers
// ---------------------------------------------------------------------------

// NormalizeBig returns an int64 when b fits, else b.
func NormalizeBig(b *big.Int) Value {
	if b.IsInt64() {
		return b.Int64()
	}
	return b
}

// toBig widens an integer value.
func toBig(v Value) (*big.Int, bool) {
	switch x := v.(type) {
	case int64:
		return big.NewInt(x), true
	case *big.Int:
		return x, true
	}
	return nil, false
}

// IsInteger reports whether v is a Fixnum or Bignum.
func IsInteger(v Value) bool {
	switch v.(type) {
	case int64, *big.Int:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Formatting helpers that need no dispatch
// ---------------------------------------------------------------------------

// FormatFloat renders a float the way Float#to_s does.
func FormatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e16 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if strings.Contains(s, "e") && !strings.Contains(s, ".") {
		mant, exp, _ := strings.Cut(s, "e")
		s = mant + ".0e" + exp
	}
	return s
}

// InspectString quotes s with Ruby escapes.
func InspectString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"', '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case 0x1b:
			sb.WriteString(`\e`)
		case '#':
			if i+1 < len(s) && (s[i+1] == '{' || s[i+1] == '$' || s[i+1] == '@') {
				sb.WriteString(`\#`)
			} else {
				sb.WriteByte(c)
			}
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&sb, `\%03o`, c)
			} else {
				sb.WriteByte(c)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// InspectSymbol renders :name, quoting names that are not plain
// identifiers or operators.
func InspectSymbol(s Symbol) string {
	if isPlainSymbol(string(s)) {
		return ":" + string(s)
	}
	return ":" + InspectString(string(s))
}

var operatorSymbols = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true, "**": true,
	"==": true, "===": true, "=~": true, "<=>": true, "<": true, "<=": true,
	">": true, ">=": true, "<<": true, ">>": true, "!": true, "!=": true,
	"[]": true, "[]=": true, "&": true, "|": true, "^": true, "~": true,
	"+@": true, "-@": true, "`": true,
}

func isPlainSymbol(s string) bool {
	if s == "" {
		return false
	}
	if operatorSymbols[s] {
		return true
	}
	body := strings.TrimLeft(s, "@$")
	if len(s)-len(body) > 2 || body == "" {
		return false
	}
	if strings.HasSuffix(body, "?") || strings.HasSuffix(body, "!") || strings.HasSuffix(body, "=") {
		if s != body {
			return false
		}
		body = body[:len(body)-1]
	}
	for i, r := range body {
		if r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= 0x80 || i > 0 && r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return true
}
