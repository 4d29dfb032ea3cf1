package scope

import "fmt"

// Arity is the call arity of a method or block: n >= 0 means exactly n
// arguments, -(n+1) means at least n.
type Arity int

// FixedArity requires exactly n arguments.
func FixedArity(n int) Arity { return Arity(n) }

// RequiredArity requires at least n arguments.
func RequiredArity(n int) Arity { return Arity(-(n + 1)) }

// OptionalArity accepts any number of arguments.
func OptionalArity() Arity { return Arity(-1) }

// Value returns the arity in its integer encoding.
func (a Arity) Value() int { return int(a) }

// IsFixed reports whether the arity is exact.
func (a Arity) IsFixed() bool { return a >= 0 }

// Required returns the minimum argument count.
func (a Arity) Required() int {
	if a >= 0 {
		return int(a)
	}
	return -int(a) - 1
}

// Accepts reports whether n arguments satisfy the arity.
func (a Arity) Accepts(n int) bool {
	if a >= 0 {
		return n == int(a)
	}
	return n >= a.Required()
}

func (a Arity) String() string {
	if a >= 0 {
		return fmt.Sprintf("%d", int(a))
	}
	return fmt.Sprintf("%d+", a.Required())
}
