package vm

import (
	"testing"
)

// ---------------------------------------------------------------------------
// Array primitives
// ---------------------------------------------------------------------------

func TestArrayIndexing(t *testing.T) {
	tr := newTestRuntime(t)
	a := ints(10, 20, 30, 40, 50)
	tests := []struct {
		args []Value
		want string
	}{
		{[]Value{int64(0)}, "10"},
		{[]Value{int64(-1)}, "50"},
		{[]Value{int64(9)}, "nil"},
		{[]Value{int64(1), int64(2)}, "[20, 30]"},
		{[]Value{int64(5), int64(1)}, "[]"},
		{[]Value{int64(6), int64(1)}, "nil"},
		{[]Value{&Range{Begin: int64(1), End: int64(-2)}}, "[20, 30, 40]"},
		{[]Value{&Range{Begin: int64(1), End: int64(3), Exclusive: true}}, "[20, 30]"},
	}
	for _, tt := range tests {
		if got := tr.inspect(tr.send(a, "[]", nil, tt.args...)); got != tt.want {
			t.Errorf("a[%v] = %s, want %s", tt.args, got, tt.want)
		}
	}
}

func TestArraySliceAssignment(t *testing.T) {
	tr := newTestRuntime(t)
	tests := []struct {
		name string
		args []Value
		want string
	}{
		{"store past end", []Value{int64(5), int64(9)}, "[1, 2, 3, nil, nil, 9]"},
		{"replace slice", []Value{int64(0), int64(2), ints(7, 8, 9)}, "[7, 8, 9, 3]"},
		{"insert with zero length", []Value{int64(1), int64(0), int64(5)}, "[1, 5, 2, 3]"},
		{"nil deletes", []Value{int64(1), int64(2), nil}, "[1]"},
		{"range", []Value{&Range{Begin: int64(0), End: int64(1)}, ints(0)}, "[0, 3]"},
	}
	for _, tt := range tests {
		a := ints(1, 2, 3)
		tr.send(a, "[]=", nil, tt.args...)
		if got := tr.inspect(a); got != tt.want {
			t.Errorf("%s: a = %s, want %s", tt.name, got, tt.want)
		}
	}

	_, err := tr.sendErr(ints(1), "[]=", nil, int64(-3), int64(0))
	if raised(err) != "IndexError" {
		t.Errorf("a[-3] = 0 on a one-element array: err = %v, want IndexError", err)
	}
}

func TestArrayMutators(t *testing.T) {
	tr := newTestRuntime(t)
	a := ints(3, 1, 2)
	tr.send(a, "push", nil, int64(4), int64(5))
	if v := tr.send(a, "pop", nil); v != int64(5) {
		t.Errorf("pop = %v, want 5", v)
	}
	if v := tr.send(a, "shift", nil); v != int64(3) {
		t.Errorf("shift = %v, want 3", v)
	}
	tr.send(a, "unshift", nil, int64(0))
	tr.send(a, "insert", nil, int64(2), int64(9))
	if got := tr.inspect(a); got != "[0, 1, 9, 2, 4]" {
		t.Errorf("after edits a = %s", got)
	}
	if v := tr.send(a, "delete", nil, int64(9)); v != int64(9) {
		t.Errorf("delete(9) = %v", v)
	}
	if v := tr.send(a, "delete", nil, int64(42)); v != nil {
		t.Errorf("delete of a missing element = %v, want nil", v)
	}
	if v := tr.send(a, "delete_at", nil, int64(0)); v != int64(0) {
		t.Errorf("delete_at(0) = %v", v)
	}
	if got := tr.inspect(a); got != "[1, 2, 4]" {
		t.Errorf("after deletes a = %s", got)
	}
}

func TestArrayFrozenRejectsChanges(t *testing.T) {
	tr := newTestRuntime(t)
	a := ints(1)
	tr.send(a, "freeze", nil)
	for _, meth := range []string{"push", "<<", "unshift", "concat"} {
		arg := Value(int64(2))
		if meth == "concat" {
			arg = ints(2)
		}
		if _, err := tr.sendErr(a, meth, nil, arg); raised(err) != "TypeError" {
			t.Errorf("%s on a frozen array: err = %v, want TypeError", meth, err)
		}
	}
}

func TestArraySetOperations(t *testing.T) {
	tr := newTestRuntime(t)
	a, b := ints(1, 2, 2, 3), ints(2, 4)
	tests := []struct {
		op   string
		want string
	}{
		{"+", "[1, 2, 2, 3, 2, 4]"},
		{"-", "[1, 3]"},
		{"&", "[2]"},
		{"|", "[1, 2, 3, 4]"},
	}
	for _, tt := range tests {
		if got := tr.inspect(tr.send(a, tt.op, nil, b)); got != tt.want {
			t.Errorf("a %s b = %s, want %s", tt.op, got, tt.want)
		}
	}
	if got := tr.inspect(tr.send(ints(1, 2), "*", nil, int64(2))); got != "[1, 2, 1, 2]" {
		t.Errorf("[1, 2] * 2 = %s", got)
	}
	if got := tr.send(ints(1, 2), "*", nil, NewString("-")).(*String).S; got != "1-2" {
		t.Errorf(`[1, 2] * "-" = %s`, got)
	}
}

func TestArrayCompare(t *testing.T) {
	tr := newTestRuntime(t)
	tests := []struct {
		a, b *Array
		want int64
	}{
		{ints(1, 2), ints(1, 2), 0},
		{ints(1, 2), ints(1, 3), -1},
		{ints(1, 2, 3), ints(1, 2), 1},
	}
	for _, tt := range tests {
		if got := tr.send(tt.a, "<=>", nil, tt.b); got != tt.want {
			t.Errorf("%s <=> %s = %v, want %d", tr.inspect(tt.a), tr.inspect(tt.b), got, tt.want)
		}
	}
	if got := tr.send(ints(1, 2), "==", nil, NewArray(int64(1), 2.0)); got != true {
		t.Error("[1, 2] == [1, 2.0] should be true")
	}
	if got := tr.send(ints(1, 2), "eql?", nil, NewArray(int64(1), 2.0)); got != false {
		t.Error("[1, 2].eql?([1, 2.0]) should be false")
	}
}

func TestArrayReshaping(t *testing.T) {
	tr := newTestRuntime(t)
	nested := NewArray(int64(1), NewArray(int64(2), NewArray(int64(3), nil)), nil)
	tests := []struct {
		recv *Array
		meth string
		args []Value
		want string
	}{
		{nested, "flatten", nil, "[1, 2, 3, nil, nil]"},
		{nested, "compact", nil, "[1, [2, [3, nil]]]"},
		{ints(1, 2, 1, 3, 2), "uniq", nil, "[1, 2, 3]"},
		{ints(1, 2, 3), "reverse", nil, "[3, 2, 1]"},
		{ints(3, 1, 2), "sort", nil, "[1, 2, 3]"},
		{NewArray(ints(1, 2), ints(3, 4)), "transpose", nil, "[[1, 3], [2, 4]]"},
		{ints(5, 6, 7), "values_at", []Value{int64(0), int64(2), int64(5)}, "[5, 7, nil]"},
		{ints(1, 2, 3, 4), "fill", []Value{int64(0), int64(2)}, "[1, 2, 0, 0]"},
		{NewArray(ints(1, 2), ints(3, 4)), "assoc", []Value{int64(3)}, "[3, 4]"},
		{NewArray(ints(1, 2), ints(3, 4)), "rassoc", []Value{int64(2)}, "[1, 2]"},
	}
	for _, tt := range tests {
		if got := tr.inspect(tr.send(tt.recv, tt.meth, nil, tt.args...)); got != tt.want {
			t.Errorf("%s(%v) = %s, want %s", tt.meth, tt.args, got, tt.want)
		}
	}
}

func TestArrayBangMethodsReturnNilWhenUnchanged(t *testing.T) {
	tr := newTestRuntime(t)
	for _, meth := range []string{"compact!", "uniq!", "flatten!"} {
		if v := tr.send(ints(1, 2), meth, nil); v != nil {
			t.Errorf("%s on an already clean array = %v, want nil", meth, v)
		}
	}
}

func TestArrayRecursiveInspectAndJoin(t *testing.T) {
	tr := newTestRuntime(t)
	a := ints(1)
	a.Elems = append(a.Elems, a)
	if got := tr.inspect(a); got != "[1, [...]]" {
		t.Errorf("recursive inspect = %s", got)
	}
	if _, err := tr.sendErr(a, "join", nil); raised(err) != "ArgumentError" {
		t.Errorf("recursive join: err = %v, want ArgumentError", err)
	}
	if _, err := tr.sendErr(a, "flatten", nil); raised(err) != "ArgumentError" {
		t.Errorf("recursive flatten: err = %v, want ArgumentError", err)
	}
}

func TestArrayIteratorsAndFetch(t *testing.T) {
	tr := newTestRuntime(t)
	blk, got := collector()
	tr.send(ints(1, 2, 3), "reverse_each", blk)
	if s := tr.inspect(NewArray(*got...)); s != "[3, 2, 1]" {
		t.Errorf("reverse_each yielded %s", s)
	}

	a := ints(1, 2, 3, 4)
	tr.send(a, "delete_if", returning(isEven))
	if s := tr.inspect(a); s != "[1, 3]" {
		t.Errorf("delete_if left %s", s)
	}
	if v := tr.send(a, "reject!", returning(isEven)); v != nil {
		t.Errorf("reject! with nothing removed = %v, want nil", v)
	}

	if v := tr.send(a, "fetch", nil, int64(7), NewString("d")).(*String).S; v != "d" {
		t.Errorf("fetch default = %s", v)
	}
	if _, err := tr.sendErr(a, "fetch", nil, int64(7)); raised(err) != "IndexError" {
		t.Errorf("fetch out of range: err = %v, want IndexError", err)
	}
}
