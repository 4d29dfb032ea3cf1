package vm

import (
	"testing"
)

// ---------------------------------------------------------------------------
// Enumerable over a Range receiver
// ---------------------------------------------------------------------------

func isEven(v Value) Value { return v.(int64)%2 == 0 }

func TestEnumerableMapSelectReject(t *testing.T) {
	tr := newTestRuntime(t)
	r := &Range{Begin: int64(1), End: int64(6)}
	double := returning(func(v Value) Value { return v.(int64) * 2 })

	tests := []struct {
		meth string
		blk  *Block
		want string
	}{
		{"map", double, "[2, 4, 6, 8, 10, 12]"},
		{"select", returning(isEven), "[2, 4, 6]"},
		{"reject", returning(isEven), "[1, 3, 5]"},
		{"partition", returning(isEven), "[[2, 4, 6], [1, 3, 5]]"},
		{"find", returning(func(v Value) Value { return v.(int64) > 3 }), "4"},
		{"find_index", returning(func(v Value) Value { return v.(int64) > 3 }), "3"},
		{"sort_by", returning(func(v Value) Value { return -v.(int64) }), "[6, 5, 4, 3, 2, 1]"},
		{"min_by", returning(func(v Value) Value { return -v.(int64) }), "6"},
		{"count", returning(isEven), "3"},
	}
	for _, tt := range tests {
		if got := tr.inspect(tr.send(r, tt.meth, tt.blk)); got != tt.want {
			t.Errorf("%s = %s, want %s", tt.meth, got, tt.want)
		}
	}
}

func TestEnumerableInject(t *testing.T) {
	tr := newTestRuntime(t)
	r := &Range{Begin: int64(1), End: int64(4)}
	sum := NewNativeBlock(func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return args[0].(int64) + args[1].(int64)
	}, 2, NormalBlock)

	if got := tr.send(r, "inject", sum); got != int64(10) {
		t.Errorf("inject { |a, b| a + b } = %v, want 10", got)
	}
	if got := tr.send(r, "inject", sum, int64(100)); got != int64(110) {
		t.Errorf("inject(100) = %v, want 110", got)
	}
	if got := tr.send(r, "inject", nil, Symbol("*")); got != int64(24) {
		t.Errorf("inject(:*) = %v, want 24", got)
	}
	if got := tr.send(&Range{Begin: int64(1), End: int64(0)}, "inject", sum); got != nil {
		t.Errorf("inject over nothing = %v, want nil", got)
	}
}

func TestEnumerableQueries(t *testing.T) {
	tr := newTestRuntime(t)
	r := &Range{Begin: int64(1), End: int64(5)}
	tests := []struct {
		meth string
		blk  *Block
		args []Value
		want Value
	}{
		{"any?", returning(isEven), nil, true},
		{"all?", returning(isEven), nil, false},
		{"none?", returning(func(v Value) Value { return v.(int64) > 5 }), nil, true},
		{"include?", nil, []Value{int64(5)}, true},
		{"member?", nil, []Value{int64(6)}, false},
		{"min", nil, nil, int64(1)},
		{"max", nil, nil, int64(5)},
		{"first", nil, nil, int64(1)},
	}
	for _, tt := range tests {
		if got := tr.send(r, tt.meth, tt.blk, tt.args...); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.meth, got, tt.want)
		}
	}
	if got := tr.inspect(tr.send(tr.send(r, "each", nil), "first", nil, int64(2))); got != "[1, 2]" {
		t.Errorf("first(2) = %s", got)
	}
}

func TestEnumerableZipAndGroupBy(t *testing.T) {
	tr := newTestRuntime(t)
	r := &Range{Begin: int64(1), End: int64(3)}
	got := tr.inspect(tr.send(r, "zip", nil, ints(4, 5)))
	if got != "[[1, 4], [2, 5], [3, nil]]" {
		t.Errorf("zip = %s", got)
	}
	got = tr.inspect(tr.send(r, "group_by", returning(isEven)))
	if got != "{false=>[1, 3], true=>[2]}" {
		t.Errorf("group_by = %s", got)
	}
}

func TestEnumerableEachWithIndex(t *testing.T) {
	tr := newTestRuntime(t)
	blk, got := collector()
	tr.send(&Range{Begin: int64(5), End: int64(7)}, "each_with_index", blk)
	if s := tr.inspect(NewArray(*got...)); s != "[[5, 0], [6, 1], [7, 2]]" {
		t.Errorf("each_with_index yielded %s", s)
	}
}

func TestEnumerableSortWithBlock(t *testing.T) {
	tr := newTestRuntime(t)
	desc := NewNativeBlock(func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return int64(tc.Compare(args[1], args[0]))
	}, 2, NormalBlock)
	if got := tr.inspect(tr.send(ints(3, 1, 2), "sort", desc)); got != "[3, 2, 1]" {
		t.Errorf("sort with block = %s", got)
	}

	broken := NewNativeBlock(func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return nil
	}, 2, NormalBlock)
	if _, err := tr.sendErr(ints(3, 1, 2), "sort", broken); raised(err) != "ArgumentError" {
		t.Errorf("sort with nil comparison: err = %v, want ArgumentError", err)
	}
}

// ---------------------------------------------------------------------------
// Enumerator
// ---------------------------------------------------------------------------

func TestEnumeratorFromIteratorWithoutBlock(t *testing.T) {
	tr := newTestRuntime(t)
	en, ok := tr.send(ints(1, 2, 3), "each", nil).(*Enumerator)
	if !ok {
		t.Fatal("each without a block should return an enumerator")
	}
	if got := tr.inspect(tr.send(en, "map", returning(func(v Value) Value { return v.(int64) + 1 }))); got != "[2, 3, 4]" {
		t.Errorf("enumerator map = %s", got)
	}

	slices := tr.send(&Range{Begin: int64(1), End: int64(5)}, "enum_slice", nil, int64(2))
	if got := tr.inspect(tr.send(slices, "to_a", nil)); got != "[[1, 2], [3, 4], [5]]" {
		t.Errorf("enum_slice(2).to_a = %s", got)
	}

	blk, got := collector()
	tr.send(tr.send(ints(7, 8), "each", nil), "with_index", blk)
	if s := tr.inspect(NewArray(*got...)); s != "[[7, 0], [8, 1]]" {
		t.Errorf("with_index yielded %s", s)
	}
}

func TestEachSliceOnArray(t *testing.T) {
	tr := newTestRuntime(t)
	src := ints(1, 2, 3, 4)
	blk, got := collector()
	tr.send(src, "each_slice", blk, int64(3))
	if s := tr.inspect(NewArray(*got...)); s != "[[1, 2, 3], [4]]" {
		t.Errorf("each_slice(3) yielded %s", s)
	}
	(*got)[0].(*Array).Elems[0] = int64(99)
	if src.Elems[0] != int64(1) {
		t.Error("a yielded slice aliases the receiver")
	}
}
