package vm

import (
	"testing"
)

// ---------------------------------------------------------------------------
// Range iteration tests
// ---------------------------------------------------------------------------

func TestRangeEach(t *testing.T) {
	tr := newTestRuntime(t)
	blk, got := collector()
	r := &Range{Begin: int64(1), End: int64(4)}
	if v := tr.send(r, "each", blk); v != r {
		t.Errorf("each returned %v, want the range", v)
	}
	if len(*got) != 4 || (*got)[0] != int64(1) || (*got)[3] != int64(4) {
		t.Errorf("each yielded %v, want 1..4", *got)
	}

	blk, got = collector()
	tr.send(&Range{Begin: int64(1), End: int64(4), Exclusive: true}, "each", blk)
	if len(*got) != 3 {
		t.Errorf("exclusive each yielded %v, want 1...4", *got)
	}
}

func TestRangeToA(t *testing.T) {
	tr := newTestRuntime(t)
	tests := []struct {
		r    *Range
		want string
	}{
		{&Range{Begin: int64(1), End: int64(5)}, "[1, 2, 3, 4, 5]"},
		{&Range{Begin: int64(1), End: int64(5), Exclusive: true}, "[1, 2, 3, 4]"},
		{&Range{Begin: int64(5), End: int64(1)}, "[]"},
		{&Range{Begin: int64(3), End: int64(3), Exclusive: true}, "[]"},
		{&Range{Begin: NewString("a"), End: NewString("e")}, `["a", "b", "c", "d", "e"]`},
	}
	for _, tt := range tests {
		if got := tr.inspect(tr.send(tt.r, "to_a", nil)); got != tt.want {
			t.Errorf("%s.to_a = %s, want %s", tr.inspect(tt.r), got, tt.want)
		}
	}
}

func TestRangeStep(t *testing.T) {
	tr := newTestRuntime(t)
	blk, got := collector()
	tr.send(&Range{Begin: int64(1), End: int64(10)}, "step", blk, int64(2))
	if s := tr.inspect(NewArray(*got...)); s != "[1, 3, 5, 7, 9]" {
		t.Errorf("(1..10).step(2) yielded %s", s)
	}

	blk, got = collector()
	tr.send(&Range{Begin: int64(0), End: int64(6), Exclusive: true}, "step", blk, int64(3))
	if s := tr.inspect(NewArray(*got...)); s != "[0, 3]" {
		t.Errorf("(0...6).step(3) yielded %s", s)
	}

	blk, got = collector()
	tr.send(&Range{Begin: 1.0, End: 2.0}, "step", blk, 0.5)
	if s := tr.inspect(NewArray(*got...)); s != "[1.0, 1.5, 2.0]" {
		t.Errorf("(1.0..2.0).step(0.5) yielded %s", s)
	}
}

func TestRangeStepRejectsNonPositive(t *testing.T) {
	tr := newTestRuntime(t)
	blk, got := collector()
	for _, step := range []int64{0, -1} {
		_, err := tr.sendErr(&Range{Begin: int64(1), End: int64(10)}, "step", blk, step)
		if raised(err) != "ArgumentError" {
			t.Errorf("step(%d): err = %v, want ArgumentError", step, err)
		}
	}
	if len(*got) != 0 {
		t.Errorf("rejected step still yielded %v", *got)
	}
}

func TestRangeEachSliceAndCons(t *testing.T) {
	tr := newTestRuntime(t)
	r := &Range{Begin: int64(1), End: int64(5)}

	blk, got := collector()
	if v := tr.send(r, "each_slice", blk, int64(2)); v != nil {
		t.Errorf("each_slice returned %v, want nil", v)
	}
	if s := tr.inspect(NewArray(*got...)); s != "[[1, 2], [3, 4], [5]]" {
		t.Errorf("each_slice(2) yielded %s", s)
	}

	blk, got = collector()
	tr.send(r, "each_cons", blk, int64(2))
	if s := tr.inspect(NewArray(*got...)); s != "[[1, 2], [2, 3], [3, 4], [4, 5]]" {
		t.Errorf("each_cons(2) yielded %s", s)
	}

	blk, got = collector()
	tr.send(r, "each_cons", blk, int64(6))
	if len(*got) != 0 {
		t.Errorf("each_cons wider than the range yielded %v", *got)
	}
}

func TestRangeSliceSizeMustBePositive(t *testing.T) {
	tr := newTestRuntime(t)
	r := &Range{Begin: int64(1), End: int64(5)}
	blk, _ := collector()
	for _, meth := range []string{"each_slice", "each_cons"} {
		for _, n := range []int64{0, -2} {
			_, err := tr.sendErr(r, meth, blk, n)
			if raised(err) != "ArgumentError" {
				t.Errorf("%s(%d): err = %v, want ArgumentError", meth, n, err)
			}
		}
	}
}

func TestRangeIncludeAndMembers(t *testing.T) {
	tr := newTestRuntime(t)
	r := &Range{Begin: int64(1), End: int64(10), Exclusive: true}
	tests := []struct {
		meth string
		arg  Value
		want Value
	}{
		{"include?", int64(1), true},
		{"include?", int64(10), false},
		{"===", int64(5), true},
		{"first", nil, int64(1)},
		{"last", nil, int64(10)},
		{"exclude_end?", nil, true},
	}
	for _, tt := range tests {
		var got Value
		if tt.arg == nil {
			got = tr.send(r, tt.meth, nil)
		} else {
			got = tr.send(r, tt.meth, nil, tt.arg)
		}
		if got != tt.want {
			t.Errorf("%s(%v) = %v, want %v", tt.meth, tt.arg, got, tt.want)
		}
	}
	if s := tr.inspect(r); s != "1...10" {
		t.Errorf("inspect = %s, want 1...10", s)
	}
}

func TestRangeBreakFromBlock(t *testing.T) {
	tr := newTestRuntime(t)
	var seen []Value
	var blk *Block
	blk = NewNativeBlock(func(tc *ThreadContext, self Value, args []Value, _ *Block) Value {
		seen = append(seen, args[0])
		if args[0] == int64(3) {
			panic(&JumpError{Kind: BlockBreak, Tag: blk.escape, Value: "stop"})
		}
		return nil
	}, 1, NormalBlock)
	_, err := tr.do(func(tc *ThreadContext) Value {
		_, j := catchJump(func() Value {
			return tc.callMethod(&Range{Begin: int64(1), End: int64(100)}, "each", nil, blk, SendFunctional, nil)
		}, func(j *JumpError) bool { return j.Kind == BlockBreak && j.Tag == blk.escape })
		if j == nil || j.Value != "stop" {
			t.Errorf("break was not delivered to the call site: %v", j)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != 3 {
		t.Errorf("iteration continued after break: %v", seen)
	}
}
