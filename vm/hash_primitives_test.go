package vm

import (
	"testing"

	"github.com/chazu/garnet/scope"
)

// ---------------------------------------------------------------------------
// Hash primitives
// ---------------------------------------------------------------------------

func TestHashStoreAndFetch(t *testing.T) {
	tr := newTestRuntime(t)
	h := NewHash()
	tr.send(h, "[]=", nil, NewString("a"), int64(1))
	tr.send(h, "store", nil, Symbol("b"), int64(2))

	if v := tr.send(h, "[]", nil, NewString("a")); v != int64(1) {
		t.Errorf(`h["a"] = %v, want 1`, v)
	}
	if v := tr.send(h, "[]", nil, Symbol("missing")); v != nil {
		t.Errorf("h[:missing] = %v, want nil", v)
	}
	if v := tr.send(h, "fetch", nil, Symbol("missing"), int64(0)); v != int64(0) {
		t.Errorf("fetch default = %v, want 0", v)
	}
	if _, err := tr.sendErr(h, "fetch", nil, Symbol("missing")); raised(err) != "IndexError" {
		t.Errorf("fetch missing key: err = %v, want IndexError", err)
	}
	if got := tr.inspect(h); got != `{"a"=>1, :b=>2}` {
		t.Errorf("inspect = %s", got)
	}
}

func TestHashStringKeysAreCopied(t *testing.T) {
	tr := newTestRuntime(t)
	h := NewHash()
	key := NewString("k")
	tr.send(h, "[]=", nil, key, int64(1))
	key.S = "changed"
	if v := tr.send(h, "[]", nil, NewString("k")); v != int64(1) {
		t.Errorf("lookup after mutating the original key = %v, want 1", v)
	}
	stored := h.Keys()[0].(*String)
	if !stored.frozen {
		t.Error("stored string key should be frozen")
	}
}

func TestHashDefaults(t *testing.T) {
	tr := newTestRuntime(t)
	h := tr.send(tr.Hash, "new", nil, int64(7))
	if v := tr.send(h, "[]", nil, Symbol("x")); v != int64(7) {
		t.Errorf("default value = %v, want 7", v)
	}

	calls := 0
	blk := NewNativeBlock(func(tc *ThreadContext, self Value, args []Value, _ *Block) Value {
		calls++
		h := args[0].(*Hash)
		h.Set(tc, args[1], int64(42))
		return int64(42)
	}, 2, NormalBlock)
	withProc := tr.send(tr.Hash, "new", blk)
	if v := tr.send(withProc, "[]", nil, Symbol("y")); v != int64(42) {
		t.Errorf("default proc value = %v, want 42", v)
	}
	tr.send(withProc, "[]", nil, Symbol("y"))
	if calls != 1 {
		t.Errorf("default proc ran %d times, want 1", calls)
	}
	if v := tr.send(withProc, "fetch", nil, Symbol("z"), nil); v != nil {
		t.Errorf("fetch should ignore the default proc, got %v", v)
	}
}

func TestHashEachYieldsPairs(t *testing.T) {
	tr := newTestRuntime(t)
	h := tr.tc().NewHashFrom(Symbol("a"), int64(1), Symbol("b"), int64(2))

	var each [][]Value
	tr.send(h, "each", NewNativeBlock(func(tc *ThreadContext, self Value, args []Value, _ *Block) Value {
		each = append(each, args)
		return nil
	}, scope.OptionalArity(), NormalBlock))
	if len(each) != 2 || len(each[0]) != 1 {
		t.Fatalf("each yielded %v, want one [k, v] value per pair", each)
	}
	if got := tr.inspect(each[0][0]); got != "[:a, 1]" {
		t.Errorf("first pair = %s", got)
	}

	var pairs [][]Value
	tr.send(h, "each_pair", NewNativeBlock(func(tc *ThreadContext, self Value, args []Value, _ *Block) Value {
		pairs = append(pairs, args)
		return nil
	}, scope.OptionalArity(), NormalBlock))
	if len(pairs) != 2 || len(pairs[1]) != 2 || pairs[1][0] != Symbol("b") || pairs[1][1] != int64(2) {
		t.Errorf("each_pair yielded %v, want key and value separately", pairs)
	}
}

func TestHashDeleteAndFilters(t *testing.T) {
	tr := newTestRuntime(t)
	build := func() *Hash {
		return tr.tc().NewHashFrom(int64(1), NewString("one"), int64(2), NewString("two"), int64(3), NewString("three"))
	}
	keyIsOdd := NewNativeBlock(func(tc *ThreadContext, self Value, args []Value, _ *Block) Value {
		return args[0].(int64)%2 == 1
	}, 2, NormalBlock)

	h := build()
	if v := tr.send(h, "delete", nil, int64(2)).(*String).S; v != "two" {
		t.Errorf("delete(2) = %s", v)
	}
	if v := tr.send(h, "delete", nil, int64(9)); v != nil {
		t.Errorf("delete of a missing key = %v, want nil", v)
	}

	if got := tr.inspect(tr.send(build(), "reject", keyIsOdd)); got != `{2=>"two"}` {
		t.Errorf("reject = %s", got)
	}
	if got := tr.inspect(tr.send(build(), "select", keyIsOdd)); got != `[[1, "one"], [3, "three"]]` {
		t.Errorf("select = %s", got)
	}

	h = build()
	tr.send(h, "delete_if", keyIsOdd)
	if got := tr.inspect(h); got != `{2=>"two"}` {
		t.Errorf("after delete_if = %s", got)
	}
	if v := tr.send(h, "reject!", keyIsOdd); v != nil {
		t.Errorf("reject! with nothing removed = %v, want nil", v)
	}
}

func TestHashMergeInvertShift(t *testing.T) {
	tr := newTestRuntime(t)
	tc := tr.tc()
	a := tc.NewHashFrom(Symbol("x"), int64(1), Symbol("y"), int64(2))
	b := tc.NewHashFrom(Symbol("y"), int64(20), Symbol("z"), int64(30))

	merged := tr.send(a, "merge", nil, b)
	if got := tr.inspect(merged); got != "{:x=>1, :y=>20, :z=>30}" {
		t.Errorf("merge = %s", got)
	}
	if got := tr.inspect(a); got != "{:x=>1, :y=>2}" {
		t.Errorf("merge changed the receiver: %s", got)
	}

	sum := NewNativeBlock(func(tc *ThreadContext, self Value, args []Value, _ *Block) Value {
		return args[1].(int64) + args[2].(int64)
	}, 3, NormalBlock)
	tr.send(a, "update", sum, b)
	if got := tr.inspect(a); got != "{:x=>1, :y=>22, :z=>30}" {
		t.Errorf("update with block = %s", got)
	}

	if got := tr.inspect(tr.send(b, "invert", nil)); got != "{20=>:y, 30=>:z}" {
		t.Errorf("invert = %s", got)
	}
	if got := tr.inspect(tr.send(b, "shift", nil)); got != "[:y, 20]" {
		t.Errorf("shift = %s", got)
	}
	if got := tr.inspect(tr.send(b, "keys", nil)); got != "[:z]" {
		t.Errorf("keys after shift = %s", got)
	}
}

func TestHashBracketConstructor(t *testing.T) {
	tr := newTestRuntime(t)
	h := tr.send(tr.Hash, "[]", nil, Symbol("a"), int64(1), Symbol("b"), int64(2))
	if got := tr.inspect(h); got != "{:a=>1, :b=>2}" {
		t.Errorf("Hash[] = %s", got)
	}
	if _, err := tr.sendErr(tr.Hash, "[]", nil, Symbol("a")); raised(err) != "ArgumentError" {
		t.Errorf("Hash[] with odd arguments: err = %v, want ArgumentError", err)
	}
}

func TestHashEquality(t *testing.T) {
	tr := newTestRuntime(t)
	tc := tr.tc()
	a := tc.NewHashFrom(Symbol("a"), int64(1), Symbol("b"), int64(2))
	b := tc.NewHashFrom(Symbol("b"), int64(2), Symbol("a"), int64(1))
	if tr.send(a, "==", nil, b) != true {
		t.Error("hashes with the same pairs in another order should be ==")
	}
	b.Set(tc, Symbol("a"), int64(3))
	if tr.send(a, "==", nil, b) != false {
		t.Error("hashes with different values should not be ==")
	}
}
