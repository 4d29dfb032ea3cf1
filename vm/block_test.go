package vm

import (
	"strings"
	"testing"

	"github.com/chazu/garnet/scope"
)

// ---------------------------------------------------------------------------
// Proc
// ---------------------------------------------------------------------------

func TestProcNewRequiresBlock(t *testing.T) {
	tr := newTestRuntime(t)
	if _, err := tr.sendErr(tr.Proc, "new", nil); raised(err) != "ArgumentError" {
		t.Errorf("Proc.new without a block: err = %v, want ArgumentError", err)
	}
	if _, err := tr.sendErr(tr.Main(), "lambda", nil); raised(err) != "ArgumentError" {
		t.Errorf("lambda without a block: err = %v, want ArgumentError", err)
	}
}

func TestProcFromBlock(t *testing.T) {
	tr := newTestRuntime(t)
	add := NewNativeBlock(func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return args[0].(int64) + args[1].(int64)
	}, scope.FixedArity(2), NormalBlock)

	l := tr.send(tr.Main(), "lambda", add)
	if v := tr.send(l, "call", nil, int64(1), int64(2)); v != int64(3) {
		t.Errorf("call = %v, want 3", v)
	}
	if v := tr.send(l, "[]", nil, int64(4), int64(5)); v != int64(9) {
		t.Errorf("[] = %v, want 9", v)
	}
	if v := tr.send(l, "arity", nil); v != int64(2) {
		t.Errorf("arity = %v, want 2", v)
	}
	if tr.send(l, "lambda?", nil) != true {
		t.Error("lambda? should be true")
	}
	if tr.send(l, "to_proc", nil) != l {
		t.Error("to_proc should return the receiver")
	}
	if again := tr.send(tr.Main(), "lambda", add); again != l {
		t.Error("reifying the same block twice should give the same proc")
	}

	p := tr.send(tr.Proc, "new", NewNativeBlock(func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return nil
	}, scope.OptionalArity(), NormalBlock))
	if tr.send(p, "lambda?", nil) != false {
		t.Error("Proc.new should not make a lambda")
	}
	if got := tr.inspect(p); !strings.HasPrefix(got, "#<Proc:0x") {
		t.Errorf("inspect = %s", got)
	}
}

func TestEscapeFlagSharedByProcs(t *testing.T) {
	nop := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value { return nil }

	b := NewNativeBlock(nop, scope.OptionalArity(), NormalBlock)
	p := b.ToProc(ProcBlock)
	if b.IsEscaped() || p.Block.IsEscaped() {
		t.Fatal("a fresh block should not be escaped")
	}
	b.Escape()
	if !p.Block.IsEscaped() {
		t.Error("escaping the block should escape its proc")
	}
	b.Escape()
	if !b.IsEscaped() || b.ToProc(ProcBlock) != p {
		t.Error("escaping twice should leave the block escaped with the same proc")
	}

	c := NewNativeBlock(nop, scope.OptionalArity(), NormalBlock)
	c.ToProc(LambdaBlock).Block.Escape()
	if !c.IsEscaped() {
		t.Error("escaping a proc copy should escape the original block")
	}
	if NewNativeBlock(nop, scope.OptionalArity(), NormalBlock).IsEscaped() {
		t.Error("escape flags leak between unrelated blocks")
	}

	if NullBlock.IsEscaped() {
		t.Error("the null block should never report escaped")
	}
	defer func() {
		if r := recover(); r != ErrNullBlock {
			t.Errorf("Escape on the null block panicked with %v, want ErrNullBlock", r)
		}
	}()
	NullBlock.Escape()
}

// ---------------------------------------------------------------------------
// Symbol#to_proc
// ---------------------------------------------------------------------------

func TestSymbolToProc(t *testing.T) {
	tr := newTestRuntime(t)
	p := tr.send(Symbol("upcase"), "to_proc", nil).(*Proc)
	if got := str(tr, tr.send(p, "call", nil, NewString("ab"))); got != "AB" {
		t.Errorf(":upcase.to_proc.call = %q", got)
	}
	if _, err := tr.sendErr(p, "call", nil); raised(err) != "ArgumentError" {
		t.Errorf("call without a receiver: err = %v, want ArgumentError", err)
	}

	words := NewArray(NewString("a"), NewString("b"))
	if got := tr.inspect(tr.send(words, "map", p.Block)); got != `["A", "B"]` {
		t.Errorf("map(&:upcase) = %s", got)
	}
}

// ---------------------------------------------------------------------------
// Method and UnboundMethod
// ---------------------------------------------------------------------------

func TestMethodObject(t *testing.T) {
	tr := newTestRuntime(t)
	recv := NewString("hello")
	m := tr.send(recv, "method", nil, Symbol("include?"))

	if v := tr.send(m, "call", nil, NewString("ell")); v != true {
		t.Errorf("call = %v, want true", v)
	}
	if v := tr.send(m, "arity", nil); v != int64(1) {
		t.Errorf("arity = %v, want 1", v)
	}
	if got := str(tr, tr.send(m, "name", nil)); got != "include?" {
		t.Errorf("name = %q", got)
	}
	if tr.send(m, "receiver", nil) != recv {
		t.Error("receiver should be the original object")
	}
	if got := tr.inspect(m); got != "#<Method: String#include?>" {
		t.Errorf("inspect = %s", got)
	}

	asProc := tr.send(m, "to_proc", nil)
	if tr.send(asProc, "lambda?", nil) != true {
		t.Error("Method#to_proc should make a lambda")
	}
	if v := tr.send(asProc, "call", nil, NewString("xyz")); v != false {
		t.Errorf("to_proc.call = %v, want false", v)
	}

	if _, err := tr.sendErr(recv, "method", nil, Symbol("nope")); raised(err) != "NameError" {
		t.Errorf("method(:nope): err = %v, want NameError", err)
	}
}

func TestUnboundMethod(t *testing.T) {
	tr := newTestRuntime(t)
	u := tr.send(tr.String, "instance_method", nil, Symbol("upcase"))
	if got := tr.inspect(u); got != "#<UnboundMethod: String#upcase>" {
		t.Errorf("inspect = %s", got)
	}
	if _, err := tr.sendErr(u, "call", nil); raised(err) != "TypeError" {
		t.Errorf("calling an unbound method: err = %v, want TypeError", err)
	}
	if _, err := tr.sendErr(u, "to_proc", nil); raised(err) != "TypeError" {
		t.Errorf("to_proc on an unbound method: err = %v, want TypeError", err)
	}
	if _, err := tr.sendErr(u, "bind", nil, int64(1)); raised(err) != "TypeError" {
		t.Errorf("bind to a Fixnum: err = %v, want TypeError", err)
	}

	bound := tr.send(u, "bind", nil, NewString("abc"))
	if got := str(tr, tr.send(bound, "call", nil)); got != "ABC" {
		t.Errorf("bound call = %q", got)
	}

	m := tr.send(NewString("q"), "method", nil, Symbol("upcase"))
	if got := tr.inspect(tr.send(m, "unbind", nil)); got != "#<UnboundMethod: String#upcase>" {
		t.Errorf("unbind inspect = %s", got)
	}
}
