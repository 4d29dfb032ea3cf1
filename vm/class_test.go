package vm

import (
	"testing"

	"github.com/chazu/garnet/scope"
)

func constant(v Value) *Block {
	return NewNativeBlock(func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return v
	}, scope.FixedArity(0), NormalBlock)
}

func TestDefineMethodAndRedefine(t *testing.T) {
	tr := newTestRuntime(t)
	k := tr.send(tr.Class, "new", nil, tr.Object)
	obj := tr.send(k, "new", nil)

	tr.send(k, "define_method", constant(int64(1)), Symbol("f"))
	if v := tr.send(obj, "f", nil); v != int64(1) {
		t.Errorf("f = %v, want 1", v)
	}
	tr.send(k, "define_method", constant(int64(2)), Symbol("f"))
	if v := tr.send(obj, "f", nil); v != int64(2) {
		t.Errorf("f after redefinition = %v, want 2", v)
	}

	tr.send(k, "alias_method", nil, Symbol("g"), Symbol("f"))
	tr.send(k, "define_method", constant(int64(3)), Symbol("f"))
	if v := tr.send(obj, "g", nil); v != int64(2) {
		t.Errorf("alias g = %v, want the old body's 2", v)
	}

	tr.send(k, "undef_method", nil, Symbol("g"))
	if _, err := tr.sendErr(obj, "g", nil); raised(err) != "NoMethodError" {
		t.Errorf("call after undef: err = %v, want NoMethodError", err)
	}
	if _, err := tr.sendErr(k, "remove_method", nil, Symbol("missing")); raised(err) != "NameError" {
		t.Errorf("remove_method(:missing): err = %v, want NameError", err)
	}
}

func TestIncludeModule(t *testing.T) {
	tr := newTestRuntime(t)
	mod := tr.send(tr.Module, "new", nil)
	tr.send(mod, "define_method", constant(NewString("mixed")), Symbol("hello"))
	k := tr.send(tr.Class, "new", nil, tr.Object)
	tr.send(k, "include", nil, mod)

	if got := str(tr, tr.send(tr.send(k, "new", nil), "hello", nil)); got != "mixed" {
		t.Errorf("hello = %q", got)
	}
	anc := tr.send(k, "ancestors", nil).(*Array).Elems
	if len(anc) < 3 || anc[0] != k || anc[1] != mod || anc[2] != tr.Object {
		t.Errorf("ancestors start %v", anc)
	}
	if tr.send(k, "include?", nil, mod) != true {
		t.Error("include? should be true")
	}
	if tr.send(k, "<", nil, tr.Object) != true {
		t.Error("the class should be < Object")
	}
	if _, err := tr.sendErr(k, "include", nil, tr.String); raised(err) != "TypeError" {
		t.Errorf("including a class: err = %v, want TypeError", err)
	}
}

func TestAttrAccessorAndConstants(t *testing.T) {
	tr := newTestRuntime(t)
	k := tr.send(tr.Class, "new", nil, tr.Object)
	tr.send(k, "attr_accessor", nil, Symbol("size"))
	obj := tr.send(k, "new", nil)
	if v := tr.send(obj, "size", nil); v != nil {
		t.Errorf("unset reader = %v, want nil", v)
	}
	tr.send(obj, "size=", nil, int64(5))
	if v := tr.send(obj, "size", nil); v != int64(5) {
		t.Errorf("size = %v, want 5", v)
	}

	tr.send(k, "const_set", nil, Symbol("LIMIT"), int64(10))
	if v := tr.send(k, "const_get", nil, Symbol("LIMIT")); v != int64(10) {
		t.Errorf("const_get = %v, want 10", v)
	}
	if tr.send(k, "const_defined?", nil, Symbol("LIMIT")) != true {
		t.Error("const_defined? should be true")
	}
	if _, err := tr.sendErr(k, "const_get", nil, Symbol("NOPE")); raised(err) != "NameError" {
		t.Errorf("const_get(:NOPE): err = %v, want NameError", err)
	}
}
