package scope

import "testing"

type testModule string

func (m testModule) ModuleName() string { return string(m) }

func TestAddVariableIdempotent(t *testing.T) {
	s := NewLocalScope(nil)
	a := s.AddVariable("a")
	if s.NumberOfVariables() != 1 {
		t.Fatalf("NumberOfVariables = %d, want 1", s.NumberOfVariables())
	}
	again := s.AddVariable("a")
	if again != a {
		t.Errorf("AddVariable(a) twice = %d, %d; want equal", a, again)
	}
	if s.NumberOfVariables() != 1 {
		t.Errorf("NumberOfVariables after repeat = %d, want 1", s.NumberOfVariables())
	}
	b := s.AddVariable("b")
	if b != 1 {
		t.Errorf("AddVariable(b) = %d, want 1", b)
	}
	if s.VariableName(0) != "a" || s.VariableName(1) != "b" {
		t.Errorf("names = %v, want [a b]", s.VariableNames())
	}
}

func TestAddVariableKeepsIndicesStable(t *testing.T) {
	s := NewLocalScope(nil)
	names := s.VariableNames()
	for _, n := range []string{"x", "y", "z"} {
		s.AddVariable(n)
	}
	if len(names) != 0 {
		t.Errorf("earlier snapshot changed: %v", names)
	}
	if got := s.Exists("y"); got != 1 {
		t.Errorf("Exists(y) = %d, want 1", got)
	}
}

func TestIsDefinedBlockSearchesOutward(t *testing.T) {
	top := NewLocalScope(nil)
	top.AddVariable("a")
	blk := NewBlockScope(top)
	blk.AddVariable("b")
	inner := NewBlockScope(blk)

	loc, ok := inner.IsDefined("a")
	if !ok {
		t.Fatal("a not visible from inner block")
	}
	if loc.Depth != 2 || loc.Index != 0 {
		t.Errorf("IsDefined(a) = %v, want 0@2", loc)
	}
	if loc.Packed() != 2<<16 {
		t.Errorf("Packed = %d, want %d", loc.Packed(), 2<<16)
	}
	if _, ok := inner.IsDefined("missing"); ok {
		t.Error("missing should not be defined")
	}
}

func TestIsDefinedLocalDoesNotSearchOutward(t *testing.T) {
	top := NewLocalScope(nil)
	top.AddVariable("a")
	method := NewLocalScope(top)
	if _, ok := method.IsDefined("a"); ok {
		t.Error("method scope must not see enclosing locals")
	}
}

func TestAssignLocation(t *testing.T) {
	top := NewLocalScope(nil)
	top.AddVariable("a")
	blk := NewBlockScope(top)

	loc, b := blk.AssignLocation("a")
	if loc.Depth != 1 || b != BlockLocal {
		t.Errorf("assign a = %v %v, want depth 1 BlockLocal", loc, b)
	}
	if !top.IsCaptured(0) {
		t.Error("outer slot a should be captured")
	}

	loc, b = blk.AssignLocation("fresh")
	if loc.Depth != 0 || b != BlockLocal {
		t.Errorf("assign fresh = %v %v, want depth 0 BlockLocal", loc, b)
	}
	if blk.Exists("fresh") != 0 {
		t.Error("fresh should be added to the block scope")
	}

	loc, b = top.AssignLocation("c")
	if loc.Depth != 0 || b != MethodLocal {
		t.Errorf("assign c at top = %v %v, want MethodLocal", loc, b)
	}
}

func TestDeclareLocation(t *testing.T) {
	top := NewLocalScope(nil)
	top.AddVariable("a")
	blk := NewBlockScope(top)

	if _, b := top.DeclareLocation("a"); b != MethodLocal {
		t.Errorf("declare a at top = %v, want MethodLocal", b)
	}
	if loc, b := blk.DeclareLocation("a"); b != BlockLocal || loc.Depth != 1 {
		t.Errorf("declare a in block = %v %v", loc, b)
	}
	if _, b := blk.DeclareLocation("puts"); b != Unbound {
		t.Errorf("declare puts = %v, want Unbound", b)
	}
}

func TestArity(t *testing.T) {
	s := NewLocalScope(nil)
	s.SetArities(2, 0, NoRest)
	if a := s.Arity(); a != FixedArity(2) || !a.Accepts(2) || a.Accepts(3) {
		t.Errorf("fixed arity = %v", a)
	}
	s.SetArities(1, 2, NoRest)
	if a := s.Arity(); a != RequiredArity(1) || a.Value() != -2 {
		t.Errorf("optional arity = %v (%d)", a, a.Value())
	}
	s.SetArities(0, 0, 3)
	if a := s.Arity(); a != OptionalArity() || !a.Accepts(10) {
		t.Errorf("rest arity = %v", a)
	}
}

func TestDetermineModuleInheritsAndMemoizes(t *testing.T) {
	top := NewLocalScope(nil)
	top.SetModule(testModule("Object"))
	cls := NewLocalScope(top)
	cls.SetModule(testModule("Foo"))
	method := NewLocalScope(cls)
	blk := NewBlockScope(method)

	if blk.Module() != nil {
		t.Fatal("block cref should be unresolved before DetermineModule")
	}
	if m := blk.DetermineModule(); m != testModule("Foo") {
		t.Errorf("DetermineModule = %v, want Foo", m)
	}
	if blk.PreviousCRefScope() != top {
		t.Errorf("block previous cref scope should be the top scope")
	}
	if m := blk.DetermineModule(); m != testModule("Foo") {
		t.Errorf("second DetermineModule = %v, want Foo", m)
	}
	if cls.PreviousCRefScope() != top {
		t.Error("SetModule should link the previous cref scope")
	}
}

func TestDetermineModulePanicsWithoutRoot(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unresolved top scope")
		}
	}()
	NewBlockScope(NewLocalScope(nil)).DetermineModule()
}

func TestSnapshotRestore(t *testing.T) {
	top := NewLocalScope(nil)
	top.AddVariable("x")
	top.AddVariable("rest")
	top.SetArities(1, 0, 1)
	top.Capture(0)
	r := Restore(top.Snapshot(), nil)
	if r.NumberOfVariables() != 2 || !r.IsCaptured(0) || r.RestArg() != 1 {
		t.Errorf("restored = %v captured=%v rest=%d", r, r.IsCaptured(0), r.RestArg())
	}
}
