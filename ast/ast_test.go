package ast

import (
	"testing"

	"github.com/chazu/garnet/scope"
)

func TestNodeTypeNamesComplete(t *testing.T) {
	for _, nt := range NodeTypes() {
		if nodeTypeNames[nt] == "" {
			t.Errorf("node type %d has no name", nt)
		}
	}
	if InvalidNode.String() != "Invalid" {
		t.Errorf("InvalidNode.String() = %q", InvalidNode.String())
	}
}

func TestAssignAndDeclareNodeKinds(t *testing.T) {
	top := scope.NewLocalScope(nil)
	blk := scope.NewBlockScope(top)

	asg := Assign(top, Pos{Line: 1}, "a", &FixnumNode{Value: 1})
	if _, ok := asg.(*LocalAsgnNode); !ok {
		t.Fatalf("Assign at top = %T, want *LocalAsgnNode", asg)
	}
	inner := Assign(blk, Pos{Line: 2}, "a", &FixnumNode{Value: 2})
	d, ok := inner.(*DAsgnNode)
	if !ok || d.Depth != 1 || d.Index != 0 {
		t.Fatalf("Assign in block = %#v, want DAsgn depth 1", inner)
	}
	fresh := Assign(blk, Pos{Line: 3}, "b", nil)
	if d, ok := fresh.(*DAsgnNode); !ok || d.Depth != 0 {
		t.Errorf("Assign new var in block = %#v, want DAsgn depth 0", fresh)
	}

	if _, ok := Declare(top, Pos{}, "a").(*LocalVarNode); !ok {
		t.Error("Declare(a) at top should be LocalVar")
	}
	if dv, ok := Declare(blk, Pos{}, "a").(*DVarNode); !ok || dv.Depth != 1 {
		t.Error("Declare(a) in block should be DVar depth 1")
	}
	if _, ok := Declare(top, Pos{}, "b").(*VCallNode); !ok {
		t.Error("block-local b must not be visible at top")
	}
}

func TestChildNodesKeepNilSlots(t *testing.T) {
	n := &IfNode{Cond: &TrueNode{}, Then: &FixnumNode{Value: 1}}
	kids := n.ChildNodes()
	if len(kids) != 3 || kids[2] != nil {
		t.Errorf("IfNode children = %v, want 3 with nil else", kids)
	}
	m := &MultipleAsgnNode{Args: &StarNode{}}
	if kids := m.ChildNodes(); kids[0] != nil {
		t.Errorf("nil head should be a nil child, got %T", kids[0])
	}
}

func TestLocalVariables(t *testing.T) {
	top := scope.NewLocalScope(nil)
	method := scope.NewLocalScope(top)
	body := &BlockNode{Statements: []Node{
		Assign(top, Pos{}, "x", &FixnumNode{Value: 1}),
		&DefnNode{Name: "m", Scope: method, Body: Assign(method, Pos{}, "hidden", &NilNode{})},
		Declare(top, Pos{}, "x"),
		Assign(top, Pos{}, "y", Declare(top, Pos{}, "x")),
	}}
	got := LocalVariables(body)
	if len(got) != 2 || got[0] != "x" || got[1] != "y" {
		t.Errorf("LocalVariables = %v, want [x y]", got)
	}
}

func TestFingerprintIgnoresPositions(t *testing.T) {
	a := &CallNode{Pos: Pos{Line: 1}, Receiver: &FixnumNode{Value: 1}, Name: "+",
		Args: &ArrayNode{Elements: []Node{&FixnumNode{Value: 2}}}}
	b := &CallNode{Pos: Pos{Line: 9}, Receiver: &FixnumNode{Value: 1}, Name: "+",
		Args: &ArrayNode{Elements: []Node{&FixnumNode{Value: 2}}}}
	c := &CallNode{Receiver: &FixnumNode{Value: 1}, Name: "-",
		Args: &ArrayNode{Elements: []Node{&FixnumNode{Value: 2}}}}
	if Fingerprint(a) != Fingerprint(b) {
		t.Error("fingerprints differ for trees differing only in position")
	}
	if Fingerprint(a) == Fingerprint(c) {
		t.Error("fingerprints equal for different method names")
	}
}

func TestSerializePositions(t *testing.T) {
	tree := func(file string, line int) Node {
		return &CallNode{Pos: Pos{File: file, Line: line}, Receiver: &FixnumNode{Pos: Pos{File: file, Line: line}, Value: 1},
			Name: "+", Args: &ArrayNode{Elements: []Node{&FixnumNode{Value: 2}}}}
	}
	a := string(SerializePositions(tree("a.rb", 1)))
	if a != string(SerializePositions(tree("a.rb", 1))) {
		t.Error("positions of identical trees differ")
	}
	if a == string(SerializePositions(tree("a.rb", 2))) {
		t.Error("positions equal for different lines")
	}
	if a == string(SerializePositions(tree("b.rb", 1))) {
		t.Error("positions equal for different files")
	}
}

func TestSymbolInternedOnce(t *testing.T) {
	n := &SymbolNode{Name: "foo"}
	calls := 0
	intern := func(s string) any { calls++; return s + "!" }
	first := n.Interned(intern)
	second := n.Interned(intern)
	if first != "foo!" || second != "foo!" || calls != 1 {
		t.Errorf("Interned = %v, %v after %d calls", first, second, calls)
	}
}

func TestNewArgs(t *testing.T) {
	s := scope.NewLocalScope(nil)
	args := NewArgs(s, Pos{}, []string{"a"}, []string{"b"}, []Node{&FixnumNode{Value: 2}}, "rest", "blk")
	if args.RequiredCount() != 1 || args.OptionalCount() != 1 {
		t.Fatalf("counts = %d/%d", args.RequiredCount(), args.OptionalCount())
	}
	if args.Optional[0].Index != 1 || args.Rest != 2 || args.Block.Index != 3 {
		t.Errorf("slots: opt=%d rest=%d block=%d", args.Optional[0].Index, args.Rest, args.Block.Index)
	}
	if s.Arity() != scope.OptionalArity() {
		t.Errorf("arity = %v, want optional", s.Arity())
	}
}
