package compiler_test

import (
	"testing"

	"github.com/chazu/garnet/ast"
	"github.com/chazu/garnet/compiler"
	"github.com/chazu/garnet/scope"
	"github.com/chazu/garnet/vm"
)

func TestInspectorExitFacts(t *testing.T) {
	top := scope.NewLocalScope(nil)
	iter := call(list(fix(1)), "each")
	iter.Iter = &ast.IterNode{Pos: at, Scope: scope.NewBlockScope(top), Body: &ast.ReturnNode{Pos: at, Value: fix(1)}}
	nested := &ast.DefnNode{Pos: at, Name: "g", Scope: scope.NewLocalScope(top),
		Body: &ast.RescueNode{Pos: at, Body: fix(1), Rescue: &ast.RescueBodyNode{Pos: at, Body: fix(2)}}}

	tests := []struct {
		name    string
		node    ast.Node
		returns bool
		nexts   bool
	}{
		{"arithmetic", call(fix(1), "+", fix(2)), true, true},
		{"plain return", &ast.ReturnNode{Pos: at, Value: fix(1)}, true, true},
		{"light loop", &ast.WhileNode{Pos: at, Cond: &ast.FalseNode{Pos: at}, Body: fix(1), EvaluateAtStart: true}, true, true},
		{"block", iter, false, true},
		{"rescue", &ast.RescueNode{Pos: at, Body: fix(1), Rescue: &ast.RescueBodyNode{Pos: at, Body: fix(2)}}, false, true},
		{"ensure", &ast.EnsureNode{Pos: at, Body: fix(1), Ensure: fix(2)}, false, true},
		{"defined?", &ast.DefinedNode{Pos: at, Expr: call(fix(1), "foo")}, false, true},
		{"flagged loop", &ast.WhileNode{Pos: at, Cond: &ast.FalseNode{Pos: at}, Body: fix(1), ContainsNonlocalFlow: true}, false, true},
		{"binding", fcall("binding"), false, true},
		{"zsuper", &ast.ZSuperNode{Pos: at}, false, true},
		{"next", &ast.NextNode{Pos: at, Value: fix(1)}, true, false},
		{"redo", &ast.RedoNode{Pos: at}, true, false},
		{"nested def", nested, true, true},
	}
	for _, tt := range tests {
		i := compiler.Inspect(tt.node)
		if got := i.ReturnsLocally(); got != tt.returns {
			t.Errorf("%s: ReturnsLocally = %v, want %v", tt.name, got, tt.returns)
		}
		if got := i.NextsLocally(); got != tt.nexts {
			t.Errorf("%s: NextsLocally = %v, want %v", tt.name, got, tt.nexts)
		}
	}
}

// exitProgram defines
//
//	def plain(a); return a + 1; end
//	def early; [1, 2].each { |x| return x * 10 }; 0; end
//	def guarded; begin; return 5; ensure; 1; end; end
//
// and returns [plain(1), early, guarded, [1, 2].map { |x| begin; next x * 2; rescue; end }].
func exitProgram() *ast.RootNode {
	return program(func(top *scope.StaticScope) ast.Node {
		ps := scope.NewLocalScope(top)
		plain := &ast.DefnNode{Pos: at, Name: "plain", Scope: ps,
			Args: ast.NewArgs(ps, at, []string{"a"}, nil, nil, "", ""),
			Body: &ast.ReturnNode{Pos: at, Value: call(ast.Declare(ps, at, "a"), "+", fix(1))}}

		es := scope.NewLocalScope(top)
		eb := scope.NewBlockScope(es)
		param := ast.Assign(eb, at, "x", nil)
		each := call(list(fix(1), fix(2)), "each")
		each.Iter = &ast.IterNode{Pos: at, Scope: eb, Var: param,
			Body: &ast.ReturnNode{Pos: at, Value: call(ast.Declare(eb, at, "x"), "*", fix(10))}}
		early := &ast.DefnNode{Pos: at, Name: "early", Scope: es, Body: block(each, fix(0))}

		gs := scope.NewLocalScope(top)
		guarded := &ast.DefnNode{Pos: at, Name: "guarded", Scope: gs,
			Body: &ast.EnsureNode{Pos: at, Body: &ast.ReturnNode{Pos: at, Value: fix(5)}, Ensure: fix(1)}}

		mb := scope.NewBlockScope(top)
		mparam := ast.Assign(mb, at, "x", nil)
		doubled := &ast.RescueNode{Pos: at,
			Body:   &ast.NextNode{Pos: at, Value: call(ast.Declare(mb, at, "x"), "*", fix(2))},
			Rescue: &ast.RescueBodyNode{Pos: at}}
		mapped := call(list(fix(1), fix(2)), "map")
		mapped.Iter = &ast.IterNode{Pos: at, Scope: mb, Var: mparam, Body: doubled}

		return block(plain, early, guarded, list(fcall("plain", fix(1)), fcall("early"), fcall("guarded"), mapped))
	})
}

func TestLocalExitsFollowInspection(t *testing.T) {
	h := newHarness(t, true)
	body, err := h.rt.Compile(exitProgram(), "test.rb")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := map[string]bool{
		"plain":           true,
		"early":           false,
		"guarded":         false,
		"block in early":  true,
		"block in <main>": false,
	}
	seen := 0
	body.Walk(func(b *vm.CompiledBody) {
		if b.Kind != vm.MethodBody && b.Kind != vm.ClosureBody {
			return
		}
		if w, ok := want[b.Name]; ok {
			seen++
			if b.LocalExits != w {
				t.Errorf("%s %s: LocalExits = %v, want %v", b.Kind, b.Name, b.LocalExits, w)
			}
		}
	})
	if seen != len(want) {
		t.Errorf("found %d of %d bodies", seen, len(want))
	}
	if got := h.inspect(h.run(exitProgram())); got != "[2, 10, 5, [2, 4]]" {
		t.Errorf("results = %s, want [2, 10, 5, [2, 4]]", got)
	}
}
