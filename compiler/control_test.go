package compiler_test

import (
	"strings"
	"testing"

	"github.com/chazu/garnet/ast"
	"github.com/chazu/garnet/scope"
)

// ---------------------------------------------------------------------------
// Break, next and escaped blocks
// ---------------------------------------------------------------------------

func TestBreakFromEscapedProc(t *testing.T) {
	h := newHarness(t, true)
	_, err := h.rt.Execute(program(func(top *scope.StaticScope) ast.Node {
		mk := call(&ast.ConstNode{Pos: at, Name: "Proc"}, "new")
		mk.Iter = &ast.IterNode{Pos: at, Scope: scope.NewBlockScope(top), Body: &ast.BreakNode{Pos: at, Value: fix(7)}}
		pr := ast.Assign(top, at, "pr", mk)
		return block(pr, call(ast.Declare(top, at, "pr"), "call"))
	}), "test.rb")
	if err == nil || !strings.Contains(err.Error(), "LocalJumpError: break from proc-closure") {
		t.Errorf("err = %v, want LocalJumpError for break from proc-closure", err)
	}
}

func TestBreakFromLambdaReturnsValue(t *testing.T) {
	got := eval(t, func(top *scope.StaticScope) ast.Node {
		l := fcall("lambda")
		l.Iter = &ast.IterNode{Pos: at, Scope: scope.NewBlockScope(top), Body: &ast.BreakNode{Pos: at, Value: fix(7)}}
		return call(l, "call")
	})
	if got != "7" {
		t.Errorf("lambda { break 7 }.call = %s, want 7", got)
	}
}

func TestLambdaNextIsNil(t *testing.T) {
	tests := []struct {
		name string
		body func(blk *scope.StaticScope) ast.Node
	}{
		{"next 5", func(*scope.StaticScope) ast.Node {
			return &ast.NextNode{Pos: at, Value: fix(5)}
		}},
		{"next 5 inside rescue", func(*scope.StaticScope) ast.Node {
			return &ast.RescueNode{Pos: at,
				Body:   &ast.NextNode{Pos: at, Value: fix(5)},
				Rescue: &ast.RescueBodyNode{Pos: at, Body: fix(9)}}
		}},
	}
	for _, tt := range tests {
		got := eval(t, func(top *scope.StaticScope) ast.Node {
			blk := scope.NewBlockScope(top)
			l := fcall("lambda")
			l.Iter = &ast.IterNode{Pos: at, Scope: blk, Body: tt.body(blk)}
			return call(l, "call")
		})
		if got != "nil" {
			t.Errorf("lambda { %s }.call = %s, want nil", tt.name, got)
		}
	}
}

// ---------------------------------------------------------------------------
// Ensure on non-exceptional exits
// ---------------------------------------------------------------------------

// ensureLoopProgram builds
//
//	log = []
//	r = while true; begin; log << 1; break 7; ensure; log << 2; end; end
//	[r, log]
func ensureLoopProgram(flagged bool) *ast.RootNode {
	return program(func(top *scope.StaticScope) ast.Node {
		log := ast.Assign(top, at, "log", list())
		push := func(v int64) ast.Node { return call(ast.Declare(top, at, "log"), "<<", fix(v)) }
		guarded := &ast.EnsureNode{Pos: at,
			Body:   block(push(1), &ast.BreakNode{Pos: at, Value: fix(7)}),
			Ensure: push(2)}
		loop := &ast.WhileNode{Pos: at, Cond: &ast.TrueNode{Pos: at}, Body: guarded,
			EvaluateAtStart: true, ContainsNonlocalFlow: flagged}
		r := ast.Assign(top, at, "r", loop)
		return block(log, r, list(ast.Declare(top, at, "r"), ast.Declare(top, at, "log")))
	})
}

func TestEnsureRunsOnBreak(t *testing.T) {
	for _, flagged := range []bool{false, true} {
		h := newHarness(t, true)
		if got := h.inspect(h.run(ensureLoopProgram(flagged))); got != "[7, [1, 2]]" {
			t.Errorf("break through ensure (flagged=%v) = %s, want [7, [1, 2]]", flagged, got)
		}
	}
}

func TestEnsureRunsOnNext(t *testing.T) {
	for _, flagged := range []bool{false, true} {
		got := eval(t, func(top *scope.StaticScope) ast.Node {
			log := ast.Assign(top, at, "log", list())
			i := ast.Assign(top, at, "i", fix(0))
			bump := ast.Assign(top, at, "i", call(ast.Declare(top, at, "i"), "+", fix(1)))
			guarded := &ast.EnsureNode{Pos: at,
				Body:   &ast.NextNode{Pos: at},
				Ensure: call(ast.Declare(top, at, "log"), "<<", ast.Declare(top, at, "i"))}
			loop := &ast.WhileNode{Pos: at, Cond: call(ast.Declare(top, at, "i"), "<", fix(2)),
				Body: block(bump, guarded), EvaluateAtStart: true, ContainsNonlocalFlow: flagged}
			return block(log, i, loop, ast.Declare(top, at, "log"))
		})
		if got != "[1, 2]" {
			t.Errorf("next through ensure (flagged=%v) = %s, want [1, 2]", flagged, got)
		}
	}
}

func TestEnsureRunsOnReturn(t *testing.T) {
	got := eval(t, func(top *scope.StaticScope) ast.Node {
		ms := scope.NewLocalScope(top)
		args := ast.NewArgs(ms, at, []string{"log"}, nil, nil, "", "")
		body := &ast.EnsureNode{Pos: at,
			Body:   &ast.ReturnNode{Pos: at, Value: fix(7)},
			Ensure: call(ast.Declare(ms, at, "log"), "<<", fix(2))}
		def := &ast.DefnNode{Pos: at, Name: "f", Args: args, Scope: ms, Body: body}
		log := ast.Assign(top, at, "log", list(fix(1)))
		return block(def, log, list(fcall("f", ast.Declare(top, at, "log")), ast.Declare(top, at, "log")))
	})
	if got != "[7, [1, 2]]" {
		t.Errorf("return through ensure = %s, want [7, [1, 2]]", got)
	}
}

func TestEnsureRunsOnBlockNext(t *testing.T) {
	got := eval(t, func(top *scope.StaticScope) ast.Node {
		log := ast.Assign(top, at, "log", list())
		blk := scope.NewBlockScope(top)
		param := ast.Assign(blk, at, "x", nil)
		guarded := &ast.EnsureNode{Pos: at,
			Body:   &ast.NextNode{Pos: at, Value: call(ast.Declare(blk, at, "x"), "*", fix(10))},
			Ensure: call(ast.Declare(blk, at, "log"), "<<", ast.Declare(blk, at, "x"))}
		mapped := call(list(fix(1), fix(2)), "map")
		mapped.Iter = &ast.IterNode{Pos: at, Scope: blk, Var: param, Body: guarded}
		return block(log, list(mapped, ast.Declare(top, at, "log")))
	})
	if got != "[[10, 20], [1, 2]]" {
		t.Errorf("next through ensure in a block = %s, want [[10, 20], [1, 2]]", got)
	}
}

// ---------------------------------------------------------------------------
// Loops checked at the end
// ---------------------------------------------------------------------------

func TestDoWhileRunsBodyOnce(t *testing.T) {
	for _, flagged := range []bool{false, true} {
		for _, until := range []bool{false, true} {
			got := eval(t, func(top *scope.StaticScope) ast.Node {
				n := ast.Assign(top, at, "n", fix(0))
				bump := ast.Assign(top, at, "n", call(ast.Declare(top, at, "n"), "+", fix(1)))
				var loop ast.Node = &ast.WhileNode{Pos: at, Cond: &ast.FalseNode{Pos: at}, Body: bump,
					ContainsNonlocalFlow: flagged}
				if until {
					loop = &ast.UntilNode{Pos: at, Cond: &ast.TrueNode{Pos: at}, Body: bump,
						ContainsNonlocalFlow: flagged}
				}
				return block(n, loop, ast.Declare(top, at, "n"))
			})
			if got != "1" {
				t.Errorf("do-while (flagged=%v, until=%v) ran the body %s times, want 1", flagged, until, got)
			}
		}
	}
}

func TestDoWhileRepeatsWhileTrue(t *testing.T) {
	for _, flagged := range []bool{false, true} {
		got := eval(t, func(top *scope.StaticScope) ast.Node {
			n := ast.Assign(top, at, "n", fix(0))
			bump := ast.Assign(top, at, "n", call(ast.Declare(top, at, "n"), "+", fix(1)))
			loop := &ast.WhileNode{Pos: at, Cond: call(ast.Declare(top, at, "n"), "<", fix(3)), Body: bump,
				ContainsNonlocalFlow: flagged}
			return block(n, loop, ast.Declare(top, at, "n"))
		})
		if got != "3" {
			t.Errorf("do-while counting to 3 (flagged=%v) = %s", flagged, got)
		}
	}
}
