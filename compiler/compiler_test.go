package compiler_test

import (
	"strings"
	"testing"

	"github.com/chazu/garnet/ast"
	"github.com/chazu/garnet/compiler"
	"github.com/chazu/garnet/scope"
	"github.com/chazu/garnet/vm"
)

// ---------------------------------------------------------------------------
// Tree helpers
// ---------------------------------------------------------------------------

var at = ast.Pos{File: "test.rb", Line: 1}

func fix(v int64) ast.Node { return &ast.FixnumNode{Pos: at, Value: v} }
func str(s string) ast.Node { return &ast.StrNode{Pos: at, Value: s} }
func sym(s string) ast.Node { return &ast.SymbolNode{Pos: at, Name: s} }
func list(elems ...ast.Node) *ast.ArrayNode {
	return &ast.ArrayNode{Pos: at, Elements: elems}
}
func block(stmts ...ast.Node) ast.Node { return &ast.BlockNode{Pos: at, Statements: stmts} }

func call(recv ast.Node, name string, args ...ast.Node) *ast.CallNode {
	n := &ast.CallNode{Pos: at, Receiver: recv, Name: name}
	if len(args) > 0 {
		n.Args = list(args...)
	}
	return n
}

func fcall(name string, args ...ast.Node) *ast.FCallNode {
	n := &ast.FCallNode{Pos: at, Name: name}
	if len(args) > 0 {
		n.Args = list(args...)
	}
	return n
}

// program builds a root over a fresh top-level scope.
func program(build func(top *scope.StaticScope) ast.Node) *ast.RootNode {
	top := scope.NewLocalScope(nil)
	body := build(top)
	return &ast.RootNode{Pos: at, Scope: top, Body: body}
}

type harness struct {
	t        *testing.T
	rt       *vm.Runtime
	warnings []string
}

func newHarness(t *testing.T, fastCase bool) *harness {
	h := &harness{t: t}
	h.rt = vm.NewRuntime(vm.Options{
		FastCase:  fastCase,
		OnWarning: func(msg string) { h.warnings = append(h.warnings, msg) },
	})
	return h
}

func (h *harness) run(root *ast.RootNode) vm.Value {
	h.t.Helper()
	v, err := h.rt.Execute(root, "test.rb")
	if err != nil {
		h.t.Fatalf("Execute: %v", err)
	}
	return v
}

func (h *harness) inspect(v vm.Value) string {
	h.t.Helper()
	s, err := h.rt.Call(v, "inspect")
	if err != nil {
		h.t.Fatalf("inspect: %v", err)
	}
	return s.(*vm.String).S
}

// eval runs the tree and returns the inspected result.
func eval(t *testing.T, build func(top *scope.StaticScope) ast.Node) string {
	t.Helper()
	h := newHarness(t, true)
	return h.inspect(h.run(program(build)))
}

// ---------------------------------------------------------------------------
// Multiple assignment
// ---------------------------------------------------------------------------

func TestMultipleAssignmentWithRest(t *testing.T) {
	got := eval(t, func(top *scope.StaticScope) ast.Node {
		masgn := &ast.MultipleAsgnNode{
			Pos:   at,
			Head:  list(ast.Assign(top, at, "a", nil), ast.Assign(top, at, "b", nil)),
			Args:  ast.Assign(top, at, "c", nil),
			Value: list(fix(1), fix(2), fix(3), fix(4)),
		}
		return block(masgn, list(
			ast.Declare(top, at, "a"), ast.Declare(top, at, "b"), ast.Declare(top, at, "c")))
	})
	if got != "[1, 2, [3, 4]]" {
		t.Errorf("a, b, *c = [1, 2, 3, 4] gave %s", got)
	}
}

func TestMultipleAssignmentPadsWithNil(t *testing.T) {
	got := eval(t, func(top *scope.StaticScope) ast.Node {
		masgn := &ast.MultipleAsgnNode{
			Pos:   at,
			Head:  list(ast.Assign(top, at, "a", nil), ast.Assign(top, at, "b", nil)),
			Value: &ast.ToAryNode{Pos: at, Value: list(fix(1))},
		}
		return block(masgn, list(ast.Declare(top, at, "a"), ast.Declare(top, at, "b")))
	})
	if got != "[1, nil]" {
		t.Errorf("a, b = [1] gave %s", got)
	}
}

func TestMultipleAssignmentSwap(t *testing.T) {
	got := eval(t, func(top *scope.StaticScope) ast.Node {
		a := ast.Assign(top, at, "a", fix(1))
		b := ast.Assign(top, at, "b", fix(2))
		swap := &ast.MultipleAsgnNode{
			Pos:   at,
			Head:  list(ast.Assign(top, at, "a", nil), ast.Assign(top, at, "b", nil)),
			Value: list(ast.Declare(top, at, "b"), ast.Declare(top, at, "a")),
		}
		return block(a, b, swap, list(ast.Declare(top, at, "a"), ast.Declare(top, at, "b")))
	})
	if got != "[2, 1]" {
		t.Errorf("a, b = b, a gave %s", got)
	}
}

// ---------------------------------------------------------------------------
// Case
// ---------------------------------------------------------------------------

// caseProgram builds case subject; when 1, 2 then :low; when 3 then :three; else :other end.
func caseProgram(subject ast.Node) *ast.RootNode {
	return program(func(top *scope.StaticScope) ast.Node {
		return &ast.CaseNode{
			Pos:     at,
			Subject: subject,
			Whens: []*ast.WhenNode{
				{Pos: at, Exprs: list(fix(1), fix(2)), Body: sym("low")},
				{Pos: at, Exprs: list(fix(3), fix(1)), Body: sym("three")},
			},
			Else: sym("other"),
		}
	})
}

func TestCaseJumpTableMatchesChain(t *testing.T) {
	subjects := []struct {
		name string
		node ast.Node
		want string
	}{
		{"first", fix(1), ":low"},
		{"second candidate", fix(2), ":low"},
		{"later clause", fix(3), ":three"},
		{"miss", fix(99), ":other"},
		{"float equal to a candidate", &ast.FloatNode{Pos: at, Value: 2.0}, ":low"},
		{"string", str("1"), ":other"},
		{"nil", &ast.NilNode{Pos: at}, ":other"},
	}
	for _, s := range subjects {
		for _, fast := range []bool{true, false} {
			h := newHarness(t, fast)
			if got := h.inspect(h.run(caseProgram(s.node))); got != s.want {
				t.Errorf("%s (fast=%v) = %s, want %s", s.name, fast, got, s.want)
			}
		}
	}
}

func TestCaseFastPathChangesCode(t *testing.T) {
	compile := func(fast bool) string {
		h := newHarness(t, fast)
		body, err := h.rt.Compile(caseProgram(fix(1)), "test.rb")
		if err != nil {
			t.Fatalf("Compile: %v", err)
		}
		return body.Disassemble()
	}
	if compile(true) == compile(false) {
		t.Error("an all-integer case should compile differently with the jump table enabled")
	}
}

func TestCaseWithoutSubject(t *testing.T) {
	got := eval(t, func(top *scope.StaticScope) ast.Node {
		return &ast.CaseNode{
			Pos: at,
			Whens: []*ast.WhenNode{
				{Pos: at, Exprs: list(&ast.FalseNode{Pos: at}), Body: sym("no")},
				{Pos: at, Exprs: list(call(fix(1), "<", fix(2))), Body: sym("yes")},
			},
		}
	})
	if got != ":yes" {
		t.Errorf("subjectless case = %s", got)
	}
}

// ---------------------------------------------------------------------------
// Logic and defined?
// ---------------------------------------------------------------------------

func TestAndOrNot(t *testing.T) {
	tests := []struct {
		name string
		node ast.Node
		want string
	}{
		{"nil or 5", &ast.OrNode{Pos: at, First: &ast.NilNode{Pos: at}, Second: fix(5)}, "5"},
		{"1 or 5", &ast.OrNode{Pos: at, First: fix(1), Second: fix(5)}, "1"},
		{"1 and nil", &ast.AndNode{Pos: at, First: fix(1), Second: &ast.NilNode{Pos: at}}, "nil"},
		{"false and 5", &ast.AndNode{Pos: at, First: &ast.FalseNode{Pos: at}, Second: fix(5)}, "false"},
		{"not nil", &ast.NotNode{Pos: at, Cond: &ast.NilNode{Pos: at}}, "true"},
		{"not 0", &ast.NotNode{Pos: at, Cond: fix(0)}, "false"},
	}
	for _, tt := range tests {
		got := eval(t, func(*scope.StaticScope) ast.Node { return tt.node })
		if got != tt.want {
			t.Errorf("%s = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestDefined(t *testing.T) {
	defined := func(expr ast.Node) ast.Node { return &ast.DefinedNode{Pos: at, Expr: expr} }
	tests := []struct {
		name  string
		build func(top *scope.StaticScope) ast.Node
		want  string
	}{
		{"local", func(top *scope.StaticScope) ast.Node {
			return block(ast.Assign(top, at, "a", fix(1)), defined(ast.Declare(top, at, "a")))
		}, `"local-variable"`},
		{"assignment", func(top *scope.StaticScope) ast.Node {
			return defined(ast.Assign(top, at, "a", fix(1)))
		}, `"assignment"`},
		{"nil", func(*scope.StaticScope) ast.Node { return defined(&ast.NilNode{Pos: at}) }, `"nil"`},
		{"self", func(*scope.StaticScope) ast.Node { return defined(&ast.SelfNode{Pos: at}) }, `"self"`},
		{"true", func(*scope.StaticScope) ast.Node { return defined(&ast.TrueNode{Pos: at}) }, `"true"`},
		{"literal", func(*scope.StaticScope) ast.Node { return defined(fix(3)) }, `"expression"`},
		{"constant", func(*scope.StaticScope) ast.Node {
			return defined(&ast.ConstNode{Pos: at, Name: "String"})
		}, `"constant"`},
		{"missing constant", func(*scope.StaticScope) ast.Node {
			return defined(&ast.ConstNode{Pos: at, Name: "Nope"})
		}, "nil"},
		{"unset ivar", func(*scope.StaticScope) ast.Node {
			return defined(&ast.InstVarNode{Pos: at, Name: "@x"})
		}, "nil"},
		{"set ivar", func(*scope.StaticScope) ast.Node {
			return block(&ast.InstAsgnNode{Pos: at, Name: "@x", Value: fix(1)},
				defined(&ast.InstVarNode{Pos: at, Name: "@x"}))
		}, `"instance-variable"`},
		{"global", func(*scope.StaticScope) ast.Node {
			return defined(&ast.GlobalVarNode{Pos: at, Name: "$stdout"})
		}, `"global-variable"`},
		{"missing global", func(*scope.StaticScope) ast.Node {
			return defined(&ast.GlobalVarNode{Pos: at, Name: "$nope"})
		}, "nil"},
		{"private method", func(*scope.StaticScope) ast.Node { return defined(fcall("puts")) }, `"method"`},
		{"missing vcall", func(*scope.StaticScope) ast.Node {
			return defined(&ast.VCallNode{Pos: at, Name: "nope"})
		}, "nil"},
		{"call", func(*scope.StaticScope) ast.Node { return defined(call(fix(1), "+", fix(1))) }, `"method"`},
		{"private method with receiver", func(*scope.StaticScope) ast.Node {
			return defined(call(fix(1), "puts"))
		}, "nil"},
		{"call on missing receiver", func(*scope.StaticScope) ast.Node {
			return defined(call(&ast.ConstNode{Pos: at, Name: "Nope"}, "new"))
		}, "nil"},
		{"call on raising receiver", func(*scope.StaticScope) ast.Node {
			return defined(call(fcall("raise", str("boom")), "foo"))
		}, "nil"},
		{"yield at top", func(*scope.StaticScope) ast.Node {
			return defined(&ast.YieldNode{Pos: at})
		}, "nil"},
		{"super at top", func(*scope.StaticScope) ast.Node {
			return defined(&ast.ZSuperNode{Pos: at})
		}, "nil"},
		{"scoped constant", func(*scope.StaticScope) ast.Node {
			return defined(&ast.Colon2Node{Pos: at, Left: &ast.ConstNode{Pos: at, Name: "Object"}, Name: "String"})
		}, `"constant"`},
	}
	for _, tt := range tests {
		if got := eval(t, tt.build); got != tt.want {
			t.Errorf("defined?(%s) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestDefinedBlockVariable(t *testing.T) {
	got := eval(t, func(top *scope.StaticScope) ast.Node {
		blk := scope.NewBlockScope(top)
		result := ast.Assign(top, at, "r", nil)
		param := ast.Assign(blk, at, "x", nil)
		store := ast.Assign(blk, at, "r", &ast.DefinedNode{Pos: at, Expr: ast.Declare(blk, at, "x")})
		each := call(list(fix(1)), "each")
		each.Iter = &ast.IterNode{Pos: at, Scope: blk, Var: param, Body: store}
		return block(result, each, ast.Declare(top, at, "r"))
	})
	if got != `"local-variable(in-block)"` {
		t.Errorf("defined?(block param) = %s", got)
	}
}

// ---------------------------------------------------------------------------
// Exceptions and loops
// ---------------------------------------------------------------------------

func TestRetryRerunsBody(t *testing.T) {
	got := eval(t, func(top *scope.StaticScope) ast.Node {
		init := ast.Assign(top, at, "n", fix(0))
		bump := ast.Assign(top, at, "n", call(ast.Declare(top, at, "n"), "+", fix(1)))
		fail := &ast.IfNode{
			Pos:  at,
			Cond: call(ast.Declare(top, at, "n"), "<", fix(3)),
			Then: fcall("raise", str("again")),
		}
		rescue := &ast.RescueNode{
			Pos:    at,
			Body:   block(bump, fail, ast.Declare(top, at, "n")),
			Rescue: &ast.RescueBodyNode{Pos: at, Body: &ast.RetryNode{Pos: at}},
		}
		return block(init, &ast.BeginNode{Pos: at, Body: rescue})
	})
	if got != "3" {
		t.Errorf("begin ... rescue retry end = %s, want 3", got)
	}
}

func TestRescueEnsureOrder(t *testing.T) {
	got := eval(t, func(top *scope.StaticScope) ast.Node {
		log := ast.Assign(top, at, "log", list())
		push := func(v int64) ast.Node { return call(ast.Declare(top, at, "log"), "<<", fix(v)) }
		body := &ast.EnsureNode{
			Pos: at,
			Body: &ast.RescueNode{
				Pos:  at,
				Body: block(push(1), fcall("raise", str("x")), push(99)),
				Rescue: &ast.RescueBodyNode{
					Pos:        at,
					Exceptions: list(&ast.ConstNode{Pos: at, Name: "TypeError"}),
					Body:       push(98),
					Next:       &ast.RescueBodyNode{Pos: at, Body: block(push(2), sym("rescued"))},
				},
			},
			Ensure: block(push(3), sym("ignored")),
		}
		return block(log, list(body, ast.Declare(top, at, "log")))
	})
	if got != "[:rescued, [1, 2, 3]]" {
		t.Errorf("rescue/ensure gave %s", got)
	}
}

func TestRescueElse(t *testing.T) {
	got := eval(t, func(*scope.StaticScope) ast.Node {
		return &ast.RescueNode{
			Pos:    at,
			Body:   fix(1),
			Rescue: &ast.RescueBodyNode{Pos: at, Body: fix(2)},
			Else:   fix(3),
		}
	})
	if got != "3" {
		t.Errorf("rescue with else = %s, want 3", got)
	}
}

func TestUnhandledExceptionSurfaces(t *testing.T) {
	h := newHarness(t, true)
	_, err := h.rt.Execute(program(func(*scope.StaticScope) ast.Node {
		return &ast.RescueNode{
			Pos:  at,
			Body: fcall("raise", &ast.ConstNode{Pos: at, Name: "ArgumentError"}, str("bad")),
			Rescue: &ast.RescueBodyNode{
				Pos:        at,
				Exceptions: list(&ast.ConstNode{Pos: at, Name: "TypeError"}),
				Body:       fix(1),
			},
		}
	}), "test.rb")
	if err == nil || !strings.Contains(err.Error(), "bad") {
		t.Errorf("err = %v, want the ArgumentError", err)
	}
}

// whileProgram builds i = 0; while i < 10; i += 1; break if i == 3 [inside begin/rescue]; end; i
func whileProgram(protected bool) *ast.RootNode {
	return program(func(top *scope.StaticScope) ast.Node {
		init := ast.Assign(top, at, "i", fix(0))
		i := func() ast.Node { return ast.Declare(top, at, "i") }
		var stop ast.Node = &ast.IfNode{
			Pos:  at,
			Cond: call(i(), "==", fix(3)),
			Then: &ast.BreakNode{Pos: at},
		}
		if protected {
			stop = &ast.RescueNode{Pos: at, Body: stop, Rescue: &ast.RescueBodyNode{Pos: at, Body: fix(0)}}
		}
		loop := &ast.WhileNode{
			Pos:             at,
			Cond:            call(i(), "<", fix(10)),
			Body:            block(ast.Assign(top, at, "i", call(i(), "+", fix(1))), stop),
			EvaluateAtStart: true,
		}
		return block(init, loop, i())
	})
}

func TestWhileBreak(t *testing.T) {
	for _, protected := range []bool{false, true} {
		if !protected && compiler.LoopNeedsSafeMode(whileBody(whileProgram(protected))) {
			t.Error("a plain loop should not need safe mode")
		}
		if protected && !compiler.LoopNeedsSafeMode(whileBody(whileProgram(protected))) {
			t.Error("break inside rescue should need safe mode")
		}
		h := newHarness(t, true)
		if got := h.inspect(h.run(whileProgram(protected))); got != "3" {
			t.Errorf("while with break (protected=%v) = %s, want 3", protected, got)
		}
	}
}

func whileBody(root *ast.RootNode) ast.Node {
	for _, s := range root.Body.(*ast.BlockNode).Statements {
		if w, ok := s.(*ast.WhileNode); ok {
			return w.Body
		}
	}
	return nil
}

func TestWhileValueIsNil(t *testing.T) {
	got := eval(t, func(*scope.StaticScope) ast.Node {
		return &ast.WhileNode{Pos: at, Cond: &ast.FalseNode{Pos: at}, Body: fix(1), EvaluateAtStart: true}
	})
	if got != "nil" {
		t.Errorf("while false = %s, want nil", got)
	}
}

// ---------------------------------------------------------------------------
// Blocks and closures
// ---------------------------------------------------------------------------

func TestZeroParamBlockIgnoresValues(t *testing.T) {
	for _, v := range []ast.Node{nil, &ast.ZeroArgNode{Pos: at}} {
		h := newHarness(t, true)
		got := h.inspect(h.run(program(func(top *scope.StaticScope) ast.Node {
			count := ast.Assign(top, at, "count", fix(0))
			blk := scope.NewBlockScope(top)
			bump := ast.Assign(blk, at, "count", call(ast.Declare(blk, at, "count"), "+", fix(1)))
			hash := &ast.HashNode{Pos: at, Entries: []ast.Node{sym("a"), fix(1), sym("b"), fix(2)}}
			each := call(hash, "each_pair")
			each.Iter = &ast.IterNode{Pos: at, Scope: blk, Var: v, Body: bump}
			return block(count, each, ast.Declare(top, at, "count"))
		})))
		if got != "2" {
			t.Errorf("block ran %s times, want 2", got)
		}
		if len(h.warnings) != 0 {
			t.Errorf("unexpected warnings %v", h.warnings)
		}
	}
}

func TestSingleParamBlockTakesFirstValueAndWarns(t *testing.T) {
	h := newHarness(t, true)
	got := h.inspect(h.run(program(func(top *scope.StaticScope) ast.Node {
		seen := ast.Assign(top, at, "seen", list())
		blk := scope.NewBlockScope(top)
		param := ast.Assign(blk, at, "x", nil)
		push := call(ast.Declare(blk, at, "seen"), "<<", ast.Declare(blk, at, "x"))
		hash := &ast.HashNode{Pos: at, Entries: []ast.Node{sym("k"), fix(1)}}
		each := call(hash, "each_pair")
		each.Iter = &ast.IterNode{Pos: at, Scope: blk, Var: param, Body: push}
		return block(seen, each, ast.Declare(top, at, "seen"))
	})))
	if got != "[:k]" {
		t.Errorf("bound values = %s, want [:k]", got)
	}
	want := "multiple values for a block parameter (2 for 1)"
	if len(h.warnings) != 1 || h.warnings[0] != want {
		t.Errorf("warnings = %q, want [%q]", h.warnings, want)
	}
}

func TestDestructuringBlockParams(t *testing.T) {
	got := eval(t, func(top *scope.StaticScope) ast.Node {
		out := ast.Assign(top, at, "out", list())
		blk := scope.NewBlockScope(top)
		params := &ast.MultipleAsgnNode{
			Pos:  at,
			Head: list(ast.Assign(blk, at, "k", nil), ast.Assign(blk, at, "v", nil)),
		}
		push := call(ast.Declare(blk, at, "out"), "<<",
			call(ast.Declare(blk, at, "v"), "+", ast.Declare(blk, at, "k")))
		pairs := list(list(fix(1), fix(10)), list(fix(2), fix(20)))
		each := call(pairs, "each")
		each.Iter = &ast.IterNode{Pos: at, Scope: blk, Var: params, Body: push}
		return block(out, each, ast.Declare(top, at, "out"))
	})
	if got != "[11, 22]" {
		t.Errorf("|k, v| over pairs gave %s", got)
	}
}

func TestClosureWritesEnclosingVariable(t *testing.T) {
	got := eval(t, func(top *scope.StaticScope) ast.Node {
		a := ast.Assign(top, at, "a", fix(1))
		blk := scope.NewBlockScope(top)
		body := ast.Assign(blk, at, "a", call(ast.Declare(blk, at, "a"), "+", fix(10)))
		lambda := fcall("lambda")
		lambda.Iter = &ast.IterNode{Pos: at, Scope: blk, Body: body}
		f := ast.Assign(top, at, "f", lambda)
		return block(a, f, call(ast.Declare(top, at, "f"), "call"), call(ast.Declare(top, at, "f"), "call"),
			ast.Declare(top, at, "a"))
	})
	if got != "21" {
		t.Errorf("a after two calls = %s, want 21", got)
	}
}

func TestBreakFromBlockEndsCall(t *testing.T) {
	got := eval(t, func(top *scope.StaticScope) ast.Node {
		blk := scope.NewBlockScope(top)
		param := ast.Assign(blk, at, "x", nil)
		body := &ast.IfNode{
			Pos:  at,
			Cond: call(ast.Declare(blk, at, "x"), ">", fix(2)),
			Then: &ast.BreakNode{Pos: at, Value: call(ast.Declare(blk, at, "x"), "*", fix(100))},
		}
		each := call(&ast.DotNode{Pos: at, Begin: fix(1), End: fix(10)}, "each")
		each.Iter = &ast.IterNode{Pos: at, Scope: blk, Var: param, Body: body}
		return each
	})
	if got != "300" {
		t.Errorf("break value = %s, want 300", got)
	}
}

func TestEachSliceThroughCompiledBlock(t *testing.T) {
	got := eval(t, func(top *scope.StaticScope) ast.Node {
		out := ast.Assign(top, at, "out", list())
		blk := scope.NewBlockScope(top)
		param := ast.Assign(blk, at, "s", nil)
		push := call(ast.Declare(blk, at, "out"), "<<", ast.Declare(blk, at, "s"))
		slices := call(&ast.DotNode{Pos: at, Begin: fix(1), End: fix(5)}, "each_slice", fix(2))
		slices.Iter = &ast.IterNode{Pos: at, Scope: blk, Var: param, Body: push}
		return block(out, slices, ast.Declare(top, at, "out"))
	})
	if got != "[[1, 2], [3, 4], [5]]" {
		t.Errorf("each_slice(2) gave %s", got)
	}
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

func TestFixedAndSpreadArgumentPaths(t *testing.T) {
	for n := 0; n <= 6; n++ {
		got := eval(t, func(*scope.StaticScope) ast.Node {
			args := make([]ast.Node, n)
			for i := range args {
				args[i] = fix(int64(i))
			}
			return call(list(), "push", args...)
		})
		want := "["
		for i := 0; i < n; i++ {
			if i > 0 {
				want += ", "
			}
			want += string(rune('0' + i))
		}
		want += "]"
		if got != want {
			t.Errorf("push with %d args = %s, want %s", n, got, want)
		}
	}
}

func TestSplatArguments(t *testing.T) {
	got := eval(t, func(*scope.StaticScope) ast.Node {
		args := &ast.ArgsCatNode{Pos: at, First: list(fix(0)), Second: list(fix(1), fix(2))}
		return &ast.CallNode{Pos: at, Receiver: list(), Name: "push", Args: args}
	})
	if got != "[0, 1, 2]" {
		t.Errorf("push(0, *[1, 2]) = %s", got)
	}
}

func TestMethodDefinitionAndCall(t *testing.T) {
	got := eval(t, func(top *scope.StaticScope) ast.Node {
		ms := scope.NewLocalScope(top)
		args := ast.NewArgs(ms, at, []string{"a"}, []string{"b"}, []ast.Node{fix(5)}, "rest", "")
		body := list(ast.Declare(ms, at, "a"), ast.Declare(ms, at, "b"), ast.Declare(ms, at, "rest"))
		def := &ast.DefnNode{Pos: at, Name: "f", Args: args, Scope: ms, Body: body}
		return block(def, list(fcall("f", fix(1)), fcall("f", fix(1), fix(2), fix(3), fix(4))))
	})
	if got != "[[1, 5, []], [1, 2, [3, 4]]]" {
		t.Errorf("f results = %s", got)
	}
}

// ---------------------------------------------------------------------------
// Compilation properties
// ---------------------------------------------------------------------------

// mixedProgram exercises most node kinds in one body.
func mixedProgram() *ast.RootNode {
	return program(func(top *scope.StaticScope) ast.Node {
		blk := scope.NewBlockScope(top)
		masgn := &ast.MultipleAsgnNode{
			Pos:   at,
			Head:  list(ast.Assign(top, at, "a", nil)),
			Args:  ast.Assign(top, at, "rest", nil),
			Value: list(fix(1), fix(2)),
		}
		iter := call(list(fix(1), fix(2)), "map")
		iter.Iter = &ast.IterNode{Pos: at, Scope: blk, Var: ast.Assign(blk, at, "x", nil),
			Body: &ast.OrNode{Pos: at, First: ast.Declare(blk, at, "x"), Second: ast.Declare(blk, at, "a")}}
		return block(
			masgn,
			iter,
			&ast.DefinedNode{Pos: at, Expr: call(ast.Declare(top, at, "a"), "+", fix(1))},
			&ast.EnsureNode{Pos: at,
				Body:   &ast.RescueNode{Pos: at, Body: fcall("raise", str("x")), Rescue: &ast.RescueBodyNode{Pos: at, Body: fix(1)}},
				Ensure: fix(2)},
			&ast.CaseNode{Pos: at, Subject: ast.Declare(top, at, "a"),
				Whens: []*ast.WhenNode{{Pos: at, Exprs: list(fix(1)), Body: str("one")}}},
			&ast.HashNode{Pos: at, Entries: []ast.Node{sym("k"), &ast.DStrNode{Pos: at, Parts: []ast.Node{str("v"), &ast.EvStrNode{Pos: at, Body: ast.Declare(top, at, "a")}}}}},
		)
	})
}

func TestCompilationIsDeterministic(t *testing.T) {
	first, err := newHarness(t, true).rt.Compile(mixedProgram(), "test.rb")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	second, err := newHarness(t, true).rt.Compile(mixedProgram(), "test.rb")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if first.Disassemble() != second.Disassemble() {
		t.Errorf("two compilations differ:\n%s\n---\n%s", first.Disassemble(), second.Disassemble())
	}
}

func TestEveryBodyIsStackBalanced(t *testing.T) {
	h := newHarness(t, true)
	body, err := h.rt.Compile(mixedProgram(), "test.rb")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	body.Walk(func(b *vm.CompiledBody) {
		if b.MaxStack < 1 {
			t.Errorf("%s %s has max stack %d", b.Kind, b.Name, b.MaxStack)
		}
	})
	if got := h.inspect(h.run(mixedProgram())); got != `{:k=>"v1"}` {
		t.Errorf("mixed program = %s", got)
	}
}

func TestNotCompilable(t *testing.T) {
	flip := program(func(*scope.StaticScope) ast.Node {
		return &ast.IfNode{Pos: at, Cond: &ast.FlipNode{Pos: at, Begin: &ast.TrueNode{Pos: at}, End: &ast.FalseNode{Pos: at}}, Then: fix(1)}
	})
	_, err := newHarness(t, true).rt.Compile(flip, "test.rb")
	if !compiler.IsNotCompilable(err) {
		t.Errorf("flip-flop: err = %v, want not compilable", err)
	}

	ms := scope.NewLocalScope(nil)
	other := ms.AddVariable("other")
	args := ast.NewArgs(ms, at, nil, []string{"o"}, []ast.Node{
		&ast.LocalAsgnNode{Pos: at, Name: "other", Index: other, Value: fix(1)},
	}, "", "")
	if err := compiler.CheckCompilable(args); !compiler.IsNotCompilable(err) {
		t.Errorf("default assigning another variable: err = %v, want not compilable", err)
	}

	ok := ast.NewArgs(scope.NewLocalScope(nil), at, nil, []string{"o"}, []ast.Node{fix(1)}, "", "")
	if err := compiler.CheckCompilable(ok); err != nil {
		t.Errorf("plain default: err = %v", err)
	}
}
