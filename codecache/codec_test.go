package codecache

import (
	"errors"
	"math/big"
	"testing"

	"github.com/chazu/garnet/ast"
	"github.com/chazu/garnet/scope"
	"github.com/chazu/garnet/vm"
)

// sumProgram builds
//
//	a = 1
//	[1, 2].each { |x| a = a + x }
//	s = "big"
//	b = 123456789012345678901234567890
//	a
func sumProgram() *ast.RootNode {
	top := scope.NewLocalScope(nil)
	blk := scope.NewBlockScope(top)
	pos := ast.Pos{File: "sum.rb", Line: 1}

	first := ast.Assign(top, pos, "a", &ast.FixnumNode{Value: 1})
	param := ast.Assign(blk, pos, "x", nil)
	body := ast.Assign(blk, ast.Pos{Line: 2}, "a", &ast.CallNode{
		Receiver: ast.Declare(blk, pos, "a"),
		Name:     "+",
		Args:     &ast.ArrayNode{Elements: []ast.Node{ast.Declare(blk, pos, "x")}},
	})
	n, _ := new(big.Int).SetString("123456789012345678901234567890", 10)

	stmts := []ast.Node{
		first,
		&ast.CallNode{
			Pos:      ast.Pos{Line: 2},
			Receiver: &ast.ArrayNode{Elements: []ast.Node{&ast.FixnumNode{Value: 1}, &ast.FixnumNode{Value: 2}}},
			Name:     "each",
			Iter:     &ast.IterNode{Scope: blk, Var: param, Body: body},
		},
		ast.Assign(top, ast.Pos{Line: 3}, "s", &ast.StrNode{Value: "big"}),
		ast.Assign(top, ast.Pos{Line: 4}, "b", &ast.BignumNode{Value: n}),
	}
	stmts = append(stmts, ast.Declare(top, ast.Pos{Line: 5}, "a"))
	return &ast.RootNode{Pos: pos, Scope: top, Body: &ast.BlockNode{Statements: stmts}}
}

func compileProgram(t *testing.T, root *ast.RootNode) *vm.CompiledBody {
	t.Helper()
	rt := vm.NewRuntime(vm.Options{})
	body, err := rt.Compile(root, "sum.rb")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return body
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	root := sumProgram()
	body := compileProgram(t, root)
	scopes := ast.Scopes(root)

	data, err := Encode(body, scopes)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data, scopes)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Disassemble() != body.Disassemble() {
		t.Errorf("disassembly differs:\n%s\nwant:\n%s", got.Disassemble(), body.Disassemble())
	}
	if got.Scope != root.Scope {
		t.Error("decoded body should be bound to the tree's root scope")
	}
	if len(got.Children) != len(body.Children) {
		t.Fatalf("children = %d, want %d", len(got.Children), len(body.Children))
	}
	for i, c := range body.Children {
		if !c.LocalExits {
			t.Errorf("child %s should run without a jump catcher", c.Name)
		}
		if got.Children[i].LocalExits != c.LocalExits {
			t.Errorf("child %s: LocalExits = %v, want %v", c.Name, got.Children[i].LocalExits, c.LocalExits)
		}
	}
	var sawBig bool
	for _, l := range got.Literals {
		if l.Kind == vm.BignumLiteral {
			sawBig = true
			if l.Big.String() != "123456789012345678901234567890" {
				t.Errorf("bignum literal = %s", l.Big)
			}
		}
	}
	if !sawBig {
		t.Error("bignum literal was not carried over")
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	root := sumProgram()
	body := compileProgram(t, root)
	a, err := Encode(body, ast.Scopes(root))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Encode(body, ast.Scopes(root))
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Error("encoding the same body twice gave different bytes")
	}
}

func TestDecodeRunsAgainstFreshTree(t *testing.T) {
	root := sumProgram()
	data, err := Encode(compileProgram(t, root), ast.Scopes(root))
	if err != nil {
		t.Fatal(err)
	}

	fresh := sumProgram()
	body, err := Decode(data, ast.Scopes(fresh))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	rt := vm.NewRuntime(vm.Options{})
	v, err := rt.Run(body)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v != int64(4) {
		t.Errorf("result = %v, want 4", v)
	}
}

func TestDecodeScopeMismatch(t *testing.T) {
	root := sumProgram()
	data, err := Encode(compileProgram(t, root), ast.Scopes(root))
	if err != nil {
		t.Fatal(err)
	}

	other := scope.NewLocalScope(nil)
	other.AddVariable("z")
	if _, err := Decode(data, []*scope.StaticScope{other}); !errors.Is(err, ErrScopeMismatch) {
		t.Errorf("Decode with one scope: err = %v, want ErrScopeMismatch", err)
	}

	renamed := sumProgram()
	scopes := ast.Scopes(renamed)
	scopes[0] = scope.NewLocalScope(nil)
	for _, name := range []string{"a", "s", "q"} {
		scopes[0].AddVariable(name)
	}
	if _, err := Decode(data, scopes); !errors.Is(err, ErrScopeMismatch) {
		t.Errorf("Decode with renamed slot: err = %v, want ErrScopeMismatch", err)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte{0xff, 0x00}, nil); err == nil {
		t.Error("Decode of garbage should fail")
	}
}

func TestDecodeDetached(t *testing.T) {
	root := sumProgram()
	body := compileProgram(t, root)
	data, err := Encode(body, ast.Scopes(root))
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeDetached(data)
	if err != nil {
		t.Fatalf("DecodeDetached: %v", err)
	}
	if got.Disassemble() != body.Disassemble() {
		t.Errorf("detached disassembly differs:\n%s", got.Disassemble())
	}
	names := got.Scope.VariableNames()
	if len(names) != 3 || names[0] != "a" || names[1] != "s" || names[2] != "b" {
		t.Errorf("detached scope names = %v, want [a s b]", names)
	}
	if !got.Scope.IsCaptured(0) || got.Scope.IsCaptured(1) {
		t.Errorf("detached captured flags = %v %v, want a captured and s not", got.Scope.IsCaptured(0), got.Scope.IsCaptured(1))
	}
}
