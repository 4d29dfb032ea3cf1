// Package compiler walks a parsed tree and drives a BodyCompiler to emit
// code for it. It knows the language's evaluation rules; the BodyCompiler
// knows the instruction set.
package compiler

import (
	"errors"

	"github.com/tliron/commonlog"

	"github.com/chazu/garnet/ast"
)

var log = commonlog.GetLogger("garnet.compiler")

// DefaultMaxSpecificArity is the largest argument count passed as separate
// values instead of one array.
const DefaultMaxSpecificArity = 3

// ASTCompiler compiles trees into a BodyCompiler. It holds only options and
// may be shared between goroutines.
type ASTCompiler struct {
	// FastCase enables the integer jump table for case expressions whose
	// when clauses are all small integer literals.
	FastCase bool
	// MaxSpecificArity bounds the fixed-arity calling path.
	MaxSpecificArity int
}

// New creates a compiler with default options.
func New() *ASTCompiler {
	return &ASTCompiler{
		FastCase:         true,
		MaxSpecificArity: DefaultMaxSpecificArity,
	}
}

// CompileRoot compiles a whole program into ctx. A tree containing a
// construct this compiler refuses yields a *NotCompilableError and ctx must
// be discarded.
func (c *ASTCompiler) CompileRoot(root *ast.RootNode, ctx BodyCompiler) (err error) {
	if err := CheckCompilable(root); err != nil {
		log.Infof("%s", err)
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			nc, ok := r.(*NotCompilableError)
			if !ok {
				panic(r)
			}
			log.Infof("%s", nc)
			err = nc
		}
	}()
	c.Compile(root.Body, ctx)
	return nil
}

// IsNotCompilable reports whether err came from refusing a tree.
func IsNotCompilable(err error) bool {
	var nc *NotCompilableError
	return errors.As(err, &nc)
}

// Compile emits n so that it leaves exactly one value on the stack. A nil
// node compiles to nil.
func (c *ASTCompiler) Compile(n ast.Node, ctx BodyCompiler) {
	if n == nil {
		ctx.LoadNil()
		return
	}
	switch x := n.(type) {
	// literals
	case *ast.NilNode:
		ctx.LoadNil()
		ctx.PollThreadEvents()
	case *ast.TrueNode:
		ctx.LoadTrue()
		ctx.PollThreadEvents()
	case *ast.FalseNode:
		ctx.LoadFalse()
		ctx.PollThreadEvents()
	case *ast.SelfNode:
		ctx.LoadSelf()
	case *ast.FixnumNode:
		ctx.CreateNewFixnum(x.Value)
	case *ast.BignumNode:
		ctx.CreateNewBignum(x.Value)
	case *ast.FloatNode:
		ctx.CreateNewFloat(x.Value)
	case *ast.StrNode:
		ctx.CreateNewString(x.Value)
	case *ast.SymbolNode:
		ctx.CreateNewSymbol(x.Name)
	case *ast.RegexpNode:
		ctx.CreateNewRegexp(x.Pattern, x.Options)
	case *ast.XStrNode:
		c.compileXStr(x, ctx)
	case *ast.ArrayNode:
		c.compileArray(x, ctx)
	case *ast.ZArrayNode:
		ctx.CreateEmptyArray()
	case *ast.HashNode:
		c.compileHash(x, ctx)
	case *ast.DStrNode:
		c.compileParts(x.Parts, ctx)
	case *ast.DSymbolNode:
		c.compileParts(x.Parts, ctx)
		ctx.ToSymbol()
	case *ast.DRegexpNode:
		c.compileParts(x.Parts, ctx)
		ctx.CreateDynamicRegexp(x.Options, x.Once)
	case *ast.DXStrNode:
		c.compileDXStr(x, ctx)
	case *ast.EvStrNode:
		c.Compile(x.Body, ctx)
	case *ast.DotNode:
		c.Compile(x.Begin, ctx)
		c.Compile(x.End, ctx)
		ctx.CreateNewRange(x.Exclusive)

	// sequencing
	case *ast.BlockNode:
		c.compileBlock(x, ctx)
	case *ast.NewlineNode:
		ctx.LineNumber(x.Position().Line)
		c.Compile(x.Next, ctx)
	case *ast.BeginNode:
		c.Compile(x.Body, ctx)
	case *ast.RootNode:
		c.Compile(x.Body, ctx)

	// variables
	case *ast.LocalVarNode:
		ctx.RetrieveLocal(x.Index, 0)
	case *ast.DVarNode:
		ctx.RetrieveLocal(x.Index, x.Depth)
	case *ast.LocalAsgnNode, *ast.DAsgnNode, *ast.InstAsgnNode, *ast.GlobalAsgnNode,
		*ast.ClassVarAsgnNode, *ast.ClassVarDeclNode, *ast.ConstDeclNode:
		c.compileAssignment(n, ctx)
	case *ast.InstVarNode:
		ctx.RetrieveInstanceVariable(x.Name)
	case *ast.GlobalVarNode:
		ctx.RetrieveGlobal(x.Name)
	case *ast.ClassVarNode:
		ctx.RetrieveClassVariable(x.Name)
	case *ast.ConstNode:
		ctx.RetrieveConstant(x.Name)
	case *ast.Colon2Node:
		c.compileColon2(x, ctx)
	case *ast.Colon3Node:
		ctx.RetrieveToplevelConstant(x.Name)
	case *ast.BackRefNode:
		ctx.RetrieveBackRef(x.Kind)
	case *ast.NthRefNode:
		ctx.RetrieveNthRef(x.N)
	case *ast.MultipleAsgnNode:
		c.compileMultipleAsgn(x, ctx)
	case *ast.OpAsgnNode:
		c.compileOpAsgn(x, ctx)
	case *ast.OpAsgnAndNode:
		c.Compile(x.First, ctx)
		ctx.PerformLogicalAnd(func(ctx BodyCompiler) { c.Compile(x.Second, ctx) })
	case *ast.OpAsgnOrNode:
		c.compileOpAsgnOr(x, ctx)
	case *ast.OpElementAsgnNode:
		c.compileOpElementAsgn(x, ctx)
	case *ast.AttrAssignNode:
		c.compileAttrAssign(x, ctx)

	// calls
	case *ast.CallNode:
		c.compileCall(x, ctx)
	case *ast.FCallNode:
		c.compileFCall(x, ctx)
	case *ast.VCallNode:
		ctx.InvokeDynamic(x.Name, nil, nil, VariableCall, nil, false)
	case *ast.SuperNode:
		closure, _ := c.closureArg(x.Iter)
		ctx.InvokeSuper(c.argsCallback(x.Args), closure)
	case *ast.ZSuperNode:
		closure, _ := c.closureArg(x.Iter)
		ctx.InvokeZSuper(closure)
	case *ast.YieldNode:
		c.compileYield(x, ctx)
	case *ast.SplatNode:
		c.Compile(x.Value, ctx)
		ctx.SplatToArray()
	case *ast.SValueNode:
		c.Compile(x.Value, ctx)
		ctx.SValue()
	case *ast.ToAryNode:
		c.Compile(x.Value, ctx)
		ctx.EnsureMultipleAssignableArray()
	case *ast.ArgsCatNode, *ast.ArgsPushNode:
		c.compileToArray(n, ctx)
	case *ast.ForNode:
		c.compileFor(x, ctx)

	// control flow
	case *ast.AndNode:
		c.Compile(x.First, ctx)
		ctx.PerformLogicalAnd(func(ctx BodyCompiler) { c.Compile(x.Second, ctx) })
	case *ast.OrNode:
		c.Compile(x.First, ctx)
		ctx.PerformLogicalOr(func(ctx BodyCompiler) { c.Compile(x.Second, ctx) })
	case *ast.NotNode:
		c.Compile(x.Cond, ctx)
		ctx.PerformBooleanBranch(
			func(ctx BodyCompiler) { ctx.LoadFalse() },
			func(ctx BodyCompiler) { ctx.LoadTrue() })
	case *ast.IfNode:
		c.compileIf(x, ctx)
	case *ast.CaseNode:
		c.compileCase(x, ctx)
	case *ast.WhileNode:
		c.compileLoop(x.Cond, x.Body, false, x.EvaluateAtStart, x.ContainsNonlocalFlow, ctx)
	case *ast.UntilNode:
		c.compileLoop(x.Cond, x.Body, true, x.EvaluateAtStart, x.ContainsNonlocalFlow, ctx)
	case *ast.BreakNode:
		c.Compile(x.Value, ctx)
		ctx.IssueBreakEvent()
	case *ast.NextNode:
		c.Compile(x.Value, ctx)
		ctx.IssueNextEvent()
	case *ast.RedoNode:
		ctx.IssueRedoEvent()
	case *ast.RetryNode:
		ctx.IssueRetryEvent()
	case *ast.ReturnNode:
		c.Compile(x.Value, ctx)
		ctx.PerformReturn()
	case *ast.RescueNode:
		c.compileRescue(x, ctx)
	case *ast.EnsureNode:
		c.compileEnsure(x, ctx)
	case *ast.DefinedNode:
		c.compileDefined(x, ctx)
	case *ast.MatchNode:
		c.Compile(x.Regexp, ctx)
		ctx.Match()
	case *ast.Match2Node:
		c.Compile(x.Receiver, ctx)
		c.Compile(x.Value, ctx)
		ctx.Match2()
	case *ast.Match3Node:
		c.Compile(x.Receiver, ctx)
		c.Compile(x.Value, ctx)
		ctx.Match3()

	// definitions
	case *ast.DefnNode:
		c.compileDefn(x, ctx)
	case *ast.DefsNode:
		c.compileDefs(x, ctx)
	case *ast.ClassNode:
		c.compileClass(x, ctx)
	case *ast.ModuleNode:
		c.compileModule(x, ctx)
	case *ast.SClassNode:
		c.compileSClass(x, ctx)
	case *ast.AliasNode:
		ctx.DefineAlias(x.New, x.Old)
	case *ast.VAliasNode:
		ctx.GlobalAlias(x.New, x.Old)
	case *ast.UndefNode:
		ctx.Undef(x.Name)
	case *ast.PreExeNode:
		ctx.CreateBeginEndBlock(c.beginEndSpec(x.Body, x.Position().Line, ctx), false)
	case *ast.PostExeNode:
		ctx.CreateBeginEndBlock(c.beginEndSpec(x.Body, x.Position().Line, ctx), true)

	case *ast.FlipNode:
		notCompilable(n, "flip-flop conditions keep hidden state")
	default:
		notCompilable(n, "no compilation rule for %s", n.NodeType())
	}
}

// compileBlock emits each statement, keeping only the last value.
func (c *ASTCompiler) compileBlock(n *ast.BlockNode, ctx BodyCompiler) {
	if len(n.Statements) == 0 {
		ctx.LoadNil()
		return
	}
	for i, stmt := range n.Statements {
		c.Compile(stmt, ctx)
		if i < len(n.Statements)-1 {
			ctx.Pop()
		}
	}
}

// compiler returns a callback compiling n.
func (c *ASTCompiler) compiler(n ast.Node) BranchCallback {
	return func(ctx BodyCompiler) { c.Compile(n, ctx) }
}
