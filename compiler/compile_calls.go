package compiler

import (
	"unicode"

	"github.com/chazu/garnet/ast"
)

// ---------------------------------------------------------------------------
// Argument lists
// ---------------------------------------------------------------------------

// fixedArgs pushes n separate values.
type fixedArgs struct {
	n    int
	emit BranchCallback
}

func (a fixedArgs) Arity() int { return a.n }
func (a fixedArgs) Call(ctx BodyCompiler) { a.emit(ctx) }

// spreadArgs pushes one array holding every argument.
type spreadArgs struct {
	emit BranchCallback
}

func (a spreadArgs) Arity() int { return VariableArity }
func (a spreadArgs) Call(ctx BodyCompiler) { a.emit(ctx) }

// argsCallback picks the calling path for an argument list: small literal
// lists pass values directly, everything else goes through an array.
func (c *ASTCompiler) argsCallback(args ast.Node) ArgumentsCallback {
	if args == nil {
		return nil
	}
	switch x := args.(type) {
	case *ast.ArrayNode:
		if x.Len() == 0 {
			return nil
		}
		if x.Len() <= c.MaxSpecificArity && !hasSplat(x) {
			return fixedArgs{n: x.Len(), emit: func(ctx BodyCompiler) {
				for _, e := range x.Elements {
					c.Compile(e, ctx)
				}
			}}
		}
	case *ast.ZArrayNode:
		return nil
	}
	return spreadArgs{emit: func(ctx BodyCompiler) { c.compileToArray(args, ctx) }}
}

// compileToArray pushes one array holding the values n denotes as an
// argument list.
func (c *ASTCompiler) compileToArray(n ast.Node, ctx BodyCompiler) {
	switch x := n.(type) {
	case *ast.ArrayNode:
		if !hasSplat(x) {
			c.compileArray(x, ctx)
			return
		}
		// splats inside literal lists are flattened in place
		ctx.CreateEmptyArray()
		for _, e := range x.Elements {
			if sp, ok := e.(*ast.SplatNode); ok {
				c.Compile(sp.Value, ctx)
				ctx.SplatToArray()
				ctx.ConcatArrays()
				continue
			}
			c.Compile(e, ctx)
			ctx.AppendToArray()
		}
	case *ast.ZArrayNode:
		ctx.CreateEmptyArray()
	case *ast.SplatNode:
		c.Compile(x.Value, ctx)
		ctx.SplatToArray()
	case *ast.ArgsCatNode:
		c.compileToArray(x.First, ctx)
		c.Compile(x.Second, ctx)
		ctx.SplatToArray()
		ctx.ConcatArrays()
	case *ast.ArgsPushNode:
		c.compileToArray(x.First, ctx)
		c.Compile(x.Second, ctx)
		ctx.AppendToArray()
	default:
		c.Compile(n, ctx)
		ctx.CreateNewArray(1)
	}
}

func hasSplat(n *ast.ArrayNode) bool {
	for _, e := range n.Elements {
		if _, ok := e.(*ast.SplatNode); ok {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

// closureArg returns the block argument of a call and whether it is a
// literal block whose break terminates the call.
func (c *ASTCompiler) closureArg(iter ast.Node) (BranchCallback, bool) {
	switch x := iter.(type) {
	case nil:
		return nil, false
	case *ast.IterNode:
		return func(ctx BodyCompiler) { ctx.CreateNewClosure(c.closureSpec(x)) }, true
	case *ast.BlockPassNode:
		return func(ctx BodyCompiler) {
			c.Compile(x.Body, ctx)
			ctx.ConvertToBlock()
		}, false
	}
	notCompilable(iter, "unexpected block argument %s", iter.NodeType())
	return nil, false
}

func (c *ASTCompiler) compileCall(n *ast.CallNode, ctx BodyCompiler) {
	closure, iterator := c.closureArg(n.Iter)
	ctx.InvokeDynamic(n.Name, c.compiler(n.Receiver), c.argsCallback(n.Args), NormalCall, closure, iterator)
}

func (c *ASTCompiler) compileFCall(n *ast.FCallNode, ctx BodyCompiler) {
	closure, iterator := c.closureArg(n.Iter)
	ctx.InvokeDynamic(n.Name, nil, c.argsCallback(n.Args), FunctionalCall, closure, iterator)
}

func (c *ASTCompiler) compileYield(n *ast.YieldNode, ctx BodyCompiler) {
	if n.Args == nil {
		ctx.Yield(false, false)
		return
	}
	switch n.Args.(type) {
	case *ast.SplatNode, *ast.ArgsCatNode, *ast.ArgsPushNode:
		c.compileToArray(n.Args, ctx)
		ctx.Yield(true, true)
		return
	}
	c.Compile(n.Args, ctx)
	ctx.Yield(true, n.Expand)
}

// compileFor emits for var in expr as expr.each with a block that shares
// the surrounding variables.
func (c *ASTCompiler) compileFor(n *ast.ForNode, ctx BodyCompiler) {
	spec := ClosureSpec{
		Line:      n.Position().Line,
		Scope:     ctx.Scope(),
		Arity:     procArityOf(n.Var),
		Body:      c.compiler(n.Body),
		ArgsType:  argsTypeOf(n.Var),
		Inspector: Inspect(n.Body),
	}
	if m, ok := n.Var.(*ast.MultipleAsgnNode); ok {
		spec.HasMultipleArgsHead = m.Head != nil
	}
	spec.Args = c.blockArgsCallback(n.Var)
	ctx.InvokeDynamic("each", c.compiler(n.Iter), nil, NormalCall,
		func(ctx BodyCompiler) { ctx.CreateNewForLoop(spec) }, true)
}

// isConstantName reports whether a scoped name denotes a constant rather
// than a method.
func isConstantName(name string) bool {
	for _, r := range name {
		return unicode.IsUpper(r)
	}
	return false
}

func (c *ASTCompiler) compileColon2(n *ast.Colon2Node, ctx BodyCompiler) {
	if n.Left == nil {
		ctx.RetrieveConstant(n.Name)
		return
	}
	if !isConstantName(n.Name) {
		ctx.InvokeDynamic(n.Name, c.compiler(n.Left), nil, NormalCall, nil, false)
		return
	}
	c.Compile(n.Left, ctx)
	ctx.RetrieveConstantFrom(n.Name)
}
