package compiler

import (
	"strconv"

	"github.com/chazu/garnet/ast"
)

// compileDefined emits defined?(expr): a description of expr, or nil when
// it would not resolve. The expression itself is only evaluated where a
// receiver must be known, and then with exceptions suppressed.
func (c *ASTCompiler) compileDefined(n *ast.DefinedNode, ctx BodyCompiler) {
	c.compileGetDefinition(ast.Unwrap(n.Expr), ctx)
}

// probe turns the boolean on top into desc or nil.
func probe(ctx BodyCompiler, desc string) {
	ctx.PerformBooleanBranch(
		func(ctx BodyCompiler) { ctx.CreateNewString(desc) },
		func(ctx BodyCompiler) { ctx.LoadNil() })
}

// ifDefined runs then when the definition string on top is not nil,
// leaving nil otherwise.
func ifDefined(ctx BodyCompiler, then BranchCallback) {
	ctx.PerformBooleanBranch(then, func(ctx BodyCompiler) { ctx.LoadNil() })
}

// compileGetDefinition pushes the description of n or nil.
func (c *ASTCompiler) compileGetDefinition(n ast.Node, ctx BodyCompiler) {
	switch x := n.(type) {
	case nil:
		ctx.CreateNewString("expression")
	case *ast.NilNode:
		ctx.CreateNewString("nil")
	case *ast.SelfNode:
		ctx.CreateNewString("self")
	case *ast.TrueNode:
		ctx.CreateNewString("true")
	case *ast.FalseNode:
		ctx.CreateNewString("false")
	case *ast.NewlineNode:
		c.compileGetDefinition(x.Next, ctx)

	case *ast.LocalAsgnNode, *ast.DAsgnNode, *ast.InstAsgnNode, *ast.GlobalAsgnNode,
		*ast.ClassVarAsgnNode, *ast.ClassVarDeclNode, *ast.ConstDeclNode,
		*ast.MultipleAsgnNode, *ast.OpAsgnNode, *ast.OpAsgnAndNode, *ast.OpAsgnOrNode,
		*ast.OpElementAsgnNode:
		ctx.CreateNewString("assignment")

	case *ast.LocalVarNode:
		ctx.CreateNewString("local-variable")
	case *ast.DVarNode:
		ctx.CreateNewString("local-variable(in-block)")
	case *ast.Match2Node, *ast.Match3Node:
		ctx.CreateNewString("method")

	case *ast.BackRefNode:
		ctx.IsBackRefDefined(x.Kind)
		probe(ctx, "$"+string(x.Kind))
	case *ast.NthRefNode:
		ctx.IsNthRefDefined(x.N)
		probe(ctx, "$"+strconv.Itoa(x.N))
	case *ast.YieldNode:
		ctx.IsBlockGiven()
		probe(ctx, "yield")
	case *ast.InstVarNode:
		ctx.IsInstanceVariableDefined(x.Name)
		probe(ctx, "instance-variable")
	case *ast.GlobalVarNode:
		ctx.IsGlobalDefined(x.Name)
		probe(ctx, "global-variable")
	case *ast.ClassVarNode:
		ctx.IsClassVariableDefined(x.Name)
		probe(ctx, "class variable")
	case *ast.ConstNode:
		ctx.IsConstantDefined(x.Name)
		probe(ctx, "constant")
	case *ast.SuperNode, *ast.ZSuperNode:
		ctx.IsSuperDefined()
		probe(ctx, "super")

	case *ast.VCallNode:
		ctx.LoadSelf()
		ctx.IsMethodBound(x.Name, AnyVisibility)
		probe(ctx, "method")
	case *ast.FCallNode:
		ctx.LoadSelf()
		ctx.IsMethodBound(x.Name, AnyVisibility)
		ctx.PerformBooleanBranch(func(ctx BodyCompiler) {
			c.compileArgumentsDefinition(x.Args, "method", ctx)
		}, func(ctx BodyCompiler) { ctx.LoadNil() })
	case *ast.CallNode:
		c.compileReceiverDefinition(x.Receiver, x.Name, x.Args, "method", ctx)
	case *ast.AttrAssignNode:
		c.compileReceiverDefinition(x.Receiver, x.Name, x.Args, "assignment", ctx)
	case *ast.Colon2Node:
		c.compileColon2Definition(x, ctx)
	case *ast.Colon3Node:
		ctx.PerformSuppressed(func(ctx BodyCompiler) {
			ctx.RetrieveToplevelConstant(x.Name)
			ctx.Pop()
			ctx.CreateNewString("constant")
		}, func(ctx BodyCompiler) { ctx.LoadNil() })

	default:
		ctx.CreateNewString("expression")
	}
}

// compileArgumentsDefinition pushes desc when every argument is defined,
// else nil.
func (c *ASTCompiler) compileArgumentsDefinition(args ast.Node, desc string, ctx BodyCompiler) {
	var elems []ast.Node
	switch x := args.(type) {
	case nil:
	case *ast.ArrayNode:
		elems = x.Elements
	default:
		elems = []ast.Node{args}
	}
	var check func(i int, ctx BodyCompiler)
	check = func(i int, ctx BodyCompiler) {
		if i == len(elems) {
			ctx.CreateNewString(desc)
			return
		}
		c.compileGetDefinition(ast.Unwrap(elems[i]), ctx)
		ifDefined(ctx, func(ctx BodyCompiler) { check(i+1, ctx) })
	}
	check(0, ctx)
}

// compileReceiverDefinition handles recv.name(args): the receiver must be
// defined, its evaluation must not raise, and name must be publicly bound
// on the result.
func (c *ASTCompiler) compileReceiverDefinition(recv ast.Node, name string, args ast.Node, desc string, ctx BodyCompiler) {
	bound := func(ctx BodyCompiler) {
		ctx.PerformSuppressed(func(ctx BodyCompiler) {
			visibility := PublicVisibility
			if recv == nil {
				ctx.LoadSelf()
				visibility = AnyVisibility
			} else {
				c.Compile(recv, ctx)
			}
			ctx.IsMethodBound(name, visibility)
			ctx.PerformBooleanBranch(func(ctx BodyCompiler) {
				c.compileArgumentsDefinition(args, desc, ctx)
			}, func(ctx BodyCompiler) { ctx.LoadNil() })
		}, func(ctx BodyCompiler) { ctx.LoadNil() })
	}
	if recv == nil {
		bound(ctx)
		return
	}
	c.compileGetDefinition(ast.Unwrap(recv), ctx)
	ifDefined(ctx, bound)
}

func (c *ASTCompiler) compileColon2Definition(n *ast.Colon2Node, ctx BodyCompiler) {
	if n.Left == nil {
		ctx.IsConstantDefined(n.Name)
		probe(ctx, "constant")
		return
	}
	c.compileGetDefinition(ast.Unwrap(n.Left), ctx)
	ifDefined(ctx, func(ctx BodyCompiler) {
		ctx.PerformSuppressed(func(ctx BodyCompiler) {
			c.Compile(n.Left, ctx)
			if isConstantName(n.Name) {
				ctx.IsConstantDefinedFrom(n.Name)
				probe(ctx, "constant")
				return
			}
			ctx.IsMethodBound(n.Name, PublicVisibility)
			probe(ctx, "method")
		}, func(ctx BodyCompiler) { ctx.LoadNil() })
	})
}
