package compiler

import (
	"github.com/chazu/garnet/ast"
	"github.com/chazu/garnet/scope"
)

// argsTypeOf classifies a block's parameter node.
func argsTypeOf(v ast.Node) ArgsType {
	switch x := v.(type) {
	case nil, *ast.ZeroArgNode:
		return ArgsZero
	case *ast.MultipleAsgnNode:
		if x.Head == nil {
			return ArgsSingleRest
		}
		return ArgsMultipleAssignment
	}
	return ArgsFixed
}

// procArityOf derives the arity a block reports from its parameter node.
// A block without parameters accepts anything; |a, *b| requires one.
func procArityOf(v ast.Node) scope.Arity {
	switch x := v.(type) {
	case nil:
		return scope.OptionalArity()
	case *ast.ZeroArgNode:
		return scope.FixedArity(0)
	case *ast.MultipleAsgnNode:
		if x.Args != nil {
			return scope.RequiredArity(x.Head.Len())
		}
		return scope.FixedArity(x.Head.Len())
	}
	return scope.FixedArity(1)
}

// blockArgsCallback binds the coerced incoming value to the parameter
// node, consuming it. Destructuring parameters receive an array.
func (c *ASTCompiler) blockArgsCallback(v ast.Node) BranchCallback {
	switch x := v.(type) {
	case nil, *ast.ZeroArgNode:
		return nil
	case *ast.MultipleAsgnNode:
		return func(ctx BodyCompiler) {
			c.destructure(x, ctx)
			ctx.Pop()
		}
	}
	return func(ctx BodyCompiler) {
		c.compileAssignmentTarget(v, ctx)
		ctx.Pop()
	}
}

func (c *ASTCompiler) closureSpec(n *ast.IterNode) ClosureSpec {
	spec := ClosureSpec{
		Line:      n.Position().Line,
		Scope:     n.Scope,
		Arity:     procArityOf(n.Var),
		Body:      c.compiler(n.Body),
		Args:      c.blockArgsCallback(n.Var),
		ArgsType:  argsTypeOf(n.Var),
		Inspector: Inspect(n.Var, n.Body),
	}
	if m, ok := n.Var.(*ast.MultipleAsgnNode); ok {
		spec.HasMultipleArgsHead = m.Head != nil
	}
	return spec
}

// beginEndSpec describes a BEGIN or END block body. It shares the
// surrounding scope like a for loop body.
func (c *ASTCompiler) beginEndSpec(body ast.Node, line int, ctx BodyCompiler) ClosureSpec {
	return ClosureSpec{
		Line:      line,
		Scope:     ctx.Scope(),
		Arity:     scope.OptionalArity(),
		Body:      c.compiler(body),
		ArgsType:  ArgsZero,
		Inspector: Inspect(body),
	}
}
