package compiler

import "github.com/chazu/garnet/ast"

// compileAssignment emits a simple assignment; the assigned value is the
// expression's value.
func (c *ASTCompiler) compileAssignment(n ast.Node, ctx BodyCompiler) {
	switch x := n.(type) {
	case *ast.LocalAsgnNode:
		c.Compile(x.Value, ctx)
	case *ast.DAsgnNode:
		c.Compile(x.Value, ctx)
	case *ast.InstAsgnNode:
		c.Compile(x.Value, ctx)
	case *ast.GlobalAsgnNode:
		c.Compile(x.Value, ctx)
	case *ast.ClassVarAsgnNode:
		c.Compile(x.Value, ctx)
	case *ast.ClassVarDeclNode:
		c.Compile(x.Value, ctx)
	case *ast.ConstDeclNode:
		c.compileConstDecl(x, ctx)
		return
	}
	c.compileAssignmentTarget(n, ctx)
}

func (c *ASTCompiler) compileConstDecl(n *ast.ConstDeclNode, ctx BodyCompiler) {
	switch p := n.Path.(type) {
	case nil:
		c.Compile(n.Value, ctx)
		ctx.AssignConstantInCurrent(n.Name)
	case *ast.Colon2Node:
		c.Compile(p.Left, ctx)
		c.Compile(n.Value, ctx)
		ctx.AssignConstantInModule(n.Name)
	case *ast.Colon3Node:
		c.Compile(n.Value, ctx)
		ctx.AssignConstantInObject(n.Name)
	default:
		notCompilable(n, "unexpected constant path %s", p.NodeType())
	}
}

// compileAssignmentTarget stores the value on top of the stack into the
// target n, leaving the value in place. The target's own Value is ignored.
func (c *ASTCompiler) compileAssignmentTarget(n ast.Node, ctx BodyCompiler) {
	switch x := n.(type) {
	case *ast.LocalAsgnNode:
		ctx.AssignLocal(x.Index, 0)
	case *ast.DAsgnNode:
		ctx.AssignLocal(x.Index, x.Depth)
	case *ast.InstAsgnNode:
		ctx.AssignInstanceVariable(x.Name)
	case *ast.GlobalAsgnNode:
		ctx.AssignGlobal(x.Name)
	case *ast.ClassVarAsgnNode:
		ctx.AssignClassVariable(x.Name)
	case *ast.ClassVarDeclNode:
		ctx.DeclareClassVariable(x.Name)
	case *ast.ConstDeclNode:
		switch p := x.Path.(type) {
		case nil:
			ctx.AssignConstantInCurrent(x.Name)
		case *ast.Colon2Node:
			ctx.Dup()
			c.Compile(p.Left, ctx)
			ctx.Swap()
			ctx.AssignConstantInModule(x.Name)
			ctx.Pop()
		case *ast.Colon3Node:
			ctx.AssignConstantInObject(x.Name)
		}
	case *ast.AttrAssignNode:
		ctx.Dup()
		c.compileReceiver(x.Receiver, ctx)
		if x.Args == nil {
			ctx.CreateEmptyArray()
		} else {
			c.compileToArray(x.Args, ctx)
		}
		ctx.InvokeAttrAssignValue(x.Name)
		ctx.Pop()
	case *ast.MultipleAsgnNode:
		ctx.Dup()
		ctx.EnsureMultipleAssignableArray()
		c.destructure(x, ctx)
		ctx.Pop()
	case *ast.SplatNode:
		// *a as a lone target collects into a
		c.compileAssignmentTarget(x.Value, ctx)
	default:
		notCompilable(n, "cannot assign to %s", n.NodeType())
	}
}

func (c *ASTCompiler) compileReceiver(n ast.Node, ctx BodyCompiler) {
	if n == nil {
		ctx.LoadSelf()
		return
	}
	c.Compile(n, ctx)
}

// ---------------------------------------------------------------------------
// Multiple assignment
// ---------------------------------------------------------------------------

// compileMultipleAsgn evaluates the right-hand side, converts it to an
// array and assigns elements to the head targets in order, missing ones as
// nil, and the remainder to the rest target. The array is the value.
func (c *ASTCompiler) compileMultipleAsgn(n *ast.MultipleAsgnNode, ctx BodyCompiler) {
	c.Compile(n.Value, ctx)
	ctx.EnsureMultipleAssignableArray()
	c.destructure(n, ctx)
}

// destructure assigns from the array on top, leaving it.
func (c *ASTCompiler) destructure(n *ast.MultipleAsgnNode, ctx BodyCompiler) {
	assign := func(ctx BodyCompiler, source *ast.ArrayNode, index int) {
		c.compileAssignmentTarget(source.Elements[index], ctx)
		ctx.Pop()
	}
	var rest BranchCallback
	switch n.Args.(type) {
	case nil:
	case *ast.StarNode:
		rest = func(ctx BodyCompiler) { ctx.Pop() }
	default:
		rest = func(ctx BodyCompiler) {
			c.compileAssignmentTarget(n.Args, ctx)
			ctx.Pop()
		}
	}
	ctx.ForEachInValueArray(0, n.Head.Len(), n.Head, assign, rest)
}

// ---------------------------------------------------------------------------
// Operator assignment
// ---------------------------------------------------------------------------

func (c *ASTCompiler) compileOpAsgn(n *ast.OpAsgnNode, ctx BodyCompiler) {
	c.compileReceiver(n.Receiver, ctx)
	ctx.AttrOpAssign(n.Attribute, n.Operator, c.compiler(n.Value))
}

func (c *ASTCompiler) compileOpElementAsgn(n *ast.OpElementAsgnNode, ctx BodyCompiler) {
	c.compileReceiver(n.Receiver, ctx)
	if n.Args == nil {
		ctx.CreateEmptyArray()
	} else {
		c.compileToArray(n.Args, ctx)
	}
	ctx.ElementOpAssign(n.Operator, c.compiler(n.Value))
}

// compileOpAsgnOr emits a ||= b. Reads of variables that may be undefined
// are guarded so they yield nil instead of raising or warning.
func (c *ASTCompiler) compileOpAsgnOr(n *ast.OpAsgnOrNode, ctx BodyCompiler) {
	guard := func(probe func(), read ast.Node) {
		probe()
		ctx.PerformBooleanBranch(c.compiler(read), func(ctx BodyCompiler) { ctx.LoadNil() })
	}
	switch x := n.First.(type) {
	case *ast.InstVarNode:
		guard(func() { ctx.IsInstanceVariableDefined(x.Name) }, x)
	case *ast.GlobalVarNode:
		guard(func() { ctx.IsGlobalDefined(x.Name) }, x)
	case *ast.ClassVarNode:
		guard(func() { ctx.IsClassVariableDefined(x.Name) }, x)
	case *ast.ConstNode:
		guard(func() { ctx.IsConstantDefined(x.Name) }, x)
	default:
		c.Compile(n.First, ctx)
	}
	ctx.PerformLogicalOr(c.compiler(n.Second))
}

// compileAttrAssign emits recv.name = args; the last argument is the value.
func (c *ASTCompiler) compileAttrAssign(n *ast.AttrAssignNode, ctx BodyCompiler) {
	c.compileReceiver(n.Receiver, ctx)
	if n.Args == nil {
		ctx.CreateEmptyArray()
	} else {
		c.compileToArray(n.Args, ctx)
	}
	ctx.InvokeAttrAssign(n.Name)
}
