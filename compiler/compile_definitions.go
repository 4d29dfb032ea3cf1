package compiler

import "github.com/chazu/garnet/ast"

func (c *ASTCompiler) compileDefn(n *ast.DefnNode, ctx BodyCompiler) {
	ctx.DefineNewMethod(MethodSpec{
		Name:      n.Name,
		Line:      n.Position().Line,
		Scope:     n.Scope,
		Arity:     n.Scope.Arity(),
		Body:      c.compiler(n.Body),
		Args:      c.optionalArgsCallback(n.Args),
		BlockArg:  blockArgSlot(n.Args),
		Inspector: inspectMethod(n.Args, n.Body),
	})
}

// compileDefs emits def recv.name; the receiver is evaluated first.
func (c *ASTCompiler) compileDefs(n *ast.DefsNode, ctx BodyCompiler) {
	c.Compile(n.Receiver, ctx)
	ctx.DefineNewMethod(MethodSpec{
		Name:      n.Name,
		Line:      n.Position().Line,
		Scope:     n.Scope,
		Arity:     n.Scope.Arity(),
		Body:      c.compiler(n.Body),
		Args:      c.optionalArgsCallback(n.Args),
		BlockArg:  blockArgSlot(n.Args),
		Singleton: true,
		Inspector: inspectMethod(n.Args, n.Body),
	})
}

func blockArgSlot(args *ast.ArgsNode) int {
	if args == nil || args.Block == nil {
		return -1
	}
	return args.Block.Index
}

func inspectMethod(args *ast.ArgsNode, body ast.Node) *ASTInspector {
	i := Inspect(body)
	if args != nil {
		i.Inspect(args)
	}
	return i
}

// optionalArgsCallback evaluates the default of every optional parameter
// the caller did not pass, in declaration order.
func (c *ASTCompiler) optionalArgsCallback(args *ast.ArgsNode) BranchCallback {
	if args.OptionalCount() == 0 {
		return nil
	}
	required := args.RequiredCount()
	return func(ctx BodyCompiler) {
		for i, opt := range args.Optional {
			ctx.CheckArgGiven(required + i)
			ctx.PerformBooleanBranch(
				func(ctx BodyCompiler) { ctx.LoadNil() },
				c.compiler(opt))
			ctx.Pop()
		}
	}
}

// classPath pushes the container of a class or module path and fills in
// the ClassSpec naming fields.
func (c *ASTCompiler) classPath(cpath ast.Node, spec *ClassSpec, ctx BodyCompiler) {
	switch p := cpath.(type) {
	case *ast.Colon2Node:
		spec.Name = p.Name
		if p.Left != nil {
			c.Compile(p.Left, ctx)
			spec.HasPath = true
		}
	case *ast.Colon3Node:
		spec.Name = p.Name
		spec.TopLevel = true
	case *ast.ConstNode:
		spec.Name = p.Name
	default:
		notCompilable(cpath, "unexpected class path %s", cpath.NodeType())
	}
}

func (c *ASTCompiler) compileClass(n *ast.ClassNode, ctx BodyCompiler) {
	spec := ClassSpec{
		Line:  n.Position().Line,
		Scope: n.Scope,
		Body:  c.compiler(n.Body),
	}
	c.classPath(n.CPath, &spec, ctx)
	if n.Super != nil {
		c.Compile(n.Super, ctx)
		spec.HasSuper = true
	}
	ctx.DefineClass(spec)
}

func (c *ASTCompiler) compileModule(n *ast.ModuleNode, ctx BodyCompiler) {
	spec := ClassSpec{
		Line:  n.Position().Line,
		Scope: n.Scope,
		Body:  c.compiler(n.Body),
	}
	c.classPath(n.CPath, &spec, ctx)
	ctx.DefineModule(spec)
}

// compileSClass emits class << recv; the receiver is on the stack.
func (c *ASTCompiler) compileSClass(n *ast.SClassNode, ctx BodyCompiler) {
	c.Compile(n.Receiver, ctx)
	ctx.DefineSingletonClass(ClassSpec{
		Line:    n.Position().Line,
		Scope:   n.Scope,
		Body:    c.compiler(n.Body),
		HasPath: true,
	})
}
