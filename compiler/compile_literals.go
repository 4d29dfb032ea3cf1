package compiler

import "github.com/chazu/garnet/ast"

func (c *ASTCompiler) compileArray(n *ast.ArrayNode, ctx BodyCompiler) {
	for _, e := range n.Elements {
		c.Compile(e, ctx)
	}
	ctx.CreateNewArray(len(n.Elements))
}

func (c *ASTCompiler) compileHash(n *ast.HashNode, ctx BodyCompiler) {
	for _, e := range n.Entries {
		c.Compile(e, ctx)
	}
	if len(n.Entries)%2 != 0 {
		ctx.LoadNil()
	}
	ctx.CreateNewHash((len(n.Entries) + 1) / 2)
}

// compileParts builds the string of an interpolation.
func (c *ASTCompiler) compileParts(parts []ast.Node, ctx BodyCompiler) {
	for _, p := range parts {
		c.Compile(p, ctx)
	}
	ctx.BuildString(len(parts))
}

// Backtick literals are calls to the ` method on self.
func (c *ASTCompiler) compileXStr(n *ast.XStrNode, ctx BodyCompiler) {
	ctx.InvokeDynamic("`", nil, fixedArgs{n: 1, emit: func(ctx BodyCompiler) {
		ctx.CreateNewString(n.Value)
	}}, FunctionalCall, nil, false)
}

func (c *ASTCompiler) compileDXStr(n *ast.DXStrNode, ctx BodyCompiler) {
	ctx.InvokeDynamic("`", nil, fixedArgs{n: 1, emit: func(ctx BodyCompiler) {
		c.compileParts(n.Parts, ctx)
	}}, FunctionalCall, nil, false)
}
