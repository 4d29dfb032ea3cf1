package compiler

import "github.com/chazu/garnet/ast"

func (c *ASTCompiler) compileIf(n *ast.IfNode, ctx BodyCompiler) {
	c.Compile(n.Cond, ctx)
	ctx.PerformBooleanBranch(c.compiler(n.Then), c.compiler(n.Else))
}

// ---------------------------------------------------------------------------
// Loops
// ---------------------------------------------------------------------------

// compileLoop emits while (or until, when negate is set). Loops whose jumps
// may cross an exception region run in safe mode where break, next and redo
// unwind as events; all others use plain jumps.
func (c *ASTCompiler) compileLoop(cond, body ast.Node, negate, checkFirst, nonlocal bool, ctx BodyCompiler) {
	condition := func(ctx BodyCompiler) {
		c.Compile(cond, ctx)
		if negate {
			ctx.PerformBooleanBranch(
				func(ctx BodyCompiler) { ctx.LoadFalse() },
				func(ctx BodyCompiler) { ctx.LoadTrue() })
		}
	}
	loopBody := func(ctx BodyCompiler) {
		ctx.PollThreadEvents()
		c.Compile(body, ctx)
	}
	if nonlocal || LoopNeedsSafeMode(body) {
		ctx.PerformBooleanLoopSafe(condition, loopBody, checkFirst)
		return
	}
	ctx.PerformBooleanLoopLight(condition, loopBody, checkFirst)
}

// ---------------------------------------------------------------------------
// Exceptions
// ---------------------------------------------------------------------------

// compileRescue emits begin/rescue/else. Handlers are tested in order; an
// exception no clause matches is raised again.
func (c *ASTCompiler) compileRescue(n *ast.RescueNode, ctx BodyCompiler) {
	var elseBody BranchCallback
	if n.Else != nil {
		elseBody = c.compiler(n.Else)
	}
	ctx.PerformRescue(c.compiler(n.Body), func(ctx BodyCompiler) {
		c.compileRescueBody(n.Rescue, ctx)
	}, elseBody)
}

// compileRescueBody replaces the exception on top with the value of the
// first matching clause. A clause without classes matches StandardError.
func (c *ASTCompiler) compileRescueBody(rb *ast.RescueBodyNode, ctx BodyCompiler) {
	if rb == nil {
		ctx.Rethrow()
		return
	}
	if rb.Exceptions == nil {
		ctx.RetrieveToplevelConstant("StandardError")
		ctx.CreateNewArray(1)
	} else {
		c.compileToArray(rb.Exceptions, ctx)
	}
	ctx.RescueMatches()
	ctx.PerformBooleanBranch(func(ctx BodyCompiler) {
		ctx.Pop()
		ctx.PollThreadEvents()
		c.Compile(rb.Body, ctx)
	}, func(ctx BodyCompiler) {
		c.compileRescueBody(rb.Next, ctx)
	})
}

func (c *ASTCompiler) compileEnsure(n *ast.EnsureNode, ctx BodyCompiler) {
	ctx.PerformEnsure(c.compiler(n.Body), func(ctx BodyCompiler) {
		c.Compile(n.Ensure, ctx)
		ctx.Pop()
	})
}
