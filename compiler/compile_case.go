package compiler

import (
	"math"
	"sort"

	"github.com/chazu/garnet/ast"
)

// compileCase emits case/when. With a subject every candidate is tested
// with candidate === subject; without one each candidate is a condition.
// When every candidate is a small integer literal a jump table is tried
// first for integer subjects, falling back to the === chain otherwise.
func (c *ASTCompiler) compileCase(n *ast.CaseNode, ctx BodyCompiler) {
	if n.Subject == nil {
		c.compileWhens(n, 0, 0, false, ctx)
		return
	}
	c.Compile(n.Subject, ctx)
	ctx.PollThreadEvents()
	if c.FastCase {
		if cases, targets, ok := fixnumCases(n); ok {
			bodies := make([]BranchCallback, len(n.Whens))
			for i, w := range n.Whens {
				bodies[i] = c.compiler(w.Body)
			}
			ctx.TypeCheckBranch(FixnumKind, func(ctx BodyCompiler) {
				ctx.LiteralSwitch(cases, targets, bodies, c.compiler(n.Else))
			}, func(ctx BodyCompiler) {
				c.compileWhens(n, 0, 0, true, ctx)
			})
			return
		}
	}
	c.compileWhens(n, 0, 0, true, ctx)
}

// candidates returns the expressions of one when clause.
func candidates(w *ast.WhenNode) []ast.Node {
	if a, ok := w.Exprs.(*ast.ArrayNode); ok {
		return a.Elements
	}
	if w.Exprs == nil {
		return nil
	}
	return []ast.Node{w.Exprs}
}

// compileWhens emits the test of candidate j of clause i and everything
// after it. With a subject, the subject is on the stack and is replaced by
// the result.
func (c *ASTCompiler) compileWhens(n *ast.CaseNode, i, j int, hasSubject bool, ctx BodyCompiler) {
	if i == len(n.Whens) {
		if hasSubject {
			ctx.Pop()
		}
		c.Compile(n.Else, ctx)
		return
	}
	w := n.Whens[i]
	cands := candidates(w)
	if j >= len(cands) {
		c.compileWhens(n, i+1, 0, hasSubject, ctx)
		return
	}
	cand := ast.Unwrap(cands[j])
	switch x := cand.(type) {
	case *ast.SplatNode, *ast.ArgsCatNode, *ast.ArgsPushNode:
		if hasSubject {
			ctx.Dup()
		}
		if sp, ok := x.(*ast.SplatNode); ok {
			c.Compile(sp.Value, ctx)
			ctx.SplatToArray()
		} else {
			c.compileToArray(x, ctx)
		}
		ctx.CaseSplatMatch(hasSubject)
	default:
		if hasSubject {
			ctx.Dup()
			c.Compile(cand, ctx)
			ctx.Swap()
			ctx.InvokeStack("===", 1)
		} else {
			c.Compile(cand, ctx)
		}
	}
	ctx.PerformBooleanBranch(func(ctx BodyCompiler) {
		if hasSubject {
			ctx.Pop()
		}
		c.Compile(w.Body, ctx)
	}, func(ctx BodyCompiler) {
		c.compileWhens(n, i, j+1, hasSubject, ctx)
	})
}

// fixnumCases collects the jump table of a case whose candidates are all
// integer literals fitting in 32 bits. The first clause listing a value
// wins; the table is sorted by value.
func fixnumCases(n *ast.CaseNode) (cases []int64, targets []int, ok bool) {
	type entry struct {
		value  int64
		target int
	}
	var entries []entry
	seen := make(map[int64]bool)
	for i, w := range n.Whens {
		a, isArray := w.Exprs.(*ast.ArrayNode)
		if !isArray || a.Len() == 0 {
			return nil, nil, false
		}
		for _, e := range a.Elements {
			f, isFixnum := ast.Unwrap(e).(*ast.FixnumNode)
			if !isFixnum || f.Value < math.MinInt32 || f.Value > math.MaxInt32 {
				return nil, nil, false
			}
			if seen[f.Value] {
				continue
			}
			seen[f.Value] = true
			entries = append(entries, entry{f.Value, i})
		}
	}
	if len(entries) == 0 {
		return nil, nil, false
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].value < entries[b].value })
	for _, e := range entries {
		cases = append(cases, e.value)
		targets = append(targets, e.target)
	}
	return cases, targets, true
}
