package compiler

import (
	"fmt"

	"github.com/chazu/garnet/ast"
)

// NotCompilableError reports a tree this compiler refuses. Callers fall back
// to another execution strategy for the unit.
type NotCompilableError struct {
	Node   ast.Node
	Reason string
}

func (e *NotCompilableError) Error() string {
	if e.Node == nil {
		return "not compilable: " + e.Reason
	}
	return fmt.Sprintf("not compilable at %s (%s): %s", e.Node.Position(), e.Node.NodeType(), e.Reason)
}

func notCompilable(n ast.Node, format string, args ...any) {
	panic(&NotCompilableError{Node: n, Reason: fmt.Sprintf(format, args...)})
}

// ---------------------------------------------------------------------------
// ASTInspector
// ---------------------------------------------------------------------------

// frameAwareMethods read or alter the caller's frame and so need a full
// frame even in otherwise simple bodies.
var frameAwareMethods = map[string]bool{
	"binding":         true,
	"block_given?":    true,
	"iterator?":       true,
	"eval":            true,
	"instance_eval":   true,
	"class_eval":      true,
	"module_eval":     true,
	"local_variables": true,
	"__method__":      true,
}

// ASTInspector collects facts about a body that influence how it is emitted.
type ASTInspector struct {
	HasClosure      bool
	HasFrameAware   bool
	// HasRegion is set for constructs emitted as separate protected
	// regions: rescue, ensure, defined? and loops forced into safe mode.
	HasRegion       bool
	HasNonlocalFlow bool
}

// ReturnsLocally reports whether every return aimed at a method with these
// facts is executed by the method's own activation. Closures and protected
// regions return to it by unwinding instead.
func (i *ASTInspector) ReturnsLocally() bool {
	return !i.HasClosure && !i.HasRegion && !i.HasFrameAware
}

// NextsLocally reports whether a block body with these facts can finish
// only by falling off its end or by a top-level next.
func (i *ASTInspector) NextsLocally() bool { return !i.HasNonlocalFlow }

// Inspect records facts about n. Nested method, class and module bodies are
// not entered; block bodies are.
func (i *ASTInspector) Inspect(n ast.Node) {
	ast.Walk(n, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.IterNode, *ast.ForNode, *ast.PreExeNode, *ast.PostExeNode:
			i.HasClosure = true
		case *ast.FCallNode:
			if frameAwareMethods[x.Name] {
				i.HasFrameAware = true
			}
		case *ast.VCallNode:
			if frameAwareMethods[x.Name] {
				i.HasFrameAware = true
			}
		case *ast.ZSuperNode:
			i.HasFrameAware = true
		case *ast.RescueNode, *ast.EnsureNode, *ast.DefinedNode:
			i.HasRegion = true
		case *ast.WhileNode:
			if x.ContainsNonlocalFlow {
				i.HasRegion = true
			}
		case *ast.UntilNode:
			if x.ContainsNonlocalFlow {
				i.HasRegion = true
			}
		case *ast.BreakNode, *ast.NextNode, *ast.RedoNode, *ast.RetryNode:
			i.HasNonlocalFlow = true
		case *ast.DefnNode, *ast.DefsNode, *ast.ClassNode, *ast.ModuleNode, *ast.SClassNode:
			return false
		}
		return true
	})
}

// Inspect returns a fresh inspector over the given nodes.
func Inspect(nodes ...ast.Node) *ASTInspector {
	i := &ASTInspector{}
	for _, n := range nodes {
		i.Inspect(n)
	}
	return i
}

// LoopNeedsSafeMode reports whether a loop body must be emitted in safe
// mode: break, next or redo may then cross an exception region and so
// cannot be plain jumps.
func LoopNeedsSafeMode(body ast.Node) bool {
	regions := false
	jumps := false
	ast.Walk(body, func(n ast.Node) bool {
		switch n.(type) {
		case *ast.RescueNode, *ast.EnsureNode:
			regions = true
		case *ast.BreakNode, *ast.NextNode, *ast.RedoNode:
			jumps = true
		case *ast.IterNode, *ast.ForNode, *ast.DefnNode, *ast.DefsNode,
			*ast.ClassNode, *ast.ModuleNode, *ast.SClassNode, *ast.WhileNode, *ast.UntilNode:
			return false
		}
		return true
	})
	return regions && jumps
}

// ---------------------------------------------------------------------------
// Compilability
// ---------------------------------------------------------------------------

// CheckCompilable reports the first construct in n this compiler refuses,
// as a *NotCompilableError, or nil.
func CheckCompilable(n ast.Node) error {
	var found error
	ast.Walk(n, func(n ast.Node) bool {
		if found != nil {
			return false
		}
		switch x := n.(type) {
		case *ast.FlipNode:
			found = &NotCompilableError{Node: x, Reason: "flip-flop conditions keep hidden state"}
		case *ast.ArgsNode:
			if err := checkOptionalDefaults(x); err != nil {
				found = err
			}
		}
		return found == nil
	})
	return found
}

// checkOptionalDefaults refuses default expressions that assign variables
// other than their own parameter, since defaults are evaluated out of
// declaration order.
func checkOptionalDefaults(args *ast.ArgsNode) error {
	for _, opt := range args.Optional {
		var bad ast.Node
		ast.Walk(opt.Value, func(n ast.Node) bool {
			if bad != nil {
				return false
			}
			switch x := n.(type) {
			case *ast.LocalAsgnNode:
				if x.Index != opt.Index {
					bad = x
				}
			case *ast.DAsgnNode:
				if x.Depth != 0 || x.Index != opt.Index {
					bad = x
				}
			case *ast.MultipleAsgnNode:
				bad = x
			case *ast.IterNode, *ast.DefnNode, *ast.DefsNode, *ast.ClassNode, *ast.ModuleNode:
				return false
			}
			return true
		})
		if bad != nil {
			return &NotCompilableError{Node: bad, Reason: fmt.Sprintf("default for %s assigns another variable", opt.Name)}
		}
	}
	return nil
}
