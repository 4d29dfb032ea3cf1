package ast

// ---------------------------------------------------------------------------
// Control flow
// ---------------------------------------------------------------------------

// AndNode is First && Second.
type AndNode struct {
	Pos
	First  Node
	Second Node
}

func (n *AndNode) NodeType() NodeType { return AndNodeType }
func (n *AndNode) ChildNodes() []Node { return children(n.First, n.Second) }

// OrNode is First || Second.
type OrNode struct {
	Pos
	First  Node
	Second Node
}

func (n *OrNode) NodeType() NodeType { return OrNodeType }
func (n *OrNode) ChildNodes() []Node { return children(n.First, n.Second) }

// NotNode is !Cond.
type NotNode struct {
	Pos
	Cond Node
}

func (n *NotNode) NodeType() NodeType { return NotNodeType }
func (n *NotNode) ChildNodes() []Node { return children(n.Cond) }

// IfNode is if/unless/ternary; Then or Else may be nil.
type IfNode struct {
	Pos
	Cond Node
	Then Node
	Else Node
}

func (n *IfNode) NodeType() NodeType { return IfNodeType }
func (n *IfNode) ChildNodes() []Node { return children(n.Cond, n.Then, n.Else) }

// CaseNode is case [Subject] when ... [else] end.
type CaseNode struct {
	Pos
	Subject Node
	Whens   []*WhenNode
	Else    Node
}

func (n *CaseNode) NodeType() NodeType { return CaseNodeType }
func (n *CaseNode) ChildNodes() []Node {
	out := make([]Node, 0, len(n.Whens)+2)
	out = append(out, n.Subject)
	out = append(out, list(n.Whens)...)
	return append(out, n.Else)
}

// WhenNode is one clause; Exprs is an ArrayNode of candidates, or a splat
// shape (SplatNode, ArgsCatNode) for when *list.
type WhenNode struct {
	Pos
	Exprs Node
	Body  Node
}

func (n *WhenNode) NodeType() NodeType { return WhenNodeType }
func (n *WhenNode) ChildNodes() []Node { return children(n.Exprs, n.Body) }

// WhileNode is while Cond; Body end. EvaluateAtStart is false for the
// begin...end while form. ContainsNonlocalFlow is set by the parser when
// the body contains break, next or redo that must unwind through blocks.
type WhileNode struct {
	Pos
	Cond                 Node
	Body                 Node
	EvaluateAtStart      bool
	ContainsNonlocalFlow bool
}

func (n *WhileNode) NodeType() NodeType { return WhileNodeType }
func (n *WhileNode) ChildNodes() []Node { return children(n.Cond, n.Body) }

// UntilNode is while with the condition negated.
type UntilNode struct {
	Pos
	Cond                 Node
	Body                 Node
	EvaluateAtStart      bool
	ContainsNonlocalFlow bool
}

func (n *UntilNode) NodeType() NodeType { return UntilNodeType }
func (n *UntilNode) ChildNodes() []Node { return children(n.Cond, n.Body) }

// BreakNode leaves the innermost loop or block call with Value.
type BreakNode struct {
	Pos
	Value Node
}

func (n *BreakNode) NodeType() NodeType { return BreakNodeType }
func (n *BreakNode) ChildNodes() []Node { return children(n.Value) }

// NextNode ends the current loop iteration or block call with Value.
type NextNode struct {
	Pos
	Value Node
}

func (n *NextNode) NodeType() NodeType { return NextNodeType }
func (n *NextNode) ChildNodes() []Node { return children(n.Value) }

// RedoNode restarts the current loop body or block body.
type RedoNode struct{ Pos }

func (n *RedoNode) NodeType() NodeType { return RedoNodeType }
func (n *RedoNode) ChildNodes() []Node { return nil }

// RetryNode restarts the protected body of the enclosing rescue.
type RetryNode struct{ Pos }

func (n *RetryNode) NodeType() NodeType { return RetryNodeType }
func (n *RetryNode) ChildNodes() []Node { return nil }

// ReturnNode returns Value from the enclosing method.
type ReturnNode struct {
	Pos
	Value Node
}

func (n *ReturnNode) NodeType() NodeType { return ReturnNodeType }
func (n *ReturnNode) ChildNodes() []Node { return children(n.Value) }

// BeginNode groups a body (begin ... end without clauses).
type BeginNode struct {
	Pos
	Body Node
}

func (n *BeginNode) NodeType() NodeType { return BeginNodeType }
func (n *BeginNode) ChildNodes() []Node { return children(n.Body) }

// RescueNode protects Body with a chain of rescue clauses. Else runs when
// Body completes without raising.
type RescueNode struct {
	Pos
	Body   Node
	Rescue *RescueBodyNode
	Else   Node
}

func (n *RescueNode) NodeType() NodeType { return RescueNodeType }
func (n *RescueNode) ChildNodes() []Node {
	return children(n.Body, optional(n.Rescue), n.Else)
}

// RescueBodyNode is one rescue clause. Exceptions is nil for a bare
// rescue, which handles StandardError.
type RescueBodyNode struct {
	Pos
	Exceptions Node
	Body       Node
	Next       *RescueBodyNode
}

func (n *RescueBodyNode) NodeType() NodeType { return RescueBodyNodeType }
func (n *RescueBodyNode) ChildNodes() []Node {
	return children(n.Exceptions, n.Body, optional(n.Next))
}

// EnsureNode runs Ensure on every exit from Body.
type EnsureNode struct {
	Pos
	Body   Node
	Ensure Node
}

func (n *EnsureNode) NodeType() NodeType { return EnsureNodeType }
func (n *EnsureNode) ChildNodes() []Node { return children(n.Body, n.Ensure) }

// DefinedNode is defined?(Expr).
type DefinedNode struct {
	Pos
	Expr Node
}

func (n *DefinedNode) NodeType() NodeType { return DefinedNodeType }
func (n *DefinedNode) ChildNodes() []Node { return children(n.Expr) }

// FlipNode is a flip-flop range in a condition; its state lives in a hidden
// local slot.
type FlipNode struct {
	Pos
	Begin     Node
	End       Node
	Exclusive bool
	Index     int
	Depth     int
}

func (n *FlipNode) NodeType() NodeType { return FlipNodeType }
func (n *FlipNode) ChildNodes() []Node { return children(n.Begin, n.End) }

// MatchNode is a bare regexp in a condition, matched against $_.
type MatchNode struct {
	Pos
	Regexp Node
}

func (n *MatchNode) NodeType() NodeType { return MatchNodeType }
func (n *MatchNode) ChildNodes() []Node { return children(n.Regexp) }

// Match2Node is /re/ =~ value.
type Match2Node struct {
	Pos
	Receiver Node
	Value    Node
}

func (n *Match2Node) NodeType() NodeType { return Match2NodeType }
func (n *Match2Node) ChildNodes() []Node { return children(n.Receiver, n.Value) }

// Match3Node is value =~ /re/.
type Match3Node struct {
	Pos
	Receiver Node
	Value    Node
}

func (n *Match3Node) NodeType() NodeType { return Match3NodeType }
func (n *Match3Node) ChildNodes() []Node { return children(n.Receiver, n.Value) }
