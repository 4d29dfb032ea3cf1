package ast

import "github.com/chazu/garnet/scope"

// ---------------------------------------------------------------------------
// Calls and argument shapes
// ---------------------------------------------------------------------------

// CallNode is receiver.name(args) with an optional block (IterNode or
// BlockPassNode).
type CallNode struct {
	Pos
	Receiver Node
	Name     string
	Args     Node
	Iter     Node
}

func (n *CallNode) NodeType() NodeType { return CallNodeType }
func (n *CallNode) ChildNodes() []Node {
	return children(n.Receiver, n.Args, n.Iter)
}

// FCallNode is name(args) on the implicit self.
type FCallNode struct {
	Pos
	Name string
	Args Node
	Iter Node
}

func (n *FCallNode) NodeType() NodeType { return FCallNodeType }
func (n *FCallNode) ChildNodes() []Node { return children(n.Args, n.Iter) }

// VCallNode is a bare identifier that resolved to no local variable.
type VCallNode struct {
	Pos
	Name string
}

func (n *VCallNode) NodeType() NodeType { return VCallNodeType }
func (n *VCallNode) ChildNodes() []Node { return nil }

// SuperNode is super(args).
type SuperNode struct {
	Pos
	Args Node
	Iter Node
}

func (n *SuperNode) NodeType() NodeType { return SuperNodeType }
func (n *SuperNode) ChildNodes() []Node { return children(n.Args, n.Iter) }

// ZSuperNode is a bare super that forwards the current arguments.
type ZSuperNode struct {
	Pos
	Iter Node
}

func (n *ZSuperNode) NodeType() NodeType { return ZSuperNodeType }
func (n *ZSuperNode) ChildNodes() []Node { return children(n.Iter) }

// YieldNode calls the current block. Expand is set when Args is an ArrayNode
// listing several values (yield a, b), which are yielded as multiple values.
type YieldNode struct {
	Pos
	Args   Node
	Expand bool
}

func (n *YieldNode) NodeType() NodeType { return YieldNodeType }
func (n *YieldNode) ChildNodes() []Node { return children(n.Args) }

// ArgsCatNode is First followed by the splatted Second: f(a, *b).
type ArgsCatNode struct {
	Pos
	First  Node
	Second Node
}

func (n *ArgsCatNode) NodeType() NodeType { return ArgsCatNodeType }
func (n *ArgsCatNode) ChildNodes() []Node { return children(n.First, n.Second) }

// ArgsPushNode appends Second to the splatted First: f(*a, b).
type ArgsPushNode struct {
	Pos
	First  Node
	Second Node
}

func (n *ArgsPushNode) NodeType() NodeType { return ArgsPushNodeType }
func (n *ArgsPushNode) ChildNodes() []Node { return children(n.First, n.Second) }

// SplatNode is *value.
type SplatNode struct {
	Pos
	Value Node
}

func (n *SplatNode) NodeType() NodeType { return SplatNodeType }
func (n *SplatNode) ChildNodes() []Node { return children(n.Value) }

// SValueNode packs a splat into a single value (a = *b).
type SValueNode struct {
	Pos
	Value Node
}

func (n *SValueNode) NodeType() NodeType { return SValueNodeType }
func (n *SValueNode) ChildNodes() []Node { return children(n.Value) }

// ToAryNode converts the right-hand side of a multiple assignment.
type ToAryNode struct {
	Pos
	Value Node
}

func (n *ToAryNode) NodeType() NodeType { return ToAryNodeType }
func (n *ToAryNode) ChildNodes() []Node { return children(n.Value) }

// BlockPassNode passes an object as the block: f(&obj).
type BlockPassNode struct {
	Pos
	Body Node
}

func (n *BlockPassNode) NodeType() NodeType { return BlockPassNodeType }
func (n *BlockPassNode) ChildNodes() []Node { return children(n.Body) }

// IterNode is a block literal. Var is nil when the block declares no
// parameter list, a ZeroArgNode for ||, an assignable node for a single
// parameter, or a MultipleAsgnNode for several.
type IterNode struct {
	Pos
	Scope *scope.StaticScope
	Var   Node
	Body  Node
}

func (n *IterNode) NodeType() NodeType { return IterNodeType }
func (n *IterNode) ChildNodes() []Node { return children(n.Var, n.Body) }

// ForNode is for Var in Iter; Body end. The body runs in the enclosing
// scope rather than a new one.
type ForNode struct {
	Pos
	Var  Node
	Iter Node
	Body Node
}

func (n *ForNode) NodeType() NodeType { return ForNodeType }
func (n *ForNode) ChildNodes() []Node { return children(n.Var, n.Iter, n.Body) }

// ZeroArgNode is an explicitly empty block parameter list (||).
type ZeroArgNode struct{ Pos }

func (n *ZeroArgNode) NodeType() NodeType { return ZeroArgNodeType }
func (n *ZeroArgNode) ChildNodes() []Node { return nil }
