package ast

// ---------------------------------------------------------------------------
// Variable reads and writes
// ---------------------------------------------------------------------------

// LocalVarNode reads a slot of the current method-level scope.
type LocalVarNode struct {
	Pos
	Name  string
	Index int
}

func (n *LocalVarNode) NodeType() NodeType { return LocalVarNodeType }
func (n *LocalVarNode) ChildNodes() []Node { return nil }

// DVarNode reads a slot Depth scopes outward from a block scope.
type DVarNode struct {
	Pos
	Name  string
	Index int
	Depth int
}

func (n *DVarNode) NodeType() NodeType { return DVarNodeType }
func (n *DVarNode) ChildNodes() []Node { return nil }

// LocalAsgnNode writes a method-level slot. Value is nil when the node is a
// multiple-assignment or block parameter target.
type LocalAsgnNode struct {
	Pos
	Name  string
	Index int
	Value Node
}

func (n *LocalAsgnNode) NodeType() NodeType { return LocalAsgnNodeType }
func (n *LocalAsgnNode) ChildNodes() []Node { return children(n.Value) }

// DAsgnNode writes a slot Depth scopes outward from a block scope.
type DAsgnNode struct {
	Pos
	Name  string
	Index int
	Depth int
	Value Node
}

func (n *DAsgnNode) NodeType() NodeType { return DAsgnNodeType }
func (n *DAsgnNode) ChildNodes() []Node { return children(n.Value) }

// InstVarNode reads @name.
type InstVarNode struct {
	Pos
	Name string
}

func (n *InstVarNode) NodeType() NodeType { return InstVarNodeType }
func (n *InstVarNode) ChildNodes() []Node { return nil }

// InstAsgnNode writes @name.
type InstAsgnNode struct {
	Pos
	Name  string
	Value Node
}

func (n *InstAsgnNode) NodeType() NodeType { return InstAsgnNodeType }
func (n *InstAsgnNode) ChildNodes() []Node { return children(n.Value) }

// GlobalVarNode reads $name.
type GlobalVarNode struct {
	Pos
	Name string
}

func (n *GlobalVarNode) NodeType() NodeType { return GlobalVarNodeType }
func (n *GlobalVarNode) ChildNodes() []Node { return nil }

// GlobalAsgnNode writes $name.
type GlobalAsgnNode struct {
	Pos
	Name  string
	Value Node
}

func (n *GlobalAsgnNode) NodeType() NodeType { return GlobalAsgnNodeType }
func (n *GlobalAsgnNode) ChildNodes() []Node { return children(n.Value) }

// ClassVarNode reads @@name.
type ClassVarNode struct {
	Pos
	Name string
}

func (n *ClassVarNode) NodeType() NodeType { return ClassVarNodeType }
func (n *ClassVarNode) ChildNodes() []Node { return nil }

// ClassVarAsgnNode writes @@name from inside a method.
type ClassVarAsgnNode struct {
	Pos
	Name  string
	Value Node
}

func (n *ClassVarAsgnNode) NodeType() NodeType { return ClassVarAsgnNodeType }
func (n *ClassVarAsgnNode) ChildNodes() []Node { return children(n.Value) }

// ClassVarDeclNode declares @@name in a class body.
type ClassVarDeclNode struct {
	Pos
	Name  string
	Value Node
}

func (n *ClassVarDeclNode) NodeType() NodeType { return ClassVarDeclNodeType }
func (n *ClassVarDeclNode) ChildNodes() []Node { return children(n.Value) }

// ConstNode reads a constant through the lexical scope.
type ConstNode struct {
	Pos
	Name string
}

func (n *ConstNode) NodeType() NodeType { return ConstNodeType }
func (n *ConstNode) ChildNodes() []Node { return nil }

// ConstDeclNode assigns a constant. Path is nil for the current cref, a
// Colon2Node for Outer::NAME or a Colon3Node for ::NAME.
type ConstDeclNode struct {
	Pos
	Name  string
	Path  Node
	Value Node
}

func (n *ConstDeclNode) NodeType() NodeType { return ConstDeclNodeType }
func (n *ConstDeclNode) ChildNodes() []Node { return children(n.Path, n.Value) }

// Colon2Node is a scoped constant (Left::Name). Left may be nil inside a
// class path, meaning the current cref.
type Colon2Node struct {
	Pos
	Left Node
	Name string
}

func (n *Colon2Node) NodeType() NodeType { return Colon2NodeType }
func (n *Colon2Node) ChildNodes() []Node { return children(n.Left) }

// Colon3Node is a top-level constant (::Name).
type Colon3Node struct {
	Pos
	Name string
}

func (n *Colon3Node) NodeType() NodeType { return Colon3NodeType }
func (n *Colon3Node) ChildNodes() []Node { return nil }

// BackRefNode reads $&, $`, $' or $+.
type BackRefNode struct {
	Pos
	Kind byte
}

func (n *BackRefNode) NodeType() NodeType { return BackRefNodeType }
func (n *BackRefNode) ChildNodes() []Node { return nil }

// NthRefNode reads $1..$9.
type NthRefNode struct {
	Pos
	N int
}

func (n *NthRefNode) NodeType() NodeType { return NthRefNodeType }
func (n *NthRefNode) ChildNodes() []Node { return nil }

// ---------------------------------------------------------------------------
// Compound assignment
// ---------------------------------------------------------------------------

// MultipleAsgnNode destructures Value into the Head targets and an optional
// rest target Args. Args is a StarNode for an anonymous rest. Value is nil
// when the node describes block parameters.
type MultipleAsgnNode struct {
	Pos
	Head  *ArrayNode
	Args  Node
	Value Node
}

func (n *MultipleAsgnNode) NodeType() NodeType { return MultipleAsgnNodeType }
func (n *MultipleAsgnNode) ChildNodes() []Node {
	return children(optional(n.Head), n.Args, n.Value)
}

// StarNode is the anonymous rest target of a multiple assignment.
type StarNode struct{ Pos }

func (n *StarNode) NodeType() NodeType { return StarNodeType }
func (n *StarNode) ChildNodes() []Node { return nil }

// OpAsgnNode is recv.attr op= value. Operator is "||", "&&" or a method
// name such as "+".
type OpAsgnNode struct {
	Pos
	Receiver  Node
	Attribute string
	Operator  string
	Value     Node
}

func (n *OpAsgnNode) NodeType() NodeType { return OpAsgnNodeType }
func (n *OpAsgnNode) ChildNodes() []Node { return children(n.Receiver, n.Value) }

// OpAsgnAndNode is target &&= value: First reads, Second assigns.
type OpAsgnAndNode struct {
	Pos
	First  Node
	Second Node
}

func (n *OpAsgnAndNode) NodeType() NodeType { return OpAsgnAndNodeType }
func (n *OpAsgnAndNode) ChildNodes() []Node { return children(n.First, n.Second) }

// OpAsgnOrNode is target ||= value: First reads, Second assigns.
type OpAsgnOrNode struct {
	Pos
	First  Node
	Second Node
}

func (n *OpAsgnOrNode) NodeType() NodeType { return OpAsgnOrNodeType }
func (n *OpAsgnOrNode) ChildNodes() []Node { return children(n.First, n.Second) }

// OpElementAsgnNode is recv[args] op= value.
type OpElementAsgnNode struct {
	Pos
	Receiver Node
	Args     Node
	Operator string
	Value    Node
}

func (n *OpElementAsgnNode) NodeType() NodeType { return OpElementAsgnNodeType }
func (n *OpElementAsgnNode) ChildNodes() []Node {
	return children(n.Receiver, n.Args, n.Value)
}

// AttrAssignNode is recv.name = args (or recv[i] = v with name "[]=").
// When Args is nil the node is a multiple-assignment target and the
// assigned value arrives from the destructuring.
type AttrAssignNode struct {
	Pos
	Receiver Node
	Name     string
	Args     Node
}

func (n *AttrAssignNode) NodeType() NodeType { return AttrAssignNodeType }
func (n *AttrAssignNode) ChildNodes() []Node { return children(n.Receiver, n.Args) }
