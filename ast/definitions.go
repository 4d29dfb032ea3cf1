package ast

import "github.com/chazu/garnet/scope"

// ---------------------------------------------------------------------------
// Definitions
// ---------------------------------------------------------------------------

// RootNode is the top of a parsed program.
type RootNode struct {
	Pos
	Scope *scope.StaticScope
	Body  Node
}

func (n *RootNode) NodeType() NodeType { return RootNodeType }
func (n *RootNode) ChildNodes() []Node { return children(n.Body) }

// NoRestArg and AnonymousRestArg are the special values of ArgsNode.Rest.
const (
	NoRestArg        = -1
	AnonymousRestArg = -2
)

// ArgsNode describes a method parameter list. Required parameters occupy
// slots 0..len(Required)-1 and optional ones the slots right after them.
type ArgsNode struct {
	Pos
	Required []*ArgumentNode
	// Optional holds one LocalAsgnNode per optional parameter whose Value
	// is the default expression.
	Optional []*LocalAsgnNode
	// Rest is the rest parameter slot, NoRestArg or AnonymousRestArg.
	Rest     int
	RestName string
	Block    *BlockArgNode
}

func (n *ArgsNode) NodeType() NodeType { return ArgsNodeType }
func (n *ArgsNode) ChildNodes() []Node {
	out := list(n.Required)
	out = append(out, list(n.Optional)...)
	return append(out, optional(n.Block))
}

// RequiredCount returns the number of required parameters.
func (n *ArgsNode) RequiredCount() int {
	if n == nil {
		return 0
	}
	return len(n.Required)
}

// OptionalCount returns the number of optional parameters.
func (n *ArgsNode) OptionalCount() int {
	if n == nil {
		return 0
	}
	return len(n.Optional)
}

// RestIndex returns the rest slot or a negative marker.
func (n *ArgsNode) RestIndex() int {
	if n == nil {
		return NoRestArg
	}
	return n.Rest
}

// ArgumentNode is a required parameter.
type ArgumentNode struct {
	Pos
	Name  string
	Index int
}

func (n *ArgumentNode) NodeType() NodeType { return ArgumentNodeType }
func (n *ArgumentNode) ChildNodes() []Node { return nil }

// BlockArgNode is the &block parameter.
type BlockArgNode struct {
	Pos
	Name  string
	Index int
}

func (n *BlockArgNode) NodeType() NodeType { return BlockArgNodeType }
func (n *BlockArgNode) ChildNodes() []Node { return nil }

// DefnNode defines an instance method on the current cref.
type DefnNode struct {
	Pos
	Name  string
	Args  *ArgsNode
	Scope *scope.StaticScope
	Body  Node
}

func (n *DefnNode) NodeType() NodeType { return DefnNodeType }
func (n *DefnNode) ChildNodes() []Node { return children(optional(n.Args), n.Body) }

// DefsNode defines a singleton method on Receiver.
type DefsNode struct {
	Pos
	Receiver Node
	Name     string
	Args     *ArgsNode
	Scope    *scope.StaticScope
	Body     Node
}

func (n *DefsNode) NodeType() NodeType { return DefsNodeType }
func (n *DefsNode) ChildNodes() []Node {
	return children(n.Receiver, optional(n.Args), n.Body)
}

// ClassNode is class CPath < Super; Body end. CPath is a Colon2Node (Left
// nil for a name in the current cref) or a Colon3Node.
type ClassNode struct {
	Pos
	CPath Node
	Super Node
	Scope *scope.StaticScope
	Body  Node
}

func (n *ClassNode) NodeType() NodeType { return ClassNodeType }
func (n *ClassNode) ChildNodes() []Node { return children(n.CPath, n.Super, n.Body) }

// ModuleNode is module CPath; Body end.
type ModuleNode struct {
	Pos
	CPath Node
	Scope *scope.StaticScope
	Body  Node
}

func (n *ModuleNode) NodeType() NodeType { return ModuleNodeType }
func (n *ModuleNode) ChildNodes() []Node { return children(n.CPath, n.Body) }

// SClassNode is class << Receiver; Body end.
type SClassNode struct {
	Pos
	Receiver Node
	Scope    *scope.StaticScope
	Body     Node
}

func (n *SClassNode) NodeType() NodeType { return SClassNodeType }
func (n *SClassNode) ChildNodes() []Node { return children(n.Receiver, n.Body) }

// AliasNode is alias new old for methods.
type AliasNode struct {
	Pos
	New string
	Old string
}

func (n *AliasNode) NodeType() NodeType { return AliasNodeType }
func (n *AliasNode) ChildNodes() []Node { return nil }

// VAliasNode is alias $new $old for globals.
type VAliasNode struct {
	Pos
	New string
	Old string
}

func (n *VAliasNode) NodeType() NodeType { return VAliasNodeType }
func (n *VAliasNode) ChildNodes() []Node { return nil }

// UndefNode is undef name.
type UndefNode struct {
	Pos
	Name string
}

func (n *UndefNode) NodeType() NodeType { return UndefNodeType }
func (n *UndefNode) ChildNodes() []Node { return nil }

// PreExeNode is BEGIN { Body }.
type PreExeNode struct {
	Pos
	Body Node
}

func (n *PreExeNode) NodeType() NodeType { return PreExeNodeType }
func (n *PreExeNode) ChildNodes() []Node { return children(n.Body) }

// PostExeNode is END { Body }; the body runs once when the program ends.
type PostExeNode struct {
	Pos
	Body Node
}

func (n *PostExeNode) NodeType() NodeType { return PostExeNodeType }
func (n *PostExeNode) ChildNodes() []Node { return children(n.Body) }
