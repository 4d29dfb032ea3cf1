// Package ast defines the program tree consumed by the compiler. Trees are
// produced by a parser (not part of this module) and are read-only once
// built.
package ast

import "fmt"

// ---------------------------------------------------------------------------
// Positions and the Node interface
// ---------------------------------------------------------------------------

// Pos is a source position.
type Pos struct {
	File string
	Line int // 1-based
}

// Position returns the receiver; embedding Pos gives every node its position.
func (p Pos) Position() Pos { return p }

func (p Pos) String() string {
	if p.File == "" {
		return fmt.Sprintf("line %d", p.Line)
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// Node is implemented by every tree node.
type Node interface {
	NodeType() NodeType
	Position() Pos
	// ChildNodes returns the direct children in evaluation order. Entries
	// may be nil where an optional child is absent.
	ChildNodes() []Node
}

// ---------------------------------------------------------------------------
// Node kinds
// ---------------------------------------------------------------------------

// NodeType discriminates node kinds.
type NodeType uint8

const (
	InvalidNode NodeType = iota

	// literals
	NilNodeType
	TrueNodeType
	FalseNodeType
	SelfNodeType
	FixnumNodeType
	BignumNodeType
	FloatNodeType
	StrNodeType
	SymbolNodeType
	RegexpNodeType
	XStrNodeType
	ArrayNodeType
	ZArrayNodeType
	HashNodeType
	DStrNodeType
	DSymbolNodeType
	DRegexpNodeType
	DXStrNodeType
	EvStrNodeType
	DotNodeType

	// structure
	BlockNodeType
	NewlineNodeType
	RootNodeType

	// variables
	LocalVarNodeType
	DVarNodeType
	LocalAsgnNodeType
	DAsgnNodeType
	InstVarNodeType
	InstAsgnNodeType
	GlobalVarNodeType
	GlobalAsgnNodeType
	ClassVarNodeType
	ClassVarAsgnNodeType
	ClassVarDeclNodeType
	ConstNodeType
	ConstDeclNodeType
	Colon2NodeType
	Colon3NodeType
	BackRefNodeType
	NthRefNodeType

	// compound assignment
	MultipleAsgnNodeType
	StarNodeType
	OpAsgnNodeType
	OpAsgnAndNodeType
	OpAsgnOrNodeType
	OpElementAsgnNodeType
	AttrAssignNodeType

	// calls
	CallNodeType
	FCallNodeType
	VCallNodeType
	SuperNodeType
	ZSuperNodeType
	YieldNodeType
	ArgsCatNodeType
	ArgsPushNodeType
	SplatNodeType
	SValueNodeType
	ToAryNodeType
	BlockPassNodeType
	IterNodeType
	ForNodeType
	ZeroArgNodeType

	// control
	AndNodeType
	OrNodeType
	NotNodeType
	IfNodeType
	CaseNodeType
	WhenNodeType
	WhileNodeType
	UntilNodeType
	BreakNodeType
	NextNodeType
	RedoNodeType
	RetryNodeType
	ReturnNodeType
	BeginNodeType
	RescueNodeType
	RescueBodyNodeType
	EnsureNodeType
	DefinedNodeType
	FlipNodeType
	MatchNodeType
	Match2NodeType
	Match3NodeType

	// definitions
	DefnNodeType
	DefsNodeType
	ArgsNodeType
	ArgumentNodeType
	BlockArgNodeType
	ClassNodeType
	ModuleNodeType
	SClassNodeType
	AliasNodeType
	VAliasNodeType
	UndefNodeType
	PreExeNodeType
	PostExeNodeType

	nodeTypeCount
)

var nodeTypeNames = [...]string{
	InvalidNode:           "Invalid",
	NilNodeType:           "Nil",
	TrueNodeType:          "True",
	FalseNodeType:         "False",
	SelfNodeType:          "Self",
	FixnumNodeType:        "Fixnum",
	BignumNodeType:        "Bignum",
	FloatNodeType:         "Float",
	StrNodeType:           "Str",
	SymbolNodeType:        "Symbol",
	RegexpNodeType:        "Regexp",
	XStrNodeType:          "XStr",
	ArrayNodeType:         "Array",
	ZArrayNodeType:        "ZArray",
	HashNodeType:          "Hash",
	DStrNodeType:          "DStr",
	DSymbolNodeType:       "DSymbol",
	DRegexpNodeType:       "DRegexp",
	DXStrNodeType:         "DXStr",
	EvStrNodeType:         "EvStr",
	DotNodeType:           "Dot",
	BlockNodeType:         "Block",
	NewlineNodeType:       "Newline",
	RootNodeType:          "Root",
	LocalVarNodeType:      "LocalVar",
	DVarNodeType:          "DVar",
	LocalAsgnNodeType:     "LocalAsgn",
	DAsgnNodeType:         "DAsgn",
	InstVarNodeType:       "InstVar",
	InstAsgnNodeType:      "InstAsgn",
	GlobalVarNodeType:     "GlobalVar",
	GlobalAsgnNodeType:    "GlobalAsgn",
	ClassVarNodeType:      "ClassVar",
	ClassVarAsgnNodeType:  "ClassVarAsgn",
	ClassVarDeclNodeType:  "ClassVarDecl",
	ConstNodeType:         "Const",
	ConstDeclNodeType:     "ConstDecl",
	Colon2NodeType:        "Colon2",
	Colon3NodeType:        "Colon3",
	BackRefNodeType:       "BackRef",
	NthRefNodeType:        "NthRef",
	MultipleAsgnNodeType:  "MultipleAsgn",
	StarNodeType:          "Star",
	OpAsgnNodeType:        "OpAsgn",
	OpAsgnAndNodeType:     "OpAsgnAnd",
	OpAsgnOrNodeType:      "OpAsgnOr",
	OpElementAsgnNodeType: "OpElementAsgn",
	AttrAssignNodeType:    "AttrAssign",
	CallNodeType:          "Call",
	FCallNodeType:         "FCall",
	VCallNodeType:         "VCall",
	SuperNodeType:         "Super",
	ZSuperNodeType:        "ZSuper",
	YieldNodeType:         "Yield",
	ArgsCatNodeType:       "ArgsCat",
	ArgsPushNodeType:      "ArgsPush",
	SplatNodeType:         "Splat",
	SValueNodeType:        "SValue",
	ToAryNodeType:         "ToAry",
	BlockPassNodeType:     "BlockPass",
	IterNodeType:          "Iter",
	ForNodeType:           "For",
	ZeroArgNodeType:       "ZeroArg",
	AndNodeType:           "And",
	OrNodeType:            "Or",
	NotNodeType:           "Not",
	IfNodeType:            "If",
	CaseNodeType:          "Case",
	WhenNodeType:          "When",
	WhileNodeType:         "While",
	UntilNodeType:         "Until",
	BreakNodeType:         "Break",
	NextNodeType:          "Next",
	RedoNodeType:          "Redo",
	RetryNodeType:         "Retry",
	ReturnNodeType:        "Return",
	BeginNodeType:         "Begin",
	RescueNodeType:        "Rescue",
	RescueBodyNodeType:    "RescueBody",
	EnsureNodeType:        "Ensure",
	DefinedNodeType:       "Defined",
	FlipNodeType:          "Flip",
	MatchNodeType:         "Match",
	Match2NodeType:        "Match2",
	Match3NodeType:        "Match3",
	DefnNodeType:          "Defn",
	DefsNodeType:          "Defs",
	ArgsNodeType:          "Args",
	ArgumentNodeType:      "Argument",
	BlockArgNodeType:      "BlockArg",
	ClassNodeType:         "Class",
	ModuleNodeType:        "Module",
	SClassNodeType:        "SClass",
	AliasNodeType:         "Alias",
	VAliasNodeType:        "VAlias",
	UndefNodeType:         "Undef",
	PreExeNodeType:        "PreExe",
	PostExeNodeType:       "PostExe",
}

func (t NodeType) String() string {
	if int(t) < len(nodeTypeNames) && nodeTypeNames[t] != "" {
		return nodeTypeNames[t]
	}
	return fmt.Sprintf("NodeType(%d)", uint8(t))
}

// NodeTypes returns every valid node kind in declaration order.
func NodeTypes() []NodeType {
	out := make([]NodeType, 0, int(nodeTypeCount)-1)
	for t := NilNodeType; t < nodeTypeCount; t++ {
		out = append(out, t)
	}
	return out
}

func children(nodes ...Node) []Node { return nodes }

// optional converts a possibly nil concrete child into a Node, keeping a
// nil pointer from turning into a non-nil interface.
func optional[T interface {
	Node
	comparable
}](n T) Node {
	var zero T
	if n == zero {
		return nil
	}
	return n
}

// list converts a typed slice into a node slice.
func list[T Node](in []T) []Node {
	out := make([]Node, len(in))
	for i, n := range in {
		out[i] = n
	}
	return out
}
