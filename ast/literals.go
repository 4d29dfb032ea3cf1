package ast

import (
	"math/big"
	"sync"
)

// ---------------------------------------------------------------------------
// Literal nodes
// ---------------------------------------------------------------------------

// NilNode is the nil literal.
type NilNode struct{ Pos }

func (n *NilNode) NodeType() NodeType { return NilNodeType }
func (n *NilNode) ChildNodes() []Node { return nil }

// TrueNode is the true literal.
type TrueNode struct{ Pos }

func (n *TrueNode) NodeType() NodeType { return TrueNodeType }
func (n *TrueNode) ChildNodes() []Node { return nil }

// FalseNode is the false literal.
type FalseNode struct{ Pos }

func (n *FalseNode) NodeType() NodeType { return FalseNodeType }
func (n *FalseNode) ChildNodes() []Node { return nil }

// SelfNode evaluates to the current receiver.
type SelfNode struct{ Pos }

func (n *SelfNode) NodeType() NodeType { return SelfNodeType }
func (n *SelfNode) ChildNodes() []Node { return nil }

// FixnumNode is an integer literal that fits a machine word.
type FixnumNode struct {
	Pos
	Value int64
}

func (n *FixnumNode) NodeType() NodeType { return FixnumNodeType }
func (n *FixnumNode) ChildNodes() []Node { return nil }

// BignumNode is an integer literal beyond the machine word range.
type BignumNode struct {
	Pos
	Value *big.Int
}

func (n *BignumNode) NodeType() NodeType { return BignumNodeType }
func (n *BignumNode) ChildNodes() []Node { return nil }

// FloatNode is a floating point literal.
type FloatNode struct {
	Pos
	Value float64
}

func (n *FloatNode) NodeType() NodeType { return FloatNodeType }
func (n *FloatNode) ChildNodes() []Node { return nil }

// StrNode is a string literal without interpolation.
type StrNode struct {
	Pos
	Value string
}

func (n *StrNode) NodeType() NodeType { return StrNodeType }
func (n *StrNode) ChildNodes() []Node { return nil }

// SymbolNode is a symbol literal. The interned form is cached on first use.
type SymbolNode struct {
	Pos
	Name string

	once   sync.Once
	symbol any
}

func (n *SymbolNode) NodeType() NodeType { return SymbolNodeType }
func (n *SymbolNode) ChildNodes() []Node { return nil }

// Interned returns the cached symbol value, creating it with intern on the
// first call. Later calls return the first result regardless of intern.
func (n *SymbolNode) Interned(intern func(string) any) any {
	n.once.Do(func() { n.symbol = intern(n.Name) })
	return n.symbol
}

// Regexp option bits.
const (
	RegexpIgnoreCase = 1 << iota
	RegexpExtended
	RegexpMultiline
)

// RegexpNode is a literal regular expression.
type RegexpNode struct {
	Pos
	Pattern string
	Options int
}

func (n *RegexpNode) NodeType() NodeType { return RegexpNodeType }
func (n *RegexpNode) ChildNodes() []Node { return nil }

// XStrNode is a backtick command literal.
type XStrNode struct {
	Pos
	Value string
}

func (n *XStrNode) NodeType() NodeType { return XStrNodeType }
func (n *XStrNode) ChildNodes() []Node { return nil }

// ArrayNode is an array literal. It also serves as the argument list of
// calls and the candidate list of when clauses.
type ArrayNode struct {
	Pos
	Elements []Node
}

func (n *ArrayNode) NodeType() NodeType { return ArrayNodeType }
func (n *ArrayNode) ChildNodes() []Node { return n.Elements }

// Len returns the element count; a nil receiver has none.
func (n *ArrayNode) Len() int {
	if n == nil {
		return 0
	}
	return len(n.Elements)
}

// ZArrayNode is the empty array literal.
type ZArrayNode struct{ Pos }

func (n *ZArrayNode) NodeType() NodeType { return ZArrayNodeType }
func (n *ZArrayNode) ChildNodes() []Node { return nil }

// HashNode is a hash literal; Entries alternate key and value.
type HashNode struct {
	Pos
	Entries []Node
}

func (n *HashNode) NodeType() NodeType { return HashNodeType }
func (n *HashNode) ChildNodes() []Node { return n.Entries }

// DStrNode is an interpolated string; parts are StrNode or EvStrNode.
type DStrNode struct {
	Pos
	Parts []Node
}

func (n *DStrNode) NodeType() NodeType { return DStrNodeType }
func (n *DStrNode) ChildNodes() []Node { return n.Parts }

// DSymbolNode is an interpolated symbol.
type DSymbolNode struct {
	Pos
	Parts []Node
}

func (n *DSymbolNode) NodeType() NodeType { return DSymbolNodeType }
func (n *DSymbolNode) ChildNodes() []Node { return n.Parts }

// DRegexpNode is an interpolated regular expression. Once regexps are built
// the first time they are evaluated and reused afterwards.
type DRegexpNode struct {
	Pos
	Parts   []Node
	Options int
	Once    bool
}

func (n *DRegexpNode) NodeType() NodeType { return DRegexpNodeType }
func (n *DRegexpNode) ChildNodes() []Node { return n.Parts }

// DXStrNode is an interpolated backtick command.
type DXStrNode struct {
	Pos
	Parts []Node
}

func (n *DXStrNode) NodeType() NodeType { return DXStrNodeType }
func (n *DXStrNode) ChildNodes() []Node { return n.Parts }

// EvStrNode is the #{...} part of an interpolation.
type EvStrNode struct {
	Pos
	Body Node
}

func (n *EvStrNode) NodeType() NodeType { return EvStrNodeType }
func (n *EvStrNode) ChildNodes() []Node { return children(n.Body) }

// DotNode is a range literal (a..b or a...b).
type DotNode struct {
	Pos
	Begin     Node
	End       Node
	Exclusive bool
}

func (n *DotNode) NodeType() NodeType { return DotNodeType }
func (n *DotNode) ChildNodes() []Node { return children(n.Begin, n.End) }

// ---------------------------------------------------------------------------
// Structure
// ---------------------------------------------------------------------------

// BlockNode is a statement sequence; its value is the last statement's.
type BlockNode struct {
	Pos
	Statements []Node
}

func (n *BlockNode) NodeType() NodeType { return BlockNodeType }
func (n *BlockNode) ChildNodes() []Node { return n.Statements }

// NewlineNode marks a statement boundary (a line event site).
type NewlineNode struct {
	Pos
	Next Node
}

func (n *NewlineNode) NodeType() NodeType { return NewlineNodeType }
func (n *NewlineNode) ChildNodes() []Node { return children(n.Next) }
