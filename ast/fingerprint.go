package ast

import (
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/chazu/garnet/scope"
)

// ---------------------------------------------------------------------------
// Deterministic structural serialization.
//
// Encoding conventions:
//   - First byte: fingerprintVersion
//   - Each node: NodeType byte, kind-specific attributes, child count
//     (uint32), then children (nil children are a single 0x00 byte)
//   - Integers: big-endian int64
//   - Strings: uint32 big-endian length + bytes
//   - Scopes: kind byte, names, arity triple
// ---------------------------------------------------------------------------

const fingerprintVersion = 0x01

// Fingerprint returns the SHA-256 of the tree's structural serialization.
// Positions do not contribute; structurally identical trees share a
// fingerprint.
func Fingerprint(n Node) [32]byte {
	return sha256.Sum256(Serialize(n))
}

// Serialize returns the deterministic byte form used by Fingerprint.
func Serialize(n Node) []byte {
	s := &serializer{buf: make([]byte, 0, 256)}
	s.writeByte(fingerprintVersion)
	s.node(n)
	return s.buf
}

// SerializePositions returns the file and line of every node in Walk order.
// Combined with Serialize it distinguishes trees that differ only in where
// they came from.
func SerializePositions(n Node) []byte {
	s := &serializer{buf: make([]byte, 0, 64)}
	s.writeByte(fingerprintVersion)
	file := ""
	Walk(n, func(n Node) bool {
		p := n.Position()
		if p.File != file {
			s.writeByte(1)
			s.writeString(p.File)
			file = p.File
		} else {
			s.writeByte(0)
		}
		s.writeInt(p.Line)
		return true
	})
	return s.buf
}

type serializer struct {
	buf []byte
}

func (s *serializer) writeByte(b byte) { s.buf = append(s.buf, b) }

func (s *serializer) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeInt64(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeInt(v int) { s.writeInt64(int64(v)) }

func (s *serializer) writeString(v string) {
	s.writeUint32(uint32(len(v)))
	s.buf = append(s.buf, v...)
}

func (s *serializer) writeBool(v bool) {
	if v {
		s.writeByte(1)
	} else {
		s.writeByte(0)
	}
}

func (s *serializer) scope(sc *scope.StaticScope) {
	if sc == nil {
		s.writeByte(0xFF)
		return
	}
	s.writeByte(byte(sc.Kind()))
	names := sc.VariableNames()
	s.writeUint32(uint32(len(names)))
	for _, n := range names {
		s.writeString(n)
	}
	s.writeInt(sc.RequiredArgs())
	s.writeInt(sc.OptionalArgs())
	s.writeInt(sc.RestArg())
}

func (s *serializer) node(n Node) {
	if n == nil {
		s.writeByte(0)
		return
	}
	s.writeByte(byte(n.NodeType()))
	s.attributes(n)
	kids := n.ChildNodes()
	s.writeUint32(uint32(len(kids)))
	for _, c := range kids {
		s.node(c)
	}
}

func (s *serializer) attributes(n Node) {
	switch x := n.(type) {
	case *FixnumNode:
		s.writeInt64(x.Value)
	case *BignumNode:
		s.writeString(x.Value.String())
	case *FloatNode:
		s.writeInt64(int64(math.Float64bits(x.Value)))
	case *StrNode:
		s.writeString(x.Value)
	case *XStrNode:
		s.writeString(x.Value)
	case *SymbolNode:
		s.writeString(x.Name)
	case *RegexpNode:
		s.writeString(x.Pattern)
		s.writeInt(x.Options)
	case *DRegexpNode:
		s.writeInt(x.Options)
		s.writeBool(x.Once)
	case *DotNode:
		s.writeBool(x.Exclusive)
	case *RootNode:
		s.scope(x.Scope)
	case *LocalVarNode:
		s.writeString(x.Name)
		s.writeInt(x.Index)
	case *DVarNode:
		s.writeString(x.Name)
		s.writeInt(x.Index)
		s.writeInt(x.Depth)
	case *LocalAsgnNode:
		s.writeString(x.Name)
		s.writeInt(x.Index)
	case *DAsgnNode:
		s.writeString(x.Name)
		s.writeInt(x.Index)
		s.writeInt(x.Depth)
	case *InstVarNode:
		s.writeString(x.Name)
	case *InstAsgnNode:
		s.writeString(x.Name)
	case *GlobalVarNode:
		s.writeString(x.Name)
	case *GlobalAsgnNode:
		s.writeString(x.Name)
	case *ClassVarNode:
		s.writeString(x.Name)
	case *ClassVarAsgnNode:
		s.writeString(x.Name)
	case *ClassVarDeclNode:
		s.writeString(x.Name)
	case *ConstNode:
		s.writeString(x.Name)
	case *ConstDeclNode:
		s.writeString(x.Name)
	case *Colon2Node:
		s.writeString(x.Name)
	case *Colon3Node:
		s.writeString(x.Name)
	case *BackRefNode:
		s.writeByte(x.Kind)
	case *NthRefNode:
		s.writeInt(x.N)
	case *OpAsgnNode:
		s.writeString(x.Attribute)
		s.writeString(x.Operator)
	case *OpElementAsgnNode:
		s.writeString(x.Operator)
	case *AttrAssignNode:
		s.writeString(x.Name)
	case *CallNode:
		s.writeString(x.Name)
	case *FCallNode:
		s.writeString(x.Name)
	case *VCallNode:
		s.writeString(x.Name)
	case *YieldNode:
		s.writeBool(x.Expand)
	case *IterNode:
		s.scope(x.Scope)
	case *WhileNode:
		s.writeBool(x.EvaluateAtStart)
		s.writeBool(x.ContainsNonlocalFlow)
	case *UntilNode:
		s.writeBool(x.EvaluateAtStart)
		s.writeBool(x.ContainsNonlocalFlow)
	case *FlipNode:
		s.writeBool(x.Exclusive)
		s.writeInt(x.Index)
		s.writeInt(x.Depth)
	case *ArgsNode:
		s.writeInt(x.Rest)
		s.writeString(x.RestName)
	case *ArgumentNode:
		s.writeString(x.Name)
		s.writeInt(x.Index)
	case *BlockArgNode:
		s.writeString(x.Name)
		s.writeInt(x.Index)
	case *DefnNode:
		s.writeString(x.Name)
		s.scope(x.Scope)
	case *DefsNode:
		s.writeString(x.Name)
		s.scope(x.Scope)
	case *ClassNode:
		s.scope(x.Scope)
	case *ModuleNode:
		s.scope(x.Scope)
	case *SClassNode:
		s.scope(x.Scope)
	case *AliasNode:
		s.writeString(x.New)
		s.writeString(x.Old)
	case *VAliasNode:
		s.writeString(x.New)
		s.writeString(x.Old)
	case *UndefNode:
		s.writeString(x.Name)
	}
}
