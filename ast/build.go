package ast

import "github.com/chazu/garnet/scope"

// Assign builds the assignment node for name = value as seen from s. The
// node kind depends on which scope owns the slot.
func Assign(s *scope.StaticScope, pos Pos, name string, value Node) Node {
	loc, b := s.AssignLocation(name)
	if b == scope.MethodLocal {
		return &LocalAsgnNode{Pos: pos, Name: name, Index: loc.Index, Value: value}
	}
	return &DAsgnNode{Pos: pos, Name: name, Index: loc.Index, Depth: loc.Depth, Value: value}
}

// Declare builds the read of name as seen from s. A name with no visible
// slot is a method call on self.
func Declare(s *scope.StaticScope, pos Pos, name string) Node {
	loc, b := s.DeclareLocation(name)
	switch b {
	case scope.MethodLocal:
		return &LocalVarNode{Pos: pos, Name: name, Index: loc.Index}
	case scope.BlockLocal:
		return &DVarNode{Pos: pos, Name: name, Index: loc.Index, Depth: loc.Depth}
	}
	return &VCallNode{Pos: pos, Name: name}
}

// NewArgs declares a parameter list in s: required names first, then
// optional names with their default expressions, then the rest and block
// parameters (empty strings mean absent; rest "*" is anonymous). Defaults
// are built with the corresponding slots already declared.
func NewArgs(s *scope.StaticScope, pos Pos, required []string, optionals []string, defaults []Node, rest string, block string) *ArgsNode {
	args := &ArgsNode{Pos: pos, Rest: NoRestArg}
	for _, name := range required {
		args.Required = append(args.Required, &ArgumentNode{Pos: pos, Name: name, Index: s.AddVariable(name)})
	}
	for i, name := range optionals {
		idx := s.AddVariable(name)
		var def Node
		if i < len(defaults) {
			def = defaults[i]
		}
		args.Optional = append(args.Optional, &LocalAsgnNode{Pos: pos, Name: name, Index: idx, Value: def})
	}
	switch rest {
	case "":
	case "*":
		args.Rest = AnonymousRestArg
	default:
		args.Rest = s.AddVariable(rest)
		args.RestName = rest
	}
	if block != "" {
		args.Block = &BlockArgNode{Pos: pos, Name: block, Index: s.AddVariable(block)}
	}
	restSlot := args.Rest
	if restSlot == AnonymousRestArg {
		restSlot = s.AddVariable("*")
	}
	s.SetArities(len(args.Required), len(args.Optional), restSlot)
	s.SetArgumentScope(true)
	return args
}
