package ast

import "github.com/chazu/garnet/scope"

// Visitor is called for each node during Walk. Returning false skips the
// node's children.
type Visitor func(n Node) bool

// Walk visits n and its descendants depth-first in child order. Nil nodes
// are skipped.
func Walk(n Node, v Visitor) {
	if n == nil {
		return
	}
	if !v(n) {
		return
	}
	for _, c := range n.ChildNodes() {
		Walk(c, v)
	}
}

// opensScope reports whether n starts a new local variable scope that
// variable enumeration must not cross.
func opensScope(n Node) bool {
	switch n.(type) {
	case *DefnNode, *DefsNode, *ClassNode, *ModuleNode, *SClassNode:
		return true
	}
	return false
}

// LocalVariables lists the distinct local variable names read or written
// in n, in first-seen order. Method, class and module bodies are not
// entered; their receivers and superclass expressions are.
func LocalVariables(n Node) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	Walk(n, func(n Node) bool {
		switch x := n.(type) {
		case *LocalVarNode:
			add(x.Name)
		case *LocalAsgnNode:
			add(x.Name)
		case *DVarNode:
			add(x.Name)
		case *DAsgnNode:
			add(x.Name)
		case *DefsNode:
			for _, name := range LocalVariables(x.Receiver) {
				add(name)
			}
			return false
		case *ClassNode:
			for _, name := range LocalVariables(x.Super) {
				add(name)
			}
			return false
		case *SClassNode:
			for _, name := range LocalVariables(x.Receiver) {
				add(name)
			}
			return false
		}
		return !opensScope(n)
	})
	return names
}

// Unwrap strips NewlineNode wrappers.
func Unwrap(n Node) Node {
	for {
		nl, ok := n.(*NewlineNode)
		if !ok {
			return n
		}
		n = nl.Next
	}
}

// Scopes lists the distinct static scopes of a tree in pre-order, starting
// with the root scope. Structurally identical trees list their scopes in the
// same order.
func Scopes(root *RootNode) []*scope.StaticScope {
	var out []*scope.StaticScope
	seen := make(map[*scope.StaticScope]bool)
	add := func(s *scope.StaticScope) {
		if s != nil && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	add(root.Scope)
	Walk(root.Body, func(n Node) bool {
		switch x := n.(type) {
		case *IterNode:
			add(x.Scope)
		case *DefnNode:
			add(x.Scope)
		case *DefsNode:
			add(x.Scope)
		case *ClassNode:
			add(x.Scope)
		case *ModuleNode:
			add(x.Scope)
		case *SClassNode:
			add(x.Scope)
		}
		return true
	})
	return out
}
