// Package scope models the lexical (static) scopes produced while parsing:
// variable slots, closure capture, argument shape and the lexically enclosing
// module used for constant resolution.
package scope

import (
	"fmt"
	"sync"
)

// ---------------------------------------------------------------------------
// Scope kinds
// ---------------------------------------------------------------------------

// Kind selects how a scope resolves names it does not own itself.
type Kind uint8

const (
	// LocalKind scopes belong to methods, class bodies and the top level.
	// They never search outward for variables.
	LocalKind Kind = iota
	// BlockKind scopes belong to closures and search their enclosing
	// scopes for free variables.
	BlockKind
	// EvalKind scopes behave like block scopes but sit on top of a scope
	// provided at run time by eval.
	EvalKind
)

func (k Kind) String() string {
	switch k {
	case LocalKind:
		return "local"
	case BlockKind:
		return "block"
	case EvalKind:
		return "eval"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Module is the lexically enclosing class or module (the cref). The runtime
// supplies the concrete type.
type Module interface {
	ModuleName() string
}

// Location addresses a variable slot: Depth scope hops outward, then Index.
type Location struct {
	Depth int
	Index int
}

// Packed returns the location in the historical (depth<<16 | index) form.
func (l Location) Packed() int {
	return l.Depth<<16 | l.Index
}

func (l Location) String() string {
	return fmt.Sprintf("%d@%d", l.Index, l.Depth)
}

// NoRest marks the absence of a rest argument.
const NoRest = -1

// ---------------------------------------------------------------------------
// StaticScope
// ---------------------------------------------------------------------------

// StaticScope records variable names, argument shape and cref linkage for one
// lexical construct. Slot indices are stable once assigned. Names are added
// while parsing; once compilation begins only the cref linkage changes, and
// that is guarded so concurrent activations may share a scope.
type StaticScope struct {
	kind      Kind
	enclosing *StaticScope

	names    []string
	captured []bool

	required      int
	optional      int
	rest          int
	argumentScope bool

	mu                sync.Mutex
	cref              Module
	previousCRefScope *StaticScope
}

// NewLocalScope creates a method, class body or top-level scope.
func NewLocalScope(enclosing *StaticScope) *StaticScope {
	return newScope(LocalKind, enclosing)
}

// NewBlockScope creates a closure scope nested in enclosing.
func NewBlockScope(enclosing *StaticScope) *StaticScope {
	return newScope(BlockKind, enclosing)
}

// NewEvalScope creates an eval scope on top of a run-time provided scope.
func NewEvalScope(enclosing *StaticScope) *StaticScope {
	return newScope(EvalKind, enclosing)
}

func newScope(kind Kind, enclosing *StaticScope) *StaticScope {
	return &StaticScope{
		kind:      kind,
		enclosing: enclosing,
		rest:      NoRest,
	}
}

// Kind returns the scope kind.
func (s *StaticScope) Kind() Kind { return s.kind }

// Enclosing returns the lexically enclosing scope, or nil at the top.
func (s *StaticScope) Enclosing() *StaticScope { return s.enclosing }

// IsBlockScope reports whether the scope searches outward for variables.
func (s *StaticScope) IsBlockScope() bool { return s.kind != LocalKind }

// NumberOfVariables returns the number of slots in this scope.
func (s *StaticScope) NumberOfVariables() int { return len(s.names) }

// VariableNames returns a copy of the slot names in index order.
func (s *StaticScope) VariableNames() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// VariableName returns the name at index, or "" when out of range.
func (s *StaticScope) VariableName(index int) string {
	if index < 0 || index >= len(s.names) {
		return ""
	}
	return s.names[index]
}

// Depth returns the number of enclosing scopes above s.
func (s *StaticScope) Depth() int {
	d := 0
	for p := s.enclosing; p != nil; p = p.enclosing {
		d++
	}
	return d
}

// LocalScope returns the nearest enclosing local (non-block) scope.
func (s *StaticScope) LocalScope() *StaticScope {
	cur := s
	for cur.kind != LocalKind && cur.enclosing != nil {
		cur = cur.enclosing
	}
	return cur
}

// ---------------------------------------------------------------------------
// Variables
// ---------------------------------------------------------------------------

// AddVariable returns the slot of name in this scope, appending a new slot if
// the name is not yet present. Calling it twice with the same name returns
// the same index.
func (s *StaticScope) AddVariable(name string) int {
	if slot := s.Exists(name); slot >= 0 {
		return slot
	}
	n := len(s.names)
	names := make([]string, n+1)
	copy(names, s.names)
	names[n] = name
	captured := make([]bool, n+1)
	copy(captured, s.captured)
	s.names = names
	s.captured = captured
	return n
}

// Exists returns the slot of name in this scope only, or -1.
func (s *StaticScope) Exists(name string) int {
	for i, n := range s.names {
		if n == name {
			return i
		}
	}
	return -1
}

// IsDefined resolves name from this scope. Block scopes continue outward;
// local scopes stop at themselves.
func (s *StaticScope) IsDefined(name string) (Location, bool) {
	depth := 0
	for cur := s; cur != nil; cur = cur.enclosing {
		if slot := cur.Exists(name); slot >= 0 {
			return Location{Depth: depth, Index: slot}, true
		}
		if cur.kind == LocalKind {
			break
		}
		depth++
	}
	return Location{}, false
}

// Capture marks a slot as closed over by a nested scope.
func (s *StaticScope) Capture(index int) {
	if index >= 0 && index < len(s.captured) {
		s.captured[index] = true
	}
}

// IsCaptured reports whether a nested scope closes over the slot.
func (s *StaticScope) IsCaptured(index int) bool {
	return index >= 0 && index < len(s.captured) && s.captured[index]
}

// ownerAt returns the scope depth hops outward.
func (s *StaticScope) ownerAt(depth int) *StaticScope {
	cur := s
	for i := 0; i < depth && cur != nil; i++ {
		cur = cur.enclosing
	}
	return cur
}

// Binding classifies how a resolved variable is accessed.
type Binding uint8

const (
	// Unbound means a declaration found no variable; the name is a call.
	Unbound Binding = iota
	// MethodLocal variables live in the slot table of a local scope and
	// are addressed without hops.
	MethodLocal
	// BlockLocal variables are addressed through the dynamic scope chain.
	BlockLocal
)

// AssignLocation resolves the target of an assignment to name. Block scopes
// look outward for an existing binding before adding a slot to themselves.
// Local scopes only consult their own slots. A slot found in an outer scope
// is marked captured.
func (s *StaticScope) AssignLocation(name string) (Location, Binding) {
	if loc, ok := s.IsDefined(name); ok {
		owner := s.ownerAt(loc.Depth)
		if loc.Depth > 0 {
			owner.Capture(loc.Index)
		}
		return loc, bindingFor(owner, loc.Depth)
	}
	slot := s.AddVariable(name)
	return Location{Index: slot}, bindingFor(s, 0)
}

// DeclareLocation resolves a read of name. When the name is not visible the
// binding is Unbound and the reader should treat it as a method call.
func (s *StaticScope) DeclareLocation(name string) (Location, Binding) {
	loc, ok := s.IsDefined(name)
	if !ok {
		return Location{}, Unbound
	}
	owner := s.ownerAt(loc.Depth)
	if loc.Depth > 0 {
		owner.Capture(loc.Index)
	}
	return loc, bindingFor(owner, loc.Depth)
}

func bindingFor(owner *StaticScope, depth int) Binding {
	if depth == 0 && owner.kind == LocalKind {
		return MethodLocal
	}
	return BlockLocal
}

// ---------------------------------------------------------------------------
// Argument shape
// ---------------------------------------------------------------------------

// SetArities records the argument shape of a method or block scope.
// rest is the slot of the rest argument, or NoRest.
func (s *StaticScope) SetArities(required, optional, rest int) {
	s.required = required
	s.optional = optional
	s.rest = rest
}

// RequiredArgs returns the number of required arguments.
func (s *StaticScope) RequiredArgs() int { return s.required }

// OptionalArgs returns the number of optional arguments.
func (s *StaticScope) OptionalArgs() int { return s.optional }

// RestArg returns the rest slot, or NoRest.
func (s *StaticScope) RestArg() int { return s.rest }

// SetArgumentScope marks the scope whose arguments a bare super forwards.
func (s *StaticScope) SetArgumentScope(b bool) { s.argumentScope = b }

// IsArgumentScope reports whether the scope owns forwardable arguments.
func (s *StaticScope) IsArgumentScope() bool { return s.argumentScope }

// Arity derives the call arity from the argument shape.
func (s *StaticScope) Arity() Arity {
	if s.rest >= 0 {
		return OptionalArity()
	}
	if s.optional > 0 {
		return RequiredArity(s.required)
	}
	return FixedArity(s.required)
}

// ---------------------------------------------------------------------------
// Cref
// ---------------------------------------------------------------------------

// SetModule records the lexically enclosing module of this scope. The
// previous cref scope becomes the nearest enclosing scope that has one.
func (s *StaticScope) SetModule(m Module) {
	var prev *StaticScope
	for p := s.enclosing; p != nil; p = p.enclosing {
		if p.Module() != nil {
			prev = p
			break
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cref = m
	if s.previousCRefScope == nil {
		s.previousCRefScope = prev
	}
}

// Module returns the cref, or nil if not resolved yet.
func (s *StaticScope) Module() Module {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cref
}

// PreviousCRefScope returns the scope of the next outer cref.
func (s *StaticScope) PreviousCRefScope() *StaticScope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previousCRefScope
}

// DetermineModule resolves and memoizes the cref, inheriting from the
// nearest ancestor that has one. It panics if no ancestor has a module:
// the top-level scope must be assigned one before execution starts.
func (s *StaticScope) DetermineModule() Module {
	if m := s.Module(); m != nil {
		return m
	}
	if s.enclosing == nil {
		panic(fmt.Errorf("scope: no module determined for top-level %s scope", s.kind))
	}
	m := s.enclosing.DetermineModule()
	prev := s.enclosing.PreviousCRefScope()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cref == nil {
		s.cref = m
		s.previousCRefScope = prev
	}
	return s.cref
}

// AllNamesInScope returns variable names visible from s, nearest first.
func (s *StaticScope) AllNamesInScope() []string {
	var out []string
	seen := make(map[string]bool)
	for cur := s; cur != nil; cur = cur.enclosing {
		for _, n := range cur.names {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
		if cur.kind == LocalKind {
			break
		}
	}
	return out
}

func (s *StaticScope) String() string {
	return fmt.Sprintf("%s%v", s.kind, s.names)
}
