package scope

// Snapshot is the persistent part of a StaticScope. Cref linkage is not
// included; it is rebuilt at run time.
type Snapshot struct {
	Kind          Kind
	Names         []string
	Captured      []bool
	Required      int
	Optional      int
	Rest          int
	ArgumentScope bool
}

// Snapshot captures the scope for serialization.
func (s *StaticScope) Snapshot() Snapshot {
	captured := make([]bool, len(s.captured))
	copy(captured, s.captured)
	return Snapshot{
		Kind:          s.kind,
		Names:         s.VariableNames(),
		Captured:      captured,
		Required:      s.required,
		Optional:      s.optional,
		Rest:          s.rest,
		ArgumentScope: s.argumentScope,
	}
}

// Restore rebuilds a scope from a snapshot under enclosing.
func Restore(snap Snapshot, enclosing *StaticScope) *StaticScope {
	s := newScope(snap.Kind, enclosing)
	s.names = append([]string(nil), snap.Names...)
	s.captured = make([]bool, len(s.names))
	copy(s.captured, snap.Captured)
	s.required = snap.Required
	s.optional = snap.Optional
	s.rest = snap.Rest
	s.argumentScope = snap.ArgumentScope
	return s
}
