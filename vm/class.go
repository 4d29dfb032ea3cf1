package vm

import (
	"sort"
)

// ---------------------------------------------------------------------------
// Class: Classes, modules and singleton classes
// ---------------------------------------------------------------------------

// Visibility controls who may call a method.
type Visibility uint8

const (
	Public Visibility = iota
	Protected
	Private
)

func (v Visibility) String() string {
	switch v {
	case Protected:
		return "protected"
	case Private:
		return "private"
	}
	return "public"
}

// NativeFunc implements a method in Go. The caller's frame is the current
// frame of tc while it runs.
type NativeFunc func(tc *ThreadContext, self Value, args []Value, blk *Block) Value

// Method is one entry of a method table.
type Method struct {
	Name       string
	Owner      *Class
	Visibility Visibility

	// Exactly one implementation is set.
	Native NativeFunc
	Body   *CompiledBody
	Proc   *Block // define_method

	// Arity of a native method: a fixed count, or -(required+1).
	Arity int

	// Undefined marks an undef'd name that stops lookup.
	Undefined bool
}

// clone copies m for aliasing or visibility changes in another class.
func (m *Method) clone(owner *Class) *Method {
	c := *m
	c.Owner = owner
	return &c
}

// MethodArity returns the arity reported by Method#arity.
func (m *Method) MethodArity() int {
	switch {
	case m.Body != nil:
		return m.Body.Arity.Value()
	case m.Proc != nil:
		return m.Proc.Arity().Value()
	}
	return m.Arity
}

// Class represents a class or module. Modules have no superclass and are
// mixed into ancestor lists by include.
type Class struct {
	Basic
	name          string
	lexicalParent *Class
	superclass    *Class
	isModule      bool
	isSingleton   bool
	attached      Value // object of a singleton class

	methods   map[string]*Method
	constants map[string]Value
	cvars     map[string]Value
	includes  []*Class // directly included modules, oldest first

	alloc func(c *Class) Value

	ancestors       []*Class
	ancestorsSerial uint64
}

// ModuleName implements scope.Module.
func (c *Class) ModuleName() string { return c.Name() }

// Name returns the qualified name, or an anonymous description.
func (c *Class) Name() string {
	if c.name != "" {
		return c.name
	}
	if c.isSingleton {
		return "#<Class:" + describe(c.attached) + ">"
	}
	if c.isModule {
		return "#<Module>"
	}
	return "#<Class>"
}

func describe(v Value) string {
	switch x := v.(type) {
	case *Class:
		return x.Name()
	case nil:
		return "nil"
	}
	return "object"
}

// Superclass returns the direct superclass.
func (c *Class) Superclass() *Class { return c.superclass }

// RealSuperclass skips singleton classes.
func (c *Class) RealSuperclass() *Class {
	s := c.superclass
	for s != nil && s.isSingleton {
		s = s.superclass
	}
	return s
}

// IsModule reports whether c is a module.
func (c *Class) IsModule() bool { return c.isModule }

// IsSingleton reports whether c is a singleton class.
func (c *Class) IsSingleton() bool { return c.isSingleton }

// Attached returns the object of a singleton class.
func (c *Class) Attached() Value { return c.attached }

// RealClass skips singleton classes.
func (c *Class) RealClass() *Class {
	for c != nil && c.isSingleton {
		c = c.superclass
	}
	return c
}

func newClass(name string, superclass *Class, module bool) *Class {
	c := &Class{
		name:       name,
		superclass: superclass,
		isModule:   module,
		methods:    make(map[string]*Method),
		constants:  make(map[string]Value),
	}
	if superclass != nil {
		c.alloc = superclass.alloc
	}
	return c
}

// ---------------------------------------------------------------------------
// Ancestors and method lookup
// ---------------------------------------------------------------------------

// Ancestors returns c, its included modules and its superclasses in
// lookup order. The list is cached until the class hierarchy changes.
func (c *Class) Ancestors(serial uint64) []*Class {
	if c.ancestors != nil && c.ancestorsSerial == serial {
		return c.ancestors
	}
	var out []*Class
	seen := make(map[*Class]bool)
	var addModule func(m *Class)
	addModule = func(m *Class) {
		if seen[m] {
			return
		}
		seen[m] = true
		out = append(out, m)
		for i := len(m.includes) - 1; i >= 0; i-- {
			addModule(m.includes[i])
		}
	}
	for k := c; k != nil; k = k.superclass {
		addModule(k)
	}
	c.ancestors = out
	c.ancestorsSerial = serial
	return out
}

// findMethod looks name up along the ancestors. Undefined entries end the
// search.
func (c *Class) findMethod(name string, serial uint64) *Method {
	for _, k := range c.Ancestors(serial) {
		if m, ok := k.methods[name]; ok {
			if m.Undefined {
				return nil
			}
			return m
		}
	}
	return nil
}

// findSuperMethod looks name up in the ancestors after owner.
func (c *Class) findSuperMethod(owner *Class, name string, serial uint64) *Method {
	anc := c.Ancestors(serial)
	i := 0
	for ; i < len(anc); i++ {
		if anc[i] == owner {
			break
		}
	}
	for i++; i < len(anc); i++ {
		if m, ok := anc[i].methods[name]; ok {
			if m.Undefined {
				return nil
			}
			return m
		}
	}
	return nil
}

// IsKindOf reports whether other is among c's ancestors.
func (c *Class) IsKindOf(other *Class, serial uint64) bool {
	for _, k := range c.Ancestors(serial) {
		if k == other {
			return true
		}
	}
	return false
}

// MethodNames lists the names defined directly in c with the given
// visibility.
func (c *Class) MethodNames(vis Visibility) []string {
	var out []string
	for name, m := range c.methods {
		if !m.Undefined && m.Visibility == vis {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// ---------------------------------------------------------------------------
// Constants and class variables
// ---------------------------------------------------------------------------

// ConstantAt returns a constant defined directly in c.
func (c *Class) ConstantAt(name string) (Value, bool) {
	v, ok := c.constants[name]
	return v, ok
}

// SetConstant defines a constant in c, naming anonymous classes.
func (c *Class) SetConstant(name string, v Value) {
	c.constants[name] = v
	if k, ok := v.(*Class); ok && k.name == "" {
		k.lexicalParent = c
		k.name = qualify(c, name)
	}
}

func qualify(container *Class, name string) string {
	if container == nil || container.name == "Object" || container.name == "" {
		return name
	}
	return container.name + "::" + name
}

// ConstantNames lists c's own constants.
func (c *Class) ConstantNames() []string {
	out := make([]string, 0, len(c.constants))
	for n := range c.constants {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// cvarOwner finds the ancestor holding a class variable.
func (c *Class) cvarOwner(name string, serial uint64) *Class {
	for _, k := range c.Ancestors(serial) {
		if _, ok := k.cvars[name]; ok {
			return k
		}
	}
	return nil
}

func (c *Class) setCvar(name string, v Value) {
	if c.cvars == nil {
		c.cvars = make(map[string]Value)
	}
	c.cvars[name] = v
}
