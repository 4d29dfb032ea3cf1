package vm

import (
	"math/big"
	"strings"
)

// ---------------------------------------------------------------------------
// Class of a value
// ---------------------------------------------------------------------------

// ClassOf returns the class method lookup starts from, including
// singleton classes.
func (rt *Runtime) ClassOf(v Value) *Class {
	switch x := v.(type) {
	case nil:
		return rt.NilClass
	case bool:
		if x {
			return rt.TrueClass
		}
		return rt.FalseClass
	case int64:
		return rt.Fixnum
	case *big.Int:
		return rt.Bignum
	case float64:
		return rt.Float
	case Symbol:
		return rt.Symbol
	case *Class:
		if x.class != nil {
			return x.class
		}
		if x.isModule {
			return rt.Module
		}
		return rt.metaclass(x)
	case HeapValue:
		if c := x.basic().class; c != nil {
			return c
		}
		return rt.defaultClass(v)
	}
	return rt.Object
}

// RealClassOf returns the class of v without singleton classes.
func (rt *Runtime) RealClassOf(v Value) *Class {
	return rt.ClassOf(v).RealClass()
}

func (rt *Runtime) defaultClass(v Value) *Class {
	switch v.(type) {
	case *String:
		return rt.String
	case *Array:
		return rt.Array
	case *Hash:
		return rt.Hash
	case *Range:
		return rt.Range
	case *Proc:
		return rt.Proc
	case *Regexp:
		return rt.Regexp
	case *MatchData:
		return rt.MatchData
	case *MethodValue:
		return rt.MethodClass
	case *Enumerator:
		return rt.Enumerator
	case *Thread:
		return rt.ThreadClass
	case *ThreadGroup:
		return rt.ThreadGroupClass
	case *Mutex:
		return rt.MutexClass
	case *Queue:
		return rt.QueueClass
	case *IO:
		return rt.IOClass
	case *StringScanner:
		return rt.StringScannerClass
	}
	return rt.Object
}

// metaclass returns the singleton class of a class, creating the chain of
// metaclasses up its superclasses.
func (rt *Runtime) metaclass(c *Class) *Class {
	if c.class != nil && c.class.isSingleton && c.class.attached == c {
		return c.class
	}
	var super *Class
	switch {
	case c.isModule:
		super = rt.Module
	case c.superclass != nil:
		super = rt.metaclass(c.RealSuperclass())
	default:
		super = rt.Class
	}
	meta := newClass("", super, false)
	meta.isSingleton = true
	meta.attached = c
	c.class = meta
	rt.serial++
	return meta
}

// singletonClassOf returns the singleton class of v, creating it.
func (tc *ThreadContext) singletonClassOf(v Value) *Class {
	rt := tc.rt
	switch x := v.(type) {
	case nil, bool:
		return rt.ClassOf(v)
	case int64, *big.Int, float64, Symbol:
		tc.Raise(rt.TypeError, "can't define singleton")
	case *Class:
		return rt.metaclass(x)
	case HeapValue:
		b := x.basic()
		if b.class != nil && b.class.isSingleton && b.class.attached == v {
			return b.class
		}
		sc := newClass("", rt.ClassOf(v), false)
		sc.isSingleton = true
		sc.attached = v
		b.class = sc
		rt.serial++
		return sc
	}
	tc.Raise(rt.TypeError, "can't define singleton")
	return nil
}

// IsKindOf reports whether v is an instance of c or its descendants.
func (rt *Runtime) IsKindOf(v Value, c *Class) bool {
	return rt.ClassOf(v).IsKindOf(c, rt.serial)
}

// ---------------------------------------------------------------------------
// Method tables
// ---------------------------------------------------------------------------

// AddMethod defines a public native method. Arity is a fixed count, or
// -(required+1) for variable argument lists.
func (c *Class) AddMethod(name string, arity int, fn NativeFunc) {
	c.methods[name] = &Method{Name: name, Owner: c, Native: fn, Arity: arity}
}

// AddPrivateMethod defines a private native method.
func (c *Class) AddPrivateMethod(name string, arity int, fn NativeFunc) {
	c.methods[name] = &Method{Name: name, Owner: c, Native: fn, Arity: arity, Visibility: Private}
}

// addMethod installs m and invalidates caches.
func (tc *ThreadContext) addMethod(c *Class, m *Method) {
	if c.frozen {
		tc.Raise(tc.rt.TypeError, "can't modify frozen %s", c.Name())
	}
	if old, ok := c.methods[m.Name]; ok && !old.Undefined && old.Body != nil && tc.rt.opts.Verbose {
		tc.rt.warn("method redefined; discarding old " + m.Name)
	}
	c.methods[m.Name] = m
	tc.rt.serial++
}

func (tc *ThreadContext) aliasMethod(c *Class, newName, oldName string) {
	rt := tc.rt
	m := c.findMethod(oldName, rt.serial)
	if m == nil && c.isModule {
		m = rt.Object.findMethod(oldName, rt.serial)
	}
	if m == nil {
		tc.nameError(rt.NameError, oldName, "undefined method `%s' for %s `%s'", oldName, moduleKind(c), c.Name())
	}
	alias := m.clone(m.Owner)
	alias.Name = newName
	c.methods[newName] = alias
	rt.serial++
}

func (tc *ThreadContext) undefMethod(c *Class, name string) {
	rt := tc.rt
	if c.findMethod(name, rt.serial) == nil {
		tc.nameError(rt.NameError, name, "undefined method `%s' for %s `%s'", name, moduleKind(c), c.Name())
	}
	c.methods[name] = &Method{Name: name, Owner: c, Undefined: true}
	rt.serial++
}

// setVisibility changes the visibility of name as seen from c.
func (tc *ThreadContext) setVisibility(c *Class, name string, vis Visibility) {
	rt := tc.rt
	m := c.findMethod(name, rt.serial)
	if m == nil && c.isModule {
		m = rt.Object.findMethod(name, rt.serial)
	}
	if m == nil {
		tc.nameError(rt.NameError, name, "undefined method `%s' for %s `%s'", name, moduleKind(c), c.Name())
	}
	if m.Visibility == vis {
		return
	}
	if m.Owner == c {
		m.Visibility = vis
	} else {
		cp := m.clone(c)
		cp.Visibility = vis
		c.methods[name] = cp
	}
	rt.serial++
}

func moduleKind(c *Class) string {
	if c.isModule {
		return "module"
	}
	return "class"
}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

// Send calls a method on recv, allowing private methods.
func (tc *ThreadContext) Send(recv Value, name string, args ...Value) Value {
	return tc.callMethod(recv, name, args, NullBlock, SendFunctional, nil)
}

// SendBlock calls a method on recv with a block.
func (tc *ThreadContext) SendBlock(recv Value, name string, blk *Block, args ...Value) Value {
	return tc.callMethod(recv, name, args, blk, SendFunctional, nil)
}

// RespondTo reports whether recv has a public method name.
func (tc *ThreadContext) RespondTo(recv Value, name string) bool {
	m := tc.rt.ClassOf(recv).findMethod(name, tc.rt.serial)
	return m != nil && m.Visibility != Private
}

// callMethod looks name up for recv and invokes it, applying visibility
// rules and method_missing.
func (tc *ThreadContext) callMethod(recv Value, name string, args []Value, blk *Block, flags byte, ic *InlineCache) Value {
	rt := tc.rt
	cls := rt.ClassOf(recv)
	var m *Method
	if ic != nil {
		m = ic.Lookup(cls, rt.serial)
	}
	if m == nil {
		m = cls.findMethod(name, rt.serial)
		if ic != nil {
			ic.Update(cls, m, rt.serial)
		}
	}
	if m == nil {
		return tc.methodMissing(recv, name, args, blk, flags)
	}
	if flags&SendFunctional == 0 {
		switch m.Visibility {
		case Private:
			tc.nameError(rt.NoMethodError, name, "private method `%s' called for %s", name, tc.describe(recv))
		case Protected:
			var self Value
			if tc.frame != nil {
				self = tc.frame.Self
			}
			if !rt.IsKindOf(self, m.Owner.RealClass()) {
				tc.nameError(rt.NoMethodError, name, "protected method `%s' called for %s", name, tc.describe(recv))
			}
		}
	}
	return tc.invokeMethod(m, recv, args, blk)
}

func (tc *ThreadContext) methodMissing(recv Value, name string, args []Value, blk *Block, flags byte) Value {
	rt := tc.rt
	mm := rt.ClassOf(recv).findMethod("method_missing", rt.serial)
	if mm == nil || mm.Owner == rt.Kernel {
		tc.raiseNoMethod(recv, name, flags&SendVariable != 0)
	}
	full := make([]Value, 0, len(args)+1)
	full = append(full, Symbol(name))
	full = append(full, args...)
	return tc.invokeMethod(mm, recv, full, blk)
}

func (tc *ThreadContext) raiseNoMethod(recv Value, name string, variable bool) {
	rt := tc.rt
	if variable {
		tc.nameError(rt.NameError, name, "undefined local variable or method `%s' for %s", name, tc.describe(recv))
	}
	tc.nameError(rt.NoMethodError, name, "undefined method `%s' for %s", name, tc.describe(recv))
}

// describe renders a receiver for error messages.
func (tc *ThreadContext) describe(v Value) string {
	rt := tc.rt
	if v == rt.main {
		return "main:Object"
	}
	s := tc.Inspect(v)
	if strings.HasPrefix(s, "#") {
		return s
	}
	return s + ":" + rt.RealClassOf(v).Name()
}

// invokeMethod runs m with recv as self.
func (tc *ThreadContext) invokeMethod(m *Method, recv Value, args []Value, blk *Block) Value {
	switch {
	case m.Native != nil:
		if !arityAccepts(m.Arity, len(args)) {
			tc.argumentCountError(len(args), arityRequired(m.Arity))
		}
		tc.pushSite(nil, m.Name)
		defer tc.popSite()
		return m.Native(tc, recv, args, blk)

	case m.Proc != nil:
		frame := &Frame{
			Self:       recv,
			Klazz:      m.Owner,
			Method:     m.Name,
			Block:      blk,
			Args:       args,
			Visibility: Public,
			active:     true,
		}
		return tc.invokeBlock(m.Proc, blockCall{
			args:     args,
			multiple: true,
			self:     recv,
			hasSelf:  true,
			frame:    frame,
			block:    blk,
		})
	}
	return tc.invokeBody(m, recv, args, blk)
}

func (tc *ThreadContext) invokeBody(m *Method, recv Value, args []Value, blk *Block) Value {
	body := m.Body
	frame := &Frame{
		Self:       recv,
		Klazz:      m.Owner,
		Method:     m.Name,
		Block:      blk,
		Args:       args,
		Visibility: Public,
		active:     true,
	}
	d := NewDynamicScope(body.Scope, nil)
	frame.Scope = d

	tc.pushSite(body, m.Name)
	defer tc.popSite()
	defer func() { frame.active = false }()
	tc.bindMethodArgs(body, d, args, blk)

	a := &activation{
		tc:    tc,
		body:  body,
		frame: frame,
		scope: d,
		self:  recv,
		stack: make([]Value, 0, body.MaxStack+1),
	}
	if body.LocalExits {
		return a.execute()
	}
	v, j := catchJump(a.execute, func(j *JumpError) bool {
		return j.Kind == ReturnJump && j.Target == frame
	})
	if j != nil {
		return j.Value
	}
	return v
}

// bindMethodArgs stores arguments in their parameter slots. Required
// parameters come first, then optional ones; defaults for missing optional
// parameters are evaluated by the body itself.
func (tc *ThreadContext) bindMethodArgs(body *CompiledBody, d *DynamicScope, args []Value, blk *Block) {
	sc := body.Scope
	req, opt, rest := sc.RequiredArgs(), sc.OptionalArgs(), sc.RestArg()
	n := len(args)
	if n < req || rest < 0 && n > req+opt {
		tc.argumentCountError(n, req)
	}
	for i := 0; i < req; i++ {
		d.Set(i, 0, args[i])
	}
	for i := req; i < req+opt && i < n; i++ {
		d.Set(i, 0, args[i])
	}
	if rest >= 0 {
		var extra []Value
		if n > req+opt {
			extra = append(extra, args[req+opt:]...)
		}
		d.Set(rest, 0, NewArray(extra...))
	}
	if body.BlockArg >= 0 {
		if blk.IsGiven() {
			d.Set(body.BlockArg, 0, blk.ToProc(ProcBlock))
		} else {
			d.Set(body.BlockArg, 0, nil)
		}
	}
}

// callSuper invokes the next implementation of the frame's method.
func (tc *ThreadContext) callSuper(f *Frame, args []Value, blk *Block) Value {
	rt := tc.rt
	if f.Method == "" || f.Klazz == nil {
		tc.Raise(rt.NoMethodError, "super called outside of method")
	}
	m := rt.ClassOf(f.Self).findSuperMethod(f.Klazz, f.Method, rt.serial)
	if m == nil {
		if mm := rt.ClassOf(f.Self).findMethod("method_missing", rt.serial); mm != nil && mm.Owner != rt.Kernel {
			return tc.invokeMethod(mm, f.Self, append([]Value{Symbol(f.Method)}, args...), blk)
		}
		tc.nameError(rt.NoMethodError, f.Method, "super: no superclass method `%s'", f.Method)
	}
	return tc.invokeMethod(m, f.Self, args, blk)
}

func arityAccepts(arity, n int) bool {
	if arity >= 0 {
		return n == arity
	}
	return n >= -(arity + 1)
}

func arityRequired(arity int) int {
	if arity >= 0 {
		return arity
	}
	return -(arity + 1)
}

// checkArity raises ArgumentError unless min <= len(args) <= max; a
// negative max means no upper bound.
func (tc *ThreadContext) checkArity(args []Value, min, max int) {
	n := len(args)
	if n < min {
		tc.argumentCountError(n, min)
	}
	if max >= 0 && n > max {
		tc.argumentCountError(n, max)
	}
}

// ---------------------------------------------------------------------------
// Conversions used by the instruction set
// ---------------------------------------------------------------------------

// blockArg turns the block operand of a send into a block.
func (tc *ThreadContext) blockArg(v Value) *Block {
	switch x := v.(type) {
	case *Block:
		return x
	case *Proc:
		return x.Block
	}
	return NullBlock
}

// toBlock converts the operand of &expr.
func (tc *ThreadContext) toBlock(v Value) Value {
	switch x := v.(type) {
	case nil:
		return nil
	case *Proc:
		return x.Block
	case *Block:
		return x
	}
	if tc.RespondTo(v, "to_proc") {
		if p, ok := tc.Send(v, "to_proc").(*Proc); ok {
			return p.Block
		}
	}
	tc.typeError(v, "Proc")
	return nil
}

// splatValue converts the operand of *expr into a fresh array.
func (tc *ThreadContext) splatValue(v Value) *Array {
	switch x := v.(type) {
	case *Array:
		return NewArray(append([]Value(nil), x.Elems...)...)
	case nil:
		return NewArray()
	case *Hash, *Range:
		if a, ok := tc.Send(v, "to_a").(*Array); ok {
			return a
		}
	}
	if tc.RespondTo(v, "to_ary") {
		if a, ok := tc.Send(v, "to_ary").(*Array); ok {
			return NewArray(append([]Value(nil), a.Elems...)...)
		}
	}
	return NewArray(v)
}

// toAryValue converts the source of a multiple assignment.
func (tc *ThreadContext) toAryValue(v Value) *Array {
	if a, ok := v.(*Array); ok {
		return a
	}
	if tc.RespondTo(v, "to_ary") {
		a, ok := tc.Send(v, "to_ary").(*Array)
		if !ok {
			tc.Raise(tc.rt.TypeError, "%s#to_ary should return Array", tc.rt.RealClassOf(v).Name())
		}
		return a
	}
	return NewArray(v)
}

// AsString converts v with to_s.
func (tc *ThreadContext) AsString(v Value) *String {
	if s, ok := v.(*String); ok {
		return s
	}
	if s, ok := tc.Send(v, "to_s").(*String); ok {
		return s
	}
	return NewString(tc.anyToS(v))
}

// Inspect renders v with its inspect method.
func (tc *ThreadContext) Inspect(v Value) string {
	if s, ok := tc.Send(v, "inspect").(*String); ok {
		return s.S
	}
	return tc.anyToS(v)
}

// anyToS is the default to_s: #<ClassName>.
func (tc *ThreadContext) anyToS(v Value) string {
	return "#<" + tc.rt.RealClassOf(v).Name() + ">"
}
