package vm

import (
	"sort"
	"strings"
	"unicode"
)

// ---------------------------------------------------------------------------
// Module and Class primitives
// ---------------------------------------------------------------------------

func (rt *Runtime) registerModulePrimitives() {
	m := rt.Module
	c := rt.Class

	// ---------------------------------------------------------------------------
	// Naming and comparison
	// ---------------------------------------------------------------------------

	// name - the qualified name, "" for anonymous modules
	m.AddMethod("name", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return NewString(self.(*Class).name)
	})

	toS := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return NewString(self.(*Class).Name())
	}
	// to_s - the name, or a description of an anonymous module
	m.AddMethod("to_s", 0, toS)
	m.AddMethod("inspect", 0, toS)

	// === - whether the argument is an instance of the receiver
	m.AddMethod("===", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return rt.IsKindOf(args[0], self.(*Class))
	})

	// < - whether the receiver descends from the argument, nil if unrelated
	m.AddMethod("<", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.compareModules(self.(*Class), args[0], false)
	})

	// <= - < or the same module
	m.AddMethod("<=", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.compareModules(self.(*Class), args[0], true)
	})

	// > - whether the argument descends from the receiver
	m.AddMethod(">", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.compareModules(tc.moduleArg(args[0]), self, false)
	})

	// >= - > or the same module
	m.AddMethod(">=", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.compareModules(tc.moduleArg(args[0]), self, true)
	})

	// <=> - -1, 0 or 1 by descent, nil if unrelated
	m.AddMethod("<=>", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		other, ok := args[0].(*Class)
		if !ok {
			return nil
		}
		if other == self {
			return int64(0)
		}
		switch tc.compareModules(self.(*Class), other, false) {
		case true:
			return int64(-1)
		case false:
			return int64(1)
		}
		return nil
	})

	// ancestors - the lookup order, without singleton classes
	m.AddMethod("ancestors", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		out := NewArray()
		for _, k := range self.(*Class).Ancestors(rt.serial) {
			if !k.isSingleton {
				out.Elems = append(out.Elems, k)
			}
		}
		return out
	})

	// ---------------------------------------------------------------------------
	// Mixins
	// ---------------------------------------------------------------------------

	// include - mix modules in, last argument first
	m.AddMethod("include", -2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 1, -1)
		for i := len(args) - 1; i >= 0; i-- {
			mod := tc.moduleArg(args[i])
			if !mod.isModule {
				tc.Raise(rt.TypeError, "wrong argument type Class (expected Module)")
			}
			tc.Send(mod, "append_features", self)
			tc.Send(mod, "included", self)
		}
		return self
	})

	// append_features - add the receiver to the argument's ancestors
	m.AddPrivateMethod("append_features", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.includeModule(tc.moduleArg(args[0]), self.(*Class))
		return self
	})

	// extend_object - add the receiver to the argument's singleton class
	m.AddPrivateMethod("extend_object", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.includeModule(tc.singletonClassOf(args[0]), self.(*Class))
		return args[0]
	})

	// include? - whether a module is among the ancestors
	m.AddMethod("include?", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		mod := tc.moduleArg(args[0])
		if !mod.isModule || mod == self {
			return false
		}
		return self.(*Class).IsKindOf(mod, rt.serial)
	})

	// included_modules - the modules among the ancestors
	m.AddMethod("included_modules", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		out := NewArray()
		for _, k := range self.(*Class).Ancestors(rt.serial) {
			if k.isModule && k != self {
				out.Elems = append(out.Elems, k)
			}
		}
		return out
	})

	for _, hook := range []string{"included", "extended", "inherited", "method_added", "method_removed", "method_undefined"} {
		// included, extended, inherited, method_added - hooks, do nothing
		m.AddPrivateMethod(hook, 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
			return nil
		})
	}
	for _, hook := range []string{"singleton_method_removed", "singleton_method_undefined"} {
		rt.Kernel.AddPrivateMethod(hook, 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
			return nil
		})
	}

	// ---------------------------------------------------------------------------
	// Method tables
	// ---------------------------------------------------------------------------

	listMethods := func(vis ...Visibility) NativeFunc {
		return func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
			tc.checkArity(args, 0, 1)
			inherited := len(args) == 0 || Truthy(args[0])
			return namesArray(collectMethodNames(self.(*Class), rt.serial, inherited, vis...))
		}
	}
	// instance_methods - public and protected instance method names
	m.AddMethod("instance_methods", -1, listMethods(Public, Protected))
	m.AddMethod("public_instance_methods", -1, listMethods(Public))
	m.AddMethod("protected_instance_methods", -1, listMethods(Protected))
	m.AddMethod("private_instance_methods", -1, listMethods(Private))

	defined := func(test func(*Method) bool) NativeFunc {
		return func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
			meth := self.(*Class).findMethod(tc.symbolArg(args[0]), rt.serial)
			return meth != nil && test(meth)
		}
	}
	// method_defined? - whether a public or protected method is defined
	m.AddMethod("method_defined?", 1, defined(func(meth *Method) bool { return meth.Visibility != Private }))
	m.AddMethod("public_method_defined?", 1, defined(func(meth *Method) bool { return meth.Visibility == Public }))
	m.AddMethod("protected_method_defined?", 1, defined(func(meth *Method) bool { return meth.Visibility == Protected }))
	m.AddMethod("private_method_defined?", 1, defined(func(meth *Method) bool { return meth.Visibility == Private }))

	// public - default or explicit public visibility
	m.AddMethod("public", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.changeVisibility(self.(*Class), args, Public)
	})

	// private - default or explicit private visibility
	m.AddMethod("private", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.changeVisibility(self.(*Class), args, Private)
	})

	// protected - default or explicit protected visibility
	m.AddMethod("protected", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.changeVisibility(self.(*Class), args, Protected)
	})

	// module_function - make methods private and copy them to the module
	m.AddMethod("module_function", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		mod := self.(*Class)
		if !mod.isModule {
			tc.Raise(rt.TypeError, "module_function must be called for modules")
		}
		if len(args) == 0 {
			if tc.frame != nil {
				tc.frame.Visibility = Private
				tc.frame.moduleFunction = true
			}
			return self
		}
		meta := rt.metaclass(mod)
		for _, a := range args {
			name := tc.symbolArg(a)
			meth := mod.findMethod(name, rt.serial)
			if meth == nil {
				tc.nameError(rt.NameError, name, "undefined method `%s' for module `%s'", name, mod.Name())
			}
			cp := meth.clone(meta)
			cp.Visibility = Public
			tc.addMethod(meta, cp)
			tc.setVisibility(mod, name, Private)
		}
		return self
	})

	classVisibility := func(vis Visibility) NativeFunc {
		return func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
			meta := rt.metaclass(self.(*Class))
			for _, a := range args {
				tc.setVisibility(meta, tc.symbolArg(a), vis)
			}
			return nil
		}
	}
	// private_class_method - make singleton methods private
	m.AddMethod("private_class_method", -1, classVisibility(Private))
	m.AddMethod("public_class_method", -1, classVisibility(Public))

	// attr_reader - define readers for instance variables
	m.AddMethod("attr_reader", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		for _, a := range args {
			tc.defineAttr(self.(*Class), tc.symbolArg(a), true, false)
		}
		return nil
	})

	// attr_writer - define writers for instance variables
	m.AddMethod("attr_writer", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		for _, a := range args {
			tc.defineAttr(self.(*Class), tc.symbolArg(a), false, true)
		}
		return nil
	})

	// attr_accessor - define readers and writers
	m.AddMethod("attr_accessor", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		for _, a := range args {
			tc.defineAttr(self.(*Class), tc.symbolArg(a), true, true)
		}
		return nil
	})

	// attr - a reader, and a writer when the second argument is true
	m.AddMethod("attr", -2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 1, -1)
		if len(args) == 2 {
			if b, ok := args[1].(bool); ok {
				tc.defineAttr(self.(*Class), tc.symbolArg(args[0]), true, b)
				return nil
			}
		}
		for _, a := range args {
			tc.defineAttr(self.(*Class), tc.symbolArg(a), true, false)
		}
		return nil
	})

	// define_method - define a method from a block, proc or method
	m.AddMethod("define_method", -2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 1, 2)
		k := self.(*Class)
		name := tc.symbolArg(args[0])
		var meth *Method
		var result Value
		switch {
		case len(args) == 2:
			switch body := args[1].(type) {
			case *Proc:
				meth = &Method{Name: name, Owner: k, Proc: body.Block.clone(LambdaBlock)}
			case *MethodValue:
				meth = body.Method.clone(k)
				meth.Name = name
			default:
				tc.Raise(rt.TypeError, "wrong argument type %s (expected Proc/Method)", rt.RealClassOf(body).Name())
			}
			result = args[1]
		case blk.IsGiven():
			p := blk.ToProc(ProcBlock)
			meth = &Method{Name: name, Owner: k, Proc: blk.clone(LambdaBlock)}
			result = p
		default:
			tc.Raise(rt.ArgumentError, "tried to create Proc object without a block")
		}
		meth.Visibility = Public
		tc.addMethod(k, meth)
		tc.methodAdded(k, name)
		return result
	})

	// alias_method - copy a method under a new name
	m.AddMethod("alias_method", 2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		k := self.(*Class)
		name := tc.symbolArg(args[0])
		tc.aliasMethod(k, name, tc.symbolArg(args[1]))
		tc.methodAdded(k, name)
		return self
	})

	// remove_method - delete a method defined directly in the receiver
	m.AddMethod("remove_method", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		k := self.(*Class)
		for _, a := range args {
			name := tc.symbolArg(a)
			if meth, ok := k.methods[name]; !ok || meth.Undefined {
				tc.nameError(rt.NameError, name, "method `%s' not defined in %s", name, k.Name())
			}
			delete(k.methods, name)
			rt.serial++
			tc.methodHook(k, "method_removed", "singleton_method_removed", name)
		}
		return self
	})

	// undef_method - stop lookup of a method at the receiver
	m.AddMethod("undef_method", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		k := self.(*Class)
		for _, a := range args {
			name := tc.symbolArg(a)
			tc.undefMethod(k, name)
			tc.methodHook(k, "method_undefined", "singleton_method_undefined", name)
		}
		return self
	})

	// instance_method - an unbound method object
	m.AddMethod("instance_method", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		k := self.(*Class)
		name := tc.symbolArg(args[0])
		meth := k.findMethod(name, rt.serial)
		if meth == nil {
			tc.nameError(rt.NameError, name, "undefined method `%s' for %s `%s'", name, moduleKind(k), k.Name())
		}
		return &MethodValue{Method: meth, Name: name, Unbound: true, Origin: k}
	})

	classEval := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if !blk.IsGiven() {
			tc.Raise(rt.NotImplementedError, "module_eval of a string is not supported")
		}
		k := self.(*Class)
		return tc.evalUnder(blk, k, k, k)
	}
	// class_eval - run the block with the module as self and definition target
	m.AddMethod("class_eval", -1, classEval)
	m.AddMethod("module_eval", -1, classEval)

	classExec := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if !blk.IsGiven() {
			tc.localJumpError("no block given", "noreason", nil)
		}
		k := self.(*Class)
		return tc.evalUnder(blk, k, k, args...)
	}
	// class_exec - class_eval passing arguments to the block
	m.AddMethod("class_exec", -1, classExec)
	m.AddMethod("module_exec", -1, classExec)

	// ---------------------------------------------------------------------------
	// Class variables and constants
	// ---------------------------------------------------------------------------

	// class_variable_get - read a class variable by name
	m.AddMethod("class_variable_get", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.cvarGet(self.(*Class), tc.cvarName(args[0]))
	})

	// class_variable_set - assign a class variable by name
	m.AddMethod("class_variable_set", 2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.cvarSet(self.(*Class), tc.cvarName(args[0]), args[1], false)
		return args[1]
	})

	// class_variable_defined? - whether a class variable is visible
	m.AddMethod("class_variable_defined?", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.cvarBase(self.(*Class)).cvarOwner(tc.cvarName(args[0]), rt.serial) != nil
	})

	// class_variables - names of the visible class variables
	m.AddMethod("class_variables", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		seen := make(map[string]bool)
		var names []string
		for _, k := range tc.cvarBase(self.(*Class)).Ancestors(rt.serial) {
			for _, n := range sortedKeys(k.cvars) {
				if !seen[n] {
					seen[n] = true
					names = append(names, n)
				}
			}
		}
		return namesArray(names)
	})

	// const_get - look a constant up in the module and its ancestors
	m.AddMethod("const_get", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		name := tc.constName(args[0])
		k := self.(*Class)
		if v, ok := tc.constIn(k, name); ok {
			return v
		}
		if k.isModule {
			if v, ok := rt.Object.constants[name]; ok {
				return v
			}
		}
		return tc.Send(k, "const_missing", Symbol(name))
	})

	// const_set - define a constant
	m.AddMethod("const_set", 2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.setConst(self.(*Class), tc.constName(args[0]), args[1])
		return args[1]
	})

	// const_defined? - whether a constant is defined directly in the module
	m.AddMethod("const_defined?", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		k := self.(*Class)
		name := tc.constName(args[0])
		if _, ok := k.ConstantAt(name); ok {
			return true
		}
		if k == rt.Object {
			_, ok := tc.constIn(k, name)
			return ok
		}
		return false
	})

	// constants - names of the constants reachable from the module
	m.AddMethod("constants", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		k := self.(*Class)
		seen := make(map[string]bool)
		var names []string
		for _, a := range k.Ancestors(rt.serial) {
			if a == rt.Object && k != rt.Object {
				break
			}
			for _, n := range a.ConstantNames() {
				if !seen[n] {
					seen[n] = true
					names = append(names, n)
				}
			}
		}
		return namesArray(names)
	})

	// const_missing - raise NameError for an unknown constant
	m.AddMethod("const_missing", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		name := tc.symbolArg(args[0])
		k := self.(*Class)
		if k == rt.Object {
			tc.nameError(rt.NameError, name, "uninitialized constant %s", name)
		}
		tc.nameError(rt.NameError, name, "uninitialized constant %s::%s", k.Name(), name)
		return nil
	})

	// ---------------------------------------------------------------------------
	// Creation
	// ---------------------------------------------------------------------------

	// initialize - module_eval the block given to Module.new
	m.AddPrivateMethod("initialize", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if blk.IsGiven() {
			k := self.(*Class)
			tc.evalUnder(blk, k, k, k)
		}
		return nil
	})

	// Class#initialize - set the superclass, then class_eval the block
	c.AddPrivateMethod("initialize", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 0, 1)
		k := self.(*Class)
		super := rt.Object
		if len(args) == 1 {
			s, ok := args[0].(*Class)
			if !ok || s.isModule {
				tc.Raise(rt.TypeError, "superclass must be a Class (%s given)", rt.RealClassOf(args[0]).Name())
			}
			if s == rt.Class {
				tc.Raise(rt.TypeError, "can't make subclass of Class")
			}
			if s.isSingleton {
				tc.Raise(rt.TypeError, "can't make subclass of virtual class")
			}
			super = s
		}
		k.superclass = super
		k.alloc = super.alloc
		if k.class != nil && k.class.isSingleton && k.class.attached == k {
			k.class.superclass = rt.metaclass(super)
		}
		rt.serial++
		tc.Send(super, "inherited", k)
		if blk.IsGiven() {
			tc.evalUnder(blk, k, k, k)
		}
		return nil
	})

	// allocate - an uninitialized instance
	c.AddMethod("allocate", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.allocate(self.(*Class))
	})

	// new - allocate, then send initialize
	c.AddMethod("new", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		obj := tc.allocate(self.(*Class))
		tc.callMethod(obj, "initialize", args, blk, SendFunctional, nil)
		return obj
	})

	// superclass - the real superclass, nil for Object
	c.AddMethod("superclass", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if s := self.(*Class).RealSuperclass(); s != nil {
			return s
		}
		return nil
	})

	// Object#initialize - accepts no arguments
	rt.Object.AddPrivateMethod("initialize", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return nil
	})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// compareModules answers sub < sup (or <= when orEqual): true, false, or
// nil when neither descends from the other.
func (tc *ThreadContext) compareModules(sub *Class, v Value, orEqual bool) Value {
	sup, ok := v.(*Class)
	if !ok {
		tc.Raise(tc.rt.TypeError, "compared with non class/module")
	}
	if sub == sup {
		return orEqual
	}
	if sub.IsKindOf(sup, tc.rt.serial) {
		return true
	}
	if sup.IsKindOf(sub, tc.rt.serial) {
		return false
	}
	return nil
}

func (tc *ThreadContext) allocate(c *Class) Value {
	if c.isSingleton {
		tc.Raise(tc.rt.TypeError, "can't create instance of virtual class")
	}
	if c.alloc == nil {
		tc.Raise(tc.rt.TypeError, "allocator undefined for %s", c.Name())
	}
	v := c.alloc(c)
	if _, isClass := v.(*Class); !isClass {
		if h, ok := v.(HeapValue); ok {
			h.basic().class = c
		}
	}
	return v
}

// defineAttr defines attribute accessors for @name.
func (tc *ThreadContext) defineAttr(c *Class, name string, reader, writer bool) {
	if !isIdentifier(name) {
		tc.nameError(tc.rt.NameError, name, "invalid attribute name `%s'", name)
	}
	ivar := "@" + name
	vis := Public
	if tc.frame != nil && tc.frame.Self == c {
		vis = tc.frame.Visibility
	}
	if reader {
		tc.addMethod(c, &Method{Name: name, Owner: c, Visibility: vis, Arity: 0,
			Native: func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
				return tc.ivarGet(self, ivar)
			}})
		tc.methodAdded(c, name)
	}
	if writer {
		tc.addMethod(c, &Method{Name: name + "=", Owner: c, Visibility: vis, Arity: 1,
			Native: func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
				tc.ivarSet(self, ivar, args[0])
				return args[0]
			}})
		tc.methodAdded(c, name+"=")
	}
}

// methodAdded sends method_added, or singleton_method_added for singleton
// classes.
func (tc *ThreadContext) methodAdded(c *Class, name string) {
	tc.methodHook(c, "method_added", "singleton_method_added", name)
}

func (tc *ThreadContext) methodHook(c *Class, hook, singletonHook, name string) {
	if c.isSingleton {
		tc.Send(c.attached, singletonHook, Symbol(name))
		return
	}
	tc.Send(c, hook, Symbol(name))
}

func (tc *ThreadContext) cvarName(v Value) string {
	name := tc.symbolArg(v)
	if !strings.HasPrefix(name, "@@") || len(name) < 3 {
		tc.nameError(tc.rt.NameError, name, "`%s' is not allowed as a class variable name", name)
	}
	return name
}

func (tc *ThreadContext) constName(v Value) string {
	name := tc.symbolArg(v)
	if name == "" || !unicode.IsUpper([]rune(name)[0]) || !isIdentifier(name) {
		tc.nameError(tc.rt.NameError, name, "wrong constant name %s", name)
	}
	return name
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
