package vm

import (
	"math"
	"math/big"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Kernel: Module functions available everywhere
// ---------------------------------------------------------------------------

func (rt *Runtime) registerKernelPrimitives() {
	k := rt.Kernel

	// puts - write each argument and a newline to $stdout
	k.AddPrivateMethod("puts", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.stdoutWrite(tc.putsString(args))
		return nil
	})

	// print - write the arguments to $stdout
	k.AddPrivateMethod("print", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.stdoutWrite(tc.printString(args))
		return nil
	})

	// p - write the inspected arguments to $stdout
	k.AddPrivateMethod("p", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		var sb strings.Builder
		for _, a := range args {
			sb.WriteString(tc.Inspect(a))
			sb.WriteByte('\n')
		}
		tc.stdoutWrite(sb.String())
		return nil
	})

	printf := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if len(args) == 0 {
			return nil
		}
		tc.stdoutWrite(tc.format(tc.AsString(args[0]).S, args[1:]))
		return nil
	}
	// printf - write formatted output to $stdout
	k.AddPrivateMethod("printf", -1, printf)

	sprintf := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 1, -1)
		return NewString(tc.format(tc.AsString(args[0]).S, args[1:]))
	}
	// sprintf - format a string
	k.AddPrivateMethod("sprintf", -1, sprintf)
	k.AddPrivateMethod("format", -1, sprintf)

	raise := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.RaiseException(tc.makeException(args))
		return nil
	}
	// raise - raise an exception
	k.AddPrivateMethod("raise", -1, raise)
	k.AddPrivateMethod("fail", -1, raise)

	// loop - yield until break or StopIteration
	k.AddPrivateMethod("loop", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if !blk.IsGiven() {
			tc.localJumpError("no block given", "noreason", nil)
		}
		_, re := catchRaise(func() Value {
			for {
				tc.YieldValues(blk)
				tc.poll()
			}
		})
		if re != nil && !rt.IsKindOf(re.Exception, rt.StopIteration) {
			panic(re)
		}
		return nil
	})

	lambda := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if !blk.IsGiven() {
			tc.Raise(rt.ArgumentError, "tried to create Proc object without a block")
		}
		return blk.ToProc(LambdaBlock)
	}
	// lambda - a proc with strict arity and its own return
	k.AddPrivateMethod("lambda", 0, lambda)
	// proc - same as lambda
	k.AddPrivateMethod("proc", 0, lambda)

	// block_given? - whether the calling method received a block
	blockGiven := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.frame != nil && tc.frame.Block.IsGiven()
	}
	k.AddPrivateMethod("block_given?", 0, blockGiven)
	k.AddPrivateMethod("iterator?", 0, blockGiven)

	// catch - run the block, stopping at a matching throw
	k.AddPrivateMethod("catch", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tag := args[0]
		tc.catches = append(tc.catches, tag)
		n := len(tc.catches)
		defer func() { tc.catches = tc.catches[:n-1] }()
		v, j := catchJump(func() Value { return tc.Yield(blk, tag) }, func(j *JumpError) bool {
			return j.Kind == ThrowJump && Identical(j.ThrowTag, tag)
		})
		if j != nil {
			return j.Value
		}
		return v
	})

	// throw - unwind to the catch block for the tag
	k.AddPrivateMethod("throw", -2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 1, 2)
		tag := args[0]
		var v Value
		if len(args) == 2 {
			v = args[1]
		}
		for i := len(tc.catches) - 1; i >= 0; i-- {
			if Identical(tc.catches[i], tag) {
				panic(&JumpError{Kind: ThrowJump, ThrowTag: tag, Value: v})
			}
		}
		tc.nameError(rt.NameError, rt.inspectTag(tag), "uncaught throw `%s'", rt.inspectTag(tag))
		return nil
	})

	// sleep - pause the thread, forever without an argument
	k.AddPrivateMethod("sleep", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 0, 1)
		d := time.Duration(-1)
		if len(args) == 1 {
			d = tc.durationArg(args[0])
		}
		return tc.sleep(d)
	})

	// at_exit - register a block to run when the program ends
	k.AddPrivateMethod("at_exit", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if !blk.IsGiven() {
			tc.Raise(rt.ArgumentError, "called without a block")
		}
		p := blk.ToProc(ProcBlock)
		rt.endBlocks = append(rt.endBlocks, p.Block)
		return p
	})

	// exit - raise SystemExit
	k.AddPrivateMethod("exit", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 0, 1)
		status := 0
		if len(args) == 1 {
			switch x := args[0].(type) {
			case bool:
				if !x {
					status = 1
				}
			case int64:
				status = int(x)
			default:
				tc.typeError(x, "Integer")
			}
		}
		ex := tc.newException(rt.SystemExit, "exit")
		ex.Status = status
		tc.RaiseException(ex)
		return nil
	})

	// abort - print a message to $stderr and exit with status 1
	k.AddPrivateMethod("abort", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 0, 1)
		msg := "exit"
		if len(args) == 1 {
			msg = tc.AsString(args[0]).S
			tc.Send(tc.GetGlobal("$stderr"), "write", NewString(msg+"\n"))
		}
		ex := tc.newException(rt.SystemExit, msg)
		ex.Status = 1
		tc.RaiseException(ex)
		return nil
	})

	// caller - the current backtrace without the innermost entries
	k.AddPrivateMethod("caller", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 0, 1)
		start := 1
		if len(args) == 1 {
			start = int(tc.intArg(args[0]))
		}
		lines := tc.Backtrace()
		out := NewArray()
		for i := start; i < len(lines); i++ {
			out.Elems = append(out.Elems, NewString(lines[i]))
		}
		return out
	})

	// rand - a random float, or an integer below the argument
	k.AddPrivateMethod("rand", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 0, 1)
		if len(args) == 0 || args[0] == nil {
			return rand.Float64()
		}
		n := tc.intArg(args[0])
		if n < 0 {
			n = -n
		}
		if n == 0 {
			return rand.Float64()
		}
		return rand.Int63n(n)
	})

	// Integer - strict conversion to an integer
	k.AddPrivateMethod("Integer", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		switch x := args[0].(type) {
		case int64, *big.Int:
			return x
		case float64:
			return floatToInteger(tc, x)
		case *String:
			v, ok := parseInteger(x.S, 10, true)
			if !ok {
				tc.Raise(rt.ArgumentError, "invalid value for Integer: %s", InspectString(x.S))
			}
			return v
		case nil:
			tc.Raise(rt.TypeError, "can't convert nil into Integer")
		}
		if tc.RespondTo(args[0], "to_int") {
			return tc.Send(args[0], "to_int")
		}
		return tc.Send(args[0], "to_i")
	})

	// Float - strict conversion to a float
	k.AddPrivateMethod("Float", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		switch x := args[0].(type) {
		case float64:
			return x
		case int64:
			return float64(x)
		case *big.Int:
			f, _ := new(big.Float).SetInt(x).Float64()
			return f
		case *String:
			f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(x.S), "_", ""), 64)
			if err != nil {
				tc.Raise(rt.ArgumentError, "invalid value for Float(): %s", InspectString(x.S))
			}
			return f
		case nil:
			tc.Raise(rt.TypeError, "can't convert nil into Float")
		}
		return tc.Send(args[0], "to_f")
	})

	// String - conversion with to_s
	k.AddPrivateMethod("String", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.AsString(args[0])
	})

	// Array - conversion with to_ary or to_a
	k.AddPrivateMethod("Array", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		switch x := args[0].(type) {
		case nil:
			return NewArray()
		case *Array:
			return x
		}
		if tc.RespondTo(args[0], "to_ary") {
			return tc.Send(args[0], "to_ary")
		}
		if tc.RespondTo(args[0], "to_a") {
			return tc.Send(args[0], "to_a")
		}
		return NewArray(args[0])
	})

	// method_missing - raise NoMethodError; overriding it changes dispatch
	k.AddPrivateMethod("method_missing", -2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		name, ok := args[0].(Symbol)
		if !ok {
			tc.Raise(rt.ArgumentError, "no id given")
		}
		tc.raiseNoMethod(self, string(name), false)
		return nil
	})

	// singleton_method_added - hook, does nothing
	k.AddPrivateMethod("singleton_method_added", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return nil
	})
}

// ---------------------------------------------------------------------------
// Object: Methods every object responds to
// ---------------------------------------------------------------------------

func (rt *Runtime) registerObjectPrimitives() {
	k := rt.Kernel

	// class - the real class
	k.AddMethod("class", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return rt.RealClassOf(self)
	})

	// singleton_class - the singleton class, created on demand
	k.AddMethod("singleton_class", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.singletonClassOf(self)
	})

	identical := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return Identical(self, args[0])
	}
	// == - identity unless overridden
	k.AddMethod("==", 1, identical)
	k.AddMethod("equal?", 1, identical)
	k.AddMethod("eql?", 1, identical)

	// === - case equality, == by default
	k.AddMethod("===", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return Identical(self, args[0]) || tc.Equal(self, args[0])
	})

	// =~ - pattern match, false by default
	k.AddMethod("=~", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return false
	})

	// !~ - negated =~
	k.AddMethod("!~", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return !Truthy(tc.Send(self, "=~", args[0]))
	})

	// hash - hash code consistent with eql?
	k.AddMethod("hash", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return rt.hashCode(self)
	})

	objectID := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return rt.objectID(self)
	}
	// object_id - unique identifier
	k.AddMethod("object_id", 0, objectID)
	k.AddMethod("__id__", 0, objectID)

	// to_s - #<ClassName>
	k.AddMethod("to_s", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return NewString(tc.anyToS(self))
	})

	// inspect - class name and instance variables
	k.AddMethod("inspect", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return NewString(tc.inspectObject(self))
	})

	// nil? - false except for nil
	k.AddMethod("nil?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return self == nil
	})

	isA := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return rt.IsKindOf(self, tc.moduleArg(args[0]))
	}
	// is_a? - whether the class or a module is among the ancestors
	k.AddMethod("is_a?", 1, isA)
	k.AddMethod("kind_of?", 1, isA)

	// instance_of? - whether the real class is exactly the argument
	k.AddMethod("instance_of?", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return rt.RealClassOf(self) == tc.moduleArg(args[0])
	})

	// respond_to? - whether a method is defined, optionally counting private ones
	k.AddMethod("respond_to?", -2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 1, 2)
		name := tc.symbolArg(args[0])
		m := rt.ClassOf(self).findMethod(name, rt.serial)
		if m == nil {
			return false
		}
		return m.Visibility != Private || len(args) == 2 && Truthy(args[1])
	})

	send := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 1, -1)
		name := tc.symbolArg(args[0])
		return tc.callMethod(self, name, args[1:], blk, SendFunctional, nil)
	}
	// send - call a method by name, private ones included
	k.AddMethod("send", -2, send)
	k.AddMethod("__send__", -2, send)

	// method - the method as a Method object
	k.AddMethod("method", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		name := tc.symbolArg(args[0])
		m := rt.ClassOf(self).findMethod(name, rt.serial)
		if m == nil {
			tc.nameError(rt.NameError, name, "undefined method `%s' for %s", name, tc.describe(self))
		}
		return &MethodValue{Receiver: self, Method: m, Name: name}
	})

	// methods - public and protected method names
	k.AddMethod("methods", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return namesArray(collectMethodNames(rt.ClassOf(self), rt.serial, true, Public, Protected))
	})

	// public_methods - public method names
	k.AddMethod("public_methods", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return namesArray(collectMethodNames(rt.ClassOf(self), rt.serial, true, Public))
	})

	// private_methods - private method names
	k.AddMethod("private_methods", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return namesArray(collectMethodNames(rt.ClassOf(self), rt.serial, true, Private))
	})

	// singleton_methods - methods defined on the object's singleton class
	k.AddMethod("singleton_methods", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		c := rt.ClassOf(self)
		if !c.isSingleton {
			return NewArray()
		}
		var names []string
		names = append(names, c.MethodNames(Public)...)
		names = append(names, c.MethodNames(Protected)...)
		return namesArray(names)
	})

	// instance_variables - names of the set instance variables
	k.AddMethod("instance_variables", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		h, ok := self.(HeapValue)
		if !ok {
			return NewArray()
		}
		return namesArray(h.basic().IvarNames())
	})

	// instance_variable_get - read an instance variable by name
	k.AddMethod("instance_variable_get", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.ivarGet(self, tc.ivarName(args[0]))
	})

	// instance_variable_set - assign an instance variable by name
	k.AddMethod("instance_variable_set", 2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.ivarSet(self, tc.ivarName(args[0]), args[1])
		return args[1]
	})

	// instance_variable_defined? - whether an instance variable is set
	k.AddMethod("instance_variable_defined?", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		_, ok := tc.ivarLookup(self, tc.ivarName(args[0]))
		return ok
	})

	// freeze - forbid further modification
	k.AddMethod("freeze", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if h, ok := self.(HeapValue); ok {
			h.basic().frozen = true
		}
		return self
	})

	// frozen? - whether freeze was called
	k.AddMethod("frozen?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if h, ok := self.(HeapValue); ok {
			return h.basic().frozen
		}
		return false
	})

	// dup - shallow copy
	k.AddMethod("dup", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.copyObject(self, false)
	})

	// clone - shallow copy keeping the frozen state
	k.AddMethod("clone", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.copyObject(self, true)
	})

	// initialize_copy - hook run on copies, checks the class
	k.AddPrivateMethod("initialize_copy", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if rt.RealClassOf(self) != rt.RealClassOf(args[0]) {
			tc.Raise(rt.TypeError, "initialize_copy should take same class object")
		}
		return self
	})

	// extend - mix modules into the singleton class
	k.AddMethod("extend", -2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 1, -1)
		for i := len(args) - 1; i >= 0; i-- {
			m := tc.moduleArg(args[i])
			tc.Send(m, "extend_object", self)
			tc.Send(m, "extended", self)
		}
		return self
	})

	// instance_eval - run the block with the receiver as self
	k.AddMethod("instance_eval", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if !blk.IsGiven() {
			tc.Raise(rt.NotImplementedError, "instance_eval of a string is not supported")
		}
		var cref *Class
		switch self.(type) {
		case nil, bool, int64, *big.Int, float64, Symbol:
		default:
			cref = tc.singletonClassOf(self)
		}
		return tc.evalUnder(blk, self, cref, self)
	})

	// tap - yield self and return it
	k.AddMethod("tap", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.Yield(blk, self)
		return self
	})

	enumFor := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		meth := "each"
		if len(args) > 0 {
			meth = tc.symbolArg(args[0])
			args = args[1:]
		}
		return rt.newEnumerator(self, meth, args)
	}
	// enum_for - an Enumerator over a method of the receiver
	k.AddMethod("enum_for", -1, enumFor)
	k.AddMethod("to_enum", -1, enumFor)

	// display - write to_s to $stdout
	k.AddMethod("display", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.stdoutWrite(tc.AsString(self).S)
		return nil
	})

	mainClass := newClass("", rt.Object, false)
	mainClass.isSingleton = true
	mainClass.attached = rt.main
	rt.main.class = mainClass
	mainToS := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return NewString("main")
	}
	// main.to_s - "main"
	mainClass.AddMethod("to_s", 0, mainToS)
	mainClass.AddMethod("inspect", 0, mainToS)

	// main.include - include into Object
	mainClass.AddPrivateMethod("include", -2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.Send(rt.Object, "include", args...)
	})

	for _, vis := range []struct {
		name string
		vis  Visibility
	}{{"public", Public}, {"private", Private}} {
		vis := vis
		// main.public, main.private - visibility of top-level definitions
		mainClass.AddPrivateMethod(vis.name, -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
			return tc.changeVisibility(rt.Object, args, vis.vis)
		})
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// evalUnder runs blk with self replaced and definitions going to cref.
// The block keeps its frame for return, but defines public methods.
func (tc *ThreadContext) evalUnder(blk *Block, self Value, cref *Class, args ...Value) Value {
	if blk.Native != nil {
		return tc.invokeBlock(blk, blockCall{args: args, multiple: true, self: self, hasSelf: true})
	}
	home := blk.Binding.Frame
	f := home.duplicate()
	f.home = home.returnTarget()
	f.Self = self
	f.Visibility = Public
	f.moduleFunction = false
	return tc.invokeBlock(blk, blockCall{
		args:     args,
		multiple: true,
		self:     self,
		hasSelf:  true,
		frame:    f,
		cref:     cref,
	})
}

// symbolArg converts a method or variable name argument.
func (tc *ThreadContext) symbolArg(v Value) string {
	switch x := v.(type) {
	case Symbol:
		return string(x)
	case *String:
		return x.S
	}
	tc.Raise(tc.rt.TypeError, "%s is not a symbol", tc.Inspect(v))
	return ""
}

func (tc *ThreadContext) ivarName(v Value) string {
	name := tc.symbolArg(v)
	if !strings.HasPrefix(name, "@") || strings.HasPrefix(name, "@@") || len(name) < 2 {
		tc.nameError(tc.rt.NameError, name, "`%s' is not allowed as an instance variable name", name)
	}
	return name
}

// intArg converts an integer argument, truncating floats.
func (tc *ThreadContext) intArg(v Value) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			tc.Raise(tc.rt.FloatDomainError, "%s", FormatFloat(x))
		}
		return int64(x)
	case *big.Int:
		tc.Raise(tc.rt.RangeError, "bignum too big to convert into `long'")
	case nil:
		tc.Raise(tc.rt.TypeError, "no implicit conversion from nil to integer")
	}
	if tc.RespondTo(v, "to_int") {
		if n, ok := tc.Send(v, "to_int").(int64); ok {
			return n
		}
	}
	tc.Raise(tc.rt.TypeError, "can't convert %s into Integer", tc.rt.RealClassOf(v).Name())
	return 0
}

func namesArray(names []string) *Array {
	out := NewArray()
	for _, n := range names {
		out.Elems = append(out.Elems, NewString(n))
	}
	return out
}

// collectMethodNames lists the names visible from c with one of the given
// visibilities, nearest definition first.
func collectMethodNames(c *Class, serial uint64, inherited bool, vis ...Visibility) []string {
	seen := make(map[string]bool)
	var out []string
	classes := []*Class{c}
	if inherited {
		classes = c.Ancestors(serial)
	}
	for _, k := range classes {
		for _, name := range sortedMethodNames(k) {
			if seen[name] {
				continue
			}
			seen[name] = true
			m := k.methods[name]
			if m.Undefined {
				continue
			}
			for _, v := range vis {
				if m.Visibility == v {
					out = append(out, name)
					break
				}
			}
		}
	}
	return out
}

func sortedMethodNames(c *Class) []string {
	var names []string
	for _, v := range []Visibility{Public, Protected, Private} {
		names = append(names, c.MethodNames(v)...)
	}
	for name, m := range c.methods {
		if m.Undefined {
			names = append(names, name)
		}
	}
	return names
}

// inspectObject renders #<Class @a=1, @b=2>.
func (tc *ThreadContext) inspectObject(v Value) string {
	h, ok := v.(HeapValue)
	name := tc.rt.RealClassOf(v).Name()
	if !ok {
		return tc.AsString(v).S
	}
	names := h.basic().IvarNames()
	if len(names) == 0 {
		return tc.AsString(v).S
	}
	if !tc.enterInspect(v) {
		return "#<" + name + " ...>"
	}
	defer tc.leaveInspect(v)
	var sb strings.Builder
	sb.WriteString("#<" + name)
	for i, n := range names {
		if i > 0 {
			sb.WriteByte(',')
		}
		iv, _ := h.basic().Ivar(n)
		sb.WriteString(" " + n + "=" + tc.Inspect(iv))
	}
	sb.WriteByte('>')
	return sb.String()
}

// copyObject implements dup and clone.
func (tc *ThreadContext) copyObject(v Value, keepFrozen bool) Value {
	rt := tc.rt
	var c Value
	switch x := v.(type) {
	case nil, bool, int64, float64, Symbol, *big.Int:
		tc.Raise(rt.TypeError, "can't dup %s", rt.RealClassOf(v).Name())
	case *String:
		c = NewString(x.S)
	case *Array:
		c = NewArray(append([]Value(nil), x.Elems...)...)
	case *Hash:
		h := NewHash()
		x.Each(func(k, val Value) { h.Set(tc, k, val) })
		h.Default = x.Default
		h.DefaultProc = x.DefaultProc
		c = h
	case *Range:
		c = &Range{Begin: x.Begin, End: x.End, Exclusive: x.Exclusive}
	case *Exception:
		e := *x
		e.Basic = Basic{}
		c = &e
	case *Proc:
		c = &Proc{Block: x.Block}
	case *Object:
		c = &Object{}
	case *Class:
		k := newClass("", x.superclass, x.isModule)
		for n, m := range x.methods {
			k.methods[n] = m.clone(k)
		}
		for n, cv := range x.constants {
			k.constants[n] = cv
		}
		for n, cv := range x.cvars {
			k.setCvar(n, cv)
		}
		k.includes = append(k.includes, x.includes...)
		k.alloc = x.alloc
		c = k
	default:
		tc.Raise(rt.TypeError, "can't dup %s", rt.RealClassOf(v).Name())
	}
	src := v.(HeapValue).basic()
	dst := c.(HeapValue).basic()
	if _, isClass := c.(*Class); !isClass {
		dst.class = rt.RealClassOf(v)
	}
	for _, n := range src.IvarNames() {
		iv, _ := src.Ivar(n)
		dst.SetIvar(n, iv)
	}
	tc.Send(c, "initialize_copy", v)
	if keepFrozen {
		dst.frozen = src.frozen
	}
	return c
}

// changeVisibility implements public, private and protected: without
// names they set the default for later definitions in the caller.
func (tc *ThreadContext) changeVisibility(c *Class, args []Value, vis Visibility) Value {
	if len(args) == 0 {
		if tc.frame != nil {
			tc.frame.Visibility = vis
			tc.frame.moduleFunction = false
		}
		return c
	}
	for _, a := range args {
		tc.setVisibility(c, tc.symbolArg(a), vis)
	}
	return c
}

// ---------------------------------------------------------------------------
// Output
// ---------------------------------------------------------------------------

// stdoutWrite writes s to $stdout with its write method.
func (tc *ThreadContext) stdoutWrite(s string) {
	out := tc.GetGlobal("$stdout")
	if io, ok := out.(*IO); ok && tc.rt.ClassOf(io) == tc.rt.IOClass {
		io.writeString(tc, s)
		return
	}
	tc.Send(out, "write", NewString(s))
}

// putsString renders puts arguments: one line per element, arrays
// flattened.
func (tc *ThreadContext) putsString(args []Value) string {
	if len(args) == 0 {
		return "\n"
	}
	var sb strings.Builder
	var write func(v Value, depth int)
	write = func(v Value, depth int) {
		switch x := v.(type) {
		case *Array:
			if depth > 0 && !tc.enterInspect(x) {
				sb.WriteString("[...]\n")
				return
			}
			if depth > 0 {
				defer tc.leaveInspect(x)
			} else if tc.enterInspect(x) {
				defer tc.leaveInspect(x)
			}
			for _, e := range x.Elems {
				write(e, depth+1)
			}
			return
		case nil:
			sb.WriteString("nil\n")
			return
		}
		s := tc.AsString(v).S
		sb.WriteString(s)
		if !strings.HasSuffix(s, "\n") {
			sb.WriteByte('\n')
		}
	}
	for _, a := range args {
		write(a, 0)
	}
	return sb.String()
}

// printString renders print arguments, separated by $, and ended by $\.
func (tc *ThreadContext) printString(args []Value) string {
	if len(args) == 0 {
		args = []Value{tc.GetGlobal("$_")}
	}
	var sb strings.Builder
	sep := tc.GetGlobal("$,")
	for i, a := range args {
		if i > 0 && sep != nil {
			sb.WriteString(tc.AsString(sep).S)
		}
		if a == nil {
			sb.WriteString("nil")
			continue
		}
		sb.WriteString(tc.AsString(a).S)
	}
	if end := tc.GetGlobal("$\\"); end != nil {
		sb.WriteString(tc.AsString(end).S)
	}
	return sb.String()
}

// enterInspect guards recursive inspection of containers.
func (tc *ThreadContext) enterInspect(v Value) bool {
	for _, x := range tc.inspecting {
		if x == v {
			return false
		}
	}
	tc.inspecting = append(tc.inspecting, v)
	return true
}

func (tc *ThreadContext) leaveInspect(v Value) {
	for i := len(tc.inspecting) - 1; i >= 0; i-- {
		if tc.inspecting[i] == v {
			tc.inspecting = append(tc.inspecting[:i], tc.inspecting[i+1:]...)
			return
		}
	}
}
