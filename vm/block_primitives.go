package vm

import (
	"fmt"

	"github.com/chazu/garnet/scope"
)

// MethodValue is a Method object: a method looked up once, with or
// without the receiver it was taken from.
type MethodValue struct {
	Basic
	Receiver Value
	Method   *Method
	Name     string

	// Unbound methods come from instance_method or unbind and must be
	// bound to an instance of Origin before calling.
	Unbound bool
	Origin  *Class
}

// ---------------------------------------------------------------------------
// Proc primitives
// ---------------------------------------------------------------------------

func (rt *Runtime) registerProcPrimitives() {
	c := rt.Proc
	proc := func(v Value) *Proc { return v.(*Proc) }

	// Proc.new - the block of the call, or of the calling method
	rt.metaclass(c).AddMethod("new", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if !blk.IsGiven() && tc.frame != nil {
			blk = tc.frame.Block
		}
		if !blk.IsGiven() {
			tc.Raise(rt.ArgumentError, "tried to create Proc object without a block")
		}
		p := blk.ToProc(ProcBlock)
		if k := self.(*Class); k != rt.Proc {
			p = &Proc{Block: p.Block}
			p.class = k
		}
		tc.callMethod(p, "initialize", args, NullBlock, SendFunctional, nil)
		return p
	})

	call := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.CallBlock(proc(self).Block, args, blk)
	}
	// call, [], yield - run the block with the arguments
	c.AddMethod("call", -1, call)
	c.AddMethod("[]", -1, call)
	c.AddMethod("yield", -1, call)

	// arity - the number of required parameters, negative with optional ones
	c.AddMethod("arity", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return int64(proc(self).Block.Arity().Value())
	})

	// to_proc - self
	c.AddMethod("to_proc", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return self
	})

	// lambda? - made by lambda or proc
	c.AddMethod("lambda?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return proc(self).Block.Type == LambdaBlock
	})

	// == - same block
	c.AddMethod("==", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		o, ok := args[0].(*Proc)
		return ok && (o == self || o.Block.Body != nil && o.Block.Body == proc(self).Block.Body && o.Block.Binding == proc(self).Block.Binding)
	})

	inspect := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		p := proc(self)
		where := ""
		if p.Block.Body != nil && p.Block.Body.File != "" {
			where = fmt.Sprintf("@%s:%d", p.Block.Body.File, p.Block.Body.Line)
		}
		return NewString(fmt.Sprintf("#<%s:0x%08x%s>", rt.RealClassOf(self).Name(), rt.objectID(self), where))
	}
	// to_s, inspect - #<Proc:0x...@file:line>
	c.AddMethod("to_s", 0, inspect)
	c.AddMethod("inspect", 0, inspect)

	rt.registerMethodObjectPrimitives()
}

// ---------------------------------------------------------------------------
// Method primitives
// ---------------------------------------------------------------------------

func (rt *Runtime) registerMethodObjectPrimitives() {
	c := rt.MethodClass
	mv := func(v Value) *MethodValue { return v.(*MethodValue) }

	call := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		m := mv(self)
		if m.Unbound {
			tc.Raise(rt.TypeError, "can't call unbound method; bind first")
		}
		return tc.invokeMethod(m.Method, m.Receiver, args, blk)
	}
	// call, [] - invoke on the bound receiver
	c.AddMethod("call", -1, call)
	c.AddMethod("[]", -1, call)

	// arity - as for Proc#arity
	c.AddMethod("arity", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return int64(mv(self).Method.MethodArity())
	})

	// name - the name it was looked up by
	c.AddMethod("name", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return NewString(mv(self).Name)
	})

	// owner - the class defining it
	c.AddMethod("owner", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return mv(self).Method.Owner
	})

	// receiver - the bound object
	c.AddMethod("receiver", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		m := mv(self)
		if m.Unbound {
			tc.raiseNoMethod(self, "receiver", false)
		}
		return m.Receiver
	})

	// unbind - detach from the receiver
	c.AddMethod("unbind", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		m := mv(self)
		return &MethodValue{Method: m.Method, Name: m.Name, Unbound: true, Origin: rt.RealClassOf(m.Receiver)}
	})

	// bind - attach to an instance of the origin class
	c.AddMethod("bind", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		m := mv(self)
		if !m.Unbound {
			tc.raiseNoMethod(self, "bind", false)
		}
		origin := m.Origin
		if origin == nil {
			origin = m.Method.Owner
		}
		if !origin.isModule && !rt.IsKindOf(args[0], origin) {
			tc.Raise(rt.TypeError, "bind argument must be an instance of %s", origin.Name())
		}
		return &MethodValue{Receiver: args[0], Method: m.Method, Name: m.Name}
	})

	// to_proc - a lambda calling the method
	c.AddMethod("to_proc", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		m := mv(self)
		if m.Unbound {
			tc.Raise(rt.TypeError, "can't convert unbound method into Proc")
		}
		b := NewNativeBlock(func(tc *ThreadContext, _ Value, args []Value, blk *Block) Value {
			return tc.invokeMethod(m.Method, m.Receiver, args, blk)
		}, scope.Arity(m.Method.MethodArity()), LambdaBlock)
		return b.ToProc(LambdaBlock)
	})

	// == - same method on the same receiver
	c.AddMethod("==", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		o, ok := args[0].(*MethodValue)
		m := mv(self)
		return ok && o.Unbound == m.Unbound && Identical(o.Receiver, m.Receiver) && o.Method.Owner == m.Method.Owner && o.Name == m.Name
	})

	inspect := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		m := mv(self)
		kind := "Method"
		holder := rt.RealClassOf(m.Receiver)
		if m.Unbound {
			kind = "UnboundMethod"
			holder = m.Origin
		}
		if holder == nil {
			holder = m.Method.Owner
		}
		owner := holder.Name()
		if m.Method.Owner != nil && m.Method.Owner != holder {
			owner += "(" + m.Method.Owner.Name() + ")"
		}
		return NewString("#<" + kind + ": " + owner + "#" + m.Name + ">")
	}
	// to_s, inspect - #<Method: Class(Owner)#name>
	c.AddMethod("to_s", 0, inspect)
	c.AddMethod("inspect", 0, inspect)
}
