package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Exception objects
// ---------------------------------------------------------------------------

// Exception is an instance of Exception or one of its subclasses.
type Exception struct {
	Basic
	Message   Value // String or nil
	Backtrace Value // Array of strings, or nil before the first raise

	// LocalJumpError
	Reason    Symbol
	ExitValue Value
	// NameError
	Name Value
	// SystemExit
	Status int
}

// RaiseException carries a raised Ruby exception as a Go error and panic
// value.
type RaiseException struct {
	Exception *Exception
}

func (e *RaiseException) Error() string {
	cls := "Exception"
	if c := e.Exception.class; c != nil {
		cls = c.Name()
	}
	msg := e.Exception.MessageString()
	if msg == "" || msg == cls {
		return cls
	}
	return cls + ": " + msg
}

// MessageString returns the message, or the class name when there is none.
func (e *Exception) MessageString() string {
	if s, ok := e.Message.(*String); ok {
		return s.S
	}
	if e.class != nil {
		return e.class.Name()
	}
	return ""
}

// BacktraceLines returns the backtrace as Go strings.
func (e *Exception) BacktraceLines() []string {
	a, ok := e.Backtrace.(*Array)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(a.Elems))
	for _, v := range a.Elems {
		if s, ok := v.(*String); ok {
			out = append(out, s.S)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Raising
// ---------------------------------------------------------------------------

// newException allocates an exception of class c with a message.
func (tc *ThreadContext) newException(c *Class, msg string) *Exception {
	ex, ok := c.alloc(c).(*Exception)
	if !ok {
		ex = &Exception{}
		ex.class = c
	}
	ex.Message = NewString(msg)
	return ex
}

// newRaise builds a raisable exception of class c whose backtrace is the
// current call stack.
func (tc *ThreadContext) newRaise(c *Class, format string, args ...any) *RaiseException {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	ex := tc.newException(c, msg)
	tc.fillBacktrace(ex)
	return &RaiseException{Exception: ex}
}

func (tc *ThreadContext) fillBacktrace(ex *Exception) {
	if ex.Backtrace != nil {
		return
	}
	lines := tc.Backtrace()
	elems := make([]Value, len(lines))
	for i, l := range lines {
		elems[i] = NewString(l)
	}
	ex.Backtrace = NewArray(elems...)
}

// Raise panics with a new exception of class c.
func (tc *ThreadContext) Raise(c *Class, format string, args ...any) {
	panic(tc.newRaise(c, format, args...))
}

// RaiseException panics with an existing exception object.
func (tc *ThreadContext) RaiseException(ex *Exception) {
	tc.fillBacktrace(ex)
	panic(&RaiseException{Exception: ex})
}

// ArgumentError raises "wrong number of arguments (given for expected)".
func (tc *ThreadContext) argumentCountError(given, expected int) {
	tc.Raise(tc.rt.ArgumentError, "wrong number of arguments (%d for %d)", given, expected)
}

// typeError raises "wrong argument type X (expected Y)".
func (tc *ThreadContext) typeError(v Value, expected string) {
	tc.Raise(tc.rt.TypeError, "wrong argument type %s (expected %s)", tc.rt.RealClassOf(v).Name(), expected)
}

// localJumpError raises LocalJumpError with a reason and exit value.
func (tc *ThreadContext) localJumpError(msg string, reason Symbol, value Value) {
	re := tc.newRaise(tc.rt.LocalJumpError, "%s", msg)
	re.Exception.Reason = reason
	re.Exception.ExitValue = value
	panic(re)
}

// nameError raises NameError or NoMethodError for name.
func (tc *ThreadContext) nameError(c *Class, name string, format string, args ...any) {
	re := tc.newRaise(c, format, args...)
	re.Exception.Name = Symbol(name)
	panic(re)
}

// jumpToLocalJumpError converts a jump nothing caught.
func (tc *ThreadContext) jumpToLocalJumpError(j *JumpError) *RaiseException {
	var msg string
	switch j.Kind {
	case ReturnJump:
		msg = "unexpected return"
	case RetryJump:
		msg = "retry outside of rescue clause"
	case ThrowJump:
		return tc.newRaise(tc.rt.NameError, "uncaught throw `%s'", tc.rt.inspectTag(j.ThrowTag))
	case LoopBreak, BlockBreak:
		msg = "break from proc-closure"
	default:
		msg = "unexpected " + j.Kind.String()
	}
	re := tc.newRaise(tc.rt.LocalJumpError, "%s", msg)
	re.Exception.Reason = Symbol(j.Kind.String())
	re.Exception.ExitValue = j.Value
	return re
}

func (rt *Runtime) inspectTag(v Value) string {
	if s, ok := v.(Symbol); ok {
		return string(s)
	}
	return fmt.Sprint(v)
}

// ---------------------------------------------------------------------------
// Exception class registration
// ---------------------------------------------------------------------------

func (rt *Runtime) bootstrapExceptionClasses() {
	define := func(name string, super *Class) *Class {
		return rt.defineClass(name, super)
	}

	// Exception is the root of all exceptions
	rt.Exception = define("Exception", rt.Object)
	rt.Exception.alloc = func(c *Class) Value {
		ex := &Exception{}
		ex.class = c
		return ex
	}

	rt.NoMemoryError = define("NoMemoryError", rt.Exception)
	rt.ScriptError = define("ScriptError", rt.Exception)
	rt.NotImplementedError = define("NotImplementedError", rt.ScriptError)
	rt.LoadError = define("LoadError", rt.ScriptError)
	rt.SignalException = define("SignalException", rt.Exception)
	rt.Interrupt = define("Interrupt", rt.SignalException)
	rt.SystemExit = define("SystemExit", rt.Exception)
	rt.SystemStackError = define("SystemStackError", rt.Exception)

	// StandardError is what a bare rescue catches
	rt.StandardError = define("StandardError", rt.Exception)
	rt.ArgumentError = define("ArgumentError", rt.StandardError)
	rt.IOError = define("IOError", rt.StandardError)
	rt.EOFError = define("EOFError", rt.IOError)
	rt.IndexError = define("IndexError", rt.StandardError)
	rt.StopIteration = define("StopIteration", rt.IndexError)
	rt.LocalJumpError = define("LocalJumpError", rt.StandardError)
	rt.NameError = define("NameError", rt.StandardError)
	rt.NoMethodError = define("NoMethodError", rt.NameError)
	rt.RangeError = define("RangeError", rt.StandardError)
	rt.FloatDomainError = define("FloatDomainError", rt.RangeError)
	rt.RegexpError = define("RegexpError", rt.StandardError)
	rt.RuntimeError = define("RuntimeError", rt.StandardError)
	rt.SecurityError = define("SecurityError", rt.StandardError)
	rt.ThreadError = define("ThreadError", rt.StandardError)
	rt.TypeError = define("TypeError", rt.StandardError)
	rt.ZeroDivisionError = define("ZeroDivisionError", rt.StandardError)
}

// ---------------------------------------------------------------------------
// Exception primitives registration
// ---------------------------------------------------------------------------

func (rt *Runtime) registerExceptionPrimitives() {
	ex := rt.Exception

	// Exception.exception(msg) - same as new
	rt.metaclass(ex).AddMethod("exception", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.Send(self, "new", args...)
	})

	// initialize(msg = nil)
	ex.AddPrivateMethod("initialize", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 0, 1)
		e := self.(*Exception)
		if len(args) == 1 {
			e.Message = args[0]
		}
		return nil
	})

	// exception(msg) - self, or a copy with a new message
	ex.AddMethod("exception", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 0, 1)
		if len(args) == 0 {
			return self
		}
		c := *self.(*Exception)
		c.Message = args[0]
		return &c
	})

	// message, to_s, to_str - the message or the class name
	toS := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		e := self.(*Exception)
		if e.Message == nil {
			return NewString(tc.rt.ClassOf(self).RealClass().Name())
		}
		return tc.AsString(e.Message)
	}
	ex.AddMethod("to_s", 0, toS)
	ex.AddMethod("to_str", 0, toS)
	ex.AddMethod("message", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.Send(self, "to_s")
	})

	// inspect - #<Class: message>
	ex.AddMethod("inspect", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		name := tc.rt.ClassOf(self).RealClass().Name()
		msg := tc.AsString(tc.Send(self, "to_s")).S
		if msg == "" || msg == name {
			return NewString(name)
		}
		return NewString("#<" + name + ": " + msg + ">")
	})

	// backtrace, set_backtrace
	ex.AddMethod("backtrace", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return self.(*Exception).Backtrace
	})
	ex.AddMethod("set_backtrace", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		switch bt := args[0].(type) {
		case *Array, nil:
			self.(*Exception).Backtrace = bt
		case *String:
			self.(*Exception).Backtrace = NewArray(bt)
		default:
			tc.typeError(bt, "Array")
		}
		return args[0]
	})

	// LocalJumpError#reason, #exit_value
	rt.LocalJumpError.AddMethod("reason", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return self.(*Exception).Reason
	})
	rt.LocalJumpError.AddMethod("exit_value", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return self.(*Exception).ExitValue
	})

	// NameError#name
	rt.NameError.AddMethod("name", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return self.(*Exception).Name
	})

	// SystemExit#status, #success?
	rt.SystemExit.AddMethod("status", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return int64(self.(*Exception).Status)
	})
	rt.SystemExit.AddMethod("success?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return self.(*Exception).Status == 0
	})
}

// ---------------------------------------------------------------------------
// Kernel#raise
// ---------------------------------------------------------------------------

// makeException turns raise's arguments into an exception object.
func (tc *ThreadContext) makeException(args []Value) *Exception {
	rt := tc.rt
	switch len(args) {
	case 0:
		if e, ok := tc.errInfo.(*Exception); ok {
			return e
		}
		return tc.newException(rt.RuntimeError, "unhandled exception")
	case 1:
		if s, ok := args[0].(*String); ok {
			return tc.newException(rt.RuntimeError, s.S)
		}
	}
	if len(args) > 3 {
		tc.argumentCountError(len(args), 3)
	}
	if !tc.RespondTo(args[0], "exception") {
		tc.Raise(rt.TypeError, "exception class/object expected")
	}
	v := tc.Send(args[0], "exception", args[1:min(len(args), 2)]...)
	e, ok := v.(*Exception)
	if !ok {
		tc.Raise(rt.TypeError, "exception object expected")
	}
	if len(args) == 3 {
		tc.Send(e, "set_backtrace", args[2])
	}
	return e
}

// FormatException renders an uncaught exception the way the top level
// reports it.
func FormatException(re *RaiseException) string {
	var sb strings.Builder
	lines := re.Exception.BacktraceLines()
	if len(lines) > 0 {
		sb.WriteString(lines[0])
		sb.WriteString(": ")
	}
	sb.WriteString(re.Exception.MessageString())
	if c := re.Exception.class; c != nil {
		sb.WriteString(" (" + c.Name() + ")")
	}
	for _, l := range lines[min(1, len(lines)):] {
		sb.WriteString("\n\tfrom " + l)
	}
	return sb.String()
}
