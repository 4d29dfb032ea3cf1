package vm

import (
	"fmt"

	"github.com/chazu/garnet/scope"
)

// ---------------------------------------------------------------------------
// DynamicScope: Variable storage of one activation
// ---------------------------------------------------------------------------

// DynamicScope holds the variable slots of one activation of a static
// scope. Block scopes link to the scope they were created in; a method or
// script scope has no parent.
type DynamicScope struct {
	static *scope.StaticScope
	parent *DynamicScope
	values []Value
}

// NewDynamicScope creates storage for static under parent.
func NewDynamicScope(static *scope.StaticScope, parent *DynamicScope) *DynamicScope {
	return &DynamicScope{
		static: static,
		parent: parent,
		values: make([]Value, static.NumberOfVariables()),
	}
}

// StaticScope returns the static scope the slots belong to.
func (d *DynamicScope) StaticScope() *scope.StaticScope { return d.static }

// Parent returns the enclosing dynamic scope.
func (d *DynamicScope) Parent() *DynamicScope { return d.parent }

func (d *DynamicScope) at(depth int) *DynamicScope {
	s := d
	for ; depth > 0; depth-- {
		if s.parent == nil {
			panic(fmt.Sprintf("dynamic scope depth %d out of range", depth))
		}
		s = s.parent
	}
	return s
}

// Get reads slot index of the scope depth hops out. Slots added to the
// static scope after this activation started read as nil.
func (d *DynamicScope) Get(index, depth int) Value {
	s := d.at(depth)
	if index >= len(s.values) {
		return nil
	}
	return s.values[index]
}

// Set writes slot index of the scope depth hops out, growing the storage
// when the static scope gained variables.
func (d *DynamicScope) Set(index, depth int, v Value) {
	s := d.at(depth)
	if index >= len(s.values) {
		n := s.static.NumberOfVariables()
		if n <= index {
			n = index + 1
		}
		grown := make([]Value, n)
		copy(grown, s.values)
		s.values = grown
	}
	s.values[index] = v
}

// Values returns the slots of this scope.
func (d *DynamicScope) Values() []Value { return d.values }

// ---------------------------------------------------------------------------
// Frame: Method-level activation state
// ---------------------------------------------------------------------------

// Frame is the state shared by a method activation and the non-lambda
// blocks running inside it.
type Frame struct {
	Self   Value  // receiver of the method
	Klazz  *Class // owner of the running method, for super
	Method string // name of the running method, "" outside methods
	Block  *Block // block passed to the method, or NullBlock
	Args   []Value
	Scope  *DynamicScope // method-level variables, for zsuper

	// Visibility given to methods defined by def in this frame.
	Visibility Visibility
	// moduleFunction makes def also define a public singleton copy.
	moduleFunction bool

	Match    Value // $~
	LastLine Value // $_

	// home is the frame return leaves when this frame was duplicated for
	// instance_eval or class_eval.
	home   *Frame
	active bool
}

// Active reports whether the frame's method has not returned yet.
func (f *Frame) Active() bool { return f.active }

// duplicate copies f for a lambda invocation, which returns to its own
// frame.
func (f *Frame) duplicate() *Frame {
	c := *f
	c.active = true
	c.home = nil
	return &c
}

// returnTarget is the frame a return in this frame leaves.
func (f *Frame) returnTarget() *Frame {
	if f.home != nil {
		return f.home
	}
	return f
}

// ---------------------------------------------------------------------------
// ThreadContext: Per-thread execution state
// ---------------------------------------------------------------------------

// site is one entry of the backtrace stack.
type site struct {
	body   *CompiledBody // nil for native methods
	pc     int
	name   string
	region bool // a protected region of the site below it
}

// ThreadContext carries the execution state of one thread: the current
// frame, the exception register and the call sites used for backtraces.
type ThreadContext struct {
	rt      *Runtime
	thread  *Thread
	frame   *Frame
	errInfo Value // $!
	sites   []site
	polls   int
	catches []Value // tags of the active catch blocks

	inspecting []Value // containers being inspected, for recursion
}

func newThreadContext(rt *Runtime, th *Thread) *ThreadContext {
	return &ThreadContext{rt: rt, thread: th}
}

// Runtime returns the runtime the context belongs to.
func (tc *ThreadContext) Runtime() *Runtime { return tc.rt }

// Thread returns the thread the context runs on.
func (tc *ThreadContext) Thread() *Thread { return tc.thread }

// Frame returns the current frame.
func (tc *ThreadContext) Frame() *Frame { return tc.frame }

// ErrorInfo returns $!.
func (tc *ThreadContext) ErrorInfo() Value { return tc.errInfo }

// pushSite records entry into a body or native method.
func (tc *ThreadContext) pushSite(body *CompiledBody, name string) {
	if len(tc.sites) >= tc.rt.opts.MaxDepth {
		panic(tc.newRaise(tc.rt.SystemStackError, "stack level too deep"))
	}
	tc.sites = append(tc.sites, site{body: body, name: name})
}

// pushRegion records entry into a protected region of the current body.
func (tc *ThreadContext) pushRegion(body *CompiledBody) {
	name := ""
	if n := len(tc.sites); n > 0 {
		name = tc.sites[n-1].name
		if name == "" && tc.sites[n-1].body != nil {
			name = tc.sites[n-1].body.Name
		}
	}
	tc.pushSite(body, name)
	tc.sites[len(tc.sites)-1].region = true
}

func (tc *ThreadContext) popSite() {
	tc.sites = tc.sites[:len(tc.sites)-1]
}

// setPC records the offset of the instruction being executed in the
// innermost body.
func (tc *ThreadContext) setPC(pc int) {
	if n := len(tc.sites); n > 0 {
		tc.sites[n-1].pc = pc
	}
}

// Backtrace renders the call sites, innermost first, as file:line:in `name'.
func (tc *ThreadContext) Backtrace() []string {
	out := make([]string, 0, len(tc.sites))
	for i := len(tc.sites) - 1; i >= 0; {
		s := tc.sites[i]
		i--
		if s.region {
			// the innermost region reports the line; its owners are skipped
			for i >= 0 && tc.sites[i].region {
				i--
			}
			i--
		}
		if s.body == nil {
			continue
		}
		name := s.name
		if name == "" {
			name = s.body.Name
		}
		out = append(out, fmt.Sprintf("%s:%d:in `%s'", s.body.File, s.body.LineAt(s.pc), name))
	}
	return out
}

// withFrame runs fn with f as the current frame.
func (tc *ThreadContext) withFrame(f *Frame, fn func() Value) Value {
	saved := tc.frame
	tc.frame = f
	defer func() { tc.frame = saved }()
	return fn()
}
