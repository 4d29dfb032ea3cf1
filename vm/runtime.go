package vm

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/tliron/commonlog"

	"github.com/chazu/garnet/ast"
	"github.com/chazu/garnet/compiler"
	"github.com/chazu/garnet/scope"
)

var log = commonlog.GetLogger("garnet.vm")

var warnLog = commonlog.GetLogger("garnet.warnings")

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// BodyCache stores compiled script bodies keyed by Runtime.CacheKey. The
// scopes are the static scopes of the tree, in ast.Scopes order; a loaded
// body must refer to them.
type BodyCache interface {
	Load(key [32]byte, scopes []*scope.StaticScope) (*CompiledBody, bool)
	Save(key [32]byte, body *CompiledBody, scopes []*scope.StaticScope)
}

// Options configures a Runtime.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer

	// Verbose sets $VERBOSE and enables verbose-only warnings.
	Verbose bool
	// Debug sets $DEBUG.
	Debug bool

	// FastCase enables the integer jump table for case expressions.
	FastCase bool
	// MaxSpecificArity bounds the fixed-arity calling path.
	MaxSpecificArity int

	// MaxDepth bounds the call depth before SystemStackError.
	MaxDepth int

	// Cache, when set, is consulted before compiling a script.
	Cache BodyCache

	// OnWarning receives every runtime warning.
	OnWarning func(msg string)
}

// DefaultOptions returns the options used when fields are left zero.
func DefaultOptions() Options {
	return Options{
		Stdout:           os.Stdout,
		Stderr:           os.Stderr,
		FastCase:         true,
		MaxSpecificArity: compiler.DefaultMaxSpecificArity,
		MaxDepth:         10000,
	}
}

// ---------------------------------------------------------------------------
// Runtime: Classes, globals and the interpreter lock
// ---------------------------------------------------------------------------

// Runtime owns the class hierarchy, globals and threads of one program.
// Ruby code runs only while holding the interpreter lock; blocking
// operations release it.
type Runtime struct {
	opts     Options
	compiler *compiler.ASTCompiler

	gil     sync.Mutex
	serial  uint64
	nextID  atomic.Int64
	symbols *SymbolTable

	// Core classes
	Object, Module, Class               *Class
	Kernel, Comparable, Enumerable      *Class
	NilClass, TrueClass, FalseClass     *Class
	Numeric, Integer, Fixnum, Bignum    *Class
	Float, String, Symbol, Array, Hash  *Class
	Range, Proc, MethodClass            *Class
	Regexp, MatchData, Enumerator, Math *Class
	ThreadClass, ThreadGroupClass       *Class
	MutexClass, QueueClass, IOClass     *Class
	StringScannerClass                  *Class

	// Exceptions
	Exception, NoMemoryError, ScriptError, NotImplementedError, LoadError *Class
	SignalException, Interrupt, SystemExit, SystemStackError            *Class
	StandardError, ArgumentError, IOError, EOFError, IndexError         *Class
	StopIteration, LocalJumpError, NameError, NoMethodError             *Class
	RangeError, FloatDomainError, RegexpError, RuntimeError             *Class
	SecurityError, ThreadError, TypeError, ZeroDivisionError            *Class

	main          *Object
	globals       map[string]Value
	globalAliases map[string]string

	endBlocks []*Block
	endSeen   map[*CompiledBody]bool

	stdout *IO
	stderr *IO

	threads          threadRegistry
	mainThread       *Thread
	defaultGroup     *ThreadGroup
	abortOnException atomic.Bool
}

// NewRuntime creates a runtime with the core classes loaded.
func NewRuntime(opts Options) *Runtime {
	def := DefaultOptions()
	if opts.Stdout == nil {
		opts.Stdout = def.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = def.Stderr
	}
	if opts.MaxSpecificArity == 0 {
		opts.MaxSpecificArity = def.MaxSpecificArity
	}
	if opts.MaxDepth == 0 {
		opts.MaxDepth = def.MaxDepth
	}
	rt := &Runtime{
		opts:          opts,
		globals:       make(map[string]Value),
		globalAliases: make(map[string]string),
		endSeen:       make(map[*CompiledBody]bool),
		symbols:       NewSymbolTable(),
	}
	rt.compiler = compiler.New()
	rt.compiler.FastCase = opts.FastCase
	rt.compiler.MaxSpecificArity = opts.MaxSpecificArity
	rt.bootstrap()
	return rt
}

// Options returns the runtime's options.
func (rt *Runtime) Options() Options { return rt.opts }

// Main returns the top-level self.
func (rt *Runtime) Main() Value { return rt.main }

// MainThread returns the thread scripts run on.
func (rt *Runtime) MainThread() *Thread { return rt.mainThread }

func (rt *Runtime) bootstrap() {
	rt.Object = newClass("Object", nil, false)
	rt.Object.alloc = func(c *Class) Value {
		o := &Object{}
		o.class = c
		return o
	}
	rt.Module = newClass("Module", rt.Object, false)
	rt.Class = newClass("Class", rt.Module, false)
	rt.Kernel = newClass("Kernel", nil, true)
	rt.Object.includes = append(rt.Object.includes, rt.Kernel)
	for _, c := range []*Class{rt.Object, rt.Module, rt.Class, rt.Kernel} {
		rt.Object.SetConstant(c.name, c)
	}
	rt.Module.alloc = func(c *Class) Value {
		m := newClass("", nil, true)
		m.class = nil
		return m
	}
	rt.Class.alloc = func(c *Class) Value {
		return newClass("", rt.Object, false)
	}

	rt.Comparable = rt.defineModule("Comparable")
	rt.Enumerable = rt.defineModule("Enumerable")
	rt.Math = rt.defineModule("Math")

	rt.NilClass = rt.defineClass("NilClass", rt.Object)
	rt.TrueClass = rt.defineClass("TrueClass", rt.Object)
	rt.FalseClass = rt.defineClass("FalseClass", rt.Object)
	rt.Numeric = rt.defineClass("Numeric", rt.Object)
	rt.Numeric.includes = append(rt.Numeric.includes, rt.Comparable)
	rt.Integer = rt.defineClass("Integer", rt.Numeric)
	rt.Fixnum = rt.defineClass("Fixnum", rt.Integer)
	rt.Bignum = rt.defineClass("Bignum", rt.Integer)
	rt.Float = rt.defineClass("Float", rt.Numeric)
	for _, c := range []*Class{rt.NilClass, rt.TrueClass, rt.FalseClass, rt.Numeric} {
		c.alloc = nil
	}

	rt.String = rt.defineClass("String", rt.Object)
	rt.String.includes = append(rt.String.includes, rt.Comparable, rt.Enumerable)
	rt.String.alloc = func(c *Class) Value {
		s := NewString("")
		s.class = c
		return s
	}
	rt.Symbol = rt.defineClass("Symbol", rt.Object)
	rt.Symbol.alloc = nil
	rt.Array = rt.defineClass("Array", rt.Object)
	rt.Array.includes = append(rt.Array.includes, rt.Enumerable)
	rt.Array.alloc = func(c *Class) Value {
		a := NewArray()
		a.class = c
		return a
	}
	rt.Hash = rt.defineClass("Hash", rt.Object)
	rt.Hash.includes = append(rt.Hash.includes, rt.Enumerable)
	rt.Hash.alloc = func(c *Class) Value {
		h := NewHash()
		h.class = c
		return h
	}
	rt.Range = rt.defineClass("Range", rt.Object)
	rt.Range.includes = append(rt.Range.includes, rt.Enumerable)
	rt.Range.alloc = func(c *Class) Value {
		r := &Range{}
		r.class = c
		return r
	}
	rt.Proc = rt.defineClass("Proc", rt.Object)
	rt.MethodClass = rt.defineClass("Method", rt.Object)
	rt.Regexp = rt.defineClass("Regexp", rt.Object)
	rt.MatchData = rt.defineClass("MatchData", rt.Object)
	rt.Enumerator = rt.defineClass("Enumerator", rt.Object)
	rt.Enumerator.includes = append(rt.Enumerator.includes, rt.Enumerable)
	rt.Enumerable.SetConstant("Enumerator", rt.Enumerator)
	rt.IOClass = rt.defineClass("IO", rt.Object)
	rt.IOClass.includes = append(rt.IOClass.includes, rt.Enumerable)
	rt.ThreadClass = rt.defineClass("Thread", rt.Object)
	rt.ThreadGroupClass = rt.defineClass("ThreadGroup", rt.Object)
	rt.MutexClass = rt.defineClass("Mutex", rt.Object)
	rt.QueueClass = rt.defineClass("Queue", rt.Object)
	rt.StringScannerClass = rt.defineClass("StringScanner", rt.Object)
	for _, c := range []*Class{rt.Proc, rt.MethodClass, rt.MatchData, rt.Enumerator, rt.IOClass, rt.ThreadClass} {
		c.alloc = nil
	}

	rt.bootstrapExceptionClasses()

	rt.main = &Object{}
	rt.main.class = rt.Object
	rt.stdout = newIO(rt, rt.opts.Stdout, 1)
	rt.stderr = newIO(rt, rt.opts.Stderr, 2)

	rt.registerKernelPrimitives()
	rt.registerObjectPrimitives()
	rt.registerModulePrimitives()
	rt.registerBooleanPrimitives()
	rt.registerComparablePrimitives()
	rt.registerIntegerPrimitives()
	rt.registerFloatPrimitives()
	rt.registerStringPrimitives()
	rt.registerSymbolPrimitives()
	rt.registerArrayPrimitives()
	rt.registerHashPrimitives()
	rt.registerRangePrimitives()
	rt.registerEnumerablePrimitives()
	rt.registerEnumeratorPrimitives()
	rt.registerProcPrimitives()
	rt.registerRegexpPrimitives()
	rt.registerIOPrimitives()
	rt.registerExceptionPrimitives()
	rt.registerThreadPrimitives()
	rt.registerMutexPrimitives()
	rt.registerQueuePrimitives()
	rt.registerStringScannerPrimitives()

	rt.bootstrapThreads()
	rt.bootstrapGlobals()
}

func (rt *Runtime) defineClass(name string, super *Class) *Class {
	c := newClass(name, super, false)
	rt.Object.SetConstant(name, c)
	return c
}

func (rt *Runtime) defineModule(name string) *Class {
	m := newClass(name, nil, true)
	rt.Object.SetConstant(name, m)
	return m
}

// newSubclass creates an anonymous or named class under super.
func (rt *Runtime) newSubclass(super *Class, name string) *Class {
	c := newClass(name, super, false)
	rt.serial++
	return c
}

func (rt *Runtime) newModule(name string) *Class {
	return newClass(name, nil, true)
}

// includeModule mixes m into c.
func (tc *ThreadContext) includeModule(c, m *Class) {
	if !m.isModule {
		tc.Raise(tc.rt.TypeError, "wrong argument type %s (expected Module)", tc.rt.RealClassOf(m).Name())
	}
	for _, k := range c.Ancestors(tc.rt.serial) {
		if k == m {
			return
		}
	}
	c.includes = append(c.includes, m)
	tc.rt.serial++
}

// warn reports a runtime warning.
func (rt *Runtime) warn(msg string) {
	if rt.opts.OnWarning != nil {
		rt.opts.OnWarning(msg)
	}
	warnLog.Warning(msg)
}

// registerEnd records an END block once per body.
func (rt *Runtime) registerEnd(body *CompiledBody, b *Block) {
	if rt.endSeen[body] {
		return
	}
	rt.endSeen[body] = true
	rt.endBlocks = append(rt.endBlocks, b)
}

// ---------------------------------------------------------------------------
// Globals
// ---------------------------------------------------------------------------

func (rt *Runtime) bootstrapGlobals() {
	rt.globals["$stdout"] = rt.stdout
	rt.globals["$stderr"] = rt.stderr
	rt.globals["$,"] = nil
	rt.globals["$/"] = NewString("\n")
	rt.globals["$;"] = nil
	rt.globals["$0"] = NewString("garnet")
	rt.globals["$VERBOSE"] = rt.opts.Verbose
	rt.globals["$DEBUG"] = rt.opts.Debug
	rt.globalAliases["$PROGRAM_NAME"] = "$0"
	rt.globalAliases["$>"] = "$stdout"
	rt.Object.SetConstant("STDOUT", rt.stdout)
	rt.Object.SetConstant("STDERR", rt.stderr)
	rt.Object.SetConstant("RUBY_VERSION", NewString("1.8.6"))
	rt.Object.SetConstant("RUBY_PLATFORM", NewString("garnet"))
}

func (rt *Runtime) resolveGlobal(name string) string {
	if real, ok := rt.globalAliases[name]; ok {
		return real
	}
	return name
}

func (rt *Runtime) aliasGlobal(newName, oldName string) {
	rt.globalAliases[newName] = rt.resolveGlobal(oldName)
}

// GetGlobal reads a global variable, including the frame-local ones.
func (tc *ThreadContext) GetGlobal(name string) Value {
	name = tc.rt.resolveGlobal(name)
	switch name {
	case "$~":
		return tc.frame.Match
	case "$_":
		return tc.frame.LastLine
	case "$!":
		return tc.errInfo
	case "$@":
		if e, ok := tc.errInfo.(*Exception); ok {
			return e.Backtrace
		}
		return nil
	}
	return tc.rt.globals[name]
}

// SetGlobal assigns a global variable.
func (tc *ThreadContext) SetGlobal(name string, v Value) {
	rt := tc.rt
	name = rt.resolveGlobal(name)
	switch name {
	case "$~":
		if _, ok := v.(*MatchData); !ok && v != nil {
			tc.typeError(v, "MatchData")
		}
		tc.frame.Match = v
		return
	case "$_":
		tc.frame.LastLine = v
		return
	case "$!":
		if _, ok := v.(*Exception); !ok && v != nil {
			tc.Raise(rt.TypeError, "assigning non-exception to $!")
		}
		tc.errInfo = v
		return
	case "$stdout", "$stderr":
		if !tc.RespondTo(v, "write") {
			tc.Raise(rt.TypeError, "%s must have write method, %s given", name, rt.RealClassOf(v).Name())
		}
	case "$VERBOSE":
		rt.opts.Verbose = Truthy(v)
	}
	rt.globals[name] = v
}

func (tc *ThreadContext) globalDefined(name string) bool {
	name = tc.rt.resolveGlobal(name)
	switch name {
	case "$~", "$_", "$!", "$@":
		return true
	}
	_, ok := tc.rt.globals[name]
	return ok
}

// ---------------------------------------------------------------------------
// Constants, class variables and instance variables
// ---------------------------------------------------------------------------

// findConst resolves name lexically from sc, then through the ancestors
// of the innermost module, then in Object.
func (tc *ThreadContext) findConst(sc *scope.StaticScope, name string) (Value, bool) {
	rt := tc.rt
	cref := sc.DetermineModule().(*Class)
	for s := sc; s != nil; s = s.PreviousCRefScope() {
		m, ok := s.Module().(*Class)
		if !ok || s.PreviousCRefScope() == nil && m == rt.Object {
			break
		}
		if v, ok := m.constants[name]; ok {
			return v, true
		}
	}
	if v, ok := tc.constIn(cref, name); ok {
		return v, true
	}
	v, ok := rt.Object.constants[name]
	return v, ok
}

// constIn looks name up in m and its ancestors.
func (tc *ThreadContext) constIn(m *Class, name string) (Value, bool) {
	for _, k := range m.Ancestors(tc.rt.serial) {
		if v, ok := k.constants[name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (tc *ThreadContext) lookupConst(sc *scope.StaticScope, name string) Value {
	if v, ok := tc.findConst(sc, name); ok {
		return v
	}
	return tc.Send(sc.DetermineModule(), "const_missing", Symbol(name))
}

func (tc *ThreadContext) constFrom(v Value, name string) Value {
	m := tc.moduleArg(v)
	if c, ok := tc.constIn(m, name); ok {
		return c
	}
	return tc.Send(m, "const_missing", Symbol(name))
}

func (tc *ThreadContext) setConst(m *Class, name string, v Value) {
	if _, ok := m.constants[name]; ok {
		tc.rt.warn("already initialized constant " + name)
	}
	m.SetConstant(name, v)
}

// moduleArg checks that v is a class or module.
func (tc *ThreadContext) moduleArg(v Value) *Class {
	m, ok := v.(*Class)
	if !ok {
		tc.Raise(tc.rt.TypeError, "%s is not a class/module", tc.Inspect(v))
	}
	return m
}

// cvarBase is the class holding class variables for definitions in c.
func (tc *ThreadContext) cvarBase(c *Class) *Class {
	for c.isSingleton {
		if k, ok := c.attached.(*Class); ok {
			c = k
		} else {
			c = tc.rt.RealClassOf(c.attached)
		}
	}
	return c
}

func (tc *ThreadContext) cvarGet(c *Class, name string) Value {
	base := tc.cvarBase(c)
	if owner := base.cvarOwner(name, tc.rt.serial); owner != nil {
		return owner.cvars[name]
	}
	tc.nameError(tc.rt.NameError, name, "uninitialized class variable %s in %s", name, base.Name())
	return nil
}

func (tc *ThreadContext) cvarSet(c *Class, name string, v Value, declare bool) {
	base := tc.cvarBase(c)
	if owner := base.cvarOwner(name, tc.rt.serial); owner != nil && !declare {
		owner.setCvar(name, v)
		return
	}
	base.setCvar(name, v)
}

func (tc *ThreadContext) ivarLookup(self Value, name string) (Value, bool) {
	if h, ok := self.(HeapValue); ok {
		return h.basic().Ivar(name)
	}
	return nil, false
}

func (tc *ThreadContext) ivarGet(self Value, name string) Value {
	v, _ := tc.ivarLookup(self, name)
	return v
}

func (tc *ThreadContext) ivarSet(self Value, name string, v Value) {
	h, ok := self.(HeapValue)
	if !ok {
		tc.Raise(tc.rt.RuntimeError, "can't modify instance variable of %s", tc.rt.RealClassOf(self).Name())
	}
	b := h.basic()
	if b.frozen {
		tc.Raise(tc.rt.TypeError, "can't modify frozen %s", tc.rt.RealClassOf(self).Name())
	}
	b.SetIvar(name, v)
}

// ---------------------------------------------------------------------------
// Compiling and running
// ---------------------------------------------------------------------------

// CacheKey identifies the body Compile produces for root in file. A body
// records its file and line table and is shaped by the compiler options, so
// all of those contribute alongside the tree's structure.
func (rt *Runtime) CacheKey(root *ast.RootNode, file string) [32]byte {
	h := sha256.New()
	h.Write(ast.Serialize(root))
	h.Write(ast.SerializePositions(root))
	fmt.Fprintf(h, "\x00file=%q fast_case=%t max_arity=%d",
		file, rt.compiler.FastCase, rt.compiler.MaxSpecificArity)
	var key [32]byte
	h.Sum(key[:0])
	return key
}

// Compile turns a program tree into a script body, using the body cache
// when configured.
func (rt *Runtime) Compile(root *ast.RootNode, file string) (*CompiledBody, error) {
	key := rt.CacheKey(root, file)
	scopes := ast.Scopes(root)
	if rt.opts.Cache != nil {
		if body, ok := rt.opts.Cache.Load(key, scopes); ok {
			log.Debugf("cache hit for %s", file)
			return body, nil
		}
	}
	body, err := CompileScript(rt.compiler, root, file)
	if err != nil {
		if compiler.IsNotCompilable(err) {
			log.Infof("%s is not compilable: %s", file, err)
		}
		return nil, fmt.Errorf("compile %s: %w", file, err)
	}
	if rt.opts.Cache != nil {
		rt.opts.Cache.Save(key, body, scopes)
	}
	return body, nil
}

// Execute compiles and runs a program tree.
func (rt *Runtime) Execute(root *ast.RootNode, file string) (Value, error) {
	body, err := rt.Compile(root, file)
	if err != nil {
		return nil, err
	}
	return rt.Run(body)
}

// Run executes a script body on the main thread, then its END blocks.
// Ruby exceptions come back as *RaiseException errors.
func (rt *Runtime) Run(body *CompiledBody) (Value, error) {
	rt.gil.Lock()
	defer rt.gil.Unlock()
	tc := rt.mainThread.tc
	v, err := rt.protect(tc, func() Value { return tc.runScript(body) })
	if endErr := rt.runEndBlocks(tc); err == nil {
		err = endErr
	}
	rt.killOtherThreads()
	return v, err
}

// Call sends name to recv on the main thread.
func (rt *Runtime) Call(recv Value, name string, args ...Value) (Value, error) {
	rt.gil.Lock()
	defer rt.gil.Unlock()
	tc := rt.mainThread.tc
	return rt.protect(tc, func() Value {
		return tc.withFrame(rt.topFrame(), func() Value { return tc.Send(recv, name, args...) })
	})
}

func (rt *Runtime) topFrame() *Frame {
	return &Frame{Self: rt.main, Block: NullBlock, Visibility: Private, active: true}
}

func (tc *ThreadContext) runScript(body *CompiledBody) Value {
	rt := tc.rt
	body.Scope.SetModule(rt.Object)
	frame := rt.topFrame()
	d := NewDynamicScope(body.Scope, nil)
	a := &activation{
		tc:    tc,
		body:  body,
		frame: frame,
		scope: d,
		self:  rt.main,
		cref:  rt.Object,
		stack: make([]Value, 0, body.MaxStack+1),
	}
	tc.pushSite(body, body.Name)
	defer tc.popSite()
	defer func() { frame.active = false }()
	v, j := catchJump(a.execute, func(j *JumpError) bool {
		return j.Kind == ReturnJump && j.Target == frame
	})
	if j != nil {
		return j.Value
	}
	return v
}

func (rt *Runtime) runEndBlocks(tc *ThreadContext) error {
	var first error
	for len(rt.endBlocks) > 0 {
		n := len(rt.endBlocks) - 1
		b := rt.endBlocks[n]
		rt.endBlocks = rt.endBlocks[:n]
		if _, err := rt.protect(tc, func() Value { return tc.invokeBlock(b, blockCall{multiple: true}) }); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// errInternal wraps Go panics that are not Ruby-level control flow.
var errInternal = errors.New("internal error")

// protect runs fn, converting Ruby exceptions and stray jumps to errors.
func (rt *Runtime) protect(tc *ThreadContext, fn func() Value) (v Value, err error) {
	depth := len(tc.sites)
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		tc.sites = tc.sites[:depth]
		switch x := r.(type) {
		case *RaiseException:
			err = x
		case *JumpError:
			err = tc.jumpToLocalJumpError(x)
		case *threadKill:
			err = nil
		case error:
			err = fmt.Errorf("%w: %w", errInternal, x)
		default:
			err = fmt.Errorf("%w: %v", errInternal, x)
		}
	}()
	return fn(), nil
}
