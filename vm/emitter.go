package vm

import (
	"fmt"
	"math"
	"math/big"

	"github.com/chazu/garnet/ast"
	"github.com/chazu/garnet/compiler"
	"github.com/chazu/garnet/scope"
)

// ---------------------------------------------------------------------------
// Emitter: the bytecode implementation of compiler.BodyCompiler
// ---------------------------------------------------------------------------

// Emitter emits one CompiledBody. Nested closures, methods, class bodies
// and protected regions get their own Emitter whose result becomes a child
// of this body.
type Emitter struct {
	body   *CompiledBody
	b      *BytecodeBuilder
	parent *Emitter

	names    map[string]int
	strings  map[string]int
	loop     *loopContext
	closure  bool // inside a block, directly or through regions
	start    *Label
	switches []switchFixup
	line     int
}

var _ compiler.BodyCompiler = (*Emitter)(nil)

// loopContext records where break, next and redo go for the innermost loop.
type loopContext struct {
	light bool
	base  int // stack depth when the loop started
	brk   *Label
	next  *Label
	redo  *Label
	owner *Emitter
}

type switchFixup struct {
	lit     *Literal
	labels  []*Label
	deflt   *Label
	targets []int
}

func newEmitter(kind BodyKind, name string, sc *scope.StaticScope, parent *Emitter) *Emitter {
	e := &Emitter{
		body: &CompiledBody{
			Name:     name,
			Kind:     kind,
			Scope:    sc,
			BlockArg: -1,
		},
		b:       NewBytecodeBuilder(),
		parent:  parent,
		names:   make(map[string]int),
		strings: make(map[string]int),
	}
	if parent != nil {
		e.body.File = parent.body.File
		e.body.Line = parent.line
		e.line = parent.line
	}
	return e
}

// CompileScript compiles a program tree into a script body.
func CompileScript(c *compiler.ASTCompiler, root *ast.RootNode, file string) (body *CompiledBody, err error) {
	e := newEmitter(ScriptBody, "<main>", root.Scope, nil)
	e.body.File = file
	e.body.Line = root.Position().Line
	defer func() {
		if r := recover(); r != nil {
			if nc, ok := r.(*compiler.NotCompilableError); ok {
				err = nc
				return
			}
			err = fmt.Errorf("compile %s: %v", file, r)
		}
	}()
	if err := c.CompileRoot(root, e); err != nil {
		return nil, err
	}
	return e.finish()
}

// finish terminates the body and resolves jump tables. A reachable end must
// hold exactly the body's value.
func (e *Emitter) finish() (*CompiledBody, error) {
	if e.b.Reachable() {
		if e.b.Depth() != 1 {
			return nil, fmt.Errorf("stack imbalance in %s %s: %d values at end",
				e.body.Kind, e.body.Name, e.b.Depth())
		}
		e.b.Emit(OpReturn)
		e.b.Adjust(-1)
	}
	for _, sw := range e.switches {
		sw.lit.Targets = make([]int, len(sw.targets))
		for i, t := range sw.targets {
			sw.lit.Targets[i] = sw.labels[t].Position()
		}
		sw.lit.Default = sw.deflt.Position()
	}
	e.body.Code = e.b.Bytes()
	e.body.MaxStack = e.b.MaxDepth()
	if e.start != nil {
		e.body.BodyStart = e.start.Position()
	}
	return e.body, nil
}

// mustFinish finishes a nested body; imbalance there is an emitter bug.
func (e *Emitter) mustFinish() *CompiledBody {
	body, err := e.finish()
	if err != nil {
		panic(err)
	}
	return body
}

func (e *Emitter) child(body *CompiledBody) uint16 {
	e.body.Children = append(e.body.Children, body)
	return uint16(len(e.body.Children) - 1)
}

func (e *Emitter) name(s string) uint16 {
	if i, ok := e.names[s]; ok {
		return uint16(i)
	}
	e.body.Names = append(e.body.Names, s)
	e.names[s] = len(e.body.Names) - 1
	return uint16(len(e.body.Names) - 1)
}

func (e *Emitter) literal(l *Literal) uint16 {
	e.body.Literals = append(e.body.Literals, l)
	return uint16(len(e.body.Literals) - 1)
}

// op emits an operand-less instruction with a stack effect.
func (e *Emitter) op(op Opcode, effect int) {
	e.b.Emit(op)
	e.b.Adjust(effect)
}

func (e *Emitter) opByte(op Opcode, operand byte, effect int) {
	e.b.EmitByte(op, operand)
	e.b.Adjust(effect)
}

func (e *Emitter) opU16(op Opcode, operand uint16, effect int) {
	e.b.EmitUint16(op, operand)
	e.b.Adjust(effect)
}

// terminate ends straight-line code after an instruction that never falls
// through, leaving depth as if an expression value were there.
func (e *Emitter) terminate(depth int) {
	e.b.SetDepth(depth)
	e.b.Terminate()
}

// region emits fn into a protected child body that runs with this body's
// frame and variables on a fresh stack of initial values.
func (e *Emitter) region(name string, initial int, fn compiler.BranchCallback) uint16 {
	r := newEmitter(RegionBody, name, e.body.Scope, e)
	r.loop = e.loop
	r.closure = e.closure
	r.body.InitialDepth = initial
	r.b.SetDepth(initial)
	fn(r)
	return e.child(r.mustFinish())
}

// Scope returns the static scope of the body being emitted.
func (e *Emitter) Scope() *scope.StaticScope { return e.body.Scope }

// LineNumber records the source line of the following operations.
func (e *Emitter) LineNumber(line int) {
	if line == e.line {
		return
	}
	e.line = line
	if e.body.Line == 0 {
		e.body.Line = line
	}
	e.body.Lines = append(e.body.Lines, LineEntry{Offset: e.b.Len(), Line: line})
}

// ---------------------------------------------------------------------------
// Literals
// ---------------------------------------------------------------------------

func (e *Emitter) LoadNil()   { e.op(OpPushNil, 1) }
func (e *Emitter) LoadTrue()  { e.op(OpPushTrue, 1) }
func (e *Emitter) LoadFalse() { e.op(OpPushFalse, 1) }
func (e *Emitter) LoadSelf()  { e.op(OpPushSelf, 1) }

func (e *Emitter) CreateNewFixnum(v int64) {
	switch {
	case v >= math.MinInt8 && v <= math.MaxInt8:
		e.b.EmitInt8(OpPushInt8, int8(v))
	case v >= math.MinInt32 && v <= math.MaxInt32:
		e.b.EmitInt32(OpPushInt32, int32(v))
	default:
		e.b.EmitInt64(OpPushInt64, v)
	}
	e.b.Adjust(1)
}

func (e *Emitter) CreateNewBignum(v *big.Int) {
	e.opU16(OpPushLiteral, e.literal(&Literal{Kind: BignumLiteral, Big: new(big.Int).Set(v)}), 1)
}

func (e *Emitter) CreateNewFloat(v float64) {
	e.b.EmitFloat64(OpPushFloat, v)
	e.b.Adjust(1)
}

func (e *Emitter) CreateNewString(s string) {
	idx, ok := e.strings[s]
	if !ok {
		idx = int(e.literal(&Literal{Kind: StringLiteral, Str: s}))
		e.strings[s] = idx
	}
	e.opU16(OpPushString, uint16(idx), 1)
}

func (e *Emitter) CreateNewSymbol(name string) { e.opU16(OpPushSymbol, e.name(name), 1) }

func (e *Emitter) CreateNewRegexp(pattern string, options int) {
	e.opU16(OpPushRegexp, e.literal(&Literal{Kind: RegexpLiteral, Str: pattern, Options: options}), 1)
}

func (e *Emitter) CreateEmptyArray()       { e.opU16(OpMakeArray, 0, 1) }
func (e *Emitter) CreateNewArray(count int) { e.opU16(OpMakeArray, uint16(count), 1-count) }
func (e *Emitter) CreateNewHash(pairs int)  { e.opU16(OpMakeHash, uint16(pairs), 1-2*pairs) }
func (e *Emitter) BuildString(count int)    { e.opU16(OpBuildString, uint16(count), 1-count) }
func (e *Emitter) ToSymbol()                { e.op(OpToSymbol, 0) }

func (e *Emitter) CreateNewRange(exclusive bool) {
	var flag byte
	if exclusive {
		flag = 1
	}
	e.opByte(OpMakeRange, flag, -1)
}

func (e *Emitter) CreateDynamicRegexp(options int, once bool) {
	e.opU16(OpMakeRegexp, e.literal(&Literal{Kind: RegexpLiteral, Options: options, Once: once}), 0)
}

// ---------------------------------------------------------------------------
// Stack shuffling
// ---------------------------------------------------------------------------

func (e *Emitter) Pop()  { e.op(OpPOP, -1) }
func (e *Emitter) Dup()  { e.op(OpDUP, 1) }
func (e *Emitter) Dup2() { e.op(OpDUP2, 2) }
func (e *Emitter) Swap() { e.op(OpSWAP, 0) }

func (e *Emitter) Squeeze(n int) {
	if n > 0 {
		e.opByte(OpSQUEEZE, byte(n), -n)
	}
}

func (e *Emitter) popN(n int) {
	switch {
	case n == 1:
		e.Pop()
	case n > 1:
		e.opByte(OpPOPN, byte(n), -n)
	}
}

// ---------------------------------------------------------------------------
// Variables
// ---------------------------------------------------------------------------

func (e *Emitter) local(op Opcode, index, depth, effect int) {
	e.b.EmitUint16(op, uint16(index))
	e.b.EmitRaw(byte(depth))
	e.b.Adjust(effect)
}

func (e *Emitter) RetrieveLocal(index, depth int) { e.local(OpPushLocal, index, depth, 1) }
func (e *Emitter) AssignLocal(index, depth int)   { e.local(OpStoreLocal, index, depth, 0) }

func (e *Emitter) RetrieveInstanceVariable(name string) { e.opU16(OpPushIvar, e.name(name), 1) }
func (e *Emitter) AssignInstanceVariable(name string)   { e.opU16(OpStoreIvar, e.name(name), 0) }
func (e *Emitter) RetrieveGlobal(name string)           { e.opU16(OpPushGlobal, e.name(name), 1) }
func (e *Emitter) AssignGlobal(name string)             { e.opU16(OpStoreGlobal, e.name(name), 0) }
func (e *Emitter) RetrieveClassVariable(name string)    { e.opU16(OpPushCvar, e.name(name), 1) }
func (e *Emitter) AssignClassVariable(name string)      { e.opU16(OpStoreCvar, e.name(name), 0) }
func (e *Emitter) DeclareClassVariable(name string)     { e.opU16(OpDeclareCvar, e.name(name), 0) }
func (e *Emitter) RetrieveConstant(name string)         { e.opU16(OpPushConst, e.name(name), 1) }
func (e *Emitter) RetrieveConstantFrom(name string)     { e.opU16(OpPushConstFrom, e.name(name), 0) }
func (e *Emitter) RetrieveToplevelConstant(name string) { e.opU16(OpPushConstTop, e.name(name), 1) }
func (e *Emitter) AssignConstantInCurrent(name string)  { e.opU16(OpStoreConst, e.name(name), 0) }
func (e *Emitter) AssignConstantInModule(name string)   { e.opU16(OpStoreConstIn, e.name(name), -1) }
func (e *Emitter) AssignConstantInObject(name string)   { e.opU16(OpStoreConstTop, e.name(name), 0) }
func (e *Emitter) RetrieveBackRef(kind byte)            { e.opByte(OpPushBackRef, kind, 1) }
func (e *Emitter) RetrieveNthRef(n int)                 { e.opU16(OpPushNthRef, uint16(n), 1) }
func (e *Emitter) LoadBlock()                           { e.op(OpPushBlock, 1) }

// ---------------------------------------------------------------------------
// Array shapes
// ---------------------------------------------------------------------------

func (e *Emitter) SplatToArray()                  { e.op(OpSplat, 0) }
func (e *Emitter) ConcatArrays()                  { e.op(OpConcat, -1) }
func (e *Emitter) AppendToArray()                 { e.op(OpArrayPush, -1) }
func (e *Emitter) SValue()                        { e.op(OpSValue, 0) }
func (e *Emitter) EnsureMultipleAssignableArray() { e.op(OpToAry, 0) }
func (e *Emitter) ConvertToBlock()                { e.op(OpToBlock, 0) }

func (e *Emitter) ForEachInValueArray(start, count int, source *ast.ArrayNode, callback compiler.ArrayCallback, rest compiler.BranchCallback) {
	for i := 0; i < count; i++ {
		e.Dup()
		e.opU16(OpArrayAt, uint16(start+i), 0)
		callback(e, source, i)
	}
	if rest != nil {
		e.Dup()
		e.opU16(OpArrayRest, uint16(start+count), 0)
		rest(e)
	}
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

// pushArgs emits an argument list and returns the argc operand and the
// number of stack values it occupies.
func (e *Emitter) pushArgs(args compiler.ArgumentsCallback) (argc byte, values int) {
	if args == nil {
		return 0, 0
	}
	args.Call(e)
	if args.Arity() == compiler.VariableArity {
		return SplatArgc, 1
	}
	return byte(args.Arity()), args.Arity()
}

func (e *Emitter) InvokeDynamic(name string, receiver compiler.BranchCallback, args compiler.ArgumentsCallback, callType compiler.CallType, closure compiler.BranchCallback, iterator bool) {
	if receiver != nil {
		receiver(e)
	} else {
		e.LoadSelf()
	}
	argc, values := e.pushArgs(args)
	var flags byte
	switch callType {
	case compiler.FunctionalCall:
		flags |= SendFunctional
	case compiler.VariableCall:
		flags |= SendFunctional | SendVariable
	}
	if closure != nil {
		closure(e)
		values++
		flags |= SendHasBlock
		if iterator {
			flags |= SendIterator
		}
	}
	e.b.EmitSend(e.name(name), argc, flags)
	e.b.Adjust(-values)
}

func (e *Emitter) InvokeStack(name string, argc int) {
	e.b.EmitSend(e.name(name), byte(argc), 0)
	e.b.Adjust(-argc)
}

func (e *Emitter) InvokeSuper(args compiler.ArgumentsCallback, closure compiler.BranchCallback) {
	argc, values := e.pushArgs(args)
	var flags byte
	if closure != nil {
		closure(e)
		values++
		flags |= SendHasBlock
	}
	e.b.Emit(OpSendSuper)
	e.b.EmitRaw(argc)
	e.b.EmitRaw(flags)
	e.b.Adjust(1 - values)
}

func (e *Emitter) InvokeZSuper(closure compiler.BranchCallback) {
	var flags byte
	effect := 1
	if closure != nil {
		closure(e)
		flags |= SendHasBlock
		effect--
	}
	e.opByte(OpZSuper, flags, effect)
}

func (e *Emitter) attrAssign(name string, mode byte, effect int) {
	e.b.EmitUint16(OpAttrAssign, e.name(name))
	e.b.EmitRaw(mode)
	e.b.Adjust(effect)
}

func (e *Emitter) InvokeAttrAssign(name string)      { e.attrAssign(name, AttrArgs, -1) }
func (e *Emitter) InvokeAttrAssignValue(name string) { e.attrAssign(name, AttrValueArgs, -2) }

// AttrOpAssign emits recv.attr op= value with the receiver on top. The
// short-circuit forms keep the old value when it decides the result.
func (e *Emitter) AttrOpAssign(attr, operator string, value compiler.BranchCallback) {
	e.Dup()
	e.b.EmitSend(e.name(attr), 0, 0)
	if operator == "||" || operator == "&&" {
		keep, end := e.b.NewLabel(), e.b.NewLabel()
		e.Dup()
		if operator == "||" {
			e.b.EmitJump(OpJumpTrue, keep)
		} else {
			e.b.EmitJump(OpJumpFalse, keep)
		}
		e.Pop()
		value(e)
		e.attrAssign(attr+"=", AttrValue, -1)
		e.b.EmitJump(OpJump, end)
		e.b.Mark(keep)
		e.Squeeze(1)
		e.b.Mark(end)
		return
	}
	value(e)
	e.b.EmitSend(e.name(operator), 1, 0)
	e.b.Adjust(-1)
	e.attrAssign(attr+"=", AttrValue, -1)
}

// ElementOpAssign emits recv[args] op= value with [recv, args] on top.
func (e *Emitter) ElementOpAssign(operator string, value compiler.BranchCallback) {
	e.Dup2()
	e.b.EmitSend(e.name("[]"), SplatArgc, 0)
	e.b.Adjust(-1)
	if operator == "||" || operator == "&&" {
		keep, end := e.b.NewLabel(), e.b.NewLabel()
		e.Dup()
		if operator == "||" {
			e.b.EmitJump(OpJumpTrue, keep)
		} else {
			e.b.EmitJump(OpJumpFalse, keep)
		}
		e.Pop()
		value(e)
		e.attrAssign("[]=", AttrArgsValue, -2)
		e.b.EmitJump(OpJump, end)
		e.b.Mark(keep)
		e.Squeeze(2)
		e.b.Mark(end)
		return
	}
	value(e)
	e.b.EmitSend(e.name(operator), 1, 0)
	e.b.Adjust(-1)
	e.attrAssign("[]=", AttrArgsValue, -2)
}

func (e *Emitter) Yield(hasValue, multiple bool) {
	var flags byte
	effect := 1
	if hasValue {
		flags |= YieldHasValue
		effect = 0
	}
	if multiple {
		flags |= YieldMultiple
	}
	e.opByte(OpYield, flags, effect)
}

// ---------------------------------------------------------------------------
// Control
// ---------------------------------------------------------------------------

func (e *Emitter) PerformBooleanBranch(trueBranch, falseBranch compiler.BranchCallback) {
	elseL, end := e.b.NewLabel(), e.b.NewLabel()
	e.b.EmitJump(OpJumpFalse, elseL)
	trueBranch(e)
	e.b.EmitJump(OpJump, end)
	e.b.Mark(elseL)
	falseBranch(e)
	e.b.Mark(end)
}

func (e *Emitter) PerformLogicalAnd(longer compiler.BranchCallback) {
	e.logical(OpJumpFalse, longer)
}

func (e *Emitter) PerformLogicalOr(longer compiler.BranchCallback) {
	e.logical(OpJumpTrue, longer)
}

func (e *Emitter) logical(jump Opcode, longer compiler.BranchCallback) {
	end := e.b.NewLabel()
	e.Dup()
	e.b.EmitJump(jump, end)
	e.Pop()
	longer(e)
	e.b.Mark(end)
}

// PerformBooleanLoopLight emits a loop whose jumps are plain branches:
//
//	[JUMP cond]
//	body:  <body> POP
//	cond:  <cond> JUMP_TRUE body
//	       PUSH_NIL
//	break:
func (e *Emitter) PerformBooleanLoopLight(condition, body compiler.BranchCallback, checkFirst bool) {
	ctx := &loopContext{
		light: true,
		base:  e.b.Depth(),
		brk:   e.b.NewLabel(),
		next:  e.b.NewLabel(),
		redo:  e.b.NewLabel(),
		owner: e,
	}
	outer := e.loop
	e.loop = ctx
	if checkFirst {
		e.b.EmitJump(OpJump, ctx.next)
	}
	e.b.Mark(ctx.redo)
	body(e)
	e.Pop()
	e.b.Mark(ctx.next)
	condition(e)
	e.b.EmitJump(OpJumpTrue, ctx.redo)
	e.LoadNil()
	e.b.Mark(ctx.brk)
	e.loop = outer
}

// PerformBooleanLoopSafe emits a loop whose body is a protected region so
// break, next and redo unwind through the exception regions inside it:
//
//	[JUMP cond]
//	body:  LOOP_BODY region, break
//	cond:  <cond> JUMP_TRUE body
//	       PUSH_NIL
//	break:
func (e *Emitter) PerformBooleanLoopSafe(condition, body compiler.BranchCallback, checkFirst bool) {
	ctx := &loopContext{
		light: true,
		base:  e.b.Depth(),
		brk:   e.b.NewLabel(),
		next:  e.b.NewLabel(),
		redo:  e.b.NewLabel(),
		owner: e,
	}
	outer := e.loop
	if checkFirst {
		e.b.EmitJump(OpJump, ctx.next)
	}
	e.b.Mark(ctx.redo)

	e.loop = &loopContext{light: false, owner: e}
	r := newEmitter(RegionBody, "loop", e.body.Scope, e)
	r.loop = e.loop
	r.closure = e.closure
	body(r)
	idx := e.child(r.mustFinish())

	e.loop = ctx
	e.b.EmitUint16(OpLoopBody, idx)
	e.b.EmitLabelRef(ctx.brk, 1)
	e.b.Mark(ctx.next)
	condition(e)
	e.b.EmitJump(OpJumpTrue, ctx.redo)
	e.LoadNil()
	e.b.Mark(ctx.brk)
	e.loop = outer
}

func (e *Emitter) TypeCheckBranch(kind compiler.ValueKind, typed, untyped compiler.BranchCallback) {
	e.opByte(OpTypeIs, byte(kind), 1)
	e.PerformBooleanBranch(typed, untyped)
}

func (e *Emitter) LiteralSwitch(cases []int64, targets []int, bodies []compiler.BranchCallback, defaultBody compiler.BranchCallback) {
	lit := &Literal{Kind: SwitchLiteral, Cases: append([]int64(nil), cases...)}
	fix := switchFixup{lit: lit, targets: targets, labels: make([]*Label, len(bodies)), deflt: e.b.NewLabel()}
	e.opU16(OpSwitch, e.literal(lit), -1)
	depth := e.b.Depth()
	used := make([]bool, len(bodies))
	for _, t := range targets {
		used[t] = true
	}
	for i := range bodies {
		fix.labels[i] = e.b.NewLabel()
		if used[i] {
			e.b.arrive(fix.labels[i], depth)
		}
	}
	e.b.arrive(fix.deflt, depth)
	e.terminate(depth)

	end := e.b.NewLabel()
	for i, body := range bodies {
		if !used[i] {
			continue
		}
		e.b.Mark(fix.labels[i])
		body(e)
		e.b.EmitJump(OpJump, end)
	}
	e.b.Mark(fix.deflt)
	if defaultBody != nil {
		defaultBody(e)
	} else {
		e.LoadNil()
	}
	e.b.Mark(end)
	e.switches = append(e.switches, fix)
}

func (e *Emitter) CaseSplatMatch(hasSubject bool) {
	if hasSubject {
		e.opByte(OpCaseSplat, 1, -1)
		return
	}
	e.opByte(OpCaseSplat, 0, 0)
}

// ---------------------------------------------------------------------------
// Jumps
// ---------------------------------------------------------------------------

func (e *Emitter) lightLoop() *loopContext {
	if e.loop == nil {
		return nil
	}
	if e.loop.light && e.loop.owner != e {
		panic(&compiler.NotCompilableError{Reason: "loop jump crosses a protected region of a light loop"})
	}
	return e.loop
}

// inClosureRoot reports whether the emitter is the block body itself rather
// than a region inside it.
func (e *Emitter) inClosureRoot() bool {
	return e.body.Kind == ClosureBody
}

func (e *Emitter) IssueBreakEvent() {
	d := e.b.Depth()
	switch loop := e.lightLoop(); {
	case loop != nil && loop.light:
		e.Squeeze(d - 1 - loop.base)
		e.b.EmitJump(OpJump, loop.brk)
	case loop != nil:
		e.op(OpBreakLoop, -1)
	case e.closure:
		e.op(OpBreakBlock, -1)
	default:
		e.Pop()
		e.opByte(OpJumpError, JumpErrorBreak, 0)
	}
	e.terminate(d)
}

func (e *Emitter) IssueNextEvent() {
	d := e.b.Depth()
	switch loop := e.lightLoop(); {
	case loop != nil && loop.light:
		e.popN(d - loop.base)
		e.b.EmitJump(OpJump, loop.next)
	case loop != nil:
		e.op(OpNextLoop, -1)
	case e.closure:
		e.op(OpNextBlock, -1)
	default:
		e.Pop()
		e.opByte(OpJumpError, JumpErrorNext, 0)
	}
	e.terminate(d)
}

func (e *Emitter) IssueRedoEvent() {
	d := e.b.Depth()
	switch loop := e.lightLoop(); {
	case loop != nil && loop.light:
		e.popN(d - loop.base)
		e.b.EmitJump(OpJump, loop.redo)
	case loop != nil:
		e.op(OpRedoLoop, 0)
	case e.closure && e.inClosureRoot():
		e.popN(d)
		e.b.EmitJump(OpJump, e.start)
	case e.closure:
		e.op(OpRedoBlock, 0)
	default:
		e.opByte(OpJumpError, JumpErrorRedo, 0)
	}
	e.terminate(d + 1)
}

func (e *Emitter) IssueRetryEvent() {
	d := e.b.Depth()
	e.op(OpRetry, 0)
	e.terminate(d + 1)
}

// PerformReturn returns from the body when it is the method or script
// itself; from blocks and regions the return unwinds to the home frame.
func (e *Emitter) PerformReturn() {
	d := e.b.Depth()
	switch e.body.Kind {
	case MethodBody, ScriptBody:
		e.op(OpReturn, -1)
	default:
		e.op(OpReturnNonLocal, -1)
	}
	e.terminate(d)
}

// ---------------------------------------------------------------------------
// Exceptions
// ---------------------------------------------------------------------------

func (e *Emitter) PerformRescue(body, handler, elseBody compiler.BranchCallback) {
	bodyIdx := e.region("rescue body", 0, body)
	handlerIdx := e.region("rescue", 1, handler)
	elseIdx := uint16(0xFFFF)
	if elseBody != nil {
		elseIdx = e.region("else", 0, elseBody)
	}
	e.b.EmitUint16(OpRescue, bodyIdx)
	e.b.EmitRawUint16(handlerIdx)
	e.b.EmitRawUint16(elseIdx)
	e.b.Adjust(1)
}

func (e *Emitter) RescueMatches() { e.op(OpRescueMatch, 0) }

func (e *Emitter) Rethrow() {
	d := e.b.Depth()
	e.op(OpRethrow, -1)
	e.terminate(d)
}

func (e *Emitter) PerformEnsure(body, ensure compiler.BranchCallback) {
	bodyIdx := e.region("ensure body", 0, body)
	ensureIdx := e.region("ensure", 0, func(ctx compiler.BodyCompiler) {
		ensure(ctx)
		ctx.LoadNil()
	})
	e.b.EmitUint16(OpEnsure, bodyIdx)
	e.b.EmitRawUint16(ensureIdx)
	e.b.Adjust(1)
}

func (e *Emitter) PerformSuppressed(body, fallback compiler.BranchCallback) {
	bodyIdx := e.region("suppressed", 0, body)
	fallbackIdx := e.region("fallback", 0, fallback)
	e.b.EmitUint16(OpSuppress, bodyIdx)
	e.b.EmitRawUint16(fallbackIdx)
	e.b.Adjust(1)
}

// ---------------------------------------------------------------------------
// Definedness probes
// ---------------------------------------------------------------------------

func (e *Emitter) defined(kind byte, operand uint16, effect int) {
	e.b.EmitByte(OpDefined, kind)
	e.b.EmitRawUint16(operand)
	e.b.Adjust(effect)
}

func (e *Emitter) IsGlobalDefined(name string) { e.defined(DefinedGlobal, e.name(name), 1) }
func (e *Emitter) IsInstanceVariableDefined(name string) {
	e.defined(DefinedIvar, e.name(name), 1)
}
func (e *Emitter) IsClassVariableDefined(name string) { e.defined(DefinedCvar, e.name(name), 1) }
func (e *Emitter) IsConstantDefined(name string)      { e.defined(DefinedConst, e.name(name), 1) }
func (e *Emitter) IsConstantDefinedFrom(name string)  { e.defined(DefinedConstFrom, e.name(name), 0) }
func (e *Emitter) IsBlockGiven()                      { e.defined(DefinedBlockGiven, 0, 1) }
func (e *Emitter) IsSuperDefined()                    { e.defined(DefinedSuper, 0, 1) }
func (e *Emitter) IsBackRefDefined(kind byte)         { e.defined(DefinedBackRef, uint16(kind), 1) }
func (e *Emitter) IsNthRefDefined(n int)              { e.defined(DefinedNthRef, uint16(n), 1) }

func (e *Emitter) IsMethodBound(name string, visibility compiler.DefinedVisibility) {
	kind := DefinedMethodAny
	if visibility == compiler.PublicVisibility {
		kind = DefinedMethodPublic
	}
	e.defined(kind, e.name(name), 0)
}

// ---------------------------------------------------------------------------
// Closures and definitions
// ---------------------------------------------------------------------------

// closureBody emits a block body. The coerced incoming value is on the
// stack when spec.Args binds it; the body starts after that.
func (e *Emitter) closureBody(spec compiler.ClosureSpec, name string, forLoop bool) *CompiledBody {
	c := newEmitter(ClosureBody, name, spec.Scope, e)
	c.closure = true
	c.body.Arity = spec.Arity
	c.body.ArgsType = spec.ArgsType
	c.body.HasMultipleArgsHead = spec.HasMultipleArgsHead
	c.body.ForLoop = forLoop
	c.body.LocalExits = spec.Inspector != nil && spec.Inspector.NextsLocally()
	if spec.Line > 0 {
		c.body.Line = spec.Line
		c.line = spec.Line
	}
	if spec.Args != nil {
		c.body.InitialDepth = 1
		c.b.SetDepth(1)
		spec.Args(c)
	}
	c.start = c.b.NewLabel()
	c.b.Mark(c.start)
	spec.Body(c)
	return c.mustFinish()
}

func (e *Emitter) CreateNewClosure(spec compiler.ClosureSpec) {
	idx := e.child(e.closureBody(spec, "block in "+e.body.Name, false))
	e.opU16(OpMakeBlock, idx, 1)
}

func (e *Emitter) CreateNewForLoop(spec compiler.ClosureSpec) {
	idx := e.child(e.closureBody(spec, "for in "+e.body.Name, true))
	e.opU16(OpMakeForBlock, idx, 1)
}

func (e *Emitter) CreateBeginEndBlock(spec compiler.ClosureSpec, post bool) {
	name := "BEGIN"
	var flag byte
	if post {
		name, flag = "END", 1
	}
	idx := e.child(e.closureBody(spec, name, true))
	e.b.EmitUint16(OpBeginEnd, idx)
	e.b.EmitRaw(flag)
	e.b.Adjust(1)
}

func (e *Emitter) DefineNewMethod(spec compiler.MethodSpec) {
	m := newEmitter(MethodBody, spec.Name, spec.Scope, e)
	m.body.Arity = spec.Arity
	m.body.BlockArg = spec.BlockArg
	m.body.LocalExits = spec.Inspector != nil && spec.Inspector.ReturnsLocally()
	if spec.Line > 0 {
		m.body.Line = spec.Line
		m.line = spec.Line
	}
	if spec.Args != nil {
		spec.Args(m)
	}
	m.start = m.b.NewLabel()
	m.b.Mark(m.start)
	spec.Body(m)
	idx := e.child(m.mustFinish())

	var singleton byte
	effect := 1
	if spec.Singleton {
		singleton, effect = 1, 0
	}
	e.b.EmitUint16(OpDefMethod, idx)
	e.b.EmitRaw(singleton)
	e.b.Adjust(effect)
}

func (e *Emitter) classBody(spec compiler.ClassSpec, name string) uint16 {
	c := newEmitter(ClassBody, name, spec.Scope, e)
	if spec.Line > 0 {
		c.body.Line = spec.Line
		c.line = spec.Line
	}
	spec.Body(c)
	return e.child(c.mustFinish())
}

func (e *Emitter) defineModule(op Opcode, spec compiler.ClassSpec) {
	idx := e.classBody(spec, spec.Name)
	var flags byte
	effect := 1
	if spec.HasPath {
		flags |= ClassHasPath
		effect--
	}
	if spec.TopLevel {
		flags |= ClassTopLevel
	}
	if spec.HasSuper {
		flags |= ClassHasSuper
		effect--
	}
	e.b.EmitUint16(op, idx)
	e.b.EmitRawUint16(e.name(spec.Name))
	e.b.EmitRaw(flags)
	e.b.Adjust(effect)
}

func (e *Emitter) DefineClass(spec compiler.ClassSpec)  { e.defineModule(OpDefClass, spec) }
func (e *Emitter) DefineModule(spec compiler.ClassSpec) { e.defineModule(OpDefModule, spec) }

func (e *Emitter) DefineSingletonClass(spec compiler.ClassSpec) {
	e.opU16(OpDefSClass, e.classBody(spec, "singleton class"), 0)
}

func (e *Emitter) DefineAlias(newName, oldName string) {
	e.b.EmitUint16(OpAlias, e.name(newName))
	e.b.EmitRawUint16(e.name(oldName))
	e.b.Adjust(1)
}

func (e *Emitter) GlobalAlias(newName, oldName string) {
	e.b.EmitUint16(OpGlobalAlias, e.name(newName))
	e.b.EmitRawUint16(e.name(oldName))
	e.b.Adjust(1)
}

func (e *Emitter) Undef(name string)       { e.opU16(OpUndef, e.name(name), 1) }
func (e *Emitter) CheckArgGiven(index int) { e.opU16(OpArgGiven, uint16(index), 1) }

// ---------------------------------------------------------------------------
// Matching and polling
// ---------------------------------------------------------------------------

func (e *Emitter) Match()            { e.op(OpMatch, 0) }
func (e *Emitter) Match2()           { e.op(OpMatch2, -1) }
func (e *Emitter) Match3()           { e.op(OpMatch3, -1) }
func (e *Emitter) PollThreadEvents() { e.op(OpPoll, 0) }
