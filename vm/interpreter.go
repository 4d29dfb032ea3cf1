package vm

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"

	"github.com/chazu/garnet/compiler"
)

// ---------------------------------------------------------------------------
// activation: Execution state of one body invocation
// ---------------------------------------------------------------------------

// activation runs one CompiledBody. Regions get their own activation that
// shares the frame, variables and self of their owner.
type activation struct {
	tc    *ThreadContext
	body  *CompiledBody
	frame *Frame
	scope *DynamicScope
	self  Value
	block *Block // the block whose body this is, for break and next
	cref  *Class // definition target when not the lexical module

	stack  []Value
	pc     int
	region bool
}

func (a *activation) push(v Value) {
	a.stack = append(a.stack, v)
}

func (a *activation) pop() Value {
	n := len(a.stack) - 1
	v := a.stack[n]
	a.stack[n] = nil
	a.stack = a.stack[:n]
	return v
}

func (a *activation) peek() Value {
	return a.stack[len(a.stack)-1]
}

// popN removes the top n values and returns them in push order.
func (a *activation) popN(n int) []Value {
	top := len(a.stack)
	out := make([]Value, n)
	copy(out, a.stack[top-n:])
	for i := top - n; i < top; i++ {
		a.stack[i] = nil
	}
	a.stack = a.stack[:top-n]
	return out
}

// ---------------------------------------------------------------------------
// Operand decoding
// ---------------------------------------------------------------------------

func (a *activation) u8() byte {
	b := a.body.Code[a.pc]
	a.pc++
	return b
}

func (a *activation) u16() uint16 {
	v := binary.LittleEndian.Uint16(a.body.Code[a.pc:])
	a.pc += 2
	return v
}

// target reads a 16-bit relative offset and returns the absolute position.
func (a *activation) target() int {
	off := int16(a.u16())
	return a.pc + int(off)
}

func (a *activation) name() string {
	return a.body.Names[a.u16()]
}

// crefClass returns the module definitions go to.
func (a *activation) crefClass() *Class {
	if a.cref != nil {
		return a.cref
	}
	return a.body.Scope.DetermineModule().(*Class)
}

// ---------------------------------------------------------------------------
// Regions
// ---------------------------------------------------------------------------

// runRegion executes child body idx with this activation's environment on
// a fresh stack holding initial.
func (a *activation) runRegion(idx int, initial ...Value) Value {
	child := a.body.Child(idx)
	r := &activation{
		tc:     a.tc,
		body:   child,
		frame:  a.frame,
		scope:  a.scope,
		self:   a.self,
		block:  a.block,
		cref:   a.cref,
		stack:  make([]Value, 0, child.MaxStack+1),
		region: true,
	}
	r.stack = append(r.stack, initial...)
	a.tc.pushRegion(child)
	defer a.tc.popSite()
	return r.execute()
}

// runLoop runs a safe loop body until it completes or a loop jump ends
// it. It returns the break value and whether break was used.
func (a *activation) runLoop(idx int) (Value, bool) {
	for {
		_, j := catchJump(func() Value { return a.runRegion(idx) }, func(j *JumpError) bool {
			return j.Kind == LoopBreak || j.Kind == LoopNext || j.Kind == LoopRedo
		})
		if j == nil {
			return nil, false
		}
		switch j.Kind {
		case LoopBreak:
			return j.Value, true
		case LoopNext:
			return nil, false
		}
	}
}

func (a *activation) runRescue(bodyIdx, handlerIdx, elseIdx int) Value {
	tc := a.tc
	for {
		v, re := catchRaise(func() Value { return a.runRegion(bodyIdx) })
		if re == nil {
			if elseIdx != 0xFFFF {
				v = a.runRegion(elseIdx)
			}
			return v
		}
		var j *JumpError
		func() {
			saved := tc.errInfo
			tc.errInfo = re.Exception
			defer func() { tc.errInfo = saved }()
			v, j = catchJump(func() Value { return a.runRegion(handlerIdx, re.Exception) }, func(j *JumpError) bool {
				return j.Kind == RetryJump
			})
		}()
		if j == nil {
			return v
		}
		log.Debugf("retry in %s", a.body.Name)
	}
}

func (a *activation) runEnsure(bodyIdx, ensureIdx int) (v Value) {
	defer func() {
		r := recover()
		a.runRegion(ensureIdx)
		if r != nil {
			panic(r)
		}
	}()
	return a.runRegion(bodyIdx)
}

func (a *activation) runSuppressed(bodyIdx, fallbackIdx int) Value {
	v, re := catchRaise(func() Value { return a.runRegion(bodyIdx) })
	if re != nil {
		return a.runRegion(fallbackIdx)
	}
	return v
}

// ---------------------------------------------------------------------------
// Main interpreter loop
// ---------------------------------------------------------------------------

// execute runs the body from a.pc until it returns.
func (a *activation) execute() Value {
	tc := a.tc
	rt := tc.rt
	saved := tc.frame
	tc.frame = a.frame
	defer func() { tc.frame = saved }()

	code := a.body.Code
	for {
		start := a.pc
		tc.setPC(start)
		op := Opcode(code[a.pc])
		a.pc++

		switch op {
		// Stack operations
		case OpNOP:
		case OpPOP:
			a.pop()
		case OpDUP:
			a.push(a.peek())
		case OpDUP2:
			n := len(a.stack)
			a.push(a.stack[n-2])
			a.push(a.stack[n-1])
		case OpSWAP:
			n := len(a.stack)
			a.stack[n-1], a.stack[n-2] = a.stack[n-2], a.stack[n-1]
		case OpSQUEEZE:
			n := int(a.u8())
			top := a.pop()
			a.popN(n)
			a.push(top)
		case OpPOPN:
			a.popN(int(a.u8()))

		// Push constants
		case OpPushNil:
			a.push(nil)
		case OpPushTrue:
			a.push(true)
		case OpPushFalse:
			a.push(false)
		case OpPushSelf:
			a.push(a.self)
		case OpPushInt8:
			a.push(int64(int8(a.u8())))
		case OpPushInt32:
			a.push(int64(int32(binary.LittleEndian.Uint32(code[a.pc:]))))
			a.pc += 4
		case OpPushInt64:
			a.push(int64(binary.LittleEndian.Uint64(code[a.pc:])))
			a.pc += 8
		case OpPushFloat:
			a.push(math.Float64frombits(binary.LittleEndian.Uint64(code[a.pc:])))
			a.pc += 8
		case OpPushLiteral:
			lit := a.body.Literals[a.u16()]
			a.push(new(big.Int).Set(lit.Big))
		case OpPushString:
			a.push(NewString(a.body.Literals[a.u16()].Str))
		case OpPushSymbol:
			a.push(Symbol(a.name()))
		case OpPushRegexp:
			lit := a.body.Literals[a.u16()]
			a.push(tc.literalRegexp(lit))
		case OpPushBlock:
			if b := a.frame.Block; b.IsGiven() {
				a.push(b.ToProc(ProcBlock))
			} else {
				a.push(nil)
			}

		// Variables
		case OpPushLocal:
			idx := int(a.u16())
			depth := int(a.u8())
			a.push(a.scope.Get(idx, depth))
		case OpStoreLocal:
			idx := int(a.u16())
			depth := int(a.u8())
			a.scope.Set(idx, depth, a.peek())
		case OpPushIvar:
			a.push(tc.ivarGet(a.self, a.name()))
		case OpStoreIvar:
			tc.ivarSet(a.self, a.name(), a.peek())
		case OpPushGlobal:
			a.push(tc.GetGlobal(a.name()))
		case OpStoreGlobal:
			tc.SetGlobal(a.name(), a.peek())
		case OpPushCvar:
			a.push(tc.cvarGet(a.crefClass(), a.name()))
		case OpStoreCvar:
			tc.cvarSet(a.crefClass(), a.name(), a.peek(), false)
		case OpDeclareCvar:
			tc.cvarSet(a.crefClass(), a.name(), a.peek(), true)
		case OpPushConst:
			a.push(tc.lookupConst(a.body.Scope, a.name()))
		case OpPushConstFrom:
			name := a.name()
			a.push(tc.constFrom(a.pop(), name))
		case OpPushConstTop:
			a.push(tc.constFrom(rt.Object, a.name()))
		case OpStoreConst:
			tc.setConst(a.crefClass(), a.name(), a.peek())
		case OpStoreConstIn:
			name := a.name()
			v := a.pop()
			tc.setConst(tc.moduleArg(a.pop()), name, v)
			a.push(v)
		case OpStoreConstTop:
			tc.setConst(rt.Object, a.name(), a.peek())
		case OpPushBackRef:
			a.push(backRef(a.frame.Match, a.u8()))
		case OpPushNthRef:
			a.push(nthRef(a.frame.Match, int(a.u16())))

		// Sends
		case OpSend:
			a.opSend()
		case OpSendSuper:
			argc := a.u8()
			flags := a.u8()
			blk := a.frame.Block
			if flags&SendHasBlock != 0 {
				blk = tc.blockArg(a.pop())
			}
			args := a.popArgs(argc)
			a.push(tc.callSuper(a.frame, args, blk))
		case OpZSuper:
			flags := a.u8()
			blk := a.frame.Block
			if flags&SendHasBlock != 0 {
				blk = tc.blockArg(a.pop())
			}
			a.push(tc.callSuper(a.frame, zsuperArgs(a.frame), blk))
		case OpAttrAssign:
			a.opAttrAssign()
		case OpYield:
			flags := a.u8()
			blk := a.frame.Block
			if !blk.IsGiven() {
				tc.localJumpError("no block given", "noreason", nil)
			}
			switch {
			case flags&YieldHasValue == 0:
				a.push(tc.invokeBlock(blk, blockCall{multiple: true}))
			case flags&YieldMultiple != 0:
				arr := tc.splatValue(a.pop())
				a.push(tc.invokeBlock(blk, blockCall{args: arr.Elems, multiple: true}))
			default:
				a.push(tc.Yield(blk, a.pop()))
			}

		// Object creation
		case OpMakeArray:
			a.push(NewArray(a.popN(int(a.u16()))...))
		case OpMakeHash:
			kv := a.popN(2 * int(a.u16()))
			h := NewHash()
			for i := 0; i < len(kv); i += 2 {
				h.Set(tc, kv[i], kv[i+1])
			}
			a.push(h)
		case OpMakeRange:
			excl := a.u8() != 0
			end := a.pop()
			begin := a.pop()
			a.push(tc.newRange(begin, end, excl))
		case OpBuildString:
			parts := a.popN(int(a.u16()))
			var s []byte
			for _, p := range parts {
				s = append(s, tc.AsString(p).S...)
			}
			a.push(NewString(string(s)))
		case OpToSymbol:
			a.push(Symbol(tc.AsString(a.pop()).S))
		case OpMakeRegexp:
			lit := a.body.Literals[a.u16()]
			src := a.pop()
			a.push(tc.dynamicRegexp(lit, tc.AsString(src).S))
		case OpSplat:
			a.push(tc.splatValue(a.pop()))
		case OpConcat:
			tail := tc.splatValue(a.pop())
			head := tc.splatValue(a.pop())
			elems := make([]Value, 0, len(head.Elems)+len(tail.Elems))
			elems = append(elems, head.Elems...)
			a.push(NewArray(append(elems, tail.Elems...)...))
		case OpArrayPush:
			v := a.pop()
			arr := a.peek().(*Array)
			arr.Elems = append(arr.Elems, v)
		case OpSValue:
			arr := tc.splatValue(a.pop())
			switch len(arr.Elems) {
			case 0:
				a.push(nil)
			case 1:
				a.push(arr.Elems[0])
			default:
				a.push(arr)
			}
		case OpToAry:
			a.push(tc.toAryValue(a.pop()))
		case OpArrayAt:
			idx := int(a.u16())
			a.push(tc.toAryValue(a.pop()).At(idx))
		case OpArrayRest:
			start := int(a.u16())
			arr := tc.toAryValue(a.pop())
			var rest []Value
			if start < len(arr.Elems) {
				rest = append(rest, arr.Elems[start:]...)
			}
			a.push(NewArray(rest...))
		case OpToBlock:
			a.push(tc.toBlock(a.pop()))

		// Control flow
		case OpJump:
			a.pc = a.target()
		case OpJumpTrue:
			t := a.target()
			if Truthy(a.pop()) {
				a.pc = t
			}
		case OpJumpFalse:
			t := a.target()
			if !Truthy(a.pop()) {
				a.pc = t
			}
		case OpTypeIs:
			a.push(hasKind(a.peek(), compiler.ValueKind(a.u8())))
		case OpSwitch:
			lit := a.body.Literals[a.u16()]
			a.pc = lit.Lookup(a.pop().(int64))
		case OpLoopBody:
			idx := int(a.u16())
			brk := a.target()
			if v, broke := a.runLoop(idx); broke {
				a.push(v)
				a.pc = brk
			}
		case OpCaseSplat:
			hasSubject := a.u8() != 0
			candidates := tc.splatValue(a.pop())
			var subject Value
			if hasSubject {
				subject = a.pop()
			}
			matched := false
			for _, c := range candidates.Elems {
				if hasSubject && Truthy(tc.Send(c, "===", subject)) || !hasSubject && Truthy(c) {
					matched = true
					break
				}
			}
			a.push(matched)

		// Returns and jumps
		case OpReturn:
			return a.pop()
		case OpReturnNonLocal:
			v := a.pop()
			target := a.frame.returnTarget()
			if !target.Active() {
				tc.localJumpError("unexpected return", "return", v)
			}
			panic(&JumpError{Kind: ReturnJump, Value: v, Target: target})
		case OpBreakLoop:
			panic(&JumpError{Kind: LoopBreak, Value: a.pop()})
		case OpNextLoop:
			panic(&JumpError{Kind: LoopNext, Value: a.pop()})
		case OpRedoLoop:
			panic(&JumpError{Kind: LoopRedo})
		case OpBreakBlock:
			v := a.pop()
			b := a.block
			if b.IsEscaped() && b.Type != LambdaBlock {
				tc.localJumpError("break from proc-closure", "break", v)
			}
			panic(&JumpError{Kind: BlockBreak, Value: v, Tag: b.escape})
		case OpNextBlock:
			v := a.pop()
			if !a.region {
				if a.block != nil && a.block.Type == LambdaBlock {
					return nil
				}
				return v
			}
			panic(&JumpError{Kind: BlockNext, Value: v})
		case OpRedoBlock:
			panic(&JumpError{Kind: BlockRedo})
		case OpRetry:
			panic(&JumpError{Kind: RetryJump})
		case OpJumpError:
			reason := jumpErrorReason(a.u8())
			tc.localJumpError("unexpected "+string(reason), reason, nil)

		// Exception regions
		case OpRescue:
			bodyIdx := int(a.u16())
			handlerIdx := int(a.u16())
			elseIdx := int(a.u16())
			a.push(a.runRescue(bodyIdx, handlerIdx, elseIdx))
		case OpEnsure:
			bodyIdx := int(a.u16())
			ensureIdx := int(a.u16())
			a.push(a.runEnsure(bodyIdx, ensureIdx))
		case OpSuppress:
			bodyIdx := int(a.u16())
			fallbackIdx := int(a.u16())
			a.push(a.runSuppressed(bodyIdx, fallbackIdx))
		case OpRescueMatch:
			classes := tc.splatValue(a.pop())
			exc := a.peek()
			matched := false
			for _, c := range classes.Elems {
				if _, ok := c.(*Class); !ok {
					tc.Raise(rt.TypeError, "class or module required for rescue clause")
				}
				if Truthy(tc.Send(c, "===", exc)) {
					matched = true
					break
				}
			}
			a.push(matched)
		case OpRethrow:
			ex, ok := a.pop().(*Exception)
			if !ok {
				tc.Raise(rt.TypeError, "exception object expected")
			}
			panic(&RaiseException{Exception: ex})

		// Definitions
		case OpMakeBlock, OpMakeForBlock:
			child := a.body.Child(int(a.u16()))
			b := NewBlock(child, NewBinding(a.self, a.frame, a.scope))
			b.Binding.cref = a.cref
			a.push(b)
		case OpBeginEnd:
			child := a.body.Child(int(a.u16()))
			post := a.u8() != 0
			b := NewBlock(child, NewBinding(a.self, a.frame, a.scope))
			b.Binding.cref = a.cref
			if post {
				rt.registerEnd(child, b)
			} else {
				tc.invokeBlock(b, blockCall{multiple: true})
			}
			a.push(nil)
		case OpDefMethod:
			a.opDefMethod()
		case OpDefClass, OpDefModule:
			a.opDefModule(op == OpDefModule)
		case OpDefSClass:
			child := a.body.Child(int(a.u16()))
			obj := a.pop()
			sc := tc.singletonClassOf(obj)
			a.push(tc.runClassBody(child, sc))
		case OpAlias:
			newName := a.name()
			oldName := a.name()
			tc.aliasMethod(a.crefClass(), newName, oldName)
			a.push(nil)
		case OpGlobalAlias:
			newName := a.name()
			oldName := a.name()
			rt.aliasGlobal(newName, oldName)
			a.push(nil)
		case OpUndef:
			tc.undefMethod(a.crefClass(), a.name())
			a.push(nil)
		case OpArgGiven:
			idx := int(a.u16())
			a.push(idx < len(a.frame.Args))

		// Probes, matching and polling
		case OpDefined:
			kind := a.u8()
			operand := a.u16()
			a.opDefined(kind, operand)
		case OpMatch:
			re := a.pop()
			line, ok := a.frame.LastLine.(*String)
			if !ok {
				a.push(nil)
				break
			}
			a.push(tc.Send(re, "=~", line))
		case OpMatch2:
			v := a.pop()
			re := a.pop()
			a.push(tc.Send(re, "=~", v))
		case OpMatch3:
			v := a.pop()
			re := a.pop()
			if _, ok := v.(*String); ok {
				a.push(tc.Send(re, "=~", v))
			} else {
				a.push(tc.Send(v, "=~", re))
			}
		case OpPoll:
			tc.poll()

		default:
			panic(fmt.Sprintf("%s: unknown opcode %s at %d", a.body.Name, op.Name(), start))
		}
	}
}

// ---------------------------------------------------------------------------
// Send helpers
// ---------------------------------------------------------------------------

// popArgs removes argc arguments, expanding a splatted argument array.
func (a *activation) popArgs(argc byte) []Value {
	if argc == SplatArgc {
		arr := a.tc.splatValue(a.pop())
		return append([]Value(nil), arr.Elems...)
	}
	return a.popN(int(argc))
}

func (a *activation) opSend() {
	tc := a.tc
	site := a.pc - 1
	name := a.name()
	argc := a.u8()
	flags := a.u8()

	blk := NullBlock
	if flags&SendHasBlock != 0 {
		blk = tc.blockArg(a.pop())
	}
	args := a.popArgs(argc)
	recv := a.pop()
	ic := a.body.Caches().GetOrCreate(site)

	if flags&SendIterator == 0 {
		a.push(tc.callMethod(recv, name, args, blk, flags, ic))
		return
	}
	for {
		v, j := catchJump(func() Value { return tc.callMethod(recv, name, args, blk, flags, ic) }, func(j *JumpError) bool {
			return j.Kind == RetryJump || j.Kind == BlockBreak && j.Tag == blk.escape
		})
		if j == nil {
			blk.Escape()
			a.push(v)
			return
		}
		if j.Kind == BlockBreak {
			blk.Escape()
			a.push(j.Value)
			return
		}
		log.Debugf("retry of iterator call %s", name)
	}
}

func (a *activation) opAttrAssign() {
	tc := a.tc
	name := a.name()
	mode := a.u8()
	var recv, value Value
	var args []Value
	switch mode {
	case AttrArgs:
		args = append([]Value(nil), tc.splatValue(a.pop()).Elems...)
		recv = a.pop()
		if len(args) > 0 {
			value = args[len(args)-1]
		}
	case AttrValueArgs:
		args = append([]Value(nil), tc.splatValue(a.pop()).Elems...)
		recv = a.pop()
		value = a.pop()
		args = append(args, value)
	case AttrArgsValue:
		value = a.pop()
		args = append(append([]Value(nil), tc.splatValue(a.pop()).Elems...), value)
		recv = a.pop()
	case AttrValue:
		value = a.pop()
		recv = a.pop()
		args = []Value{value}
	}
	var flags byte
	if Identical(recv, a.self) {
		flags = SendFunctional
	}
	tc.callMethod(recv, name, args, NullBlock, flags, nil)
	a.push(value)
}

// zsuperArgs rebuilds the current method's arguments from the current
// values of its parameters.
func zsuperArgs(f *Frame) []Value {
	d := f.Scope
	if d == nil {
		return append([]Value(nil), f.Args...)
	}
	sc := d.StaticScope()
	n := sc.RequiredArgs() + sc.OptionalArgs()
	args := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		args = append(args, d.Get(i, 0))
	}
	if r := sc.RestArg(); r >= 0 {
		if rest, ok := d.Get(r, 0).(*Array); ok {
			args = append(args, rest.Elems...)
		}
	}
	return args
}

func jumpErrorReason(kind byte) Symbol {
	switch kind {
	case JumpErrorBreak:
		return "break"
	case JumpErrorNext:
		return "next"
	}
	return "redo"
}

func hasKind(v Value, kind compiler.ValueKind) bool {
	switch kind {
	case compiler.FixnumKind:
		_, ok := v.(int64)
		return ok
	case compiler.StringKind:
		_, ok := v.(*String)
		return ok
	case compiler.SymbolKind:
		_, ok := v.(Symbol)
		return ok
	}
	return false
}

// ---------------------------------------------------------------------------
// Definitions
// ---------------------------------------------------------------------------

func (a *activation) opDefMethod() {
	tc := a.tc
	rt := tc.rt
	child := a.body.Child(int(a.u16()))
	singleton := a.u8() != 0
	name := child.Name

	if singleton {
		obj := a.pop()
		sc := tc.singletonClassOf(obj)
		tc.addMethod(sc, &Method{Name: name, Owner: sc, Body: child, Visibility: Public})
		tc.Send(obj, "singleton_method_added", Symbol(name))
		a.push(nil)
		return
	}

	target := a.crefClass()
	vis := a.frame.Visibility
	if name == "initialize" || name == "initialize_copy" {
		vis = Private
	}
	tc.addMethod(target, &Method{Name: name, Owner: target, Body: child, Visibility: vis})
	if a.frame.moduleFunction {
		meta := tc.singletonClassOf(target)
		tc.addMethod(meta, &Method{Name: name, Owner: meta, Body: child, Visibility: Public})
	}
	if target.isSingleton {
		tc.Send(target.attached, "singleton_method_added", Symbol(name))
	} else if target != rt.Object || vis != Private {
		tc.Send(target, "method_added", Symbol(name))
	}
	a.push(nil)
}

func (a *activation) opDefModule(isModule bool) {
	tc := a.tc
	rt := tc.rt
	child := a.body.Child(int(a.u16()))
	name := a.name()
	flags := a.u8()

	var super Value
	if flags&ClassHasSuper != 0 {
		super = a.pop()
	}
	var container *Class
	switch {
	case flags&ClassHasPath != 0:
		container = tc.moduleArg(a.pop())
	case flags&ClassTopLevel != 0:
		container = rt.Object
	default:
		container = a.crefClass()
	}

	var klass *Class
	if isModule {
		klass = tc.openModule(container, name)
	} else {
		klass = tc.openClass(container, name, super, flags&ClassHasSuper != 0)
	}
	a.push(tc.runClassBody(child, klass))
}

// openClass finds or creates class name in container.
func (tc *ThreadContext) openClass(container *Class, name string, super Value, hasSuper bool) *Class {
	rt := tc.rt
	var superclass *Class
	if hasSuper {
		s, ok := super.(*Class)
		if !ok || s.isModule {
			tc.Raise(rt.TypeError, "superclass must be a Class (%s given)", rt.RealClassOf(super).Name())
		}
		superclass = s
	}
	if v, ok := container.ConstantAt(name); ok {
		k, ok := v.(*Class)
		if !ok || k.isModule {
			tc.Raise(rt.TypeError, "%s is not a class", name)
		}
		if superclass != nil && k.RealSuperclass() != superclass {
			tc.Raise(rt.TypeError, "superclass mismatch for class %s", name)
		}
		return k
	}
	if superclass == nil {
		superclass = rt.Object
	}
	k := rt.newSubclass(superclass, "")
	container.SetConstant(name, k)
	tc.Send(superclass, "inherited", k)
	return k
}

// openModule finds or creates module name in container.
func (tc *ThreadContext) openModule(container *Class, name string) *Class {
	if v, ok := container.ConstantAt(name); ok {
		k, ok := v.(*Class)
		if !ok || !k.isModule {
			tc.Raise(tc.rt.TypeError, "%s is not a module", name)
		}
		return k
	}
	m := tc.rt.newModule("")
	container.SetConstant(name, m)
	return m
}

// runClassBody executes a class, module or singleton class body with the
// class as self and definition target.
func (tc *ThreadContext) runClassBody(body *CompiledBody, klass *Class) Value {
	body.Scope.SetModule(klass)
	frame := &Frame{Self: klass, Klazz: klass, Block: NullBlock, Visibility: Public, active: true}
	a := &activation{
		tc:    tc,
		body:  body,
		frame: frame,
		scope: NewDynamicScope(body.Scope, nil),
		self:  klass,
		cref:  klass,
		stack: make([]Value, 0, body.MaxStack+1),
	}
	frame.Scope = a.scope
	tc.pushSite(body, "<class:"+klass.Name()+">")
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

// ---------------------------------------------------------------------------
// defined? probes
// ---------------------------------------------------------------------------

func (a *activation) opDefined(kind byte, operand uint16) {
	tc := a.tc
	rt := tc.rt
	switch kind {
	case DefinedGlobal:
		a.push(tc.globalDefined(a.body.Names[operand]))
	case DefinedIvar:
		_, ok := tc.ivarLookup(a.self, a.body.Names[operand])
		a.push(ok)
	case DefinedCvar:
		a.push(tc.cvarBase(a.crefClass()).cvarOwner(a.body.Names[operand], rt.serial) != nil)
	case DefinedConst:
		_, ok := tc.findConst(a.body.Scope, a.body.Names[operand])
		a.push(ok)
	case DefinedConstFrom:
		m, ok := a.pop().(*Class)
		if !ok {
			a.push(false)
			return
		}
		_, found := tc.constIn(m, a.body.Names[operand])
		a.push(found)
	case DefinedMethodAny, DefinedMethodPublic:
		recv := a.pop()
		m := rt.ClassOf(recv).findMethod(a.body.Names[operand], rt.serial)
		switch {
		case m == nil:
			a.push(false)
		case kind == DefinedMethodAny:
			a.push(true)
		case m.Visibility == Public:
			a.push(true)
		case m.Visibility == Protected:
			a.push(rt.ClassOf(a.self).IsKindOf(m.Owner.RealClass(), rt.serial))
		default:
			a.push(false)
		}
	case DefinedBlockGiven:
		a.push(a.frame.Block.IsGiven())
	case DefinedSuper:
		f := a.frame
		if f.Method == "" || f.Klazz == nil {
			a.push(false)
			return
		}
		a.push(rt.ClassOf(f.Self).findSuperMethod(f.Klazz, f.Method, rt.serial) != nil)
	case DefinedBackRef:
		a.push(backRef(a.frame.Match, byte(operand)) != nil)
	case DefinedNthRef:
		a.push(nthRef(a.frame.Match, int(operand)) != nil)
	default:
		a.push(false)
	}
}
