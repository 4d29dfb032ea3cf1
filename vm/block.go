package vm

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/chazu/garnet/compiler"
	"github.com/chazu/garnet/scope"
)

// ---------------------------------------------------------------------------
// Binding: Captured environment of a block
// ---------------------------------------------------------------------------

// Binding is the environment a block literal closes over.
type Binding struct {
	Self       Value
	Frame      *Frame
	Visibility Visibility
	Klazz      *Class
	Scope      *DynamicScope

	cref *Class // definition target override, nil for the lexical module
}

// NewBinding captures the current environment of an activation.
func NewBinding(self Value, f *Frame, d *DynamicScope) *Binding {
	return &Binding{
		Self:       self,
		Frame:      f,
		Visibility: f.Visibility,
		Klazz:      f.Klazz,
		Scope:      d,
	}
}

// ---------------------------------------------------------------------------
// Block: A closure, possibly reified as a Proc
// ---------------------------------------------------------------------------

// BlockType selects how a block treats arity, next and return.
type BlockType uint8

const (
	NormalBlock BlockType = iota // a literal passed to a call
	ProcBlock                    // Proc.new
	LambdaBlock                  // lambda, proc: strict arity, own return
	ThreadBlock                  // the body of a Thread
)

func (t BlockType) String() string {
	switch t {
	case NormalBlock:
		return "normal"
	case ProcBlock:
		return "proc"
	case LambdaBlock:
		return "lambda"
	case ThreadBlock:
		return "thread"
	}
	return fmt.Sprintf("BlockType(%d)", uint8(t))
}

// escapeFlag is shared by a block and every proc made from it. Once the
// call the block was passed to has finished, break has nowhere to go.
type escapeFlag struct {
	escaped atomic.Bool
}

// ErrNullBlock is the panic value of Escape on the null block.
var ErrNullBlock = errors.New("null block cannot escape")

// Block is a closure: a compiled body plus the binding it runs in, or a
// native function standing in for one.
type Block struct {
	Body    *CompiledBody
	Binding *Binding
	Type    BlockType

	// Native implements blocks made by Symbol#to_proc and Method#to_proc.
	Native NativeFunc
	arity  scope.Arity

	escape *escapeFlag
	proc   *Proc
	null   bool
}

// NullBlock stands for "no block given".
var NullBlock = &Block{null: true, escape: &escapeFlag{}}

// NewBlock creates a normal block over body.
func NewBlock(body *CompiledBody, b *Binding) *Block {
	return &Block{Body: body, Binding: b, Type: NormalBlock, escape: &escapeFlag{}}
}

// NewNativeBlock wraps fn as a block with the given arity.
func NewNativeBlock(fn NativeFunc, arity scope.Arity, t BlockType) *Block {
	return &Block{Native: fn, arity: arity, Type: t, escape: &escapeFlag{}}
}

// IsGiven reports whether b is a real block.
func (b *Block) IsGiven() bool { return b != nil && !b.null }

// Escape marks the block as outliving the call it was passed to.
func (b *Block) Escape() {
	if !b.IsGiven() {
		panic(ErrNullBlock)
	}
	b.escape.escaped.Store(true)
}

// IsEscaped reports whether break can no longer reach the block's call.
func (b *Block) IsEscaped() bool {
	return b.IsGiven() && b.escape.escaped.Load()
}

// Arity returns the declared arity.
func (b *Block) Arity() scope.Arity {
	if b.Native != nil {
		return b.arity
	}
	if b.Body == nil {
		return scope.OptionalArity()
	}
	return b.Body.Arity
}

// clone copies b with a new type; the copy shares the escape flag.
func (b *Block) clone(t BlockType) *Block {
	c := *b
	c.Type = t
	c.proc = nil
	return &c
}

// ToProc reifies b as a Proc object. A block already reified returns the
// same Proc; otherwise the Proc holds a copy of type t.
func (b *Block) ToProc(t BlockType) *Proc {
	if b.proc != nil {
		return b.proc
	}
	c := b.clone(t)
	p := &Proc{Block: c}
	c.proc = p
	b.proc = p
	return p
}

// Proc is a block reified as an object.
type Proc struct {
	Basic
	Block *Block
}

// ---------------------------------------------------------------------------
// Block invocation
// ---------------------------------------------------------------------------

// blockCall describes one invocation of a block.
type blockCall struct {
	args     []Value
	multiple bool // args are separate values, not one yielded value

	self    Value
	hasSelf bool   // instance_eval and friends
	frame   *Frame // define_method runs in the method's frame
	block   *Block // block passed to the block
	cref    *Class // class_eval and instance_eval definition target
}

// Yield calls blk with one value.
func (tc *ThreadContext) Yield(blk *Block, v Value) Value {
	return tc.invokeBlock(blk, blockCall{args: []Value{v}})
}

// YieldValues calls blk with several values, as yield a, b does.
func (tc *ThreadContext) YieldValues(blk *Block, vs ...Value) Value {
	return tc.invokeBlock(blk, blockCall{args: vs, multiple: true})
}

// CallBlock calls blk the way Proc#call does.
func (tc *ThreadContext) CallBlock(blk *Block, args []Value, passed *Block) Value {
	return tc.invokeBlock(blk, blockCall{args: args, multiple: true, block: passed})
}

// yieldUnder calls blk with self replaced, for instance_eval.
func (tc *ThreadContext) yieldUnder(blk *Block, self Value, args ...Value) Value {
	return tc.invokeBlock(blk, blockCall{args: args, multiple: true, self: self, hasSelf: true})
}

func (tc *ThreadContext) invokeBlock(b *Block, c blockCall) Value {
	if !b.IsGiven() {
		tc.localJumpError("no block given", "noreason", nil)
	}
	if b.Native != nil {
		return tc.invokeNativeBlock(b, c)
	}
	body := b.Body
	bind := b.Binding

	frame := bind.Frame
	switch {
	case c.frame != nil:
		frame = c.frame
	case b.Type == LambdaBlock || b.Type == ThreadBlock:
		frame = frame.duplicate()
		if c.block != nil {
			frame.Block = c.block
		}
	}
	self := bind.Self
	if c.hasSelf {
		self = c.self
	}
	dscope := bind.Scope
	if !body.ForLoop {
		dscope = NewDynamicScope(body.Scope, bind.Scope)
	}

	if b.Type == LambdaBlock && c.multiple {
		n := len(c.args)
		arity := body.Arity
		destructures := n == 1 && body.ArgsType == compiler.ArgsMultipleAssignment
		if !destructures && body.ArgsType != compiler.ArgsFixed && !arity.Accepts(n) {
			tc.argumentCountError(n, arity.Required())
		}
		if body.ArgsType == compiler.ArgsFixed && n != 1 {
			tc.argumentCountError(n, 1)
		}
	}

	a := &activation{
		tc:    tc,
		body:  body,
		frame: frame,
		scope: dscope,
		self:  self,
		block: b,
		cref:  bind.cref,
		stack: make([]Value, 0, body.MaxStack+1),
	}
	if c.cref != nil {
		a.cref = c.cref
	}
	if body.InitialDepth == 1 {
		a.push(tc.coerceBlockArgs(body, c.args, c.multiple))
	}

	tc.pushSite(body, body.Name)
	defer tc.popSite()

	if b.Type == LambdaBlock || b.Type == ThreadBlock {
		defer func() { frame.active = false }()
		return tc.runLambda(a, b, frame)
	}
	return tc.runBlockBody(a)
}

// runBlockBody executes a block activation, handling next and redo.
func (tc *ThreadContext) runBlockBody(a *activation) Value {
	if a.body.LocalExits {
		return a.execute()
	}
	for {
		v, j := catchJump(a.execute, func(j *JumpError) bool {
			return j.Kind == BlockNext || j.Kind == BlockRedo
		})
		if j == nil {
			return v
		}
		if j.Kind == BlockNext {
			if a.block.Type == LambdaBlock {
				return nil
			}
			return j.Value
		}
		a.stack = a.stack[:0]
		a.pc = a.body.BodyStart
	}
}

// runLambda additionally catches return and break aimed at the lambda.
func (tc *ThreadContext) runLambda(a *activation, b *Block, frame *Frame) Value {
	v, j := catchJump(func() Value { return tc.runBlockBody(a) }, func(j *JumpError) bool {
		switch j.Kind {
		case ReturnJump:
			return j.Target == frame
		case BlockBreak:
			return j.Tag == b.escape
		}
		return false
	})
	if j != nil {
		return j.Value
	}
	return v
}

func (tc *ThreadContext) invokeNativeBlock(b *Block, c blockCall) Value {
	args := c.args
	self := Value(nil)
	if c.hasSelf {
		self = c.self
	}
	passed := c.block
	if passed == nil {
		passed = NullBlock
	}
	return b.Native(tc, self, args, passed)
}

// coerceBlockArgs turns the incoming values into the single value the
// block's parameter binding consumes.
func (tc *ThreadContext) coerceBlockArgs(body *CompiledBody, args []Value, multiple bool) Value {
	switch body.ArgsType {
	case compiler.ArgsFixed:
		switch {
		case len(args) == 0:
			if !multiple {
				tc.rt.warn("multiple values for a block parameter (0 for 1)")
			}
			return nil
		case len(args) == 1:
			return args[0]
		default:
			tc.rt.warn(fmt.Sprintf("multiple values for a block parameter (%d for 1)", len(args)))
			return args[0]
		}

	case compiler.ArgsSingleRest, compiler.ArgsMultipleAssignment:
		if multiple && len(args) != 1 {
			return NewArray(append([]Value(nil), args...)...)
		}
		if len(args) == 0 {
			return NewArray()
		}
		v := args[0]
		if !body.HasMultipleArgsHead {
			return NewArray(v)
		}
		return tc.toAryForBlock(v)
	}
	return nil
}

// toAryForBlock converts a single yielded value for |a, b| parameters.
func (tc *ThreadContext) toAryForBlock(v Value) Value {
	switch x := v.(type) {
	case *Array:
		return x
	case nil:
		return NewArray(nil)
	}
	if tc.RespondTo(v, "to_ary") {
		if a, ok := tc.Send(v, "to_ary").(*Array); ok {
			return a
		}
		tc.Raise(tc.rt.TypeError, "%s#to_ary should return Array", tc.rt.RealClassOf(v).Name())
	}
	return NewArray(v)
}
