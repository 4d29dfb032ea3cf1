package compiler

import (
	"math/big"

	"github.com/chazu/garnet/ast"
	"github.com/chazu/garnet/scope"
)

// ---------------------------------------------------------------------------
// Callbacks
// ---------------------------------------------------------------------------

// BranchCallback emits a nested piece of code into ctx. The documented net
// stack effect of the operation receiving the callback states what the
// callback must leave behind.
type BranchCallback func(ctx BodyCompiler)

// ArrayCallback emits code for one element of a destructured array. The
// element is on top of the stack when it runs and must be consumed.
type ArrayCallback func(ctx BodyCompiler, source *ast.ArrayNode, index int)

// VariableArity marks an argument list compiled into a single array.
const VariableArity = -1

// ArgumentsCallback emits a call's argument list. With a fixed Arity it
// pushes exactly that many values; with VariableArity it pushes one array.
type ArgumentsCallback interface {
	Arity() int
	Call(ctx BodyCompiler)
}

// ---------------------------------------------------------------------------
// Discriminants
// ---------------------------------------------------------------------------

// CallType selects visibility rules and error messages for a call.
type CallType uint8

const (
	// NormalCall has an explicit receiver; private methods are refused.
	NormalCall CallType = iota
	// FunctionalCall is name(args) on self; private methods are allowed.
	FunctionalCall
	// VariableCall is a bare identifier that might have been a variable.
	VariableCall
)

// ArgsType describes how a block's declared parameters bind yielded values.
type ArgsType uint8

const (
	// ArgsZero blocks ignore whatever is yielded.
	ArgsZero ArgsType = iota
	// ArgsSingleRest blocks (|*a|) receive all values as one array.
	ArgsSingleRest
	// ArgsMultipleAssignment blocks (|a, b|) destructure an array.
	ArgsMultipleAssignment
	// ArgsFixed blocks (|a|) take a single value.
	ArgsFixed
)

func (t ArgsType) String() string {
	switch t {
	case ArgsZero:
		return "zero"
	case ArgsSingleRest:
		return "single-rest"
	case ArgsMultipleAssignment:
		return "multiple-assignment"
	case ArgsFixed:
		return "fixed"
	}
	return "unknown"
}

// ValueKind names a native value representation for typed branches.
type ValueKind uint8

const (
	FixnumKind ValueKind = iota
	StringKind
	SymbolKind
)

// DefinedVisibility selects the visibility rule of a method-bound probe.
type DefinedVisibility uint8

const (
	// AnyVisibility accepts private methods (calls on self).
	AnyVisibility DefinedVisibility = iota
	// PublicVisibility refuses private methods and accepts protected ones
	// only when self is a kind of the method owner.
	PublicVisibility
)

// ---------------------------------------------------------------------------
// Definition specs
// ---------------------------------------------------------------------------

// ClosureSpec describes a block literal.
type ClosureSpec struct {
	Line  int
	Scope *scope.StaticScope
	Arity scope.Arity
	// Body leaves the block's value on the stack.
	Body BranchCallback
	// Args consumes the coerced incoming value; nil when nothing binds.
	Args                BranchCallback
	HasMultipleArgsHead bool
	ArgsType            ArgsType
	Inspector           *ASTInspector
}

// MethodSpec describes a def.
type MethodSpec struct {
	Name  string
	Line  int
	Scope *scope.StaticScope
	Arity scope.Arity
	Body  BranchCallback
	// Args evaluates optional parameter defaults; net effect zero.
	Args BranchCallback
	// BlockArg is the slot receiving the block as a proc, or -1.
	BlockArg int
	// Singleton methods take their receiver from the stack.
	Singleton bool
	Inspector *ASTInspector
}

// ClassSpec describes a class, module or singleton class body.
type ClassSpec struct {
	Name  string
	Line  int
	Scope *scope.StaticScope
	Body  BranchCallback
	// HasPath means the container module is on the stack.
	HasPath bool
	// TopLevel defines the name in Object (::Name).
	TopLevel bool
	// HasSuper means the superclass is on the stack above the path.
	HasSuper bool
}

// ---------------------------------------------------------------------------
// BodyCompiler
// ---------------------------------------------------------------------------

// BodyCompiler is the emission target the AST compiler drives. It is a
// stack machine; each operation notes its net stack effect. Operations that
// never fall through (jumps, raises) are treated as leaving the value an
// expression in their position would have left.
type BodyCompiler interface {
	// Scope returns the static scope of the body being emitted.
	Scope() *scope.StaticScope

	// LineNumber records the source line of the following operations.
	LineNumber(line int)

	// literals: +1 each unless noted
	LoadNil()
	LoadTrue()
	LoadFalse()
	LoadSelf()
	CreateNewFixnum(v int64)
	CreateNewBignum(v *big.Int)
	CreateNewFloat(v float64)
	CreateNewString(s string)
	CreateNewSymbol(name string)
	CreateNewRegexp(pattern string, options int)
	CreateEmptyArray()
	// CreateNewArray pops count values: 1-count.
	CreateNewArray(count int)
	// CreateNewHash pops pairs key/value pairs: 1-2*pairs.
	CreateNewHash(pairs int)
	// CreateNewRange pops begin and end: -1.
	CreateNewRange(exclusive bool)
	// BuildString pops count values and concatenates their to_s: 1-count.
	BuildString(count int)
	// ToSymbol converts the string on top: 0.
	ToSymbol()
	// CreateDynamicRegexp compiles the string on top: 0.
	CreateDynamicRegexp(options int, once bool)

	// stack shuffling
	Pop()
	Dup()
	// Dup2 duplicates the top two values: +2.
	Dup2()
	Swap()
	// Squeeze drops n values below the top: -n.
	Squeeze(n int)

	// variables: loads +1, stores 0 (the value stays)
	RetrieveLocal(index, depth int)
	AssignLocal(index, depth int)
	RetrieveInstanceVariable(name string)
	AssignInstanceVariable(name string)
	RetrieveGlobal(name string)
	AssignGlobal(name string)
	RetrieveClassVariable(name string)
	AssignClassVariable(name string)
	DeclareClassVariable(name string)
	RetrieveConstant(name string)
	// RetrieveConstantFrom replaces the module on top with its constant: 0.
	RetrieveConstantFrom(name string)
	RetrieveToplevelConstant(name string)
	AssignConstantInCurrent(name string)
	// AssignConstantInModule takes [module, value] and leaves [value]: -1.
	AssignConstantInModule(name string)
	AssignConstantInObject(name string)
	RetrieveBackRef(kind byte)
	RetrieveNthRef(n int)
	// LoadBlock pushes the current block as a proc, or nil.
	LoadBlock()

	// array shapes
	// SplatToArray converts the top value for splatting: 0.
	SplatToArray()
	// ConcatArrays joins the two arrays on top: -1.
	ConcatArrays()
	// AppendToArray appends the top value to the array below it: -1.
	AppendToArray()
	// SValue unwraps a splat result into a single value: 0.
	SValue()
	// EnsureMultipleAssignableArray converts the top value for
	// destructuring: 0.
	EnsureMultipleAssignableArray()
	// ForEachInValueArray runs callback for elements start..start+count-1
	// of the array on top (nil past the end) and then rest with the
	// remaining elements, if rest is non-nil. The array stays: 0.
	ForEachInValueArray(start, count int, source *ast.ArrayNode, callback ArrayCallback, rest BranchCallback)
	// ConvertToBlock turns the top value into a block argument: 0.
	ConvertToBlock()

	// calls: +1
	InvokeDynamic(name string, receiver BranchCallback, args ArgumentsCallback, callType CallType, closure BranchCallback, iterator bool)
	// InvokeStack calls name on the receiver below argc arguments: -argc.
	InvokeStack(name string, argc int)
	InvokeSuper(args ArgumentsCallback, closure BranchCallback)
	InvokeZSuper(closure BranchCallback)
	// InvokeAttrAssign takes [receiver, args array], leaves the last arg: -1.
	InvokeAttrAssign(name string)
	// InvokeAttrAssignValue takes [value, receiver, args array] and
	// assigns value as the final argument, leaving [value]: -2.
	InvokeAttrAssignValue(name string)
	// AttrOpAssign applies recv.attr op= value to the receiver on top: 0.
	AttrOpAssign(attr, operator string, value BranchCallback)
	// ElementOpAssign applies recv[args] op= value to [recv, args]: -1.
	ElementOpAssign(operator string, value BranchCallback)
	// Yield consumes the yielded value when hasValue: 1 or 0.
	Yield(hasValue, multiple bool)

	// control
	// PerformBooleanBranch pops a condition and runs one branch. Both
	// branches must have the same net effect, normally +1.
	PerformBooleanBranch(trueBranch, falseBranch BranchCallback)
	// PerformLogicalAnd keeps a falsy top, else replaces it with longer: 0.
	PerformLogicalAnd(longer BranchCallback)
	// PerformLogicalOr keeps a truthy top, else replaces it with longer: 0.
	PerformLogicalOr(longer BranchCallback)
	// PerformBooleanLoopSafe and PerformBooleanLoopLight loop while the
	// condition is truthy; body values are discarded; the loop leaves nil
	// or the break value: +1.
	PerformBooleanLoopSafe(condition, body BranchCallback, checkFirst bool)
	PerformBooleanLoopLight(condition, body BranchCallback, checkFirst bool)
	// TypeCheckBranch runs typed when the top value has the given native
	// kind, else untyped. The value is not consumed; both branches must
	// have the same effect.
	TypeCheckBranch(kind ValueKind, typed, untyped BranchCallback)
	// LiteralSwitch pops an integer and runs bodies[targets[i]] for the
	// first i with cases[i] equal to it, or defaultBody; each body pushes
	// one: 0. Cases must be sorted and distinct.
	LiteralSwitch(cases []int64, targets []int, bodies []BranchCallback, defaultBody BranchCallback)
	// CaseSplatMatch replaces [subject, array] with whether any element
	// === subject (-1). Without a subject it replaces the array with
	// whether any element is truthy (0).
	CaseSplatMatch(hasSubject bool)

	// jumps: consume the value (where any) and do not fall through
	IssueBreakEvent()
	IssueNextEvent()
	IssueRedoEvent()
	IssueRetryEvent()
	PerformReturn()

	// exceptions
	// PerformRescue runs body (+1). A raised exception is pushed for
	// handler, which must replace it with a value. When body completes
	// normally and elseBody is non-nil, the body value is dropped and
	// elseBody runs unprotected. +1 overall.
	PerformRescue(body, handler, elseBody BranchCallback)
	// RescueMatches tests the exception below the class array on top,
	// replacing the array with a boolean: 0.
	RescueMatches()
	// Rethrow raises the exception on top again.
	Rethrow()
	// PerformEnsure runs body (+1) then ensure (0) on every exit; +1.
	PerformEnsure(body, ensure BranchCallback)
	// PerformSuppressed runs body (+1); if it raises, fallback runs
	// instead (+1).
	PerformSuppressed(body, fallback BranchCallback)

	// definedness probes push a boolean; receiver probes consume it
	IsGlobalDefined(name string)
	IsInstanceVariableDefined(name string)
	IsClassVariableDefined(name string)
	IsConstantDefined(name string)
	IsConstantDefinedFrom(name string)
	IsMethodBound(name string, visibility DefinedVisibility)
	IsBlockGiven()
	IsSuperDefined()
	IsBackRefDefined(kind byte)
	IsNthRefDefined(n int)

	// closures: +1
	CreateNewClosure(spec ClosureSpec)
	CreateNewForLoop(spec ClosureSpec)
	// CreateBeginEndBlock registers (post) or runs once (pre) a block and
	// pushes nil: +1.
	CreateBeginEndBlock(spec ClosureSpec, post bool)

	// definitions push nil or the body value after consuming the operands
	// their ClassSpec or MethodSpec flags announce
	DefineNewMethod(spec MethodSpec)
	DefineClass(spec ClassSpec)
	DefineModule(spec ClassSpec)
	DefineSingletonClass(spec ClassSpec)
	DefineAlias(newName, oldName string)
	GlobalAlias(newName, oldName string)
	Undef(name string)
	// CheckArgGiven pushes whether argument index was passed: +1.
	CheckArgGiven(index int)

	// regexp matches
	// Match matches the regexp on top against $_: 0.
	Match()
	// Match2 and Match3 take [regexp, value]: -1.
	Match2()
	Match3()

	// PollThreadEvents inserts a cooperative interrupt check: 0.
	PollThreadEvents()
}
