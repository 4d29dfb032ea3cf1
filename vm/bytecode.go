package vm

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode represents a single bytecode instruction.
type Opcode byte

// Stack Operations
const (
	OpNOP     Opcode = 0x00 // no operation
	OpPOP     Opcode = 0x01 // discard top of stack
	OpDUP     Opcode = 0x02 // duplicate top of stack
	OpDUP2    Opcode = 0x03 // duplicate top two values
	OpSWAP    Opcode = 0x04 // exchange top two values
	OpSQUEEZE Opcode = 0x05 // drop n values below the top (8-bit n)
	OpPOPN    Opcode = 0x06 // discard n values (8-bit n)
)

// Push Constants
const (
	OpPushNil     Opcode = 0x10 // push nil
	OpPushTrue    Opcode = 0x11 // push true
	OpPushFalse   Opcode = 0x12 // push false
	OpPushSelf    Opcode = 0x13 // push self
	OpPushInt8    Opcode = 0x14 // push 8-bit signed integer
	OpPushInt32   Opcode = 0x15 // push 32-bit signed integer
	OpPushLiteral Opcode = 0x16 // push literal from literal pool (16-bit index)
	OpPushFloat   Opcode = 0x17 // push inline float64 (8 bytes)
	OpPushString  Opcode = 0x18 // push a new string from the literal pool (16-bit index)
	OpPushSymbol  Opcode = 0x19 // push symbol (16-bit name)
	OpPushRegexp  Opcode = 0x1A // push regexp literal (16-bit index)
	OpPushBlock   Opcode = 0x1B // push the frame's block as a proc, or nil
	OpPushInt64   Opcode = 0x1C // push inline 64-bit integer
)

// Variable Operations
const (
	OpPushLocal      Opcode = 0x20 // push slot (16-bit index, 8-bit depth)
	OpStoreLocal     Opcode = 0x21 // store slot (16-bit index, 8-bit depth)
	OpPushIvar       Opcode = 0x22 // push instance variable (16-bit name)
	OpStoreIvar      Opcode = 0x23 // store instance variable (16-bit name)
	OpPushGlobal     Opcode = 0x24 // push global (16-bit name)
	OpStoreGlobal    Opcode = 0x25 // store global (16-bit name)
	OpPushCvar       Opcode = 0x26 // push class variable (16-bit name)
	OpStoreCvar      Opcode = 0x27 // store class variable (16-bit name)
	OpDeclareCvar    Opcode = 0x28 // declare class variable in cref (16-bit name)
	OpPushConst      Opcode = 0x29 // lexical constant lookup (16-bit name)
	OpPushConstFrom  Opcode = 0x2A // pop module, push its constant (16-bit name)
	OpPushConstTop   Opcode = 0x2B // constant in Object (16-bit name)
	OpStoreConst     Opcode = 0x2C // define constant in cref (16-bit name)
	OpStoreConstIn   Opcode = 0x2D // [module, value] -> [value] (16-bit name)
	OpStoreConstTop  Opcode = 0x2E // define constant in Object (16-bit name)
	OpPushBackRef    Opcode = 0x2F // push $&, $`, $' or $+ (8-bit kind)
	OpPushNthRef     Opcode = 0x30 // push $n (16-bit n)
)

// Message Sends
const (
	OpSend       Opcode = 0x38 // send (16-bit name, 8-bit argc, 8-bit flags)
	OpSendSuper  Opcode = 0x39 // super (8-bit argc, 8-bit flags)
	OpZSuper     Opcode = 0x3A // argument-forwarding super (8-bit flags)
	OpAttrAssign Opcode = 0x3B // attribute assignment (16-bit name, 8-bit mode)
	OpYield      Opcode = 0x3C // yield to the frame's block (8-bit flags)
)

// Object Creation
const (
	OpMakeArray   Opcode = 0x40 // array from n values (16-bit n)
	OpMakeHash    Opcode = 0x41 // hash from n pairs (16-bit n)
	OpMakeRange   Opcode = 0x42 // range from begin/end (8-bit exclusive)
	OpBuildString Opcode = 0x43 // concatenate to_s of n values (16-bit n)
	OpToSymbol    Opcode = 0x44 // string to symbol
	OpMakeRegexp  Opcode = 0x45 // string to regexp (16-bit literal with options)
	OpSplat       Opcode = 0x46 // convert top for splatting
	OpConcat      Opcode = 0x47 // join two arrays
	OpArrayPush   Opcode = 0x48 // append top to the array below it
	OpSValue      Opcode = 0x49 // unwrap a splat result
	OpToAry       Opcode = 0x4A // convert top for destructuring
	OpArrayAt     Opcode = 0x4B // replace array with element (16-bit index)
	OpArrayRest   Opcode = 0x4C // replace array with its tail (16-bit start)
	OpToBlock     Opcode = 0x4D // convert top into a block argument
)

// Control Flow
const (
	OpJump      Opcode = 0x60 // unconditional jump (16-bit offset)
	OpJumpTrue  Opcode = 0x61 // pop, jump if truthy (16-bit offset)
	OpJumpFalse Opcode = 0x62 // pop, jump if falsy (16-bit offset)
	OpTypeIs    Opcode = 0x63 // push whether top has a native kind (8-bit kind)
	OpSwitch    Opcode = 0x64 // pop integer, jump through table (16-bit literal)
	OpLoopBody  Opcode = 0x65 // run loop body region (16-bit child, 16-bit break offset)
	OpCaseSplat Opcode = 0x66 // match splatted when candidates (8-bit has subject)
)

// Returns and jumps
const (
	OpReturn         Opcode = 0x70 // return top from the body
	OpReturnNonLocal Opcode = 0x71 // return top from the home frame
	OpBreakLoop      Opcode = 0x72 // break out of a safe loop with top
	OpNextLoop       Opcode = 0x73 // continue a safe loop
	OpRedoLoop       Opcode = 0x74 // restart a safe loop body
	OpBreakBlock     Opcode = 0x75 // break out of the block's call with top
	OpNextBlock      Opcode = 0x76 // finish the block with top
	OpRedoBlock      Opcode = 0x77 // restart the block body
	OpRetry          Opcode = 0x78 // restart the enclosing rescue body
	OpJumpError      Opcode = 0x79 // raise LocalJumpError (8-bit kind)
)

// Exception regions
const (
	OpRescue      Opcode = 0x80 // rescue region (16-bit body, 16-bit handler, 16-bit else)
	OpEnsure      Opcode = 0x81 // ensure region (16-bit body, 16-bit ensure)
	OpSuppress    Opcode = 0x82 // suppressed region (16-bit body, 16-bit fallback)
	OpRescueMatch Opcode = 0x83 // [exc, classes] -> [exc, bool]
	OpRethrow     Opcode = 0x84 // raise the exception on top
)

// Definitions
const (
	OpMakeBlock    Opcode = 0x90 // closure over the current scope (16-bit child)
	OpMakeForBlock Opcode = 0x91 // closure sharing the current scope (16-bit child)
	OpBeginEnd     Opcode = 0x92 // BEGIN/END block (16-bit child, 8-bit post)
	OpDefMethod    Opcode = 0x93 // define method (16-bit child, 8-bit singleton)
	OpDefClass     Opcode = 0x94 // class body (16-bit child, 16-bit name, 8-bit flags)
	OpDefModule    Opcode = 0x95 // module body (16-bit child, 16-bit name, 8-bit flags)
	OpDefSClass    Opcode = 0x96 // singleton class body (16-bit child)
	OpAlias        Opcode = 0x97 // method alias (16-bit new, 16-bit old)
	OpGlobalAlias  Opcode = 0x98 // global alias (16-bit new, 16-bit old)
	OpUndef        Opcode = 0x99 // undefine method (16-bit name)
	OpArgGiven     Opcode = 0x9A // push whether argument was passed (16-bit index)
)

// Probes, matching and polling
const (
	OpDefined Opcode = 0xA0 // push definedness (8-bit kind, 16-bit operand)
	OpMatch   Opcode = 0xA1 // match regexp against $_
	OpMatch2  Opcode = 0xA2 // regexp =~ value
	OpMatch3  Opcode = 0xA3 // value =~ regexp
	OpPoll    Opcode = 0xA4 // thread event checkpoint
)

// Send flags.
const (
	SendHasBlock   = 1 << iota // a block argument is on top
	SendFunctional             // private methods allowed
	SendVariable               // bare identifier
	SendIterator               // the block is a literal whose break ends the call
)

// SplatArgc marks a send whose arguments arrive as one array.
const SplatArgc = 0xFF

// Attribute assignment modes.
const (
	AttrArgs      = 0 // [recv, args] -> [last arg]
	AttrValueArgs = 1 // [value, recv, args] -> [value]
	AttrArgsValue = 2 // [recv, args, value] -> [value]
	AttrValue     = 3 // [recv, value] -> [value]
)

// Yield flags.
const (
	YieldHasValue = 1 << iota
	YieldMultiple
)

// Class definition flags.
const (
	ClassHasPath = 1 << iota
	ClassTopLevel
	ClassHasSuper
)

// Definedness probe kinds.
const (
	DefinedGlobal byte = iota
	DefinedIvar
	DefinedCvar
	DefinedConst
	DefinedConstFrom
	DefinedMethodAny
	DefinedMethodPublic
	DefinedBlockGiven
	DefinedSuper
	DefinedBackRef
	DefinedNthRef
)

// Jump error kinds raised by OpJumpError.
const (
	JumpErrorBreak byte = iota
	JumpErrorNext
	JumpErrorRedo
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name         string // human-readable name
	OperandBytes int    // number of operand bytes
	StackEffect  int    // net effect on stack (VariableEffect = operand dependent)
}

// VariableEffect marks opcodes whose stack effect depends on operands.
const VariableEffect = math.MinInt32

// opcodeTable maps opcodes to their metadata.
var opcodeTable = map[Opcode]OpcodeInfo{
	// Stack operations
	OpNOP:     {"NOP", 0, 0},
	OpPOP:     {"POP", 0, -1},
	OpDUP:     {"DUP", 0, 1},
	OpDUP2:    {"DUP2", 0, 2},
	OpSWAP:    {"SWAP", 0, 0},
	OpSQUEEZE: {"SQUEEZE", 1, VariableEffect},
	OpPOPN:    {"POPN", 1, VariableEffect},

	// Push constants
	OpPushNil:     {"PUSH_NIL", 0, 1},
	OpPushTrue:    {"PUSH_TRUE", 0, 1},
	OpPushFalse:   {"PUSH_FALSE", 0, 1},
	OpPushSelf:    {"PUSH_SELF", 0, 1},
	OpPushInt8:    {"PUSH_INT8", 1, 1},
	OpPushInt32:   {"PUSH_INT32", 4, 1},
	OpPushInt64:   {"PUSH_INT64", 8, 1},
	OpPushLiteral: {"PUSH_LITERAL", 2, 1},
	OpPushFloat:   {"PUSH_FLOAT", 8, 1},
	OpPushString:  {"PUSH_STRING", 2, 1},
	OpPushSymbol:  {"PUSH_SYMBOL", 2, 1},
	OpPushRegexp:  {"PUSH_REGEXP", 2, 1},
	OpPushBlock:   {"PUSH_BLOCK", 0, 1},

	// Variables
	OpPushLocal:     {"PUSH_LOCAL", 3, 1},
	OpStoreLocal:    {"STORE_LOCAL", 3, 0},
	OpPushIvar:      {"PUSH_IVAR", 2, 1},
	OpStoreIvar:     {"STORE_IVAR", 2, 0},
	OpPushGlobal:    {"PUSH_GLOBAL", 2, 1},
	OpStoreGlobal:   {"STORE_GLOBAL", 2, 0},
	OpPushCvar:      {"PUSH_CVAR", 2, 1},
	OpStoreCvar:     {"STORE_CVAR", 2, 0},
	OpDeclareCvar:   {"DECLARE_CVAR", 2, 0},
	OpPushConst:     {"PUSH_CONST", 2, 1},
	OpPushConstFrom: {"PUSH_CONST_FROM", 2, 0},
	OpPushConstTop:  {"PUSH_CONST_TOP", 2, 1},
	OpStoreConst:    {"STORE_CONST", 2, 0},
	OpStoreConstIn:  {"STORE_CONST_IN", 2, -1},
	OpStoreConstTop: {"STORE_CONST_TOP", 2, 0},
	OpPushBackRef:   {"PUSH_BACKREF", 1, 1},
	OpPushNthRef:    {"PUSH_NTHREF", 2, 1},

	// Sends
	OpSend:       {"SEND", 4, VariableEffect},
	OpSendSuper:  {"SEND_SUPER", 2, VariableEffect},
	OpZSuper:     {"ZSUPER", 1, VariableEffect},
	OpAttrAssign: {"ATTR_ASSIGN", 3, VariableEffect},
	OpYield:      {"YIELD", 1, VariableEffect},

	// Object creation
	OpMakeArray:   {"MAKE_ARRAY", 2, VariableEffect},
	OpMakeHash:    {"MAKE_HASH", 2, VariableEffect},
	OpMakeRange:   {"MAKE_RANGE", 1, -1},
	OpBuildString: {"BUILD_STRING", 2, VariableEffect},
	OpToSymbol:    {"TO_SYMBOL", 0, 0},
	OpMakeRegexp:  {"MAKE_REGEXP", 2, 0},
	OpSplat:       {"SPLAT", 0, 0},
	OpConcat:      {"CONCAT", 0, -1},
	OpArrayPush:   {"ARRAY_PUSH", 0, -1},
	OpSValue:      {"SVALUE", 0, 0},
	OpToAry:       {"TO_ARY", 0, 0},
	OpArrayAt:     {"ARRAY_AT", 2, 0},
	OpArrayRest:   {"ARRAY_REST", 2, 0},
	OpToBlock:     {"TO_BLOCK", 0, 0},

	// Control flow
	OpJump:      {"JUMP", 2, 0},
	OpJumpTrue:  {"JUMP_TRUE", 2, -1},
	OpJumpFalse: {"JUMP_FALSE", 2, -1},
	OpTypeIs:    {"TYPE_IS", 1, 1},
	OpSwitch:    {"SWITCH", 2, -1},
	OpLoopBody:  {"LOOP_BODY", 4, 0},
	OpCaseSplat: {"CASE_SPLAT", 1, VariableEffect},

	// Returns and jumps
	OpReturn:         {"RETURN", 0, -1},
	OpReturnNonLocal: {"RETURN_NONLOCAL", 0, -1},
	OpBreakLoop:      {"BREAK_LOOP", 0, -1},
	OpNextLoop:       {"NEXT_LOOP", 0, -1},
	OpRedoLoop:       {"REDO_LOOP", 0, 0},
	OpBreakBlock:     {"BREAK_BLOCK", 0, -1},
	OpNextBlock:      {"NEXT_BLOCK", 0, -1},
	OpRedoBlock:      {"REDO_BLOCK", 0, 0},
	OpRetry:          {"RETRY", 0, 0},
	OpJumpError:      {"JUMP_ERROR", 1, 0},

	// Exception regions
	OpRescue:      {"RESCUE", 6, 1},
	OpEnsure:      {"ENSURE", 4, 1},
	OpSuppress:    {"SUPPRESS", 4, 1},
	OpRescueMatch: {"RESCUE_MATCH", 0, 0},
	OpRethrow:     {"RETHROW", 0, -1},

	// Definitions
	OpMakeBlock:    {"MAKE_BLOCK", 2, 1},
	OpMakeForBlock: {"MAKE_FOR_BLOCK", 2, 1},
	OpBeginEnd:     {"BEGIN_END", 3, 1},
	OpDefMethod:    {"DEF_METHOD", 3, VariableEffect},
	OpDefClass:     {"DEF_CLASS", 5, VariableEffect},
	OpDefModule:    {"DEF_MODULE", 5, VariableEffect},
	OpDefSClass:    {"DEF_SCLASS", 2, 0},
	OpAlias:        {"ALIAS", 4, 1},
	OpGlobalAlias:  {"GLOBAL_ALIAS", 4, 1},
	OpUndef:        {"UNDEF", 2, 1},
	OpArgGiven:     {"ARG_GIVEN", 2, 1},

	// Probes, matching and polling
	OpDefined: {"DEFINED", 3, VariableEffect},
	OpMatch:   {"MATCH", 0, 0},
	OpMatch2:  {"MATCH2", 0, -1},
	OpMatch3:  {"MATCH3", 0, -1},
	OpPoll:    {"POLL", 0, 0},
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", byte(op)), OperandBytes: 0, StackEffect: 0}
}

// Name returns the human-readable name for an opcode.
func (op Opcode) Name() string {
	return op.Info().Name
}

// OperandBytes returns the number of operand bytes for an opcode.
func (op Opcode) OperandBytes() int {
	return op.Info().OperandBytes
}

// String implements the Stringer interface.
func (op Opcode) String() string {
	return op.Name()
}

// ---------------------------------------------------------------------------
// BytecodeBuilder: Helper for constructing bytecode
// ---------------------------------------------------------------------------

// BytecodeBuilder helps construct bytecode sequences. It tracks the static
// stack depth; code after an unconditional transfer is unreachable until a
// label is marked.
type BytecodeBuilder struct {
	bytes       []byte
	depth       int
	maxDepth    int
	unreachable bool
}

// NewBytecodeBuilder creates a new bytecode builder.
func NewBytecodeBuilder() *BytecodeBuilder {
	return &BytecodeBuilder{
		bytes: make([]byte, 0, 64),
	}
}

// Bytes returns the constructed bytecode.
func (b *BytecodeBuilder) Bytes() []byte {
	return b.bytes
}

// Len returns the current length.
func (b *BytecodeBuilder) Len() int {
	return len(b.bytes)
}

// Depth returns the static stack depth at the current position.
func (b *BytecodeBuilder) Depth() int {
	return b.depth
}

// MaxDepth returns the deepest stack seen so far.
func (b *BytecodeBuilder) MaxDepth() int {
	return b.maxDepth
}

// Reachable reports whether control can reach the current position.
func (b *BytecodeBuilder) Reachable() bool {
	return !b.unreachable
}

// SetDepth sets the static depth, e.g. for regions entered with values
// already on the stack.
func (b *BytecodeBuilder) SetDepth(d int) {
	b.depth = d
	if d > b.maxDepth {
		b.maxDepth = d
	}
}

// Adjust applies a stack effect.
func (b *BytecodeBuilder) Adjust(effect int) {
	b.depth += effect
	if b.depth < 0 {
		panic(fmt.Sprintf("stack underflow at %d", len(b.bytes)))
	}
	if b.depth > b.maxDepth {
		b.maxDepth = b.depth
	}
}

// Terminate marks the current position unreachable.
func (b *BytecodeBuilder) Terminate() {
	b.unreachable = true
}

// Emit appends an opcode with no operands.
func (b *BytecodeBuilder) Emit(op Opcode) {
	b.bytes = append(b.bytes, byte(op))
}

// EmitRaw appends a raw byte to the bytecode.
func (b *BytecodeBuilder) EmitRaw(data byte) {
	b.bytes = append(b.bytes, data)
}

// EmitRawUint16 appends a raw 16-bit operand (little-endian).
func (b *BytecodeBuilder) EmitRawUint16(v uint16) {
	b.bytes = append(b.bytes, byte(v), byte(v>>8))
}

// EmitByte appends an opcode with a single byte operand.
func (b *BytecodeBuilder) EmitByte(op Opcode, operand byte) {
	b.bytes = append(b.bytes, byte(op), operand)
}

// EmitInt8 appends an opcode with a signed 8-bit operand.
func (b *BytecodeBuilder) EmitInt8(op Opcode, operand int8) {
	b.bytes = append(b.bytes, byte(op), byte(operand))
}

// EmitUint16 appends an opcode with a 16-bit operand (little-endian).
func (b *BytecodeBuilder) EmitUint16(op Opcode, operand uint16) {
	b.bytes = append(b.bytes, byte(op), byte(operand), byte(operand>>8))
}

// EmitInt32 appends an opcode with a 32-bit operand (little-endian).
func (b *BytecodeBuilder) EmitInt32(op Opcode, operand int32) {
	b.bytes = append(b.bytes, byte(op))
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(operand))
	b.bytes = append(b.bytes, buf[:]...)
}

// EmitInt64 appends an opcode with a 64-bit operand (little-endian).
func (b *BytecodeBuilder) EmitInt64(op Opcode, operand int64) {
	b.bytes = append(b.bytes, byte(op))
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(operand))
	b.bytes = append(b.bytes, buf[:]...)
}

// EmitFloat64 appends an opcode with a 64-bit float operand.
func (b *BytecodeBuilder) EmitFloat64(op Opcode, operand float64) {
	b.bytes = append(b.bytes, byte(op))
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(operand))
	b.bytes = append(b.bytes, buf[:]...)
}

// EmitSend appends a SEND instruction.
func (b *BytecodeBuilder) EmitSend(name uint16, argc uint8, flags uint8) {
	b.bytes = append(b.bytes, byte(OpSend), byte(name), byte(name>>8), argc, flags)
}

// ---------------------------------------------------------------------------
// Label management for jumps
// ---------------------------------------------------------------------------

// Label represents a jump target. It remembers the stack depth every
// transfer to it arrives with.
type Label struct {
	resolved bool
	position int   // position to patch (if unresolved) or target (if resolved)
	refs     []int // positions that reference this label
	depth    int
	hasDepth bool
}

// NewLabel creates an unresolved label.
func (b *BytecodeBuilder) NewLabel() *Label {
	return &Label{resolved: false, refs: make([]int, 0, 2)}
}

// Position returns the resolved target.
func (l *Label) Position() int {
	return l.position
}

// arrive records a transfer to label at depth d.
func (b *BytecodeBuilder) arrive(label *Label, d int) {
	if !label.hasDepth {
		label.depth = d
		label.hasDepth = true
		return
	}
	if label.depth != d {
		panic(fmt.Sprintf("stack depth mismatch at label: %d vs %d", label.depth, d))
	}
}

// Mark resolves a label to the current position. After unreachable code
// the depth is taken from the label.
func (b *BytecodeBuilder) Mark(label *Label) {
	if label.resolved {
		panic("label already resolved")
	}
	if b.unreachable {
		if label.hasDepth {
			b.depth = label.depth
		}
		b.unreachable = false
	}
	b.arrive(label, b.depth)
	label.resolved = true
	label.position = len(b.bytes)

	// Patch all forward references
	for _, ref := range label.refs {
		offset := label.position - (ref + 2) // offset from after the operand
		b.bytes[ref] = byte(offset)
		b.bytes[ref+1] = byte(offset >> 8)
	}
	label.refs = nil
}

// EmitLabelRef appends a 16-bit offset to label, which the current stack
// depth plus extra arrives at.
func (b *BytecodeBuilder) EmitLabelRef(label *Label, extra int) {
	b.arrive(label, b.depth+extra)
	if label.resolved {
		offset := label.position - (len(b.bytes) + 2)
		b.bytes = append(b.bytes, byte(offset), byte(offset>>8))
		return
	}
	label.refs = append(label.refs, len(b.bytes))
	b.bytes = append(b.bytes, 0, 0) // placeholder
}

// EmitJump emits a jump instruction with a label. Conditional jumps pop
// their operand first.
func (b *BytecodeBuilder) EmitJump(op Opcode, label *Label) {
	b.bytes = append(b.bytes, byte(op))
	if op != OpJump {
		b.Adjust(-1)
	}
	b.EmitLabelRef(label, 0)
	if op == OpJump {
		b.Terminate()
	}
}

// ---------------------------------------------------------------------------
// Bytecode reader for disassembly
// ---------------------------------------------------------------------------

// BytecodeReader reads bytecode for interpretation or disassembly.
type BytecodeReader struct {
	bytes []byte
	pos   int
}

// NewBytecodeReader creates a reader for bytecode.
func NewBytecodeReader(bc []byte) *BytecodeReader {
	return &BytecodeReader{bytes: bc, pos: 0}
}

// Position returns the current read position.
func (r *BytecodeReader) Position() int {
	return r.pos
}

// HasMore returns true if there are more bytes to read.
func (r *BytecodeReader) HasMore() bool {
	return r.pos < len(r.bytes)
}

// ReadOpcode reads and returns the next opcode.
func (r *BytecodeReader) ReadOpcode() Opcode {
	if r.pos >= len(r.bytes) {
		panic("bytecode underflow")
	}
	op := Opcode(r.bytes[r.pos])
	r.pos++
	return op
}

// ReadUint8 reads a single byte operand.
func (r *BytecodeReader) ReadUint8() byte {
	if r.pos >= len(r.bytes) {
		panic("bytecode underflow")
	}
	b := r.bytes[r.pos]
	r.pos++
	return b
}

// ReadInt8 reads a signed 8-bit operand.
func (r *BytecodeReader) ReadInt8() int8 {
	return int8(r.ReadUint8())
}

// ReadUint16 reads a 16-bit operand (little-endian).
func (r *BytecodeReader) ReadUint16() uint16 {
	if r.pos+2 > len(r.bytes) {
		panic("bytecode underflow")
	}
	v := binary.LittleEndian.Uint16(r.bytes[r.pos:])
	r.pos += 2
	return v
}

// ReadInt16 reads a signed 16-bit operand (little-endian).
func (r *BytecodeReader) ReadInt16() int16 {
	return int16(r.ReadUint16())
}

// ReadInt32 reads a 32-bit operand (little-endian).
func (r *BytecodeReader) ReadInt32() int32 {
	if r.pos+4 > len(r.bytes) {
		panic("bytecode underflow")
	}
	v := binary.LittleEndian.Uint32(r.bytes[r.pos:])
	r.pos += 4
	return int32(v)
}

// ReadInt64 reads a 64-bit operand (little-endian).
func (r *BytecodeReader) ReadInt64() int64 {
	if r.pos+8 > len(r.bytes) {
		panic("bytecode underflow")
	}
	v := binary.LittleEndian.Uint64(r.bytes[r.pos:])
	r.pos += 8
	return int64(v)
}

// ReadFloat64 reads a 64-bit float operand.
func (r *BytecodeReader) ReadFloat64() float64 {
	return math.Float64frombits(uint64(r.ReadInt64()))
}

// Skip advances the position by n bytes.
func (r *BytecodeReader) Skip(n int) {
	r.pos += n
}

// Seek sets the read position.
func (r *BytecodeReader) Seek(pos int) {
	r.pos = pos
}

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

// DisassembleInstruction disassembles a single instruction at the reader's
// position. Names resolve 16-bit name operands when non-nil.
func DisassembleInstruction(r *BytecodeReader, names []string) string {
	pos := r.Position()
	op := r.ReadOpcode()
	info := op.Info()
	name := func(i uint16) string {
		if int(i) < len(names) {
			return names[i]
		}
		return fmt.Sprintf("#%d", i)
	}

	switch op {
	case OpPushInt8:
		return fmt.Sprintf("%04d  %s %d", pos, info.Name, r.ReadInt8())

	case OpSQUEEZE, OpPOPN, OpPushBackRef, OpMakeRange, OpTypeIs, OpCaseSplat,
		OpJumpError, OpSendSuper, OpZSuper, OpYield:
		args := make([]string, info.OperandBytes)
		for i := range args {
			args[i] = fmt.Sprint(r.ReadUint8())
		}
		return fmt.Sprintf("%04d  %s %s", pos, info.Name, strings.Join(args, " "))

	case OpPushIvar, OpStoreIvar, OpPushGlobal, OpStoreGlobal, OpPushCvar, OpStoreCvar,
		OpDeclareCvar, OpPushConst, OpPushConstFrom, OpPushConstTop, OpStoreConst,
		OpStoreConstIn, OpStoreConstTop, OpPushSymbol, OpUndef:
		return fmt.Sprintf("%04d  %s %s", pos, info.Name, name(r.ReadUint16()))

	case OpPushLiteral, OpPushString, OpPushRegexp, OpPushNthRef, OpMakeArray, OpMakeHash,
		OpBuildString, OpMakeRegexp, OpArrayAt, OpArrayRest, OpSwitch, OpMakeBlock,
		OpMakeForBlock, OpDefSClass, OpArgGiven:
		return fmt.Sprintf("%04d  %s %d", pos, info.Name, r.ReadUint16())

	case OpPushLocal, OpStoreLocal:
		idx := r.ReadUint16()
		depth := r.ReadUint8()
		return fmt.Sprintf("%04d  %s %d@%d", pos, info.Name, idx, depth)

	case OpJump, OpJumpTrue, OpJumpFalse:
		offset := r.ReadInt16()
		target := r.Position() + int(offset)
		return fmt.Sprintf("%04d  %s %d (-> %04d)", pos, info.Name, offset, target)

	case OpLoopBody:
		child := r.ReadUint16()
		offset := r.ReadInt16()
		return fmt.Sprintf("%04d  %s body=%d break=%04d", pos, info.Name, child, r.Position()+int(offset))

	case OpPushInt32:
		return fmt.Sprintf("%04d  %s %d", pos, info.Name, r.ReadInt32())

	case OpPushInt64:
		return fmt.Sprintf("%04d  %s %d", pos, info.Name, r.ReadInt64())

	case OpPushFloat:
		return fmt.Sprintf("%04d  %s %g", pos, info.Name, r.ReadFloat64())

	case OpSend:
		sel := r.ReadUint16()
		argc := r.ReadUint8()
		flags := r.ReadUint8()
		return fmt.Sprintf("%04d  %s %s argc=%d flags=%d", pos, info.Name, name(sel), argc, flags)

	case OpAttrAssign:
		sel := r.ReadUint16()
		mode := r.ReadUint8()
		return fmt.Sprintf("%04d  %s %s mode=%d", pos, info.Name, name(sel), mode)

	case OpRescue:
		body, handler, elseBody := r.ReadUint16(), r.ReadUint16(), r.ReadUint16()
		return fmt.Sprintf("%04d  %s body=%d handler=%d else=%d", pos, info.Name, body, handler, int16(elseBody))

	case OpEnsure, OpSuppress:
		a, b := r.ReadUint16(), r.ReadUint16()
		return fmt.Sprintf("%04d  %s %d %d", pos, info.Name, a, b)

	case OpBeginEnd, OpDefMethod:
		child := r.ReadUint16()
		flag := r.ReadUint8()
		return fmt.Sprintf("%04d  %s %d %d", pos, info.Name, child, flag)

	case OpDefClass, OpDefModule:
		child := r.ReadUint16()
		n := r.ReadUint16()
		flags := r.ReadUint8()
		return fmt.Sprintf("%04d  %s %s body=%d flags=%d", pos, info.Name, name(n), child, flags)

	case OpAlias, OpGlobalAlias:
		newName, oldName := r.ReadUint16(), r.ReadUint16()
		return fmt.Sprintf("%04d  %s %s %s", pos, info.Name, name(newName), name(oldName))

	case OpDefined:
		kind := r.ReadUint8()
		operand := r.ReadUint16()
		return fmt.Sprintf("%04d  %s kind=%d %s", pos, info.Name, kind, name(operand))

	default:
		r.Skip(info.OperandBytes)
		return fmt.Sprintf("%04d  %s", pos, info.Name)
	}
}

// Disassemble returns a full disassembly of bytecode.
func Disassemble(bc []byte, names []string) string {
	r := NewBytecodeReader(bc)
	var sb strings.Builder
	for r.HasMore() {
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(DisassembleInstruction(r, names))
	}
	return sb.String()
}
