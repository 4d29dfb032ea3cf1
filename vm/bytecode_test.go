package vm

import (
	"strings"
	"testing"
)

func TestOpcodeInfo(t *testing.T) {
	tests := []struct {
		op      Opcode
		name    string
		operand int
		effect  int
	}{
		{OpPOP, "POP", 0, -1},
		{OpDUP, "DUP", 0, 1},
		{OpPushInt8, "PUSH_INT8", 1, 1},
		{OpPushInt64, "PUSH_INT64", 8, 1},
		{OpPushFloat, "PUSH_FLOAT", 8, 1},
		{OpSend, "SEND", 4, VariableEffect},
		{OpJump, "JUMP", 2, 0},
		{OpJumpTrue, "JUMP_TRUE", 2, -1},
		{OpSwitch, "SWITCH", 2, -1},
	}
	for _, tt := range tests {
		info := tt.op.Info()
		if info.Name != tt.name || info.OperandBytes != tt.operand || info.StackEffect != tt.effect {
			t.Errorf("%02X: Info() = %+v, want {%s %d %d}", byte(tt.op), info, tt.name, tt.operand, tt.effect)
		}
	}
	if got := Opcode(0xFF).Name(); got != "UNKNOWN_FF" {
		t.Errorf("unknown opcode name = %q", got)
	}
}

func TestBytecodeBuilderOperands(t *testing.T) {
	b := NewBytecodeBuilder()
	b.EmitInt8(OpPushInt8, -3)
	b.EmitInt32(OpPushInt32, -70000)
	b.EmitInt64(OpPushInt64, 1<<40)
	b.EmitFloat64(OpPushFloat, 2.5)
	b.EmitSend(7, 2, 1)

	r := NewBytecodeReader(b.Bytes())
	if op := r.ReadOpcode(); op != OpPushInt8 || r.ReadInt8() != -3 {
		t.Error("int8 operand did not read back")
	}
	if op := r.ReadOpcode(); op != OpPushInt32 || r.ReadInt32() != -70000 {
		t.Error("int32 operand did not read back")
	}
	if op := r.ReadOpcode(); op != OpPushInt64 || r.ReadInt64() != 1<<40 {
		t.Error("int64 operand did not read back")
	}
	if op := r.ReadOpcode(); op != OpPushFloat || r.ReadFloat64() != 2.5 {
		t.Error("float operand did not read back")
	}
	if op := r.ReadOpcode(); op != OpSend || r.ReadUint16() != 7 || r.ReadUint8() != 2 || r.ReadUint8() != 1 {
		t.Error("send operands did not read back")
	}
	if r.HasMore() {
		t.Errorf("%d bytes left over", len(b.Bytes())-r.Position())
	}
}

func TestBytecodeReaderUnderflow(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("reading past the end should panic")
		}
	}()
	r := NewBytecodeReader([]byte{byte(OpPushInt32), 1})
	r.ReadOpcode()
	r.ReadInt32()
}

// ---------------------------------------------------------------------------
// Labels and stack depth
// ---------------------------------------------------------------------------

func TestLabelForwardAndBackward(t *testing.T) {
	b := NewBytecodeBuilder()
	top := b.NewLabel()
	b.Mark(top)
	b.Emit(OpPushTrue)
	b.Adjust(1)
	done := b.NewLabel()
	b.EmitJump(OpJumpFalse, done)
	b.EmitJump(OpJump, top)
	if b.Reachable() {
		t.Error("code after an unconditional jump should be unreachable")
	}
	b.Mark(done)
	b.Emit(OpPushNil)
	b.Adjust(1)

	if !b.Reachable() || b.Depth() != 1 || b.MaxDepth() != 1 {
		t.Errorf("reachable = %v, depth = %d, max = %d", b.Reachable(), b.Depth(), b.MaxDepth())
	}

	r := NewBytecodeReader(b.Bytes())
	r.Seek(1)
	r.ReadOpcode()
	if off := r.ReadInt16(); r.Position()+int(off) != done.Position() {
		t.Errorf("forward offset lands at %d, want %d", r.Position()+int(off), done.Position())
	}
	r.ReadOpcode()
	if off := r.ReadInt16(); r.Position()+int(off) != top.Position() {
		t.Errorf("backward offset lands at %d, want %d", r.Position()+int(off), top.Position())
	}
}

func TestLabelDepthMismatchPanics(t *testing.T) {
	b := NewBytecodeBuilder()
	l := b.NewLabel()
	b.Emit(OpPushTrue)
	b.Adjust(1)
	b.Emit(OpDUP)
	b.Adjust(1)
	b.EmitJump(OpJumpTrue, l) // arrives with one value

	defer func() {
		if recover() == nil {
			t.Error("marking a label at a different depth should panic")
		}
	}()
	b.Mark(l)
	b.Adjust(1)
	b.EmitJump(OpJump, l)
}

func TestLabelDoubleMark(t *testing.T) {
	b := NewBytecodeBuilder()
	l := b.NewLabel()
	b.Mark(l)
	defer func() {
		if recover() == nil {
			t.Error("marking a label twice should panic")
		}
	}()
	b.Mark(l)
}

func TestAdjustUnderflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("popping an empty stack should panic")
		}
	}()
	NewBytecodeBuilder().Adjust(-1)
}

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

func TestDisassemble(t *testing.T) {
	b := NewBytecodeBuilder()
	b.Emit(OpPushSelf)
	b.EmitInt8(OpPushInt8, 5)
	b.EmitSend(0, 1, 0)
	b.EmitUint16(OpPushSymbol, 1)
	b.Emit(OpReturn)

	got := Disassemble(b.Bytes(), []string{"puts", "done"})
	want := strings.Join([]string{
		"0000  PUSH_SELF",
		"0001  PUSH_INT8 5",
		"0003  SEND puts argc=1 flags=0",
		"0008  PUSH_SYMBOL done",
		"0011  RETURN",
	}, "\n")
	if got != want {
		t.Errorf("Disassemble =\n%s\nwant\n%s", got, want)
	}
	if got := Disassemble([]byte{byte(OpPushSymbol), 9, 0}, nil); got != "0000  PUSH_SYMBOL #9" {
		t.Errorf("unresolved name = %q", got)
	}
}
