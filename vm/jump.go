package vm

import "fmt"

// ---------------------------------------------------------------------------
// JumpError: Non-local control flow
// ---------------------------------------------------------------------------

// JumpKind names a control transfer that unwinds through Go calls.
type JumpKind uint8

const (
	LoopBreak  JumpKind = iota // break out of a safe loop
	LoopNext                   // next iteration of a safe loop
	LoopRedo                   // rerun a safe loop body
	BlockBreak                 // break ending the call a block was passed to
	BlockNext                  // next ending one block invocation
	BlockRedo                  // rerun a block body
	RetryJump                  // retry of a rescue body or iterator call
	ReturnJump                 // return to a home frame
	ThrowJump                  // throw to a matching catch
)

func (k JumpKind) String() string {
	switch k {
	case LoopBreak, BlockBreak:
		return "break"
	case LoopNext, BlockNext:
		return "next"
	case LoopRedo, BlockRedo:
		return "redo"
	case RetryJump:
		return "retry"
	case ReturnJump:
		return "return"
	case ThrowJump:
		return "throw"
	}
	return fmt.Sprintf("JumpKind(%d)", uint8(k))
}

// JumpError carries a non-local jump as a panic value. Each kind is caught
// by exactly one boundary: loops, block invocations, iterator call sites,
// rescue regions, home frames or catch.
type JumpError struct {
	Kind  JumpKind
	Value Value

	// Tag identifies the block a BlockBreak leaves.
	Tag *escapeFlag
	// Target is the frame a ReturnJump returns from.
	Target *Frame
	// ThrowTag is the symbol or object a ThrowJump was thrown with.
	ThrowTag Value
}

func (j *JumpError) Error() string {
	return "unexpected " + j.Kind.String()
}

// ---------------------------------------------------------------------------
// Helpers for catching panics
// ---------------------------------------------------------------------------

// catchJump runs fn and returns the jump it panicked with when match
// accepts it. Other panics propagate.
func catchJump(fn func() Value, match func(*JumpError) bool) (v Value, jump *JumpError) {
	defer func() {
		if r := recover(); r != nil {
			j, ok := r.(*JumpError)
			if !ok || !match(j) {
				panic(r)
			}
			jump = j
		}
	}()
	return fn(), nil
}

// catchRaise runs fn and returns the Ruby exception it raised, if any.
func catchRaise(fn func() Value) (v Value, raised *RaiseException) {
	defer func() {
		if r := recover(); r != nil {
			re, ok := r.(*RaiseException)
			if !ok {
				panic(r)
			}
			raised = re
		}
	}()
	return fn(), nil
}
