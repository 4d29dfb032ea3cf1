package vm

import (
	"bytes"
	"errors"
	"testing"

	"github.com/chazu/garnet/scope"
)

// testRuntime wraps a runtime with captured output and warnings.
type testRuntime struct {
	*Runtime
	t        *testing.T
	out      *bytes.Buffer
	warnings []string
}

func newTestRuntime(t *testing.T) *testRuntime {
	t.Helper()
	tr := &testRuntime{t: t, out: &bytes.Buffer{}}
	tr.Runtime = NewRuntime(Options{
		Stdout:    tr.out,
		Stderr:    &bytes.Buffer{},
		FastCase:  true,
		OnWarning: func(msg string) { tr.warnings = append(tr.warnings, msg) },
	})
	return tr
}

// tc returns the main thread's context.
func (tr *testRuntime) tc() *ThreadContext { return tr.mainThread.tc }

// do runs fn on the main thread inside a top-level frame.
func (tr *testRuntime) do(fn func(tc *ThreadContext) Value) (Value, error) {
	tr.gil.Lock()
	defer tr.gil.Unlock()
	tc := tr.tc()
	return tr.protect(tc, func() Value {
		return tc.withFrame(tr.topFrame(), func() Value { return fn(tc) })
	})
}

// send calls name on recv, failing the test on any exception.
func (tr *testRuntime) send(recv Value, name string, blk *Block, args ...Value) Value {
	tr.t.Helper()
	v, err := tr.sendErr(recv, name, blk, args...)
	if err != nil {
		tr.t.Fatalf("%s: %v", name, err)
	}
	return v
}

// sendErr calls name on recv and returns the exception, if any.
func (tr *testRuntime) sendErr(recv Value, name string, blk *Block, args ...Value) (Value, error) {
	if blk == nil {
		blk = NullBlock
	}
	return tr.do(func(tc *ThreadContext) Value {
		return tc.callMethod(recv, name, args, blk, SendFunctional, nil)
	})
}

// inspect renders v with inspect.
func (tr *testRuntime) inspect(v Value) string {
	tr.t.Helper()
	s, ok := tr.send(v, "inspect", nil).(*String)
	if !ok {
		tr.t.Fatalf("inspect did not return a string")
	}
	return s.S
}

// raised reports the class name of the exception err carries.
func raised(err error) string {
	var re *RaiseException
	if !errors.As(err, &re) {
		return ""
	}
	return re.Exception.class.Name()
}

// collector returns a block that records every yield. Several yielded
// values are recorded as one array.
func collector() (*Block, *[]Value) {
	var got []Value
	blk := NewNativeBlock(func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		got = append(got, packArgs(args))
		return nil
	}, scope.OptionalArity(), NormalBlock)
	return blk, &got
}

// returning returns a block that maps its single argument through fn.
func returning(fn func(v Value) Value) *Block {
	return NewNativeBlock(func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return fn(packArgs(args))
	}, scope.FixedArity(1), NormalBlock)
}

func ints(vs ...int64) *Array {
	a := NewArray()
	for _, v := range vs {
		a.Elems = append(a.Elems, v)
	}
	return a
}
