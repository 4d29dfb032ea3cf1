package vm

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestRaiseForms(t *testing.T) {
	tr := newTestRuntime(t)
	main := tr.Main()

	tests := []struct {
		name  string
		args  []Value
		class string
		msg   string
	}{
		{"string", []Value{NewString("boom")}, "RuntimeError", "boom"},
		{"class", []Value{tr.ArgumentError}, "ArgumentError", "ArgumentError"},
		{"class and message", []Value{tr.ArgumentError, NewString("bad")}, "ArgumentError", "bad"},
		{"not an exception", []Value{int64(3)}, "TypeError", "exception class/object expected"},
	}
	for _, tt := range tests {
		_, err := tr.sendErr(main, "raise", nil, tt.args...)
		var re *RaiseException
		if !errors.As(err, &re) {
			t.Errorf("%s: err = %v, want a raised exception", tt.name, err)
			continue
		}
		if got := re.Exception.class.Name(); got != tt.class {
			t.Errorf("%s: class = %s, want %s", tt.name, got, tt.class)
		}
		if got := re.Exception.MessageString(); got != tt.msg {
			t.Errorf("%s: message = %q, want %q", tt.name, got, tt.msg)
		}
	}
}

func TestExceptionObject(t *testing.T) {
	tr := newTestRuntime(t)
	e := tr.send(tr.ArgumentError, "new", nil, NewString("bad"))
	if got := tr.inspect(e); got != "#<ArgumentError: bad>" {
		t.Errorf("inspect = %s", got)
	}
	if got := tr.inspect(tr.send(tr.ArgumentError, "new", nil)); got != "ArgumentError" {
		t.Errorf("inspect without a message = %s", got)
	}
	if tr.send(e, "exception", nil) != e {
		t.Error("exception with no argument should return the receiver")
	}
	c := tr.send(e, "exception", nil, NewString("other"))
	if c == e || str(tr, tr.send(c, "message", nil)) != "other" {
		t.Error("exception(msg) should return a copy with the new message")
	}
	if str(tr, tr.send(e, "message", nil)) != "bad" {
		t.Error("exception(msg) changed the original")
	}

	tr.send(e, "set_backtrace", nil, NewString("x.rb:1"))
	if got := tr.inspect(tr.send(e, "backtrace", nil)); got != `["x.rb:1"]` {
		t.Errorf("backtrace = %s", got)
	}
	if _, err := tr.sendErr(e, "set_backtrace", nil, int64(1)); raised(err) != "TypeError" {
		t.Errorf("set_backtrace(1): err = %v, want TypeError", err)
	}
}

func TestFormatException(t *testing.T) {
	tr := newTestRuntime(t)
	_, err := tr.sendErr(tr.Main(), "raise", nil, NewString("boom"))
	var re *RaiseException
	if !errors.As(err, &re) {
		t.Fatalf("err = %v", err)
	}
	if got := FormatException(re); !strings.Contains(got, "boom (RuntimeError)") {
		t.Errorf("FormatException = %q", got)
	}
}

func TestStandardErrorHierarchy(t *testing.T) {
	tr := newTestRuntime(t)
	for _, c := range []*Class{tr.ArgumentError, tr.TypeError, tr.ThreadError, tr.IOError, tr.RegexpError} {
		if tr.send(c, "<", nil, tr.StandardError) != true {
			t.Errorf("%s should descend from StandardError", c.Name())
		}
	}
	if _, err := tr.sendErr(int64(1), "/", nil, int64(0)); raised(err) != "ZeroDivisionError" {
		t.Errorf("1 / 0: err = %v, want ZeroDivisionError", err)
	}
}

func TestRaisedMessagesAreVerbatim(t *testing.T) {
	tr := newTestRuntime(t)
	message := func(err error) string {
		var re *RaiseException
		if !errors.As(err, &re) {
			return ""
		}
		return re.Exception.MessageString()
	}

	_, err := tr.do(func(tc *ThreadContext) Value {
		tc.localJumpError("100% %d off", "noreason", nil)
		return nil
	})
	if raised(err) != "LocalJumpError" || message(err) != "100% %d off" {
		t.Errorf("localJumpError: err = %v, want LocalJumpError with the message unchanged", err)
	}

	tests := []struct {
		recv Value
		name string
		args []Value
		msg  string
	}{
		{math.NaN(), "to_i", nil, "NaN"},
		{math.Inf(-1), "floor", nil, "-Infinity"},
		{NewArray(int64(1)), "at", []Value{math.Inf(1)}, "Infinity"},
	}
	for _, tt := range tests {
		_, err := tr.sendErr(tt.recv, tt.name, nil, tt.args...)
		if raised(err) != "FloatDomainError" || message(err) != tt.msg {
			t.Errorf("%s: err = %v, want FloatDomainError %q", tt.name, err, tt.msg)
		}
	}
}
