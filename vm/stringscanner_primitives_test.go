package vm

import (
	"testing"
)

func TestStringScannerWalk(t *testing.T) {
	tr := newTestRuntime(t)
	ss := tr.send(tr.StringScannerClass, "new", nil, NewString("test string"))
	word, space := tr.regexp(`\w+`), tr.regexp(`\s+`)

	steps := []struct {
		meth string
		arg  Value
		want string
	}{
		{"scan", word, `"test"`},
		{"scan", word, "nil"},
		{"check", space, `" "`},
		{"scan", space, `" "`},
		{"scan_until", tr.regexp("r"), `"str"`},
		{"skip", word, "3"},
	}
	for _, s := range steps {
		if got := tr.inspect(tr.send(ss, s.meth, nil, s.arg)); got != s.want {
			t.Errorf("%s(%s) = %s, want %s", s.meth, tr.inspect(s.arg), got, s.want)
		}
	}
	if tr.send(ss, "eos?", nil) != true {
		t.Error("eos? should be true after consuming everything")
	}
	if got := tr.inspect(ss); got != "#<StringScanner fin>" {
		t.Errorf("inspect at end = %s", got)
	}
}

func TestStringScannerMatchState(t *testing.T) {
	tr := newTestRuntime(t)
	ss := tr.send(tr.StringScannerClass, "new", nil, NewString("Fri Dec 12 1975"))
	tr.send(ss, "scan", nil, tr.regexp(`(\w+) (\w+) (\d+) `))

	if got := str(tr, tr.send(ss, "matched", nil)); got != "Fri Dec 12 " {
		t.Errorf("matched = %q", got)
	}
	for i, want := range []string{"Fri Dec 12 ", "Fri", "Dec", "12"} {
		if got := str(tr, tr.send(ss, "[]", nil, int64(i))); got != want {
			t.Errorf("[%d] = %q, want %q", i, got, want)
		}
	}
	if v := tr.send(ss, "[]", nil, int64(4)); v != nil {
		t.Errorf("[4] = %v, want nil", v)
	}
	if got := str(tr, tr.send(ss, "rest", nil)); got != "1975" {
		t.Errorf("rest = %q", got)
	}
	if got := str(tr, tr.send(ss, "post_match", nil)); got != "1975" {
		t.Errorf("post_match = %q", got)
	}
	if v := tr.send(ss, "pos", nil); v != int64(11) {
		t.Errorf("pos = %v, want 11", v)
	}
	if got := tr.inspect(ss); got != `#<StringScanner 11/15 "...c 12 " @ "1975">` {
		t.Errorf("inspect = %s", got)
	}

	tr.send(ss, "unscan", nil)
	if v := tr.send(ss, "pos", nil); v != int64(0) {
		t.Errorf("pos after unscan = %v, want 0", v)
	}
	if _, err := tr.sendErr(ss, "unscan", nil); raised(err) != "StandardError" {
		t.Errorf("second unscan: err = %v, want StandardError", err)
	}
}

func TestStringScannerPointer(t *testing.T) {
	tr := newTestRuntime(t)
	ss := tr.send(tr.StringScannerClass, "new", nil, NewString("ab\ncd"))
	if got := str(tr, tr.send(ss, "getch", nil)); got != "a" {
		t.Errorf("getch = %q", got)
	}
	if got := str(tr, tr.send(ss, "peek", nil, int64(10))); got != "b\ncd" {
		t.Errorf("peek = %q", got)
	}
	tr.send(ss, "pos=", nil, int64(3))
	if tr.send(ss, "bol?", nil) != true {
		t.Error("bol? after a newline should be true")
	}
	tr.send(ss, "pos=", nil, int64(-1))
	if got := str(tr, tr.send(ss, "rest", nil)); got != "d" {
		t.Errorf("rest after pos=-1 = %q", got)
	}
	if _, err := tr.sendErr(ss, "pos=", nil, int64(9)); raised(err) != "RangeError" {
		t.Errorf("pos= past the end: err = %v, want RangeError", err)
	}
	tr.send(ss, "terminate", nil)
	if v := tr.send(ss, "getch", nil); v != nil {
		t.Errorf("getch at end = %v, want nil", v)
	}
}
