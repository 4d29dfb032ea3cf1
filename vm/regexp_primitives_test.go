package vm

import (
	"testing"
)

// ---------------------------------------------------------------------------
// Regexp and MatchData
// ---------------------------------------------------------------------------

func (tr *testRuntime) regexp(src string, opts ...Value) Value {
	tr.t.Helper()
	return tr.send(tr.Regexp, "new", nil, append([]Value{NewString(src)}, opts...)...)
}

func TestRegexpMatchAndGroups(t *testing.T) {
	tr := newTestRuntime(t)
	re := tr.regexp(`(\w)(\d)?`)
	if v := tr.send(re, "=~", nil, NewString("--a1--")); v != int64(2) {
		t.Errorf("=~ = %v, want 2", v)
	}
	md := tr.send(re, "match", nil, NewString("--b--"))
	if got := tr.inspect(tr.send(md, "to_a", nil)); got != `["b", "b", nil]` {
		t.Errorf("to_a = %s", got)
	}
	if got := str(tr, tr.send(md, "pre_match", nil)); got != "--" {
		t.Errorf("pre_match = %q", got)
	}
	if got := str(tr, tr.send(md, "post_match", nil)); got != "--" {
		t.Errorf("post_match = %q", got)
	}
	if v := tr.send(md, "begin", nil, int64(0)); v != int64(2) {
		t.Errorf("begin(0) = %v, want 2", v)
	}
	if v := tr.send(re, "match", nil, NewString("---")); v != nil {
		t.Errorf("match without a hit = %v, want nil", v)
	}
}

func TestRegexpOptions(t *testing.T) {
	tr := newTestRuntime(t)
	re := tr.regexp("abc", int64(RegexpIgnoreCase))
	if v := tr.send(re, "=~", nil, NewString("xABC")); v != int64(1) {
		t.Errorf("case-insensitive =~ = %v, want 1", v)
	}
	if got := tr.inspect(re); got != "/abc/i" {
		t.Errorf("inspect = %s", got)
	}
	if tr.send(re, "casefold?", nil) != true {
		t.Error("casefold? should be true")
	}

	dot := tr.regexp("a.b")
	if v := tr.send(dot, "=~", nil, NewString("a\nb")); v != nil {
		t.Errorf("dot matched a newline without /m: %v", v)
	}
	dotAll := tr.regexp("a.b", int64(RegexpMultiline))
	if v := tr.send(dotAll, "=~", nil, NewString("a\nb")); v != int64(0) {
		t.Errorf("dot with /m = %v, want 0", v)
	}

	anchored := tr.regexp("^b")
	if v := tr.send(anchored, "=~", nil, NewString("a\nb")); v != int64(2) {
		t.Errorf("^ should match after a newline, got %v", v)
	}
}

func TestRegexpEscapeAndUnion(t *testing.T) {
	tr := newTestRuntime(t)
	if got := str(tr, tr.send(tr.Regexp, "escape", nil, NewString("a.b*c"))); got != `a\.b\*c` {
		t.Errorf("escape = %q", got)
	}
	u := tr.send(tr.Regexp, "union", nil, NewString("a.b"), NewString("c"))
	if v := tr.send(u, "=~", nil, NewString("xxc")); v != int64(2) {
		t.Errorf("union =~ = %v, want 2", v)
	}
	if v := tr.send(u, "=~", nil, NewString("axb")); v != nil {
		t.Errorf("union should match a.b literally, got %v", v)
	}
}

func TestRegexpInvalidPattern(t *testing.T) {
	tr := newTestRuntime(t)
	if _, err := tr.sendErr(tr.Regexp, "new", nil, NewString("(")); raised(err) != "RegexpError" {
		t.Errorf("Regexp.new(\"(\"): err = %v, want RegexpError", err)
	}
}

func TestStringSubAndScan(t *testing.T) {
	tr := newTestRuntime(t)
	tests := []struct {
		meth string
		args []Value
		want string
	}{
		{"sub", []Value{tr.regexp(`o`), NewString("0")}, "f0o bar"},
		{"gsub", []Value{tr.regexp(`o`), NewString("0")}, "f00 bar"},
		{"gsub", []Value{tr.regexp(`(\w+) (\w+)`), NewString(`\2 \1`)}, "bar foo"},
		{"gsub", []Value{NewString("."), NewString("!")}, "foo bar"},
	}
	for _, tt := range tests {
		if got := str(tr, tr.send(NewString("foo bar"), tt.meth, nil, tt.args...)); got != tt.want {
			t.Errorf("%s(%v) = %q, want %q", tt.meth, tt.args, got, tt.want)
		}
	}

	upper := returning(func(v Value) Value { return NewString(asciiUpper(v.(*String).S)) })
	if got := str(tr, tr.send(NewString("foo bar"), "gsub", upper, tr.regexp(`\b\w`))); got != "Foo Bar" {
		t.Errorf("gsub with block = %q", got)
	}

	scanned := tr.send(NewString("a1 b2 c3"), "scan", nil, tr.regexp(`(\w)(\d)`))
	if got := tr.inspect(scanned); got != `[["a", "1"], ["b", "2"], ["c", "3"]]` {
		t.Errorf("scan with groups = %s", got)
	}
	scanned = tr.send(NewString("a1 b2"), "scan", nil, tr.regexp(`\d`))
	if got := tr.inspect(scanned); got != `["1", "2"]` {
		t.Errorf("scan = %s", got)
	}
}
