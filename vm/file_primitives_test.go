package vm

import (
	"os"
	"path/filepath"
	"testing"
)

// ---------------------------------------------------------------------------
// Kernel output and IO
// ---------------------------------------------------------------------------

func fileClass(tr *testRuntime) Value {
	tr.t.Helper()
	k, ok := tr.Object.ConstantAt("File")
	if !ok {
		tr.t.Fatal("File is not defined")
	}
	return k
}

func TestKernelOutput(t *testing.T) {
	tr := newTestRuntime(t)
	main := tr.Main()
	tr.send(main, "puts", nil, NewString("a"), NewArray(int64(1), NewArray(int64(2))), nil)
	tr.send(main, "print", nil, NewString("x"), int64(7))
	tr.send(main, "p", nil, NewString("q"))
	tr.send(main, "printf", nil, NewString("%03d\n"), int64(5))

	want := "a\n1\n2\nnil\nx7\"q\"\n005\n"
	if got := tr.out.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestPutsWithoutArgumentsWritesNewline(t *testing.T) {
	tr := newTestRuntime(t)
	tr.send(tr.Main(), "puts", nil)
	if got := tr.out.String(); got != "\n" {
		t.Errorf("output = %q", got)
	}
}

func TestClosedStreamRaises(t *testing.T) {
	tr := newTestRuntime(t)
	path := filepath.Join(t.TempDir(), "out.txt")
	f := tr.send(fileClass(tr), "open", nil, NewString(path), NewString("w"))
	tr.send(f, "write", nil, NewString("data"))
	tr.send(f, "close", nil)

	if tr.send(f, "closed?", nil) != true {
		t.Error("closed? should be true after close")
	}
	if _, err := tr.sendErr(f, "write", nil, NewString("more")); raised(err) != "IOError" {
		t.Errorf("write after close: err = %v, want IOError", err)
	}
	if _, err := tr.sendErr(f, "close", nil); raised(err) != "IOError" {
		t.Errorf("second close: err = %v, want IOError", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "data" {
		t.Errorf("file contents = %q", data)
	}
}

func TestFileOpenBlockForm(t *testing.T) {
	tr := newTestRuntime(t)
	file := fileClass(tr)
	path := NewString(filepath.Join(t.TempDir(), "lines.txt"))

	var opened Value
	writer := NewNativeBlock(func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		opened = args[0]
		tc.Send(args[0], "puts", NewString("one"), NewString("two"))
		tc.Send(args[0], "<<", NewString("three"))
		return int64(1)
	}, 1, NormalBlock)
	if v := tr.send(file, "open", writer, path, NewString("w")); v != int64(1) {
		t.Errorf("open with a block = %v, want the block's value", v)
	}
	if tr.send(opened, "closed?", nil) != true {
		t.Error("the block form should close the file")
	}

	if got := str(tr, tr.send(file, "read", nil, path)); got != "one\ntwo\nthree" {
		t.Errorf("File.read = %q", got)
	}
	if got := tr.inspect(tr.send(file, "readlines", nil, path)); got != `["one\n", "two\n", "three"]` {
		t.Errorf("File.readlines = %s", got)
	}
	if tr.send(file, "exist?", nil, path) != true {
		t.Error("exist? should be true for the written file")
	}
	if _, err := tr.sendErr(file, "read", nil, NewString(filepath.Join(t.TempDir(), "missing"))); raised(err) != "IOError" {
		t.Errorf("read of a missing file: err = %v, want IOError", err)
	}
	if _, err := tr.sendErr(file, "open", nil, path, NewString("r")); raised(err) != "NotImplementedError" {
		t.Errorf("open for reading: err = %v, want NotImplementedError", err)
	}
}

func TestFilePaths(t *testing.T) {
	tr := newTestRuntime(t)
	file := fileClass(tr)
	tests := []struct {
		meth string
		args []Value
		want string
	}{
		{"basename", []Value{NewString("/a/b/c.rb")}, "c.rb"},
		{"basename", []Value{NewString("/a/b/c.rb"), NewString(".rb")}, "c"},
		{"basename", []Value{NewString("/a/b/c.rb"), NewString(".*")}, "c"},
		{"dirname", []Value{NewString("/a/b/c.rb")}, "/a/b"},
		{"extname", []Value{NewString("x/y.tar.gz")}, ".gz"},
		{"extname", []Value{NewString(".profile")}, ""},
		{"join", []Value{NewString("a/"), NewString("/b"), NewString("c")}, "a/b/c"},
	}
	for _, tt := range tests {
		if got := str(tr, tr.send(file, tt.meth, nil, tt.args...)); got != tt.want {
			t.Errorf("File.%s(%v) = %q, want %q", tt.meth, tt.args, got, tt.want)
		}
	}
}
