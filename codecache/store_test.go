package codecache

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/garnet/ast"
	"github.com/chazu/garnet/scope"
	"github.com/chazu/garnet/vm"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func keyOf(b byte) [32]byte {
	var k [32]byte
	k[0] = b
	k[31] = b
	return k
}

func TestStorePutGet(t *testing.T) {
	s := openStore(t)
	k := keyOf(0xab)
	if _, err := s.Get(k); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get on empty store: err = %v, want ErrNotFound", err)
	}
	if err := s.Put(k, "<main>", []byte("one")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(k, "<main>", []byte("two")); err != nil {
		t.Fatalf("Put replace: %v", err)
	}
	data, err := s.Get(k)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(data, []byte("two")) {
		t.Errorf("Get = %q, want %q", data, "two")
	}
}

func TestStoreListAndDelete(t *testing.T) {
	s := openStore(t)
	for i, name := range []string{"a.rb", "b.rb"} {
		if err := s.Put(keyOf(byte(i+1)), name, []byte(name)); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("List = %d entries, want 2", len(entries))
	}
	if entries[0].Key != KeyString(keyOf(1)) || entries[0].Name != "a.rb" || entries[0].Size != 4 {
		t.Errorf("first entry = %+v", entries[0])
	}

	if err := s.Delete(keyOf(1)); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(keyOf(1)); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete: err = %v, want ErrNotFound", err)
	}
	entries, _ = s.List()
	if len(entries) != 1 {
		t.Errorf("List after Delete = %d entries, want 1", len(entries))
	}
}

func TestStoreGetPrefix(t *testing.T) {
	s := openStore(t)
	var k1, k2 [32]byte
	k1[0], k1[1] = 0x12, 0x34
	k2[0], k2[1] = 0x12, 0x56
	s.Put(k1, "one", []byte("1"))
	s.Put(k2, "two", []byte("2"))

	key, data, err := s.GetPrefix("1234")
	if err != nil {
		t.Fatalf("GetPrefix(1234): %v", err)
	}
	if key != KeyString(k1) || string(data) != "1" {
		t.Errorf("GetPrefix(1234) = %s %q", key, data)
	}
	if _, _, err := s.GetPrefix("12"); err == nil {
		t.Error("GetPrefix(12) should be ambiguous")
	}
	if _, _, err := s.GetPrefix("ff"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPrefix(ff): err = %v, want ErrNotFound", err)
	}
	if _, _, err := s.GetPrefix("zz%"); err == nil {
		t.Error("GetPrefix with non-hex characters should fail")
	}
}

func TestStorePurge(t *testing.T) {
	s := openStore(t)
	for i := 0; i < 3; i++ {
		s.Put(keyOf(byte(i)), "x", []byte{1})
	}
	n, err := s.Purge()
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if n != 3 {
		t.Errorf("Purge removed %d, want 3", n)
	}
	if entries, _ := s.List(); len(entries) != 0 {
		t.Errorf("List after Purge = %v", entries)
	}
}

func TestCacheThroughRuntime(t *testing.T) {
	s := openStore(t)
	cache := NewCache(s)

	rt := vm.NewRuntime(vm.Options{Cache: cache})
	v, err := rt.Execute(sumProgram(), "sum.rb")
	if err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	if v != int64(4) {
		t.Errorf("first result = %v, want 4", v)
	}
	entries, err := s.List()
	if err != nil || len(entries) != 1 {
		t.Fatalf("after first run List = %v, %v; want one entry", entries, err)
	}

	root := sumProgram()
	body, ok := cache.Load(rt.CacheKey(root, "sum.rb"), ast.Scopes(root))
	if !ok {
		t.Fatal("second tree should hit the cache")
	}
	if body.Scope != root.Scope {
		t.Error("cached body should bind to the new tree's scope")
	}

	rt2 := vm.NewRuntime(vm.Options{Cache: cache})
	v, err = rt2.Execute(sumProgram(), "sum.rb")
	if err != nil {
		t.Fatalf("cached Execute: %v", err)
	}
	if v != int64(4) {
		t.Errorf("cached result = %v, want 4", v)
	}
}

func TestCacheDiscardsUndecodableEntry(t *testing.T) {
	s := openStore(t)
	cache := NewCache(s)
	root := sumProgram()
	key := ast.Fingerprint(root)
	if err := s.Put(key, "<main>", []byte{0xff}); err != nil {
		t.Fatal(err)
	}
	if _, ok := cache.Load(key, ast.Scopes(root)); ok {
		t.Fatal("Load of a corrupt entry should miss")
	}
	if _, err := s.Get(key); !errors.Is(err, ErrNotFound) {
		t.Errorf("corrupt entry should be deleted, Get err = %v", err)
	}
}

// raiseProgram builds `raise "boom"` on the given line of file.
func raiseProgram(file string, line int) *ast.RootNode {
	pos := ast.Pos{File: file, Line: line}
	call := &ast.FCallNode{Pos: pos, Name: "raise",
		Args: &ast.ArrayNode{Pos: pos, Elements: []ast.Node{&ast.StrNode{Pos: pos, Value: "boom"}}}}
	return &ast.RootNode{Pos: pos, Scope: scope.NewLocalScope(nil),
		Body: &ast.NewlineNode{Pos: pos, Next: call}}
}

func TestCachedBodyKeepsItsPosition(t *testing.T) {
	s := openStore(t)
	cache := NewCache(s)

	tests := []struct {
		file string
		line int
		want string
	}{
		{"a.rb", 1, "a.rb:1:"},
		{"b.rb", 40, "b.rb:40:"},
		{"a.rb", 1, "a.rb:1:"},
	}
	for _, tt := range tests {
		rt := vm.NewRuntime(vm.Options{Cache: cache})
		_, err := rt.Execute(raiseProgram(tt.file, tt.line), tt.file)
		var re *vm.RaiseException
		if !errors.As(err, &re) {
			t.Fatalf("%s:%d: err = %v, want a raised exception", tt.file, tt.line, err)
		}
		if got := vm.FormatException(re); !strings.HasPrefix(got, tt.want) {
			t.Errorf("%s:%d: FormatException = %q, want prefix %q", tt.file, tt.line, got, tt.want)
		}
	}
	if entries, _ := s.List(); len(entries) != 2 {
		t.Errorf("List = %d entries, want one per position", len(entries))
	}
}

func TestCacheKeyFollowsCompilerOptions(t *testing.T) {
	s := openStore(t)
	cache := NewCache(s)
	slow := vm.NewRuntime(vm.Options{Cache: cache, MaxSpecificArity: 1})
	fast := vm.NewRuntime(vm.Options{Cache: cache, FastCase: true, MaxSpecificArity: 3})

	root := sumProgram()
	if slow.CacheKey(root, "sum.rb") == fast.CacheKey(root, "sum.rb") {
		t.Fatal("runtimes with different compiler options share a cache key")
	}
	if fast.CacheKey(root, "sum.rb") == fast.CacheKey(root, "other.rb") {
		t.Error("the file name should contribute to the cache key")
	}
	for _, rt := range []*vm.Runtime{slow, fast} {
		if v, err := rt.Execute(sumProgram(), "sum.rb"); err != nil || v != int64(4) {
			t.Errorf("Execute = %v, %v; want 4", v, err)
		}
	}
	if entries, _ := s.List(); len(entries) != 2 {
		t.Errorf("List = %d entries, want one per option set", len(entries))
	}
}
