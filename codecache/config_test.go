package codecache

import (
	"errors"
	"os"
	"testing"

	"github.com/chazu/garnet/config"
)

func testConfig(t *testing.T, enabled bool) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Dir = t.TempDir()
	cfg.Cache.Enabled = enabled
	return cfg
}

func TestNewRuntimeWithCacheEnabled(t *testing.T) {
	cfg := testConfig(t, true)
	rt, cache, err := NewRuntime(cfg)
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	if cache == nil {
		t.Fatal("an enabled cache should be opened")
	}
	defer cache.Close()

	if v, err := rt.Execute(sumProgram(), "sum.rb"); err != nil || v != int64(4) {
		t.Fatalf("Execute = %v, %v; want 4", v, err)
	}
	if cache.Store().Path() != cfg.CachePath() {
		t.Errorf("store path = %s, want %s", cache.Store().Path(), cfg.CachePath())
	}
	entries, err := cache.Store().List()
	if err != nil || len(entries) != 1 {
		t.Errorf("List = %v, %v; want the compiled script", entries, err)
	}
}

func TestNewRuntimeWithCacheDisabled(t *testing.T) {
	cfg := testConfig(t, false)
	if _, err := OpenFor(cfg); !errors.Is(err, ErrDisabled) {
		t.Errorf("OpenFor: err = %v, want ErrDisabled", err)
	}

	rt, cache, err := NewRuntime(cfg)
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	if cache != nil {
		t.Error("a disabled cache should not be opened")
	}
	if v, err := rt.Execute(sumProgram(), "sum.rb"); err != nil || v != int64(4) {
		t.Fatalf("Execute = %v, %v; want 4", v, err)
	}
	if _, err := os.Stat(cfg.CachePath()); !os.IsNotExist(err) {
		t.Errorf("cache database exists with the cache disabled: %v", err)
	}
}

func TestNewRuntimeUsesCompilerSettings(t *testing.T) {
	cfg := testConfig(t, false)
	cfg.Compiler.FastCase = false
	cfg.Compiler.MaxInlineArgs = 1
	slow, _, err := NewRuntime(cfg)
	if err != nil {
		t.Fatal(err)
	}
	fast, _, err := NewRuntime(testConfig(t, false))
	if err != nil {
		t.Fatal(err)
	}
	root := sumProgram()
	if slow.CacheKey(root, "sum.rb") == fast.CacheKey(root, "sum.rb") {
		t.Error("compiler settings from the configuration should reach the runtime")
	}
}
