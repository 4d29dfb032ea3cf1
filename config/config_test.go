package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[runtime]
verbose = true
`)
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !c.Runtime.Verbose {
		t.Errorf("Runtime.Verbose = false, want true")
	}
	if !c.Compiler.FastCase {
		t.Errorf("Compiler.FastCase = false, want default true")
	}
	if c.Compiler.MaxInlineArgs != 3 {
		t.Errorf("Compiler.MaxInlineArgs = %d, want 3", c.Compiler.MaxInlineArgs)
	}
	if c.Runtime.MaxDepth != 10000 {
		t.Errorf("Runtime.MaxDepth = %d, want 10000", c.Runtime.MaxDepth)
	}
}

func TestLoadAllSections(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[compiler]
fast-case = false
max-inline-args = 2

[runtime]
debug = true
max-depth = 500

[cache]
enabled = false
path = "/tmp/x.db"

[log]
verbosity = 3
`)
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Compiler.FastCase {
		t.Errorf("FastCase = true, want false")
	}
	opts := c.Options()
	if opts.MaxSpecificArity != 2 {
		t.Errorf("MaxSpecificArity = %d, want 2", opts.MaxSpecificArity)
	}
	if !opts.Debug || opts.MaxDepth != 500 {
		t.Errorf("Debug, MaxDepth = %v, %d, want true, 500", opts.Debug, opts.MaxDepth)
	}
	if c.Cache.Enabled {
		t.Errorf("Cache.Enabled = true, want false")
	}
	if got := c.CachePath(); got != "/tmp/x.db" {
		t.Errorf("CachePath() = %q, want /tmp/x.db", got)
	}
	if c.Log.Verbosity != 3 {
		t.Errorf("Log.Verbosity = %d, want 3", c.Log.Verbosity)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[compiler]
mode = "jit"
`)
	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "unknown key") {
		t.Errorf("Load error = %v, want unknown key", err)
	}
}

func TestLoadValidates(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[runtime]
max-depth = 0
`)
	_, err := Load(dir)
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("Load error = %v, want ErrInvalid", err)
	}
}

func TestLoadParseError(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "[compiler\n")
	if _, err := Load(dir); err == nil {
		t.Error("Load succeeded on malformed TOML")
	}
}

func TestFindAndLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
[cache]
path = "cache/bodies.db"
`)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	c, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad: %v", err)
	}
	abs, _ := filepath.Abs(root)
	if c.Dir != abs {
		t.Errorf("Dir = %q, want %q", c.Dir, abs)
	}
	if want := filepath.Join(abs, "cache", "bodies.db"); c.CachePath() != want {
		t.Errorf("CachePath() = %q, want %q", c.CachePath(), want)
	}
}

func TestFindAndLoadWithoutFile(t *testing.T) {
	dir := t.TempDir()
	c, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad: %v", err)
	}
	if !c.Cache.Enabled || c.Cache.Path == "" {
		t.Errorf("Cache = %+v, want defaults", c.Cache)
	}
}

func TestEncodeRoundTrips(t *testing.T) {
	c := Default()
	c.Runtime.Verbose = true
	data, err := c.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(data), "verbose = true") {
		t.Errorf("Encode output missing verbose:\n%s", data)
	}
	dir := t.TempDir()
	writeConfig(t, dir, string(data))
	back, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back.Runtime != c.Runtime || back.Compiler != c.Compiler || back.Cache != c.Cache {
		t.Errorf("round trip = %+v, want %+v", back, c)
	}
}
