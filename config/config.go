// Package config handles garnet.toml runtime and compiler configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/garnet/compiler"
	"github.com/chazu/garnet/vm"
)

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "garnet.toml"

// Config represents a garnet.toml file.
type Config struct {
	Compiler Compiler `toml:"compiler"`
	Runtime  Runtime  `toml:"runtime"`
	Cache    Cache    `toml:"cache"`
	Log      Log      `toml:"log"`

	// Dir is the directory containing the garnet.toml file (set at load
	// time). Relative paths resolve against it.
	Dir string `toml:"-"`
}

// Compiler configures code generation.
type Compiler struct {
	FastCase      bool `toml:"fast-case"`
	MaxInlineArgs int  `toml:"max-inline-args"`
}

// Runtime configures program execution.
type Runtime struct {
	Verbose  bool `toml:"verbose"`
	Debug    bool `toml:"debug"`
	MaxDepth int  `toml:"max-depth"`
}

// Cache configures the compiled body cache.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Log configures diagnostics.
type Log struct {
	Verbosity int `toml:"verbosity"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Compiler: Compiler{
			FastCase:      true,
			MaxInlineArgs: compiler.DefaultMaxSpecificArity,
		},
		Runtime: Runtime{MaxDepth: 10000},
		Cache:   Cache{Enabled: true, Path: filepath.Join(".garnet", "cache.db")},
		Log:     Log{Verbosity: 1},
		Dir:     ".",
	}
}

// Load parses a garnet.toml file from the given directory. Fields the file
// leaves out keep their defaults.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a garnet.toml file, then loads
// it. Without a file it returns the defaults rooted at startDir.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for d := dir; ; {
		if _, err := os.Stat(filepath.Join(d, FileName)); err == nil {
			return Load(d)
		}
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}
	c := Default()
	c.Dir = dir
	return c, nil
}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Compiler.MaxInlineArgs < 0 {
		return fmt.Errorf("%w: compiler.max-inline-args must not be negative", ErrInvalid)
	}
	if c.Runtime.MaxDepth <= 0 {
		return fmt.Errorf("%w: runtime.max-depth must be positive", ErrInvalid)
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		return fmt.Errorf("%w: cache.path is required when the cache is enabled", ErrInvalid)
	}
	if c.Log.Verbosity < 0 {
		return fmt.Errorf("%w: log.verbosity must not be negative", ErrInvalid)
	}
	return nil
}

// CachePath returns the absolute cache database path.
func (c *Config) CachePath() string {
	if filepath.IsAbs(c.Cache.Path) {
		return c.Cache.Path
	}
	return filepath.Join(c.Dir, c.Cache.Path)
}

// Options converts the configuration into runtime options. The cache is
// left for the caller to open; codecache.NewRuntime does both.
func (c *Config) Options() vm.Options {
	opts := vm.DefaultOptions()
	opts.FastCase = c.Compiler.FastCase
	if c.Compiler.MaxInlineArgs > 0 {
		opts.MaxSpecificArity = c.Compiler.MaxInlineArgs
	}
	opts.Verbose = c.Runtime.Verbose
	opts.Debug = c.Runtime.Debug
	opts.MaxDepth = c.Runtime.MaxDepth
	return opts
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, fmt.Errorf("encoding configuration: %w", err)
	}
	return buf.Bytes(), nil
}
