package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ---------------------------------------------------------------------------
// IO: Output streams
// ---------------------------------------------------------------------------

// IO is a write stream. Writes are buffered unless sync is set; the
// standard streams flush after every write.
type IO struct {
	Basic
	fd     int
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
	sync   bool
	closed bool
}

func newIO(rt *Runtime, w io.Writer, fd int) *IO {
	out := &IO{fd: fd, w: bufio.NewWriter(w), sync: fd <= 2}
	if c, ok := w.(io.Closer); ok && fd > 2 {
		out.closer = c
	}
	return out
}

// writeString writes s, raising IOError when the stream is closed or the
// write fails.
func (o *IO) writeString(tc *ThreadContext, s string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		tc.Raise(tc.rt.IOError, "closed stream")
	}
	n, err := o.w.WriteString(s)
	if err == nil && o.sync {
		err = o.w.Flush()
	}
	if err != nil {
		tc.Raise(tc.rt.IOError, "%s", err.Error())
	}
	return n
}

// Flush writes out buffered data.
func (o *IO) Flush() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	return o.w.Flush()
}

func (o *IO) close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	err := o.w.Flush()
	if o.closer != nil {
		if cerr := o.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// pathArg converts a path argument.
func (tc *ThreadContext) pathArg(v Value) string {
	return tc.stringArg(v)
}

// ---------------------------------------------------------------------------
// IO and File primitives
// ---------------------------------------------------------------------------

func (rt *Runtime) registerIOPrimitives() {
	c := rt.IOClass
	stream := func(v Value) *IO { return v.(*IO) }

	write := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return int64(stream(self).writeString(tc, tc.AsString(args[0]).S))
	}
	// write - write to_s of the argument, returning the byte count
	c.AddMethod("write", 1, write)

	// << - write and return self for chaining
	c.AddMethod("<<", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		write(tc, self, args, blk)
		return self
	})

	// puts - one line per argument
	c.AddMethod("puts", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		stream(self).writeString(tc, tc.putsString(args))
		return nil
	})

	// print - arguments with $, and $\
	c.AddMethod("print", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		stream(self).writeString(tc, tc.printString(args))
		return nil
	})

	// printf - formatted output
	c.AddMethod("printf", -2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		stream(self).writeString(tc, tc.format(tc.stringArg(args[0]), args[1:]))
		return nil
	})

	// flush - write out buffered data
	c.AddMethod("flush", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if err := stream(self).Flush(); err != nil {
			tc.Raise(rt.IOError, "%s", err.Error())
		}
		return self
	})

	// sync, sync= - whether every write is flushed
	c.AddMethod("sync", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return stream(self).sync
	})
	c.AddMethod("sync=", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		o := stream(self)
		o.mu.Lock()
		o.sync = Truthy(args[0])
		o.mu.Unlock()
		return args[0]
	})

	fileno := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return int64(stream(self).fd)
	}
	// fileno, to_i - the descriptor number
	c.AddMethod("fileno", 0, fileno)
	c.AddMethod("to_i", 0, fileno)

	// tty?, isatty - never a terminal
	tty := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return false
	}
	c.AddMethod("tty?", 0, tty)
	c.AddMethod("isatty", 0, tty)

	// close - flush and release the stream
	c.AddMethod("close", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		o := stream(self)
		o.mu.Lock()
		closed := o.closed
		o.mu.Unlock()
		if closed {
			tc.Raise(rt.IOError, "closed stream")
		}
		if err := o.close(); err != nil {
			tc.Raise(rt.IOError, "%s", err.Error())
		}
		return nil
	})

	// closed? - whether close was called
	c.AddMethod("closed?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		o := stream(self)
		o.mu.Lock()
		defer o.mu.Unlock()
		return o.closed
	})

	// inspect - #<IO:fd>
	c.AddMethod("inspect", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return NewString(fmt.Sprintf("#<%s:%d>", rt.RealClassOf(self).Name(), stream(self).fd))
	})

	rt.registerFilePrimitives()
}

func (rt *Runtime) registerFilePrimitives() {
	file := rt.defineClass("File", rt.IOClass)
	file.SetConstant("SEPARATOR", NewString(string(filepath.Separator)))
	meta := rt.metaclass(file)

	// File.open(path, mode = "r") - a writable file; the block form closes it
	meta.AddMethod("open", -2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 1, 2)
		path := tc.pathArg(args[0])
		mode := "r"
		if len(args) == 2 {
			mode = tc.stringArg(args[1])
		}
		flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		switch strings.TrimSuffix(mode, "b") {
		case "w":
		case "a":
			flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		default:
			tc.Raise(rt.NotImplementedError, "File.open mode %s is not supported; use File.read", mode)
		}
		f, err := os.OpenFile(path, flags, 0o644)
		if err != nil {
			tc.Raise(rt.IOError, "%s", err.Error())
		}
		out := newIO(rt, f, int(f.Fd()))
		out.class = self.(*Class)
		if !blk.IsGiven() {
			return out
		}
		defer out.close()
		return tc.Yield(blk, out)
	})

	// File.read - whole file contents
	meta.AddMethod("read", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		data, err := os.ReadFile(tc.pathArg(args[0]))
		if err != nil {
			tc.Raise(rt.IOError, "%s", err.Error())
		}
		return NewString(string(data))
	})

	// File.readlines - lines with their terminators
	meta.AddMethod("readlines", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		data, err := os.ReadFile(tc.pathArg(args[0]))
		if err != nil {
			tc.Raise(rt.IOError, "%s", err.Error())
		}
		out := NewArray()
		for _, l := range splitLines(string(data), "\n") {
			out.Elems = append(out.Elems, NewString(l))
		}
		return out
	})

	stat := func(check func(os.FileInfo) bool) NativeFunc {
		return func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
			info, err := os.Stat(tc.pathArg(args[0]))
			return err == nil && check(info)
		}
	}
	// File.exist?, exists? - the path exists
	meta.AddMethod("exist?", 1, stat(func(os.FileInfo) bool { return true }))
	meta.AddMethod("exists?", 1, stat(func(os.FileInfo) bool { return true }))
	// File.file? - a regular file
	meta.AddMethod("file?", 1, stat(func(fi os.FileInfo) bool { return fi.Mode().IsRegular() }))
	// File.directory? - a directory
	meta.AddMethod("directory?", 1, stat(func(fi os.FileInfo) bool { return fi.IsDir() }))

	// File.basename(path, suffix = nil)
	meta.AddMethod("basename", -2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 1, 2)
		base := filepath.Base(tc.pathArg(args[0]))
		if len(args) == 2 {
			suffix := tc.stringArg(args[1])
			if suffix == ".*" {
				suffix = filepath.Ext(base)
			}
			if suffix != base {
				base = strings.TrimSuffix(base, suffix)
			}
		}
		return NewString(base)
	})

	// File.dirname - everything before the last separator
	meta.AddMethod("dirname", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return NewString(filepath.Dir(tc.pathArg(args[0])))
	})

	// File.extname - the extension with its dot
	meta.AddMethod("extname", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		base := filepath.Base(tc.pathArg(args[0]))
		if strings.HasPrefix(base, ".") && strings.Count(base, ".") == 1 {
			return NewString("")
		}
		return NewString(filepath.Ext(base))
	})

	// File.join - parts joined with /
	meta.AddMethod("join", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		parts := make([]string, 0, len(args))
		for _, a := range args {
			if arr, ok := a.(*Array); ok {
				parts = append(parts, tc.joinArray(arr, "/"))
				continue
			}
			parts = append(parts, tc.pathArg(a))
		}
		joined := strings.Join(parts, "/")
		for strings.Contains(joined, "//") {
			joined = strings.ReplaceAll(joined, "//", "/")
		}
		return NewString(joined)
	})

	// File.expand_path(path, dir = cwd)
	meta.AddMethod("expand_path", -2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 1, 2)
		path := tc.pathArg(args[0])
		if strings.HasPrefix(path, "~") {
			if home, err := os.UserHomeDir(); err == nil {
				path = home + path[1:]
			}
		}
		if !filepath.IsAbs(path) && len(args) == 2 {
			path = filepath.Join(tc.pathArg(args[1]), path)
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			tc.Raise(rt.IOError, "%s", err.Error())
		}
		return NewString(abs)
	})
}
