package vm

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/chazu/garnet/compiler"
	"github.com/chazu/garnet/scope"
)

// ---------------------------------------------------------------------------
// CompiledBody: Bytecode for one script, method, closure, class or region
// ---------------------------------------------------------------------------

// BodyKind tells what a compiled body implements.
type BodyKind uint8

const (
	ScriptBody  BodyKind = iota // a whole program
	MethodBody                  // a def
	ClosureBody                 // a block literal, for body or BEGIN/END block
	ClassBody                   // a class, module or singleton class body
	RegionBody                  // an outlined protected region of its parent
)

func (k BodyKind) String() string {
	switch k {
	case ScriptBody:
		return "script"
	case MethodBody:
		return "method"
	case ClosureBody:
		return "closure"
	case ClassBody:
		return "class"
	case RegionBody:
		return "region"
	}
	return fmt.Sprintf("BodyKind(%d)", uint8(k))
}

// CompiledBody is the unit produced by the body compiler. Children hold the
// bodies referenced by definition and region instructions.
type CompiledBody struct {
	// Identity
	Name string
	Kind BodyKind
	File string
	Line int

	// Code
	Code     []byte
	Literals []*Literal
	Names    []string // symbol and selector table
	Children []*CompiledBody
	MaxStack int
	Lines    []LineEntry

	// Shape
	Scope               *scope.StaticScope
	Arity               scope.Arity
	ArgsType            compiler.ArgsType
	HasMultipleArgsHead bool
	BlockArg            int // slot of the &block parameter, or -1
	BodyStart           int // offset after argument binding; redo target
	ForLoop             bool
	InitialDepth        int // values on the stack when the body starts

	// LocalExits means no return (method) or next and redo (closure) can
	// reach the body as an unwinding jump, so it runs without a catcher.
	LocalExits bool

	caches *InlineCacheTable
	once   sync.Once
}

// LineEntry maps a bytecode offset to a source line.
type LineEntry struct {
	Offset int
	Line   int
}

// LineAt returns the source line of the instruction at offset.
func (b *CompiledBody) LineAt(offset int) int {
	line := b.Line
	for _, e := range b.Lines {
		if e.Offset > offset {
			break
		}
		line = e.Line
	}
	return line
}

// Child returns the nested body at index.
func (b *CompiledBody) Child(index int) *CompiledBody {
	if index < 0 || index >= len(b.Children) {
		panic(fmt.Sprintf("CompiledBody.Child: index %d out of range", index))
	}
	return b.Children[index]
}

// NameAt returns the name table entry at index.
func (b *CompiledBody) NameAt(index int) string {
	return b.Names[index]
}

// Caches returns the send-site caches of the body, created on first use.
func (b *CompiledBody) Caches() *InlineCacheTable {
	b.once.Do(func() { b.caches = NewInlineCacheTable() })
	return b.caches
}

// Disassemble renders the body and its children.
func (b *CompiledBody) Disassemble() string {
	var sb strings.Builder
	b.disassemble(&sb, "")
	return sb.String()
}

func (b *CompiledBody) disassemble(sb *strings.Builder, indent string) {
	fmt.Fprintf(sb, "%s%s %s (stack %d)\n", indent, b.Kind, b.Name, b.MaxStack)
	for _, line := range strings.Split(Disassemble(b.Code, b.Names), "\n") {
		if line != "" {
			sb.WriteString(indent + "  " + line + "\n")
		}
	}
	for i, c := range b.Children {
		fmt.Fprintf(sb, "%s  [%d]\n", indent, i)
		c.disassemble(sb, indent+"    ")
	}
}

// Walk visits b and all nested bodies.
func (b *CompiledBody) Walk(fn func(*CompiledBody)) {
	fn(b)
	for _, c := range b.Children {
		c.Walk(fn)
	}
}

// ---------------------------------------------------------------------------
// Literals
// ---------------------------------------------------------------------------

// LiteralKind discriminates literal pool entries.
type LiteralKind uint8

const (
	StringLiteral LiteralKind = iota
	BignumLiteral
	RegexpLiteral
	SwitchLiteral
)

// Literal is one literal pool entry. Regexps are compiled on first use and
// cached; a once-only dynamic regexp caches its first result.
type Literal struct {
	Kind    LiteralKind
	Str     string
	Big     *big.Int
	Options int
	Once    bool

	// jump table: sorted cases, their code offsets and the default offset
	Cases   []int64
	Targets []int
	Default int

	mu     sync.Mutex
	cached Value
}

// Cached returns the cached runtime value, building it with build on first
// use.
func (l *Literal) Cached(build func() (Value, error)) (Value, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cached != nil {
		return l.cached, nil
	}
	v, err := build()
	if err != nil {
		return nil, err
	}
	l.cached = v
	return v, nil
}

// Lookup returns the jump target for v.
func (l *Literal) Lookup(v int64) int {
	lo, hi := 0, len(l.Cases)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch {
		case l.Cases[mid] == v:
			return l.Targets[mid]
		case l.Cases[mid] < v:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return l.Default
}
