package vm

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// Ruby regexp option bits.
const (
	RegexpIgnoreCase = 1
	RegexpExtended   = 2
	RegexpMultiline  = 4
)

// ---------------------------------------------------------------------------
// Regexp and MatchData values
// ---------------------------------------------------------------------------

// Regexp is a compiled Ruby regular expression.
type Regexp struct {
	Basic
	Source  string
	Options int
	re      *regexp2.Regexp
}

// MatchData is the result of a successful match. Offsets are byte
// offsets into Str, -1 for groups that did not participate.
type MatchData struct {
	Basic
	Regexp *Regexp
	Str    string
	offs   []int
}

var posixClasses = strings.NewReplacer(
	"[:alpha:]", `a-zA-Z`,
	"[:digit:]", `0-9`,
	"[:alnum:]", `a-zA-Z0-9`,
	"[:upper:]", `A-Z`,
	"[:lower:]", `a-z`,
	"[:space:]", `\s`,
	"[:xdigit:]", `0-9a-fA-F`,
	"[:punct:]", `!-/:-@\[-`+"`"+`{-~`,
	"[:word:]", `\w`,
	"[:cntrl:]", `\x00-\x1f\x7f`,
	"[:print:]", `\x20-\x7e`,
	"[:blank:]", ` \t`,
)

// compileRegexp translates Ruby options: ^ and $ always match at line
// boundaries, and /m lets . match newlines.
func compileRegexp(src string, options int) (*regexp2.Regexp, error) {
	opts := regexp2.RegexOptions(regexp2.Multiline)
	if options&RegexpIgnoreCase != 0 {
		opts |= regexp2.IgnoreCase
	}
	if options&RegexpExtended != 0 {
		opts |= regexp2.IgnorePatternWhitespace
	}
	if options&RegexpMultiline != 0 {
		opts |= regexp2.Singleline
	}
	return regexp2.Compile(posixClasses.Replace(src), opts)
}

// NewRegexp compiles src, raising RegexpError for invalid patterns.
func (tc *ThreadContext) NewRegexp(src string, options int) *Regexp {
	re, err := compileRegexp(src, options)
	if err != nil {
		tc.Raise(tc.rt.RegexpError, "%s: /%s/", err.Error(), src)
	}
	return &Regexp{Source: src, Options: options, re: re}
}

// literalRegexp returns the regexp of a literal, compiling it once.
func (tc *ThreadContext) literalRegexp(lit *Literal) Value {
	lit.mu.Lock()
	cached := lit.cached
	lit.mu.Unlock()
	if cached != nil {
		return cached
	}
	re := tc.NewRegexp(lit.Str, lit.Options)
	lit.mu.Lock()
	lit.cached = re
	lit.mu.Unlock()
	return re
}

// dynamicRegexp compiles an interpolated regexp. With /o only the first
// evaluation compiles.
func (tc *ThreadContext) dynamicRegexp(lit *Literal, src string) Value {
	if !lit.Once {
		return tc.NewRegexp(src, lit.Options)
	}
	lit.mu.Lock()
	defer lit.mu.Unlock()
	if lit.cached == nil {
		lit.cached = tc.NewRegexp(src, lit.Options)
	}
	return lit.cached
}

// runeToByte maps rune offsets of s to byte offsets. Invalid bytes count
// as one rune each, as the []rune conversion does.
type runeIndex struct {
	s     string
	bytes []int
}

func newRuneIndex(s string) *runeIndex {
	idx := &runeIndex{s: s}
	for i := 0; i < len(s); {
		idx.bytes = append(idx.bytes, i)
		_, w := utf8.DecodeRuneInString(s[i:])
		i += w
	}
	idx.bytes = append(idx.bytes, len(s))
	return idx
}

func (r *runeIndex) byteAt(runeOff int) int {
	if runeOff >= len(r.bytes) {
		return len(r.s)
	}
	return r.bytes[runeOff]
}

func (r *runeIndex) runeAt(byteOff int) int {
	lo, hi := 0, len(r.bytes)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if r.bytes[mid] < byteOff {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// search finds the first match of re in s at or after byte offset start.
func (tc *ThreadContext) search(re *Regexp, s string, start int) *MatchData {
	if start < 0 || start > len(s) {
		return nil
	}
	idx := newRuneIndex(s)
	m, err := re.re.FindStringMatchStartingAt(s, idx.runeAt(start))
	if err != nil {
		tc.Raise(tc.rt.RegexpError, "%s", err.Error())
	}
	if m == nil {
		return nil
	}
	groups := m.Groups()
	md := &MatchData{Regexp: re, Str: s, offs: make([]int, 2*len(groups))}
	for i, g := range groups {
		if len(g.Captures) == 0 {
			md.offs[2*i], md.offs[2*i+1] = -1, -1
			continue
		}
		md.offs[2*i] = idx.byteAt(g.Index)
		md.offs[2*i+1] = idx.byteAt(g.Index + g.Length)
	}
	return md
}

// matchInto searches and records the result as $~ of the caller.
func (tc *ThreadContext) matchInto(re *Regexp, s string, start int) *MatchData {
	md := tc.search(re, s, start)
	if tc.frame != nil {
		if md == nil {
			tc.frame.Match = nil
		} else {
			tc.frame.Match = md
		}
	}
	return md
}

// toRegexp converts a pattern argument; strings match literally.
func (tc *ThreadContext) toRegexp(v Value) *Regexp {
	switch x := v.(type) {
	case *Regexp:
		return x
	case *String:
		return tc.NewRegexp(regexpEscape(x.S), 0)
	}
	tc.Raise(tc.rt.TypeError, "wrong argument type %s (expected Regexp)", tc.rt.RealClassOf(v).Name())
	return nil
}

func regexpEscape(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '.', '*', '?', '+', '^', '$', '|', '(', ')', '[', ']', '{', '}', '\\', '/', '-':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case ' ':
			sb.WriteString(`\ `)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// Group returns group n, or nil when it did not participate.
func (md *MatchData) Group(n int) Value {
	if n < 0 || 2*n >= len(md.offs) || md.offs[2*n] < 0 {
		return nil
	}
	return NewString(md.Str[md.offs[2*n]:md.offs[2*n+1]])
}

// Begin and End return the byte offsets of group n.
func (md *MatchData) Begin(n int) int { return md.offs[2*n] }
func (md *MatchData) End(n int) int   { return md.offs[2*n+1] }

// NumGroups counts the groups including the whole match.
func (md *MatchData) NumGroups() int { return len(md.offs) / 2 }

func (md *MatchData) preMatch() string  { return md.Str[:md.offs[0]] }
func (md *MatchData) postMatch() string { return md.Str[md.offs[1]:] }

// backRef reads $&, $`, $' and $+.
func backRef(match Value, kind byte) Value {
	md, ok := match.(*MatchData)
	if !ok {
		return nil
	}
	switch kind {
	case '&':
		return md.Group(0)
	case '`':
		return NewString(md.preMatch())
	case '\'':
		return NewString(md.postMatch())
	case '+':
		for i := md.NumGroups() - 1; i > 0; i-- {
			if v := md.Group(i); v != nil {
				return v
			}
		}
	}
	return nil
}

// nthRef reads $1, $2, ...
func nthRef(match Value, n int) Value {
	md, ok := match.(*MatchData)
	if !ok {
		return nil
	}
	return md.Group(n)
}

// expandReplacement substitutes \0-\9, \&, \`, \' and \\ in a sub/gsub
// replacement string.
func expandReplacement(repl string, md *MatchData) string {
	if !strings.Contains(repl, `\`) {
		return repl
	}
	var sb strings.Builder
	for i := 0; i < len(repl); i++ {
		c := repl[i]
		if c != '\\' || i+1 == len(repl) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch d := repl[i]; {
		case d >= '0' && d <= '9':
			if g, ok := md.Group(int(d - '0')).(*String); ok {
				sb.WriteString(g.S)
			}
		case d == '&':
			sb.WriteString(md.Str[md.offs[0]:md.offs[1]])
		case d == '`':
			sb.WriteString(md.preMatch())
		case d == '\'':
			sb.WriteString(md.postMatch())
		case d == '\\':
			sb.WriteByte('\\')
		default:
			sb.WriteByte('\\')
			sb.WriteByte(d)
		}
	}
	return sb.String()
}

func regexpOptionString(opts int) string {
	s := ""
	if opts&RegexpMultiline != 0 {
		s += "m"
	}
	if opts&RegexpIgnoreCase != 0 {
		s += "i"
	}
	if opts&RegexpExtended != 0 {
		s += "x"
	}
	return s
}

// ---------------------------------------------------------------------------
// Regexp primitives
// ---------------------------------------------------------------------------

func (rt *Runtime) registerRegexpPrimitives() {
	r := rt.Regexp
	meta := rt.metaclass(r)
	r.alloc = nil

	r.SetConstant("IGNORECASE", int64(RegexpIgnoreCase))
	r.SetConstant("EXTENDED", int64(RegexpExtended))
	r.SetConstant("MULTILINE", int64(RegexpMultiline))

	newRegexp := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 1, 3)
		if re, ok := args[0].(*Regexp); ok {
			cp := tc.NewRegexp(re.Source, re.Options)
			cp.class = self.(*Class)
			return cp
		}
		opts := 0
		if len(args) > 1 {
			switch o := args[1].(type) {
			case int64:
				opts = int(o)
			case nil, bool:
				if Truthy(o) {
					opts = RegexpIgnoreCase
				}
			default:
				opts = RegexpIgnoreCase
			}
		}
		re := tc.NewRegexp(tc.AsString(args[0]).S, opts)
		re.class = self.(*Class)
		return re
	}
	// Regexp.new, Regexp.compile - compile a pattern
	meta.AddMethod("new", -2, newRegexp)
	meta.AddMethod("compile", -2, newRegexp)

	escape := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return NewString(regexpEscape(tc.symbolArg(args[0])))
	}
	// Regexp.escape, Regexp.quote - escape metacharacters
	meta.AddMethod("escape", 1, escape)
	meta.AddMethod("quote", 1, escape)

	// Regexp.union - a regexp matching any of the arguments
	meta.AddMethod("union", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if len(args) == 1 {
			if a, ok := args[0].(*Array); ok {
				args = a.Elems
			}
		}
		if len(args) == 0 {
			return tc.NewRegexp("(?!)", 0)
		}
		parts := make([]string, len(args))
		for i, a := range args {
			if re, ok := a.(*Regexp); ok {
				parts[i] = regexpToS(re)
			} else {
				parts[i] = regexpEscape(tc.AsString(a).S)
			}
		}
		return tc.NewRegexp(strings.Join(parts, "|"), 0)
	})

	// Regexp.last_match - $~, or one of its groups
	meta.AddMethod("last_match", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 0, 1)
		m := tc.GetGlobal("$~")
		if len(args) == 0 {
			return m
		}
		return nthRef(m, int(tc.intArg(args[0])))
	})

	// source - the pattern text
	r.AddMethod("source", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return NewString(self.(*Regexp).Source)
	})

	// options - the option bits
	r.AddMethod("options", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return int64(self.(*Regexp).Options)
	})

	// casefold? - whether /i was given
	r.AddMethod("casefold?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return self.(*Regexp).Options&RegexpIgnoreCase != 0
	})

	// =~ - index of the first match, setting $~
	r.AddMethod("=~", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if args[0] == nil {
			tc.frame.Match = nil
			return nil
		}
		md := tc.matchInto(self.(*Regexp), tc.stringArg(args[0]), 0)
		if md == nil {
			return nil
		}
		return int64(md.Begin(0))
	})

	// match - the MatchData of the first match, setting $~
	r.AddMethod("match", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if args[0] == nil {
			tc.frame.Match = nil
			return nil
		}
		md := tc.matchInto(self.(*Regexp), tc.stringArg(args[0]), 0)
		if md == nil {
			return nil
		}
		return md
	})

	// === - whether a string matches, false for non-strings
	r.AddMethod("===", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		var s string
		switch x := args[0].(type) {
		case *String:
			s = x.S
		case Symbol:
			s = string(x)
		default:
			return false
		}
		return tc.matchInto(self.(*Regexp), s, 0) != nil
	})

	// ~ - match against $_
	r.AddMethod("~", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		line, ok := tc.GetGlobal("$_").(*String)
		if !ok {
			return nil
		}
		md := tc.matchInto(self.(*Regexp), line.S, 0)
		if md == nil {
			return nil
		}
		return int64(md.Begin(0))
	})

	// to_s - (?opts-opts:source)
	r.AddMethod("to_s", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return NewString(regexpToS(self.(*Regexp)))
	})

	// inspect - /source/opts
	r.AddMethod("inspect", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		re := self.(*Regexp)
		return NewString("/" + strings.ReplaceAll(re.Source, "/", `\/`) + "/" + regexpOptionString(re.Options))
	})

	eq := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		o, ok := args[0].(*Regexp)
		re := self.(*Regexp)
		return ok && o.Source == re.Source && o.Options == re.Options
	}
	// ==, eql? - same source and options
	r.AddMethod("==", 1, eq)
	r.AddMethod("eql?", 1, eq)

	// hash - hash of source and options
	r.AddMethod("hash", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		re := self.(*Regexp)
		return rt.hashCode(NewString(re.Source+"/"+regexpOptionString(re.Options)))
	})

	rt.registerMatchDataPrimitives()
}

func regexpToS(re *Regexp) string {
	on := regexpOptionString(re.Options)
	off := ""
	for _, c := range "mix" {
		if !strings.ContainsRune(on, c) {
			off += string(c)
		}
	}
	if off != "" {
		off = "-" + off
	}
	return "(?" + on + off + ":" + re.Source + ")"
}

// stringArg converts a string argument with to_str.
func (tc *ThreadContext) stringArg(v Value) string {
	switch x := v.(type) {
	case *String:
		return x.S
	case Symbol:
		return string(x)
	}
	if tc.RespondTo(v, "to_str") {
		if s, ok := tc.Send(v, "to_str").(*String); ok {
			return s.S
		}
	}
	tc.Raise(tc.rt.TypeError, "can't convert %s into String", describeCoerced(tc, v))
	return ""
}

// ---------------------------------------------------------------------------
// MatchData primitives
// ---------------------------------------------------------------------------

func (rt *Runtime) registerMatchDataPrimitives() {
	m := rt.MatchData

	group := func(tc *ThreadContext, md *MatchData, v Value) Value {
		switch x := v.(type) {
		case *String, Symbol:
			name := tc.symbolArg(x)
			n := md.Regexp.re.GroupNumberFromName(name)
			if n < 0 {
				tc.Raise(rt.IndexError, "undefined group name reference: %s", name)
			}
			return md.Group(n)
		}
		n := int(tc.intArg(v))
		if n < 0 {
			n += md.NumGroups()
		}
		return md.Group(n)
	}

	// [] - a group by number or name, or a slice of to_a
	m.AddMethod("[]", -2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 1, 2)
		md := self.(*MatchData)
		if _, isRange := args[0].(*Range); isRange || len(args) == 2 {
			return tc.Send(matchArray(md), "[]", args...)
		}
		return group(tc, md, args[0])
	})

	// to_a - the whole match and the groups
	m.AddMethod("to_a", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return matchArray(self.(*MatchData))
	})

	// captures - the groups
	m.AddMethod("captures", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		a := matchArray(self.(*MatchData))
		return NewArray(a.Elems[1:]...)
	})

	// values_at - selected groups
	m.AddMethod("values_at", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		md := self.(*MatchData)
		out := NewArray()
		for _, a := range args {
			out.Elems = append(out.Elems, group(tc, md, a))
		}
		return out
	})

	offset := func(tc *ThreadContext, md *MatchData, v Value) int {
		n := int(tc.intArg(v))
		if n < 0 || n >= md.NumGroups() {
			tc.Raise(rt.IndexError, "index %d out of matches", n)
		}
		return n
	}

	// begin - start offset of a group
	m.AddMethod("begin", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		md := self.(*MatchData)
		n := offset(tc, md, args[0])
		if md.Begin(n) < 0 {
			return nil
		}
		return int64(md.Begin(n))
	})

	// end - end offset of a group
	m.AddMethod("end", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		md := self.(*MatchData)
		n := offset(tc, md, args[0])
		if md.End(n) < 0 {
			return nil
		}
		return int64(md.End(n))
	})

	// offset - [begin, end] of a group
	m.AddMethod("offset", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		md := self.(*MatchData)
		n := offset(tc, md, args[0])
		if md.Begin(n) < 0 {
			return NewArray(nil, nil)
		}
		return NewArray(int64(md.Begin(n)), int64(md.End(n)))
	})

	// pre_match - text before the match
	m.AddMethod("pre_match", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return NewString(self.(*MatchData).preMatch())
	})

	// post_match - text after the match
	m.AddMethod("post_match", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return NewString(self.(*MatchData).postMatch())
	})

	// to_s - the whole match
	m.AddMethod("to_s", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return self.(*MatchData).Group(0)
	})

	size := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return int64(self.(*MatchData).NumGroups())
	}
	// size, length - number of groups including the match
	m.AddMethod("size", 0, size)
	m.AddMethod("length", 0, size)

	// string - frozen copy of the matched string
	m.AddMethod("string", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		s := NewString(self.(*MatchData).Str)
		s.frozen = true
		return s
	})

	// regexp - the pattern that matched
	m.AddMethod("regexp", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return self.(*MatchData).Regexp
	})

	// inspect - #<MatchData "match">
	m.AddMethod("inspect", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		md := self.(*MatchData)
		var sb strings.Builder
		sb.WriteString("#<MatchData ")
		sb.WriteString(tc.Inspect(md.Group(0)))
		for i := 1; i < md.NumGroups(); i++ {
			sb.WriteString(" ")
			sb.WriteString(strconv.Itoa(i))
			sb.WriteString(":")
			sb.WriteString(tc.Inspect(md.Group(i)))
		}
		sb.WriteString(">")
		return NewString(sb.String())
	})
}

func matchArray(md *MatchData) *Array {
	out := NewArray()
	for i := 0; i < md.NumGroups(); i++ {
		out.Elems = append(out.Elems, md.Group(i))
	}
	return out
}
