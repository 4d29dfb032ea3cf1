package vm

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// checkFrozen raises TypeError when v may not be modified.
func (tc *ThreadContext) checkFrozen(v Value) {
	if h, ok := v.(HeapValue); ok && h.basic().frozen {
		tc.Raise(tc.rt.TypeError, "can't modify frozen %s", strings.ToLower(tc.rt.RealClassOf(v).Name()))
	}
}

// substrBounds applies the start/length rules shared by String#[] and
// Array#[]: negative starts count from the end, lengths are clamped.
func substrBounds(start, n, length int) (int, int, bool) {
	if start < 0 {
		start += length
	}
	if start < 0 || start > length || n < 0 {
		return 0, 0, false
	}
	if start+n > length {
		n = length - start
	}
	return start, n, true
}

// ---------------------------------------------------------------------------
// Character sets for tr, delete, squeeze and count
// ---------------------------------------------------------------------------

// expandCharList expands a-z ranges and escapes. A leading ^ negates the
// list when it is not the only character.
func expandCharList(spec string) (list []byte, neg bool) {
	if len(spec) > 1 && spec[0] == '^' {
		neg = true
		spec = spec[1:]
	}
	for i := 0; i < len(spec); i++ {
		c := spec[i]
		if c == '\\' && i+1 < len(spec) {
			i++
			list = append(list, spec[i])
			continue
		}
		if i+2 < len(spec) && spec[i+1] == '-' {
			hi := spec[i+2]
			for x := int(c); x <= int(hi); x++ {
				list = append(list, byte(x))
			}
			i += 2
			continue
		}
		list = append(list, c)
	}
	return list, neg
}

type charSet [256]bool

// charSetOf intersects the given specs, as String#count does.
func (tc *ThreadContext) charSetOf(args []Value) *charSet {
	if len(args) == 0 {
		tc.Raise(tc.rt.ArgumentError, "wrong number of arguments")
	}
	var set charSet
	for i := range set {
		set[i] = true
	}
	for _, a := range args {
		list, neg := expandCharList(tc.stringArg(a))
		var one charSet
		for _, c := range list {
			one[c] = true
		}
		for i := range set {
			set[i] = set[i] && one[i] != neg
		}
	}
	return &set
}

func strTr(s, from, to string, squeeze bool) string {
	fromList, neg := expandCharList(from)
	toList, _ := expandCharList(to)
	var in charSet
	for _, c := range fromList {
		in[c] = true
	}
	var trans [256]int
	for i := range trans {
		trans[i] = -1
	}
	if len(toList) > 0 {
		last := toList[len(toList)-1]
		if neg {
			for i := range trans {
				if !in[i] {
					trans[i] = int(last)
				}
			}
		} else {
			for i, c := range fromList {
				if i < len(toList) {
					trans[c] = int(toList[i])
				} else {
					trans[c] = int(last)
				}
			}
		}
	}
	var sb strings.Builder
	lastOut := -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		matched := in[c] != neg
		if !matched {
			sb.WriteByte(c)
			lastOut = -1
			continue
		}
		if trans[c] < 0 {
			continue
		}
		if squeeze && lastOut == trans[c] {
			continue
		}
		sb.WriteByte(byte(trans[c]))
		lastOut = trans[c]
	}
	return sb.String()
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// strSucc increments the rightmost alphanumeric, carrying leftwards.
func strSucc(s string) string {
	if s == "" {
		return ""
	}
	b := []byte(s)
	i := len(b) - 1
	for i >= 0 && !isAlnum(b[i]) {
		i--
	}
	if i < 0 {
		for j := len(b) - 1; j >= 0; j-- {
			if b[j] < 0xff {
				b[j]++
				return string(b)
			}
			b[j] = 0
		}
		return "\x01" + string(b)
	}
	for {
		var carry byte
		switch c := b[i]; c {
		case 'z':
			b[i], carry = 'a', 'a'
		case 'Z':
			b[i], carry = 'A', 'A'
		case '9':
			b[i], carry = '0', '1'
		default:
			b[i]++
			return string(b)
		}
		j := i - 1
		for j >= 0 && !isAlnum(b[j]) {
			j--
		}
		if j < 0 {
			return string(b[:i]) + string(carry) + string(b[i:])
		}
		i = j
	}
}

// parseFloatPrefix reads the longest float at the start of s, ignoring
// leading whitespace and underscores between digits.
func parseFloatPrefix(s string) float64 {
	s = strings.TrimLeft(s, " \t\n\v\f\r")
	var sb strings.Builder
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		sb.WriteByte(s[i])
		i++
	}
	digits := func() bool {
		start := sb.Len()
		for i < len(s) {
			c := s[i]
			if c >= '0' && c <= '9' {
				sb.WriteByte(c)
			} else if c != '_' || sb.Len() == start || i+1 >= len(s) || s[i+1] < '0' || s[i+1] > '9' {
				break
			}
			i++
		}
		return sb.Len() > start
	}
	if !digits() {
		return 0
	}
	if i+1 < len(s) && s[i] == '.' && s[i+1] >= '0' && s[i+1] <= '9' {
		sb.WriteByte('.')
		i++
		digits()
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		n := sb.Len()
		sb.WriteByte('e')
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			sb.WriteByte(s[i])
			i++
		}
		if !digits() {
			str := sb.String()[:n]
			sb.Reset()
			sb.WriteString(str)
		}
	}
	f, err := strconv.ParseFloat(sb.String(), 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f
		}
		return 0
	}
	return f
}

// splitLines cuts s after every occurrence of sep, keeping it.
func splitLines(s, sep string) []string {
	var out []string
	if sep == "" {
		// paragraph mode
		for s != "" {
			i := strings.Index(s, "\n\n")
			if i < 0 {
				out = append(out, s)
				break
			}
			j := i + 2
			for j < len(s) && s[j] == '\n' {
				j++
			}
			out = append(out, s[:j])
			s = s[j:]
		}
		return out
	}
	for s != "" {
		i := strings.Index(s, sep)
		if i < 0 {
			out = append(out, s)
			break
		}
		out = append(out, s[:i+len(sep)])
		s = s[i+len(sep):]
	}
	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\v' || c == '\f' || c == '\r'
}

func chomp(s string, sep string, defaultSep bool) string {
	if defaultSep {
		switch {
		case strings.HasSuffix(s, "\r\n"):
			return s[:len(s)-2]
		case strings.HasSuffix(s, "\n"), strings.HasSuffix(s, "\r"):
			return s[:len(s)-1]
		}
		return s
	}
	if sep == "" {
		return strings.TrimRight(s, "\n")
	}
	return strings.TrimSuffix(s, sep)
}

func chop(s string) string {
	switch {
	case s == "":
		return s
	case strings.HasSuffix(s, "\r\n"):
		return s[:len(s)-2]
	}
	return s[:len(s)-1]
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func swapcase(s string) string {
	b := []byte(s)
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z':
			b[i] = c - 32
		case c >= 'A' && c <= 'Z':
			b[i] = c + 32
		}
	}
	return string(b)
}

func asciiUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}

func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}

func justify(s string, width int, padding string, mode byte) string {
	n := width - len(s)
	if n <= 0 {
		return s
	}
	fill := func(k int) string {
		var sb strings.Builder
		for sb.Len() < k {
			sb.WriteString(padding)
		}
		return sb.String()[:k]
	}
	switch mode {
	case 'l':
		return s + fill(n)
	case 'r':
		return fill(n) + s
	}
	left := n / 2
	return fill(left) + s + fill(n-left)
}

// ---------------------------------------------------------------------------
// Substitution and splitting
// ---------------------------------------------------------------------------

// substitute implements sub and gsub. The replacement is either a string
// with back-references or, when repl is nil, the block's result.
func (tc *ThreadContext) substitute(s string, pat Value, repl *String, blk *Block, global bool) (string, bool) {
	re := tc.toRegexp(pat)
	var sb strings.Builder
	pos, last := 0, 0
	changed := false
	for pos <= len(s) {
		md := tc.matchInto(re, s, pos)
		if md == nil {
			break
		}
		changed = true
		b, e := md.Begin(0), md.End(0)
		sb.WriteString(s[last:b])
		if repl != nil {
			sb.WriteString(expandReplacement(repl.S, md))
		} else {
			sb.WriteString(tc.AsString(tc.Yield(blk, md.Group(0))).S)
			tc.frame.Match = md
		}
		last = e
		if !global {
			break
		}
		if b == e {
			if e >= len(s) {
				break
			}
			_, w := decodeByteRune(s[e:])
			sb.WriteString(s[e : e+w])
			last = e + w
			pos = e + w
			continue
		}
		pos = e
	}
	if !changed {
		return s, false
	}
	sb.WriteString(s[min(last, len(s)):])
	return sb.String(), true
}

func decodeByteRune(s string) (rune, int) {
	return utf8.DecodeRuneInString(s)
}

// split implements String#split: awk-style on whitespace, otherwise on a
// pattern, with captured groups included in the result.
func (tc *ThreadContext) split(s string, args []Value) *Array {
	tc.checkArity(args, 0, 2)
	var pat Value
	if len(args) > 0 {
		pat = args[0]
	}
	if pat == nil {
		pat = tc.GetGlobal("$;")
	}
	lim, limited := 0, false
	if len(args) == 2 {
		lim = int(tc.intArg(args[1]))
		if lim == 1 {
			if s == "" {
				return NewArray()
			}
			return NewArray(NewString(s))
		}
		limited = lim > 0
	}
	out := NewArray()
	push := func(x string) { out.Elems = append(out.Elems, NewString(x)) }
	count := 1
	beg := 0
	awk := pat == nil
	if str, ok := pat.(*String); ok && str.S == " " {
		awk = true
	}
	if awk {
		skip, end := true, 0
		for i := 0; i < len(s); i++ {
			c := s[i]
			if skip {
				if isSpace(c) {
					beg = i + 1
				} else {
					end = i + 1
					skip = false
					if limited && lim <= count {
						break
					}
				}
			} else if isSpace(c) {
				push(s[beg:end])
				skip = true
				beg = i + 1
				if limited {
					count++
				}
			} else {
				end = i + 1
			}
		}
	} else {
		re := tc.toRegexp(pat)
		start, lastNull := 0, false
		for {
			md := tc.search(re, s, start)
			if md == nil {
				break
			}
			b, e := md.Begin(0), md.End(0)
			if start == b && b == e {
				if s == "" {
					push("")
					break
				}
				if lastNull {
					_, w := decodeByteRune(s[beg:])
					push(s[beg : beg+w])
					beg = start
				} else {
					if start >= len(s) {
						break
					}
					_, w := decodeByteRune(s[start:])
					start += w
					lastNull = true
					continue
				}
			} else {
				push(s[beg:b])
				beg, start = e, e
			}
			lastNull = false
			for g := 1; g < md.NumGroups(); g++ {
				if md.Begin(g) >= 0 {
					push(s[md.Begin(g):md.End(g)])
				}
			}
			if limited {
				count++
				if lim <= count {
					break
				}
			}
		}
	}
	if len(s) > 0 && (limited || len(s) > beg || lim < 0) {
		push(s[min(beg, len(s)):])
	}
	if !limited && lim == 0 {
		for len(out.Elems) > 0 && out.Elems[len(out.Elems)-1].(*String).S == "" {
			out.Elems = out.Elems[:len(out.Elems)-1]
		}
	}
	return out
}

// scan collects every match of pat, yielding each when a block is given.
func (tc *ThreadContext) scan(s string, pat Value, blk *Block) Value {
	re := tc.toRegexp(pat)
	out := NewArray()
	pos := 0
	for pos <= len(s) {
		md := tc.matchInto(re, s, pos)
		if md == nil {
			break
		}
		var item Value
		if md.NumGroups() == 1 {
			item = md.Group(0)
		} else {
			item = NewArray(matchArray(md).Elems[1:]...)
		}
		if blk.IsGiven() {
			tc.Yield(blk, item)
			tc.frame.Match = md
		} else {
			out.Elems = append(out.Elems, item)
		}
		if md.End(0) == md.Begin(0) {
			if md.End(0) >= len(s) {
				break
			}
			_, w := decodeByteRune(s[md.End(0):])
			pos = md.End(0) + w
		} else {
			pos = md.End(0)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// String primitives
// ---------------------------------------------------------------------------

func (rt *Runtime) registerStringPrimitives() {
	c := rt.String

	str := func(v Value) *String { return v.(*String) }
	mutate := func(tc *ThreadContext, self Value, s string) {
		tc.checkFrozen(self)
		str(self).S = s
	}

	// initialize - copy the optional argument
	c.AddPrivateMethod("initialize", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 0, 1)
		if len(args) == 1 {
			mutate(tc, self, tc.stringArg(args[0]))
		}
		return nil
	})

	// initialize_copy, replace - take the other string's content
	replace := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		mutate(tc, self, tc.stringArg(args[0]))
		return self
	}
	c.AddPrivateMethod("initialize_copy", 1, replace)
	c.AddMethod("replace", 1, replace)

	// == - same content; non-strings answer via to_str
	c.AddMethod("==", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if o, ok := args[0].(*String); ok {
			return str(self).S == o.S
		}
		if tc.RespondTo(args[0], "to_str") {
			return Truthy(tc.Send(args[0], "==", self))
		}
		return false
	})

	// eql? - same content and both strings
	c.AddMethod("eql?", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		o, ok := args[0].(*String)
		return ok && o.S == str(self).S
	})

	// hash - content hash
	c.AddMethod("hash", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return rt.hashCode(self)
	})

	// <=> - byte order, nil for non-strings
	c.AddMethod("<=>", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		o, ok := args[0].(*String)
		if !ok {
			return nil
		}
		return int64(strings.Compare(str(self).S, o.S))
	})

	// casecmp - case-insensitive <=>
	c.AddMethod("casecmp", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return int64(strings.Compare(asciiLower(str(self).S), asciiLower(tc.stringArg(args[0]))))
	})

	// + - concatenation
	c.AddMethod("+", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return NewString(str(self).S + tc.stringArg(args[0]))
	})

	// * - repetition
	c.AddMethod("*", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		n := tc.intArg(args[0])
		if n < 0 {
			tc.Raise(rt.ArgumentError, "negative argument")
		}
		if n > 0 && len(str(self).S) > math.MaxInt32/int(n) {
			tc.Raise(rt.ArgumentError, "argument too big")
		}
		return NewString(strings.Repeat(str(self).S, int(n)))
	})

	// % - format with an argument or an array of arguments
	c.AddMethod("%", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		fargs := []Value{args[0]}
		if a, ok := args[0].(*Array); ok {
			fargs = a.Elems
		}
		return NewString(tc.format(str(self).S, fargs))
	})

	appendFn := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		s := str(self)
		tc.checkFrozen(self)
		if n, ok := args[0].(int64); ok {
			if n < 0 || n > 255 {
				tc.Raise(rt.TypeError, "can't convert Fixnum into String")
			}
			s.S += string([]byte{byte(n)})
			return self
		}
		s.S += tc.stringArg(args[0])
		return self
	}
	// <<, concat - append in place
	c.AddMethod("<<", 1, appendFn)
	c.AddMethod("concat", 1, appendFn)

	// =~ - match a regexp
	c.AddMethod("=~", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		switch x := args[0].(type) {
		case *String:
			tc.Raise(rt.TypeError, "type mismatch: String given")
		case *Regexp:
			md := tc.matchInto(x, str(self).S, 0)
			if md == nil {
				return nil
			}
			return int64(md.Begin(0))
		}
		return tc.Send(args[0], "=~", self)
	})

	// match - Regexp#match with the argument converted
	c.AddMethod("match", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		re := args[0]
		if s, ok := re.(*String); ok {
			re = tc.NewRegexp(s.S, 0)
		}
		return tc.Send(re, "match", self)
	})

	// [] - byte, substring, range, matched text or contained string
	aref := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 1, 2)
		s := str(self).S
		if len(args) == 2 {
			if re, ok := args[0].(*Regexp); ok {
				md := tc.matchInto(re, s, 0)
				if md == nil {
					return nil
				}
				return md.Group(int(tc.intArg(args[1])))
			}
			start, n, ok := substrBounds(int(tc.intArg(args[0])), int(tc.intArg(args[1])), len(s))
			if !ok {
				return nil
			}
			return NewString(s[start : start+n])
		}
		switch x := args[0].(type) {
		case *Range:
			start, n, ok := tc.rangeBounds(x, len(s))
			if !ok {
				return nil
			}
			return NewString(s[start : start+n])
		case *String:
			if strings.Contains(s, x.S) {
				return NewString(x.S)
			}
			return nil
		case *Regexp:
			md := tc.matchInto(x, s, 0)
			if md == nil {
				return nil
			}
			return md.Group(0)
		}
		i := int(tc.intArg(args[0]))
		if i < 0 {
			i += len(s)
		}
		if i < 0 || i >= len(s) {
			return nil
		}
		return int64(s[i])
	}
	c.AddMethod("[]", -2, aref)
	c.AddMethod("slice", -2, aref)

	// []= - replace a byte, substring, range or matched text
	c.AddMethod("[]=", -3, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 2, 3)
		tc.checkFrozen(self)
		s := str(self).S
		val := args[len(args)-1]
		splice := func(start, n int) {
			var repl string
			if b, ok := val.(int64); ok && len(args) == 2 {
				repl = string([]byte{byte(b)})
			} else {
				repl = tc.stringArg(val)
			}
			str(self).S = s[:start] + repl + s[start+n:]
		}
		if len(args) == 3 {
			if re, ok := args[0].(*Regexp); ok {
				md := tc.matchInto(re, s, 0)
				if md == nil {
					tc.Raise(rt.IndexError, "regexp not matched")
				}
				g := int(tc.intArg(args[1]))
				if g < 0 || g >= md.NumGroups() || md.Begin(g) < 0 {
					tc.Raise(rt.IndexError, "index %d out of regexp", g)
				}
				splice(md.Begin(g), md.End(g)-md.Begin(g))
				return val
			}
			i, n := int(tc.intArg(args[0])), int(tc.intArg(args[1]))
			if n < 0 {
				tc.Raise(rt.IndexError, "negative length %d", n)
			}
			start, cnt, ok := substrBounds(i, n, len(s))
			if !ok {
				tc.Raise(rt.IndexError, "index %d out of string", i)
			}
			splice(start, cnt)
			return val
		}
		switch x := args[0].(type) {
		case *Range:
			start, n, ok := tc.rangeBounds(x, len(s))
			if !ok {
				tc.Raise(rt.RangeError, "%s out of range", tc.Inspect(x))
			}
			splice(start, n)
		case *String:
			i := strings.Index(s, x.S)
			if i < 0 {
				tc.Raise(rt.IndexError, "string not matched")
			}
			splice(i, len(x.S))
		case *Regexp:
			md := tc.matchInto(x, s, 0)
			if md == nil {
				tc.Raise(rt.IndexError, "regexp not matched")
			}
			splice(md.Begin(0), md.End(0)-md.Begin(0))
		default:
			i := int(tc.intArg(args[0]))
			j := i
			if j < 0 {
				j += len(s)
			}
			if j < 0 || j >= len(s) {
				tc.Raise(rt.IndexError, "index %d out of string", i)
			}
			splice(j, 1)
		}
		return val
	})

	// slice! - remove and return what [] would return
	c.AddMethod("slice!", -2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkFrozen(self)
		s := str(self).S
		v := aref(tc, self, args, blk)
		if v == nil {
			return nil
		}
		switch x := v.(type) {
		case int64:
			i := int(tc.intArg(args[0]))
			if i < 0 {
				i += len(s)
			}
			str(self).S = s[:i] + s[i+1:]
			return x
		case *String:
			var start int
			switch a := args[0].(type) {
			case *Range:
				start, _, _ = tc.rangeBounds(a, len(s))
			case *Regexp:
				g := 0
				if len(args) == 2 {
					g = int(tc.intArg(args[1]))
				}
				start = tc.frame.Match.(*MatchData).Begin(g)
			case *String:
				start = strings.Index(s, a.S)
			default:
				start, _, _ = substrBounds(int(tc.intArg(args[0])), 0, len(s))
			}
			str(self).S = s[:start] + s[start+len(x.S):]
		}
		return v
	})

	length := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return int64(len(str(self).S))
	}
	// length, size - number of bytes
	c.AddMethod("length", 0, length)
	c.AddMethod("size", 0, length)

	// empty? - zero length
	c.AddMethod("empty?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return str(self).S == ""
	})

	toS := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if tc.rt.ClassOf(self) == rt.String {
			return self
		}
		return NewString(str(self).S)
	}
	// to_s, to_str - the receiver as a plain String
	c.AddMethod("to_s", 0, toS)
	c.AddMethod("to_str", 0, toS)

	toSym := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		s := str(self).S
		if s == "" {
			tc.Raise(rt.ArgumentError, "interning empty string")
		}
		return Symbol(s)
	}
	// to_sym, intern - the symbol with this name
	c.AddMethod("to_sym", 0, toSym)
	c.AddMethod("intern", 0, toSym)

	// to_i - leading integer in the given base
	c.AddMethod("to_i", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 0, 1)
		base := 10
		if len(args) == 1 {
			base = int(tc.intArg(args[0]))
			if base < 2 || base > 36 {
				tc.Raise(rt.ArgumentError, "illegal radix %d", base)
			}
		}
		v, _ := parseInteger(str(self).S, base, false)
		return v
	})

	// hex - leading hexadecimal integer
	c.AddMethod("hex", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		v, _ := parseInteger(str(self).S, 16, false)
		return v
	})

	// oct - leading octal integer, honoring 0x and 0b prefixes
	c.AddMethod("oct", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		s := strings.TrimLeft(str(self).S, " \t\n\v\f\r")
		body := strings.TrimLeft(s, "+-")
		base := 8
		if len(body) > 1 && body[0] == '0' {
			switch body[1] {
			case 'x', 'X':
				base = 16
			case 'b', 'B':
				base = 2
			}
		}
		v, _ := parseInteger(s, base, false)
		return v
	})

	// to_f - leading float
	c.AddMethod("to_f", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return parseFloatPrefix(str(self).S)
	})

	inspect := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return NewString(InspectString(str(self).S))
	}
	// inspect, dump - quoted with escapes
	c.AddMethod("inspect", 0, inspect)
	c.AddMethod("dump", 0, inspect)

	// transform defines name and name!, where the bang form answers nil
	// when nothing changed.
	transform := func(name string, arity int, fn func(tc *ThreadContext, s string, args []Value) string) {
		c.AddMethod(name, arity, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
			return NewString(fn(tc, str(self).S, args))
		})
		c.AddMethod(name+"!", arity, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
			tc.checkFrozen(self)
			s := str(self)
			out := fn(tc, s.S, args)
			if out == s.S {
				return nil
			}
			s.S = out
			return self
		})
	}
	// upcase, downcase, capitalize, swapcase and their bang forms
	transform("upcase", 0, func(tc *ThreadContext, s string, args []Value) string { return asciiUpper(s) })
	transform("downcase", 0, func(tc *ThreadContext, s string, args []Value) string { return asciiLower(s) })
	transform("capitalize", 0, func(tc *ThreadContext, s string, args []Value) string { return capitalize(s) })
	transform("swapcase", 0, func(tc *ThreadContext, s string, args []Value) string { return swapcase(s) })

	// strip, lstrip, rstrip - remove surrounding whitespace
	transform("strip", 0, func(tc *ThreadContext, s string, args []Value) string {
		return strings.TrimRight(strings.TrimLeft(s, " \t\n\v\f\r"), " \t\n\v\f\r\x00")
	})
	transform("lstrip", 0, func(tc *ThreadContext, s string, args []Value) string {
		return strings.TrimLeft(s, " \t\n\v\f\r")
	})
	transform("rstrip", 0, func(tc *ThreadContext, s string, args []Value) string {
		return strings.TrimRight(s, " \t\n\v\f\r\x00")
	})

	// chomp - remove a trailing separator
	transform("chomp", -1, func(tc *ThreadContext, s string, args []Value) string {
		tc.checkArity(args, 0, 1)
		if len(args) == 0 {
			sep, ok := tc.GetGlobal("$/").(*String)
			if !ok {
				return s
			}
			if sep.S == "\n" {
				return chomp(s, "", true)
			}
			return chomp(s, sep.S, false)
		}
		if args[0] == nil {
			return s
		}
		return chomp(s, tc.stringArg(args[0]), false)
	})

	// chop - remove the last character
	transform("chop", 0, func(tc *ThreadContext, s string, args []Value) string { return chop(s) })

	// reverse - bytes in reverse order
	transform("reverse", 0, func(tc *ThreadContext, s string, args []Value) string {
		b := []byte(s)
		for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
			b[i], b[j] = b[j], b[i]
		}
		return string(b)
	})

	// tr, tr_s - translate characters
	transform("tr", 2, func(tc *ThreadContext, s string, args []Value) string {
		return strTr(s, tc.stringArg(args[0]), tc.stringArg(args[1]), false)
	})
	transform("tr_s", 2, func(tc *ThreadContext, s string, args []Value) string {
		return strTr(s, tc.stringArg(args[0]), tc.stringArg(args[1]), true)
	})

	// delete - remove characters in the intersection of the sets
	transform("delete", -2, func(tc *ThreadContext, s string, args []Value) string {
		set := tc.charSetOf(args)
		var sb strings.Builder
		for i := 0; i < len(s); i++ {
			if !set[s[i]] {
				sb.WriteByte(s[i])
			}
		}
		return sb.String()
	})

	// squeeze - collapse runs of the same character
	transform("squeeze", -1, func(tc *ThreadContext, s string, args []Value) string {
		var set *charSet
		if len(args) > 0 {
			set = tc.charSetOf(args)
		}
		var sb strings.Builder
		for i := 0; i < len(s); i++ {
			if i > 0 && s[i] == s[i-1] && (set == nil || set[s[i]]) {
				continue
			}
			sb.WriteByte(s[i])
		}
		return sb.String()
	})

	// sub, gsub - replace the first or every match
	for _, global := range []bool{false, true} {
		global := global
		name := "sub"
		if global {
			name = "gsub"
		}
		prepare := func(tc *ThreadContext, args []Value, blk *Block) *String {
			if len(args) == 2 {
				return NewString(tc.stringArg(args[1]))
			}
			if len(args) != 1 || !blk.IsGiven() {
				tc.argumentCountError(len(args), 2)
			}
			return nil
		}
		c.AddMethod(name, -2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
			repl := prepare(tc, args, blk)
			out, _ := tc.substitute(str(self).S, args[0], repl, blk, global)
			return NewString(out)
		})
		c.AddMethod(name+"!", -2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
			repl := prepare(tc, args, blk)
			tc.checkFrozen(self)
			out, changed := tc.substitute(str(self).S, args[0], repl, blk, global)
			if !changed {
				return nil
			}
			str(self).S = out
			return self
		})
	}

	// include? - contains a substring or byte
	c.AddMethod("include?", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if b, ok := args[0].(int64); ok {
			return strings.IndexByte(str(self).S, byte(b)) >= 0
		}
		return strings.Contains(str(self).S, tc.stringArg(args[0]))
	})

	// index - first position of a substring, byte or regexp
	c.AddMethod("index", -2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 1, 2)
		s := str(self).S
		start := 0
		if len(args) == 2 {
			start = int(tc.intArg(args[1]))
			if start < 0 {
				start += len(s)
			}
			if start < 0 || start > len(s) {
				return nil
			}
		}
		switch x := args[0].(type) {
		case *Regexp:
			md := tc.matchInto(x, s, start)
			if md == nil {
				return nil
			}
			return int64(md.Begin(0))
		case int64:
			if i := strings.IndexByte(s[start:], byte(x)); i >= 0 {
				return int64(start + i)
			}
			return nil
		}
		if i := strings.Index(s[start:], tc.stringArg(args[0])); i >= 0 {
			return int64(start + i)
		}
		return nil
	})

	// rindex - last position of a substring, byte or regexp
	c.AddMethod("rindex", -2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 1, 2)
		s := str(self).S
		limit := len(s)
		if len(args) == 2 {
			limit = int(tc.intArg(args[1]))
			if limit < 0 {
				limit += len(s)
			}
			if limit < 0 {
				return nil
			}
			limit = min(limit, len(s))
		}
		switch x := args[0].(type) {
		case *Regexp:
			for i := limit; i >= 0; i-- {
				if md := tc.search(x, s, i); md != nil && md.Begin(0) == i {
					tc.frame.Match = md
					return int64(i)
				}
			}
			return nil
		case int64:
			if limit < len(s) {
				limit++
			}
			if i := strings.LastIndexByte(s[:limit], byte(x)); i >= 0 {
				return int64(i)
			}
			return nil
		}
		sub := tc.stringArg(args[0])
		end := min(limit+len(sub), len(s))
		if i := strings.LastIndex(s[:end], sub); i >= 0 {
			return int64(i)
		}
		return nil
	})

	// start_with? - has one of the prefixes
	c.AddMethod("start_with?", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		for _, a := range args {
			if strings.HasPrefix(str(self).S, tc.stringArg(a)) {
				return true
			}
		}
		return false
	})

	// end_with? - has one of the suffixes
	c.AddMethod("end_with?", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		for _, a := range args {
			if strings.HasSuffix(str(self).S, tc.stringArg(a)) {
				return true
			}
		}
		return false
	})

	// split - fields separated by a pattern
	c.AddMethod("split", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.split(str(self).S, args)
	})

	// scan - every match, or its groups
	c.AddMethod("scan", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		out := tc.scan(str(self).S, args[0], blk)
		if blk.IsGiven() {
			return self
		}
		return out
	})

	lineSep := func(tc *ThreadContext, args []Value) (string, bool) {
		tc.checkArity(args, 0, 1)
		var v Value
		if len(args) == 1 {
			v = args[0]
		} else {
			v = tc.GetGlobal("$/")
		}
		if v == nil {
			return "", false
		}
		return tc.stringArg(v), true
	}
	eachLine := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if !blk.IsGiven() {
			return rt.newEnumerator(self, "each_line", args)
		}
		sep, ok := lineSep(tc, args)
		s := str(self).S
		if !ok {
			tc.Yield(blk, NewString(s))
			return self
		}
		for _, line := range splitLines(s, sep) {
			tc.Yield(blk, NewString(line))
		}
		return self
	}
	// each, each_line - yield each line including its separator
	c.AddMethod("each", -1, eachLine)
	c.AddMethod("each_line", -1, eachLine)

	// lines - the lines as an array
	c.AddMethod("lines", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		sep, ok := lineSep(tc, args)
		out := NewArray()
		if !ok {
			out.Elems = append(out.Elems, NewString(str(self).S))
			return out
		}
		for _, line := range splitLines(str(self).S, sep) {
			out.Elems = append(out.Elems, NewString(line))
		}
		return out
	})

	// each_byte - yield every byte as an integer
	c.AddMethod("each_byte", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if !blk.IsGiven() {
			return rt.newEnumerator(self, "each_byte", nil)
		}
		s := str(self)
		for i := 0; i < len(s.S); i++ {
			tc.Yield(blk, int64(s.S[i]))
		}
		return self
	})

	// bytes - the bytes as integers
	c.AddMethod("bytes", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		s := str(self).S
		out := NewArray()
		for i := 0; i < len(s); i++ {
			out.Elems = append(out.Elems, int64(s[i]))
		}
		return out
	})

	// each_char - yield every character as a string
	c.AddMethod("each_char", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if !blk.IsGiven() {
			return rt.newEnumerator(self, "each_char", nil)
		}
		s := str(self).S
		for len(s) > 0 {
			_, w := decodeByteRune(s)
			tc.Yield(blk, NewString(s[:w]))
			s = s[w:]
		}
		return self
	})

	// chars - the characters as strings
	c.AddMethod("chars", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		s := str(self).S
		out := NewArray()
		for len(s) > 0 {
			_, w := decodeByteRune(s)
			out.Elems = append(out.Elems, NewString(s[:w]))
			s = s[w:]
		}
		return out
	})

	padArg := func(tc *ThreadContext, args []Value) (int, string) {
		tc.checkArity(args, 1, 2)
		width := int(tc.intArg(args[0]))
		padding := " "
		if len(args) == 2 {
			padding = tc.stringArg(args[1])
			if padding == "" {
				tc.Raise(rt.ArgumentError, "zero width padding")
			}
		}
		return width, padding
	}
	for name, mode := range map[string]byte{"center": 'c', "ljust": 'l', "rjust": 'r'} {
		mode := mode
		// center, ljust, rjust - pad to a width
		c.AddMethod(name, -2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
			width, padding := padArg(tc, args)
			return NewString(justify(str(self).S, width, padding, mode))
		})
	}

	// count - number of characters in the intersection of the sets
	c.AddMethod("count", -2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		set := tc.charSetOf(args)
		s := str(self).S
		n := 0
		for i := 0; i < len(s); i++ {
			if set[s[i]] {
				n++
			}
		}
		return int64(n)
	})

	// insert - insert a string before an index
	c.AddMethod("insert", 2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkFrozen(self)
		s := str(self).S
		idx := int(tc.intArg(args[0]))
		other := tc.stringArg(args[1])
		pos := idx
		if idx < 0 {
			pos = idx + len(s) + 1
		}
		if pos < 0 || pos > len(s) {
			tc.Raise(rt.IndexError, "index %d out of string", idx)
		}
		str(self).S = s[:pos] + other + s[pos:]
		return self
	})

	// succ, next - the successor string
	transform("succ", 0, func(tc *ThreadContext, s string, args []Value) string { return strSucc(s) })
	transform("next", 0, func(tc *ThreadContext, s string, args []Value) string { return strSucc(s) })

	// upto - yield successive strings through the limit
	c.AddMethod("upto", -2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 1, 2)
		if !blk.IsGiven() {
			return rt.newEnumerator(self, "upto", args)
		}
		excl := len(args) == 2 && Truthy(args[1])
		tc.eachString(str(self).S, tc.stringArg(args[0]), excl, func(s string) bool {
			tc.Yield(blk, NewString(s))
			return true
		})
		return self
	})

	// sum - simple checksum of the bytes
	c.AddMethod("sum", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 0, 1)
		bits := int64(16)
		if len(args) == 1 {
			bits = tc.intArg(args[0])
		}
		var total uint64
		s := str(self).S
		for i := 0; i < len(s); i++ {
			total += uint64(s[i])
		}
		if bits > 0 && bits < 64 {
			total &= 1<<uint(bits) - 1
		}
		return int64(total)
	})
}

// eachString walks from a to b by succ, stopping when the strings grow
// longer than b.
func (tc *ThreadContext) eachString(a, b string, excl bool, fn func(string) bool) {
	if len(a) > len(b) {
		return
	}
	for s := a; ; s = strSucc(s) {
		if s == b {
			if !excl {
				fn(s)
			}
			return
		}
		if len(s) > len(b) || s == "" {
			return
		}
		if !fn(s) {
			return
		}
		tc.poll()
	}
}
