package vm

import "fmt"

// StringScanner is a lexical scanner over a string. Matches are anchored
// at the scan pointer.
type StringScanner struct {
	Basic
	Str  string
	Pos  int
	prev int
	last *MatchData
}

// scanAt matches re at the pointer. With anchored unset it searches
// forward. On success the pointer advances when advance is set.
func (tc *ThreadContext) scanAt(ss *StringScanner, re *Regexp, anchored, advance bool) *MatchData {
	md := tc.search(re, ss.Str, ss.Pos)
	if md == nil || anchored && md.Begin(0) != ss.Pos {
		ss.last = nil
		return nil
	}
	ss.last = md
	if advance {
		ss.prev = ss.Pos
		ss.Pos = md.End(0)
	}
	return md
}

// ---------------------------------------------------------------------------
// StringScanner primitives
// ---------------------------------------------------------------------------

func (rt *Runtime) registerStringScannerPrimitives() {
	c := rt.StringScannerClass
	c.alloc = func(k *Class) Value {
		ss := &StringScanner{}
		ss.class = k
		return ss
	}
	scanner := func(v Value) *StringScanner { return v.(*StringScanner) }

	// initialize(str)
	c.AddPrivateMethod("initialize", -2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 1, 2)
		ss := scanner(self)
		ss.Str = tc.stringArg(args[0])
		ss.Pos, ss.prev, ss.last = 0, 0, nil
		return nil
	})

	// scan, scan_until, skip, skip_until, match?, check, check_until,
	// exist? - the anchored and searching matchers
	matcher := func(anchored, advance bool, result func(ss *StringScanner, md *MatchData, start int) Value) NativeFunc {
		return func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
			ss := scanner(self)
			start := ss.Pos
			md := tc.scanAt(ss, tc.toRegexp(args[0]), anchored, advance)
			if md == nil {
				return nil
			}
			return result(ss, md, start)
		}
	}
	upTo := func(ss *StringScanner, md *MatchData, start int) Value {
		return NewString(ss.Str[start:md.End(0)])
	}
	length := func(ss *StringScanner, md *MatchData, start int) Value {
		return int64(md.End(0) - start)
	}
	c.AddMethod("scan", 1, matcher(true, true, upTo))
	c.AddMethod("scan_until", 1, matcher(false, true, upTo))
	c.AddMethod("skip", 1, matcher(true, true, length))
	c.AddMethod("skip_until", 1, matcher(false, true, length))
	c.AddMethod("match?", 1, matcher(true, false, length))
	c.AddMethod("check", 1, matcher(true, false, upTo))
	c.AddMethod("check_until", 1, matcher(false, false, upTo))
	c.AddMethod("exist?", 1, matcher(false, false, length))

	// getch - the next character
	c.AddMethod("getch", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		ss := scanner(self)
		if ss.Pos >= len(ss.Str) {
			ss.last = nil
			return nil
		}
		_, w := decodeByteRune(ss.Str[ss.Pos:])
		ss.last = &MatchData{Str: ss.Str, offs: []int{ss.Pos, ss.Pos + w}}
		ss.prev = ss.Pos
		ss.Pos += w
		return NewString(ss.Str[ss.prev:ss.Pos])
	})

	// get_byte - the next byte
	c.AddMethod("get_byte", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		ss := scanner(self)
		if ss.Pos >= len(ss.Str) {
			ss.last = nil
			return nil
		}
		ss.last = &MatchData{Str: ss.Str, offs: []int{ss.Pos, ss.Pos + 1}}
		ss.prev = ss.Pos
		ss.Pos++
		return NewString(ss.Str[ss.prev:ss.Pos])
	})

	peek := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		ss := scanner(self)
		n := int(tc.intArg(args[0]))
		if n < 0 {
			tc.Raise(rt.ArgumentError, "negative string size (or size too big)")
		}
		end := min(ss.Pos+n, len(ss.Str))
		return NewString(ss.Str[ss.Pos:end])
	}
	// peek, peep - the next n bytes without advancing
	c.AddMethod("peek", 1, peek)
	c.AddMethod("peep", 1, peek)

	// unscan - undo the last advance
	c.AddMethod("unscan", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		ss := scanner(self)
		if ss.last == nil {
			tc.Raise(rt.StandardError, "unscan error: nothing to unscan")
		}
		ss.Pos, ss.last = ss.prev, nil
		return self
	})

	// matched - the last matched string
	c.AddMethod("matched", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if md := scanner(self).last; md != nil {
			return md.Group(0)
		}
		return nil
	})

	// matched? - whether the last match succeeded
	c.AddMethod("matched?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return scanner(self).last != nil
	})

	// matched_size - length of the last match
	c.AddMethod("matched_size", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if md := scanner(self).last; md != nil {
			return int64(md.End(0) - md.Begin(0))
		}
		return nil
	})

	// [] - a group of the last match
	c.AddMethod("[]", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		md := scanner(self).last
		if md == nil {
			return nil
		}
		n := int(tc.intArg(args[0]))
		if n < 0 {
			n += md.NumGroups()
		}
		if n < 0 || n >= md.NumGroups() {
			return nil
		}
		return md.Group(n)
	})

	// pre_match - the string before the last match
	c.AddMethod("pre_match", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if md := scanner(self).last; md != nil {
			return NewString(md.preMatch())
		}
		return nil
	})

	// post_match - the string after the last match
	c.AddMethod("post_match", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if md := scanner(self).last; md != nil {
			return NewString(md.postMatch())
		}
		return nil
	})

	pos := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return int64(scanner(self).Pos)
	}
	// pos, pointer - the scan pointer
	c.AddMethod("pos", 0, pos)
	c.AddMethod("pointer", 0, pos)

	setPos := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		ss := scanner(self)
		i := int(tc.intArg(args[0]))
		if i < 0 {
			i += len(ss.Str)
		}
		if i < 0 || i > len(ss.Str) {
			tc.Raise(rt.RangeError, "index out of range")
		}
		ss.Pos = i
		return int64(i)
	}
	// pos=, pointer= - move the scan pointer
	c.AddMethod("pos=", 1, setPos)
	c.AddMethod("pointer=", 1, setPos)

	eos := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		ss := scanner(self)
		return ss.Pos >= len(ss.Str)
	}
	// eos?, empty? - the pointer is at the end
	c.AddMethod("eos?", 0, eos)
	c.AddMethod("empty?", 0, eos)

	// rest - the unscanned remainder
	c.AddMethod("rest", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		ss := scanner(self)
		return NewString(ss.Str[ss.Pos:])
	})

	// rest? - whether anything is left
	c.AddMethod("rest?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		ss := scanner(self)
		return ss.Pos < len(ss.Str)
	})

	// rest_size - bytes left
	c.AddMethod("rest_size", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		ss := scanner(self)
		return int64(len(ss.Str) - ss.Pos)
	})

	// beginning_of_line?, bol? - the pointer follows a newline or is at 0
	bol := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		ss := scanner(self)
		return ss.Pos == 0 || ss.Str[ss.Pos-1] == '\n'
	}
	c.AddMethod("beginning_of_line?", 0, bol)
	c.AddMethod("bol?", 0, bol)

	// string - the scanned string
	c.AddMethod("string", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return NewString(scanner(self).Str)
	})

	// string= - scan a new string from the start
	c.AddMethod("string=", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		ss := scanner(self)
		ss.Str = tc.stringArg(args[0])
		ss.Pos, ss.prev, ss.last = 0, 0, nil
		return args[0]
	})

	concat := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		ss := scanner(self)
		ss.Str += tc.stringArg(args[0])
		return self
	}
	// concat, << - append to the scanned string
	c.AddMethod("concat", 1, concat)
	c.AddMethod("<<", 1, concat)

	// reset - back to the start
	c.AddMethod("reset", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		ss := scanner(self)
		ss.Pos, ss.last = 0, nil
		return self
	})

	terminate := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		ss := scanner(self)
		ss.Pos, ss.last = len(ss.Str), nil
		return self
	}
	// terminate, clear - move to the end
	c.AddMethod("terminate", 0, terminate)
	c.AddMethod("clear", 0, terminate)

	// inspect - #<StringScanner pos/len "before" @ "after">
	c.AddMethod("inspect", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		ss := scanner(self)
		if ss.Pos >= len(ss.Str) {
			return NewString("#<StringScanner fin>")
		}
		after := ss.Str[ss.Pos:]
		if len(after) > 5 {
			after = after[:5] + "..."
		}
		if ss.Pos == 0 {
			return NewString(fmt.Sprintf("#<StringScanner %d/%d @ %s>", ss.Pos, len(ss.Str), InspectString(after)))
		}
		before := ss.Str[:ss.Pos]
		if len(before) > 5 {
			before = "..." + before[len(before)-5:]
		}
		return NewString(fmt.Sprintf("#<StringScanner %d/%d %s @ %s>", ss.Pos, len(ss.Str), InspectString(before), InspectString(after)))
	})
}
