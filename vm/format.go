package vm

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// sprintf
// ---------------------------------------------------------------------------

type fmtSpec struct {
	minus, plus, space, zero, sharp bool
	width, prec                     int
	hasPrec                         bool
}

// format implements Kernel#format and String#%.
func (tc *ThreadContext) format(f string, args []Value) string {
	rt := tc.rt
	var sb strings.Builder
	next := 0
	arg := func() Value {
		if next >= len(args) {
			tc.Raise(rt.ArgumentError, "too few arguments")
		}
		v := args[next]
		next++
		return v
	}
	for i := 0; i < len(f); i++ {
		c := f[i]
		if c != '%' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i >= len(f) {
			sb.WriteByte('%')
			break
		}
		var spec fmtSpec
	flags:
		for ; i < len(f); i++ {
			switch f[i] {
			case '-':
				spec.minus = true
			case '+':
				spec.plus = true
			case ' ':
				spec.space = true
			case '0':
				spec.zero = true
			case '#':
				spec.sharp = true
			default:
				break flags
			}
		}
		if i < len(f) && f[i] == '*' {
			spec.width = int(tc.intArg(arg()))
			if spec.width < 0 {
				spec.minus = true
				spec.width = -spec.width
			}
			i++
		}
		for ; i < len(f) && f[i] >= '0' && f[i] <= '9'; i++ {
			spec.width = spec.width*10 + int(f[i]-'0')
		}
		if i < len(f) && f[i] == '.' {
			spec.hasPrec = true
			i++
			if i < len(f) && f[i] == '*' {
				spec.prec = int(tc.intArg(arg()))
				i++
			}
			for ; i < len(f) && f[i] >= '0' && f[i] <= '9'; i++ {
				spec.prec = spec.prec*10 + int(f[i]-'0')
			}
		}
		if i >= len(f) {
			tc.Raise(rt.ArgumentError, "malformed format string - %%")
		}
		switch verb := f[i]; verb {
		case '%':
			sb.WriteByte('%')
		case 's':
			s := tc.AsString(arg()).S
			if spec.hasPrec && spec.prec < len(s) {
				s = s[:spec.prec]
			}
			sb.WriteString(pad(s, spec))
		case 'p':
			s := tc.Inspect(arg())
			if spec.hasPrec && spec.prec < len(s) {
				s = s[:spec.prec]
			}
			sb.WriteString(pad(s, spec))
		case 'c':
			v := arg()
			var s string
			if str, ok := v.(*String); ok && str.S != "" {
				s = str.S[:1]
			} else {
				s = string([]byte{byte(tc.intArg(v))})
			}
			sb.WriteString(pad(s, spec))
		case 'd', 'i', 'u':
			n := tc.formatIntArg(arg())
			sb.WriteString(formatSigned(n.Text(10), n.Sign() < 0, "", spec))
		case 'x', 'X', 'o', 'b', 'B':
			n := tc.formatIntArg(arg())
			base := map[byte]int{'x': 16, 'X': 16, 'o': 8, 'b': 2, 'B': 2}[verb]
			digits := new(big.Int).Abs(n).Text(base)
			if verb == 'X' {
				digits = strings.ToUpper(digits)
			}
			prefix := ""
			if spec.sharp {
				switch verb {
				case 'x':
					prefix = "0x"
				case 'X':
					prefix = "0X"
				case 'o':
					prefix = "0"
				case 'b':
					prefix = "0b"
				case 'B':
					prefix = "0B"
				}
			}
			if n.Sign() < 0 && !spec.plus && !spec.space {
				// two's complement rendering: ..f for negatives
				digits = ".." + twosComplement(n, base, verb == 'X')
				sb.WriteString(pad(prefix+digits, spec))
				continue
			}
			sb.WriteString(formatSigned(digits, n.Sign() < 0, prefix, spec))
		case 'f', 'e', 'E', 'g', 'G':
			v := arg()
			x, ok := toFloat(v)
			if !ok {
				x, ok = tc.Send(v, "to_f").(float64)
				if !ok {
					tc.Raise(rt.TypeError, "can't convert %s into Float", rt.RealClassOf(v).Name())
				}
			}
			if math.IsInf(x, 0) || math.IsNaN(x) {
				s := "Inf"
				if math.IsNaN(x) {
					s = "NaN"
				}
				spec.zero = false
				sb.WriteString(formatSigned(s, x < 0, "", spec))
				continue
			}
			prec := 6
			if spec.hasPrec {
				prec = spec.prec
			}
			s := strconv.FormatFloat(math.Abs(x), verb, prec, 64)
			if verb == 'g' || verb == 'G' {
				if spec.sharp && !strings.Contains(s, ".") {
					s += "."
				}
			}
			s = fixExponent(s)
			sb.WriteString(formatSigned(s, math.Signbit(x), "", spec))
		default:
			tc.Raise(rt.ArgumentError, "malformed format string - %%%c", verb)
		}
	}
	if next < len(args) && rt.opts.Debug {
		tc.Raise(rt.ArgumentError, "too many arguments for format string")
	}
	return sb.String()
}

func (tc *ThreadContext) formatIntArg(v Value) *big.Int {
	switch x := v.(type) {
	case int64:
		return big.NewInt(x)
	case *big.Int:
		return x
	case float64:
		b, _ := toBig(floatToInteger(tc, math.Floor(x)))
		return b
	case *String:
		n, ok := parseInteger(x.S, 10, true)
		if !ok {
			tc.Raise(tc.rt.ArgumentError, "invalid value for Integer: %s", InspectString(x.S))
		}
		b, _ := toBig(n)
		return b
	case nil:
		tc.Raise(tc.rt.TypeError, "can't convert nil into Integer")
	}
	b, _ := toBig(tc.intArg(v))
	return b
}

// formatSigned lays out a number: sign, prefix, zero padding, digits.
func formatSigned(digits string, neg bool, prefix string, spec fmtSpec) string {
	sign := ""
	switch {
	case neg:
		sign = "-"
	case spec.plus:
		sign = "+"
	case spec.space:
		sign = " "
	}
	if strings.HasPrefix(digits, "-") {
		digits = digits[1:]
	}
	if spec.hasPrec && !strings.ContainsAny(digits, ".eEIN") {
		for len(digits) < spec.prec {
			digits = "0" + digits
		}
	}
	body := sign + prefix + digits
	if spec.zero && !spec.minus && len(body) < spec.width {
		return sign + prefix + strings.Repeat("0", spec.width-len(body)) + digits
	}
	return pad(body, spec)
}

func pad(s string, spec fmtSpec) string {
	if len(s) >= spec.width {
		return s
	}
	fill := strings.Repeat(" ", spec.width-len(s))
	if spec.minus {
		return s + fill
	}
	return fill + s
}

// twosComplement renders the digits of a negative number as Ruby does
// for %x and friends, without the infinite run of leading f's.
func twosComplement(n *big.Int, base int, upper bool) string {
	bits := n.BitLen() + 1
	switch base {
	case 16:
		bits = (bits + 3) / 4 * 4
	case 8:
		bits = (bits + 2) / 3 * 3
	}
	mod := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	s := new(big.Int).Add(mod, n).Text(base)
	if upper {
		s = strings.ToUpper(s)
	}
	top := map[int]byte{16: 'f', 8: '7', 2: '1'}[base]
	if upper {
		top = 'F'
	}
	for len(s) > 1 && s[0] == top && s[1] == top {
		s = s[1:]
	}
	return s
}

// fixExponent pads exponents to two digits as C printf does.
func fixExponent(s string) string {
	i := strings.IndexAny(s, "eE")
	if i < 0 || i+2 >= len(s) {
		return s
	}
	exp := s[i+2:]
	if len(exp) < 2 {
		exp = "0" + exp
	}
	return s[:i+2] + exp
}
