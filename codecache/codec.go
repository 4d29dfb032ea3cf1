// Package codecache persists compiled script bodies so an unchanged program
// tree skips compilation. Bodies are encoded as CBOR and stored in SQLite,
// keyed by Runtime.CacheKey.
package codecache

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/garnet/compiler"
	"github.com/chazu/garnet/scope"
	"github.com/chazu/garnet/vm"
)

// formatVersion changes whenever the wire form or the instruction set does.
const formatVersion = 1

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("codecache: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// ErrScopeMismatch reports a cached body that does not fit the scopes of
// the tree it is loaded for.
var ErrScopeMismatch = errors.New("cached body does not match tree scopes")

// ---------------------------------------------------------------------------
// Wire form
// ---------------------------------------------------------------------------

type wireEnvelope struct {
	Version int         `cbor:"1,keyasint"`
	Scopes  []wireScope `cbor:"2,keyasint"`
	Body    wireBody    `cbor:"3,keyasint"`
}

// wireScope records what a body relies on in its static scope. Scopes are
// not rebuilt from the cache; loading checks them against the tree's.
type wireScope struct {
	Names    []string `cbor:"1,keyasint"`
	Captured []int    `cbor:"2,keyasint,omitempty"`
}

type wireBody struct {
	Name      string        `cbor:"1,keyasint"`
	Kind      uint8         `cbor:"2,keyasint"`
	File      string        `cbor:"3,keyasint"`
	Line      int           `cbor:"4,keyasint"`
	Code      []byte        `cbor:"5,keyasint"`
	Literals  []wireLiteral `cbor:"6,keyasint,omitempty"`
	Names     []string      `cbor:"7,keyasint,omitempty"`
	Children  []wireBody    `cbor:"8,keyasint,omitempty"`
	MaxStack  int           `cbor:"9,keyasint"`
	Lines     []int         `cbor:"10,keyasint,omitempty"` // offset, line pairs
	Scope     int           `cbor:"11,keyasint"`           // index into the scope list, -1 for none
	Arity     int           `cbor:"12,keyasint"`
	ArgsType  uint8         `cbor:"13,keyasint"`
	MultiHead bool          `cbor:"14,keyasint,omitempty"`
	BlockArg  int           `cbor:"15,keyasint"`
	BodyStart int           `cbor:"16,keyasint"`
	ForLoop   bool          `cbor:"17,keyasint,omitempty"`
	Depth     int           `cbor:"18,keyasint,omitempty"`
	Local     bool          `cbor:"19,keyasint,omitempty"`
}

type wireLiteral struct {
	Kind    uint8   `cbor:"1,keyasint"`
	Str     string  `cbor:"2,keyasint,omitempty"`
	Big     []byte  `cbor:"3,keyasint,omitempty"` // big-endian magnitude
	Neg     bool    `cbor:"4,keyasint,omitempty"`
	Options int     `cbor:"5,keyasint,omitempty"`
	Once    bool    `cbor:"6,keyasint,omitempty"`
	Cases   []int64 `cbor:"7,keyasint,omitempty"`
	Targets []int   `cbor:"8,keyasint,omitempty"`
	Default int     `cbor:"9,keyasint,omitempty"`
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

// Encode serializes body. scopes is the scope list of the tree the body
// was compiled from, in ast.Scopes order; every scope the body or its
// children use must be in it.
func Encode(body *vm.CompiledBody, scopes []*scope.StaticScope) ([]byte, error) {
	index := make(map[*scope.StaticScope]int, len(scopes))
	env := wireEnvelope{Version: formatVersion}
	for i, s := range scopes {
		index[s] = i
		snap := s.Snapshot()
		ws := wireScope{Names: snap.Names}
		for slot, captured := range snap.Captured {
			if captured {
				ws.Captured = append(ws.Captured, slot)
			}
		}
		env.Scopes = append(env.Scopes, ws)
	}
	wb, err := encodeBody(body, index)
	if err != nil {
		return nil, err
	}
	env.Body = wb
	return cborEncMode.Marshal(&env)
}

func encodeBody(b *vm.CompiledBody, index map[*scope.StaticScope]int) (wireBody, error) {
	wb := wireBody{
		Name:      b.Name,
		Kind:      uint8(b.Kind),
		File:      b.File,
		Line:      b.Line,
		Code:      b.Code,
		Names:     b.Names,
		MaxStack:  b.MaxStack,
		Scope:     -1,
		Arity:     b.Arity.Value(),
		ArgsType:  uint8(b.ArgsType),
		MultiHead: b.HasMultipleArgsHead,
		BlockArg:  b.BlockArg,
		BodyStart: b.BodyStart,
		ForLoop:   b.ForLoop,
		Depth:     b.InitialDepth,
		Local:     b.LocalExits,
	}
	if b.Scope != nil {
		i, ok := index[b.Scope]
		if !ok {
			return wireBody{}, fmt.Errorf("codecache: body %s uses a scope outside the tree", b.Name)
		}
		wb.Scope = i
	}
	for _, e := range b.Lines {
		wb.Lines = append(wb.Lines, e.Offset, e.Line)
	}
	for _, l := range b.Literals {
		wl := wireLiteral{
			Kind:    uint8(l.Kind),
			Str:     l.Str,
			Options: l.Options,
			Once:    l.Once,
			Cases:   l.Cases,
			Targets: l.Targets,
			Default: l.Default,
		}
		if l.Big != nil {
			wl.Big = l.Big.Bytes()
			wl.Neg = l.Big.Sign() < 0
		}
		wb.Literals = append(wb.Literals, wl)
	}
	for _, c := range b.Children {
		wc, err := encodeBody(c, index)
		if err != nil {
			return wireBody{}, err
		}
		wb.Children = append(wb.Children, wc)
	}
	return wb, nil
}

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

// Decode rebuilds a body against scopes, the scope list of the tree being
// run. It fails with ErrScopeMismatch when the scopes differ from the ones
// the body was compiled against.
func Decode(data []byte, scopes []*scope.StaticScope) (*vm.CompiledBody, error) {
	var env wireEnvelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("codecache: unmarshal body: %w", err)
	}
	if env.Version != formatVersion {
		return nil, fmt.Errorf("codecache: format version %d, want %d", env.Version, formatVersion)
	}
	if len(env.Scopes) != len(scopes) {
		return nil, fmt.Errorf("%w: %d scopes, tree has %d", ErrScopeMismatch, len(env.Scopes), len(scopes))
	}
	for i, ws := range env.Scopes {
		names := scopes[i].VariableNames()
		if len(names) != len(ws.Names) {
			return nil, fmt.Errorf("%w: scope %d has %d variables, want %d", ErrScopeMismatch, i, len(names), len(ws.Names))
		}
		for j := range names {
			if names[j] != ws.Names[j] {
				return nil, fmt.Errorf("%w: scope %d slot %d is %q, want %q", ErrScopeMismatch, i, j, names[j], ws.Names[j])
			}
		}
	}
	body, err := decodeBody(&env.Body, scopes)
	if err != nil {
		return nil, err
	}
	for i, ws := range env.Scopes {
		for _, slot := range ws.Captured {
			scopes[i].Capture(slot)
		}
	}
	return body, nil
}

func decodeBody(wb *wireBody, scopes []*scope.StaticScope) (*vm.CompiledBody, error) {
	b := &vm.CompiledBody{
		Name:                wb.Name,
		Kind:                vm.BodyKind(wb.Kind),
		File:                wb.File,
		Line:                wb.Line,
		Code:                wb.Code,
		Names:               wb.Names,
		MaxStack:            wb.MaxStack,
		Arity:               scope.Arity(wb.Arity),
		ArgsType:            compiler.ArgsType(wb.ArgsType),
		HasMultipleArgsHead: wb.MultiHead,
		BlockArg:            wb.BlockArg,
		BodyStart:           wb.BodyStart,
		ForLoop:             wb.ForLoop,
		InitialDepth:        wb.Depth,
		LocalExits:          wb.Local,
	}
	if wb.Scope >= 0 {
		if wb.Scope >= len(scopes) {
			return nil, fmt.Errorf("%w: body %s refers to scope %d", ErrScopeMismatch, wb.Name, wb.Scope)
		}
		b.Scope = scopes[wb.Scope]
	}
	if len(wb.Lines)%2 != 0 {
		return nil, fmt.Errorf("codecache: body %s has a truncated line table", wb.Name)
	}
	for i := 0; i < len(wb.Lines); i += 2 {
		b.Lines = append(b.Lines, vm.LineEntry{Offset: wb.Lines[i], Line: wb.Lines[i+1]})
	}
	for _, wl := range wb.Literals {
		l := &vm.Literal{
			Kind:    vm.LiteralKind(wl.Kind),
			Str:     wl.Str,
			Options: wl.Options,
			Once:    wl.Once,
			Cases:   wl.Cases,
			Targets: wl.Targets,
			Default: wl.Default,
		}
		if l.Kind == vm.BignumLiteral {
			l.Big = new(big.Int).SetBytes(wl.Big)
			if wl.Neg {
				l.Big.Neg(l.Big)
			}
		}
		b.Literals = append(b.Literals, l)
	}
	for i := range wb.Children {
		c, err := decodeBody(&wb.Children[i], scopes)
		if err != nil {
			return nil, err
		}
		b.Children = append(b.Children, c)
	}
	return b, nil
}

// DecodeDetached rebuilds a body without the tree it came from, giving it
// fresh scopes holding the recorded variable names. The result is fit for
// disassembly, not for running.
func DecodeDetached(data []byte) (*vm.CompiledBody, error) {
	var env wireEnvelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("codecache: unmarshal body: %w", err)
	}
	scopes := make([]*scope.StaticScope, len(env.Scopes))
	for i, ws := range env.Scopes {
		snap := scope.Snapshot{
			Kind:     scope.LocalKind,
			Names:    ws.Names,
			Captured: make([]bool, len(ws.Names)),
			Rest:     scope.NoRest,
		}
		for _, slot := range ws.Captured {
			if slot >= 0 && slot < len(snap.Captured) {
				snap.Captured[slot] = true
			}
		}
		scopes[i] = scope.Restore(snap, nil)
	}
	return decodeBody(&env.Body, scopes)
}
