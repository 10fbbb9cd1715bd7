// Package symtab is the in-memory symbol database that receives the
// parser's output: one Module per loaded object file, holding its
// functions (with locals and line tables) and data symbols, queryable
// by name and by address.
package symtab

import (
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coral-mesh/stabs/pkg/stab"
	"github.com/coral-mesh/stabs/pkg/typegraph"
)

// Local is a parameter or local variable of a function. Register is 0
// for stack residents, otherwise the hardware register number plus one.
type Local struct {
	Name        string
	Register    int
	FrameOffset int64
	Type        *typegraph.Node
}

// Line maps a source line to an address offset from its function start.
type Line struct {
	Line   int
	Offset uint64
}

// Function is one function symbol with its scoped contents.
type Function struct {
	Name   string
	Addr   uint64
	Size   uint64
	Type   *typegraph.Node
	Source string
	Locals []*Local
	Lines  []Line
}

// DataSymbol is a global or static variable.
type DataSymbol struct {
	Name   string
	Addr   uint64
	Size   uint64
	Type   *typegraph.Node
	Static bool
	Source string
}

// Module is the symbol database for one object file. It implements
// stab.SymbolSink (and stab.SourcePathObserver), so a parser can feed
// it directly. Not safe for concurrent mutation.
type Module struct {
	ID   uuid.UUID
	Path string
	Base uint64

	logger zerolog.Logger

	funcs  []*Function
	data   []*DataSymbol
	locals []*Local // indexed by stab.LocalID

	source string // current source path, from the dispatcher
	sorted bool
}

// NewModule registers an empty module for the object at path, loaded at
// the given relocation base.
func NewModule(path string, base uint64, logger zerolog.Logger) *Module {
	return &Module{
		ID:     uuid.New(),
		Path:   path,
		Base:   base,
		logger: logger.With().Str("component", "symtab").Str("module", path).Logger(),
	}
}

var (
	_ stab.SymbolSink         = (*Module)(nil)
	_ stab.SourcePathObserver = (*Module)(nil)
)

// SetSourcePath records the compilation unit subsequent symbols belong to.
func (m *Module) SetSourcePath(path string) {
	m.source = path
}

// AddFunctionSymbol implements stab.SymbolSink.
func (m *Module) AddFunctionSymbol(name string, addr uint64, typ *typegraph.Node) stab.FunctionID {
	m.funcs = append(m.funcs, &Function{Name: name, Addr: addr, Type: typ, Source: m.source})
	m.sorted = false
	return stab.FunctionID(len(m.funcs) - 1)
}

// AddDataSymbol implements stab.SymbolSink.
func (m *Module) AddDataSymbol(name string, addr uint64, typ *typegraph.Node, static bool) {
	m.data = append(m.data, &DataSymbol{Name: name, Addr: addr, Type: typ, Static: static, Source: m.source})
}

// AddLocal implements stab.SymbolSink.
func (m *Module) AddLocal(fn stab.FunctionID, register int, frameOffset int64, name string) stab.LocalID {
	loc := &Local{Name: name, Register: register, FrameOffset: frameOffset}
	m.locals = append(m.locals, loc)
	if f := m.function(fn); f != nil {
		f.Locals = append(f.Locals, loc)
	}
	return stab.LocalID(len(m.locals) - 1)
}

// SetLocalType implements stab.SymbolSink.
func (m *Module) SetLocalType(local stab.LocalID, typ *typegraph.Node) {
	if int(local) < 0 || int(local) >= len(m.locals) {
		m.logger.Warn().Int("local", int(local)).Msg("type for unknown local")
		return
	}
	m.locals[local].Type = typ
}

// AddLine implements stab.SymbolSink.
func (m *Module) AddLine(fn stab.FunctionID, line int, addrOffset uint64) {
	if f := m.function(fn); f != nil {
		f.Lines = append(f.Lines, Line{Line: line, Offset: addrOffset})
	}
}

func (m *Module) function(fn stab.FunctionID) *Function {
	if int(fn) < 0 || int(fn) >= len(m.funcs) {
		m.logger.Warn().Int("function", int(fn)).Msg("event for unknown function")
		return nil
	}
	return m.funcs[fn]
}

// AddRawSymbol records a symbol recovered from a linker symbol table
// rather than from debug records; it carries a size but no type.
func (m *Module) AddRawSymbol(name string, addr, size uint64, isFunc, static bool, source string) {
	if isFunc {
		m.funcs = append(m.funcs, &Function{Name: name, Addr: addr, Size: size, Source: source})
		m.sorted = false
		return
	}
	m.data = append(m.data, &DataSymbol{Name: name, Addr: addr, Size: size, Static: static, Source: source})
}

// HasSymbolAt reports whether a symbol with this name is already known
// at exactly this address, from debug records or an earlier walk.
func (m *Module) HasSymbolAt(name string, addr uint64) bool {
	for _, f := range m.funcs {
		if f.Addr == addr && f.Name == name {
			return true
		}
	}
	for _, d := range m.data {
		if d.Addr == addr && d.Name == name {
			return true
		}
	}
	return false
}

// Normalize sorts functions by address and each function's line table
// by offset. Call it once after all producers are done; lookups assume
// normalized order.
func (m *Module) Normalize() {
	sort.SliceStable(m.funcs, func(i, j int) bool { return m.funcs[i].Addr < m.funcs[j].Addr })
	for _, f := range m.funcs {
		sort.SliceStable(f.Lines, func(i, j int) bool { return f.Lines[i].Offset < f.Lines[j].Offset })
	}
	m.sorted = true
}

// Functions returns all functions; sorted by address after Normalize.
func (m *Module) Functions() []*Function {
	return m.funcs
}

// DataSymbols returns all data symbols in insertion order.
func (m *Module) DataSymbols() []*DataSymbol {
	return m.data
}

// FunctionByName returns the first function with the given name.
func (m *Module) FunctionByName(name string) (*Function, bool) {
	for _, f := range m.funcs {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// FunctionAt returns the function whose start is the greatest address
// not above addr. Requires Normalize.
func (m *Module) FunctionAt(addr uint64) (*Function, bool) {
	if !m.sorted || len(m.funcs) == 0 {
		return nil, false
	}
	i := sort.Search(len(m.funcs), func(i int) bool { return m.funcs[i].Addr > addr })
	if i == 0 {
		return nil, false
	}
	return m.funcs[i-1], true
}

// LineAt resolves addr to a source line within its function. Requires
// Normalize.
func (m *Module) LineAt(addr uint64) (fn *Function, line int, ok bool) {
	f, ok := m.FunctionAt(addr)
	if !ok || len(f.Lines) == 0 {
		return nil, 0, false
	}
	off := addr - f.Addr
	i := sort.Search(len(f.Lines), func(i int) bool { return f.Lines[i].Offset > off })
	if i == 0 {
		return nil, 0, false
	}
	return f, f.Lines[i-1].Line, true
}
