package symtab

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/stabs/pkg/typegraph"
)

func newTestModule(t *testing.T) *Module {
	t.Helper()
	m := NewModule("/bin/app", 0x400000, zerolog.Nop())
	require.NotEqual(t, "00000000-0000-0000-0000-000000000000", m.ID.String())
	return m
}

func TestModuleRecordsSinkEvents(t *testing.T) {
	m := newTestModule(t)
	g := typegraph.New()
	intType := g.NewBasicType("int")

	m.SetSourcePath("/src/main.c")
	fn := m.AddFunctionSymbol("main", 0x401000, intType)
	local := m.AddLocal(fn, 0, -8, "x")
	m.SetLocalType(local, intType)
	m.AddLocal(fn, 3, 0, "r")
	m.AddLine(fn, 10, 0)
	m.AddLine(fn, 11, 8)
	m.AddDataSymbol("gvar", 0x402000, intType, false)

	require.Len(t, m.Functions(), 1)
	f := m.Functions()[0]
	assert.Equal(t, "main", f.Name)
	assert.Equal(t, uint64(0x401000), f.Addr)
	assert.Equal(t, "/src/main.c", f.Source)
	assert.Same(t, intType, f.Type)

	require.Len(t, f.Locals, 2)
	assert.Equal(t, int64(-8), f.Locals[0].FrameOffset)
	assert.Same(t, intType, f.Locals[0].Type)
	assert.Equal(t, 3, f.Locals[1].Register)
	assert.Nil(t, f.Locals[1].Type)

	assert.Equal(t, []Line{{Line: 10, Offset: 0}, {Line: 11, Offset: 8}}, f.Lines)

	require.Len(t, m.DataSymbols(), 1)
	assert.Equal(t, "/src/main.c", m.DataSymbols()[0].Source)
	assert.False(t, m.DataSymbols()[0].Static)
}

func TestModuleToleratesStrayIDs(t *testing.T) {
	m := newTestModule(t)

	// Events for identifiers that were never issued must not panic and
	// must not invent symbols.
	m.AddLine(99, 1, 0)
	m.SetLocalType(42, nil)
	m.AddLocal(7, 0, 0, "orphan")

	assert.Empty(t, m.Functions())
}

func TestHasSymbolAt(t *testing.T) {
	m := newTestModule(t)
	m.AddFunctionSymbol("main", 0x1000, nil)
	m.AddDataSymbol("gvar", 0x2000, nil, true)

	assert.True(t, m.HasSymbolAt("main", 0x1000))
	assert.True(t, m.HasSymbolAt("gvar", 0x2000))
	assert.False(t, m.HasSymbolAt("main", 0x1004))
	assert.False(t, m.HasSymbolAt("other", 0x1000))
}

func TestAddRawSymbol(t *testing.T) {
	m := newTestModule(t)
	m.AddRawSymbol("strcmp", 0x3000, 64, true, false, "libc")
	m.AddRawSymbol("errno", 0x4000, 4, false, true, "libc")

	require.Len(t, m.Functions(), 1)
	assert.Equal(t, uint64(64), m.Functions()[0].Size)
	assert.Nil(t, m.Functions()[0].Type)

	require.Len(t, m.DataSymbols(), 1)
	assert.True(t, m.DataSymbols()[0].Static)
}

func TestAddressLookups(t *testing.T) {
	m := newTestModule(t)

	// Out of order on purpose; Normalize must sort both levels.
	b := m.AddFunctionSymbol("bravo", 0x2000, nil)
	m.AddLine(b, 21, 16)
	m.AddLine(b, 20, 0)
	m.AddFunctionSymbol("alpha", 0x1000, nil)

	_, ok := m.FunctionAt(0x1500)
	assert.False(t, ok, "lookups require Normalize first")

	m.Normalize()

	f, ok := m.FunctionAt(0x1500)
	require.True(t, ok)
	assert.Equal(t, "alpha", f.Name)

	f, ok = m.FunctionAt(0x2000)
	require.True(t, ok)
	assert.Equal(t, "bravo", f.Name)

	_, ok = m.FunctionAt(0xfff)
	assert.False(t, ok)

	f, line, ok := m.LineAt(0x2010)
	require.True(t, ok)
	assert.Equal(t, "bravo", f.Name)
	assert.Equal(t, 21, line)

	_, line, ok = m.LineAt(0x2008)
	require.True(t, ok)
	assert.Equal(t, 20, line)

	byName, ok := m.FunctionByName("alpha")
	require.True(t, ok)
	assert.Equal(t, uint64(0x1000), byName.Addr)
	_, ok = m.FunctionByName("missing")
	assert.False(t, ok)
}
