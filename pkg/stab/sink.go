package stab

import "github.com/coral-mesh/stabs/pkg/typegraph"

// FunctionID identifies a function previously announced through a
// SymbolSink; the sink chooses the values.
type FunctionID int

// LocalID identifies a local variable previously announced through a
// SymbolSink.
type LocalID int

// SymbolSink receives the symbol, scope, and line events the dispatcher
// produces. Implementations own all persistence; the parser never reads
// anything back except the identifiers it was handed.
//
// A nil type on any event is legal and means "unknown or failed type".
type SymbolSink interface {
	// AddFunctionSymbol announces a function at its relocated address.
	AddFunctionSymbol(name string, addr uint64, typ *typegraph.Node) FunctionID

	// AddDataSymbol announces a global or static data symbol.
	AddDataSymbol(name string, addr uint64, typ *typegraph.Node, static bool)

	// AddLocal announces a parameter or local of the given function.
	// register is 0 for stack residents; otherwise it is the hardware
	// register number plus one, so register 0 stays representable.
	AddLocal(fn FunctionID, register int, frameOffset int64, name string) LocalID

	// SetLocalType binds the (possibly nil) type of a local.
	SetLocalType(local LocalID, typ *typegraph.Node)

	// AddLine records a source line at an offset from its function start.
	AddLine(fn FunctionID, line int, addrOffset uint64)
}

// SourcePathObserver is an optional SymbolSink capability. Sinks that
// implement it are told the accumulated source path whenever the record
// stream switches compilation units, so they can attribute the symbols
// that follow.
type SourcePathObserver interface {
	SetSourcePath(path string)
}

// TypeCatalog allocates and mutates type nodes on the parser's behalf.
// *typegraph.Graph is the canonical implementation.
type TypeCatalog interface {
	NewBasicType(name string) *typegraph.Node
	NewStructType(name string) *typegraph.Node
	NewArrayType() *typegraph.Node
	NewPointerType() *typegraph.Node
	NewEnumType() *typegraph.Node
	NewFunctionType() *typegraph.Node

	SetPointerTarget(n, target *typegraph.Node)
	SetArrayBounds(n *typegraph.Node, min, max int64, elem *typegraph.Node)
	// SetStructSize reports false when the node was already sized.
	SetStructSize(n *typegraph.Node, size int64) bool
	AddStructField(n *typegraph.Node, name string, typ *typegraph.Node, offset, size int64)
	AddEnumMember(n *typegraph.Node, name string, value int64)
}

var _ TypeCatalog = (*typegraph.Graph)(nil)
