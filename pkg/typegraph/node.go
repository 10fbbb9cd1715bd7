// Package typegraph implements the data-type catalog used by the STAB
// parser: a graph of shared, possibly-cyclic type nodes.
//
// Nodes are allocated by a Graph and referenced freely from type-table
// slots, composite types, and symbols. A struct field may point back at
// its own struct, so nodes are never tree-owned; the garbage collector
// handles the cycles.
package typegraph

import "fmt"

// Kind identifies the variant of a type node.
type Kind int

const (
	KindBasic Kind = iota
	KindPointer
	KindStruct
	KindArray
	KindEnum
	KindFunc
)

// String returns a short lowercase name for the kind.
func (k Kind) String() string {
	switch k {
	case KindBasic:
		return "basic"
	case KindPointer:
		return "pointer"
	case KindStruct:
		return "struct"
	case KindArray:
		return "array"
	case KindEnum:
		return "enum"
	case KindFunc:
		return "func"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Field is one member of a struct or union, in declaration order.
type Field struct {
	Name string
	Type *Node // nil means the field's type never resolved
	// Offset and Size are in bits, as declared in the debug records.
	Offset int64
	Size   int64
}

// EnumMember is one named constant of an enum, in declaration order.
type EnumMember struct {
	Name  string
	Value int64
}

// Node is a single type in the graph. The zero value is not useful;
// nodes are created through a Graph.
type Node struct {
	kind Kind
	name string

	// Struct/union payload. sized distinguishes "declared with size 0"
	// from "size not seen yet".
	size   int64
	sized  bool
	fields []Field

	// Pointer target or function return type.
	target *Node

	// Array payload.
	elem  *Node
	lower int64
	upper int64

	members []EnumMember
}

// Kind returns the node's variant.
func (n *Node) Kind() Kind { return n.kind }

// Name returns the declared name, which may be empty for anonymous types.
func (n *Node) Name() string { return n.name }

// Size returns the struct/union size in bytes and whether it was ever set.
func (n *Node) Size() (int64, bool) { return n.size, n.sized }

// Fields returns the struct/union members in declaration order.
func (n *Node) Fields() []Field { return n.fields }

// Target returns the pointee for pointers and the return type for functions.
func (n *Node) Target() *Node { return n.target }

// Bounds returns the array index bounds. The minimum may be negative.
func (n *Node) Bounds() (min, max int64) { return n.lower, n.upper }

// Elem returns the array element type.
func (n *Node) Elem() *Node { return n.elem }

// Members returns the enum constants in declaration order.
func (n *Node) Members() []EnumMember { return n.members }

// String renders a one-line description of the type. Rendering is
// depth-limited so cyclic graphs stay printable.
func (n *Node) String() string {
	return n.render(3)
}

func (n *Node) render(depth int) string {
	if n == nil {
		return "<unknown>"
	}
	if depth <= 0 {
		if n.name != "" {
			return n.name
		}
		return n.kind.String()
	}
	switch n.kind {
	case KindBasic:
		if n.name != "" {
			return n.name
		}
		return "basic"
	case KindPointer:
		return "*" + n.target.render(depth-1)
	case KindFunc:
		return "func() " + n.target.render(depth-1)
	case KindArray:
		return fmt.Sprintf("[%d..%d]%s", n.lower, n.upper, n.elem.render(depth-1))
	case KindEnum:
		if n.name != "" {
			return "enum " + n.name
		}
		return fmt.Sprintf("enum{%d members}", len(n.members))
	case KindStruct:
		if n.name != "" {
			return "struct " + n.name
		}
		return fmt.Sprintf("struct{%d fields}", len(n.fields))
	}
	return n.kind.String()
}
