package typegraph

// Graph allocates and mutates type nodes for one parse run. It keeps
// every node it ever created so callers can enumerate the full catalog
// afterwards. A Graph is not safe for concurrent use; parse runs that
// must proceed in parallel each get their own Graph.
type Graph struct {
	nodes []*Node
}

// New returns an empty type graph.
func New() *Graph {
	return &Graph{}
}

func (g *Graph) add(n *Node) *Node {
	g.nodes = append(g.nodes, n)
	return n
}

// NewBasicType allocates a basic (numeric) type. The name may be empty
// for base types that are only ever referenced, never declared.
func (g *Graph) NewBasicType(name string) *Node {
	return g.add(&Node{kind: KindBasic, name: name})
}

// NewStructType allocates an empty struct/union skeleton.
func (g *Graph) NewStructType(name string) *Node {
	return g.add(&Node{kind: KindStruct, name: name})
}

// NewArrayType allocates an array skeleton with no bounds yet.
func (g *Graph) NewArrayType() *Node {
	return g.add(&Node{kind: KindArray})
}

// NewPointerType allocates a pointer skeleton with no target yet.
func (g *Graph) NewPointerType() *Node {
	return g.add(&Node{kind: KindPointer})
}

// NewEnumType allocates an empty enum skeleton.
func (g *Graph) NewEnumType() *Node {
	return g.add(&Node{kind: KindEnum})
}

// NewFunctionType allocates a function type skeleton.
func (g *Graph) NewFunctionType() *Node {
	return g.add(&Node{kind: KindFunc})
}

// SetPointerTarget binds the pointee of a pointer, or the return type
// of a function. A nil target means the referenced type never resolved.
func (g *Graph) SetPointerTarget(n, target *Node) {
	n.target = target
}

// SetArrayBounds binds the index bounds and element type of an array.
// The minimum bound may be negative.
func (g *Graph) SetArrayBounds(n *Node, min, max int64, elem *Node) {
	n.lower = min
	n.upper = max
	n.elem = elem
}

// SetStructSize records the byte size of a struct/union. It reports
// false when the node was already sized, which tells the parser it is
// revisiting a definition it has completed before. Size 0 is a legal,
// distinct state from "not yet sized".
func (g *Graph) SetStructSize(n *Node, size int64) bool {
	if n.sized {
		return false
	}
	n.size = size
	n.sized = true
	return true
}

// AddStructField appends a member to a struct/union in declaration
// order. A nil type is legal and means the field's type is unknown.
func (g *Graph) AddStructField(n *Node, name string, typ *Node, offset, size int64) {
	n.fields = append(n.fields, Field{Name: name, Type: typ, Offset: offset, Size: size})
}

// AddEnumMember appends a named constant to an enum in declaration order.
func (g *Graph) AddEnumMember(n *Node, name string, value int64) {
	n.members = append(n.members, EnumMember{Name: name, Value: value})
}

// Len returns the number of nodes allocated so far.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Nodes returns every node allocated by the graph, in allocation order.
// The returned slice is shared; callers must not modify it.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}
