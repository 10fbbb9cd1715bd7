package stab

import (
	"fmt"

	"github.com/coral-mesh/stabs/pkg/typegraph"
)

// maxIncludeDepth bounds include nesting for one compilation unit.
// Blowing past it means the record stream is corrupt, not that the
// input is merely unusual, so it aborts the parse run.
const maxIncludeDepth = 256

// includeDef is the type namespace of one include file, identified by
// its name and declared value. Re-inclusion of the same header at the
// same expansion finds the same table again.
type includeDef struct {
	name  string
	value uint32
	table []*typegraph.Node
}

// typeResolver maps `(file,subscript)` and bare `subscript` type
// references onto storage slots. Slot tables grow on demand and are
// zero-filled; file number 0 is the compilation unit itself, any other
// file number indexes the current include stack.
type typeResolver struct {
	includes []includeDef
	// stack holds indices into includes. Entry 0 is reserved for the
	// compilation unit and never refers to an includeDef.
	stack []int
	cu    []*typegraph.Node
}

func newTypeResolver() *typeResolver {
	return &typeResolver{stack: make([]int, 1, 16)}
}

// slot is a stable reference to one type-table cell. It re-resolves the
// backing table on every access so that table growth (which may move
// the underlying array) cannot strand it.
type slot struct {
	r    *typeResolver
	incl int // include index, or -1 for the compilation unit table
	sub  int
}

func (s slot) table() []*typegraph.Node {
	if s.incl < 0 {
		return s.r.cu
	}
	return s.r.includes[s.incl].table
}

func (s slot) get() *typegraph.Node {
	return s.table()[s.sub]
}

func (s slot) set(n *typegraph.Node) {
	s.table()[s.sub] = n
}

// slotFor locates (growing if needed) the table cell for a reference.
// The file number must not exceed the current include stack depth; a
// violation indicates internal inconsistency and panics.
func (r *typeResolver) slotFor(file, sub int) slot {
	if sub < 0 {
		sub = 0
	}
	if file == 0 {
		for len(r.cu) <= sub {
			r.cu = append(r.cu, nil)
		}
		return slot{r: r, incl: -1, sub: sub}
	}
	if file >= len(r.stack) {
		panic(fmt.Sprintf("stab: type reference file %d beyond include stack depth %d", file, len(r.stack)-1))
	}
	idx := r.stack[file]
	def := &r.includes[idx]
	for len(def.table) <= sub {
		def.table = append(def.table, nil)
	}
	return slot{r: r, incl: idx, sub: sub}
}

// resolve parses a type reference at the cursor: either `(file,sub)` or
// a bare subscript. The cursor advances past the reference.
func (r *typeResolver) resolve(c *cursor) slot {
	if c.peek() == '(' {
		c.pos++
		file := c.scanInt()
		c.pos++ // ','
		sub := c.scanInt()
		c.pos++ // ')'
		return r.slotFor(int(file), int(sub))
	}
	return r.slotFor(0, int(c.scanInt()))
}

// resolveBackwards reads a type reference that ends at position pos in
// buf (the character just before an '='). It recognizes the same two
// shapes as resolve, scanned from the right.
func (r *typeResolver) resolveBackwards(buf []byte, pos int) slot {
	if pos >= 0 && buf[pos] == ')' {
		i := pos
		for i > 0 && buf[i] != '(' {
			i--
		}
		c := &cursor{buf: buf, pos: i}
		return r.resolve(c)
	}
	i := pos
	for i >= 0 && buf[i] >= '0' && buf[i] <= '9' {
		i--
	}
	c := &cursor{buf: buf, pos: i + 1}
	return r.slotFor(0, int(c.scanInt()))
}

// findInclude returns the index of an already-created include file with
// this exact (name, value) identity.
func (r *typeResolver) findInclude(name string, value uint32) (int, bool) {
	for i := range r.includes {
		if r.includes[i].value == value && r.includes[i].name == name {
			return i, true
		}
	}
	return 0, false
}

// enterInclude pushes the include file identified by (name, value) onto
// the stack, creating its table on first sight. It returns the new
// stack depth, which is the file number subsequent references use.
func (r *typeResolver) enterInclude(name string, value uint32) int {
	idx, ok := r.findInclude(name, value)
	if !ok {
		r.includes = append(r.includes, includeDef{name: name, value: value})
		idx = len(r.includes) - 1
	}
	return r.pushInclude(idx)
}

// pushInclude pushes an existing include index and returns the depth.
func (r *typeResolver) pushInclude(idx int) int {
	if len(r.stack) >= maxIncludeDepth {
		panic(fmt.Sprintf("stab: include nesting exceeds %d", maxIncludeDepth))
	}
	r.stack = append(r.stack, idx)
	return len(r.stack) - 1
}

// resetUnit starts a new compilation unit: the include stack collapses
// to its reserved entry and the unit's own type table empties. Include
// tables survive, so later units can re-export them.
func (r *typeResolver) resetUnit() {
	r.stack = r.stack[:1]
	for i := range r.cu {
		r.cu[i] = nil
	}
}

// releaseAll drops every include definition at the end of a parse run.
func (r *typeResolver) releaseAll() {
	r.resetUnit()
	r.includes = nil
	r.cu = nil
}

// cursor is a bounded forward scanner over a record's text.
type cursor struct {
	buf []byte
	pos int
}

// peek returns the byte at the cursor, or 0 past the end.
func (c *cursor) peek() byte {
	if c.pos < 0 || c.pos >= len(c.buf) {
		return 0
	}
	return c.buf[c.pos]
}

// scanInt parses an optionally signed decimal integer and advances past
// it. A missing number parses as 0.
func (c *cursor) scanInt() int64 {
	neg := false
	if c.peek() == '-' {
		neg = true
		c.pos++
	}
	var v int64
	for {
		b := c.peek()
		if b < '0' || b > '9' {
			break
		}
		v = v*10 + int64(b-'0')
		c.pos++
	}
	if neg {
		return -v
	}
	return v
}
