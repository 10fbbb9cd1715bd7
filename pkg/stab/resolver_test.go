package stab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/stabs/pkg/typegraph"
)

func TestResolverBareAndPairedReferences(t *testing.T) {
	g := typegraph.New()
	r := newTypeResolver()
	n := g.NewBasicType("int")

	c := &cursor{buf: []byte("7")}
	sl := r.resolve(c)
	sl.set(n)
	assert.Equal(t, 1, c.pos)

	// A bare subscript and its (0,sub) spelling name the same cell.
	c = &cursor{buf: []byte("(0,7)")}
	assert.Same(t, n, r.resolve(c).get())
	assert.Equal(t, 5, c.pos)
}

func TestResolverSlotSurvivesTableGrowth(t *testing.T) {
	g := typegraph.New()
	r := newTypeResolver()

	sl := r.slotFor(0, 1)
	sl.set(g.NewBasicType("int"))

	// Growing the table may reallocate the backing array; the slot must
	// keep addressing the same logical cell.
	r.slotFor(0, 4096)
	require.NotNil(t, sl.get())
	assert.Equal(t, "int", sl.get().Name())

	n2 := g.NewBasicType("char")
	sl.set(n2)
	assert.Same(t, n2, r.slotFor(0, 1).get())
}

func TestResolveBackwards(t *testing.T) {
	g := typegraph.New()

	t.Run("bare subscript", func(t *testing.T) {
		r := newTypeResolver()
		buf := []byte("foo:t25=*1")
		sl := r.resolveBackwards(buf, 6) // the "25" before '='
		sl.set(g.NewPointerType())
		assert.Same(t, sl.get(), r.slotFor(0, 25).get())
	})

	t.Run("paired reference", func(t *testing.T) {
		r := newTypeResolver()
		r.enterInclude("defs.h", 42)
		buf := []byte("foo:t(1,3)=*1")
		sl := r.resolveBackwards(buf, 9)
		sl.set(g.NewPointerType())
		assert.Same(t, sl.get(), r.slotFor(1, 3).get())
	})
}

func TestResolverIncludeLifecycle(t *testing.T) {
	g := typegraph.New()
	r := newTypeResolver()

	depth := r.enterInclude("list.h", 100)
	require.Equal(t, 1, depth)

	n := g.NewStructType("list")
	r.slotFor(1, 3).set(n)

	// New compilation unit: the stack collapses and the unit table
	// empties, but the include definition survives.
	r.slotFor(0, 2).set(g.NewBasicType("int"))
	r.resetUnit()
	assert.Nil(t, r.slotFor(0, 2).get())

	idx, found := r.findInclude("list.h", 100)
	require.True(t, found)
	r.pushInclude(idx)
	assert.Same(t, n, r.slotFor(1, 3).get())

	// Same name at a different value is a different include file.
	_, found = r.findInclude("list.h", 101)
	assert.False(t, found)

	// Re-entering the same identity reuses the definition.
	r.resetUnit()
	r.enterInclude("list.h", 100)
	assert.Same(t, n, r.slotFor(1, 3).get())

	r.releaseAll()
	_, found = r.findInclude("list.h", 100)
	assert.False(t, found)
}

func TestResolverPanicsOnCorruptStreams(t *testing.T) {
	r := newTypeResolver()

	assert.Panics(t, func() {
		// File number 5 with nothing on the include stack.
		r.slotFor(5, 1)
	})

	assert.Panics(t, func() {
		r.includes = append(r.includes, includeDef{name: "x.h"})
		for i := 0; i < maxIncludeDepth; i++ {
			r.pushInclude(0)
		}
	})
}

func TestCursorScanInt(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		rest byte
	}{
		{"123;", 123, ';'},
		{"-8;", -8, ';'},
		{"0,", 0, ','},
		{";", 0, ';'},
		{"42", 42, 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c := &cursor{buf: []byte(tt.in)}
			assert.Equal(t, tt.want, c.scanInt())
			assert.Equal(t, tt.rest, c.peek())
		})
	}
}
