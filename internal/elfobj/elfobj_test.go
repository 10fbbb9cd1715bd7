package elfobj

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/stabs/pkg/stab"
	"github.com/coral-mesh/stabs/pkg/typegraph"
)

// stream builds a raw stab record array plus its string blob.
type stream struct {
	records []byte
	strs    []byte
}

func newStream() *stream {
	return &stream{strs: []byte{0}}
}

func (s *stream) add(tag stab.Tag, desc uint16, value uint32, text string) *stream {
	var strx uint32
	if text != "" {
		strx = uint32(len(s.strs))
		s.strs = append(s.strs, text...)
		s.strs = append(s.strs, 0)
	}
	var rec [12]byte
	binary.LittleEndian.PutUint32(rec[0:4], strx)
	rec[4] = byte(tag)
	binary.LittleEndian.PutUint16(rec[6:8], desc)
	binary.LittleEndian.PutUint32(rec[8:12], value)
	s.records = append(s.records, rec[:]...)
	return s
}

// writeELF emits a minimal ELF64 object carrying .stab/.stabstr (when
// withStab is set) so the loader can be exercised without fixtures.
func writeELF(t *testing.T, s *stream, withStab bool) string {
	t.Helper()

	var shstr []byte
	var shnum uint16
	if withStab {
		shstr = []byte("\x00.stab\x00.stabstr\x00.shstrtab\x00")
		shnum = 4
	} else {
		shstr = []byte("\x00.shstrtab\x00")
		shnum = 2
	}

	stabOff := uint64(64)
	strOff := stabOff + uint64(len(s.records))
	shstrOff := strOff + uint64(len(s.strs))
	shoff := (shstrOff + uint64(len(shstr)) + 7) &^ 7

	var buf bytes.Buffer
	w := func(v any) {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	}

	ident := make([]byte, 16)
	copy(ident, "\x7fELF")
	ident[4] = 2 // 64-bit
	ident[5] = 1 // little endian
	ident[6] = 1 // current version
	buf.Write(ident)
	w(uint16(2))  // ET_EXEC
	w(uint16(62)) // EM_X86_64
	w(uint32(1))
	w(uint64(0)) // entry
	w(uint64(0)) // phoff
	w(shoff)
	w(uint32(0))         // flags
	w(uint16(64))        // ehsize
	w(uint16(0))         // phentsize
	w(uint16(0))         // phnum
	w(uint16(64))        // shentsize
	w(shnum)             // shnum
	w(uint16(shnum - 1)) // shstrndx

	buf.Write(s.records)
	buf.Write(s.strs)
	buf.Write(shstr)
	for buf.Len() < int(shoff) {
		buf.WriteByte(0)
	}

	sh := func(name, typ uint32, off, size, align, entsize uint64) {
		w(name)
		w(typ)
		w(uint64(0)) // flags
		w(uint64(0)) // addr
		w(off)
		w(size)
		w(uint32(0)) // link
		w(uint32(0)) // info
		w(align)
		w(entsize)
	}
	sh(0, 0, 0, 0, 0, 0) // mandatory null section
	if withStab {
		sh(1, 1, stabOff, uint64(len(s.records)), 4, 12) // .stab
		sh(7, 3, strOff, uint64(len(s.strs)), 1, 0)      // .stabstr
		sh(16, 3, shstrOff, uint64(len(shstr)), 1, 0)    // .shstrtab
	} else {
		sh(1, 3, shstrOff, uint64(len(shstr)), 1, 0) // .shstrtab
	}

	path := filepath.Join(t.TempDir(), "fixture.o")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestLoadModuleFromStabSections(t *testing.T) {
	s := newStream().
		add(stab.TagSO, 0, 0, "/src/").
		add(stab.TagSO, 0, 0, "main.c").
		add(stab.TagLSym, 0, 0, "int:t1=r1;0;127;").
		add(stab.TagFun, 0, 0x100, "main:F1").
		add(stab.TagSLine, 5, 8, "").
		add(stab.TagFun, 0, 0, "")
	path := writeELF(t, s, true)

	graph := typegraph.New()
	m, err := LoadModule(path, 0x400000, graph, zerolog.Nop())
	require.NoError(t, err)

	require.Len(t, m.Functions(), 1)
	fn := m.Functions()[0]
	assert.Equal(t, "main", fn.Name)
	assert.Equal(t, uint64(0x400100), fn.Addr)
	assert.Equal(t, "/src/main.c", fn.Source)
	require.NotNil(t, fn.Type)
	assert.Equal(t, "int", fn.Type.Name())
	require.Len(t, fn.Lines, 1)
	assert.Equal(t, 5, fn.Lines[0].Line)
	assert.Equal(t, uint64(8), fn.Lines[0].Offset)

	assert.Equal(t, 1, graph.Len())
}

func TestStabDataMissingSections(t *testing.T) {
	path := writeELF(t, newStream(), false)

	f, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer f.Close()

	_, err = f.StabData(0)
	assert.ErrorIs(t, err, ErrNoStabData)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"), zerolog.Nop())
	assert.Error(t, err)
}
