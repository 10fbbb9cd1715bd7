package stab

import "encoding/binary"

// Tag is the STAB record type byte, as emitted into the .stab section.
type Tag uint8

// Record tags understood by the dispatcher. Tags not listed here are
// logged and skipped.
const (
	TagUndf  Tag = 0x00 // string-table segment switch
	TagGSym  Tag = 0x20 // global data symbol
	TagFun   Tag = 0x24 // function start (or synthetic end when text is empty)
	TagStSym Tag = 0x26 // data-segment static symbol
	TagLCSym Tag = 0x28 // bss-segment static symbol
	TagMain  Tag = 0x2a // program entry point
	TagROSym Tag = 0x2c // read-only static symbol
	TagOpt   Tag = 0x3c // compiler options
	TagRSym  Tag = 0x40 // register variable
	TagSLine Tag = 0x44 // source line number
	TagSO    Tag = 0x64 // new compilation unit / source path component
	TagLSym  Tag = 0x80 // stack local variable (or standalone typedef)
	TagBIncl Tag = 0x82 // include file begin
	TagSOL   Tag = 0x84 // switch to (possibly external) source file
	TagPSym  Tag = 0xa0 // function parameter
	TagEIncl Tag = 0xa2 // include file end
	TagLBrac Tag = 0xc0 // lexical block open
	TagExcl  Tag = 0xc2 // re-export of a previously defined include file
	TagRBrac Tag = 0xe0 // lexical block close
)

// recordSize is the on-disk size of one raw record: a 4-byte string
// offset, the tag byte, a 1-byte auxiliary flag, a 2-byte description,
// and a 4-byte value.
const recordSize = 12

// rawRecord mirrors the fixed-layout .stab entry.
type rawRecord struct {
	strx  uint32
	tag   Tag
	other uint8
	desc  uint16
	value uint32
}

func decodeRecord(b []byte) rawRecord {
	return rawRecord{
		strx:  binary.LittleEndian.Uint32(b[0:4]),
		tag:   Tag(b[4]),
		other: b[5],
		desc:  binary.LittleEndian.Uint16(b[6:8]),
		value: binary.LittleEndian.Uint32(b[8:12]),
	}
}

// LogicalRecord is one fully joined record: continuation records have
// been concatenated and the continuation markers stripped. Text may
// alias the string table or the joiner's scratch buffer; it is only
// valid until the next record is read.
type LogicalRecord struct {
	Tag   Tag
	Desc  uint16
	Value uint32
	Text  []byte
}
