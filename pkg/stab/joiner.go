package stab

// continuationMarker ends the text of a record that continues onto the
// next record. The marker itself is dropped when joining.
const continuationMarker = '\\'

// joiner walks the raw record array and yields logical records,
// concatenating continuation runs into a reusable scratch buffer.
type joiner struct {
	records []byte // raw fixed-layout record array
	strs    []byte // string blob referenced by record string offsets
	pos     int    // byte offset of the next raw record

	// base is the current string-table segment origin. pending is the
	// increment announced by the last segment-switch record; it takes
	// effect at the next switch, not immediately.
	base    int
	pending int

	buf []byte // accumulation buffer for continuation runs
}

func newJoiner(records, strs []byte) *joiner {
	return &joiner{records: records, strs: strs}
}

// switchSegment applies the previously announced string-table increment
// and records the next one. Mirrors how segment-switch records carry
// the size of the segment they close.
func (j *joiner) switchSegment(next int) {
	j.base += j.pending
	j.pending = next
}

// text resolves a record's string offset against the current segment.
// Out-of-range offsets yield an empty string rather than a fault.
func (j *joiner) text(strx uint32) []byte {
	off := j.base + int(strx)
	if off < 0 || off >= len(j.strs) {
		return nil
	}
	s := j.strs[off:]
	for i, c := range s {
		if c == 0 {
			return s[:i]
		}
	}
	return s
}

// next returns the following logical record. It reports false when the
// record array is exhausted, including when it ends mid-continuation.
func (j *joiner) next() (LogicalRecord, bool) {
	j.buf = j.buf[:0]
	for j.pos+recordSize <= len(j.records) {
		raw := decodeRecord(j.records[j.pos : j.pos+recordSize])
		j.pos += recordSize

		text := j.text(raw.strx)
		if len(text) > 0 && text[len(text)-1] == continuationMarker {
			// Continued on the next record: keep everything but the
			// marker and read on.
			j.buf = append(j.buf, text[:len(text)-1]...)
			continue
		}
		if len(j.buf) > 0 {
			text = append(j.buf, text...)
			j.buf = text
		}
		return LogicalRecord{Tag: raw.tag, Desc: raw.desc, Value: raw.value, Text: text}, true
	}
	return LogicalRecord{}, false
}
