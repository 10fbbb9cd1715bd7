package stab

import "bytes"

// parseTypedef consumes every `=`-introduced type definition embedded in
// buf, binding the resulting nodes into the resolver's type tables. It
// mutates buf in place: as each sub-definition is consumed from the
// right, the retained tail is compacted leftward and the working limit
// shrinks, which is what lets the repeated rightmost-`=` scan make
// progress. name is the symbol the record declares.
//
// It reports false when the record is malformed beyond use; the caller
// skips the record and carries on.
func (p *Parser) parseTypedef(buf []byte, name string) bool {
	if p.registry.lookupAndRebind(buf, name, p.resolver) {
		return true
	}

	if !p.allocateSkeletons(buf, name) {
		return false
	}
	if !p.fillSkeletons(buf) {
		return false
	}

	p.registry.register(name, p.scratch)
	return true
}

// allocateSkeletons is the first pass: left to right, resolve the slot
// before each '=' and park a node of the right kind in it, so that
// later definitions (and self-references) can already see it. Only the
// first skeleton inherits the declared name; the rest are anonymous.
func (p *Parser) allocateSkeletons(buf []byte, name string) bool {
	p.scratch = p.scratch[:0]
	declName := name

	for i := bytes.IndexByte(buf, '='); i >= 0; i = nextEq(buf, i) {
		if i+1 >= len(buf) {
			p.logger.Warn().Str("record", string(buf)).Msg("type definition truncated at '='")
			return false
		}
		sl := p.resolver.resolveBackwards(buf, i-1)
		tag := buf[i+1]

		if tag == '(' {
			// Plain reference to another type, resolved in the second
			// pass; no node yet.
			p.scratch = append(p.scratch, nil)
			declName = ""
			continue
		}

		n := sl.get()
		if n == nil {
			switch tag {
			case '*':
				n = p.types.NewPointerType()
			case 's', 'u':
				n = p.types.NewStructType(declName)
			case 'a':
				n = p.types.NewArrayType()
			case '1', 'r':
				n = p.types.NewBasicType(declName)
			case 'x':
				n = p.types.NewStructType(crossRefName(buf, i+3))
			case 'e':
				n = p.types.NewEnumType()
			case 'f':
				n = p.types.NewFunctionType()
			default:
				p.logger.Warn().Str("tag", string(rune(tag))).Str("record", string(buf)).Msg("unknown type tag")
				return false
			}
			sl.set(n)
		}
		p.scratch = append(p.scratch, n)
		declName = ""
	}
	return true
}

// fillSkeletons is the second pass: repeatedly take the rightmost
// remaining '=', fill in that skeleton's payload, and cut the consumed
// text. Innermost definitions therefore complete before the composites
// that embed them.
func (p *Parser) fillSkeletons(buf []byte) bool {
	limit := len(buf)
	ntp := len(p.scratch) - 1

	for {
		e := bytes.LastIndexByte(buf[:limit], '=')
		if e < 0 {
			break
		}
		if e+1 >= limit {
			p.logger.Warn().Str("record", string(buf[:limit])).Msg("type definition truncated at '='")
			return false
		}
		sl := p.resolver.resolveBackwards(buf[:limit], e-1)
		tag := buf[e+1]
		c := &cursor{buf: buf[:limit], pos: e + 2}

		switch tag {
		case 'x':
			// Cross-reference by name; the name was consumed in pass 1.
			ntp--
			c.pos = e + 3
			for c.pos < limit && buf[c.pos] != ':' {
				c.pos++
			}
			c.pos++
			limit = splice(buf, e, c.pos, limit)

		case '*', 'f':
			ntp--
			target := p.resolver.resolve(c).get()
			if n := sl.get(); n != nil {
				p.types.SetPointerTarget(n, target)
			}
			limit = splice(buf, e, c.pos, limit)

		case '(':
			c.pos = e + 1
			ref := p.resolver.resolve(c)
			own, other := sl.get(), ref.get()
			switch {
			case own == nil && other != nil:
				sl.set(other)
			case own == nil && other == nil:
				// A base type that is only ever referenced, never
				// defined with a kind tag: synthesize it here.
				n := p.types.NewBasicType("")
				ref.set(n)
				sl.set(n)
			default:
				p.logger.Warn().Str("record", string(buf[:limit])).Msg("conflicting plain type reference")
			}
			p.scratch[ntp] = sl.get()
			ntp--
			limit = splice(buf, e, c.pos, limit)

		case '1', 'r':
			// The skeleton is the whole definition. A format qualifier
			// after 'r' is dropped along with the rest of the text.
			ntp--
			limit = e

		case 'a':
			ntp--
			c.pos = e + 3 // past the range marker introducing the index type
			p.resolver.resolve(c) // index type, always integral here
			c.pos++               // ';'
			min := c.scanInt()
			c.pos++ // ';'
			max := c.scanInt()
			c.pos++ // ';'
			elem := p.resolver.resolve(c).get()
			if n := sl.get(); n != nil {
				p.types.SetArrayBounds(n, min, max, elem)
			}
			limit = splice(buf, e, c.pos, limit)

		case 's', 'u':
			ntp--
			limit = p.parseStructBody(buf, sl, e, limit)

		case 'e':
			ntp--
			limit = p.parseEnumBody(buf, sl, e, limit)

		default:
			p.logger.Warn().Str("tag", string(rune(tag))).Str("record", string(buf[:limit])).Msg("unknown type tag")
			return false
		}
	}
	return true
}

// parseStructBody fills a struct/union skeleton with its byte size and
// field list, and returns the shrunken limit. When the node was already
// sized by an earlier identical definition, the field list is skipped
// wholesale so fields are never duplicated. A field whose type never
// resolved invalidates the whole struct: its slot is emptied so nothing
// downstream trusts a half-built type, but the remaining fields are
// still scanned for diagnostics.
func (p *Parser) parseStructBody(buf []byte, sl slot, e, limit int) int {
	node := sl.get()
	c := &cursor{buf: buf[:limit], pos: e + 2}
	size := c.scanInt()

	if node == nil || !p.types.SetStructSize(node, size) {
		for c.pos+1 < limit && !(buf[c.pos] == ';' && buf[c.pos+1] == ';') {
			c.pos++
		}
		c.pos += 2
		return splice(buf, e, c.pos, limit)
	}

	failed := false
	for c.pos < limit && buf[c.pos] != ';' {
		start := c.pos
		for c.pos < limit && buf[c.pos] != ':' {
			c.pos++
		}
		if c.pos >= limit {
			p.logger.Warn().Str("record", string(buf[:limit])).Msg("struct field truncated")
			failed = true
			break
		}
		fieldName := string(buf[start:c.pos])
		c.pos++ // ':'
		ft := p.resolver.resolve(c).get()
		c.pos++ // ','
		offset := c.scanInt()
		c.pos++ // ','
		fieldSize := c.scanInt()
		c.pos++ // ';'

		if ft != nil {
			p.types.AddStructField(node, fieldName, ft, offset, fieldSize)
		} else {
			failed = true
			p.logger.Warn().
				Str("record", string(buf[:limit])).
				Str("field", fieldName).
				Msg("struct field type did not resolve")
		}
	}
	if failed {
		sl.set(nil)
	}
	return splice(buf, e, c.pos+1, limit)
}

// parseEnumBody fills an enum skeleton with its named constants.
func (p *Parser) parseEnumBody(buf []byte, sl slot, e, limit int) int {
	node := sl.get()
	c := &cursor{buf: buf[:limit], pos: e + 2}

	for c.pos < limit && buf[c.pos] != ';' {
		start := c.pos
		for c.pos < limit && buf[c.pos] != ':' {
			c.pos++
		}
		if c.pos >= limit {
			p.logger.Warn().Str("record", string(buf[:limit])).Msg("enum member truncated")
			break
		}
		memberName := string(buf[start:c.pos])
		c.pos++ // ':'
		value := c.scanInt()
		c.pos++ // ';'
		if node != nil {
			p.types.AddEnumMember(node, memberName, value)
		}
	}
	return splice(buf, e, c.pos+1, limit)
}

// splice removes buf[from:to], compacting the retained tail leftward,
// and returns the new upper bound. The bound only ever moves left.
func splice(buf []byte, from, to, limit int) int {
	if to >= limit {
		return from
	}
	copy(buf[from:], buf[to:limit])
	return from + (limit - to)
}

// crossRefName reads the name embedded in a cross-reference definition,
// which runs up to the next ':' or the end of the buffer.
func crossRefName(buf []byte, from int) string {
	if from >= len(buf) {
		return ""
	}
	end := from
	for end < len(buf) && buf[end] != ':' {
		end++
	}
	return string(buf[from:end])
}
