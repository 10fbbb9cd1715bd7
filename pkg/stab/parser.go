package stab

import (
	"bytes"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/stabs/pkg/typegraph"
)

// Parser extracts symbols, locals, line numbers, and data types from
// one module's STAB records. All parse-run state (type tables, include
// definitions, the typedef cache) lives on the Parser, so independent
// modules can be parsed concurrently with independent Parsers. A single
// Parser must not be used from multiple goroutines.
type Parser struct {
	logger   zerolog.Logger
	types    TypeCatalog
	sink     SymbolSink
	resolver *typeResolver
	registry *typedefRegistry

	// scratch collects the ordered nodes of the typedef being parsed,
	// exactly what the dedup registry caches under the declared name.
	scratch []*typegraph.Node

	// scribble owns record text while type parsing rewrites it; logical
	// records may alias the read-only string blob.
	scribble []byte
}

// New returns a parser that allocates types through the given catalog
// and reports symbol events to the given sink.
func New(types TypeCatalog, sink SymbolSink, logger zerolog.Logger) *Parser {
	sub := logger.With().Str("component", "stab-parser").Logger()
	return &Parser{
		logger:   sub,
		types:    types,
		sink:     sink,
		resolver: newTypeResolver(),
		registry: newTypedefRegistry(sub),
	}
}

// Parse runs the dispatcher over a raw record array and its string
// blob. loadBase is added to every address the records carry. Local
// malformations degrade individual symbols or types; only a corrupt
// include stack aborts the run (with a panic, per the structural-limit
// policy).
func (p *Parser) Parse(records, strtab []byte, loadBase uint64) error {
	defer func() {
		p.registry.clear()
		p.resolver.releaseAll()
	}()

	j := newJoiner(records, strtab)

	pathObserver, _ := p.sink.(SourcePathObserver)

	var (
		currFunc    FunctionID
		hasFunc     bool
		currPath    []byte
		primaryPath string
		inExternal  bool
	)

	for {
		rec, ok := j.next()
		if !ok {
			break
		}
		text := rec.Text

		if bytes.IndexByte(text, '=') >= 0 {
			// Type definitions scribble on the text, so work on an
			// owned copy.
			p.scribble = append(p.scribble[:0], text...)
			text = p.scribble
			if !p.parseTypedef(text, nameBeforeColon(text)) {
				continue // skip the whole record
			}
		}

		switch rec.Tag {
		case TagGSym:
			p.sink.AddDataSymbol(nameBeforeColon(text), loadBase+uint64(rec.Value), p.symbolType(text), false)

		case TagStSym, TagLCSym, TagROSym:
			p.sink.AddDataSymbol(nameBeforeColon(text), loadBase+uint64(rec.Value), p.symbolType(text), true)

		case TagPSym, TagLSym:
			if hasFunc && !inExternal {
				local := p.sink.AddLocal(currFunc, 0, int64(int32(rec.Value)), nameBeforeColon(text))
				p.sink.SetLocalType(local, p.symbolType(text))
			}

		case TagRSym:
			if hasFunc && !inExternal {
				// Register number is stored plus one so that "no
				// register" stays distinguishable from register 0.
				local := p.sink.AddLocal(currFunc, int(rec.Value)+1, 0, nameBeforeColon(text))
				p.sink.SetLocalType(local, p.symbolType(text))
			}

		case TagSLine:
			// Line addresses are relative to the enclosing function start.
			if hasFunc && !inExternal {
				p.sink.AddLine(currFunc, int(rec.Desc), uint64(rec.Value))
			}

		case TagFun:
			hasFunc = false
			if inExternal {
				break
			}
			name := nameBeforeColon(text)
			if name == "" {
				// Synthetic end-of-function marker.
				break
			}
			currFunc = p.sink.AddFunctionSymbol(name, loadBase+uint64(rec.Value), p.symbolType(text))
			hasFunc = true

		case TagSO:
			hasFunc = false
			if len(text) == 0 {
				currPath = currPath[:0]
			} else {
				// Path components accumulate; an absolute component
				// restarts the path.
				if text[0] == '/' {
					currPath = append(currPath[:0], text...)
				} else {
					currPath = append(currPath, text...)
				}
				primaryPath = string(text)
			}
			if pathObserver != nil {
				pathObserver.SetSourcePath(string(currPath))
			}
			p.resolver.resetUnit()

		case TagSOL:
			inExternal = len(text) > 0 && string(text) != primaryPath

		case TagUndf:
			j.switchSegment(int(rec.Value))
			hasFunc = false

		case TagBIncl:
			p.resolver.enterInclude(string(text), rec.Value)

		case TagEIncl:
			// Matches an include begin; carries no state here.

		case TagExcl:
			idx, found := p.resolver.findInclude(string(text), rec.Value)
			if !found {
				p.logger.Warn().Str("include", string(text)).Uint32("value", rec.Value).
					Msg("re-export of an include file that was never defined")
				break
			}
			p.resolver.pushInclude(idx)

		case TagLBrac, TagRBrac, TagOpt, TagMain:
			// Scoping braces, compiler options, and the entry-point
			// marker carry nothing this parser needs.

		default:
			p.logger.Debug().Uint8("tag", uint8(rec.Tag)).Str("text", string(text)).
				Msg("unknown stab record tag")
		}
	}

	return nil
}

// symbolType reads the type reference a symbol record declares after
// its name, returning the node bound to that slot (possibly nil). The
// single character after the colon classifies the symbol and is skipped
// unless the reference starts immediately.
func (p *Parser) symbolType(text []byte) *typegraph.Node {
	i := bytes.IndexByte(text, ':')
	if i < 0 {
		return nil
	}
	c := &cursor{buf: text, pos: i + 1}
	if c.peek() != '(' {
		c.pos++
	}
	return p.resolver.resolve(c).get()
}

// nameBeforeColon returns the symbol name prefix of a record's text.
func nameBeforeColon(text []byte) string {
	if i := bytes.IndexByte(text, ':'); i >= 0 {
		return string(text[:i])
	}
	return string(text)
}
