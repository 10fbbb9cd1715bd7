// Package elfobj locates STAB debug information inside ELF object
// files and hands the parser in-memory buffers. It also implements the
// fallback walk over the linker symbol table, used when debug records
// are absent or incomplete.
package elfobj

import (
	"debug/elf"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	xerrors "github.com/coral-mesh/stabs/internal/errors"
	"github.com/coral-mesh/stabs/internal/symtab"
	"github.com/coral-mesh/stabs/pkg/stab"
	"github.com/coral-mesh/stabs/pkg/typegraph"
)

// ErrNoStabData means the file carries no .stab/.stabstr sections.
// Callers typically fall back to WalkSymtab.
var ErrNoStabData = errors.New("elfobj: no .stab section")

// StabData is the raw material the parser consumes.
type StabData struct {
	Records []byte // fixed-layout record array (.stab)
	Strings []byte // null-terminated string blob (.stabstr)
	Base    uint64 // relocation base to add to every address
}

// File wraps an opened ELF object.
type File struct {
	path   string
	f      *elf.File
	logger zerolog.Logger
}

// Open opens the object at path for symbol extraction.
func Open(path string, logger zerolog.Logger) (*File, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ELF file %s: %w", path, err)
	}
	return &File{
		path:   path,
		f:      f,
		logger: logger.With().Str("component", "elfobj").Str("file", path).Logger(),
	}, nil
}

// Close releases the underlying file.
func (f *File) Close() error {
	return f.f.Close()
}

// StabData reads the .stab and .stabstr sections. loadOffset is the
// address the module was loaded at and becomes the relocation base for
// every symbol the records declare.
func (f *File) StabData(loadOffset uint64) (*StabData, error) {
	stabSec := f.f.Section(".stab")
	strSec := f.f.Section(".stabstr")
	if stabSec == nil || strSec == nil {
		return nil, ErrNoStabData
	}

	records, err := stabSec.Data()
	if err != nil {
		return nil, fmt.Errorf("read .stab: %w", err)
	}
	strings, err := strSec.Data()
	if err != nil {
		return nil, fmt.Errorf("read .stabstr: %w", err)
	}

	f.logger.Debug().
		Int("records", len(records)/12).
		Int("strtab_bytes", len(strings)).
		Msg("Located stab sections")

	return &StabData{Records: records, Strings: strings, Base: loadOffset}, nil
}

// WalkSymtab adds every useful entry of .symtab and .dynsym to the
// module: section and undefined entries are skipped, file entries only
// scope the statics that follow them, and symbols the debug records
// already placed at the same address are left alone. Returns how many
// symbols were added.
func (f *File) WalkSymtab(m *symtab.Module, loadOffset uint64) (int, error) {
	added := 0

	walk := func(syms []elf.Symbol) {
		curFile := ""
		for _, sym := range syms {
			st := elf.ST_TYPE(sym.Info)
			if st == elf.STT_SECTION || sym.Section == elf.SHN_UNDEF {
				continue
			}
			if st == elf.STT_FILE {
				curFile = sym.Name
				continue
			}

			addr := loadOffset + sym.Value
			if m.HasSymbolAt(sym.Name, addr) {
				continue
			}

			global := elf.ST_BIND(sym.Info) == elf.STB_GLOBAL
			source := curFile
			if global {
				source = ""
			}
			m.AddRawSymbol(sym.Name, addr, sym.Size, st == elf.STT_FUNC, !global, source)
			added++
		}
	}

	syms, err := f.f.Symbols()
	if err != nil && !errors.Is(err, elf.ErrNoSymbols) {
		return added, fmt.Errorf("read .symtab: %w", err)
	}
	walk(syms)

	dyns, err := f.f.DynamicSymbols()
	if err != nil && !errors.Is(err, elf.ErrNoSymbols) {
		return added, fmt.Errorf("read .dynsym: %w", err)
	}
	walk(dyns)

	return added, nil
}

// LoadModule extracts everything the object at path offers: STAB debug
// records when present, then the linker symbol table to fill the gaps.
// Types are allocated into the supplied graph.
func LoadModule(path string, loadOffset uint64, graph *typegraph.Graph, logger zerolog.Logger) (*symtab.Module, error) {
	f, err := Open(path, logger)
	if err != nil {
		return nil, err
	}
	defer xerrors.DeferClose(f.logger, f, "Failed to close object file")

	m := symtab.NewModule(path, loadOffset, logger)

	sd, err := f.StabData(loadOffset)
	switch {
	case err == nil:
		p := stab.New(graph, m, logger)
		if perr := p.Parse(sd.Records, sd.Strings, sd.Base); perr != nil {
			return nil, fmt.Errorf("parse stabs in %s: %w", path, perr)
		}
	case errors.Is(err, ErrNoStabData):
		f.logger.Warn().Msg("No stab debug info, relying on linker symbol table")
	default:
		return nil, err
	}

	added, err := f.WalkSymtab(m, loadOffset)
	if err != nil {
		return nil, err
	}
	f.logger.Debug().Int("symtab_added", added).Msg("Symbol table walk complete")

	m.Normalize()
	return m, nil
}
