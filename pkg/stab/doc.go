// Package stab parses the line-oriented STAB debug-information
// encoding found in compiled object files: terse text records that
// describe functions, variables, source lines, and data types with a
// per-tag micro-grammar.
//
// The package is a pure library. Callers hand Parse an in-memory record
// array and string blob (see internal/elfobj for the ELF plumbing) and
// receive the results through two collaborator interfaces: a
// TypeCatalog that allocates type nodes and a SymbolSink that stores
// symbol, local, and line events.
//
// The hard parts live here: resolving forward and cross-compilation-
// unit type references through per-include-file tables, reconstructing
// composite types from the order-dependent grammar embedded in record
// strings, and recognizing typedefs that recur in every translation
// unit including a common header so their type graphs are shared
// instead of rebuilt.
package stab
