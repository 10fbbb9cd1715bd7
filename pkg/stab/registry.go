package stab

import (
	"bytes"

	"github.com/rs/zerolog"
	"github.com/zeebo/xxh3"

	"github.com/coral-mesh/stabs/pkg/typegraph"
)

// registryBuckets is the fixed bucket count of the typedef cache.
const registryBuckets = 521

// typedefEntry caches the ordered node list produced the first time a
// named typedef was parsed. Entries chain within a bucket.
type typedefEntry struct {
	name  string
	nodes []*typegraph.Node
	next  *typedefEntry
}

// typedefRegistry recognizes typedef definitions that were already
// parsed in an earlier compilation unit (the same header included
// again) and rebinds the new type-table slots to the existing nodes
// instead of rebuilding the whole sub-graph.
type typedefRegistry struct {
	buckets [registryBuckets]*typedefEntry
	logger  zerolog.Logger
}

func newTypedefRegistry(logger zerolog.Logger) *typedefRegistry {
	return &typedefRegistry{logger: logger}
}

func bucketFor(name string) int {
	return int(xxh3.HashString(name) % registryBuckets)
}

// register caches the ordered nodes of a freshly parsed typedef. A
// single-node definition is never ambiguous on reuse, so it is not
// worth an entry. A name that is already cached keeps its first entry:
// a later same-name definition only reaches here after a shape
// mismatch, and replacing the entry would let the two shapes fight
// over every subsequent unit.
func (r *typedefRegistry) register(name string, nodes []*typegraph.Node) {
	if len(nodes) <= 1 || r.lookup(name) != nil {
		return
	}
	b := bucketFor(name)
	entry := &typedefEntry{
		name:  name,
		nodes: append([]*typegraph.Node(nil), nodes...),
		next:  r.buckets[b],
	}
	r.buckets[b] = entry
}

// lookup returns the first cached entry for name, if any.
func (r *typedefRegistry) lookup(name string) *typedefEntry {
	for e := r.buckets[bucketFor(name)]; e != nil; e = e.next {
		if e.name == name {
			return e
		}
	}
	return nil
}

// expectedKind maps a definition tag character onto the node kind the
// cache must hold at that position. The second result is false for the
// plain-reference tag, which matches any kind.
func expectedKind(tag byte) (typegraph.Kind, bool) {
	switch tag {
	case '*':
		return typegraph.KindPointer, true
	case 's', 'u', 'x':
		return typegraph.KindStruct, true
	case 'a':
		return typegraph.KindArray, true
	case '1', 'r':
		return typegraph.KindBasic, true
	case 'e':
		return typegraph.KindEnum, true
	case 'f':
		return typegraph.KindFunc, true
	}
	return 0, false
}

// lookupAndRebind reports whether def is a typedef this run has parsed
// before under the same name with the same shape. When it is, every
// slot referenced in def is bound to the cached node at the matching
// position and the caller must skip the full parse. A shape mismatch is
// a routing decision, not an error: the caller falls through to a fresh
// parse, and the stale entry stays (first definition wins).
func (r *typedefRegistry) lookupAndRebind(def []byte, name string, res *typeResolver) bool {
	entry := r.lookup(name)
	if entry == nil {
		return false
	}

	// Cheap shape check: the ordered sequence of kind tags must match
	// the cached node kinds one for one.
	count := 0
	for i := bytes.IndexByte(def, '='); i >= 0; i = nextEq(def, i) {
		if count >= len(entry.nodes) {
			return false
		}
		if i+1 >= len(def) {
			return false
		}
		tag := def[i+1]
		want, strict := expectedKind(tag)
		if !strict && tag != '(' {
			r.logger.Warn().Str("def", string(def)).Str("tag", string(rune(tag))).Msg("unknown type tag in cached typedef check")
			return false
		}
		if strict {
			cached := entry.nodes[count]
			if cached == nil || cached.Kind() != want {
				return false
			}
		}
		count++
	}
	if count != len(entry.nodes) {
		return false
	}

	// Full match: rebind each referenced slot to the cached node.
	count = 0
	for i := bytes.IndexByte(def, '='); i >= 0; i = nextEq(def, i) {
		res.resolveBackwards(def, i-1).set(entry.nodes[count])
		count++
	}
	return true
}

// clear drops every cached entry; called once at the end of a parse run.
func (r *typedefRegistry) clear() {
	for i := range r.buckets {
		r.buckets[i] = nil
	}
}

// nextEq finds the next '=' strictly after position i, or -1.
func nextEq(b []byte, i int) int {
	j := bytes.IndexByte(b[i+1:], '=')
	if j < 0 {
		return -1
	}
	return i + 1 + j
}
