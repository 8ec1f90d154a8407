// Package directory implements the four serialized-set directory entries
// that track which databases, relations, SLRU segments, and two-phase
// transactions exist at a given point in the keyspace: DbDirectory,
// RelDirectory, SlruSegmentDirectory, and TwoPhaseDirectory.
//
// Each directory is stored as a single Image blob at a well-known key and
// mutated by a read-modify-write cycle: read the current blob, decode it,
// mutate the in-memory set, encode it, write it back. Membership is kept
// in a google/btree ordered set rather than a map so encoding is
// deterministic (sorted) and round-trips byte-for-byte — the original's
// unordered HashSet does not give that guarantee, and a directory blob
// that reserializes differently on every write would make two
// bit-identical directory states look different on disk for no reason.
package directory

import "github.com/google/btree"

// orderedSet is a small wrapper around btree.BTreeG giving the four
// directory types Insert/Remove/Contains/Ascend without repeating the
// btree plumbing four times.
type orderedSet[T any] struct {
	tree *btree.BTreeG[T]
}

func newOrderedSet[T any](less func(a, b T) bool) orderedSet[T] {
	return orderedSet[T]{tree: btree.NewG(32, less)}
}

// insert adds item if absent and reports whether it was newly added,
// matching Rust's HashSet::insert semantics.
func (s orderedSet[T]) insert(item T) bool {
	_, existed := s.tree.ReplaceOrInsert(item)
	return !existed
}

// remove deletes item and reports whether it was present.
func (s orderedSet[T]) remove(item T) bool {
	_, existed := s.tree.Delete(item)
	return existed
}

func (s orderedSet[T]) contains(item T) bool {
	return s.tree.Has(item)
}

func (s orderedSet[T]) len() int {
	return s.tree.Len()
}

// ascend visits every member in sorted order.
func (s orderedSet[T]) ascend(visit func(T) bool) {
	s.tree.Ascend(func(item T) bool {
		return visit(item)
	})
}
