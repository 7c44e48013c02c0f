package ingest

import "github.com/google/btree"

// idSet records which tree ids have already been accepted.
type idSet struct {
	tree *btree.BTreeG[uint32]
}

func newIDSet(degree int) *idSet {
	return &idSet{
		tree: btree.NewOrderedG[uint32](degree),
	}
}

// Add inserts id and reports whether it was new.
func (s *idSet) Add(id uint32) bool {
	_, found := s.tree.ReplaceOrInsert(id)
	return !found
}

func (s *idSet) Len() int {
	return s.tree.Len()
}

// Range reports the smallest and largest id seen.
func (s *idSet) Range() (uint32, uint32, bool) {
	lo, ok := s.tree.Min()
	if !ok {
		return 0, 0, false
	}
	hi, _ := s.tree.Max()
	return lo, hi, true
}
