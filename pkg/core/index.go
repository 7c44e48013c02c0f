package core

import (
	"errors"
	"sort"

	"arbor/pkg/common"
)

var ErrEmptyIndex = errors.New("cannot build index from empty input")

const none = -1

type node struct {
	rec   common.Record
	left  int
	right int
}

// CategoryIndex is an unbalanced binary search tree over records ordered by
// height. Records with equal height go to the left. Nodes live in a single
// arena slice and reference their children by position; node 0 is the root.
type CategoryIndex struct {
	nodes []node
}

// BuildIndex sorts the input by height, roots the tree at the median and
// inserts the rest. The input slice is not modified.
func BuildIndex(records []common.Record) (*CategoryIndex, error) {
	if len(records) == 0 {
		return nil, ErrEmptyIndex
	}

	sorted := make([]common.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Height < sorted[j].Height
	})

	mid := len(sorted) / 2
	idx := &CategoryIndex{nodes: make([]node, 0, len(sorted))}
	idx.nodes = append(idx.nodes, node{rec: sorted[mid], left: none, right: none})

	rest := append(sorted[:mid:mid], sorted[mid+1:]...)
	for i := len(rest) - 1; i >= 0; i-- {
		idx.insert(rest[i])
	}
	return idx, nil
}

func (idx *CategoryIndex) insert(rec common.Record) {
	pos := len(idx.nodes)
	idx.nodes = append(idx.nodes, node{rec: rec, left: none, right: none})

	cur := 0
	for {
		n := &idx.nodes[cur]
		if rec.Height > n.rec.Height {
			if n.right == none {
				n.right = pos
				return
			}
			cur = n.right
		} else {
			if n.left == none {
				n.left = pos
				return
			}
			cur = n.left
		}
	}
}

// Minimum returns the record with the smallest height.
func (idx *CategoryIndex) Minimum() common.Record {
	cur := 0
	for idx.nodes[cur].left != none {
		cur = idx.nodes[cur].left
	}
	return idx.nodes[cur].rec
}

// Maximum returns the record with the largest height.
func (idx *CategoryIndex) Maximum() common.Record {
	cur := 0
	for idx.nodes[cur].right != none {
		cur = idx.nodes[cur].right
	}
	return idx.nodes[cur].rec
}

func (idx *CategoryIndex) Size() int {
	return len(idx.nodes)
}

// Depth is the number of nodes on the longest root-to-leaf path.
func (idx *CategoryIndex) Depth() int {
	type frame struct{ pos, depth int }

	deepest := 0
	stack := []frame{{0, 1}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.depth > deepest {
			deepest = f.depth
		}
		n := idx.nodes[f.pos]
		if n.left != none {
			stack = append(stack, frame{n.left, f.depth + 1})
		}
		if n.right != none {
			stack = append(stack, frame{n.right, f.depth + 1})
		}
	}
	return deepest
}

// Walk visits records in ascending height order. Returning false stops the
// walk.
func (idx *CategoryIndex) Walk(fn func(rec common.Record) bool) {
	var stack []int
	cur := 0
	for cur != none || len(stack) > 0 {
		for cur != none {
			stack = append(stack, cur)
			cur = idx.nodes[cur].left
		}
		cur = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(idx.nodes[cur].rec) {
			return
		}
		cur = idx.nodes[cur].right
	}
}
