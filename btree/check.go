// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package btree

import (
	"github.com/pkg/errors"

	engine "github.com/ynnekF/sqlite-engine"
)

// Check verifies the structure of the whole tree: key order and bounds,
// separator keys, page capacities, parent links, root flags, equal leaf
// depth and the leaf chain. It returns an ErrCorrupt error for the first
// violation found.
func (tree *Tree[P]) Check() error {
	c := checker[P]{tree: tree, depth: -1}
	root := tree.pager.Root()
	if _, _, err := c.node(root, engine.InvalidPage, 0, bound{}, bound{}); err != nil {
		return err
	}

	i := 0
	for leaf, err := range tree.leaves() {
		if err != nil {
			return err
		}
		if i >= len(c.leaves) {
			return errors.Wrap(ErrCorrupt, "leaf chain is longer than the tree")
		}
		if leaf.id != c.leaves[i] {
			return errors.Wrapf(ErrCorrupt, "leaf chain has page %d at position %d, want %d", leaf.id, i, c.leaves[i])
		}
		i++
	}
	if i != len(c.leaves) {
		return errors.Wrapf(ErrCorrupt, "leaf chain has %d of %d leaves", i, len(c.leaves))
	}
	return nil
}

type bound struct {
	key uint32
	set bool
}

type checker[P Pager] struct {
	tree   *Tree[P]
	depth  int
	leaves []PageID
}

// node checks the subtree at id, whose keys must be in (lo, hi], and
// returns its largest key.
func (c *checker[P]) node(id, parent PageID, depth int, lo, hi bound) (max uint32, empty bool, err error) {
	if uint32(depth) > c.tree.pager.PageCount() {
		err = errors.Wrap(ErrCorrupt, "cycle in tree")
		return
	}
	page, err := c.tree.page(id)
	if err != nil {
		return
	}

	isRoot := parent == engine.InvalidPage
	if page.IsRoot() != isRoot {
		err = errors.Wrapf(ErrCorrupt, "page %d root flag is %v", id, page.IsRoot())
		return
	}
	if page.Parent() != parent {
		err = errors.Wrapf(ErrCorrupt, "page %d parent is %d, want %d", id, page.Parent(), parent)
		return
	}

	inRange := func(key uint32) bool {
		return (!lo.set || key > lo.key) && (!hi.set || key <= hi.key)
	}

	n := page.Count()
	if page.IsLeaf() {
		if c.depth < 0 {
			c.depth = depth
		} else if c.depth != depth {
			err = errors.Wrapf(ErrCorrupt, "leaf %d at depth %d, want %d", id, depth, c.depth)
			return
		}
		c.leaves = append(c.leaves, id)

		switch {
		case n > LeafMaxCells:
			err = errors.Wrapf(ErrCorrupt, "leaf %d has %d cells", id, n)
			return
		case n == 0 && !isRoot:
			err = errors.Wrapf(ErrCorrupt, "leaf %d is empty", id)
			return
		case n == 0:
			empty = true
			return
		}
		for i := range n {
			key := page.LeafKey(i)
			if !inRange(key) || (i > 0 && key <= page.LeafKey(i-1)) {
				err = errors.Wrapf(ErrCorrupt, "leaf %d key %d out of order", id, key)
				return
			}
		}
		return page.leafMax(), false, nil
	}

	if n == 0 || n > InternalMaxKeys {
		err = errors.Wrapf(ErrCorrupt, "internal page %d has %d keys", id, n)
		return
	}
	low := lo
	for i := range n {
		key := page.InternalKey(i)
		if !inRange(key) || (low.set && key <= low.key) {
			err = errors.Wrapf(ErrCorrupt, "internal page %d key %d out of order", id, key)
			return
		}
		var childMax uint32
		if childMax, _, err = c.node(page.InternalChild(i), id, depth+1, low, bound{key, true}); err != nil {
			return
		}
		if childMax != key {
			err = errors.Wrapf(ErrCorrupt, "internal page %d key %d, child max is %d", id, key, childMax)
			return
		}
		low = bound{key, true}
	}
	max, _, err = c.node(page.RightChild(), id, depth+1, low, hi)
	return
}
