// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package btree

import (
	"iter"

	"github.com/pkg/errors"

	"github.com/ynnekF/sqlite-engine/row"
)

// SelectAll yields every row in ascending id order by walking the tree from
// the root. Each call starts a fresh traversal.
func (tree *Tree[P]) SelectAll() iter.Seq2[row.Row, error] {
	return func(yield func(row.Row, error) bool) {
		tree.walk(tree.pager.Root(), 0, yield)
	}
}

func (tree *Tree[P]) walk(id PageID, depth uint32, yield func(row.Row, error) bool) bool {
	if depth > tree.pager.PageCount() {
		yield(row.Row{}, errors.Wrap(ErrCorrupt, "cycle in tree"))
		return false
	}
	page, err := tree.page(id)
	if err != nil {
		yield(row.Row{}, err)
		return false
	}
	if page.IsLeaf() {
		for i := range page.Count() {
			if !yield(page.LeafRow(i), nil) {
				return false
			}
		}
		return true
	}
	for i := uint32(0); i <= page.Count(); i++ {
		if !tree.walk(page.InternalChild(i), depth+1, yield) {
			return false
		}
	}
	return true
}

// Scan yields every row in ascending id order by following the leaf chain.
func (tree *Tree[P]) Scan() iter.Seq2[row.Row, error] {
	return func(yield func(row.Row, error) bool) {
		for leaf, err := range tree.leaves() {
			if err != nil {
				yield(row.Row{}, err)
				return
			}
			for i := range leaf.page.Count() {
				if !yield(leaf.page.LeafRow(i), nil) {
					return
				}
			}
		}
	}
}

type leaf struct {
	id   PageID
	page Page
}

// leaves yields the leaves from the leftmost one along the chain.
func (tree *Tree[P]) leaves() iter.Seq2[leaf, error] {
	return func(yield func(leaf, error) bool) {
		id, err := tree.firstLeaf()
		if err != nil {
			yield(leaf{}, err)
			return
		}
		for steps := uint32(0); id != noLeaf; steps++ {
			if steps > tree.pager.PageCount() {
				yield(leaf{}, errors.Wrap(ErrCorrupt, "cycle in leaf chain"))
				return
			}
			page, err := tree.page(id)
			if err != nil {
				yield(leaf{}, err)
				return
			}
			if !page.IsLeaf() {
				yield(leaf{}, errors.Wrapf(ErrCorrupt, "leaf chain reaches internal page %d", id))
				return
			}
			if !yield(leaf{id, page}, nil) {
				return
			}
			id = page.NextLeaf()
		}
	}
}

func (tree *Tree[P]) firstLeaf() (PageID, error) {
	id := tree.pager.Root()
	for depth := uint32(0); ; depth++ {
		if depth > tree.pager.PageCount() {
			return 0, errors.Wrap(ErrCorrupt, "cycle in tree")
		}
		page, err := tree.page(id)
		if err != nil {
			return 0, err
		}
		if page.IsLeaf() {
			return id, nil
		}
		id = page.InternalChild(0)
	}
}

// Len returns the number of rows.
func (tree *Tree[P]) Len() (n int, err error) {
	for leaf, err := range tree.leaves() {
		if err != nil {
			return 0, err
		}
		n += int(leaf.page.Count())
	}
	return
}

// Height returns the number of internal levels above the leaves.
// Returns 0 for a root-only tree (single leaf page).
func (tree *Tree[P]) Height() (high int, err error) {
	id := tree.pager.Root()
	for {
		page, err := tree.page(id)
		if err != nil {
			return 0, err
		}
		if page.IsLeaf() {
			return high, nil
		}
		if uint32(high) > tree.pager.PageCount() {
			return 0, errors.Wrap(ErrCorrupt, "cycle in tree")
		}
		high++
		id = page.InternalChild(0)
	}
}
