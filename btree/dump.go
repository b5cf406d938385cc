// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package btree

import (
	"fmt"
	"iter"

	"github.com/pkg/errors"
)

// Kind tells what a Node of a dump describes.
type Kind uint8

const (
	Leaf      Kind = iota // a leaf page
	Internal              // an internal page
	LeafKey               // a key stored in a leaf
	Separator             // a key stored in an internal page
)

func (kind Kind) String() string {
	switch kind {
	case Leaf:
		return "leaf"
	case Internal:
		return "internal"
	case LeafKey:
		return "leaf key"
	case Separator:
		return "separator"
	}
	return fmt.Sprintf("Kind(%d)", uint8(kind))
}

// Node is one line of a dump. Size is set for pages, Key for keys.
type Node struct {
	Depth int
	Kind  Kind
	Size  uint32
	Key   uint32
}

func (node Node) String() string {
	switch node.Kind {
	case Leaf, Internal:
		return fmt.Sprintf("%s (size %d)", node.Kind, node.Size)
	case Separator:
		return fmt.Sprintf("key %d", node.Key)
	}
	return fmt.Sprint(node.Key)
}

// Dump yields the tree in pre-order: a page, then its content one level
// deeper. An internal page lists each child followed by its separator key,
// then the right child.
func (tree *Tree[P]) Dump() iter.Seq2[Node, error] {
	return func(yield func(Node, error) bool) {
		tree.dump(tree.pager.Root(), 0, yield)
	}
}

func (tree *Tree[P]) dump(id PageID, depth int, yield func(Node, error) bool) bool {
	if uint32(depth) > tree.pager.PageCount() {
		yield(Node{}, errors.Wrap(ErrCorrupt, "cycle in tree"))
		return false
	}
	page, err := tree.page(id)
	if err != nil {
		yield(Node{}, err)
		return false
	}

	n := page.Count()
	if page.IsLeaf() {
		if !yield(Node{Depth: depth, Kind: Leaf, Size: n}, nil) {
			return false
		}
		for i := range n {
			if !yield(Node{Depth: depth + 1, Kind: LeafKey, Key: page.LeafKey(i)}, nil) {
				return false
			}
		}
		return true
	}

	if !yield(Node{Depth: depth, Kind: Internal, Size: n}, nil) {
		return false
	}
	for i := range n {
		if !tree.dump(page.InternalChild(i), depth+1, yield) {
			return false
		}
		if !yield(Node{Depth: depth + 1, Kind: Separator, Key: page.InternalKey(i)}, nil) {
			return false
		}
	}
	return tree.dump(page.RightChild(), depth+1, yield)
}
