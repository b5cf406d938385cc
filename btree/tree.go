// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

// Package btree stores the rows of a table in a B+ tree keyed by row id.
// Every node is one page of the pager; leaves hold the rows and are chained
// in key order, internal pages hold the largest key below each child.
package btree

import (
	"slices"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	engine "github.com/ynnekF/sqlite-engine"
	"github.com/ynnekF/sqlite-engine/internal/logger"
	"github.com/ynnekF/sqlite-engine/pager"
	"github.com/ynnekF/sqlite-engine/row"
)

var (
	ErrDuplicateKey = engine.ErrDuplicateKey
	ErrTableFull    = engine.ErrTableFull
	ErrCorrupt      = engine.ErrCorrupt
)

// Pager is the page store a Tree lives in. *pager.Pager implements it.
type Pager interface {
	Root() PageID
	SetRoot(PageID)
	PageCount() uint32
	Free() uint32
	Allocate() (PageID, error)
	Get(PageID) (pager.Page, error)
	MarkDirty(PageID)
}

// Tree is not safe for concurrent use.
type Tree[P Pager] struct {
	pager P
	log   logrus.FieldLogger
}

// Cursor is a position in a leaf: the cell holding a key, or the cell the
// key would be inserted at.
type Cursor struct {
	Page  PageID
	Index uint32
}

// Load binds the tree to the root of pager, creating an empty root leaf for
// a new file.
func (tree *Tree[P]) Load(p P, log logrus.FieldLogger) error {
	if log == nil {
		log = logger.Discard()
	}
	tree.pager = p
	tree.log = log

	if id := p.Root(); id != engine.InvalidPage {
		root, err := tree.page(id)
		if err != nil {
			return err
		}
		if !root.IsRoot() {
			return errors.Wrapf(ErrCorrupt, "page %d is not a root", id)
		}
		return nil
	}

	id, err := p.Allocate()
	if err != nil {
		return err
	}
	root, err := tree.page(id)
	if err != nil {
		return err
	}
	root.initLeaf()
	root.setRoot(true)
	p.MarkDirty(id)
	p.SetRoot(id)
	log.WithField("page", id).Debug("created root leaf")
	return nil
}

func (tree *Tree[P]) page(id PageID) (Page, error) {
	got, err := tree.pager.Get(id)
	if err != nil {
		return nil, err
	}
	page := Page(got)
	switch page[0] {
	case typeLeaf:
		if n := page.Count(); n > LeafMaxCells {
			return nil, errors.Wrapf(ErrCorrupt, "leaf %d has %d cells", id, n)
		}
	case typeInternal:
		if n := page.Count(); n > InternalMaxKeys {
			return nil, errors.Wrapf(ErrCorrupt, "internal page %d has %d keys", id, n)
		}
	default:
		return nil, errors.Wrapf(ErrCorrupt, "page %d has node type %d", id, page[0])
	}
	return page, nil
}

// Find descends from the root to the leaf that holds key or would hold it.
func (tree *Tree[P]) Find(key uint32) (Cursor, error) {
	id := tree.pager.Root()
	for depth := uint32(0); ; depth++ {
		if depth > tree.pager.PageCount() {
			return Cursor{}, errors.Wrap(ErrCorrupt, "cycle in tree")
		}
		page, err := tree.page(id)
		if err != nil {
			return Cursor{}, err
		}
		if page.IsLeaf() {
			index, _ := page.leafIndex(key)
			return Cursor{Page: id, Index: index}, nil
		}
		id = page.InternalChild(page.childIndex(key))
	}
}

// Get returns the row with the given id.
func (tree *Tree[P]) Get(key uint32) (r row.Row, ok bool, err error) {
	cursor, err := tree.Find(key)
	if err != nil {
		return
	}
	leaf, err := tree.page(cursor.Page)
	if err != nil {
		return
	}
	if cursor.Index < leaf.Count() && leaf.LeafKey(cursor.Index) == key {
		r, ok = leaf.LeafRow(cursor.Index), true
	}
	return
}

// Insert adds r to the tree. A row with the same id, or a split that needs
// more pages than the pager has left, fails without changing the tree.
func (tree *Tree[P]) Insert(r row.Row) error {
	if err := r.Validate(); err != nil {
		return err
	}

	cursor, err := tree.Find(r.ID)
	if err != nil {
		return err
	}
	leaf, err := tree.page(cursor.Page)
	if err != nil {
		return err
	}

	n := leaf.Count()
	if cursor.Index < n && leaf.LeafKey(cursor.Index) == r.ID {
		return errors.Wrapf(ErrDuplicateKey, "row with id %d already exists", r.ID)
	}

	if n < LeafMaxCells {
		copy(leaf.leafCells(cursor.Index+1, n+1), leaf.leafCells(cursor.Index, n))
		encodeCell(leaf.leafCell(cursor.Index), r)
		leaf.setCount(n + 1)
		tree.pager.MarkDirty(cursor.Page)
		return nil
	}

	need, err := tree.splitCost(leaf)
	if err != nil {
		return err
	}
	if free := tree.pager.Free(); free < need {
		return errors.Wrapf(ErrTableFull, "insert needs %d pages, %d left", need, free)
	}
	return tree.splitLeaf(cursor, leaf, r)
}

// splitCost counts the pages a split of the full leaf allocates: the new
// leaf, one per full ancestor, and a new root if the split reaches it.
// It also reads every page the split will rewrite, so a read error is
// returned before the tree is changed.
func (tree *Tree[P]) splitCost(leaf Page) (uint32, error) {
	need := uint32(1)
	for node := leaf; !node.IsRoot(); need++ {
		parent, err := tree.page(node.Parent())
		if err != nil {
			return 0, err
		}
		if parent.Count() < InternalMaxKeys {
			return need, nil
		}
		// splitInternal re-parents every child of a full ancestor.
		for i := uint32(0); i <= parent.Count(); i++ {
			if _, err = tree.page(parent.InternalChild(i)); err != nil {
				return 0, err
			}
		}
		node = parent
	}
	return need + 1, nil
}

func (tree *Tree[P]) splitLeaf(cursor Cursor, left Page, r row.Row) error {
	rightID, err := tree.pager.Allocate()
	if err != nil {
		return err
	}
	right, err := tree.page(rightID)
	if err != nil {
		return err
	}
	right.initLeaf()

	var cells [(LeafMaxCells + 1) * LeafCellSize]byte
	n := copy(cells[:], left.leafCells(0, cursor.Index))
	encodeCell(cells[n:], r)
	copy(cells[n+LeafCellSize:], left.leafCells(cursor.Index, LeafMaxCells))

	copy(left.leafCells(0, LeafLeftSplit), cells[:LeafLeftSplit*LeafCellSize])
	clear(left.leafCells(LeafLeftSplit, LeafMaxCells))
	left.setCount(LeafLeftSplit)
	copy(right.leafCells(0, LeafRightSplit), cells[LeafLeftSplit*LeafCellSize:])
	right.setCount(LeafRightSplit)

	right.setParent(left.Parent())
	right.setNextLeaf(left.NextLeaf())
	left.setNextLeaf(rightID)
	tree.pager.MarkDirty(cursor.Page)
	tree.pager.MarkDirty(rightID)

	tree.log.WithFields(logrus.Fields{"left": cursor.Page, "right": rightID, "key": r.ID}).Debug("split leaf")
	return tree.promote(cursor.Page, left, left.leafMax(), rightID, right)
}

// promote links the new right sibling of left into the parent of left.
// key is the new largest key below left.
func (tree *Tree[P]) promote(leftID PageID, left Page, key uint32, rightID PageID, right Page) error {
	if left.IsRoot() {
		return tree.growRoot(leftID, left, key, rightID, right)
	}

	parentID := left.Parent()
	parent, err := tree.page(parentID)
	if err != nil {
		return err
	}
	if parent.Count() >= InternalMaxKeys {
		return tree.splitInternal(parentID, parent, leftID, key, rightID)
	}

	n := parent.Count()
	i := parent.childIndex(key)
	if child := parent.InternalChild(i); child != leftID {
		return errors.Wrapf(ErrCorrupt, "page %d routes key %d to page %d, not %d", parentID, key, child, leftID)
	}
	if i == n {
		parent.setInternalEntry(n, leftID, key)
		parent.setCount(n + 1)
		parent.setRightChild(rightID)
	} else {
		copy(parent.entries(i+1, n+1), parent.entries(i, n))
		parent.setInternalEntry(i, leftID, key)
		parent.setCount(n + 1)
		parent.setInternalChild(i+1, rightID)
	}
	right.setParent(parentID)
	tree.pager.MarkDirty(parentID)
	tree.pager.MarkDirty(rightID)
	return nil
}

func (tree *Tree[P]) splitInternal(id PageID, page Page, leftID PageID, key uint32, rightID PageID) error {
	n := page.Count()
	i := page.childIndex(key)
	if child := page.InternalChild(i); child != leftID {
		return errors.Wrapf(ErrCorrupt, "page %d routes key %d to page %d, not %d", id, key, child, leftID)
	}

	keys := make([]uint32, 0, n+1)
	children := make([]PageID, 0, n+2)
	for j := range n {
		keys = append(keys, page.InternalKey(j))
		children = append(children, page.InternalChild(j))
	}
	children = append(children, page.RightChild())
	keys = slices.Insert(keys, int(i), key)
	children = slices.Insert(children, int(i)+1, rightID)

	siblingID, err := tree.pager.Allocate()
	if err != nil {
		return err
	}
	sibling, err := tree.page(siblingID)
	if err != nil {
		return err
	}
	sibling.initInternal()
	sibling.setParent(page.Parent())

	const split = InternalLeftSplit
	clear(page.entries(0, InternalMaxKeys))
	for j := range split {
		page.setInternalEntry(uint32(j), children[j], keys[j])
	}
	page.setCount(split)
	page.setRightChild(children[split])
	promoted := keys[split]

	rest := keys[split+1:]
	for j, k := range rest {
		sibling.setInternalEntry(uint32(j), children[split+1+j], k)
	}
	sibling.setCount(uint32(len(rest)))
	sibling.setRightChild(children[len(children)-1])

	for j, child := range children {
		owner := id
		if j > split {
			owner = siblingID
		}
		if err = tree.adopt(owner, child); err != nil {
			return err
		}
	}
	tree.pager.MarkDirty(id)
	tree.pager.MarkDirty(siblingID)

	tree.log.WithFields(logrus.Fields{"left": id, "right": siblingID, "key": promoted}).Debug("split internal")
	return tree.promote(id, page, promoted, siblingID, sibling)
}

func (tree *Tree[P]) adopt(parent, child PageID) error {
	page, err := tree.page(child)
	if err != nil {
		return err
	}
	if page.Parent() != parent {
		page.setParent(parent)
		tree.pager.MarkDirty(child)
	}
	return nil
}

// growRoot puts a new root above left and right. The tree grows by one level.
func (tree *Tree[P]) growRoot(leftID PageID, left Page, key uint32, rightID PageID, right Page) error {
	rootID, err := tree.pager.Allocate()
	if err != nil {
		return err
	}
	root, err := tree.page(rootID)
	if err != nil {
		return err
	}
	root.initInternal()
	root.setRoot(true)
	root.setInternalEntry(0, leftID, key)
	root.setCount(1)
	root.setRightChild(rightID)

	left.setRoot(false)
	left.setParent(rootID)
	right.setRoot(false)
	right.setParent(rootID)

	tree.pager.MarkDirty(rootID)
	tree.pager.MarkDirty(leftID)
	tree.pager.MarkDirty(rightID)
	tree.pager.SetRoot(rootID)

	tree.log.WithFields(logrus.Fields{"root": rootID, "left": leftID, "right": rightID}).Debug("grew root")
	return nil
}
