// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package btree

import (
	"encoding/binary"

	engine "github.com/ynnekF/sqlite-engine"
	"github.com/ynnekF/sqlite-engine/pager"
	"github.com/ynnekF/sqlite-engine/row"
)

type PageID = engine.PageID

// Page is a tree node stored in one page.
// Use IsLeaf to distinguish internal and leaf pages, then call the respective
// methods (Leaf or Internal prefix). Incorrect calls are undefined behavior.
type Page []byte

// Page use LittleEndian encoding
// Header is {byte[0]:type, byte[1]:is_root, byte[2:6]:parent}
// LeafPage is {Header, byte[6:10]:count, byte[10:14]:next_leaf, byte[14:]:LeafCell*count}
// LeafCell is {key u32, row.Size bytes}
// InternalPage is {Header, byte[6:10]:count, byte[10:14]:rightmost, byte[14:]:InternalEntry*count}
// InternalEntry is {child u32, key u32}, key is the largest key below child
// The last pager.TrailerSize bytes belong to the pager.

const (
	typeInternal byte = 0
	typeLeaf     byte = 1
)

const (
	HeadSize = 14

	LeafCellSize = 4 + row.Size
	LeafMaxCells = (pager.DataSize - HeadSize) / LeafCellSize

	// A full leaf and the new cell are divided between the two leaves.
	LeafRightSplit = (LeafMaxCells + 1) / 2
	LeafLeftSplit  = LeafMaxCells + 1 - LeafRightSplit

	InternalEntrySize = 8

	// InternalMaxKeys is kept small so that trees of a few dozen rows
	// already have several levels.
	InternalMaxKeys = 3

	// A full internal page and the new entry: the left page keeps
	// InternalLeftSplit keys, the next key moves up, the rest move right.
	InternalLeftSplit = (InternalMaxKeys + 1) / 2
)

// noLeaf terminates the leaf chain. Page 0 is never a tree page.
const noLeaf PageID = 0

func (page Page) IsLeaf() bool { return page[0] == typeLeaf }

func (page Page) IsRoot() bool { return page[1] == 1 }

func (page Page) setRoot(root bool) {
	if root {
		page[1] = 1
	} else {
		page[1] = 0
	}
}

func (page Page) Parent() PageID { return binary.LittleEndian.Uint32(page[2:]) }

func (page Page) setParent(id PageID) { binary.LittleEndian.PutUint32(page[2:], id) }

// Count is the number of cells of a leaf, or of keys of an internal page.
func (page Page) Count() uint32 { return binary.LittleEndian.Uint32(page[6:]) }

func (page Page) setCount(n uint32) { binary.LittleEndian.PutUint32(page[6:], n) }

func (page Page) initLeaf() {
	clear(page)
	page[0] = typeLeaf
	page.setParent(engine.InvalidPage)
	page.setNextLeaf(noLeaf)
}

func (page Page) initInternal() {
	clear(page)
	page[0] = typeInternal
	page.setParent(engine.InvalidPage)
	page.setRightChild(engine.InvalidPage)
}

// NextLeaf returns the leaf holding the following keys, or 0 for the last leaf.
func (page Page) NextLeaf() PageID { return binary.LittleEndian.Uint32(page[10:]) }

func (page Page) setNextLeaf(id PageID) { binary.LittleEndian.PutUint32(page[10:], id) }

func (page Page) leafCell(index uint32) []byte {
	offset := HeadSize + index*LeafCellSize
	return page[offset : offset+LeafCellSize]
}

// leafCells returns cells [beg, end) as one slice.
func (page Page) leafCells(beg, end uint32) []byte {
	return page[HeadSize+beg*LeafCellSize : HeadSize+end*LeafCellSize]
}

func (page Page) LeafKey(index uint32) uint32 {
	return binary.LittleEndian.Uint32(page.leafCell(index))
}

func (page Page) LeafRow(index uint32) row.Row {
	return row.Decode(page.leafCell(index)[4:])
}

func encodeCell(cell []byte, r row.Row) {
	binary.LittleEndian.PutUint32(cell, r.ID)
	row.Encode(r, cell[4:])
}

// RightChild is the child holding keys greater than every key of the page.
func (page Page) RightChild() PageID { return binary.LittleEndian.Uint32(page[10:]) }

func (page Page) setRightChild(id PageID) { binary.LittleEndian.PutUint32(page[10:], id) }

func (page Page) entry(index uint32) []byte {
	offset := HeadSize + index*InternalEntrySize
	return page[offset : offset+InternalEntrySize]
}

// entries returns entries [beg, end) as one slice.
func (page Page) entries(beg, end uint32) []byte {
	return page[HeadSize+beg*InternalEntrySize : HeadSize+end*InternalEntrySize]
}

// InternalChild returns the child at index; index Count() is the right child.
func (page Page) InternalChild(index uint32) PageID {
	if index == page.Count() {
		return page.RightChild()
	}
	return binary.LittleEndian.Uint32(page.entry(index))
}

func (page Page) setInternalChild(index uint32, id PageID) {
	if index == page.Count() {
		page.setRightChild(id)
		return
	}
	binary.LittleEndian.PutUint32(page.entry(index), id)
}

func (page Page) InternalKey(index uint32) uint32 {
	return binary.LittleEndian.Uint32(page.entry(index)[4:])
}

func (page Page) setInternalEntry(index uint32, child PageID, key uint32) {
	e := page.entry(index)
	binary.LittleEndian.PutUint32(e, child)
	binary.LittleEndian.PutUint32(e[4:], key)
}

// childIndex returns the index of the child that covers key.
func (page Page) childIndex(key uint32) uint32 {
	return search(page.Count(), func(i uint32) int {
		return cmp(key, page.InternalKey(i))
	})
}

// leafIndex returns the position of key, or where it would be inserted.
func (page Page) leafIndex(key uint32) (uint32, bool) {
	return find(page.Count(), func(i uint32) int {
		return cmp(key, page.LeafKey(i))
	})
}

// leafMax is the largest key of a non-empty leaf.
func (page Page) leafMax() uint32 {
	return page.LeafKey(page.Count() - 1)
}

func cmp(a, b uint32) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	}
	return 0
}

func search(n uint32, f func(uint32) int) uint32 {
	var i, j uint32 = 0, n
	for i < j {
		h := (i + j) >> 1
		if f(h) > 0 {
			i = h + 1
		} else {
			j = h
		}
	}
	return i
}

func find(n uint32, f func(uint32) int) (uint32, bool) {
	i := search(n, f)
	return i, i < n && f(i) == 0
}
