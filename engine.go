// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

// Package engine defines the types shared by the components of the row store:
// the backing file contract, page addressing and the error taxonomy.
package engine

import (
	"io"
	"math"
)

// File provides access to the storage backend of a table.
// The File interface is the minimum implementation required.
//
// The *os.File type satisfies this interface.
type File interface {
	io.ReaderAt
	io.WriterAt
	io.Closer

	// Truncate changes the size of the file.
	Truncate(size int64) error

	// Sync commits the current contents of the file to stable storage.
	Sync() error
}

// PageID addresses a fixed-size page by its position in the file.
type PageID = uint32

// InvalidPage marks an absent page reference (no parent, no child).
const InvalidPage PageID = math.MaxUint32

// PageSize is the size of every page, and of every write to the backing file.
const PageSize = 4096
