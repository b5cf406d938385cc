// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

// Package pager caches the fixed-size pages of a table file and writes them
// back on Flush. Page 0 holds the file metadata; data pages start at 1.
package pager

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	engine "github.com/ynnekF/sqlite-engine"
)

type PageID = engine.PageID

// Page is the in-memory image of one page. It is always PageSize long.
type Page []byte

// Pager is not safe for concurrent use.
type Pager[F engine.File] struct {
	file  F
	log   logrus.FieldLogger
	pages []Page
	dirty []bool
	magic [4]byte
	root  PageID
	count uint32
	limit uint32
	// pages present in the file when it was opened or last flushed
	disk   uint32
	closed bool
}

// Open reads the metadata of file, or initialises an empty file.
func Open[F engine.File](file F, opt Option) (*Pager[F], error) {
	pager := &Pager[F]{
		file:  file,
		log:   getLogger(opt),
		magic: opt.MagicCode(),
		limit: opt.MaxPages(),
	}

	size, err := fileSize(file)
	if err != nil {
		return nil, errors.WithStack(&IOError{Op: "stat", Err: err})
	}
	if size == 0 {
		if err = pager.init(); err != nil {
			return nil, err
		}
		return pager, nil
	}
	if err = pager.load(size); err != nil {
		return nil, err
	}
	return pager, nil
}

func (pager *Pager[F]) init() error {
	pager.root = engine.InvalidPage
	pager.count = 1
	pager.pages = []Page{make(Page, engine.PageSize)}
	pager.dirty = []bool{false}
	if err := pager.writeMeta(); err != nil {
		return err
	}
	if err := pager.file.Sync(); err != nil {
		return errors.WithStack(&IOError{Op: "sync", Err: err})
	}
	pager.disk = 1
	pager.log.WithField("magic", string(pager.magic[:])).Debug("initialised table file")
	return nil
}

func (pager *Pager[F]) load(size int64) error {
	if size%engine.PageSize != 0 {
		return errors.Wrapf(ErrCorrupt, "file size %d is not a whole number of pages", size)
	}

	page := make(Page, engine.PageSize)
	if _, err := pager.file.ReadAt(page, 0); err != nil {
		return errors.WithStack(&IOError{Op: "read", Page: 0, Err: err})
	}
	meta, err := decodeMeta(page, pager.magic)
	if err != nil {
		return err
	}
	if pages := size / engine.PageSize; pages < int64(meta.Count) {
		return errors.Wrapf(ErrCorrupt, "file has %d of %d pages", pages, meta.Count)
	}
	if meta.Count > pager.limit {
		pager.log.WithFields(logrus.Fields{"pages": meta.Count, "limit": pager.limit}).Warn("file is over the page limit, no pages can be allocated")
	}

	pager.root = meta.Root
	pager.count = meta.Count
	pager.disk = meta.Count
	pager.pages = make([]Page, meta.Count)
	pager.pages[0] = page
	pager.dirty = make([]bool, meta.Count)
	pager.log.WithFields(logrus.Fields{"pages": meta.Count, "root": meta.Root}).Debug("loaded table file")
	return nil
}

func fileSize(file any) (int64, error) {
	switch f := file.(type) {
	case interface{ Size() int64 }:
		return f.Size(), nil
	case interface{ Stat() (os.FileInfo, error) }:
		info, err := f.Stat()
		if err != nil {
			return 0, err
		}
		return info.Size(), nil
	case io.Seeker:
		return f.Seek(0, io.SeekEnd)
	}
	return 0, errors.Wrap(ErrUnsupported, "file size unknown")
}

func (pager *Pager[F]) File() F {
	return pager.file
}

// Root returns the root page of the tree, or engine.InvalidPage when the
// tree has not been created yet.
func (pager *Pager[F]) Root() PageID {
	return pager.root
}

// SetRoot records a new root. It is persisted by the next Flush.
func (pager *Pager[F]) SetRoot(id PageID) {
	pager.root = id
}

// PageCount includes the meta page.
func (pager *Pager[F]) PageCount() uint32 {
	return pager.count
}

// Free returns how many pages can still be allocated.
func (pager *Pager[F]) Free() uint32 {
	if pager.count >= pager.limit {
		return 0
	}
	return pager.limit - pager.count
}

// Allocate returns a zeroed, dirty page at the end of the file.
func (pager *Pager[F]) Allocate() (id PageID, err error) {
	if pager.closed {
		err = ErrClosed
		return
	}
	if pager.count >= pager.limit {
		err = errors.Wrapf(ErrTableFull, "%d pages", pager.limit)
		return
	}
	id = pager.count
	pager.count++
	pager.pages = append(pager.pages, make(Page, engine.PageSize))
	pager.dirty = append(pager.dirty, true)
	pager.log.WithField("page", id).Debug("allocated page")
	return
}

// Get returns the cached page, reading it from the file on first use.
// A page beyond the end of the file reads as zeros. A page read from the
// file must carry a valid checksum.
func (pager *Pager[F]) Get(id PageID) (Page, error) {
	if pager.closed {
		return nil, ErrClosed
	}
	if id == 0 || id >= pager.count {
		return nil, errors.Wrapf(ErrOutOfRange, "page %d of %d", id, pager.count)
	}
	if page := pager.pages[id]; page != nil {
		return page, nil
	}

	page := make(Page, engine.PageSize)
	if id < pager.disk {
		n, err := pager.file.ReadAt(page, int64(id)*engine.PageSize)
		if err != nil && !(errors.Is(err, io.EOF) && n == len(page)) {
			return nil, errors.WithStack(&IOError{Op: "read", Page: id, Err: err})
		}
		if !verify(page) {
			return nil, errors.Wrapf(ErrBadChecksum, "page %d", id)
		}
	}
	pager.pages[id] = page
	pager.log.WithField("page", id).Debug("loaded page")
	return page, nil
}

// MarkDirty schedules the page for the next Flush.
func (pager *Pager[F]) MarkDirty(id PageID) {
	if id < PageID(len(pager.dirty)) {
		pager.dirty[id] = true
	}
}

// Flush writes every dirty page, then the meta page, then syncs.
func (pager *Pager[F]) Flush() error {
	if pager.closed {
		return ErrClosed
	}

	if pager.count > pager.disk {
		if err := pager.file.Truncate(int64(pager.count) * engine.PageSize); err != nil {
			return errors.WithStack(&IOError{Op: "truncate", Page: pager.count, Err: err})
		}
	}

	written := 0
	for id := PageID(1); id < pager.count; id++ {
		if !pager.dirty[id] || pager.pages[id] == nil {
			continue
		}
		seal(pager.pages[id])
		if _, err := pager.file.WriteAt(pager.pages[id], int64(id)*engine.PageSize); err != nil {
			return errors.WithStack(&IOError{Op: "write", Page: id, Err: err})
		}
		pager.dirty[id] = false
		written++
	}

	if err := pager.writeMeta(); err != nil {
		return err
	}
	if err := pager.file.Sync(); err != nil {
		return errors.WithStack(&IOError{Op: "sync", Err: err})
	}
	pager.disk = pager.count
	pager.log.WithFields(logrus.Fields{"written": written, "pages": pager.count}).Debug("flushed")
	return nil
}

func (pager *Pager[F]) writeMeta() error {
	page := pager.pages[0]
	encodeMeta(&Meta{
		Magic:    pager.magic,
		Version:  Version,
		PageSize: engine.PageSize,
		Root:     pager.root,
		Count:    pager.count,
	}, page)
	if _, err := pager.file.WriteAt(page, 0); err != nil {
		return errors.WithStack(&IOError{Op: "write", Page: 0, Err: err})
	}
	return nil
}

// Close flushes and closes the file. The pager is unusable afterwards.
func (pager *Pager[F]) Close() error {
	if pager.closed {
		return ErrClosed
	}
	err := pager.Flush()
	if cerr := pager.file.Close(); err == nil && cerr != nil {
		err = errors.WithStack(&IOError{Op: "close", Err: cerr})
	}
	pager.closed = true
	pager.pages = nil
	pager.dirty = nil
	return err
}

// Abort closes the file without writing anything. Changes since the last
// Flush are lost and the file keeps its last flushed state.
func (pager *Pager[F]) Abort() error {
	if pager.closed {
		return ErrClosed
	}
	pager.closed = true
	pager.pages = nil
	pager.dirty = nil
	pager.log.Debug("aborted, unflushed pages dropped")
	if err := pager.file.Close(); err != nil {
		return errors.WithStack(&IOError{Op: "close", Err: err})
	}
	return nil
}
