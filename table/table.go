// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

// Package table is the single table of a database file: a B+ tree of rows
// over the pages of the file.
package table

import (
	"iter"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	engine "github.com/ynnekF/sqlite-engine"
	"github.com/ynnekF/sqlite-engine/btree"
	"github.com/ynnekF/sqlite-engine/internal/logger"
	"github.com/ynnekF/sqlite-engine/pager"
	"github.com/ynnekF/sqlite-engine/row"
)

// DB is a table stored in an operating system file.
type DB = Table[*os.File]

// Open creates or opens the table file at path.
func Open(path string, opt Options) (db *DB, err error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, errors.WithStack(&pager.IOError{Op: "open", Err: err})
	}

	db = new(DB)
	if err = db.Load(file, opt); err != nil {
		file.Close()
		db = nil
	}
	return
}

// Options configures a table. The zero value is usable.
type Options struct {
	MaxPages uint32
	Logger   logrus.FieldLogger
}

// Table holds rows in a B+ tree over the pages of file F. It is not safe
// for concurrent use.
type Table[F engine.File] struct {
	pager *pager.Pager[F]
	tree  btree.Tree[*pager.Pager[F]]
	log   logrus.FieldLogger
}

func (table *Table[F]) File() F {
	return table.pager.File()
}

// Load opens the table stored in file, initialising an empty file.
func (table *Table[F]) Load(file F, opt Options) (err error) {
	log := opt.Logger
	if log == nil {
		log = logger.Discard()
	}

	p, err := pager.Open(file, pager.Options{Limit: opt.MaxPages, Log: log})
	if err != nil {
		return
	}
	if err = table.tree.Load(p, log); err != nil {
		return
	}
	table.pager = p
	table.log = log
	log.WithFields(logrus.Fields{"pages": p.PageCount(), "root": p.Root()}).Info("table loaded")
	return
}

func (table *Table[F]) ready() error {
	if table.pager == nil {
		return engine.ErrClosed
	}
	return nil
}

// Insert adds a row. The id must not be in the table yet.
func (table *Table[F]) Insert(r row.Row) error {
	if err := table.ready(); err != nil {
		return err
	}
	return table.tree.Insert(r)
}

// Get returns the row with the given id.
func (table *Table[F]) Get(id uint32) (row.Row, bool, error) {
	if err := table.ready(); err != nil {
		return row.Row{}, false, err
	}
	return table.tree.Get(id)
}

// Select yields all rows in ascending id order.
func (table *Table[F]) Select() iter.Seq2[row.Row, error] {
	if err := table.ready(); err != nil {
		return func(yield func(row.Row, error) bool) { yield(row.Row{}, err) }
	}
	return table.tree.SelectAll()
}

// Dump yields the structure of the tree, see btree.Tree.Dump.
func (table *Table[F]) Dump() iter.Seq2[btree.Node, error] {
	if err := table.ready(); err != nil {
		return func(yield func(btree.Node, error) bool) { yield(btree.Node{}, err) }
	}
	return table.tree.Dump()
}

// Len returns the number of rows.
func (table *Table[F]) Len() (int, error) {
	if err := table.ready(); err != nil {
		return 0, err
	}
	return table.tree.Len()
}

// Check verifies the structure of the tree.
func (table *Table[F]) Check() error {
	if err := table.ready(); err != nil {
		return err
	}
	return table.tree.Check()
}

// Flush writes all changes to the file.
func (table *Table[F]) Flush() error {
	if err := table.ready(); err != nil {
		return err
	}
	return table.pager.Flush()
}

// Close flushes and closes the file.
func (table *Table[F]) Close() (err error) {
	if err = table.ready(); err != nil {
		return
	}
	err = table.pager.Close()
	table.pager = nil
	table.log.Info("table closed")
	return
}

// Abort closes the file without flushing. The file keeps the content of the
// last successful Flush.
func (table *Table[F]) Abort() (err error) {
	if err = table.ready(); err != nil {
		return
	}
	err = table.pager.Abort()
	table.pager = nil
	table.log.Warn("table aborted, unsaved changes dropped")
	return
}
