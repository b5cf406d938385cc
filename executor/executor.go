// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

// Package executor applies parsed commands to a table and renders their
// output lines.
package executor

import (
	"fmt"
	"iter"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ynnekF/sqlite-engine/btree"
	"github.com/ynnekF/sqlite-engine/command"
	"github.com/ynnekF/sqlite-engine/internal/logger"
	"github.com/ynnekF/sqlite-engine/row"
)

// Table is the storage an Executor works on. *table.Table implements it.
type Table interface {
	Insert(row.Row) error
	Get(id uint32) (row.Row, bool, error)
	Select() iter.Seq2[row.Row, error]
	Dump() iter.Seq2[btree.Node, error]
	Flush() error
}

// Result is the output of one command.
type Result struct {
	Lines []string

	// Exit asks the session to stop after printing Lines.
	Exit bool
}

// Executor runs parsed commands against a table.
type Executor struct {
	table Table
	log   logrus.FieldLogger
}

// New returns an Executor over table. A nil log discards output.
func New(table Table, log logrus.FieldLogger) *Executor {
	if log == nil {
		log = logger.Discard()
	}
	return &Executor{table: table, log: log}
}

// Execute runs cmd. Errors of the command itself (see engine.Kind) leave the
// table unchanged; any other error comes from the storage.
func (exec *Executor) Execute(cmd command.Command) (Result, error) {
	switch cmd := cmd.(type) {
	case command.Meta:
		return exec.meta(cmd)
	case command.Statement:
		return exec.statement(cmd)
	}
	panic(fmt.Sprintf("executor: unexpected command %T", cmd))
}

// Flush writes pending table changes to the file.
func (exec *Executor) Flush() error {
	return exec.table.Flush()
}

func (exec *Executor) meta(cmd command.Meta) (Result, error) {
	switch cmd.Kind {
	case command.Exit:
		if err := exec.table.Flush(); err != nil {
			return Result{}, err
		}
		return Result{Lines: []string{"goodbye."}, Exit: true}, nil
	case command.Help:
		return Result{Lines: []string{"not implemented"}}, nil
	case command.BTree:
		return exec.dump()
	}
	panic(fmt.Sprintf("executor: unexpected meta command %d", cmd.Kind))
}

func (exec *Executor) dump() (res Result, err error) {
	for node, err := range exec.table.Dump() {
		if err != nil {
			return Result{}, err
		}
		res.Lines = append(res.Lines, strings.Repeat("  ", node.Depth)+"- "+node.String())
	}
	return
}

func (exec *Executor) statement(st command.Statement) (Result, error) {
	switch st.Type {
	case command.Insert:
		return exec.insert(st.Row)
	case command.Select:
		if st.HasID {
			return exec.get(st.ID)
		}
		return exec.selectAll()
	case command.Update, command.Delete:
		exec.log.WithField("statement", st.Type).Debug("statement acknowledged, nothing changed")
		return Result{}, nil
	}
	panic(fmt.Sprintf("executor: unexpected statement %d", st.Type))
}

func (exec *Executor) insert(r row.Row) (Result, error) {
	exec.log.WithFields(logrus.Fields{
		"id":       r.ID,
		"username": len(r.Username),
		"email":    len(r.Email),
	}).Debug("insert")

	if err := row.Validate(r.Username, r.Email); err != nil {
		return Result{}, err
	}
	return Result{}, exec.table.Insert(r)
}

func (exec *Executor) selectAll() (res Result, err error) {
	for r, err := range exec.table.Select() {
		if err != nil {
			return Result{}, err
		}
		res.Lines = append(res.Lines, r.String())
	}
	exec.log.WithField("rows", len(res.Lines)).Debug("select")
	return
}

func (exec *Executor) get(id uint32) (Result, error) {
	r, ok, err := exec.table.Get(id)
	if err != nil || !ok {
		return Result{}, err
	}
	return Result{Lines: []string{r.String()}}, nil
}
