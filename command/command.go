// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

// Package command parses input lines into meta commands and statements.
package command

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	engine "github.com/ynnekF/sqlite-engine"
	"github.com/ynnekF/sqlite-engine/row"
)

// Command is either a Meta or a Statement.
type Command interface {
	fmt.Stringer
	command()
}

// MetaKind names a dot command.
type MetaKind int

const (
	Exit MetaKind = iota
	Help
	BTree
)

func (kind MetaKind) String() string {
	switch kind {
	case Exit:
		return ".exit"
	case Help:
		return ".help"
	case BTree:
		return ".btree"
	default:
		return "UNKNOWN"
	}
}

// Meta is a command to the shell itself, written with a leading dot.
type Meta struct {
	Kind MetaKind
}

func (Meta) command() {}

func (meta Meta) String() string { return meta.Kind.String() }

// StatementType is the verb of a statement.
type StatementType int

const (
	Insert StatementType = iota
	Select
	Update
	Delete
)

func (st StatementType) String() string {
	switch st {
	case Insert:
		return "INSERT"
	case Select:
		return "SELECT"
	case Update:
		return "UPDATE"
	case Delete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// Statement is a command to the table.
type Statement struct {
	Type StatementType

	// Row is the row to insert.
	Row row.Row

	// ID selects a single row when HasID is set.
	ID    uint32
	HasID bool
}

func (Statement) command() {}

func (st Statement) String() string {
	switch {
	case st.Type == Insert:
		return fmt.Sprintf("INSERT %d %s %s", st.Row.ID, st.Row.Username, st.Row.Email)
	case st.HasID:
		return fmt.Sprintf("%s %d", st.Type, st.ID)
	}
	return st.Type.String()
}

var metas = map[string]MetaKind{
	".exit":  Exit,
	".help":  Help,
	".btree": BTree,
}

var verbs = map[string]StatementType{
	"insert": Insert,
	"select": Select,
	"update": Update,
	"delete": Delete,
}

// Parse turns one input line into a command. Surrounding whitespace is
// ignored and tokens are separated by runs of whitespace.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, errors.Wrap(engine.ErrCommandUnknown, "empty command")
	}

	if strings.HasPrefix(fields[0], ".") {
		kind, ok := metas[fields[0]]
		if !ok || len(fields) > 1 {
			return nil, errors.Wrapf(engine.ErrUnrecognizedMetaCommand, "%q", strings.TrimSpace(line))
		}
		return Meta{Kind: kind}, nil
	}

	verb, ok := verbs[fields[0]]
	if !ok {
		return nil, errors.Wrapf(engine.ErrCommandUnknown, "%q", fields[0])
	}
	st := Statement{Type: verb}
	args := fields[1:]

	switch verb {
	case Insert:
		if len(args) != 3 {
			return nil, errors.Wrapf(engine.ErrCommandSizing, "insert expects <id> <username> <email>, got %d arguments", len(args))
		}
		id, err := row.ParseID(args[0])
		if err != nil {
			return nil, err
		}
		st.Row = row.Row{ID: id, Username: args[1], Email: args[2]}
	case Select:
		switch len(args) {
		case 0:
		case 1:
			id, err := row.ParseID(args[0])
			if err != nil {
				return nil, err
			}
			st.ID, st.HasID = id, true
		default:
			return nil, errors.Wrapf(engine.ErrCommandSizing, "select expects at most one <id>, got %d arguments", len(args))
		}
	}
	return st, nil
}
