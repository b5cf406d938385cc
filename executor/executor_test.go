// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package executor

import (
	"errors"
	"fmt"
	"iter"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	engine "github.com/ynnekF/sqlite-engine"
	"github.com/ynnekF/sqlite-engine/btree"
	"github.com/ynnekF/sqlite-engine/command"
	"github.com/ynnekF/sqlite-engine/mem"
	"github.com/ynnekF/sqlite-engine/row"
	"github.com/ynnekF/sqlite-engine/table"
)

func newExecutor(t *testing.T) (*Executor, *table.Table[*mem.File], *mem.File) {
	t.Helper()
	file := new(mem.File)
	tbl := new(table.Table[*mem.File])
	require.NoError(t, tbl.Load(file, table.Options{}))
	return New(tbl, nil), tbl, file
}

func run(t *testing.T, exec *Executor, line string) (Result, error) {
	t.Helper()
	cmd, err := command.Parse(line)
	require.NoError(t, err, "Parse %q", line)
	return exec.Execute(cmd)
}

func TestInsertSelect(t *testing.T) {
	exec, _, _ := newExecutor(t)

	for _, line := range []string{"insert 2 foo bar", "insert 3 bar foo", "insert 1 a b"} {
		res, err := run(t, exec, line)
		require.NoError(t, err)
		require.Empty(t, res.Lines)
		require.False(t, res.Exit)
	}

	res, err := run(t, exec, "select")
	require.NoError(t, err)
	require.Equal(t, []string{"(1, a, b)", "(2, foo, bar)", "(3, bar, foo)"}, res.Lines)

	res, err = run(t, exec, "select 3")
	require.NoError(t, err)
	require.Equal(t, []string{"(3, bar, foo)"}, res.Lines)

	res, err = run(t, exec, "select 4")
	require.NoError(t, err)
	require.Empty(t, res.Lines)
}

func TestInsertMaxColumns(t *testing.T) {
	exec, _, _ := newExecutor(t)
	username, email := strings.Repeat("a", 32), strings.Repeat("a", 255)

	_, err := run(t, exec, fmt.Sprintf("insert 4 %s %s", username, email))
	require.NoError(t, err)
	res, err := run(t, exec, "select")
	require.NoError(t, err)
	require.Equal(t, []string{fmt.Sprintf("(4, %s, %s)", username, email)}, res.Lines)
}

func TestInsertTooLong(t *testing.T) {
	exec, tbl, _ := newExecutor(t)

	_, err := run(t, exec, fmt.Sprintf("insert 1 %s %s", strings.Repeat("a", 33), strings.Repeat("a", 256)))
	require.ErrorIs(t, err, engine.ErrCommandSizing)
	require.ErrorContains(t, err, "username or email exceeds maximum length")

	n, err := tbl.Len()
	require.NoError(t, err)
	require.Zero(t, n, "no row created")
}

func TestInsertDuplicate(t *testing.T) {
	exec, _, _ := newExecutor(t)

	_, err := run(t, exec, "insert 1 foo bar")
	require.NoError(t, err)
	_, err = run(t, exec, "insert 1 baz qux")
	require.ErrorIs(t, err, engine.ErrDuplicateKey)
	require.ErrorContains(t, err, "row with id 1 already exists")

	res, err := run(t, exec, "select")
	require.NoError(t, err)
	require.Equal(t, []string{"(1, foo, bar)"}, res.Lines)
}

func TestStubs(t *testing.T) {
	exec, tbl, _ := newExecutor(t)
	_, err := run(t, exec, "insert 1 foo bar")
	require.NoError(t, err)

	for _, line := range []string{"update", "update 1 x y", "delete", "delete 1"} {
		res, err := run(t, exec, line)
		require.NoError(t, err, line)
		require.Empty(t, res.Lines)
	}

	n, err := tbl.Len()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestMeta(t *testing.T) {
	exec, _, file := newExecutor(t)

	res, err := run(t, exec, ".help")
	require.NoError(t, err)
	require.Equal(t, []string{"not implemented"}, res.Lines)
	require.False(t, res.Exit)

	_, err = run(t, exec, "insert 1 foo bar")
	require.NoError(t, err)
	syncs := file.Syncs()

	res, err = run(t, exec, ".exit")
	require.NoError(t, err)
	require.Equal(t, []string{"goodbye."}, res.Lines)
	require.True(t, res.Exit)
	require.Greater(t, file.Syncs(), syncs, "exit flushes")
}

func TestBTree(t *testing.T) {
	exec, _, _ := newExecutor(t)

	res, err := run(t, exec, ".btree")
	require.NoError(t, err)
	require.Equal(t, []string{"- leaf (size 0)"}, res.Lines)

	for id := 1; id <= 16; id++ {
		_, err = run(t, exec, fmt.Sprintf("insert %d user%d person%d@example.com", id, id, id))
		require.NoError(t, err)
	}

	res, err = run(t, exec, ".btree")
	require.NoError(t, err)
	want := []string{"- internal (size 1)", "  - leaf (size 7)"}
	for id := 1; id <= 7; id++ {
		want = append(want, fmt.Sprintf("    - %d", id))
	}
	want = append(want, "  - key 7", "  - leaf (size 9)")
	for id := 8; id <= 16; id++ {
		want = append(want, fmt.Sprintf("    - %d", id))
	}
	require.Equal(t, want, res.Lines)
}

func TestStorageErrors(t *testing.T) {
	boom := errors.New("boom")
	exec := New(&brokenTable{err: boom}, nil)

	for _, line := range []string{".exit", ".btree", "select", "select 1", "insert 1 a b"} {
		_, err := run(t, exec, line)
		require.ErrorIs(t, err, boom, line)
	}
}

type brokenTable struct {
	err error
}

func (b *brokenTable) Insert(row.Row) error { return b.err }

func (b *brokenTable) Get(uint32) (row.Row, bool, error) { return row.Row{}, false, b.err }

func (b *brokenTable) Select() iter.Seq2[row.Row, error] {
	return func(yield func(row.Row, error) bool) { yield(row.Row{}, b.err) }
}

func (b *brokenTable) Dump() iter.Seq2[btree.Node, error] {
	return func(yield func(btree.Node, error) bool) { yield(btree.Node{}, b.err) }
}

func (b *brokenTable) Flush() error { return b.err }
