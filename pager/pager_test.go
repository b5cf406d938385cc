// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package pager

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	engine "github.com/ynnekF/sqlite-engine"
	"github.com/ynnekF/sqlite-engine/mem"
)

func TestPagerInit(t *testing.T) {
	var f mem.File
	file := &f

	pager, err := Open(file, Options{})
	require.NoError(t, err, "Open")
	require.Equal(t, engine.InvalidPage, pager.Root())
	require.EqualValues(t, 1, pager.PageCount())
	require.EqualValues(t, engine.PageSize, f.Size(), "meta page written")
	require.Equal(t, 1, f.Syncs())

	meta, err := decodeMeta(f.Bytes(), Magic)
	require.NoError(t, err, "decodeMeta")
	require.Equal(t, engine.InvalidPage, meta.Root)
	require.EqualValues(t, 1, meta.Count)
	require.EqualValues(t, Version, meta.Version)

	require.NoError(t, pager.Close())
}

func TestPagerReopen(t *testing.T) {
	var f mem.File
	file := &f

	pager, err := Open(file, Options{})
	require.NoError(t, err, "Open")

	var ids []PageID
	for i := range 3 {
		id, err := pager.Allocate()
		require.NoError(t, err, "Allocate")
		require.EqualValues(t, i+1, id)
		page, err := pager.Get(id)
		require.NoError(t, err, "Get")
		copy(page, []byte{byte(id), 'x', 'y'})
		ids = append(ids, id)
	}
	pager.SetRoot(ids[1])
	require.NoError(t, pager.Close(), "Close")
	require.EqualValues(t, 4*engine.PageSize, f.Size())

	f.Reopen()
	pager, err = Open(file, Options{})
	require.NoError(t, err, "reopen")
	require.EqualValues(t, 4, pager.PageCount())
	require.Equal(t, ids[1], pager.Root())
	for _, id := range ids {
		page, err := pager.Get(id)
		require.NoError(t, err, "Get")
		require.Equal(t, []byte{byte(id), 'x', 'y', 0}, []byte(page[:4]))
	}

	id, err := pager.Allocate()
	require.NoError(t, err)
	require.EqualValues(t, 4, id, "ids keep increasing after reopen")
	require.NoError(t, pager.Close())
}

func TestPagerGetCached(t *testing.T) {
	var f mem.File
	pager, err := Open(&f, Options{})
	require.NoError(t, err)

	id, err := pager.Allocate()
	require.NoError(t, err)
	a, err := pager.Get(id)
	require.NoError(t, err)
	a[100] = 7
	b, err := pager.Get(id)
	require.NoError(t, err)
	require.EqualValues(t, 7, b[100], "same handle")

	_, err = pager.Get(0)
	require.ErrorIs(t, err, ErrOutOfRange, "meta page is not a data page")
	_, err = pager.Get(id + 1)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestPagerTableFull(t *testing.T) {
	var f mem.File
	pager, err := Open(&f, Options{Limit: 3})
	require.NoError(t, err)

	for range 2 {
		_, err = pager.Allocate()
		require.NoError(t, err)
	}
	require.Zero(t, pager.Free())
	_, err = pager.Allocate()
	require.ErrorIs(t, err, engine.ErrTableFull)
	require.False(t, engine.Fatal(err))
	require.EqualValues(t, 3, pager.PageCount(), "failed allocation changes nothing")
}

func TestPagerFlushWritesWholePages(t *testing.T) {
	file := &recorder{}
	pager, err := Open(file, Options{})
	require.NoError(t, err)

	for range 5 {
		id, err := pager.Allocate()
		require.NoError(t, err)
		pager.MarkDirty(id)
	}
	file.writes = nil
	require.NoError(t, pager.Flush())

	require.Len(t, file.writes, 6, "five data pages and the meta page")
	for _, w := range file.writes {
		require.EqualValues(t, engine.PageSize, w.size)
		require.Zero(t, w.off%engine.PageSize)
	}
	require.Zero(t, file.writes[len(file.writes)-1].off, "meta page last")

	file.writes = nil
	require.NoError(t, pager.Flush())
	require.Len(t, file.writes, 1, "clean pages are not rewritten")
}

func TestPagerCorruption(t *testing.T) {
	valid := func(t *testing.T) *mem.File {
		var f mem.File
		pager, err := Open(&f, Options{})
		require.NoError(t, err)
		for range 2 {
			_, err = pager.Allocate()
			require.NoError(t, err)
		}
		pager.SetRoot(1)
		require.NoError(t, pager.Close())
		f.Reopen()
		return &f
	}

	rewrite := func(f *mem.File, edit func(*Meta)) {
		meta, err := decodeMeta(f.Bytes(), Magic)
		if err != nil {
			panic(err)
		}
		edit(meta)
		page := make([]byte, engine.PageSize)
		encodeMeta(meta, page)
		f.WriteAt(page, 0)
	}

	tests := []struct {
		name  string
		setup func(f *mem.File)
		opt   Options
		want  error
	}{
		{"magic", func(f *mem.File) {}, Options{Magic: [4]byte{'D', 'I', 'C', 'T'}}, ErrUnknownMagicCode},
		{"checksum", func(f *mem.File) { f.WriteAt([]byte{0xff}, metaCount) }, Options{}, ErrBadChecksum},
		{"version", func(f *mem.File) { rewrite(f, func(m *Meta) { m.Version = 9 }) }, Options{}, ErrUnsupported},
		{"page size", func(f *mem.File) { rewrite(f, func(m *Meta) { m.PageSize = 512 }) }, Options{}, ErrInvalidPageSize},
		{"root", func(f *mem.File) { rewrite(f, func(m *Meta) { m.Root = 40 }) }, Options{}, ErrCorrupt},
		{"partial page", func(f *mem.File) { f.Truncate(f.Size() - 10) }, Options{}, ErrCorrupt},
		{"truncated", func(f *mem.File) { f.Truncate(f.Size() - engine.PageSize) }, Options{}, ErrCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid(t)
			tt.setup(f)
			_, err := Open(f, tt.opt)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPagerOverLimit(t *testing.T) {
	var f mem.File
	pager, err := Open(&f, Options{})
	require.NoError(t, err)
	for range 4 {
		_, err = pager.Allocate()
		require.NoError(t, err)
	}
	require.NoError(t, pager.Close())

	f.Reopen()
	pager, err = Open(&f, Options{Limit: 2})
	require.NoError(t, err, "a file larger than the limit still opens")
	require.EqualValues(t, 5, pager.PageCount())
	require.Zero(t, pager.Free())

	_, err = pager.Get(4)
	require.NoError(t, err)
	_, err = pager.Allocate()
	require.ErrorIs(t, err, engine.ErrTableFull)
	require.NoError(t, pager.Close())
}

func TestPagerDataChecksum(t *testing.T) {
	var f mem.File
	pager, err := Open(&f, Options{})
	require.NoError(t, err)
	id, err := pager.Allocate()
	require.NoError(t, err)
	page, err := pager.Get(id)
	require.NoError(t, err)
	page[6] = 1
	require.NoError(t, pager.Close())

	raw := f.Bytes()[engine.PageSize:]
	require.Equal(t, pageChecksum(raw[:DataSize]), binary.LittleEndian.Uint32(raw[DataSize:]), "trailer written")

	f.Reopen()
	f.WriteAt([]byte{0xf4, 0x01}, engine.PageSize+6)
	pager, err = Open(&f, Options{})
	require.NoError(t, err, "data pages are checked when read")
	_, err = pager.Get(id)
	require.ErrorIs(t, err, ErrBadChecksum)
	require.True(t, engine.Fatal(err))
}

func TestPagerAbort(t *testing.T) {
	var f mem.File
	pager, err := Open(&f, Options{})
	require.NoError(t, err)
	id, err := pager.Allocate()
	require.NoError(t, err)
	require.NoError(t, pager.Flush())

	page, err := pager.Get(id)
	require.NoError(t, err)
	page[0] = 9
	pager.MarkDirty(id)
	_, err = pager.Allocate()
	require.NoError(t, err)
	pager.SetRoot(id)
	require.NoError(t, pager.Abort())
	require.ErrorIs(t, pager.Abort(), ErrClosed)

	f.Reopen()
	pager, err = Open(&f, Options{})
	require.NoError(t, err)
	require.EqualValues(t, 2, pager.PageCount(), "allocation after the flush dropped")
	require.Equal(t, engine.InvalidPage, pager.Root())
	page, err = pager.Get(id)
	require.NoError(t, err)
	require.Zero(t, page[0], "write after the flush dropped")
}

func TestPagerIOError(t *testing.T) {
	var f mem.File
	pager, err := Open(&f, Options{})
	require.NoError(t, err)
	id, err := pager.Allocate()
	require.NoError(t, err)
	require.NoError(t, pager.Flush())

	f.Reopen()
	pager, err = Open(&f, Options{})
	require.NoError(t, err)

	boom := errors.New("boom")
	f.FailReads(boom)
	_, err = pager.Get(id)
	require.ErrorIs(t, err, ErrIO)
	require.ErrorIs(t, err, boom)
	require.True(t, engine.Fatal(err))

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	require.Equal(t, "read", ioErr.Op)
	require.Equal(t, id, ioErr.Page)

	f.FailReads(nil)
	_, err = pager.Get(id)
	require.NoError(t, err, "failed read is not cached")

	pager.MarkDirty(id)
	f.FailWrites(boom)
	err = pager.Flush()
	require.ErrorIs(t, err, ErrIO)
	require.ErrorIs(t, err, boom)

	f.FailWrites(nil)
	require.NoError(t, pager.Flush())
}

func TestPagerClosed(t *testing.T) {
	var f mem.File
	pager, err := Open(&f, Options{})
	require.NoError(t, err)
	require.NoError(t, pager.Close())

	_, err = pager.Allocate()
	require.ErrorIs(t, err, ErrClosed)
	_, err = pager.Get(1)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, pager.Flush(), ErrClosed)
	require.ErrorIs(t, pager.Close(), ErrClosed)
}

func TestMetaLayout(t *testing.T) {
	page := make([]byte, engine.PageSize)
	encodeMeta(&Meta{Magic: Magic, Version: Version, PageSize: engine.PageSize, Root: 5, Count: 9}, page)

	require.Equal(t, "ROWS", string(page[:4]))
	require.EqualValues(t, Version, page[4])
	require.EqualValues(t, engine.PageSize, binary.LittleEndian.Uint32(page[5:]))
	require.EqualValues(t, 5, binary.LittleEndian.Uint32(page[9:]))
	require.EqualValues(t, 9, binary.LittleEndian.Uint32(page[13:]))
	require.Equal(t, checksum(page[:17]), binary.LittleEndian.Uint64(page[17:]))
	require.Equal(t, make([]byte, engine.PageSize-metaSize), page[metaSize:])
}

type write struct {
	off  int64
	size int
}

type recorder struct {
	mem.File
	writes []write
}

func (r *recorder) WriteAt(p []byte, off int64) (int, error) {
	r.writes = append(r.writes, write{off, len(p)})
	return r.File.WriteAt(p, off)
}
