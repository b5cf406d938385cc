// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package pager

import (
	"encoding/binary"

	"github.com/OneOfOne/xxhash"
	"github.com/pkg/errors"

	engine "github.com/ynnekF/sqlite-engine"
)

// Magic is the default magic code of page 0.
var Magic = [4]byte{'R', 'O', 'W', 'S'}

// Version of the file layout.
const Version = 1

// Page 0 layout: magic [0:4], version [4], page size [5:9], root [9:13],
// page count [13:17], xxhash64 of [0:17] at [17:25].
const (
	metaVersion  = 4
	metaPageSize = 5
	metaRoot     = 9
	metaCount    = 13
	metaChecksum = 17
	metaSize     = 25
)

// Meta is the content of page 0.
type Meta struct {
	Magic    [4]byte
	Version  byte
	PageSize uint32
	Root     engine.PageID
	Count    uint32
}

func checksum(b []byte) uint64 {
	h := xxhash.New64()
	h.Write(b)
	return h.Sum64()
}

func encodeMeta(meta *Meta, page []byte) {
	clear(page)
	copy(page[:4], meta.Magic[:])
	page[metaVersion] = meta.Version
	binary.LittleEndian.PutUint32(page[metaPageSize:], meta.PageSize)
	binary.LittleEndian.PutUint32(page[metaRoot:], meta.Root)
	binary.LittleEndian.PutUint32(page[metaCount:], meta.Count)
	binary.LittleEndian.PutUint64(page[metaChecksum:], checksum(page[:metaChecksum]))
}

func decodeMeta(page []byte, magic [4]byte) (meta *Meta, err error) {
	if len(page) < metaSize {
		err = errors.Wrap(ErrCorrupt, "short meta page")
		return
	}

	var head [4]byte
	copy(head[:], page[:4])
	if head != magic {
		err = errors.Wrapf(ErrUnknownMagicCode, "%q", head[:])
		return
	}

	if sum := binary.LittleEndian.Uint64(page[metaChecksum:]); sum != checksum(page[:metaChecksum]) {
		err = errors.Wrapf(ErrBadChecksum, "meta checksum %016x", sum)
		return
	}

	m := &Meta{
		Magic:    head,
		Version:  page[metaVersion],
		PageSize: binary.LittleEndian.Uint32(page[metaPageSize:]),
		Root:     binary.LittleEndian.Uint32(page[metaRoot:]),
		Count:    binary.LittleEndian.Uint32(page[metaCount:]),
	}
	switch {
	case m.Version != Version:
		err = errors.Wrapf(ErrUnsupported, "version %d", m.Version)
	case m.PageSize != engine.PageSize:
		err = errors.Wrapf(ErrInvalidPageSize, "%d", m.PageSize)
	case m.Count == 0:
		err = errors.Wrap(ErrCorrupt, "page count is zero")
	case m.Root != engine.InvalidPage && (m.Root == 0 || m.Root >= m.Count):
		err = errors.Wrapf(ErrCorrupt, "root %d out of %d pages", m.Root, m.Count)
	default:
		meta = m
	}
	return
}
