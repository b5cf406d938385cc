// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package pager

import (
	"encoding/binary"
	"hash/crc32"

	engine "github.com/ynnekF/sqlite-engine"
)

// Every data page ends with the CRC32 (Castagnoli) of the bytes before it,
// written by Flush and verified by Get.
const (
	TrailerSize = 4
	// DataSize is the part of a data page available to its user.
	DataSize = engine.PageSize - TrailerSize
)

var castagnoliCrcTable = crc32.MakeTable(crc32.Castagnoli)

func pageChecksum(data []byte) uint32 {
	return crc32.Checksum(data, castagnoliCrcTable)
}

func seal(page Page) {
	binary.LittleEndian.PutUint32(page[DataSize:], pageChecksum(page[:DataSize]))
}

func verify(page Page) bool {
	return binary.LittleEndian.Uint32(page[DataSize:]) == pageChecksum(page[:DataSize])
}
