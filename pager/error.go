// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package pager

import (
	"fmt"

	engine "github.com/ynnekF/sqlite-engine"
)

var (
	ErrIO               = engine.ErrIO
	ErrClosed           = engine.ErrClosed
	ErrCorrupt          = engine.ErrCorrupt
	ErrBadChecksum      = engine.ErrBadChecksum
	ErrUnknownMagicCode = engine.ErrUnknownMagicCode
	ErrUnsupported      = engine.ErrUnsupported
	ErrInvalidPageSize  = engine.ErrInvalidPageSize
	ErrOutOfRange       = engine.ErrOutOfRange
	ErrTableFull        = engine.ErrTableFull
)

// IOError records a failed operation on the backing file.
type IOError struct {
	Op   string
	Page engine.PageID
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s page %d: %v", e.Op, e.Page, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Is makes every IOError match ErrIO.
func (e *IOError) Is(target error) bool { return target == ErrIO }
