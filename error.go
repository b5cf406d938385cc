// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package engine

import "github.com/pkg/errors"

// Errors recovered at the command boundary.
var (
	ErrUnrecognizedMetaCommand = errors.New("unrecognized meta command")
	ErrCommandUnknown          = errors.New("COMMAND_UNKNOWN")
	ErrCommandSizing           = errors.New("COMMAND_SIZING_ERR")
	ErrCommandSyntax           = errors.New("COMMAND_SYNTAX_ERR")
	ErrDuplicateKey            = errors.New("Duplicate key error")
	ErrTableFull               = errors.New("table full")
)

// Errors of the storage layer. Any of them leaves the session unusable.
var (
	ErrIO               = errors.New("io error")
	ErrClosed           = errors.New("closed")
	ErrCorrupt          = errors.New("corrupt file")
	ErrBadChecksum      = errors.New("bad checksum")
	ErrUnknownMagicCode = errors.New("unknown magic code")
	ErrUnsupported      = errors.New("unsupported")
	ErrInvalidPageSize  = errors.New("invalid page size")
	ErrOutOfRange       = errors.New("out of range")
)

var recoverable = []error{
	ErrUnrecognizedMetaCommand,
	ErrCommandUnknown,
	ErrCommandSizing,
	ErrCommandSyntax,
	ErrDuplicateKey,
	ErrTableFull,
}

// Kind returns the sentinel that classifies err, or nil when err is not
// one of the recoverable command errors.
func Kind(err error) error {
	for _, kind := range recoverable {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Fatal reports whether err must end the session.
func Fatal(err error) bool {
	return err != nil && Kind(err) == nil
}
