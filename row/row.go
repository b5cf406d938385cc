// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

// Package row encodes the rows of the table into their fixed-width form.
package row

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	engine "github.com/ynnekF/sqlite-engine"
)

// Column sizes in bytes.
const (
	UsernameSize = 32
	EmailSize    = 255
)

// Row layout is {id u32, username len u8, username [32], email len u8, email [255]}.
// The length bytes make the stored length explicit, so NUL bytes inside a
// field survive a round trip.
const (
	idOffset       = 0
	idSize         = 4
	usernameOffset = idOffset + idSize
	emailOffset    = usernameOffset + 1 + UsernameSize

	// Size is the encoded size of every row.
	Size = emailOffset + 1 + EmailSize
)

// Row is a single record of the table. ID is the sort key.
type Row struct {
	ID       uint32
	Username string
	Email    string
}

// String renders the row the way select prints it.
func (r Row) String() string {
	return fmt.Sprintf("(%d, %s, %s)", r.ID, r.Username, r.Email)
}

// Validate checks the column length limits.
func Validate(username, email string) error {
	if len(username) > UsernameSize || len(email) > EmailSize {
		return errors.Wrapf(engine.ErrCommandSizing,
			"username or email exceeds maximum length (%d/%d, %d/%d)",
			len(username), UsernameSize, len(email), EmailSize)
	}
	return nil
}

// Validate checks the column length limits of r.
func (r Row) Validate() error {
	return Validate(r.Username, r.Email)
}

// ParseID parses a decimal row id. Negative, non-numeric and out of range
// values are syntax errors.
func ParseID(s string) (uint32, error) {
	if strings.HasPrefix(s, "-") {
		return 0, errors.Wrapf(engine.ErrCommandSyntax, "id must be a positive integer, got %q", s)
	}
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errors.Wrapf(engine.ErrCommandSyntax, "id must be an integer in [0, %d], got %q", uint32(math.MaxUint32), s)
	}
	return uint32(id), nil
}

// Encode writes r into dst[:Size]. Unused column bytes are zeroed.
// r must have passed Validate.
func Encode(r Row, dst []byte) {
	dst = dst[:Size]
	binary.LittleEndian.PutUint32(dst[idOffset:], r.ID)
	putColumn(dst[usernameOffset:emailOffset], r.Username)
	putColumn(dst[emailOffset:Size], r.Email)
}

// Decode reads the row stored in src[:Size].
func Decode(src []byte) Row {
	src = src[:Size]
	return Row{
		ID:       binary.LittleEndian.Uint32(src[idOffset:]),
		Username: column(src[usernameOffset:emailOffset]),
		Email:    column(src[emailOffset:Size]),
	}
}

func putColumn(field []byte, s string) {
	field[0] = byte(len(s))
	n := copy(field[1:], s)
	clear(field[1+n:])
}

func column(field []byte) string {
	n := min(int(field[0]), len(field)-1)
	return string(field[1 : 1+n])
}
