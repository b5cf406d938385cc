// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package row

import (
	"bytes"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	engine "github.com/ynnekF/sqlite-engine"
)

func TestRowSize(t *testing.T) {
	require.Equal(t, 293, Size)
}

func TestRowRoundTrip(t *testing.T) {
	rows := []Row{
		{ID: 0},
		{ID: 1, Username: "foo", Email: "bar"},
		{ID: 4, Username: strings.Repeat("a", UsernameSize), Email: strings.Repeat("a", EmailSize)},
		{ID: 7, Username: "nul\x00inside", Email: "\x00\x00"},
		{ID: ^uint32(0), Username: "ü", Email: "person@example.com"},
	}

	buffer := make([]byte, Size)
	for _, r := range rows {
		require.NoError(t, r.Validate())
		Encode(r, buffer)
		require.Equal(t, r, Decode(buffer))
	}
}

func TestRowRandomRoundTrip(t *testing.T) {
	buffer := make([]byte, Size)
	for range 1000 {
		username := make([]byte, rand.IntN(UsernameSize+1))
		email := make([]byte, rand.IntN(EmailSize+1))
		for i := range username {
			username[i] = byte(rand.IntN(256))
		}
		for i := range email {
			email[i] = byte(rand.IntN(256))
		}
		r := Row{ID: rand.Uint32(), Username: string(username), Email: string(email)}
		Encode(r, buffer)
		require.Equal(t, r, Decode(buffer))
	}
}

func TestEncodeClearsPadding(t *testing.T) {
	buffer := bytes.Repeat([]byte{0xff}, Size)
	Encode(Row{ID: 1, Username: "a", Email: "b"}, buffer)

	require.Equal(t, make([]byte, UsernameSize-1), buffer[usernameOffset+2:emailOffset])
	require.Equal(t, make([]byte, EmailSize-1), buffer[emailOffset+2:Size])
}

func TestValidateBoundary(t *testing.T) {
	require.NoError(t, Validate(strings.Repeat("a", 32), strings.Repeat("a", 255)))

	err := Validate(strings.Repeat("a", 33), "x")
	require.True(t, errors.Is(err, engine.ErrCommandSizing))
	require.Contains(t, err.Error(), "username or email exceeds maximum length")

	err = Validate("x", strings.Repeat("a", 256))
	require.True(t, errors.Is(err, engine.ErrCommandSizing))
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in   string
		id   uint32
		fail bool
	}{
		{in: "0", id: 0},
		{in: "42", id: 42},
		{in: "4294967295", id: 4294967295},
		{in: "4294967296", fail: true},
		{in: "-1", fail: true},
		{in: "abc", fail: true},
		{in: "1x", fail: true},
		{in: "", fail: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			id, err := ParseID(tt.in)
			if tt.fail {
				require.True(t, errors.Is(err, engine.ErrCommandSyntax), "err = %v", err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.id, id)
		})
	}
}

func TestRowString(t *testing.T) {
	require.Equal(t, "(1, foo, bar)", Row{ID: 1, Username: "foo", Email: "bar"}.String())
}
