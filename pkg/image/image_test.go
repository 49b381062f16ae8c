/*
Copyright © 2023 Jeff Berkowitz (pdxjjb@gmail.com)

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package image

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const addText = `# ADD r1 r2 5
00000001 00000000 00000001 00000010 00000000000000000000000000000101
0000000100000010 ; a half word
00000111
`

var addBin = []byte{
	0x01, 0x00, 0x01, 0x02, 0x05, 0x00, 0x00, 0x00,
	0x02, 0x01,
	0x07,
}

func TestReadText(t *testing.T) {
	b, err := ReadText(strings.NewReader(addText))
	require.NoError(t, err)
	assert.Equal(t, addBin, b)
}

func TestReadTextErrors(t *testing.T) {
	for _, src := range []string{"0101\n", "00000002\n", "\n\n000000001\n"} {
		_, err := ReadText(strings.NewReader(src))
		assert.True(t, errors.Is(err, ErrFormat), src)
	}
	_, err := ReadText(strings.NewReader("\n\n000000001\n"))
	assert.Contains(t, err.Error(), "line 3")
}

func TestReadDebug(t *testing.T) {
	entries, err := ReadDebug(strings.NewReader("0x3 0x0\n0x4 0x8\n\n0x1A 0x10\n"))
	require.NoError(t, err)
	assert.Equal(t, []DebugEntry{{3, 0}, {4, 8}, {26, 16}}, entries)

	line, ok := LineFor(entries, 8)
	assert.True(t, ok)
	assert.Equal(t, 4, line)
	_, ok = LineFor(entries, 4)
	assert.False(t, ok)

	_, err = ReadDebug(strings.NewReader("0x3\n"))
	assert.True(t, errors.Is(err, ErrFormat))
	_, err = ReadDebug(strings.NewReader("0x3 zz\n"))
	assert.True(t, errors.Is(err, ErrFormat))
}

func TestReadSymbols(t *testing.T) {
	syms, err := ReadSymbols(strings.NewReader(".end 0x101D\n.big 0x100000000\n"))
	require.NoError(t, err)
	assert.Equal(t, []Symbol{{"end", 0x101D}, {"big", 0x100000000}}, syms)

	for _, src := range []string{"end 0x1\n", ". 0x1\n", ".x 12\n", ".x 0x1 0x2\n", ".neg 0x-1\n"} {
		_, err := ReadSymbols(strings.NewReader(src))
		assert.True(t, errors.Is(err, ErrFormat), src)
	}
}

func TestParseHeader(t *testing.T) {
	bin := []byte{
		0x41, 0x54, 0x43, 0x4F,
		0x00, 0x10, 0x00, 0x00,
		0x00, 0x80, 0x00, 0x00,
		0x00, 0x01, 0x00, 0x00,
		0x00, 0x90, 0x00, 0x00,
		0x00, 0x02, 0x00, 0x00,
		0xAA,
	}
	h, rest := ParseHeader(bin)
	require.NotNil(t, h)
	assert.Equal(t, Header{0x1000, 0x8000, 0x100, 0x9000, 0x200}, *h)
	assert.Equal(t, []byte{0xAA}, rest)

	im, err := Load(bin, true)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1000), im.Base(0))
	assert.Equal(t, Mem{0xAA}, im.Program)

	h, rest = ParseHeader(addBin)
	assert.Nil(t, h)
	assert.Equal(t, addBin, rest)

	_, err = Load(addBin, true)
	assert.True(t, errors.Is(err, ErrFormat))

	// Too short to hold a header even though the magic matches
	h, _ = ParseHeader(bin[:8])
	assert.Nil(t, h)
}

// A headerless program may begin with the magic word. Only the caller
// knows whether a header was written.
func TestLoadWithoutHeader(t *testing.T) {
	bin := []byte{
		0x41, 0x54, 0x43, 0x4F, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0,
	}
	im, err := Load(bin, false)
	require.NoError(t, err)
	assert.Nil(t, im.Header)
	assert.Equal(t, Mem(bin), im.Program)
	assert.Equal(t, uint32(0x40), im.Base(0x40))

	text := "01000001 01010100 01000011 01001111 00000000000000000000000000000000\n" +
		"00000000000000000000000000000000 00000000000000000000000000000000\n" +
		"00000000000000000000000000000000 00000000000000000000000000000000\n"
	require.NoError(t, Verify(bin, strings.NewReader(text), []DebugEntry{{1, 16}}, false))
	err = Verify(bin, strings.NewReader(text), []DebugEntry{{1, 16}}, true)
	assert.True(t, errors.Is(err, ErrMismatch))
}

func TestVerify(t *testing.T) {
	debug := []DebugEntry{{2, 0}}
	require.NoError(t, Verify(addBin, strings.NewReader(addText), debug, false))

	bad := append([]byte{}, addBin...)
	bad[4] = 6
	err := Verify(bad, strings.NewReader(addText), debug, false)
	assert.True(t, errors.Is(err, ErrMismatch))
	assert.Contains(t, err.Error(), "byte 0x4")

	err = Verify(addBin[:8], strings.NewReader(addText), debug, false)
	assert.True(t, errors.Is(err, ErrMismatch))

	err = Verify(addBin, strings.NewReader(addText), []DebugEntry{{9, 8}}, false)
	assert.True(t, errors.Is(err, ErrMismatch))
	assert.Contains(t, err.Error(), "line 9")
}
