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

package asm

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolve(t *testing.T, src string, opts Options) (*Resolution, error) {
	t.Helper()
	lines, err := readLines(strings.NewReader(src))
	require.NoError(t, err)
	return resolveLabels(lines, opts, t.Logf)
}

func TestResolveAddresses(t *testing.T) {
	src := `.start
nop
w 1
b 2
.mid
b 3
export .end
`
	res, err := resolve(t, src, Options{Base: 0x100})
	require.NoError(t, err)

	assert.Equal(t, int64(0x100), res.Labels["start"])
	assert.Equal(t, int64(0x10D), res.Labels["mid"])
	assert.Equal(t, int64(0x10E), res.Labels["end"])
	assert.Equal(t, uint32(0x10E), res.End)
	assert.Equal(t, uint32(14), res.Size())

	assert.Equal(t, map[int]uint32{
		1: 0x100, 2: 0x100, 3: 0x108, 4: 0x10C, 5: 0x10D, 6: 0x10D, 7: 0x10E,
	}, res.Addresses)
	assert.Equal(t, []Symbol{{"end", 0x10E}}, res.Exports)
	assert.Equal(t, []DebugRecord{{2, 0}}, res.Debug)
}

func TestResolveExplicitValues(t *testing.T) {
	src := ".a 0x40\n.b 10\n.c 0b101\n.d 0\n.e 0o17\n"
	res, err := resolve(t, src, Options{Base: 0x1000})
	require.NoError(t, err)
	assert.Equal(t, LabelTable{"a": 0x40, "b": 10, "c": 5, "d": 0, "e": 15}, res.Labels)
	assert.Equal(t, uint32(0x1000), res.End)
}

func TestResolveDebugRecords(t *testing.T) {
	src := "# header\nnop\n\nADD r1 r2 r3\nw 4\nmov r1 2\n"
	res, err := resolve(t, src, Options{Base: 0x200})
	require.NoError(t, err)
	// Offsets are relative to the base address
	assert.Equal(t, []DebugRecord{{2, 0}, {4, 8}, {6, 20}}, res.Debug)
}

func TestResolveTooManyTokens(t *testing.T) {
	_, err := resolve(t, "nop\n.bad 1 2\n", Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLabelSyntax))
	assert.Contains(t, err.Error(), "line 2")
}

func TestResolveEmptyName(t *testing.T) {
	_, err := resolve(t, ". 1\n", Options{})
	assert.True(t, errors.Is(err, ErrLabelSyntax))
}

func TestResolveBadValue(t *testing.T) {
	_, err := resolve(t, ".x 12q\n", Options{})
	assert.True(t, errors.Is(err, ErrBadValue))
	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, 1, e.Line)
}

func TestResolveNegativeValue(t *testing.T) {
	_, err := resolve(t, "nop\n.neg -3\n", Options{})
	assert.True(t, errors.Is(err, ErrBadValue))
	assert.Contains(t, err.Error(), "line 2")
}

func TestResolveRedefinition(t *testing.T) {
	src := ".x 1\n.x 2\n"
	res, err := resolve(t, src, Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Labels["x"])

	_, err = resolve(t, src, Options{StrictLabels: true})
	assert.True(t, errors.Is(err, ErrLabelRedefined))
}

func TestResolveExportsInOrder(t *testing.T) {
	src := "export .b 2\nexport .a\n.hidden 3\n"
	res, err := resolve(t, src, Options{Base: 8})
	require.NoError(t, err)
	assert.Equal(t, []Symbol{{"b", 2}, {"a", 8}}, res.Exports)
}
