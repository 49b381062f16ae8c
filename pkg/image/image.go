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

// Package image reads back the files written by the assembler: the raw
// binary, its ASCII-binary twin, the symbol file and the debug file.
package image

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Magic is the first word of the optional program header ("OCTA").
const Magic = 0x4F435441

// HeaderSize is the size in bytes of the optional program header.
const HeaderSize = 6 * 4

var (
	ErrFormat   = errors.New("bad format")
	ErrMismatch = errors.New("image mismatch")
)

// Mem is a program image as loaded into target memory.
type Mem []byte

// Header precedes the program when the assembler is asked for one.
type Header struct {
	Base      uint32
	StackAddr uint32
	StackSize uint32
	HeapAddr  uint32
	HeapSize  uint32
}

// Image is a binary split into its header, if any, and the program.
type Image struct {
	Header  *Header
	Program Mem
}

// Load splits a raw binary. Whether the binary carries a header is a
// build setting; the magic word alone can't tell, since a program may
// start with the same four bytes.
func Load(bin []byte, header bool) (*Image, error) {
	if !header {
		return &Image{Program: bin}, nil
	}
	h, rest := ParseHeader(bin)
	if h == nil {
		return nil, fmt.Errorf("%w: missing program header", ErrFormat)
	}
	return &Image{Header: h, Program: rest}, nil
}

// ParseHeader returns the header at the front of b and the bytes that
// follow it. When b does not start with the magic word the result is
// nil and all of b.
func ParseHeader(b []byte) (*Header, []byte) {
	if len(b) < HeaderSize || binary.LittleEndian.Uint32(b) != Magic {
		return nil, b
	}
	var words [6]uint32
	if err := binary.Read(bytes.NewReader(b[:HeaderSize]), binary.LittleEndian, &words); err != nil {
		return nil, b
	}
	return &Header{
		Base:      words[1],
		StackAddr: words[2],
		StackSize: words[3],
		HeapAddr:  words[4],
		HeapSize:  words[5],
	}, b[HeaderSize:]
}

// Base returns the load address of the program, or dflt when there is
// no header to say.
func (im *Image) Base(dflt uint32) uint32 {
	if im.Header == nil {
		return dflt
	}
	return im.Header.Base
}

// ------------
// Line readers
// ------------

// Comments start with '#' or ';' and run to the end of the line.
func stripComment(s string) string {
	if i := strings.IndexAny(s, "#;"); i >= 0 {
		return s[:i]
	}
	return s
}

// Call fn with the fields of each non-blank line and its 1-based number.
func eachLine(r io.Reader, fn func(lineNum int, fields []string) error) error {
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(stripComment(scanner.Text()))
		if len(fields) == 0 {
			continue
		}
		if err := fn(lineNum, fields); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func formatError(lineNum int, format string, args ...interface{}) error {
	return fmt.Errorf("%w: line %d: %s", ErrFormat, lineNum, fmt.Sprintf(format, args...))
}

// ReadText decodes ASCII-binary text. Each token is a field of 8, 16 or
// 32 binary digits, most significant first, stored little-endian.
func ReadText(r io.Reader) ([]byte, error) {
	var result []byte
	err := eachLine(r, func(lineNum int, fields []string) error {
		for _, tok := range fields {
			width := len(tok)
			if width != 8 && width != 16 && width != 32 {
				return formatError(lineNum, "field %q: %d digits", tok, width)
			}
			v, err := strconv.ParseUint(tok, 2, width)
			if err != nil {
				return formatError(lineNum, "field %q: not binary", tok)
			}
			switch width {
			case 8:
				result = append(result, byte(v))
			case 16:
				result = binary.LittleEndian.AppendUint16(result, uint16(v))
			case 32:
				result = binary.LittleEndian.AppendUint32(result, uint32(v))
			}
		}
		return nil
	})
	return result, err
}

// DebugEntry maps a source line to the offset of its instruction from
// the load address.
type DebugEntry struct {
	Line   int
	Offset uint32
}

// ReadDebug parses "0x<line> 0x<offset>" records.
func ReadDebug(r io.Reader) ([]DebugEntry, error) {
	var result []DebugEntry
	err := eachLine(r, func(lineNum int, fields []string) error {
		if len(fields) != 2 {
			return formatError(lineNum, "expected line and offset")
		}
		line, err := strconv.ParseUint(fields[0], 0, 31)
		if err != nil {
			return formatError(lineNum, "line number %q", fields[0])
		}
		offset, err := strconv.ParseUint(fields[1], 0, 32)
		if err != nil {
			return formatError(lineNum, "offset %q", fields[1])
		}
		result = append(result, DebugEntry{int(line), uint32(offset)})
		return nil
	})
	return result, err
}

// LineFor returns the source line of the instruction at offset, if the
// debug records know it.
func LineFor(entries []DebugEntry, offset uint32) (int, bool) {
	for _, e := range entries {
		if e.Offset == offset {
			return e.Line, true
		}
	}
	return 0, false
}

// Symbol is one exported label.
type Symbol struct {
	Name    string
	Address int64
}

// ReadSymbols parses ".<label> 0x<address>" records.
func ReadSymbols(r io.Reader) ([]Symbol, error) {
	var result []Symbol
	err := eachLine(r, func(lineNum int, fields []string) error {
		if len(fields) != 2 || len(fields[0]) < 2 || fields[0][0] != '.' {
			return formatError(lineNum, "expected .label 0xaddress")
		}
		v, err := parseHex(fields[1])
		if err != nil {
			return formatError(lineNum, "address %q", fields[1])
		}
		result = append(result, Symbol{fields[0][1:], v})
		return nil
	})
	return result, err
}

// Label values are never negative.
func parseHex(s string) (int64, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return 0, strconv.ErrSyntax
	}
	v, err := strconv.ParseUint(s[2:], 16, 63)
	return int64(v), err
}

// Verify checks that the text image decodes to bin and that every debug
// record points at a whole instruction inside the program. header says
// whether bin starts with a program header.
func Verify(bin []byte, text io.Reader, debug []DebugEntry, header bool) error {
	decoded, err := ReadText(text)
	if err != nil {
		return err
	}
	if len(decoded) != len(bin) {
		return fmt.Errorf("%w: text is %d bytes, binary is %d", ErrMismatch, len(decoded), len(bin))
	}
	for i := range bin {
		if decoded[i] != bin[i] {
			return fmt.Errorf("%w: byte 0x%X: text 0x%02X, binary 0x%02X", ErrMismatch, i, decoded[i], bin[i])
		}
	}

	im, err := Load(bin, header)
	if err != nil {
		return err
	}
	program := im.Program
	for _, d := range debug {
		if uint64(d.Offset)+instructionSize > uint64(len(program)) {
			return fmt.Errorf("%w: line %d: offset 0x%X outside %d byte program",
				ErrMismatch, d.Line, d.Offset, len(program))
		}
	}
	return nil
}

const instructionSize = 8
