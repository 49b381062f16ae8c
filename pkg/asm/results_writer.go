/*
Copyright © 2022 Jeff Berkowitz (pdxjjb@gmail.com)

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
	"encoding/binary"
	"fmt"
	"io"

	"github.com/gmofishsauce/octa/pkg/image"
)

// The optional program header is laid out by the image package, which
// also reads it back.
const (
	HeaderMagic = image.Magic
	HeaderSize  = image.HeaderSize
)

// Field is a bit string of 8, 16 or 32 bits.
type Field struct {
	Value uint32
	Width int
}

// Bits returns the field as Width binary digits.
func (f Field) Bits() string {
	return fmt.Sprintf("%0*b", f.Width, f.Value)
}

// Outputs names the destinations of one run. Console is always written
// (a nil Console discards). The others are written only when not nil.
type Outputs struct {
	Console io.Writer // binary digits, one line per instruction
	Binary  io.Writer // packed little-endian image
	Text    io.Writer // same content as Console
	Symbols io.Writer // exported labels
	Debug   io.Writer // source line to offset map
}

// Emitter writes each field to every active sink before returning, so
// no sink ever sees fields in a different order than another.
type Emitter struct {
	text    []io.Writer
	bin     io.Writer
	symbols io.Writer
	debug   io.Writer
	emitted uint32 // bytes written to the image, header included
}

// NewEmitter returns an emitter for the sinks that are present in out.
func NewEmitter(out Outputs) *Emitter {
	e := &Emitter{bin: out.Binary, symbols: out.Symbols, debug: out.Debug}
	if out.Console != nil {
		e.text = append(e.text, out.Console)
	}
	if out.Text != nil {
		e.text = append(e.text, out.Text)
	}
	return e
}

// Emitted returns the number of image bytes written so far.
func (e *Emitter) Emitted() uint32 {
	return e.emitted
}

func (e *Emitter) emit(f Field, sep string) error {
	s := f.Bits() + sep
	for _, w := range e.text {
		if _, err := io.WriteString(w, s); err != nil {
			return err
		}
	}
	if e.bin != nil {
		if err := writeField(e.bin, f); err != nil {
			return err
		}
	}
	e.emitted += uint32(f.Width / 8)
	return nil
}

func writeField(w io.Writer, f Field) error {
	switch f.Width {
	case 8:
		return binary.Write(w, binary.LittleEndian, uint8(f.Value))
	case 16:
		return binary.Write(w, binary.LittleEndian, uint16(f.Value))
	case 32:
		return binary.Write(w, binary.LittleEndian, f.Value)
	}
	return fmt.Errorf("internal error: field width %d", f.Width)
}

// Emit the fields of one line, space separated and newline terminated.
func (e *Emitter) emitLine(fields []Field) error {
	for i, f := range fields {
		sep := " "
		if i == len(fields)-1 {
			sep = "\n"
		}
		if err := e.emit(f, sep); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) writeHeader(opts Options) error {
	return e.emitLine([]Field{
		{HeaderMagic, 32},
		{opts.Base, 32},
		{opts.StackAddr, 32},
		{opts.StackSize, 32},
		{opts.HeapAddr, 32},
		{opts.HeapSize, 32},
	})
}

func (e *Emitter) writeSymbols(exports []Symbol) error {
	if e.symbols == nil {
		return nil
	}
	for _, s := range exports {
		if _, err := fmt.Fprintf(e.symbols, ".%s 0x%X\n", s.Name, s.Address); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) writeDebug(records []DebugRecord) error {
	if e.debug == nil {
		return nil
	}
	for _, d := range records {
		if _, err := fmt.Fprintf(e.debug, "0x%X 0x%X\n", d.Line, d.Offset); err != nil {
			return err
		}
	}
	return nil
}

// WriteLabels prints the label table, sorted by name.
func WriteLabels(w io.Writer, labels LabelTable) {
	fmt.Fprintf(w, "%-16s %s\n", "LABEL", "VALUE")
	for _, n := range labels.Names() {
		fmt.Fprintf(w, "%-16s 0x%08X\n", n, labels[n])
	}
}
