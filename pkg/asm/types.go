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
	"io"
	"log"
	"sort"

	"github.com/gmofishsauce/octa/pkg/isa"
)

// Options control a single run of the assembler.
type Options struct {
	Base uint32 // address of the first byte of the program

	// Written to the program header. Only used when Header is set.
	StackAddr uint32
	StackSize uint32
	HeapAddr  uint32
	HeapSize  uint32
	Header    bool

	// Make redefinition of a label an error instead of silently
	// replacing the earlier value.
	StrictLabels bool

	// Progress and label bindings are logged here when not nil.
	Log *log.Logger
}

// ------------
// Label table
// ------------

// LabelTable maps label names (without the leading dot) to addresses.
type LabelTable map[string]int64

func newLabelTable() LabelTable {
	return make(LabelTable)
}

// Names returns the label names in sorted order.
func (lt LabelTable) Names() []string {
	names := make([]string, 0, len(lt))
	for n := range lt {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Symbol is an exported label, in the order it was defined.
type Symbol struct {
	Name    string
	Address int64
}

// DebugRecord maps an instruction's source line to its offset from
// the base address.
type DebugRecord struct {
	Line   int
	Offset uint32
}

// Resolution is the result of the first pass. Addresses holds the
// program counter value at the start of every non-blank source line;
// the second pass uses it instead of counting bytes again.
type Resolution struct {
	Labels    LabelTable
	Exports   []Symbol
	Debug     []DebugRecord
	Addresses map[int]uint32
	Base      uint32
	End       uint32 // program counter after the last line
}

// Size returns the number of bytes the program occupies.
func (r *Resolution) Size() uint32 {
	return r.End - r.Base
}

// -----------------------
// State of the assembler.
// -----------------------

type globalState struct {
	table  isa.Table
	opts   Options
	lines  []*sourceLine
	labels LabelTable
	res    *Resolution
	out    *Emitter
}

func newGlobalState(table isa.Table, opts Options, reader io.Reader) (*globalState, error) {
	lines, err := readLines(reader)
	if err != nil {
		return nil, err
	}
	return &globalState{table: table, opts: opts, lines: lines}, nil
}

func (gs *globalState) logf(format string, args ...interface{}) {
	if gs.opts.Log != nil {
		gs.opts.Log.Printf(format, args...)
	}
}
