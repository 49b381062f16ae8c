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

import "github.com/gmofishsauce/octa/pkg/isa"

// Program counter cost of each kind of line. This is the only place
// sizes are defined; both passes go through lineSize().
const (
	InstructionSize = 8
	WordSize        = 4
	ByteSize        = 1
)

type actionFunc func(gs *globalState, b *builtin, sl *sourceLine) error

// A builtin is a raw data directive. Directives bypass the mnemonic
// table: their single operand is always an immediate constant.
type builtin struct {
	name    string
	kind    int
	size    uint32
	width   int
	bAction actionFunc
}

func (b *builtin) run(gs *globalState, sl *sourceLine) error {
	return b.bAction(gs, b, sl)
}

// Emit the single operand of a data directive as one field.
func actionData(gs *globalState, d *builtin, sl *sourceLine) error {
	if len(sl.args()) != 1 {
		return lineError(sl.lineNum, ErrOperandCount, "%s: expected 1 operand but found %d",
			d.name, len(sl.args()))
	}
	opr, err := encodeOperand(gs.labels, sl.args()[0], isa.Immediate, d.width, false)
	if err != nil {
		return wrapLine(sl.lineNum, err)
	}
	return gs.out.emit(opr.field(), "\n")
}

var builtinWord = &builtin{"w", lkWord, WordSize, 32, actionData}
var builtinByte = &builtin{"b", lkByte, ByteSize, 8, actionData}

var builtins = map[string]*builtin{
	builtinWord.name: builtinWord,
	builtinByte.name: builtinByte,
}

// lineSize is the number of bytes a line adds to the program counter.
func lineSize(sl *sourceLine) uint32 {
	switch sl.kind() {
	case lkLabel:
		return 0
	case lkWord, lkByte:
		return builtins[sl.op()].size
	}
	return InstructionSize
}
