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
	"strconv"
	"strings"

	"github.com/gmofishsauce/octa/pkg/isa"
)

const absoluteSigil = '@'

// Register aliases. The emulator gives these registers fixed roles.
var aliases = map[string]string{
	"sp": "r11", // stack pointer
	"ba": "r12", // base address
	"fl": "r13", // flags
	"c1": "r14", // timer 1 counter
	"c2": "r15", // timer 2 counter
}

// Operand is one encoded operand. Variable is set when a register was
// chosen for the slot that may hold either a register or a constant;
// it becomes bit 0 of the mode byte. Absolute becomes bit 1.
type Operand struct {
	Value    uint32
	Width    int
	Variable bool
	Absolute bool
}

func (o Operand) field() Field {
	return Field{o.Value, o.Width}
}

// Encode one operand token for a slot that accepts modes and is width
// bits wide. Only the flexible slot can set Variable.
func encodeOperand(labels LabelTable, tok string, modes isa.Mode, width int, flexible bool) (Operand, error) {
	result := Operand{Width: width}
	orig := tok

	if tok[0] == absoluteSigil {
		if !modes.Has(isa.Absolute) {
			return result, operandError(ErrAddressingMode, "%s: operand does not support absolute addressing", orig)
		}
		result.Absolute = true
		tok = tok[1:]
		if tok == "" {
			return result, operandError(ErrBadValue, "%s: missing address", orig)
		}
	}

	if reg, ok := aliases[tok]; ok {
		tok = reg
	}

	var n int64
	var err error
	switch {
	case isLabel(tok):
		if n, err = labelValue(labels, tok); err != nil {
			return result, err
		}
	case isRegister(tok):
		if !modes.Has(isa.Register) {
			return result, operandError(ErrAddressingMode, "%s: operand does not support register direct mode", orig)
		}
		r, err := strconv.ParseUint(tok[1:], 10, 32)
		if err != nil {
			return result, operandError(ErrBadValue, "%s: bad register number", orig)
		}
		if flexible && modes.Has(isa.Register|isa.Immediate) {
			result.Variable = true
		}
		result.Value, err = fitWidth(int64(r), width)
		return result, err
	case isCharLiteral(tok):
		n = charValue(tok)
	default:
		if n, err = parseNumber(tok); err != nil {
			return result, err
		}
	}

	// Labels, characters and numbers are all constants
	if !modes.Has(isa.Immediate) {
		return result, operandError(ErrAddressingMode, "%s: operand does not support immediate mode", orig)
	}
	result.Value, err = fitWidth(n, width)
	return result, err
}

func isRegister(tok string) bool {
	return len(tok) > 1 && tok[0] == 'r'
}

// Evaluate .name or .name+offset.
func labelValue(labels LabelTable, tok string) (int64, error) {
	name, offset, plus := strings.Cut(tok[1:], "+")
	val, ok := labels[name]
	if !ok {
		return 0, operandError(ErrUnresolvedLabel, "can't find label '.%s'", name)
	}
	if plus {
		off, err := parseNumber(offset)
		if err != nil {
			return 0, err
		}
		val += off
	}
	return val, nil
}
