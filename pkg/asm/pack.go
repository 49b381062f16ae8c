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
	"encoding/binary"

	"github.com/gmofishsauce/octa/pkg/isa"
)

// Mode byte bits
const (
	ModeVariable = 0x01 // flexible operand is a register
	ModeAbsolute = 0x02 // one operand is an absolute address
)

// Instruction is a packed instruction: opcode, mode byte, two narrow
// operand fields and the wide field, in that order. The wide field
// always holds the flexible operand, whichever argument that is, so
// the emulator finds it in the same place for every opcode.
type Instruction struct {
	Opcode   byte
	Mode     byte
	Operands [3]Operand
}

// Pack validates the encoded operands of one instruction against m and
// arranges them in packing order. ops is in argument order.
func Pack(m *isa.Mnemonic, ops []Operand) (Instruction, error) {
	inst := Instruction{Opcode: m.Opcode}
	if len(ops) != m.NumOperands() {
		return inst, operandError(ErrOperandCount, "%s: expected %d operands but found %d",
			m.Name, m.NumOperands(), len(ops))
	}

	variable, absolute := 0, 0
	for _, o := range ops {
		if o.Variable {
			variable++
		}
		if o.Absolute {
			absolute++
		}
	}
	if variable > 1 {
		return inst, operandError(ErrMultipleVariable, "%s: %d operands", m.Name, variable)
	}
	if absolute > 1 {
		return inst, operandError(ErrMultipleAbsolute, "%s: %d operands", m.Name, absolute)
	}
	if variable == 1 {
		inst.Mode |= ModeVariable
	}
	if absolute == 1 {
		inst.Mode |= ModeAbsolute
	}

	inst.Operands = [3]Operand{{Width: 8}, {Width: 8}, {Width: 32}}
	narrow := 0
	for i, o := range ops {
		if i == m.Flexible {
			inst.Operands[2] = o
		} else {
			inst.Operands[narrow] = o
			narrow++
		}
	}
	return inst, nil
}

// Fields returns the five fields of the instruction in emission order.
func (inst Instruction) Fields() []Field {
	return []Field{
		{uint32(inst.Opcode), 8},
		{uint32(inst.Mode), 8},
		inst.Operands[0].field(),
		inst.Operands[1].field(),
		inst.Operands[2].field(),
	}
}

// Bytes returns the 8-byte little-endian image of the instruction.
func (inst Instruction) Bytes() []byte {
	b := make([]byte, InstructionSize)
	b[0] = inst.Opcode
	b[1] = inst.Mode
	b[2] = byte(inst.Operands[0].Value)
	b[3] = byte(inst.Operands[1].Value)
	binary.LittleEndian.PutUint32(b[4:], inst.Operands[2].Value)
	return b
}
