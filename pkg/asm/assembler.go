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

// Package asm is a two pass assembler for instruction sets described by
// an architecture descriptor (see package isa).
//
// Every instruction packs into 8 bytes: an opcode byte, a mode byte,
// two 8-bit operand fields and one 32-bit field. The 32-bit field holds
// the mnemonic's flexible operand, the only one that may be either a
// register or a constant. Raw data is placed with "w" (4 bytes) and "b"
// (1 byte). Labels are lines starting with a dot:
//
//	.loop              # bound to the current address
//	.limit 0x40        # bound to a value
//	export .start      # also written to the symbol file
//
// The first pass binds every label and records the address of every
// line. The second pass encodes and emits, so labels may be used before
// they are defined.
package asm

import (
	"fmt"
	"io"

	"github.com/gmofishsauce/octa/pkg/isa"
)

// Assemble reads the program from src and writes it to out. The first
// error stops the run; whatever was already written to out stays there.
func Assemble(table isa.Table, src io.Reader, out Outputs, opts Options) (*Resolution, error) {
	gs, err := newGlobalState(table, opts, src)
	if err != nil {
		return nil, err
	}

	gs.logf("pass 1: %d lines", len(gs.lines))
	gs.res, err = resolveLabels(gs.lines, opts, gs.logf)
	if err != nil {
		return nil, err
	}
	gs.labels = gs.res.Labels

	gs.out = NewEmitter(out)
	if err := gs.out.writeSymbols(gs.res.Exports); err != nil {
		return nil, err
	}
	if err := gs.out.writeDebug(gs.res.Debug); err != nil {
		return nil, err
	}
	if opts.Header {
		if err := gs.out.writeHeader(opts); err != nil {
			return nil, err
		}
	}

	gs.logf("pass 2: %d bytes at 0x%X", gs.res.Size(), opts.Base)
	if err := process(gs); err != nil {
		return nil, err
	}
	return gs.res, nil
}

// The second pass.
func process(gs *globalState) error {
	start := gs.out.Emitted()
	for _, sl := range gs.lines {
		if at := gs.opts.Base + gs.out.Emitted() - start; at != gs.res.Addresses[sl.lineNum] {
			return fmt.Errorf("internal error: line %d: emitting at 0x%X, resolved at 0x%X",
				sl.lineNum, at, gs.res.Addresses[sl.lineNum])
		}

		var err error
		switch sl.kind() {
		case lkLabel:
			continue
		case lkWord, lkByte:
			err = builtins[sl.op()].run(gs, sl)
		default:
			err = doInstruction(gs, sl)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func doInstruction(gs *globalState, sl *sourceLine) error {
	m := gs.table.Lookup(sl.op())
	if m == nil {
		return lineError(sl.lineNum, ErrUnknownMnemonic, "%s", sl.op())
	}
	args := sl.args()
	if len(args) != m.NumOperands() {
		return lineError(sl.lineNum, ErrOperandCount, "%s: expected %d operands but found %d",
			m.Name, m.NumOperands(), len(args))
	}

	ops := make([]Operand, len(args))
	for i, a := range args {
		var err error
		ops[i], err = encodeOperand(gs.labels, a, m.Operands[i], m.Width(i), i == m.Flexible)
		if err != nil {
			return wrapLine(sl.lineNum, err)
		}
	}

	inst, err := Pack(m, ops)
	if err != nil {
		return wrapLine(sl.lineNum, err)
	}
	return gs.out.emitLine(inst.Fields())
}
