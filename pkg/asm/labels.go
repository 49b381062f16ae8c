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

// The first pass. Walk every line, define labels, and record where
// each line lands. Nothing is emitted here; the symbol and debug
// records are collected in source order and written by the caller.
func resolveLabels(lines []*sourceLine, opts Options, logf func(string, ...interface{})) (*Resolution, error) {
	res := &Resolution{
		Labels:    newLabelTable(),
		Addresses: make(map[int]uint32),
		Base:      opts.Base,
	}
	pc := opts.Base

	for _, sl := range lines {
		res.Addresses[sl.lineNum] = pc

		switch sl.kind() {
		case lkLabel:
			name, val, err := defineLabel(sl, pc)
			if err != nil {
				return nil, err
			}
			if _, dup := res.Labels[name]; dup && opts.StrictLabels {
				return nil, lineError(sl.lineNum, ErrLabelRedefined, ".%s", name)
			}
			res.Labels[name] = val
			if sl.exported {
				res.Exports = append(res.Exports, Symbol{name, val})
			}
			logf("%d: %s -> %d", sl.lineNum, name, val)
		case lkInstruction:
			res.Debug = append(res.Debug, DebugRecord{sl.lineNum, pc - opts.Base})
		}
		pc += lineSize(sl)
	}

	res.End = pc
	return res, nil
}

// Return the name and value of the label defined by sl. A label
// followed by a number takes that value; a bare label takes the
// current program counter.
func defineLabel(sl *sourceLine, pc uint32) (string, int64, error) {
	name := sl.op()[1:]
	if name == "" {
		return "", 0, lineError(sl.lineNum, ErrLabelSyntax, "empty label name")
	}
	switch len(sl.args()) {
	case 0:
		return name, int64(pc), nil
	case 1:
		val, err := parseNumber(sl.args()[0])
		if err != nil {
			return "", 0, wrapLine(sl.lineNum, err)
		}
		if val < 0 {
			return "", 0, lineError(sl.lineNum, ErrBadValue, ".%s: negative value %d", name, val)
		}
		return name, val, nil
	}
	return "", 0, lineError(sl.lineNum, ErrLabelSyntax, "too many tokens")
}
