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

// Package isa loads the architecture descriptor that drives the assembler.
//
// The descriptor is a C header shared with the emulator. Only the region
// between the opcode markers is read. Each line in the region looks like
//
//	#define add 0b00000001 // 2 [r] [r,c] [r,c]
//
// The code portion names the mnemonic and its opcode. The comment portion
// gives the index of the flexible operand (the one packed into the wide
// 32-bit field) followed by one bracketed group of addressing modes per
// operand: r is register direct, c is an immediate constant, and @ allows
// absolute addressing. Lines without a comment define mnemonics that take
// no operands.
package isa

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

const (
	StartMarker = "Instruction Op Codes"
	EndMarker   = "End Instruction Op Codes"

	MaxOperands = 3
)

// ErrDescriptor is wrapped by every error returned while loading.
var ErrDescriptor = errors.New("architecture descriptor")

// Mode is a set of addressing modes legal for one operand slot.
type Mode uint8

const (
	Register Mode = 1 << iota
	Immediate
	Absolute
)

var modeChars = map[byte]Mode{
	'r': Register,
	'c': Immediate,
	'@': Absolute,
}

// Has reports whether every mode in m is in the set.
func (s Mode) Has(m Mode) bool {
	return s&m == m
}

func (s Mode) String() string {
	var b strings.Builder
	b.WriteByte('[')
	sep := ""
	for _, c := range []byte{'r', 'c', '@'} {
		if s.Has(modeChars[c]) {
			b.WriteString(sep)
			b.WriteByte(c)
			sep = ","
		}
	}
	b.WriteByte(']')
	return b.String()
}

// Mnemonic describes one instruction. Values are never modified after Load.
//
// Token is the opcode text as written in the descriptor, less any 0b,
// 0o or 0x prefix. The text is not opaque: Load rejects a descriptor
// whose opcode does not parse as an unsigned number of at most 8 bits,
// because Opcode is emitted as the first byte of every instruction.
type Mnemonic struct {
	Name     string
	Token    string
	Opcode   byte
	Flexible int
	Operands []Mode
}

// NumOperands returns the operand count implied by the mode groups.
func (m *Mnemonic) NumOperands() int {
	return len(m.Operands)
}

// Width returns the encoded width in bits of operand slot i.
func (m *Mnemonic) Width(i int) int {
	if i == m.Flexible {
		return 32
	}
	return 8
}

func (m *Mnemonic) String() string {
	var groups []string
	for _, g := range m.Operands {
		groups = append(groups, g.String())
	}
	return fmt.Sprintf("%-6s 0x%02X %d %s", m.Name, m.Opcode, m.Flexible, strings.Join(groups, " "))
}

// Table maps mnemonic names to their descriptors.
type Table map[string]*Mnemonic

// Lookup returns the descriptor for name, or nil.
func (t Table) Lookup(name string) *Mnemonic {
	return t[name]
}

// Names returns the mnemonics in sorted order.
func (t Table) Names() []string {
	names := make([]string, 0, len(t))
	for n := range t {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LoadFile opens and loads the descriptor at path.
func LoadFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDescriptor, err)
	}
	defer f.Close()
	return Load(f)
}

// Load reads a descriptor. A descriptor without the start marker yields
// an empty table.
func Load(r io.Reader) (Table, error) {
	table := make(Table)
	scanner := bufio.NewScanner(r)
	inRegion := false
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if !inRegion {
			if strings.Contains(line, StartMarker) && !strings.Contains(line, EndMarker) {
				inRegion = true
			}
			continue
		}
		if strings.Contains(line, EndMarker) {
			break
		}

		m, err := parseEntry(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %s", ErrDescriptor, lineNum, err)
		}
		if m != nil {
			table[m.Name] = m
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDescriptor, err)
	}
	return table, nil
}

// Parse one line of the opcode region. Returns nil, nil for lines
// with no code portion.
func parseEntry(line string) (*Mnemonic, error) {
	code, comment, _ := strings.Cut(line, "//")
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}

	fields := strings.Fields(code)
	if len(fields) < 3 {
		return nil, fmt.Errorf("expected \"<directive> <mnemonic> <opcode>\", found %q", code)
	}
	opcode, err := strconv.ParseUint(fields[2], 0, 8)
	if err != nil {
		return nil, fmt.Errorf("%s: opcode %q: %s", fields[1], fields[2], err)
	}
	token := fields[2]
	if len(token) > 2 && token[0] == '0' && strings.ContainsRune("bBoOxX", rune(token[1])) {
		token = token[2:]
	}
	m := &Mnemonic{Name: fields[1], Token: token, Opcode: byte(opcode)}

	notes := strings.Fields(comment)
	if len(notes) == 0 {
		return m, nil
	}
	flexible, err := strconv.Atoi(notes[0])
	if err != nil {
		return nil, fmt.Errorf("%s: flexible operand index %q: %s", m.Name, notes[0], err)
	}
	m.Flexible = flexible

	groups := notes[1:]
	if len(groups) > MaxOperands {
		return nil, fmt.Errorf("%s: %d operands, at most %d allowed", m.Name, len(groups), MaxOperands)
	}
	for _, g := range groups {
		modes, err := parseModes(g)
		if err != nil {
			return nil, fmt.Errorf("%s: %s", m.Name, err)
		}
		m.Operands = append(m.Operands, modes)
	}
	if len(m.Operands) > 0 && (m.Flexible < 0 || m.Flexible >= len(m.Operands)) {
		return nil, fmt.Errorf("%s: flexible operand %d out of range for %d operands",
			m.Name, m.Flexible, len(m.Operands))
	}
	return m, nil
}

func parseModes(group string) (Mode, error) {
	if len(group) < 2 || group[0] != '[' || group[len(group)-1] != ']' {
		return 0, fmt.Errorf("mode group %q: expected [modes]", group)
	}
	var result Mode
	for _, tag := range strings.Split(group[1:len(group)-1], ",") {
		if len(tag) != 1 {
			return 0, fmt.Errorf("mode group %q: bad mode %q", group, tag)
		}
		m, ok := modeChars[tag[0]]
		if !ok {
			return 0, fmt.Errorf("mode group %q: unknown mode %q", group, tag)
		}
		result |= m
	}
	return result, nil
}
