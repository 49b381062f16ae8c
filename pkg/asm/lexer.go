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
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Line kinds
const (
	lkInstruction = iota
	lkLabel
	lkWord
	lkByte
)

var kindToString = []string{
	"instruction",
	"label",
	"word",
	"byte",
}

const exportKeyword = "export"

// A sourceLine is one non-blank line of the program after comments
// are removed. Blank lines never become sourceLines.
type sourceLine struct {
	lineNum  int
	lineText string // code portion, trimmed
	tokens   []string
	exported bool // leading "export" was present and removed from tokens
	lineKind int
}

func (sl *sourceLine) String() string {
	return fmt.Sprintf("{%d %s %q}", sl.lineNum, kindToString[sl.lineKind], sl.lineText)
}

func (sl *sourceLine) kind() int {
	return sl.lineKind
}

func (sl *sourceLine) op() string {
	return sl.tokens[0]
}

func (sl *sourceLine) args() []string {
	return sl.tokens[1:]
}

// Remove a comment introduced by either '#' or ';'.
func stripComment(line string) string {
	if i := strings.IndexAny(line, "#;"); i >= 0 {
		return line[:i]
	}
	return line
}

// Read the whole source and classify each line. Syntax errors that can
// be seen in a single line without any context (a bare "export", for
// example) are reported here.
func readLines(r io.Reader) ([]*sourceLine, error) {
	var lines []*sourceLine
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		code := strings.TrimSpace(stripComment(scanner.Text()))
		if code == "" {
			continue
		}
		sl, err := classify(lineNum, code)
		if err != nil {
			return nil, err
		}
		lines = append(lines, sl)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func classify(lineNum int, code string) (*sourceLine, error) {
	sl := &sourceLine{lineNum: lineNum, lineText: code, tokens: strings.Fields(code)}
	if sl.tokens[0] == exportKeyword {
		sl.tokens = sl.tokens[1:]
		sl.exported = true
		if len(sl.tokens) == 0 || !isLabel(sl.tokens[0]) {
			return nil, lineError(lineNum, ErrExportSyntax, "export must be followed by a label")
		}
	}

	switch d := builtins[sl.op()]; {
	case isLabel(sl.op()):
		sl.lineKind = lkLabel
	case d != nil:
		sl.lineKind = d.kind
	default:
		sl.lineKind = lkInstruction
	}
	return sl, nil
}

func isLabel(tok string) bool {
	return len(tok) > 0 && tok[0] == '.'
}
