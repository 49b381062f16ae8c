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
	"errors"
	"fmt"
)

// Error kinds. Every error returned by Assemble wraps exactly one of these
// inside an *Error that carries the source line.
var (
	ErrLabelSyntax      = errors.New("invalid label syntax")
	ErrExportSyntax     = errors.New("invalid export syntax")
	ErrLabelRedefined   = errors.New("label redefined")
	ErrUnresolvedLabel  = errors.New("unresolved label")
	ErrAddressingMode   = errors.New("illegal addressing mode")
	ErrOperandCount     = errors.New("operand count mismatch")
	ErrMultipleVariable = errors.New("only one operand can be variable mode")
	ErrMultipleAbsolute = errors.New("only one operand can use absolute addressing")
	ErrUnknownMnemonic  = errors.New("unrecognized mnemonic")
	ErrBadValue         = errors.New("invalid value")
)

// Error is a fatal diagnostic tied to a source line.
type Error struct {
	Line int
	Err  error
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Err, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func lineError(line int, kind error, format string, args ...interface{}) error {
	return &Error{Line: line, Err: kind, Msg: fmt.Sprintf(format, args...)}
}

// An error produced without knowledge of the line (by the operand
// encoder, for example). wrapLine attaches the line later.
func operandError(kind error, format string, args ...interface{}) error {
	return &Error{Err: kind, Msg: fmt.Sprintf(format, args...)}
}

func wrapLine(line int, err error) error {
	var e *Error
	if errors.As(err, &e) {
		e.Line = line
		return e
	}
	return &Error{Line: line, Err: ErrBadValue, Msg: err.Error()}
}
