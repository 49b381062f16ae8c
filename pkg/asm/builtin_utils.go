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
	"strconv"
)

// Parse an integer literal. Decimal and the usual 0x, 0o, 0b (and
// leading-zero octal) prefixes are accepted, with an optional sign.
func parseNumber(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok {
			err = ne.Err
		}
		return 0, operandError(ErrBadValue, "%q: %s", s, err)
	}
	return n, nil
}

// A character literal is exactly one character between single quotes.
func isCharLiteral(s string) bool {
	return len(s) == 3 && s[0] == '\'' && s[2] == '\''
}

func charValue(s string) int64 {
	return int64(s[1])
}

// Check that n fits in an unsigned field of the given width.
func fitWidth(n int64, width int) (uint32, error) {
	var max int64 = (1 << width) - 1
	if n < 0 || n > max {
		return 0, operandError(ErrBadValue, "value (%d) out of range (0, %d) for %d bits",
			n, max, width)
	}
	return uint32(n), nil
}
