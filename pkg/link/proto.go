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

package link

import "time"

// Serial protocol shared with the target's loader firmware. Every command
// is a single byte followed by its fixed argument bytes. The target acks
// the fixed part; counted data bytes that follow are not acked.
const (
	ProtocolVersion = 0x01

	CmdBase      = 0xE0
	CmdSync      = CmdBase + 0 // no args
	CmdGetVer    = CmdBase + 1 // no args, 1 byte response
	CmdSetAddr   = CmdBase + 2 // 4 byte little-endian address
	CmdWritePage = CmdBase + 3 // 1 byte count, then count data bytes
)

// PageSize is the largest count a single CmdWritePage may carry.
const PageSize = 128

const (
	responseDelay = 50 * time.Millisecond
	syncDelay     = time.Second
)

// Ack returns the byte the target sends to accept cmd.
func Ack(cmd byte) byte {
	return ^cmd
}
