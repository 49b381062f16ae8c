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

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

type UnexpectedResponseError struct {
	Command  byte
	Response byte
}

func (u *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("command 0x%X: unexpected response 0x%X", u.Command, u.Response)
}

var ErrNoSync = errors.New("failed to synchronize")

// Connect brings the protocol to a known state: discard anything the
// target is still sending, sync, and check the protocol version.
func (l *Link) Connect() error {
	if err := l.drain(); err != nil {
		return err
	}
	if err := l.getSyncResponse(); err != nil {
		return err
	}
	return l.checkProtocolVersion()
}

// Upload writes program into target memory starting at base. The link
// must be connected.
func (l *Link) Upload(program []byte, base uint32) error {
	l.logf("uploading %d bytes at 0x%X", len(program), base)
	for off := 0; off < len(program); off += PageSize {
		end := off + PageSize
		if end > len(program) {
			end = len(program)
		}
		if err := l.setAddr(base + uint32(off)); err != nil {
			return fmt.Errorf("page at 0x%X: %w", base+uint32(off), err)
		}
		page := program[off:end]
		if err := l.doCountedSend([]byte{CmdWritePage, byte(len(page))}, page); err != nil {
			return fmt.Errorf("page at 0x%X: %w", base+uint32(off), err)
		}
	}
	l.logf("upload complete")
	return nil
}

func (l *Link) setAddr(addr uint32) error {
	cmd := make([]byte, 5)
	cmd[0] = CmdSetAddr
	binary.LittleEndian.PutUint32(cmd[1:], addr)
	_, err := l.doFixedCommand(cmd, 0)
	return err
}

// The target never sends more than an ack, a count and that many bytes
// in response to one command. Anything longer means it is stuck.
func (l *Link) drain() error {
	for i := 0; i < 300; i++ {
		if _, err := l.ReadFor(l.responseDelay); err != nil {
			return nil
		}
	}
	return fmt.Errorf("target is transmitting continuously")
}

// Slowly send syncs until one is acked, then consume any late acks
// for the earlier ones.
func (l *Link) getSyncResponse() error {
	nSent := 0
	tries := 3

	for i := 0; i < tries; i++ {
		err := l.doCommand(CmdSync)
		nSent++
		if err == nil {
			for nSent--; nSent > 0; nSent-- {
				l.ReadFor(l.responseDelay)
			}
			return nil
		}
		l.logf("sync command failed: %s", err)
		time.Sleep(l.syncDelay)
	}
	return ErrNoSync
}

func (l *Link) checkProtocolVersion() error {
	b, err := l.doFixedCommand([]byte{CmdGetVer}, 1)
	if err != nil {
		return err
	}
	if b[0] != ProtocolVersion {
		return fmt.Errorf("protocol version mismatch: host 0x%02X, target 0x%02X",
			ProtocolVersion, b[0])
	}
	return nil
}

// Only for commands with no arguments and no response.
func (l *Link) doCommand(cmd byte) error {
	_, err := l.doFixedCommand([]byte{cmd}, 0)
	return err
}

func (l *Link) getAck(cmd byte) error {
	b, err := l.ReadFor(l.responseDelay)
	if err != nil {
		return err
	}
	if b != Ack(cmd) {
		return &UnexpectedResponseError{cmd, b}
	}
	return nil
}

// Send the fixed part of a command, which may be all of it, wait for the
// ack and read the fixed response of expected bytes if there is one. If
// the command has counted bytes the caller sends them after a nil return
// and must not send them otherwise.
func (l *Link) doFixedCommand(fixed []byte, expected int) ([]byte, error) {
	if len(fixed) < 1 || len(fixed) > 8 {
		return nil, fmt.Errorf("invalid fixed command length")
	}
	if expected < 0 || expected > 8 {
		return nil, fmt.Errorf("invalid fixed response expected")
	}
	if err := l.Write(fixed); err != nil {
		return nil, err
	}
	if err := l.getAck(fixed[0]); err != nil {
		return nil, err
	}

	response := make([]byte, expected)
	for i := range response {
		b, err := l.ReadFor(l.responseDelay)
		if err != nil {
			return nil, err
		}
		response[i] = b
	}
	return response, nil
}

// The count is the last byte of fixed. Counted bytes are not acked.
func (l *Link) doCountedSend(fixed []byte, counted []byte) error {
	count := fixed[len(fixed)-1]
	if len(counted) < int(count) {
		return fmt.Errorf("not enough data")
	}
	if _, err := l.doFixedCommand(fixed, 0); err != nil {
		return err
	}
	return l.Write(counted[:count])
}
