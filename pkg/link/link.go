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

// Package link provides synchronous byte I/O to a target board over a
// serial line, and the upload protocol spoken across it.
//
// Opening a USB serial port raises DTR, which resets most boards, so
// Open waits for the target to come back up before returning. All I/O
// happens on the caller's goroutine. The serial port object is not safe
// for concurrent use and reads are bounded by a timeout instead.
package link

import (
	"fmt"
	"log"
	"syscall"
	"time"

	"go.bug.st/serial"
)

const resetDelay = 3 * time.Second

// Port is the part of serial.Port the link uses.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetReadTimeout(t time.Duration) error
	Close() error
}

// Link is a connection to one target.
type Link struct {
	port Port
	log  *log.Logger

	// Protocol timing. Tests shorten these.
	responseDelay time.Duration
	syncDelay     time.Duration
}

type NoResponseError time.Duration

func (nre NoResponseError) Error() string {
	return fmt.Sprintf("read from target: no response after %v", time.Duration(nre))
}

// Open the serial device and wait out the reset it causes.
func Open(device string, baudRate int, logger *log.Logger) (*Link, error) {
	mode := &serial.Mode{BaudRate: baudRate, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}

	// Without the delay the bootloader eats the first few bytes
	// looking for a firmware upload.
	l := New(port, logger)
	l.logf("serial port is open - delaying for reset")
	time.Sleep(resetDelay)
	return l, nil
}

// New wraps a port that is already open.
func New(port Port, logger *log.Logger) *Link {
	return &Link{
		port:          port,
		log:           logger,
		responseDelay: responseDelay,
		syncDelay:     syncDelay,
	}
}

func (l *Link) logf(format string, args ...interface{}) {
	if l.log != nil {
		l.log.Printf(format, args...)
	}
}

// ReadFor reads until a byte arrives or the timeout expires.
func (l *Link) ReadFor(timeout time.Duration) (byte, error) {
	return l.readByte(timeout)
}

// Write sends each byte of b in order.
func (l *Link) Write(b []byte) error {
	for _, c := range b {
		if err := l.writeByte(c); err != nil {
			return err
		}
	}
	return nil
}

// Close the connection.
func (l *Link) Close() error {
	if l.port == nil {
		return fmt.Errorf("internal error: close(): port not open")
	}
	if err := l.port.Close(); err != nil {
		return err
	}
	l.logf("serial port closed")
	l.port = nil
	return nil
}

// Errors at this level mean the protocol has broken down or is about to.
func (l *Link) readByte(timeout time.Duration) (byte, error) {
	b := make([]byte, 1)
	var n int
	var err error

	if err = l.port.SetReadTimeout(timeout); err != nil {
		return 0, err
	}
	// The loop is only for EINTR, which the runtime's preemption
	// signals cause constantly.
	for {
		n, err = l.port.Read(b)
		if !isRetryableSyscallError(err) {
			break
		}
		if n != 0 {
			panic("bytes returned despite EINTR")
		}
	}
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, NoResponseError(timeout)
	}
	return b[0], nil
}

// If the target stops reading, the driver buffer absorbs writes until it
// fills and then a write hangs. No timeout is applied here.
func (l *Link) writeByte(toWrite byte) error {
	b := []byte{toWrite}
	var n int
	var err error

	for {
		n, err = l.port.Write(b)
		if !isRetryableSyscallError(err) {
			break
		}
		if n != 0 {
			panic("bytes written despite EINTR")
		}
	}
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("write consumed 0 bytes")
	}
	return nil
}

func isRetryableSyscallError(err error) bool {
	if errno, ok := err.(syscall.Errno); ok {
		return errno == syscall.EINTR
	}
	return false
}
