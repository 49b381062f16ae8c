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
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTarget plays the loader firmware. Bytes written to it are fed to
// a small state machine; its responses queue up for Read. An empty queue
// reads as a timeout.
type fakeTarget struct {
	mem     map[uint32]byte
	version byte
	pending []byte
	noise   []byte // sent before any command is seen
	refuse  int    // number of syncs to ignore

	cmd     byte
	args    []byte
	addr    uint32
	count   int
	eintr   int // Read and Write fail with EINTR this many times each
	closed  bool
	timeout time.Duration
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{mem: make(map[uint32]byte), version: ProtocolVersion}
}

func (f *fakeTarget) Read(p []byte) (int, error) {
	if f.eintr > 0 {
		f.eintr--
		return 0, syscall.EINTR
	}
	if len(f.noise) > 0 {
		p[0] = f.noise[0]
		f.noise = f.noise[1:]
		return 1, nil
	}
	if len(f.pending) == 0 {
		return 0, nil
	}
	p[0] = f.pending[0]
	f.pending = f.pending[1:]
	return 1, nil
}

func (f *fakeTarget) Write(p []byte) (int, error) {
	if f.eintr > 0 {
		f.eintr--
		return 0, syscall.EINTR
	}
	for _, b := range p {
		f.receive(b)
	}
	return len(p), nil
}

func (f *fakeTarget) SetReadTimeout(t time.Duration) error {
	f.timeout = t
	return nil
}

func (f *fakeTarget) Close() error {
	f.closed = true
	return nil
}

func (f *fakeTarget) receive(b byte) {
	if f.count > 0 {
		f.mem[f.addr] = b
		f.addr++
		f.count--
		return
	}
	if f.cmd == 0 {
		f.cmd = b
		f.args = nil
	} else {
		f.args = append(f.args, b)
	}

	switch f.cmd {
	case CmdSync:
		if f.refuse > 0 {
			f.refuse--
		} else {
			f.pending = append(f.pending, Ack(CmdSync))
		}
		f.cmd = 0
	case CmdGetVer:
		f.pending = append(f.pending, Ack(CmdGetVer), f.version)
		f.cmd = 0
	case CmdSetAddr:
		if len(f.args) == 4 {
			f.addr = binary.LittleEndian.Uint32(f.args)
			f.pending = append(f.pending, Ack(CmdSetAddr))
			f.cmd = 0
		}
	case CmdWritePage:
		if len(f.args) == 1 {
			f.count = int(f.args[0])
			f.pending = append(f.pending, Ack(CmdWritePage))
			f.cmd = 0
		}
	default:
		f.pending = append(f.pending, 0)
		f.cmd = 0
	}
}

func newTestLink(f *fakeTarget) *Link {
	l := New(f, nil)
	l.responseDelay = time.Millisecond
	l.syncDelay = time.Millisecond
	return l
}

func TestConnect(t *testing.T) {
	f := newFakeTarget()
	f.noise = []byte("leftover log output")
	l := newTestLink(f)
	require.NoError(t, l.Connect())
	assert.Empty(t, f.pending)
	assert.Equal(t, time.Millisecond, f.timeout)
}

func TestConnectRetriesSync(t *testing.T) {
	f := newFakeTarget()
	f.refuse = 2
	require.NoError(t, newTestLink(f).Connect())

	f = newFakeTarget()
	f.refuse = 3
	err := newTestLink(f).Connect()
	assert.True(t, errors.Is(err, ErrNoSync))
}

func TestConnectVersionMismatch(t *testing.T) {
	f := newFakeTarget()
	f.version = ProtocolVersion + 1
	err := newTestLink(f).Connect()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "protocol version mismatch")
}

func TestUpload(t *testing.T) {
	f := newFakeTarget()
	l := newTestLink(f)
	require.NoError(t, l.Connect())

	program := make([]byte, 2*PageSize+5)
	for i := range program {
		program[i] = byte(i * 7)
	}
	require.NoError(t, l.Upload(program, 0x1000))

	assert.Len(t, f.mem, len(program))
	for i, b := range program {
		assert.Equal(t, b, f.mem[0x1000+uint32(i)], "offset %d", i)
	}
	assert.Empty(t, f.pending)
}

func TestUploadEmpty(t *testing.T) {
	f := newFakeTarget()
	require.NoError(t, newTestLink(f).Upload(nil, 0))
	assert.Empty(t, f.mem)
}

func TestUnexpectedResponse(t *testing.T) {
	f := newFakeTarget()
	l := newTestLink(f)
	err := l.doCommand(0x42)
	var ure *UnexpectedResponseError
	require.True(t, errors.As(err, &ure))
	assert.Equal(t, byte(0x42), ure.Command)
	assert.Equal(t, byte(0), ure.Response)
}

func TestNoResponse(t *testing.T) {
	l := newTestLink(newFakeTarget())
	_, err := l.ReadFor(5 * time.Millisecond)
	var nre NoResponseError
	require.True(t, errors.As(err, &nre))
	assert.Equal(t, 5*time.Millisecond, time.Duration(nre))
}

func TestRetriesEINTR(t *testing.T) {
	f := newFakeTarget()
	f.eintr = 3
	l := newTestLink(f)
	require.NoError(t, l.Write([]byte{CmdSync}))
	b, err := l.ReadFor(time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, Ack(CmdSync), b)
}

func TestClose(t *testing.T) {
	f := newFakeTarget()
	l := newTestLink(f)
	require.NoError(t, l.Close())
	assert.True(t, f.closed)
	assert.Error(t, l.Close())
}
