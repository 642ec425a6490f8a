// Copyright 2013 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"io"
	"net"
	"time"
)

const defaultBufSize = 4096
const maxCachedBufSize = 256 * 1024

// buffer is a read buffer similar to bufio.Reader but zero-copy-ish; also
// highly optimized for the request/response discipline of §5 (one read call
// per packet frame, no pipelining).
type buffer struct {
	buf     []byte
	rd      io.Reader
	idx     int
	length  int
	timeout time.Duration
	conn    net.Conn
}

func newBuffer(conn net.Conn) *buffer {
	var b [defaultBufSize]byte
	return &buffer{
		buf:  b[:],
		rd:   conn,
		conn: conn,
	}
}

// busy returns whether the buffer currently holds unread bytes. The
// connection's reentrancy check uses Connection.busy, not this method.
func (b *buffer) busy() bool {
	return b.length > 0
}

// fill reads into the buffer until at least _need_ bytes are in it.
func (b *buffer) fill(need int) error {
	n := b.length
	if n > 0 && b.idx > 0 {
		copy(b.buf[0:n], b.buf[b.idx:])
	}

	if need > len(b.buf) {
		clone := make([]byte, ((need/defaultBufSize)+1)*defaultBufSize)
		copy(clone, b.buf[:n])
		b.buf = clone
	} else if n == 0 && len(b.buf) > maxCachedBufSize {
		b.buf = make([]byte, defaultBufSize)
	}

	b.idx = 0

	for {
		if b.timeout > 0 {
			if err := b.conn.SetReadDeadline(time.Now().Add(b.timeout)); err != nil {
				return err
			}
		}

		read, err := b.rd.Read(b.buf[n:])
		n += read

		switch err {
		case nil:
			if n < need {
				continue
			}
			b.length = n
			return nil

		case io.EOF:
			if n >= need {
				b.length = n
				return nil
			}
			return io.ErrUnexpectedEOF

		default:
			return err
		}
	}
}

// readNext returns the next `need` bytes from the buffer; the returned
// slice is only guaranteed valid until the next read.
func (b *buffer) readNext(need int) ([]byte, error) {
	if b.length < need {
		if err := b.fill(need); err != nil {
			return nil, err
		}
	}
	p := b.buf[b.idx : b.idx+need]
	b.idx += need
	b.length -= need
	return p, nil
}

// takeBuffer returns a buffer large enough to hold `length` bytes, reusing
// the read buffer's backing array when the connection is IDLE (no
// in-flight packet); with unread bytes pending it returns ErrPktSync. No
// packet writer in this package calls it (ported from the teacher's
// allocation pattern in packets.go/auth_caching_sha2.go's takeSmallBuffer).
func (b *buffer) takeBuffer(length int) ([]byte, error) {
	if b.length > 0 {
		return nil, ErrPktSync
	}
	if length <= cap(b.buf) {
		return b.buf[:length], nil
	}
	if length < maxPacketSize {
		b.buf = make([]byte, length)
		return b.buf, nil
	}
	return make([]byte, length), nil
}

// takeSmallBuffer is takeBuffer without the IDLE precondition, for tiny
// fixed-size control packets (auth-switch replies, public-key requests).
func (b *buffer) takeSmallBuffer(length int) ([]byte, error) {
	if length <= cap(b.buf) {
		return b.buf[:length], nil
	}
	return make([]byte, length), nil
}
