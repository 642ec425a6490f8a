// Copyright 2024 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"net"
	"sync"
)

var (
	zrPool *sync.Pool // Do not use directly. Use zDecompress() instead.
	zwPool *sync.Pool // Do not use directly. Use zCompress() instead.
)

func init() {
	zrPool = &sync.Pool{
		New: func() any { return nil },
	}
	zwPool = &sync.Pool{
		New: func() any {
			zw, err := zlib.NewWriterLevel(new(bytes.Buffer), 2)
			if err != nil {
				panic(err) // compress/zlib returns a non-nil error only for an invalid level
			}
			return zw
		},
	}
}

func zDecompress(src, dst []byte) (int, error) {
	br := bytes.NewReader(src)
	var zr io.ReadCloser
	var err error

	if a := zrPool.Get(); a == nil {
		if zr, err = zlib.NewReader(br); err != nil {
			return 0, err
		}
	} else {
		zr = a.(io.ReadCloser)
		if err = zr.(zlib.Resetter).Reset(br, nil); err != nil {
			return 0, err
		}
	}
	defer func() {
		zr.Close()
		zrPool.Put(zr)
	}()

	lenRead := 0
	size := len(dst)

	for lenRead < size {
		n, err := zr.Read(dst[lenRead:])
		lenRead += n

		if err == io.EOF {
			if lenRead < size {
				return lenRead, io.ErrUnexpectedEOF
			}
		} else if err != nil {
			return lenRead, err
		}
	}
	return lenRead, nil
}

func zCompress(src []byte, dst io.Writer) error {
	zw := zwPool.Get().(*zlib.Writer)
	zw.Reset(dst)
	if _, err := zw.Write(src); err != nil {
		return err
	}
	zw.Close()
	zwPool.Put(zw)
	return nil
}

// minCompressLength is the smallest payload worth paying zlib's overhead
// for; shorter packets are sent as an uncompressed compressed-frame (§4.4
// "CLIENT_COMPRESS").
const minCompressLength = 50

const maxPayloadLen = maxPacketSize - 4

// compressor implements the CLIENT_COMPRESS packet framing: every MySQL
// packet is wrapped in an additional 7-byte header (compressed length,
// compression sequence id, uncompressed length-or-zero) once both sides
// have negotiated the capability in the handshake response. It sits
// between Connection.netConn and buffer, the same position TLS occupies
// when negotiated, and is swapped in by runHandshake right after the
// client's HandshakeResponse41 is sent.
type compressor struct {
	raw *bufio.Reader
	w   io.Writer

	readSeq  uint8
	writeSeq uint8

	bytesBuf []byte // decompressed bytes not yet consumed by Read
}

func newCompressor(raw io.Reader, w io.Writer) *compressor {
	return &compressor{raw: bufio.NewReaderSize(raw, defaultBufSize), w: w}
}

// Read satisfies io.Reader by decompressing as many additional frames as it
// takes to fill p.
func (c *compressor) Read(p []byte) (int, error) {
	for len(c.bytesBuf) < len(p) {
		if err := c.uncompressPacket(); err != nil {
			if len(c.bytesBuf) > 0 {
				break
			}
			return 0, err
		}
	}
	n := copy(p, c.bytesBuf)
	c.bytesBuf = c.bytesBuf[n:]
	return n, nil
}

func (c *compressor) uncompressPacket() error {
	header := make([]byte, 7)
	if _, err := io.ReadFull(c.raw, header); err != nil {
		return err
	}

	comprLength := int(uint32(header[0]) | uint32(header[1])<<8 | uint32(header[2])<<16)
	uncompressedLength := int(uint32(header[4]) | uint32(header[5])<<8 | uint32(header[6])<<16)
	seq := header[3]
	if seq != c.readSeq {
		return ErrPktSync
	}
	c.readSeq++

	comprData := make([]byte, comprLength)
	if _, err := io.ReadFull(c.raw, comprData); err != nil {
		return err
	}

	// a header with uncompressed length 0 means the payload was sent as-is.
	if uncompressedLength == 0 {
		c.bytesBuf = append(c.bytesBuf, comprData...)
		return nil
	}

	offset := len(c.bytesBuf)
	dst := make([]byte, offset+uncompressedLength)
	copy(dst, c.bytesBuf)
	lenRead, err := zDecompress(comprData, dst[offset:])
	if err != nil {
		return err
	}
	if lenRead != uncompressedLength {
		return fmt.Errorf("mysql: invalid compressed packet: uncompressed length in header is %d, actual %d",
			uncompressedLength, lenRead)
	}
	c.bytesBuf = dst
	return nil
}

// Write satisfies io.Writer by splitting data into at-most-maxPayloadLen
// chunks, compressing each one worth compressing, and framing it.
func (c *compressor) Write(data []byte) (int, error) {
	total := len(data)
	for len(data) > 0 {
		payloadLen := len(data)
		if payloadLen > maxPayloadLen {
			payloadLen = maxPayloadLen
		}
		payload := data[:payloadLen]

		var buf bytes.Buffer
		buf.Write(make([]byte, 7)) // placeholder header, filled in below

		uncompressedLen := payloadLen
		if payloadLen < minCompressLength {
			buf.Write(payload)
			uncompressedLen = 0
		} else if err := zCompress(payload, &buf); err != nil {
			return 0, err
		}

		if err := c.writeCompressedPacket(buf.Bytes(), uncompressedLen); err != nil {
			return 0, err
		}
		data = data[payloadLen:]
	}
	return total, nil
}

func (c *compressor) writeCompressedPacket(data []byte, uncompressedLen int) error {
	comprLength := len(data) - 7
	data[0] = byte(comprLength)
	data[1] = byte(comprLength >> 8)
	data[2] = byte(comprLength >> 16)
	data[3] = c.writeSeq
	data[4] = byte(uncompressedLen)
	data[5] = byte(uncompressedLen >> 8)
	data[6] = byte(uncompressedLen >> 16)

	if _, err := c.w.Write(data); err != nil {
		return err
	}
	c.writeSeq++
	return nil
}

// compressedConn swaps in compressor's Read/Write while still delegating
// Close/deadlines/addressing to the real net.Conn underneath, so it can
// replace Connection.netConn transparently once CLIENT_COMPRESS is
// negotiated.
type compressedConn struct {
	net.Conn
	c *compressor
}

func newCompressedConn(conn net.Conn) *compressedConn {
	return &compressedConn{Conn: conn, c: newCompressor(conn, conn)}
}

func (cc *compressedConn) Read(p []byte) (int, error)  { return cc.c.Read(p) }
func (cc *compressedConn) Write(p []byte) (int, error) { return cc.c.Write(p) }
