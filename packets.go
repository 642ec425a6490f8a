// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

// Packet framer (C4): 3-byte little-endian length + 1-byte sequence id,
// followed by the payload. Payloads at or above 0xFFFFFF are split across
// several frames on write and reassembled on read (§4.4).

import (
	"bytes"
	"encoding/binary"
	"time"
)

// readPacket reads one logical packet, transparently reassembling any
// 0xFFFFFF-sized continuation frames. The sequence id is validated against
// the connection's expected next id and advanced on every frame read.
func (mc *Connection) readPacket() ([]byte, error) {
	var payload []byte
	for {
		header, err := mc.buf.readNext(4)
		if err != nil {
			mc.cleanup()
			return nil, err
		}

		pktLen := int(uint32(header[0]) | uint32(header[1])<<8 | uint32(header[2])<<16)

		if header[3] != mc.sequence {
			mc.cleanup()
			if header[3] > mc.sequence {
				return nil, ErrPktSyncMul
			}
			return nil, ErrPktSync
		}
		mc.sequence++

		if pktLen == 0 {
			if payload == nil {
				return []byte{}, nil
			}
			return payload, nil
		}

		data, err := mc.buf.readNext(pktLen)
		if err != nil {
			mc.cleanup()
			return nil, err
		}
		// data aliases the read buffer; copy before it's clobbered by the
		// continuation frame's own read.
		chunk := make([]byte, len(data))
		copy(chunk, data)

		if payload == nil {
			payload = chunk
		} else {
			payload = append(payload, chunk...)
		}

		if pktLen < maxPacketSize {
			return payload, nil
		}
		// pktLen == maxPacketSize: a continuation frame follows. A payload
		// whose length is an exact multiple of maxPacketSize is followed by
		// a terminating zero-length frame (§8 "Packet framing" property),
		// which the pktLen == 0 branch above returns on the next iteration.
	}
}

// writePacket splits data into maxPacketSize-sized frames with strictly
// increasing sequence ids; if len(data) is an exact multiple of
// maxPacketSize, a trailing zero-length frame is appended so the reader
// knows the packet ended (§4.4, §8).
func (mc *Connection) writePacket(data []byte) error {
	for {
		chunkLen := len(data)
		if chunkLen > maxPacketSize {
			chunkLen = maxPacketSize
		}

		header := []byte{
			byte(chunkLen),
			byte(chunkLen >> 8),
			byte(chunkLen >> 16),
			mc.sequence,
		}

		if mc.writeTimeout > 0 {
			if err := mc.netConn.SetWriteDeadline(time.Now().Add(mc.writeTimeout)); err != nil {
				return err
			}
		}

		if n, err := mc.netConn.Write(header); err != nil || n != 4 {
			mc.cleanup()
			return err
		}
		if n, err := mc.netConn.Write(data[:chunkLen]); err != nil || n != chunkLen {
			mc.cleanup()
			return err
		}

		mc.sequence++
		if chunkLen != maxPacketSize {
			return nil
		}
		data = data[chunkLen:]
	}
}

// --- length-encoded primitives (§9 "Length-encoded integers") ---

// readLengthEncodedInteger decodes a length-encoded integer and returns its
// value, whether it was the NULL sentinel (0xFB), and the number of bytes
// consumed.
func readLengthEncodedInteger(data []byte) (num uint64, isNull bool, n int, err error) {
	if len(data) == 0 {
		return 0, false, 0, ErrMalformPkt
	}
	switch data[0] {
	case 0xfb:
		return 0, true, 1, nil
	case 0xfc:
		if len(data) < 3 {
			return 0, false, 0, ErrMalformPkt
		}
		return uint64(binary.LittleEndian.Uint16(data[1:3])), false, 3, nil
	case 0xfd:
		if len(data) < 4 {
			return 0, false, 0, ErrMalformPkt
		}
		return uint64(data[1]) | uint64(data[2])<<8 | uint64(data[3])<<16, false, 4, nil
	case 0xfe:
		if len(data) < 9 {
			return 0, false, 0, ErrMalformPkt
		}
		return binary.LittleEndian.Uint64(data[1:9]), false, 9, nil
	default:
		return uint64(data[0]), false, 1, nil
	}
}

// writeLengthEncodedInteger encodes n using the smallest applicable width.
func writeLengthEncodedInteger(n uint64) []byte {
	switch {
	case n <= 250:
		return []byte{byte(n)}
	case n <= 0xffff:
		return []byte{0xfc, byte(n), byte(n >> 8)}
	case n <= 0xffffff:
		return []byte{0xfd, byte(n), byte(n >> 8), byte(n >> 16)}
	default:
		b := make([]byte, 9)
		b[0] = 0xfe
		binary.LittleEndian.PutUint64(b[1:], n)
		return b
	}
}

// readLengthEncodedString reads a length-encoded string: length-encoded
// integer followed by that many bytes. Returns the slice, whether it was
// NULL, and bytes consumed.
func readLengthEncodedString(data []byte) (b []byte, isNull bool, n int, err error) {
	num, isNull, n, err := readLengthEncodedInteger(data)
	if err != nil || isNull {
		return nil, isNull, n, err
	}
	if len(data) < n+int(num) {
		return nil, false, n, ErrMalformPkt
	}
	return data[n : n+int(num)], false, n + int(num), nil
}

// skipLengthEncodedString advances past a length-encoded string without
// copying it out. parseColumnDefinition41 does not use it; it reads every
// field with readLengthEncodedString.
func skipLengthEncodedString(data []byte) (n int, err error) {
	num, isNull, n, err := readLengthEncodedInteger(data)
	if err != nil {
		return n, err
	}
	if isNull {
		return n, nil
	}
	if len(data) < n+int(num) {
		return n, ErrMalformPkt
	}
	return n + int(num), nil
}

// writeLengthEncodedString encodes a length-encoded string.
func writeLengthEncodedString(s []byte) []byte {
	out := writeLengthEncodedInteger(uint64(len(s)))
	return append(out, s...)
}

func readNullTerminatedString(data []byte) (s []byte, rest []byte, err error) {
	idx := bytes.IndexByte(data, 0x00)
	if idx < 0 {
		return nil, nil, ErrMalformPkt
	}
	return data[:idx], data[idx+1:], nil
}
