// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"
)

var errConnTooManyReads = errors.New("too many reads")

// mockConn mocks a net.Conn for framer tests, grounded on the teacher's
// packets_test.go mockConn.
type mockConn struct {
	data      []byte
	written   []byte
	closed    bool
	reads     int
	maxReads  int
}

func (m *mockConn) Read(b []byte) (int, error) {
	if m.maxReads > 0 && m.reads >= m.maxReads {
		return 0, errConnTooManyReads
	}
	m.reads++
	n := copy(b, m.data)
	m.data = m.data[n:]
	return n, nil
}
func (m *mockConn) Write(b []byte) (int, error) {
	m.written = append(m.written, b...)
	return len(b), nil
}
func (m *mockConn) Close() error                       { m.closed = true; return nil }
func (m *mockConn) LocalAddr() net.Addr                { return nil }
func (m *mockConn) RemoteAddr() net.Addr               { return nil }
func (m *mockConn) SetDeadline(t time.Time) error      { return nil }
func (m *mockConn) SetReadDeadline(t time.Time) error  { return nil }
func (m *mockConn) SetWriteDeadline(t time.Time) error { return nil }

var _ net.Conn = (*mockConn)(nil)

func newTestConnection(conn net.Conn) *Connection {
	return &Connection{
		buf:     newBuffer(conn),
		netConn: conn,
		cfg:     NewConfig(),
	}
}

func TestReadPacketSingleByte(t *testing.T) {
	conn := &mockConn{data: []byte{0x01, 0x00, 0x00, 0x00, 0xff}, maxReads: 1}
	mc := newTestConnection(conn)
	packet, err := mc.readPacket()
	if err != nil {
		t.Fatal(err)
	}
	if len(packet) != 1 || packet[0] != 0xff {
		t.Fatalf("unexpected packet %v", packet)
	}
}

func TestReadPacketWrongSequenceIDTooLow(t *testing.T) {
	conn := &mockConn{data: []byte{0x01, 0x00, 0x00, 0x00, 0xff}, maxReads: 1}
	mc := newTestConnection(conn)
	mc.sequence = 1
	_, err := mc.readPacket()
	if err != ErrPktSync {
		t.Errorf("expected ErrPktSync, got %v", err)
	}
}

func TestReadPacketWrongSequenceIDTooHigh(t *testing.T) {
	conn := &mockConn{data: []byte{0x01, 0x00, 0x00, 0x42, 0xff}, maxReads: 1}
	mc := newTestConnection(conn)
	_, err := mc.readPacket()
	if err != ErrPktSyncMul {
		t.Errorf("expected ErrPktSyncMul, got %v", err)
	}
}

// TestReadPacketContinuation exercises §4.4/§8: a payload whose length is an
// exact multiple of maxPacketSize is followed by a terminating zero-length
// frame, and the reassembled payload reproduces the concatenation.
func TestReadPacketContinuation(t *testing.T) {
	first := bytes.Repeat([]byte{0x11}, maxPacketSize)
	second := []byte{0x22, 0x33}

	var wire bytes.Buffer
	wire.Write([]byte{0xff, 0xff, 0xff, 0})
	wire.Write(first)
	wire.Write([]byte{byte(len(second)), 0, 0, 1})
	wire.Write(second)

	conn := &mockConn{data: wire.Bytes(), maxReads: 10000}
	mc := newTestConnection(conn)
	packet, err := mc.readPacket()
	if err != nil {
		t.Fatal(err)
	}
	want := append(append([]byte{}, first...), second...)
	if !bytes.Equal(packet, want) {
		t.Errorf("reassembled packet length = %d, want %d", len(packet), len(want))
	}
}

// TestReadPacketExactMultipleTerminator: a payload whose length is exactly
// maxPacketSize must be followed by a zero-length terminator frame (§8).
func TestReadPacketExactMultipleTerminator(t *testing.T) {
	payload := bytes.Repeat([]byte{0x44}, maxPacketSize)

	var wire bytes.Buffer
	wire.Write([]byte{0xff, 0xff, 0xff, 0})
	wire.Write(payload)
	wire.Write([]byte{0, 0, 0, 1}) // terminating zero-length frame

	conn := &mockConn{data: wire.Bytes(), maxReads: 10000}
	mc := newTestConnection(conn)
	packet, err := mc.readPacket()
	if err != nil {
		t.Fatal(err)
	}
	if len(packet) != maxPacketSize {
		t.Fatalf("len(packet) = %d, want %d", len(packet), maxPacketSize)
	}
}

func TestWritePacketSplitsOversizedPayload(t *testing.T) {
	conn := &mockConn{}
	mc := newTestConnection(conn)
	payload := bytes.Repeat([]byte{0x01}, maxPacketSize)
	if err := mc.writePacket(payload); err != nil {
		t.Fatal(err)
	}
	// first frame header announces maxPacketSize, sequence 0; a trailing
	// zero-length frame (sequence 1) must follow per §4.4.
	if conn.written[0] != 0xff || conn.written[1] != 0xff || conn.written[2] != 0xff || conn.written[3] != 0 {
		t.Fatalf("unexpected first frame header: %v", conn.written[:4])
	}
	trailerStart := 4 + maxPacketSize
	trailer := conn.written[trailerStart : trailerStart+4]
	if trailer[0] != 0 || trailer[1] != 0 || trailer[2] != 0 || trailer[3] != 1 {
		t.Errorf("missing terminating zero-length frame, got %v", trailer)
	}
}

func TestLengthEncodedIntegerRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 250, 251, 0xffff, 0x10000, 0xffffff, 0x1000000, 1 << 40}
	for _, n := range cases {
		encoded := writeLengthEncodedInteger(n)
		got, isNull, consumed, err := readLengthEncodedInteger(encoded)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if isNull {
			t.Fatalf("n=%d: unexpectedly decoded as NULL", n)
		}
		if got != n {
			t.Errorf("n=%d: round trip = %d", n, got)
		}
		if consumed != len(encoded) {
			t.Errorf("n=%d: consumed %d, want %d", n, consumed, len(encoded))
		}
	}
}

func TestLengthEncodedIntegerNullSentinel(t *testing.T) {
	_, isNull, n, err := readLengthEncodedInteger([]byte{0xfb})
	if err != nil {
		t.Fatal(err)
	}
	if !isNull || n != 1 {
		t.Errorf("isNull=%v n=%d, want true,1", isNull, n)
	}
}

func TestLengthEncodedStringRoundTrip(t *testing.T) {
	s := []byte("hello world")
	encoded := writeLengthEncodedString(s)
	got, isNull, n, err := readLengthEncodedString(encoded)
	if err != nil || isNull {
		t.Fatalf("err=%v isNull=%v", err, isNull)
	}
	if !bytes.Equal(got, s) {
		t.Errorf("got %q, want %q", got, s)
	}
	if n != len(encoded) {
		t.Errorf("consumed %d, want %d", n, len(encoded))
	}
}

func TestReadNullTerminatedString(t *testing.T) {
	data := append([]byte("mysql_native_password"), 0x00, 'x')
	s, rest, err := readNullTerminatedString(data)
	if err != nil {
		t.Fatal(err)
	}
	if string(s) != "mysql_native_password" {
		t.Errorf("got %q", s)
	}
	if string(rest) != "x" {
		t.Errorf("rest = %q", rest)
	}
}

func TestReadNullTerminatedStringMissingNUL(t *testing.T) {
	_, _, err := readNullTerminatedString([]byte("no nul here"))
	if err != ErrMalformPkt {
		t.Errorf("expected ErrMalformPkt, got %v", err)
	}
}
