// Copyright 2013 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"bytes"
	"testing"
)

func TestBufferReadNext(t *testing.T) {
	conn := &mockConn{data: []byte("hello world"), maxReads: 100}
	b := newBuffer(conn)
	got, err := b.readNext(5)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("hello")) {
		t.Errorf("got %q", got)
	}
	got, err = b.readNext(6)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte(" world")) {
		t.Errorf("got %q", got)
	}
}

func TestBufferReadNextGrowsPastDefaultSize(t *testing.T) {
	big := bytes.Repeat([]byte{'z'}, defaultBufSize*3)
	conn := &mockConn{data: big, maxReads: 1000}
	b := newBuffer(conn)
	got, err := b.readNext(len(big))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, big) {
		t.Error("large read did not reproduce the source bytes")
	}
}

func TestBufferBusy(t *testing.T) {
	conn := &mockConn{data: []byte("abcdef"), maxReads: 10}
	b := newBuffer(conn)
	if b.busy() {
		t.Fatal("freshly constructed buffer should not be busy")
	}
	if _, err := b.readNext(3); err != nil {
		t.Fatal(err)
	}
	if !b.busy() {
		t.Error("buffer holding unread bytes should report busy")
	}
}

func TestBufferReadNextUnexpectedEOF(t *testing.T) {
	conn := &mockConn{data: []byte("ab"), maxReads: 1}
	b := newBuffer(conn)
	if _, err := b.readNext(10); err == nil {
		t.Fatal("expected an error reading past a closed/exhausted source")
	}
}

func TestTakeBufferRejectsWhenBusy(t *testing.T) {
	conn := &mockConn{data: []byte("abcdef"), maxReads: 10}
	b := newBuffer(conn)
	if _, err := b.readNext(2); err != nil {
		t.Fatal(err)
	}
	if _, err := b.takeBuffer(4); err != ErrPktSync {
		t.Errorf("takeBuffer while busy = %v, want ErrPktSync", err)
	}
}

func TestTakeSmallBufferAllowsReuse(t *testing.T) {
	conn := &mockConn{}
	b := newBuffer(conn)
	buf, err := b.takeSmallBuffer(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(buf) != 10 {
		t.Errorf("len = %d, want 10", len(buf))
	}
}
