// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import "testing"

func TestCharsetByIDLookup(t *testing.T) {
	info, ok := charsetByIDLookup(45)
	if !ok {
		t.Fatal("expected charset 45 to be found")
	}
	if info.name != "utf8mb4" {
		t.Errorf("name = %q, want utf8mb4", info.name)
	}
}

func TestCharsetByIDLookupUnknown(t *testing.T) {
	if _, ok := charsetByIDLookup(250); ok {
		t.Error("expected charset id 250 to be unknown")
	}
}

func TestCharsetByNameLookup(t *testing.T) {
	info, ok := charsetByNameLookup("latin1")
	if !ok {
		t.Fatal("expected latin1 to be found")
	}
	if info.id != 8 {
		t.Errorf("id = %d, want 8", info.id)
	}
}

func TestCollationForCharset(t *testing.T) {
	id, ok := collationForCharset("utf8mb4")
	if !ok {
		t.Fatal("expected utf8mb4 to resolve")
	}
	if id != 45 {
		t.Errorf("collation id = %d, want 45 (utf8mb4_general_ci, the default)", id)
	}
}

func TestCollationForCharsetUnknown(t *testing.T) {
	if _, ok := collationForCharset("no-such-charset"); ok {
		t.Error("expected unknown charset to fail")
	}
}

func TestDecodeTextBinaryCharsetPassesThrough(t *testing.T) {
	s, err := decodeText(binaryCharsetID, []byte{0x00, 0xff, 0x10})
	if err != nil {
		t.Fatal(err)
	}
	if len(s) != 3 {
		t.Errorf("expected passthrough of raw bytes, got %q", s)
	}
}

func TestDecodeTextLatin1(t *testing.T) {
	// 0xe9 under windows-1252/latin1 is 'é'.
	s, err := decodeText(8, []byte{0xe9})
	if err != nil {
		t.Fatal(err)
	}
	if s != "é" {
		t.Errorf("got %q, want é", s)
	}
}

func TestEncodeTextPassthroughUTF8(t *testing.T) {
	b, err := encodeText("utf8mb4", "héllo")
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "héllo" {
		t.Errorf("got %q", b)
	}
}

func TestEncodeDecodeLatin1RoundTrip(t *testing.T) {
	encoded, err := encodeText("latin1", "café")
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := decodeText(8, encoded)
	if err != nil {
		t.Fatal(err)
	}
	if decoded != "café" {
		t.Errorf("round trip = %q, want café", decoded)
	}
}
