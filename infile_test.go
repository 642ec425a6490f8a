// Copyright 2013 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenInfileSourceDisabledByDefault(t *testing.T) {
	mc := &Connection{cfg: &Config{}}
	if _, err := mc.openInfileSource("whatever.csv"); err != errLocalInFileDisabled {
		t.Errorf("openInfileSource with no loader/LocalInfile = %v, want errLocalInFileDisabled", err)
	}
}

func TestOpenInfileSourcePrefersLoader(t *testing.T) {
	called := ""
	mc := &Connection{cfg: &Config{
		LocalInfile: true,
		InfileLoader: func(filename string) (io.Reader, error) {
			called = filename
			return bytes.NewReader([]byte("1,a\n2,b\n")), nil
		},
	}}
	rdr, err := mc.openInfileSource("data.csv")
	if err != nil {
		t.Fatalf("openInfileSource: %v", err)
	}
	if called != "data.csv" {
		t.Errorf("loader called with %q, want %q", called, "data.csv")
	}
	body, _ := io.ReadAll(rdr)
	if string(body) != "1,a\n2,b\n" {
		t.Errorf("unexpected loader body %q", body)
	}
}

func TestOpenInfileSourceFallsBackToDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rows.csv")
	if err := os.WriteFile(path, []byte("x,y\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	mc := &Connection{cfg: &Config{LocalInfile: true}}
	rdr, err := mc.openInfileSource(path)
	if err != nil {
		t.Fatalf("openInfileSource: %v", err)
	}
	if closer, ok := rdr.(io.Closer); ok {
		defer closer.Close()
	}
	body, _ := io.ReadAll(rdr)
	if string(body) != "x,y\n" {
		t.Errorf("unexpected file body %q", body)
	}
}

func TestWriteChunkSize(t *testing.T) {
	mc := &Connection{maxAllowedPacket: 1024}
	if got, want := mc.writeChunkSize(), 1024-4; got != want {
		t.Errorf("writeChunkSize() = %d, want %d", got, want)
	}

	mc.maxAllowedPacket = 0
	if got, want := mc.writeChunkSize(), maxPacketSize-4; got != want {
		t.Errorf("writeChunkSize() with no cap = %d, want %d", got, want)
	}
}
