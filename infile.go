// Copyright 2013 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"io"
	"os"
)

// InfileLoader is the pluggable LOCAL INFILE source contract (C11, §6): given
// the filename the server asked for, return a reader over its contents, or
// an error to abort the load. Connection pooling, SSL and config parsing are
// out of scope (§1); this callback is the whole of the driver's surface for
// the file-source side of LOAD DATA LOCAL INFILE.
type InfileLoader func(filename string) (io.Reader, error)

// handleLocalInFile responds to a server LOCAL INFILE request (leading byte
// 0xFB, filename as the rest of the packet): stream the file as one or more
// data packets, terminate with an empty packet, then read the OK/ERR that
// follows (§4.11).
func (mc *Connection) handleLocalInFile(header []byte) ([]*ColumnDefinition, error) {
	filename := string(header[1:])

	rdr, openErr := mc.openInfileSource(filename)

	var ioErr error
	if openErr == nil {
		buf := make([]byte, 4+mc.writeChunkSize())
		for {
			n, err := rdr.Read(buf[4:])
			if n > 0 {
				if werr := mc.writePacket(buf[4 : 4+n]); werr != nil {
					ioErr = werr
					break
				}
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				ioErr = err
				break
			}
		}
		if closer, ok := rdr.(io.Closer); ok {
			closer.Close()
		}
	}

	// a zero-length packet always terminates the file transfer, even after
	// a read error, so the server can resynchronize (§4.11).
	if err := mc.writePacket([]byte{}); err != nil {
		return nil, err
	}

	if ioErr != nil {
		logPrint("mysql: LOCAL INFILE read error: ", ioErr)
	}

	if err := mc.readResultOK(); err != nil {
		return nil, err
	}
	if openErr != nil {
		return nil, openErr
	}
	return nil, ioErr
}

// openInfileSource dispatches to the configured loader, falling back to
// reading the path directly when the client enabled LocalInfile and no
// loader was configured (§4.11).
func (mc *Connection) openInfileSource(filename string) (io.Reader, error) {
	if mc.cfg.InfileLoader != nil {
		return mc.cfg.InfileLoader(filename)
	}
	if mc.cfg.LocalInfile {
		return os.Open(filename)
	}
	return nil, errLocalInFileDisabled
}

// writeChunkSize bounds each LOCAL INFILE data packet so it fits in one
// frame; matches the executor's render-time batching bound.
func (mc *Connection) writeChunkSize() int {
	if mc.maxAllowedPacket > 0 && mc.maxAllowedPacket < maxPacketSize {
		return mc.maxAllowedPacket - 4
	}
	return maxPacketSize - 4
}

// readResultOK reads one packet and dispatches it as OK or ERR, for
// commands (COM_PING, COM_INIT_DB, LOCAL INFILE completion) that never
// produce a result set.
func (mc *Connection) readResultOK() error {
	data, err := mc.readPacket()
	if err != nil {
		return err
	}
	switch data[0] {
	case iOK:
		mc.state = stateIdle
		return mc.handleOKPacket(data)
	case iERR:
		mc.state = stateIdle
		return mc.handleErrorPacket(data)
	default:
		mc.cleanup()
		return ErrMalformPkt
	}
}
