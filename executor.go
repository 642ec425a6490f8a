// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Result reports the outcome of a non-result-set statement (C8): the
// number of affected rows and, for an auto_increment insert, the id MySQL
// assigned.
type Result struct {
	LastInsertID uint64
	AffectedRows uint64
}

// Exec renders sqlText with params (if any) under the escaper and runs it
// to completion, discarding any result set rows. It is the simple,
// no-cursor path for statements like SET NAMES, START TRANSACTION, DDL.
func (mc *Connection) Exec(sqlText string, params ...Param) (Result, error) {
	rendered, err := mc.render(sqlText, params)
	if err != nil {
		return Result{}, err
	}

	cols, err := mc.query(rendered)
	if err != nil {
		return Result{}, err
	}
	if cols != nil {
		if _, err := mc.readAllRows(cols); err != nil {
			return Result{}, err
		}
	}
	if err := mc.captureWarnings(); err != nil {
		return Result{}, err
	}
	return Result{LastInsertID: mc.lastInsertID, AffectedRows: mc.affectedRows}, nil
}

// render applies the escaper (C3) to sqlText/params, or returns sqlText
// unrendered if there are no parameters to substitute.
func (mc *Connection) render(sqlText string, params []Param) ([]byte, error) {
	if len(params) == 0 {
		return []byte(sqlText), nil
	}
	charsetName := mc.charsetName
	return format(sqlText, params, charsetName)
}

// query sends sqlBytes as COM_QUERY and parses the result header (§4.7
// "Result header parsing", C8). A nil column slice with a nil error means
// the statement was an OK (no result set); mc.affectedRows/lastInsertID
// are updated in that case. A non-nil column slice means a result set is
// now available and the connection has moved to READING_ROWS.
func (mc *Connection) query(sqlBytes []byte) ([]*ColumnDefinition, error) {
	if err := mc.requireState(stateIdle); err != nil {
		return nil, err
	}

	mc.state = stateCommandSent
	if err := mc.writeCommandPacket(comQuery, sqlBytes); err != nil {
		return nil, err
	}

	return mc.readResultSetHeader()
}

// readResultSetHeader reads the first packet of a command's response and
// dispatches on its leading byte (§4.7 "Result header parsing").
func (mc *Connection) readResultSetHeader() ([]*ColumnDefinition, error) {
	mc.state = stateReadingHeader
	data, err := mc.readPacket()
	if err != nil {
		return nil, err
	}

	switch {
	case data[0] == iOK:
		mc.state = stateIdle
		return nil, mc.handleOKPacket(data)

	case data[0] == iERR:
		mc.state = stateIdle
		return nil, mc.handleErrorPacket(data)

	case data[0] == iLocalInFile:
		cols, err := mc.handleLocalInFile(data)
		mc.state = stateIdle
		return cols, err
	}

	columnCount, _, n, err := readLengthEncodedInteger(data)
	if err != nil || n != len(data) {
		mc.cleanup()
		return nil, ErrMalformPkt
	}

	cols, err := mc.readColumnDefinitions(int(columnCount))
	if err != nil {
		return nil, err
	}
	mc.state = stateReadingRows
	// busy until the row stream drains (readRow's terminator case clears it);
	// a buffered cursor drains synchronously before returning to its caller,
	// so this is only externally observable for an unbuffered cursor (§5).
	mc.busy = true
	return cols, nil
}

// readColumnDefinitions reads N ColumnDefinition41 packets followed by the
// terminator, whose shape depends on CLIENT_DEPRECATE_EOF (§4.7, §6).
func (mc *Connection) readColumnDefinitions(count int) ([]*ColumnDefinition, error) {
	cols := make([]*ColumnDefinition, 0, count)
	for i := 0; i < count; i++ {
		data, err := mc.readPacket()
		if err != nil {
			return nil, err
		}
		col, err := parseColumnDefinition41(data)
		if err != nil {
			mc.cleanup()
			return nil, err
		}
		cols = append(cols, col)
	}

	if mc.capabilities&clientDeprecateEOF != 0 {
		// with DEPRECATE_EOF the column-definition terminator is folded into
		// the first row read; nothing further to consume here.
		return cols, nil
	}

	data, err := mc.readPacket()
	if err != nil {
		return nil, err
	}
	if data[0] != iEOF {
		mc.cleanup()
		return nil, ErrMalformPkt
	}
	if err := mc.parseStatusFromEOF(data); err != nil {
		return nil, err
	}
	return cols, nil
}

// parseStatusFromEOF updates mc.status/warningCount from an EOF packet's
// trailing warning-count/status-flags pair.
func (mc *Connection) parseStatusFromEOF(data []byte) error {
	if len(data) < 5 {
		return ErrMalformPkt
	}
	mc.warningCount = binary.LittleEndian.Uint16(data[1:3])
	mc.status = serverStatus(binary.LittleEndian.Uint16(data[3:5]))
	return nil
}

// handleOKPacket parses an OK packet's length-encoded affected_rows,
// last_insert_id, status flags, warning count, and trailing info string
// (§4.7 "Result header parsing").
func (mc *Connection) handleOKPacket(data []byte) error {
	var n int
	var err error

	mc.affectedRows, _, n, err = readLengthEncodedInteger(data[1:])
	if err != nil {
		return err
	}
	pos := 1 + n

	mc.lastInsertID, _, n, err = readLengthEncodedInteger(data[pos:])
	if err != nil {
		return err
	}
	pos += n

	if mc.capabilities&clientProtocol41 != 0 {
		if len(data) < pos+4 {
			return ErrMalformPkt
		}
		mc.status = serverStatus(binary.LittleEndian.Uint16(data[pos : pos+2]))
		mc.warningCount = binary.LittleEndian.Uint16(data[pos+2 : pos+4])
		pos += 4
	}

	if pos < len(data) {
		mc.infoString = string(data[pos:])
	} else {
		mc.infoString = ""
	}
	return nil
}

// handleErrorPacket parses a server ERR packet into a classified
// *MySQLError (§4.7, §4.10, C10).
func (mc *Connection) handleErrorPacket(data []byte) error {
	if len(data) < 9 {
		return ErrMalformPkt
	}
	errno := binary.LittleEndian.Uint16(data[1:3])
	var sqlState [5]byte
	pos := 3
	if data[pos] == '#' {
		copy(sqlState[:], data[pos+1:pos+6])
		pos += 6
	}
	return newMySQLError(errno, sqlState, string(data[pos:]))
}

// readRow reads one row packet and decodes its fields per cols. A
// terminator packet (EOF, or an OK-shaped terminator under DEPRECATE_EOF)
// returns io.EOF and updates mc.status (so MORE_RESULTS can be observed).
func (mc *Connection) readRow(cols []*ColumnDefinition) ([]interface{}, error) {
	data, err := mc.readPacket()
	if err != nil {
		return nil, err
	}

	if mc.isTerminator(data) {
		if err := mc.parseStatusFromEOF(data); err != nil {
			return nil, err
		}
		mc.state = stateIdle
		mc.busy = false
		return nil, io.EOF
	}

	row := make([]interface{}, len(cols))
	pos := 0
	for i, col := range cols {
		raw, isNull, n, err := readLengthEncodedString(data[pos:])
		if err != nil {
			mc.cleanup()
			return nil, err
		}
		pos += n
		if isNull {
			row[i] = nil
			continue
		}
		val, err := decodeValue(col, raw)
		if err != nil {
			return nil, err
		}
		row[i] = val
	}
	return row, nil
}

// isTerminator recognizes the row-stream terminator: a classic EOF packet
// (<9 bytes, leading 0xFE), or, under DEPRECATE_EOF, an OK packet (leading
// 0x00, or 0xFE when the packet is shorter than maxPacketSize, which a row
// whose first field carries an 8-byte lenenc length never is).
func (mc *Connection) isTerminator(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	if mc.capabilities&clientDeprecateEOF != 0 {
		return data[0] == iOK || (data[0] == iEOF && len(data) < maxPacketSize)
	}
	return data[0] == iEOF && len(data) < 9
}

// readAllRows drains every remaining row of the active result set,
// returning IDLE afterward (C9 "Buffered" mode).
func (mc *Connection) readAllRows(cols []*ColumnDefinition) ([][]interface{}, error) {
	var rows [][]interface{}
	for {
		row, err := mc.readRow(cols)
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

// drainRows discards every remaining row without collecting them, for
// Cursor.close()/nextset() and the "reentrant command" precondition (§4.9,
// §5).
func (mc *Connection) drainRows(cols []*ColumnDefinition) error {
	for {
		_, err := mc.readRow(cols)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// moreResults reports whether the server status from the last-read
// terminator announced SERVER_MORE_RESULTS_EXISTS (C9 "nextset()").
func (mc *Connection) moreResults() bool {
	return mc.status&statusMoreResultsExists != 0
}

// nextResultSetHeader reads the next command's header after a multi-
// statement query reported MORE_RESULTS (C9 "nextset()").
func (mc *Connection) nextResultSetHeader() ([]*ColumnDefinition, error) {
	if !mc.moreResults() {
		return nil, nil
	}
	return mc.readResultSetHeader()
}

var errLocalInFileDisabled = fmt.Errorf("mysql: local_infile is disabled on this connection")
