// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import "io"

// Cursor is a short-lived, non-owning view over one statement's result set
// (C9, §3 "Cursor"). It references its Connection, the active column
// metadata, the exact bytes last sent, and — in buffered mode — the rows
// already read. A Cursor never outlives the Connection it was acquired from.
type Cursor struct {
	conn *Connection

	columns []*ColumnDefinition
	buffered bool

	rows     [][]interface{}
	rowIndex int

	lastExecuted []byte
	rowCount     int64
	affected     Result

	hasResultSet bool
	exhausted    bool
}

// NewCursor opens a Cursor over conn. Buffered cursors read every row
// eagerly on Execute and return the connection to IDLE immediately;
// unbuffered cursors hold the connection in READING_ROWS until Close or
// the next command drains it (§4.9, §5 "Shared resources").
func NewCursor(conn *Connection, buffered bool) *Cursor {
	return &Cursor{conn: conn, buffered: buffered}
}

// Execute renders sql against params via the escaper and runs it,
// recording last_executed for diagnostics (§4.9). For a result-set
// statement, the buffered cursor reads every row immediately; the
// unbuffered cursor leaves rows to be pulled by Fetch*.
func (c *Cursor) Execute(sqlText string, params ...Param) error {
	rendered, err := c.conn.render(sqlText, params)
	if err != nil {
		return err
	}
	return c.runRendered(rendered)
}

// ExecuteMany runs sqlText once per row in rows, splicing them into a
// single bulk INSERT/REPLACE when the statement shape allows it (§4.3), or
// falling back to one Execute per row otherwise (§4.9 "executemany").
func (c *Cursor) ExecuteMany(sqlText string, rows [][]Param) (Result, error) {
	tmpl, ok := splitBulkInsert(sqlText)
	if !ok {
		var total Result
		for _, row := range rows {
			if err := c.Execute(sqlText, row...); err != nil {
				return total, err
			}
			total.AffectedRows += c.affected.AffectedRows
			if c.affected.LastInsertID != 0 {
				total.LastInsertID = c.affected.LastInsertID
			}
		}
		return total, nil
	}

	batches, err := spliceBulkInsert(tmpl, rows, c.conn.charsetName, c.conn.maxAllowedPacket)
	if err != nil {
		return Result{}, err
	}

	var total Result
	for _, batch := range batches {
		if err := c.runRendered(batch); err != nil {
			return total, err
		}
		total.AffectedRows += c.affected.AffectedRows
		if c.affected.LastInsertID != 0 {
			total.LastInsertID = c.affected.LastInsertID
		}
	}
	return total, nil
}

func (c *Cursor) runRendered(rendered []byte) error {
	c.lastExecuted = rendered
	c.rows = nil
	c.rowIndex = 0
	c.exhausted = false

	cols, err := c.conn.query(rendered)
	if err != nil {
		return err
	}

	if cols == nil {
		c.hasResultSet = false
		c.columns = nil
		c.exhausted = true
		c.affected = Result{LastInsertID: c.conn.lastInsertID, AffectedRows: c.conn.affectedRows}
		c.rowCount = int64(c.conn.affectedRows)
		return c.conn.captureWarnings()
	}

	c.hasResultSet = true
	c.columns = cols
	c.affected = Result{}

	if c.buffered {
		rows, err := c.conn.readAllRows(cols)
		if err != nil {
			return err
		}
		c.rows = rows
		c.rowCount = int64(len(rows))
		c.exhausted = true
		return c.conn.captureWarnings()
	}
	// unbuffered: warning_count isn't known until the row stream drains
	// (it arrives on the terminator), and the connection is still busy, so
	// there is nothing to capture yet — Warnings() reflects the prior
	// statement until the caller drains this one and calls ShowWarnings.
	c.rowCount = -1 // unknown until drained
	return nil
}

// LastExecuted returns the exact bytes of the most recently sent command
// (§4.9 "last_executed", for diagnostics and tests).
func (c *Cursor) LastExecuted() []byte {
	return c.lastExecuted
}

// RowCount returns the row count: for a result set, the number of rows
// (buffered) or -1 if not yet known (unbuffered, not yet drained); for a
// non-result-set statement, the affected row count.
func (c *Cursor) RowCount() int64 {
	return c.rowCount
}

// FetchOne returns the next row, or (nil, nil) once the result set is
// exhausted (§4.9 "fetchone()").
func (c *Cursor) FetchOne() ([]interface{}, error) {
	if !c.hasResultSet {
		return nil, interfaceErr(ErrNoResult)
	}

	if c.buffered {
		if c.rowIndex >= len(c.rows) {
			return nil, nil
		}
		row := c.rows[c.rowIndex]
		c.rowIndex++
		return row, nil
	}

	if c.exhausted {
		return nil, nil
	}
	row, err := c.conn.readRow(c.columns)
	if err == io.EOF {
		c.exhausted = true
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// FetchMany returns up to n rows (§4.9 "fetchmany(n)").
func (c *Cursor) FetchMany(n int) ([][]interface{}, error) {
	rows := make([][]interface{}, 0, n)
	for i := 0; i < n; i++ {
		row, err := c.FetchOne()
		if err != nil {
			return rows, err
		}
		if row == nil {
			break
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FetchAll returns every remaining row (§4.9 "fetchall()").
func (c *Cursor) FetchAll() ([][]interface{}, error) {
	var rows [][]interface{}
	for {
		row, err := c.FetchOne()
		if err != nil {
			return rows, err
		}
		if row == nil {
			return rows, nil
		}
		rows = append(rows, row)
	}
}

// NextSet advances to the next result set of a multi-statement query if the
// server reported SERVER_MORE_RESULTS_EXISTS, returning false once there is
// none (§4.9 "nextset()").
func (c *Cursor) NextSet() (bool, error) {
	if !c.exhausted {
		if err := c.conn.drainRows(c.columns); err != nil {
			return false, err
		}
		c.exhausted = true
	}

	if !c.conn.moreResults() {
		return false, nil
	}

	cols, err := c.conn.nextResultSetHeader()
	if err != nil {
		return false, err
	}
	if cols == nil {
		c.hasResultSet = false
		c.columns = nil
		c.affected = Result{LastInsertID: c.conn.lastInsertID, AffectedRows: c.conn.affectedRows}
		c.rowCount = int64(c.conn.affectedRows)
		return true, nil
	}

	c.hasResultSet = true
	c.columns = cols
	c.rowIndex = 0
	c.exhausted = false
	if c.buffered {
		rows, err := c.conn.readAllRows(cols)
		if err != nil {
			return false, err
		}
		c.rows = rows
		c.rowCount = int64(len(rows))
		c.exhausted = true
	} else {
		c.rowCount = -1
	}
	return true, nil
}

// Close drains any remaining rows so the connection returns to IDLE, then
// releases the cursor's reference (§4.9 "close()", §5 "Scoped acquisition").
func (c *Cursor) Close() error {
	if c.conn == nil {
		return nil
	}
	if c.hasResultSet && !c.exhausted {
		if err := c.conn.drainRows(c.columns); err != nil {
			c.conn = nil
			return err
		}
		c.exhausted = true
	}
	c.conn = nil
	return nil
}
