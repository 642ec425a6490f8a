// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"fmt"
	"net"
	"time"

	matomic "github.com/gomysql/gomysql/internal/atomic"
)

// connState is the CONN state machine from §4.7: at most one command may
// be in flight, and every public operation asserts a precondition on the
// current state rather than relying on ad-hoc booleans (§9).
type connState int

const (
	stateIdle connState = iota
	stateCommandSent
	stateReadingHeader
	stateReadingColumns
	stateReadingRows
	stateUnreadResult
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateIdle:
		return "IDLE"
	case stateCommandSent:
		return "COMMAND_SENT"
	case stateReadingHeader:
		return "READING_HEADER"
	case stateReadingColumns:
		return "READING_COLUMNS"
	case stateReadingRows:
		return "READING_ROWS"
	case stateUnreadResult:
		return "UNREAD_RESULT"
	case stateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Connection owns one authenticated session (§3, §4.7, C7). It is not safe
// for concurrent use; callers serialize externally (§5).
type Connection struct {
	cfg *Config

	netConn      net.Conn
	buf          *buffer
	sequence     uint8
	writeTimeout time.Duration

	capabilities       capabilityFlag
	serverCapabilities capabilityFlag

	charsetID   uint8
	charsetName string

	serverVersion  string
	threadID       uint32
	status         serverStatus
	scramble       []byte
	authPluginName string

	lastInsertID     uint64
	affectedRows     uint64
	warningCount     uint16
	infoString       string
	maxAllowedPacket int

	state connState
	// busy is set for the span a result set is open and not yet drained
	// (readResultSetHeader sets it, readRow's terminator case clears it);
	// requireState rejects a reentrant command while it's set (§5). A
	// buffered cursor's window is never externally visible since it drains
	// synchronously; an unbuffered cursor leaves it set until Fetch*/Close
	// exhausts the stream.
	busy    bool
	results []Warning

	// closed mirrors state==stateClosed but is safe to read and set from a
	// goroutine other than the one driving the connection, so Cancel can
	// force a mid-packet teardown concurrently with an in-flight read or
	// write (§3 invariant, §9 "reentrancy on cancellation").
	closed matomic.Bool
}

// state-precondition errors.
var (
	errNotIdle = interfaceErr(fmt.Errorf("mysql: connection is not idle"))
)

// requireState fails fast (§3 invariant) rather than attempting a command
// against a connection in the wrong state.
func (mc *Connection) requireState(want connState) error {
	if mc.state == stateClosed {
		return interfaceErr(ErrInvalidConn)
	}
	if mc.busy {
		return interfaceErr(ErrBusy)
	}
	if mc.state != want {
		return errNotIdle
	}
	return nil
}

// cleanup transitions the connection to CLOSED and releases the socket.
// Called on any read/write failure (§3 invariant: "any read/write failure
// transitions the connection to a terminal CLOSED state").
func (mc *Connection) cleanup() {
	if mc.state == stateClosed {
		return
	}
	mc.state = stateClosed
	mc.busy = false
	mc.closed.Set(true)
	if mc.netConn != nil {
		mc.netConn.Close()
	}
}

// IsClosed reports whether the connection has transitioned to CLOSED,
// either via Close, Cancel, or a prior I/O failure.
func (mc *Connection) IsClosed() bool {
	return mc.closed.IsSet() || mc.state == stateClosed
}

// Cancel forces the connection to CLOSED from outside the goroutine that
// owns it, interrupting any in-flight read or write on the underlying
// socket. It is the one operation safe to call concurrently with the rest
// of Connection's API (§5), which is otherwise single-owner: a caller that
// cancels a suspended I/O operation mid-packet can no longer trust the
// wire framing, so the connection is torn down rather than resynced (§9
// "reentrancy on cancellation"). Calling Cancel more than once, or after
// Close, is a no-op.
func (mc *Connection) Cancel() error {
	if !mc.closed.TrySet(true) {
		return nil
	}
	mc.state = stateClosed
	if mc.netConn != nil {
		return mc.netConn.Close()
	}
	return nil
}

// IsHealthy reports whether an IDLE connection's socket still looks alive,
// via a non-blocking poll for a pending read/error event (§4.7
// "is_healthy()") rather than a round trip. A busy connection is reported
// healthy without checking, since a pending command/result already proves
// liveness.
func (mc *Connection) IsHealthy() bool {
	if mc.state == stateClosed {
		return false
	}
	if mc.state != stateIdle {
		return true
	}
	return connCheck(mc.netConn) == nil
}

// resetSequence starts a new command: sequence id resets to 0 (§3 invariant,
// §4.4).
func (mc *Connection) resetSequence() {
	mc.sequence = 0
}

// writeCommandPacket frames a single COM_* command as one packet with
// sequence id 0 (C8).
func (mc *Connection) writeCommandPacket(cmd commandType, arg []byte) error {
	mc.resetSequence()
	data := make([]byte, len(arg)+1)
	data[0] = byte(cmd)
	copy(data[1:], arg)
	return mc.writePacket(data)
}

// Ping sends COM_PING; if reconnect is set and the ping fails because the
// connection is unusable, it re-establishes the session transparently
// (§4.7 "ping(reconnect=false)").
func (mc *Connection) Ping(reconnect bool) error {
	if err := mc.requireState(stateIdle); err != nil {
		if !reconnect || mc.state != stateClosed {
			return err
		}
	}

	if mc.state == stateIdle && !mc.IsHealthy() {
		if !reconnect {
			return interfaceErr(ErrInvalidConn)
		}
		if err := mc.reconnect(); err != nil {
			return err
		}
		return mc.pingOnce()
	}

	if err := mc.pingOnce(); err != nil {
		if !reconnect {
			return err
		}
		if rerr := mc.reconnect(); rerr != nil {
			return rerr
		}
		return mc.pingOnce()
	}
	return nil
}

func (mc *Connection) pingOnce() error {
	mc.state = stateCommandSent
	if err := mc.writeCommandPacket(comPing, nil); err != nil {
		return err
	}
	return mc.readResultOK()
}

// reconnectAttempts bounds how many times reconnect retries a failed dial
// before giving up and returning the last error to the caller.
const reconnectAttempts = 3

// reconnect tears down and re-runs connect() against the same Config, for
// Ping(reconnect=true) (§4.7). The initial dial can fail transiently (the
// peer mid-restart, a load balancer still draining) so retries are spaced
// out with exponential backoff rather than hammered back-to-back.
func (mc *Connection) reconnect() error {
	if mc.netConn != nil {
		mc.netConn.Close()
	}

	backoff := newExponentialBackoff()
	var lastErr error
	for attempt := 1; attempt <= reconnectAttempts; attempt++ {
		fresh, err := Connect(mc.cfg)
		if err == nil {
			*mc = *fresh
			return nil
		}
		lastErr = err
		if attempt < reconnectAttempts {
			time.Sleep(backoff.NextInterval(attempt))
		}
	}
	return lastErr
}

// SelectDB issues COM_INIT_DB to switch the session's default database
// (§4.7 "select_db(name)").
func (mc *Connection) SelectDB(name string) error {
	if err := mc.requireState(stateIdle); err != nil {
		return err
	}
	mc.state = stateCommandSent
	if err := mc.writeCommandPacket(comInitDB, []byte(name)); err != nil {
		return err
	}
	return mc.readResultOK()
}

// SetCharset issues `SET NAMES <name>` and updates the session charset
// bookkeeping (§4.7 "set_charset(name)").
func (mc *Connection) SetCharset(name string) error {
	info, ok := charsetByNameLookup(name)
	if !ok {
		return fmt.Errorf("mysql: unknown charset %q", name)
	}
	if _, err := mc.Exec("SET NAMES " + name); err != nil {
		return err
	}
	mc.charsetID = info.id
	mc.charsetName = info.name
	return nil
}

// Kill sends COM_PROCESS_KILL for the given thread id (§4.7 "kill(thread_id)").
func (mc *Connection) Kill(threadID uint32) error {
	if err := mc.requireState(stateIdle); err != nil {
		return err
	}
	arg := []byte{byte(threadID), byte(threadID >> 8), byte(threadID >> 16), byte(threadID >> 24)}
	mc.state = stateCommandSent
	if err := mc.writeCommandPacket(comProcessKill, arg); err != nil {
		return err
	}
	return mc.readResultOK()
}

// Begin starts a transaction (§4.7 "begin()").
func (mc *Connection) Begin() error {
	_, err := mc.Exec("START TRANSACTION")
	return err
}

// Commit commits the current transaction (§4.7 "commit()").
func (mc *Connection) Commit() error {
	_, err := mc.Exec("COMMIT")
	return err
}

// Rollback rolls back the current transaction (§4.7 "rollback()").
func (mc *Connection) Rollback() error {
	_, err := mc.Exec("ROLLBACK")
	return err
}

// Close sends COM_QUIT if the connection is IDLE, otherwise it just shuts
// the socket; idempotent (§4.7 "close()", §5 "scoped acquisition").
func (mc *Connection) Close() error {
	if mc.state == stateClosed {
		return nil
	}
	if mc.state == stateIdle {
		mc.resetSequence()
		_ = mc.writeCommandPacket(comQuit, nil)
	}
	mc.cleanup()
	return nil
}

// Warnings returns the Warning records captured automatically by the most
// recent statement that reported warning_count > 0 (§4.10, §8 scenario 5):
// Exec and Cursor.Execute/ExecuteMany call ShowWarnings themselves whenever
// the prior statement's warning_count is nonzero, mirroring trio_mysql's
// Connection.execute firing SHOW WARNINGS with no separate call from the
// caller. ShowWarnings remains public for a caller that wants to refresh
// the set on demand (e.g. after draining an unbuffered cursor, where the
// count isn't known until the stream is exhausted).
func (mc *Connection) Warnings() []Warning {
	return mc.results
}

// captureWarnings runs ShowWarnings when the last statement reported
// warning_count > 0, and is a no-op otherwise. Called by Exec and
// Cursor.runRendered right after a statement completes and the connection
// is back to IDLE (§4.10, §8 scenario 5).
func (mc *Connection) captureWarnings() error {
	if mc.warningCount == 0 {
		return nil
	}
	_, err := mc.ShowWarnings()
	return err
}

// ShowWarnings runs `SHOW WARNINGS` and populates Warnings() with the
// server's own rendering of the last statement's warnings.
func (mc *Connection) ShowWarnings() ([]Warning, error) {
	rows, err := mc.queryRows("SHOW WARNINGS")
	if err != nil {
		return nil, err
	}
	warnings := make([]Warning, 0, len(rows))
	for _, row := range rows {
		if len(row) != 3 {
			continue
		}
		level, _ := row[0].(string)
		var code uint16
		switch c := row[1].(type) {
		case int64:
			code = uint16(c)
		case uint64:
			code = uint16(c)
		}
		message, _ := row[2].(string)
		warnings = append(warnings, Warning{Level: level, Code: code, Message: message})
	}
	mc.results = warnings
	return warnings, nil
}

// queryRows is a small convenience used by ShowWarnings: execute sqlText,
// buffer every row, and return it as [][]interface{} without needing a
// full Cursor.
func (mc *Connection) queryRows(sqlText string) ([][]interface{}, error) {
	cols, err := mc.query([]byte(sqlText))
	if err != nil {
		return nil, err
	}
	if cols == nil {
		return nil, nil
	}
	rows, err := mc.readAllRows(cols)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
