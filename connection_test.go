// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"errors"
	"testing"
)

func TestRequireStateClosed(t *testing.T) {
	mc := &Connection{state: stateClosed}
	err := mc.requireState(stateIdle)
	if err == nil {
		t.Fatal("requireState on a closed connection should error")
	}
	var ierr *InterfaceError
	if !asInterfaceError(err, &ierr) {
		t.Errorf("expected an *InterfaceError, got %T", err)
	}
}

func TestRequireStateBusy(t *testing.T) {
	mc := &Connection{state: stateIdle, busy: true}
	if err := mc.requireState(stateIdle); !errors.Is(err, ErrBusy) {
		t.Errorf("requireState on a busy connection = %v, want wrapped ErrBusy", err)
	}
}

func TestRequireStateWrongState(t *testing.T) {
	mc := &Connection{state: stateReadingRows}
	if err := mc.requireState(stateIdle); err != errNotIdle {
		t.Errorf("requireState in the wrong state = %v, want errNotIdle", err)
	}
}

func TestRequireStateOK(t *testing.T) {
	mc := &Connection{state: stateIdle}
	if err := mc.requireState(stateIdle); err != nil {
		t.Errorf("requireState in the right state = %v, want nil", err)
	}
}

func TestCleanupIsIdempotent(t *testing.T) {
	mc := &Connection{state: stateIdle}
	mc.cleanup()
	if !mc.IsClosed() {
		t.Fatal("cleanup should transition to CLOSED")
	}
	mc.cleanup() // must not panic on a nil netConn the second time around
}

func TestConnStateString(t *testing.T) {
	cases := map[connState]string{
		stateIdle:           "IDLE",
		stateCommandSent:    "COMMAND_SENT",
		stateReadingHeader:  "READING_HEADER",
		stateReadingColumns: "READING_COLUMNS",
		stateReadingRows:    "READING_ROWS",
		stateUnreadResult:   "UNREAD_RESULT",
		stateClosed:         "CLOSED",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	mc := &Connection{state: stateClosed}
	if err := mc.Close(); err != nil {
		t.Errorf("Close on an already-closed connection = %v, want nil", err)
	}
}

func TestCancelClosesAnIdleConnection(t *testing.T) {
	mc := &Connection{state: stateIdle}
	if err := mc.Cancel(); err != nil {
		t.Fatalf("Cancel on a nil netConn = %v, want nil", err)
	}
	if !mc.IsClosed() {
		t.Error("Cancel should transition the connection to CLOSED")
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	mc := &Connection{state: stateIdle}
	if err := mc.Cancel(); err != nil {
		t.Fatal(err)
	}
	if err := mc.Cancel(); err != nil {
		t.Errorf("second Cancel = %v, want nil", err)
	}
}

func TestCancelThenCloseIsIdempotent(t *testing.T) {
	mc := &Connection{state: stateIdle}
	if err := mc.Cancel(); err != nil {
		t.Fatal(err)
	}
	if err := mc.Close(); err != nil {
		t.Errorf("Close after Cancel = %v, want nil", err)
	}
}

func asInterfaceError(err error, target **InterfaceError) bool {
	ierr, ok := err.(*InterfaceError)
	if ok {
		*target = ierr
	}
	return ok
}
