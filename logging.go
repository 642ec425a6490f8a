// Copyright 2016 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"log"
	"os"
)

// Logger is satisfied by *log.Logger; callers embedding this driver in a
// service with its own logging framework can redirect driver diagnostics
// by calling SetLogger with an adapter, without this package depending on
// any particular logging library.
type Logger interface {
	Print(v ...interface{})
}

type logFunc func(v ...interface{})

var logger Logger = log.New(os.Stderr, "[mysql] ", log.Ldate|log.Ltime|log.Lshortfile)

// SetLogger overrides the destination for non-fatal driver diagnostics
// (LOCAL INFILE read errors). A nil l is ignored.
// It does not affect returned errors, only what gets logged alongside them.
func SetLogger(l Logger) {
	if l == nil {
		return
	}
	logger = l
}

func logPrint(v ...interface{}) {
	logger.Print(v...)
}
