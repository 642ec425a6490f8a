// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

// Package mysql implements the MySQL wire protocol: packet framing,
// handshake and pluggable authentication, a COM_QUERY executor, and a
// Cursor that decodes result-set rows into typed Go values.
//
// Unlike github.com/go-sql-driver/mysql, this package does not register a
// database/sql driver and owns no connection pool — Connect returns a
// single authenticated Connection, and the caller is responsible for
// pooling, retrying, and concurrency control around it (§1, §5).
//
//	cfg := mysql.NewConfig()
//	cfg.Addr = "127.0.0.1:3306"
//	cfg.User = "root"
//	cfg.DBName = "test"
//
//	conn, err := mysql.Connect(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer conn.Close()
//
//	cur := mysql.NewCursor(conn, true)
//	defer cur.Close()
//	if err := cur.Execute("select id, name from users where id = %s", 42); err != nil {
//		log.Fatal(err)
//	}
//	row, err := cur.FetchOne()
package mysql
