// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"testing"
	"time"
)

func TestFormatPositionalPlaceholders(t *testing.T) {
	got, err := format("select * from t where a = %s and b = %s", []Param{1, "x"}, "utf8mb4")
	if err != nil {
		t.Fatal(err)
	}
	want := `select * from t where a = 1 and b = 'x'`
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatEscapesString(t *testing.T) {
	got, err := format("select %s", []Param{"hello'\" world"}, "utf8mb4")
	if err != nil {
		t.Fatal(err)
	}
	want := `select 'hello\'\" world'`
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatNull(t *testing.T) {
	got, err := format("select %s", []Param{nil}, "utf8mb4")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "select NULL" {
		t.Errorf("got %q", got)
	}
}

func TestFormatBool(t *testing.T) {
	got, err := format("select %s, %s", []Param{true, false}, "utf8mb4")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "select 1, 0" {
		t.Errorf("got %q", got)
	}
}

// TestFormatSequenceParameter covers §8 scenario 3: an `IN %s` parameter
// renders as a parenthesized, comma-joined list.
func TestFormatSequenceParameter(t *testing.T) {
	got, err := format("select l from t where i in %s order by i", []Param{[]int64{2, 6}}, "utf8mb4")
	if err != nil {
		t.Fatal(err)
	}
	want := "select l from t where i in (2,6) order by i"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatPercentEscape(t *testing.T) {
	got, err := format("select 100%% where a = %s", []Param{1}, "utf8mb4")
	if err != nil {
		t.Fatal(err)
	}
	want := "select 100% where a = 1"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// TestFormatSkipsPlaceholdersInsideLiterals: detection must skip
// placeholder-looking text inside quoted literals, identifiers, and
// comments (§4.3).
func TestFormatSkipsPlaceholdersInsideLiterals(t *testing.T) {
	got, err := format("select '%s', `%s`, %s -- %s\n", []Param{42}, "utf8mb4")
	if err != nil {
		t.Fatal(err)
	}
	want := "select '%s', `%s`, 42 -- %s\n"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatBlockComment(t *testing.T) {
	got, err := format("select /* %s */ %s", []Param{7}, "utf8mb4")
	if err != nil {
		t.Fatal(err)
	}
	want := "select /* %s */ 7"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatNamedPlaceholders(t *testing.T) {
	got, err := formatNamed("select %(name)s, %(age)s", map[string]Param{"name": "bob", "age": 21}, "utf8mb4")
	if err != nil {
		t.Fatal(err)
	}
	want := "select 'bob', 21"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatDateTime(t *testing.T) {
	tm := time.Date(2014, 5, 15, 7, 45, 57, 0, time.UTC)
	got, err := format("select %s", []Param{tm}, "utf8mb4")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "select '2014-05-15 07:45:57'" {
		t.Errorf("got %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	d := 5*24*time.Hour + 6*time.Second
	got, err := format("select %s", []Param{d}, "utf8mb4")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "select '120:00:06'" {
		t.Errorf("got %q", got)
	}
}

func TestFormatNaNRendersNull(t *testing.T) {
	nan := func() float64 { var z float64; return z / z }()
	got, err := format("select %s", []Param{nan}, "utf8mb4")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "select NULL" {
		t.Errorf("got %q", got)
	}
}

// TestFormatIdempotenceOnRenderedLiteral covers §8 "Escaper idempotence":
// substituting bytes that already went through rendering is a no-op under
// %% escaping (no second round of substitution occurs).
func TestFormatIdempotenceOnRenderedLiteral(t *testing.T) {
	once, err := format("select %s", []Param{"100%"}, "utf8mb4")
	if err != nil {
		t.Fatal(err)
	}
	twice, err := format(string(once), nil, "utf8mb4")
	if err != nil {
		t.Fatal(err)
	}
	if string(once) != string(twice) {
		t.Errorf("re-formatting an already-rendered literal changed it: %q -> %q", once, twice)
	}
}

func TestSplitBulkInsertRecognizesShape(t *testing.T) {
	tmpl, ok := splitBulkInsert("insert into bulkinsert (id, name, age, height) values (%s,%s,%s,%s)")
	if !ok {
		t.Fatal("expected bulk insert shape to be recognized")
	}
	if tmpl.template != "(%s,%s,%s,%s)" {
		t.Errorf("template = %q", tmpl.template)
	}
}

func TestSplitBulkInsertRejectsOtherShapes(t *testing.T) {
	if _, ok := splitBulkInsert("update t set a = %s"); ok {
		t.Error("expected UPDATE to be rejected")
	}
}

// TestSpliceBulkInsertEmission covers §8 scenario 4 literally.
func TestSpliceBulkInsertEmission(t *testing.T) {
	tmpl, ok := splitBulkInsert("insert into bulkinsert (id, name, age, height) values (%s,%s,%s,%s)")
	if !ok {
		t.Fatal("expected bulk insert shape")
	}
	rows := [][]Param{
		{0, "bob", 21, 123},
		{1, "jim", 56, 45},
		{2, "fred", 100, 180},
	}
	batches, err := spliceBulkInsert(tmpl, rows, "utf8mb4", defaultMaxAllowedPacket)
	if err != nil {
		t.Fatal(err)
	}
	if len(batches) != 1 {
		t.Fatalf("expected a single batch, got %d", len(batches))
	}
	want := "insert into bulkinsert (id, name, age, height) values (0,'bob',21,123),(1,'jim',56,45),(2,'fred',100,180)"
	if string(batches[0]) != want {
		t.Errorf("got %q, want %q", batches[0], want)
	}
}

func TestSpliceBulkInsertRespectsMaxAllowedPacket(t *testing.T) {
	tmpl, ok := splitBulkInsert("insert into t (a) values (%s)")
	if !ok {
		t.Fatal("expected bulk insert shape")
	}
	rows := [][]Param{{1}, {2}, {3}, {4}}
	// a budget tight enough to fit exactly one row per batch.
	budget := len(tmpl.prefix) + len(tmpl.suffix) + len("(1)")
	batches, err := spliceBulkInsert(tmpl, rows, "utf8mb4", budget)
	if err != nil {
		t.Fatal(err)
	}
	if len(batches) != len(rows) {
		t.Fatalf("expected one batch per row under a tight max_allowed_packet, got %d batches", len(batches))
	}
	reassembled := ""
	for i, b := range batches {
		want := tmpl.prefix + "(" + []string{"1", "2", "3", "4"}[i] + ")" + tmpl.suffix
		if string(b) != want {
			t.Errorf("batch %d = %q, want %q", i, b, want)
		}
		reassembled += string(b)
	}
	_ = reassembled
}
