// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Param is the tagged variant the escaper (C3) dispatches on (§9 "Dynamic
// parameter typing"). nil is the NULL parameter; everything else is some
// Go value the renderer knows how to format.
type Param = interface{}

// renderParam appends the SQL literal form of v to buf, under the session
// charset charsetName. Kinds not named in §4.3 (arbitrary structs) are
// rejected rather than silently stringified.
func renderParam(buf *bytes.Buffer, v Param, charsetName string) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("NULL")

	case bool:
		if val {
			buf.WriteByte('1')
		} else {
			buf.WriteByte('0')
		}

	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int8:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int16:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int32:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))

	case uint:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint8:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint16:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint32:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(val, 10))

	case float32:
		if err := writeFloat(buf, float64(val), 32); err != nil {
			return err
		}
	case float64:
		if err := writeFloat(buf, val, 64); err != nil {
			return err
		}

	case Decimal:
		buf.WriteString(val.String())

	case []byte:
		if val == nil {
			buf.WriteString("NULL")
			return nil
		}
		return writeEscapedBytes(buf, val, charsetName)

	case string:
		return writeEscapedBytes(buf, []byte(val), charsetName)

	case time.Time:
		buf.WriteByte('\'')
		buf.WriteString(formatDateTime(val))
		buf.WriteByte('\'')

	case time.Duration:
		buf.WriteByte('\'')
		buf.WriteString(formatDuration(val))
		buf.WriteByte('\'')

	default:
		return renderSequence(buf, v, charsetName)
	}
	return nil
}

// renderSequence handles the IN %s case: a slice/array parameter renders as
// a parenthesized, comma-joined list of recursively escaped elements
// (§4.3, §8 scenario 3). Sets are accepted as slices; callers normalize.
func renderSequence(buf *bytes.Buffer, v Param, charsetName string) error {
	items, ok := asSlice(v)
	if !ok {
		return fmt.Errorf("mysql: cannot render parameter of type %T", v)
	}
	buf.WriteByte('(')
	for i, item := range items {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := renderParam(buf, item, charsetName); err != nil {
			return err
		}
	}
	buf.WriteByte(')')
	return nil
}

// asSlice normalizes the handful of sequence shapes callers pass for an
// `IN %s` parameter: []Param, []int64, []string, []int.
func asSlice(v Param) ([]Param, bool) {
	switch s := v.(type) {
	case []Param:
		return s, true
	case []int64:
		out := make([]Param, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out, true
	case []int:
		out := make([]Param, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out, true
	case []string:
		out := make([]Param, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out, true
	default:
		return nil, false
	}
}

// writeFloat renders the shortest round-trippable decimal form; NaN/Inf
// have no SQL literal and render as NULL (§4.3, implementer's documented
// choice).
func writeFloat(buf *bytes.Buffer, f float64, bitSize int) error {
	if f != f || f > maxFloat64OrInf || f < -maxFloat64OrInf {
		buf.WriteString("NULL")
		return nil
	}
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, bitSize))
	return nil
}

// maxFloat64OrInf bounds the "is this Inf" check without importing math
// for a single comparison.
const maxFloat64OrInf = 1.7976931348623157e+308

// writeEscapedBytes quotes and escapes raw bytes as a string literal,
// encoding them under the session charset first unless that charset is
// binary (§4.3).
func writeEscapedBytes(buf *bytes.Buffer, raw []byte, charsetName string) error {
	if charsetName != "binary" && charsetName != "" {
		encoded, err := encodeText(charsetName, string(raw))
		if err == nil {
			raw = encoded
		}
	}
	buf.WriteByte('\'')
	for _, c := range raw {
		switch c {
		case 0:
			buf.WriteString(`\0`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\\':
			buf.WriteString(`\\`)
		case '\'':
			buf.WriteString(`\'`)
		case '"':
			buf.WriteString(`\"`)
		case 0x1a:
			buf.WriteString(`\Z`)
		default:
			buf.WriteByte(c)
		}
	}
	buf.WriteByte('\'')
	return nil
}

// formatDateTime renders a time.Time as MySQL's "YYYY-MM-DD HH:MM:SS[.ffffff]"
// textual form, preserving fractional seconds when present (§4.3).
func formatDateTime(t time.Time) string {
	if t.Nanosecond() == 0 {
		return t.Format("2006-01-02 15:04:05")
	}
	return t.Format("2006-01-02 15:04:05.000000")
}

// formatDuration renders a time.Duration as MySQL's signed "[-]HHH:MM:SS[.ffffff]"
// TIME literal form.
func formatDuration(d time.Duration) string {
	neg := d < 0
	if neg {
		d = -d
	}
	hours := int64(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes := int64(d / time.Minute)
	d -= time.Duration(minutes) * time.Minute
	seconds := int64(d / time.Second)
	d -= time.Duration(seconds) * time.Second

	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	fmt.Fprintf(&sb, "%02d:%02d:%02d", hours, minutes, seconds)
	if d > 0 {
		fmt.Fprintf(&sb, ".%06d", d/time.Microsecond)
	}
	return sb.String()
}

// format substitutes positional `%s` placeholders in sql with the rendered
// form of params, skipping placeholder-looking text inside quoted literals,
// backtick identifiers, and comments (§4.3). `%%` escapes to a literal `%`.
// A named `%(name)s` placeholder is an error here; formatNamed handles those.
func format(sqlText string, params []Param, charsetName string) ([]byte, error) {
	var out bytes.Buffer
	argIdx := 0
	i := 0
	n := len(sqlText)
	for i < n {
		c := sqlText[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			j := skipQuoted(sqlText, i)
			out.WriteString(sqlText[i:j])
			i = j

		case c == '-' && i+1 < n && sqlText[i+1] == '-':
			j := skipLineComment(sqlText, i)
			out.WriteString(sqlText[i:j])
			i = j

		case c == '#':
			j := skipLineComment(sqlText, i)
			out.WriteString(sqlText[i:j])
			i = j

		case c == '/' && i+1 < n && sqlText[i+1] == '*':
			j := skipBlockComment(sqlText, i)
			out.WriteString(sqlText[i:j])
			i = j

		case c == '%':
			consumed, name, isPercent, err := parsePlaceholder(sqlText, i)
			if err != nil {
				return nil, err
			}
			switch {
			case isPercent:
				out.WriteByte('%')
			case name != "":
				return nil, fmt.Errorf("mysql: named placeholders are not supported by this form of format()")
			default:
				if argIdx >= len(params) {
					return nil, fmt.Errorf("mysql: not enough parameters for query")
				}
				if err := renderParam(&out, params[argIdx], charsetName); err != nil {
					return nil, err
				}
				argIdx++
			}
			i += consumed

		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.Bytes(), nil
}

// formatNamed is format's named-placeholder counterpart: `%(name)s`.
func formatNamed(sqlText string, params map[string]Param, charsetName string) ([]byte, error) {
	var out bytes.Buffer
	i := 0
	n := len(sqlText)
	for i < n {
		c := sqlText[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			j := skipQuoted(sqlText, i)
			out.WriteString(sqlText[i:j])
			i = j

		case c == '-' && i+1 < n && sqlText[i+1] == '-':
			j := skipLineComment(sqlText, i)
			out.WriteString(sqlText[i:j])
			i = j

		case c == '#':
			j := skipLineComment(sqlText, i)
			out.WriteString(sqlText[i:j])
			i = j

		case c == '/' && i+1 < n && sqlText[i+1] == '*':
			j := skipBlockComment(sqlText, i)
			out.WriteString(sqlText[i:j])
			i = j

		case c == '%':
			consumed, name, isPercent, err := parsePlaceholder(sqlText, i)
			if err != nil {
				return nil, err
			}
			switch {
			case isPercent:
				out.WriteByte('%')
			case name != "":
				v, ok := params[name]
				if !ok {
					return nil, fmt.Errorf("mysql: missing named parameter %q", name)
				}
				if err := renderParam(&out, v, charsetName); err != nil {
					return nil, err
				}
			default:
				return nil, fmt.Errorf("mysql: positional placeholders are not supported by this form of format()")
			}
			i += consumed

		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.Bytes(), nil
}

// parsePlaceholder recognizes `%s`, `%(name)s`, and `%%` starting at i.
// Returns the number of bytes consumed from i, the captured name (empty for
// positional), and whether it was a literal `%%` escape.
func parsePlaceholder(s string, i int) (consumed int, name string, isPercent bool, err error) {
	if i+1 >= len(s) {
		return 0, "", false, fmt.Errorf("mysql: dangling %% at end of query")
	}
	switch s[i+1] {
	case '%':
		return 2, "", true, nil
	case 's':
		return 2, "", false, nil
	case '(':
		end := strings.IndexByte(s[i+2:], ')')
		if end < 0 {
			return 0, "", false, fmt.Errorf("mysql: unterminated %%( placeholder")
		}
		nameEnd := i + 2 + end
		if nameEnd+1 >= len(s) || s[nameEnd+1] != 's' {
			return 0, "", false, fmt.Errorf("mysql: %%(name) placeholder must end in s")
		}
		return (nameEnd + 2) - i, s[i+2 : nameEnd], false, nil
	default:
		return 0, "", false, fmt.Errorf("mysql: unsupported placeholder %%%c", s[i+1])
	}
}

func skipQuoted(s string, i int) int {
	quote := s[i]
	j := i + 1
	for j < len(s) {
		if s[j] == '\\' && j+1 < len(s) {
			j += 2
			continue
		}
		if s[j] == quote {
			j++
			return j
		}
		j++
	}
	return j
}

func skipLineComment(s string, i int) int {
	j := strings.IndexByte(s[i:], '\n')
	if j < 0 {
		return len(s)
	}
	return i + j + 1
}

func skipBlockComment(s string, i int) int {
	end := strings.Index(s[i+2:], "*/")
	if end < 0 {
		return len(s)
	}
	return i + 2 + end + 2
}

// insertTemplate is the outcome of splitBulkInsert: the statement's
// prefix up to (not including) the "(" after VALUES, the parenthesized value template
// with its placeholders, and everything after the closing paren (an
// ON DUPLICATE KEY UPDATE clause, or empty).
type insertTemplate struct {
	prefix   string
	template string
	suffix   string
}

// splitBulkInsert recognizes `INSERT ... VALUES (...)[ ON DUPLICATE KEY
// UPDATE ...]` so executemany can splice N rendered row tuples into one
// statement instead of issuing N statements (§4.3). Returns ok=false for
// any other statement shape, in which case the caller falls back to
// executing per row.
func splitBulkInsert(sqlText string) (insertTemplate, bool) {
	upper := strings.ToUpper(sqlText)
	valuesIdx := indexKeyword(upper, "VALUES")
	if valuesIdx < 0 {
		return insertTemplate{}, false
	}
	if indexKeyword(upper, "INSERT") != 0 && indexKeyword(upper, "REPLACE") != 0 {
		return insertTemplate{}, false
	}

	openParen := strings.IndexByte(sqlText[valuesIdx:], '(')
	if openParen < 0 {
		return insertTemplate{}, false
	}
	openParen += valuesIdx

	closeParen := matchParen(sqlText, openParen)
	if closeParen < 0 {
		return insertTemplate{}, false
	}

	return insertTemplate{
		prefix:   sqlText[:openParen],
		template: sqlText[openParen : closeParen+1],
		suffix:   sqlText[closeParen+1:],
	}, true
}

// indexKeyword finds a whole-word, case-insensitive keyword, or -1.
func indexKeyword(upper, keyword string) int {
	idx := strings.Index(upper, keyword)
	if idx < 0 {
		return -1
	}
	before := idx == 0 || !isIdentByte(upper[idx-1])
	after := idx+len(keyword) >= len(upper) || !isIdentByte(upper[idx+len(keyword)])
	if before && after {
		return idx
	}
	return -1
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// matchParen returns the index of the paren matching the one at open,
// respecting nested parens and quoted strings.
func matchParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '\'', '"', '`':
			i = skipQuoted(s, i) - 1
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// spliceBulkInsert renders each row through tmpl.template and joins them
// with commas, batching so that no single emitted statement exceeds
// maxPacket bytes (§4.3, §8 "Bulk insert splicing"). Each batch's byte form
// is exactly prefix + joined rows + suffix.
func spliceBulkInsert(tmpl insertTemplate, rows [][]Param, charsetName string, maxPacket int) ([][]byte, error) {
	var batches [][]byte
	var cur bytes.Buffer
	cur.WriteString(tmpl.prefix)
	rowsInBatch := 0

	flush := func() {
		cur.WriteString(tmpl.suffix)
		batches = append(batches, append([]byte(nil), cur.Bytes()...))
		cur.Reset()
		cur.WriteString(tmpl.prefix)
		rowsInBatch = 0
	}

	for _, row := range rows {
		rendered, err := format(tmpl.template, row, charsetName)
		if err != nil {
			return nil, err
		}

		extra := len(rendered)
		if rowsInBatch > 0 {
			extra++ // comma separator, if not first in batch
		}
		if rowsInBatch > 0 && cur.Len()+extra+len(tmpl.suffix) > maxPacket {
			flush()
		}

		if rowsInBatch > 0 {
			cur.WriteByte(',')
		}
		cur.Write(rendered)
		rowsInBatch++
	}

	if rowsInBatch > 0 {
		flush()
	}
	return batches, nil
}
