// Copyright 2017 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ColumnDefinition describes one column of a result set (§3, §4.2). The
// catalog/schema/org-table/org-name fields are kept only for completeness;
// Name (the alias, if any) is what callers see as the column's public name.
type ColumnDefinition struct {
	Catalog  string
	Schema   string
	Table    string
	OrgTable string
	Name     string
	OrgName  string
	Charset  uint16
	Length   uint32
	Type     fieldType
	Flags    fieldFlag
	Decimals byte
}

// parseColumnDefinition41 parses one Protocol::ColumnDefinition41 packet
// (C8, read after a result-set header announces N columns).
func parseColumnDefinition41(data []byte) (*ColumnDefinition, error) {
	var col ColumnDefinition
	var err error
	var n int

	str, _, n, err := readLengthEncodedString(data)
	if err != nil {
		return nil, err
	}
	col.Catalog = string(str)
	data = data[n:]

	str, _, n, err = readLengthEncodedString(data)
	if err != nil {
		return nil, err
	}
	col.Schema = string(str)
	data = data[n:]

	str, _, n, err = readLengthEncodedString(data)
	if err != nil {
		return nil, err
	}
	col.Table = string(str)
	data = data[n:]

	str, _, n, err = readLengthEncodedString(data)
	if err != nil {
		return nil, err
	}
	col.OrgTable = string(str)
	data = data[n:]

	str, _, n, err = readLengthEncodedString(data)
	if err != nil {
		return nil, err
	}
	col.Name = string(str)
	data = data[n:]

	str, _, n, err = readLengthEncodedString(data)
	if err != nil {
		return nil, err
	}
	col.OrgName = string(str)
	data = data[n:]

	// length-encoded integer fixed at 0x0c, then the 10 fixed-length bytes.
	_, _, n, err = readLengthEncodedInteger(data)
	if err != nil {
		return nil, err
	}
	data = data[n:]
	if len(data) < 10 {
		return nil, ErrMalformPkt
	}
	col.Charset = uint16(data[0]) | uint16(data[1])<<8
	col.Length = uint32(data[2]) | uint32(data[3])<<8 | uint32(data[4])<<16 | uint32(data[5])<<24
	col.Type = fieldType(data[6])
	col.Flags = fieldFlag(uint16(data[7]) | uint16(data[8])<<8)
	col.Decimals = data[9]

	return &col, nil
}

// decodeValue converts one row field's textual bytes into a typed Go value
// per the (type-code, flags, charset) codec (C2, §4.2). Callers have already
// stripped the 0xFB NULL sentinel before calling this.
func decodeValue(col *ColumnDefinition, raw []byte) (interface{}, error) {
	switch col.Type {
	case fieldTypeTiny, fieldTypeShort, fieldTypeInt24, fieldTypeLong, fieldTypeLongLong, fieldTypeYear:
		if col.Flags&flagUnsigned != 0 {
			v, err := strconv.ParseUint(string(raw), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("mysql: decoding unsigned column %q: %w", col.Name, err)
			}
			return v, nil
		}
		v, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("mysql: decoding integer column %q: %w", col.Name, err)
		}
		return v, nil

	case fieldTypeFloat:
		v, err := strconv.ParseFloat(string(raw), 32)
		if err != nil {
			return nil, fmt.Errorf("mysql: decoding float column %q: %w", col.Name, err)
		}
		return float32(v), nil

	case fieldTypeDouble:
		v, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("mysql: decoding double column %q: %w", col.Name, err)
		}
		return v, nil

	case fieldTypeDecimal, fieldTypeNewDecimal:
		return NewDecimalFromString(string(raw))

	case fieldTypeDate, fieldTypeNewDate:
		return parseDate(string(raw))

	case fieldTypeDateTime, fieldTypeTimestamp:
		return parseDateTime(string(raw))

	case fieldTypeTime:
		return parseDuration(string(raw))

	case fieldTypeBit:
		return append([]byte(nil), raw...), nil

	case fieldTypeJSON, fieldTypeEnum, fieldTypeSet:
		return decodeText(uint8(col.Charset), raw)

	case fieldTypeVarChar, fieldTypeVarString, fieldTypeString,
		fieldTypeTinyBLOB, fieldTypeMediumBLOB, fieldTypeLongBLOB, fieldTypeBLOB, fieldTypeGeometry:
		// binary charset id 63, or the explicit BINARY flag, means opaque bytes.
		if col.Charset == binaryCharsetID || col.Flags&flagBinary != 0 {
			return append([]byte(nil), raw...), nil
		}
		return decodeText(uint8(col.Charset), raw)

	default:
		return decodeText(uint8(col.Charset), raw)
	}
}

// parseDate decodes a DATE column. A zero date ("0000-00-00") has no
// calendar representation and decodes to an in-band null (§4.2).
func parseDate(s string) (interface{}, error) {
	if s == "" || s == "0000-00-00" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("mysql: invalid date %q: %w", s, err)
	}
	return t, nil
}

// parseDateTime decodes a DATETIME/TIMESTAMP column, preserving up to 6
// fractional-second digits. A zero date decodes to an in-band null.
func parseDateTime(s string) (interface{}, error) {
	if s == "" || strings.HasPrefix(s, "0000-00-00") {
		return nil, nil
	}
	layout := "2006-01-02 15:04:05"
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		layout += "." + strings.Repeat("0", len(s)-idx-1)
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return nil, fmt.Errorf("mysql: invalid datetime %q: %w", s, err)
	}
	return t, nil
}

// parseDuration decodes a TIME column into a signed duration, up to
// 838:59:59 per the server's bound. A leading "-" negates the whole
// quantity (§4.2, §8 scenario 6).
func parseDuration(s string) (interface{}, error) {
	if s == "" {
		return nil, nil
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("mysql: invalid time value %q", s)
	}
	hours, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("mysql: invalid time value %q: %w", s, err)
	}
	minutes, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("mysql: invalid time value %q: %w", s, err)
	}
	secStr := parts[2]
	var seconds int64
	var nanos int64
	if idx := strings.IndexByte(secStr, '.'); idx >= 0 {
		seconds, err = strconv.ParseInt(secStr[:idx], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("mysql: invalid time value %q: %w", s, err)
		}
		frac := secStr[idx+1:]
		for len(frac) < 9 {
			frac += "0"
		}
		nanos, err = strconv.ParseInt(frac[:9], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("mysql: invalid time value %q: %w", s, err)
		}
	} else {
		seconds, err = strconv.ParseInt(secStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("mysql: invalid time value %q: %w", s, err)
		}
	}

	d := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second + time.Duration(nanos)*time.Nanosecond
	if neg {
		d = -d
	}
	return d, nil
}
