// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// charsetInfo is one row of the charset registry (C1): the (name, default
// collation, whether it is that charset's default collation, max bytes per
// character) the handshake and the field codec need.
type charsetInfo struct {
	id         uint8
	name       string
	collation  string
	isDefault  bool
	maxBytes   int
}

// charsetByID and charsetByName mirror MySQL's information_schema.collations
// closely enough to pick a handshake collation id and to recognize the
// binary/utf8mb4 charsets the field codec treats specially. This is not the
// full ~250 row server table; it covers the charsets this client can also
// text-encode via golang.org/x/text (see charsetEncoding below), plus the
// common defaults.
var charsetList = []charsetInfo{
	{1, "big5", "big5_chinese_ci", true, 2},
	{3, "dec8", "dec8_swedish_ci", true, 1},
	{4, "cp850", "cp850_general_ci", true, 1},
	{6, "hp8", "hp8_english_ci", true, 1},
	{7, "koi8r", "koi8r_general_ci", true, 1},
	{8, "latin1", "latin1_swedish_ci", true, 1},
	{9, "latin2", "latin2_general_ci", true, 1},
	{10, "swe7", "swe7_swedish_ci", true, 1},
	{11, "ascii", "ascii_general_ci", true, 1},
	{12, "ujis", "ujis_japanese_ci", true, 3},
	{13, "sjis", "sjis_japanese_ci", true, 2},
	{16, "hebrew", "hebrew_general_ci", true, 1},
	{18, "tis620", "tis620_thai_ci", true, 1},
	{19, "euckr", "euckr_korean_ci", true, 2},
	{22, "koi8u", "koi8u_general_ci", true, 1},
	{24, "gb2312", "gb2312_chinese_ci", true, 2},
	{25, "greek", "greek_general_ci", true, 1},
	{26, "cp1250", "cp1250_general_ci", true, 1},
	{28, "gbk", "gbk_chinese_ci", true, 2},
	{30, "latin5", "latin5_turkish_ci", true, 1},
	{32, "armscii8", "armscii8_general_ci", true, 1},
	{33, "utf8", "utf8_general_ci", true, 3},
	{35, "ucs2", "ucs2_general_ci", true, 2},
	{36, "cp866", "cp866_general_ci", true, 1},
	{37, "keybcs2", "keybcs2_general_ci", true, 1},
	{38, "macce", "macce_general_ci", true, 1},
	{39, "macroman", "macroman_general_ci", true, 1},
	{40, "cp852", "cp852_general_ci", true, 1},
	{41, "latin7", "latin7_general_ci", true, 1},
	{45, "utf8mb4", "utf8mb4_general_ci", true, 4},
	{46, "utf8mb4", "utf8mb4_bin", false, 4},
	{51, "cp1251", "cp1251_general_ci", true, 1},
	{54, "utf16", "utf16_general_ci", true, 4},
	{57, "cp1256", "cp1256_general_ci", true, 1},
	{59, "cp1257", "cp1257_general_ci", true, 1},
	{60, "utf32", "utf32_general_ci", true, 4},
	{63, "binary", "binary", true, 1},
	{83, "utf8", "utf8_bin", false, 3},
	{192, "utf8", "utf8_unicode_ci", false, 3},
	{224, "utf8mb4", "utf8mb4_unicode_ci", false, 4},
	{255, "utf8mb4", "utf8mb4_0900_ai_ci", false, 4},
}

var (
	charsetByID   = make(map[uint8]charsetInfo, len(charsetList))
	charsetByName = make(map[string]charsetInfo, len(charsetList))
)

func init() {
	for _, c := range charsetList {
		charsetByID[c.id] = c
		if c.isDefault || charsetByName[c.name].name == "" {
			charsetByName[c.name] = c
		}
	}
}

// charsetByIDLookup is C1's `by_id`.
func charsetByIDLookup(id uint8) (charsetInfo, bool) {
	c, ok := charsetByID[id]
	return c, ok
}

// charsetByNameLookup is C1's `by_name`.
func charsetByNameLookup(name string) (charsetInfo, bool) {
	c, ok := charsetByName[name]
	return c, ok
}

// collationForCharset is C1's `collation_for`: the default collation id to
// request in the handshake for a named charset.
func collationForCharset(name string) (uint8, bool) {
	c, ok := charsetByNameLookup(name)
	return c.id, ok
}

// charsetEncoding maps a charset name to a golang.org/x/text encoder used to
// decode textual column bytes (C2) and to encode string/[]byte parameters
// under the session charset (C3). A charset absent from this map, or mapped
// to nil, is treated as already UTF-8-compatible (utf8/utf8mb4/ascii) or as
// opaque bytes (binary) and is passed through unchanged.
//
// Grounded on DaKeiser-vitess's go/mysql/constants.go CharacterSetEncoding.
var charsetEncoding = map[string]encoding.Encoding{
	"cp850":   charmap.CodePage850,
	"koi8r":   charmap.KOI8R,
	"koi8u":   charmap.KOI8U,
	"latin1":  charmap.Windows1252,
	"latin2":  charmap.ISO8859_2,
	"latin5":  charmap.ISO8859_9,
	"latin7":  charmap.ISO8859_13,
	"ascii":   nil,
	"hebrew":  charmap.ISO8859_8,
	"greek":   charmap.ISO8859_7,
	"cp1250":  charmap.Windows1250,
	"cp1251":  charmap.Windows1251,
	"cp1256":  charmap.Windows1256,
	"cp1257":  charmap.Windows1257,
	"cp866":   charmap.CodePage866,
	"cp852":   charmap.CodePage852,
	"gbk":     simplifiedchinese.GBK,
	"gb2312":  simplifiedchinese.HZGB2312,
	"utf8":    nil,
	"utf8mb4": nil,
	"binary":  nil,
}

// decodeText converts raw column bytes to a Go string under the given
// charset id, per §4.2: BLOB/TEXT columns whose charset is not binary (63)
// are decoded as text.
func decodeText(id uint8, raw []byte) (string, error) {
	info, ok := charsetByIDLookup(id)
	if !ok || info.name == "binary" {
		return string(raw), nil
	}
	enc, known := charsetEncoding[info.name]
	if !known || enc == nil {
		return string(raw), nil
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// encodeText converts a Go string to raw bytes under the given charset name,
// for the escaper (C3) when the session charset is not binary.
func encodeText(name string, s string) ([]byte, error) {
	enc, known := charsetEncoding[name]
	if !known || enc == nil {
		return []byte(s), nil
	}
	return enc.NewEncoder().Bytes([]byte(s))
}
