// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import "github.com/shopspring/decimal"

// Decimal wraps an exact decimal value decoded from a DECIMAL/NEWDECIMAL
// column (§4.2). Unlike a plain string, it supports arithmetic and
// comparison without a lossy round-trip through float64.
type Decimal struct {
	decimal.Decimal
}

// NewDecimalFromString parses a column's textual DECIMAL representation.
// MySQL never sends DECIMAL values any other way, so this is the only
// constructor the field codec needs.
func NewDecimalFromString(s string) (Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, err
	}
	return Decimal{d}, nil
}

// String renders the value the way it would appear as a SQL literal,
// used by the escaper (C3) when a Decimal is bound as a parameter.
func (d Decimal) String() string {
	return d.Decimal.String()
}
