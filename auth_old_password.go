// Copyright 2023 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

// OldPasswordPlugin implements the legacy mysql_old_password method
// (§4.5): supported only when the caller explicitly opts in, since its
// scramble is a weak 8-byte hash.
type OldPasswordPlugin struct{ SimpleAuth }

func init() {
	RegisterAuthPlugin(&OldPasswordPlugin{})
}

func (p *OldPasswordPlugin) PluginName() string {
	return "mysql_old_password"
}

func (p *OldPasswordPlugin) InitAuth(authData []byte, cfg *Config) ([]byte, error) {
	if !cfg.AllowOldPasswords {
		return nil, ErrOldPassword
	}
	if cfg.Passwd == "" {
		return nil, nil
	}
	return append(scrambleOldPassword(authData[:8], cfg.Passwd), 0), nil
}

// scrambleOldPassword hashes a password using the insecure pre-4.1 method.
func scrambleOldPassword(scramble []byte, password string) []byte {
	scramble = scramble[:8]

	hashPw := pwHash([]byte(password))
	hashSc := pwHash(scramble)

	r := newMyRnd(hashPw[0]^hashSc[0], hashPw[1]^hashSc[1])

	var out [8]byte
	for i := range out {
		out[i] = r.NextByte() + 64
	}

	mask := r.NextByte()
	for i := range out {
		out[i] ^= mask
	}

	return out[:]
}
