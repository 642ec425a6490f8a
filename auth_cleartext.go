// Copyright 2023 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

// ClearPasswordPlugin implements mysql_clear_password (§4.5): the password
// bytes plus a trailing 0x00, with nothing protecting it in transit.
// Refused unless the caller opts in via AllowCleartextPasswords — the
// source leaves whether to require TLS/unix-socket to the caller (§9 Open
// Question), so this driver only gates on the explicit flag rather than
// inspecting the transport.
type ClearPasswordPlugin struct{ SimpleAuth }

func init() {
	RegisterAuthPlugin(&ClearPasswordPlugin{})
}

func (p *ClearPasswordPlugin) PluginName() string {
	return "mysql_clear_password"
}

func (p *ClearPasswordPlugin) InitAuth(authData []byte, cfg *Config) ([]byte, error) {
	if !cfg.AllowCleartextPasswords {
		return nil, ErrCleartextPassword
	}
	return append([]byte(cfg.Passwd), 0), nil
}
