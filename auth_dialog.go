// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2024 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"fmt"
	"strings"
)

const dialogPluginName = "dialog"

// dialogAuthPlugin implements the MariaDB PAM authentication plugin (§4.5),
// which may prompt for more than one password in sequence.
type dialogAuthPlugin struct{ SimpleAuth }

func init() {
	RegisterAuthPlugin(&dialogAuthPlugin{})
}

func (p *dialogAuthPlugin) PluginName() string {
	return dialogPluginName
}

func (p *dialogAuthPlugin) InitAuth(authData []byte, cfg *Config) ([]byte, error) {
	if !cfg.AllowDialogPasswords {
		return nil, ErrDialogAuth
	}
	return append([]byte(cfg.Passwd), 0), nil
}

// ProcessAuthResponse answers each server prompt with the next password in
// Passwd, OtherPasswd (comma-separated) order, then an empty response for
// any prompt beyond that, until the server sends a terminal OK/ERR/EOF.
func (p *dialogAuthPlugin) ProcessAuthResponse(packet []byte, authData []byte, conn *Connection) ([]byte, error) {
	if len(packet) == 0 {
		return nil, fmt.Errorf("%w: empty auth response packet", ErrMalformPkt)
	}

	switch packet[0] {
	case iOK, iERR, iEOF:
		return packet, nil
	default:
		// Passwd was already sent as the response to the first prompt via
		// InitAuth; further prompts draw from OtherPasswd in order.
		var passwords []string
		if conn.cfg.OtherPasswd != "" {
			passwords = strings.Split(conn.cfg.OtherPasswd, ",")
		}

		for i := 0; ; i++ {
			var authResp []byte
			if i < len(passwords) {
				authResp = append([]byte(passwords[i]), 0)
			} else {
				authResp = []byte{0}
			}

			if err := conn.writeAuthSwitchPacket(authResp); err != nil {
				return nil, fmt.Errorf("mysql: writing dialog response: %w", err)
			}

			response, err := conn.readPacket()
			if err != nil {
				return nil, fmt.Errorf("mysql: reading dialog prompt: %w", err)
			}
			if len(response) == 0 {
				return nil, fmt.Errorf("%w: empty auth response packet", ErrMalformPkt)
			}

			switch response[0] {
			case iOK, iERR, iEOF:
				return response, nil
			default:
				continue
			}
		}
	}
}
