// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2023 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"crypto/sha256"
	"fmt"
)

// CachingSha2PasswordPlugin implements caching_sha2_password (§4.5): a
// SHA256-based scramble with server-side caching of verifiers, falling back
// to a full-auth round trip (cleartext over TLS/unix-socket, or RSA-OAEP
// otherwise) on a cache miss.
type CachingSha2PasswordPlugin struct{ SimpleAuth }

func init() {
	RegisterAuthPlugin(&CachingSha2PasswordPlugin{})
}

func (p *CachingSha2PasswordPlugin) PluginName() string {
	return "caching_sha2_password"
}

// InitAuth scrambles the password using a three-step SHA256 hash:
// 1. SHA256(password)
// 2. SHA256(SHA256(password))
// 3. XOR(SHA256(password), SHA256(SHA256(SHA256(password)), scramble))
func (p *CachingSha2PasswordPlugin) InitAuth(authData []byte, cfg *Config) ([]byte, error) {
	return scrambleSHA256Password(authData, cfg.Passwd), nil
}

// ProcessAuthResponse handles the fast-auth-success (0x03) and full-auth
// (0x04) continuations. Full auth sends the password cleartext when the
// channel is already secure (TLS or a unix socket), and otherwise requests
// the server's public key (unless one was preconfigured) and sends an
// RSA-OAEP-encrypted password.
func (p *CachingSha2PasswordPlugin) ProcessAuthResponse(packet []byte, authData []byte, mc *Connection) ([]byte, error) {
	if len(packet) == 0 {
		return nil, fmt.Errorf("%w: empty auth response packet", ErrMalformPkt)
	}

	switch packet[0] {
	case iOK, iERR, iEOF:
		return packet, nil
	case iAuthMoreData:
		switch len(packet) {
		case 1:
			return mc.readPacket() // auth successful, server already sent the trailing OK

		case 2:
			switch packet[1] {
			case 3:
				// password verifier was found in the server's cache
				return mc.readPacket()

			case 4:
				// full authentication needed
				if mc.cfg.TLSConfig != nil || mc.cfg.UnixSocket != "" {
					if err := mc.writeAuthSwitchPacket(append([]byte(mc.cfg.Passwd), 0)); err != nil {
						return nil, fmt.Errorf("mysql: sending cleartext password: %w", err)
					}
				} else {
					pubKey, err := mc.cfg.resolvePublicKey()
					if err != nil {
						return nil, err
					}
					if pubKey == nil {
						reqPacket, err := mc.buf.takeSmallBuffer(4 + 1)
						if err != nil {
							return nil, fmt.Errorf("mysql: allocating public key request: %w", err)
						}
						reqPacket[4] = 2
						if err = mc.writePacket(reqPacket[4:]); err != nil {
							return nil, fmt.Errorf("mysql: requesting public key: %w", err)
						}

						respPacket, err := mc.readPacket()
						if err != nil {
							return nil, fmt.Errorf("mysql: reading public key: %w", err)
						}
						if respPacket[0] != iAuthMoreData {
							return nil, fmt.Errorf("%w: unexpected packet type %d when requesting public key", ErrMalformPkt, respPacket[0])
						}

						pubKey, err = decodePEMPublicKey(respPacket[1:])
						if err != nil {
							return nil, err
						}
					}

					enc, err := encryptPassword(mc.cfg.Passwd, authData, pubKey)
					if err != nil {
						return nil, fmt.Errorf("mysql: encrypting password: %w", err)
					}
					if err = mc.writeAuthSwitchPacket(enc); err != nil {
						return nil, fmt.Errorf("mysql: sending encrypted password: %w", err)
					}
				}
				return mc.readPacket()

			default:
				return nil, fmt.Errorf("%w: unknown auth state %d", ErrMalformPkt, packet[1])
			}

		default:
			return nil, fmt.Errorf("%w: unexpected packet length %d", ErrMalformPkt, len(packet))
		}
	default:
		return nil, fmt.Errorf("%w: expected auth more data packet", ErrMalformPkt)
	}
}

// scrambleSHA256Password implements the MySQL 8+ password scramble:
// XOR(SHA256(password), SHA256(SHA256(SHA256(password)), scramble)).
func scrambleSHA256Password(scramble []byte, password string) []byte {
	if len(password) == 0 {
		return []byte{}
	}

	crypt := sha256.New()
	crypt.Write([]byte(password))
	message1 := crypt.Sum(nil)

	crypt.Reset()
	crypt.Write(message1)
	message1Hash := crypt.Sum(nil)

	crypt.Reset()
	crypt.Write(message1Hash)
	crypt.Write(scramble)
	message2 := crypt.Sum(nil)

	for i := range message1 {
		message1[i] ^= message2[i]
	}

	return message1
}
