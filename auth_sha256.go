// Copyright 2023 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// Sha256PasswordPlugin implements sha256_password (§4.5): RSA-OAEP
// encryption of the password under the server's public key, requested over
// the connection unless one was preconfigured or TLS is already in place.
type Sha256PasswordPlugin struct{ SimpleAuth }

func init() {
	RegisterAuthPlugin(&Sha256PasswordPlugin{})
}

func (p *Sha256PasswordPlugin) PluginName() string {
	return "sha256_password"
}

func (p *Sha256PasswordPlugin) InitAuth(authData []byte, cfg *Config) ([]byte, error) {
	if len(cfg.Passwd) == 0 {
		return []byte{0}, nil
	}

	// unlike caching_sha2_password, sha256_password does not accept a
	// cleartext password over a unix socket, only over TLS.
	if cfg.TLSConfig != nil {
		return append([]byte(cfg.Passwd), 0), nil
	}

	pubKey, err := cfg.resolvePublicKey()
	if err != nil {
		return nil, err
	}
	if pubKey == nil {
		return []byte{1}, nil // request the server's public key
	}

	enc, err := encryptPassword(cfg.Passwd, authData, pubKey)
	if err != nil {
		return nil, fmt.Errorf("mysql: encrypting password for sha256_password: %w", err)
	}
	return enc, nil
}

func (p *Sha256PasswordPlugin) ProcessAuthResponse(packet []byte, authData []byte, mc *Connection) ([]byte, error) {
	if len(packet) == 0 {
		return nil, fmt.Errorf("%w: empty auth response packet", ErrMalformPkt)
	}

	switch packet[0] {
	case iOK, iERR, iEOF:
		return packet, nil

	case iAuthMoreData:
		pubKey, err := decodePEMPublicKey(packet[1:])
		if err != nil {
			return nil, err
		}

		enc, err := encryptPassword(mc.cfg.Passwd, authData, pubKey)
		if err != nil {
			return nil, fmt.Errorf("mysql: encrypting password with server key: %w", err)
		}
		if err := mc.writeAuthSwitchPacket(enc); err != nil {
			return nil, fmt.Errorf("mysql: sending encrypted password: %w", err)
		}
		return mc.readPacket()

	default:
		return nil, fmt.Errorf("%w: unexpected packet type %d", ErrMalformPkt, packet[0])
	}
}

func decodePEMPublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	block, rest := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("mysql: invalid PEM data in auth response: %q", rest)
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("mysql: parsing server public key: %w", err)
	}
	pubKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("mysql: server sent a public key of type %T, want RSA", pub)
	}
	return pubKey, nil
}

// encryptPassword XORs the password with the scramble (preventing replay)
// and RSA-OAEP/SHA1-encrypts the result under the server's public key
// (§4.5 "caching_sha2_password"/"sha256_password").
func encryptPassword(password string, seed []byte, pub *rsa.PublicKey) ([]byte, error) {
	if pub == nil {
		return nil, fmt.Errorf("mysql: no public key available to encrypt password")
	}

	plain := make([]byte, len(password)+1)
	copy(plain, password)
	for i := range plain {
		plain[i] ^= seed[i%len(seed)]
	}

	return rsa.EncryptOAEP(sha1.New(), rand.Reader, pub, plain, nil)
}
