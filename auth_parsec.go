// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2023 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha512"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// ParsecPlugin implements the MariaDB parsec authentication plugin (§4.5):
// a PBKDF2-derived Ed25519 signature over the server's scramble and a
// client nonce.
type ParsecPlugin struct{ SimpleAuth }

func init() {
	RegisterAuthPlugin(&ParsecPlugin{})
}

func (p *ParsecPlugin) PluginName() string {
	return "parsec"
}

func (p *ParsecPlugin) InitAuth(authData []byte, cfg *Config) ([]byte, error) {
	return []byte{}, nil
}

func (p *ParsecPlugin) ProcessAuthResponse(packet []byte, authData []byte, mc *Connection) ([]byte, error) {
	authResp, err := ProcessParsecExtSalt(packet, authData, mc.cfg.Passwd)
	if err != nil {
		return nil, fmt.Errorf("mysql: parsec auth failed: %w", err)
	}

	if err = mc.writeAuthSwitchPacket(authResp); err != nil {
		return nil, fmt.Errorf("mysql: writing parsec auth response: %w", err)
	}

	return mc.readPacket()
}

// ProcessParsecExtSalt processes the ext-salt sent by the server and builds
// the parsec authentication response.
//
// ext-salt format: 'P' + iteration factor + salt. The PBKDF2 iteration
// count is 1024 << iteration factor (0x0 means 1024, 0x1 means 2048, ...).
// The password and salt are run through PBKDF2-HMAC-SHA512 to derive an
// Ed25519 seed, which signs (server scramble || client nonce); the response
// is (client nonce || signature).
func ProcessParsecExtSalt(extSalt, serverScramble []byte, password string) ([]byte, error) {
	if len(extSalt) < 3 {
		return nil, fmt.Errorf("%w: ext-salt too short", ErrParsecAuth)
	}
	if extSalt[0] != 'P' {
		return nil, fmt.Errorf("%w: invalid ext-salt prefix", ErrParsecAuth)
	}

	iterationFactor := int(extSalt[1])
	if iterationFactor < 0 || iterationFactor > 3 {
		return nil, fmt.Errorf("%w: invalid iteration factor", ErrParsecAuth)
	}
	iterations := 1024 << iterationFactor

	salt := extSalt[2:]
	if len(salt) == 0 {
		return nil, fmt.Errorf("%w: empty salt", ErrParsecAuth)
	}

	clientNonce := make([]byte, 32)
	if _, err := rand.Read(clientNonce); err != nil {
		return nil, fmt.Errorf("mysql: generating parsec client nonce: %w", err)
	}

	derivedKey := pbkdf2.Key([]byte(password), salt, iterations, ed25519.SeedSize, sha512.New)

	message := make([]byte, len(serverScramble)+len(clientNonce))
	copy(message, serverScramble)
	copy(message[len(serverScramble):], clientNonce)

	privateKey := ed25519.NewKeyFromSeed(derivedKey[:ed25519.SeedSize])
	signature := ed25519.Sign(privateKey, message)

	response := make([]byte, len(clientNonce)+len(signature))
	copy(response, clientNonce)
	copy(response[len(clientNonce):], signature)

	return response, nil
}
