// Copyright 2018 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"bytes"
	"crypto/rsa"
	"fmt"
	"sync"
)

// server pub keys registry (§6 "server_public_key"). The
// sha256_password/caching_sha2_password plugins do not look keys up here;
// they take a preconfigured key from Config.ServerPublicKey.
var (
	serverPubKeyLock     sync.RWMutex
	serverPubKeyRegistry map[string]*rsa.PublicKey
)

// RegisterServerPubKey registers a server RSA public key that can be
// referenced later without fetching it from the (potentially untrusted)
// server first.
func RegisterServerPubKey(name string, pubKey *rsa.PublicKey) {
	serverPubKeyLock.Lock()
	if serverPubKeyRegistry == nil {
		serverPubKeyRegistry = make(map[string]*rsa.PublicKey)
	}
	serverPubKeyRegistry[name] = pubKey
	serverPubKeyLock.Unlock()
}

// DeregisterServerPubKey removes the public key registered with the given name.
func DeregisterServerPubKey(name string) {
	serverPubKeyLock.Lock()
	if serverPubKeyRegistry != nil {
		delete(serverPubKeyRegistry, name)
	}
	serverPubKeyLock.Unlock()
}

func getServerPubKey(name string) (pubKey *rsa.PublicKey) {
	serverPubKeyLock.RLock()
	if v, ok := serverPubKeyRegistry[name]; ok {
		pubKey = v
	}
	serverPubKeyLock.RUnlock()
	return
}

// myRnd is MariaDB's linear-congruential generator for mysql_old_password
// (§4.5 "mysql_old_password"), grounded on
// https://github.com/atcurtis/mariadb/blob/master/mysys/my_rnd.c
type myRnd struct {
	seed1, seed2 uint32
}

const myRndMaxVal = 0x3FFFFFFF

func newMyRnd(seed1, seed2 uint32) *myRnd {
	return &myRnd{
		seed1: seed1 % myRndMaxVal,
		seed2: seed2 % myRndMaxVal,
	}
}

func (r *myRnd) NextByte() byte {
	r.seed1 = (r.seed1*3 + r.seed2) % myRndMaxVal
	r.seed2 = (r.seed1 + r.seed2 + 33) % myRndMaxVal
	return byte(uint64(r.seed1) * 31 / myRndMaxVal)
}

// pwHash is the pre-4.1 password hash the old-password scramble is built on.
func pwHash(password []byte) (result [2]uint32) {
	var add uint32 = 7
	var tmp uint32

	result[0] = 1345345333
	result[1] = 0x12345671

	for _, c := range password {
		if c == ' ' || c == '\t' {
			continue
		}
		tmp = uint32(c)
		result[0] ^= (((result[0] & 63) + add) * tmp) + (result[0] << 8)
		result[1] += (result[1] << 8) ^ result[0]
		add += tmp
	}

	result[0] &= 0x7FFFFFFF
	result[1] &= 0x7FFFFFFF
	return
}

// handleAuthResult reads the server's first reply to HandshakeResponse41 and
// hands it to the chosen plugin's continuation before dispatching on its
// shape (§4.6 step 5).
func (mc *Connection) handleAuthResult(initialSeed []byte, authPlugin AuthPlugin) error {
	data, err := mc.readPacket()
	if err != nil {
		return err
	}

	data, err = authPlugin.ProcessAuthResponse(data, initialSeed, mc)
	if err != nil {
		return err
	}

	return mc.processAuthResponse(data, initialSeed)
}

// processAuthResponse dispatches a handshake-phase packet: OK (authenticated),
// ERR (rejected), or EOF (AuthSwitchRequest) (§4.6 step 5).
func (mc *Connection) processAuthResponse(data []byte, initialSeed []byte) error {
	if len(data) == 0 {
		return ErrMalformPkt
	}
	switch data[0] {
	case iOK:
		mc.state = stateIdle
		return mc.handleOKPacket(data)
	case iERR:
		return mc.handleErrorPacket(data)
	case iEOF:
		return mc.handleAuthSwitch(data, initialSeed)
	default:
		return ErrMalformPkt
	}
}

// handleAuthSwitch processes an AuthSwitchRequest: compute the new plugin's
// response against its fresh scramble, send it, and continue the dispatch
// loop (§4.6 step 5, §9 "Pluggable auth").
func (mc *Connection) handleAuthSwitch(data []byte, initialSeed []byte) error {
	plugin, authData := mc.parseAuthSwitchData(data, initialSeed)

	authPlugin, ok := globalPluginRegistry.get(plugin)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPlugin, plugin)
	}

	resp, err := authPlugin.InitAuth(authData, mc.cfg)
	if err != nil {
		return err
	}
	if err := mc.writeAuthSwitchPacket(resp); err != nil {
		return err
	}

	data, err = mc.readPacket()
	if err != nil {
		return err
	}

	switch data[0] {
	case iERR, iOK, iEOF:
		return mc.processAuthResponse(data, initialSeed)
	default:
		data, err = authPlugin.ProcessAuthResponse(data, authData, mc)
		if err != nil {
			return err
		}
		return mc.processAuthResponse(data, initialSeed)
	}
}

// parseAuthSwitchData splits an AuthSwitchRequest packet into the plugin
// name and its fresh scramble. A single-byte packet is the legacy signal
// to fall back to mysql_old_password with the original scramble.
func (mc *Connection) parseAuthSwitchData(data []byte, initialSeed []byte) (string, []byte) {
	if len(data) == 1 {
		return "mysql_old_password", initialSeed
	}

	end := bytes.IndexByte(data, 0x00)
	if end < 0 {
		return "", nil
	}

	plugin := string(data[1:end])
	authData := data[end+1:]
	if len(authData) > 0 && authData[len(authData)-1] == 0 {
		authData = authData[:len(authData)-1]
	}

	saved := make([]byte, len(authData))
	copy(saved, authData)
	return plugin, saved
}
