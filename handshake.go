// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"bytes"
	"crypto/tls"
	"encoding/binary"
	"fmt"
	"net"
)

// initialHandshake holds the server's handshake v10 packet (§4.6 step 1):
// protocol version, server identity, the capability/charset/status it
// offers, and the first authentication plugin's scramble.
type initialHandshake struct {
	protocolVersion byte
	serverVersion   string
	threadID        uint32
	authData        []byte
	capabilities    capabilityFlag
	charset         byte
	status          serverStatus
	authPluginName  string
}

// parseInitialHandshake decodes the handshake v10 packet (§4.6 step 1,
// §GLOSSARY "Handshake v10").
func parseInitialHandshake(data []byte) (*initialHandshake, error) {
	if len(data) < 1 || data[0] < minProtocolVersion {
		return nil, fmt.Errorf("%w: unsupported protocol version %d, need %d or higher",
			ErrMalformPkt, data[0], minProtocolVersion)
	}

	h := &initialHandshake{protocolVersion: data[0]}

	versionEnd := bytes.IndexByte(data[1:], 0x00)
	if versionEnd < 0 {
		return nil, ErrMalformPkt
	}
	h.serverVersion = string(data[1 : 1+versionEnd])
	var major, minor, patch int
	if _, err := fmt.Sscanf(h.serverVersion, "%d.%d.%d", &major, &minor, &patch); err != nil {
		return nil, interfaceErr(fmt.Errorf("%w: %q", ErrInvalidServerVersion, h.serverVersion))
	}
	pos := 1 + versionEnd + 1

	if len(data) < pos+4 {
		return nil, ErrMalformPkt
	}
	h.threadID = binary.LittleEndian.Uint32(data[pos : pos+4])
	pos += 4

	if len(data) < pos+8 {
		return nil, ErrMalformPkt
	}
	authData := append([]byte(nil), data[pos:pos+8]...)
	pos += 8 + 1 // 8-byte scramble part 1 + filler

	if len(data) < pos+2 {
		return nil, ErrMalformPkt
	}
	capLower := uint32(binary.LittleEndian.Uint16(data[pos : pos+2]))
	pos += 2

	var authPluginDataLen byte
	if len(data) > pos {
		h.charset = data[pos]
		pos++

		if len(data) < pos+2 {
			return nil, ErrMalformPkt
		}
		h.status = serverStatus(binary.LittleEndian.Uint16(data[pos : pos+2]))
		pos += 2

		if len(data) < pos+2 {
			return nil, ErrMalformPkt
		}
		capUpper := uint32(binary.LittleEndian.Uint16(data[pos : pos+2]))
		pos += 2
		h.capabilities = capabilityFlag(capLower | capUpper<<16)

		authPluginDataLen = data[pos]
		pos++

		pos += 10 // reserved

		if h.capabilities&clientSecureConn != 0 {
			n := int(authPluginDataLen) - 8
			if n < 13 {
				n = 13
			}
			if len(data) < pos+n {
				return nil, ErrMalformPkt
			}
			authData = append(authData, data[pos:pos+n-1]...) // drop trailing NUL
			pos += n
		}

		if h.capabilities&clientPluginAuth != 0 {
			end := bytes.IndexByte(data[pos:], 0x00)
			if end < 0 {
				h.authPluginName = string(data[pos:])
			} else {
				h.authPluginName = string(data[pos : pos+end])
			}
		}
	} else {
		h.capabilities = capabilityFlag(capLower)
	}

	if h.authPluginName == "" {
		h.authPluginName = "mysql_native_password"
	}
	h.authData = authData
	return h, nil
}

// negotiatedCapabilities intersects what the server offers with what this
// driver always requires plus what Config opts into (§4.6 step 2).
func negotiatedCapabilities(cfg *Config, server capabilityFlag) capabilityFlag {
	want := mandatoryCapabilities | cfg.ClientFlag | clientDeprecateEOF | clientMultiStatements
	if cfg.DBName != "" {
		want |= clientConnectWithDB
	}
	if cfg.LocalInfile || cfg.InfileLoader != nil {
		want |= clientLocalFiles
	}
	if cfg.TLSConfig != nil {
		want |= clientSSL
	}
	if cfg.Compress {
		want |= clientCompress
	}
	return want & (server | mandatoryCapabilities)
}

// writeSSLRequest sends the abbreviated SSLRequest packet that precedes the
// TLS handshake; runHandshake then wraps mc.netConn in a tls.Conn (§1/§6 "SSL/TLS
// transport internals are out of scope" — this driver only calls the
// upgrade, it does not assemble cipher/cert policy).
func (mc *Connection) writeSSLRequest(capabilities capabilityFlag) error {
	data, err := mc.buf.takeSmallBuffer(4 + 4 + 4 + 1 + 23)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(data[4:8], uint32(capabilities))
	binary.LittleEndian.PutUint32(data[8:12], uint32(maxPacketSize))
	data[12] = mc.charsetID
	for i := 13; i < 36; i++ {
		data[i] = 0
	}
	return mc.writePacket(data[4:])
}

// writeHandshakeResponse41 builds and sends the HandshakeResponse41 packet
// (§4.6 step 4): negotiated capabilities, max packet size, charset, user,
// the chosen plugin's initial auth response, optional default database,
// plugin name, and connection attributes.
func (mc *Connection) writeHandshakeResponse41(capabilities capabilityFlag, authResponse []byte, pluginName string) error {
	var buf bytes.Buffer

	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(capabilities))
	buf.Write(tmp[:])
	binary.LittleEndian.PutUint32(tmp[:], uint32(maxPacketSize))
	buf.Write(tmp[:])
	buf.WriteByte(mc.charsetID)
	buf.Write(make([]byte, 23))

	buf.WriteString(mc.cfg.User)
	buf.WriteByte(0)

	if capabilities&clientPluginAuthLenencClientData != 0 {
		buf.Write(writeLengthEncodedString(authResponse))
	} else {
		buf.WriteByte(byte(len(authResponse)))
		buf.Write(authResponse)
	}

	if capabilities&clientConnectWithDB != 0 {
		buf.WriteString(mc.cfg.DBName)
		buf.WriteByte(0)
	}

	if capabilities&clientPluginAuth != 0 {
		buf.WriteString(pluginName)
		buf.WriteByte(0)
	}

	if capabilities&clientConnectAttrs != 0 {
		var attrs bytes.Buffer
		for k, v := range mc.cfg.ConnectionAttributes {
			attrs.Write(writeLengthEncodedString([]byte(k)))
			attrs.Write(writeLengthEncodedString([]byte(v)))
		}
		buf.Write(writeLengthEncodedInteger(uint64(attrs.Len())))
		buf.Write(attrs.Bytes())
	}

	return mc.writePacket(buf.Bytes())
}

// writeAuthSwitchPacket sends a bare auth-switch/auth-more-data continuation
// response: just the plugin's bytes, at the connection's current sequence
// id (no reset — this is mid-handshake, not a new command) (§4.6 step 5).
func (mc *Connection) writeAuthSwitchPacket(data []byte) error {
	return mc.writePacket(data)
}

// Connect dials cfg's address, runs the handshake and pluggable
// authentication (§4.6), and returns a ready-to-use, IDLE Connection.
func Connect(cfg *Config) (*Connection, error) {
	network, address := cfg.network()
	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	netConn, err := dialer.Dial(network, address)
	if err != nil {
		return nil, err
	}

	if tc, ok := netConn.(*net.TCPConn); ok {
		_ = tc.SetKeepAlive(true)
	}

	mc := &Connection{
		cfg:              cfg,
		netConn:          netConn,
		writeTimeout:     cfg.WriteTimeout,
		maxAllowedPacket: defaultMaxAllowedPacket,
		state:            stateCommandSent,
	}
	mc.buf = newBuffer(netConn)
	mc.buf.timeout = cfg.ReadTimeout

	if err := mc.runHandshake(); err != nil {
		mc.cleanup()
		return nil, err
	}

	mc.state = stateIdle

	if cfg.MaxAllowedPacket > 0 {
		mc.maxAllowedPacket = cfg.MaxAllowedPacket
	}

	if cfg.Autocommit != nil {
		val := "0"
		if *cfg.Autocommit {
			val = "1"
		}
		if _, err := mc.Exec("SET autocommit=" + val); err != nil {
			mc.Close()
			return nil, err
		}
	}
	if cfg.SQLMode != "" {
		if _, err := mc.Exec("SET sql_mode='" + cfg.SQLMode + "'"); err != nil {
			mc.Close()
			return nil, err
		}
	}
	if cfg.InitCommand != "" {
		if _, err := mc.Exec(cfg.InitCommand); err != nil {
			mc.Close()
			return nil, err
		}
	}

	return mc, nil
}

// runHandshake drives the handshake v10 exchange through to a successful
// pluggable-authentication result (§4.6 steps 1-5).
func (mc *Connection) runHandshake() error {
	data, err := mc.readPacket()
	if err != nil {
		return err
	}

	info, err := parseInitialHandshake(data)
	if err != nil {
		return err
	}
	mc.serverVersion = info.serverVersion
	mc.threadID = info.threadID
	mc.scramble = info.authData
	mc.serverCapabilities = info.capabilities
	mc.authPluginName = info.authPluginName
	mc.status = info.status

	charsetName := mc.cfg.Charset
	if charsetName == "" {
		charsetName = "utf8mb4"
	}
	charsetID, ok := collationForCharset(charsetName)
	if !ok {
		return fmt.Errorf("mysql: unknown charset %q", charsetName)
	}
	mc.charsetID = charsetID
	mc.charsetName = charsetName

	if err := mc.cfg.resolveTLSConfig(); err != nil {
		return err
	}

	capabilities := negotiatedCapabilities(mc.cfg, info.capabilities)
	mc.capabilities = capabilities

	if capabilities&clientSSL != 0 {
		if err := mc.writeSSLRequest(capabilities); err != nil {
			return err
		}
		tlsConn := tls.Client(mc.netConn, mc.cfg.TLSConfig)
		if err := tlsConn.Handshake(); err != nil {
			return err
		}
		mc.netConn = tlsConn
		mc.buf.rd = tlsConn
		mc.buf.conn = tlsConn
	}

	authPlugin, ok := mc.resolveAuthPlugin(info.authPluginName)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPlugin, info.authPluginName)
	}

	authResponse, err := authPlugin.InitAuth(info.authData, mc.cfg)
	if err != nil {
		return err
	}

	if err := mc.writeHandshakeResponse41(capabilities, authResponse, info.authPluginName); err != nil {
		return err
	}

	if capabilities&clientCompress != 0 {
		cc := newCompressedConn(mc.netConn)
		mc.netConn = cc
		mc.buf.rd = cc
		mc.buf.conn = cc
	}

	return mc.handleAuthResult(info.authData, authPlugin)
}

// resolveAuthPlugin prefers a plugin from Config.AuthPluginMap (caller
// override) over the global registry populated by each auth_*.go's init
// (§9 "Pluggable auth").
func (mc *Connection) resolveAuthPlugin(name string) (AuthPlugin, bool) {
	if mc.cfg.AuthPluginMap != nil {
		if p, ok := mc.cfg.AuthPluginMap[name]; ok {
			return p, true
		}
	}
	return globalPluginRegistry.get(name)
}
