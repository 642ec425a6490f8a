// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"bytes"
	"testing"
)

// buildHandshakeV10 assembles a minimal, valid Handshake v10 packet body for
// parseInitialHandshake tests (§4.6 step 1). The scramble is 8 bytes (part
// 1) + 12 bytes (part 2, the trailing NUL of the 13-byte wire block
// stripped), for the usual 20-byte nonce.
func buildHandshakeV10(pluginName string) []byte {
	var b bytes.Buffer
	b.WriteByte(10) // protocol version
	b.WriteString("8.0.34")
	b.WriteByte(0)
	b.Write([]byte{1, 0, 0, 0}) // thread id
	b.WriteString("AUTHDATA")   // scramble part 1, exactly 8 bytes
	b.WriteByte(0)              // filler
	b.Write([]byte{0xff, 0xff}) // capability flags, lower 2 bytes (all set)
	b.WriteByte(33)             // charset (utf8)
	b.Write([]byte{0x02, 0x00}) // status flags
	b.Write([]byte{0xff, 0xff}) // capability flags, upper 2 bytes
	b.WriteByte(21)             // auth plugin data len (8+13)
	b.Write(make([]byte, 10))   // reserved
	b.WriteString("SWITCHSCRAM1") // scramble part 2, 12 real bytes
	b.WriteByte(0)                // + trailing NUL = 13-byte wire block
	b.WriteString(pluginName)
	b.WriteByte(0)
	return b.Bytes()
}

func TestParseInitialHandshakeBasics(t *testing.T) {
	data := buildHandshakeV10("mysql_native_password")
	h, err := parseInitialHandshake(data)
	if err != nil {
		t.Fatal(err)
	}
	if h.serverVersion != "8.0.34" {
		t.Errorf("serverVersion = %q", h.serverVersion)
	}
	if h.threadID != 1 {
		t.Errorf("threadID = %d", h.threadID)
	}
	if h.authPluginName != "mysql_native_password" {
		t.Errorf("authPluginName = %q", h.authPluginName)
	}
	if len(h.authData) != 20 {
		t.Errorf("len(authData) = %d, want 20 (8+12)", len(h.authData))
	}
}

func TestParseInitialHandshakeRejectsOldProtocol(t *testing.T) {
	data := append([]byte{9}, buildHandshakeV10("x")[1:]...)
	if _, err := parseInitialHandshake(data); err == nil {
		t.Error("expected an error for protocol version below 10")
	}
}

func TestParseInitialHandshakeDefaultsPluginName(t *testing.T) {
	// a handshake with PLUGIN_AUTH unset never names a plugin; it defaults
	// to mysql_native_password (§4.6 step 1).
	var b bytes.Buffer
	b.WriteByte(10)
	b.WriteString("5.5.5")
	b.WriteByte(0)
	b.Write([]byte{1, 0, 0, 0})
	b.WriteString("AUTHDATA")
	b.WriteByte(0)
	b.Write([]byte{0x00, 0x00}) // no PLUGIN_AUTH bit, minimal capabilities
	data := b.Bytes()

	h, err := parseInitialHandshake(data)
	if err != nil {
		t.Fatal(err)
	}
	if h.authPluginName != "mysql_native_password" {
		t.Errorf("authPluginName = %q, want default", h.authPluginName)
	}
}

func TestNegotiatedCapabilitiesIncludesMandatory(t *testing.T) {
	cfg := NewConfig()
	server := mandatoryCapabilities | clientDeprecateEOF | clientMultiStatements
	got := negotiatedCapabilities(cfg, server)
	if got&mandatoryCapabilities != mandatoryCapabilities {
		t.Error("negotiated capabilities must always include the mandatory set")
	}
}

func TestNegotiatedCapabilitiesRequestsConnectWithDB(t *testing.T) {
	cfg := NewConfig()
	cfg.DBName = "mydb"
	server := mandatoryCapabilities | clientConnectWithDB
	got := negotiatedCapabilities(cfg, server)
	if got&clientConnectWithDB == 0 {
		t.Error("expected CLIENT_CONNECT_WITH_DB to be requested when DBName is set")
	}
}

func TestNegotiatedCapabilitiesNeverExceedsServerOffer(t *testing.T) {
	cfg := NewConfig()
	cfg.DBName = "mydb"
	server := mandatoryCapabilities // server does not offer CONNECT_WITH_DB
	got := negotiatedCapabilities(cfg, server)
	if got&clientConnectWithDB != 0 {
		t.Error("must not request a capability the server did not offer")
	}
}

func TestResolveAuthPluginPrefersConfigOverride(t *testing.T) {
	custom := &NativePasswordPlugin{}
	mc := &Connection{cfg: &Config{AuthPluginMap: map[string]AuthPlugin{"mysql_native_password": custom}}}
	p, ok := mc.resolveAuthPlugin("mysql_native_password")
	if !ok || p != AuthPlugin(custom) {
		t.Error("expected the Config.AuthPluginMap override to win over the global registry")
	}
}

func TestResolveAuthPluginFallsBackToGlobalRegistry(t *testing.T) {
	mc := &Connection{cfg: &Config{}}
	p, ok := mc.resolveAuthPlugin("mysql_native_password")
	if !ok || p.PluginName() != "mysql_native_password" {
		t.Error("expected fallback to the global plugin registry")
	}
}

func TestParseAuthSwitchDataLegacySingleByte(t *testing.T) {
	mc := &Connection{}
	initial := []byte("initialscramble12345")
	plugin, data := mc.parseAuthSwitchData([]byte{0xfe}, initial)
	if plugin != "mysql_old_password" {
		t.Errorf("plugin = %q, want mysql_old_password", plugin)
	}
	if !bytes.Equal(data, initial) {
		t.Error("expected the original scramble to be reused for the legacy fallback")
	}
}

func TestParseAuthSwitchDataNamesPluginAndScramble(t *testing.T) {
	mc := &Connection{}
	var b bytes.Buffer
	b.WriteByte(0xfe)
	b.WriteString("caching_sha2_password")
	b.WriteByte(0)
	b.WriteString("freshscramble")
	plugin, data := mc.parseAuthSwitchData(b.Bytes(), nil)
	if plugin != "caching_sha2_password" {
		t.Errorf("plugin = %q", plugin)
	}
	if string(data) != "freshscramble" {
		t.Errorf("scramble = %q", data)
	}
}
