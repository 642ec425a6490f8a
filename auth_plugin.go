// Copyright 2023 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

// AuthPlugin is the capability-set contract every authentication method
// implements (C5, §4.5, §9 "Pluggable auth"): compute the initial response
// from the server scramble and the password, and handle any continuation
// packets (auth-switch, auth-more-data) the exchange requires.
type AuthPlugin interface {
	// PluginName is the name the server announces and the client echoes
	// back in HandshakeResponse41.
	PluginName() string

	// InitAuth computes the authentication reply from the server's scramble
	// (nonce) and the configured credentials.
	InitAuth(authData []byte, cfg *Config) ([]byte, error)

	// ProcessAuthResponse handles a non-OK/ERR/EOF continuation packet
	// (AuthMoreData, public-key requests); returns the packet that should
	// be fed back into the generic OK/ERR/auth-switch dispatch.
	ProcessAuthResponse(packet []byte, authData []byte, conn *Connection) ([]byte, error)
}

// SimpleAuth is embedded by plugins with no continuation step: the initial
// response is either accepted (OK), rejected (ERR), or answered with a
// plugin-switch (EOF); there is no AuthMoreData round trip to handle.
type SimpleAuth struct{}

func (SimpleAuth) ProcessAuthResponse(packet []byte, _ []byte, _ *Connection) ([]byte, error) {
	return packet, nil
}

// pluginRegistry maps a plugin name to its implementation (C5 registry).
type pluginRegistry struct {
	plugins map[string]AuthPlugin
}

func newPluginRegistry() *pluginRegistry {
	return &pluginRegistry{plugins: make(map[string]AuthPlugin)}
}

func (r *pluginRegistry) register(plugin AuthPlugin) {
	r.plugins[plugin.PluginName()] = plugin
}

func (r *pluginRegistry) get(name string) (AuthPlugin, bool) {
	p, ok := r.plugins[name]
	return p, ok
}

var globalPluginRegistry = newPluginRegistry()

// RegisterAuthPlugin adds a plugin to the global registry, keyed by its
// PluginName(). Built-in plugins register themselves via init(); a caller
// that needs an SSPI/GSSAPI plugin recognized by name (§1, out of scope for
// the implementation itself) registers its own AuthPlugin the same way.
func RegisterAuthPlugin(plugin AuthPlugin) {
	globalPluginRegistry.register(plugin)
}
