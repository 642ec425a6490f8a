// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"crypto/tls"
	"fmt"
	"sync"
)

// SSL/TLS transport internals are out of scope (§1): this file is the thin
// adapter point the spec calls for, not a certificate/cipher policy
// assembler. It only lets a caller register a pre-built *tls.Config under a
// name so Config.TLSConfigName (set directly or from an option file, §6) can resolve
// it without the option-file layer ever touching crypto/tls itself.
var (
	tlsConfigMu  sync.RWMutex
	tlsConfigMap = make(map[string]*tls.Config)
)

// RegisterTLSConfig registers a *tls.Config under name for later lookup by
// Config.TLSConfigName. name must not be one of the reserved values
// "true", "false", "skip-verify", or "preferred".
func RegisterTLSConfig(name string, config *tls.Config) error {
	switch name {
	case "true", "false", "skip-verify", "preferred":
		return fmt.Errorf("mysql: tls config name %q is reserved", name)
	}
	tlsConfigMu.Lock()
	tlsConfigMap[name] = config
	tlsConfigMu.Unlock()
	return nil
}

// DeregisterTLSConfig removes a previously registered named TLS config.
func DeregisterTLSConfig(name string) {
	tlsConfigMu.Lock()
	delete(tlsConfigMap, name)
	tlsConfigMu.Unlock()
}

// getTLSConfigClone returns a copy of the named config so concurrent
// connections never race over ServerName/session-ticket mutation inside
// crypto/tls.
func getTLSConfigClone(name string) (*tls.Config, bool) {
	tlsConfigMu.RLock()
	cfg, ok := tlsConfigMap[name]
	tlsConfigMu.RUnlock()
	if !ok {
		return nil, false
	}
	return cfg.Clone(), true
}

// resolveTLSConfig fills in cfg.TLSConfig from cfg.TLSConfigName when the
// caller set a name instead of (or in addition to) a literal *tls.Config; a
// literal TLSConfig always wins.
func (cfg *Config) resolveTLSConfig() error {
	if cfg.TLSConfig != nil || cfg.TLSConfigName == "" {
		return nil
	}
	named, ok := getTLSConfigClone(cfg.TLSConfigName)
	if !ok {
		return fmt.Errorf("mysql: no TLS config registered under name %q", cfg.TLSConfigName)
	}
	cfg.TLSConfig = named
	return nil
}
