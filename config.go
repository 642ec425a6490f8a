// Copyright 2016 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"path/filepath"
	"time"

	"gopkg.in/ini.v1"
)

// Config holds everything needed to dial and authenticate a session (§6
// "Configuration options"). Connection pooling and SSL/TLS transport
// internals are out of scope (§1); TLSConfig is accepted as a pre-built
// *tls.Config, not assembled by this package.
type Config struct {
	// Transport: exactly one of (Addr, UnixSocket) selects TCP vs. a local
	// socket (§6 "Transport").
	Addr       string // host:port, default host "127.0.0.1", port 3306
	UnixSocket string

	User   string
	Passwd string
	// OtherPasswd holds additional comma-separated passwords that the MariaDB
	// "dialog" plugin sends, in order, as answers to the prompts after the
	// first one (which Passwd answers) (§4.5).
	OtherPasswd string
	DBName      string
	Charset  string // default "utf8mb4"
	SQLMode  string
	InitCommand string

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	// Autocommit is a tri-state: nil leaves the server default in place.
	Autocommit *bool

	ClientFlag  capabilityFlag // additional capability bits on top of mandatoryCapabilities
	LocalInfile bool
	InfileLoader InfileLoader
	Compress    bool // request CLIENT_COMPRESS; only takes effect if the server also offers it

	TLSConfig     *tls.Config // nil disables TLS; the handshake only upgrades if server+config both allow it
	TLSConfigName string      // resolved via RegisterTLSConfig if TLSConfig is nil (§6 "ssl-ca"/"tls")

	AuthPluginMap   map[string]AuthPlugin
	ServerPublicKey []byte // PEM, for sha256_password/caching_sha2_password full auth without TLS

	// AllowNativePasswords etc. are explicit opt-ins/opt-outs for plugins
	// whose wire format is considered legacy or requires a secure channel
	// (§4.5, §9 Open Question on mysql_clear_password).
	AllowNativePasswords    bool
	AllowOldPasswords       bool
	AllowCleartextPasswords bool
	AllowDialogPasswords    bool

	MaxAllowedPacket int // 0 means use defaultMaxAllowedPacket; the server is not asked

	ConnectionAttributes map[string]string
}

// NewConfig returns a Config with the spec's documented defaults (§6).
func NewConfig() *Config {
	return &Config{
		Addr:                 "127.0.0.1:3306",
		Charset:              "utf8mb4",
		ConnectTimeout:       10 * time.Second,
		AllowNativePasswords: true,
		MaxAllowedPacket:     defaultMaxAllowedPacket,
	}
}

// resolvePublicKey returns the RSA public key configured via
// Config.ServerPublicKey (PEM bytes), parsing it on first use. A nil
// result (no error) means none was preconfigured and the plugin must
// request one from the server (§6 "server_public_key").
func (cfg *Config) resolvePublicKey() (*rsa.PublicKey, error) {
	if len(cfg.ServerPublicKey) == 0 {
		return nil, nil
	}
	block, _ := pem.Decode(cfg.ServerPublicKey)
	if block == nil {
		return nil, fmt.Errorf("mysql: ServerPublicKey is not valid PEM")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("mysql: parsing ServerPublicKey: %w", err)
	}
	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("mysql: ServerPublicKey is %T, want RSA", pub)
	}
	return rsaKey, nil
}

func (cfg *Config) network() (string, string) {
	if cfg.UnixSocket != "" {
		return "unix", cfg.UnixSocket
	}
	addr := cfg.Addr
	if addr == "" {
		addr = "127.0.0.1:3306"
	}
	return "tcp", addr
}

// ReadOptionFile loads [client]/[<extraSections>...] entries from an
// INI-style option file into cfg, following `!include`/`!includedir`
// chaining (§6 "Option-file syntax"). Later sections override earlier ones,
// matching mysql's own option-file precedence.
func ReadOptionFile(cfg *Config, path string, extraSections ...string) error {
	f, err := ini.LoadSources(ini.LoadOptions{
		AllowBooleanKeys:         true,
		SkipUnrecognizableLines:  true,
		IgnoreInlineComment:      true,
	}, path)
	if err != nil {
		return fmt.Errorf("mysql: reading option file %s: %w", path, err)
	}

	if err := applyIncludes(f, filepath.Dir(path)); err != nil {
		return err
	}

	sections := append([]string{"client"}, extraSections...)
	for _, name := range sections {
		sec, err := f.GetSection(name)
		if err != nil {
			continue // section absent is not an error
		}
		applyOptionSection(cfg, sec)
	}
	return nil
}

// applyIncludes merges `!include file` / `!includedir dir` directives. The
// ini.v1 library treats a bare `!include` line as an unrecognized line by
// default; option files instead name the directive as a key so it round-
// trips through GetSection("DEFAULT").
func applyIncludes(f *ini.File, baseDir string) error {
	def := f.Section(ini.DefaultSection)
	for _, key := range def.Keys() {
		switch key.Name() {
		case "!include":
			p := resolveOptionPath(baseDir, key.Value())
			if err := f.Append(p); err != nil {
				return fmt.Errorf("mysql: !include %s: %w", p, err)
			}
		case "!includedir":
			dir := resolveOptionPath(baseDir, key.Value())
			matches, _ := filepath.Glob(filepath.Join(dir, "*.cnf"))
			for _, m := range matches {
				if err := f.Append(m); err != nil {
					return fmt.Errorf("mysql: !includedir %s: %w", m, err)
				}
			}
		}
	}
	return nil
}

func resolveOptionPath(baseDir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

// applyOptionSection maps the option-file keys this driver recognizes onto
// Config (§6). Keys outside this set (socket ownership, pid-file, and the
// server-only options a client never uses) are ignored rather than
// rejected, matching how the mysql client tools treat unknown options.
func applyOptionSection(cfg *Config, sec *ini.Section) {
	if sec.HasKey("user") {
		cfg.User = sec.Key("user").String()
	}
	if sec.HasKey("password") {
		cfg.Passwd = sec.Key("password").String()
	}
	if sec.HasKey("host") {
		host := sec.Key("host").String()
		port := "3306"
		if sec.HasKey("port") {
			port = sec.Key("port").String()
		}
		cfg.Addr = host + ":" + port
	}
	if sec.HasKey("socket") {
		cfg.UnixSocket = sec.Key("socket").String()
	}
	if sec.HasKey("database") {
		cfg.DBName = sec.Key("database").String()
	}
	if sec.HasKey("default-character-set") {
		cfg.Charset = sec.Key("default-character-set").String()
	}
	if sec.HasKey("connect-timeout") {
		if secs, err := sec.Key("connect-timeout").Int(); err == nil {
			cfg.ConnectTimeout = time.Duration(secs) * time.Second
		}
	}
	if sec.HasKey("ssl-ca") {
		cfg.TLSConfigName = sec.Key("ssl-ca").String()
	}
}
