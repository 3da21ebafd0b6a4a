// Package config defines the server configuration structure.
package config

import "fmt"

// Sanitize returns a copy of the config safe to log: secret material is
// replaced with a length marker instead of the value.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	out := *cfg

	if out.Security.EncryptionKey != "" {
		out.Security.EncryptionKey = fmt.Sprintf("<redacted %d chars>", len(cfg.Security.EncryptionKey))
	}

	return &out
}
