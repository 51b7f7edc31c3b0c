package config

import "strings"

// Sanitize returns a copy of the config with secrets masked, for logging
// and "config show".
func Sanitize(cfg *Config) *Config {
	sanitized := *cfg
	sanitized.Bot.Owners = append([]string(nil), cfg.Bot.Owners...)

	if sanitized.Session.Storage.Passphrase != "" {
		sanitized.Session.Storage.Passphrase = maskSecret(sanitized.Session.Storage.Passphrase)
	}
	if sanitized.Transport.Token != "" {
		sanitized.Transport.Token = maskSecret(sanitized.Transport.Token)
	}
	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
