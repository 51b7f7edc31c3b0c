package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"unicode"
)

// Normalize trims values, lower-cases enumerations and strips owner and
// phone numbers down to digits. Verify expects a normalized config.
func Normalize(cfg *Config) {
	cfg.Bot.CommandPrefix = strings.TrimSpace(cfg.Bot.CommandPrefix)
	cfg.Bot.Mode = strings.ToLower(strings.TrimSpace(cfg.Bot.Mode))
	cfg.Session.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Session.Storage.Backend))
	cfg.Pairing.Method = strings.ToLower(strings.TrimSpace(cfg.Pairing.Method))
	cfg.Pairing.Phone = digits(cfg.Pairing.Phone)
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))

	owners := make([]string, 0, len(cfg.Bot.Owners))
	seen := make(map[string]struct{}, len(cfg.Bot.Owners))
	for _, o := range cfg.Bot.Owners {
		// Accept "+94 71 846 1889" and "94718461889@s.whatsapp.net".
		if i := strings.IndexByte(o, '@'); i >= 0 {
			o = o[:i]
		}
		d := digits(o)
		if d == "" {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		owners = append(owners, d)
	}
	cfg.Bot.Owners = owners
}

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// Verify validates the configuration and reports every problem found.
func Verify(cfg *Config) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if cfg.Bot.CommandPrefix == "" {
		add("bot.command_prefix is required")
	}
	if strings.ContainsAny(cfg.Bot.CommandPrefix, " \t\r\n") {
		add("bot.command_prefix must not contain whitespace")
	}
	switch cfg.Bot.Mode {
	case "public":
	case "private":
		if len(cfg.Bot.Owners) == 0 {
			add("bot.owners is required in private mode")
		}
	default:
		add("bot.mode must be public or private, got %q", cfg.Bot.Mode)
	}
	if cfg.Bot.DedupWindow <= 0 {
		add("bot.dedup_window must be positive")
	}
	if cfg.Bot.DedupMaxSize < 1 {
		add("bot.dedup_max_size must be at least 1")
	}

	st := cfg.Session.Storage
	if st.Path == "" {
		add("session.storage.path is required")
	}
	if st.Backend != "file" && st.Backend != "badger" {
		add("session.storage.backend must be file or badger, got %q", st.Backend)
	}
	if st.Passphrase != "" && len(st.Passphrase) < 8 {
		add("session.storage.passphrase must be at least 8 characters")
	}

	rc := cfg.Session.Reconnect
	if rc.BaseDelay <= 0 {
		add("session.reconnect.base_delay must be positive")
	}
	if rc.MaxDelay < rc.BaseDelay {
		add("session.reconnect.max_delay (%s) must not be below base_delay (%s)", rc.MaxDelay, rc.BaseDelay)
	}
	if rc.RateLimitMinDelay <= 0 {
		add("session.reconnect.rate_limit_min_delay must be positive")
	}

	if u, err := url.Parse(cfg.Transport.URL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		add("transport.url must be a ws:// or wss:// URL, got %q", cfg.Transport.URL)
	}
	if cfg.Transport.SendRate < 0 {
		add("transport.send_rate must not be negative")
	}
	if (cfg.Transport.TLSCertFile == "") != (cfg.Transport.TLSKeyFile == "") {
		add("transport.tls_cert_file and transport.tls_key_file must be set together")
	}

	switch cfg.Pairing.Method {
	case "qr":
	case "code":
		if cfg.Pairing.Phone == "" {
			add("pairing.phone is required when pairing.method is code")
		}
	default:
		add("pairing.method must be qr or code, got %q", cfg.Pairing.Method)
	}

	if cfg.HTTP.Enabled {
		if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
			add("http.addr: %v", err)
		}
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("log.level must be debug, info, warn or error, got %q", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		add("log.format must be json or text, got %q", cfg.Log.Format)
	}

	return errors.Join(errs...)
}
