package config

import "time"

// Config is the root configuration for fergando-md.
type Config struct {
	Bot       BotSection       `koanf:"bot" json:"bot" yaml:"bot"`
	Session   SessionSection   `koanf:"session" json:"session" yaml:"session"`
	Transport TransportSection `koanf:"transport" json:"transport" yaml:"transport"`
	Pairing   PairingSection   `koanf:"pairing" json:"pairing" yaml:"pairing"`
	HTTP      HTTPSection      `koanf:"http" json:"http" yaml:"http"`
	Log       LogSection       `koanf:"log" json:"log" yaml:"log"`
}

// BotSection configures command handling.
type BotSection struct {
	// Name appears in the welcome message.
	Name string `koanf:"name" json:"name" yaml:"name"`

	CommandPrefix string `koanf:"command_prefix" json:"command_prefix" yaml:"command_prefix"`

	// Owners are phone numbers (digits only) allowed to command the bot in
	// private mode.
	Owners []string `koanf:"owners" json:"owners" yaml:"owners"`

	// Mode is "public" or "private".
	Mode string `koanf:"mode" json:"mode" yaml:"mode"`

	DedupWindow  time.Duration `koanf:"dedup_window" json:"dedup_window" yaml:"dedup_window"`
	DedupMaxSize int           `koanf:"dedup_max_size" json:"dedup_max_size" yaml:"dedup_max_size"`
}

// SessionSection configures credential storage and reconnection.
type SessionSection struct {
	Storage   StorageSection   `koanf:"storage" json:"storage" yaml:"storage"`
	Reconnect ReconnectSection `koanf:"reconnect" json:"reconnect" yaml:"reconnect"`
}

// StorageSection configures the credential store.
type StorageSection struct {
	// Backend is "file" or "badger".
	Backend string `koanf:"backend" json:"backend" yaml:"backend"`

	// Path is the session directory.
	Path string `koanf:"path" json:"path" yaml:"path"`

	// Passphrase enables encryption at rest when set.
	Passphrase string `koanf:"passphrase" json:"passphrase" yaml:"passphrase"`

	BadgerGCInterval time.Duration `koanf:"badger_gc_interval" json:"badger_gc_interval" yaml:"badger_gc_interval"`
}

// ReconnectSection configures the reconnect policy.
type ReconnectSection struct {
	BaseDelay         time.Duration `koanf:"base_delay" json:"base_delay" yaml:"base_delay"`
	MaxDelay          time.Duration `koanf:"max_delay" json:"max_delay" yaml:"max_delay"`
	RateLimitMinDelay time.Duration `koanf:"rate_limit_min_delay" json:"rate_limit_min_delay" yaml:"rate_limit_min_delay"`
}

// TransportSection configures the protocol bridge connection.
type TransportSection struct {
	URL string `koanf:"url" json:"url" yaml:"url"`

	// Token is sent as a bearer token with the websocket upgrade.
	Token string `koanf:"token" json:"token" yaml:"token"`

	SendRate         float64       `koanf:"send_rate" json:"send_rate" yaml:"send_rate"`
	SendBurst        int           `koanf:"send_burst" json:"send_burst" yaml:"send_burst"`
	HandshakeTimeout time.Duration `koanf:"handshake_timeout" json:"handshake_timeout" yaml:"handshake_timeout"`
	PingInterval     time.Duration `koanf:"ping_interval" json:"ping_interval" yaml:"ping_interval"`
	ReadTimeout      time.Duration `koanf:"read_timeout" json:"read_timeout" yaml:"read_timeout"`

	// TLSCAFile adds a trusted root for wss:// bridges.
	TLSCAFile string `koanf:"tls_ca_file" json:"tls_ca_file" yaml:"tls_ca_file"`

	// TLSCertFile and TLSKeyFile enable client certificates. They are
	// reloaded when the files change.
	TLSCertFile string `koanf:"tls_cert_file" json:"tls_cert_file" yaml:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file" json:"tls_key_file" yaml:"tls_key_file"`
}

// PairingSection configures how a new device is linked.
type PairingSection struct {
	// Method is "qr" or "code".
	Method string `koanf:"method" json:"method" yaml:"method"`

	// Phone is the account number, required for "code".
	Phone string `koanf:"phone" json:"phone" yaml:"phone"`

	// QRFile, when set, also receives each QR code as a PNG.
	QRFile string `koanf:"qr_file" json:"qr_file" yaml:"qr_file"`
}

// HTTPSection configures the liveness and metrics endpoint.
type HTTPSection struct {
	Enabled bool   `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Addr    string `koanf:"addr" json:"addr" yaml:"addr"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Format string `koanf:"format" json:"format" yaml:"format"`
}
