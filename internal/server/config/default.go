package config

import "time"

// Default configuration values.
const (
	DefaultName          = "Fergando-MD"
	DefaultCommandPrefix = "."
	DefaultMode          = "public"

	DefaultDedupWindow  = 10 * time.Minute
	DefaultDedupMaxSize = 4096

	DefaultStorageBackend   = "file"
	DefaultSessionPath      = "./session"
	DefaultBadgerGCInterval = 10 * time.Minute

	DefaultReconnectBaseDelay = 5 * time.Second
	DefaultReconnectMaxDelay  = 5 * time.Minute
	DefaultRateLimitMinDelay  = 30 * time.Second

	DefaultTransportURL     = "ws://127.0.0.1:8765/bridge"
	DefaultSendRate         = 1.0
	DefaultSendBurst        = 5
	DefaultHandshakeTimeout = 20 * time.Second
	DefaultPingInterval     = 30 * time.Second
	DefaultReadTimeout      = 60 * time.Second

	DefaultPairingMethod = "qr"

	DefaultHTTPAddr = "0.0.0.0:8000"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Bot: BotSection{
			Name:          DefaultName,
			CommandPrefix: DefaultCommandPrefix,
			Mode:          DefaultMode,
			DedupWindow:   DefaultDedupWindow,
			DedupMaxSize:  DefaultDedupMaxSize,
		},
		Session: SessionSection{
			Storage: StorageSection{
				Backend:          DefaultStorageBackend,
				Path:             DefaultSessionPath,
				BadgerGCInterval: DefaultBadgerGCInterval,
			},
			Reconnect: ReconnectSection{
				BaseDelay:         DefaultReconnectBaseDelay,
				MaxDelay:          DefaultReconnectMaxDelay,
				RateLimitMinDelay: DefaultRateLimitMinDelay,
			},
		},
		Transport: TransportSection{
			URL:              DefaultTransportURL,
			SendRate:         DefaultSendRate,
			SendBurst:        DefaultSendBurst,
			HandshakeTimeout: DefaultHandshakeTimeout,
			PingInterval:     DefaultPingInterval,
			ReadTimeout:      DefaultReadTimeout,
		},
		Pairing: PairingSection{
			Method: DefaultPairingMethod,
		},
		HTTP: HTTPSection{
			Enabled: true,
			Addr:    DefaultHTTPAddr,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
