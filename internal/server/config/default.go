// Package config defines the server configuration structure.
package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr = "127.0.0.1:5080"

	DefaultBackend         = "memory"
	DefaultDataDir         = "/var/lib/tabsess-server/data"
	DefaultGCInterval      = 5 * time.Minute
	DefaultJanitorInterval = 30 * time.Second

	DefaultSessionTTL      = 30 * time.Minute
	DefaultMaxSessionTTL   = 24 * time.Hour
	DefaultMaxHistoryDepth = 64
	DefaultMaxPerOwner     = 20

	DefaultCompressThreshold = 4096

	DefaultRateLimitRPS   = 50
	DefaultRateLimitBurst = 100

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:           DefaultHTTPAddr,
				RateLimitRPS:   DefaultRateLimitRPS,
				RateLimitBurst: DefaultRateLimitBurst,
			},
		},
		Storage: StorageSection{
			Backend:         DefaultBackend,
			DataDir:         DefaultDataDir,
			GCInterval:      DefaultGCInterval,
			JanitorInterval: DefaultJanitorInterval,
		},
		Session: SessionSection{
			DefaultTTL:      DefaultSessionTTL,
			MaxTTL:          DefaultMaxSessionTTL,
			MaxHistoryDepth: DefaultMaxHistoryDepth,
			MaxPerOwner:     DefaultMaxPerOwner,
		},
		Snapshot: SnapshotSection{
			CompressThreshold: DefaultCompressThreshold,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
