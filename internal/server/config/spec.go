// Package config defines the server configuration structure.
package config

import "time"

// ServerConfig is the root configuration for tabsess-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Storage  StorageSection  `koanf:"storage"`
	Session  SessionSection  `koanf:"session"`
	Snapshot SnapshotSection `koanf:"snapshot"`
	Security SecuritySection `koanf:"security"`
	Log      LogSection      `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP HTTPConfig `koanf:"http"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr        string `koanf:"addr"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`

	// RateLimitRPS caps requests per second per client; zero disables
	// rate limiting.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`
}

// StorageSection configures the cache backend.
type StorageSection struct {
	// Backend selects the cache implementation: "memory" or "badger".
	Backend string `koanf:"backend"`

	// DataDir is the on-disk location for the badger backend.
	DataDir string `koanf:"data_dir"`

	// GCInterval is the badger value-log GC period.
	GCInterval time.Duration `koanf:"gc_interval"`

	// JanitorInterval is the memory backend's sweep period.
	JanitorInterval time.Duration `koanf:"janitor_interval"`
}

// SessionSection configures session lifecycle behavior.
type SessionSection struct {
	// DefaultTTL is applied when a client does not request one.
	DefaultTTL time.Duration `koanf:"default_ttl"`

	// MaxTTL caps client-requested TTLs.
	MaxTTL time.Duration `koanf:"max_ttl"`

	// MaxHistoryDepth bounds retained undo history per session.
	MaxHistoryDepth int `koanf:"max_history_depth"`

	// MaxPerOwner bounds concurrent sessions per owner.
	MaxPerOwner int `koanf:"max_per_owner"`
}

// SnapshotSection configures the snapshot codec.
type SnapshotSection struct {
	// CompressThreshold is the body size in bytes above which snapshot
	// payloads are compressed. Negative disables compression.
	CompressThreshold int `koanf:"compress_threshold"`
}

// SecuritySection configures security settings.
type SecuritySection struct {
	// EncryptionKey, when set, seals snapshots at rest. Hex-encoded,
	// 32 bytes once decoded.
	EncryptionKey string `koanf:"encryption_key"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
