package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyStorageDefaults(&cfg.Storage)
	applyMetadataDefaults(&cfg.Metadata)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets HTTP server defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":3000"
	}

	// Uploads can be large, so the read and write timeouts are generous
	// but still bounded.
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 15 * time.Minute
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 15 * time.Minute
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 512 * 1024 * 1024 // 512MB
	}
}

// applyStorageDefaults sets storage layout defaults.
func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.Root == "" {
		cfg.Root = "./storage"
	}
	if cfg.MetadataFile == "" {
		cfg.MetadataFile = "./file-metadata.json"
	}
	if cfg.ProfilePicturesDir == "" {
		cfg.ProfilePicturesDir = "./profile-pictures"
	}
	if cfg.TempSweepInterval == 0 {
		cfg.TempSweepInterval = 10 * time.Minute
	}
	if cfg.TempMaxAge == 0 {
		cfg.TempMaxAge = 30 * time.Minute
	}
}

// applyMetadataDefaults sets metadata store defaults.
func applyMetadataDefaults(cfg *MetadataConfig) {
	if cfg.Type == "" {
		cfg.Type = "jsonfile"
	}

	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = "./file-metadata-db"
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Metadata: MetadataConfig{
			Badger: make(map[string]any),
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
