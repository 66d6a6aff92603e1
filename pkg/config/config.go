package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete coursestore configuration.
//
// This structure captures all configurable aspects of the server including:
//   - Logging configuration
//   - HTTP server settings
//   - Storage layout settings
//   - Metadata store selection and configuration (store-specific)
//
// Configuration sources (in order of precedence):
//  1. Environment variables (COURSESTORE_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each metadata store implementation defines its own configuration section.
// Only the section matching the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains HTTP server settings
	Server ServerConfig `mapstructure:"server"`

	// Storage contains on-disk layout settings
	Storage StorageConfig `mapstructure:"storage"`

	// Metadata specifies the metadata store type and type-specific configuration
	Metadata MetadataConfig `mapstructure:"metadata"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// ListenAddress is the address the HTTP server binds to (e.g., ":3000")
	ListenAddress string `mapstructure:"listen_address" validate:"required"`

	// ReadTimeout is the maximum duration for reading an entire request,
	// including large multipart upload bodies
	ReadTimeout time.Duration `mapstructure:"read_timeout" validate:"required,gt=0"`

	// WriteTimeout is the maximum duration before timing out response writes
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"required,gt=0"`

	// IdleTimeout is the maximum time to wait for the next request on a
	// keep-alive connection
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"required,gt=0"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`

	// MaxUploadBytes caps the size of a single upload request body
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" validate:"required,gt=0"`
}

// StorageConfig contains on-disk layout settings.
type StorageConfig struct {
	// Root is the directory all subject trees live under
	Root string `mapstructure:"root" validate:"required"`

	// MetadataFile is the JSON file holding per-file titles and descriptions
	// (only used when the metadata store type is "jsonfile")
	MetadataFile string `mapstructure:"metadata_file" validate:"required"`

	// ProfilePicturesDir is the directory user profile pictures are stored in
	ProfilePicturesDir string `mapstructure:"profile_pictures_dir" validate:"required"`

	// TempSweepInterval is how often the temp directory is swept
	TempSweepInterval time.Duration `mapstructure:"temp_sweep_interval" validate:"required,gt=0"`

	// TempMaxAge is how old a temp file must be before a sweep removes it
	TempMaxAge time.Duration `mapstructure:"temp_max_age" validate:"required,gt=0"`
}

// MetadataConfig specifies metadata store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type MetadataConfig struct {
	// Type specifies which metadata store implementation to use
	// Valid values: jsonfile, badger
	Type string `mapstructure:"type" validate:"required,oneof=jsonfile badger"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (COURSESTORE_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use COURSESTORE_ prefix and underscores
	// Example: COURSESTORE_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("COURSESTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/coursestore/config.{yaml,toml}
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper, configPath string) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is acceptable - use defaults
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "coursestore")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "coursestore")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
