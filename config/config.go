// Package config provides file and environment configuration for opening a
// kladov database.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/drpcorg/kladov"
	"github.com/drpcorg/kladov/encodings"
	"github.com/drpcorg/kladov/kv/pebblekv"
	"github.com/drpcorg/kladov/schema"
	"github.com/drpcorg/kladov/utils"
	"gopkg.in/yaml.v3"
)

// Config holds the settings of one database instance.
type Config struct {
	// DataDir is the pebble directory; ignored when InMemory is set
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// InMemory keeps all data in memory
	InMemory bool `json:"in_memory" yaml:"in_memory"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `json:"log_level" yaml:"log_level"`

	// SchemaFile is the YAML schema document
	SchemaFile string `json:"schema_file" yaml:"schema_file"`

	// Pebble storage configuration
	Pebble PebbleConfig `json:"pebble" yaml:"pebble"`
}

// PebbleConfig holds storage engine tuning.
type PebbleConfig struct {
	// CacheSizeMB is the block cache size in megabytes
	CacheSizeMB int64 `json:"cache_size_mb" yaml:"cache_size_mb"`

	// Sync makes every commit durable before it returns
	Sync bool `json:"sync" yaml:"sync"`
}

// DefaultConfig returns the default configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		DataDir:  "./data/kladov",
		LogLevel: "warn",
		Pebble: PebbleConfig{
			CacheSizeMB: 64,
			Sync:        true,
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.InMemory && c.DataDir == "" {
		return fmt.Errorf("data_dir is required unless in_memory is set")
	}
	if _, err := utils.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	if c.SchemaFile == "" {
		return fmt.Errorf("schema_file is required")
	}
	if c.Pebble.CacheSizeMB < 0 {
		return fmt.Errorf("pebble.cache_size_mb must not be negative, got %d", c.Pebble.CacheSizeMB)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the KLADOV_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("KLADOV_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("KLADOV_IN_MEMORY"); v != "" {
		cfg.InMemory = v == "true" || v == "1"
	}
	if v := os.Getenv("KLADOV_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("KLADOV_SCHEMA_FILE"); v != "" {
		cfg.SchemaFile = v
	}

	// Pebble configuration
	if v := os.Getenv("KLADOV_PEBBLE_CACHE_SIZE_MB"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Pebble.CacheSizeMB = n
		}
	}
	if v := os.Getenv("KLADOV_PEBBLE_SYNC"); v != "" {
		cfg.Pebble.Sync = v == "true" || v == "1"
	}
}

// EnsureDirectories creates the data directory.
func (c *Config) EnsureDirectories() error {
	if c.InMemory || c.DataDir == "" {
		return nil
	}
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", c.DataDir, err)
	}
	return nil
}

// Options reads the schema file and builds the database options. A nil
// registry gets the built-in encodings.
func (c *Config) Options(reg *encodings.Registry) (kladov.Options, error) {
	if reg == nil {
		reg = encodings.NewRegistry()
	}
	level, err := utils.ParseLevel(c.LogLevel)
	if err != nil {
		return kladov.Options{}, err
	}
	data, err := os.ReadFile(c.SchemaFile)
	if err != nil {
		return kladov.Options{}, fmt.Errorf("failed to read schema file: %w", err)
	}
	s, err := schema.LoadYAML(data, reg)
	if err != nil {
		return kladov.Options{}, err
	}
	return kladov.Options{
		Logger:   utils.NewDefaultLogger(level),
		Registry: reg,
		Schema:   s,
		Pebble: pebblekv.Options{
			InMemory:  c.InMemory,
			CacheSize: c.Pebble.CacheSizeMB << 20,
			Sync:      c.Pebble.Sync,
		},
	}, nil
}

// Open validates the configuration and opens the database it describes.
func Open(c *Config) (*kladov.DB, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := c.EnsureDirectories(); err != nil {
		return nil, err
	}
	opts, err := c.Options(nil)
	if err != nil {
		return nil, err
	}
	return kladov.Open(c.DataDir, opts)
}
