// Package config provides unified configuration for the Census tools.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration for all Census commands.
type Config struct {
	// DataDir is the base directory for all data files
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Load configuration for bulk generation
	Load LoadConfig `json:"load" yaml:"load"`

	// Snapshot configuration for archive export
	Snapshot SnapshotConfig `json:"snapshot" yaml:"snapshot"`

	// Storage configuration for the snapshot archive
	Storage StorageConfig `json:"storage" yaml:"storage"`
}

// LoadConfig holds bulk-load configuration.
type LoadConfig struct {
	// BatchSize is the number of records per atomic insert (default 1000)
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// GenerateCount is the number of random records to generate (default 1,000,000)
	GenerateCount int `json:"generate_count" yaml:"generate_count"`

	// TargetedCount is the size of the deliberately skewed subset (default 100)
	TargetedCount int `json:"targeted_count" yaml:"targeted_count"`

	// TargetLetter is the leading last-name letter of the targeted subset
	TargetLetter string `json:"target_letter" yaml:"target_letter"`

	// Seed seeds the random source; 0 selects a time-based seed
	Seed int64 `json:"seed" yaml:"seed"`
}

// SnapshotConfig holds snapshot archival configuration.
type SnapshotConfig struct {
	// WorkDir is the directory for snapshot work files
	WorkDir string `json:"work_dir" yaml:"work_dir"`
}

// StorageConfig holds archive storage configuration.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local archive path (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 archive configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// DefaultConfig returns the default configuration for local use.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data/census",
		Load: LoadConfig{
			BatchSize:     1000,
			GenerateCount: 1000000,
			TargetedCount: 100,
			TargetLetter:  "F",
		},
		Snapshot: SnapshotConfig{
			WorkDir: "",
		},
		Storage: StorageConfig{
			Type: "local",
			Path: "",
		},
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/census"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(c.DataDir, "archive")
	}
	if c.Snapshot.WorkDir == "" {
		c.Snapshot.WorkDir = filepath.Join(c.DataDir, "work")
	}
}

// DirectoryPath returns the path to the directory database.
func (c *Config) DirectoryPath() string {
	return filepath.Join(c.DataDir, "directory.db")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.Load.BatchSize < 1 {
		return fmt.Errorf("load.batch_size must be at least 1, got %d", c.Load.BatchSize)
	}
	if c.Load.GenerateCount < 0 {
		return fmt.Errorf("load.generate_count must not be negative, got %d", c.Load.GenerateCount)
	}
	if c.Load.TargetedCount < 0 {
		return fmt.Errorf("load.targeted_count must not be negative, got %d", c.Load.TargetedCount)
	}
	if len(c.Load.TargetLetter) != 1 {
		return fmt.Errorf("load.target_letter must be a single letter, got %q", c.Load.TargetLetter)
	}

	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return fmt.Errorf("invalid storage type: %s (must be local or s3)", c.Storage.Type)
	}
	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when storage type is s3")
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
// Environment variables use the CENSUS_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("CENSUS_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	// Load configuration
	if v := os.Getenv("CENSUS_BATCH_SIZE"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Load.BatchSize)
	}
	if v := os.Getenv("CENSUS_GENERATE_COUNT"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Load.GenerateCount)
	}
	if v := os.Getenv("CENSUS_TARGETED_COUNT"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Load.TargetedCount)
	}
	if v := os.Getenv("CENSUS_TARGET_LETTER"); v != "" {
		cfg.Load.TargetLetter = v
	}
	if v := os.Getenv("CENSUS_SEED"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Load.Seed)
	}

	// Storage configuration
	if v := os.Getenv("CENSUS_STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("CENSUS_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("CENSUS_S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("CENSUS_S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv("CENSUS_S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.DataDir,
		c.Snapshot.WorkDir,
	}
	if c.Storage.Type == "local" {
		dirs = append(dirs, c.Storage.Path)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
