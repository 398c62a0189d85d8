// Package config provides configuration loading and structs for the doctext
// CLI, server and watcher.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hyperjump/doctext/internal/ocr"
	"gopkg.in/yaml.v3"
)

// EnvPreferOCR turns on OCR-first ordering when set to a true value.
const EnvPreferOCR = "DOCTEXT_PREFER_OCR"

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	OCR     ocr.Config    `yaml:"ocr"`
	Extract ExtractConfig `yaml:"extract"`
	Watch   WatchConfig   `yaml:"watch"`
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
	// OutputDir receives <name>.txt and <name>.json per extracted file. Empty disables it.
	OutputDir string `yaml:"output_dir"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the result database location.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ExtractConfig holds orchestrator settings.
type ExtractConfig struct {
	PreferOCR bool `yaml:"prefer_ocr"`
	// Workers bounds the OCR worker pool; 0 means one per CPU.
	Workers        int   `yaml:"workers"`
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// Load reads and parses the config file at path, expands paths, applies
// defaults and then environment overrides.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	ApplyEnv(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	if cfg.Watch.OutputDir != "" {
		cfg.Watch.OutputDir = expandPath(cfg.Watch.OutputDir, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Default returns a config with defaults and environment overrides applied,
// for running without a config file.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	ApplyEnv(&cfg)
	return &cfg
}

// Save writes the config to path. Used for persisting watch directory add/remove.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ApplyEnv overrides OCR and extraction settings from the environment.
func ApplyEnv(cfg *Config) {
	cfg.OCR.ApplyEnv()
	if v := strings.TrimSpace(os.Getenv(EnvPreferOCR)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Extract.PreferOCR = b
		}
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// paths starting with "~/" and other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, strings.TrimPrefix(path, "~/"))
	}
	return path
}
