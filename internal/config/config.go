// Package config provides configuration management for notekiln using Viper
// for flexible loading from files, environment variables, and command-line
// flags.
//
// The configuration system supports YAML files, environment variable
// overrides with NOTEKILN_ prefix, validation, and security checks. It
// manages the output location, notebook source directories, template
// selection, converter behavior, and audit logging.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/notekiln/notekiln/internal/validation"
)

type Config struct {
	Output        string        `mapstructure:"output"`
	Template      string        `mapstructure:"template"`
	Notebooks     string        `mapstructure:"notebooks"`
	Apps          string        `mapstructure:"apps"`
	NotebooksWasm string        `mapstructure:"notebooks_wasm"`
	Sandbox       bool          `mapstructure:"sandbox"`
	Parallel      bool          `mapstructure:"parallel"`
	MaxWorkers    int           `mapstructure:"max_workers"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxFileSizeMB int           `mapstructure:"max_file_size_mb"`
	BinPath       string        `mapstructure:"bin_path"`
	Audit         AuditConfig   `mapstructure:"audit"`
	Log           LogConfig     `mapstructure:"log"`
}

type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	LogFile string `mapstructure:"log_file"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Output == "" {
		config.Output = "_site"
	}
	if config.Notebooks == "" && !viper.IsSet("notebooks") {
		config.Notebooks = "notebooks"
	}
	if config.Apps == "" && !viper.IsSet("apps") {
		config.Apps = "apps"
	}
	if config.NotebooksWasm == "" && !viper.IsSet("notebooks_wasm") {
		config.NotebooksWasm = "notebooks_wasm"
	}
	if !viper.IsSet("sandbox") {
		config.Sandbox = true
	}
	if config.MaxWorkers == 0 {
		config.MaxWorkers = 4
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Minute
	}
	if config.MaxFileSizeMB == 0 {
		config.MaxFileSizeMB = 10
	}
	if config.Audit.LogFile == "" {
		config.Audit.LogFile = ".notekiln-audit.log"
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}
}

// MaxFileSize returns the configured template/notebook size ceiling in bytes.
func (c *Config) MaxFileSize() int64 {
	return int64(c.MaxFileSizeMB) << 20
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validatePath(config.Output, "output"); err != nil {
		return err
	}
	for _, dir := range []struct{ name, path string }{
		{"notebooks", config.Notebooks},
		{"apps", config.Apps},
		{"notebooks_wasm", config.NotebooksWasm},
	} {
		if dir.path == "" {
			continue
		}
		if err := validatePath(dir.path, dir.name); err != nil {
			return err
		}
	}

	if config.Template != "" {
		if err := validatePath(config.Template, "template"); err != nil {
			return err
		}
	}

	if config.MaxWorkers < 0 {
		return fmt.Errorf("max_workers must be positive, got %d", config.MaxWorkers)
	}
	config.MaxWorkers = validation.ValidateMaxWorkers(config.MaxWorkers)

	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %s", config.Timeout)
	}
	if config.MaxFileSizeMB < 0 {
		return fmt.Errorf("max_file_size_mb must be positive, got %d", config.MaxFileSizeMB)
	}

	if config.BinPath != "" {
		fi, err := os.Stat(config.BinPath)
		if err != nil {
			return fmt.Errorf("bin_path does not exist: %s", config.BinPath)
		}
		if !fi.IsDir() {
			return fmt.Errorf("bin_path is not a directory: %s", config.BinPath)
		}
	}

	switch config.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log format must be text or json, got %q", config.Log.Format)
	}

	return nil
}

// validatePath validates a configured directory or file path for security
func validatePath(path, field string) error {
	if path == "" {
		return fmt.Errorf("%s path is empty", field)
	}

	cleanPath := filepath.Clean(path)

	// Reject dangerous characters
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("%s path contains dangerous character: %s", field, char)
		}
	}

	if strings.ContainsRune(cleanPath, 0) {
		return fmt.Errorf("%s path contains null byte", field)
	}

	return nil
}
