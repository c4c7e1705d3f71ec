package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Config represents the complete autodoc configuration. It can be loaded
// from .autodoc.yml with AUTODOC_* environment variable overrides.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Storage  StorageConfig  `yaml:"storage" mapstructure:"storage"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Report   ReportConfig   `yaml:"report" mapstructure:"report"`
}

// AnalysisConfig controls which files are parsed and how.
type AnalysisConfig struct {
	IgnorePatterns []string `yaml:"ignore_patterns" mapstructure:"ignore_patterns"` // directory names, path prefixes or globs
	MaxFileSize    int64    `yaml:"max_file_size" mapstructure:"max_file_size"`     // bytes; larger files are skipped
	Workers        int      `yaml:"workers" mapstructure:"workers"`                 // parallel parse workers
	FailFast       bool     `yaml:"fail_fast" mapstructure:"fail_fast"`             // abort on the first failing file
}

// StorageConfig locates the entity database.
type StorageConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // empty means <root>/.autodoc/entities.db
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // "text" or "json"
}

// ReportConfig configures the markdown summary.
type ReportConfig struct {
	Top int `yaml:"top" mapstructure:"top"` // most complex entities to list
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			IgnorePatterns: []string{},
			MaxFileSize:    1 << 20,
			Workers:        runtime.NumCPU(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Report: ReportConfig{
			Top: 10,
		},
	}
}

var validLevels = []string{"trace", "debug", "info", "warn", "warning", "error", "fatal", "panic"}

// Validate reports every invalid field at once.
func Validate(cfg *Config) error {
	var errs []error
	if cfg.Analysis.MaxFileSize <= 0 {
		errs = append(errs, fmt.Errorf("analysis.max_file_size must be positive, got %d", cfg.Analysis.MaxFileSize))
	}
	if cfg.Analysis.Workers < 0 {
		errs = append(errs, fmt.Errorf("analysis.workers must not be negative, got %d", cfg.Analysis.Workers))
	}
	if !contains(validLevels, strings.ToLower(cfg.Log.Level)) {
		errs = append(errs, fmt.Errorf("log.level %q is not one of %s", cfg.Log.Level, strings.Join(validLevels, ", ")))
	}
	if f := strings.ToLower(cfg.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", cfg.Log.Format))
	}
	if cfg.Report.Top < 0 {
		errs = append(errs, fmt.Errorf("report.top must not be negative, got %d", cfg.Report.Top))
	}
	return errors.Join(errs...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
