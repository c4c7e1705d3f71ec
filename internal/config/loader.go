package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Loader loads configuration for one project root.
type Loader struct {
	rootDir    string
	configFile string
}

// NewLoader creates a loader that searches rootDir for .autodoc.yml or
// .autodoc.yaml. A non-empty configFile is used instead of the search.
func NewLoader(rootDir, configFile string) *Loader {
	return &Loader{rootDir: rootDir, configFile: configFile}
}

// Load applies, lowest priority first: defaults, the config file,
// AUTODOC_* environment variables. A .env file in the root directory is
// loaded into the environment first; variables already set win.
func (l *Loader) Load() (*Config, error) {
	if err := loadDotEnv(l.rootDir); err != nil {
		return nil, err
	}

	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName(".autodoc")
		v.SetConfigType("yaml")
		v.AddConfigPath(l.rootDir)
	}

	v.SetEnvPrefix("AUTODOC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadDotEnv(rootDir string) error {
	if rootDir == "" {
		return nil
	}
	path := filepath.Join(rootDir, ".env")
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("analysis.ignore_patterns", d.Analysis.IgnorePatterns)
	v.SetDefault("analysis.max_file_size", d.Analysis.MaxFileSize)
	v.SetDefault("analysis.workers", d.Analysis.Workers)
	v.SetDefault("analysis.fail_fast", d.Analysis.FailFast)

	v.SetDefault("storage.path", d.Storage.Path)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("report.top", d.Report.Top)
}

// LoadFromDir loads configuration for rootDir using the default search.
func LoadFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir, "").Load()
}
