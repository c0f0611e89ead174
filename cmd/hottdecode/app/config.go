package app

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/hott-telemetry/internal/histo"
	"github.com/roman-kulish/hott-telemetry/internal/hott"
	"github.com/roman-kulish/hott-telemetry/internal/logging"
)

const defaultDatabase = "hott.sqlite"

// Config represents the main application configuration
type Config struct {
	Settings logging.Settings `yaml:"settings"`
	Files    []string         `yaml:"files"` // file paths or glob patterns
	Decoder  DecoderConfig    `yaml:"decoder"`
	Storage  StorageConfig    `yaml:"storage"`
	Cache    CacheConfig      `yaml:"cache"`
	Workers  int              `yaml:"workers"`
}

// DecoderConfig represents decoder settings
type DecoderConfig struct {
	Filter hott.FilterConfig `yaml:"filter"`

	// Sampling reduces every file to a bounded number of samples. Files are
	// decoded at full rate when omitted.
	Sampling *histo.Config `yaml:"sampling"`
}

// StorageConfig represents storage settings
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
	Database      string `yaml:"database"`
	MaxBatchSize  int    `yaml:"maxBatchSize"`
}

// CacheConfig represents the file-info cache settings
type CacheConfig struct {
	Path    string `yaml:"path"`
	Enabled bool   `yaml:"enabled"`
}

// LoadConfig reads and validates a configuration file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	config := Config{Decoder: DecoderConfig{Filter: hott.DefaultFilterConfig()}}
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err = dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	if err = config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if err := c.Settings.Validate(); err != nil {
		return err
	}
	if len(c.Files) == 0 {
		return errors.New("app.Config: no files configured")
	}
	if err := c.Decoder.Filter.Validate(); err != nil {
		return err
	}
	if c.Decoder.Sampling != nil {
		if err := c.Decoder.Sampling.Validate(); err != nil {
			return err
		}
	}
	if c.Storage.Database == "" {
		c.Storage.Database = defaultDatabase
	}
	if c.Storage.MaxBatchSize < 0 {
		return errors.New("app.StorageConfig: max batch size must not be negative")
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		return errors.New("app.CacheConfig: path is required when the cache is enabled")
	}
	if c.Workers < 0 {
		return errors.New("app.Config: workers must not be negative")
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	return nil
}
