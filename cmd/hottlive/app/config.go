package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/hott-telemetry/internal/hott"
	"github.com/roman-kulish/hott-telemetry/internal/link"
	"github.com/roman-kulish/hott-telemetry/internal/logging"
)

const (
	defaultDatabase       = "hott.sqlite"
	defaultReportInterval = 5 * time.Second
)

// Config represents the main application configuration
type Config struct {
	Settings logging.Settings  `yaml:"settings"`
	Link     link.Config       `yaml:"link"`
	Filter   hott.FilterConfig `yaml:"filter"`
	Storage  StorageConfig     `yaml:"storage"`

	// Sensors skips probing and queries the listed sensors.
	Sensors *hott.Detection `yaml:"sensors"`

	// ReportInterval is how often the latest telemetry is logged. Zero
	// disables it.
	ReportInterval link.Duration `yaml:"reportInterval"`
}

// StorageConfig represents storage settings
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
	Database      string `yaml:"database"`
	MaxBatchSize  int    `yaml:"maxBatchSize"`
}

// LoadConfig reads and validates a configuration file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	config := Config{
		Link:           link.DefaultConfig(),
		Filter:         hott.DefaultFilterConfig(),
		ReportInterval: link.Duration(defaultReportInterval),
	}
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
	if c.Link.Port == "" {
		return errors.New("app.Config: link port is required")
	}
	if err := c.Link.Validate(); err != nil {
		return err
	}
	if err := c.Filter.Validate(); err != nil {
		return err
	}
	if err := c.ReportInterval.Validate(); err != nil {
		return fmt.Errorf("app.Config: invalid report interval: %w", err)
	}
	if c.Storage.Database == "" {
		c.Storage.Database = defaultDatabase
	}
	if c.Storage.MaxBatchSize < 0 {
		return errors.New("app.StorageConfig: max batch size must not be negative")
	}
	return nil
}
