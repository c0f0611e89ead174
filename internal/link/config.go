package link

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaudRate           = 115200
	DefaultReadTimeout        = 400 * time.Millisecond
	DefaultQueryGap           = 10 * time.Millisecond
	DefaultTimeStep           = 100 * time.Millisecond
	DefaultRetries            = 1
	DefaultTransferErrorLimit = 1000
)

// Duration is a time.Duration written as "400ms", "1s" and so on in config files.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("link.Duration: failed to parse: %s", err)
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalJSON(bytes []byte) error {
	var v string
	if err := json.Unmarshal(bytes, &v); err != nil {
		return err
	}

	duration, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("link.Duration: failed to parse: %s", err)
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d Duration) Validate() error {
	if d < 0 {
		return fmt.Errorf("link.Duration: must not be negative: %s", d)
	}
	return nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Config is the live link configuration.
type Config struct {
	Port     string `yaml:"port" json:"port"`
	BaudRate int    `yaml:"baudRate" json:"baudRate"`

	ReadTimeout Duration `yaml:"readTimeout" json:"readTimeout"`
	QueryGap    Duration `yaml:"queryGap" json:"queryGap"` // pause between the receiver and the sensor query
	TimeStep    Duration `yaml:"timeStep" json:"timeStep"` // one receiver and one sensor query per step

	// Retries is the number of repeated queries after a timeout before the
	// frame counts as lost.
	Retries            int `yaml:"retries" json:"retries"`
	TransferErrorLimit int `yaml:"transferErrorLimit" json:"transferErrorLimit"`
	ProbeAttempts      int `yaml:"probeAttempts" json:"probeAttempts"`
}

// DefaultConfig returns the timings of the HoTT USB adapter.
func DefaultConfig() Config {
	return Config{
		BaudRate:           DefaultBaudRate,
		ReadTimeout:        Duration(DefaultReadTimeout),
		QueryGap:           Duration(DefaultQueryGap),
		TimeStep:           Duration(DefaultTimeStep),
		Retries:            DefaultRetries,
		TransferErrorLimit: DefaultTransferErrorLimit,
		ProbeAttempts:      3,
	}
}

func (c *Config) Validate() error {
	if c.BaudRate <= 0 {
		return fmt.Errorf("link.Config: baud rate must be positive: %d", c.BaudRate)
	}
	for name, d := range map[string]Duration{"read timeout": c.ReadTimeout, "query gap": c.QueryGap, "time step": c.TimeStep} {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("link.Config: invalid %s: %w", name, err)
		}
	}
	if c.ReadTimeout == 0 {
		return fmt.Errorf("link.Config: read timeout must be set")
	}
	if c.QueryGap >= c.TimeStep {
		return fmt.Errorf("link.Config: query gap %s must be shorter than time step %s", c.QueryGap, c.TimeStep)
	}
	if c.Retries < 0 {
		return fmt.Errorf("link.Config: retries must not be negative: %d", c.Retries)
	}
	if c.TransferErrorLimit <= 0 {
		return fmt.Errorf("link.Config: transfer error limit must be positive: %d", c.TransferErrorLimit)
	}
	if c.ProbeAttempts < 0 {
		return fmt.Errorf("link.Config: probe attempts must not be negative: %d", c.ProbeAttempts)
	}
	return nil
}
