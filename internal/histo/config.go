package histo

import "errors"

// DefaultBudget is the number of slots a file is sampled into when none is configured.
const DefaultBudget = 10000

// Config configures a Sampler.
type Config struct {
	// Budget is the number of output slots, the target sample count.
	Budget int `yaml:"budget" json:"budget"`

	// Threshold is the deviation, in per mille of a channel's range, beyond
	// which a slot extremum is emitted next to the slot representative. Zero
	// emits only extrema reaching the global bounds.
	Threshold int `yaml:"thresholdPermille" json:"thresholdPermille"`

	// Seed makes the representative selection reproducible. Zero picks a
	// random seed.
	Seed uint64 `yaml:"seed" json:"seed"`
}

func (c *Config) Validate() error {
	if c.Budget <= 0 {
		return errors.New("histo.Config: budget must be positive")
	}
	if c.Threshold < 0 || c.Threshold > 1000 {
		return errors.New("histo.Config: threshold must be within 0..1000 per mille")
	}
	return nil
}
