package hott

import (
	"errors"
	"fmt"
)

// AltitudeSource selects which sensor feeds the shared altitude and climb channels.
type AltitudeSource string

const (
	AltitudeAuto  AltitudeSource = "auto"
	AltitudeVario AltitudeSource = "vario"
	AltitudeGPS   AltitudeSource = "gps"
	AltitudeGAM   AltitudeSource = "gam"
	AltitudeEAM   AltitudeSource = "eam"
)

var validAltitudeSources = map[AltitudeSource]SensorID{
	AltitudeVario: SensorVario,
	AltitudeGPS:   SensorGPS,
	AltitudeGAM:   SensorGAM,
	AltitudeEAM:   SensorEAM,
}

// FilterConfig holds the plausibility thresholds of the sensor parsers and the
// decode options of a session. The thresholds are empirical and tuned against
// recorded flights.
type FilterConfig struct {
	// Enabled turns on the validity predicates. When false every frame is accepted.
	Enabled bool `yaml:"enabled" json:"enabled"`

	LatitudeToleranceFactor  float64 `yaml:"latitudeToleranceFactor" json:"latitudeToleranceFactor"`
	LongitudeToleranceFactor float64 `yaml:"longitudeToleranceFactor" json:"longitudeToleranceFactor"`
	TolerateSignChangeLat    bool    `yaml:"tolerateSignChangeLatitude" json:"tolerateSignChangeLatitude"`
	TolerateSignChangeLon    bool    `yaml:"tolerateSignChangeLongitude" json:"tolerateSignChangeLongitude"`

	// CapacityWarmup is the number of emitted samples before the capacity jump
	// bound is enforced.
	CapacityWarmup int `yaml:"capacityWarmup" json:"capacityWarmup"`

	AltitudeSource AltitudeSource `yaml:"altitudeSource" json:"altitudeSource"`

	// Channels enables the channel plan: servo positions are decoded and a
	// sample is emitted for every block.
	Channels bool `yaml:"channels" json:"channels"`

	// SkipTextMode drops blocks flagged as text-mode screens without
	// advancing time.
	SkipTextMode bool `yaml:"skipTextMode" json:"skipTextMode"`
}

// DefaultFilterConfig returns the thresholds used when none are configured.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		Enabled:                  true,
		LatitudeToleranceFactor:  90,
		LongitudeToleranceFactor: 25,
		CapacityWarmup:           20,
		AltitudeSource:           AltitudeAuto,
		SkipTextMode:             true,
	}
}

func (c *FilterConfig) Validate() error {
	if c.LatitudeToleranceFactor <= 0 {
		return errors.New("hott.FilterConfig: latitude tolerance factor must be positive")
	}
	if c.LongitudeToleranceFactor <= 0 {
		return errors.New("hott.FilterConfig: longitude tolerance factor must be positive")
	}
	if c.CapacityWarmup < 0 {
		return errors.New("hott.FilterConfig: capacity warmup must not be negative")
	}
	if c.AltitudeSource == "" {
		c.AltitudeSource = AltitudeAuto
	}
	if _, ok := validAltitudeSources[c.AltitudeSource]; !ok && c.AltitudeSource != AltitudeAuto {
		return fmt.Errorf("hott.FilterConfig: invalid altitude source %q", c.AltitudeSource)
	}
	return nil
}

// writesAltitude reports whether a sensor may write the shared altitude channels.
func (c *FilterConfig) writesAltitude(s SensorID) bool {
	if c.AltitudeSource == AltitudeAuto || c.AltitudeSource == "" {
		return true
	}
	return validAltitudeSources[c.AltitudeSource] == s
}
