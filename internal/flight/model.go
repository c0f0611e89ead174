// Package flight holds the stored records of a decoded telemetry session.
package flight

import (
	"time"
)

// Kind tells recorded files and live links apart.
type Kind string

const (
	KindFile Kind = "file"
	KindLive Kind = "live"
)

// Session represents one decoded recording or one live gathering run.
type Session struct {
	ID        int64     `json:"id"`                      // Unique identifier for the session
	StartTime time.Time `json:"startTime"`               // When decoding or gathering began
	Kind      Kind      `json:"kind"`                    // File or live
	Source    string    `json:"source"`                  // File path or serial port
	Format    string    `json:"format"`                  // Container format, "live" for a link
	Sensors   string    `json:"sensors"`                 // Detection signature, e.g. [RECEIVER,VARIO]
	Plan      string    `json:"plan"`                    // Decode plan
	Channels  bool      `json:"channels"`                // Channel plan layout
	Config    *string   `json:"config,string,omitempty"` // Optional decoder configuration in JSON format

	Summary *Summary `json:"summary,omitempty"` // Set once the session is finished
}

// Summary holds the statistics of a finished session.
type Summary struct {
	// Detection resolved while decoding, it replaces the one the session was
	// created with unless empty.
	Sensors string `json:"sensors,omitempty"`
	Plan    string `json:"plan,omitempty"`

	Blocks      int64   `json:"blocks"`
	Lost        int64   `json:"lost"`
	LossPercent float64 `json:"lossPercent"`
	Emitted     int64   `json:"emitted"`
	DurationMs  int64   `json:"durationMs"`

	// Loss runs, in blocks
	LossRuns      int64   `json:"lossRuns"`
	LossRunMin    int     `json:"lossRunMin"`
	LossRunMax    int     `json:"lossRunMax"`
	LossRunMean   float64 `json:"lossRunMean"`
	LossRunStdDev float64 `json:"lossRunStdDev"`

	// Sampling, zero when decoded at full rate
	SampledReadings int64 `json:"sampledReadings"`
	SampledSlots    int64 `json:"sampledSlots"`
}

// SensorStat counts the parse outcomes of one sensor in a session.
type SensorStat struct {
	Sensor     string `json:"sensor"`
	Accepted   int64  `json:"accepted"`
	Rejected   int64  `json:"rejected"`
	Migrations int64  `json:"migrations"`
}

// LapKind marks the best and average entries next to numbered laps.
type LapKind string

const (
	LapRegular LapKind = "lap"
	LapBest    LapKind = "best"
	LapAverage LapKind = "average"
)

// Lap is one lap time of an X recording.
type Lap struct {
	Number int           `json:"number"` // 1-based, zero for best and average
	Kind   LapKind       `json:"kind"`
	Time   time.Duration `json:"time"`
}

// Sample is a stored point vector at a session time.
type Sample struct {
	TimeMs int64 `json:"timeMs"`
	Points []int `json:"points"`
}
