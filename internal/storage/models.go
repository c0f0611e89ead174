package storage

import (
	"database/sql"
	"time"
)

type sessionData struct {
	ID        int64
	StartTime time.Time
	Kind      string
	Source    string
	Format    string
	Sensors   string
	Plan      string
	Channels  bool
	Config    sql.NullString
	Finished  bool

	Blocks          int64
	Lost            int64
	LossPercent     float64
	Emitted         int64
	DurationMs      int64
	LossRuns        int64
	LossRunMin      int
	LossRunMax      int
	LossRunMean     float64
	LossRunStdDev   float64
	SampledReadings int64
	SampledSlots    int64
}

type sampleData struct {
	TimeMs int64
	Points string
}
