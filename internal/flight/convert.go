package flight

import (
	"sort"

	"github.com/roman-kulish/hott-telemetry/internal/histo"
	"github.com/roman-kulish/hott-telemetry/internal/hott"
)

// NewSummary builds the stored summary of a decode session. sampling is nil
// for sessions decoded at full rate.
func NewSummary(d hott.Detection, st hott.Stats, sampling *histo.Stats) Summary {
	s := Summary{
		Sensors:       d.String(),
		Plan:          d.Plan().String(),
		Blocks:        st.Blocks,
		Lost:          st.Lost,
		LossPercent:   st.LossPercent,
		Emitted:       st.Emitted,
		DurationMs:    st.DurationMs,
		LossRuns:      st.Runs.Count,
		LossRunMin:    st.Runs.Min,
		LossRunMax:    st.Runs.Max,
		LossRunMean:   st.Runs.Mean(),
		LossRunStdDev: st.Runs.Sigma(),
	}
	if sampling != nil {
		s.Emitted = sampling.Emitted
		s.SampledReadings = sampling.Readings
		s.SampledSlots = sampling.Slots
	}
	return s
}

// NewSensorStats lists the per-sensor counters ordered by sensor.
func NewSensorStats(st hott.Stats) []SensorStat {
	ids := make([]hott.SensorID, 0, len(st.Sensors))
	for id := range st.Sensors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]SensorStat, 0, len(ids))
	for _, id := range ids {
		c := st.Sensors[id]
		out = append(out, SensorStat{
			Sensor:     id.String(),
			Accepted:   c.Accepted,
			Rejected:   c.Rejected,
			Migrations: c.Migrations,
		})
	}
	return out
}
