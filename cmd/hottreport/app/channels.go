package app

import (
	"fmt"
	"math"

	"github.com/roman-kulish/hott-telemetry/internal/binlog"
	"github.com/roman-kulish/hott-telemetry/internal/flight"
	"github.com/roman-kulish/hott-telemetry/internal/hott"
)

var baseNames = []string{
	"loss",
	"rx.rxsq", "rx.strength", "rx.vpacks", "rx.tx", "rx.rx", "rx.voltage", "rx.temperature", "rx.voltageMin", "rx.event",
	"altitude", "climb1", "climb3", "climb10", "vario.event",
	"gps.latitude", "gps.longitude", "gps.velocity", "gps.distance", "gps.direction", "gps.trip", "gps.sats", "gps.fix", "gps.event",
	"gam.voltage", "gam.current", "gam.capacity", "gam.power", "gam.balance",
	"gam.cell1", "gam.cell2", "gam.cell3", "gam.cell4", "gam.cell5", "gam.cell6",
	"gam.revolution", "gam.fuel", "gam.voltage1", "gam.voltage2", "gam.temperature1", "gam.temperature2",
	"gam.speed", "gam.lowestCell", "gam.lowestCellNumber", "gam.pressure", "gam.event",
	"eam.voltage", "eam.current", "eam.capacity", "eam.power", "eam.balance",
}

var escNames = []string{
	"esc.voltage", "esc.current", "esc.capacity", "esc.power", "esc.revolution", "esc.fetTemperature",
	"esc.motorTemperature", "esc.voltageMin", "esc.currentMax", "esc.revolutionMax",
	"esc.fetTemperatureMax", "esc.motorTemperatureMax", "esc.event",
}

var xNames = []string{
	"loss", "rx.rxsq", "rx.strength", "rx.vpacks", "rx.tx", "rx.rx", "rx.voltage", "rx.temperature", "rx.voltageMin",
	"esc.voltage", "esc.voltageMin", "esc.current", "esc.currentMax", "esc.capacity", "esc.power",
	"esc.revolution", "esc.revolutionMax", "esc.temperature", "esc.temperatureMax",
	"esc.motorTemperature", "esc.motorTemperatureMax", "esc.speed", "esc.speedMax",
	"ch.frequency", "ch.tx", "ch.rx", "ch1", "ch2", "ch3", "ch4",
}

// channelNames names the points of a stored session vector.
func channelNames(s *flight.Session) []string {
	if s.Format == binlog.FormatX.String() {
		return xNames[:binlog.XSize(s.Channels)]
	}

	layout := hott.Layout{Channels: s.Channels}
	names := make([]string, 0, layout.Size())
	names = append(names, baseNames...)
	for i := 1; i <= 14; i++ {
		names = append(names, fmt.Sprintf("eam.cell%d", i))
	}
	names = append(names, "eam.voltage1", "eam.voltage2", "eam.temperature1", "eam.temperature2",
		"eam.revolution", "eam.motorTime", "eam.speed", "eam.event")
	if s.Channels {
		for i := 1; i <= 16; i++ {
			names = append(names, fmt.Sprintf("ch%d", i))
		}
		names = append(names, "ch.powerOff", "ch.batteryLow", "ch.reset", "ch.warning")
	}
	return append(names, escNames...)
}

// ChannelStat holds the range of one point over a session, in physical units.
type ChannelStat struct {
	Name string  `json:"name"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// ChannelData accumulates the stored samples of a session.
type ChannelData struct {
	Samples   int64
	TimeStart int64
	TimeEnd   int64
	Loss      *LossHistogram
	names     []string
	min, max  []int
	sum       []float64
}

func NewChannelData(names []string) *ChannelData {
	return &ChannelData{
		Loss:  NewLossHistogram(),
		names: names,
		min:   make([]int, len(names)),
		max:   make([]int, len(names)),
		sum:   make([]float64, len(names)),
	}
}

func (c *ChannelData) Update(s *flight.Sample) {
	if c.Samples == 0 {
		c.TimeStart = s.TimeMs
		for i := range c.min {
			c.min[i], c.max[i] = math.MaxInt, math.MinInt
		}
	}
	c.Samples++
	c.TimeEnd = s.TimeMs

	for i, v := range s.Points[:min(len(s.Points), len(c.names))] {
		c.min[i] = min(c.min[i], v)
		c.max[i] = max(c.max[i], v)
		c.sum[i] += float64(v)
	}
	if len(s.Points) > 0 {
		c.Loss.Update(s.Points[hott.PointLoss] / 1000)
	}
}

// Stats lists the channels that moved off zero during the session.
func (c *ChannelData) Stats(all bool) []ChannelStat {
	if c.Samples == 0 {
		return nil
	}
	var out []ChannelStat
	for i, name := range c.names {
		if !all && c.min[i] == 0 && c.max[i] == 0 {
			continue
		}
		out = append(out, ChannelStat{
			Name: name,
			Min:  float64(c.min[i]) / 1000,
			Max:  float64(c.max[i]) / 1000,
			Mean: c.sum[i] / float64(c.Samples) / 1000,
		})
	}
	return out
}
