package binlog

import (
	"context"
	"io"
	"log/slog"

	"github.com/roman-kulish/hott-telemetry/internal/hott"
	"github.com/roman-kulish/hott-telemetry/internal/hott/loss"
)

// Point indices of the X variant vector.
const (
	XPointLoss = iota
	XPointRXSQ
	XPointStrength
	XPointVPacks
	XPointTx
	XPointRx
	XPointVoltageRx
	XPointTemperatureRx
	XPointVoltageRxMin
	XPointESCVoltage
	XPointESCVoltageMin
	XPointESCCurrent
	XPointESCCurrentMax
	XPointESCCapacity
	XPointESCPower
	XPointESCRevolution
	XPointESCRevolutionMax
	XPointESCTemperature
	XPointESCTemperatureMax
	XPointESCMotorTemperature
	XPointESCMotorTemperatureMax
	XPointESCSpeed
	XPointESCSpeedMax

	// Channel points follow the telemetry points when channels are decoded.
	XPointChannelFrequency
	XPointChannelTx
	XPointChannelRx
	XPointChannel1
	XPointChannel2
	XPointChannel3
	XPointChannel4

	xTelemetrySize = XPointChannelFrequency
	xChannelSize   = XPointChannel4 + 1
)

const (
	xSlots      = 13
	xFirstSlot  = 0x41
	xLastSlot   = xFirstSlot + xSlots - 1
	xAllSlots   = 1<<xSlots - 1
	xSlotByte   = 6
	xSensorByte = 7

	xSensorReceiver = 0x00
	xSensorESC      = 0x02
)

// XSize is the length of an X vector.
func XSize(channels bool) int {
	if channels {
		return xChannelSize
	}
	return xTelemetrySize
}

// XOption configures an XReader.
type XOption func(*XReader)

// WithXLogger sets the reader logger.
func WithXLogger(logger *slog.Logger) XOption {
	return func(x *XReader) {
		x.logger = logger
	}
}

// XReader decodes the 23-byte X variant. Telemetry is spread over 13 slots,
// bytes 0x41..0x4D at offset 6; once all slots are filled the sensor byte
// selects whether the receiver or the ESC is decoded from them.
type XReader struct {
	blocks *Reader
	cfg    hott.FilterConfig
	logger *slog.Logger

	points  hott.Points
	loss    *loss.Tracker
	slots   [xSlots][XBlockSize]byte
	filled  uint16
	timeMs  int64
	counter int

	counterSeen  bool
	channelsSeen bool
	escSeen      bool
	warnedGap    bool

	current  hott.Sample
	position int64
	emitted  int64
	gaps     int64
	stats    map[hott.SensorID]hott.SensorStats
}

// NewXReader returns a reader decoding X blocks from blocks.
func NewXReader(blocks *Reader, cfg hott.FilterConfig, opts ...XOption) *XReader {
	x := &XReader{
		blocks: blocks,
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		points: make(hott.Points, XSize(cfg.Channels)),
		loss:   loss.NewTracker(loss.DefaultWindow),
		stats:  make(map[hott.SensorID]hott.SensorStats),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Next decodes blocks until a sample is emitted. It returns false at the end
// of the stream or on error.
func (x *XReader) Next(ctx context.Context) bool {
	for x.blocks.Next(ctx) {
		if sample, ok := x.decode(x.blocks.Current()); ok {
			x.current = sample
			x.position = x.blocks.Index()
			x.emitted++
			return true
		}
	}
	x.loss.Flush()
	return false
}

// Current returns the last emitted sample.
func (x *XReader) Current() hott.Sample {
	return x.current
}

// Position is the block index of the last emitted sample.
func (x *XReader) Position() int64 {
	return x.position
}

// Error returns the error that stopped iteration, if any.
func (x *XReader) Error() error {
	return x.blocks.Error()
}

// Detection returns the sensors seen so far.
func (x *XReader) Detection() hott.Detection {
	if x.escSeen {
		return hott.NewDetection(hott.SensorESC)
	}
	return hott.NewDetection(hott.SensorReceiver)
}

// Gaps is the number of blocks dropped for a broken sequence counter.
func (x *XReader) Gaps() int64 {
	return x.gaps
}

// Stats returns the decode statistics so far.
func (x *XReader) Stats() hott.Stats {
	st := hott.Stats{
		Blocks:      x.loss.Total(),
		Lost:        x.loss.Lost(),
		LossPercent: x.loss.LossPercent(),
		Runs:        x.loss.Runs(),
		Emitted:     x.emitted,
		DurationMs:  x.timeMs,
		Sensors:     make(map[hott.SensorID]hott.SensorStats, len(x.stats)),
	}
	for k, v := range x.stats {
		st.Sensors[k] = v
	}
	return st
}

func (x *XReader) decode(buf []byte) (hott.Sample, bool) {
	counter := int(buf[0])
	if x.counterSeen && x.counter != counter-1 && !(x.counter == 255 && counter == 0) {
		if !x.warnedGap {
			x.logger.Warn("sequence counter discontinuity, resynchronising",
				slog.Int("expected", (x.counter+1)%256), slog.Int("got", counter), slog.Int64("time_ms", x.timeMs))
			x.warnedGap = true
		}
		x.gaps++
		x.counter = counter
		return hott.Sample{}, false
	}
	x.counter, x.counterSeen = counter, true

	now := x.timeMs
	x.timeMs += XTimeStepMs

	if buf[3] == 0 || buf[4] == 0 {
		x.loss.Add(false)
		x.points[XPointLoss] = x.loss.Percent() * 1000
		if x.channels() {
			x.parseChannel(buf)
			return x.emit(now), true
		}
		return hott.Sample{}, false
	}

	x.loss.Add(true)
	x.points[XPointLoss] = x.loss.Percent() * 1000
	if x.channels() {
		x.parseChannel(buf)
	}

	emit := x.channels()
	if slot := buf[xSlotByte]; slot >= xFirstSlot && slot <= xLastSlot {
		copy(x.slots[slot-xFirstSlot][:], buf)
		x.filled |= 1 << (slot - xFirstSlot)

		if slot == xLastSlot && !x.channelsSeen {
			// The first complete rotation starts at the slot following 0x4D.
			x.filled = 0
			x.channelsSeen = true
		}
	}

	if x.filled == xAllSlots {
		switch buf[xSensorByte] {
		case xSensorReceiver:
			x.count(hott.SensorReceiver, x.parseReceiver())
			emit = true
		case xSensorESC:
			x.escSeen = true
			x.count(hott.SensorESC, x.parseESC())
		}
		x.filled = 0
	}

	if emit {
		return x.emit(now), true
	}
	return hott.Sample{}, false
}

func (x *XReader) channels() bool {
	return x.cfg.Channels && x.channelsSeen
}

func (x *XReader) slot(n int) []byte {
	return x.slots[n-1][:]
}

func (x *XReader) parseReceiver() bool {
	b1, b2, bD := x.slot(1), x.slot(2), x.slot(13)
	p := x.points

	voltage, temperature := int(b2[18]), int(b2[20])
	p[XPointRXSQ] = int(b2[17]) * 1000
	p[XPointVPacks] = int16LE(b1, 17) * 1000

	if x.cfg.Enabled && (voltage >= 100 || temperature >= 120) {
		return false
	}
	p[XPointStrength] = hott.Strength(int(bD[4])) * 1000
	p[XPointTx] = -int(bD[3]) * 1000
	p[XPointRx] = -int(bD[4]) * 1000
	p[XPointVoltageRx] = voltage * 1000
	p[XPointTemperatureRx] = temperature * 1000
	p[XPointVoltageRxMin] = int(b2[19]) * 1000
	return true
}

func (x *XReader) parseESC() bool {
	b4, b5, b6, b7, b8, b9, bA := x.slot(4), x.slot(5), x.slot(6), x.slot(7), x.slot(8), x.slot(9), x.slot(10)
	p := x.points

	voltage := int16LE(b4, 20)
	current := int16LE(b6, 20)
	capacity := int16LE(b5, 20)
	revolution := int(int16(uint16(b7[20]) | uint16(b8[17])<<8))
	fet := int(int8(b8[20])) - 20

	if x.cfg.Enabled && !(voltage > 0 && voltage < 1000 && current < 4000 && current > -10 &&
		revolution > -1 && revolution < 20000 &&
		!(p[XPointESCMotorTemperature] != 0 && p[XPointESCMotorTemperature]/1000-fet > 20)) {
		return false
	}

	p[XPointESCVoltage] = voltage * 1000
	p[XPointESCVoltageMin] = int16LE(b5, 18) * 1000
	p[XPointESCCurrent] = current * 1000
	p[XPointESCCurrentMax] = int16LE(b7, 18) * 1000
	p[XPointESCPower] = int(float64(p[XPointESCVoltage]) / 1000.0 * float64(p[XPointESCCurrent]) / 100.0)

	bound := p[XPointESCCapacity]/1000 + voltage*current/2500 + 2
	if !x.cfg.Enabled || (capacity != 0 && max(capacity, -capacity) <= bound) {
		p[XPointESCCapacity] = capacity * 1000
	} else if capacity != 0 {
		x.logger.Debug("capacity rejected",
			slog.Int64("time_ms", x.timeMs), slog.Int("capacity", capacity), slog.Int("bound", bound))
	}

	p[XPointESCRevolution] = revolution * 1000
	p[XPointESCRevolutionMax] = int16LE(b8, 18) * 1000
	p[XPointESCTemperature] = (int(int8(b6[18])) - 20) * 1000
	p[XPointESCTemperatureMax] = (int(int8(b6[19])) - 20) * 1000
	p[XPointESCMotorTemperature] = fet * 1000
	p[XPointESCMotorTemperatureMax] = (int(int8(b9[17])) - 20) * 1000
	p[XPointESCSpeed] = int(int8(b9[19])) * 1000
	p[XPointESCSpeedMax] = int(int8(bA[17])) * 1000
	return true
}

func (x *XReader) parseChannel(buf []byte) {
	p := x.points
	p[XPointChannelFrequency] = int(buf[1]) * 1000
	p[XPointChannelTx] = -int(buf[3]) * 1000
	p[XPointChannelRx] = -int(buf[4]) * 1000
	for i := 0; i < 4; i++ {
		p[XPointChannel1+i] = uint16LE(buf, 8+2*i) / 2 * 1000
	}
}

func (x *XReader) count(sensor hott.SensorID, valid bool) {
	st := x.stats[sensor]
	if valid {
		st.Accepted++
	} else {
		st.Rejected++
	}
	x.stats[sensor] = st
}

func (x *XReader) emit(timeMs int64) hott.Sample {
	return hott.Sample{TimeMs: timeMs, Points: x.points.Clone()}
}

func int16LE(b []byte, i int) int {
	return int(int16(uint16(b[i]) | uint16(b[i+1])<<8))
}

func uint16LE(b []byte, i int) int {
	return int(uint16(b[i]) | uint16(b[i+1])<<8)
}
