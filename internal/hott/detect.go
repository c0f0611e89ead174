package hott

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

const (
	// DetectScanBlocks is the number of blocks scanned around the file midpoint.
	DetectScanBlocks = 1500
	// DetectMinBlocks is the smallest file, in blocks, sensors are detected in.
	DetectMinBlocks = 5500
	// DetectWarnBlocks is the file size, in blocks, below which detection is
	// considered unreliable.
	DetectWarnBlocks = 7000

	// DefaultProbeAttempts bounds the number of probing rounds of a live link.
	DefaultProbeAttempts = 3
)

// ErrNoAnswer is returned by a Prober when a sensor did not answer a query.
var ErrNoAnswer = errors.New("no answer")

// DetectOptions tunes file detection.
type DetectOptions struct {
	ScanBlocks int
	MinBlocks  int
	WarnBlocks int
	Logger     *slog.Logger
}

func (o *DetectOptions) withDefaults() DetectOptions {
	out := DetectOptions{
		ScanBlocks: DetectScanBlocks,
		MinBlocks:  DetectMinBlocks,
		WarnBlocks: DetectWarnBlocks,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if o == nil {
		return out
	}
	if o.ScanBlocks > 0 {
		out.ScanBlocks = o.ScanBlocks
	}
	if o.MinBlocks > 0 {
		out.MinBlocks = o.MinBlocks
	}
	if o.WarnBlocks > 0 {
		out.WarnBlocks = o.WarnBlocks
	}
	if o.Logger != nil {
		out.Logger = o.Logger
	}
	return out
}

// DetectFile scans a window of blocks centred on the middle of a block stream
// and marks every sensor whose id byte appears. The start of a log is skipped
// because sensors are still being enumerated there.
func DetectFile(r io.ReaderAt, blocks int64, opts *DetectOptions) (Detection, error) {
	o := opts.withDefaults()

	if blocks < int64(o.MinBlocks) {
		return Detection{}, fmt.Errorf("detect: %w: %d blocks", ErrFileTooShort, blocks)
	}
	if blocks < int64(o.WarnBlocks) {
		o.Logger.Warn("file is short, sensor detection may be incomplete", slog.Int64("blocks", blocks))
	}

	start := max(blocks/2-int64(o.ScanBlocks)/2, 1)
	end := min(start+int64(o.ScanBlocks), blocks)

	var d Detection
	buf := make([]byte, BlockSize)
	for i := start; i < end; i++ {
		if _, err := r.ReadAt(buf, i*BlockSize); err != nil {
			return Detection{}, fmt.Errorf("detect: read block %d: %w", i, err)
		}
		f, err := Classify(buf)
		if err != nil {
			return Detection{}, err
		}
		if f.Kind == FrameIdle {
			continue
		}
		d.present[SensorReceiver] = true
		if f.KnownSensor && f.Sensor.IsAuxiliary() {
			d.present[f.Sensor] = true
		}
	}

	o.Logger.Debug("sensors detected", slog.String("sensors", d.String()), slog.Int64("from", start), slog.Int64("to", end))
	return d, nil
}

// Prober queries a single sensor over a live link and returns its answer,
// laid out as described by AnswerSize.
type Prober interface {
	Probe(ctx context.Context, sensor SensorID) ([]byte, error)
}

// ProbeSignature reports whether a live answer to a probe of the given sensor
// shows the sensor is attached. A sensor the receiver has not heard from
// answers with its values zeroed.
func ProbeSignature(sensor SensorID, d []byte) bool {
	size := AnswerSize(sensor)
	if size == 0 || len(d) < size || d[0] != sensor.Code(Gen115200) {
		return false
	}
	switch sensor {
	case SensorReceiver:
		return true
	case SensorVario:
		return int16At(d, 10) != 0 || d[16] != 0
	case SensorGPS:
		return d[31] != 0 || (d[16] != 0 && d[17] != 0 && d[20] != 0 && d[21] != 0)
	case SensorGAM:
		return int16At(d, 36) != 0
	case SensorEAM:
		return int16At(d, 50) != 0
	default:
		return false
	}
}

// DetectLive probes each auxiliary sensor up to attempts times. Sensors that
// never answer are left out; no answering sensor at all means the receiver-only
// plan. A failure other than ErrNoAnswer aborts detection.
func DetectLive(ctx context.Context, p Prober, attempts int, logger *slog.Logger) (Detection, error) {
	if attempts <= 0 {
		attempts = DefaultProbeAttempts
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var d Detection
	for attempt := 0; attempt < attempts; attempt++ {
		for _, sensor := range append([]SensorID{SensorReceiver}, AuxiliarySensors...) {
			if d.present[sensor] {
				continue
			}
			if err := ctx.Err(); err != nil {
				return d, err
			}

			data, err := p.Probe(ctx, sensor)
			if err != nil {
				if errors.Is(err, ErrNoAnswer) {
					continue
				}
				return d, fmt.Errorf("probe %s: %w", sensor, err)
			}
			if ProbeSignature(sensor, data) {
				logger.Info("sensor detected", slog.String("sensor", sensor.String()), slog.Int("attempt", attempt+1))
				d.present[sensor] = true
				if sensor.IsAuxiliary() {
					d.present[SensorReceiver] = true
				}
			}
		}
	}

	if d.AuxiliaryCount() == 0 {
		logger.Warn("no auxiliary sensor detected, decoding receiver only")
	}
	return d, nil
}
