package hott

import (
	"io"
	"log/slog"

	"github.com/roman-kulish/hott-telemetry/internal/hott/loss"
)

// receiverOnlySkip is the number of blocks skipped after each decoded block in
// the receiver-only plan. Receiver frames dominate such streams.
const receiverOnlySkip = 9

// Sample is an emitted point vector snapshot.
type Sample struct {
	TimeMs int64
	Points Points
}

// SensorStats counts parse outcomes of one sensor.
type SensorStats struct {
	Accepted   int64 `json:"accepted"`
	Rejected   int64 `json:"rejected"`
	Migrations int64 `json:"migrations"`
}

// Stats summarises a decode session.
type Stats struct {
	Blocks      int64
	Lost        int64
	LossPercent float64
	Runs        loss.RunStats
	Emitted     int64
	TextSkipped int64
	DurationMs  int64
	Sensors     map[SensorID]SensorStats
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithLossWindow sets the rolling loss window length in blocks.
func WithLossWindow(blocks int) SessionOption {
	return func(s *Session) {
		s.loss = loss.NewTracker(blocks)
	}
}

// Session decodes one block stream. It owns the sub-block arenas, the
// composite point vector, the per-sensor vectors and the loss statistics, so
// independent sessions can run concurrently. A Session is not safe for
// concurrent use.
type Session struct {
	cfg       FilterConfig
	layout    Layout
	detection Detection
	plan      Plan
	logger    *slog.Logger

	points       Points
	sensorPoints [numSensors]Points
	frames       [numSensors]*SubBlockSet
	ctx          *ParseContext
	loss         *loss.Tracker
	stats        [numSensors]SensorStats

	timeMs      int64
	last        SensorID
	hasLast     bool
	run         int
	skip        int
	emitted     int64
	textSkipped int64

	warnedText    bool
	warnedUnknown bool
}

// NewSession creates a decode session for the detected sensors.
func NewSession(detection Detection, cfg FilterConfig, opts ...SessionOption) *Session {
	layout := Layout{Channels: cfg.Channels}
	s := &Session{
		cfg:       cfg,
		layout:    layout,
		detection: detection,
		plan:      detection.Plan(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		points:    layout.NewPoints(),
		loss:      loss.NewTracker(loss.DefaultWindow),
	}
	for _, sensor := range Sensors {
		s.sensorPoints[sensor] = layout.NewPoints()
		s.frames[sensor] = newSubBlockSet(sensor)
	}
	s.ctx = NewParseContext(&s.cfg, layout)

	for _, opt := range opts {
		opt(s)
	}

	s.logger.Debug("decode session created",
		slog.String("sensors", detection.String()),
		slog.String("plan", s.plan.String()),
		slog.Int("points", layout.Size()))

	return s
}

// Decode consumes one raw block. It returns the emitted sample when this
// block completes a time step worth reporting.
func (s *Session) Decode(raw []byte) (Sample, bool, error) {
	f, err := Classify(raw)
	if err != nil {
		return Sample{}, false, err
	}

	if s.skip > 0 {
		s.skip--
		s.timeMs += TimeStepMs
		return Sample{}, false, nil
	}

	if f.Kind == FrameText && s.cfg.SkipTextMode {
		if !s.warnedText {
			s.logger.Warn("text mode blocks are skipped", slog.Int64("time_ms", s.timeMs))
			s.warnedText = true
		}
		s.textSkipped++
		return Sample{}, false, nil
	}

	now := s.timeMs
	s.timeMs += TimeStepMs
	s.ctx.TimeMs = now
	s.ctx.WarmedUp = s.emitted > int64(s.cfg.CapacityWarmup)

	if f.Kind == FrameIdle {
		s.loss.Add(false)
		s.points[PointLoss] = s.loss.Percent() * 1000
		if s.cfg.Channels {
			ParseChannel(s.points, raw)
			return s.emit(now), true, nil
		}
		return Sample{}, false, nil
	}

	s.loss.Add(true)
	s.points[PointLoss] = s.loss.Percent() * 1000

	receiverData := f.HasReceiverData()
	if receiverData {
		s.count(SensorReceiver, ParseReceiver(s.sensorPoints[SensorReceiver], raw, s.ctx))
	}
	if s.cfg.Channels {
		ParseChannel(s.points, raw)
	}

	if !f.KnownSensor && !s.warnedUnknown {
		s.logger.Warn("unknown sensor id", slog.Int("id", int(raw[7])), slog.Int64("time_ms", now))
		s.warnedUnknown = true
	}

	migrated := false
	switch s.plan {
	case PlanReceiverOnly:
		if !s.cfg.Channels {
			s.skip = receiverOnlySkip
		}

	case PlanSingle:
		if s.accepts(f) {
			frame := s.frames[f.Sensor]
			frame.Put(f.Index, f.Payload)
			if frame.State() == StateReady {
				s.migrate(f.Sensor)
				migrated = true
			}
		}

	case PlanMultiple:
		sensor := SensorReceiver
		if f.KnownSensor {
			sensor = f.Sensor
		}
		if s.hasLast && sensor != s.last {
			if s.last.IsAuxiliary() && s.run >= s.last.MinRun() && s.frames[s.last].State() == StateReady {
				s.migrate(s.last)
				migrated = true
			}
			s.run = 0
		}
		s.last, s.hasLast = sensor, true
		s.run++
		if s.accepts(f) {
			s.frames[f.Sensor].Put(f.Index, f.Payload)
		}
	}

	receiverReady := receiverData && s.stats[SensorReceiver].Accepted > 0
	if migrated || receiverReady {
		s.mergeReceiver()
	}
	if migrated || receiverReady || s.cfg.Channels {
		return s.emit(now), true, nil
	}
	return Sample{}, false, nil
}

// DecodeAnswer consumes one answer of the live adapter received at timeMs.
// A nil answer is a query that went unanswered. Receiver answers feed the loss
// statistics; a sensor answer carries a complete frame and is merged at once.
// Samples of a live link are taken with EmitAt.
func (s *Session) DecodeAnswer(sensor SensorID, answer []byte, timeMs int64) error {
	s.timeMs = timeMs
	s.ctx.TimeMs = timeMs
	s.ctx.WarmedUp = s.emitted > int64(s.cfg.CapacityWarmup)

	if sensor == SensorReceiver {
		s.loss.Add(AnswerLinkPresent(answer))
		s.points[PointLoss] = s.loss.Percent() * 1000
	}
	if answer == nil {
		return nil
	}

	valid, err := ParseAnswer(sensor, s.sensorPoints[sensor], answer, s.ctx)
	if err != nil {
		return err
	}
	s.count(sensor, valid)

	if sensor == SensorReceiver {
		s.mergeReceiver()
		return nil
	}
	s.merge(sensor)
	s.stats[sensor].Migrations++
	return nil
}

// EmitAt returns a sample of the composite vector stamped with timeMs.
func (s *Session) EmitAt(timeMs int64) Sample {
	s.timeMs = max(s.timeMs, timeMs)
	return s.emit(timeMs)
}

// Finish migrates frames still pending at the end of the stream, in priority
// order, and commits an open loss run. It returns a final sample when any
// frame was migrated.
func (s *Session) Finish() (Sample, bool) {
	s.loss.Flush()

	migrated := false
	for _, sensor := range migrationOrder {
		if s.detection.Has(sensor) && s.frames[sensor].State() == StateReady {
			s.migrate(sensor)
			migrated = true
		}
	}
	if !migrated {
		return Sample{}, false
	}
	s.mergeReceiver()
	return s.emit(s.timeMs - TimeStepMs), true
}

func (s *Session) accepts(f Frame) bool {
	return f.KnownSensor && f.Sensor.IsAuxiliary() && s.detection.Has(f.Sensor)
}

func (s *Session) count(sensor SensorID, valid bool) {
	if valid {
		s.stats[sensor].Accepted++
	} else {
		s.stats[sensor].Rejected++
	}
}

// migrate parses the completed frame of a sensor into its private vector and
// merges the sensor's channel range into the composite vector.
func (s *Session) migrate(sensor SensorID) {
	frame := s.frames[sensor]
	p := s.sensorPoints[sensor]

	var valid bool
	switch sensor {
	case SensorVario:
		valid = ParseVario(p, frame, s.ctx)
	case SensorGPS:
		valid = ParseGPS(p, frame, s.ctx)
	case SensorGAM:
		valid = ParseGAM(p, frame, s.ctx)
	case SensorEAM:
		valid = ParseEAM(p, frame, s.ctx)
	case SensorESC:
		valid = ParseESC(p, frame, s.ctx)
	default:
		return
	}
	s.count(sensor, valid)
	s.merge(sensor)

	frame.markMigrated()
	s.stats[sensor].Migrations++
}

// merge copies the channel range of a sensor's private vector into the
// composite vector. The altitude source decides who writes altitude and climb.
func (s *Session) merge(sensor SensorID) {
	p := s.sensorPoints[sensor]
	switch sensor {
	case SensorVario:
		if p[PointAltitude] != 0 || p[PointClimb1] != 0 || p[PointClimb3] != 0 || p[PointClimb10] != 0 {
			if s.cfg.writesAltitude(SensorVario) {
				s.points.copyRange(p, PointAltitude, PointEventVario+1)
			} else {
				s.points.copyRange(p, PointClimb10, PointEventVario+1)
			}
		}
	case SensorGPS, SensorGAM, SensorEAM:
		if s.cfg.writesAltitude(sensor) {
			s.points.copyRange(p, PointAltitude, PointClimb3+1)
		}
		from, to := s.layout.Range(sensor)
		s.points.copyRange(p, from, to)
	default:
		from, to := s.layout.Range(sensor)
		s.points.copyRange(p, from, to)
	}
}

func (s *Session) mergeReceiver() {
	from, to := s.layout.Range(SensorReceiver)
	if s.cfg.Channels {
		// Tx and Rx are refreshed by every channel block.
		s.points.copyRange(s.sensorPoints[SensorReceiver], from, PointTx)
		s.points.copyRange(s.sensorPoints[SensorReceiver], PointRx+1, to)
		return
	}
	s.points.copyRange(s.sensorPoints[SensorReceiver], from, to)
}

func (s *Session) emit(timeMs int64) Sample {
	s.emitted++
	return Sample{TimeMs: timeMs, Points: s.points.Clone()}
}

// Points returns the current composite vector. The slice is owned by the
// session and changes with every decoded block.
func (s *Session) Points() Points {
	return s.points
}

// TimeMs is the time of the next block.
func (s *Session) TimeMs() int64 {
	return s.timeMs
}

// Layout returns the channel layout of the session.
func (s *Session) Layout() Layout {
	return s.layout
}

// Detection returns the sensors the session decodes.
func (s *Session) Detection() Detection {
	return s.detection
}

// Plan returns the decode plan.
func (s *Session) Plan() Plan {
	return s.plan
}

// FrameState returns the reassembly state of a sensor.
func (s *Session) FrameState(sensor SensorID) FrameState {
	if sensor >= numSensors {
		return StateEmpty
	}
	return s.frames[sensor].State()
}

// Stats returns the session statistics so far.
func (s *Session) Stats() Stats {
	st := Stats{
		Blocks:      s.loss.Total(),
		Lost:        s.loss.Lost(),
		LossPercent: s.loss.LossPercent(),
		Runs:        s.loss.Runs(),
		Emitted:     s.emitted,
		TextSkipped: s.textSkipped,
		DurationMs:  s.timeMs,
		Sensors:     make(map[SensorID]SensorStats),
	}
	for _, sensor := range Sensors {
		if c := s.stats[sensor]; c != (SensorStats{}) {
			st.Sensors[sensor] = c
		}
	}
	return st
}
