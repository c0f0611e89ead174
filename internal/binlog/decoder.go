package binlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roman-kulish/hott-telemetry/internal/histo"
	"github.com/roman-kulish/hott-telemetry/internal/hott"
)

// EmitFunc receives decoded samples in time order.
type EmitFunc func(hott.Sample) error

// Result summarises a decoded file.
type Result struct {
	Format    Format
	Detection hott.Detection
	Stats     hott.Stats
	// Sampling is set when the file was reduced by a sampler.
	Sampling *histo.Stats
	// Laps is set for X containers.
	Laps *Laps
	// Size is the vector length of the emitted samples.
	Size int
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithLogger sets the decoder logger.
func WithLogger(logger *slog.Logger) DecoderOption {
	return func(d *Decoder) {
		d.logger = logger
	}
}

// WithSampling reduces the emitted series with an extremum preserving
// sampler instead of emitting every sample.
func WithSampling(cfg histo.Config) DecoderOption {
	return func(d *Decoder) {
		d.sampling = &cfg
	}
}

// WithDetection skips sensor detection and decodes the given sensors.
func WithDetection(detection hott.Detection) DecoderOption {
	return func(d *Decoder) {
		d.detection = &detection
	}
}

// WithDetectOptions tunes file sensor detection.
func WithDetectOptions(opts hott.DetectOptions) DecoderOption {
	return func(d *Decoder) {
		d.detect = &opts
	}
}

// Decoder turns a recording into a time-ordered series of samples.
type Decoder struct {
	filter    hott.FilterConfig
	sampling  *histo.Config
	detection *hott.Detection
	detect    *hott.DetectOptions
	logger    *slog.Logger
}

// NewDecoder creates a decoder applying the given filter settings.
func NewDecoder(filter hott.FilterConfig, opts ...DecoderOption) *Decoder {
	d := &Decoder{
		filter: filter,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// source yields emitted samples together with their raw block position.
type source interface {
	Next(ctx context.Context) bool
	Current() hott.Sample
	Position() int64
	Error() error
	Stats() hott.Stats
	Detection() hott.Detection
}

// Decode decodes the file, calling emit for every sample. With sampling
// enabled the file is read twice: an initialization pass learns the channel
// bounds, the full pass feeds the sampler.
func (d *Decoder) Decode(ctx context.Context, f *File, emit EmitFunc) (Result, error) {
	logger := d.logger.With(slog.String("source", f.Path), slog.String("format", f.Format.String()))

	res := Result{Format: f.Format}
	var open func() (source, error)
	switch f.Format {
	case FormatBin, FormatSDLog:
		detection, err := d.detectFile(f, logger)
		if err != nil {
			return res, err
		}
		res.Detection = detection
		res.Size = hott.Layout{Channels: d.filter.Channels}.Size()
		open = func() (source, error) {
			blocks, err := f.BlockReader()
			if err != nil {
				return nil, err
			}
			return newSessionSource(blocks, detection, d.filter, logger), nil
		}

	case FormatX:
		laps, err := f.Laps()
		if err != nil {
			return res, err
		}
		res.Laps = &laps
		res.Size = XSize(d.filter.Channels)
		open = func() (source, error) {
			blocks, err := f.BlockReader()
			if err != nil {
				return nil, err
			}
			return NewXReader(blocks, d.filter, WithXLogger(logger)), nil
		}

	default:
		return res, fmt.Errorf("decoding %s: %w: %s", f.Path, ErrUnsupportedFormat, f.Format)
	}

	if d.sampling == nil {
		src, err := d.pass(ctx, open, func(_ int64, s hott.Sample) error { return emit(s) })
		if src != nil {
			res.Stats = src.Stats()
			if f.Format == FormatX {
				res.Detection = src.Detection()
			}
		}
		return res, err
	}

	sampler := histo.NewSampler(*d.sampling, f.Blocks, res.Size)
	logger.Debug("initialization pass", slog.Int64("blocks", f.Blocks), slog.Int("budget", d.sampling.Budget))
	if _, err := d.pass(ctx, open, func(_ int64, s hott.Sample) error {
		sampler.Learn(s.Points)
		return nil
	}); err != nil {
		return res, fmt.Errorf("initialization pass: %w", err)
	}

	src, err := d.pass(ctx, open, func(pos int64, s hott.Sample) error {
		for _, out := range sampler.Add(pos, s) {
			if err := emit(out); err != nil {
				return err
			}
		}
		return nil
	})
	if src != nil {
		res.Stats = src.Stats()
		if f.Format == FormatX {
			res.Detection = src.Detection()
		}
	}
	if err != nil {
		return res, err
	}
	for _, out := range sampler.Flush() {
		if err := emit(out); err != nil {
			return res, err
		}
	}

	stats := sampler.Stats()
	res.Sampling = &stats
	logger.Info("file sampled",
		slog.Int64("readings", stats.Readings),
		slog.Int64("slots", stats.Slots),
		slog.Int64("emitted", stats.Emitted),
		slog.Float64("oversampling", stats.OversamplingRatio()))
	return res, nil
}

func (d *Decoder) detectFile(f *File, logger *slog.Logger) (hott.Detection, error) {
	if d.detection != nil {
		return *d.detection, nil
	}
	opts := hott.DetectOptions{Logger: logger}
	if d.detect != nil {
		opts = *d.detect
		if opts.Logger == nil {
			opts.Logger = logger
		}
	}
	detection, err := hott.DetectFile(f.section(), f.Blocks, &opts)
	if err != nil {
		return hott.Detection{}, fmt.Errorf("detecting sensors in %s: %w", f.Path, err)
	}
	logger.Info("sensors detected", slog.String("sensors", detection.String()), slog.String("plan", detection.Plan().String()))
	return detection, nil
}

func (d *Decoder) pass(ctx context.Context, open func() (source, error), fn func(int64, hott.Sample) error) (source, error) {
	src, err := open()
	if err != nil {
		return nil, err
	}
	for src.Next(ctx) {
		if err := fn(src.Position(), src.Current()); err != nil {
			return src, err
		}
	}
	if err := src.Error(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return src, err
		}
		return src, fmt.Errorf("reading blocks: %w", err)
	}
	return src, nil
}

// sessionSource drives a decode session from a block reader.
type sessionSource struct {
	blocks   *Reader
	session  *hott.Session
	current  hott.Sample
	position int64
	finished bool
	err      error
}

func newSessionSource(blocks *Reader, detection hott.Detection, cfg hott.FilterConfig, logger *slog.Logger) *sessionSource {
	return &sessionSource{
		blocks:  blocks,
		session: hott.NewSession(detection, cfg, hott.WithLogger(logger)),
	}
}

func (s *sessionSource) Next(ctx context.Context) bool {
	for s.blocks.Next(ctx) {
		sample, ok, err := s.session.Decode(s.blocks.Current())
		if err != nil {
			s.err = fmt.Errorf("block %d: %w", s.blocks.Index(), err)
			return false
		}
		if ok {
			s.current, s.position = sample, s.blocks.Index()
			return true
		}
	}
	if s.Error() != nil || s.finished {
		return false
	}

	s.finished = true
	if sample, ok := s.session.Finish(); ok {
		s.current, s.position = sample, max(s.blocks.Index(), 0)
		return true
	}
	return false
}

func (s *sessionSource) Current() hott.Sample { return s.current }

func (s *sessionSource) Position() int64 { return s.position }

func (s *sessionSource) Error() error {
	if s.err != nil {
		return s.err
	}
	return s.blocks.Error()
}

func (s *sessionSource) Stats() hott.Stats { return s.session.Stats() }

func (s *sessionSource) Detection() hott.Detection { return s.session.Detection() }
