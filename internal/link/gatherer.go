package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roman-kulish/hott-telemetry/internal/hott"
	"github.com/roman-kulish/hott-telemetry/internal/telemetry"
)

// Stats counts the traffic of a gathering session.
type Stats struct {
	Queries        int64
	Timeouts       int64
	TransferErrors int64
	Session        hott.Stats
}

// Option configures a Gatherer.
type Option func(g *Gatherer)

// WithLogger sets the logger for the gatherer.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gatherer) {
		g.logger = logger
	}
}

// WithFilter sets the parser thresholds of the decode session.
func WithFilter(cfg hott.FilterConfig) Option {
	return func(g *Gatherer) {
		g.filter = cfg
	}
}

// Gatherer polls a receiver and its sensors and decodes the answers into
// samples. It can be started once at a time and stopped.
type Gatherer struct {
	transport Transport
	cfg       Config
	filter    hott.FilterConfig

	isRunning atomic.Bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	mu             sync.RWMutex
	session        *hott.Session
	started        time.Time
	last           *telemetry.Telemetry
	queries        int64
	timeouts       int64
	transferErrors int64

	logger *slog.Logger
}

var _ telemetry.Provider = (*Gatherer)(nil)

// NewGatherer creates a Gatherer on top of an open transport.
func NewGatherer(t Transport, cfg Config, options ...Option) *Gatherer {
	g := Gatherer{
		transport: t,
		cfg:       cfg,
		filter:    hott.DefaultFilterConfig(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&g)
	}

	return &g
}

// Probe queries one sensor. It implements hott.Prober.
func (g *Gatherer) Probe(ctx context.Context, sensor hott.SensorID) ([]byte, error) {
	return g.query(ctx, sensor)
}

// Detect probes the attached sensors.
func (g *Gatherer) Detect(ctx context.Context) (hott.Detection, error) {
	return hott.DetectLive(ctx, g, g.cfg.ProbeAttempts, g.logger)
}

// Start begins gathering. Samples are sent to the samples channel; the
// returned channel yields the error that ended gathering, if any, and is
// closed once the gathering goroutine exits.
func (g *Gatherer) Start(ctx context.Context, detection hott.Detection, samples chan<- hott.Sample) (<-chan error, error) {
	if !g.isRunning.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("gatherer is already running")
	}

	rotation := g.rotation(detection)

	g.mu.Lock()
	g.session = hott.NewSession(detection, g.filter, hott.WithLogger(g.logger))
	g.started = time.Now()
	g.last = nil
	g.queries, g.timeouts, g.transferErrors = 0, 0, 0
	g.mu.Unlock()

	ctx, g.cancel = context.WithCancel(ctx)
	stopped := make(chan error, 1)

	g.wg.Add(1)
	go func() {
		defer close(stopped)
		defer g.wg.Done()
		defer g.isRunning.Store(false)

		g.logger.Info("starting telemetry gathering...", slog.String("sensors", detection.String()))

		err := g.run(ctx, rotation, samples)

		// Commits the open loss run.
		g.mu.Lock()
		g.session.Finish()
		g.mu.Unlock()

		if errors.Is(err, context.Canceled) {
			err = nil
		}
		if err != nil {
			g.logger.Error(err.Error())
		}

		g.logger.Info("telemetry gathering stopped")

		if err != nil {
			stopped <- err
		}
	}()

	return stopped, nil
}

// Stop ends gathering and waits for the gathering goroutine to exit.
func (g *Gatherer) Stop() {
	if !g.isRunning.Load() {
		return // already stopped
	}

	g.cancel()
	g.wg.Wait()
}

// IsRunning returns true while the gatherer polls the link.
func (g *Gatherer) IsRunning() bool {
	return g.isRunning.Load()
}

// Get returns the latest sample in physical units. It implements
// telemetry.Provider.
func (g *Gatherer) Get() *telemetry.Telemetry {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.last
}

// Stats returns the counters of the current or last session.
func (g *Gatherer) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	st := Stats{Queries: g.queries, Timeouts: g.timeouts, TransferErrors: g.transferErrors}
	if g.session != nil {
		st.Session = g.session.Stats()
	}
	return st
}

// rotation lists the detected sensors that can be queried, in the order they
// take turns after the receiver.
func (g *Gatherer) rotation(detection hott.Detection) []hott.SensorID {
	var out []hott.SensorID
	for _, sensor := range hott.AuxiliarySensors {
		if !detection.Has(sensor) {
			continue
		}
		if _, err := Telegram(sensor); err != nil {
			g.logger.Warn("sensor cannot be queried over the link, skipping", slog.String("sensor", sensor.String()))
			continue
		}
		out = append(out, sensor)
	}
	return out
}

// run queries the receiver and then the next sensor of the rotation once per
// time step, and emits one sample per step.
func (g *Gatherer) run(ctx context.Context, rotation []hott.SensorID, samples chan<- hott.Sample) error {
	var next int

	for {
		step := time.Now()

		if err := g.step(ctx, hott.SensorReceiver); err != nil {
			return err
		}

		if len(rotation) > 0 {
			if err := sleep(ctx, time.Duration(g.cfg.QueryGap)); err != nil {
				return err
			}
			if err := g.step(ctx, rotation[next]); err != nil {
				return err
			}
			next = (next + 1) % len(rotation)
		}

		g.mu.Lock()
		sample := g.session.EmitAt(time.Since(g.started).Milliseconds())
		g.last = telemetry.FromPoints(g.started, sample, g.session.Layout(), g.session.Detection())
		g.mu.Unlock()

		select {
		case samples <- sample:
		case <-ctx.Done():
			return ctx.Err()
		}

		if err := sleep(ctx, time.Duration(g.cfg.TimeStep)-time.Since(step)); err != nil {
			return err
		}
	}
}

// step queries one sensor and decodes the answer. An unanswered query is
// decoded as a missing answer.
func (g *Gatherer) step(ctx context.Context, sensor hott.SensorID) error {
	answer, err := g.query(ctx, sensor)
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrShortAnswer):
		answer = nil
	case err != nil:
		return err
	}

	g.mu.Lock()
	err = g.session.DecodeAnswer(sensor, answer, time.Since(g.started).Milliseconds())
	g.mu.Unlock()

	if err != nil {
		return fmt.Errorf("decoding %s answer: %w", sensor, err)
	}
	return nil
}

// query sends a query and repeats it on a timeout up to the configured
// retries. Every failed transfer counts towards the transfer error limit.
func (g *Gatherer) query(ctx context.Context, sensor hott.SensorID) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		g.mu.Lock()
		g.queries++
		g.mu.Unlock()

		answer, err := g.transport.Query(ctx, sensor)
		if err == nil {
			return answer, nil
		}
		if !errors.Is(err, ErrTimeout) && !errors.Is(err, ErrShortAnswer) {
			return nil, err
		}

		g.mu.Lock()
		g.transferErrors++
		if errors.Is(err, ErrTimeout) {
			g.timeouts++
		}
		exceeded := g.transferErrors > int64(g.cfg.TransferErrorLimit)
		g.mu.Unlock()

		if exceeded {
			return nil, fmt.Errorf("%w: limit of %d exceeded", ErrTooManyTransferErrors, g.cfg.TransferErrorLimit)
		}
		if attempt >= g.cfg.Retries {
			g.logger.Debug("query unanswered", slog.String("sensor", sensor.String()), slog.Int("attempts", attempt+1))
			return nil, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
