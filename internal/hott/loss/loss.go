// Package loss tracks lost telemetry packages of a receiver link.
package loss

import (
	"fmt"
	"math"
)

// DefaultWindow is one second of blocks at the 10 ms block rate.
const DefaultWindow = 100

// Tracker keeps a rolling window of present/absent flags together with the
// session totals and the histogram of consecutive loss runs.
type Tracker struct {
	window  []bool
	pos     int
	filled  int
	present int

	total int64
	lost  int64
	run   int
	runs  RunStats
}

// NewTracker creates a tracker with the given window length in blocks.
func NewTracker(window int) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tracker{window: make([]bool, window)}
}

// Add records one block. The first present block after a loss run commits the
// run length to the histogram.
func (t *Tracker) Add(present bool) {
	if t.filled == len(t.window) {
		if t.window[t.pos] {
			t.present--
		}
	} else {
		t.filled++
	}
	t.window[t.pos] = present
	t.pos = (t.pos + 1) % len(t.window)

	t.total++
	if present {
		t.present++
		t.Flush()
		return
	}
	t.lost++
	t.run++
}

// Flush commits an active loss run.
func (t *Tracker) Flush() {
	if t.run > 0 {
		t.runs.Add(t.run)
		t.run = 0
	}
}

// Percent returns the share of present blocks within the window, 0..100,
// rounded half up.
func (t *Tracker) Percent() int {
	if t.filled == 0 {
		return 0
	}
	return (t.present*100 + t.filled/2) / t.filled
}

// Total is the number of blocks seen in the session.
func (t *Tracker) Total() int64 {
	return t.total
}

// Lost is the number of lost blocks in the session.
func (t *Tracker) Lost() int64 {
	return t.lost
}

// LossPercent is the share of lost blocks over the whole session.
func (t *Tracker) LossPercent() float64 {
	if t.total == 0 {
		return 0
	}
	return float64(t.lost) * 100 / float64(t.total)
}

// Run is the length of the active, uncommitted loss run.
func (t *Tracker) Run() int {
	return t.run
}

// Runs returns a copy of the loss run histogram.
func (t *Tracker) Runs() RunStats {
	return t.runs
}

// Reset clears all state.
func (t *Tracker) Reset() {
	clear(t.window)
	*t = Tracker{window: t.window}
}

// RunStats accumulates loss run lengths, in blocks, using Welford's method.
type RunStats struct {
	Count int64
	Min   int
	Max   int

	mean float64
	m2   float64
}

// Add accumulates one run length.
func (s *RunStats) Add(v int) {
	s.Count++
	if s.Count == 1 || v < s.Min {
		s.Min = v
	}
	if s.Count == 1 || v > s.Max {
		s.Max = v
	}
	delta := float64(v) - s.mean
	s.mean += delta / float64(s.Count)
	s.m2 += delta * (float64(v) - s.mean)
}

// Mean is the average run length.
func (s RunStats) Mean() float64 {
	return s.mean
}

// Sigma is the sample standard deviation of the run lengths.
func (s RunStats) Sigma() float64 {
	if s.Count < 2 {
		return 0
	}
	return math.Sqrt(s.m2 / float64(s.Count-1))
}

func (s RunStats) String() string {
	if s.Count == 0 {
		return "no loss runs"
	}
	return fmt.Sprintf("runs=%d min=%d max=%d mean=%.2f sigma=%.2f", s.Count, s.Min, s.Max, s.Mean(), s.Sigma())
}
