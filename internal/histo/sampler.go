// Package histo reduces a long series of point vectors to a bounded number of
// samples without losing transient extrema.
package histo

import (
	"math/rand/v2"
	"slices"

	"github.com/roman-kulish/hott-telemetry/internal/hott"
)

// Stats counts the work of a Sampler.
type Stats struct {
	// Readings is the number of vectors offered.
	Readings int64
	// Slots is the number of closed slots that received at least one vector.
	Slots int64
	// Emitted is the number of vectors emitted.
	Emitted int64
}

// Oversampled is the number of extra samples emitted for extrema.
func (s Stats) Oversampled() int64 {
	return s.Emitted - s.Slots
}

// OversamplingRatio is emitted samples per slot.
func (s Stats) OversamplingRatio() float64 {
	if s.Slots == 0 {
		return 0
	}
	return float64(s.Emitted) / float64(s.Slots)
}

// candidate is a vector offered to the open slot. Several vectors may share a
// raw position, so seq orders them instead.
type candidate struct {
	seq    int64
	sample hott.Sample
}

// Sampler divides a series of known raw length into Budget slots. From every
// slot it emits one randomly selected representative plus the slot extrema
// that reach the global channel bounds or deviate from the representative by
// more than the configured threshold.
type Sampler struct {
	cfg    Config
	total  int64
	rng    *rand.Rand
	bounds *Bounds

	slot     int64
	inSlot   int64
	rep      candidate
	slotMin  []candidate
	slotMax  []candidate
	hasSlot  bool
	stats    Stats
	channels int
}

// NewSampler creates a sampler for a series of total raw positions.
func NewSampler(cfg Config, total int64, channels int) *Sampler {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	if cfg.Budget <= 0 {
		cfg.Budget = DefaultBudget
	}
	return &Sampler{
		cfg:      cfg,
		total:    max(total, 1),
		rng:      rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)),
		bounds:   NewBounds(channels),
		slotMin:  make([]candidate, channels),
		slotMax:  make([]candidate, channels),
		channels: channels,
	}
}

// Learn widens the global bounds during an initialization pass, before any
// vector is added. Extrema reaching learned bounds are always emitted.
func (s *Sampler) Learn(p hott.Points) {
	s.bounds.Observe(p)
}

// Bounds returns the global bounds known so far.
func (s *Sampler) Bounds() *Bounds {
	return s.bounds
}

// SlotOf returns the slot a raw position falls into.
func (s *Sampler) SlotOf(pos int64) int64 {
	if s.total <= int64(s.cfg.Budget) {
		return pos
	}
	return pos * int64(s.cfg.Budget) / s.total
}

// Add offers a sample at a raw position; positions must not decrease but may
// repeat. It returns the samples emitted by a slot the position closed.
func (s *Sampler) Add(pos int64, sample hott.Sample) []hott.Sample {
	s.stats.Readings++

	var out []hott.Sample
	slot := s.SlotOf(pos)
	if s.hasSlot && slot != s.slot {
		out = s.closeSlot()
	}
	if !s.hasSlot {
		s.slot, s.hasSlot, s.inSlot = slot, true, 0
	}

	c := candidate{seq: s.stats.Readings, sample: sample}
	s.inSlot++
	// Reservoir of one: the n-th vector replaces the representative with
	// probability 1/n.
	if s.inSlot == 1 || s.rng.Int64N(s.inSlot) == 0 {
		s.rep = c
	}
	for i := 0; i < s.channels && i < len(sample.Points); i++ {
		v := sample.Points[i]
		if s.inSlot == 1 || v < s.slotMin[i].sample.Points[i] {
			s.slotMin[i] = c
		}
		if s.inSlot == 1 || v > s.slotMax[i].sample.Points[i] {
			s.slotMax[i] = c
		}
	}
	return out
}

// Flush closes the open slot.
func (s *Sampler) Flush() []hott.Sample {
	if !s.hasSlot {
		return nil
	}
	return s.closeSlot()
}

// Stats returns the counters.
func (s *Sampler) Stats() Stats {
	return s.stats
}

func (s *Sampler) closeSlot() []hott.Sample {
	picked := map[int64]hott.Sample{s.rep.seq: s.rep.sample}

	for i := 0; i < s.channels; i++ {
		lo, hi := s.slotMin[i], s.slotMax[i]
		if i >= len(lo.sample.Points) || i >= len(hi.sample.Points) {
			continue
		}
		if s.keep(i, lo.sample.Points[i], true) {
			picked[lo.seq] = lo.sample
		}
		if s.keep(i, hi.sample.Points[i], false) {
			picked[hi.seq] = hi.sample
		}
	}
	for _, c := range s.slotMax {
		s.bounds.Observe(c.sample.Points)
	}
	for _, c := range s.slotMin {
		s.bounds.Observe(c.sample.Points)
	}

	order := make([]int64, 0, len(picked))
	for seq := range picked {
		order = append(order, seq)
	}
	slices.Sort(order)

	out := make([]hott.Sample, 0, len(order))
	for _, seq := range order {
		out = append(out, picked[seq])
	}

	s.stats.Slots++
	s.stats.Emitted += int64(len(out))
	s.hasSlot = false
	clear(s.slotMin)
	clear(s.slotMax)
	return out
}

// keep decides whether a slot extremum is emitted besides the representative.
func (s *Sampler) keep(channel, v int, isMin bool) bool {
	rep := s.rep.sample.Points[channel]
	if v == rep {
		return false
	}
	if s.bounds.Empty() || channel >= len(s.bounds.Min) {
		return true
	}
	if isMin && v <= s.bounds.Min[channel] || !isMin && v >= s.bounds.Max[channel] {
		return true
	}
	if s.cfg.Threshold == 0 {
		return false
	}
	span := s.bounds.Range(channel)
	return span > 0 && abs(v-rep)*1000 > s.cfg.Threshold*span
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
