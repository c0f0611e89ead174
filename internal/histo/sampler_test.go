package histo

import (
	"math"
	"testing"

	"github.com/roman-kulish/hott-telemetry/internal/hott"
)

// series builds n samples of two channels: a slow ramp and a noisy channel
// with a few single-sample spikes.
func series(n int) []hott.Sample {
	out := make([]hott.Sample, n)
	for i := range out {
		noise := int(math.Sin(float64(i)/7) * 1000)
		switch i {
		case 1234:
			noise = 90000
		case 4567:
			noise = -75000
		case n - 1:
			noise = 88000
		}
		out[i] = hott.Sample{TimeMs: int64(i) * hott.TimeStepMs, Points: hott.Points{i * 10, noise}}
	}
	return out
}

func run(t *testing.T, s *Sampler, in []hott.Sample) []hott.Sample {
	t.Helper()
	var out []hott.Sample
	for i, sample := range in {
		out = append(out, s.Add(int64(i), sample)...)
	}
	return append(out, s.Flush()...)
}

func extremes(samples []hott.Sample, channel int) (lo, hi int) {
	lo, hi = math.MaxInt, math.MinInt
	for _, s := range samples {
		lo = min(lo, s.Points[channel])
		hi = max(hi, s.Points[channel])
	}
	return lo, hi
}

func TestSamplerSlotCountAndExtrema(t *testing.T) {
	const n = 10000

	tests := []struct {
		name   string
		budget int
		learn  bool
	}{
		{name: "with init pass", budget: 300, learn: true},
		{name: "without init pass", budget: 300, learn: false},
		{name: "uneven budget", budget: 333, learn: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := series(n)
			s := NewSampler(Config{Budget: tt.budget, Seed: 42}, n, 2)
			if tt.learn {
				for _, sample := range in {
					s.Learn(sample.Points)
				}
			}

			out := run(t, s, in)
			st := s.Stats()

			if d := st.Slots - int64(tt.budget); d < -1 || d > 1 {
				t.Errorf("Expected %d slots (+-1), got %d", tt.budget, st.Slots)
			}
			if st.Readings != n {
				t.Errorf("Expected %d readings, got %d", n, st.Readings)
			}
			if st.Emitted != int64(len(out)) {
				t.Errorf("Expected emitted counter %d, got %d", len(out), st.Emitted)
			}

			for ch := 0; ch < 2; ch++ {
				wantLo, wantHi := extremes(in, ch)
				gotLo, gotHi := extremes(out, ch)
				if wantLo != gotLo || wantHi != gotHi {
					t.Errorf("Channel %d: expected extrema %d/%d, got %d/%d", ch, wantLo, wantHi, gotLo, gotHi)
				}
			}

			for i := 1; i < len(out); i++ {
				if out[i].TimeMs <= out[i-1].TimeMs {
					t.Fatalf("Expected strictly increasing times, got %d after %d", out[i].TimeMs, out[i-1].TimeMs)
				}
			}
		})
	}
}

func TestSamplerThresholdOversamples(t *testing.T) {
	const n = 2000
	in := series(n)

	plain := NewSampler(Config{Budget: 100, Seed: 7}, n, 2)
	strict := NewSampler(Config{Budget: 100, Seed: 7, Threshold: 5}, n, 2)
	for _, sample := range in {
		plain.Learn(sample.Points)
		strict.Learn(sample.Points)
	}
	run(t, plain, in)
	run(t, strict, in)

	if strict.Stats().Oversampled() <= plain.Stats().Oversampled() {
		t.Errorf("Expected threshold to add samples, got %d vs %d", strict.Stats().Oversampled(), plain.Stats().Oversampled())
	}
	if r := strict.Stats().OversamplingRatio(); r < 1 {
		t.Errorf("Expected oversampling ratio >= 1, got %f", r)
	}
}

func TestSamplerShortSeries(t *testing.T) {
	in := series(50)
	s := NewSampler(Config{Budget: 100, Seed: 1}, int64(len(in)), 2)
	out := run(t, s, in)
	if len(out) != len(in) {
		t.Errorf("Expected every sample of a short series, got %d of %d", len(out), len(in))
	}
}

func TestSamplerSharedPosition(t *testing.T) {
	// The closing sample of a recording repeats the position of the last block.
	in := []struct {
		pos    int64
		points hott.Points
	}{
		{0, hott.Points{5, 5}},
		{9, hott.Points{-100, 5}},
		{9, hott.Points{7, 900}},
	}

	for seed := uint64(1); seed <= 16; seed++ {
		s := NewSampler(Config{Budget: 1, Seed: seed}, 10, 2)
		var out []hott.Sample
		for i, r := range in {
			out = append(out, s.Add(r.pos, hott.Sample{TimeMs: int64(i), Points: r.points})...)
		}
		out = append(out, s.Flush()...)

		if lo, _ := extremes(out, 0); lo != -100 {
			t.Errorf("seed %d: Expected channel 0 minimum -100, got %d", seed, lo)
		}
		if _, hi := extremes(out, 1); hi != 900 {
			t.Errorf("seed %d: Expected channel 1 maximum 900, got %d", seed, hi)
		}
		for i := 1; i < len(out); i++ {
			if out[i].TimeMs <= out[i-1].TimeMs {
				t.Errorf("seed %d: Expected samples in insertion order, got %d after %d", seed, out[i].TimeMs, out[i-1].TimeMs)
			}
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		cfg     Config
		wantErr bool
	}{
		{cfg: Config{Budget: 100}},
		{cfg: Config{Budget: 0}, wantErr: true},
		{cfg: Config{Budget: 10, Threshold: 1001}, wantErr: true},
	}
	for _, tt := range tests {
		if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("Validate(%+v): expected error %v, got %v", tt.cfg, tt.wantErr, err)
		}
	}
}
