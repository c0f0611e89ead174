package loss

import (
	"math"
	"testing"
)

func TestTrackerPercent(t *testing.T) {
	tests := []struct {
		name   string
		blocks int
		losses int
	}{
		{name: "no loss", blocks: 100, losses: 0},
		{name: "two percent", blocks: 100, losses: 2},
		{name: "one third", blocks: 99, losses: 33},
		{name: "all lost", blocks: 100, losses: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(tt.blocks)
			every := 0
			if tt.losses > 0 {
				every = tt.blocks / tt.losses
			}
			lost := 0
			for i := 0; i < tt.blocks; i++ {
				if every > 0 && i%every == 0 && lost < tt.losses {
					tr.Add(false)
					lost++
					continue
				}
				tr.Add(true)
			}

			want := int(math.Round(100 * float64(tt.blocks-tt.losses) / float64(tt.blocks)))
			if got := tr.Percent(); got != want {
				t.Errorf("Expected percent %d, got %d", want, got)
			}
			if tr.Lost() != int64(tt.losses) {
				t.Errorf("Expected %d lost, got %d", tt.losses, tr.Lost())
			}
		})
	}
}

func TestTrackerWindowSlides(t *testing.T) {
	tr := NewTracker(10)
	for i := 0; i < 10; i++ {
		tr.Add(false)
	}
	if got := tr.Percent(); got != 0 {
		t.Fatalf("Expected 0%%, got %d", got)
	}
	for i := 0; i < 10; i++ {
		tr.Add(true)
	}
	if got := tr.Percent(); got != 100 {
		t.Errorf("Expected 100%% once losses left the window, got %d", got)
	}
	if got := tr.LossPercent(); got != 50 {
		t.Errorf("Expected session loss 50%%, got %f", got)
	}
}

func TestTrackerRuns(t *testing.T) {
	tr := NewTracker(DefaultWindow)
	for _, run := range []int{1, 1, 3, 5} {
		for i := 0; i < run; i++ {
			tr.Add(false)
		}
		tr.Add(true)
	}

	runs := tr.Runs()
	if runs.Count != 4 {
		t.Fatalf("Expected 4 runs, got %d", runs.Count)
	}
	if runs.Min != 1 {
		t.Errorf("Expected min 1, got %d", runs.Min)
	}
	if runs.Max != 5 {
		t.Errorf("Expected max 5, got %d", runs.Max)
	}
	if runs.Mean() != 2.5 {
		t.Errorf("Expected mean 2.5, got %f", runs.Mean())
	}
	if runs.Sigma() < 0 {
		t.Errorf("Expected non-negative sigma, got %f", runs.Sigma())
	}
	if math.Abs(runs.Sigma()-1.9148542) > 1e-6 {
		t.Errorf("Expected sigma 1.9149, got %f", runs.Sigma())
	}
}

func TestTrackerFlushActiveRun(t *testing.T) {
	tr := NewTracker(DefaultWindow)
	tr.Add(true)
	tr.Add(false)
	tr.Add(false)
	if tr.Run() != 2 {
		t.Fatalf("Expected active run 2, got %d", tr.Run())
	}
	if tr.Runs().Count != 0 {
		t.Fatalf("Expected no committed run, got %d", tr.Runs().Count)
	}
	tr.Flush()
	if tr.Runs().Count != 1 || tr.Runs().Max != 2 {
		t.Errorf("Expected one committed run of 2, got %s", tr.Runs())
	}
}
