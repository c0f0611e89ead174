package histo

import "github.com/roman-kulish/hott-telemetry/internal/hott"

// Bounds tracks the per-channel minimum and maximum of a series.
type Bounds struct {
	Min []int
	Max []int
}

// NewBounds returns empty bounds for vectors of the given size.
func NewBounds(size int) *Bounds {
	return &Bounds{Min: make([]int, 0, size), Max: make([]int, 0, size)}
}

// Empty reports whether no vector was observed.
func (b *Bounds) Empty() bool {
	return len(b.Min) == 0
}

// Observe widens the bounds by one vector.
func (b *Bounds) Observe(p hott.Points) {
	if b.Empty() {
		b.Min = append(b.Min, p...)
		b.Max = append(b.Max, p...)
		return
	}
	for i, v := range p {
		if i >= len(b.Min) {
			break
		}
		b.Min[i] = min(b.Min[i], v)
		b.Max[i] = max(b.Max[i], v)
	}
}

// Range is the spread of a channel.
func (b *Bounds) Range(channel int) int {
	if b.Empty() || channel >= len(b.Min) {
		return 0
	}
	return b.Max[channel] - b.Min[channel]
}
