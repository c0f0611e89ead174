package app

// lossBins splits package loss into 10% wide bins, the last one holding 100%.
const lossBins = 11

// LossHistogram counts samples by their rolling package loss.
type LossHistogram struct {
	Bins  [lossBins]int64 `json:"bins"`
	Total int64           `json:"total"`
}

func NewLossHistogram() *LossHistogram {
	return &LossHistogram{}
}

// getBinIndex converts a loss percentage to a bin index
func getBinIndex(percent int) int {
	return min(max(percent, 0), 100) / 10
}

// Update adds a loss reading in percent.
func (h *LossHistogram) Update(percent int) {
	h.Bins[getBinIndex(percent)]++
	h.Total++
}

// Percentile returns the lowest loss bound below which at least p percent
// of the samples lie.
func (h *LossHistogram) Percentile(p int) int {
	if h.Total == 0 {
		return 0
	}
	target := (h.Total*int64(p) + 99) / 100
	var count int64
	for bin, n := range h.Bins {
		count += n
		if count >= target {
			return min((bin+1)*10, 100)
		}
	}
	return 100
}
