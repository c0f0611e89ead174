package hott

// ParseContext carries what the parsers of one session need besides the
// sub-block bytes: the thresholds, the current time and state of earlier frames.
type ParseContext struct {
	Filter *FilterConfig
	Layout Layout
	TimeMs int64

	// WarmedUp is set once enough samples were emitted for the capacity jump
	// bound to have a baseline.
	WarmedUp bool

	lastLatMs int64
	lastLonMs int64
}

// NewParseContext returns a context using the given thresholds.
func NewParseContext(filter *FilterConfig, layout Layout) *ParseContext {
	if filter == nil {
		def := DefaultFilterConfig()
		filter = &def
	}
	return &ParseContext{Filter: filter, Layout: layout}
}

func (c *ParseContext) filtering() bool {
	return c.Filter.Enabled
}

// capacityAccepted applies the learned linear capacity bound: the reported
// capacity may grow by no more than voltage times current allows since the
// previous accepted value.
func (c *ParseContext) capacityAccepted(capacity, prev, volt, curr int, requireNonZero bool) bool {
	if !c.filtering() || !c.WarmedUp {
		return true
	}
	if requireNonZero && capacity == 0 {
		return false
	}
	return abs(capacity) <= prev/1000+volt/1000*curr/1000/2500+2
}

// cellBalance returns the spread of the non-zero cell voltages scaled to
// the balance channel, or zero when no cell reported.
func cellBalance(cells Points) int {
	maxV, minV := 0, 0
	seen := false
	for _, v := range cells {
		if v <= 0 {
			continue
		}
		if !seen {
			maxV, minV, seen = v, v, true
			continue
		}
		maxV = max(maxV, v)
		minV = min(minV, v)
	}
	if !seen {
		return 0
	}
	return (maxV - minV) * 10
}
