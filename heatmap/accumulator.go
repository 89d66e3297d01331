package heatmap

import (
	"math"
	"sync"

	"bookviz-go/market"
)

// LiveSample is one depth observation from the live stream.
type LiveSample struct {
	Ts   int64
	Bids []market.Level
	Asks []market.Level
}

// Accumulator keeps a bounded window of live samples and re-bins them
// into a Grid around the per-sample mid price. It backs the live
// heatmap daemon; queried windows come pre-binned from the backend and
// bypass it.
type Accumulator struct {
	tickSize   float64
	priceRange int
	capacity   int

	mu      sync.Mutex
	samples []LiveSample
}

// NewAccumulator holds up to capacity samples binned into ±priceRange
// ticks of size tickSize.
func NewAccumulator(tickSize float64, priceRange, capacity int) *Accumulator {
	if capacity < 1 {
		capacity = 1
	}
	if priceRange < 1 {
		priceRange = 1
	}
	return &Accumulator{
		tickSize:   tickSize,
		priceRange: priceRange,
		capacity:   capacity,
	}
}

// Add appends a sample, evicting the oldest once at capacity.
func (a *Accumulator) Add(s LiveSample) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.samples = append(a.samples, s)
	if len(a.samples) > a.capacity {
		a.samples = a.samples[len(a.samples)-a.capacity:]
	}
}

// Len reports the number of buffered samples.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.samples)
}

// Snapshot bins the buffered samples into a Grid with offsets
// -priceRange..priceRange. Levels outside the range, and samples with
// an empty side (no mid), contribute nothing.
func (a *Accumulator) Snapshot() *Grid {
	a.mu.Lock()
	defer a.mu.Unlock()

	nCols := len(a.samples)
	nRows := 2*a.priceRange + 1
	g := &Grid{
		Timestamps: make([]int64, 0, nCols),
		Offsets:    make([]int, 0, nRows),
		Depth:      make([][]float64, nRows),
	}
	for off := -a.priceRange; off <= a.priceRange; off++ {
		g.Offsets = append(g.Offsets, off)
	}
	for r := range g.Depth {
		g.Depth[r] = make([]float64, nCols)
	}

	for col, s := range a.samples {
		g.Timestamps = append(g.Timestamps, s.Ts)
		mid, _ := market.MidSpread(s.Bids, s.Asks)
		if mid == 0 {
			continue
		}
		a.binSide(g, col, mid, s.Bids)
		a.binSide(g, col, mid, s.Asks)
	}
	return g
}

func (a *Accumulator) binSide(g *Grid, col int, mid float64, levels []market.Level) {
	for _, l := range levels {
		off := int(math.Round((l.Px - mid) / a.tickSize))
		if off < -a.priceRange || off > a.priceRange {
			continue
		}
		g.Depth[off+a.priceRange][col] += l.Sz
	}
}
