// Package heatmap turns depth-over-time grids from the pipeline backend
// into painted rasters.
package heatmap

import (
	"bookviz-go/market"
)

// Trade marks an execution inside the sampled window. SampleIdx is the
// column (time bucket) index; PriceOffset must match one of the grid's
// offset rows or the marker is dropped at render time.
type Trade struct {
	SampleIdx   int         `json:"sample_idx"`
	PriceOffset int         `json:"price_offset"`
	Side        market.Side `json:"side"`
	Size        float64     `json:"size"`
}

// Grid is the backend's heatmap aggregate: one column per sampled time
// bucket, one row per signed price-tick offset around mid. Depth cells
// may be missing (short rows), which reads as zero.
type Grid struct {
	Timestamps []int64     `json:"timestamps"`
	Offsets    []int       `json:"offsets"`
	Depth      [][]float64 `json:"depth"`
	Trades     []Trade     `json:"trades"`
}

// Response is the full heatmap query reply.
type Response struct {
	Grid
	NSamples   int `json:"n_samples"`
	PriceRange int `json:"price_range"`
}

// MaxDepth returns the largest depth value in the grid, clamped to at
// least 1 so it is always a safe normalization divisor.
func (g *Grid) MaxDepth() float64 {
	max := 0.0
	for _, row := range g.Depth {
		for _, v := range row {
			if v > max {
				max = v
			}
		}
	}
	if max == 0 {
		max = 1
	}
	return max
}

// RowForOffset returns the row index whose price offset equals off, or
// -1 when no row matches.
func (g *Grid) RowForOffset(off int) int {
	for i, o := range g.Offsets {
		if o == off {
			return i
		}
	}
	return -1
}

// At reads one depth cell, treating missing rows or short rows as zero.
func (g *Grid) At(row, col int) float64 {
	if row < 0 || row >= len(g.Depth) {
		return 0
	}
	r := g.Depth[row]
	if col < 0 || col >= len(r) {
		return 0
	}
	return r[col]
}
