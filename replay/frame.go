// Package replay steps through paginated order-book frame sequences
// served by the pipeline backend.
package replay

import (
	"bookviz-go/market"
)

// Event is the book-changing action that produced a frame.
// Actions: A add, C cancel, T trade, M modify.
type Event struct {
	Action string      `json:"action"`
	Side   market.Side `json:"side"`
	Depth  int         `json:"depth"`
	Price  float64     `json:"price"`
	Size   float64     `json:"size"`
}

// StarGraph is the hidden-liquidity indicator bundle attached to each
// frame: the scalar R value, its change since the previous frame, a
// hidden-trade-size counter, and the prices bounding the visible book.
type StarGraph struct {
	RValue        float64 `json:"r_value"`
	DeltaR        float64 `json:"delta_r"`
	HiddenTradeSz float64 `json:"hidden_trade_sz"`
	BoundaryBid   float64 `json:"boundary_bid"`
	BoundaryAsk   float64 `json:"boundary_ask"`
}

// Frame is one discrete book state plus its triggering event and the
// backend-derived analytics. Immutable once received.
type Frame struct {
	Ts        int64          `json:"ts"`
	Event     Event          `json:"event"`
	Bids      []market.Level `json:"bids"`
	Asks      []market.Level `json:"asks"`
	MidPrice  float64        `json:"mid_price"`
	Spread    float64        `json:"spread"`
	Imbalance float64        `json:"imbalance"`
	StarGraph StarGraph      `json:"star_graph"`
}

// Page is one fetched batch of frames.
type Page struct {
	TotalInRange int     `json:"total_in_range"`
	Offset       int     `json:"offset"`
	Limit        int     `json:"limit"`
	Returned     int     `json:"returned"`
	HasMore      bool    `json:"has_more"`
	Frames       []Frame `json:"frames"`
}

// ActionColors maps event actions to their display hues.
var ActionColors = map[string]string{
	"A": "#42a5f5",
	"C": "#ffa726",
	"T": "#26a69a",
	"M": "#ab47bc",
}

// Stats are the per-frame display values. Pure function of one frame;
// deltas against the previous frame arrive precomputed on the levels.
type Stats struct {
	Mid       float64
	Spread    float64
	Imbalance float64
	MaxSize   float64
}

// ComputeStats passes through the backend analytics and derives the
// bar-scaling divisor from the frame's levels.
func ComputeStats(f *Frame) Stats {
	if f == nil {
		return Stats{MaxSize: 1}
	}
	return Stats{
		Mid:       f.MidPrice,
		Spread:    f.Spread,
		Imbalance: f.Imbalance,
		MaxSize:   market.MaxLevelSize(f.Bids, f.Asks),
	}
}
