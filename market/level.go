// Package market holds the order-book primitives shared by the heatmap
// and replay components.
package market

// Level is one resting price level, best-first in a book side.
// DeltaSz carries the backend-computed size change versus the previous
// replay frame at this level (zero outside replay context).
type Level struct {
	Px      float64 `json:"px"`
	Sz      float64 `json:"sz"`
	Ct      int     `json:"ct"`
	DeltaSz float64 `json:"delta_sz"`
}

// Side marks the aggressor or book side of an event.
type Side string

const (
	SideBid Side = "B"
	SideAsk Side = "S"
)

// MidSpread returns the mid price and spread from the best levels of
// each side. Both are 0 when either side is empty.
func MidSpread(bids, asks []Level) (mid, spread float64) {
	if len(bids) == 0 || len(asks) == 0 {
		return 0, 0
	}
	mid = (bids[0].Px + asks[0].Px) / 2
	spread = asks[0].Px - bids[0].Px
	return mid, spread
}

// MaxLevelSize returns the largest resting size across both sides,
// clamped to at least 1 so it can be used as a bar-scaling divisor.
func MaxLevelSize(bids, asks []Level) float64 {
	max := 1.0
	for _, l := range bids {
		if l.Sz > max {
			max = l.Sz
		}
	}
	for _, l := range asks {
		if l.Sz > max {
			max = l.Sz
		}
	}
	return max
}
