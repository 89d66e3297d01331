package gateway

import (
	"encoding/json"
	"fmt"

	"bookviz-go/heatmap"
	"bookviz-go/market"
)

// streamEnvelope wraps every live stream message.
type streamEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// depthMessage carries one depth sample: [price, size] pairs,
// best-first.
type depthMessage struct {
	Ts   int64            `json:"ts"`
	Bids [][2]json.Number `json:"bids"`
	Asks [][2]json.Number `json:"asks"`
}

// ParseDepthSample decodes a live depth message into a LiveSample.
// Non-depth messages return ok=false without error.
func ParseDepthSample(raw []byte) (s heatmap.LiveSample, ok bool, err error) {
	var env streamEnvelope
	if err = json.Unmarshal(raw, &env); err != nil {
		return s, false, fmt.Errorf("decode stream envelope: %w", err)
	}
	if env.Type != "depth" {
		return s, false, nil
	}
	var msg depthMessage
	if err = json.Unmarshal(env.Data, &msg); err != nil {
		return s, false, fmt.Errorf("decode depth sample: %w", err)
	}
	s.Ts = msg.Ts
	s.Bids = toLevels(msg.Bids)
	s.Asks = toLevels(msg.Asks)
	return s, true, nil
}

func toLevels(pairs [][2]json.Number) []market.Level {
	levels := make([]market.Level, 0, len(pairs))
	for _, p := range pairs {
		px, _ := p[0].Float64()
		sz, _ := p[1].Float64()
		levels = append(levels, market.Level{Px: px, Sz: sz})
	}
	return levels
}
